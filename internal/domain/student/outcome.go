package student

import "strings"

// Outcome is one of the three academic outcomes the classifier can predict.
type Outcome string

const (
	Graduate Outcome = "Graduate"
	Dropout  Outcome = "Dropout"
	Enrolled Outcome = "Enrolled"
)

// Outcomes lists every label in a fixed order. Ties in Argmax resolve to the
// earliest label here.
var Outcomes = []Outcome{Graduate, Dropout, Enrolled}

func (o Outcome) Valid() bool {
	switch o {
	case Graduate, Dropout, Enrolled:
		return true
	default:
		return false
	}
}

func (o Outcome) String() string { return string(o) }

// ParseOutcome is exact and case-sensitive after trimming whitespace.
func ParseOutcome(s string) (Outcome, bool) {
	o := Outcome(strings.TrimSpace(s))
	return o, o.Valid()
}
