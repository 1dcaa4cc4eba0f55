package student

import "math"

// ProbabilityTolerance is how far a probability sum may drift from 1.0 before
// it is reported as inconsistent.
const ProbabilityTolerance = 0.01

type Probabilities struct {
	Graduate float64 `json:"Graduate"`
	Dropout  float64 `json:"Dropout"`
	Enrolled float64 `json:"Enrolled"`
}

func (p Probabilities) Get(o Outcome) float64 {
	switch o {
	case Graduate:
		return p.Graduate
	case Dropout:
		return p.Dropout
	case Enrolled:
		return p.Enrolled
	default:
		return 0
	}
}

func (p *Probabilities) Set(o Outcome, v float64) {
	switch o {
	case Graduate:
		p.Graduate = v
	case Dropout:
		p.Dropout = v
	case Enrolled:
		p.Enrolled = v
	}
}

func (p Probabilities) Sum() float64 {
	return p.Graduate + p.Dropout + p.Enrolled
}

func (p Probabilities) Argmax() Outcome {
	best := Outcomes[0]
	for _, o := range Outcomes[1:] {
		if p.Get(o) > p.Get(best) {
			best = o
		}
	}
	return best
}

// SumsToOne reports whether the sum is within ProbabilityTolerance of 1.0.
func (p Probabilities) SumsToOne() bool {
	return math.Abs(p.Sum()-1) <= ProbabilityTolerance
}

// Prediction is the canonical, validated inference result.
type Prediction struct {
	Prediction           Outcome        `json:"prediction"`
	Probabilities        *Probabilities `json:"probabilities"`
	Confidence           *float64       `json:"confidence"`
	Message              *string        `json:"message"`
	HasRealProbabilities bool           `json:"has_real_probabilities"`
}

func (p Prediction) MessageOr(def string) string {
	if p.Message != nil && *p.Message != "" {
		return *p.Message
	}
	return def
}
