package normalize

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yungbote/studentrisk-backend/internal/domain/student"
	"github.com/yungbote/studentrisk-backend/internal/platform/logger"
	"github.com/yungbote/studentrisk-backend/internal/prediction"
)

type Mode int

const (
	// ModePredict expects an inference result: a label or a structured object.
	ModePredict Mode = iota
	// ModeUpdate expects a server update response with a nested record.
	ModeUpdate
)

func (m Mode) op() string {
	if m == ModeUpdate {
		return "normalize.update"
	}
	return "normalize.predict"
}

// Weights used to approximate probabilities when only a label is known.
const (
	declaredWeight = 0.7
	otherWeight    = 0.1
)

type Normalizer struct {
	log     *logger.Logger
	observe func(Inconsistency)
}

func New(log *logger.Logger) *Normalizer {
	if log == nil {
		log = logger.Nop()
	}
	return &Normalizer{log: log.With("component", "Normalizer")}
}

// OnInconsistency registers a hook called for every warning Normalize logs.
func (n *Normalizer) OnInconsistency(fn func(Inconsistency)) *Normalizer {
	n.observe = fn
	return n
}

// Inconsistency is a non-fatal disagreement inside a prediction.
type Inconsistency struct {
	Reason string
	Argmax student.Outcome
	Sum    float64
}

// NormalizeString parses and normalizes in one step.
func (n *Normalizer) NormalizeString(out string, mode Mode) (student.Prediction, error) {
	return n.Normalize(Parse(out), mode)
}

// Normalize validates a parsed result and returns the canonical prediction.
// Probability inconsistencies are logged, never returned.
func (n *Normalizer) Normalize(raw Raw, mode Mode) (student.Prediction, error) {
	op := mode.op()
	if raw.Shape == ShapeEmpty {
		return student.Prediction{}, prediction.Empty(op)
	}

	var (
		p   student.Prediction
		err error
	)
	switch {
	case mode == ModeUpdate && raw.Shape == ShapeUpdated:
		p, err = fromUpdated(op, raw.Updated)
	case mode == ModeUpdate:
		return student.Prediction{}, prediction.Validation(op, fmt.Sprintf("update response has no updated record: %s", prediction.Clip(raw.Text)))
	case raw.Shape == ShapeStructured:
		p, err = fromStructured(op, raw.Structured)
	case raw.Shape == ShapeLabel:
		p, err = fromLabel(op, raw.Label)
	default:
		return student.Prediction{}, prediction.Validation(op, fmt.Sprintf("unexpected %s response: %s", raw.Shape, prediction.Clip(raw.Text)))
	}
	if err != nil {
		return student.Prediction{}, err
	}

	for _, inc := range Check(p) {
		n.log.Warn("probability inconsistency",
			"kind", prediction.KindProbabilityInconsistency,
			"reason", inc.Reason,
			"prediction", p.Prediction,
			"argmax", inc.Argmax,
			"sum", inc.Sum,
		)
		if n.observe != nil {
			n.observe(inc)
		}
	}
	return p, nil
}

// Check reports argmax and sum disagreements. It returns nil when there are
// no probabilities to compare.
func Check(p student.Prediction) []Inconsistency {
	if p.Probabilities == nil {
		return nil
	}
	var out []Inconsistency
	argmax := p.Probabilities.Argmax()
	sum := p.Probabilities.Sum()
	if argmax != p.Prediction {
		out = append(out, Inconsistency{Reason: "argmax differs from prediction", Argmax: argmax, Sum: sum})
	}
	if !p.Probabilities.SumsToOne() {
		out = append(out, Inconsistency{Reason: "probabilities do not sum to 1", Argmax: argmax, Sum: sum})
	}
	return out
}

// Synthesize approximates a distribution for a bare label. The declared
// label dominates; the result always sums to 1.
func Synthesize(label student.Outcome) student.Probabilities {
	var p student.Probabilities
	total := 0.0
	for _, o := range student.Outcomes {
		w := otherWeight
		if o == label {
			w = declaredWeight
		}
		p.Set(o, w)
		total += w
	}
	for _, o := range student.Outcomes {
		p.Set(o, p.Get(o)/total)
	}
	return p
}

func fromLabel(op, label string) (student.Prediction, error) {
	o, ok := student.ParseOutcome(label)
	if !ok {
		return student.Prediction{}, prediction.Validation(op, fmt.Sprintf("unknown outcome label %q", prediction.Clip(label)))
	}
	probs := Synthesize(o)
	return student.Prediction{
		Prediction:           o,
		Probabilities:        &probs,
		HasRealProbabilities: false,
	}, nil
}

func fromStructured(op string, s *Structured) (student.Prediction, error) {
	if s == nil {
		return student.Prediction{}, prediction.Validation(op, "missing prediction")
	}
	label, _ := s.Prediction.(string)
	o, ok := student.ParseOutcome(label)
	if !ok {
		return student.Prediction{}, prediction.Validation(op, fmt.Sprintf("unknown outcome label %v", s.Prediction))
	}
	out := student.Prediction{Prediction: o}

	if s.Probabilities != nil {
		probs, err := readProbabilities(op, s.Probabilities)
		if err != nil {
			return student.Prediction{}, err
		}
		out.Probabilities = &probs
		out.HasRealProbabilities = true
	}
	if s.HasRealProbabilities != nil && !*s.HasRealProbabilities {
		out.HasRealProbabilities = false
	}

	conf, err := optionalNumber(op, "confidence", s.Confidence)
	if err != nil {
		return student.Prediction{}, err
	}
	out.Confidence = conf
	out.Message = optionalString(s.Message)
	return out, nil
}

func fromUpdated(op string, u *Updated) (student.Prediction, error) {
	if u == nil || u.Record == nil {
		return student.Prediction{}, prediction.Validation(op, "update response has no updated record")
	}
	rec := u.Record

	var probs *student.Probabilities
	cols := map[student.Outcome]string{
		student.Graduate: "probability_graduate",
		student.Dropout:  "probability_dropout",
		student.Enrolled: "probability_enrolled",
	}
	for _, o := range student.Outcomes {
		v, err := optionalNumber(op, cols[o], rec[cols[o]])
		if err != nil {
			return student.Prediction{}, err
		}
		if v == nil {
			continue
		}
		if *v < 0 {
			return student.Prediction{}, prediction.Validation(op, fmt.Sprintf("%s is negative", cols[o]))
		}
		if probs == nil {
			probs = &student.Probabilities{}
		}
		probs.Set(o, *v)
	}

	var o student.Outcome
	var ok bool
	for _, key := range []string{"predicted_outcome", "target"} {
		if s, isStr := rec[key].(string); isStr {
			if o, ok = student.ParseOutcome(s); ok {
				break
			}
		}
	}
	if !ok && probs != nil {
		o, ok = probs.Argmax(), true
	}
	if !ok {
		return student.Prediction{}, prediction.Validation(op, "updated record has no predicted_outcome or target")
	}

	conf, err := optionalNumber(op, "confidence", rec["confidence"])
	if err != nil {
		return student.Prediction{}, err
	}
	msg := optionalString(rec["message"])
	if m := optionalString(u.Message); m != nil {
		msg = m
	}
	hasReal := probs != nil
	if b, isBool := rec["has_real_probabilities"].(bool); isBool {
		hasReal = hasReal && b
	}
	return student.Prediction{
		Prediction:           o,
		Probabilities:        probs,
		Confidence:           conf,
		Message:              msg,
		HasRealProbabilities: hasReal,
	}, nil
}

func readProbabilities(op string, m map[string]any) (student.Probabilities, error) {
	var p student.Probabilities
	for _, o := range student.Outcomes {
		raw, ok := m[string(o)]
		if !ok || raw == nil {
			continue
		}
		f, ok := number(raw)
		if !ok {
			return student.Probabilities{}, prediction.Validation(op, fmt.Sprintf("probability for %s is not a number: %v", o, raw))
		}
		if f < 0 {
			return student.Probabilities{}, prediction.Validation(op, fmt.Sprintf("probability for %s is negative: %v", o, f))
		}
		p.Set(o, f)
	}
	return p, nil
}

func optionalNumber(op, name string, v any) (*float64, error) {
	if v == nil {
		return nil, nil
	}
	f, ok := number(v)
	if !ok {
		return nil, prediction.Validation(op, fmt.Sprintf("%s is not a number: %v", name, v))
	}
	return &f, nil
}

func optionalString(v any) *string {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func number(v any) (float64, bool) {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case float64:
		return t, true
	case int:
		return float64(t), true
	default:
		return 0, false
	}
}
