package normalize

import (
	"math"
	"testing"

	"github.com/yungbote/studentrisk-backend/internal/domain/student"
	"github.com/yungbote/studentrisk-backend/internal/prediction"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 0.005 }

func TestParseShapes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want Shape
	}{
		{"", ShapeEmpty},
		{"  \n", ShapeEmpty},
		{"Graduate\n", ShapeLabel},
		{`"Dropout"`, ShapeLabel},
		{`{"prediction":"Enrolled"}`, ShapeStructured},
		{`{"updated":{"predicted_outcome":"Graduate"},"message":"ok"}`, ShapeUpdated},
		{`{"error":"boom"}`, ShapeLabel},
		{`{not json`, ShapeLabel},
	}
	for _, tc := range cases {
		if got := Parse(tc.in).Shape; got != tc.want {
			t.Fatalf("Parse(%q): got %s want %s", tc.in, got, tc.want)
		}
	}
}

func TestBareLabelSynthesizesFlaggedProbabilities(t *testing.T) {
	t.Parallel()

	p, err := New(nil).NormalizeString("Graduate", ModePredict)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if p.Prediction != student.Graduate {
		t.Fatalf("prediction: %s", p.Prediction)
	}
	if p.HasRealProbabilities {
		t.Fatalf("synthesized probabilities must be flagged")
	}
	if p.Probabilities == nil {
		t.Fatalf("want synthesized probabilities")
	}
	if !approx(p.Probabilities.Graduate, 0.78) || !approx(p.Probabilities.Dropout, 0.11) || !approx(p.Probabilities.Enrolled, 0.11) {
		t.Fatalf("unexpected distribution: %+v", *p.Probabilities)
	}
	if !p.Probabilities.SumsToOne() {
		t.Fatalf("sum: %v", p.Probabilities.Sum())
	}
	if p.Confidence != nil {
		t.Fatalf("confidence should stay nil for synthesized results")
	}
}

func TestStructuredResultIsKeptVerbatim(t *testing.T) {
	t.Parallel()

	p, err := New(nil).NormalizeString(`{"prediction":"Dropout","probabilities":{"Graduate":0.1,"Dropout":0.8,"Enrolled":0.1}}`, ModePredict)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	want := student.Probabilities{Graduate: 0.1, Dropout: 0.8, Enrolled: 0.1}
	if p.Prediction != student.Dropout || p.Probabilities == nil || *p.Probabilities != want {
		t.Fatalf("got %+v", p)
	}
	if !p.HasRealProbabilities {
		t.Fatalf("real probabilities must be flagged as real")
	}
	if p.Confidence != nil || p.Message != nil {
		t.Fatalf("nothing should be invented: %+v", p)
	}
}

func TestStructuredDefaultsMissingLabelsToZero(t *testing.T) {
	t.Parallel()

	p, err := New(nil).NormalizeString(`{"prediction":"Graduate","probabilities":{"Graduate":0.9},"confidence":0.9,"message":"done"}`, ModePredict)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if p.Probabilities.Dropout != 0 || p.Probabilities.Enrolled != 0 {
		t.Fatalf("missing labels should default to 0: %+v", *p.Probabilities)
	}
	if p.Confidence == nil || *p.Confidence != 0.9 {
		t.Fatalf("confidence: %v", p.Confidence)
	}
	if p.Message == nil || *p.Message != "done" {
		t.Fatalf("message: %v", p.Message)
	}
	// sums to 0.9, which is reported but not fatal
	if incs := Check(p); len(incs) != 1 {
		t.Fatalf("want one inconsistency, got %+v", incs)
	}
}

func TestStructuredWithoutProbabilitiesStaysNull(t *testing.T) {
	t.Parallel()

	p, err := New(nil).NormalizeString(`{"prediction":"Enrolled"}`, ModePredict)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if p.Probabilities != nil || p.HasRealProbabilities {
		t.Fatalf("structured result without probabilities must not synthesize: %+v", p)
	}
}

func TestArgmaxMismatchIsAWarningOnly(t *testing.T) {
	t.Parallel()

	var seen []Inconsistency
	n := New(nil).OnInconsistency(func(inc Inconsistency) { seen = append(seen, inc) })
	p, err := n.NormalizeString(`{"prediction":"Graduate","probabilities":{"Graduate":0.2,"Dropout":0.7,"Enrolled":0.1}}`, ModePredict)
	if err != nil {
		t.Fatalf("mismatch must not fail: %v", err)
	}
	if len(seen) != 1 {
		t.Fatalf("hook saw %d warnings", len(seen))
	}
	incs := Check(p)
	if len(incs) != 1 || incs[0].Argmax != student.Dropout {
		t.Fatalf("want argmax inconsistency, got %+v", incs)
	}
}

func TestNormalizeRejections(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		mode Mode
		kind prediction.Kind
	}{
		{"empty", "   ", ModePredict, prediction.KindEmptyResult},
		{"unknown label", "Unknown", ModePredict, prediction.KindValidation},
		{"wrong case", "graduate", ModePredict, prediction.KindValidation},
		{"bad structured label", `{"prediction":"Maybe"}`, ModePredict, prediction.KindValidation},
		{"non-string label", `{"prediction":1}`, ModePredict, prediction.KindValidation},
		{"negative probability", `{"prediction":"Dropout","probabilities":{"Dropout":-0.1}}`, ModePredict, prediction.KindValidation},
		{"string probability", `{"prediction":"Dropout","probabilities":{"Dropout":"high"}}`, ModePredict, prediction.KindValidation},
		{"update without record", `{"prediction":"Dropout"}`, ModeUpdate, prediction.KindValidation},
		{"update without outcome", `{"updated":{"id":"1"}}`, ModeUpdate, prediction.KindValidation},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(nil).NormalizeString(tc.in, tc.mode)
			if got := prediction.KindOf(err); got != tc.kind {
				t.Fatalf("kind: got %q want %q (err=%v)", got, tc.kind, err)
			}
		})
	}
}

func TestUpdateModeReadsNestedRecord(t *testing.T) {
	t.Parallel()

	in := `{"updated":{"id":"abc","predicted_outcome":"Enrolled","probability_graduate":0.2,"probability_dropout":0.1,"probability_enrolled":0.7,"confidence":0.7,"has_real_probabilities":true},"message":"Student updated"}`
	p, err := New(nil).NormalizeString(in, ModeUpdate)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if p.Prediction != student.Enrolled || p.Probabilities == nil || p.Probabilities.Enrolled != 0.7 {
		t.Fatalf("got %+v", p)
	}
	if !p.HasRealProbabilities {
		t.Fatalf("has_real_probabilities should carry through")
	}
	if p.Message == nil || *p.Message != "Student updated" {
		t.Fatalf("message: %v", p.Message)
	}
}

func TestUpdateModeFallsBackToTargetThenArgmax(t *testing.T) {
	t.Parallel()

	p, err := New(nil).NormalizeString(`{"updated":{"target":"Dropout"}}`, ModeUpdate)
	if err != nil || p.Prediction != student.Dropout {
		t.Fatalf("target fallback: %+v %v", p, err)
	}
	if p.Probabilities != nil || p.HasRealProbabilities {
		t.Fatalf("no probabilities were stored: %+v", p)
	}

	p, err = New(nil).NormalizeString(`{"updated":{"probability_graduate":0.6,"probability_dropout":0.3,"probability_enrolled":0.1}}`, ModeUpdate)
	if err != nil || p.Prediction != student.Graduate {
		t.Fatalf("argmax fallback: %+v %v", p, err)
	}
}
