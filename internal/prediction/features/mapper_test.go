package features

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/yungbote/studentrisk-backend/internal/domain/student"
	"github.com/yungbote/studentrisk-backend/internal/prediction"
)

func sampleSurvey() student.SurveyRecord {
	return student.SurveyRecord{
		"age_at_enrollment":                    "20",
		"curricular_units_1st_sem_grade":       "14.5",
		"curricular_units_2nd_sem_grade":       "13",
		"curricular_units_1st_sem_approved":    "6",
		"curricular_units_2nd_sem_approved":    "5",
		"curricular_units_1st_sem_evaluations": "8",
		"curricular_units_2nd_sem_evaluations": "7",
		"unemployment_rate":                    "10.8",
		"gdp":                                  "1.74",
		"marital_status":                       "Single",
		"scholarship_holder":                   "No",
		"tuition_fees_up_to_date":              "Yes",
		"previous_qualification":               "Secondary education",
		"mother's_qualification":               "Higher education—degree",
		"father's_qualification":               "Unknown",
	}
}

func TestMapOrdersKeysAndCoercesNumbers(t *testing.T) {
	t.Parallel()

	v, issues := Map(sampleSurvey())
	if len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}
	raw, err := v.JSON()
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}

	want := []string{
		"curricular_units_1st_sem_grade", "curricular_units_2nd_sem_grade",
		"curricular_units_1st_sem_approved", "curricular_units_2nd_sem_approved",
		"curricular_units_1st_sem_evaluations", "curricular_units_2nd_sem_evaluations",
		"unemployment_rate", "gdp", "age_at_enrollment", "scholarship_holder",
		"tuition_fees_up_to_date", "marital_status", "previous_qualification",
		"mothers_qualification", "fathers_qualification",
	}
	last := -1
	for _, key := range want {
		idx := strings.Index(raw, `"`+key+`":`)
		if idx < 0 {
			t.Fatalf("key %q missing from %s", key, raw)
		}
		if idx <= last {
			t.Fatalf("key %q out of order in %s", key, raw)
		}
		last = idx
	}
	if strings.Contains(raw, "mother's") || strings.Contains(raw, "father's") {
		t.Fatalf("apostrophe key leaked onto the wire: %s", raw)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	for _, field := range student.Fields {
		val := decoded[field.Name]
		if field.Numeric() {
			if _, ok := val.(float64); !ok {
				t.Fatalf("%s: want JSON number, got %T (%v)", field.Name, val, val)
			}
		} else if _, ok := val.(string); !ok {
			t.Fatalf("%s: want JSON string, got %T", field.Name, val)
		}
	}
	if decoded["curricular_units_1st_sem_grade"].(float64) != 14.5 {
		t.Fatalf("grade not preserved: %v", decoded["curricular_units_1st_sem_grade"])
	}
	if decoded["mothers_qualification"] != "Higher education—degree" {
		t.Fatalf("mothers_qualification: %v", decoded["mothers_qualification"])
	}
}

func TestMapIsDeterministic(t *testing.T) {
	t.Parallel()

	a, _ := Map(sampleSurvey())
	b, _ := Map(sampleSurvey())
	ja, _ := a.JSON()
	jb, _ := b.JSON()
	if ja != jb {
		t.Fatalf("non-deterministic output:\n%s\n%s", ja, jb)
	}
}

func TestMapAcceptsEveryQualificationSpelling(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"canonical":  "mothers_qualification",
		"apostrophe": "mother's_qualification",
		"legacy":     "mother_qualification",
	}
	for name, key := range cases {
		key := key
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			rec := sampleSurvey()
			delete(rec, "mother's_qualification")
			rec[key] = "Cannot read or write"
			v, issues := Map(rec)
			if len(issues) != 0 {
				t.Fatalf("unexpected issues: %v", issues)
			}
			if v.MothersQualification != "Cannot read or write" {
				t.Fatalf("got %q", v.MothersQualification)
			}
		})
	}
}

func TestMapCanonicalSpellingWins(t *testing.T) {
	t.Parallel()

	rec := sampleSurvey()
	rec["mothers_qualification"] = "Unknown"
	v, _ := Map(rec)
	if v.MothersQualification != "Unknown" {
		t.Fatalf("got %q", v.MothersQualification)
	}
}

func TestMapReportsMissingAndUnparseable(t *testing.T) {
	t.Parallel()

	rec := sampleSurvey()
	delete(rec, "gdp")
	rec["age_at_enrollment"] = "twenty"
	rec["curricular_units_1st_sem_approved"] = "5.0"

	v, issues := Map(rec)
	if v.GDP != 0 || v.AgeAtEnrollment != 0 {
		t.Fatalf("want zero values, got gdp=%v age=%v", v.GDP, v.AgeAtEnrollment)
	}
	if v.CurricularUnits1stSemApproved != 5 {
		t.Fatalf("integral float should map to int: %v", v.CurricularUnits1stSemApproved)
	}
	if strings.Join(issues, ",") != "gdp,age_at_enrollment" {
		t.Fatalf("issues: %v", issues)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	if err := Validate(sampleSurvey()); err != nil {
		t.Fatalf("Validate(valid): %v", err)
	}

	rec := sampleSurvey()
	rec["age_at_enrollment"] = "16"
	rec["marital_status"] = "Complicated"
	rec["curricular_units_2nd_sem_evaluations"] = "3.5"
	delete(rec, "gdp")

	err := Validate(rec)
	if !prediction.IsKind(err, prediction.KindValidation) {
		t.Fatalf("want validation error, got %v", err)
	}
	pe := err.(*prediction.Error)
	want := "curricular_units_2nd_sem_evaluations,gdp,age_at_enrollment,marital_status"
	if got := strings.Join(pe.Fields, ","); got != want {
		t.Fatalf("fields: got %q want %q", got, want)
	}
}

func TestToFormRoundTrip(t *testing.T) {
	t.Parallel()

	v, _ := Map(sampleSurvey())
	var rec student.Record
	v.Apply(&rec)

	form := ToForm(rec)
	for k, want := range sampleSurvey() {
		if got := form[k]; got != want {
			t.Fatalf("%s: got %q want %q", k, got, want)
		}
	}
	if _, ok := form["mothers_qualification"]; ok {
		t.Fatalf("form output must use apostrophe keys")
	}

	again, issues := Map(form.Survey())
	if len(issues) != 0 || again != v {
		t.Fatalf("form record does not map back: issues=%v", issues)
	}
}
