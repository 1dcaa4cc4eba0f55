package student

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

var (
	ErrRecordNotFound = errors.New("student record not found")
	// ErrInvalidID marks rows whose id is not a UUID, such as rows from a
	// table that predates the migrated schema.
	ErrInvalidID = errors.New("record id is not a uuid")
)

// RecordFromMap decodes a loosely-typed storage row. Parent qualification
// columns are read under every spelling older rows may carry; missing values
// default to empty.
func RecordFromMap(m map[string]any) (Record, error) {
	var (
		r    Record
		errs []error
	)
	if raw, ok := m["id"]; ok && raw != nil {
		id, err := uuid.Parse(strings.TrimSpace(fmt.Sprint(raw)))
		if err != nil {
			errs = append(errs, fmt.Errorf("id %v: %w", raw, ErrInvalidID))
		}
		r.ID = id
	}
	r.CreatedAt = mapTime(m, "created_at")
	r.UpdatedAt = mapTime(m, "updated_at")

	f := func(name string) float64 {
		v, err := mapFloat(m, name)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}
	i := func(name string) int { return int(f(name)) }

	r.CurricularUnits1stSemGrade = f(FieldFirstSemGrade)
	r.CurricularUnits2ndSemGrade = f(FieldSecondSemGrade)
	r.CurricularUnits1stSemApproved = i(FieldFirstSemApproved)
	r.CurricularUnits2ndSemApproved = i(FieldSecondSemApproved)
	r.CurricularUnits1stSemEvaluations = i(FieldFirstSemEvaluations)
	r.CurricularUnits2ndSemEvaluations = i(FieldSecondSemEvaluations)
	r.UnemploymentRate = f(FieldUnemploymentRate)
	r.GDP = f(FieldGDP)
	r.AgeAtEnrollment = i(FieldAgeAtEnrollment)
	r.ScholarshipHolder = mapString(m, FieldScholarshipHolder)
	r.TuitionFeesUpToDate = mapString(m, FieldTuitionFeesUpToDate)
	r.MaritalStatus = mapString(m, FieldMaritalStatus)
	r.PreviousQualification = mapString(m, FieldPreviousQualification)
	r.MothersQualification = mapString(m, FieldMothersQualification, FormMothersQualification, LegacyMotherQualification)
	r.FathersQualification = mapString(m, FieldFathersQualification, FormFathersQualification, LegacyFatherQualification)

	r.Target = mapString(m, "target")
	r.PredictedOutcome = mapString(m, "predicted_outcome")
	for name, dst := range map[string]**float64{
		"probability_graduate": &r.ProbabilityGraduate,
		"probability_dropout":  &r.ProbabilityDropout,
		"probability_enrolled": &r.ProbabilityEnrolled,
		"confidence":           &r.Confidence,
	} {
		if m[name] == nil {
			continue
		}
		v, err := mapFloat(m, name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		*dst = &v
	}
	if s := mapString(m, "message"); s != "" {
		r.Message = &s
	}
	if b, ok := m["has_real_probabilities"].(bool); ok {
		r.HasRealProbabilities = b
	}
	if raw, ok := m["raw_result"]; ok && raw != nil {
		if b, err := json.Marshal(raw); err == nil {
			r.RawResult = datatypes.JSON(b)
		}
	}
	return r, errors.Join(errs...)
}

func mapString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			if s := strings.TrimSpace(fmt.Sprint(v)); s != "" {
				return s
			}
		}
	}
	return ""
}

func mapFloat(m map[string]any, key string) (float64, error) {
	switch v := m[key].(type) {
	case nil:
		return 0, nil
	case float64:
		return v, nil
	case json.Number:
		return v.Float64()
	case string:
		if strings.TrimSpace(v) == "" {
			return 0, nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", key, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%s: unexpected %T", key, v)
	}
}

func mapTime(m map[string]any, key string) time.Time {
	s, ok := m[key].(string)
	if !ok {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05.999999-07"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
