package features

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/yungbote/studentrisk-backend/internal/domain/student"
)

// FeatureVector is the exact contract the inference process reads. Field
// order here is the serialized key order.
type FeatureVector struct {
	CurricularUnits1stSemGrade       float64 `json:"curricular_units_1st_sem_grade"`
	CurricularUnits2ndSemGrade       float64 `json:"curricular_units_2nd_sem_grade"`
	CurricularUnits1stSemApproved    int     `json:"curricular_units_1st_sem_approved"`
	CurricularUnits2ndSemApproved    int     `json:"curricular_units_2nd_sem_approved"`
	CurricularUnits1stSemEvaluations int     `json:"curricular_units_1st_sem_evaluations"`
	CurricularUnits2ndSemEvaluations int     `json:"curricular_units_2nd_sem_evaluations"`
	UnemploymentRate                 float64 `json:"unemployment_rate"`
	GDP                              float64 `json:"gdp"`
	AgeAtEnrollment                  int     `json:"age_at_enrollment"`
	ScholarshipHolder                string  `json:"scholarship_holder"`
	TuitionFeesUpToDate              string  `json:"tuition_fees_up_to_date"`
	MaritalStatus                    string  `json:"marital_status"`
	PreviousQualification            string  `json:"previous_qualification"`
	MothersQualification             string  `json:"mothers_qualification"`
	FathersQualification             string  `json:"fathers_qualification"`
}

// JSON is the single-argument payload handed to the inference process.
func (v FeatureVector) JSON() (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Map reorders and coerces a survey record into a FeatureVector. It never
// fails: fields that are missing, empty or unparseable take their zero value
// and are reported in the returned slice, in pipeline order.
func Map(rec student.SurveyRecord) (FeatureVector, []string) {
	var (
		v      FeatureVector
		issues []string
	)
	num := func(name string) float64 {
		raw, ok := rec.Lookup(name)
		if !ok {
			issues = append(issues, name)
			return 0
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			issues = append(issues, name)
			return 0
		}
		return f
	}
	integer := func(name string) int {
		f := num(name)
		if f != math.Trunc(f) {
			issues = append(issues, name)
		}
		return int(math.Trunc(f))
	}
	str := func(name string) string {
		raw, ok := rec.Lookup(name)
		if !ok {
			issues = append(issues, name)
		}
		return raw
	}

	v.CurricularUnits1stSemGrade = num(student.FieldFirstSemGrade)
	v.CurricularUnits2ndSemGrade = num(student.FieldSecondSemGrade)
	v.CurricularUnits1stSemApproved = integer(student.FieldFirstSemApproved)
	v.CurricularUnits2ndSemApproved = integer(student.FieldSecondSemApproved)
	v.CurricularUnits1stSemEvaluations = integer(student.FieldFirstSemEvaluations)
	v.CurricularUnits2ndSemEvaluations = integer(student.FieldSecondSemEvaluations)
	v.UnemploymentRate = num(student.FieldUnemploymentRate)
	v.GDP = num(student.FieldGDP)
	v.AgeAtEnrollment = integer(student.FieldAgeAtEnrollment)
	v.ScholarshipHolder = str(student.FieldScholarshipHolder)
	v.TuitionFeesUpToDate = str(student.FieldTuitionFeesUpToDate)
	v.MaritalStatus = str(student.FieldMaritalStatus)
	v.PreviousQualification = str(student.FieldPreviousQualification)
	v.MothersQualification = str(student.FieldMothersQualification)
	v.FathersQualification = str(student.FieldFathersQualification)

	return v, issues
}

// FromRecord rebuilds the vector a stored record was predicted from.
func FromRecord(r student.Record) FeatureVector {
	return FeatureVector{
		CurricularUnits1stSemGrade:       r.CurricularUnits1stSemGrade,
		CurricularUnits2ndSemGrade:       r.CurricularUnits2ndSemGrade,
		CurricularUnits1stSemApproved:    r.CurricularUnits1stSemApproved,
		CurricularUnits2ndSemApproved:    r.CurricularUnits2ndSemApproved,
		CurricularUnits1stSemEvaluations: r.CurricularUnits1stSemEvaluations,
		CurricularUnits2ndSemEvaluations: r.CurricularUnits2ndSemEvaluations,
		UnemploymentRate:                 r.UnemploymentRate,
		GDP:                              r.GDP,
		AgeAtEnrollment:                  r.AgeAtEnrollment,
		ScholarshipHolder:                r.ScholarshipHolder,
		TuitionFeesUpToDate:              r.TuitionFeesUpToDate,
		MaritalStatus:                    r.MaritalStatus,
		PreviousQualification:            r.PreviousQualification,
		MothersQualification:             r.MothersQualification,
		FathersQualification:             r.FathersQualification,
	}
}

// Apply copies the vector into the survey columns of a record.
func (v FeatureVector) Apply(r *student.Record) {
	r.CurricularUnits1stSemGrade = v.CurricularUnits1stSemGrade
	r.CurricularUnits2ndSemGrade = v.CurricularUnits2ndSemGrade
	r.CurricularUnits1stSemApproved = v.CurricularUnits1stSemApproved
	r.CurricularUnits2ndSemApproved = v.CurricularUnits2ndSemApproved
	r.CurricularUnits1stSemEvaluations = v.CurricularUnits1stSemEvaluations
	r.CurricularUnits2ndSemEvaluations = v.CurricularUnits2ndSemEvaluations
	r.UnemploymentRate = v.UnemploymentRate
	r.GDP = v.GDP
	r.AgeAtEnrollment = v.AgeAtEnrollment
	r.ScholarshipHolder = v.ScholarshipHolder
	r.TuitionFeesUpToDate = v.TuitionFeesUpToDate
	r.MaritalStatus = v.MaritalStatus
	r.PreviousQualification = v.PreviousQualification
	r.MothersQualification = v.MothersQualification
	r.FathersQualification = v.FathersQualification
}
