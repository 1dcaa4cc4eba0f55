package features

import (
	"github.com/yungbote/studentrisk-backend/internal/domain/student"
)

// FormRecord is what the survey form binds to: every value a string, parent
// qualifications under their apostrophe keys.
type FormRecord map[string]string

// ToForm converts a stored record back into form shape for editing.
func ToForm(r student.Record) FormRecord {
	v := FromRecord(r)
	out := make(FormRecord, len(student.Fields))
	for _, field := range student.Fields {
		out[field.FormName()] = v.stringValue(field.Name)
	}
	return out
}

// Survey turns a form record back into pipeline input.
func (f FormRecord) Survey() student.SurveyRecord {
	out := make(student.SurveyRecord, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

func (v FeatureVector) stringValue(name string) string {
	switch name {
	case student.FieldFirstSemGrade:
		return student.FormatNumber(v.CurricularUnits1stSemGrade)
	case student.FieldSecondSemGrade:
		return student.FormatNumber(v.CurricularUnits2ndSemGrade)
	case student.FieldFirstSemApproved:
		return student.FormatNumber(float64(v.CurricularUnits1stSemApproved))
	case student.FieldSecondSemApproved:
		return student.FormatNumber(float64(v.CurricularUnits2ndSemApproved))
	case student.FieldFirstSemEvaluations:
		return student.FormatNumber(float64(v.CurricularUnits1stSemEvaluations))
	case student.FieldSecondSemEvaluations:
		return student.FormatNumber(float64(v.CurricularUnits2ndSemEvaluations))
	case student.FieldUnemploymentRate:
		return student.FormatNumber(v.UnemploymentRate)
	case student.FieldGDP:
		return student.FormatNumber(v.GDP)
	case student.FieldAgeAtEnrollment:
		return student.FormatNumber(float64(v.AgeAtEnrollment))
	case student.FieldScholarshipHolder:
		return v.ScholarshipHolder
	case student.FieldTuitionFeesUpToDate:
		return v.TuitionFeesUpToDate
	case student.FieldMaritalStatus:
		return v.MaritalStatus
	case student.FieldPreviousQualification:
		return v.PreviousQualification
	case student.FieldMothersQualification:
		return v.MothersQualification
	case student.FieldFathersQualification:
		return v.FathersQualification
	default:
		return ""
	}
}
