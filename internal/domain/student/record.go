package student

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Record is a persisted prediction together with the survey it was made from.
// Column and JSON names are the storage-native ones.
type Record struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`

	CurricularUnits1stSemGrade       float64 `gorm:"column:curricular_units_1st_sem_grade;not null" json:"curricular_units_1st_sem_grade"`
	CurricularUnits2ndSemGrade       float64 `gorm:"column:curricular_units_2nd_sem_grade;not null" json:"curricular_units_2nd_sem_grade"`
	CurricularUnits1stSemApproved    int     `gorm:"column:curricular_units_1st_sem_approved;not null" json:"curricular_units_1st_sem_approved"`
	CurricularUnits2ndSemApproved    int     `gorm:"column:curricular_units_2nd_sem_approved;not null" json:"curricular_units_2nd_sem_approved"`
	CurricularUnits1stSemEvaluations int     `gorm:"column:curricular_units_1st_sem_evaluations;not null" json:"curricular_units_1st_sem_evaluations"`
	CurricularUnits2ndSemEvaluations int     `gorm:"column:curricular_units_2nd_sem_evaluations;not null" json:"curricular_units_2nd_sem_evaluations"`
	UnemploymentRate                 float64 `gorm:"column:unemployment_rate;not null" json:"unemployment_rate"`
	GDP                              float64 `gorm:"column:gdp;not null" json:"gdp"`
	AgeAtEnrollment                  int     `gorm:"column:age_at_enrollment;not null" json:"age_at_enrollment"`
	ScholarshipHolder                string  `gorm:"column:scholarship_holder" json:"scholarship_holder"`
	TuitionFeesUpToDate              string  `gorm:"column:tuition_fees_up_to_date" json:"tuition_fees_up_to_date"`
	MaritalStatus                    string  `gorm:"column:marital_status" json:"marital_status"`
	PreviousQualification            string  `gorm:"column:previous_qualification" json:"previous_qualification"`
	MothersQualification             string  `gorm:"column:mothers_qualification" json:"mothers_qualification"`
	FathersQualification             string  `gorm:"column:fathers_qualification" json:"fathers_qualification"`

	// Target mirrors PredictedOutcome for older readers.
	Target               string         `gorm:"column:target;index" json:"target"`
	PredictedOutcome     string         `gorm:"column:predicted_outcome;index" json:"predicted_outcome"`
	ProbabilityGraduate  *float64       `gorm:"column:probability_graduate" json:"probability_graduate"`
	ProbabilityDropout   *float64       `gorm:"column:probability_dropout" json:"probability_dropout"`
	ProbabilityEnrolled  *float64       `gorm:"column:probability_enrolled" json:"probability_enrolled"`
	Confidence           *float64       `gorm:"column:confidence" json:"confidence"`
	Message              *string        `gorm:"column:message" json:"message"`
	HasRealProbabilities bool           `gorm:"column:has_real_probabilities;not null;default:false" json:"has_real_probabilities"`
	RawResult            datatypes.JSON `gorm:"column:raw_result" json:"raw_result,omitempty"`
}

func (Record) TableName() string { return "students" }

// Outcome resolves the stored label: predicted_outcome, then target, then
// the argmax of whatever probabilities were stored.
func (r Record) Outcome() (Outcome, bool) {
	if o, ok := ParseOutcome(r.PredictedOutcome); ok {
		return o, true
	}
	if o, ok := ParseOutcome(r.Target); ok {
		return o, true
	}
	if p := r.Probabilities(); p != nil {
		return p.Argmax(), true
	}
	return "", false
}

// Probabilities returns nil unless at least one class probability is stored.
func (r Record) Probabilities() *Probabilities {
	if r.ProbabilityGraduate == nil && r.ProbabilityDropout == nil && r.ProbabilityEnrolled == nil {
		return nil
	}
	p := &Probabilities{}
	if r.ProbabilityGraduate != nil {
		p.Graduate = *r.ProbabilityGraduate
	}
	if r.ProbabilityDropout != nil {
		p.Dropout = *r.ProbabilityDropout
	}
	if r.ProbabilityEnrolled != nil {
		p.Enrolled = *r.ProbabilityEnrolled
	}
	return p
}

// Prediction rebuilds the canonical prediction from the stored columns.
func (r Record) Prediction() Prediction {
	o, _ := r.Outcome()
	return Prediction{
		Prediction:           o,
		Probabilities:        r.Probabilities(),
		Confidence:           r.Confidence,
		Message:              r.Message,
		HasRealProbabilities: r.HasRealProbabilities,
	}
}

// ApplyPrediction writes the prediction columns, leaving survey columns alone.
func (r *Record) ApplyPrediction(p Prediction) {
	r.PredictedOutcome = string(p.Prediction)
	r.Target = string(p.Prediction)
	r.ProbabilityGraduate, r.ProbabilityDropout, r.ProbabilityEnrolled = nil, nil, nil
	if p.Probabilities != nil {
		g, d, e := p.Probabilities.Graduate, p.Probabilities.Dropout, p.Probabilities.Enrolled
		r.ProbabilityGraduate, r.ProbabilityDropout, r.ProbabilityEnrolled = &g, &d, &e
	}
	r.Confidence = p.Confidence
	r.Message = p.Message
	r.HasRealProbabilities = p.HasRealProbabilities
}
