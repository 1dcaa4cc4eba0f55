package student

// Canonical field names. These are also the names used on the inference wire
// and in storage.
const (
	FieldFirstSemGrade         = "curricular_units_1st_sem_grade"
	FieldSecondSemGrade        = "curricular_units_2nd_sem_grade"
	FieldFirstSemApproved      = "curricular_units_1st_sem_approved"
	FieldSecondSemApproved     = "curricular_units_2nd_sem_approved"
	FieldFirstSemEvaluations   = "curricular_units_1st_sem_evaluations"
	FieldSecondSemEvaluations  = "curricular_units_2nd_sem_evaluations"
	FieldUnemploymentRate      = "unemployment_rate"
	FieldGDP                   = "gdp"
	FieldAgeAtEnrollment       = "age_at_enrollment"
	FieldScholarshipHolder     = "scholarship_holder"
	FieldTuitionFeesUpToDate   = "tuition_fees_up_to_date"
	FieldMaritalStatus         = "marital_status"
	FieldPreviousQualification = "previous_qualification"
	FieldMothersQualification  = "mothers_qualification"
	FieldFathersQualification  = "fathers_qualification"
)

// Form-side spellings of the parent qualification keys.
const (
	FormMothersQualification  = "mother's_qualification"
	FormFathersQualification  = "father's_qualification"
	LegacyMotherQualification = "mother_qualification"
	LegacyFatherQualification = "father_qualification"
)

type Kind int

const (
	KindFloat Kind = iota
	KindInt
	KindCategory
)

type FieldSpec struct {
	Name       string
	Kind       Kind
	Min        float64
	Max        float64
	Vocabulary []string
}

func (f FieldSpec) Numeric() bool { return f.Kind != KindCategory }

// FormName is the key the survey form uses for this field.
func (f FieldSpec) FormName() string {
	switch f.Name {
	case FieldMothersQualification:
		return FormMothersQualification
	case FieldFathersQualification:
		return FormFathersQualification
	default:
		return f.Name
	}
}

// Aliases lists every accepted spelling for the field, canonical first.
func (f FieldSpec) Aliases() []string {
	switch f.Name {
	case FieldMothersQualification:
		return []string{FieldMothersQualification, FormMothersQualification, LegacyMotherQualification}
	case FieldFathersQualification:
		return []string{FieldFathersQualification, FormFathersQualification, LegacyFatherQualification}
	default:
		return []string{f.Name}
	}
}

// Fields is the pipeline order. The inference process depends on it.
var Fields = []FieldSpec{
	{Name: FieldFirstSemGrade, Kind: KindFloat, Min: 0, Max: 20},
	{Name: FieldSecondSemGrade, Kind: KindFloat, Min: 0, Max: 20},
	{Name: FieldFirstSemApproved, Kind: KindInt, Min: 0, Max: 10},
	{Name: FieldSecondSemApproved, Kind: KindInt, Min: 0, Max: 10},
	{Name: FieldFirstSemEvaluations, Kind: KindInt, Min: 0, Max: 15},
	{Name: FieldSecondSemEvaluations, Kind: KindInt, Min: 0, Max: 15},
	{Name: FieldUnemploymentRate, Kind: KindFloat, Min: 7, Max: 20},
	{Name: FieldGDP, Kind: KindFloat, Min: -5, Max: 5},
	{Name: FieldAgeAtEnrollment, Kind: KindInt, Min: 17, Max: 60},
	{Name: FieldScholarshipHolder, Kind: KindCategory, Vocabulary: YesNo},
	{Name: FieldTuitionFeesUpToDate, Kind: KindCategory, Vocabulary: YesNo},
	{Name: FieldMaritalStatus, Kind: KindCategory, Vocabulary: MaritalStatuses},
	{Name: FieldPreviousQualification, Kind: KindCategory, Vocabulary: PreviousQualifications},
	{Name: FieldMothersQualification, Kind: KindCategory, Vocabulary: ParentQualifications},
	{Name: FieldFathersQualification, Kind: KindCategory, Vocabulary: ParentQualifications},
}

func Spec(name string) (FieldSpec, bool) {
	for _, f := range Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

var YesNo = []string{"Yes", "No"}

var MaritalStatuses = []string{
	"Single",
	"Married",
	"Divorced",
	"Widower",
	"Legally separated",
}

var PreviousQualifications = []string{
	"Secondary education",
	"Higher education—bachelor's degree",
	"Higher education—degree",
	"Higher education—master's degree",
	"Higher education—doctorate",
	"Frequency of higher education",
	"Professional higher technical course",
	"Technological specialization course",
	"Basic education 3rd cycle (9th/10th/11th year) or equivalent",
	"Basic education 2nd cycle (6th/7th/8th year) or equivalent",
	"12th year of schooling—not completed",
	"11th year of schooling—not completed",
	"10th year of schooling—not completed",
	"Other—11th year of schooling",
}

var ParentQualifications = []string{
	"Secondary education—12th year of schooling or equivalent",
	"Higher education—bachelor's degree",
	"Higher education—degree",
	"Higher education—master's degree",
	"Higher education—doctorate",
	"Basic education 3rd cycle (9th/10th/11th year) or equivalent",
	"Basic education 2nd cycle (6th/7th/8th year) or equivalent",
	"Basic education 1st cycle (4th/5th year) or equivalent",
	"Can read without having a 4th year of schooling",
	"Cannot read or write",
	"Unknown",
	"7th year of schooling",
	"Other—11th year of schooling",
	"2nd cycle of the general high school course",
	"Technological specialization course",
}
