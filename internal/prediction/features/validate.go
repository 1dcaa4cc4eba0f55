package features

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/yungbote/studentrisk-backend/internal/domain/student"
	"github.com/yungbote/studentrisk-backend/internal/prediction"
)

// Validate checks presence, numeric ranges and vocabularies for every field
// and reports all offending fields at once.
func Validate(rec student.SurveyRecord) error {
	var (
		fields  []string
		reasons []string
	)
	for _, field := range student.Fields {
		raw, ok := rec.Lookup(field.Name)
		if !ok {
			fields = append(fields, field.Name)
			reasons = append(reasons, field.Name+" is required")
			continue
		}
		if reason := checkField(field, raw); reason != "" {
			fields = append(fields, field.Name)
			reasons = append(reasons, reason)
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return prediction.Validation("features.validate", strings.Join(reasons, "; "), fields...)
}

func checkField(field student.FieldSpec, raw string) string {
	switch field.Kind {
	case student.KindFloat, student.KindInt:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Sprintf("%s must be a number, got %q", field.Name, raw)
		}
		if field.Kind == student.KindInt && f != math.Trunc(f) {
			return fmt.Sprintf("%s must be a whole number, got %q", field.Name, raw)
		}
		if f < field.Min || f > field.Max {
			return fmt.Sprintf("%s must be between %s and %s, got %s",
				field.Name, student.FormatNumber(field.Min), student.FormatNumber(field.Max), raw)
		}
	case student.KindCategory:
		if len(field.Vocabulary) > 0 && !slices.Contains(field.Vocabulary, raw) {
			return fmt.Sprintf("%s has unknown value %q", field.Name, raw)
		}
	}
	return ""
}
