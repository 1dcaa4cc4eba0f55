package student

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// SurveyRecord is the form-shaped input. Values are kept as the strings the
// form produced; JSON numbers and booleans are accepted and stringified.
type SurveyRecord map[string]string

func (r *SurveyRecord) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make(SurveyRecord, len(raw))
	for k, v := range raw {
		s, err := scalarString(v)
		if err != nil {
			return fmt.Errorf("field %q: %w", k, err)
		}
		out[k] = s
	}
	*r = out
	return nil
}

func scalarString(v json.RawMessage) (string, error) {
	v = bytes.TrimSpace(v)
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return "", nil
	}
	switch v[0] {
	case '"':
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return "", err
		}
		return s, nil
	case '{', '[':
		return "", fmt.Errorf("expected scalar value")
	default:
		// numbers and booleans keep their literal text
		return string(v), nil
	}
}

// Lookup reads a field by canonical name, accepting every known spelling.
// The canonical spelling wins when several are present.
func (r SurveyRecord) Lookup(name string) (string, bool) {
	aliases := []string{name}
	if spec, ok := Spec(name); ok {
		aliases = spec.Aliases()
	}
	for _, key := range aliases {
		if v, ok := r[key]; ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

// Canonical returns a copy keyed by canonical field names only.
func (r SurveyRecord) Canonical() SurveyRecord {
	out := make(SurveyRecord, len(Fields))
	for _, f := range Fields {
		if v, ok := r.Lookup(f.Name); ok {
			out[f.Name] = v
		}
	}
	return out
}

// FormatNumber renders a numeric field value the way the form expects it
// back: shortest representation, no trailing zeros.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
