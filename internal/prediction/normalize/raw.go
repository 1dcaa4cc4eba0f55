package normalize

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Shape discriminates the forms an inference or server response can take.
type Shape int

const (
	ShapeEmpty Shape = iota
	// ShapeLabel is a bare outcome label, optionally JSON-quoted.
	ShapeLabel
	// ShapeStructured is an object carrying a "prediction" key.
	ShapeStructured
	// ShapeUpdated is an object carrying an "updated" record.
	ShapeUpdated
)

func (s Shape) String() string {
	switch s {
	case ShapeEmpty:
		return "empty"
	case ShapeLabel:
		return "label"
	case ShapeStructured:
		return "structured"
	case ShapeUpdated:
		return "updated"
	default:
		return "unknown"
	}
}

// Raw is the parsed, not yet validated result.
type Raw struct {
	Shape Shape
	// Text is the trimmed original output.
	Text string

	Label      string
	Structured *Structured
	Updated    *Updated
}

type Structured struct {
	Prediction           any            `json:"prediction"`
	Probabilities        map[string]any `json:"probabilities"`
	Confidence           any            `json:"confidence"`
	Message              any            `json:"message"`
	HasRealProbabilities *bool          `json:"has_real_probabilities"`
}

type Updated struct {
	Record  map[string]any `json:"updated"`
	Message any            `json:"message"`
}

// Parse classifies raw output. It never fails: anything that is not a
// recognized JSON shape is treated as a bare label.
func Parse(out string) Raw {
	text := strings.TrimSpace(out)
	if text == "" {
		return Raw{Shape: ShapeEmpty}
	}
	b := []byte(text)

	if b[0] == '{' {
		var keys map[string]json.RawMessage
		if err := json.Unmarshal(b, &keys); err == nil {
			if _, ok := keys["prediction"]; ok {
				var s Structured
				if err := decode(b, &s); err == nil {
					return Raw{Shape: ShapeStructured, Text: text, Structured: &s}
				}
			}
			if _, ok := keys["updated"]; ok {
				var u Updated
				if err := decode(b, &u); err == nil {
					return Raw{Shape: ShapeUpdated, Text: text, Updated: &u}
				}
			}
		}
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err == nil {
			return Raw{Shape: ShapeLabel, Text: text, Label: strings.TrimSpace(s)}
		}
	}
	return Raw{Shape: ShapeLabel, Text: text, Label: text}
}

func decode(b []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	return dec.Decode(out)
}
