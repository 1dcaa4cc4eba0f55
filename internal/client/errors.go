package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/yungbote/studentrisk-backend/internal/domain/student"
	"github.com/yungbote/studentrisk-backend/internal/prediction"
)

// HTTPError is a non-2xx answer from the prediction server.
type HTTPError struct {
	StatusCode int
	Message    string
	Kind       string
	Fields     []string
	Prediction *student.Prediction
	Body       string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "http error"
	}
	return fmt.Sprintf("http error: status=%d message=%s", e.StatusCode, e.Message)
}

// parseHTTPError resolves the display message: error.message, then detail,
// then message, then "Error <status>".
func parseHTTPError(status int, raw []byte) *HTTPError {
	herr := &HTTPError{StatusCode: status, Body: strings.TrimSpace(string(raw))}

	var env struct {
		Error json.RawMessage `json:"error"`
		// FastAPI-style bodies.
		Detail     any                 `json:"detail"`
		Message    string              `json:"message"`
		Prediction *student.Prediction `json:"prediction"`
	}
	if err := json.Unmarshal(raw, &env); err == nil {
		herr.Prediction = env.Prediction
		var apiErr struct {
			Message string   `json:"message"`
			Kind    string   `json:"kind"`
			Fields  []string `json:"fields"`
		}
		if len(env.Error) > 0 && json.Unmarshal(env.Error, &apiErr) == nil {
			herr.Message = strings.TrimSpace(apiErr.Message)
			herr.Kind = strings.TrimSpace(apiErr.Kind)
			herr.Fields = apiErr.Fields
		} else if len(env.Error) > 0 {
			var s string
			if json.Unmarshal(env.Error, &s) == nil {
				herr.Message = strings.TrimSpace(s)
			}
		}
		if herr.Message == "" {
			herr.Message = detailString(env.Detail)
		}
		if herr.Message == "" {
			herr.Message = strings.TrimSpace(env.Message)
		}
	}
	if herr.Message == "" {
		herr.Message = fmt.Sprintf("Error %d", status)
	}
	return herr
}

func detailString(v any) string {
	switch d := v.(type) {
	case string:
		return strings.TrimSpace(d)
	case nil:
		return ""
	default:
		b, err := json.Marshal(d)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// toPipelineError converts anything the transport or server produced into
// the single error type callers see.
func toPipelineError(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *prediction.Error
	if errors.As(err, &pe) {
		return err
	}
	var herr *HTTPError
	if errors.As(err, &herr) {
		out := prediction.NewError(kindFor(herr), op, herr.Message, err)
		out.Status = herr.StatusCode
		out.Fields = herr.Fields
		out.Prediction = herr.Prediction
		if herr.StatusCode == http.StatusServiceUnavailable && out.Kind == prediction.KindStorageFailure {
			out.Responded = false
		}
		if out.Kind == prediction.KindNotFound {
			out.Message = "Prediction not found"
		}
		return out
	}
	// Nothing answered.
	return prediction.StorageUnreachable(op, err)
}

func kindFor(herr *HTTPError) prediction.Kind {
	switch k := prediction.Kind(herr.Kind); k {
	case prediction.KindInvocationFailure, prediction.KindEmptyResult, prediction.KindValidation,
		prediction.KindStorageFailure, prediction.KindNotFound, prediction.KindBadRequest:
		return k
	}
	switch {
	case herr.StatusCode == http.StatusNotFound:
		return prediction.KindNotFound
	case herr.StatusCode == http.StatusUnprocessableEntity:
		return prediction.KindValidation
	case herr.StatusCode >= 400 && herr.StatusCode < 500:
		return prediction.KindBadRequest
	default:
		return prediction.KindStorageFailure
	}
}
