package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// HTTPError is a non-2xx answer from the storage API. Its presence means the
// server responded.
type HTTPError struct {
	StatusCode int
	Message    string
	Details    string
	Hint       string
	Code       string
	Body       string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "http error"
	}
	msg := e.Detail()
	if strings.TrimSpace(e.Code) != "" {
		return fmt.Sprintf("http error: status=%d code=%s message=%s", e.StatusCode, strings.TrimSpace(e.Code), msg)
	}
	return fmt.Sprintf("http error: status=%d message=%s", e.StatusCode, msg)
}

// Detail is the most specific human-readable message available.
func (e *HTTPError) Detail() string {
	for _, s := range []string{e.Message, e.Details, e.Body, http.StatusText(e.StatusCode)} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return "http error"
}

func parseHTTPError(status int, raw []byte) error {
	body := strings.TrimSpace(string(raw))

	var env struct {
		Message string `json:"message"`
		Details string `json:"details"`
		Hint    string `json:"hint"`
		Code    string `json:"code"`
		// some gateways wrap errors as {"error": "...", "error_description": "..."}
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(raw, &env); err == nil {
		msg := strings.TrimSpace(env.Message)
		if msg == "" {
			msg = strings.TrimSpace(env.ErrorDescription)
		}
		if msg == "" {
			msg = strings.TrimSpace(env.Error)
		}
		return &HTTPError{
			StatusCode: status,
			Message:    msg,
			Details:    strings.TrimSpace(env.Details),
			Hint:       strings.TrimSpace(env.Hint),
			Code:       strings.TrimSpace(env.Code),
			Body:       body,
		}
	}
	return &HTTPError{StatusCode: status, Body: body}
}
