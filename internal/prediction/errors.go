package prediction

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/yungbote/studentrisk-backend/internal/domain/student"
)

// Kind classifies every failure a prediction operation can surface.
type Kind string

const (
	KindInvocationFailure Kind = "invocation_failure"
	KindEmptyResult       Kind = "empty_result"
	KindValidation        Kind = "validation_error"
	KindStorageFailure    Kind = "storage_failure"
	KindNotFound          Kind = "not_found"
	KindBadRequest        Kind = "bad_request"
)

// KindProbabilityInconsistency is never returned as an error; it tags warnings.
const KindProbabilityInconsistency Kind = "probability_inconsistency"

const NoResponseMessage = "no response from server"

// Error is the single error type callers of the pipeline see.
type Error struct {
	Kind    Kind
	Op      string
	Message string

	// Status is the upstream HTTP status when one was received.
	Status int
	// Responded is false when storage or the server could not be reached.
	Responded bool
	// Fields lists offending input fields for validation errors.
	Fields []string
	// Prediction is set when inference succeeded but a later stage failed.
	Prediction *student.Prediction

	Cause error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	op := strings.TrimSpace(e.Op)
	msg := strings.TrimSpace(e.Message)
	switch {
	case op != "" && msg != "":
		return fmt.Sprintf("%s: %s (%s)", op, msg, e.Kind)
	case op != "":
		return fmt.Sprintf("%s (%s)", op, e.Kind)
	case msg != "":
		return fmt.Sprintf("%s (%s)", msg, e.Kind)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

func NewError(kind Kind, op, message string, cause error) *Error {
	return &Error{
		Kind:      kind,
		Op:        strings.TrimSpace(op),
		Message:   strings.TrimSpace(message),
		Responded: true,
		Cause:     cause,
	}
}

// Wrap keeps an existing *Error untouched and tags anything else with kind.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) {
		return err
	}
	return NewError(kind, op, err.Error(), err)
}

func Invocation(op string, err error) *Error {
	msg := "inference process failed"
	if err != nil {
		msg = err.Error()
	}
	return NewError(KindInvocationFailure, op, msg, err)
}

func Empty(op string) *Error {
	return NewError(KindEmptyResult, op, "inference produced no output", nil)
}

func Validation(op, message string, fields ...string) *Error {
	e := NewError(KindValidation, op, message, nil)
	e.Fields = fields
	return e
}

func NotFound(op, message string) *Error {
	if strings.TrimSpace(message) == "" {
		message = "Prediction not found"
	}
	return NewError(KindNotFound, op, message, nil)
}

// StorageResponded is a storage failure where the server answered with detail.
func StorageResponded(op, detail string, cause error) *Error {
	if strings.TrimSpace(detail) == "" && cause != nil {
		detail = cause.Error()
	}
	return NewError(KindStorageFailure, op, detail, cause)
}

// StorageUnreachable is a storage failure where nothing answered.
func StorageUnreachable(op string, cause error) *Error {
	e := NewError(KindStorageFailure, op, NoResponseMessage, cause)
	e.Responded = false
	return e
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

func KindOf(err error) Kind {
	var pe *Error
	if !errors.As(err, &pe) {
		return ""
	}
	return pe.Kind
}

// HTTPStatus maps a failure to the status the API answers with.
func HTTPStatus(err error) int {
	var pe *Error
	if !errors.As(err, &pe) {
		return http.StatusInternalServerError
	}
	switch pe.Kind {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindValidation:
		if pe.Op != "" && strings.HasPrefix(pe.Op, "normalize") {
			return http.StatusUnprocessableEntity
		}
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindInvocationFailure, KindEmptyResult:
		return http.StatusBadGateway
	case KindStorageFailure:
		if !pe.Responded {
			return http.StatusServiceUnavailable
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
