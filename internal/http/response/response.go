package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/studentrisk-backend/internal/domain/student"
	"github.com/yungbote/studentrisk-backend/internal/prediction"
)

type APIError struct {
	Message string   `json:"message"`
	Code    string   `json:"code,omitempty"`
	Kind    string   `json:"kind,omitempty"`
	Fields  []string `json:"fields,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
	// Prediction is present when inference succeeded but persisting it failed.
	Prediction *student.Prediction `json:"prediction,omitempty"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondPipelineError renders a pipeline failure with the status its kind
// maps to. The message is the display message, not the wrapped chain.
func RespondPipelineError(c *gin.Context, err error) {
	var pe *prediction.Error
	if !errors.As(err, &pe) {
		RespondError(c, http.StatusInternalServerError, "internal_error", err)
		return
	}
	c.JSON(prediction.HTTPStatus(err), ErrorEnvelope{
		Error: APIError{
			Message: pe.Message,
			Code:    pe.Op,
			Kind:    string(pe.Kind),
			Fields:  pe.Fields,
		},
		Prediction: pe.Prediction,
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
