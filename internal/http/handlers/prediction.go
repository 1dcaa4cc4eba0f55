package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/studentrisk-backend/internal/domain/student"
	"github.com/yungbote/studentrisk-backend/internal/http/response"
	"github.com/yungbote/studentrisk-backend/internal/platform/logger"
	"github.com/yungbote/studentrisk-backend/internal/query"
	"github.com/yungbote/studentrisk-backend/internal/services"
)

type PredictionHandler struct {
	log          *logger.Logger
	predictions  services.PredictionService
	defaultLimit int
}

type PredictionHandlerDeps struct {
	Log          *logger.Logger
	Predictions  services.PredictionService
	DefaultLimit int
}

func NewPredictionHandler(deps PredictionHandlerDeps) *PredictionHandler {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	limit := deps.DefaultLimit
	if limit <= 0 {
		limit = 100
	}
	return &PredictionHandler{
		log:          log.With("handler", "PredictionHandler"),
		predictions:  deps.Predictions,
		defaultLimit: limit,
	}
}

type PredictResponse struct {
	ID                   string                 `json:"id"`
	Prediction           student.Outcome        `json:"prediction"`
	Message              string                 `json:"message"`
	Probabilities        *student.Probabilities `json:"probabilities,omitempty"`
	Confidence           *float64               `json:"confidence,omitempty"`
	HasRealProbabilities bool                   `json:"has_real_probabilities"`
}

type UpdateResponse struct {
	Updated *student.Record `json:"updated"`
	Message string          `json:"message"`
}

// POST /predict
func (h *PredictionHandler) Predict(c *gin.Context) {
	var survey student.SurveyRecord
	if err := c.ShouldBindJSON(&survey); err != nil {
		h.log.Debug("invalid predict body", "error", err)
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	res, err := h.predictions.Predict(c.Request.Context(), survey)
	if err != nil {
		response.RespondPipelineError(c, err)
		return
	}
	response.RespondOK(c, PredictResponse{
		ID:                   res.Record.ID.String(),
		Prediction:           res.Prediction.Prediction,
		Message:              res.Message,
		Probabilities:        res.Prediction.Probabilities,
		Confidence:           res.Prediction.Confidence,
		HasRealProbabilities: res.Prediction.HasRealProbabilities,
	})
}

// PUT /students/:id
func (h *PredictionHandler) UpdateStudent(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var survey student.SurveyRecord
	if err := c.ShouldBindJSON(&survey); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	res, err := h.predictions.Update(c.Request.Context(), id, survey)
	if err != nil {
		response.RespondPipelineError(c, err)
		return
	}
	response.RespondOK(c, UpdateResponse{Updated: res.Record, Message: res.Message})
}

// GET /students
func (h *PredictionHandler) ListStudents(c *gin.Context) {
	rows, err := h.predictions.ListAll(c.Request.Context())
	if err != nil {
		response.RespondPipelineError(c, err)
		return
	}
	response.RespondOK(c, rows)
}

// GET /students/:id
func (h *PredictionHandler) GetStudent(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	row, err := h.predictions.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondPipelineError(c, err)
		return
	}
	response.RespondOK(c, row)
}

// GET /students/:id/form
func (h *PredictionHandler) GetStudentForm(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	form, err := h.predictions.GetForm(c.Request.Context(), id)
	if err != nil {
		response.RespondPipelineError(c, err)
		return
	}
	response.RespondOK(c, form)
}

// GET /predictions?limit=&offset=&outcome_filter=
func (h *PredictionHandler) ListPredictions(c *gin.Context) {
	var params query.Params
	if err := c.ShouldBindQuery(&params); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_query", err)
		return
	}
	if strings.TrimSpace(c.Query("limit")) == "" {
		params.Limit = h.defaultLimit
	}
	page, err := h.predictions.List(c.Request.Context(), params)
	if err != nil {
		response.RespondPipelineError(c, err)
		return
	}
	response.RespondOK(c, page)
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_student_id", err)
		return uuid.Nil, false
	}
	return id, true
}
