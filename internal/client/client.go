package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/studentrisk-backend/internal/domain/student"
	"github.com/yungbote/studentrisk-backend/internal/observability"
	"github.com/yungbote/studentrisk-backend/internal/platform/envutil"
	"github.com/yungbote/studentrisk-backend/internal/platform/logger"
	"github.com/yungbote/studentrisk-backend/internal/prediction"
	"github.com/yungbote/studentrisk-backend/internal/prediction/features"
	"github.com/yungbote/studentrisk-backend/internal/prediction/normalize"
	"github.com/yungbote/studentrisk-backend/internal/query"
)

const DefaultBaseURL = "http://localhost:8000"

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Log        *logger.Logger
}

// Client is the caller-side facade over the prediction HTTP API. Every
// method returns *prediction.Error on failure. There is no retry.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	log        *logger.Logger
	norm       *normalize.Normalizer
	tracer     trace.Tracer
}

func New(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("baseURL required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid baseURL: %w", err)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}
	log = log.With("client", "PredictionClient")
	return &Client{
		baseURL:    baseURL,
		timeout:    timeout,
		httpClient: hc,
		log:        log,
		norm:       normalize.New(log),
		tracer:     otel.Tracer(observability.TracerName),
	}, nil
}

// NewFromEnv reads SR_API_URL and SR_API_TIMEOUT.
func NewFromEnv(log *logger.Logger) (*Client, error) {
	return New(Options{
		BaseURL: envutil.String("SR_API_URL", DefaultBaseURL),
		Timeout: envutil.Duration("SR_API_TIMEOUT", 90*time.Second),
		Log:     log,
	})
}

func (c *Client) BaseURL() string { return c.baseURL }

type PredictOutcomeResult struct {
	ID         string
	Prediction student.Prediction
	Message    string
}

type UpdateResult struct {
	Record     student.Record
	Prediction student.Prediction
	Message    string
}

// ReorderForPipeline maps a survey into the inference contract. The second
// value lists fields that were missing or unparseable and defaulted.
func (c *Client) ReorderForPipeline(rec student.SurveyRecord) (features.FeatureVector, []string) {
	return features.Map(rec)
}

// ConvertToFormFormat renders a stored record for editing.
func (c *Client) ConvertToFormFormat(r student.Record) features.FormRecord {
	return features.ToForm(r)
}

// PredictOutcome runs mapping, the remote pipeline, then normalizes the answer.
func (c *Client) PredictOutcome(ctx context.Context, rec student.SurveyRecord) (*PredictOutcomeResult, error) {
	const op = "client.predict_outcome"
	ctx, span := c.tracer.Start(ctx, op)
	defer span.End()

	v, issues := c.stageMap(ctx, rec)
	if len(issues) > 0 {
		c.log.Warn("survey fields defaulted", "fields", issues)
	}

	var raw []byte
	err := c.stage(ctx, "invoking", func(ctx context.Context) error {
		var err error
		raw, err = c.doJSON(ctx, http.MethodPost, "/predict", v)
		return err
	})
	if err != nil {
		return nil, fail(span, op, err)
	}

	var p student.Prediction
	err = c.stage(ctx, "normalizing", func(context.Context) error {
		p, err = c.norm.NormalizeString(string(raw), normalize.ModePredict)
		return err
	})
	if err != nil {
		return nil, fail(span, op, err)
	}

	var meta struct {
		ID      string `json:"id"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(raw, &meta)
	return &PredictOutcomeResult{ID: meta.ID, Prediction: p, Message: p.MessageOr(meta.Message)}, nil
}

// UpdatePrediction re-submits an edited survey for an existing record.
func (c *Client) UpdatePrediction(ctx context.Context, id string, rec student.SurveyRecord) (*UpdateResult, error) {
	const op = "client.update_prediction"
	ctx, span := c.tracer.Start(ctx, op, trace.WithAttributes(attribute.String("student.id", id)))
	defer span.End()

	if _, err := uuid.Parse(id); err != nil {
		return nil, fail(span, op, prediction.NewError(prediction.KindBadRequest, op, "invalid student id", err))
	}

	v, issues := c.stageMap(ctx, rec)
	if len(issues) > 0 {
		c.log.Warn("survey fields defaulted", "fields", issues)
	}

	var raw []byte
	err := c.stage(ctx, "invoking", func(ctx context.Context) error {
		var err error
		raw, err = c.doJSON(ctx, http.MethodPut, "/students/"+url.PathEscape(id), v)
		return err
	})
	if err != nil {
		return nil, fail(span, op, err)
	}

	var p student.Prediction
	err = c.stage(ctx, "normalizing", func(context.Context) error {
		p, err = c.norm.NormalizeString(string(raw), normalize.ModeUpdate)
		return err
	})
	if err != nil {
		return nil, fail(span, op, err)
	}

	parsed := normalize.Parse(string(raw))
	out := &UpdateResult{Prediction: p}
	if parsed.Updated != nil {
		updated, err := student.RecordFromMap(parsed.Updated.Record)
		if err != nil {
			return nil, fail(span, op, prediction.Validation(op, "malformed updated record: "+err.Error()))
		}
		out.Record = updated
		if msg, ok := parsed.Updated.Message.(string); ok {
			out.Message = msg
		}
	}
	return out, nil
}

// Repredict runs the model again on a stored record's own inputs, for when
// the model changed but the survey did not.
func (c *Client) Repredict(ctx context.Context, id string) (*UpdateResult, error) {
	rec, err := c.GetPredictionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return c.UpdatePrediction(ctx, id, c.ConvertToFormFormat(*rec).Survey())
}

// GetAllPredictions lists every stored record and paginates locally.
func (c *Client) GetAllPredictions(ctx context.Context, params query.Params) (query.Page[*student.Record], error) {
	const op = "client.get_all_predictions"
	ctx, span := c.tracer.Start(ctx, op)
	defer span.End()

	rows, err := c.listStudents(ctx)
	if err != nil {
		return query.Page[*student.Record]{}, fail(span, op, err)
	}
	return query.Paginate(rows, params), nil
}

func (c *Client) GetPredictionByID(ctx context.Context, id string) (*student.Record, error) {
	const op = "client.get_prediction_by_id"
	ctx, span := c.tracer.Start(ctx, op, trace.WithAttributes(attribute.String("student.id", id)))
	defer span.End()

	if _, err := uuid.Parse(id); err != nil {
		return nil, fail(span, op, prediction.NotFound(op, ""))
	}
	raw, err := c.doJSON(ctx, http.MethodGet, "/students/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, fail(span, op, err)
	}
	var m map[string]any
	if err := decode(raw, &m); err != nil {
		return nil, fail(span, op, prediction.Validation(op, "malformed record: "+err.Error()))
	}
	rec, err := student.RecordFromMap(m)
	if err != nil {
		return nil, fail(span, op, prediction.Validation(op, "malformed record: "+err.Error()))
	}
	return &rec, nil
}

func (c *Client) listStudents(ctx context.Context) ([]*student.Record, error) {
	raw, err := c.doJSON(ctx, http.MethodGet, "/students", nil)
	if err != nil {
		return nil, err
	}
	var rows []map[string]any
	if err := decode(raw, &rows); err != nil {
		return nil, prediction.Validation("client.list_students", "malformed student list: "+err.Error())
	}
	out := make([]*student.Record, 0, len(rows))
	for _, m := range rows {
		rec, err := student.RecordFromMap(m)
		if err != nil {
			return nil, prediction.Validation("client.list_students", "malformed record: "+err.Error())
		}
		out = append(out, &rec)
	}
	return out, nil
}

func (c *Client) stageMap(ctx context.Context, rec student.SurveyRecord) (features.FeatureVector, []string) {
	_, span := c.tracer.Start(ctx, "client.stage.mapping")
	defer span.End()
	return features.Map(rec)
}

func (c *Client) stage(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, span := c.tracer.Start(ctx, "client.stage."+name)
	defer span.End()
	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// doJSON returns the raw 2xx body. Non-2xx answers come back as *HTTPError,
// transport failures as the underlying error.
func (c *Client) doJSON(ctx context.Context, method, path string, body any) ([]byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(buf.Bytes()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseHTTPError(resp.StatusCode, raw)
	}
	return raw, nil
}

func decode(raw []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(out)
}

func fail(span trace.Span, op string, err error) error {
	out := toPipelineError(op, err)
	span.RecordError(out)
	span.SetStatus(codes.Error, out.Error())
	return out
}
