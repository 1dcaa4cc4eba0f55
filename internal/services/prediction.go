package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/studentrisk-backend/internal/clients/redis"
	"github.com/yungbote/studentrisk-backend/internal/config"
	"github.com/yungbote/studentrisk-backend/internal/domain/student"
	"github.com/yungbote/studentrisk-backend/internal/observability"
	"github.com/yungbote/studentrisk-backend/internal/persistence"
	"github.com/yungbote/studentrisk-backend/internal/platform/ctxutil"
	"github.com/yungbote/studentrisk-backend/internal/platform/logger"
	"github.com/yungbote/studentrisk-backend/internal/prediction"
	"github.com/yungbote/studentrisk-backend/internal/prediction/features"
	"github.com/yungbote/studentrisk-backend/internal/prediction/invoker"
	"github.com/yungbote/studentrisk-backend/internal/prediction/normalize"
	"github.com/yungbote/studentrisk-backend/internal/query"
)

const (
	MessagePredicted = "Prediction and record saved"
	MessageUpdated   = "Record updated"
)

type PredictionService interface {
	Predict(ctx context.Context, survey student.SurveyRecord) (*PredictionResult, error)
	Update(ctx context.Context, id uuid.UUID, survey student.SurveyRecord) (*PredictionResult, error)
	List(ctx context.Context, params query.Params) (query.Page[*student.Record], error)
	ListAll(ctx context.Context) ([]*student.Record, error)
	Get(ctx context.Context, id uuid.UUID) (*student.Record, error)
	GetForm(ctx context.Context, id uuid.UUID) (features.FormRecord, error)
	Ping(ctx context.Context) error
}

// PredictionResult is one settled pipeline run.
type PredictionResult struct {
	Record     *student.Record
	Prediction student.Prediction
	Message    string
}

type PredictionServiceDeps struct {
	Log        *logger.Logger
	Invoker    invoker.Invoker
	Normalizer *normalize.Normalizer
	Gateway    *persistence.Gateway
	Events     redis.EventBus
	Metrics    *observability.Metrics
	Query      config.QueryConfig
}

type predictionService struct {
	log     *logger.Logger
	inv     invoker.Invoker
	norm    *normalize.Normalizer
	gateway *persistence.Gateway
	events  redis.EventBus
	metrics *observability.Metrics
	query   config.QueryConfig
	tracer  trace.Tracer
}

func NewPredictionService(deps PredictionServiceDeps) (PredictionService, error) {
	if deps.Log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if deps.Invoker == nil {
		return nil, fmt.Errorf("invoker required")
	}
	if deps.Gateway == nil {
		return nil, fmt.Errorf("persistence gateway required")
	}
	serviceLog := deps.Log.With("service", "PredictionService")
	norm := deps.Normalizer
	if norm == nil {
		m := deps.Metrics
		norm = normalize.New(serviceLog).OnInconsistency(func(inc normalize.Inconsistency) {
			m.IncInconsistency(inc.Reason)
		})
	}
	events := deps.Events
	if events == nil {
		events = redis.Noop{}
	}
	q := deps.Query
	if q.DefaultLimit <= 0 {
		q.DefaultLimit = 100
	}
	if q.MaxLimit < q.DefaultLimit {
		q.MaxLimit = q.DefaultLimit
	}
	return &predictionService{
		log:     serviceLog,
		inv:     deps.Invoker,
		norm:    norm,
		gateway: deps.Gateway,
		events:  events,
		metrics: deps.Metrics,
		query:   q,
		tracer:  otel.Tracer(observability.TracerName),
	}, nil
}

func (s *predictionService) Predict(ctx context.Context, survey student.SurveyRecord) (*PredictionResult, error) {
	ctx, span := s.tracer.Start(ctx, "prediction.predict")
	defer span.End()

	v, p, raw, err := s.run(ctx, survey)
	if err != nil {
		return nil, spanError(span, err)
	}

	rec, err := s.persist(ctx, "write_new", p, func(ctx context.Context) (*student.Record, error) {
		return s.gateway.WriteNew(ctx, v, p, raw)
	})
	if err != nil {
		return nil, spanError(span, err)
	}
	span.SetAttributes(attribute.String("student.id", rec.ID.String()))

	s.settled(ctx, "predict", redis.EventPredictionCreated, rec, p)
	return &PredictionResult{Record: rec, Prediction: p, Message: p.MessageOr(MessagePredicted)}, nil
}

// Update re-runs inference on edited survey data and replaces the stored
// record. The id is checked first so a missing record never reaches the model.
func (s *predictionService) Update(ctx context.Context, id uuid.UUID, survey student.SurveyRecord) (*PredictionResult, error) {
	ctx, span := s.tracer.Start(ctx, "prediction.update", trace.WithAttributes(attribute.String("student.id", id.String())))
	defer span.End()

	if id == uuid.Nil {
		return nil, spanError(span, prediction.NewError(prediction.KindBadRequest, "prediction.update", "invalid student id", nil))
	}
	if _, err := s.gateway.ReadByID(ctx, id); err != nil {
		return nil, spanError(span, err)
	}

	v, p, raw, err := s.run(ctx, survey)
	if err != nil {
		return nil, spanError(span, err)
	}

	rec, err := s.persist(ctx, "write_update", p, func(ctx context.Context) (*student.Record, error) {
		return s.gateway.WriteUpdate(ctx, id, v, p, raw)
	})
	if err != nil {
		return nil, spanError(span, err)
	}

	s.settled(ctx, "update", redis.EventPredictionUpdated, rec, p)
	return &PredictionResult{Record: rec, Prediction: p, Message: MessageUpdated}, nil
}

// run takes a survey through mapping, inference and normalization.
func (s *predictionService) run(ctx context.Context, survey student.SurveyRecord) (features.FeatureVector, student.Prediction, string, error) {
	var (
		v      features.FeatureVector
		p      student.Prediction
		output string
	)

	err := s.stage(ctx, "mapping", func(ctx context.Context) error {
		if err := features.Validate(survey); err != nil {
			return err
		}
		var issues []string
		v, issues = features.Map(survey)
		if len(issues) > 0 {
			fields := append([]interface{}{"fields", issues}, ctxutil.LogFields(ctx)...)
			s.log.Warn("feature mapping defaulted fields", fields...)
		}
		return nil
	})
	if err != nil {
		return v, p, "", err
	}

	err = s.stage(ctx, "invoking", func(ctx context.Context) error {
		start := time.Now()
		out, err := s.inv.Invoke(ctx, v)
		status := "ok"
		if err != nil {
			status = "error"
		}
		s.metrics.ObserveInference(status, time.Since(start))
		if err != nil {
			return prediction.Wrap(prediction.KindInvocationFailure, "inference.invoke", err)
		}
		output = out
		return nil
	})
	if err != nil {
		return v, p, "", err
	}

	err = s.stage(ctx, "normalizing", func(ctx context.Context) error {
		var err error
		p, err = s.norm.NormalizeString(output, normalize.ModePredict)
		return err
	})
	if err != nil {
		fields := append([]interface{}{"error", err, "output", prediction.Clip(output)}, ctxutil.LogFields(ctx)...)
		s.log.Warn("inference output rejected", fields...)
		return v, p, "", err
	}
	return v, p, output, nil
}

// persist attaches the computed prediction to a storage failure so the caller
// can still show it.
func (s *predictionService) persist(ctx context.Context, op string, p student.Prediction, write func(ctx context.Context) (*student.Record, error)) (*student.Record, error) {
	var rec *student.Record
	err := s.stage(ctx, "persisting", func(ctx context.Context) error {
		var err error
		rec, err = write(ctx)
		return err
	})
	if err != nil {
		var pe *prediction.Error
		if errors.As(err, &pe) && pe.Kind == prediction.KindStorageFailure {
			s.metrics.IncStorageFailure(op, pe.Responded)
			attached := p
			pe.Prediction = &attached
		}
		return nil, err
	}
	return rec, nil
}

func (s *predictionService) stage(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, "prediction.stage."+name)
	defer span.End()
	if err := fn(ctx); err != nil {
		return spanError(span, err)
	}
	return nil
}

func (s *predictionService) settled(ctx context.Context, operation, eventType string, rec *student.Record, p student.Prediction) {
	s.metrics.IncPrediction(operation, string(p.Prediction), !p.HasRealProbabilities && p.Probabilities != nil)

	ev := redis.Event{
		Type:                 eventType,
		ID:                   rec.ID.String(),
		Outcome:              string(p.Prediction),
		HasRealProbabilities: p.HasRealProbabilities,
		At:                   time.Now().UTC(),
	}
	if td := ctxutil.GetTraceData(ctx); td != nil {
		ev.RequestID = td.RequestID
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.metrics.IncEvent(eventType, "error")
		s.log.Warn("publish prediction event failed", "type", eventType, "id", ev.ID, "error", err)
		return
	}
	s.metrics.IncEvent(eventType, "ok")
}

// List pages stored records. A missing or oversized limit is held to
// query.max_limit so one request never returns the whole table.
func (s *predictionService) List(ctx context.Context, params query.Params) (query.Page[*student.Record], error) {
	if params.Limit <= 0 || params.Limit > s.query.MaxLimit {
		params.Limit = s.query.MaxLimit
	}
	all, err := s.gateway.ReadAll(ctx)
	if err != nil {
		return query.Page[*student.Record]{}, err
	}
	return query.Paginate(all, params), nil
}

func (s *predictionService) ListAll(ctx context.Context) ([]*student.Record, error) {
	return s.gateway.ReadAll(ctx)
}

func (s *predictionService) Get(ctx context.Context, id uuid.UUID) (*student.Record, error) {
	return s.gateway.ReadByID(ctx, id)
}

func (s *predictionService) GetForm(ctx context.Context, id uuid.UUID) (features.FormRecord, error) {
	rec, err := s.gateway.ReadByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return persistence.ConvertToFormFormat(*rec), nil
}

func (s *predictionService) Ping(ctx context.Context) error {
	return s.gateway.Ping(ctx)
}

func spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if kind := prediction.KindOf(err); kind != "" {
		span.SetAttributes(attribute.String("error.kind", string(kind)))
	}
	return err
}
