package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/studentrisk-backend/internal/data/rest"
	"github.com/yungbote/studentrisk-backend/internal/domain/student"
	"github.com/yungbote/studentrisk-backend/internal/platform/ctxutil"
	"github.com/yungbote/studentrisk-backend/internal/platform/logger"
	"github.com/yungbote/studentrisk-backend/internal/prediction"
	"github.com/yungbote/studentrisk-backend/internal/prediction/features"
)

// Gateway turns pipeline values into storage records and storage failures
// into prediction errors.
type Gateway struct {
	store Store
	log   *logger.Logger
}

func NewGateway(store Store, log *logger.Logger) *Gateway {
	return &Gateway{store: store, log: log.With("service", "PersistenceGateway")}
}

// WriteNew persists a new record. raw is the unprocessed inference output and
// is kept for diagnostics.
func (g *Gateway) WriteNew(ctx context.Context, v features.FeatureVector, p student.Prediction, raw string) (*student.Record, error) {
	const op = "persistence.write_new"
	row := &student.Record{}
	v.Apply(row)
	row.ApplyPrediction(p)
	row.RawResult = rawJSON(raw)

	out, err := g.store.Insert(ctx, row)
	if err != nil {
		return nil, g.classify(ctx, op, err)
	}
	return out, nil
}

// WriteUpdate replaces the survey and prediction columns of an existing record.
func (g *Gateway) WriteUpdate(ctx context.Context, id uuid.UUID, v features.FeatureVector, p student.Prediction, raw string) (*student.Record, error) {
	const op = "persistence.write_update"
	row := &student.Record{ID: id}
	v.Apply(row)
	row.ApplyPrediction(p)
	row.RawResult = rawJSON(raw)

	out, err := g.store.Update(ctx, row)
	if err != nil {
		return nil, g.classify(ctx, op, err)
	}
	return out, nil
}

func (g *Gateway) ReadAll(ctx context.Context) ([]*student.Record, error) {
	rows, err := g.store.List(ctx)
	if err != nil {
		return nil, g.classify(ctx, "persistence.read_all", err)
	}
	if rows == nil {
		rows = []*student.Record{}
	}
	return rows, nil
}

func (g *Gateway) ReadByID(ctx context.Context, id uuid.UUID) (*student.Record, error) {
	row, err := g.store.Get(ctx, id)
	if err != nil {
		return nil, g.classify(ctx, "persistence.read_by_id", err)
	}
	return row, nil
}

func (g *Gateway) Ping(ctx context.Context) error {
	if err := g.store.Ping(ctx); err != nil {
		return g.classify(ctx, "persistence.ping", err)
	}
	return nil
}

// ConvertToFormFormat renders a stored record the way the survey form binds
// it: string values, apostrophe keys for parent qualifications.
func ConvertToFormFormat(r student.Record) features.FormRecord {
	return features.ToForm(r)
}

func (g *Gateway) classify(ctx context.Context, op string, err error) error {
	out := Classify(op, err)
	var pe *prediction.Error
	if errors.As(out, &pe) && pe.Kind == prediction.KindStorageFailure {
		fields := append([]interface{}{"op", op, "responded", pe.Responded, "error", err}, ctxutil.LogFields(ctx)...)
		g.log.Error("storage failure", fields...)
	}
	return out
}

// Classify maps a storage error onto the prediction error taxonomy,
// separating "the server answered" from "nothing answered".
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *prediction.Error
	if errors.As(err, &pe) {
		return err
	}
	if errors.Is(err, student.ErrRecordNotFound) || errors.Is(err, gorm.ErrRecordNotFound) {
		return prediction.NotFound(op, "Prediction not found")
	}

	var herr *rest.HTTPError
	if errors.As(err, &herr) {
		e := prediction.StorageResponded(op, herr.Detail(), err)
		e.Status = herr.StatusCode
		return e
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		detail := strings.TrimSpace(pgErr.Message)
		if d := strings.TrimSpace(pgErr.Detail); d != "" {
			detail += ": " + d
		}
		return prediction.StorageResponded(op, detail, err)
	}
	if unreachable(err) {
		return prediction.StorageUnreachable(op, err)
	}
	return prediction.StorageResponded(op, err.Error(), err)
}

func unreachable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	if pgconn.Timeout(err) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, needle := range []string{"connection refused", "no such host", "i/o timeout", "connection reset", "broken pipe", "dial tcp", "server closed"} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}

func rawJSON(raw string) datatypes.JSON {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if json.Valid([]byte(raw)) {
		return datatypes.JSON(raw)
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}
