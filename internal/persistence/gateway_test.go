package persistence

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/yungbote/studentrisk-backend/internal/data/repos/students"
	"github.com/yungbote/studentrisk-backend/internal/data/repos/testutil"
	"github.com/yungbote/studentrisk-backend/internal/data/rest"
	"github.com/yungbote/studentrisk-backend/internal/domain/student"
	"github.com/yungbote/studentrisk-backend/internal/prediction"
	"github.com/yungbote/studentrisk-backend/internal/prediction/features"
)

func survey() student.SurveyRecord {
	return student.SurveyRecord{
		"age_at_enrollment":                    "19",
		"curricular_units_1st_sem_grade":       "12.75",
		"curricular_units_2nd_sem_grade":       "0",
		"curricular_units_1st_sem_approved":    "4",
		"curricular_units_2nd_sem_approved":    "0",
		"curricular_units_1st_sem_evaluations": "10",
		"curricular_units_2nd_sem_evaluations": "2",
		"unemployment_rate":                    "7.6",
		"gdp":                                  "-3.12",
		"marital_status":                       "Married",
		"scholarship_holder":                   "Yes",
		"tuition_fees_up_to_date":              "No",
		"previous_qualification":               "Higher education—bachelor's degree",
		"mother's_qualification":               "Basic education 1st cycle (4th/5th year) or equivalent",
		"father's_qualification":               "Secondary education—12th year of schooling or equivalent",
	}
}

func newGateway(t *testing.T) *Gateway {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	return NewGateway(NewGormStore(db, students.NewRepo(db, log, "")), log)
}

func TestWriteNewThenConvertToFormFormatRoundTrips(t *testing.T) {
	ctx := context.Background()
	g := newGateway(t)

	v, issues := features.Map(survey())
	if len(issues) != 0 {
		t.Fatalf("issues: %v", issues)
	}
	p := student.Prediction{Prediction: student.Dropout, Probabilities: &student.Probabilities{Graduate: 0.1, Dropout: 0.8, Enrolled: 0.1}, HasRealProbabilities: true}

	stored, err := g.WriteNew(ctx, v, p, `{"prediction":"Dropout"}`)
	if err != nil {
		t.Fatalf("WriteNew: %v", err)
	}
	if stored.ID == uuid.Nil {
		t.Fatalf("no id assigned")
	}
	if stored.MothersQualification == "" {
		t.Fatalf("storage column not populated")
	}

	reread, err := g.ReadByID(ctx, stored.ID)
	if err != nil {
		t.Fatalf("ReadByID: %v", err)
	}
	form := ConvertToFormFormat(*reread)
	for k, want := range survey() {
		if got := form[k]; got != want {
			t.Fatalf("%s: got %q want %q", k, got, want)
		}
	}
	if string(reread.RawResult) != `{"prediction":"Dropout"}` {
		t.Fatalf("raw result: %s", reread.RawResult)
	}
}

func TestWriteUpdateReplacesPrediction(t *testing.T) {
	ctx := context.Background()
	g := newGateway(t)

	v, _ := features.Map(survey())
	stored, err := g.WriteNew(ctx, v, student.Prediction{Prediction: student.Dropout}, "Dropout")
	if err != nil {
		t.Fatalf("WriteNew: %v", err)
	}

	v.AgeAtEnrollment = 25
	updated, err := g.WriteUpdate(ctx, stored.ID, v, student.Prediction{Prediction: student.Graduate}, "Graduate")
	if err != nil {
		t.Fatalf("WriteUpdate: %v", err)
	}
	if updated.AgeAtEnrollment != 25 || updated.PredictedOutcome != "Graduate" || updated.Target != "Graduate" {
		t.Fatalf("update not applied: %+v", updated)
	}
	if !updated.CreatedAt.Equal(stored.CreatedAt) {
		t.Fatalf("created_at changed")
	}

	all, err := g.ReadAll(ctx)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("update must not insert: %d rows", len(all))
	}
}

func TestMissingIDsAreNotFound(t *testing.T) {
	ctx := context.Background()
	g := newGateway(t)

	if _, err := g.ReadByID(ctx, uuid.New()); !prediction.IsKind(err, prediction.KindNotFound) {
		t.Fatalf("ReadByID: want not_found, got %v", err)
	}
	v, _ := features.Map(survey())
	if _, err := g.WriteUpdate(ctx, uuid.New(), v, student.Prediction{Prediction: student.Graduate}, ""); !prediction.IsKind(err, prediction.KindNotFound) {
		t.Fatalf("WriteUpdate: want not_found, got %v", err)
	}
}

func TestReadAllEmptyIsNotNil(t *testing.T) {
	rows, err := newGateway(t).ReadAll(context.Background())
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if rows == nil || len(rows) != 0 {
		t.Fatalf("want empty slice, got %#v", rows)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		kind      prediction.Kind
		responded bool
		message   string
	}{
		{"rest detail", &rest.HTTPError{StatusCode: 409, Message: "duplicate key value"}, prediction.KindStorageFailure, true, "duplicate key value"},
		{"postgres detail", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23502", Message: "null value in column \"gdp\""}), prediction.KindStorageFailure, true, "null value in column \"gdp\""},
		{"dial", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, prediction.KindStorageFailure, false, prediction.NoResponseMessage},
		{"deadline", fmt.Errorf("list: %w", context.DeadlineExceeded), prediction.KindStorageFailure, false, prediction.NoResponseMessage},
		{"refused text", errors.New("Get \"http://x\": dial tcp 127.0.0.1:1: connect: connection refused"), prediction.KindStorageFailure, false, prediction.NoResponseMessage},
		{"not found", student.ErrRecordNotFound, prediction.KindNotFound, true, "Prediction not found"},
		{"other", errors.New("database is locked"), prediction.KindStorageFailure, true, "database is locked"},
	}
	for _, tc := range cases {
		err := Classify("op", tc.err)
		var pe *prediction.Error
		if !errors.As(err, &pe) {
			t.Fatalf("%s: want *prediction.Error, got %T", tc.name, err)
		}
		if pe.Kind != tc.kind || pe.Responded != tc.responded || pe.Message != tc.message {
			t.Fatalf("%s: got kind=%s responded=%v message=%q", tc.name, pe.Kind, pe.Responded, pe.Message)
		}
	}
}

type downStore struct{}

func (downStore) Insert(context.Context, *student.Record) (*student.Record, error) {
	return nil, &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
}
func (downStore) Update(context.Context, *student.Record) (*student.Record, error) {
	return nil, context.DeadlineExceeded
}
func (downStore) Get(context.Context, uuid.UUID) (*student.Record, error) {
	return nil, context.DeadlineExceeded
}
func (downStore) List(context.Context) ([]*student.Record, error) {
	return nil, context.DeadlineExceeded
}
func (downStore) Ping(context.Context) error { return context.DeadlineExceeded }

func TestUnreachableStoreIsNoResponse(t *testing.T) {
	g := NewGateway(downStore{}, testutil.Logger(t))
	v, _ := features.Map(survey())
	_, err := g.WriteNew(context.Background(), v, student.Prediction{Prediction: student.Graduate}, "Graduate")
	var pe *prediction.Error
	if !errors.As(err, &pe) || pe.Kind != prediction.KindStorageFailure || pe.Responded {
		t.Fatalf("want unreachable storage failure, got %v", err)
	}
	if pe.Message != prediction.NoResponseMessage {
		t.Fatalf("message: %q", pe.Message)
	}
}
