package observability

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/studentrisk-backend/internal/platform/envutil"
)

type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge
	apiReqTotal *Counter
	apiReqError *Counter

	inferenceRuns    *CounterVec
	inferenceLatency *HistogramVec
	predictions      *CounterVec
	synthesized      *Counter
	inconsistencies  *CounterVec
	storageFailures  *CounterVec
	eventsPublished  *CounterVec
}

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

// Init returns nil when METRICS_ENABLED is off. Every method is nil-safe.
func Init() *Metrics {
	if !Enabled() {
		return nil
	}
	return New()
}

func New() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("sr_api_requests_total", "HTTP requests by method, route and status.", []string{"method", "route", "status"}),
		apiLatency:  NewHistogramVec("sr_api_request_duration_seconds", "HTTP request latency.", []string{"method", "route", "status"}, nil),
		apiInflight: NewGauge("sr_api_inflight_requests", "HTTP requests in flight."),
		apiReqTotal: NewCounter("sr_api_requests_all_total", "All HTTP requests."),
		apiReqError: NewCounter("sr_api_requests_5xx_total", "HTTP requests answered with 5xx."),

		inferenceRuns:    NewCounterVec("sr_inference_runs_total", "Model runs by status.", []string{"status"}),
		inferenceLatency: NewHistogramVec("sr_inference_duration_seconds", "Model run latency.", []string{"status"}, []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60}),
		predictions:      NewCounterVec("sr_predictions_total", "Stored predictions by operation and outcome.", []string{"operation", "outcome"}),
		synthesized:      NewCounter("sr_predictions_synthesized_total", "Predictions whose probabilities were synthesized from a bare label."),
		inconsistencies:  NewCounterVec("sr_probability_inconsistencies_total", "Probability inconsistency warnings by reason.", []string{"reason"}),
		storageFailures:  NewCounterVec("sr_storage_failures_total", "Storage failures by operation and reachability.", []string{"op", "responded"}),
		eventsPublished:  NewCounterVec("sr_events_published_total", "Prediction events by type and status.", []string{"type", "status"}),
	}
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

type promWriter interface {
	WritePrometheus(w io.Writer) error
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range []promWriter{
		m.apiRequests, m.apiLatency, m.apiInflight, m.apiReqTotal, m.apiReqError,
		m.inferenceRuns, m.inferenceLatency, m.predictions, m.synthesized,
		m.inconsistencies, m.storageFailures, m.eventsPublished,
	} {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
	m.apiReqTotal.Inc()
	if isServerErrorStatus(status) {
		m.apiReqError.Inc()
	}
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveInference(status string, dur time.Duration) {
	if m == nil {
		return
	}
	status = strings.TrimSpace(status)
	if status == "" {
		status = "unknown"
	}
	m.inferenceRuns.Inc(status)
	m.inferenceLatency.Observe(dur.Seconds(), status)
}

func (m *Metrics) IncPrediction(operation, outcome string, synthesized bool) {
	if m == nil {
		return
	}
	m.predictions.Inc(operation, outcome)
	if synthesized {
		m.synthesized.Inc()
	}
}

func (m *Metrics) IncInconsistency(reason string) {
	if m == nil {
		return
	}
	m.inconsistencies.Inc(reason)
}

func (m *Metrics) IncStorageFailure(op string, responded bool) {
	if m == nil {
		return
	}
	r := "false"
	if responded {
		r = "true"
	}
	m.storageFailures.Inc(op, r)
}

func (m *Metrics) IncEvent(eventType, status string) {
	if m == nil {
		return
	}
	m.eventsPublished.Inc(eventType, status)
}
