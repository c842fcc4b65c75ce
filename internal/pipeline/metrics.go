package pipeline

import (
	"context"
	"expvar"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// MetricsRecorder receives per-step outcomes from a pipeline run.
type MetricsRecorder interface {
	// Observe records one completed step with its success status and duration.
	Observe(ctx context.Context, step string, success bool, duration time.Duration)
	// AddRows accumulates the number of rows a step processed.
	AddRows(ctx context.Context, step string, rows int)
}

// NopMetrics discards all observations.
type NopMetrics struct{}

// Observe implements MetricsRecorder.
func (NopMetrics) Observe(context.Context, string, bool, time.Duration) {}

// AddRows implements MetricsRecorder.
func (NopMetrics) AddRows(context.Context, string, int) {}

var expvarSeq uint64

// ExpvarMetrics publishes aggregate step timings, result counters, and row
// counts via expvar, for deployments that prefer process-local metrics
// without external dependencies.
type ExpvarMetrics struct {
	name      string
	mu        sync.Mutex
	durations map[string]float64
	results   map[string]map[string]int64
	rows      map[string]int64
}

// ExpvarSnapshot captures a read-only view of the recorded metrics.
type ExpvarSnapshot struct {
	DurationsMS map[string]float64          `json:"durations_ms_total"`
	Results     map[string]map[string]int64 `json:"results_total"`
	Rows        map[string]int64            `json:"rows_total"`
	RecordedAt  time.Time                   `json:"recorded_at"`
}

// NewExpvarMetrics constructs an expvar-backed recorder published under the
// supplied name. When name is empty a unique identifier is generated.
func NewExpvarMetrics(name string) *ExpvarMetrics {
	if name == "" {
		id := atomic.AddUint64(&expvarSeq, 1)
		name = fmt.Sprintf("etl_pipeline_metrics_%d", id)
	}
	rec := &ExpvarMetrics{
		name:      name,
		durations: make(map[string]float64),
		results:   make(map[string]map[string]int64),
		rows:      make(map[string]int64),
	}
	expvar.Publish(name, expvar.Func(func() any {
		return rec.Snapshot()
	}))
	return rec
}

// Name returns the expvar export name associated with the recorder.
func (r *ExpvarMetrics) Name() string { return r.name }

// Snapshot returns an immutable copy of the aggregated metrics.
func (r *ExpvarMetrics) Snapshot() ExpvarSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	durations := make(map[string]float64, len(r.durations))
	for step, total := range r.durations {
		durations[step] = total
	}
	results := make(map[string]map[string]int64, len(r.results))
	for step, statusCounts := range r.results {
		cpy := make(map[string]int64, len(statusCounts))
		for status, count := range statusCounts {
			cpy[status] = count
		}
		results[step] = cpy
	}
	rows := make(map[string]int64, len(r.rows))
	for step, n := range r.rows {
		rows[step] = n
	}
	return ExpvarSnapshot{
		DurationsMS: durations,
		Results:     results,
		Rows:        rows,
		RecordedAt:  time.Now().UTC(),
	}
}

// Observe implements MetricsRecorder.
func (r *ExpvarMetrics) Observe(_ context.Context, step string, success bool, duration time.Duration) {
	if step == "" {
		return
	}
	status := "error"
	if success {
		status = "success"
	}
	r.mu.Lock()
	r.durations[step] += float64(duration) / float64(time.Millisecond)
	if _, ok := r.results[step]; !ok {
		r.results[step] = make(map[string]int64, 2)
	}
	r.results[step][status]++
	r.mu.Unlock()
}

// AddRows implements MetricsRecorder.
func (r *ExpvarMetrics) AddRows(_ context.Context, step string, rows int) {
	if step == "" {
		return
	}
	r.mu.Lock()
	r.rows[step] += int64(rows)
	r.mu.Unlock()
}

// PrometheusMetrics records step outcomes on a dedicated registry and can
// push the finished batch run to a Pushgateway.
type PrometheusMetrics struct {
	registry  *prometheus.Registry
	durations *prometheus.HistogramVec
	rows      *prometheus.CounterVec
	gateway   string
}

// NewPrometheusMetrics constructs a recorder with its own registry. gateway
// may be empty; Push is then a no-op.
func NewPrometheusMetrics(gateway string) *PrometheusMetrics {
	reg := prometheus.NewRegistry()
	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "onetmart",
		Subsystem: "etl",
		Name:      "step_duration_seconds",
		Help:      "Duration of pipeline steps by outcome.",
	}, []string{"step", "status"})
	rows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "onetmart",
		Subsystem: "etl",
		Name:      "step_rows_total",
		Help:      "Rows processed per pipeline step.",
	}, []string{"step"})
	reg.MustRegister(durations, rows)
	return &PrometheusMetrics{registry: reg, durations: durations, rows: rows, gateway: gateway}
}

// Registry exposes the backing registry for scrape or test inspection.
func (r *PrometheusMetrics) Registry() *prometheus.Registry { return r.registry }

// Observe implements MetricsRecorder.
func (r *PrometheusMetrics) Observe(_ context.Context, step string, success bool, duration time.Duration) {
	status := "error"
	if success {
		status = "success"
	}
	r.durations.WithLabelValues(step, status).Observe(duration.Seconds())
}

// AddRows implements MetricsRecorder.
func (r *PrometheusMetrics) AddRows(_ context.Context, step string, rows int) {
	r.rows.WithLabelValues(step).Add(float64(rows))
}

// Push delivers the run's metrics to the configured Pushgateway.
func (r *PrometheusMetrics) Push(ctx context.Context) error {
	if r.gateway == "" {
		return nil
	}
	if err := push.New(r.gateway, "onetmart_etl").Gatherer(r.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
