package core

import (
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// splitOperation separates an evaluation operation "<object>/<key>" into
// the object name and the rendered key.
func splitOperation(operation string) (object, key string) {
	object, key, _ = strings.Cut(operation, "/")
	return object, key
}

var expvarSeq uint64

// EvaluationStats aggregates the evaluations of one model target, or of
// every model of one object when Key is empty.
type EvaluationStats struct {
	Object    string  `json:"object"`
	Key       string  `json:"key,omitempty"`
	Succeeded int64   `json:"succeeded"`
	Failed    int64   `json:"failed"`
	TotalMS   float64 `json:"total_ms"`
}

func (s *EvaluationStats) add(o EvaluationStats) {
	s.Succeeded += o.Succeeded
	s.Failed += o.Failed
	s.TotalMS += o.TotalMS
}

// ExpvarMetricsSnapshot is a read-only view of an ExpvarMetricsRecorder,
// keyed by operation.
type ExpvarMetricsSnapshot struct {
	Evaluations map[string]EvaluationStats `json:"evaluations"`
	RecordedAt  time.Time                  `json:"recorded_at"`
}

// Objects folds the per-target statistics into one entry per object,
// ordered by object name.
func (s ExpvarMetricsSnapshot) Objects() []EvaluationStats {
	byObject := make(map[string]*EvaluationStats)
	for _, st := range s.Evaluations {
		agg, ok := byObject[st.Object]
		if !ok {
			agg = &EvaluationStats{Object: st.Object}
			byObject[st.Object] = agg
		}
		agg.add(st)
	}
	out := make([]EvaluationStats, 0, len(byObject))
	for _, agg := range byObject {
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Object < out[j].Object })
	return out
}

// Failed lists the operations with at least one failed evaluation, sorted.
func (s ExpvarMetricsSnapshot) Failed() []string {
	var out []string
	for op, st := range s.Evaluations {
		if st.Failed > 0 {
			out = append(out, op)
		}
	}
	sort.Strings(out)
	return out
}

// ExpvarMetricsRecorder publishes per-target evaluation counts and total
// time via expvar.
type ExpvarMetricsRecorder struct {
	name  string
	mu    sync.Mutex
	stats map[string]EvaluationStats
}

// NewExpvarMetricsRecorder constructs an expvar-backed recorder and publishes it
// under the supplied name. When name is empty, a unique identifier is generated.
func NewExpvarMetricsRecorder(name string) *ExpvarMetricsRecorder {
	if name == "" {
		id := atomic.AddUint64(&expvarSeq, 1)
		name = fmt.Sprintf("porenet_model_metrics_%d", id)
	}
	rec := &ExpvarMetricsRecorder{
		name:  name,
		stats: make(map[string]EvaluationStats),
	}
	expvar.Publish(name, expvar.Func(func() any {
		return rec.Snapshot()
	}))
	return rec
}

// Name returns the expvar export name associated with the recorder.
func (r *ExpvarMetricsRecorder) Name() string {
	return r.name
}

// Snapshot returns a copy of the aggregated statistics.
func (r *ExpvarMetricsRecorder) Snapshot() ExpvarMetricsSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	evals := make(map[string]EvaluationStats, len(r.stats))
	for op, st := range r.stats {
		evals[op] = st
	}
	return ExpvarMetricsSnapshot{Evaluations: evals, RecordedAt: time.Now().UTC()}
}

// Observe implements MetricsRecorder.
func (r *ExpvarMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.stats[operation]
	if !ok {
		st.Object, st.Key = splitOperation(operation)
	}
	if success {
		st.Succeeded++
	} else {
		st.Failed++
	}
	st.TotalMS += float64(duration) / float64(time.Millisecond)
	r.stats[operation] = st
}

// MultiMetricsRecorder hands every observation to each recorder in turn.
type MultiMetricsRecorder []MetricsRecorder

// Observe implements MetricsRecorder.
func (m MultiMetricsRecorder) Observe(ctx context.Context, operation string, success bool, duration time.Duration) {
	for _, r := range m {
		if r != nil {
			r.Observe(ctx, operation, success, duration)
		}
	}
}

// JSONTraceEntry is one model evaluation written by JSONTraceTracer.
type JSONTraceEntry struct {
	Object     string    `json:"object"`
	Key        string    `json:"key"`
	Status     string    `json:"status"`
	DurationMS float64   `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
}

// JSONTraceTracer writes one JSON line per model evaluation and keeps the
// entries for inspection.
type JSONTraceTracer struct {
	mu      sync.Mutex
	entries []JSONTraceEntry
	enc     *json.Encoder
	now     func() time.Time
}

// NewJSONTracer writes evaluations as JSON lines to w, which may be nil.
func NewJSONTracer(w io.Writer) *JSONTraceTracer {
	var enc *json.Encoder
	if w != nil {
		enc = json.NewEncoder(w)
	}
	return &JSONTraceTracer{enc: enc, now: func() time.Time { return time.Now().UTC() }}
}

// Entries returns a copy of the recorded evaluations.
func (t *JSONTraceTracer) Entries() []JSONTraceEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]JSONTraceEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Start implements Tracer.
func (t *JSONTraceTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	object, key := splitOperation(operation)
	return ctx, &jsonTraceSpan{tracer: t, object: object, key: key, started: t.now()}
}

type jsonTraceSpan struct {
	tracer  *JSONTraceTracer
	object  string
	key     string
	started time.Time
}

func (s *jsonTraceSpan) End(err error) {
	ended := s.tracer.now()
	entry := JSONTraceEntry{
		Object:     s.object,
		Key:        s.key,
		Status:     "success",
		DurationMS: float64(ended.Sub(s.started)) / float64(time.Millisecond),
		StartedAt:  s.started,
		EndedAt:    ended,
	}
	if err != nil {
		entry.Status = "error"
		entry.Error = err.Error()
	}

	s.tracer.mu.Lock()
	defer s.tracer.mu.Unlock()
	s.tracer.entries = append(s.tracer.entries, entry)
	if s.tracer.enc != nil {
		_ = s.tracer.enc.Encode(entry)
	}
}

// PrometheusMetricsRecorder exports model evaluation counts and latencies.
type PrometheusMetricsRecorder struct {
	evaluations *prometheus.CounterVec
	durations   *prometheus.HistogramVec
}

// NewPrometheusMetricsRecorder registers its collectors with reg. A nil
// registerer uses prometheus.DefaultRegisterer.
func NewPrometheusMetricsRecorder(reg prometheus.Registerer) (*PrometheusMetricsRecorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	rec := &PrometheusMetricsRecorder{
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "porenet",
			Name:      "regenerations_total",
			Help:      "Model evaluations by operation and status.",
		}, []string{"operation", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "porenet",
			Name:      "regeneration_duration_seconds",
			Help:      "Model evaluation latency.",
			Buckets:   prometheus.ExponentialBuckets(1e-5, 4, 10),
		}, []string{"operation"}),
	}
	for _, c := range []prometheus.Collector{rec.evaluations, rec.durations} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return rec, nil
}

// Observe implements MetricsRecorder.
func (r *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := "error"
	if success {
		status = "success"
	}
	r.evaluations.WithLabelValues(operation, status).Inc()
	r.durations.WithLabelValues(operation).Observe(duration.Seconds())
}
