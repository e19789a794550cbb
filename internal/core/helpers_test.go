package core

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"porenet/internal/network"
)

type logRecord struct {
	level string
	msg   string
	args  []any
}

type captureLogger struct {
	records []logRecord
}

func (c *captureLogger) log(level, msg string, args []any) {
	c.records = append(c.records, logRecord{level: level, msg: msg, args: args})
}

func (c *captureLogger) Debug(msg string, args ...any) { c.log("debug", msg, args) }
func (c *captureLogger) Info(msg string, args ...any)  { c.log("info", msg, args) }
func (c *captureLogger) Warn(msg string, args ...any)  { c.log("warn", msg, args) }
func (c *captureLogger) Error(msg string, args ...any) { c.log("error", msg, args) }

func (c *captureLogger) count(level, msg string) int {
	n := 0
	for _, r := range c.records {
		if r.level == level && r.msg == msg {
			n++
		}
	}
	return n
}

type metricsCall struct {
	op       string
	success  bool
	duration time.Duration
}

type captureMetricsRecorder struct {
	calls []metricsCall
}

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, duration time.Duration) {
	c.calls = append(c.calls, metricsCall{op: op, success: success, duration: duration})
}

func (c *captureMetricsRecorder) has(op string, success bool) bool {
	for _, call := range c.calls {
		if call.op == op && call.success == success {
			return true
		}
	}
	return false
}

type spanRecord struct {
	op  string
	err error
}

type captureTracer struct {
	started []string
	ended   []spanRecord
}

func (c *captureTracer) Start(ctx context.Context, op string) (context.Context, TraceSpan) {
	c.started = append(c.started, op)
	return ctx, &captureSpan{tracer: c, op: op}
}

type captureSpan struct {
	tracer *captureTracer
	op     string
}

func (s *captureSpan) End(err error) {
	s.tracer.ended = append(s.tracer.ended, spanRecord{op: s.op, err: err})
}

type stubClock struct{ now time.Time }

func (c stubClock) Now() time.Time { return c.now }

// countingRule registers a rule that fills its target with value and counts
// how often it ran.
func countingRule(t *testing.T, p *Project, id string, value float64) *int {
	t.Helper()
	calls := new(int)
	err := p.catalog.Register(RuleDefinition{
		ID: id,
		Eval: func(mc *ModelContext) ([]float64, error) {
			*calls++
			out := make([]float64, mc.Count())
			for i := range out {
				out[i] = value
			}
			return out, nil
		},
	})
	if err != nil {
		t.Fatalf("register %s: %v", id, err)
	}
	return calls
}

// newLineProject builds a project over a straight chain of nodes with one
// phase named water.
func newLineProject(t *testing.T, nodes int, opts ...ProjectOption) (*Project, *Phase) {
	t.Helper()
	conns := make([][2]int, 0, nodes)
	for i := 0; i+1 < nodes; i++ {
		conns = append(conns, [2]int{i, i + 1})
	}
	net, err := network.New(fmt.Sprintf("line%d", nodes), nodes, conns)
	if err != nil {
		t.Fatalf("network: %v", err)
	}
	p, err := NewProject("test", net, opts...)
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	ph, err := p.AddPhase("water")
	if err != nil {
		t.Fatalf("phase: %v", err)
	}
	return p, ph
}

func sameValues(got, want []float64) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if math.IsNaN(want[i]) {
			if !math.IsNaN(got[i]) {
				return false
			}
			continue
		}
		if math.Abs(got[i]-want[i]) > 1e-12*math.Max(1, math.Abs(want[i])) {
			return false
		}
	}
	return true
}
