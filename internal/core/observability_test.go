package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestExpvarMetricsRecorderAggregates(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	if rec.Name() == "" || expvar.Get(rec.Name()) == nil {
		t.Fatalf("recorder not published")
	}
	ctx := context.Background()
	rec.Observe(ctx, "water/node.k", true, 2*time.Millisecond)
	rec.Observe(ctx, "water/node.k", false, 3*time.Millisecond)
	rec.Observe(ctx, "water/edge.g", true, time.Millisecond)
	rec.Observe(ctx, "bulk/node.k", true, time.Millisecond)
	rec.Observe(ctx, "", true, time.Second)
	snap := rec.Snapshot()
	if len(snap.Evaluations) != 3 {
		t.Fatalf("empty operation should be ignored: %v", snap.Evaluations)
	}
	k := snap.Evaluations["water/node.k"]
	if k.Object != "water" || k.Key != "node.k" || k.Succeeded != 1 || k.Failed != 1 || k.TotalMS != 5 {
		t.Fatalf("unexpected stats %+v", k)
	}
	objects := snap.Objects()
	if len(objects) != 2 || objects[0].Object != "bulk" || objects[1].Object != "water" {
		t.Fatalf("unexpected objects %+v", objects)
	}
	if objects[1].Key != "" || objects[1].Succeeded != 2 || objects[1].Failed != 1 || objects[1].TotalMS != 6 {
		t.Fatalf("unexpected water totals %+v", objects[1])
	}
	if failed := snap.Failed(); len(failed) != 1 || failed[0] != "water/node.k" {
		t.Fatalf("unexpected failures %v", failed)
	}
	var decoded ExpvarMetricsSnapshot
	if err := json.Unmarshal([]byte(expvar.Get(rec.Name()).String()), &decoded); err != nil {
		t.Fatalf("expvar json: %v", err)
	}
	if decoded.Evaluations["water/node.k"].Succeeded != 1 {
		t.Fatalf("published snapshot out of date: %+v", decoded)
	}
}

func TestMultiMetricsRecorderFansOut(t *testing.T) {
	first := NewExpvarMetricsRecorder("")
	second := NewExpvarMetricsRecorder("")
	p, ph := newLineProject(t, 3, WithMetricsRecorder(MultiMetricsRecorder{first, nil, second}))
	if err := ph.AddModel(NodeKey("k"), "generic.constant", Args{"value": 2}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := p.Regenerate(context.Background(), RegenerateOptions{Mode: RegenForce}); err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	for _, rec := range []*ExpvarMetricsRecorder{first, second} {
		st := rec.Snapshot().Evaluations["water/node.k"]
		if st.Object != "water" || st.Succeeded != 1 {
			t.Fatalf("%s missed the evaluation: %+v", rec.Name(), rec.Snapshot())
		}
	}
}

func TestJSONTracerWritesEntries(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	_, span := tracer.Start(context.Background(), "water/node.a")
	span.End(nil)
	_, span = tracer.Start(context.Background(), "water/node.b")
	span.End(errors.New("boom"))

	entries := tracer.Entries()
	if len(entries) != 2 || entries[0].Status != "success" || entries[1].Status != "error" || entries[1].Error != "boom" {
		t.Fatalf("unexpected entries %+v", entries)
	}
	if entries[1].Object != "water" || entries[1].Key != "node.b" {
		t.Fatalf("operation not split: %+v", entries[1])
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 || !strings.Contains(lines[1], `"object":"water","key":"node.b"`) {
		t.Fatalf("unexpected trace output %q", buf.String())
	}
	if NewJSONTracer(nil).Entries() == nil {
		t.Fatalf("entries should be an empty slice")
	}
}

func TestJSONTracerFollowsRegeneration(t *testing.T) {
	tracer := NewJSONTracer(nil)
	p, ph := newLineProject(t, 3, WithTracer(tracer))
	registerEcho(t, p)
	if err := ph.AddModel(NodeKey("a"), "generic.constant", Args{"value": 1}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := ph.AddModel(NodeKey("b"), ruleEcho, Args{"prop": "node.absent"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	_ = p.Regenerate(context.Background(), RegenerateOptions{Mode: RegenForce})
	status := map[string]string{}
	for _, e := range tracer.Entries() {
		if e.Object != "water" {
			t.Fatalf("unexpected object %+v", e)
		}
		status[e.Key] = e.Status
	}
	if status["node.a"] != "success" || status["node.b"] != "error" {
		t.Fatalf("unexpected statuses %v", status)
	}
}

func TestPrometheusRecorderCountsEvaluations(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("recorder: %v", err)
	}
	if _, err := NewPrometheusMetricsRecorder(reg); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
	p, ph := newLineProject(t, 2, WithMetricsRecorder(rec))
	if err := ph.AddModel(NodeKey("k"), "generic.constant", Args{"value": 1}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := p.Regenerate(context.Background(), RegenerateOptions{Mode: RegenForce}); err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	rec.Observe(context.Background(), "", true, time.Second)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := map[string]bool{}
	for _, mf := range families {
		found[mf.GetName()] = true
		if mf.GetName() != "porenet_regenerations_total" {
			continue
		}
		if len(mf.GetMetric()) != 1 || mf.GetMetric()[0].GetCounter().GetValue() != 1 {
			t.Fatalf("unexpected counter family %v", mf)
		}
		labels := map[string]string{}
		for _, lp := range mf.GetMetric()[0].GetLabel() {
			labels[lp.GetName()] = lp.GetValue()
		}
		if labels["operation"] != "water/node.k" || labels["status"] != "success" {
			t.Fatalf("unexpected labels %v", labels)
		}
	}
	if !found["porenet_regenerations_total"] || !found["porenet_regeneration_duration_seconds"] {
		t.Fatalf("collectors missing: %v", found)
	}
}

func TestHandlerLoggerFormatsAndLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewHandlerLogger(&buf, "json", "warn")
	logger.Info("hidden")
	logger.Warn("shown", "phase", "water")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, `"phase":"water"`) {
		t.Fatalf("unexpected json output %q", out)
	}

	buf.Reset()
	text := NewHandlerLogger(&buf, "TEXT", "debug")
	text.Debug("detail", "key", "node.k")
	text.Error("failure")
	if !strings.Contains(buf.String(), "key=node.k") || !strings.Contains(buf.String(), "level=ERROR") {
		t.Fatalf("unexpected text output %q", buf.String())
	}

	cases := map[string]slog.Level{"debug": slog.LevelDebug, "WARNING": slog.LevelWarn, "error": slog.LevelError, "": slog.LevelInfo, "loud": slog.LevelInfo}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSlogLoggerRoutesProjectLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogLogger(slog.New(slog.NewJSONHandler(&buf, nil)))
	p, _ := newLineProject(t, 2, WithLogger(logger))
	if _, err := p.AddPhase("oil"); err != nil {
		t.Fatalf("phase: %v", err)
	}
	if !strings.Contains(buf.String(), `"msg":"phase added"`) || !strings.Contains(buf.String(), `"phase":"oil"`) {
		t.Fatalf("project logs not routed: %q", buf.String())
	}
	if NewSlogLogger(nil).Logger == nil {
		t.Fatalf("nil logger should fall back to the default")
	}
	var quiet Logger = noopLogger{}
	quiet.Debug("x")
	quiet.Info("x")
	quiet.Warn("x")
	quiet.Error("x")
}
