package core

import (
	"context"
	"errors"
	"strings"
	"testing"
)

const ruleEcho = "test.echo"

// registerEcho installs a rule that copies another property of the same
// object onto its target.
func registerEcho(t *testing.T, p *Project) {
	t.Helper()
	err := p.catalog.Register(RuleDefinition{
		ID:     ruleEcho,
		Params: []ParamSpec{{Name: "prop", Kind: ParamKey, Required: true}},
		Eval:   func(mc *ModelContext) ([]float64, error) { return mc.Input("prop") },
	})
	if err != nil {
		t.Fatalf("register echo: %v", err)
	}
}

func TestRegenerateSkipsCurrentValuesUnlessForced(t *testing.T) {
	p, ph := newLineProject(t, 3)
	calls := countingRule(t, p, "test.count", 4)
	if err := ph.AddModel(NodeKey("k"), "test.count", nil); err != nil {
		t.Fatalf("add model: %v", err)
	}
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := p.Regenerate(ctx, RegenerateOptions{}); err != nil {
			t.Fatalf("regenerate: %v", err)
		}
	}
	if *calls != 1 {
		t.Fatalf("expected one evaluation, got %d", *calls)
	}
	if err := p.Regenerate(ctx, RegenerateOptions{Mode: RegenForce}); err != nil {
		t.Fatalf("force: %v", err)
	}
	if *calls != 2 {
		t.Fatalf("expected forced evaluation, got %d", *calls)
	}
	got, _ := ph.Get(NodeKey("k"))
	if !sameValues(got, []float64{4, 4, 4}) {
		t.Fatalf("unexpected values %v", got)
	}
}

func TestRegenerateTargetsOnly(t *testing.T) {
	p, ph := newLineProject(t, 2)
	a := countingRule(t, p, "test.a", 1)
	b := countingRule(t, p, "test.b", 2)
	if err := ph.AddModel(NodeKey("a"), "test.a", nil); err != nil {
		t.Fatalf("add a: %v", err)
	}
	if err := ph.AddModel(NodeKey("b"), "test.b", nil); err != nil {
		t.Fatalf("add b: %v", err)
	}
	opts := RegenerateOptions{Targets: []Key{NodeKey("b")}, Mode: RegenForce}
	if err := ph.Regenerate(context.Background(), opts); err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if *a != 0 || *b != 1 {
		t.Fatalf("expected only b to run, got a=%d b=%d", *a, *b)
	}
}

func TestLookupRunsOwnModelOnce(t *testing.T) {
	p, ph := newLineProject(t, 2)
	calls := countingRule(t, p, "test.count", 7)
	if err := ph.AddModel(NodeKey("k"), "test.count", nil); err != nil {
		t.Fatalf("add model: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := ph.Get(NodeKey("k")); err != nil {
			t.Fatalf("get: %v", err)
		}
	}
	if *calls != 1 {
		t.Fatalf("expected result to be stored after first lookup, got %d runs", *calls)
	}
}

func TestCycleReportsMissingInput(t *testing.T) {
	p, ph := newLineProject(t, 2)
	registerEcho(t, p)
	if err := ph.AddModel(NodeKey("a"), ruleEcho, Args{"prop": "node.b"}); err != nil {
		t.Fatalf("add a: %v", err)
	}
	if err := ph.AddModel(NodeKey("b"), ruleEcho, Args{"prop": "node.a"}); err != nil {
		t.Fatalf("add b: %v", err)
	}
	var missing ErrMissingInput
	if _, err := ph.Get(NodeKey("a")); !errors.As(err, &missing) || missing.Input != "node.a" {
		t.Fatalf("expected cycle reported as missing node.a, got %v", err)
	}
	if ph.Has(NodeKey("a")) || ph.Has(NodeKey("b")) {
		t.Fatalf("failed evaluation must not store values")
	}
}

func TestMissingInputNamesAbsentKey(t *testing.T) {
	p, ph := newLineProject(t, 2)
	registerEcho(t, p)
	if err := ph.AddModel(NodeKey("a"), ruleEcho, Args{"prop": "node.absent"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	var missing ErrMissingInput
	err := p.Regenerate(context.Background(), RegenerateOptions{})
	if !errors.As(err, &missing) {
		t.Fatalf("expected missing input, got %v", err)
	}
	if missing.Object != "water" || missing.Target != "node.a" || missing.Input != "node.absent" {
		t.Fatalf("unexpected detail %+v", missing)
	}
}

func TestNestedMissingInputKeepsChain(t *testing.T) {
	p, ph := newLineProject(t, 2)
	registerEcho(t, p)
	if err := ph.AddModel(NodeKey("a"), ruleEcho, Args{"prop": "node.b"}); err != nil {
		t.Fatalf("add a: %v", err)
	}
	if err := ph.AddModel(NodeKey("b"), ruleEcho, Args{"prop": "node.absent"}); err != nil {
		t.Fatalf("add b: %v", err)
	}
	_, err := ph.Get(NodeKey("a"))
	var missing ErrMissingInput
	if !errors.As(err, &missing) || missing.Target != "node.b" || missing.Input != "node.absent" {
		t.Fatalf("expected innermost missing input, got %v", err)
	}
	want := "regenerate node.a on water: regenerate node.b on water: missing input node.absent"
	if err.Error() != want {
		t.Fatalf("error = %q, want %q", err.Error(), want)
	}
}

func TestRuleFailuresAreWrapped(t *testing.T) {
	logger := &captureLogger{}
	p, ph := newLineProject(t, 2, WithLogger(logger))
	boom := errors.New("boom")
	if err := p.catalog.Register(RuleDefinition{ID: "test.fail", Eval: func(*ModelContext) ([]float64, error) { return nil, boom }}); err != nil {
		t.Fatalf("register: %v", err)
	}
	later := countingRule(t, p, "test.later", 1)
	if err := ph.AddModel(NodeKey("a"), "test.fail", nil); err != nil {
		t.Fatalf("add a: %v", err)
	}
	if err := ph.AddModel(NodeKey("b"), "test.later", nil); err != nil {
		t.Fatalf("add b: %v", err)
	}
	err := ph.Regenerate(context.Background(), RegenerateOptions{})
	if !errors.Is(err, boom) || !strings.Contains(err.Error(), "regenerate node.a on water") {
		t.Fatalf("unexpected error %v", err)
	}
	if *later != 0 {
		t.Fatalf("regeneration should stop at the first failure")
	}
	if logger.count("error", "regeneration aborted") != 1 {
		t.Fatalf("expected abort to be logged")
	}
}

func TestRuleOutputLengthIsValidated(t *testing.T) {
	p, ph := newLineProject(t, 3)
	if err := p.catalog.Register(RuleDefinition{ID: "test.short", Eval: func(*ModelContext) ([]float64, error) { return []float64{1}, nil }}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := ph.AddModel(NodeKey("a"), "test.short", nil); err != nil {
		t.Fatalf("add: %v", err)
	}
	var dm ErrDimensionMismatch
	if _, err := ph.Get(NodeKey("a")); !errors.As(err, &dm) || dm.Want != 3 {
		t.Fatalf("expected dimension mismatch, got %v", err)
	}
}

func TestAddModelValidatesBinding(t *testing.T) {
	_, ph := newLineProject(t, 2)
	var nf ErrNotFound
	if err := ph.AddModel(NodeKey("a"), "no.such.rule", nil); !errors.As(err, &nf) {
		t.Fatalf("expected unknown rule, got %v", err)
	}
	var inv ErrInvalidArgument
	if err := ph.AddModel(NodeKey("a"), "generic.constant", nil); !errors.As(err, &inv) {
		t.Fatalf("expected missing required argument, got %v", err)
	}
	if err := ph.AddModel(Key{Name: "a"}, "generic.constant", Args{"value": 1}); !errors.As(err, &inv) {
		t.Fatalf("expected malformed key, got %v", err)
	}
	if len(ph.Models()) != 0 {
		t.Fatalf("rejected models must not be registered")
	}
}

func TestGenericScale(t *testing.T) {
	_, ph := newLineProject(t, 2)
	if err := ph.Set(NodeKey("x"), []float64{1, 2}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := ph.AddModel(NodeKey("y"), "generic.scale", Args{"prop": "node.x", "factor": 3.0}); err != nil {
		t.Fatalf("add: %v", err)
	}
	got, err := ph.Get(NodeKey("y"))
	if err != nil || !sameValues(got, []float64{3, 6}) {
		t.Fatalf("unexpected scale result %v %v", got, err)
	}
	if !ph.RemoveModel(NodeKey("y")) || len(ph.Models()) != 0 {
		t.Fatalf("remove model failed")
	}
}

func TestEvaluationsAreObserved(t *testing.T) {
	metrics := &captureMetricsRecorder{}
	tracer := &captureTracer{}
	p, ph := newLineProject(t, 2, WithMetricsRecorder(metrics), WithTracer(tracer))
	registerEcho(t, p)
	if err := ph.AddModel(NodeKey("ok"), "generic.constant", Args{"value": 1}); err != nil {
		t.Fatalf("add ok: %v", err)
	}
	if err := ph.AddModel(NodeKey("bad"), ruleEcho, Args{"prop": "node.absent"}); err != nil {
		t.Fatalf("add bad: %v", err)
	}
	if err := p.Regenerate(context.Background(), RegenerateOptions{}); err == nil {
		t.Fatalf("expected failure")
	}
	if !metrics.has("water/node.ok", true) || !metrics.has("water/node.bad", false) {
		t.Fatalf("unexpected metrics %+v", metrics.calls)
	}
	if len(tracer.started) != 2 || len(tracer.ended) != 2 {
		t.Fatalf("expected two spans, got %v / %v", tracer.started, tracer.ended)
	}
	if tracer.ended[0].err != nil || tracer.ended[1].err == nil {
		t.Fatalf("unexpected span outcomes %+v", tracer.ended)
	}
}

func TestPhysicsModelReadsPhaseThroughContext(t *testing.T) {
	p, ph, left, right := splitPhase(t)
	err := p.catalog.Register(RuleDefinition{
		ID:     "test.restrict",
		Params: []ParamSpec{{Name: "prop", Kind: ParamKey, Required: true}},
		Eval: func(mc *ModelContext) ([]float64, error) {
			if mc.Physics() == nil || mc.Phase() != ph || mc.Target().Name() != mc.Physics().Name() {
				t.Errorf("unexpected model context owner")
			}
			full, err := mc.PhaseInput("prop")
			if err != nil {
				return nil, err
			}
			return mc.Restrict(mc.TargetKey().Domain, full)
		},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := ph.AddModel(NodeKey("x"), "generic.constant", Args{"value": 2}); err != nil {
		t.Fatalf("phase model: %v", err)
	}
	for _, phys := range []*Physics{left, right} {
		if err := phys.AddModel(NodeKey("y"), "test.restrict", Args{"prop": "node.x"}); err != nil {
			t.Fatalf("physics model: %v", err)
		}
	}
	if err := p.Regenerate(context.Background(), RegenerateOptions{}); err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	got, err := right.Get(NodeKey("y"))
	if err != nil || !sameValues(got, []float64{2}) {
		t.Fatalf("unexpected right values %v %v", got, err)
	}
	deps := p.Dependents(NodeKey("x"))
	if len(deps) != 2 || deps[0].Object != "left" || deps[1].Object != "right" || deps[0].Rule != "test.restrict" {
		t.Fatalf("unexpected dependents %+v", deps)
	}
}

func TestDependentsFollowChains(t *testing.T) {
	_, ph := newLineProject(t, 2)
	if err := ph.AddModel(NodeKey("z"), "generic.scale", Args{"prop": "node.y"}); err != nil {
		t.Fatalf("add z: %v", err)
	}
	if err := ph.AddModel(NodeKey("y"), "generic.scale", Args{"prop": "node.x"}); err != nil {
		t.Fatalf("add y: %v", err)
	}
	deps := ph.project.Dependents(NodeKey("x"))
	if len(deps) != 2 || deps[0].Key != NodeKey("y") || deps[1].Key != NodeKey("z") {
		t.Fatalf("unexpected dependents %+v", deps)
	}
	if len(ph.project.Dependents(NodeKey("unused"))) != 0 {
		t.Fatalf("expected no dependents")
	}
}

func TestModelContextArgumentErrors(t *testing.T) {
	p, ph := newLineProject(t, 2)
	var seen []error
	err := p.catalog.Register(RuleDefinition{
		ID: "test.inspect",
		Eval: func(mc *ModelContext) ([]float64, error) {
			_, errKey := mc.Key("prop")
			_, errFloat := mc.Float("factor")
			_, errObj := mc.Object("mixture")
			seen = append(seen, errKey, errFloat, errObj)
			if mc.Network().NodeCount() != 2 || mc.Physics() != nil || mc.Context() == nil || len(mc.Args()) != 0 {
				t.Errorf("unexpected model context state")
			}
			return make([]float64, mc.Count()), nil
		},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := ph.AddModel(NodeKey("inspect"), "test.inspect", nil); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := ph.Get(NodeKey("inspect")); err != nil {
		t.Fatalf("get: %v", err)
	}
	for _, e := range seen {
		var inv ErrInvalidArgument
		if !errors.As(e, &inv) {
			t.Fatalf("expected invalid argument, got %v", e)
		}
	}
}
