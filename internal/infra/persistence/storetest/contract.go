// Package storetest holds the behavioural contract every snapshot store
// implementation is tested against.
package storetest

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"porenet/pkg/domain"
)

// Fixture returns a snapshot with non-finite values so stores are checked
// for lossless encoding.
func Fixture(project string) domain.Snapshot {
	return domain.Snapshot{
		Project: project,
		Network: "cubic",
		TakenAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Objects: []domain.ObjectSnapshot{
			{ID: "p-1", Name: "air", Kind: domain.KindPhase, Values: map[string][]float64{
				"node.temperature": {298, 298, 298},
				"edge.conductance": {1.5, math.Inf(1)},
			}},
			{ID: "s-1", Name: "top", Kind: domain.KindPhysics, Parent: "air", Values: map[string][]float64{
				"node.viscosity": {math.NaN()},
			}},
		},
	}
}

// Run exercises save, load, list and delete on store. The store must be
// empty.
func Run(t *testing.T, store domain.SnapshotStore) {
	t.Helper()
	ctx := context.Background()

	var nf domain.ErrNotFound
	if _, err := store.Load(ctx, "missing"); !errors.As(err, &nf) {
		t.Fatalf("expected ErrNotFound for missing project, got %v", err)
	}
	if err := store.Save(ctx, domain.Snapshot{}); err == nil {
		t.Fatalf("expected error saving snapshot without project")
	}

	if err := store.Save(ctx, Fixture("beta")); err != nil {
		t.Fatalf("save beta: %v", err)
	}
	if err := store.Save(ctx, Fixture("alpha")); err != nil {
		t.Fatalf("save alpha: %v", err)
	}
	updated := Fixture("alpha")
	updated.Objects[0].Values["node.temperature"] = []float64{310, 310, 310}
	if err := store.Save(ctx, updated); err != nil {
		t.Fatalf("overwrite alpha: %v", err)
	}

	got, err := store.Load(ctx, "alpha")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	air, ok := got.Object("air")
	if !ok || air.Values["node.temperature"][0] != 310 {
		t.Fatalf("expected latest snapshot, got %+v", got)
	}
	if !math.IsInf(air.Values["edge.conductance"][1], 1) {
		t.Fatalf("expected +Inf preserved, got %v", air.Values["edge.conductance"])
	}
	top, ok := got.Object("top")
	if !ok || !math.IsNaN(top.Values["node.viscosity"][0]) || top.Parent != "air" {
		t.Fatalf("physics object not preserved: %+v", top)
	}
	if !got.TakenAt.Equal(updated.TakenAt) {
		t.Fatalf("timestamp mismatch: %v", got.TakenAt)
	}

	names, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(names) != 2 || names[0] != "alpha" || names[1] != "beta" {
		t.Fatalf("unexpected list %v", names)
	}

	deleted, err := store.Delete(ctx, "beta")
	if err != nil || !deleted {
		t.Fatalf("delete beta: %v %v", deleted, err)
	}
	deleted, err = store.Delete(ctx, "beta")
	if err != nil || deleted {
		t.Fatalf("second delete should report false: %v %v", deleted, err)
	}
	if _, err := store.Load(ctx, "beta"); !errors.As(err, &nf) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
