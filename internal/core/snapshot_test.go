package core

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"porenet/internal/config"
	"porenet/internal/infra/persistence/memory"
)

var fixedTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestSnapshotCapturesStoredValuesOnly(t *testing.T) {
	p, ph, left, _ := splitPhase(t, WithClock(stubClock{now: fixedTime}))
	if err := left.Set(NodeKey("k"), []float64{1, math.Inf(1)}); err != nil {
		t.Fatalf("left: %v", err)
	}
	if err := ph.AddModel(NodeKey("lazy"), "generic.constant", Args{"value": 1}); err != nil {
		t.Fatalf("model: %v", err)
	}
	snap := p.Snapshot()
	if snap.Project != "test" || snap.Network != "line4" || !snap.TakenAt.Equal(fixedTime) {
		t.Fatalf("unexpected header %+v", snap)
	}
	if len(snap.Objects) != 3 || snap.Objects[0].Kind != KindPhase || snap.Objects[1].Name != "left" {
		t.Fatalf("unexpected objects %+v", snap.Objects)
	}
	water, _ := snap.Object("water")
	if _, ok := water.Values["node.lazy"]; ok {
		t.Fatalf("unevaluated model output must not be captured")
	}
	if _, ok := water.Values["node.k"]; ok {
		t.Fatalf("interleaved values must not be captured")
	}
	if _, ok := water.Values["node.temperature"]; !ok {
		t.Fatalf("seeded temperature missing: %v", water.Values)
	}
	lr, _ := snap.Object("left")
	if lr.Parent != "water" || lr.ID != left.ID() {
		t.Fatalf("unexpected physics record %+v", lr)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	p, ph, left, _ := splitPhase(t)
	if err := left.Set(NodeKey("k"), []float64{1, math.NaN()}); err != nil {
		t.Fatalf("left: %v", err)
	}
	if err := ph.Fill(KeyTemperature, 350); err != nil {
		t.Fatalf("temperature: %v", err)
	}
	if err := p.Save(ctx, store); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := ph.Fill(KeyTemperature, 280); err != nil {
		t.Fatalf("temperature: %v", err)
	}
	if err := ph.Fill(NodeKey("extra"), 1); err != nil {
		t.Fatalf("extra: %v", err)
	}
	if err := p.Load(ctx, store); err != nil {
		t.Fatalf("load: %v", err)
	}
	temp, _ := ph.Get(KeyTemperature)
	if temp[0] != 350 {
		t.Fatalf("temperature not restored: %v", temp)
	}
	if ph.Has(NodeKey("extra")) {
		t.Fatalf("restore should replace stored values")
	}
	k, _ := left.Get(NodeKey("k"))
	if k[0] != 1 || !math.IsNaN(k[1]) {
		t.Fatalf("physics values not restored: %v", k)
	}

	var nf ErrNotFound
	if err := p.Load(ctx, memory.NewStore()); !errors.As(err, &nf) {
		t.Fatalf("expected missing snapshot, got %v", err)
	}
}

func TestRestoreValidatesBeforeWriting(t *testing.T) {
	p, ph, _, _ := splitPhase(t)
	if err := ph.Fill(NodeKey("keep"), 1); err != nil {
		t.Fatalf("fill: %v", err)
	}
	good := ObjectSnapshot{Name: "water", Kind: KindPhase, Values: map[string][]float64{"node.temperature": {1, 2, 3, 4}}}
	cases := map[string]ObjectSnapshot{
		"unknown object": {Name: "ghost", Kind: KindPhase},
		"kind mismatch":  {Name: "left", Kind: KindPhase},
		"bad key":        {Name: "left", Kind: KindPhysics, Values: map[string][]float64{"cell.k": {1}}},
		"wrong length":   {Name: "left", Kind: KindPhysics, Values: map[string][]float64{"node.k": {1, 2, 3}}},
	}
	for name, bad := range cases {
		err := p.Restore(Snapshot{Project: "test", Objects: []ObjectSnapshot{good, bad}})
		if err == nil {
			t.Fatalf("%s: expected restore failure", name)
		}
		if !ph.Has(NodeKey("keep")) {
			t.Fatalf("%s: failed restore modified the phase", name)
		}
	}
	var dm ErrDimensionMismatch
	if err := p.Restore(Snapshot{Objects: []ObjectSnapshot{cases["wrong length"]}}); !errors.As(err, &dm) || dm.Want != 2 {
		t.Fatalf("expected dimension mismatch, got %v", err)
	}
}

func TestRestoreRejectsKeysNowOwnedByPhysics(t *testing.T) {
	p, ph := newLineProject(t, 3)
	key := NodeKey("viscosity")
	if err := ph.Fill(key, 1); err != nil {
		t.Fatalf("fill: %v", err)
	}
	snap := p.Snapshot()
	ph.Delete(key)
	region, err := p.AttachPhysics("water", "bulk", []int{0, 1, 2}, nil)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if err := region.Set(key, []float64{9, 9, 9}); err != nil {
		t.Fatalf("region: %v", err)
	}

	var conflict ErrOwnershipConflict
	if err := p.Restore(snap); !errors.As(err, &conflict) || conflict.Object != "water" || conflict.Owner != "bulk" {
		t.Fatalf("expected ownership conflict, got %v", err)
	}
	if ph.Has(key) {
		t.Fatalf("rejected restore wrote the phase value")
	}
	got, err := ph.Get(key)
	if err != nil || !sameValues(got, []float64{9, 9, 9}) {
		t.Fatalf("physics should still supply the key, got %v %v", got, err)
	}

	// Restoring the region alongside the phase clears its claim.
	snap.Objects = append(snap.Objects, ObjectSnapshot{Name: "bulk", Kind: KindPhysics, Values: map[string][]float64{}})
	if err := p.Restore(snap); err != nil {
		t.Fatalf("restore with cleared region: %v", err)
	}
	if got, _ := ph.Get(key); !sameValues(got, []float64{1, 1, 1}) {
		t.Fatalf("phase value not restored, got %v", got)
	}
	if region.Has(key) {
		t.Fatalf("region value should have been replaced")
	}
}

func TestRestoreRejectsOverlappingRegions(t *testing.T) {
	p, _, left, _ := splitPhase(t)
	wide, err := p.AttachPhysics("water", "wide", []int{1, 3}, nil)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if err := left.Set(NodeKey("k"), []float64{1, 2}); err != nil {
		t.Fatalf("left: %v", err)
	}
	snap := Snapshot{Objects: []ObjectSnapshot{{Name: "wide", Kind: KindPhysics, Values: map[string][]float64{"node.k": {5, 6}}}}}
	var conflict ErrOwnershipConflict
	if err := p.Restore(snap); !errors.As(err, &conflict) || conflict.Owner != "left" {
		t.Fatalf("expected conflict with left, got %v", err)
	}
	if wide.Has(NodeKey("k")) {
		t.Fatalf("rejected restore wrote the region value")
	}
}

func TestOpenSnapshotStore(t *testing.T) {
	mem, err := OpenSnapshotStore(config.Storage{Driver: "memory"})
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if _, ok := mem.(*memory.Store); !ok {
		t.Fatalf("unexpected memory store type %T", mem)
	}

	path := filepath.Join(t.TempDir(), "snap.db")
	store, err := OpenSnapshotStore(config.Storage{SQLitePath: path})
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	t.Cleanup(func() {
		if c, ok := store.(interface{ Close() error }); ok {
			_ = c.Close()
		}
	})
	p, _ := newLineProject(t, 2)
	ctx := context.Background()
	if err := p.Save(ctx, store); err != nil {
		t.Fatalf("save: %v", err)
	}
	names, err := store.List(ctx)
	if err != nil || len(names) != 1 || names[0] != "test" {
		t.Fatalf("unexpected listing %v %v", names, err)
	}

	if _, err := OpenSnapshotStore(config.Storage{Driver: "cassandra"}); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}
