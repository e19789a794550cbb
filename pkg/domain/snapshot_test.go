package domain

import (
	"math"
	"testing"
	"time"
)

func sampleSnapshot() Snapshot {
	return Snapshot{
		Project: "demo",
		Network: "line4",
		TakenAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Objects: []ObjectSnapshot{
			{ID: "3", Name: "inlet", Kind: KindPhysics, Parent: "water", Values: map[string][]float64{"node.k": {1, math.NaN()}}},
			{ID: "2", Name: "water", Kind: KindPhase, Values: map[string][]float64{"node.temperature": {298, 299, math.Inf(1), 300}}},
			{ID: "1", Name: "air", Kind: KindPhase, Values: map[string][]float64{}},
		},
	}
}

func TestSnapshotSortedAndLookup(t *testing.T) {
	s := sampleSnapshot()
	sorted := s.Sorted()
	names := []string{sorted.Objects[0].Name, sorted.Objects[1].Name, sorted.Objects[2].Name}
	if names[0] != "air" || names[1] != "water" || names[2] != "inlet" {
		t.Fatalf("unexpected order %v", names)
	}
	if s.Objects[0].Name != "inlet" {
		t.Fatalf("Sorted must not reorder the receiver")
	}
	obj, ok := s.Object("inlet")
	if !ok || obj.Parent != "water" {
		t.Fatalf("unexpected lookup %+v", obj)
	}
	if _, ok := s.Object("oil"); ok {
		t.Fatalf("unexpected object")
	}
}

func TestSnapshotCodecPreservesNonFinite(t *testing.T) {
	data, err := EncodeSnapshot(sampleSnapshot())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Project != "demo" || got.Network != "line4" || !got.TakenAt.Equal(sampleSnapshot().TakenAt) {
		t.Fatalf("unexpected header %+v", got)
	}
	if got.Objects[0].Name != "air" {
		t.Fatalf("encoded snapshot should be sorted")
	}
	inlet, _ := got.Object("inlet")
	if inlet.Values["node.k"][0] != 1 || !math.IsNaN(inlet.Values["node.k"][1]) {
		t.Fatalf("NaN lost: %v", inlet.Values)
	}
	water, _ := got.Object("water")
	if !math.IsInf(water.Values["node.temperature"][2], 1) {
		t.Fatalf("Inf lost: %v", water.Values)
	}

	if _, err := DecodeSnapshot([]byte{0xc1}); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestObjectCodec(t *testing.T) {
	in := sampleSnapshot().Objects[0]
	data, err := EncodeObject(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := DecodeObject(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.ID != "3" || out.Kind != KindPhysics || out.Parent != "water" || !math.IsNaN(out.Values["node.k"][1]) {
		t.Fatalf("unexpected object %+v", out)
	}
	if _, err := DecodeObject(nil); err == nil {
		t.Fatalf("expected decode error for empty input")
	}
}
