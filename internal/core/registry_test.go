package core

import (
	"errors"
	"testing"
)

func entryKeys(entries []ModelEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Key.Name
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestModelRegistryReplaceKeepsPosition(t *testing.T) {
	r := NewModelRegistry()
	for _, name := range []string{"a", "b", "c"} {
		r.Add(ModelEntry{Key: NodeKey(name), Rule: "r1"})
	}
	r.Add(ModelEntry{Key: NodeKey("b"), Rule: "r2"})
	entries := r.Entries()
	if got := entryKeys(entries); !equalStrings(got, []string{"a", "b", "c"}) {
		t.Fatalf("replace moved entry: %v", got)
	}
	if entries[1].Rule != "r2" || entries[1].Ordinal != 1 {
		t.Fatalf("unexpected replaced entry %+v", entries[1])
	}
	if e, ok := r.Lookup(NodeKey("c")); !ok || e.Ordinal != 2 {
		t.Fatalf("lookup ordinal wrong: %+v", e)
	}
}

func TestModelRegistryArgsAreCopied(t *testing.T) {
	r := NewModelRegistry()
	args := Args{"factor": 1.0}
	r.Add(ModelEntry{Key: NodeKey("a"), Rule: "r", Args: args})
	args["factor"] = 5.0
	e, _ := r.Lookup(NodeKey("a"))
	if f, _ := e.Args.Float("factor"); f != 1 {
		t.Fatalf("registry aliased args: %v", f)
	}
	e.Args["factor"] = 7.0
	again, _ := r.Lookup(NodeKey("a"))
	if f, _ := again.Args.Float("factor"); f != 1 {
		t.Fatalf("lookup returned internal args: %v", f)
	}
}

func TestModelRegistryReorder(t *testing.T) {
	r := NewModelRegistry()
	for _, name := range []string{"a", "b", "c", "d"} {
		r.Add(ModelEntry{Key: NodeKey(name)})
	}
	if err := r.Reorder(map[Key]int{NodeKey("d"): 0, NodeKey("c"): 1}); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	if got := entryKeys(r.Entries()); !equalStrings(got, []string{"d", "c", "a", "b"}) {
		t.Fatalf("unexpected order %v", got)
	}
	var nf ErrNotFound
	if err := r.Reorder(map[Key]int{NodeKey("zzz"): 0}); !errors.As(err, &nf) {
		t.Fatalf("expected not found, got %v", err)
	}
	if got := entryKeys(r.Entries()); !equalStrings(got, []string{"d", "c", "a", "b"}) {
		t.Fatalf("failed reorder changed order: %v", got)
	}
}

func TestModelRegistryRemove(t *testing.T) {
	r := NewModelRegistry()
	r.Add(ModelEntry{Key: NodeKey("a")})
	r.Add(ModelEntry{Key: NodeKey("b")})
	if !r.Remove(NodeKey("a")) || r.Remove(NodeKey("a")) {
		t.Fatalf("remove should succeed exactly once")
	}
	if r.Len() != 1 || r.Has(NodeKey("a")) || !r.Has(NodeKey("b")) {
		t.Fatalf("unexpected registry state %v", entryKeys(r.Entries()))
	}
}

func TestObjectReorderReportsObjectName(t *testing.T) {
	_, ph := newLineProject(t, 2)
	var nf ErrNotFound
	if err := ph.ReorderModels(map[Key]int{NodeKey("absent"): 0}); !errors.As(err, &nf) || nf.Object != "water" {
		t.Fatalf("expected not found on water, got %v", err)
	}
}
