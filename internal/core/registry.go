package core

import "sort"

// RegenMode selects how regeneration treats targets that already hold values.
type RegenMode int

const (
	// RegenNormal skips entries whose output is stored with the current length.
	RegenNormal RegenMode = iota
	// RegenForce recomputes every selected entry.
	RegenForce
)

// RegenerateOptions narrows a regeneration walk.
type RegenerateOptions struct {
	// Targets limits the walk to these keys; empty means every entry.
	Targets []Key
	Mode    RegenMode
}

func (o RegenerateOptions) selects(key Key) bool {
	if len(o.Targets) == 0 {
		return true
	}
	for _, k := range o.Targets {
		if k == key {
			return true
		}
	}
	return false
}

// ModelEntry binds a target key to a rule and its arguments.
type ModelEntry struct {
	Key  Key
	Rule string
	Args Args
	// Always entries run on every walk of their object, regardless of mode
	// and target selection.
	Always bool
	// Ordinal is the entry position; filled in by Entries.
	Ordinal int
}

func (e ModelEntry) clone() ModelEntry {
	cp := e
	cp.Args = e.Args.clone()
	return cp
}

// ModelRegistry keeps the ordered model entries of one object. Position
// determines regeneration order; lower runs first.
type ModelRegistry struct {
	entries []ModelEntry
}

// NewModelRegistry constructs an empty registry.
func NewModelRegistry() *ModelRegistry {
	return &ModelRegistry{}
}

// Add appends entry, or replaces the existing entry for the same key in
// place so its position is preserved.
func (r *ModelRegistry) Add(entry ModelEntry) {
	entry = entry.clone()
	for i := range r.entries {
		if r.entries[i].Key == entry.Key {
			r.entries[i] = entry
			return
		}
	}
	r.entries = append(r.entries, entry)
}

// Lookup returns the entry targeting key.
func (r *ModelRegistry) Lookup(key Key) (ModelEntry, bool) {
	for i, e := range r.entries {
		if e.Key == key {
			cp := e.clone()
			cp.Ordinal = i
			return cp, true
		}
	}
	return ModelEntry{}, false
}

// Has reports whether an entry targets key.
func (r *ModelRegistry) Has(key Key) bool {
	_, ok := r.Lookup(key)
	return ok
}

// Remove deletes the entry targeting key.
func (r *ModelRegistry) Remove(key Key) bool {
	for i, e := range r.entries {
		if e.Key == key {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of entries.
func (r *ModelRegistry) Len() int { return len(r.entries) }

// Entries returns copies of the entries in regeneration order.
func (r *ModelRegistry) Entries() []ModelEntry {
	out := make([]ModelEntry, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.clone()
		out[i].Ordinal = i
	}
	return out
}

// Reorder moves the named entries to the front, ordered by their requested
// position. Every other entry keeps its relative order behind them.
func (r *ModelRegistry) Reorder(positions map[Key]int) error {
	type moved struct {
		entry ModelEntry
		want  int
		was   int
	}
	var front []moved
	var rest []ModelEntry
	found := 0
	for i, e := range r.entries {
		if pos, ok := positions[e.Key]; ok {
			front = append(front, moved{entry: e, want: pos, was: i})
			found++
			continue
		}
		rest = append(rest, e)
	}
	if found != len(positions) {
		for k := range positions {
			if !r.Has(k) {
				return ErrNotFound{Object: "model registry", Key: k.String()}
			}
		}
	}
	sort.SliceStable(front, func(i, j int) bool {
		if front[i].want != front[j].want {
			return front[i].want < front[j].want
		}
		return front[i].was < front[j].was
	})
	out := make([]ModelEntry, 0, len(r.entries))
	for _, m := range front {
		out = append(out, m.entry)
	}
	r.entries = append(out, rest...)
	return nil
}
