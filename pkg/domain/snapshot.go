package domain

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// ObjectKind distinguishes phases from physics regions in a snapshot.
type ObjectKind string

// Snapshot object kinds.
const (
	KindPhase   ObjectKind = "phase"
	KindPhysics ObjectKind = "physics"
)

// ObjectSnapshot captures the stored (not resolved) values of one object.
// Values are keyed by the rendered property key.
type ObjectSnapshot struct {
	ID     string               `msgpack:"id"`
	Name   string               `msgpack:"name"`
	Kind   ObjectKind           `msgpack:"kind"`
	Parent string               `msgpack:"parent,omitempty"`
	Values map[string][]float64 `msgpack:"values"`
}

// Snapshot captures the property stores of every object in a project.
type Snapshot struct {
	Project string           `msgpack:"project"`
	Network string           `msgpack:"network"`
	TakenAt time.Time        `msgpack:"taken_at"`
	Objects []ObjectSnapshot `msgpack:"objects"`
}

// Object returns the named object snapshot.
func (s Snapshot) Object(name string) (ObjectSnapshot, bool) {
	for _, obj := range s.Objects {
		if obj.Name == name {
			return obj, true
		}
	}
	return ObjectSnapshot{}, false
}

// Sorted returns a copy with objects ordered by kind then name, so encoded
// snapshots are stable.
func (s Snapshot) Sorted() Snapshot {
	out := s
	out.Objects = append([]ObjectSnapshot(nil), s.Objects...)
	sort.SliceStable(out.Objects, func(i, j int) bool {
		if out.Objects[i].Kind != out.Objects[j].Kind {
			return out.Objects[i].Kind < out.Objects[j].Kind
		}
		return out.Objects[i].Name < out.Objects[j].Name
	})
	return out
}

// EncodeSnapshot serialises a snapshot with MessagePack, which round-trips
// NaN and infinities unlike JSON.
func EncodeSnapshot(s Snapshot) ([]byte, error) {
	data, err := msgpack.Marshal(s.Sorted())
	if err != nil {
		return nil, fmt.Errorf("encode snapshot %s: %w", s.Project, err)
	}
	return data, nil
}

// DecodeSnapshot parses bytes produced by EncodeSnapshot.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := msgpack.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return s, nil
}

// EncodeObject serialises a single object snapshot.
func EncodeObject(o ObjectSnapshot) ([]byte, error) {
	return msgpack.Marshal(o)
}

// DecodeObject parses bytes produced by EncodeObject.
func DecodeObject(data []byte) (ObjectSnapshot, error) {
	var o ObjectSnapshot
	if err := msgpack.Unmarshal(data, &o); err != nil {
		return ObjectSnapshot{}, fmt.Errorf("decode object: %w", err)
	}
	return o, nil
}

// SnapshotStore is the minimal abstraction over durable snapshot backends.
type SnapshotStore interface {
	Save(ctx context.Context, snapshot Snapshot) error
	// Load returns ErrNotFound when no snapshot exists for the project.
	Load(ctx context.Context, project string) (Snapshot, error)
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, project string) (bool, error)
}
