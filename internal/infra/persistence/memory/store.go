// Package memory provides an ephemeral snapshot store for tests and
// short-lived sessions.
package memory

import (
	"context"
	"sort"
	"sync"

	"porenet/pkg/domain"
)

var _ domain.SnapshotStore = (*Store)(nil)

// Store keeps the latest encoded snapshot per project. Snapshots are held
// encoded so callers never share slices with the store.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{data: make(map[string][]byte)}
}

// Save implements domain.SnapshotStore.
func (s *Store) Save(_ context.Context, snapshot domain.Snapshot) error {
	if snapshot.Project == "" {
		return domain.ErrInvalidArgument{Argument: "snapshot", Reason: "project name required"}
	}
	data, err := domain.EncodeSnapshot(snapshot)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[snapshot.Project] = data
	return nil
}

// Load implements domain.SnapshotStore.
func (s *Store) Load(_ context.Context, project string) (domain.Snapshot, error) {
	s.mu.RLock()
	data, ok := s.data[project]
	s.mu.RUnlock()
	if !ok {
		return domain.Snapshot{}, domain.ErrNotFound{Object: "memory store", Key: "snapshot " + project}
	}
	return domain.DecodeSnapshot(data)
}

// List implements domain.SnapshotStore.
func (s *Store) List(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.data))
	for name := range s.data {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// Delete implements domain.SnapshotStore.
func (s *Store) Delete(_ context.Context, project string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[project]
	delete(s.data, project)
	return ok, nil
}
