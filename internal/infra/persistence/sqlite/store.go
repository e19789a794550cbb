// Package sqlite persists project snapshots to an embedded SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"porenet/pkg/domain"
)

var _ domain.SnapshotStore = (*Store)(nil)

// Store keeps the latest snapshot of each project in a single table as a
// MessagePack blob.
type Store struct {
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewStore opens (creating if needed) the database at path.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "porenet.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS snapshots (
		project TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create snapshots table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Save implements domain.SnapshotStore, replacing any earlier snapshot of
// the same project.
func (s *Store) Save(ctx context.Context, snapshot domain.Snapshot) error {
	if snapshot.Project == "" {
		return domain.ErrInvalidArgument{Argument: "snapshot", Reason: "project name required"}
	}
	data, err := domain.EncodeSnapshot(snapshot)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, `INSERT INTO snapshots(project,payload) VALUES(?,?) ON CONFLICT(project) DO UPDATE SET payload=excluded.payload`, snapshot.Project, data); err != nil {
		return fmt.Errorf("upsert snapshot %s: %w", snapshot.Project, err)
	}
	return nil
}

// Load implements domain.SnapshotStore.
func (s *Store) Load(ctx context.Context, project string) (domain.Snapshot, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM snapshots WHERE project = ?`, project).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Snapshot{}, domain.ErrNotFound{Object: s.path, Key: "snapshot " + project}
	}
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("select snapshot %s: %w", project, err)
	}
	return domain.DecodeSnapshot(payload)
}

// List implements domain.SnapshotStore.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT project FROM snapshots ORDER BY project`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// Delete implements domain.SnapshotStore.
func (s *Store) Delete(ctx context.Context, project string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE project = ?`, project)
	if err != nil {
		return false, fmt.Errorf("delete snapshot %s: %w", project, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }
