// Package archive exports project snapshots to a blob store as one
// MessagePack object per phase or physics region plus a manifest, and reads
// them back.
//
// Layout:
//
//	snapshots/<project>/<archive-id>/manifest.msgpack
//	snapshots/<project>/<archive-id>/objects/<object>.msgpack
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/errgroup"

	"porenet/internal/blob"
	"porenet/pkg/domain"
)

const (
	rootPrefix   = "snapshots"
	manifestName = "manifest.msgpack"
	contentType  = "application/msgpack"
)

// Entry describes one archived object.
type Entry struct {
	Name string            `msgpack:"name"`
	Kind domain.ObjectKind `msgpack:"kind"`
	Key  string            `msgpack:"key"`
	Size int64             `msgpack:"size"`
}

// Manifest lists the objects of one archive.
type Manifest struct {
	ID         string    `msgpack:"id"`
	Project    string    `msgpack:"project"`
	Network    string    `msgpack:"network"`
	TakenAt    time.Time `msgpack:"taken_at"`
	ArchivedAt time.Time `msgpack:"archived_at"`
	Objects    []Entry   `msgpack:"objects"`
}

// Archiver writes and reads archives in a blob store.
type Archiver struct {
	store   blob.Store
	workers int
	now     func() time.Time
}

// Option customises an Archiver.
type Option func(*Archiver)

// WithWorkers bounds the number of concurrent blob transfers.
func WithWorkers(n int) Option {
	return func(a *Archiver) {
		if n > 0 {
			a.workers = n
		}
	}
}

// WithClock overrides the archive timestamp source.
func WithClock(now func() time.Time) Option {
	return func(a *Archiver) {
		if now != nil {
			a.now = now
		}
	}
}

// New constructs an Archiver over store.
func New(store blob.Store, opts ...Option) *Archiver {
	a := &Archiver{store: store, workers: 4, now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func archivePrefix(project, id string) string {
	return path.Join(rootPrefix, project, id) + "/"
}

// Export uploads snap under a fresh archive id. Objects are uploaded
// concurrently; the manifest is written last, so an archive without a
// manifest is incomplete and ignored by List.
func (a *Archiver) Export(ctx context.Context, snap domain.Snapshot) (Manifest, error) {
	if snap.Project == "" || strings.Contains(snap.Project, "/") {
		return Manifest{}, domain.ErrInvalidArgument{Argument: "project", Reason: fmt.Sprintf("%q cannot name an archive", snap.Project)}
	}
	m := Manifest{
		ID:         uuid.NewString(),
		Project:    snap.Project,
		Network:    snap.Network,
		TakenAt:    snap.TakenAt,
		ArchivedAt: a.now(),
		Objects:    make([]Entry, len(snap.Objects)),
	}
	prefix := archivePrefix(m.Project, m.ID)

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(a.workers)
	for i, obj := range snap.Objects {
		i, obj := i, obj
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := domain.EncodeObject(obj)
			if err != nil {
				return fmt.Errorf("encode %s: %w", obj.Name, err)
			}
			key := prefix + "objects/" + obj.Name + ".msgpack"
			info, err := a.store.Put(ctx, key, bytes.NewReader(data), blob.PutOptions{
				ContentType: contentType,
				Metadata:    map[string]string{"kind": string(obj.Kind)},
			})
			if err != nil {
				return fmt.Errorf("upload %s: %w", obj.Name, err)
			}
			m.Objects[i] = Entry{Name: obj.Name, Kind: obj.Kind, Key: key, Size: info.Size}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return Manifest{}, err
	}

	data, err := msgpack.Marshal(m)
	if err != nil {
		return Manifest{}, fmt.Errorf("encode manifest: %w", err)
	}
	if _, err := a.store.Put(ctx, prefix+manifestName, bytes.NewReader(data), blob.PutOptions{ContentType: contentType}); err != nil {
		return Manifest{}, fmt.Errorf("upload manifest: %w", err)
	}
	return m, nil
}

// Manifest reads the manifest of an archive.
func (a *Archiver) Manifest(ctx context.Context, project, id string) (Manifest, error) {
	data, err := a.read(ctx, archivePrefix(project, id)+manifestName)
	if err != nil {
		if errors.Is(err, blob.ErrNotExist) {
			return Manifest{}, domain.ErrNotFound{Object: project, Key: "archive " + id}
		}
		return Manifest{}, err
	}
	var m Manifest
	if err := msgpack.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest %s: %w", id, err)
	}
	return m, nil
}

// Import downloads an archive and reassembles its snapshot.
func (a *Archiver) Import(ctx context.Context, project, id string) (domain.Snapshot, error) {
	m, err := a.Manifest(ctx, project, id)
	if err != nil {
		return domain.Snapshot{}, err
	}
	objects := make([]domain.ObjectSnapshot, len(m.Objects))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(a.workers)
	for i, entry := range m.Objects {
		i, entry := i, entry
		eg.Go(func() error {
			data, err := a.read(ctx, entry.Key)
			if err != nil {
				return fmt.Errorf("download %s: %w", entry.Name, err)
			}
			obj, err := domain.DecodeObject(data)
			if err != nil {
				return err
			}
			objects[i] = obj
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return domain.Snapshot{}, err
	}
	snap := domain.Snapshot{Project: m.Project, Network: m.Network, TakenAt: m.TakenAt, Objects: objects}
	return snap.Sorted(), nil
}

// List returns the complete archives of project, newest first.
func (a *Archiver) List(ctx context.Context, project string) ([]Manifest, error) {
	infos, err := a.store.List(ctx, path.Join(rootPrefix, project)+"/")
	if err != nil {
		return nil, err
	}
	var out []Manifest
	for _, info := range infos {
		rest := strings.TrimPrefix(info.Key, path.Join(rootPrefix, project)+"/")
		id, name, ok := strings.Cut(rest, "/")
		if !ok || name != manifestName {
			continue
		}
		m, err := a.Manifest(ctx, project, id)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ArchivedAt.After(out[j].ArchivedAt) })
	return out, nil
}

// Delete removes every blob of an archive, manifest first.
func (a *Archiver) Delete(ctx context.Context, project, id string) (bool, error) {
	prefix := archivePrefix(project, id)
	removed, err := a.store.Delete(ctx, prefix+manifestName)
	if err != nil {
		return false, err
	}
	infos, err := a.store.List(ctx, prefix)
	if err != nil {
		return removed, err
	}
	for _, info := range infos {
		ok, err := a.store.Delete(ctx, info.Key)
		if err != nil {
			return removed, err
		}
		removed = removed || ok
	}
	return removed, nil
}

func (a *Archiver) read(ctx context.Context, key string) ([]byte, error) {
	_, rc, err := a.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}
