package fs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"porenet/internal/blob/core"
)

func TestFilesystemLifecycle(t *testing.T) {
	ctx := context.Background()
	store, err := New(filepath.Join(t.TempDir(), "blobs"))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if store.Driver() != core.DriverFilesystem {
		t.Fatalf("unexpected driver %s", store.Driver())
	}
	info, err := store.Put(ctx, "snapshots/p/1/air", bytes.NewReader([]byte("payload")), core.PutOptions{
		ContentType: "application/msgpack",
		Metadata:    map[string]string{"kind": "phase"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 7 || info.ETag == "" {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := store.Put(ctx, "snapshots/p/1/air", bytes.NewReader(nil), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}

	got, rc, err := store.Get(ctx, "snapshots/p/1/air")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "payload" || got.Metadata["kind"] != "phase" || got.ContentType != "application/msgpack" {
		t.Fatalf("unexpected get %+v %q", got, data)
	}

	if _, err := store.Put(ctx, "snapshots/q/1/air", bytes.NewReader([]byte("x")), core.PutOptions{}); err != nil {
		t.Fatalf("put second: %v", err)
	}
	infos, err := store.List(ctx, "snapshots/p/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 1 || infos[0].Key != "snapshots/p/1/air" {
		t.Fatalf("unexpected listing %+v", infos)
	}

	ok, err := store.Delete(ctx, "snapshots/p/1/air")
	if err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if _, err := store.Head(ctx, "snapshots/p/1/air"); !errors.Is(err, core.ErrNotExist) {
		t.Fatalf("expected ErrNotExist after delete, got %v", err)
	}
	if _, _, err := store.Get(ctx, "snapshots/p/1/air"); !errors.Is(err, core.ErrNotExist) {
		t.Fatalf("expected ErrNotExist from get, got %v", err)
	}
	if ok, _ := store.Delete(ctx, "snapshots/p/1/air"); ok {
		t.Fatalf("second delete should report false")
	}
}

func TestSanitizeKeyRejectsTraversal(t *testing.T) {
	for _, key := range []string{"", "  ", "../escape", "/abs", "a/../../b", "x.meta"} {
		if _, err := sanitizeKey(key); err == nil {
			t.Fatalf("expected %q to be rejected", key)
		}
	}
	if k, err := sanitizeKey("a//b/c"); err != nil || k != "a/b/c" {
		t.Fatalf("unexpected clean key %q %v", k, err)
	}
}
