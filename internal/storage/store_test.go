package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestStorePutAndOpen(t *testing.T) {
	store := newTestStore(t)
	locator := Locator{Folder: "photos/2024", Name: "cat.webp"}

	payload := []byte("payload")
	entry, err := store.Put(context.Background(), locator, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("put error: %v", err)
	}
	if entry.SizeBytes != int64(len(payload)) {
		t.Fatalf("size mismatch: %d", entry.SizeBytes)
	}
	if want := filepath.Join(store.Root(), "photos", "2024", "cat.webp"); entry.FilePath != want {
		t.Fatalf("unexpected file path %s, want %s", entry.FilePath, want)
	}

	result, err := store.Open(context.Background(), locator)
	if err != nil {
		t.Fatalf("open error: %v", err)
	}
	defer result.Reader.Close()

	body, err := io.ReadAll(result.Reader)
	if err != nil {
		t.Fatalf("read body error: %v", err)
	}
	if string(body) != string(payload) {
		t.Fatalf("payload mismatch: %s", string(body))
	}
}

func TestStoreOpenMissing(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Open(context.Background(), Locator{Folder: "photos", Name: "missing.jpg"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreIgnoresDirectories(t *testing.T) {
	store := newTestStore(t)
	if err := os.MkdirAll(filepath.Join(store.Root(), "photos", "album"), 0o755); err != nil {
		t.Fatalf("mkdir error: %v", err)
	}
	_, err := store.Open(context.Background(), Locator{Folder: "photos", Name: "album"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for directory, got %v", err)
	}
}

func TestStoreRejectsEscapingPaths(t *testing.T) {
	store := newTestStore(t)
	cases := []Locator{
		{Folder: "photos", Name: "../secret"},
		{Folder: "photos", Name: ""},
		{Folder: "photos", Name: "a/b.png"},
	}
	for _, locator := range cases {
		if _, err := store.Open(context.Background(), locator); !errors.Is(err, ErrInvalidPath) {
			t.Fatalf("locator %+v expected ErrInvalidPath, got %v", locator, err)
		}
	}

	// Folder 中的 .. 会被 Clean 折叠在根目录内，不会逃逸。
	fs := store.(*fileStore)
	p, err := fs.entryPath(Locator{Folder: "../../etc", Name: "passwd"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Dir(p) != filepath.Join(store.Root(), "etc") {
		t.Fatalf("folder should stay under root, got %s", p)
	}
}

func TestStorePutCancelledLeavesNoFile(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	locator := Locator{Folder: "photos", Name: "cancelled.webp"}
	if _, err := store.Put(ctx, locator, bytes.NewReader([]byte("data"))); err == nil {
		t.Fatalf("cancelled put should fail")
	}
	if _, err := store.Open(context.Background(), locator); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cancelled put must not leave a file, got %v", err)
	}
	leftovers, _ := filepath.Glob(filepath.Join(store.Root(), "photos", ".upload-*"))
	if len(leftovers) != 0 {
		t.Fatalf("temp files should be cleaned: %v", leftovers)
	}
}

// newTestStore returns a Store backed by a temporary directory.
func newTestStore(t *testing.T) Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}
