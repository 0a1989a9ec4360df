package tiered

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTempFileStore(t *testing.T) Store {
	t.Helper()
	store, err := newFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("file store failed: %v", err)
	}
	return store
}

func TestFileStoreSetGetDelete(t *testing.T) {
	store := newTempFileStore(t)
	ctx := context.Background()

	body := []byte("hello")
	if err := store.Set(ctx, "alpha", body); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	body[0] = 'x' // ensure clone

	got, ok, err := store.Get(ctx, "alpha")
	if err != nil || !ok || string(got) != "hello" {
		t.Fatalf("unexpected get: ok=%v err=%v val=%s", ok, err, string(got))
	}

	if err := store.Delete(ctx, "alpha"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	_, ok, err = store.Get(ctx, "alpha")
	if err != nil {
		t.Fatalf("get after delete failed: %v", err)
	}
	if ok {
		t.Fatalf("expected missing after delete")
	}
	if err := store.Delete(ctx, "alpha"); err != nil {
		t.Fatalf("delete missing failed: %v", err)
	}
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	first, err := newFileStore(dir)
	if err != nil {
		t.Fatalf("file store failed: %v", err)
	}
	if err := first.Set(ctx, "slot", []byte("kept")); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if _, err := first.Increment(ctx, "n", 4); err != nil {
		t.Fatalf("increment failed: %v", err)
	}

	second, err := newFileStore(dir)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if got, ok, err := second.Get(ctx, "slot"); err != nil || !ok || string(got) != "kept" {
		t.Fatalf("unexpected get after reopen: ok=%v err=%v val=%s", ok, err, got)
	}
	if v, err := second.Increment(ctx, "n", 1); err != nil || v != 5 {
		t.Fatalf("expected counter to continue, v=%d err=%v", v, err)
	}
}

func TestFileStoreIncrementNonNumeric(t *testing.T) {
	store := newTempFileStore(t)
	ctx := context.Background()
	_ = store.Set(ctx, "bad", []byte("x"))
	if _, err := store.Increment(ctx, "bad", 1); err == nil {
		t.Fatalf("expected non-numeric increment error")
	}
}

func TestFileStoreCorruptSlotIsRemoved(t *testing.T) {
	store := newTempFileStore(t)
	ctx := context.Background()
	fs := store.(*fileStore)

	if err := os.WriteFile(fs.path("slot"), []byte("garbage"), 0o644); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if _, _, err := store.Get(ctx, "slot"); !errors.Is(err, ErrCorruptSlotFile) {
		t.Fatalf("expected ErrCorruptSlotFile, got %v", err)
	}
	if _, err := os.Stat(fs.path("slot")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected corrupt file removed, stat err=%v", err)
	}
	if _, ok, err := store.Get(ctx, "slot"); err != nil || ok {
		t.Fatalf("expected absent after removal, ok=%v err=%v", ok, err)
	}
}

func TestFileStoreCreateTempFailure(t *testing.T) {
	store := newTempFileStore(t)
	boom := errors.New("no temp")
	orig := createTempFile
	createTempFile = func(string, string) (*os.File, error) { return nil, boom }
	t.Cleanup(func() { createTempFile = orig })

	if err := store.Set(context.Background(), "k", []byte("v")); !errors.Is(err, boom) {
		t.Fatalf("expected temp file error, got %v", err)
	}
}

func TestFileStoreRenameFailureCleansUp(t *testing.T) {
	dir := t.TempDir()
	store, err := newFileStore(dir)
	if err != nil {
		t.Fatalf("file store failed: %v", err)
	}
	boom := errors.New("no rename")
	orig := renameFile
	renameFile = func(string, string) error { return boom }
	t.Cleanup(func() { renameFile = orig })

	if err := store.Set(context.Background(), "k", []byte("v")); !errors.Is(err, boom) {
		t.Fatalf("expected rename error, got %v", err)
	}
	leftovers, _ := filepath.Glob(filepath.Join(dir, "slot-*"))
	if len(leftovers) != 0 {
		t.Fatalf("expected temp files removed, found %v", leftovers)
	}
}

func TestFileStoreDirectoryError(t *testing.T) {
	parent := t.TempDir()
	blocker := filepath.Join(parent, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if _, err := newFileStore(filepath.Join(blocker, "slots")); err == nil {
		t.Fatalf("expected directory creation error")
	}
}
