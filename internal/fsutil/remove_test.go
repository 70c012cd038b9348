// SPDX-License-Identifier: MPL-2.0

package fsutil

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestRemover(attempts int) *Remover {
	r := NewRemover(attempts, time.Millisecond)
	r.sleepFn = func(time.Duration) {}
	return r
}

func TestRemover_MissingPathIsSuccess(t *testing.T) {
	t.Parallel()

	r := newTestRemover(3)
	calls := 0
	r.removeFn = func(string) error {
		calls++
		return nil
	}

	if err := r.Remove(filepath.Join(t.TempDir(), "does-not-exist")); err != nil {
		t.Fatalf("Remove() on missing path returned %v", err)
	}
	if calls != 0 {
		t.Errorf("remove was called %d times for a missing path, want 0", calls)
	}
}

func TestRemover_RemovesFileAndTree(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "single.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	tree := filepath.Join(dir, "tree")
	if err := os.MkdirAll(filepath.Join(tree, "a", "b"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tree, "a", "b", "c.bin"), []byte("y"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := newTestRemover(DefaultMaxAttempts)
	if errs := r.RemoveAll(file, tree); len(errs) != 0 {
		t.Fatalf("RemoveAll() returned %v", errs)
	}
	for _, p := range []string{file, tree} {
		if _, err := os.Stat(p); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("%s still exists after removal", p)
		}
	}
}

func TestRemover_SucceedsOnAttemptN(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		maxAttempts int
		succeedOn   int
	}{
		{name: "first attempt", maxAttempts: 5, succeedOn: 1},
		{name: "third attempt", maxAttempts: 5, succeedOn: 3},
		{name: "last attempt", maxAttempts: 4, succeedOn: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "locked")
			if err := os.WriteFile(path, []byte("busy"), 0o644); err != nil {
				t.Fatal(err)
			}

			r := newTestRemover(tt.maxAttempts)
			calls := 0
			r.removeFn = func(p string) error {
				calls++
				if calls < tt.succeedOn {
					return errors.New("sharing violation")
				}
				return os.RemoveAll(p)
			}

			if err := r.Remove(path); err != nil {
				t.Fatalf("Remove() = %v, want nil", err)
			}
			if calls != tt.succeedOn {
				t.Errorf("remove called %d times, want %d", calls, tt.succeedOn)
			}
		})
	}
}

func TestRemover_ExhaustedBudget(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "stuck")
	if err := os.WriteFile(path, []byte("held"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := newTestRemover(3)
	calls := 0
	sleeps := 0
	r.sleepFn = func(time.Duration) { sleeps++ }
	r.removeFn = func(string) error {
		calls++
		return errors.New("access denied")
	}

	err := r.Remove(path)
	if err == nil {
		t.Fatal("Remove() = nil, want contention error")
	}
	if !errors.Is(err, ErrFilesystemContention) {
		t.Errorf("error does not wrap ErrFilesystemContention: %v", err)
	}
	var contention *FilesystemContentionError
	if !errors.As(err, &contention) {
		t.Fatalf("error is %T, want *FilesystemContentionError", err)
	}
	if contention.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", contention.Attempts)
	}
	if !strings.Contains(err.Error(), "access denied") {
		t.Errorf("error message %q does not mention the last failure", err.Error())
	}
	if calls != 3 {
		t.Errorf("remove called %d times, want 3", calls)
	}
	if sleeps != 2 {
		t.Errorf("slept %d times, want 2 (no sleep after the final attempt)", sleeps)
	}
	if _, statErr := os.Stat(path); statErr != nil {
		t.Errorf("path should still exist: %v", statErr)
	}
}

func TestRemoveWithRetry(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "scratch")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}

	if !RemoveWithRetry(dir, 2) {
		t.Fatal("RemoveWithRetry() = false, want true")
	}
	if !RemoveWithRetry(dir, 2) {
		t.Fatal("RemoveWithRetry() on an already removed path = false, want true")
	}
}

func TestWriteFileAtomic(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dest := filepath.Join(dir, "out.bin")

	err := WriteFileAtomic(dest, 0o644, func(w io.Writer) error {
		_, err := w.Write([]byte("payload"))
		return err
	})
	if err != nil {
		t.Fatalf("WriteFileAtomic() = %v", err)
	}
	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "payload" {
		t.Errorf("content = %q, want %q", got, "payload")
	}

	boom := errors.New("boom")
	err = WriteFileAtomic(filepath.Join(dir, "failed.bin"), 0o644, func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WriteFileAtomic() = %v, want %v", err, boom)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "out.bin" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("directory contains %v, want only out.bin", names)
	}
}

func TestCopyFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "src.bsp")
	dst := filepath.Join(dir, "dst.bsp")
	if err := os.WriteFile(src, []byte("level data"), 0o644); err != nil {
		t.Fatal(err)
	}
	mtime := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := os.Chtimes(src, mtime, mtime); err != nil {
		t.Fatal(err)
	}

	if err := CopyFile(src, dst); err != nil {
		t.Fatalf("CopyFile() = %v", err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "level data" {
		t.Errorf("content = %q", got)
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(mtime) {
		t.Errorf("mtime = %v, want %v", info.ModTime(), mtime)
	}
}
