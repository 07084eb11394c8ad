package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"

	"expensetracker/internal/cache"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
)

func newTestStore(t *testing.T, opts ...FileStoreOption) *FileStore {
	t.Helper()
	s, err := NewFileStore(t.TempDir(), opts...)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func mustExpense(t *testing.T, amount float64, category, description string, opts ...core.Option) core.Expense {
	t.Helper()
	e, err := core.New(amount, category, description, opts...)
	if err != nil {
		t.Fatalf("new expense: %v", err)
	}
	return e
}

func writeRaw(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func ids(expenses []core.Expense) []string {
	out := make([]string, len(expenses))
	for i, e := range expenses {
		out[i] = e.ID()
	}
	sort.Strings(out)
	return out
}

func TestNewFileStoreCreatesNestedDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "data")
	if _, err := NewFileStore(dir); err != nil {
		t.Fatalf("new store: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("expected directory %s: %v", dir, err)
	}
	// idempotent
	if _, err := NewFileStore(dir); err != nil {
		t.Fatalf("second new store: %v", err)
	}
}

func TestSaveWritesRecordFile(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	e := mustExpense(t, 50.99, "Food", "Lunch", core.WithID("exp_20251221_120000_abc123"))

	path, err := s.Save(ctx, e)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if filepath.Base(path) != "exp_20251221_120000_abc123.json" {
		t.Fatalf("unexpected path %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(fields) != 6 {
		t.Fatalf("expected exactly 6 fields, got %v", fields)
	}
	if fields["id"] != "exp_20251221_120000_abc123" || fields["amount"] != 50.99 || fields["category"] != "Food" {
		t.Fatalf("unexpected record: %v", fields)
	}

	entries, _ := os.ReadDir(s.Dir())
	if len(entries) != 1 {
		t.Fatalf("temp file left behind: %v", entries)
	}
}

func TestSaveThenLoadAllRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	e := mustExpense(t, 75.5, "Entertainment", "Movie tickets")

	if _, err := s.Save(ctx, e); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 || got[0] != e {
		t.Fatalf("expected %+v, got %+v", e.Record(), got)
	}
}

func TestSaveOverwritesSameID(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	if _, err := s.Save(ctx, mustExpense(t, 1, "A", "first", core.WithID("exp_same"))); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := s.Save(ctx, mustExpense(t, 2, "B", "second", core.WithID("exp_same"))); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, _ := s.LoadAll(ctx)
	if len(got) != 1 || got[0].Description() != "second" {
		t.Fatalf("expected overwrite, got %+v", got)
	}
}

func TestLoadAllMultiple(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	for i, id := range []string{"exp_1", "exp_2", "exp_3"} {
		if _, err := s.Save(ctx, mustExpense(t, float64(10*(i+1)), "Food", "x", core.WithID(id))); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	got, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if want := []string{"exp_1", "exp_2", "exp_3"}; strings.Join(ids(got), ",") != strings.Join(want, ",") {
		t.Fatalf("got ids %v want %v", ids(got), want)
	}
}

func TestLoadAllEmpty(t *testing.T) {
	got, err := newTestStore(t).LoadAll(context.Background())
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty, got %v err=%v", got, err)
	}
}

func TestLoadAllSkipsCorruptRecords(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	logger := log.New(log.Config{Component: log.ComponentApp, Output: &buf})
	s := newTestStore(t, WithLogger(logger))

	if _, err := s.Save(ctx, mustExpense(t, 20, "Food", "ok", core.WithID("exp_valid"))); err != nil {
		t.Fatalf("save: %v", err)
	}
	writeRaw(t, s.Dir(), "exp_corrupt.json", "{ this is not json")
	writeRaw(t, s.Dir(), "exp_incomplete.json", `{"id":"exp_incomplete","category":"Food","description":"no amount"}`)
	writeRaw(t, s.Dir(), "exp_negative.json", `{"id":"exp_negative","amount":-5,"category":"Food","description":"bad"}`)

	got, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 || got[0].ID() != "exp_valid" {
		t.Fatalf("expected only exp_valid, got %v", ids(got))
	}
	if n := strings.Count(buf.String(), "Skipping unreadable expense record"); n != 3 {
		t.Fatalf("expected 3 warnings, got %d: %s", n, buf.String())
	}
}

func TestLoadAllIgnoresNonRecordFiles(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	if _, err := s.Save(ctx, mustExpense(t, 5, "Food", "x", core.WithID("exp_a"))); err != nil {
		t.Fatalf("save: %v", err)
	}
	writeRaw(t, s.Dir(), "notes.txt", "hello")
	writeRaw(t, s.Dir(), "other.json", `{"id":"other","amount":1,"category":"a","description":"b"}`)
	writeRaw(t, s.Dir(), "exp_b.txt", `{"id":"exp_b","amount":1,"category":"a","description":"b"}`)
	if err := os.Mkdir(filepath.Join(s.Dir(), "exp_dir.json"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	files, err := s.ListRecordFiles()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 1 || filepath.Base(files[0]) != "exp_a.json" {
		t.Fatalf("unexpected record files: %v", files)
	}
	got, _ := s.LoadAll(ctx)
	if len(got) != 1 {
		t.Fatalf("expected 1 expense, got %d", len(got))
	}
}

func TestListRecordFilesMissingDirectory(t *testing.T) {
	s := newTestStore(t)
	if err := os.RemoveAll(s.Dir()); err != nil {
		t.Fatalf("remove: %v", err)
	}
	files, err := s.ListRecordFiles()
	if err != nil || len(files) != 0 {
		t.Fatalf("expected no files, got %v err=%v", files, err)
	}
}

func TestDeleteByID(t *testing.T) {
	ctx := context.Background()
	for _, tc := range []struct {
		name  string
		index cache.Cache[string]
	}{
		{"with index", cache.NewLRUCache[string](16, 0)},
		{"without index", cache.Nop[string]{}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestStore(t, WithIndex(tc.index))
			for _, id := range []string{"exp_1", "exp_2", "exp_3"} {
				if _, err := s.Save(ctx, mustExpense(t, 1, "Food", "x", core.WithID(id))); err != nil {
					t.Fatalf("save: %v", err)
				}
			}

			deleted, err := s.DeleteByID(ctx, "exp_2")
			if err != nil || !deleted {
				t.Fatalf("expected delete, got %v err=%v", deleted, err)
			}
			got, _ := s.LoadAll(ctx)
			if strings.Join(ids(got), ",") != "exp_1,exp_3" {
				t.Fatalf("unexpected remaining ids %v", ids(got))
			}

			deleted, err = s.DeleteByID(ctx, "exp_missing")
			if err != nil || deleted {
				t.Fatalf("expected no delete, got %v err=%v", deleted, err)
			}
			if got, _ := s.LoadAll(ctx); len(got) != 2 {
				t.Fatalf("store changed on missed delete: %v", ids(got))
			}
		})
	}
}

func TestDeleteByIDToleratesCorruptFiles(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, WithIndex(cache.Nop[string]{}))
	writeRaw(t, s.Dir(), "exp_broken.json", "not json at all")
	writeRaw(t, s.Dir(), "exp_noid.json", `{"amount":1,"category":"a","description":"b"}`)

	deleted, err := s.DeleteByID(ctx, "exp_target")
	if err != nil || deleted {
		t.Fatalf("expected false without error, got %v err=%v", deleted, err)
	}

	writeRaw(t, s.Dir(), "exp_renamed.json", `{"id":"exp_target","amount":1,"category":"a","description":"b"}`)
	deleted, err = s.DeleteByID(ctx, "exp_target")
	if err != nil || !deleted {
		t.Fatalf("expected match by id field, got %v err=%v", deleted, err)
	}
	if _, err := os.Stat(filepath.Join(s.Dir(), "exp_renamed.json")); !os.IsNotExist(err) {
		t.Fatalf("expected file removed, stat err=%v", err)
	}
}

func TestDeleteByIDStaleIndexFallsBackToScan(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	e := mustExpense(t, 1, "Food", "x", core.WithID("exp_moved"))
	path, err := s.Save(ctx, e)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	moved := filepath.Join(s.Dir(), "exp_elsewhere.json")
	if err := os.Rename(path, moved); err != nil {
		t.Fatalf("rename: %v", err)
	}

	deleted, err := s.DeleteByID(ctx, "exp_moved")
	if err != nil || !deleted {
		t.Fatalf("expected delete via scan, got %v err=%v", deleted, err)
	}
	if _, err := os.Stat(moved); !os.IsNotExist(err) {
		t.Fatalf("expected moved file removed, stat err=%v", err)
	}
}

func TestSaveRejectsUnstorableIDs(t *testing.T) {
	tests := []struct {
		name string
		id   string
	}{
		{"missing prefix", "food1"},
		{"parent directory", "../x"},
		{"prefixed parent directory", "../exp_x"},
		{"subdirectory", "a/b"},
		{"prefixed subdirectory", "exp_a/b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			s, err := NewFileStore(filepath.Join(root, "data"))
			if err != nil {
				t.Fatalf("new store: %v", err)
			}

			path, err := s.Save(context.Background(), mustExpense(t, 1, "Food", "x", core.WithID(tt.id)))
			if !errors.Is(err, core.ErrMalformedRecord) {
				t.Fatalf("Save(%q) = %q, %v, want ErrMalformedRecord", tt.id, path, err)
			}

			rootEntries, _ := os.ReadDir(root)
			dataEntries, _ := os.ReadDir(s.Dir())
			if len(rootEntries) != 1 || len(dataEntries) != 0 {
				t.Errorf("files written for rejected id: root=%v data=%v", rootEntries, dataEntries)
			}
		})
	}
}

func TestSaveAcceptsGeneratedAndPrefixedIDs(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	for _, e := range []core.Expense{
		mustExpense(t, 1, "Food", "generated"),
		mustExpense(t, 2, "Food", "caller id", core.WithID("exp_1")),
	} {
		if _, err := s.Save(ctx, e); err != nil {
			t.Fatalf("Save(%q) error = %v", e.ID(), err)
		}
		if deleted, err := s.DeleteByID(ctx, e.ID()); err != nil || !deleted {
			t.Errorf("DeleteByID(%q) = %v, %v", e.ID(), deleted, err)
		}
	}
}

func TestSaveFailsOnUnwritableDirectory(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}
	s := newTestStore(t)
	if err := os.Chmod(s.Dir(), 0o500); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	t.Cleanup(func() { os.Chmod(s.Dir(), 0o755) })

	_, err := s.Save(context.Background(), mustExpense(t, 1, "Food", "x"))
	if !errors.Is(err, core.ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
}
