package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"expensetracker/internal/cache"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
)

// RecordExt is the extension of every record file.
const RecordExt = ".json"

// FileStore keeps one JSON file per expense, named <id>.json, in a single
// directory. The directory is the whole persisted state.
//
// Every operation is a synchronous scan of the directory and there is no
// locking: two processes working on the same directory can race (a reader may
// see a file mid-rename, two deleters may target the same file). The context
// only carries logging values; file operations are not cancelled.
type FileStore struct {
	dir     string
	logger  *log.Logger
	factory *core.Factory
	index   cache.Cache[string]
}

var _ Repository = (*FileStore)(nil)

// FileStoreOption configures a FileStore.
type FileStoreOption func(*FileStore)

// WithLogger sets the sink for warnings about skipped records.
func WithLogger(l *log.Logger) FileStoreOption {
	return func(s *FileStore) {
		if l != nil {
			s.logger = l.WithComponent(log.ComponentStorage)
		}
	}
}

// WithFactory sets the factory used to rebuild expenses from disk.
func WithFactory(f *core.Factory) FileStoreOption {
	return func(s *FileStore) {
		if f != nil {
			s.factory = f
		}
	}
}

// WithIndex replaces the id to path index. Pass cache.Nop to disable it.
func WithIndex(c cache.Cache[string]) FileStoreOption {
	return func(s *FileStore) {
		if c != nil {
			s.index = c
		}
	}
}

// NewFileStore ensures dir exists, creating parents as needed.
func NewFileStore(dir string, opts ...FileStoreOption) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create data directory %s: %w", core.ErrIO, dir, err)
	}

	s := &FileStore{
		dir:     dir,
		logger:  log.Discard().WithComponent(log.ComponentStorage),
		factory: core.NewFactory(),
		index:   cache.NewLRUCache[string](4096, 30*time.Minute),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the data directory.
func (s *FileStore) Dir() string { return s.dir }

// Close is a no-op; it lets FileStore stand in for any Repository.
func (s *FileStore) Close() error { return nil }

// Save writes the expense to <dir>/<id>.json and returns that path. An
// existing file with the same id is replaced. Ids that would not be found
// again by ListRecordFiles, or that leave the directory, are
// ErrMalformedRecord.
func (s *FileStore) Save(ctx context.Context, e core.Expense) (string, error) {
	if !ValidRecordID(e.ID()) {
		return "", fmt.Errorf("%w: id %q cannot name a record file", core.ErrMalformedRecord, e.ID())
	}
	path := filepath.Join(s.dir, e.ID()+RecordExt)

	data, err := json.MarshalIndent(e.Record(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode expense %s: %w", e.ID(), err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return "", fmt.Errorf("%w: write %s: %w", core.ErrIO, path, err)
	}
	s.index.Set(e.ID(), path)

	s.logger.DebugContext(ctx, "Expense saved",
		log.FieldExpenseID, e.ID(),
		log.FieldPath, path)
	return path, nil
}

// LoadAll parses every record file. Files that cannot be read or decoded, or
// that hold an invalid expense, are skipped with a warning. The order is the
// directory listing order.
func (s *FileStore) LoadAll(ctx context.Context) ([]core.Expense, error) {
	paths, err := s.ListRecordFiles()
	if err != nil {
		return nil, err
	}

	// a full scan rebuilds the index from what is on disk
	s.index.Purge()
	expenses := make([]core.Expense, 0, len(paths))
	for _, path := range paths {
		e, err := s.readExpense(path)
		if err != nil {
			s.logger.WarnContext(ctx, "Skipping unreadable expense record",
				log.FieldPath, filepath.Base(path),
				log.FieldError, err)
			continue
		}
		s.index.Set(e.ID(), path)
		expenses = append(expenses, e)
	}
	return expenses, nil
}

// DeleteByID removes the first record file whose id field equals id. It
// reports false when no file matched. Files that cannot be parsed never
// match. Only a failure to remove the matched file is an error.
func (s *FileStore) DeleteByID(ctx context.Context, id string) (bool, error) {
	if path, ok := s.index.Get(id); ok {
		if s.recordID(path) == id {
			return true, s.remove(ctx, id, path)
		}
		s.index.Delete(id)
	}

	paths, err := s.ListRecordFiles()
	if err != nil {
		return false, err
	}
	for _, path := range paths {
		if s.recordID(path) != id {
			continue
		}
		return true, s.remove(ctx, id, path)
	}
	return false, nil
}

// ListRecordFiles returns the paths of regular files named exp_*.json.
// A missing directory yields no files.
func (s *FileStore) ListRecordFiles() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: read directory %s: %w", core.ErrIO, s.dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !IsRecordFileName(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(s.dir, entry.Name()))
	}
	return paths, nil
}

// IsRecordFileName reports whether name follows the exp_<...>.json convention.
func IsRecordFileName(name string) bool {
	return strings.HasPrefix(name, core.IDPrefix) && filepath.Ext(name) == RecordExt
}

// ValidRecordID reports whether id can be stored as <id>.json in a single
// directory and listed again.
func ValidRecordID(id string) bool {
	return filepath.Base(id) == id && IsRecordFileName(id+RecordExt)
}

func (s *FileStore) readExpense(path string) (core.Expense, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.Expense{}, fmt.Errorf("%w: %v", core.ErrMalformedRecord, err)
	}
	return s.factory.Decode(data)
}

// recordID decodes only the id field; any failure yields "".
func (s *FileStore) recordID(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	var rec struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return ""
	}
	return rec.ID
}

func (s *FileStore) remove(ctx context.Context, id, path string) error {
	s.index.Delete(id)
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("%w: remove %s: %w", core.ErrIO, path, err)
	}
	s.logger.DebugContext(ctx, "Expense deleted",
		log.FieldExpenseID, id,
		log.FieldPath, path)
	return nil
}

// writeFileAtomic writes to a hidden temp file next to path and renames it
// into place, so a failed write never leaves a truncated record behind.
func writeFileAtomic(path string, data []byte) error {
	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".tmp")

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
