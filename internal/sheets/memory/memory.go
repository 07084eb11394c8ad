package memory

import (
	"context"
	"fmt"
	"sync"

	"expensetracker/internal/core"
	ports "expensetracker/internal/sheets"
)

// Store is an in-process sheet. Rows are never removed; a delete clears
// the row the way the Google client does.
type Store struct {
	mu   sync.Mutex
	rows [][]any
}

var _ ports.Sheet = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// Append stores the expense row and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, e core.Expense) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, ports.Row(e))
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// ListIDs returns the ids of rows that have not been cleared.
func (s *Store) ListIDs(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, row := range s.rows {
		if row != nil {
			out = append(out, idOf(row))
		}
	}
	return out, nil
}

// DeleteByID clears the first row holding id.
func (s *Store) DeleteByID(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, row := range s.rows {
		if row != nil && idOf(row) == id {
			s.rows[i] = nil
			return true, nil
		}
	}
	return false, nil
}

// Rows returns a copy of the stored rows, cleared rows included as nil.
func (s *Store) Rows() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]any(nil), s.rows...)
}

func idOf(row []any) string {
	return fmt.Sprint(row[len(row)-1])
}
