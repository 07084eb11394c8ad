package storage

import (
	"context"

	"expensetracker/internal/core"
)

// Repository is the persistence contract shared by the file store and the
// SQLite backend.
type Repository interface {
	// Save persists the expense and returns its location (file path or row key).
	Save(ctx context.Context, e core.Expense) (string, error)
	// LoadAll returns every readable expense; unreadable records are skipped.
	LoadAll(ctx context.Context) ([]core.Expense, error)
	// DeleteByID removes the expense with the given id, reporting whether one existed.
	DeleteByID(ctx context.Context, id string) (bool, error)
	Close() error
}
