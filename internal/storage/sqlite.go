package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"expensetracker/internal/core"
	"expensetracker/internal/log"

	_ "modernc.org/sqlite"
)

const (
	upsertExpenseSQL = `INSERT INTO expenses (id, amount, category, description, date, created_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    amount = excluded.amount,
    category = excluded.category,
    description = excluded.description,
    date = excluded.date,
    created_at = excluded.created_at`
	selectExpensesSQL = `SELECT id, amount, category, description, date, created_at FROM expenses`
	deleteExpenseSQL  = `DELETE FROM expenses WHERE id = ?`
)

// SQLiteRepository stores expenses in a single SQLite table. It follows the
// same contract as FileStore: saves overwrite by id and rows that do not form
// a valid expense are skipped on load.
type SQLiteRepository struct {
	db      *sql.DB
	logger  *log.Logger
	factory *core.Factory
}

var _ Repository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if logger == nil {
		logger = log.Discard()
	}

	return &SQLiteRepository{
		db:      db,
		logger:  logger.WithComponent(log.ComponentStorage),
		factory: core.NewFactory(),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Save upserts the expense and returns its id as the row reference.
func (r *SQLiteRepository) Save(ctx context.Context, e core.Expense) (string, error) {
	rec := e.Record()
	_, err := r.db.ExecContext(ctx, upsertExpenseSQL,
		rec.ID, rec.Amount, rec.Category, rec.Description, rec.Date, rec.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("%w: save expense %s: %w", core.ErrIO, rec.ID, err)
	}

	r.logger.DebugContext(ctx, "Expense saved to SQLite",
		log.FieldExpenseID, rec.ID,
		log.FieldAmount, rec.Amount,
		log.FieldCategory, rec.Category)

	return rec.ID, nil
}

// LoadAll returns every row that forms a valid expense.
func (r *SQLiteRepository) LoadAll(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, selectExpensesSQL)
	if err != nil {
		return nil, fmt.Errorf("%w: query expenses: %w", core.ErrIO, err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		var rec core.Record
		if err := rows.Scan(&rec.ID, &rec.Amount, &rec.Category, &rec.Description, &rec.Date, &rec.CreatedAt); err != nil {
			r.logger.WarnContext(ctx, "Skipping unreadable expense row", log.FieldError, err)
			continue
		}
		e, err := r.factory.FromRecord(rec)
		if err != nil {
			r.logger.WarnContext(ctx, "Skipping invalid expense row",
				log.FieldExpenseID, rec.ID,
				log.FieldError, err)
			continue
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate expenses: %w", core.ErrIO, err)
	}
	return expenses, nil
}

// DeleteByID removes the row with the given id.
func (r *SQLiteRepository) DeleteByID(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, deleteExpenseSQL, id)
	if err != nil {
		return false, fmt.Errorf("%w: delete expense %s: %w", core.ErrIO, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: delete expense %s: %w", core.ErrIO, id, err)
	}
	if n > 0 {
		r.logger.DebugContext(ctx, "Expense deleted from SQLite", log.FieldExpenseID, id)
	}
	return n > 0, nil
}
