package storage

import (
	"context"
	"path/filepath"
	"testing"

	"expensetracker/internal/core"
)

func newTestSQLite(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "db", "expenses.db"), nil)
	if err != nil {
		t.Fatalf("new sqlite repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepositorySaveLoadDelete(t *testing.T) {
	ctx := context.Background()
	repo := newTestSQLite(t)

	a := mustExpense(t, 12.5, "Food", "Lunch", core.WithID("exp_a"), core.WithDate("2025-01-02"))
	b := mustExpense(t, 3, "Transport", "Bus", core.WithID("exp_b"))

	for _, e := range []core.Expense{a, b} {
		ref, err := repo.Save(ctx, e)
		if err != nil {
			t.Fatalf("save: %v", err)
		}
		if ref != e.ID() {
			t.Fatalf("expected ref %s, got %s", e.ID(), ref)
		}
	}

	got, err := repo.LoadAll(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 expenses, got %d", len(got))
	}
	for _, e := range got {
		if e.ID() == "exp_a" && e != a {
			t.Fatalf("round trip mismatch: %+v vs %+v", e.Record(), a.Record())
		}
	}

	deleted, err := repo.DeleteByID(ctx, "exp_a")
	if err != nil || !deleted {
		t.Fatalf("expected delete, got %v err=%v", deleted, err)
	}
	deleted, err = repo.DeleteByID(ctx, "exp_a")
	if err != nil || deleted {
		t.Fatalf("expected second delete to miss, got %v err=%v", deleted, err)
	}
	if got, _ := repo.LoadAll(ctx); len(got) != 1 || got[0].ID() != "exp_b" {
		t.Fatalf("unexpected remaining rows: %v", ids(got))
	}
}

func TestSQLiteRepositorySaveOverwrites(t *testing.T) {
	ctx := context.Background()
	repo := newTestSQLite(t)

	if _, err := repo.Save(ctx, mustExpense(t, 1, "A", "first", core.WithID("exp_x"))); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := repo.Save(ctx, mustExpense(t, 2, "B", "second", core.WithID("exp_x"))); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := repo.LoadAll(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 || got[0].Amount() != 2 || got[0].Description() != "second" {
		t.Fatalf("expected overwritten row, got %+v", got)
	}
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "expenses.db")
	if err := RunMigrations(path); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := RunMigrations(path); err != nil {
		t.Fatalf("second run: %v", err)
	}
}

func TestRunMigrationsCreatesExpensesSchema(t *testing.T) {
	repo := newTestSQLite(t)
	for _, table := range []string{"expenses", schemaTable} {
		var name string
		err := repo.db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil || name != table {
			t.Errorf("table %s: name=%q err=%v", table, name, err)
		}
	}
}
