package menu

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/services"
	"expensetracker/internal/storage"
)

func fixedNow() time.Time { return time.Date(2025, 12, 21, 8, 0, 0, 0, time.UTC) }

func newTestService(t *testing.T) (*services.ExpenseService, *storage.FileStore) {
	t.Helper()
	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return services.NewExpenseService(store), store
}

func run(t *testing.T, service *services.ExpenseService, script ...string) string {
	t.Helper()
	var out bytes.Buffer
	m := New(service,
		WithInput(strings.NewReader(strings.Join(script, "\n")+"\n")),
		WithOutput(&out),
		WithClock(fixedNow))
	if err := m.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	return out.String()
}

func seed(t *testing.T, service *services.ExpenseService, amount float64, category, description, date string) core.Expense {
	t.Helper()
	e, err := service.AddExpense(context.Background(), amount, category, description, date)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestRunShowsMenuAndExits(t *testing.T) {
	service, _ := newTestService(t)
	out := run(t, service, "5")

	for _, want := range []string{
		"EXPENSE TRACKER",
		"1. Add New Expense",
		"2. List All Expenses",
		"3. View Expenses by Category",
		"4. Delete Expense",
		"5. Exit",
		"Goodbye!",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestRunInvalidChoiceThenEOF(t *testing.T) {
	service, _ := newTestService(t)
	var out bytes.Buffer
	m := New(service, WithInput(strings.NewReader("9\n")), WithOutput(&out))
	if err := m.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out.String(), "Invalid choice. Please select 1-5.") {
		t.Errorf("missing invalid choice message:\n%s", out.String())
	}
}

func TestAddExpenseFlow(t *testing.T) {
	service, store := newTestService(t)
	out := run(t, service,
		"1",
		"abc", "-5", "50.99", // amount retried until valid
		"", "food", // category retried until valid
		"Test lunch",
		"", // today
		"",
		"5")

	if strings.Count(out, "Invalid input:") != 3 {
		t.Errorf("expected three retries, got:\n%s", out)
	}
	if !strings.Contains(out, "✓ Expense added successfully!") {
		t.Fatalf("missing success message:\n%s", out)
	}

	got, err := store.LoadAll(context.Background())
	if err != nil || len(got) != 1 {
		t.Fatalf("LoadAll() = %v, %v", got, err)
	}
	e := got[0]
	if e.Amount() != 50.99 || e.Category() != "Food" || e.Description() != "Test lunch" || e.Date() != "2025-12-21" {
		t.Errorf("unexpected expense %+v", e.Record())
	}
	if !strings.Contains(out, "ID: "+e.ID()) {
		t.Errorf("output should show the id:\n%s", out)
	}
}

func TestAddExpenseBadDate(t *testing.T) {
	service, store := newTestService(t)
	out := run(t, service, "1", "10", "Food", "x", "2025/01/01", "", "5")

	if !strings.Contains(out, "✗ Error: Date must be in YYYY-MM-DD format") {
		t.Errorf("missing date error:\n%s", out)
	}
	if got, _ := store.LoadAll(context.Background()); len(got) != 0 {
		t.Errorf("nothing should be saved, got %d", len(got))
	}
}

func TestListExpenses(t *testing.T) {
	service, _ := newTestService(t)

	out := run(t, service, "2", "", "5")
	if !strings.Contains(out, "No expenses found.") {
		t.Errorf("expected empty message:\n%s", out)
	}

	seed(t, service, 50, "Food", "Lunch", "2025-12-21")
	seed(t, service, 30, "Transport", "Taxi", "2025-12-21")
	out = run(t, service, "2", "", "5")
	for _, want := range []string{"TOTAL", "$    80.00", "Total Expenses: 2", "Lunch", "Taxi"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestViewByCategory(t *testing.T) {
	service, _ := newTestService(t)
	seed(t, service, 10.10, "Food", "Breakfast", "2025-01-01")
	seed(t, service, 20.20, "Food", "Dinner", "2025-01-03")
	seed(t, service, 5, "Bills", "Phone", "2025-01-02")

	out := run(t, service, "3", "", "5")

	bills := strings.Index(out, "\nBills\n")
	food := strings.Index(out, "\nFood\n")
	if bills < 0 || food < 0 || bills > food {
		t.Fatalf("categories should be sorted:\n%s", out)
	}
	if strings.Index(out, "Dinner") > strings.Index(out, "Breakfast") {
		t.Errorf("expenses within a category should be newest date first:\n%s", out)
	}
	for _, want := range []string{"$   30.30 | Subtotal", "GRAND TOTAL: $35.30"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestDeleteExpenseFlow(t *testing.T) {
	tests := []struct {
		name      string
		script    []string
		wantOut   string
		remaining int
	}{
		{"confirmed", []string{"4", "1", "y", "", "5"}, "✓ Expense deleted successfully!", 0},
		{"declined", []string{"4", "1", "n", "", "5"}, "Deletion cancelled.", 1},
		{"cancelled", []string{"4", "", "", "5"}, "Deletion cancelled.", 1},
		{"out of range", []string{"4", "7", "", "5"}, "✗ Invalid expense number.", 1},
		{"not a number", []string{"4", "one", "", "5"}, "✗ Invalid input. Please enter a number.", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, store := newTestService(t)
			seed(t, service, 12.5, "Food", "Pizza", "2025-12-21")

			out := run(t, service, tt.script...)
			if !strings.Contains(out, tt.wantOut) {
				t.Errorf("output missing %q:\n%s", tt.wantOut, out)
			}
			if got, _ := store.LoadAll(context.Background()); len(got) != tt.remaining {
				t.Errorf("remaining = %d, want %d", len(got), tt.remaining)
			}
		})
	}
}

func TestDeleteShowsConfirmation(t *testing.T) {
	service, _ := newTestService(t)
	seed(t, service, 12.5, "Food", "Pizza", "2025-12-21")

	out := run(t, service, "4", "1", "N", "", "5")
	if !strings.Contains(out, "Delete 'Pizza' ($12.50)? (y/N): ") {
		t.Errorf("missing confirmation prompt:\n%s", out)
	}
}

func TestEOFDuringPromptExits(t *testing.T) {
	service, store := newTestService(t)
	var out bytes.Buffer
	m := New(service, WithInput(strings.NewReader("1\n12")), WithOutput(&out))
	if err := m.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got, _ := store.LoadAll(context.Background()); len(got) != 0 {
		t.Errorf("nothing should be saved, got %d", len(got))
	}
}
