package sheets

import (
	"context"

	"expensetracker/internal/core"
)

// Ports for outbound adapters. A sheet holds one row per expense with the
// expense id in the last column, which is the only column read back.
type (
	ExpenseWriter interface {
		Append(ctx context.Context, e core.Expense) (rowRef string, err error)
	}

	// ExpenseIDLister returns the ids of expenses already present in the sheet.
	ExpenseIDLister interface {
		ListIDs(ctx context.Context) ([]string, error)
	}

	// ExpenseDeleter clears the row holding id. It reports false when no
	// row matched.
	ExpenseDeleter interface {
		DeleteByID(ctx context.Context, id string) (bool, error)
	}

	// Sheet is the full set of operations the mirror and worker use.
	Sheet interface {
		ExpenseWriter
		ExpenseIDLister
		ExpenseDeleter
	}
)

// Header is the first row written to an empty sheet.
var Header = []any{"date", "category", "description", "amount", "id"}

// Row converts an expense to its sheet row, in Header order.
func Row(e core.Expense) []any {
	return []any{e.Date(), e.Category(), e.Description(), e.Amount(), e.ID()}
}
