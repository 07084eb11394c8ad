package menu

import (
	"fmt"
	"io"
	"strings"

	"expensetracker/internal/core"
)

const ruleWidth = 80

var (
	rule       = strings.Repeat("-", ruleWidth)
	doubleRule = strings.Repeat("=", ruleWidth)
	banner     = strings.Repeat("=", 50)
)

// RenderMenu writes the main menu.
func RenderMenu(w io.Writer) {
	fmt.Fprintln(w, banner)
	fmt.Fprintln(w, "           EXPENSE TRACKER")
	fmt.Fprintln(w, banner)
	fmt.Fprintln(w, "\n1. Add New Expense")
	fmt.Fprintln(w, "2. List All Expenses")
	fmt.Fprintln(w, "3. View Expenses by Category")
	fmt.Fprintln(w, "4. Delete Expense")
	fmt.Fprintln(w, "5. Exit")
	fmt.Fprintln(w, "\n"+banner)
}

// RenderList writes expenses in the given order followed by a TOTAL row.
func RenderList(w io.Writer, expenses []core.Expense) {
	if len(expenses) == 0 {
		fmt.Fprintln(w, "No expenses found.")
		return
	}

	fmt.Fprintf(w, "%-12s | %-15s | %10s | Description\n", "Date", "Category", "Amount")
	fmt.Fprintln(w, rule)
	for _, e := range expenses {
		fmt.Fprintln(w, e)
	}
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "%-12s | %-15s | $%9s |\n", "", "TOTAL", core.SumAmounts(expenses).StringFixed(2))
	fmt.Fprintf(w, "\nTotal Expenses: %d\n", len(expenses))
}

// RenderSummary writes each category with its expenses and subtotal, then
// the grand total.
func RenderSummary(w io.Writer, s core.Summary) {
	if s.Count == 0 {
		fmt.Fprintln(w, "No expenses found.")
		return
	}

	for _, g := range s.Groups {
		fmt.Fprintf(w, "\n%s\n", g.Name)
		fmt.Fprintln(w, rule)
		for _, e := range g.Expenses {
			fmt.Fprintf(w, "  %-12s | $%8s | %s\n", e.Date(), core.FormatAmount(e.Amount()), e.Description())
		}
		fmt.Fprintf(w, "  %-12s | $%8s | Subtotal\n", "", g.Subtotal.StringFixed(2))
	}
	fmt.Fprintln(w, "\n"+doubleRule)
	fmt.Fprintf(w, "GRAND TOTAL: $%s\n", s.Total.StringFixed(2))
}

// RenderNumbered writes expenses numbered from 1 for selection.
func RenderNumbered(w io.Writer, expenses []core.Expense) {
	fmt.Fprintf(w, "%-3s | %-12s | %-15s | %10s | Description\n", "#", "Date", "Category", "Amount")
	fmt.Fprintln(w, rule)
	for i, e := range expenses {
		fmt.Fprintf(w, "%3d | %s\n", i+1, e)
	}
}
