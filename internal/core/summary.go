package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// CategoryGroup holds the expenses of one category, newest date first.
type CategoryGroup struct {
	Name     string
	Expenses []Expense
	Subtotal decimal.Decimal
}

// Summary is the per-category breakdown of a set of expenses.
type Summary struct {
	Groups []CategoryGroup // sorted by category name
	Total  decimal.Decimal
	Count  int
}

// Summarize groups expenses by category.
func Summarize(expenses []Expense) Summary {
	byName := map[string][]Expense{}
	for _, e := range expenses {
		byName[e.Category()] = append(byName[e.Category()], e)
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	s := Summary{Total: decimal.Zero, Count: len(expenses)}
	for _, name := range names {
		items := byName[name]
		sort.SliceStable(items, func(i, j int) bool { return items[i].Date() > items[j].Date() })
		subtotal := SumAmounts(items)
		s.Groups = append(s.Groups, CategoryGroup{Name: name, Expenses: items, Subtotal: subtotal})
		s.Total = s.Total.Add(subtotal)
	}
	return s
}

// SortNewestFirst orders expenses by creation timestamp, most recent first.
func SortNewestFirst(expenses []Expense) {
	sort.SliceStable(expenses, func(i, j int) bool {
		return expenses[i].CreatedAt() > expenses[j].CreatedAt()
	})
}
