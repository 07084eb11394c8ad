// Package menu is the interactive front end: a numbered menu read from an
// input stream, with prompts that repeat until the answer validates.
package menu

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/services"
)

const clearSequence = "\033[H\033[2J"

// Menu drives an ExpenseService from line-oriented input.
type Menu struct {
	service *services.ExpenseService
	in      *bufio.Reader
	out     io.Writer
	now     core.Clock
	clear   bool
	logger  *log.Logger
}

// Option configures a Menu.
type Option func(*Menu)

// WithInput sets the input stream. Defaults to stdin.
func WithInput(r io.Reader) Option {
	return func(m *Menu) { m.in = bufio.NewReader(r) }
}

// WithOutput sets the output stream. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(m *Menu) { m.out = w }
}

// WithClock sets the clock used for the default date.
func WithClock(c core.Clock) Option {
	return func(m *Menu) { m.now = c }
}

// WithClearScreen clears the terminal before each menu.
func WithClearScreen(enabled bool) Option {
	return func(m *Menu) { m.clear = enabled }
}

// WithLogger sets the logger for unexpected failures.
func WithLogger(l *log.Logger) Option {
	return func(m *Menu) {
		if l != nil {
			m.logger = l.WithComponent(log.ComponentCLI)
		}
	}
}

func New(service *services.ExpenseService, opts ...Option) *Menu {
	m := &Menu{
		service: service,
		in:      bufio.NewReader(os.Stdin),
		out:     os.Stdout,
		now:     time.Now,
		logger:  log.Discard(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run shows the menu until the user exits or the input ends.
func (m *Menu) Run(ctx context.Context) error {
	for {
		if m.clear {
			fmt.Fprint(m.out, clearSequence)
		}
		RenderMenu(m.out)

		choice, err := m.readLine("\nEnter your choice (1-5): ")
		if err != nil {
			return m.endOfInput(err)
		}

		switch choice {
		case "1":
			err = m.addExpense(ctx)
		case "2":
			err = m.listExpenses(ctx)
		case "3":
			err = m.viewByCategory(ctx)
		case "4":
			err = m.deleteExpense(ctx)
		case "5":
			fmt.Fprintln(m.out, "\nThank you for using Expense Tracker. Goodbye!")
			return nil
		default:
			fmt.Fprintln(m.out, "\nInvalid choice. Please select 1-5.")
			continue
		}
		if err != nil {
			return m.endOfInput(err)
		}

		if _, err := m.readLine("\nPress Enter to continue..."); err != nil {
			return m.endOfInput(err)
		}
	}
}

func (m *Menu) endOfInput(err error) error {
	if errors.Is(err, io.EOF) {
		fmt.Fprintln(m.out)
		return nil
	}
	return err
}

// readLine prompts and returns the trimmed line. io.EOF is returned only
// when the input ended before any text.
func (m *Menu) readLine(prompt string) (string, error) {
	fmt.Fprint(m.out, prompt)
	line, err := m.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// prompt repeats until check accepts the answer.
func prompt[T any](m *Menu, label string, check func(string) (T, error)) (T, error) {
	for {
		answer, err := m.readLine(label)
		if err != nil {
			var zero T
			return zero, err
		}
		v, err := check(answer)
		if err == nil {
			return v, nil
		}
		fmt.Fprintf(m.out, "Invalid input: %v\n", err)
	}
}

func (m *Menu) addExpense(ctx context.Context) error {
	fmt.Fprint(m.out, "\n--- Add New Expense ---\n\n")

	amount, err := prompt(m, "Enter amount: $", ValidateAmount)
	if err != nil {
		return err
	}
	category, err := prompt(m, "Enter category (e.g., Food, Transport, Entertainment): ", ValidateCategory)
	if err != nil {
		return err
	}
	description, err := m.readLine("Enter description: ")
	if err != nil {
		return err
	}
	dateInput, err := m.readLine("Enter date (YYYY-MM-DD, or press Enter for today): ")
	if err != nil {
		return err
	}
	date, err := ValidateDate(dateInput, m.now)
	if err != nil {
		fmt.Fprintf(m.out, "\n✗ Error: %v\n", err)
		return nil
	}

	e, err := m.service.AddExpense(ctx, amount, category, description, date)
	if err != nil {
		m.logger.ErrorContext(ctx, "Failed to add expense", log.FieldError, err)
		fmt.Fprintf(m.out, "\n✗ Error: %v\n", err)
		return nil
	}

	fmt.Fprintln(m.out, "\n✓ Expense added successfully!")
	fmt.Fprintf(m.out, "  ID: %s\n", e.ID())
	fmt.Fprintf(m.out, "  %s\n", e)
	return nil
}

func (m *Menu) listExpenses(ctx context.Context) error {
	fmt.Fprint(m.out, "\n--- All Expenses ---\n\n")

	expenses, err := m.service.ListExpenses(ctx)
	if err != nil {
		fmt.Fprintf(m.out, "\n✗ Error: %v\n", err)
		return nil
	}
	RenderList(m.out, expenses)
	return nil
}

func (m *Menu) viewByCategory(ctx context.Context) error {
	fmt.Fprint(m.out, "\n--- Expenses by Category ---\n\n")

	summary, err := m.service.Summary(ctx)
	if err != nil {
		fmt.Fprintf(m.out, "\n✗ Error: %v\n", err)
		return nil
	}
	RenderSummary(m.out, summary)
	return nil
}

func (m *Menu) deleteExpense(ctx context.Context) error {
	fmt.Fprint(m.out, "\n--- Delete Expense ---\n\n")

	expenses, err := m.service.ListExpenses(ctx)
	if err != nil {
		fmt.Fprintf(m.out, "\n✗ Error: %v\n", err)
		return nil
	}
	if len(expenses) == 0 {
		fmt.Fprintln(m.out, "No expenses found.")
		return nil
	}

	RenderNumbered(m.out, expenses)
	fmt.Fprintln(m.out)

	choice, err := m.readLine("Enter expense number to delete (or press Enter to cancel): ")
	if err != nil {
		return err
	}
	if choice == "" {
		fmt.Fprintln(m.out, "Deletion cancelled.")
		return nil
	}

	n, err := strconv.Atoi(choice)
	if err != nil {
		fmt.Fprintln(m.out, "\n✗ Invalid input. Please enter a number.")
		return nil
	}
	if n < 1 || n > len(expenses) {
		fmt.Fprintln(m.out, "\n✗ Invalid expense number.")
		return nil
	}

	e := expenses[n-1]
	confirm, err := m.readLine(fmt.Sprintf("Delete '%s' ($%s)? (y/N): ", e.Description(), core.FormatAmount(e.Amount())))
	if err != nil {
		return err
	}
	if strings.ToLower(confirm) != "y" {
		fmt.Fprintln(m.out, "\nDeletion cancelled.")
		return nil
	}

	deleted, err := m.service.DeleteExpense(ctx, e.ID())
	if err != nil || !deleted {
		fmt.Fprintln(m.out, "\n✗ Error: Could not delete expense.")
		return nil
	}
	fmt.Fprintln(m.out, "\n✓ Expense deleted successfully!")
	return nil
}
