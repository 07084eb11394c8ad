package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/storage"
)

// EventPublisher receives an event after every successful change.
type EventPublisher interface {
	PublishExpenseEvent(ctx context.Context, event *amqp.ExpenseEvent) error
}

// ExpenseService orchestrates expense operations across a repository and an
// optional event publisher.
type ExpenseService struct {
	repo      storage.Repository
	publisher EventPublisher
	factory   *core.Factory
	logger    *log.Logger
}

// ServiceOption configures an ExpenseService.
type ServiceOption func(*ExpenseService)

// WithPublisher enables event publishing.
func WithPublisher(p EventPublisher) ServiceOption {
	return func(s *ExpenseService) { s.publisher = p }
}

// WithFactory sets the factory used to build new expenses.
func WithFactory(f *core.Factory) ServiceOption {
	return func(s *ExpenseService) {
		if f != nil {
			s.factory = f
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *log.Logger) ServiceOption {
	return func(s *ExpenseService) {
		if l != nil {
			s.logger = l.WithComponent(log.ComponentExpense)
		}
	}
}

func NewExpenseService(repo storage.Repository, opts ...ServiceOption) *ExpenseService {
	s := &ExpenseService{
		repo:    repo,
		factory: core.NewFactory(),
		logger:  log.Discard().WithComponent(log.ComponentExpense),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddExpense builds an expense and saves it. An empty date means today.
func (s *ExpenseService) AddExpense(ctx context.Context, amount float64, category, description, date string) (core.Expense, error) {
	var opts []core.Option
	if date != "" {
		opts = append(opts, core.WithDate(date))
	}
	e, err := s.factory.New(amount, category, description, opts...)
	if err != nil {
		return core.Expense{}, err
	}

	if _, err := s.repo.Save(ctx, e); err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	s.logger.InfoContext(ctx, "Expense added", log.NewFields().
		WithOperation(log.OpCreate).
		WithExpense(e.ID(), e.Amount(), e.Category()).
		ToSlice()...)

	s.publish(ctx, amqp.NewExpenseCreatedEvent(e))
	return e, nil
}

// ListExpenses returns every stored expense, most recently created first.
func (s *ExpenseService) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	expenses, err := s.repo.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load expenses: %w", err)
	}
	core.SortNewestFirst(expenses)
	return expenses, nil
}

// Summary returns the per-category breakdown of every stored expense.
func (s *ExpenseService) Summary(ctx context.Context) (core.Summary, error) {
	expenses, err := s.repo.LoadAll(ctx)
	if err != nil {
		return core.Summary{}, fmt.Errorf("load expenses: %w", err)
	}
	return core.Summarize(expenses), nil
}

// DeleteExpense removes the expense with the given id. It reports false when
// nothing matched.
func (s *ExpenseService) DeleteExpense(ctx context.Context, id string) (bool, error) {
	deleted, err := s.repo.DeleteByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete expense: %w", err)
	}
	if !deleted {
		return false, nil
	}
	s.logger.InfoContext(ctx, "Expense deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldExpenseID, id)

	s.publish(ctx, amqp.NewExpenseDeletedEvent(id))
	return true, nil
}

// publish never fails the caller: the change is already stored locally.
func (s *ExpenseService) publish(ctx context.Context, event *amqp.ExpenseEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishExpenseEvent(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish expense event",
			log.FieldOperation, log.OpPublish,
			log.FieldEventType, event.Type,
			log.FieldExpenseID, event.ExpenseID,
			log.FieldError, err)
	}
}

// Close closes the repository and, when it supports it, the publisher.
func (s *ExpenseService) Close() error {
	var errs []error

	if s.repo != nil {
		if err := s.repo.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close expense service: %w", errors.Join(errs...))
	}

	return nil
}
