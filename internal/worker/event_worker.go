package worker

import (
	"context"
	"fmt"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/sheets"
	"expensetracker/internal/storage"
)

// EventWorker applies consumed expense events to a mirror repository and,
// when configured, a sheet. Every handler is idempotent so a redelivered
// message is harmless.
type EventWorker struct {
	mirror  storage.Repository
	sheet   sheets.Sheet
	factory *core.Factory
	logger  *log.Logger
}

func NewEventWorker(mirror storage.Repository, sheet sheets.Sheet, logger *log.Logger) *EventWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &EventWorker{
		mirror:  mirror,
		sheet:   sheet,
		factory: core.NewFactory(),
		logger:  logger.WithComponent(log.ComponentWorker),
	}
}

// HandleEvent is an amqp.Handler.
func (w *EventWorker) HandleEvent(ctx context.Context, event *amqp.ExpenseEvent) error {
	switch event.Type {
	case amqp.EventCreated:
		return w.handleCreated(ctx, event)
	case amqp.EventDeleted:
		return w.handleDeleted(ctx, event)
	default:
		return fmt.Errorf("%w: unknown type %q", amqp.ErrInvalidEvent, event.Type)
	}
}

func (w *EventWorker) handleCreated(ctx context.Context, event *amqp.ExpenseEvent) error {
	if event.Record == nil {
		return fmt.Errorf("%w: %s without record", amqp.ErrInvalidEvent, event.Type)
	}
	e, err := w.factory.FromRecord(*event.Record)
	if err != nil {
		return fmt.Errorf("%w: rebuild expense %s: %w", amqp.ErrInvalidEvent, event.ExpenseID, err)
	}

	if _, err := w.mirror.Save(ctx, e); err != nil {
		return fmt.Errorf("save to mirror: %w", err)
	}

	if w.sheet != nil {
		if err := w.appendOnce(ctx, e); err != nil {
			return err
		}
	}

	w.logger.InfoContext(ctx, "Applied expense event", log.NewFields().
		WithOperation(log.OpConsume).
		WithExpense(e.ID(), e.Amount(), e.Category()).
		ToSlice()...)
	return nil
}

// appendOnce skips the append when a redelivery finds the row already there.
func (w *EventWorker) appendOnce(ctx context.Context, e core.Expense) error {
	ids, err := w.sheet.ListIDs(ctx)
	if err != nil {
		return fmt.Errorf("list sheet ids: %w", err)
	}
	for _, id := range ids {
		if id == e.ID() {
			w.logger.DebugContext(ctx, "Sheet row already present", log.FieldExpenseID, e.ID())
			return nil
		}
	}
	ref, err := w.sheet.Append(ctx, e)
	if err != nil {
		return fmt.Errorf("append to sheet: %w", err)
	}
	w.logger.DebugContext(ctx, "Sheet row appended",
		log.FieldExpenseID, e.ID(),
		log.FieldSheetsRef, ref)
	return nil
}

func (w *EventWorker) handleDeleted(ctx context.Context, event *amqp.ExpenseEvent) error {
	deleted, err := w.mirror.DeleteByID(ctx, event.ExpenseID)
	if err != nil {
		return fmt.Errorf("delete from mirror: %w", err)
	}
	if w.sheet != nil {
		if _, err := w.sheet.DeleteByID(ctx, event.ExpenseID); err != nil {
			return fmt.Errorf("delete from sheet: %w", err)
		}
	}

	w.logger.InfoContext(ctx, "Applied expense event",
		log.FieldOperation, log.OpDelete,
		log.FieldExpenseID, event.ExpenseID,
		"found", deleted)
	return nil
}
