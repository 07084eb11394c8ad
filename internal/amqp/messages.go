package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"expensetracker/internal/core"
)

// EventType names what happened to an expense.
type EventType string

const (
	EventCreated EventType = "expense.created"
	EventDeleted EventType = "expense.deleted"
)

// ErrInvalidEvent is returned for messages that decode but cannot be applied.
var ErrInvalidEvent = errors.New("invalid expense event")

// ExpenseEvent is published after every successful change to the local
// store. Created events carry the full record so consumers never need to
// read the publisher's data directory.
type ExpenseEvent struct {
	ID        string       `json:"id"`
	Type      EventType    `json:"type"`
	ExpenseID string       `json:"expense_id"`
	Record    *core.Record `json:"record,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// NewExpenseCreatedEvent builds the event for a saved expense.
func NewExpenseCreatedEvent(e core.Expense) *ExpenseEvent {
	rec := e.Record()
	return &ExpenseEvent{
		ID:        uuid.NewString(),
		Type:      EventCreated,
		ExpenseID: e.ID(),
		Record:    &rec,
		Timestamp: time.Now().UTC(),
	}
}

// NewExpenseDeletedEvent builds the event for a removed expense.
func NewExpenseDeletedEvent(expenseID string) *ExpenseEvent {
	return &ExpenseEvent{
		ID:        uuid.NewString(),
		Type:      EventDeleted,
		ExpenseID: expenseID,
		Timestamp: time.Now().UTC(),
	}
}

// Validate checks that the event can be applied by a consumer.
func (m *ExpenseEvent) Validate() error {
	if m.ExpenseID == "" {
		return fmt.Errorf("%w: missing expense_id", ErrInvalidEvent)
	}
	switch m.Type {
	case EventCreated:
		if m.Record == nil {
			return fmt.Errorf("%w: %s without record", ErrInvalidEvent, m.Type)
		}
		if m.Record.ID != m.ExpenseID {
			return fmt.Errorf("%w: record id %q does not match %q", ErrInvalidEvent, m.Record.ID, m.ExpenseID)
		}
	case EventDeleted:
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, m.Type)
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseEventFromJSON decodes and validates a message body.
func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var msg ExpenseEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
