package core

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"
)

const (
	// DateLayout is the calendar form of Expense.Date.
	DateLayout = "2006-01-02"
	// TimestampLayout is the form of Expense.CreatedAt. Fixed width, so it
	// sorts lexicographically in time order.
	TimestampLayout = "2006-01-02T15:04:05.000000"

	// IDPrefix starts every generated identity and every record file name.
	IDPrefix = "exp_"

	idTimeLayout = "20060102_150405"
	idSuffixLen  = 6
	idAlphabet   = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// Keys that must be present in a serialized record.
var requiredKeys = []string{"amount", "category", "description"}

type (
	// Clock returns the current instant.
	Clock func() time.Time

	// RandomString returns n characters drawn from [a-z0-9].
	RandomString func(n int) string

	// Expense is a single recorded expense. It is immutable once built:
	// a change means deleting the record and creating a new one.
	Expense struct {
		id          string
		amount      float64
		category    string
		description string
		date        string
		createdAt   string
	}

	// Record is the canonical serialized form of an Expense.
	Record struct {
		ID          string  `json:"id" yaml:"id"`
		Amount      float64 `json:"amount" yaml:"amount"`
		Category    string  `json:"category" yaml:"category"`
		Description string  `json:"description" yaml:"description"`
		Date        string  `json:"date" yaml:"date"`
		CreatedAt   string  `json:"created_at" yaml:"created_at"`
	}
)

func (e Expense) ID() string          { return e.id }
func (e Expense) Amount() float64     { return e.amount }
func (e Expense) Category() string    { return e.category }
func (e Expense) Description() string { return e.description }
func (e Expense) Date() string        { return e.date }
func (e Expense) CreatedAt() string   { return e.createdAt }

// Record returns the serialized form of the expense.
func (e Expense) Record() Record {
	return Record{
		ID:          e.id,
		Amount:      e.amount,
		Category:    e.category,
		Description: e.description,
		Date:        e.date,
		CreatedAt:   e.createdAt,
	}
}

// String renders the fixed-width display line used by listings.
func (e Expense) String() string {
	return fmt.Sprintf("%s | %-15s | $%8s | %s", e.date, e.category, FormatAmount(e.amount), e.description)
}

// Factory builds expenses. The clock and random source are injected so that
// identities and default dates are reproducible in tests.
type Factory struct {
	now    Clock
	random RandomString
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithClock replaces the wall clock.
func WithClock(c Clock) FactoryOption {
	return func(f *Factory) {
		if c != nil {
			f.now = c
		}
	}
}

// WithRandom replaces the random suffix source used by GenerateID.
func WithRandom(r RandomString) FactoryOption {
	return func(f *Factory) {
		if r != nil {
			f.random = r
		}
	}
}

// NewFactory returns a Factory using time.Now and math/rand unless overridden.
func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{now: time.Now, random: randomAlphanumeric}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

var defaultFactory = NewFactory()

// Option supplies one of the optional construction fields.
type Option func(*fields)

type fields struct {
	id        string
	date      string
	createdAt string
}

// WithID keeps a caller supplied identity instead of generating one.
func WithID(id string) Option { return func(f *fields) { f.id = id } }

// WithDate sets the expense date (YYYY-MM-DD). The value is trusted; input
// validation belongs to the caller.
func WithDate(date string) Option { return func(f *fields) { f.date = date } }

// WithCreatedAt keeps a caller supplied creation timestamp.
func WithCreatedAt(ts string) Option { return func(f *fields) { f.createdAt = ts } }

// New builds an Expense with the default factory.
func New(amount float64, category, description string, opts ...Option) (Expense, error) {
	return defaultFactory.New(amount, category, description, opts...)
}

// New builds an Expense. It fails with ErrInvalidAmount unless amount is a
// finite number greater than zero. Omitted id, date and created_at are
// filled from the factory clock and random source.
func (f *Factory) New(amount float64, category, description string, opts ...Option) (Expense, error) {
	if !(amount > 0) || math.IsInf(amount, 1) {
		return Expense{}, fmt.Errorf("%w: got %v", ErrInvalidAmount, amount)
	}

	var opt fields
	for _, o := range opts {
		o(&opt)
	}

	now := f.now()
	e := Expense{
		id:          opt.id,
		amount:      amount,
		category:    category,
		description: description,
		date:        opt.date,
		createdAt:   opt.createdAt,
	}
	if e.date == "" {
		e.date = now.Format(DateLayout)
	}
	if e.id == "" {
		e.id = f.idAt(now)
	}
	if e.createdAt == "" {
		e.createdAt = now.Format(TimestampLayout)
	}
	return e, nil
}

// GenerateID returns a fresh identity of the form
// exp_<YYYYMMDD>_<HHMMSS>_<6 random [a-z0-9]>. Uniqueness is probabilistic.
func (f *Factory) GenerateID() string {
	return f.idAt(f.now())
}

func (f *Factory) idAt(t time.Time) string {
	return IDPrefix + t.Format(idTimeLayout) + "_" + f.random(idSuffixLen)
}

// GenerateID returns a fresh identity from the default factory.
func GenerateID() string { return defaultFactory.GenerateID() }

// FromRecord rebuilds an Expense from its serialized form. Empty id, date and
// created_at take construction defaults instead of failing; a date that is
// present but not a calendar date is ErrMalformedRecord.
func (f *Factory) FromRecord(r Record) (Expense, error) {
	if r.Date != "" {
		if _, err := time.Parse(DateLayout, r.Date); err != nil {
			return Expense{}, fmt.Errorf("%w: date %q: %v", ErrMalformedRecord, r.Date, err)
		}
	}
	return f.New(r.Amount, r.Category, r.Description,
		WithID(r.ID),
		WithDate(r.Date),
		WithCreatedAt(r.CreatedAt),
	)
}

// Decode parses a JSON record. Invalid JSON or mistyped values are
// ErrMalformedRecord, an absent amount, category or description key is
// ErrMissingField. Everything else follows FromRecord.
func (f *Factory) Decode(data []byte) (Expense, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Expense{}, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	var missing []string
	for _, key := range requiredKeys {
		if _, ok := raw[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return Expense{}, fmt.Errorf("%w: %s", ErrMissingField, strings.Join(missing, ", "))
	}

	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Expense{}, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	return f.FromRecord(r)
}

// FromRecord rebuilds an Expense with the default factory.
func FromRecord(r Record) (Expense, error) { return defaultFactory.FromRecord(r) }

// Decode parses a JSON record with the default factory.
func Decode(data []byte) (Expense, error) { return defaultFactory.Decode(data) }

func randomAlphanumeric(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = idAlphabet[rand.Intn(len(idAlphabet))]
	}
	return string(b)
}
