// Package export writes expenses to, and reads them back from, JSON, YAML
// and CSV documents.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"expensetracker/internal/core"
	"expensetracker/internal/storage"
)

// Format names a document format.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
	CSV  Format = "csv"
)

// ErrUnknownFormat is returned for a format other than json, yaml or csv.
var ErrUnknownFormat = errors.New("unknown export format")

var csvHeader = []string{"id", "date", "category", "amount", "description", "created_at"}

// ParseFormat accepts json, yaml, yml or csv in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	case "csv":
		return CSV, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Write encodes expenses in the given format, in slice order.
func Write(w io.Writer, format Format, expenses []core.Expense) error {
	records := make([]core.Record, len(expenses))
	for i, e := range expenses {
		records[i] = e.Record()
	}

	switch format {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(records); err != nil {
			return err
		}
		return enc.Close()
	case CSV:
		return writeCSV(w, records)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func writeCSV(w io.Writer, records []core.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.ID,
			r.Date,
			r.Category,
			decimal.NewFromFloat(r.Amount).StringFixed(2),
			r.Description,
			r.CreatedAt,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read decodes a document written by Write. Entries that do not form a valid
// expense, or whose id cannot name a record file, are counted in skipped and
// left out.
func Read(r io.Reader, format Format, factory *core.Factory) (expenses []core.Expense, skipped int, err error) {
	if factory == nil {
		factory = core.NewFactory()
	}

	var records []core.Record
	switch format {
	case JSON:
		err = json.NewDecoder(r).Decode(&records)
	case YAML:
		err = yaml.NewDecoder(r).Decode(&records)
		if errors.Is(err, io.EOF) {
			err = nil
		}
	case CSV:
		records, skipped, err = readCSV(r)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", core.ErrMalformedRecord, err)
	}

	for _, rec := range records {
		e, err := factory.FromRecord(rec)
		if err != nil || !storage.ValidRecordID(e.ID()) {
			skipped++
			continue
		}
		expenses = append(expenses, e)
	}
	return expenses, skipped, nil
}

func readCSV(r io.Reader) ([]core.Record, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(csvHeader)
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, 0, err
	}
	if len(rows) == 0 {
		return nil, 0, nil
	}

	records := make([]core.Record, 0, len(rows)-1)
	skipped := 0
	for _, row := range rows[1:] {
		amount, err := decimal.NewFromString(row[3])
		if err != nil {
			skipped++
			continue
		}
		records = append(records, core.Record{
			ID:          row[0],
			Date:        row[1],
			Category:    row[2],
			Amount:      amount.InexactFloat64(),
			Description: row[4],
			CreatedAt:   row[5],
		})
	}
	return records, skipped, nil
}
