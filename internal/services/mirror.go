package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/sheets"
	"expensetracker/internal/storage"
)

// Sink is a destination the Mirror copies expenses to.
type Sink interface {
	Name() string
	// ExistingIDs returns ids the sink already holds. Held ids are skipped
	// on push and removed when the source no longer has them. A nil set
	// means every expense is pushed and nothing is removed.
	ExistingIDs(ctx context.Context) (map[string]struct{}, error)
	Push(ctx context.Context, e core.Expense) error
	Remove(ctx context.Context, id string) error
}

// SyncResult counts what one sink received.
type SyncResult struct {
	Sink    string
	Pushed  int
	Skipped int
	Removed int
}

// Mirror makes each sink hold exactly the expenses of a source repository:
// missing expenses are pushed and ids the source no longer has are removed.
// Sinks run concurrently; the first failing sink cancels the others.
type Mirror struct {
	source storage.Repository
	sinks  []Sink
	logger *log.Logger
}

func NewMirror(source storage.Repository, logger *log.Logger, sinks ...Sink) *Mirror {
	if logger == nil {
		logger = log.Discard()
	}
	return &Mirror{
		source: source,
		sinks:  sinks,
		logger: logger.WithComponent(log.ComponentMirror),
	}
}

// Sync runs one full pass and returns a result per sink, in sink order.
func (m *Mirror) Sync(ctx context.Context) ([]SyncResult, error) {
	start := time.Now()
	expenses, err := m.source.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load source: %w", err)
	}

	results := make([]SyncResult, len(m.sinks))
	g, gctx := errgroup.WithContext(ctx)
	for i, sink := range m.sinks {
		i, sink := i, sink
		g.Go(func() error {
			res, err := m.syncSink(gctx, sink, expenses)
			if err != nil {
				return fmt.Errorf("sink %s: %w", sink.Name(), err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "Mirror sync complete",
		log.FieldOperation, log.OpSync,
		log.FieldCount, len(expenses),
		log.FieldDurationMs, time.Since(start).Milliseconds())
	return results, nil
}

func (m *Mirror) syncSink(ctx context.Context, sink Sink, expenses []core.Expense) (SyncResult, error) {
	res := SyncResult{Sink: sink.Name()}
	existing, err := sink.ExistingIDs(ctx)
	if err != nil {
		return res, err
	}
	for _, e := range expenses {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if _, ok := existing[e.ID()]; ok {
			res.Skipped++
			continue
		}
		if err := sink.Push(ctx, e); err != nil {
			return res, fmt.Errorf("push %s: %w", e.ID(), err)
		}
		res.Pushed++
	}

	inSource := make(map[string]struct{}, len(expenses))
	for _, e := range expenses {
		inSource[e.ID()] = struct{}{}
	}
	for id := range existing {
		if _, ok := inSource[id]; ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := sink.Remove(ctx, id); err != nil {
			return res, fmt.Errorf("remove %s: %w", id, err)
		}
		res.Removed++
	}
	m.logSink(ctx, res)
	return res, nil
}

func (m *Mirror) logSink(ctx context.Context, res SyncResult) {
	m.logger.DebugContext(ctx, "Sink synced",
		log.FieldSink, res.Sink,
		log.FieldCount, res.Pushed,
		log.FieldSkipped, res.Skipped,
		log.FieldRemoved, res.Removed)
}

// RepositorySink keeps another repository in step with the source.
type RepositorySink struct {
	name string
	repo storage.Repository
}

func NewRepositorySink(name string, repo storage.Repository) *RepositorySink {
	return &RepositorySink{name: name, repo: repo}
}

func (s *RepositorySink) Name() string { return s.name }

func (s *RepositorySink) ExistingIDs(ctx context.Context) (map[string]struct{}, error) {
	expenses, err := s.repo.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(expenses))
	for _, e := range expenses {
		set[e.ID()] = struct{}{}
	}
	return set, nil
}

func (s *RepositorySink) Push(ctx context.Context, e core.Expense) error {
	_, err := s.repo.Save(ctx, e)
	return err
}

func (s *RepositorySink) Remove(ctx context.Context, id string) error {
	_, err := s.repo.DeleteByID(ctx, id)
	return err
}

// SheetSink appends rows for expenses whose id is not yet in the sheet and
// clears rows whose expense is gone.
type SheetSink struct {
	name  string
	sheet sheets.Sheet
}

func NewSheetSink(name string, sheet sheets.Sheet) *SheetSink {
	return &SheetSink{name: name, sheet: sheet}
}

func (s *SheetSink) Name() string { return s.name }

func (s *SheetSink) ExistingIDs(ctx context.Context) (map[string]struct{}, error) {
	ids, err := s.sheet.ListIDs(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

func (s *SheetSink) Push(ctx context.Context, e core.Expense) error {
	_, err := s.sheet.Append(ctx, e)
	return err
}

func (s *SheetSink) Remove(ctx context.Context, id string) error {
	_, err := s.sheet.DeleteByID(ctx, id)
	return err
}
