package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"expensetracker/internal/config"
	"expensetracker/internal/core"
	"expensetracker/internal/export"
	"expensetracker/internal/log"
	"expensetracker/internal/menu"
	"expensetracker/internal/services"
	gsheet "expensetracker/internal/sheets/google"
	"expensetracker/internal/sheets/memory"
	"expensetracker/internal/storage"
)

// ErrUsage marks a malformed command line. The message has been printed.
var ErrUsage = errors.New("usage error")

const usage = `Usage: expenses [command] [flags]

Without a command the interactive menu starts.

Commands:
  add      -amount 12.50 -category food -description "lunch" [-date 2025-01-02]
  list     list expenses, newest first
  summary  expenses grouped by category with subtotals
  delete   <id>
  export   -format json|yaml|csv [-o file]
  import   -format json|yaml|csv -i file
  sync     [-dry-run] copy every expense to the SQLite mirror and Google Sheet
`

// App wires the expense service to the command line.
type App struct {
	Service *services.ExpenseService
	Repo    storage.Repository
	Config  *config.Config
	Logger  *log.Logger

	In  io.Reader
	Out io.Writer
	Err io.Writer

	// Sinks opens the sync destinations; the returned func releases them.
	// Defaults to the configured SQLite mirror and Google Sheet.
	Sinks func(ctx context.Context) ([]services.Sink, func(), error)
}

// Run executes one command line. An empty args starts the menu.
func (a *App) Run(ctx context.Context, args []string) error {
	if a.Logger == nil {
		a.Logger = log.Discard()
	}
	if len(args) == 0 {
		return a.runMenu(ctx)
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "menu":
		return a.runMenu(ctx)
	case "add":
		return a.runAdd(ctx, rest)
	case "list":
		return a.runList(ctx)
	case "summary":
		return a.runSummary(ctx)
	case "delete":
		return a.runDelete(ctx, rest)
	case "export":
		return a.runExport(ctx, rest)
	case "import":
		return a.runImport(ctx, rest)
	case "sync":
		return a.runSync(ctx, rest)
	case "help", "-h", "-help", "--help":
		fmt.Fprint(a.Out, usage)
		return nil
	default:
		fmt.Fprintf(a.Err, "unknown command %q\n\n%s", cmd, usage)
		return ErrUsage
	}
}

func (a *App) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.Err)
	return fs
}

func (a *App) usageError(format string, args ...any) error {
	fmt.Fprintf(a.Err, format+"\n", args...)
	return ErrUsage
}

func (a *App) runMenu(ctx context.Context) error {
	m := menu.New(a.Service,
		menu.WithInput(a.In),
		menu.WithOutput(a.Out),
		menu.WithClearScreen(a.Out == os.Stdout),
		menu.WithLogger(a.Logger))
	return m.Run(ctx)
}

func (a *App) runAdd(ctx context.Context, args []string) error {
	fs := a.flagSet("add")
	amountFlag := fs.String("amount", "", "amount, greater than zero")
	categoryFlag := fs.String("category", "", "category")
	description := fs.String("description", "", "description")
	dateFlag := fs.String("date", "", "date as YYYY-MM-DD, default today")
	if err := fs.Parse(args); err != nil {
		return ErrUsage
	}

	amount, err := menu.ValidateAmount(*amountFlag)
	if err != nil {
		return a.usageError("-amount: %v", err)
	}
	category, err := menu.ValidateCategory(*categoryFlag)
	if err != nil {
		return a.usageError("-category: %v", err)
	}
	date, err := menu.ValidateDate(*dateFlag, nil)
	if err != nil {
		return a.usageError("-date: %v", err)
	}

	e, err := a.Service.AddExpense(ctx, amount, category, strings.TrimSpace(*description), date)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Added %s\n  %s\n", e.ID(), e)
	return nil
}

func (a *App) runList(ctx context.Context) error {
	expenses, err := a.Service.ListExpenses(ctx)
	if err != nil {
		return err
	}
	menu.RenderList(a.Out, expenses)
	return nil
}

func (a *App) runSummary(ctx context.Context) error {
	summary, err := a.Service.Summary(ctx)
	if err != nil {
		return err
	}
	menu.RenderSummary(a.Out, summary)
	return nil
}

func (a *App) runDelete(ctx context.Context, args []string) error {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return a.usageError("delete takes exactly one expense id")
	}
	id := strings.TrimSpace(args[0])
	deleted, err := a.Service.DeleteExpense(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("no expense with id %s", id)
	}
	fmt.Fprintf(a.Out, "Deleted %s\n", id)
	return nil
}

func (a *App) runExport(ctx context.Context, args []string) error {
	fs := a.flagSet("export")
	formatFlag := fs.String("format", "json", "json, yaml or csv")
	output := fs.String("o", "", "output file, default stdout")
	if err := fs.Parse(args); err != nil {
		return ErrUsage
	}
	format, err := export.ParseFormat(*formatFlag)
	if err != nil {
		return a.usageError("-format: %v", err)
	}

	expenses, err := a.Service.ListExpenses(ctx)
	if err != nil {
		return err
	}

	if *output == "" {
		if err := export.Write(a.Out, format, expenses); err != nil {
			return fmt.Errorf("export %s: %w", format, err)
		}
	} else if err := writeExportFile(*output, format, expenses); err != nil {
		return err
	}

	a.Logger.InfoContext(ctx, "Expenses exported",
		log.FieldOperation, log.OpExport,
		log.FieldCount, len(expenses),
		log.FieldPath, *output)
	if *output != "" {
		fmt.Fprintf(a.Out, "Exported %d expenses to %s\n", len(expenses), *output)
	}
	return nil
}

// writeExportFile removes the file again when the document could not be
// written completely.
func writeExportFile(path string, format export.Format, expenses []core.Expense) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := export.Write(f, format, expenses); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("export %s: %w", format, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

func (a *App) runImport(ctx context.Context, args []string) error {
	fs := a.flagSet("import")
	formatFlag := fs.String("format", "json", "json, yaml or csv")
	input := fs.String("i", "", "input file")
	if err := fs.Parse(args); err != nil {
		return ErrUsage
	}
	format, err := export.ParseFormat(*formatFlag)
	if err != nil {
		return a.usageError("-format: %v", err)
	}
	if *input == "" {
		return a.usageError("-i is required")
	}

	f, err := os.Open(*input)
	if err != nil {
		return fmt.Errorf("open %s: %w", *input, err)
	}
	defer f.Close()

	expenses, skipped, err := export.Read(f, format, nil)
	if err != nil {
		return fmt.Errorf("import %s: %w", *input, err)
	}
	for _, e := range expenses {
		if _, err := a.Repo.Save(ctx, e); err != nil {
			return err
		}
	}

	a.Logger.InfoContext(ctx, "Expenses imported",
		log.FieldCount, len(expenses),
		log.FieldSkipped, skipped,
		log.FieldPath, *input)
	fmt.Fprintf(a.Out, "Imported %d expenses (%d skipped)\n", len(expenses), skipped)
	return nil
}

func (a *App) runSync(ctx context.Context, args []string) error {
	fs := a.flagSet("sync")
	dryRun := fs.Bool("dry-run", false, "sync into an in-memory sheet and report counts only")
	if err := fs.Parse(args); err != nil {
		return ErrUsage
	}

	var sinks []services.Sink
	if *dryRun {
		sinks = []services.Sink{services.NewSheetSink("dry-run", memory.New())}
	} else {
		open := a.Sinks
		if open == nil {
			open = a.defaultSinks
		}
		opened, release, err := open(ctx)
		if err != nil {
			return err
		}
		defer release()
		sinks = opened
	}

	results, err := services.NewMirror(a.Repo, a.Logger, sinks...).Sync(ctx)
	if err != nil {
		return err
	}
	for _, r := range results {
		fmt.Fprintf(a.Out, "%-10s pushed %d, skipped %d, removed %d\n", r.Sink, r.Pushed, r.Skipped, r.Removed)
	}
	return nil
}

// defaultSinks opens the SQLite mirror and, when configured, the Google Sheet.
func (a *App) defaultSinks(ctx context.Context) ([]services.Sink, func(), error) {
	if a.Config == nil {
		return nil, nil, errors.New("sync requires a configuration")
	}
	mirror, err := storage.NewSQLiteRepository(a.Config.MirrorDBPath, a.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open mirror: %w", err)
	}
	sinks := []services.Sink{services.NewRepositorySink("sqlite", mirror)}

	if a.Config.SheetsEnabled() {
		sheet, err := OpenSheet(ctx, a.Config, a.Logger)
		if err != nil {
			mirror.Close()
			return nil, nil, err
		}
		sinks = append(sinks, services.NewSheetSink("sheets", sheet))
	}
	return sinks, func() { mirror.Close() }, nil
}

// OpenSheet connects to the configured spreadsheet and makes sure it has a
// header row.
func OpenSheet(ctx context.Context, cfg *config.Config, logger *log.Logger) (*gsheet.Client, error) {
	sheet, err := gsheet.NewFromConfig(ctx, gsheet.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SheetName:          cfg.GoogleSheetName,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("open Google Sheet: %w", err)
	}
	if err := sheet.EnsureHeader(ctx); err != nil {
		return nil, err
	}
	return sheet, nil
}

