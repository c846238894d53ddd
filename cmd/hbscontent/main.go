package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/hbscontent"
	"github.com/fwojciec/hbscontent/hbs"
	hbsslog "github.com/fwojciec/hbscontent/slog"
	"github.com/fwojciec/hbscontent/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Index path used when no flag or config file names one. Set before calling Run().
	IndexPath string

	// SQLite database backing the search index, when one is opened.
	DB *sqlite.DB
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{
		IndexPath: os.Getenv("HBSCONTENT_INDEX"),
	}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	if m.DB != nil {
		return m.DB.Close()
	}
	return nil
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("hbscontent"),
		kong.Description("Extract search contents from Handlebars templates"),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'hbscontent --help' to see available commands")
	}

	cmd := args[0]
	if cmd == "help" || cmd == "--help" || cmd == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cli.LogLevel.Level()}))

	deps := &Dependencies{
		Ctx:       ctx,
		Stdin:     stdin,
		Stdout:    stdout,
		Stderr:    stderr,
		Logger:    logger,
		Extractor: hbsslog.NewLoggingExtractor(hbs.NewExtractor(), logger),
		OpenIndex: m.openIndex(logger),
		IndexPath: m.IndexPath,
	}
	defer m.Close()

	return kongCtx.Run(deps)
}

// openIndex returns a function opening the search index at a path.
// The database stays open until Close.
func (m *Main) openIndex(logger *slog.Logger) func(path string) (hbscontent.EntryService, error) {
	return func(path string) (hbscontent.EntryService, error) {
		if m.DB != nil {
			return nil, fmt.Errorf("index already open")
		}
		db := sqlite.NewDB(path)
		if err := db.Open(); err != nil {
			return nil, fmt.Errorf("failed to open index at %q: %w", path, err)
		}
		m.DB = db
		return hbsslog.NewLoggingEntryService(sqlite.NewEntryService(db), logger), nil
	}
}
