// Package commands implements CLI commands.
package commands

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/nosyt-lien/preql"
	"github.com/nosyt-lien/preql/internal/config"
	"github.com/nosyt-lien/preql/internal/debug"
	"github.com/nosyt-lien/preql/internal/diagnostics"
	"github.com/nosyt-lien/preql/internal/telemetry"
	"github.com/nosyt-lien/preql/internal/ui"
)

// Env is the state shared by the commands of one invocation.
type Env struct {
	fs        afero.Fs
	in        io.Reader
	out       io.Writer
	errOut    io.Writer
	config    *config.Config
	printer   *ui.Printer
	telemetry *telemetry.Collector
}

// NewRootCommand creates the preql command tree on the process stdio.
func NewRootCommand() *cobra.Command {
	return newRootCommand(afero.NewOsFs(), os.Stdin, os.Stdout, os.Stderr)
}

func newRootCommand(fs afero.Fs, in io.Reader, out, errOut io.Writer) *cobra.Command {
	env := &Env{fs: fs, in: in, out: out, errOut: errOut, telemetry: telemetry.NewCollector(0)}

	var (
		db     string
		debugF bool
		format string
		stats  bool
	)

	root := &cobra.Command{
		Use:           "preql",
		Short:         "Preql, a relational programming language compiled to SQL",
		Long:          "Run Preql programs and queries against SQLite, PostgreSQL, MySQL or DuckDB.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(fs)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("db") {
				cfg.DatabaseURI = db
			}
			if flags.Changed("debug") {
				cfg.Debug = debugF
			}
			if flags.Changed("format") {
				cfg.Format = format
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			debug.InitWith(errOut, cfg.Debug, cfg.Format == "json")
			env.config = cfg
			env.printer = ui.New(out, errOut, cfg.Format)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if stats {
				return env.printer.Stats(env.telemetry.Summarize())
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&db, "db", "", "Database URI (default from config, sqlite://:memory:)")
	pf.BoolVar(&debugF, "debug", false, "Log compiled SQL and session events")
	pf.StringVar(&format, "format", "text", "Output format: text or json")
	pf.BoolVar(&stats, "stats", false, "Print query statistics when done")

	root.AddCommand(newRunCommand(env))
	root.AddCommand(newReplCommand(env))
	root.AddCommand(newCompileCommand(env))
	root.AddCommand(newTablesCommand(env))
	root.AddCommand(newVersionCommand(env))
	return root
}

// open starts a session on the configured database.
func (e *Env) open(ctx context.Context) (*preql.Session, error) {
	return preql.Open(ctx, e.config.DatabaseURI,
		preql.WithConnectTimeout(e.config.ConnectTimeout),
		preql.WithFs(e.fs),
		preql.WithTelemetry(e.telemetry),
		preql.WithFormat(e.config.Format),
	)
}

// show prints a result. Promises are forced.
func (e *Env) show(ctx context.Context, v interface{}) error {
	switch x := v.(type) {
	case nil:
		return nil
	case *preql.Promise:
		rows, err := x.Rows(ctx)
		if err != nil {
			return err
		}
		return e.printer.Value(rows)
	}
	return e.printer.Value(v)
}

// reportedError marks an error already printed to the user.
type reportedError struct{ err error }

func (r *reportedError) Error() string { return r.err.Error() }
func (r *reportedError) Unwrap() error { return r.err }

// report prints err and marks it as reported. Exit signals pass through.
func (e *Env) report(err error) error {
	if err == nil || diagnostics.IsExit(err) {
		return err
	}
	e.printer.Error(err)
	return &reportedError{err: err}
}

// Reported reports whether err was already printed.
func Reported(err error) bool {
	var r *reportedError
	return errors.As(err, &r)
}
