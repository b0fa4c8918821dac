package commands

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/nosyt-lien/preql"
	"github.com/nosyt-lien/preql/internal/debug"
	"github.com/nosyt-lien/preql/internal/diagnostics"
	"github.com/nosyt-lien/preql/internal/telemetry"
)

const replHelp = "# Preql\n\n" +
	"Statements run as soon as they are complete. Table results show one page at a time.\n\n" +
	"| Input | Effect |\n" +
	"|---|---|\n" +
	"| `table t { col: type }` | declare a table |\n" +
	"| `new t(col: value)` | insert a row |\n" +
	"| `t[cond]` | filter rows, `t[0]` takes one row |\n" +
	"| `t{a, b => count(c)}` | project or aggregate |\n" +
	"| `commit()`, `rollback()` | end the transaction |\n" +
	"| `import_tables()` | load tables already in the database |\n" +
	"| `.more` | show the next page of the last table |\n" +
	"| `_` | the last result |\n" +
	"| `exit()` | leave |\n"

// lastResult names the binding holding the last non null result.
const lastResult = "_"

// slowStatement is the duration above which the REPL reports timing.
var slowStatement = time.Second

// newReplCommand creates the repl command.
func newReplCommand(env *Env) *cobra.Command {
	var importTables bool

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.repl(cmd.Context(), importTables)
		},
	}

	cmd.Flags().BoolVar(&importTables, "import", true, "Import existing tables on start")

	return cmd
}

type replState struct {
	env    *Env
	sess   *preql.Session
	cursor *preql.Cursor
}

func (e *Env) repl(ctx context.Context, importTables bool) error {
	sess, err := e.open(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	r := &replState{env: e, sess: sess}
	e.printer.Banner("Preql "+Version, e.config.DatabaseURI)
	if importTables {
		if _, err := sess.ImportTables(ctx); err != nil {
			e.printer.Error(err)
		}
	}

	scanner := bufio.NewScanner(e.in)
	var buf strings.Builder
	prompt := "preql> "
	for {
		fmt.Fprint(e.out, prompt)
		if !scanner.Scan() {
			break
		}
		buf.WriteString(scanner.Text())
		buf.WriteString("\n")
		if !complete(buf.String()) {
			prompt = "  ...> "
			continue
		}
		input := strings.TrimSpace(buf.String())
		buf.Reset()
		prompt = "preql> "

		if err := r.eval(ctx, input); err != nil {
			if diagnostics.IsExit(err) {
				break
			}
			e.printer.Error(err)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	fmt.Fprintln(e.out)
	return r.finish(ctx)
}

func (r *replState) eval(ctx context.Context, input string) error {
	e := r.env
	switch input {
	case "":
		return nil
	case "help()", ".help":
		return e.printer.Markdown(replHelp)
	case ".more":
		if r.cursor == nil || r.cursor.Done() {
			e.printer.Warning("no more rows")
			return nil
		}
		return r.page(ctx)
	}

	start := time.Now()
	defer func() {
		if d := time.Since(start); d > slowStatement {
			e.printer.Warning("(Query took %.2f seconds)", d.Seconds())
		}
	}()

	v, err := r.sess.RunCode(ctx, input, "<repl>")
	if err != nil {
		return err
	}
	if v != nil {
		if err := r.sess.SetValue(lastResult, v); err != nil {
			debug.Debug("result not bound", "name", lastResult, "error", err)
		}
	}
	if p, ok := v.(*preql.Promise); ok {
		r.cursor = p.Cursor(e.config.PageSize)
		return r.page(ctx)
	}
	return e.show(ctx, v)
}

func (r *replState) page(ctx context.Context) error {
	rows, err := r.cursor.Next(ctx)
	if err != nil {
		r.cursor = nil
		return err
	}
	if err := r.env.printer.Value(rows); err != nil {
		return err
	}
	if !r.cursor.Done() {
		fmt.Fprintf(r.env.out, "... more rows after %d, type .more to see them\n", r.cursor.Offset())
	}
	return nil
}

// finish offers to commit work left pending when the loop ends.
func (r *replState) finish(ctx context.Context) error {
	if !pending(r.sess.Telemetry()) {
		return nil
	}
	commit := false
	prompt := &survey.Confirm{Message: "Commit pending changes?", Default: false}
	if err := survey.AskOne(prompt, &commit); err != nil {
		r.env.printer.Warning("pending changes discarded")
		return nil
	}
	if !commit {
		return nil
	}
	if err := r.sess.Commit(ctx); err != nil {
		return err
	}
	r.env.printer.Success("committed")
	return nil
}

// pending reports whether a statement ran after the last commit or
// rollback.
func pending(col *telemetry.Collector) bool {
	dirty := false
	for _, ev := range col.Events() {
		switch ev.Type {
		case telemetry.Exec:
			if ev.Error == "" {
				dirty = true
			}
		case telemetry.Commit, telemetry.Rollback:
			dirty = false
		}
	}
	return dirty
}

// complete reports whether src closes every bracket it opens, ignoring
// double quoted strings and comments.
func complete(src string) bool {
	depth := 0
	inString, comment, escaped := false, false, false
	for _, c := range src {
		switch {
		case comment:
			if c == '\n' {
				comment = false
			}
		case inString:
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
		case c == '"':
			inString = true
		case c == '#':
			comment = true
		case c == '{' || c == '[' || c == '(':
			depth++
		case c == '}' || c == ']' || c == ')':
			depth--
		}
	}
	return depth <= 0 && !inString
}
