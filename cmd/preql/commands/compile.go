package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nosyt-lien/preql/internal/database"
	"github.com/nosyt-lien/preql/internal/parser"
	"github.com/nosyt-lien/preql/internal/sqlgen"
	"github.com/nosyt-lien/preql/internal/types"
)

// newCompileCommand creates the compile command.
func newCompileCommand(env *Env) *cobra.Command {
	var dialect string

	cmd := &cobra.Command{
		Use:   "compile FILE",
		Short: "Print the DDL of the tables in a file",
		Long:  "Compile the table definitions of a Preql file to CREATE TABLE statements, in dependency order.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.compile(args[0], dialect)
		},
	}

	cmd.Flags().StringVar(&dialect, "dialect", "", "SQL dialect (default: from the database URI)")

	return cmd
}

func (e *Env) compile(path, dialect string) error {
	if dialect == "" {
		u, err := database.ParseURI(e.config.DatabaseURI)
		if err != nil {
			return err
		}
		dialect = u.Scheme
	}
	d, err := sqlgen.NewDialect(dialect)
	if err != nil {
		return err
	}

	f, err := e.fs.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	prog, err := parser.Parse(path, f)
	if err != nil {
		return e.report(err)
	}

	ddl, err := sqlgen.NewCompiler(d, types.NewSchema()).CompileStatements(prog.Stmts)
	if err != nil {
		return e.report(err)
	}
	for _, t := range ddl {
		for _, q := range t.Statements {
			fmt.Fprintf(e.out, "%s;\n\n", q.SQL)
		}
	}
	return nil
}
