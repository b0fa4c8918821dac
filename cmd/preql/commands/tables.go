package commands

import (
	"strings"

	"github.com/Velocidex/ordereddict"
	"github.com/spf13/cobra"

	"github.com/nosyt-lien/preql/internal/types"
)

// newTablesCommand creates the tables command.
func newTablesCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List the tables of the database",
		Long:  "Reflect every table of the database and print its columns.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, err := env.open(ctx)
			if err != nil {
				return err
			}
			defer sess.Close()

			names, err := sess.ImportTables(ctx)
			if err != nil {
				return env.report(err)
			}
			schema := sess.State().Schema()
			rows := make([]*ordereddict.Dict, 0, len(names))
			for _, name := range names {
				t, ok := schema.Table(name)
				if !ok {
					continue
				}
				rows = append(rows, ordereddict.NewDict().
					Set("table", name).
					Set("columns", columns(t)))
			}
			return env.printer.Value(rows)
		},
	}
}

func columns(t *types.Collection) string {
	row, ok := types.RowType(t)
	if !ok {
		return ""
	}
	parts := make([]string, len(row.Fields))
	for i, f := range row.Fields {
		parts[i] = f.Name + ": " + f.Type.String()
	}
	return strings.Join(parts, ", ")
}
