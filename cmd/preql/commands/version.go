package commands

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/hashicorp/go-version"
	"github.com/spf13/cobra"

	"github.com/nosyt-lien/preql/internal/database"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// newVersionCommand creates the version command.
func newVersionCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := version.NewVersion(Version)
			if err != nil {
				return fmt.Errorf("invalid version %q: %w", Version, err)
			}
			fmt.Fprintf(env.out, "preql version %s\n", v)
			fmt.Fprintf(env.out, "  Git Commit: %s\n", GitCommit)
			fmt.Fprintf(env.out, "  Build Time: %s\n", BuildTime)
			fmt.Fprintf(env.out, "  Go Version: %s\n", runtime.Version())
			fmt.Fprintf(env.out, "  OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
			fmt.Fprintf(env.out, "  Databases: %s\n", strings.Join(database.Schemes(), ", "))
			return nil
		},
	}
}
