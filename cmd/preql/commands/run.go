package commands

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/nosyt-lien/preql/internal/watch"
)

// newRunCommand creates the run command.
func newRunCommand(env *Env) *cobra.Command {
	var (
		watchFile bool
		commit    bool
	)

	cmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Run a Preql file",
		Long:  "Execute a Preql file and print the value of its last expression.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !watchFile {
				return env.runFile(cmd.Context(), args[0], commit)
			}
			return env.watchFile(cmd.Context(), args[0], commit)
		},
	}

	cmd.Flags().BoolVarP(&watchFile, "watch", "w", false, "Run again whenever the file changes")
	cmd.Flags().BoolVar(&commit, "commit", false, "Commit changes when the file succeeds")

	return cmd
}

// runFile executes path in a fresh session.
func (e *Env) runFile(ctx context.Context, path string, commit bool) error {
	code, err := afero.ReadFile(e.fs, path)
	if err != nil {
		return err
	}

	sess, err := e.open(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	v, err := sess.RunCode(ctx, string(code), path)
	if err != nil {
		return e.report(err)
	}
	if err := e.show(ctx, v); err != nil {
		return e.report(err)
	}
	if commit {
		if err := sess.Commit(ctx); err != nil {
			return e.report(err)
		}
	}
	return nil
}

func (e *Env) watchFile(ctx context.Context, path string, commit bool) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	w, err := watch.New(path, func() error {
		e.printer.Success("running %s", path)
		err := e.runFile(ctx, path, commit)
		if Reported(err) {
			return nil
		}
		return err
	})
	if err != nil {
		return err
	}
	w.OnError = e.printer.Error

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
