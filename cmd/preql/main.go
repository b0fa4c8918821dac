// Package main is the entry point for the preql CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/nosyt-lien/preql/cmd/preql/commands"
	"github.com/nosyt-lien/preql/internal/diagnostics"
)

func main() {
	err := commands.NewRootCommand().Execute()
	if err == nil {
		return
	}
	var sig *diagnostics.ExitSignal
	if errors.As(err, &sig) {
		os.Exit(sig.Code)
	}
	if !commands.Reported(err) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(1)
}
