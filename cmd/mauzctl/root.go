// Package main implements mauzctl, a thin command-line front end over
// internal/maus and internal/mauz. It is deliberately non-interactive
// (passwords come from flags or stdin, never a masked terminal prompt),
// matching the scope this spec carves out for the CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "mauzctl",
	Short: "Pack, unpack, and inspect Maus/MauZ containers",
	Long: `mauzctl wraps files into Maus streams and MauZ archives, and reverses both.

Maus is a single-file compressed, optionally encrypted and signed container.
MauZ is a multi-entry archive built on top of it, with an offset table for
random access and an optional signed manifest.`,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// Execute runs the CLI, exiting the process on error like the teacher's own
// Execute does.
func Execute(v string) {
	version = v
	rootCmd.Version = v
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
