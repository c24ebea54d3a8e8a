package main

import (
	"fmt"
	"os"
	"strings"

	"mauz/internal/maus"

	"github.com/spf13/cobra"
)

var (
	unwrapInput     string
	unwrapOutput    string
	unwrapPassword  string
	unwrapPassStdin bool
)

func init() {
	rootCmd.AddCommand(unwrapCmd)
	unwrapCmd.Flags().StringVarP(&unwrapInput, "input", "i", "", "Maus stream to unwrap")
	unwrapCmd.Flags().StringVarP(&unwrapOutput, "output", "o", "", "output file path (default: stream's Name option, or input minus .maus)")
	unwrapCmd.Flags().StringVarP(&unwrapPassword, "password", "p", "", "decryption password")
	unwrapCmd.Flags().BoolVarP(&unwrapPassStdin, "password-stdin", "P", false, "read password from stdin")
	_ = unwrapCmd.MarkFlagRequired("input")
}

var unwrapCmd = &cobra.Command{
	Use:   "unwrap",
	Short: "Open a Maus stream and recover its payload",
	RunE:  runUnwrap,
}

func runUnwrap(cmd *cobra.Command, args []string) error {
	f, err := os.Open(unwrapInput)
	if err != nil {
		return err
	}
	defer f.Close()

	r, err := maus.NewReader(f)
	if err != nil {
		return err
	}
	if r.Encrypted() {
		password, err := resolvePassword(unwrapPassword, unwrapPassStdin)
		if err != nil {
			return err
		}
		defer zeroPassword(password)
		if err := r.Decrypt(password); err != nil {
			return err
		}
	}

	payload, err := r.Open()
	if err != nil {
		return err
	}

	out := unwrapOutput
	if out == "" {
		if name, ok := r.Name(); ok {
			out = name
		} else {
			out = strings.TrimSuffix(unwrapInput, ".maus")
		}
	}
	if err := os.WriteFile(out, payload, 0644); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Wrote %s (%d bytes)\n", out, len(payload))
	return nil
}
