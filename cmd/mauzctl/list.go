package main

import (
	"fmt"
	"os"

	"mauz/internal/mauz"
	"mauz/internal/util"

	"github.com/spf13/cobra"
)

var (
	listInput     string
	listPassword  string
	listPassStdin bool
)

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringVarP(&listInput, "input", "i", "", "MauZ archive to inspect")
	listCmd.Flags().StringVarP(&listPassword, "password", "p", "", "archive password, if whole-archive encrypted")
	listCmd.Flags().BoolVarP(&listPassStdin, "password-stdin", "P", false, "read password from stdin")
	_ = listCmd.MarkFlagRequired("input")
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List a MauZ archive's entries",
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	f, err := os.Open(listInput)
	if err != nil {
		return err
	}
	defer f.Close()

	r, err := mauz.NewReader(f)
	if err != nil {
		return err
	}
	if r.Encrypted() {
		password, err := resolvePassword(listPassword, listPassStdin)
		if err != nil {
			return err
		}
		defer zeroPassword(password)
		if err := r.Decrypt(password); err != nil {
			return err
		}
	}

	for _, e := range r.Entries() {
		if e.Err != nil {
			fmt.Printf("%4d  %-8s  %10s  %s (unreadable: %v)\n", e.ID, "error", "-", e.StoredPath, e.Err)
			continue
		}
		kind := "file"
		switch {
		case e.IsManifest:
			kind = "manifest"
		case e.IsEmptyDir:
			kind = "dir"
		}
		enc := ""
		if e.Reader.Encrypted() {
			enc = " (encrypted)"
		}
		fmt.Printf("%4d  %-8s  %10s  %s%s\n", e.ID, kind, util.Sizeify(e.Reader.CompLen()), e.StoredPath, enc)
	}
	return nil
}
