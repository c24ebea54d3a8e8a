package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mauz/internal/mauz"
	"mauz/internal/pathvalidate"

	"github.com/spf13/cobra"
)

var (
	unpackInput     string
	unpackOutDir    string
	unpackPassword  string
	unpackPassStdin bool
)

func init() {
	rootCmd.AddCommand(unpackCmd)
	unpackCmd.Flags().StringVarP(&unpackInput, "input", "i", "", "MauZ archive to extract")
	unpackCmd.Flags().StringVarP(&unpackOutDir, "output", "o", ".", "directory to extract into")
	unpackCmd.Flags().StringVarP(&unpackPassword, "password", "p", "", "archive password")
	unpackCmd.Flags().BoolVarP(&unpackPassStdin, "password-stdin", "P", false, "read password from stdin")
	_ = unpackCmd.MarkFlagRequired("input")
}

var unpackCmd = &cobra.Command{
	Use:   "unpack",
	Short: "Extract a MauZ archive",
	RunE:  runUnpack,
}

func runUnpack(cmd *cobra.Command, args []string) error {
	f, err := os.Open(unpackInput)
	if err != nil {
		return err
	}
	defer f.Close()

	r, err := mauz.NewReader(f)
	if err != nil {
		return err
	}

	var archivePassword []byte
	if r.Encrypted() {
		archivePassword, err = resolvePassword(unpackPassword, unpackPassStdin)
		if err != nil {
			return err
		}
		defer zeroPassword(archivePassword)
		if err := r.Decrypt(archivePassword); err != nil {
			return err
		}
	}

	for _, e := range r.Entries() {
		if e.IsManifest {
			continue
		}
		if e.Err != nil {
			fmt.Fprintf(os.Stderr, "Skipping entry %d (%s): %v\n", e.ID, e.StoredPath, e.Err)
			continue
		}
		name := e.StoredPath
		if pathvalidate.IsEncryptedPlaceholder(name) {
			password := archivePassword
			if len(password) == 0 {
				password, err = resolvePassword(unpackPassword, unpackPassStdin)
				if err != nil {
					return fmt.Errorf("entry %d is filename-encrypted and needs a password: %w", e.ID, err)
				}
				defer zeroPassword(password)
			}
			if err := e.Reader.Decrypt(password); err != nil {
				return fmt.Errorf("entry %d: %w", e.ID, err)
			}
			if real, ok := e.Reader.Name(); ok {
				name = real
			}
		} else if e.Reader.Encrypted() {
			password, err := resolvePassword(unpackPassword, unpackPassStdin)
			if err != nil {
				return fmt.Errorf("entry %s is encrypted and needs a password: %w", name, err)
			}
			defer zeroPassword(password)
			if err := e.Reader.Decrypt(password); err != nil {
				return fmt.Errorf("entry %s: %w", name, err)
			}
		}

		dest := filepath.Join(unpackOutDir, filepath.FromSlash(name))
		if e.IsEmptyDir {
			if err := os.MkdirAll(dest, 0755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return err
		}
		payload, err := e.Reader.Open()
		if err != nil {
			return fmt.Errorf("entry %s: %w", name, err)
		}
		if err := os.WriteFile(dest, payload, 0644); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Extracted %s\n", strings.TrimPrefix(dest, unpackOutDir+string(filepath.Separator)))
	}
	return nil
}
