package main

import (
	"fmt"
	"os"
	"path/filepath"

	"mauz/internal/cryptopipe"
	"mauz/internal/maus"

	"github.com/spf13/cobra"
)

var (
	wrapInput       string
	wrapOutput      string
	wrapCompression string
	wrapHash        string
	wrapCipher      string
	wrapBits        uint16
	wrapPassword    string
	wrapPassStdin   bool
	wrapIterations  int64
)

func init() {
	rootCmd.AddCommand(wrapCmd)
	wrapCmd.Flags().StringVarP(&wrapInput, "input", "i", "", "file to wrap into a Maus stream")
	wrapCmd.Flags().StringVarP(&wrapOutput, "output", "o", "", "output .maus path (default: input+.maus)")
	wrapCmd.Flags().StringVar(&wrapCompression, "compress", "none", "compression: none, deflate, lzma")
	wrapCmd.Flags().StringVar(&wrapHash, "hash", "", "hash algorithm (default SHA256)")
	wrapCmd.Flags().StringVar(&wrapCipher, "cipher", "", "cipher: AES, Twofish, Threefish (empty means unencrypted)")
	wrapCmd.Flags().Uint16Var(&wrapBits, "bits", 256, "cipher key size in bits")
	wrapCmd.Flags().StringVarP(&wrapPassword, "password", "p", "", "encryption password")
	wrapCmd.Flags().BoolVarP(&wrapPassStdin, "password-stdin", "P", false, "read password from stdin")
	wrapCmd.Flags().Int64Var(&wrapIterations, "iterations", cryptopipe.MinIterations, "PBKDF2 iteration count")
	_ = wrapCmd.MarkFlagRequired("input")
}

var wrapCmd = &cobra.Command{
	Use:   "wrap",
	Short: "Seal a single file into a Maus stream",
	RunE:  runWrap,
}

func runWrap(cmd *cobra.Command, args []string) error {
	cipherAlgo, err := parseCipher(wrapCipher)
	if err != nil {
		return err
	}
	compAlgo, err := parseCompression(wrapCompression)
	if err != nil {
		return err
	}
	hashAlgo, err := parseHash(wrapHash)
	if err != nil {
		return err
	}

	payload, err := os.ReadFile(wrapInput)
	if err != nil {
		return fmt.Errorf("reading %s: %w", wrapInput, err)
	}

	req := maus.WriteRequest{
		Name:        filepath.Base(wrapInput),
		Compression: compAlgo,
		Hash:        hashAlgo,
	}
	if cipherAlgo != "" {
		password, err := resolvePassword(wrapPassword, wrapPassStdin)
		if err != nil {
			return err
		}
		defer zeroPassword(password)
		req.Cipher = cipherAlgo
		req.CipherBits = wrapBits
		req.Password = password
		req.Iterations = wrapIterations
	}

	out := wrapOutput
	if out == "" {
		out = wrapInput + ".maus"
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := maus.NewWriter(f, req, cryptopipe.DefaultRandom)
	if err != nil {
		return err
	}
	if _, err := w.Write(payload); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Wrote %s\n", out)
	return nil
}
