package main

import (
	"fmt"
	"os"
	"path/filepath"

	"mauz/internal/compress"
	"mauz/internal/cryptopipe"
	"mauz/internal/maus"
	"mauz/internal/mauz"

	"github.com/spf13/cobra"
)

var (
	packInputs       []string
	packOutput       string
	packCompression  string
	packHash         string
	packCipher       string
	packBits         uint16
	packPassword     string
	packPassStdin    bool
	packGeneratePass bool
	packIterations   int64
	packSigned       bool
)

func init() {
	rootCmd.AddCommand(packCmd)
	packCmd.Flags().StringArrayVarP(&packInputs, "input", "i", nil, "file or directory to add (repeatable)")
	packCmd.Flags().StringVarP(&packOutput, "output", "o", "", "output .mz archive path")
	packCmd.Flags().StringVar(&packCompression, "compress", "none", "per-entry compression: none, deflate, lzma")
	packCmd.Flags().StringVar(&packHash, "hash", "", "hash algorithm (default SHA256)")
	packCmd.Flags().StringVar(&packCipher, "cipher", "", "whole-archive cipher: AES, Twofish, Threefish (empty means unencrypted)")
	packCmd.Flags().Uint16Var(&packBits, "bits", 256, "cipher key size in bits")
	packCmd.Flags().StringVarP(&packPassword, "password", "p", "", "archive password")
	packCmd.Flags().BoolVarP(&packPassStdin, "password-stdin", "P", false, "read password from stdin")
	packCmd.Flags().BoolVar(&packGeneratePass, "generate-password", false, "generate and print a random password instead of reading one")
	packCmd.Flags().Int64Var(&packIterations, "iterations", cryptopipe.MinIterations, "PBKDF2 iteration count")
	packCmd.Flags().BoolVar(&packSigned, "signed", false, "append a manifest entry binding every entry's authentication tag")
	_ = packCmd.MarkFlagRequired("input")
}

var packCmd = &cobra.Command{
	Use:   "pack",
	Short: "Build a MauZ archive from files and directories",
	RunE:  runPack,
}

func runPack(cmd *cobra.Command, args []string) error {
	cipherAlgo, err := parseCipher(packCipher)
	if err != nil {
		return err
	}
	compAlgo, err := parseCompression(packCompression)
	if err != nil {
		return err
	}
	hashAlgo, err := parseHash(packHash)
	if err != nil {
		return err
	}

	entries, err := collectEntries(packInputs, compAlgo)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("no files found under the given inputs")
	}

	req := mauz.WriteRequest{
		Entries:  entries,
		Signed:   packSigned,
		HashAlgo: hashAlgo,
	}

	if cipherAlgo != "" {
		var password []byte
		if packGeneratePass {
			password, err = generatePassword()
		} else {
			password, err = resolvePassword(packPassword, packPassStdin)
		}
		if err != nil {
			return err
		}
		defer zeroPassword(password)
		req.Cipher = cipherAlgo
		req.CipherBits = packBits
		req.Password = password
		req.Iterations = packIterations
	}

	out := packOutput
	if out == "" {
		out = "archive.mz"
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()

	w := mauz.NewWriter(req, cryptopipe.DefaultRandom)
	n, err := w.WriteTo(f)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Wrote %s (%d bytes, %d entries)\n", out, n, len(entries))
	return nil
}

// collectEntries walks each input path into a flat list of archive entries.
// A bare file becomes one entry named by its base name; a directory is
// walked recursively with slash-separated paths rooted at the directory's
// own base name, and a directory with no files under it becomes an
// EmptyDir entry.
func collectEntries(inputs []string, compAlgo compress.Algorithm) ([]mauz.EntryRequest, error) {
	var out []mauz.EntryRequest
	for _, input := range inputs {
		matches, err := filepath.Glob(input)
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", input, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("input not found: %s", input)
		}
		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil {
				return nil, fmt.Errorf("cannot access %s: %w", match, err)
			}
			if !info.IsDir() {
				payload, err := os.ReadFile(match)
				if err != nil {
					return nil, err
				}
				out = append(out, entryFor(filepath.Base(match), payload, compAlgo))
				continue
			}
			base := filepath.Base(match)
			sawFile := false
			err = filepath.Walk(match, func(path string, fi os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if path == match || fi.IsDir() {
					return nil
				}
				rel, err := filepath.Rel(match, path)
				if err != nil {
					return err
				}
				archivePath := filepath.ToSlash(filepath.Join(base, rel))
				sawFile = true
				payload, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				out = append(out, entryFor(archivePath, payload, compAlgo))
				return nil
			})
			if err != nil {
				return nil, fmt.Errorf("walking %s: %w", match, err)
			}
			if !sawFile {
				out = append(out, mauz.EntryRequest{Path: base + "/", EmptyDir: true})
			}
		}
	}
	return out, nil
}

func entryFor(path string, payload []byte, compAlgo compress.Algorithm) mauz.EntryRequest {
	return mauz.EntryRequest{
		Path:    path,
		Payload: payload,
		Maus:    maus.WriteRequest{Compression: compAlgo},
	}
}
