package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"mauz/internal/secure"
	"mauz/internal/util"
)

var errPasswordRequired = errors.New("a password is required: pass --password or --password-stdin")

// resolvePassword returns the password bytes for a cipher-bearing command.
// Exactly one of flagPassword/stdin should be requested by the caller;
// mauzctl never prompts a terminal directly (spec §1 excludes interactive
// prompts from this core).
func resolvePassword(flagPassword string, fromStdin bool) ([]byte, error) {
	if fromStdin {
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return nil, fmt.Errorf("reading password from stdin: %w", err)
		}
		line = strings.TrimSuffix(line, "\n")
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			return nil, errPasswordRequired
		}
		return []byte(line), nil
	}
	if flagPassword == "" {
		return nil, errPasswordRequired
	}
	return []byte(flagPassword), nil
}

// generatePassword prints a freshly generated password to stderr and
// returns it, for --generate-password.
func generatePassword() ([]byte, error) {
	pw, err := util.GenPassword(util.PassgenOptions{Length: 24, Upper: true, Lower: true, Numbers: true, Symbols: true})
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(os.Stderr, "Generated password: %s\n", pw)
	return []byte(pw), nil
}

// zeroPassword is deferred at call sites that resolved a password, so the
// in-memory copy doesn't outlive the operation that used it.
func zeroPassword(pw []byte) { secure.Zero(pw) }
