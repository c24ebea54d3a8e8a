// Package errors provides the typed error taxonomy shared by the Maus and
// MauZ codecs. Callers use errors.Is()/errors.As() against these sentinels
// for specific handling, in particular to distinguish the retryable
// ErrBadPassword from every other, fatal, error kind.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors, one per kind in the taxonomy. Wrap these with fmt.Errorf's
// %w (or Wrap below) to attach context without losing errors.Is() matching.
var (
	// ErrInvalidData covers malformed fixed framing: bad magic, lengths, or
	// option grammar. Fatal to the artifact.
	ErrInvalidData = errors.New("invalid data")

	// ErrUnsupportedVersion is returned when a stream's version is below the
	// implementation's minimum or above its maximum.
	ErrUnsupportedVersion = errors.New("unsupported version")

	// ErrUnknownOption is returned for a format key the implementation does
	// not recognize. Fatal to the containing artifact, except when the
	// artifact's filename is itself encrypted (see Policy, below).
	ErrUnknownOption = errors.New("unknown option")

	// ErrContradictoryOptions is returned when two options in the same
	// collection are semantically incompatible (e.g. both DEF and NK).
	ErrContradictoryOptions = errors.New("contradictory options")

	// ErrBadPassword is returned when HMAC verification or padding removal
	// fails during decrypt. Retryable: callers may supply another key on the
	// same instance without re-parsing the header.
	ErrBadPassword = errors.New("incorrect password or corrupted envelope")

	// ErrBadChecksum is returned when the plaintext checksum does not match
	// after decompression. Fatal.
	ErrBadChecksum = errors.New("checksum mismatch")

	// ErrSignatureMismatch is reported alongside an otherwise successful
	// read. It is not fatal unless it is the archive-level signature on a
	// signed archive.
	ErrSignatureMismatch = errors.New("signature verification failed")

	// ErrIOError wraps errors surfaced unchanged from the underlying sink or
	// source.
	ErrIOError = errors.New("i/o error")

	// ErrInvalidState is returned for caller misuse: writing after seal,
	// reading from a write-mode instance, decrypting before the header is
	// parsed, and similar state-machine violations.
	ErrInvalidState = errors.New("invalid state")
)

// FormatError describes a FormatOptions-level grammar failure, naming the
// offending key when known.
type FormatError struct {
	Key string
	Err error
}

func (e *FormatError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("format: %v", e.Err)
	}
	return fmt.Sprintf("format: option %q: %v", e.Key, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// NewFormatError wraps err (normally one of ErrUnknownOption,
// ErrContradictoryOptions, or ErrInvalidData) with the offending key.
func NewFormatError(key string, err error) *FormatError {
	return &FormatError{Key: key, Err: err}
}

// PathError describes a PathValidator rejection for a filename or archive
// path.
type PathError struct {
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("path %q: %v", e.Path, e.Err)
}

func (e *PathError) Unwrap() error { return e.Err }

// NewPathError wraps err with the rejected path.
func NewPathError(path string, err error) *PathError {
	return &PathError{Path: path, Err: err}
}

// CryptoError describes a failure inside the CryptoPipeline or
// SignatureAdapter, naming the operation.
type CryptoError struct {
	Op  string // "kdf", "cipher", "hmac", "signature", "rand"
	Err error
}

func (e *CryptoError) Error() string {
	return fmt.Sprintf("crypto %s: %v", e.Op, e.Err)
}

func (e *CryptoError) Unwrap() error { return e.Err }

// NewCryptoError wraps err with the operation that produced it.
func NewCryptoError(op string, err error) *CryptoError {
	return &CryptoError{Op: op, Err: err}
}

// EntryError scopes a failure to a single MauZ entry rather than the whole
// archive, matching the policy in spec §4.7: invalid options behind an
// encrypted filename are fatal only to that entry.
type EntryError struct {
	ID   int64
	Path string
	Err  error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("entry %d (%s): %v", e.ID, e.Path, e.Err)
}

func (e *EntryError) Unwrap() error { return e.Err }

// NewEntryError scopes err to the given entry.
func NewEntryError(id int64, path string, err error) *EntryError {
	return &EntryError{ID: id, Path: path, Err: err}
}

// Is reports whether err matches target anywhere in its chain.
func Is(err, target error) bool { return errors.Is(err, target) }

// As finds the first error in err's chain assignable to target.
func As(err error, target any) bool { return errors.As(err, target) }

// Wrap attaches a message to err while preserving the chain for Is/As.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsRetryable reports whether err represents a condition a caller may retry
// on the same instance (currently just a bad password/key).
func IsRetryable(err error) bool {
	return errors.Is(err, ErrBadPassword)
}
