// Package pathvalidate validates filenames and archive-relative paths per
// spec §4.2/§6.2: byte-length bounds, control-character and surrogate
// rejection, and the archive-wide uniqueness/prefix rules MauZArchive
// enforces across its entry set.
package pathvalidate

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	mzerrors "mauz/internal/errors"
)

// ManifestPath is the one archive path exempt from the leading-slash
// prohibition (spec §4.2, §6.2).
const ManifestPath = "/Manifest.dat"

// EncryptedPlaceholderPrefix is the exemption to the forbidden-'/' rule for
// filenames: encrypted-filename placeholders take the literal form
// "//V<id>" (spec §9 open question).
const EncryptedPlaceholderPrefix = "//V"

// Filename reports whether name is a valid single path segment: 1..256
// UTF-8 bytes, no disallowed control/separator bytes outside whitespace, no
// unpaired surrogate, at least one non-whitespace code point, and not "."
// or "..".
func Filename(name string) error {
	n := len(name)
	if n < 1 || n > 256 {
		return mzerrors.NewPathError(name, mzerrors.ErrInvalidData)
	}
	if name == "." || name == ".." {
		return mzerrors.NewPathError(name, mzerrors.ErrInvalidData)
	}
	if strings.ContainsRune(name, '/') {
		return mzerrors.NewPathError(name, mzerrors.ErrInvalidData)
	}
	if !utf8.ValidString(name) {
		return mzerrors.NewPathError(name, mzerrors.ErrInvalidData)
	}

	hasNonWhitespace := false
	for _, r := range name {
		if utf16.IsSurrogate(r) {
			return mzerrors.NewPathError(name, mzerrors.ErrInvalidData)
		}
		if isForbiddenControl(r) {
			return mzerrors.NewPathError(name, mzerrors.ErrInvalidData)
		}
		if !isWhitespace(r) {
			hasNonWhitespace = true
		}
	}
	if !hasNonWhitespace {
		return mzerrors.NewPathError(name, mzerrors.ErrInvalidData)
	}
	return nil
}

func isWhitespace(r rune) bool {
	switch r {
	case 0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x20:
		return true
	default:
		return false
	}
}

func isForbiddenControl(r rune) bool {
	if isWhitespace(r) {
		return false
	}
	return (r >= 0x00 && r <= 0x1F) || (r >= 0x7F && r <= 0x9F)
}

// ArchivePath reports whether path is a valid archive-relative path: 1..
// 65535 UTF-8 bytes, slash-separated into one or more valid filename
// segments, no leading/trailing/doubled slash — except that an
// empty-directory path (trailing slash, see EmptyDirPath) and
// ManifestPath are handled by their dedicated validators, not this one.
func ArchivePath(path string) error {
	n := len(path)
	if n < 1 || n > 65535 {
		return mzerrors.NewPathError(path, mzerrors.ErrInvalidData)
	}
	if !utf8.ValidString(path) {
		return mzerrors.NewPathError(path, mzerrors.ErrInvalidData)
	}
	if strings.HasPrefix(path, "/") || strings.HasSuffix(path, "/") {
		return mzerrors.NewPathError(path, mzerrors.ErrInvalidData)
	}
	segments := strings.Split(path, "/")
	for _, seg := range segments {
		if err := Filename(seg); err != nil {
			return mzerrors.NewPathError(path, mzerrors.ErrInvalidData)
		}
	}
	return nil
}

// EmptyDirPath reports whether path is a valid empty-directory path: ends
// in exactly one trailing '/', is ≤255 UTF-8 bytes including that slash,
// and the residual (the path without that slash) validates as an
// ArchivePath.
func EmptyDirPath(path string) error {
	if len(path) < 1 || len(path) > 255 {
		return mzerrors.NewPathError(path, mzerrors.ErrInvalidData)
	}
	if !strings.HasSuffix(path, "/") || strings.HasSuffix(path[:len(path)-1], "/") {
		return mzerrors.NewPathError(path, mzerrors.ErrInvalidData)
	}
	residual := path[:len(path)-1]
	if len(residual) > 255 {
		return mzerrors.NewPathError(path, mzerrors.ErrInvalidData)
	}
	return ArchivePath(residual)
}

// IsEncryptedPlaceholder reports whether path begins with the
// encrypted-filename placeholder prefix "//V". The characters after the
// prefix are not checked.
func IsEncryptedPlaceholder(path string) bool {
	return strings.HasPrefix(path, EncryptedPlaceholderPrefix)
}

// Unique validates the archive-wide rules across a full set of entry paths:
// no duplicate path, no file path is a strict segment-prefix of another
// entry's path, and ManifestPath is exempt from the general ArchivePath
// leading-slash rule but still participates in uniqueness.
//
// isDir reports, for a given path, whether it names a directory (an
// empty-directory entry) rather than a file.
func Unique(paths []string, isDir func(path string) bool) error {
	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		if seen[p] {
			return mzerrors.NewPathError(p, mzerrors.ErrInvalidData)
		}
		seen[p] = true
	}
	for _, a := range paths {
		if isDir(a) {
			continue
		}
		prefix := a + "/"
		for _, b := range paths {
			if a == b {
				continue
			}
			if strings.HasPrefix(b, prefix) {
				return mzerrors.NewPathError(a, mzerrors.ErrContradictoryOptions)
			}
		}
	}
	return nil
}
