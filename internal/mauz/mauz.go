// Package mauz implements MauZArchive (spec §4.6, §6.2): the multi-entry
// archive format layered on top of MausContainer, with an entry table, an
// offset table for random access, optional whole-archive encryption, and an
// optional signed manifest binding every entry's authentication tag.
package mauz

import (
	"hash"
	"io"
	"strconv"
	"strings"

	"mauz/internal/cryptopipe"
	"mauz/internal/digest"
	mzerrors "mauz/internal/errors"
	"mauz/internal/options"
	"mauz/internal/pathvalidate"
)

// Magic is the fixed 4-byte prefix of every MauZ archive ("mAuZ").
var Magic = [4]byte{'m', 'A', 'u', 'Z'}

const (
	MinVersion uint16 = 100
	MaxVersion uint16 = 100
)

// DefaultHash is used for the whole-archive KDF/HMAC and the archive-level
// signature digest when no Hash option is given.
const DefaultHash = digest.SHA256

// Wire prefixes (spec §6.2). Each is 4 ASCII bytes led by 0x03.
const (
	prefixEntry        = "\x03dat"
	prefixOffsetTable  = "\x03VER"
	prefixOffsetRecord = "\x03ver"
	prefixManifest     = "\x03SIG"
	prefixManifestRec  = "\x03sig"
)

// ManifestPath is the fixed archive path of the signed manifest entry.
const ManifestPath = pathvalidate.ManifestPath

func placeholderPath(id int64) string {
	return pathvalidate.EncryptedPlaceholderPrefix + strconv.FormatInt(id, 10)
}

func hashAlgoOf(c *options.FormatCollection) (digest.Algorithm, error) {
	entry, ok := c.Get(options.KeyHash)
	if !ok {
		return DefaultHash, nil
	}
	name, err := options.DecodeString(entry.Parameters[0])
	if err != nil {
		return "", err
	}
	algo := digest.Algorithm(name)
	if !digest.Valid(algo) {
		return "", mzerrors.NewFormatError(string(options.KeyHash), mzerrors.ErrInvalidData)
	}
	return algo, nil
}

func cipherOf(c *options.FormatCollection) (algo cryptopipe.Algo, bits uint16, ok bool, err error) {
	entry, present := c.Get(options.KeyVer)
	if !present {
		return "", 0, false, nil
	}
	name, err := options.DecodeString(entry.Parameters[0])
	if err != nil {
		return "", 0, false, err
	}
	b, err := options.DecodeUint16(entry.Parameters[1])
	if err != nil {
		return "", 0, false, err
	}
	return cryptopipe.Algo(name), b, true, nil
}

func newHashFunc(algo digest.Algorithm) func() hash.Hash {
	return func() hash.Hash {
		h, err := digest.New(algo)
		if err != nil {
			panic(err)
		}
		return h
	}
}

// isManifestPath reports whether path is the reserved manifest path. The
// manifest is never filename-encrypted, so this compares literal paths,
// not placeholders.
func isManifestPath(path string) bool { return path == ManifestPath }

func isEmptyDirStoredPath(path string) bool {
	return !strings.HasPrefix(path, pathvalidate.EncryptedPlaceholderPrefix) && strings.HasSuffix(path, "/")
}

// byteCounter wraps an io.Reader and records how many bytes have passed
// through it, so the reader can compute the whole-archive envelope's
// length from totalSize without the underlying source supporting Seek.
type byteCounter struct {
	r io.Reader
	n int64
}

func (c *byteCounter) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
