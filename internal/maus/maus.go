// Package maus implements MausContainer (spec §4.5, §6.1): the single-file
// compressed, optionally encrypted and signed, stream format that MauZ
// layers its archive entries on top of.
package maus

import (
	"hash"

	"mauz/internal/compress"
	"mauz/internal/cryptopipe"
	"mauz/internal/digest"
	"mauz/internal/options"

	mzerrors "mauz/internal/errors"
)

// Magic is the fixed 4-byte prefix of every Maus stream ("mAuS").
var Magic = [4]byte{'m', 'A', 'u', 'S'}

// MinVersion is the lowest wire version this implementation accepts.
// MaxVersion is the highest it knows how to write or read.
const (
	MinVersion uint16 = 100
	MaxVersion uint16 = 100
)

// DefaultHash is used for checksum/HMAC/KDF when the Hash option is absent.
const DefaultHash = digest.SHA256

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

func compressionAlgoOf(c *options.FormatCollection) compress.Algorithm {
	switch {
	case c.Has(options.KeyDeflate):
		return compress.Deflate
	case c.Has(options.KeyLZMA):
		return compress.LZMA
	default:
		return compress.Identity
	}
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
			panic(err) // algo was validated by hashAlgoOf before this is ever called
		}
		return h
	}
}

func sigKeyFor(algo string) (options.Key, bool) {
	switch algo {
	case "RSA":
		return options.KeyRSASig, true
	case "DSA":
		return options.KeyDSASig, true
	case "ECDSA":
		return options.KeyECDSASig, true
	default:
		return "", false
	}
}
