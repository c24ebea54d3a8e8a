// Package digest implements the HashFunction capability (spec §6.3): the
// single selectable hash algorithm used throughout one container's
// checksum, HMAC, KDF inner PRF, and signature digest (the "specified hash
// function" in the GLOSSARY).
package digest

import (
	"crypto/sha256"
	"crypto/sha512"
	"hash"

	"github.com/jzelinskie/whirlpool"
	"golang.org/x/crypto/sha3"

	mzerrors "mauz/internal/errors"
)

// Algorithm names one of the recognized Hash option selectors.
type Algorithm string

const (
	SHA224    Algorithm = "SHA224"
	SHA256    Algorithm = "SHA256"
	SHA384    Algorithm = "SHA384"
	SHA512    Algorithm = "SHA512"
	SHA3_224  Algorithm = "SHA3-224"
	SHA3_256  Algorithm = "SHA3-256"
	SHA3_384  Algorithm = "SHA3-384"
	SHA3_512  Algorithm = "SHA3-512"
	Whirlpool Algorithm = "Whirlpool"
)

var constructors = map[Algorithm]func() hash.Hash{
	SHA224:    sha256.New224,
	SHA256:    sha256.New,
	SHA384:    sha512.New384,
	SHA512:    sha512.New,
	SHA3_224:  sha3.New224,
	SHA3_256:  sha3.New256,
	SHA3_384:  sha3.New384,
	SHA3_512:  sha3.New512,
	Whirlpool: whirlpool.New,
}

// Size returns the digest size in bytes for algo, or 0 for an unrecognized
// algorithm.
func Size(algo Algorithm) int {
	c, ok := constructors[algo]
	if !ok {
		return 0
	}
	return c().Size()
}

// New returns a fresh Hasher for algo.
func New(algo Algorithm) (hash.Hash, error) {
	c, ok := constructors[algo]
	if !ok {
		return nil, mzerrors.NewCryptoError("hash", mzerrors.ErrInvalidData)
	}
	return c(), nil
}

// Sum computes algo's digest of data in one call.
func Sum(algo Algorithm, data []byte) ([]byte, error) {
	h, err := New(algo)
	if err != nil {
		return nil, err
	}
	h.Write(data)
	return h.Sum(nil), nil
}

// Valid reports whether algo is a recognized selector.
func Valid(algo Algorithm) bool {
	_, ok := constructors[algo]
	return ok
}
