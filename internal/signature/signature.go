// Package signature implements the SignatureAdapter (spec §4.4): RSA, DSA,
// and ECDSA sign/verify over a caller-supplied digest, with DSA/ECDSA
// nonces derived deterministically per RFC 6979 rather than from a random
// source. Core callers never see key material shapes — they pass one of
// *rsa.PrivateKey, *dsa.PrivateKey, or *ecdsa.PrivateKey (and the matching
// public key on verify) through the Algorithm-tagged entry points.
package signature

import (
	"crypto/dsa"
	"crypto/ecdsa"
	"crypto/rsa"
	"hash"
	"math/big"

	mzerrors "mauz/internal/errors"
)

// Algorithm names a recognized *sig option's asymmetric family.
type Algorithm string

const (
	RSA   Algorithm = "RSA"
	DSA   Algorithm = "DSA"
	ECDSA Algorithm = "ECDSA"
)

// Result reports the outcome of Verify. Verification never returns an
// error for a normal wrong-key or absent-signature outcome (spec §4.4).
type Result int

const (
	Verified Result = iota
	Unverified
	NoSignature
	KeyMismatch
)

func (r Result) String() string {
	switch r {
	case Verified:
		return "Verified"
	case Unverified:
		return "Unverified"
	case NoSignature:
		return "NoSignature"
	case KeyMismatch:
		return "KeyMismatch"
	default:
		return "unknown"
	}
}

// Sign produces a signature blob over digest using privateKey, which must
// be a *rsa.PrivateKey, *dsa.PrivateKey, or *ecdsa.PrivateKey matching
// algo. newHash selects the digest algorithm the signature scheme itself
// hashes with (the format's single "specified hash function").
func Sign(algo Algorithm, newHash func() hash.Hash, digest []byte, privateKey any) ([]byte, error) {
	switch algo {
	case RSA:
		key, ok := privateKey.(*rsa.PrivateKey)
		if !ok {
			return nil, mzerrors.NewCryptoError("signature", mzerrors.ErrInvalidData)
		}
		return signRSA(newHash, digest, key)
	case DSA:
		key, ok := privateKey.(*dsa.PrivateKey)
		if !ok {
			return nil, mzerrors.NewCryptoError("signature", mzerrors.ErrInvalidData)
		}
		return signDSA(newHash, digest, key)
	case ECDSA:
		key, ok := privateKey.(*ecdsa.PrivateKey)
		if !ok {
			return nil, mzerrors.NewCryptoError("signature", mzerrors.ErrInvalidData)
		}
		return signECDSA(newHash, digest, key)
	default:
		return nil, mzerrors.NewCryptoError("signature", mzerrors.ErrInvalidData)
	}
}

// Verify parses blob and checks it against digest using publicKey, which
// must match algo's key type. It reports NoSignature for an empty blob and
// KeyMismatch when the public key's shape is incompatible with the blob,
// never an error, for any ordinary verification outcome.
func Verify(algo Algorithm, newHash func() hash.Hash, digest, blob []byte, publicKey any) Result {
	if len(blob) == 0 {
		return NoSignature
	}
	switch algo {
	case RSA:
		key, ok := publicKey.(*rsa.PublicKey)
		if !ok {
			return KeyMismatch
		}
		return verifyRSA(newHash, digest, blob, key)
	case DSA:
		key, ok := publicKey.(*dsa.PublicKey)
		if !ok {
			return KeyMismatch
		}
		return verifyDSA(digest, blob, key)
	case ECDSA:
		key, ok := publicKey.(*ecdsa.PublicKey)
		if !ok {
			return KeyMismatch
		}
		return verifyECDSA(digest, blob, key)
	default:
		return KeyMismatch
	}
}

// rsPair bundles the two big.Int components DSA and ECDSA signatures
// share before DER encoding.
type rsPair struct{ r, s *big.Int }
