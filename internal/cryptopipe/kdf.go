package cryptopipe

import (
	"hash"

	"golang.org/x/crypto/pbkdf2"

	mzerrors "mauz/internal/errors"
)

// MinIterations is the smallest PBKDF2 iteration count the format permits
// (spec §4.3). The wire format stores iterations-MinIterations.
const MinIterations = 9001

// MaxWireIterations is the largest value the wire's i64 "iterations minus
// MinIterations" slot may hold, bounding the actual iteration count at
// MinIterations+MaxWireIterations = 2^31-1.
const MaxWireIterations = 2147474646

// DeriveKey runs PBKDF2-HMAC-newHash over password and salt for the given
// iteration count, producing keyLen bytes. Password must be non-empty and
// salt must be keyLen bytes, per spec §4.3.
func DeriveKey(newHash func() hash.Hash, password, salt []byte, iterations, keyLen int) ([]byte, error) {
	if len(password) == 0 {
		return nil, mzerrors.NewCryptoError("kdf", mzerrors.ErrInvalidData)
	}
	if len(salt) != keyLen {
		return nil, mzerrors.NewCryptoError("kdf", mzerrors.ErrInvalidData)
	}
	if iterations < MinIterations {
		return nil, mzerrors.NewCryptoError("kdf", mzerrors.ErrInvalidData)
	}
	return pbkdf2.Key(password, salt, iterations, keyLen, newHash), nil
}

// EncodeIterations converts an actual iteration count to its wire
// representation (iterations - MinIterations).
func EncodeIterations(iterations int64) (int64, error) {
	if iterations < MinIterations || iterations-MinIterations > MaxWireIterations {
		return 0, mzerrors.NewCryptoError("kdf", mzerrors.ErrInvalidData)
	}
	return iterations - MinIterations, nil
}

// DecodeIterations converts a wire "lenOrKdf" value back to an actual
// PBKDF2 iteration count, rejecting out-of-range values.
func DecodeIterations(wire int64) (int64, error) {
	if wire < 0 || wire > MaxWireIterations {
		return 0, mzerrors.NewCryptoError("kdf", mzerrors.ErrInvalidData)
	}
	return wire + MinIterations, nil
}
