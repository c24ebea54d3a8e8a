package cryptopipe

import (
	"crypto/hmac"
	"hash"

	mzerrors "mauz/internal/errors"
)

// ComputeHMAC computes HMAC-newHash(key, data).
func ComputeHMAC(newHash func() hash.Hash, key, data []byte) []byte {
	m := hmac.New(newHash, key)
	m.Write(data)
	return m.Sum(nil)
}

// VerifyHMAC recomputes the HMAC over data and compares it against tag
// using a constant-time comparison (spec §4.3, §8). A mismatch is reported
// as ErrBadPassword, matching decrypt's inability to distinguish a wrong
// key from a corrupted envelope.
func VerifyHMAC(newHash func() hash.Hash, key, data, tag []byte) error {
	if !hmac.Equal(ComputeHMAC(newHash, key, data), tag) {
		return mzerrors.ErrBadPassword
	}
	return nil
}
