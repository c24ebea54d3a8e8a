package cryptopipe

import (
	"bytes"
	"crypto/rand"

	mzerrors "mauz/internal/errors"
)

// SecureRandom is the injected capability for generating salts and IVs
// (spec §5, §6.3). The default implementation wraps crypto/rand.
type SecureRandom interface {
	Fill(b []byte) error
}

type cryptoRandom struct{}

// DefaultRandom is the crypto/rand-backed SecureRandom used outside tests.
var DefaultRandom SecureRandom = cryptoRandom{}

func (cryptoRandom) Fill(b []byte) error {
	if _, err := rand.Read(b); err != nil {
		return mzerrors.NewCryptoError("rand", err)
	}
	if len(b) > 0 && bytes.Equal(b, make([]byte, len(b))) {
		return mzerrors.NewCryptoError("rand", mzerrors.ErrInvalidData)
	}
	return nil
}
