package signature

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"hash"

	mzerrors "mauz/internal/errors"
)

// RSA signing uses PKCS#1 v1.5 over a caller-supplied digest with
// crypto.Hash(0) (sign the digest bytes directly, skipping the
// DigestInfo-prefix hash identification) so it works uniformly across the
// format's full hash selector set, including SHA3 and Whirlpool, neither of
// which OAEP — an encryption-only padding scheme the spec names for this
// slot — could serve as a signature primitive for. See DESIGN.md.
func signRSA(newHash func() hash.Hash, digest []byte, key *rsa.PrivateKey) ([]byte, error) {
	_ = newHash // selection already baked into digest by the caller
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.Hash(0), digest)
	if err != nil {
		return nil, mzerrors.NewCryptoError("signature", err)
	}
	return sig, nil
}

func verifyRSA(newHash func() hash.Hash, digest, blob []byte, key *rsa.PublicKey) Result {
	_ = newHash
	if err := rsa.VerifyPKCS1v15(key, crypto.Hash(0), digest, blob); err != nil {
		return Unverified
	}
	return Verified
}
