package signature

import (
	"crypto/dsa"
	"hash"
	"math/big"

	mzerrors "mauz/internal/errors"
)

// signDSA computes (r, s) with k derived deterministically via RFC 6979
// instead of crypto/dsa.Sign's random nonce, and DER-encodes the result.
// It uses P, Q, G, X, Y exactly as stored on key — never substituting Q for
// G, the historical bug spec §9 calls out to avoid.
func signDSA(newHash func() hash.Hash, digest []byte, key *dsa.PrivateKey) ([]byte, error) {
	p, q, g, x := key.P, key.Q, key.G, key.X
	if p == nil || q == nil || g == nil || x == nil || q.Sign() == 0 {
		return nil, mzerrors.NewCryptoError("signature", mzerrors.ErrInvalidData)
	}
	z := bits2int(digest, q.BitLen())
	k := deterministicK(newHash, q, x, digest)
	kInv := new(big.Int).ModInverse(k, q)
	if kInv == nil {
		return nil, mzerrors.NewCryptoError("signature", mzerrors.ErrInvalidData)
	}

	r := new(big.Int).Exp(g, k, p)
	r.Mod(r, q)
	if r.Sign() == 0 {
		return nil, mzerrors.NewCryptoError("signature", mzerrors.ErrInvalidData)
	}

	s := new(big.Int).Mul(x, r)
	s.Add(s, z)
	s.Mul(s, kInv)
	s.Mod(s, q)
	if s.Sign() == 0 {
		return nil, mzerrors.NewCryptoError("signature", mzerrors.ErrInvalidData)
	}

	return encodeRS(r, s)
}

func verifyDSA(digest, blob []byte, key *dsa.PublicKey) Result {
	p, q, g, y := key.P, key.Q, key.G, key.Y
	if p == nil || q == nil || g == nil || y == nil {
		return KeyMismatch
	}
	r, s, err := decodeRS(blob)
	if err != nil {
		return Unverified
	}
	if r.Sign() <= 0 || r.Cmp(q) >= 0 || s.Sign() <= 0 || s.Cmp(q) >= 0 {
		return Unverified
	}

	w := new(big.Int).ModInverse(s, q)
	if w == nil {
		return Unverified
	}
	z := bits2int(digest, q.BitLen())

	u1 := new(big.Int).Mul(z, w)
	u1.Mod(u1, q)
	u2 := new(big.Int).Mul(r, w)
	u2.Mod(u2, q)

	v1 := new(big.Int).Exp(g, u1, p)
	v2 := new(big.Int).Exp(y, u2, p)
	v := v1.Mul(v1, v2)
	v.Mod(v, p)
	v.Mod(v, q)

	if v.Cmp(r) == 0 {
		return Verified
	}
	return Unverified
}
