package signature

import (
	"crypto/ecdsa"
	"hash"
	"math/big"

	mzerrors "mauz/internal/errors"
)

// signECDSA mirrors signDSA's structure over the key's elliptic curve group,
// again substituting a deterministic RFC 6979 nonce for the random one
// crypto/ecdsa.Sign would otherwise draw.
func signECDSA(newHash func() hash.Hash, digest []byte, key *ecdsa.PrivateKey) ([]byte, error) {
	curve := key.Curve
	n := curve.Params().N
	if n == nil || key.D == nil {
		return nil, mzerrors.NewCryptoError("signature", mzerrors.ErrInvalidData)
	}
	z := bits2int(digest, n.BitLen())
	k := deterministicK(newHash, n, key.D, digest)

	x1, _ := curve.ScalarBaseMult(k.Bytes())
	r := new(big.Int).Mod(x1, n)
	if r.Sign() == 0 {
		return nil, mzerrors.NewCryptoError("signature", mzerrors.ErrInvalidData)
	}

	kInv := new(big.Int).ModInverse(k, n)
	if kInv == nil {
		return nil, mzerrors.NewCryptoError("signature", mzerrors.ErrInvalidData)
	}
	s := new(big.Int).Mul(r, key.D)
	s.Add(s, z)
	s.Mul(s, kInv)
	s.Mod(s, n)
	if s.Sign() == 0 {
		return nil, mzerrors.NewCryptoError("signature", mzerrors.ErrInvalidData)
	}

	return encodeRS(r, s)
}

func verifyECDSA(digest, blob []byte, key *ecdsa.PublicKey) Result {
	curve := key.Curve
	n := curve.Params().N
	if n == nil || key.X == nil || key.Y == nil {
		return KeyMismatch
	}
	r, s, err := decodeRS(blob)
	if err != nil {
		return Unverified
	}
	if r.Sign() <= 0 || r.Cmp(n) >= 0 || s.Sign() <= 0 || s.Cmp(n) >= 0 {
		return Unverified
	}

	z := bits2int(digest, n.BitLen())
	w := new(big.Int).ModInverse(s, n)
	if w == nil {
		return Unverified
	}
	u1 := new(big.Int).Mul(z, w)
	u1.Mod(u1, n)
	u2 := new(big.Int).Mul(r, w)
	u2.Mod(u2, n)

	x1, y1 := curve.ScalarBaseMult(u1.Bytes())
	x2, y2 := curve.ScalarMult(key.X, key.Y, u2.Bytes())
	x, y := curve.Add(x1, y1, x2, y2)
	if x.Sign() == 0 && y.Sign() == 0 {
		return Unverified
	}

	v := new(big.Int).Mod(x, n)
	if v.Cmp(r) == 0 {
		return Verified
	}
	return Unverified
}
