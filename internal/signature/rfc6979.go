package signature

import (
	"bytes"
	"crypto/hmac"
	"hash"
	"math/big"
)

// deterministicK implements RFC 6979 §3.2: derive the per-signature nonce k
// for DSA/ECDSA from the private key x, the group order q, and the message
// digest, using newHash as the HMAC primitive. No third-party library in
// the pack implements RFC 6979 generically over an arbitrary (big.Int)
// group order — the pack's only RFC 6979 implementation is hardwired to
// secp256k1 — so this is written directly against the RFC using
// crypto/hmac and math/big, the same primitives crypto/dsa and
// crypto/ecdsa themselves are built on.
func deterministicK(newHash func() hash.Hash, q, x *big.Int, digest []byte) *big.Int {
	qlen := q.BitLen()
	holen := newHash().Size()
	rolen := (qlen + 7) / 8

	bx := append(int2octets(x, rolen), bits2octets(digest, q, qlen, rolen)...)

	v := bytes.Repeat([]byte{0x01}, holen)
	k := bytes.Repeat([]byte{0x00}, holen)

	k = macSum(newHash, k, append(append(append([]byte{}, v...), 0x00), bx...))
	v = macSum(newHash, k, v)
	k = macSum(newHash, k, append(append(append([]byte{}, v...), 0x01), bx...))
	v = macSum(newHash, k, v)

	for {
		var t []byte
		for len(t)*8 < qlen {
			v = macSum(newHash, k, v)
			t = append(t, v...)
		}
		secret := bits2int(t, qlen)
		one := big.NewInt(1)
		if secret.Cmp(one) >= 0 && secret.Cmp(q) < 0 {
			return secret
		}
		k = macSum(newHash, k, append(append([]byte{}, v...), 0x00))
		v = macSum(newHash, k, v)
	}
}

func macSum(newHash func() hash.Hash, key, data []byte) []byte {
	m := hmac.New(newHash, key)
	m.Write(data)
	return m.Sum(nil)
}

func bits2int(b []byte, qlen int) *big.Int {
	v := new(big.Int).SetBytes(b)
	blen := len(b) * 8
	if blen > qlen {
		v.Rsh(v, uint(blen-qlen))
	}
	return v
}

func int2octets(v *big.Int, rolen int) []byte {
	out := v.Bytes()
	if len(out) < rolen {
		padded := make([]byte, rolen)
		copy(padded[rolen-len(out):], out)
		return padded
	}
	if len(out) > rolen {
		return out[len(out)-rolen:]
	}
	return out
}

func bits2octets(b []byte, q *big.Int, qlen, rolen int) []byte {
	z1 := bits2int(b, qlen)
	z2 := new(big.Int).Sub(z1, q)
	if z2.Sign() < 0 {
		return int2octets(z1, rolen)
	}
	return int2octets(z2, rolen)
}
