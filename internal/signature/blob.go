package signature

import (
	"encoding/asn1"
	"math/big"

	mzerrors "mauz/internal/errors"
)

// derSig is the DER-encoded (r, s) pair DSA and ECDSA signature blobs carry
// (spec §4.4: "DSA and ECDSA produce DER-encoded (r,s)").
type derSig struct {
	R, S *big.Int
}

func encodeRS(r, s *big.Int) ([]byte, error) {
	b, err := asn1.Marshal(derSig{R: r, S: s})
	if err != nil {
		return nil, mzerrors.NewCryptoError("signature", err)
	}
	return b, nil
}

func decodeRS(blob []byte) (r, s *big.Int, err error) {
	var sig derSig
	if _, err := asn1.Unmarshal(blob, &sig); err != nil {
		return nil, nil, mzerrors.NewCryptoError("signature", err)
	}
	if sig.R == nil || sig.S == nil || sig.R.Sign() <= 0 || sig.S.Sign() <= 0 {
		return nil, nil, mzerrors.NewCryptoError("signature", mzerrors.ErrInvalidData)
	}
	return sig.R, sig.S, nil
}
