// Package compress implements the CompressionCodec capability (spec
// §6.3): Identity, DEFLATE, and LZMA byte-stream transforms selected by the
// NK/DEF/LZMA options.
package compress

import (
	"compress/flate"
	"io"

	"github.com/ulikunitz/xz/lzma"

	mzerrors "mauz/internal/errors"
)

// Algorithm names a recognized compression selector.
type Algorithm string

const (
	Identity Algorithm = "NK"
	Deflate  Algorithm = "DEF"
	LZMA     Algorithm = "LZMA"
)

// MaxDictSize is the largest LZMA dictionary the format permits (spec §3,
// Name table: "LZMA, dictionary ≤64 MiB").
const MaxDictSize = 64 << 20

// NewWriter wraps w so writes to the returned WriteCloser are compressed
// under algo. Callers must Close it to flush trailing state.
func NewWriter(algo Algorithm, w io.Writer) (io.WriteCloser, error) {
	switch algo {
	case Identity:
		return nopWriteCloser{w}, nil
	case Deflate:
		fw, err := flate.NewWriter(w, flate.DefaultCompression)
		if err != nil {
			return nil, mzerrors.NewCryptoError("compress", err)
		}
		return fw, nil
	case LZMA:
		cfg := lzma.Writer2Config{DictCap: MaxDictSize}
		lw, err := cfg.NewWriter2(w)
		if err != nil {
			return nil, mzerrors.NewCryptoError("compress", err)
		}
		return lw, nil
	default:
		return nil, mzerrors.NewCryptoError("compress", mzerrors.ErrInvalidData)
	}
}

// NewReader wraps r so reads from the returned ReadCloser are decompressed
// from algo's encoding.
func NewReader(algo Algorithm, r io.Reader) (io.ReadCloser, error) {
	switch algo {
	case Identity:
		return io.NopCloser(r), nil
	case Deflate:
		return flate.NewReader(r), nil
	case LZMA:
		cfg := lzma.Reader2Config{DictCap: MaxDictSize}
		lr, err := cfg.NewReader2(r)
		if err != nil {
			return nil, mzerrors.NewCryptoError("compress", err)
		}
		return io.NopCloser(lr), nil
	default:
		return nil, mzerrors.NewCryptoError("compress", mzerrors.ErrInvalidData)
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
