package maus

import (
	"bytes"
	"hash"
	"io"

	mzbinary "mauz/internal/binary"
	"mauz/internal/compress"
	"mauz/internal/cryptopipe"
	"mauz/internal/digest"
	mzerrors "mauz/internal/errors"
	"mauz/internal/log"
	"mauz/internal/options"
	"mauz/internal/signature"
)

var writerLog = log.Component("maus")

// SignatureRequest asks the writer to sign the stream's HMAC (encrypted)
// or plaintext checksum (unencrypted) on seal.
type SignatureRequest struct {
	Algo       signature.Algorithm
	PrivateKey any
	KeyID      []byte

	// PreimageOverride, when non-nil, replaces the stream's own mac
	// (HMAC or checksum) as the value signed. MauZArchive uses this to
	// sign its manifest entry over the archive-wide canonical pre-image
	// (spec §4.4) rather than the manifest stream's own checksum.
	PreimageOverride []byte
}

// WriteRequest bundles everything needed to seal one Maus stream (spec
// §4.5 write pipeline). The zero value writes an unencrypted, uncompressed
// stream with SHA-256 checksums.
type WriteRequest struct {
	Name        string // empty means omit the Name option
	Created     int64  // ticks; 0 means omit
	Modified    int64  // ticks; 0 means omit
	Comment     string // empty means omit
	Compression compress.Algorithm
	Hash        digest.Algorithm // empty means DefaultHash

	// Encryption. Cipher empty means the stream is unencrypted.
	Cipher     cryptopipe.Algo
	CipherBits uint16
	Password   []byte
	Iterations int64 // actual PBKDF2 iteration count, >= cryptopipe.MinIterations

	Signature *SignatureRequest
}

type writeState int

const (
	wsFresh writeState = iota
	wsWriting
	wsSealed
)

// Writer accumulates one Maus stream's payload and seals it into a
// complete wire-format stream on Close (spec §5: the compressed length
// must be known before the header is emitted, so the body is buffered in
// memory and written whole on seal).
type Writer struct {
	sink  io.Writer
	req   WriteRequest
	rand  cryptopipe.SecureRandom
	state writeState

	compBuf    bytes.Buffer
	compW      io.WriteCloser
	plainHash  hash.Hash
	plainBytes int64

	hashAlgo digest.Algorithm
}

// NewWriter validates req and returns a Writer ready to accept payload
// bytes via Write.
func NewWriter(sink io.Writer, req WriteRequest, rnd cryptopipe.SecureRandom) (*Writer, error) {
	hashAlgo := req.Hash
	if hashAlgo == "" {
		hashAlgo = DefaultHash
	}
	if !digest.Valid(hashAlgo) {
		return nil, mzerrors.NewFormatError(string(options.KeyHash), mzerrors.ErrInvalidData)
	}
	if req.Cipher != "" {
		if _, err := cryptopipe.KeySize(req.Cipher, req.CipherBits); err != nil {
			return nil, err
		}
		if len(req.Password) == 0 {
			return nil, mzerrors.NewCryptoError("kdf", mzerrors.ErrInvalidData)
		}
		if req.Iterations < cryptopipe.MinIterations {
			return nil, mzerrors.NewCryptoError("kdf", mzerrors.ErrInvalidData)
		}
	}
	h, err := digest.New(hashAlgo)
	if err != nil {
		return nil, err
	}
	if rnd == nil {
		rnd = cryptopipe.DefaultRandom
	}
	return &Writer{sink: sink, req: req, rand: rnd, plainHash: h, hashAlgo: hashAlgo}, nil
}

// Write compresses and hashes payload bytes. The stream transitions from
// Fresh to Writing on the first call.
func (w *Writer) Write(p []byte) (int, error) {
	if w.state == wsSealed {
		return 0, mzerrors.ErrInvalidState
	}
	if w.state == wsFresh {
		cw, err := compress.NewWriter(w.compAlgo(), &w.compBuf)
		if err != nil {
			return 0, err
		}
		w.compW = cw
		w.state = wsWriting
	}
	w.plainHash.Write(p)
	w.plainBytes += int64(len(p))
	return w.compW.Write(p)
}

func (w *Writer) compAlgo() compress.Algorithm {
	if w.req.Compression == "" {
		return compress.Identity
	}
	return w.req.Compression
}

// Close seals the stream: compresses any buffered tail, computes the
// checksum, optionally encrypts and HMACs and signs, and emits the
// complete wire-format header and body to sink.
func (w *Writer) Close() error {
	if w.state == wsSealed {
		return mzerrors.ErrInvalidState
	}
	if w.state == wsFresh {
		cw, err := compress.NewWriter(w.compAlgo(), &w.compBuf)
		if err != nil {
			return err
		}
		w.compW = cw
		w.state = wsWriting
	}
	if err := w.compW.Close(); err != nil {
		return err
	}
	w.state = wsSealed
	writerLog.Debug("sealing stream", log.Int64("plainBytes", w.plainBytes), log.Bool("encrypted", w.req.Cipher != ""))

	checksum := w.plainHash.Sum(nil)
	encrypted := w.req.Cipher != ""

	primary := options.New()
	secondary := options.New()
	if err := addCompressionEntry(primary, w.compAlgo()); err != nil {
		return err
	}
	if w.req.Hash != "" || encrypted {
		if err := primary.Add(options.NewHashEntry(string(w.hashAlgo))); err != nil {
			return err
		}
	}

	target := primary
	if encrypted {
		target = secondary
	}
	if w.req.Name != "" {
		e, err := options.NewNameEntry(w.req.Name)
		if err != nil {
			return err
		}
		if err := target.Add(e); err != nil {
			return err
		}
	}
	if w.req.Created != 0 {
		if err := target.Add(options.NewInt64Entry(options.KeyErs, w.req.Created)); err != nil {
			return err
		}
	}
	if w.req.Modified != 0 {
		if err := target.Add(options.NewInt64Entry(options.KeyMod, w.req.Modified)); err != nil {
			return err
		}
	}
	if w.req.Comment != "" {
		if err := target.Add(options.NewKomEntry(w.req.Comment)); err != nil {
			return err
		}
	}
	if encrypted {
		if err := secondary.Add(options.NewInt64Entry(options.KeyDeL, w.plainBytes)); err != nil {
			return err
		}
	}

	newHash := newHashFunc(w.hashAlgo)

	var mac []byte
	var salt, iv, body []byte
	var lenOrKdf int64

	if encrypted {
		if err := primary.Add(options.NewVerEntry(string(w.req.Cipher), w.req.CipherBits)); err != nil {
			return err
		}
		keyLen, err := cryptopipe.KeySize(w.req.Cipher, w.req.CipherBits)
		if err != nil {
			return err
		}
		blockLen, err := cryptopipe.BlockSize(w.req.Cipher, w.req.CipherBits)
		if err != nil {
			return err
		}
		salt = make([]byte, keyLen)
		if err := w.rand.Fill(salt); err != nil {
			return err
		}
		iv = make([]byte, blockLen)
		if err := w.rand.Fill(iv); err != nil {
			return err
		}
		key, err := cryptopipe.DeriveKey(newHash, w.req.Password, salt, int(w.req.Iterations), keyLen)
		if err != nil {
			return err
		}
		var secondaryBuf bytes.Buffer
		if err := secondary.Serialize(&secondaryBuf); err != nil {
			return err
		}
		plain := append(secondaryBuf.Bytes(), checksum...)
		plain = append(plain, w.compBuf.Bytes()...)

		mac = cryptopipe.ComputeHMAC(newHash, key, plain)

		if err := addSignatureEntry(primary, w.req.Signature, newHash, mac); err != nil {
			return err
		}

		block, err := cryptopipe.NewBlockCipher(w.req.Cipher, w.req.CipherBits, key)
		if err != nil {
			return err
		}
		body, err = cryptopipe.CBCEncrypt(block, iv, plain)
		if err != nil {
			return err
		}
		wireIterations, err := cryptopipe.EncodeIterations(w.req.Iterations)
		if err != nil {
			return err
		}
		lenOrKdf = wireIterations
	} else {
		if err := addSignatureEntry(primary, w.req.Signature, newHash, checksum); err != nil {
			return err
		}
		mac = checksum
		body = w.compBuf.Bytes()
		lenOrKdf = w.plainBytes
		if lenOrKdf < 1 {
			lenOrKdf = 1 // spec §3: decompressedLen >= 1 when unencrypted; an empty payload still claims length 1
		}
	}

	return w.emit(primary, int64(len(body)), lenOrKdf, mac, salt, iv, body)
}

func (w *Writer) emit(primary *options.FormatCollection, compLen, lenOrKdf int64, mac, salt, iv, body []byte) error {
	if _, err := w.sink.Write(Magic[:]); err != nil {
		return err
	}
	if err := mzbinary.WriteUint16(w.sink, MaxVersion); err != nil {
		return err
	}
	if err := primary.Serialize(w.sink); err != nil {
		return err
	}
	if err := mzbinary.WriteInt64(w.sink, compLen); err != nil {
		return err
	}
	if err := mzbinary.WriteInt64(w.sink, lenOrKdf); err != nil {
		return err
	}
	if _, err := w.sink.Write(mac); err != nil {
		return err
	}
	if salt != nil {
		if _, err := w.sink.Write(salt); err != nil {
			return err
		}
		if _, err := w.sink.Write(iv); err != nil {
			return err
		}
	}
	_, err := w.sink.Write(body)
	return err
}

func addSignatureEntry(primary *options.FormatCollection, req *SignatureRequest, newHash func() hash.Hash, preimage []byte) error {
	if req == nil {
		return nil
	}
	key, ok := sigKeyFor(string(req.Algo))
	if !ok {
		return mzerrors.NewFormatError("", mzerrors.ErrInvalidData)
	}
	if req.PreimageOverride != nil {
		preimage = req.PreimageOverride
	}
	blob, err := signature.Sign(req.Algo, newHash, preimage, req.PrivateKey)
	if err != nil {
		return err
	}
	e, err := options.NewSignatureEntry(key, blob, req.KeyID)
	if err != nil {
		return err
	}
	return primary.Add(e)
}

func addCompressionEntry(c *options.FormatCollection, algo compress.Algorithm) error {
	var key options.Key
	switch algo {
	case compress.Identity:
		key = options.KeyNoComp
	case compress.Deflate:
		key = options.KeyDeflate
	case compress.LZMA:
		key = options.KeyLZMA
	default:
		return mzerrors.NewFormatError("", mzerrors.ErrInvalidData)
	}
	e, err := options.NewCompressionEntry(key)
	if err != nil {
		return err
	}
	return c.Add(e)
}
