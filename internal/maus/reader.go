package maus

import (
	"bytes"
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

var readerLog = log.Component("maus")

type readState int

const (
	rsFresh readState = iota
	rsKeyNeeded
	rsDecrypted
	rsReading
	rsClosed
)

// Reader parses a Maus stream's framing eagerly and exposes a Decrypt call
// for encrypted streams (spec §4.5 read pipeline, state machine).
type Reader struct {
	src   io.Reader
	state readState

	version  uint16
	primary  *options.FormatCollection
	hashAlgo digest.Algorithm
	compAlgo compress.Algorithm

	encrypted  bool
	cipherAlgo cryptopipe.Algo
	cipherBits uint16

	compLen  int64
	lenOrKdf int64
	mac      []byte
	salt     []byte
	iv       []byte
	envelope []byte // encrypted body, buffered whole (length is known up front)
	body     []byte // compressed bytes, available once decrypted (or immediately if plaintext)

	secondary     *options.FormatCollection
	plainChecksum []byte
	delLen        int64 // -1 when DeL absent
}

// NewReader parses the fixed header and primary options off src. The
// returned Reader is in KeyNeeded state if the stream is encrypted, or
// ready to read immediately otherwise.
func NewReader(src io.Reader) (*Reader, error) {
	var magic [4]byte
	if _, err := io.ReadFull(src, magic[:]); err != nil {
		return nil, mzerrors.Wrap(mzerrors.ErrInvalidData, "maus: read magic")
	}
	if magic != Magic {
		return nil, mzerrors.ErrInvalidData
	}
	version, err := mzbinary.ReadUint16(src)
	if err != nil {
		return nil, err
	}
	if version < MinVersion || version > MaxVersion {
		return nil, mzerrors.ErrUnsupportedVersion
	}
	primary, err := options.Parse(src)
	if err != nil {
		return nil, err
	}
	hashAlgo, err := hashAlgoOf(primary)
	if err != nil {
		return nil, err
	}
	compLen, err := mzbinary.ReadInt64(src)
	if err != nil {
		return nil, err
	}
	lenOrKdf, err := mzbinary.ReadInt64(src)
	if err != nil {
		return nil, err
	}
	mac := make([]byte, digest.Size(hashAlgo))
	if _, err := io.ReadFull(src, mac); err != nil {
		return nil, mzerrors.Wrap(mzerrors.ErrInvalidData, "maus: read mac")
	}

	r := &Reader{
		src: src, version: version, primary: primary,
		hashAlgo: hashAlgo, compAlgo: compressionAlgoOf(primary),
		compLen: compLen, lenOrKdf: lenOrKdf, mac: mac, delLen: -1,
	}

	cipherAlgo, bits, encrypted, err := cipherOf(primary)
	if err != nil {
		return nil, err
	}
	r.encrypted = encrypted
	if encrypted {
		r.cipherAlgo, r.cipherBits = cipherAlgo, bits
		keyLen, err := cryptopipe.KeySize(cipherAlgo, bits)
		if err != nil {
			return nil, err
		}
		blockLen, err := cryptopipe.BlockSize(cipherAlgo, bits)
		if err != nil {
			return nil, err
		}
		r.salt = make([]byte, keyLen)
		if _, err := io.ReadFull(src, r.salt); err != nil {
			return nil, mzerrors.Wrap(mzerrors.ErrInvalidData, "maus: read salt")
		}
		r.iv = make([]byte, blockLen)
		if _, err := io.ReadFull(src, r.iv); err != nil {
			return nil, mzerrors.Wrap(mzerrors.ErrInvalidData, "maus: read iv")
		}
		r.envelope = make([]byte, compLen)
		if _, err := io.ReadFull(src, r.envelope); err != nil {
			return nil, mzerrors.Wrap(mzerrors.ErrInvalidData, "maus: read envelope")
		}
		r.state = rsKeyNeeded
	} else {
		if lenOrKdf < 1 {
			return nil, mzerrors.ErrInvalidData
		}
		r.body = make([]byte, compLen)
		if _, err := io.ReadFull(src, r.body); err != nil {
			return nil, mzerrors.Wrap(mzerrors.ErrInvalidData, "maus: read payload")
		}
		r.plainChecksum = mac
		r.state = rsDecrypted
	}
	return r, nil
}

// Version reports the stream's wire version (already validated).
func (r *Reader) Version() uint16 { return r.version }

// Primary returns the stream's primary (always-plaintext) options.
func (r *Reader) Primary() *options.FormatCollection { return r.primary }

// Encrypted reports whether Decrypt must be called before the payload is
// readable.
func (r *Reader) Encrypted() bool { return r.encrypted }

// CompLen reports the on-wire length of the stream's compressed (and, if
// encrypted, encrypted) body, for callers that only want to report size
// without opening the stream.
func (r *Reader) CompLen() int64 { return r.compLen }

// MAC returns the header's mac field: the HMAC tag for encrypted streams,
// or the plaintext checksum for unencrypted ones. This is the canonical
// pre-image a stream-level signature covers (spec §4.4).
func (r *Reader) MAC() []byte { return r.mac }

// Decrypt derives a key from password and the stored salt/iterations,
// verifies the HMAC, and parses the secondary options. On HMAC or padding
// failure it returns ErrBadPassword and leaves the Reader in KeyNeeded so
// the caller may retry with another password (spec §4.5, §9).
func (r *Reader) Decrypt(password []byte) error {
	if r.state != rsKeyNeeded {
		return mzerrors.ErrInvalidState
	}
	iterations, err := cryptopipe.DecodeIterations(r.lenOrKdf)
	if err != nil {
		return err
	}
	keyLen, err := cryptopipe.KeySize(r.cipherAlgo, r.cipherBits)
	if err != nil {
		return err
	}
	newHash := newHashFunc(r.hashAlgo)
	key, err := cryptopipe.DeriveKey(newHash, password, r.salt, int(iterations), keyLen)
	if err != nil {
		return err
	}
	block, err := cryptopipe.NewBlockCipher(r.cipherAlgo, r.cipherBits, key)
	if err != nil {
		return err
	}
	plain, err := cryptopipe.CBCDecrypt(block, r.iv, r.envelope)
	if err != nil {
		readerLog.Warn("decrypt failed", log.Err(err))
		return mzerrors.ErrBadPassword
	}
	if err := cryptopipe.VerifyHMAC(newHash, key, plain, r.mac); err != nil {
		readerLog.Warn("hmac verification failed")
		return mzerrors.ErrBadPassword
	}

	buf := bytes.NewReader(plain)
	secondary, err := options.Parse(buf)
	if err != nil {
		return err
	}
	checksum := make([]byte, digest.Size(r.hashAlgo))
	if _, err := io.ReadFull(buf, checksum); err != nil {
		return mzerrors.ErrInvalidData
	}
	rest, err := io.ReadAll(buf)
	if err != nil {
		return mzerrors.ErrIOError
	}

	r.secondary = secondary
	r.plainChecksum = checksum
	r.body = rest
	r.delLen = -1
	if e, ok := secondary.Get(options.KeyDeL); ok {
		n, err := options.DecodeInt64(e.Parameters[0])
		if err != nil {
			return err
		}
		r.delLen = n
	}
	r.state = rsDecrypted
	return nil
}

// Secondary returns the stream's secondary options. It is empty for an
// unencrypted stream (which has none) and populated after a successful
// Decrypt for an encrypted one.
func (r *Reader) Secondary() *options.FormatCollection {
	if r.secondary == nil {
		return options.New()
	}
	return r.secondary
}

// Name returns the stream's Name option from whichever collection it
// lives in (secondary when encrypted, primary otherwise).
func (r *Reader) Name() (string, bool) {
	c := r.primary
	if r.encrypted {
		c = r.Secondary()
	}
	e, ok := c.Get(options.KeyName)
	if !ok {
		return "", false
	}
	name, err := options.DecodeString(e.Parameters[0])
	if err != nil {
		return "", false
	}
	return name, true
}

// VerifySignature checks algo/publicKey against whichever *sig entry is
// present in the primary options, over the canonical pre-image (the mac
// field). It reports NoSignature if no matching entry is present.
func (r *Reader) VerifySignature(algo signature.Algorithm, publicKey any) signature.Result {
	key, ok := sigKeyFor(string(algo))
	if !ok {
		return signature.NoSignature
	}
	entry, ok := r.primary.Get(key)
	if !ok {
		return signature.NoSignature
	}
	blob := entry.Parameters[0]
	return signature.Verify(algo, newHashFunc(r.hashAlgo), r.mac, blob, publicKey)
}

// Open decompresses the stream's body and verifies the plaintext checksum
// (and the DeL length assertion, if present), returning the verified
// payload bytes. It is valid once the Reader is Decrypted (immediately for
// an unencrypted stream, or after a successful Decrypt call otherwise).
func (r *Reader) Open() ([]byte, error) {
	if r.state != rsDecrypted {
		return nil, mzerrors.ErrInvalidState
	}
	dr, err := compress.NewReader(r.compAlgo, bytes.NewReader(r.body))
	if err != nil {
		return nil, err
	}
	defer dr.Close()
	decompressed, err := io.ReadAll(dr)
	if err != nil {
		return nil, mzerrors.ErrBadChecksum
	}
	r.state = rsReading

	sum, err := digest.Sum(r.hashAlgo, decompressed)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(sum, r.plainChecksum) {
		return nil, mzerrors.ErrBadChecksum
	}

	if r.delLen >= 0 {
		switch {
		case int64(len(decompressed)) > r.delLen:
			decompressed = decompressed[:r.delLen]
		case int64(len(decompressed)) < r.delLen:
			return nil, mzerrors.ErrBadChecksum
		}
	}
	return decompressed, nil
}

// Close marks the Reader unusable for further operations.
func (r *Reader) Close() error {
	r.state = rsClosed
	return nil
}
