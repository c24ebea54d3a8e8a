package mauz

import (
	"bytes"
	"io"

	mzbinary "mauz/internal/binary"
	"mauz/internal/cryptopipe"
	"mauz/internal/digest"
	mzerrors "mauz/internal/errors"
	"mauz/internal/log"
	"mauz/internal/maus"
	"mauz/internal/options"
	"mauz/internal/pathvalidate"
)

var readerLog = log.Component("mauz")

type readState int

const (
	rsFresh readState = iota
	rsKeyNeeded
	rsDecrypted
)

// Entry is one parsed MauZEntryRecord/OffsetRecord pair: the record data a
// caller needs to iterate the archive and open a member.
//
// Err is set, and Reader left nil, when this entry's Maus container failed
// to parse behind an encrypted filename (spec §4.7): that failure is scoped
// to this entry alone rather than aborting the archive. A non-placeholder
// entry that fails to parse is never exposed this way — it aborts the
// whole archive, so Entries never contains a non-nil Err for a plain path.
type Entry struct {
	ID         int64
	StoredPath string // the wire path: a real archive path, or a "//V<id>" placeholder
	IsManifest bool
	IsEmptyDir bool
	Offset     int64
	Reader     *maus.Reader
	Err        error
}

// Reader parses a MauZ archive's framing (spec §4.6 read pipeline). For an
// unencrypted archive the entry and offset tables are available
// immediately; for a whole-archive-encrypted one, Decrypt must succeed
// first.
type Reader struct {
	state   readState
	version uint16

	options  *options.FormatCollection
	hashAlgo digest.Algorithm

	encrypted  bool
	cipherAlgo cryptopipe.Algo
	cipherBits uint16
	kdfWire    int64
	hmacTag    []byte
	salt       []byte
	iv         []byte
	envelope   []byte

	entries []*Entry
	byID    map[int64]*Entry
}

// NewReader parses the fixed header, archive options, and (for an
// unencrypted archive) the entry/offset tables and manifest, off src.
func NewReader(src io.Reader) (*Reader, error) {
	cr := &byteCounter{r: src}

	var magic [4]byte
	if _, err := io.ReadFull(cr, magic[:]); err != nil {
		return nil, mzerrors.Wrap(mzerrors.ErrInvalidData, "mauz: read magic")
	}
	if magic != Magic {
		return nil, mzerrors.ErrInvalidData
	}
	version, err := mzbinary.ReadUint16(cr)
	if err != nil {
		return nil, err
	}
	if version < MinVersion || version > MaxVersion {
		return nil, mzerrors.ErrUnsupportedVersion
	}
	totalSize, err := mzbinary.ReadInt64(cr)
	if err != nil {
		return nil, err
	}
	opts, err := options.Parse(cr)
	if err != nil {
		return nil, err
	}
	hashAlgo, err := hashAlgoOf(opts)
	if err != nil {
		return nil, err
	}
	cipherAlgo, bits, encrypted, err := cipherOf(opts)
	if err != nil {
		return nil, err
	}

	r := &Reader{
		version: version, options: opts, hashAlgo: hashAlgo,
		encrypted: encrypted, cipherAlgo: cipherAlgo, cipherBits: bits,
		byID: map[int64]*Entry{},
	}

	if !encrypted {
		bias := cr.n
		rest := totalSize - bias
		if rest <= 0 {
			return nil, mzerrors.ErrInvalidData
		}
		body := make([]byte, rest)
		if _, err := io.ReadFull(cr, body); err != nil {
			return nil, mzerrors.Wrap(mzerrors.ErrInvalidData, "mauz: read body")
		}
		if err := r.parseTables(body, bias); err != nil {
			return nil, err
		}
		r.state = rsDecrypted
		return r, nil
	}

	kdfWire, err := mzbinary.ReadInt64(cr)
	if err != nil {
		return nil, err
	}
	hmacTag := make([]byte, digest.Size(hashAlgo))
	if _, err := io.ReadFull(cr, hmacTag); err != nil {
		return nil, mzerrors.Wrap(mzerrors.ErrInvalidData, "mauz: read hmac")
	}
	keyLen, err := cryptopipe.KeySize(cipherAlgo, bits)
	if err != nil {
		return nil, err
	}
	blockLen, err := cryptopipe.BlockSize(cipherAlgo, bits)
	if err != nil {
		return nil, err
	}
	salt := make([]byte, keyLen)
	if _, err := io.ReadFull(cr, salt); err != nil {
		return nil, mzerrors.Wrap(mzerrors.ErrInvalidData, "mauz: read salt")
	}
	iv := make([]byte, blockLen)
	if _, err := io.ReadFull(cr, iv); err != nil {
		return nil, mzerrors.Wrap(mzerrors.ErrInvalidData, "mauz: read iv")
	}
	envLen := totalSize - cr.n
	if envLen <= 0 {
		return nil, mzerrors.ErrInvalidData
	}
	envelope := make([]byte, envLen)
	if _, err := io.ReadFull(cr, envelope); err != nil {
		return nil, mzerrors.Wrap(mzerrors.ErrInvalidData, "mauz: read envelope")
	}

	r.kdfWire, r.hmacTag, r.salt, r.iv, r.envelope = kdfWire, hmacTag, salt, iv, envelope
	r.state = rsKeyNeeded
	return r, nil
}

// Options returns the archive-level (always plaintext) options.
func (r *Reader) Options() *options.FormatCollection { return r.options }

// Encrypted reports whether Decrypt must be called before Entries is
// populated.
func (r *Reader) Encrypted() bool { return r.encrypted }

// Decrypt derives the whole-archive key, verifies its HMAC, and parses the
// entry and offset tables out of the decrypted envelope. On HMAC or padding
// failure it returns ErrBadPassword and leaves the Reader retryable.
func (r *Reader) Decrypt(password []byte) error {
	if r.state != rsKeyNeeded {
		return mzerrors.ErrInvalidState
	}
	iterations, err := cryptopipe.DecodeIterations(r.kdfWire)
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
		readerLog.Warn("archive decrypt failed", log.Err(err))
		return mzerrors.ErrBadPassword
	}
	if err := cryptopipe.VerifyHMAC(newHash, key, plain, r.hmacTag); err != nil {
		readerLog.Warn("archive hmac verification failed")
		return mzerrors.ErrBadPassword
	}

	buf := bytes.NewReader(plain)
	if _, err := options.Parse(buf); err != nil { // EncryptedOptions: parsed to advance past it, unused
		return err
	}
	bias := int64(len(plain)) - int64(buf.Len())
	body, err := io.ReadAll(buf)
	if err != nil {
		return mzerrors.ErrIOError
	}
	if err := r.parseTables(body, bias); err != nil {
		return err
	}
	r.state = rsDecrypted
	return nil
}

// parseTables locates the offset table via metaoffset — always the last 8
// bytes of body — and parses it before touching any entry's Maus container
// (mirroring the MauZArchive read pipeline's "seek to metaoffset; parse
// offset table" step, spec §4.6), rather than relying on every entry
// parsing cleanly to find where the next one starts. This is what lets a
// single corrupt entry be isolated instead of desynchronizing the rest of
// the archive: each entry's raw bytes are already bounded by its neighbors'
// offsets before maus.NewReader ever sees them. bias is the absolute offset
// (in the coordinate system the offset table uses) of body[0].
func (r *Reader) parseTables(body []byte, bias int64) error {
	if len(body) < 16 {
		return mzerrors.ErrInvalidData
	}
	entryCount, err := mzbinary.ReadInt64(bytes.NewReader(body))
	if err != nil {
		return err
	}
	if entryCount < 0 || entryCount > 1<<20 {
		return mzerrors.ErrInvalidData
	}

	metaoffset, err := mzbinary.ReadInt64(bytes.NewReader(body[len(body)-8:]))
	if err != nil {
		return err
	}
	offsetTableStart := metaoffset - bias
	if offsetTableStart < 8 || offsetTableStart > int64(len(body))-8 {
		return mzerrors.ErrInvalidData
	}

	offsetByID, pathByID, err := parseOffsetTable(body[offsetTableStart:int64(len(body))-8], entryCount)
	if err != nil {
		return err
	}

	entries := make([]*Entry, 0, entryCount)
	r.byID = make(map[int64]*Entry, entryCount)
	for id := int64(0); id < entryCount; id++ {
		start := offsetByID[id] - bias
		end := offsetTableStart
		if id+1 < entryCount {
			end = offsetByID[id+1] - bias
		}
		if start < 8 || end > offsetTableStart || start >= end || end > int64(len(body)) {
			return mzerrors.ErrInvalidData
		}

		e, err := parseEntry(id, body[start:end], pathByID[id])
		if err != nil {
			return err
		}
		e.Offset = offsetByID[id]
		entries = append(entries, e)
		r.byID[id] = e
	}
	r.entries = entries

	return r.verifyManifest()
}

// parseEntry decodes one entry's fixed prefix/id/path framing and its Maus
// container out of raw, which is already bounded to exactly this entry's
// bytes by the caller. A malformed Maus container behind an encrypted
// filename is isolated on the returned Entry's Err field rather than
// propagated (spec §4.7); any other parse failure here means the fixed
// framing itself is malformed, which is fatal to the whole archive.
func parseEntry(id int64, raw []byte, wantPath string) (*Entry, error) {
	rr := bytes.NewReader(raw)
	var prefix [4]byte
	if _, err := io.ReadFull(rr, prefix[:]); err != nil || string(prefix[:]) != prefixEntry {
		return nil, mzerrors.ErrInvalidData
	}
	gotID, err := mzbinary.ReadInt64(rr)
	if err != nil {
		return nil, err
	}
	pathBytes, err := mzbinary.ReadLP8(rr)
	if err != nil {
		return nil, err
	}
	path := string(pathBytes)
	if gotID != id || path != wantPath {
		return nil, mzerrors.ErrInvalidData
	}

	e := &Entry{
		ID: id, StoredPath: path,
		IsManifest: isManifestPath(path), IsEmptyDir: isEmptyDirStoredPath(path),
	}
	mr, err := maus.NewReader(rr)
	if err != nil {
		if !pathvalidate.IsEncryptedPlaceholder(path) {
			return nil, err
		}
		readerLog.Warn("entry isolated by encrypted-filename policy", log.Int64("id", id), log.Err(err))
		e.Err = mzerrors.NewEntryError(id, path, err)
		return e, nil
	}
	e.Reader = mr
	return e, nil
}

// parseOffsetTable parses the \x03VER-prefixed offset table, returning each
// entry's absolute offset and the path the table records for it.
func parseOffsetTable(table []byte, entryCount int64) (map[int64]int64, map[int64]string, error) {
	tr := bytes.NewReader(table)
	var prefix [4]byte
	if _, err := io.ReadFull(tr, prefix[:]); err != nil || string(prefix[:]) != prefixOffsetTable {
		return nil, nil, mzerrors.ErrInvalidData
	}
	offsetByID := make(map[int64]int64, entryCount)
	pathByID := make(map[int64]string, entryCount)
	for i := int64(0); i < entryCount; i++ {
		var recPrefix [4]byte
		if _, err := io.ReadFull(tr, recPrefix[:]); err != nil || string(recPrefix[:]) != prefixOffsetRecord {
			return nil, nil, mzerrors.ErrInvalidData
		}
		id, err := mzbinary.ReadInt64(tr)
		if err != nil {
			return nil, nil, err
		}
		pathBytes, err := mzbinary.ReadLP8(tr)
		if err != nil {
			return nil, nil, err
		}
		offset, err := mzbinary.ReadInt64(tr)
		if err != nil {
			return nil, nil, err
		}
		if id < 0 || id >= entryCount {
			return nil, nil, mzerrors.ErrInvalidData
		}
		if _, dup := offsetByID[id]; dup {
			return nil, nil, mzerrors.ErrInvalidData
		}
		offsetByID[id] = offset
		pathByID[id] = string(pathBytes)
	}
	if int64(len(offsetByID)) != entryCount || tr.Len() != 0 {
		return nil, nil, mzerrors.ErrInvalidData
	}
	return offsetByID, pathByID, nil
}

// verifyManifest checks a present /Manifest.dat entry against every other
// entry's own mac, failing the whole archive on any mismatch (spec §4.7).
func (r *Reader) verifyManifest() error {
	var manifest *Entry
	for _, e := range r.entries {
		if e.IsManifest {
			manifest = e
			break
		}
	}
	if manifest == nil {
		return nil
	}
	payload, err := manifest.Reader.Open()
	if err != nil {
		readerLog.Warn("manifest unreadable", log.Err(err))
		return mzerrors.Wrap(mzerrors.ErrBadChecksum, "mauz: manifest unreadable")
	}
	buf := bytes.NewReader(payload)
	var prefix [4]byte
	if _, err := io.ReadFull(buf, prefix[:]); err != nil || string(prefix[:]) != prefixManifest {
		return mzerrors.ErrBadChecksum
	}
	sigCount, err := mzbinary.ReadInt64(buf)
	if err != nil {
		return err
	}
	macs := map[int64][]byte{}
	for i := int64(0); i < sigCount; i++ {
		var recPrefix [4]byte
		if _, err := io.ReadFull(buf, recPrefix[:]); err != nil || string(recPrefix[:]) != prefixManifestRec {
			return mzerrors.ErrBadChecksum
		}
		id, err := mzbinary.ReadInt64(buf)
		if err != nil {
			return err
		}
		path, err := mzbinary.ReadLP8(buf)
		if err != nil {
			return err
		}
		mac, err := mzbinary.ReadLP16(buf)
		if err != nil {
			return err
		}
		e, ok := r.byID[id]
		if !ok || e.StoredPath != string(path) {
			return mzerrors.ErrBadChecksum
		}
		macs[id] = mac
	}
	for _, e := range r.entries {
		if e.IsManifest {
			continue
		}
		if e.Reader == nil {
			readerLog.Warn("manifest references an isolated, unreadable entry", log.Int64("id", e.ID))
			return mzerrors.ErrBadChecksum
		}
		mac, ok := macs[e.ID]
		if !ok || !bytes.Equal(mac, e.Reader.MAC()) {
			readerLog.Warn("manifest mac mismatch", log.Int64("id", e.ID))
			return mzerrors.ErrBadChecksum
		}
	}
	readerLog.Debug("manifest verified", log.Int64("id", manifest.ID))
	return nil
}

// Entries returns every parsed entry in id order.
func (r *Reader) Entries() []*Entry {
	out := make([]*Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Entry looks up a single entry by id.
func (r *Reader) Entry(id int64) (*Entry, bool) {
	e, ok := r.byID[id]
	return e, ok
}
