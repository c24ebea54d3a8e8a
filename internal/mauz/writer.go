package mauz

import (
	"bytes"
	"io"

	mzbinary "mauz/internal/binary"
	"mauz/internal/compress"
	"mauz/internal/cryptopipe"
	"mauz/internal/digest"
	mzerrors "mauz/internal/errors"
	"mauz/internal/log"
	"mauz/internal/maus"
	"mauz/internal/options"
	"mauz/internal/pathvalidate"
)

var writerLog = log.Component("mauz")

// EntryRequest describes one archive member before it is sealed into a
// MauZEntryRecord.
type EntryRequest struct {
	Path     string // archive-relative path (or, for a directory, the path with trailing '/')
	EmptyDir bool
	Payload  []byte // ignored when EmptyDir (the wire payload is the fixed single byte '/')

	// EncryptedName requests the filename-encryption placeholder convention
	// (spec §4.6, §9): the wire path becomes "//V<id>" and Path is instead
	// carried as the entry's own Name option, recoverable only after that
	// entry is decrypted. Requires Maus.Cipher to be set.
	EncryptedName bool

	Maus maus.WriteRequest
}

// WriteRequest bundles everything needed to seal a MauZArchive.
type WriteRequest struct {
	Entries []EntryRequest

	// Signed requests a trailing /Manifest.dat entry listing every other
	// entry's authentication tag. If Signature is also set, the manifest's
	// own Maus stream carries a signature over the archive-wide canonical
	// pre-image rather than its own checksum (spec §4.4, GLOSSARY).
	Signed    bool
	Signature *maus.SignatureRequest

	HashAlgo digest.Algorithm // archive-level KDF/HMAC/signature hash; default DefaultHash

	// Whole-archive encryption. Cipher empty means the archive is
	// unencrypted and entries carry whatever encryption they individually
	// request.
	Cipher     cryptopipe.Algo
	CipherBits uint16
	Password   []byte
	Iterations int64
}

// Writer seals a WriteRequest into a complete MauZ archive. Per the
// buffer-whole-body policy used throughout this implementation (spec §9),
// the entire archive is assembled in memory before anything reaches the
// sink, since totalSize and metaoffset must be known before they are
// written and the sink is not assumed to support positional writes.
type Writer struct {
	req  WriteRequest
	rand cryptopipe.SecureRandom
}

// NewWriter returns a Writer for req. rnd may be nil to use
// cryptopipe.DefaultRandom.
func NewWriter(req WriteRequest, rnd cryptopipe.SecureRandom) *Writer {
	if rnd == nil {
		rnd = cryptopipe.DefaultRandom
	}
	return &Writer{req: req, rand: rnd}
}

type sealedEntry struct {
	id         int64
	realPath   string
	storedPath string
	isDir      bool
	isManifest bool
	container  []byte
	mac        []byte
}

// WriteTo validates req, seals every entry, builds the entry and offset
// tables, and writes the complete archive to sink.
func (w *Writer) WriteTo(sink io.Writer) (int64, error) {
	req := &w.req
	hashAlgo := req.HashAlgo
	if hashAlgo == "" {
		hashAlgo = DefaultHash
	}
	if !digest.Valid(hashAlgo) {
		return 0, mzerrors.NewFormatError(string(options.KeyHash), mzerrors.ErrInvalidData)
	}
	encrypted := req.Cipher != ""
	if encrypted {
		if _, err := cryptopipe.KeySize(req.Cipher, req.CipherBits); err != nil {
			return 0, err
		}
		if len(req.Password) == 0 || req.Iterations < cryptopipe.MinIterations {
			return 0, mzerrors.NewCryptoError("kdf", mzerrors.ErrInvalidData)
		}
	}

	n := int64(len(req.Entries))
	if req.Signed {
		n++
	}
	if n == 0 {
		return 0, mzerrors.NewFormatError("", mzerrors.ErrInvalidData)
	}

	if err := w.validatePaths(); err != nil {
		return 0, err
	}

	sealed := make([]*sealedEntry, 0, n)
	for i, er := range req.Entries {
		se, err := w.sealEntry(int64(i), er)
		if err != nil {
			return 0, err
		}
		sealed = append(sealed, se)
	}

	newHash := newHashFunc(hashAlgo)

	if req.Signed {
		manifestID := n - 1
		payload, err := buildManifestPayload(sealed)
		if err != nil {
			return 0, err
		}
		preimage := archivePreimage(sealed)

		sigReq := req.Signature
		if sigReq != nil {
			override := *sigReq
			override.PreimageOverride = preimage
			sigReq = &override
		}
		mreq := maus.WriteRequest{Compression: compress.Identity, Hash: hashAlgo, Signature: sigReq}
		var mbuf bytes.Buffer
		mw, err := maus.NewWriter(&mbuf, mreq, w.rand)
		if err != nil {
			return 0, err
		}
		if _, err := mw.Write(payload); err != nil {
			return 0, err
		}
		if err := mw.Close(); err != nil {
			return 0, err
		}
		mac, err := macOf(mbuf.Bytes())
		if err != nil {
			return 0, err
		}
		sealed = append(sealed, &sealedEntry{
			id: manifestID, realPath: ManifestPath, storedPath: ManifestPath,
			isManifest: true, container: mbuf.Bytes(), mac: mac,
		})
	}

	opts := options.New()
	if encrypted {
		if err := opts.Add(options.NewHashEntry(string(hashAlgo))); err != nil {
			return 0, err
		}
		if err := opts.Add(options.NewVerEntry(string(req.Cipher), req.CipherBits)); err != nil {
			return 0, err
		}
	}
	var optsBuf bytes.Buffer
	if err := opts.Serialize(&optsBuf); err != nil {
		return 0, err
	}

	var afterTotalSize bytes.Buffer
	afterTotalSize.Write(optsBuf.Bytes())

	if encrypted {
		encOpts := options.New()
		var encOptsBuf bytes.Buffer
		if err := encOpts.Serialize(&encOptsBuf); err != nil {
			return 0, err
		}
		innerBody, err := buildInnerBody(sealed, int64(encOptsBuf.Len()))
		if err != nil {
			return 0, err
		}

		var plain bytes.Buffer
		plain.Write(encOptsBuf.Bytes())
		plain.Write(innerBody)

		keyLen, err := cryptopipe.KeySize(req.Cipher, req.CipherBits)
		if err != nil {
			return 0, err
		}
		blockLen, err := cryptopipe.BlockSize(req.Cipher, req.CipherBits)
		if err != nil {
			return 0, err
		}
		salt := make([]byte, keyLen)
		if err := w.rand.Fill(salt); err != nil {
			return 0, err
		}
		iv := make([]byte, blockLen)
		if err := w.rand.Fill(iv); err != nil {
			return 0, err
		}
		key, err := cryptopipe.DeriveKey(newHash, req.Password, salt, int(req.Iterations), keyLen)
		if err != nil {
			return 0, err
		}
		hmacTag := cryptopipe.ComputeHMAC(newHash, key, plain.Bytes())
		block, err := cryptopipe.NewBlockCipher(req.Cipher, req.CipherBits, key)
		if err != nil {
			return 0, err
		}
		ciphertext, err := cryptopipe.CBCEncrypt(block, iv, plain.Bytes())
		if err != nil {
			return 0, err
		}
		wireIter, err := cryptopipe.EncodeIterations(req.Iterations)
		if err != nil {
			return 0, err
		}
		if err := mzbinary.WriteInt64(&afterTotalSize, wireIter); err != nil {
			return 0, err
		}
		afterTotalSize.Write(hmacTag)
		afterTotalSize.Write(salt)
		afterTotalSize.Write(iv)
		afterTotalSize.Write(ciphertext)
	} else {
		bias := int64(14 + optsBuf.Len()) // magic(4) + version(2) + totalSize(8) + options
		innerBody, err := buildInnerBody(sealed, bias)
		if err != nil {
			return 0, err
		}
		afterTotalSize.Write(innerBody)
	}

	totalSize := int64(14 + afterTotalSize.Len())

	var out bytes.Buffer
	out.Write(Magic[:])
	if err := mzbinary.WriteUint16(&out, MaxVersion); err != nil {
		return 0, err
	}
	if err := mzbinary.WriteInt64(&out, totalSize); err != nil {
		return 0, err
	}
	out.Write(afterTotalSize.Bytes())

	writerLog.Debug("sealed archive", log.Int64("totalSize", totalSize), log.Int("entries", len(sealed)), log.Bool("encrypted", encrypted), log.Bool("signed", req.Signed))
	nn, err := sink.Write(out.Bytes())
	return int64(nn), err
}

func (w *Writer) validatePaths() error {
	paths := make([]string, 0, len(w.req.Entries)+1)
	isDir := map[string]bool{}
	for _, er := range w.req.Entries {
		if er.Path == ManifestPath {
			return mzerrors.NewPathError(er.Path, mzerrors.ErrInvalidData)
		}
		if er.EmptyDir {
			if err := pathvalidate.EmptyDirPath(er.Path); err != nil {
				return err
			}
			isDir[er.Path] = true
		} else {
			if err := pathvalidate.ArchivePath(er.Path); err != nil {
				return err
			}
		}
		if er.EncryptedName && er.Maus.Cipher == "" {
			return mzerrors.NewPathError(er.Path, mzerrors.ErrInvalidData)
		}
		paths = append(paths, er.Path)
	}
	if w.req.Signed {
		paths = append(paths, ManifestPath)
	}
	return pathvalidate.Unique(paths, func(p string) bool { return isDir[p] })
}

func (w *Writer) sealEntry(id int64, er EntryRequest) (*sealedEntry, error) {
	mreq := er.Maus
	payload := er.Payload
	if er.EmptyDir {
		mreq.Compression = compress.Identity
		mreq.Created, mreq.Modified, mreq.Comment = 0, 0, ""
		payload = []byte("/")
	}
	storedPath := er.Path
	if er.EncryptedName {
		mreq.Name = er.Path
		storedPath = placeholderPath(id)
	}

	var buf bytes.Buffer
	mw, err := maus.NewWriter(&buf, mreq, w.rand)
	if err != nil {
		return nil, err
	}
	if _, err := mw.Write(payload); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	mac, err := macOf(buf.Bytes())
	if err != nil {
		return nil, err
	}
	return &sealedEntry{
		id: id, realPath: er.Path, storedPath: storedPath,
		isDir: er.EmptyDir, container: buf.Bytes(), mac: mac,
	}, nil
}

// macOf re-reads a just-sealed Maus stream to recover the mac field the
// writer computed, rather than threading it back out of maus.Writer.Close.
func macOf(container []byte) ([]byte, error) {
	r, err := maus.NewReader(bytes.NewReader(container))
	if err != nil {
		return nil, err
	}
	return r.MAC(), nil
}

func buildManifestPayload(entries []*sealedEntry) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(prefixManifest)
	if err := mzbinary.WriteInt64(&buf, int64(len(entries))); err != nil {
		return nil, err
	}
	for _, e := range entries {
		buf.WriteString(prefixManifestRec)
		if err := mzbinary.WriteInt64(&buf, e.id); err != nil {
			return nil, err
		}
		if err := mzbinary.WriteLP8(&buf, []byte(e.storedPath)); err != nil {
			return nil, err
		}
		if err := mzbinary.WriteLP16(&buf, e.mac); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func archivePreimage(entries []*sealedEntry) []byte {
	var buf bytes.Buffer
	for _, e := range entries {
		buf.Write(e.mac)
	}
	return buf.Bytes()
}

// buildInnerBody assembles entryCount ‖ entryList ‖ offsetList ‖ metaoffset,
// with offsets biased by whatever precedes this body in the chosen
// coordinate system (archive start when unencrypted, envelope start when
// whole-archive encrypted).
func buildInnerBody(entries []*sealedEntry, bias int64) ([]byte, error) {
	var entryList bytes.Buffer
	offsets := make([]int64, len(entries))
	running := bias + 8 // entryCount field
	for i, e := range entries {
		offsets[i] = running
		entryList.WriteString(prefixEntry)
		if err := mzbinary.WriteInt64(&entryList, e.id); err != nil {
			return nil, err
		}
		if err := mzbinary.WriteLP8(&entryList, []byte(e.storedPath)); err != nil {
			return nil, err
		}
		entryList.Write(e.container)
		running += int64(len(prefixEntry)) + 8 + lp8Len(e.storedPath) + int64(len(e.container))
	}

	metaoffset := running

	var offsetList bytes.Buffer
	offsetList.WriteString(prefixOffsetTable)
	for i, e := range entries {
		offsetList.WriteString(prefixOffsetRecord)
		if err := mzbinary.WriteInt64(&offsetList, e.id); err != nil {
			return nil, err
		}
		if err := mzbinary.WriteLP8(&offsetList, []byte(e.storedPath)); err != nil {
			return nil, err
		}
		if err := mzbinary.WriteInt64(&offsetList, offsets[i]); err != nil {
			return nil, err
		}
	}

	var body bytes.Buffer
	if err := mzbinary.WriteInt64(&body, int64(len(entries))); err != nil {
		return nil, err
	}
	body.Write(entryList.Bytes())
	body.Write(offsetList.Bytes())
	if err := mzbinary.WriteInt64(&body, metaoffset); err != nil {
		return nil, err
	}
	return body.Bytes(), nil
}

func lp8Len(s string) int64 { return 1 + int64(len(s)) }
