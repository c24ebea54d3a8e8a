// Package options implements FormatOptions: the ordered, typed collection of
// key/version/parameters entries that carries compression, encryption, and
// metadata selectors in both the Maus and MauZ wire formats (spec §4.1,
// §6.1). The set of recognized keys is closed and small, so options are
// represented as a flat key→entry table rather than a class hierarchy.
package options

import (
	"io"
	"unicode/utf8"

	mzbinary "mauz/internal/binary"
	mzerrors "mauz/internal/errors"
)

// Key names a recognized FormatEntry key. The set is closed; any byte string
// on the wire that doesn't match one of these is ErrUnknownOption.
type Key string

const (
	KeyName     Key = "Name"
	KeyNoComp   Key = "NK"
	KeyDeflate  Key = "DEF"
	KeyLZMA     Key = "LZMA"
	KeyVer      Key = "Ver"
	KeyDeL      Key = "DeL"
	KeyErs      Key = "Ers"
	KeyMod      Key = "Mod"
	KeyKom      Key = "Kom"
	KeyHash     Key = "Hash"
	KeyRSASig   Key = "RSAsig"
	KeyDSASig   Key = "DSAsig"
	KeyECDSASig Key = "ECDSAsig"
	KeyRSASch   Key = "RSAsch"
)

type arity struct{ min, max int }

var schema = map[Key]arity{
	KeyName:     {1, 1},
	KeyNoComp:   {0, 0},
	KeyDeflate:  {0, 0},
	KeyLZMA:     {0, 0},
	KeyVer:      {2, 2},
	KeyDeL:      {1, 1},
	KeyErs:      {1, 1},
	KeyMod:      {1, 1},
	KeyKom:      {1, 1},
	KeyHash:     {1, 1},
	KeyRSASig:   {1, 2},
	KeyDSASig:   {1, 2},
	KeyECDSASig: {1, 2},
	KeyRSASch:   {1, 1},
}

// compressionGroup holds the mutually exclusive "how is the payload
// compressed" selectors (spec §4.1 mutual-exclusion groups).
var compressionGroup = map[Key]bool{
	KeyNoComp:  true,
	KeyDeflate: true,
	KeyLZMA:    true,
}

// serializeOrder ranks keys for canonical output: compression selector and
// Ver/Hash come first so a streaming reader can decide encryption and
// compression before it has consumed the whole collection (spec §4.1).
var serializeOrder = map[Key]int{
	KeyNoComp:  0,
	KeyDeflate: 0,
	KeyLZMA:    0,
	KeyVer:     1,
	KeyHash:    2,
}

const unrankedOrder = 100

func rankOf(k Key) int {
	if r, ok := serializeOrder[k]; ok {
		return r
	}
	return unrankedOrder
}

// FormatEntry is one option: a recognized key, an entry-local format
// version, and an ordered list of byte-string parameters. Two entries are
// "the same" iff Key, Version, and every parameter's bytes match exactly.
type FormatEntry struct {
	Key        Key
	Version    uint16
	Parameters [][]byte
}

// Equal reports whether e and o carry identical key, version, and
// parameter bytes.
func (e FormatEntry) Equal(o FormatEntry) bool {
	if e.Key != o.Key || e.Version != o.Version || len(e.Parameters) != len(o.Parameters) {
		return false
	}
	for i := range e.Parameters {
		if string(e.Parameters[i]) != string(o.Parameters[i]) {
			return false
		}
	}
	return true
}

// FormatCollection is an ordered set of FormatEntry values with at most one
// logical value per recognized key.
type FormatCollection struct {
	entries []FormatEntry
}

// New returns an empty FormatCollection.
func New() *FormatCollection {
	return &FormatCollection{}
}

// Entries returns the collection's entries in canonical serialize order.
func (c *FormatCollection) Entries() []FormatEntry {
	out := make([]FormatEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Len reports the number of distinct entries in the collection.
func (c *FormatCollection) Len() int { return len(c.entries) }

// Get returns the entry for key, if present.
func (c *FormatCollection) Get(key Key) (FormatEntry, bool) {
	for _, e := range c.entries {
		if e.Key == key {
			return e, true
		}
	}
	return FormatEntry{}, false
}

// Has reports whether key is present in the collection.
func (c *FormatCollection) Has(key Key) bool {
	_, ok := c.Get(key)
	return ok
}

// Add inserts e into the collection, applying the same dedup/contradiction
// rules as Parse: a byte-identical duplicate of an existing entry is
// silently dropped, a differing entry for a key already present is
// ErrContradictoryOptions, and an entry that would complete more than one
// distinct member of the compression mutual-exclusion group is rejected.
func (c *FormatCollection) Add(e FormatEntry) error {
	if err := checkArity(e); err != nil {
		return err
	}
	if existing, ok := c.Get(e.Key); ok {
		if existing.Equal(e) {
			return nil
		}
		return mzerrors.NewFormatError(string(e.Key), mzerrors.ErrContradictoryOptions)
	}
	if compressionGroup[e.Key] {
		for k := range compressionGroup {
			if k != e.Key && c.Has(k) {
				return mzerrors.NewFormatError(string(e.Key), mzerrors.ErrContradictoryOptions)
			}
		}
	}
	c.entries = append(c.entries, e)
	sortCanonical(c.entries)
	return nil
}

func sortCanonical(entries []FormatEntry) {
	// Insertion sort: collections are small (a handful of entries), and a
	// stable sort preserves insertion order among equal-rank entries.
	for i := 1; i < len(entries); i++ {
		v := entries[i]
		j := i - 1
		for j >= 0 && rankOf(entries[j].Key) > rankOf(v.Key) {
			entries[j+1] = entries[j]
			j--
		}
		entries[j+1] = v
	}
}

func checkArity(e FormatEntry) error {
	a, ok := schema[e.Key]
	if !ok {
		return mzerrors.NewFormatError(string(e.Key), mzerrors.ErrUnknownOption)
	}
	n := len(e.Parameters)
	if n < a.min || n > a.max {
		return mzerrors.NewFormatError(string(e.Key), mzerrors.ErrInvalidData)
	}
	return nil
}

// Parse reads a FormatCollection off r per the §6.1 wire layout: a u16
// count, then for each entry a 1-byte-length-prefixed key, a u16 version, a
// u16 parameter count, and that many 2-byte-length-prefixed parameter
// blobs.
func Parse(r io.Reader) (*FormatCollection, error) {
	count, err := mzbinary.ReadUint16(r)
	if err != nil {
		return nil, err
	}
	c := New()
	for i := 0; i < int(count); i++ {
		keyBytes, err := mzbinary.ReadLP8(r)
		if err != nil {
			return nil, err
		}
		if len(keyBytes) == 0 {
			return nil, mzerrors.NewFormatError("", mzerrors.ErrInvalidData)
		}
		version, err := mzbinary.ReadUint16(r)
		if err != nil {
			return nil, err
		}
		paramCount, err := mzbinary.ReadUint16(r)
		if err != nil {
			return nil, err
		}
		params := make([][]byte, paramCount)
		for j := range params {
			p, err := mzbinary.ReadLP16(r)
			if err != nil {
				return nil, err
			}
			params[j] = p
		}
		entry := FormatEntry{Key: Key(keyBytes), Version: version, Parameters: params}
		if err := c.Add(entry); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Serialize writes c to w per the §6.1 wire layout, in canonical order.
func (c *FormatCollection) Serialize(w io.Writer) error {
	if len(c.entries) > 65535 {
		return mzerrors.NewFormatError("", mzerrors.ErrInvalidData)
	}
	if err := mzbinary.WriteUint16(w, uint16(len(c.entries))); err != nil {
		return err
	}
	for _, e := range c.entries {
		if err := mzbinary.WriteLP8(w, []byte(e.Key)); err != nil {
			return err
		}
		if err := mzbinary.WriteUint16(w, e.Version); err != nil {
			return err
		}
		if err := mzbinary.WriteUint16(w, uint16(len(e.Parameters))); err != nil {
			return err
		}
		for _, p := range e.Parameters {
			if err := mzbinary.WriteLP16(w, p); err != nil {
				return err
			}
		}
	}
	return nil
}

// --- Parameter codecs -------------------------------------------------
//
// FormatEntry parameters are opaque byte strings on the wire; these helpers
// encode/decode the concrete scalar types the recognized keys carry.

// EncodeInt64 encodes v as an 8-byte little-endian parameter blob (used by
// DeL, Ers, Mod, and the Ver bit-count field is encoded with EncodeUint16
// instead).
func EncodeInt64(v int64) []byte {
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(v >> (8 * i))
	}
	return buf[:]
}

// DecodeInt64 decodes an 8-byte little-endian parameter blob.
func DecodeInt64(b []byte) (int64, error) {
	if len(b) != 8 {
		return 0, mzerrors.NewFormatError("", mzerrors.ErrInvalidData)
	}
	var v int64
	for i := 7; i >= 0; i-- {
		v = (v << 8) | int64(b[i])
	}
	return v, nil
}

// EncodeUint16 encodes v as a 2-byte little-endian parameter blob.
func EncodeUint16(v uint16) []byte {
	return []byte{byte(v), byte(v >> 8)}
}

// DecodeUint16 decodes a 2-byte little-endian parameter blob.
func DecodeUint16(b []byte) (uint16, error) {
	if len(b) != 2 {
		return 0, mzerrors.NewFormatError("", mzerrors.ErrInvalidData)
	}
	return uint16(b[0]) | uint16(b[1])<<8, nil
}

// EncodeString encodes a validated UTF-8 string as a parameter blob.
func EncodeString(s string) []byte { return []byte(s) }

// DecodeString decodes a parameter blob as UTF-8, rejecting invalid
// sequences.
func DecodeString(b []byte) (string, error) {
	if !utf8.Valid(b) {
		return "", mzerrors.NewFormatError("", mzerrors.ErrInvalidData)
	}
	return string(b), nil
}

// --- Entry constructors -------------------------------------------------

// NewNameEntry builds a Name option for a filename or archive-relative
// path of at most 256 UTF-8 bytes.
func NewNameEntry(name string) (FormatEntry, error) {
	if len(name) == 0 || len(name) > 256 {
		return FormatEntry{}, mzerrors.NewFormatError(string(KeyName), mzerrors.ErrInvalidData)
	}
	return FormatEntry{Key: KeyName, Parameters: [][]byte{EncodeString(name)}}, nil
}

// NewVerEntry builds a Ver option selecting a block cipher algorithm and
// key size in bits.
func NewVerEntry(algo string, bits uint16) FormatEntry {
	return FormatEntry{Key: KeyVer, Parameters: [][]byte{EncodeString(algo), EncodeUint16(bits)}}
}

// NewHashEntry builds a Hash option selecting the single hash function used
// throughout a container's checksum, HMAC, KDF, and signature digest.
func NewHashEntry(name string) FormatEntry {
	return FormatEntry{Key: KeyHash, Parameters: [][]byte{EncodeString(name)}}
}

// NewCompressionEntry builds the no-parameter compression-selector entry
// for one of NK, DEF, or LZMA.
func NewCompressionEntry(key Key) (FormatEntry, error) {
	if !compressionGroup[key] {
		return FormatEntry{}, mzerrors.NewFormatError(string(key), mzerrors.ErrUnknownOption)
	}
	return FormatEntry{Key: key}, nil
}

// NewInt64Entry builds a DeL/Ers/Mod style single-i64-parameter entry.
func NewInt64Entry(key Key, v int64) FormatEntry {
	return FormatEntry{Key: key, Parameters: [][]byte{EncodeInt64(v)}}
}

// NewKomEntry builds a Kom (comment) option.
func NewKomEntry(comment string) FormatEntry {
	return FormatEntry{Key: KeyKom, Parameters: [][]byte{EncodeString(comment)}}
}

// NewSignatureEntry builds a RSAsig/DSAsig/ECDSAsig option carrying a
// signature blob and an optional key id.
func NewSignatureEntry(key Key, blob []byte, keyID []byte) (FormatEntry, error) {
	switch key {
	case KeyRSASig, KeyDSASig, KeyECDSASig:
	default:
		return FormatEntry{}, mzerrors.NewFormatError(string(key), mzerrors.ErrUnknownOption)
	}
	params := [][]byte{blob}
	if keyID != nil {
		params = append(params, keyID)
	}
	return FormatEntry{Key: key, Parameters: params}, nil
}

// NewRSASchEntry builds an RSAsch option carrying an RSA-wrapped symmetric
// key.
func NewRSASchEntry(wrapped []byte) FormatEntry {
	return FormatEntry{Key: KeyRSASch, Parameters: [][]byte{wrapped}}
}
