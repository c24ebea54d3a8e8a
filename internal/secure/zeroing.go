// Package secure provides memory-hygiene helpers for key material used by
// the CryptoPipeline and SignatureAdapter: constant-time zeroing and a small
// wrapper type that zeroes itself on Close.
package secure

import (
	"crypto/subtle"
	"hash"
)

// Zero overwrites b with zeros in a way the compiler cannot optimize away,
// using subtle.ConstantTimeCopy from a freshly allocated zero slice.
//
// Due to Go's garbage collector and possible copies made before this call
// (e.g. by append or by the runtime moving stack-allocated slices), this
// cannot guarantee every copy of the data is erased. It reduces, not
// eliminates, the window during which key material is recoverable from
// memory.
func Zero(b []byte) {
	if len(b) == 0 {
		return
	}
	zeros := make([]byte, len(b))
	subtle.ConstantTimeCopy(1, b, zeros)
}

// ZeroAll zeroes every slice given, in order.
func ZeroAll(slices ...[]byte) {
	for _, s := range slices {
		Zero(s)
	}
}

// ZeroHash resets a hash.Hash to discard any buffered state. Not every
// hash.Hash implementation scrubs its internal buffer on Reset, but it is
// the best a caller can do through the interface.
func ZeroHash(h hash.Hash) {
	if h != nil {
		h.Reset()
	}
}

// KeyMaterial wraps a byte slice that must be zeroed exactly once when the
// caller is done with it. The constructor copies its input so the wrapper
// owns independent backing storage.
//
//	km := secure.NewKeyMaterial(derivedKey)
//	defer km.Close()
type KeyMaterial struct {
	data   []byte
	closed bool
}

// NewKeyMaterial copies data into a new KeyMaterial.
func NewKeyMaterial(data []byte) *KeyMaterial {
	if data == nil {
		return &KeyMaterial{}
	}
	copied := make([]byte, len(data))
	copy(copied, data)
	return &KeyMaterial{data: copied}
}

// Bytes returns the wrapped data, or nil once Close has run.
func (km *KeyMaterial) Bytes() []byte {
	if km.closed {
		return nil
	}
	return km.data
}

// Len returns the length of the wrapped data, or 0 once closed.
func (km *KeyMaterial) Len() int {
	if km.closed || km.data == nil {
		return 0
	}
	return len(km.data)
}

// Close zeros the wrapped data and marks the wrapper closed. Idempotent.
func (km *KeyMaterial) Close() {
	if km.closed || km.data == nil {
		return
	}
	Zero(km.data)
	km.data = nil
	km.closed = true
}

// IsClosed reports whether Close has already run.
func (km *KeyMaterial) IsClosed() bool {
	return km.closed
}
