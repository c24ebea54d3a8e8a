package secure

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"testing"
)

func TestZero(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	Zero(data)
	for i, b := range data {
		if b != 0 {
			t.Errorf("Zero: byte %d = %d; want 0", i, b)
		}
	}
}

func TestZeroEmpty(t *testing.T) {
	Zero(nil)
	Zero([]byte{})
}

func TestZeroAll(t *testing.T) {
	a := []byte{1, 2, 3}
	b := []byte{4, 5, 6, 7}
	ZeroAll(a, b)
	if !bytes.Equal(a, make([]byte, 3)) || !bytes.Equal(b, make([]byte, 4)) {
		t.Fatal("ZeroAll did not zero every slice")
	}
}

func TestZeroHash(t *testing.T) {
	h := hmac.New(sha256.New, []byte("subkey"))
	h.Write([]byte("some data"))
	ZeroHash(h)
	// Reset state should produce the MAC of no input.
	want := hmac.New(sha256.New, []byte("subkey")).Sum(nil)
	if !bytes.Equal(h.Sum(nil), want) {
		t.Fatal("ZeroHash did not reset hash state")
	}
}

func TestKeyMaterialLifecycle(t *testing.T) {
	src := []byte{9, 9, 9}
	km := NewKeyMaterial(src)

	if km.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", km.Len())
	}
	// Mutating the original must not affect the copy.
	src[0] = 0
	if km.Bytes()[0] != 9 {
		t.Fatal("KeyMaterial shares backing storage with its input")
	}

	km.Close()
	if !km.IsClosed() {
		t.Fatal("IsClosed() = false after Close()")
	}
	if km.Bytes() != nil {
		t.Fatal("Bytes() should be nil after Close()")
	}
	if km.Len() != 0 {
		t.Fatal("Len() should be 0 after Close()")
	}

	// Close is idempotent.
	km.Close()
}

func TestNewKeyMaterialNil(t *testing.T) {
	km := NewKeyMaterial(nil)
	if km.Len() != 0 || km.Bytes() != nil {
		t.Fatal("NewKeyMaterial(nil) should behave like an empty, open wrapper")
	}
}
