package binary

import (
	"bytes"
	"testing"

	mzerrors "mauz/internal/errors"
)

func TestUint16RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteUint16(&buf, 0xBEEF); err != nil {
		t.Fatal(err)
	}
	got, err := ReadUint16(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if got != 0xBEEF {
		t.Fatalf("got %x, want BEEF", got)
	}
}

func TestInt64RoundTrip(t *testing.T) {
	values := []int64{0, 1, -1, 9001, 2147474646, -9223372036854775808}
	for _, v := range values {
		var buf bytes.Buffer
		if err := WriteInt64(&buf, v); err != nil {
			t.Fatal(err)
		}
		got, err := ReadInt64(&buf)
		if err != nil {
			t.Fatal(err)
		}
		if got != v {
			t.Errorf("round trip %d got %d", v, got)
		}
	}
}

func TestLP8RoundTripNormal(t *testing.T) {
	data := []byte("hello")
	var buf bytes.Buffer
	if err := WriteLP8(&buf, data); err != nil {
		t.Fatal(err)
	}
	got, err := ReadLP8(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("got %q, want %q", got, data)
	}
}

func TestLP8ZeroMeans256(t *testing.T) {
	data := bytes.Repeat([]byte{'x'}, 256)
	var buf bytes.Buffer
	if err := WriteLP8(&buf, data); err != nil {
		t.Fatal(err)
	}
	encoded := buf.Bytes()
	if encoded[0] != 0 {
		t.Fatalf("length byte = %d, want 0 for 256-byte payload", encoded[0])
	}
	got, err := ReadLP8(bytes.NewReader(encoded))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Fatal("256-byte round trip mismatch")
	}
}

func TestLP8RejectsEmptyAndOversize(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteLP8(&buf, nil); err == nil {
		t.Fatal("expected error writing empty LP8 string")
	}
	if err := WriteLP8(&buf, bytes.Repeat([]byte{'y'}, 257)); err == nil {
		t.Fatal("expected error writing 257-byte LP8 string")
	}
}

func TestLP16ZeroMeans65536(t *testing.T) {
	data := bytes.Repeat([]byte{'z'}, 65536)
	var buf bytes.Buffer
	if err := WriteLP16(&buf, data); err != nil {
		t.Fatal(err)
	}
	encoded := buf.Bytes()
	if encoded[0] != 0 || encoded[1] != 0 {
		t.Fatalf("length prefix = % x, want 00 00 for 65536-byte payload", encoded[:2])
	}
	got, err := ReadLP16(bytes.NewReader(encoded))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Fatal("65536-byte round trip mismatch")
	}
}

func TestReadTruncatedIsInvalidData(t *testing.T) {
	_, err := ReadInt64(bytes.NewReader([]byte{1, 2, 3}))
	if !mzerrors.Is(err, mzerrors.ErrInvalidData) {
		t.Fatalf("got %v, want ErrInvalidData", err)
	}
}
