// Package binary provides the little-endian primitive readers/writers and
// length-prefixed byte-string codecs shared by the options, maus, and mauz
// packages. All multi-byte integers on the wire are little-endian,
// two's-complement (spec §6.1).
package binary

import (
	"encoding/binary"
	"fmt"
	"io"

	mzerrors "mauz/internal/errors"
)

// WriteUint16 writes a little-endian u16.
func WriteUint16(w io.Writer, v uint16) error {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

// ReadUint16 reads a little-endian u16.
func ReadUint16(r io.Reader) (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, wrapIO(err)
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

// WriteInt64 writes a little-endian i64 (two's complement).
func WriteInt64(w io.Writer, v int64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	_, err := w.Write(buf[:])
	return err
}

// ReadInt64 reads a little-endian i64 (two's complement).
func ReadInt64(r io.Reader) (int64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, wrapIO(err)
	}
	return int64(binary.LittleEndian.Uint64(buf[:])), nil
}

// WriteByte writes a single byte.
func WriteByte(w io.Writer, v byte) error {
	_, err := w.Write([]byte{v})
	return err
}

// ReadByte reads a single byte.
func ReadByte(r io.Reader) (byte, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, wrapIO(err)
	}
	return buf[0], nil
}

func wrapIO(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return fmt.Errorf("%w: %v", mzerrors.ErrInvalidData, err)
	}
	return fmt.Errorf("%w: %v", mzerrors.ErrIOError, err)
}

// WriteLP8 writes a byte string with a 1-byte length prefix, using the
// 0-means-max convention from spec §6.1: a length field of 0 denotes the
// maximum representable length (256 for u8), never the empty string. Callers
// that need to write an empty string must not use this codec — the wire
// format has no representation for it.
func WriteLP8(w io.Writer, data []byte) error {
	n := len(data)
	if n == 0 || n > 256 {
		return fmt.Errorf("%w: LP8 length %d out of range [1,256]", mzerrors.ErrInvalidData, n)
	}
	lenByte := byte(n)
	if n == 256 {
		lenByte = 0
	}
	if err := WriteByte(w, lenByte); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

// ReadLP8 reads a byte string with a 1-byte length prefix (0 means 256).
func ReadLP8(r io.Reader) ([]byte, error) {
	lenByte, err := ReadByte(r)
	if err != nil {
		return nil, err
	}
	n := int(lenByte)
	if n == 0 {
		n = 256
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, wrapIO(err)
	}
	return buf, nil
}

// WriteLP16 writes a byte string with a 2-byte length prefix, using the
// 0-means-max convention: a length field of 0 denotes 65536.
func WriteLP16(w io.Writer, data []byte) error {
	n := len(data)
	if n == 0 || n > 65536 {
		return fmt.Errorf("%w: LP16 length %d out of range [1,65536]", mzerrors.ErrInvalidData, n)
	}
	lenVal := uint16(n)
	if n == 65536 {
		lenVal = 0
	}
	if err := WriteUint16(w, lenVal); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

// ReadLP16 reads a byte string with a 2-byte length prefix (0 means 65536).
func ReadLP16(r io.Reader) ([]byte, error) {
	lenVal, err := ReadUint16(r)
	if err != nil {
		return nil, err
	}
	n := int(lenVal)
	if n == 0 {
		n = 65536
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, wrapIO(err)
	}
	return buf, nil
}
