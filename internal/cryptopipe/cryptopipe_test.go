package cryptopipe

import (
	"bytes"
	"crypto/sha256"
	"testing"

	mzerrors "mauz/internal/errors"
)

func TestPKCS7PadFullBlockWhenAligned(t *testing.T) {
	data := bytes.Repeat([]byte{'a'}, 16)
	padded := PKCS7Pad(data, 16)
	if len(padded) != 32 {
		t.Fatalf("len(padded) = %d, want 32 (one full block of padding)", len(padded))
	}
	unpadded, err := PKCS7Unpad(padded, 16)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(unpadded, data) {
		t.Fatal("unpad did not recover original data")
	}
}

func TestPKCS7RoundTripUnaligned(t *testing.T) {
	data := []byte("Hello, world!")
	padded := PKCS7Pad(data, 16)
	if len(padded)%16 != 0 {
		t.Fatal("padded length must be block-aligned")
	}
	got, err := PKCS7Unpad(padded, 16)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Fatal("round trip mismatch")
	}
}

func TestPKCS7UnpadRejectsBadPadding(t *testing.T) {
	data := bytes.Repeat([]byte{'a'}, 16)
	data[15] = 0
	_, err := PKCS7Unpad(data, 16)
	if !mzerrors.Is(err, mzerrors.ErrBadPassword) {
		t.Fatalf("got %v, want ErrBadPassword", err)
	}
}

func TestCBCRoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{0x01}, 32)
	block, err := NewBlockCipher(AES, 256, key)
	if err != nil {
		t.Fatal(err)
	}
	iv := bytes.Repeat([]byte{0x02}, 16)
	plaintext := []byte("the quick brown fox")
	ct, err := CBCEncrypt(block, iv, plaintext)
	if err != nil {
		t.Fatal(err)
	}
	if len(ct)%16 != 0 {
		t.Fatal("ciphertext must be block-aligned")
	}
	pt, err := CBCDecrypt(block, iv, ct)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(pt, plaintext) {
		t.Fatal("CBC round trip mismatch")
	}
}

func TestCBCDecryptWrongKeyFailsAsBadPassword(t *testing.T) {
	iv := bytes.Repeat([]byte{0x02}, 16)
	block1, _ := NewBlockCipher(AES, 256, bytes.Repeat([]byte{0x01}, 32))
	block2, _ := NewBlockCipher(AES, 256, bytes.Repeat([]byte{0x03}, 32))
	ct, _ := CBCEncrypt(block1, iv, []byte("secret payload"))
	_, err := CBCDecrypt(block2, iv, ct)
	if err == nil {
		t.Fatal("decrypting with the wrong key should fail")
	}
}

func TestHMACConstantTimeVerify(t *testing.T) {
	key := []byte("key")
	data := []byte("data")
	tag := ComputeHMAC(sha256.New, key, data)
	if err := VerifyHMAC(sha256.New, key, data, tag); err != nil {
		t.Fatal(err)
	}
	bad := append([]byte(nil), tag...)
	bad[0] ^= 0xFF
	if err := VerifyHMAC(sha256.New, key, data, bad); !mzerrors.Is(err, mzerrors.ErrBadPassword) {
		t.Fatalf("got %v, want ErrBadPassword", err)
	}
}

func TestDeriveKeyRejectsShortIterations(t *testing.T) {
	_, err := DeriveKey(sha256.New, []byte("pw"), bytes.Repeat([]byte{0}, 32), MinIterations-1, 32)
	if err == nil {
		t.Fatal("iterations below MinIterations should fail")
	}
}

func TestDeriveKeyDeterministic(t *testing.T) {
	salt := bytes.Repeat([]byte{0x07}, 32)
	k1, err := DeriveKey(sha256.New, []byte("pw"), salt, MinIterations, 32)
	if err != nil {
		t.Fatal(err)
	}
	k2, err := DeriveKey(sha256.New, []byte("pw"), salt, MinIterations, 32)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(k1, k2) {
		t.Fatal("PBKDF2 output should be deterministic for identical inputs")
	}
}

func TestIterationsWireBoundaries(t *testing.T) {
	wire, err := EncodeIterations(MinIterations)
	if err != nil || wire != 0 {
		t.Fatalf("EncodeIterations(9001) = %d, %v, want 0, nil", wire, err)
	}
	wire, err = EncodeIterations(2147483647)
	if err != nil || wire != MaxWireIterations {
		t.Fatalf("EncodeIterations(2147483647) = %d, %v, want %d, nil", wire, err, MaxWireIterations)
	}
	if _, err := EncodeIterations(MinIterations - 1); err == nil {
		t.Fatal("9000 should be rejected")
	}
	if _, err := EncodeIterations(2147483648); err == nil {
		t.Fatal("2147483648 should be rejected")
	}
}

func TestBlockCipherKeyAndBlockSizes(t *testing.T) {
	cases := []struct {
		algo       Algo
		bits       uint16
		keyBytes   int
		blockBytes int
	}{
		{AES, 128, 16, 16},
		{AES, 256, 32, 16},
		{Twofish, 192, 24, 16},
		{Threefish, 256, 32, 32},
		{Threefish, 1024, 128, 128},
	}
	for _, c := range cases {
		k, err := KeySize(c.algo, c.bits)
		if err != nil || k != c.keyBytes {
			t.Errorf("KeySize(%s,%d) = %d, %v, want %d", c.algo, c.bits, k, err, c.keyBytes)
		}
		b, err := BlockSize(c.algo, c.bits)
		if err != nil || b != c.blockBytes {
			t.Errorf("BlockSize(%s,%d) = %d, %v, want %d", c.algo, c.bits, b, err, c.blockBytes)
		}
	}
}

func TestDefaultRandomFillsNonZero(t *testing.T) {
	b := make([]byte, 32)
	if err := DefaultRandom.Fill(b); err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(b, make([]byte, 32)) {
		t.Fatal("random fill produced all-zero output (statistically implausible)")
	}
}
