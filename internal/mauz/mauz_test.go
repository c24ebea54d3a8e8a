package mauz

import (
	"bytes"
	"testing"

	"mauz/internal/compress"
	"mauz/internal/cryptopipe"
	"mauz/internal/digest"
	mzerrors "mauz/internal/errors"
	"mauz/internal/maus"
)

func TestTwoEntriesWithManifest(t *testing.T) {
	req := WriteRequest{
		Entries: []EntryRequest{
			{Path: "a/b.txt", Payload: []byte("x")},
			{Path: "a/c.txt", Payload: []byte("y")},
		},
		Signed: true,
	}
	var buf bytes.Buffer
	if _, err := NewWriter(req, cryptopipe.DefaultRandom).WriteTo(&buf); err != nil {
		t.Fatal(err)
	}

	r, err := NewReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	entries := r.Entries()
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3", len(entries))
	}
	if entries[0].ID != 0 || entries[0].StoredPath != "a/b.txt" {
		t.Fatalf("entries[0] = %+v", entries[0])
	}
	if entries[1].ID != 1 || entries[1].StoredPath != "a/c.txt" {
		t.Fatalf("entries[1] = %+v", entries[1])
	}
	if entries[2].ID != 2 || !entries[2].IsManifest || entries[2].StoredPath != ManifestPath {
		t.Fatalf("entries[2] = %+v", entries[2])
	}

	payload0, err := entries[0].Reader.Open()
	if err != nil {
		t.Fatal(err)
	}
	if string(payload0) != "x" {
		t.Fatalf("entry 0 payload = %q, want x", payload0)
	}
	payload1, err := entries[1].Reader.Open()
	if err != nil {
		t.Fatal(err)
	}
	if string(payload1) != "y" {
		t.Fatalf("entry 1 payload = %q, want y", payload1)
	}

	wantMac0, _ := digest.Sum(digest.SHA256, []byte("x"))
	wantMac1, _ := digest.Sum(digest.SHA256, []byte("y"))
	if !bytes.Equal(entries[0].Reader.MAC(), wantMac0) {
		t.Fatalf("entry 0 mac = %x, want %x", entries[0].Reader.MAC(), wantMac0)
	}
	if !bytes.Equal(entries[1].Reader.MAC(), wantMac1) {
		t.Fatalf("entry 1 mac = %x, want %x", entries[1].Reader.MAC(), wantMac1)
	}
}

func TestWholeArchiveThreefish1024(t *testing.T) {
	req := WriteRequest{
		Entries: []EntryRequest{
			{Path: "plain.txt", Payload: []byte("uncompressed entry")},
			{Path: "big.txt", Payload: bytes.Repeat([]byte("lzma me "), 100), Maus: maus.WriteRequest{Compression: compress.LZMA}},
		},
		HashAlgo:   digest.SHA512,
		Cipher:     cryptopipe.Threefish,
		CipherBits: 1024,
		Password:   []byte("pw"),
		Iterations: cryptopipe.MinIterations,
	}
	var buf bytes.Buffer
	if _, err := NewWriter(req, cryptopipe.DefaultRandom).WriteTo(&buf); err != nil {
		t.Fatal(err)
	}

	r, err := NewReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if !r.Encrypted() {
		t.Fatal("archive should report encrypted")
	}
	if len(r.salt) != 128 || len(r.iv) != 128 {
		t.Fatalf("salt/iv lengths = %d/%d, want 128/128", len(r.salt), len(r.iv))
	}
	if len(r.envelope)%128 != 0 {
		t.Fatalf("envelope length %d not a multiple of 128", len(r.envelope))
	}

	tampered := append([]byte(nil), buf.Bytes()...)
	tampered[len(tampered)-1] ^= 0xFF
	rt, err := NewReader(bytes.NewReader(tampered))
	if err != nil {
		t.Fatal(err)
	}
	if err := rt.Decrypt([]byte("pw")); !mzerrors.Is(err, mzerrors.ErrBadPassword) {
		t.Fatalf("tampered envelope: got %v, want ErrBadPassword", err)
	}

	if err := r.Decrypt([]byte("wrong")); !mzerrors.Is(err, mzerrors.ErrBadPassword) {
		t.Fatalf("wrong password: got %v, want ErrBadPassword", err)
	}
	if err := r.Decrypt([]byte("pw")); err != nil {
		t.Fatalf("correct password: %v", err)
	}

	entries := r.Entries()
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	p0, err := entries[0].Reader.Open()
	if err != nil {
		t.Fatal(err)
	}
	if string(p0) != "uncompressed entry" {
		t.Fatalf("entry 0 payload = %q", p0)
	}
	p1, err := entries[1].Reader.Open()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(p1, bytes.Repeat([]byte("lzma me "), 100)) {
		t.Fatal("entry 1 LZMA payload mismatch")
	}
}

func TestEncryptedFilename(t *testing.T) {
	req := WriteRequest{
		Entries: []EntryRequest{
			{
				Path:          "private.doc",
				Payload:       []byte("shh"),
				EncryptedName: true,
				Maus: maus.WriteRequest{
					Cipher: cryptopipe.AES, CipherBits: 256,
					Password: []byte("pw"), Iterations: cryptopipe.MinIterations,
				},
			},
		},
	}
	var buf bytes.Buffer
	if _, err := NewWriter(req, cryptopipe.DefaultRandom).WriteTo(&buf); err != nil {
		t.Fatal(err)
	}

	r, err := NewReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if r.Encrypted() {
		t.Fatal("archive itself should not be whole-archive encrypted")
	}
	entries := r.Entries()
	if len(entries) != 1 || entries[0].StoredPath != "//V0" {
		t.Fatalf("entries = %+v, want single //V0 entry", entries)
	}

	if err := entries[0].Reader.Decrypt([]byte("pw")); err != nil {
		t.Fatal(err)
	}
	name, ok := entries[0].Reader.Name()
	if !ok || name != "private.doc" {
		t.Fatalf("Name() = %q, %v, want private.doc, true", name, ok)
	}
	payload, err := entries[0].Reader.Open()
	if err != nil {
		t.Fatal(err)
	}
	if string(payload) != "shh" {
		t.Fatalf("payload = %q, want shh", payload)
	}
}

// TestEncryptedFilenameEntryIsolatedFromSiblings covers spec §4.7: a
// malformed Maus container behind an encrypted-filename placeholder is
// fatal only to that entry, not the archive. It corrupts the first
// entry's Maus magic in place and checks the second entry still opens.
func TestEncryptedFilenameEntryIsolatedFromSiblings(t *testing.T) {
	req := WriteRequest{
		Entries: []EntryRequest{
			{
				Path:          "secret.doc",
				Payload:       []byte("shh"),
				EncryptedName: true,
				Maus: maus.WriteRequest{
					Cipher: cryptopipe.AES, CipherBits: 256,
					Password: []byte("pw"), Iterations: cryptopipe.MinIterations,
				},
			},
			{Path: "ok.txt", Payload: []byte("fine")},
		},
	}
	var buf bytes.Buffer
	if _, err := NewWriter(req, cryptopipe.DefaultRandom).WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	raw := buf.Bytes()

	idx := bytes.Index(raw, maus.Magic[:])
	if idx < 0 {
		t.Fatal("could not locate entry 0's Maus magic")
	}
	raw[idx] ^= 0xFF

	r, err := NewReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("archive should still parse with one bad entry: %v", err)
	}
	entries := r.Entries()
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}

	bad, ok := r.Entry(0)
	if !ok || bad.Err == nil || bad.Reader != nil {
		t.Fatalf("entry 0 = %+v, want isolated Err with nil Reader", bad)
	}
	var entryErr *mzerrors.EntryError
	if !mzerrors.As(bad.Err, &entryErr) || entryErr.ID != 0 || entryErr.Path != "//V0" {
		t.Fatalf("entry 0 Err = %v, want *EntryError for //V0", bad.Err)
	}

	good, ok := r.Entry(1)
	if !ok || good.Err != nil || good.Reader == nil {
		t.Fatalf("entry 1 = %+v, want readable sibling", good)
	}
	payload, err := good.Reader.Open()
	if err != nil {
		t.Fatal(err)
	}
	if string(payload) != "fine" {
		t.Fatalf("entry 1 payload = %q, want fine", payload)
	}
}

func TestManifestMismatchFailsArchive(t *testing.T) {
	req := WriteRequest{
		Entries: []EntryRequest{{Path: "a.txt", Payload: []byte("x")}},
		Signed:  true,
	}
	var buf bytes.Buffer
	if _, err := NewWriter(req, cryptopipe.DefaultRandom).WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	raw := buf.Bytes()
	wantMac, _ := digest.Sum(digest.SHA256, []byte("x"))
	idx := bytes.Index(raw, wantMac)
	if idx < 0 {
		t.Fatal("could not locate entry's header mac in archive bytes")
	}
	raw[idx] ^= 0xFF

	if _, err := NewReader(bytes.NewReader(raw)); !mzerrors.Is(err, mzerrors.ErrBadChecksum) {
		t.Fatalf("got %v, want ErrBadChecksum", err)
	}
}
