package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mauz/internal/compress"
	"mauz/internal/cryptopipe"
)

func TestParseCipher(t *testing.T) {
	cases := []struct {
		name    string
		want    cryptopipe.Algo
		wantErr bool
	}{
		{"", "", false},
		{"none", "", false},
		{"AES", cryptopipe.AES, false},
		{"Twofish", cryptopipe.Twofish, false},
		{"Threefish", cryptopipe.Threefish, false},
		{"aes", "", true},
		{"rot13", "", true},
	}
	for _, c := range cases {
		got, err := parseCipher(c.name)
		if c.wantErr {
			if err == nil {
				t.Errorf("parseCipher(%q): expected error, got nil", c.name)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseCipher(%q): unexpected error: %v", c.name, err)
		}
		if got != c.want {
			t.Errorf("parseCipher(%q) = %q, want %q", c.name, got, c.want)
		}
	}
}

func TestParseCompression(t *testing.T) {
	cases := []struct {
		name    string
		want    compress.Algorithm
		wantErr bool
	}{
		{"", compress.Identity, false},
		{"none", compress.Identity, false},
		{"deflate", compress.Deflate, false},
		{"lzma", compress.LZMA, false},
		{"bzip2", "", true},
	}
	for _, c := range cases {
		got, err := parseCompression(c.name)
		if c.wantErr {
			if err == nil {
				t.Errorf("parseCompression(%q): expected error, got nil", c.name)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseCompression(%q): unexpected error: %v", c.name, err)
		}
		if got != c.want {
			t.Errorf("parseCompression(%q) = %q, want %q", c.name, got, c.want)
		}
	}
}

func TestParseHash(t *testing.T) {
	t.Run("empty means default", func(t *testing.T) {
		got, err := parseHash("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "" {
			t.Errorf("expected empty algorithm, got %q", got)
		}
	})

	t.Run("unknown hash rejected", func(t *testing.T) {
		_, err := parseHash("md5")
		if err == nil {
			t.Error("expected error for unsupported hash")
		}
	})

	t.Run("known hash accepted", func(t *testing.T) {
		if _, err := parseHash("SHA256"); err != nil {
			t.Errorf("unexpected error for SHA256: %v", err)
		}
	})
}

func TestResolvePassword(t *testing.T) {
	t.Run("flag value used when not reading stdin", func(t *testing.T) {
		pw, err := resolvePassword("hunter2", false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(pw) != "hunter2" {
			t.Errorf("got %q, want hunter2", pw)
		}
	})

	t.Run("empty flag without stdin errors", func(t *testing.T) {
		if _, err := resolvePassword("", false); err != errPasswordRequired {
			t.Errorf("expected errPasswordRequired, got %v", err)
		}
	})
}

func TestCollectEntriesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hello.txt")
	if err := os.WriteFile(path, []byte("hello world"), 0644); err != nil {
		t.Fatal(err)
	}

	entries, err := collectEntries([]string{path}, compress.Identity)
	if err != nil {
		t.Fatalf("collectEntries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Path != "hello.txt" {
		t.Errorf("expected path hello.txt, got %q", entries[0].Path)
	}
	if string(entries[0].Payload) != "hello world" {
		t.Errorf("unexpected payload: %q", entries[0].Payload)
	}
}

func TestCollectEntriesDirectory(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "docs")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "a.txt"), []byte("a"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "b.txt"), []byte("b"), 0644); err != nil {
		t.Fatal(err)
	}

	entries, err := collectEntries([]string{sub}, compress.Identity)
	if err != nil {
		t.Fatalf("collectEntries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	for _, e := range entries {
		if !strings.HasPrefix(e.Path, "docs/") {
			t.Errorf("expected entry rooted at docs/, got %q", e.Path)
		}
	}
}

func TestCollectEntriesEmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty")
	if err := os.MkdirAll(empty, 0755); err != nil {
		t.Fatal(err)
	}

	entries, err := collectEntries([]string{empty}, compress.Identity)
	if err != nil {
		t.Fatalf("collectEntries: %v", err)
	}
	if len(entries) != 1 || !entries[0].EmptyDir || entries[0].Path != "empty/" {
		t.Fatalf("expected a single EmptyDir entry named empty/, got %#v", entries)
	}
}

func TestCollectEntriesMissingInput(t *testing.T) {
	if _, err := collectEntries([]string{"/does/not/exist/*"}, compress.Identity); err == nil {
		t.Error("expected error for an input pattern with no matches")
	}
}

// TestPackUnpackRoundTrip exercises pack and unpack end to end through the
// same entry points cobra invokes, without going through os.Args.
func TestPackUnpackRoundTrip(t *testing.T) {
	src := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "note.txt"), []byte("archived contents"), 0644); err != nil {
		t.Fatal(err)
	}

	archive := filepath.Join(t.TempDir(), "out.mz")
	packInputs = []string{filepath.Join(src, "note.txt")}
	packOutput = archive
	packCompression = "deflate"
	packHash = ""
	packCipher = "AES"
	packBits = 256
	packPassword = "correct horse battery staple"
	packPassStdin = false
	packGeneratePass = false
	packIterations = cryptopipe.MinIterations
	packSigned = true
	defer func() {
		packCipher = ""
		packSigned = false
	}()

	if err := runPack(packCmd, nil); err != nil {
		t.Fatalf("runPack: %v", err)
	}

	dest := t.TempDir()
	unpackInput = archive
	unpackOutDir = dest
	unpackPassword = "correct horse battery staple"
	unpackPassStdin = false

	if err := runUnpack(unpackCmd, nil); err != nil {
		t.Fatalf("runUnpack: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dest, "note.txt"))
	if err != nil {
		t.Fatalf("reading extracted file: %v", err)
	}
	if string(got) != "archived contents" {
		t.Errorf("round trip mismatch: got %q", got)
	}
}

func TestWrapUnwrapRoundTrip(t *testing.T) {
	src := filepath.Join(t.TempDir(), "payload.bin")
	if err := os.WriteFile(src, []byte("a single stream payload"), 0644); err != nil {
		t.Fatal(err)
	}

	wrapped := filepath.Join(t.TempDir(), "payload.maus")
	wrapInput = src
	wrapOutput = wrapped
	wrapCompression = "none"
	wrapHash = ""
	wrapCipher = ""
	wrapBits = 256
	wrapPassword = ""
	wrapPassStdin = false
	wrapIterations = cryptopipe.MinIterations

	if err := runWrap(wrapCmd, nil); err != nil {
		t.Fatalf("runWrap: %v", err)
	}

	unwrapped := filepath.Join(t.TempDir(), "payload.out")
	unwrapInput = wrapped
	unwrapOutput = unwrapped
	unwrapPassword = ""
	unwrapPassStdin = false

	if err := runUnwrap(unwrapCmd, nil); err != nil {
		t.Fatalf("runUnwrap: %v", err)
	}

	got, err := os.ReadFile(unwrapped)
	if err != nil {
		t.Fatalf("reading unwrapped file: %v", err)
	}
	if string(got) != "a single stream payload" {
		t.Errorf("round trip mismatch: got %q", got)
	}
}
