package main

import (
	"fmt"

	"mauz/internal/compress"
	"mauz/internal/cryptopipe"
	"mauz/internal/digest"
)

func parseCipher(name string) (cryptopipe.Algo, error) {
	switch name {
	case "", "none":
		return "", nil
	case "AES":
		return cryptopipe.AES, nil
	case "Twofish":
		return cryptopipe.Twofish, nil
	case "Threefish":
		return cryptopipe.Threefish, nil
	default:
		return "", fmt.Errorf("unknown cipher %q (want AES, Twofish, or Threefish)", name)
	}
}

func parseCompression(name string) (compress.Algorithm, error) {
	switch name {
	case "", "none":
		return compress.Identity, nil
	case "deflate":
		return compress.Deflate, nil
	case "lzma":
		return compress.LZMA, nil
	default:
		return "", fmt.Errorf("unknown compression %q (want none, deflate, or lzma)", name)
	}
}

func parseHash(name string) (digest.Algorithm, error) {
	if name == "" {
		return "", nil
	}
	algo := digest.Algorithm(name)
	if !digest.Valid(algo) {
		return "", fmt.Errorf("unknown hash %q", name)
	}
	return algo, nil
}
