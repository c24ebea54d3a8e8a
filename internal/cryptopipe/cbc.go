package cryptopipe

import (
	"crypto/cipher"

	mzerrors "mauz/internal/errors"
)

// CBCEncrypt pads plaintext with PKCS7 and encrypts it under block in CBC
// mode with the given IV, whose length must equal block.BlockSize().
func CBCEncrypt(block cipher.Block, iv, plaintext []byte) ([]byte, error) {
	if len(iv) != block.BlockSize() {
		return nil, mzerrors.NewCryptoError("cipher", mzerrors.ErrInvalidData)
	}
	padded := PKCS7Pad(plaintext, block.BlockSize())
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return out, nil
}

// CBCDecrypt decrypts ciphertext under block in CBC mode with the given IV
// and strips PKCS7 padding. ciphertext's length must be a positive
// multiple of block.BlockSize(); any padding failure is ErrBadPassword.
func CBCDecrypt(block cipher.Block, iv, ciphertext []byte) ([]byte, error) {
	bs := block.BlockSize()
	if len(iv) != bs || len(ciphertext) == 0 || len(ciphertext)%bs != 0 {
		return nil, mzerrors.ErrBadPassword
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)
	return PKCS7Unpad(out, bs)
}
