// Package vault provides symmetric encryption for stored provider tokens.
// Ciphertext is "iv_hex:cipher_hex", AES-256-CBC with a fresh random IV per
// call, so encrypting the same plaintext twice yields different output.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedCiphertext indicates the separator or hex encoding is invalid.
	ErrMalformedCiphertext = errors.New("malformed ciphertext")
	// ErrDecryptionFailed indicates the cipher rejected the payload (bad key or padding).
	ErrDecryptionFailed = errors.New("decryption failed")
)

const keySize = 32

// Vault encrypts and decrypts credential tokens with a fixed 256-bit key.
// It holds no state beyond the key.
type Vault struct {
	key []byte
}

// New constructs a Vault. The key must be exactly 32 bytes; callers load it
// from configuration, never from a silent default.
func New(key []byte) (*Vault, error) {
	if len(key) != keySize {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d", keySize, len(key))
	}
	return &Vault{key: append([]byte(nil), key...)}, nil
}

// NewFromHex constructs a Vault from a hex-encoded 32-byte key.
func NewFromHex(hexKey string) (*Vault, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("encryption key is not valid hex: %w", err)
	}
	return New(key)
}

// Encrypt returns "iv_hex:cipher_hex" for the given plaintext.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(v.key)
	if err != nil {
		return "", err
	}
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", err
	}
	padded := pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(out), nil
}

// Decrypt reverses Encrypt. It returns ErrMalformedCiphertext for format
// problems and ErrDecryptionFailed when the cipher rejects the padding.
func (v *Vault) Decrypt(ciphertext string) (string, error) {
	ivHex, dataHex, ok := strings.Cut(ciphertext, ":")
	if !ok {
		return "", ErrMalformedCiphertext
	}
	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != aes.BlockSize {
		return "", ErrMalformedCiphertext
	}
	data, err := hex.DecodeString(dataHex)
	if err != nil || len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return "", ErrMalformedCiphertext
	}
	block, err := aes.NewCipher(v.key)
	if err != nil {
		return "", err
	}
	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, data)
	plain, err := unpad(out, aes.BlockSize)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plain), nil
}

// pad applies PKCS#7 padding.
func pad(b []byte, blockSize int) []byte {
	n := blockSize - len(b)%blockSize
	padded := make([]byte, len(b)+n)
	copy(padded, b)
	for i := len(b); i < len(padded); i++ {
		padded[i] = byte(n)
	}
	return padded
}

// unpad strips PKCS#7 padding, validating every pad byte.
func unpad(b []byte, blockSize int) ([]byte, error) {
	if len(b) == 0 || len(b)%blockSize != 0 {
		return nil, errors.New("invalid padded length")
	}
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize || n > len(b) {
		return nil, errors.New("invalid padding length")
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, errors.New("invalid padding byte")
		}
	}
	return b[:len(b)-n], nil
}
