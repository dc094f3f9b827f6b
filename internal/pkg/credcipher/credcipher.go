// Package credcipher encrypts and decrypts stored SMTP credentials with
// AES-256-CBC.
//
// Stored values use the format "<iv hex>:<ciphertext hex>". Decrypt always
// reads the IV from the stored value itself, so values written under an older
// default IV keep decrypting after the configured IV rotates.
package credcipher

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const (
	keyLen = 32
	ivLen  = aes.BlockSize
)

var (
	// ErrInvalidKeyLength indicates the key is not 32 bytes (AES-256).
	ErrInvalidKeyLength = errors.New("credcipher: key must be 32 bytes (AES-256)")
	// ErrInvalidIVLength indicates the IV is not one AES block.
	ErrInvalidIVLength = errors.New("credcipher: iv must be 16 bytes")
	// ErrPlaintextEmpty indicates an empty plaintext input.
	ErrPlaintextEmpty = errors.New("credcipher: plaintext is empty")
	// ErrMalformedValue indicates a stored value that is not "<iv hex>:<ciphertext hex>".
	ErrMalformedValue = errors.New("credcipher: malformed encrypted value")
	// ErrDecryptFailed indicates decryption failure.
	ErrDecryptFailed = errors.New("credcipher: decrypt failed")
)

// Cipher holds the AES key and the IV used for new encryptions.
type Cipher struct {
	key []byte
	iv  []byte
}

// New validates the key and IV lengths and returns a Cipher.
func New(key, iv []byte) (*Cipher, error) {
	if len(key) != keyLen {
		return nil, ErrInvalidKeyLength
	}
	if len(iv) != ivLen {
		return nil, ErrInvalidIVLength
	}

	c := &Cipher{key: make([]byte, keyLen), iv: make([]byte, ivLen)}
	copy(c.key, key)
	copy(c.iv, iv)

	return c, nil
}

// Encrypt encrypts plaintext and returns "<iv hex>:<ciphertext hex>".
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrPlaintextEmpty
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("credcipher: aes init failed: %w", err)
	}

	padded := pkcs7Pad([]byte(plaintext))
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, c.iv).CryptBlocks(out, padded)

	return hex.EncodeToString(c.iv) + ":" + hex.EncodeToString(out), nil
}

// Decrypt decrypts a stored "<iv hex>:<ciphertext hex>" value.
func (c *Cipher) Decrypt(stored string) (string, error) {
	ivHex, dataHex, ok := strings.Cut(stored, ":")
	if !ok {
		return "", ErrMalformedValue
	}

	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != ivLen {
		return "", ErrMalformedValue
	}

	data, err := hex.DecodeString(dataHex)
	if err != nil || len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return "", ErrMalformedValue
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("credcipher: aes init failed: %w", err)
	}

	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, data)

	plain, err := pkcs7Unpad(out)
	if err != nil {
		// Do not leak whether it was a wrong key, wrong IV, or tampered data.
		return "", ErrDecryptFailed
	}

	return string(plain), nil
}

func pkcs7Pad(data []byte) []byte {
	pad := aes.BlockSize - len(data)%aes.BlockSize
	out := make([]byte, len(data)+pad)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(pad)
	}

	return out
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return nil, ErrDecryptFailed
	}

	pad := int(data[len(data)-1])
	if pad < 1 || pad > aes.BlockSize || pad > len(data) {
		return nil, ErrDecryptFailed
	}

	for _, b := range data[len(data)-pad:] {
		if int(b) != pad {
			return nil, ErrDecryptFailed
		}
	}

	return data[:len(data)-pad], nil
}
