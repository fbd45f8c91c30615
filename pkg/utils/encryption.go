package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"strings"
)

// encPrefix marks values written by FieldCipher so plaintext stored before a
// key was configured still reads back.
const encPrefix = "enc:v1:"

// FieldCipher encrypts free-text fields with AES-256-GCM. A cipher built from
// an empty key passes values through unchanged.
type FieldCipher struct {
	aead cipher.AEAD
}

// NewFieldCipher expects a base64-encoded 32-byte key, or "" for passthrough.
func NewFieldCipher(keyBase64 string) (*FieldCipher, error) {
	if keyBase64 == "" {
		return &FieldCipher{}, nil
	}

	keyBytes, err := base64.StdEncoding.DecodeString(keyBase64)
	if err != nil {
		return nil, errors.New("ENCRYPTION_KEY must be base64-encoded")
	}
	// Key must be 32 bytes for AES-256
	if len(keyBytes) != 32 {
		return nil, errors.New("ENCRYPTION_KEY must decode to exactly 32 bytes (256 bits)")
	}

	block, err := aes.NewCipher(keyBytes)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &FieldCipher{aead: gcm}, nil
}

func (c *FieldCipher) Enabled() bool { return c != nil && c.aead != nil }

// Encrypt seals plaintext. Empty strings stay empty.
func (c *FieldCipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" || !c.Enabled() {
		return plaintext, nil
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return encPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt. Values without the marker are
// returned as stored.
func (c *FieldCipher) Decrypt(value string) (string, error) {
	if !strings.HasPrefix(value, encPrefix) {
		return value, nil
	}
	if !c.Enabled() {
		return "", errors.New("encrypted value but no ENCRYPTION_KEY configured")
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, encPrefix))
	if err != nil {
		return "", err
	}
	nonceSize := c.aead.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
