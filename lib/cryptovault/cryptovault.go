// Package cryptovault seals small JSON documents with AES-GCM before
// they touch the database. Supplier portal sessions are credentials in
// all but name, so they are never stored in the clear.
package cryptovault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

type Vault struct {
	aead cipher.AEAD
}

// New creates a vault from a 16, 24 or 32 byte key.
func New(key []byte) (*Vault, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cryptovault: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cryptovault: %w", err)
	}
	return &Vault{aead: aead}, nil
}

// NewFromBase64 creates a vault from a base64 (std encoding) key, the
// form keys take in configuration files.
func NewFromBase64(encoded string) (*Vault, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("cryptovault: decode key: %w", err)
	}
	return New(key)
}

func (v *Vault) EncryptJSON(value any) (string, error) {
	plaintext, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("cryptovault: marshal: %w", err)
	}
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("cryptovault: nonce: %w", err)
	}
	sealed := v.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (v *Vault) DecryptJSON(encoded string, out any) error {
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("cryptovault: decode: %w", err)
	}
	if len(sealed) < v.aead.NonceSize() {
		return fmt.Errorf("cryptovault: ciphertext too short")
	}
	nonce, ciphertext := sealed[:v.aead.NonceSize()], sealed[v.aead.NonceSize():]
	plaintext, err := v.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return fmt.Errorf("cryptovault: open: %w", err)
	}
	return json.Unmarshal(plaintext, out)
}
