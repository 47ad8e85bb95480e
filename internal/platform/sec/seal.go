// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrUnsealFailed is returned when a sealed value was tampered with or was
// sealed under a different key.
var ErrUnsealFailed = errors.New("sec: unseal failed")

// Sealer encrypts short secrets that must sit in transient storage
// (the pending password of a two-factor login) using XChaCha20-Poly1305.
type Sealer struct {
	key []byte
}

// NewSealer derives a 256-bit key from secret.
func NewSealer(secret string) (*Sealer, error) {
	if secret == "" {
		return nil, errors.New("sec: sealer secret is empty")
	}
	sum := sha256.Sum256([]byte(secret))
	return &Sealer{key: sum[:]}, nil
}

// Seal encrypts plaintext and returns nonce||ciphertext, base64url encoded.
// The associated data binds the value to its owner (e.g. the user id).
func (sealer *Sealer) Seal(plaintext, associatedData string) (string, error) {
	aead, err := chacha20poly1305.NewX(sealer.key)
	if err != nil {
		return "", fmt.Errorf("sec: failed to init cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("sec: failed to read nonce: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), []byte(associatedData))
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Unseal reverses [Sealer.Seal].
func (sealer *Sealer) Unseal(encoded, associatedData string) (string, error) {
	aead, err := chacha20poly1305.NewX(sealer.key)
	if err != nil {
		return "", fmt.Errorf("sec: failed to init cipher: %w", err)
	}

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil || len(raw) < aead.NonceSize() {
		return "", ErrUnsealFailed
	}

	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, []byte(associatedData))
	if err != nil {
		return "", ErrUnsealFailed
	}
	return string(plaintext), nil
}
