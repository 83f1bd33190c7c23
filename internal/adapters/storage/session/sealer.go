package session

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

// ErrUnseal is returned when a sealed value was tampered with or sealed under another key.
var ErrUnseal = errors.New("cannot open sealed value")

// Sealer encrypts short secrets with NaCl secretbox. The output is nonce || box.
type Sealer struct {
	key [32]byte
}

// NewSealer creates a sealer with the given 32-byte key.
func NewSealer(key [32]byte) *Sealer {
	return &Sealer{key: key}
}

// Seal encrypts plaintext under a fresh random nonce.
// POST: Returns a value only Open with the same key can read
func (s *Sealer) Seal(plaintext string) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &s.key), nil
}

// Open decrypts a value produced by Seal.
func (s *Sealer) Open(sealed []byte) (string, error) {
	if len(sealed) < nonceSize+secretbox.Overhead {
		return "", ErrUnseal
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	plain, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", ErrUnseal
	}
	return string(plain), nil
}
