// Package sealer encrypts the persisted vault document with a key derived from
// an operator passphrase.
package sealer

import (
	"bytes"
	"errors"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/and161185/seedvault/internal/crypto"
)

// ErrOpen is returned when a blob cannot be authenticated or is malformed.
var ErrOpen = errors.New("sealer: cannot open blob")

// Sealer wraps plaintext as salt || nonce || XChaCha20-Poly1305(ciphertext).
// The derived key is cached per salt; a zero Sealer is not usable.
type Sealer struct {
	passphrase []byte

	mu   sync.Mutex
	salt []byte
	key  []byte
}

// New returns a Sealer for passphrase.
func New(passphrase []byte) *Sealer {
	return &Sealer{passphrase: append([]byte(nil), passphrase...)}
}

func (s *Sealer) keyFor(salt []byte) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key != nil && bytes.Equal(s.salt, salt) {
		return s.key
	}
	s.salt = append([]byte(nil), salt...)
	s.key = crypto.DeriveKey(s.passphrase, salt)
	return s.key
}

func (s *Sealer) currentSalt() ([]byte, error) {
	s.mu.Lock()
	salt := s.salt
	s.mu.Unlock()
	if salt != nil {
		return salt, nil
	}
	return crypto.RandBytes(crypto.SaltLen)
}

// Seal encrypts plaintext, binding aad.
func (s *Sealer) Seal(plaintext, aad []byte) ([]byte, error) {
	salt, err := s.currentSalt()
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(s.keyFor(salt))
	if err != nil {
		return nil, err
	}
	nonce, err := crypto.RandBytes(chacha20poly1305.NonceSizeX)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(salt)+len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, aead.Seal(nil, nonce, plaintext, aad)...)
	return out, nil
}

// Open decrypts a blob produced by Seal with the same aad.
func (s *Sealer) Open(blob, aad []byte) ([]byte, error) {
	if len(blob) < crypto.SaltLen+chacha20poly1305.NonceSizeX {
		return nil, ErrOpen
	}
	salt := blob[:crypto.SaltLen]
	nonce := blob[crypto.SaltLen : crypto.SaltLen+chacha20poly1305.NonceSizeX]
	ct := blob[crypto.SaltLen+chacha20poly1305.NonceSizeX:]
	aead, err := chacha20poly1305.NewX(s.keyFor(salt))
	if err != nil {
		return nil, err
	}
	pt, err := aead.Open(nil, nonce, ct, aad)
	if err != nil {
		return nil, ErrOpen
	}
	return pt, nil
}
