// Package signing produces detached signatures for the vault's purposes.
package signing

import (
	"fmt"

	"github.com/and161185/seedvault/internal/crypto"
	"github.com/and161185/seedvault/internal/errs"
	"github.com/and161185/seedvault/internal/model"
)

// Service signs payloads with derived private keys.
type Service interface {
	Sign(purpose model.Purpose, privateKey, payload []byte) ([]byte, error)
	SignTransaction(purpose model.Purpose, privateKey, tx []byte) ([]byte, error)
	SignMessage(purpose model.Purpose, privateKey, msg []byte) ([]byte, error)
	Verify(purpose model.Purpose, publicKey, payload, sig []byte) (bool, error)
}

// ServiceImpl signs with an injected Ed25519 primitive.
type ServiceImpl struct {
	ed crypto.Ed25519
}

var _ Service = (*ServiceImpl)(nil)

// NewService returns a signing service backed by ed.
func NewService(ed crypto.Ed25519) *ServiceImpl {
	return &ServiceImpl{ed: ed}
}

func checkPurpose(purpose model.Purpose) error {
	if purpose != model.PurposeSignSolanaTransactions {
		return fmt.Errorf("%w: %s", errs.ErrUnsupportedPurpose, purpose)
	}
	return nil
}

// Sign returns a 64-byte detached Ed25519 signature over payload.
func (s *ServiceImpl) Sign(purpose model.Purpose, privateKey, payload []byte) ([]byte, error) {
	if err := checkPurpose(purpose); err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: payload must not be empty", errs.ErrValidation)
	}
	if len(privateKey) != crypto.Ed25519PrivateKeySize {
		return nil, fmt.Errorf("%w: private key must be %d bytes", errs.ErrValidation, crypto.Ed25519PrivateKeySize)
	}
	sig, err := s.ed.SignDetached(privateKey, payload)
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	return sig, nil
}

// SignTransaction signs a serialized transaction.
func (s *ServiceImpl) SignTransaction(purpose model.Purpose, privateKey, tx []byte) ([]byte, error) {
	return s.Sign(purpose, privateKey, tx)
}

// SignMessage signs an off-chain message. Solana uses the same scheme for both.
func (s *ServiceImpl) SignMessage(purpose model.Purpose, privateKey, msg []byte) ([]byte, error) {
	return s.Sign(purpose, privateKey, msg)
}

// Verify checks sig over payload.
func (s *ServiceImpl) Verify(purpose model.Purpose, publicKey, payload, sig []byte) (bool, error) {
	if err := checkPurpose(purpose); err != nil {
		return false, err
	}
	return s.ed.Verify(publicKey, payload, sig), nil
}
