package derivation

import (
	"errors"
	"fmt"

	"github.com/and161185/seedvault/internal/bip"
	"github.com/and161185/seedvault/internal/crypto"
	"github.com/and161185/seedvault/internal/errs"
	"github.com/and161185/seedvault/internal/model"
)

// Scheme is a key derivation scheme bound to one purpose.
type Scheme interface {
	PartialDerivation(seed []byte, path bip.Bip32Path) (*Partial, error)
	// PrivateKey and PublicKey derive from root when it is non-nil and an ancestor of path.
	PrivateKey(seed []byte, path bip.Bip32Path, root *Partial) ([]byte, error)
	PublicKey(seed []byte, path bip.Bip32Path, root *Partial) ([]byte, error)
}

// Engine dispatches derivation requests by purpose.
type Engine struct {
	schemes map[model.Purpose]Scheme
}

// NewEngine registers SLIP-10 Ed25519 for Solana transaction signing.
func NewEngine(ed crypto.Ed25519) *Engine {
	return &Engine{schemes: map[model.Purpose]Scheme{
		model.PurposeSignSolanaTransactions: NewSLIP10(ed),
	}}
}

// For returns the scheme registered for purpose.
func (e *Engine) For(purpose model.Purpose) (Scheme, error) {
	s, ok := e.schemes[purpose]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errs.ErrUnsupportedPurpose, purpose)
	}
	return s, nil
}

func asKeyDoesNotExist(err error) error {
	if errors.Is(err, errs.ErrKeyDoesNotExist) {
		return err
	}
	return fmt.Errorf("%w: %v", errs.ErrKeyDoesNotExist, err)
}
