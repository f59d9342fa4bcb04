package crypto

import (
	"fmt"

	"github.com/cloudflare/circl/sign/ed25519"

	"github.com/and161185/seedvault/internal/errs"
)

// Ed25519 sizes.
const (
	Ed25519SeedSize       = ed25519.SeedSize
	Ed25519PublicKeySize  = ed25519.PublicKeySize
	Ed25519PrivateKeySize = ed25519.PrivateKeySize
	Ed25519SignatureSize  = ed25519.SignatureSize
)

// Ed25519 is the signature primitive used by derivation and signing.
type Ed25519 interface {
	// KeyPairFromSeed expands a 32-byte secret into a 64-byte private key
	// (secret || public) and the 32-byte public key.
	KeyPairFromSeed(seed []byte) (priv, pub []byte, err error)
	// SignDetached signs msg with a 64-byte private key.
	SignDetached(priv, msg []byte) ([]byte, error)
	// Verify checks a detached signature.
	Verify(pub, msg, sig []byte) bool
}

// CirclEd25519 implements Ed25519 with cloudflare/circl.
type CirclEd25519 struct{}

var _ Ed25519 = CirclEd25519{}

// NewEd25519 returns the default primitive.
func NewEd25519() CirclEd25519 { return CirclEd25519{} }

// KeyPairFromSeed implements Ed25519.
func (CirclEd25519) KeyPairFromSeed(seed []byte) ([]byte, []byte, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, nil, fmt.Errorf("%w: secret must be %d bytes, got %d", errs.ErrKeyDoesNotExist, ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := make([]byte, ed25519.PublicKeySize)
	copy(pub, priv[ed25519.SeedSize:])
	return []byte(priv), pub, nil
}

// SignDetached implements Ed25519.
func (CirclEd25519) SignDetached(priv, msg []byte) ([]byte, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: private key must be %d bytes, got %d", errs.ErrValidation, ed25519.PrivateKeySize, len(priv))
	}
	return ed25519.Sign(ed25519.PrivateKey(priv), msg), nil
}

// Verify implements Ed25519.
func (CirclEd25519) Verify(pub, msg, sig []byte) bool {
	if len(pub) != ed25519.PublicKeySize || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), msg, sig)
}
