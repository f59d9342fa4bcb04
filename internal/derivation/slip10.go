// Package derivation implements hierarchical key derivation for the vault's
// supported purposes. Only SLIP-10 Ed25519 (hardened-only) is provided.
package derivation

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"fmt"

	"github.com/and161185/seedvault/internal/bip"
	"github.com/and161185/seedvault/internal/crypto"
	"github.com/and161185/seedvault/internal/errs"
)

const (
	ed25519Curve = "ed25519 seed"
	hardenedBit  = 0x80000000

	minSeedLen = 16
	maxSeedLen = 64
)

// KeyMaterial is a 32-byte secret key and its 32-byte chain code.
type KeyMaterial struct {
	Key       [32]byte
	ChainCode [32]byte
}

func split(sum []byte) KeyMaterial {
	var km KeyMaterial
	copy(km.Key[:], sum[:32])
	copy(km.ChainCode[:], sum[32:])
	return km
}

// MasterSecret returns HMAC-SHA512("ed25519 seed", seed) split into key and chain code.
func MasterSecret(seed []byte) KeyMaterial {
	mac := hmac.New(sha512.New, []byte(ed25519Curve))
	mac.Write(seed)
	return split(mac.Sum(nil))
}

// Child derives the hardened child at index. Ed25519 has no public derivation,
// so a non-hardened request is a programming error and panics.
func Child(km KeyMaterial, index uint32, hardened bool) KeyMaterial {
	if !hardened {
		panic("derivation: SLIP-10 Ed25519 supports hardened children only")
	}
	var data [1 + 32 + 4]byte
	copy(data[1:33], km.Key[:])
	binary.BigEndian.PutUint32(data[33:], index|hardenedBit)
	mac := hmac.New(sha512.New, km.ChainCode[:])
	mac.Write(data[:])
	return split(mac.Sum(nil))
}

// Partial is an intermediate derivation result that can seed deeper derivations
// for the same seed. It is opaque outside this package.
type Partial struct {
	path        bip.Bip32Path
	km          KeyMaterial
	fingerprint [8]byte
}

// Path is the path the partial was derived for.
func (p *Partial) Path() bip.Bip32Path { return p.path }

func fingerprint(seed []byte) [8]byte {
	sum := sha256.Sum256(seed)
	var f [8]byte
	copy(f[:], sum[:8])
	return f
}

// SLIP10 derives Ed25519 keys per SLIP-0010.
type SLIP10 struct {
	ed crypto.Ed25519
}

var _ Scheme = (*SLIP10)(nil)

// NewSLIP10 returns a scheme that expands derived secrets with ed.
func NewSLIP10(ed crypto.Ed25519) *SLIP10 {
	return &SLIP10{ed: ed}
}

func checkInputs(seed []byte, path bip.Bip32Path) error {
	if len(seed) < minSeedLen || len(seed) > maxSeedLen {
		return fmt.Errorf("%w: seed length %d out of range", errs.ErrValidation, len(seed))
	}
	if !path.IsHardened() {
		return fmt.Errorf("%w: %s has non-hardened levels", errs.ErrValidation, path.URI())
	}
	return nil
}

func descend(km KeyMaterial, levels []bip.Level) KeyMaterial {
	for _, l := range levels {
		km = Child(km, l.Index, l.Hardened)
	}
	return km
}

// PartialDerivation derives the key material for path, for later reuse as a root.
func (s *SLIP10) PartialDerivation(seed []byte, path bip.Bip32Path) (*Partial, error) {
	if err := checkInputs(seed, path); err != nil {
		return nil, err
	}
	return &Partial{
		path:        path,
		km:          descend(MasterSecret(seed), path.Levels()),
		fingerprint: fingerprint(seed),
	}, nil
}

func (s *SLIP10) derive(seed []byte, path bip.Bip32Path, root *Partial) (KeyMaterial, error) {
	if err := checkInputs(seed, path); err != nil {
		return KeyMaterial{}, err
	}
	levels := path.Levels()
	if root == nil {
		return descend(MasterSecret(seed), levels), nil
	}
	if root.fingerprint != fingerprint(seed) {
		return KeyMaterial{}, fmt.Errorf("%w: partial derivation belongs to another seed", errs.ErrValidation)
	}
	prefix := root.path.Levels()
	if len(prefix) > len(levels) {
		return KeyMaterial{}, fmt.Errorf("%w: %s is not below %s", errs.ErrValidation, path.URI(), root.path.URI())
	}
	for i := range prefix {
		if prefix[i] != levels[i] {
			return KeyMaterial{}, fmt.Errorf("%w: %s is not below %s", errs.ErrValidation, path.URI(), root.path.URI())
		}
	}
	return descend(root.km, levels[len(prefix):]), nil
}

// PrivateKey returns the 64-byte Ed25519 private key (secret || public) at path.
func (s *SLIP10) PrivateKey(seed []byte, path bip.Bip32Path, root *Partial) ([]byte, error) {
	km, err := s.derive(seed, path, root)
	if err != nil {
		return nil, err
	}
	priv, _, err := s.ed.KeyPairFromSeed(km.Key[:])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path.URI(), asKeyDoesNotExist(err))
	}
	return priv, nil
}

// PublicKey returns the 32-byte Ed25519 public key at path.
func (s *SLIP10) PublicKey(seed []byte, path bip.Bip32Path, root *Partial) ([]byte, error) {
	km, err := s.derive(seed, path, root)
	if err != nil {
		return nil, err
	}
	_, pub, err := s.ed.KeyPairFromSeed(km.Key[:])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path.URI(), asKeyDoesNotExist(err))
	}
	return pub, nil
}
