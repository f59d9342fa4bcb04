package bip

import (
	"fmt"

	"github.com/and161185/seedvault/internal/errs"
	"github.com/and161185/seedvault/internal/model"
)

// Fixed BIP44 levels for Solana.
const (
	Bip44Purpose        = 44
	Bip44CoinTypeSolana = 501
)

// Normalize applies the purpose's derivation rules. SLIP-10 Ed25519 has no
// non-hardened children, so for Solana every level is hardened. Idempotent.
func Normalize(p Path, purpose model.Purpose) (Path, error) {
	switch v := p.(type) {
	case Bip32Path:
		return NormalizeBip32(v, purpose)
	case Bip44Path:
		return NormalizeBip44(v, purpose)
	default:
		return nil, fmt.Errorf("%w: unknown derivation path type %T", errs.ErrValidation, p)
	}
}

// NormalizeBip32 is Normalize for a BIP32 path.
func NormalizeBip32(p Bip32Path, purpose model.Purpose) (Bip32Path, error) {
	switch purpose {
	case model.PurposeSignSolanaTransactions:
		if p.IsHardened() {
			return p, nil
		}
		levels := p.Levels()
		for i := range levels {
			levels[i].Hardened = true
		}
		return Bip32Path{levels: levels}, nil
	default:
		return Bip32Path{}, fmt.Errorf("%w: %s", errs.ErrUnsupportedPurpose, purpose)
	}
}

// NormalizeBip44 is Normalize for a BIP44 path.
func NormalizeBip44(p Bip44Path, purpose model.Purpose) (Bip44Path, error) {
	switch purpose {
	case model.PurposeSignSolanaTransactions:
		out := Bip44Path{Account: Level{Index: p.Account.Index, Hardened: true}}
		if p.Change != nil {
			out.Change = &Level{Index: p.Change.Index, Hardened: true}
			if p.AddressIndex != nil {
				out.AddressIndex = &Level{Index: p.AddressIndex.Index, Hardened: true}
			}
		}
		return out, nil
	default:
		return Bip44Path{}, fmt.Errorf("%w: %s", errs.ErrUnsupportedPurpose, purpose)
	}
}

// ToBip32Path rewrites a BIP44 path as 44'/501'/<normalized tail>. BIP32 paths are returned unchanged.
func ToBip32Path(p Path, purpose model.Purpose) (Bip32Path, error) {
	switch v := p.(type) {
	case Bip32Path:
		return v, nil
	case Bip44Path:
		switch purpose {
		case model.PurposeSignSolanaTransactions:
			tail, err := NormalizeBip44(v, purpose)
			if err != nil {
				return Bip32Path{}, err
			}
			levels := append([]Level{Hardened(Bip44Purpose), Hardened(Bip44CoinTypeSolana)}, tail.Levels()...)
			return NewBip32Path(levels...)
		default:
			return Bip32Path{}, fmt.Errorf("%w: %s", errs.ErrUnsupportedPurpose, purpose)
		}
	default:
		return Bip32Path{}, fmt.Errorf("%w: unknown derivation path type %T", errs.ErrValidation, p)
	}
}

// Resolve parses a URI and returns the canonical, normalized BIP32 path for purpose.
func Resolve(uri string, purpose model.Purpose) (Bip32Path, error) {
	p, err := Parse(uri)
	if err != nil {
		return Bip32Path{}, err
	}
	b32, err := ToBip32Path(p, purpose)
	if err != nil {
		return Bip32Path{}, err
	}
	return NormalizeBip32(b32, purpose)
}

// SolanaRoot is m/44'/501', the prefix shared by every Solana account path.
func SolanaRoot() Bip32Path {
	return Bip32Path{levels: []Level{Hardened(Bip44Purpose), Hardened(Bip44CoinTypeSolana)}}
}
