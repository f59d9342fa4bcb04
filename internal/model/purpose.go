package model

import (
	"fmt"

	"github.com/and161185/seedvault/internal/errs"
)

// Purpose identifies a derivation/signing scheme an authorization is issued for.
type Purpose int

const (
	// PurposeSignSolanaTransactions is Solana signing with SLIP-10 Ed25519 keys.
	PurposeSignSolanaTransactions Purpose = 0
)

// ParsePurpose maps a wire constant to a Purpose.
func ParsePurpose(v int) (Purpose, error) {
	switch Purpose(v) {
	case PurposeSignSolanaTransactions:
		return PurposeSignSolanaTransactions, nil
	default:
		return 0, fmt.Errorf("%w: %d", errs.ErrUnsupportedPurpose, v)
	}
}

func (p Purpose) String() string {
	switch p {
	case PurposeSignSolanaTransactions:
		return "SIGN_SOLANA_TRANSACTIONS"
	default:
		return fmt.Sprintf("Purpose(%d)", int(p))
	}
}
