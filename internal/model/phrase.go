package model

import (
	"github.com/and161185/seedvault/internal/phrase"
)

// NewSeedDetailsFromPhrase derives the seed bytes and word indices from a BIP39
// mnemonic and validates the result like NewSeedDetails.
func NewSeedDetailsFromPhrase(mnemonic, passphrase, name, pin string, unlockWithBiometrics, isBackedUp bool) (SeedDetails, error) {
	indices, err := phrase.WordIndices(mnemonic)
	if err != nil {
		return SeedDetails{}, err
	}
	seed, err := phrase.Seed(mnemonic, passphrase)
	if err != nil {
		return SeedDetails{}, err
	}
	return NewSeedDetails(seed, indices, name, pin, unlockWithBiometrics, isBackedUp)
}
