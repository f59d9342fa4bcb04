// Package model defines domain entities shared by the repository, derivation and service layers.
package model

import (
	"fmt"
	"slices"
	"unicode/utf8"

	"github.com/mr-tron/base58"

	"github.com/and161185/seedvault/internal/errs"
)

// Seed material and PIN constraints.
const (
	SeedLength = 512 / 8

	EntropyShort = 128
	EntropyLong  = 256

	PhraseWordCountShort = (EntropyShort + EntropyShort/32) / 11 // 12
	PhraseWordCountLong  = (EntropyLong + EntropyLong/32) / 11   // 24

	// PhraseWordListSize is the BIP39 word list size; word indices are 11-bit.
	PhraseWordListSize = 2048

	PINMinLength = 4
	PINMaxLength = 20

	// MaxSeeds is the number of seeds the vault will hold at once.
	MaxSeeds = 4
)

// Sentinel ids.
const (
	InvalidUID       = -1
	InvalidAccountID = int64(-1)
)

// SeedDetails is the secret material of a seed plus its user-facing settings.
// Values are built through NewSeedDetails, which enforces the invariants.
type SeedDetails struct {
	Seed                 []byte
	PhraseWordIndices    []int
	Name                 string // empty means unnamed
	PIN                  string
	UnlockWithBiometrics bool
	IsBackedUp           bool
}

// NewSeedDetails validates and copies its inputs.
func NewSeedDetails(seed []byte, wordIndices []int, name, pin string, unlockWithBiometrics, isBackedUp bool) (SeedDetails, error) {
	if len(seed) != SeedLength {
		return SeedDetails{}, fmt.Errorf("%w: seed size is %d; must be %d", errs.ErrValidation, len(seed), SeedLength)
	}
	if len(wordIndices) != PhraseWordCountShort && len(wordIndices) != PhraseWordCountLong {
		return SeedDetails{}, fmt.Errorf("%w: seed phrase word count is %d; must be either %d or %d",
			errs.ErrValidation, len(wordIndices), PhraseWordCountShort, PhraseWordCountLong)
	}
	for i, w := range wordIndices {
		if w < 0 || w >= PhraseWordListSize {
			return SeedDetails{}, fmt.Errorf("%w: word index [%d]=%d out of range", errs.ErrValidation, i, w)
		}
	}
	if n := utf8.RuneCountInString(pin); n < PINMinLength || n > PINMaxLength {
		return SeedDetails{}, fmt.Errorf("%w: PIN length is %d; must be between %d and %d",
			errs.ErrValidation, n, PINMinLength, PINMaxLength)
	}
	return SeedDetails{
		Seed:                 slices.Clone(seed),
		PhraseWordIndices:    slices.Clone(wordIndices),
		Name:                 name,
		PIN:                  pin,
		UnlockWithBiometrics: unlockWithBiometrics,
		IsBackedUp:           isBackedUp,
	}, nil
}

// Equal reports whether two details carry identical material and settings.
func (d SeedDetails) Equal(o SeedDetails) bool {
	return slices.Equal(d.Seed, o.Seed) &&
		slices.Equal(d.PhraseWordIndices, o.PhraseWordIndices) &&
		d.Name == o.Name &&
		d.PIN == o.PIN &&
		d.UnlockWithBiometrics == o.UnlockWithBiometrics &&
		d.IsBackedUp == o.IsBackedUp
}

// String omits secret material.
func (d SeedDetails) String() string {
	return fmt.Sprintf("SeedDetails{name=%q, words=%d, biometrics=%t, backedUp=%t}",
		d.Name, len(d.PhraseWordIndices), d.UnlockWithBiometrics, d.IsBackedUp)
}

// Seed is a stored seed with its authorizations and discovered accounts.
type Seed struct {
	ID             int64
	Details        SeedDetails
	Authorizations []Authorization
	Accounts       []Account
}

// DisplayName returns the user-assigned name or a generated one.
func (s Seed) DisplayName() string {
	if s.Details.Name == "" {
		return fmt.Sprintf("Seed %d", s.ID)
	}
	return s.Details.Name
}

// AuthorizationFor returns the authorization held by uid for purpose, if any.
func (s Seed) AuthorizationFor(uid int, purpose Purpose) (Authorization, bool) {
	for _, a := range s.Authorizations {
		if a.UID == uid && a.Purpose == purpose {
			return a, true
		}
	}
	return Authorization{}, false
}

// AuthorizationByToken returns the authorization carrying authToken, if any.
func (s Seed) AuthorizationByToken(authToken int64) (Authorization, bool) {
	for _, a := range s.Authorizations {
		if a.AuthToken == authToken {
			return a, true
		}
	}
	return Authorization{}, false
}

// KnownAccount returns the account for (purpose, derivation path URI), if known.
func (s Seed) KnownAccount(purpose Purpose, derivationPath string) (Account, bool) {
	for _, a := range s.Accounts {
		if a.Purpose == purpose && a.DerivationPath == derivationPath {
			return a, true
		}
	}
	return Account{}, false
}

// Authorization binds a calling uid to a seed for one purpose.
type Authorization struct {
	UID       int
	AuthToken int64
	Purpose   Purpose
}

// AuthorizationKey indexes seeds by (uid, authToken).
type AuthorizationKey struct {
	UID       int
	AuthToken int64
}

// Account is a discovered (derivation path, public key) pair for a seed.
type Account struct {
	ID             int64
	Purpose        Purpose
	DerivationPath string // canonical bip32 URI, e.g. bip32:/m/44'/501'/0'
	PublicKey      []byte
	Name           string
	IsUserWallet   bool
	IsValid        bool
}

// NewAccount returns an account not yet assigned an id.
func NewAccount(purpose Purpose, derivationPath string, publicKey []byte) Account {
	return Account{
		ID:             InvalidAccountID,
		Purpose:        purpose,
		DerivationPath: derivationPath,
		PublicKey:      slices.Clone(publicKey),
	}
}

// PublicKeyBase58 encodes the public key the way Solana addresses are printed.
func (a Account) PublicKeyBase58() string {
	return base58.Encode(a.PublicKey)
}

// DisplayName returns the user-assigned name or the base58 public key.
func (a Account) DisplayName() string {
	if a.Name == "" {
		return a.PublicKeyBase58()
	}
	return a.Name
}
