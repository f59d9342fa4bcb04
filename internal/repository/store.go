// Package repository defines the persisted vault document and the durable
// stores that hold it.
package repository

import (
	"context"
	"slices"

	"github.com/and161185/seedvault/internal/model"
)

// DurableStore persists the whole vault document atomically.
type DurableStore interface {
	// Load returns the current document and its version. A store that was never
	// written returns an empty document and version 0.
	Load(ctx context.Context) (Document, uint64, error)
	// CompareAndSwap replaces the document if the stored version equals expected
	// and returns the new version, or errs.ErrVersionConflict.
	CompareAndSwap(ctx context.Context, expected uint64, doc Document) (uint64, error)
}

// Document is the persisted form of the vault.
type Document struct {
	NextSeedID    int64       `json:"next_seed_id"`
	NextAuthToken int64       `json:"next_auth_token"`
	NextAccountID int64       `json:"next_account_id"`
	Seeds         []SeedEntry `json:"seeds"`
}

// SeedEntry is one stored seed.
type SeedEntry struct {
	SeedID         int64                 `json:"seed_id"`
	Seed           SeedRecord            `json:"seed"`
	Authorizations []AuthorizationRecord `json:"authorizations"`
	KnownAccounts  []AccountRecord       `json:"known_accounts"`
}

// SeedRecord is the persisted SeedDetails.
type SeedRecord struct {
	Seed                 []byte `json:"seed"`
	PhraseWordIndices    []int  `json:"phrase_word_indices"`
	Name                 string `json:"name,omitempty"`
	PIN                  string `json:"pin"`
	UnlockWithBiometrics bool   `json:"unlock_with_biometrics"`
	IsBackedUp           bool   `json:"is_backed_up"`
}

// AuthorizationRecord is a persisted authorization.
type AuthorizationRecord struct {
	UID       int   `json:"uid"`
	AuthToken int64 `json:"auth_token"`
	Purpose   int   `json:"purpose"`
}

// AccountRecord is a persisted known account.
type AccountRecord struct {
	AccountID    int64  `json:"account_id"`
	Purpose      int    `json:"purpose"`
	Bip32URI     string `json:"bip32_uri"`
	PublicKey    []byte `json:"public_key"`
	Name         string `json:"name,omitempty"`
	IsUserWallet bool   `json:"is_user_wallet"`
	IsValid      bool   `json:"is_valid"`
}

// Clone returns a deep copy; transforms must never alias a published document.
func (d Document) Clone() Document {
	out := d
	out.Seeds = make([]SeedEntry, len(d.Seeds))
	for i, s := range d.Seeds {
		out.Seeds[i] = s.clone()
	}
	return out
}

func (s SeedEntry) clone() SeedEntry {
	out := s
	out.Seed.Seed = slices.Clone(s.Seed.Seed)
	out.Seed.PhraseWordIndices = slices.Clone(s.Seed.PhraseWordIndices)
	out.Authorizations = slices.Clone(s.Authorizations)
	out.KnownAccounts = make([]AccountRecord, len(s.KnownAccounts))
	for i, a := range s.KnownAccounts {
		a.PublicKey = slices.Clone(a.PublicKey)
		out.KnownAccounts[i] = a
	}
	return out
}

// SeedIndex returns the position of seedID in d.Seeds or -1.
func (d Document) SeedIndex(seedID int64) int {
	return slices.IndexFunc(d.Seeds, func(s SeedEntry) bool { return s.SeedID == seedID })
}

// EntryFromModel converts a domain seed to its persisted form.
func EntryFromModel(s model.Seed) SeedEntry {
	e := SeedEntry{
		SeedID:         s.ID,
		Seed:           RecordFromDetails(s.Details),
		Authorizations: make([]AuthorizationRecord, 0, len(s.Authorizations)),
		KnownAccounts:  make([]AccountRecord, 0, len(s.Accounts)),
	}
	for _, a := range s.Authorizations {
		e.Authorizations = append(e.Authorizations, AuthorizationRecord{UID: a.UID, AuthToken: a.AuthToken, Purpose: int(a.Purpose)})
	}
	for _, a := range s.Accounts {
		e.KnownAccounts = append(e.KnownAccounts, AccountFromModel(a))
	}
	return e
}

// RecordFromDetails converts SeedDetails to a SeedRecord.
func RecordFromDetails(d model.SeedDetails) SeedRecord {
	return SeedRecord{
		Seed:                 slices.Clone(d.Seed),
		PhraseWordIndices:    slices.Clone(d.PhraseWordIndices),
		Name:                 d.Name,
		PIN:                  d.PIN,
		UnlockWithBiometrics: d.UnlockWithBiometrics,
		IsBackedUp:           d.IsBackedUp,
	}
}

// AccountFromModel converts an Account to an AccountRecord.
func AccountFromModel(a model.Account) AccountRecord {
	return AccountRecord{
		AccountID:    a.ID,
		Purpose:      int(a.Purpose),
		Bip32URI:     a.DerivationPath,
		PublicKey:    slices.Clone(a.PublicKey),
		Name:         a.Name,
		IsUserWallet: a.IsUserWallet,
		IsValid:      a.IsValid,
	}
}

// Model converts a persisted entry to the domain seed. Stored data is trusted
// and not revalidated.
func (s SeedEntry) Model() model.Seed {
	out := model.Seed{
		ID: s.SeedID,
		Details: model.SeedDetails{
			Seed:                 slices.Clone(s.Seed.Seed),
			PhraseWordIndices:    slices.Clone(s.Seed.PhraseWordIndices),
			Name:                 s.Seed.Name,
			PIN:                  s.Seed.PIN,
			UnlockWithBiometrics: s.Seed.UnlockWithBiometrics,
			IsBackedUp:           s.Seed.IsBackedUp,
		},
		Authorizations: make([]model.Authorization, 0, len(s.Authorizations)),
		Accounts:       make([]model.Account, 0, len(s.KnownAccounts)),
	}
	for _, a := range s.Authorizations {
		out.Authorizations = append(out.Authorizations, model.Authorization{
			UID: a.UID, AuthToken: a.AuthToken, Purpose: model.Purpose(a.Purpose),
		})
	}
	for _, a := range s.KnownAccounts {
		out.Accounts = append(out.Accounts, model.Account{
			ID:             a.AccountID,
			Purpose:        model.Purpose(a.Purpose),
			DerivationPath: a.Bip32URI,
			PublicKey:      slices.Clone(a.PublicKey),
			Name:           a.Name,
			IsUserWallet:   a.IsUserWallet,
			IsValid:        a.IsValid,
		})
	}
	return out
}
