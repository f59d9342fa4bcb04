package model

import "slices"

// Request limits published to callers. They equal the minimums every vault must support.
const (
	MaxSigningRequests     = 3
	MaxRequestedSignatures = 3
	MaxRequestedPublicKeys = 10
)

// ImplementationLimits are the per-purpose request limits.
type ImplementationLimits struct {
	Purpose                Purpose
	MaxSigningRequests     int
	MaxRequestedSignatures int
	MaxRequestedPublicKeys int
}

// SigningRequest is one payload to sign with the key at each derivation path.
type SigningRequest struct {
	Payload         []byte
	DerivationPaths []string
}

// SigningResponse holds one signature per requested path, in request order.
type SigningResponse struct {
	Signatures              [][]byte
	ResolvedDerivationPaths []string
}

// PublicKeyResponse is the key at a resolved path. PublicKey is nil when no key exists there.
type PublicKeyResponse struct {
	PublicKey              []byte
	PublicKeyBase58        string
	ResolvedDerivationPath string
}

// AuthorizedSeed is one authorization held by the calling uid.
type AuthorizedSeed struct {
	AuthToken int64
	Purpose   Purpose
	SeedName  string
}

// UnauthorizedSeeds reports whether a purpose still has seeds the uid may authorize.
type UnauthorizedSeeds struct {
	Purpose              Purpose
	HasUnauthorizedSeeds bool
}

// AccountUpdate lists the user-editable account fields; nil leaves a field unchanged.
type AccountUpdate struct {
	Name         *string
	IsUserWallet *bool
	IsValid      *bool
}

// SeedUpdate lists the editable seed settings; nil leaves a field unchanged.
type SeedUpdate struct {
	Name                 *string
	PIN                  *string
	UnlockWithBiometrics *bool
	IsBackedUp           *bool
}

// Apply returns a with the set fields of u.
func (u AccountUpdate) Apply(a Account) Account {
	if u.Name != nil {
		a.Name = *u.Name
	}
	if u.IsUserWallet != nil {
		a.IsUserWallet = *u.IsUserWallet
	}
	if u.IsValid != nil {
		a.IsValid = *u.IsValid
	}
	return a
}

// Apply returns d with the set fields of u. The result is not revalidated.
func (u SeedUpdate) Apply(d SeedDetails) SeedDetails {
	if u.Name != nil {
		d.Name = *u.Name
	}
	if u.PIN != nil {
		d.PIN = *u.PIN
	}
	if u.UnlockWithBiometrics != nil {
		d.UnlockWithBiometrics = *u.UnlockWithBiometrics
	}
	if u.IsBackedUp != nil {
		d.IsBackedUp = *u.IsBackedUp
	}
	return d
}

// SeedInfo is the operator view of a seed. It carries no secret material.
type SeedInfo struct {
	ID                   int64
	Name                 string
	PhraseWords          int
	UnlockWithBiometrics bool
	IsBackedUp           bool
	Authorizations       []Authorization
	Accounts             int
}

// Info summarizes s for operators.
func (s Seed) Info() SeedInfo {
	return SeedInfo{
		ID:                   s.ID,
		Name:                 s.DisplayName(),
		PhraseWords:          len(s.Details.PhraseWordIndices),
		UnlockWithBiometrics: s.Details.UnlockWithBiometrics,
		IsBackedUp:           s.Details.IsBackedUp,
		Authorizations:       slices.Clone(s.Authorizations),
		Accounts:             len(s.Accounts),
	}
}
