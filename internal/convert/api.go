// Package convert maps domain types to and from the seedvault/v1 wire messages.
package convert

import (
	"fmt"

	apiv1 "github.com/and161185/seedvault/api/seedvault/v1"
	"github.com/and161185/seedvault/internal/model"
)

// --- requests (client -> server) ---

// FromAPISigningRequests converts wire signing requests to domain requests.
func FromAPISigningRequests(in []apiv1.SigningRequest) []model.SigningRequest {
	if in == nil {
		return nil
	}
	out := make([]model.SigningRequest, 0, len(in))
	for _, r := range in {
		out = append(out, model.SigningRequest{Payload: r.Payload, DerivationPaths: r.DerivationPaths})
	}
	return out
}

// FromAPIPurpose validates a wire purpose constant.
func FromAPIPurpose(v int) (model.Purpose, error) {
	return model.ParsePurpose(v)
}

// FromAPIOptionalPurpose validates an optional purpose; nil stays nil.
func FromAPIOptionalPurpose(v *int) (*model.Purpose, error) {
	if v == nil {
		return nil, nil
	}
	p, err := model.ParsePurpose(*v)
	if err != nil {
		return nil, fmt.Errorf("purpose: %w", err)
	}
	return &p, nil
}

// FromAPIAccountUpdate extracts the editable account fields.
func FromAPIAccountUpdate(in *apiv1.UpdateAccountRequest) model.AccountUpdate {
	return model.AccountUpdate{Name: in.Name, IsUserWallet: in.IsUserWallet, IsValid: in.IsValid}
}

// FromAPISeedUpdate extracts the editable seed settings.
func FromAPISeedUpdate(in *apiv1.UpdateSeedRequest) model.SeedUpdate {
	return model.SeedUpdate{
		Name:                 in.Name,
		PIN:                  in.PIN,
		UnlockWithBiometrics: in.UnlockWithBiometrics,
		IsBackedUp:           in.IsBackedUp,
	}
}

// --- responses (server -> client) ---

// ToAPISignResponse converts signing results, keeping request order.
func ToAPISignResponse(in []model.SigningResponse) *apiv1.SignResponse {
	out := &apiv1.SignResponse{Responses: make([]apiv1.SigningResponse, 0, len(in))}
	for _, r := range in {
		out.Responses = append(out.Responses, apiv1.SigningResponse{
			Signatures:              r.Signatures,
			ResolvedDerivationPaths: r.ResolvedDerivationPaths,
		})
	}
	return out
}

// ToAPIPublicKeys converts public key results; missing keys stay empty.
func ToAPIPublicKeys(in []model.PublicKeyResponse) *apiv1.PublicKeysResponse {
	out := &apiv1.PublicKeysResponse{PublicKeys: make([]apiv1.PublicKey, 0, len(in))}
	for _, k := range in {
		out.PublicKeys = append(out.PublicKeys, apiv1.PublicKey{
			PublicKey:              k.PublicKey,
			PublicKeyBase58:        k.PublicKeyBase58,
			ResolvedDerivationPath: k.ResolvedDerivationPath,
		})
	}
	return out
}

// ToAPIAuthorizedSeeds converts the caller's authorizations.
func ToAPIAuthorizedSeeds(in []model.AuthorizedSeed) *apiv1.AuthorizedSeedsResponse {
	out := &apiv1.AuthorizedSeedsResponse{Seeds: make([]apiv1.AuthorizedSeed, 0, len(in))}
	for _, s := range in {
		out.Seeds = append(out.Seeds, apiv1.AuthorizedSeed{
			AuthToken: s.AuthToken,
			Purpose:   int(s.Purpose),
			SeedName:  s.SeedName,
		})
	}
	return out
}

// ToAPIUnauthorizedSeeds converts per-purpose availability.
func ToAPIUnauthorizedSeeds(in []model.UnauthorizedSeeds) *apiv1.UnauthorizedSeedsResponse {
	out := &apiv1.UnauthorizedSeedsResponse{Purposes: make([]apiv1.UnauthorizedSeeds, 0, len(in))}
	for _, u := range in {
		out.Purposes = append(out.Purposes, apiv1.UnauthorizedSeeds{
			Purpose:              int(u.Purpose),
			HasUnauthorizedSeeds: u.HasUnauthorizedSeeds,
		})
	}
	return out
}

// ToAPIAccount converts a known account.
func ToAPIAccount(a model.Account) apiv1.Account {
	return apiv1.Account{
		ID:              a.ID,
		DerivationPath:  a.DerivationPath,
		PublicKey:       a.PublicKey,
		PublicKeyBase58: a.PublicKeyBase58(),
		Name:            a.Name,
		IsUserWallet:    a.IsUserWallet,
		IsValid:         a.IsValid,
	}
}

// ToAPIAccounts converts a list of known accounts.
func ToAPIAccounts(in []model.Account) *apiv1.AccountsResponse {
	out := &apiv1.AccountsResponse{Accounts: make([]apiv1.Account, 0, len(in))}
	for _, a := range in {
		out.Accounts = append(out.Accounts, ToAPIAccount(a))
	}
	return out
}

// ToAPILimits converts implementation limits.
func ToAPILimits(l model.ImplementationLimits) *apiv1.ImplementationLimitsResponse {
	return &apiv1.ImplementationLimitsResponse{
		Purpose:                int(l.Purpose),
		MaxSigningRequests:     l.MaxSigningRequests,
		MaxRequestedSignatures: l.MaxRequestedSignatures,
		MaxRequestedPublicKeys: l.MaxRequestedPublicKeys,
	}
}

// ToAPISeedInfos converts the operator seed listing.
func ToAPISeedInfos(in []model.SeedInfo) *apiv1.ListSeedsResponse {
	out := &apiv1.ListSeedsResponse{Seeds: make([]apiv1.SeedInfo, 0, len(in))}
	for _, s := range in {
		auths := make([]apiv1.Authorization, 0, len(s.Authorizations))
		for _, a := range s.Authorizations {
			auths = append(auths, apiv1.Authorization{UID: a.UID, AuthToken: a.AuthToken, Purpose: int(a.Purpose)})
		}
		out.Seeds = append(out.Seeds, apiv1.SeedInfo{
			ID:                   s.ID,
			Name:                 s.Name,
			PhraseWords:          s.PhraseWords,
			UnlockWithBiometrics: s.UnlockWithBiometrics,
			IsBackedUp:           s.IsBackedUp,
			Authorizations:       auths,
			Accounts:             s.Accounts,
		})
	}
	return out
}

// ToAPIChange converts a change notification.
func ToAPIChange(c model.ChangeNotification) *apiv1.ChangeNotification {
	out := &apiv1.ChangeNotification{Category: c.Category.String(), Type: c.Type.String()}
	if c.ID != nil {
		id := *c.ID
		out.ID = &id
	}
	return out
}
