package seeds

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/and161185/seedvault/internal/bip"
	"github.com/and161185/seedvault/internal/crypto"
	"github.com/and161185/seedvault/internal/errs"
	"github.com/and161185/seedvault/internal/model"
	"github.com/and161185/seedvault/internal/repository"
)

func seedNotFound(id int64) error {
	return fmt.Errorf("%w: seed %d", errs.ErrNotFound, id)
}

func revalidate(d model.SeedDetails) (model.SeedDetails, error) {
	return model.NewSeedDetails(d.Seed, d.PhraseWordIndices, d.Name, d.PIN, d.UnlockWithBiometrics, d.IsBackedUp)
}

func checkUID(uid int) error {
	if uid <= model.InvalidUID {
		return fmt.Errorf("%w: UID %d is invalid", errs.ErrValidation, uid)
	}
	return nil
}

// CreateSeed stores a new seed and returns its id.
func (r *Repository) CreateSeed(ctx context.Context, details model.SeedDetails) (int64, error) {
	details, err := revalidate(details)
	if err != nil {
		return 0, err
	}
	var id int64
	err = r.mutate(ctx, "CreateSeed", func(doc *repository.Document) ([]model.ChangeNotification, error) {
		if len(doc.Seeds) >= model.MaxSeeds {
			return nil, fmt.Errorf("%w: vault holds %d seeds", errs.ErrCapacityExceeded, model.MaxSeeds)
		}
		id = doc.NextSeedID
		if doc.SeedIndex(id) != -1 {
			return nil, fmt.Errorf("%w: seed %d already exists", errs.ErrInvariant, id)
		}
		doc.NextSeedID++
		doc.Seeds = append(doc.Seeds, repository.SeedEntry{
			SeedID:         id,
			Seed:           repository.RecordFromDetails(details),
			Authorizations: []repository.AuthorizationRecord{},
			KnownAccounts:  []repository.AccountRecord{},
		})
		return []model.ChangeNotification{model.NewChange(model.CategorySeed, model.ChangeCreate, id)}, nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// UpdateSeed replaces the details of seed id. Identical details are a no-op.
func (r *Repository) UpdateSeed(ctx context.Context, id int64, details model.SeedDetails) error {
	details, err := revalidate(details)
	if err != nil {
		return err
	}
	return r.mutate(ctx, "UpdateSeed", func(doc *repository.Document) ([]model.ChangeNotification, error) {
		return replaceSeed(doc, id, func(model.SeedDetails) (model.SeedDetails, error) { return details, nil })
	})
}

// PatchSeed applies the set fields of upd to the current details of seed id.
// The merge happens under the mutation lock, so concurrent patches of
// different fields all survive.
func (r *Repository) PatchSeed(ctx context.Context, id int64, upd model.SeedUpdate) error {
	return r.mutate(ctx, "PatchSeed", func(doc *repository.Document) ([]model.ChangeNotification, error) {
		return replaceSeed(doc, id, func(cur model.SeedDetails) (model.SeedDetails, error) {
			return revalidate(upd.Apply(cur))
		})
	})
}

func replaceSeed(doc *repository.Document, id int64, next func(model.SeedDetails) (model.SeedDetails, error)) ([]model.ChangeNotification, error) {
	i := doc.SeedIndex(id)
	if i == -1 {
		return nil, seedNotFound(id)
	}
	cur := doc.Seeds[i].Model().Details
	details, err := next(cur)
	if err != nil {
		return nil, err
	}
	if cur.Equal(details) {
		return nil, nil
	}
	doc.Seeds[i].Seed = repository.RecordFromDetails(details)
	return []model.ChangeNotification{model.NewChange(model.CategorySeed, model.ChangeUpdate, id)}, nil
}

// DeleteSeed removes seed id with its authorizations and accounts.
func (r *Repository) DeleteSeed(ctx context.Context, id int64) error {
	return r.mutate(ctx, "DeleteSeed", func(doc *repository.Document) ([]model.ChangeNotification, error) {
		i := doc.SeedIndex(id)
		if i == -1 {
			return nil, seedNotFound(id)
		}
		doc.Seeds = slices.Delete(doc.Seeds, i, i+1)
		return []model.ChangeNotification{model.NewChange(model.CategorySeed, model.ChangeDelete, id)}, nil
	})
}

// DeleteAllSeeds empties the vault. Counters are not reset. The bulk delete is
// written and notified even when the vault is already empty.
func (r *Repository) DeleteAllSeeds(ctx context.Context) error {
	return r.mutate(ctx, "DeleteAllSeeds", func(doc *repository.Document) ([]model.ChangeNotification, error) {
		doc.Seeds = []repository.SeedEntry{}
		return []model.ChangeNotification{model.NewBulkChange(model.CategorySeed, model.ChangeDelete)}, nil
	})
}

// AuthorizeSeedForUID grants uid access to seed id and returns the auth token.
// A uid already authorized for the seed gets its existing token back.
func (r *Repository) AuthorizeSeedForUID(ctx context.Context, id int64, uid int, purpose model.Purpose) (int64, error) {
	if err := checkUID(uid); err != nil {
		return 0, err
	}
	if _, err := model.ParsePurpose(int(purpose)); err != nil {
		return 0, err
	}
	var token int64
	err := r.mutate(ctx, "AuthorizeSeedForUID", func(doc *repository.Document) ([]model.ChangeNotification, error) {
		i := doc.SeedIndex(id)
		if i == -1 {
			return nil, seedNotFound(id)
		}
		var created bool
		token, created = authorize(doc, i, uid, purpose)
		if !created {
			return nil, nil
		}
		return []model.ChangeNotification{model.NewChange(model.CategoryAuthorization, model.ChangeCreate, token)}, nil
	})
	if err != nil {
		return 0, err
	}
	return token, nil
}

// AuthorizeAllSeedsForUID authorizes uid for every seed in one write and
// returns the tokens in seed order.
func (r *Repository) AuthorizeAllSeedsForUID(ctx context.Context, uid int, purpose model.Purpose) ([]int64, error) {
	if err := checkUID(uid); err != nil {
		return nil, err
	}
	if _, err := model.ParsePurpose(int(purpose)); err != nil {
		return nil, err
	}
	var tokens []int64
	err := r.mutate(ctx, "AuthorizeAllSeedsForUID", func(doc *repository.Document) ([]model.ChangeNotification, error) {
		tokens = tokens[:0]
		var changes []model.ChangeNotification
		order := make([]int, len(doc.Seeds))
		for i := range order {
			order[i] = i
		}
		slices.SortFunc(order, func(a, b int) int {
			return cmp.Compare(doc.Seeds[a].SeedID, doc.Seeds[b].SeedID)
		})
		for _, i := range order {
			token, created := authorize(doc, i, uid, purpose)
			tokens = append(tokens, token)
			if created {
				changes = append(changes, model.NewChange(model.CategoryAuthorization, model.ChangeCreate, token))
			}
		}
		return changes, nil
	})
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

func authorize(doc *repository.Document, i int, uid int, purpose model.Purpose) (int64, bool) {
	e := &doc.Seeds[i]
	for _, a := range e.Authorizations {
		if a.UID == uid {
			return a.AuthToken, false
		}
	}
	token := doc.NextAuthToken
	doc.NextAuthToken++
	e.Authorizations = append(e.Authorizations, repository.AuthorizationRecord{UID: uid, AuthToken: token, Purpose: int(purpose)})
	return token, true
}

// DeauthorizeSeed revokes authToken on seed id.
func (r *Repository) DeauthorizeSeed(ctx context.Context, id int64, authToken int64) error {
	return r.mutate(ctx, "DeauthorizeSeed", func(doc *repository.Document) ([]model.ChangeNotification, error) {
		i := doc.SeedIndex(id)
		if i == -1 {
			return nil, seedNotFound(id)
		}
		auths := doc.Seeds[i].Authorizations
		j := slices.IndexFunc(auths, func(a repository.AuthorizationRecord) bool { return a.AuthToken == authToken })
		if j == -1 {
			return nil, fmt.Errorf("%w: auth token %d for seed %d", errs.ErrNotFound, authToken, id)
		}
		doc.Seeds[i].Authorizations = slices.Delete(auths, j, j+1)
		return []model.ChangeNotification{model.NewChange(model.CategoryAuthorization, model.ChangeDelete, authToken)}, nil
	})
}

// AddKnownAccountForSeed records an account discovered on seed id and returns
// its id. The account must not have an id yet. An account already known by
// (purpose, derivation path) keeps its id and nothing is written.
func (r *Repository) AddKnownAccountForSeed(ctx context.Context, id int64, account model.Account) (int64, error) {
	if account.ID != model.InvalidAccountID {
		return 0, fmt.Errorf("%w: new account must not carry id %d", errs.ErrInvariant, account.ID)
	}
	if _, err := model.ParsePurpose(int(account.Purpose)); err != nil {
		return 0, err
	}
	path, err := bip.ParseBip32(account.DerivationPath)
	if err != nil {
		return 0, err
	}
	account.DerivationPath = path.URI()
	if len(account.PublicKey) != crypto.Ed25519PublicKeySize {
		return 0, fmt.Errorf("%w: public key must be %d bytes, got %d", errs.ErrValidation, crypto.Ed25519PublicKeySize, len(account.PublicKey))
	}
	var accountID int64
	err = r.mutate(ctx, "AddKnownAccountForSeed", func(doc *repository.Document) ([]model.ChangeNotification, error) {
		i := doc.SeedIndex(id)
		if i == -1 {
			return nil, seedNotFound(id)
		}
		e := &doc.Seeds[i]
		for _, a := range e.KnownAccounts {
			if a.Purpose == int(account.Purpose) && a.Bip32URI == account.DerivationPath {
				accountID = a.AccountID
				return nil, nil
			}
		}
		accountID = doc.NextAccountID
		doc.NextAccountID++
		rec := repository.AccountFromModel(account)
		rec.AccountID = accountID
		e.KnownAccounts = append(e.KnownAccounts, rec)
		return []model.ChangeNotification{model.NewChange(model.CategoryAccount, model.ChangeCreate, accountID)}, nil
	})
	if err != nil {
		return 0, err
	}
	return accountID, nil
}

// UpdateKnownAccountForSeed replaces the user-editable fields of an account.
func (r *Repository) UpdateKnownAccountForSeed(ctx context.Context, id int64, account model.Account) error {
	if account.ID == model.InvalidAccountID {
		return fmt.Errorf("%w: account id must be valid", errs.ErrInvariant)
	}
	return r.mutate(ctx, "UpdateKnownAccountForSeed", func(doc *repository.Document) ([]model.ChangeNotification, error) {
		return editAccount(doc, id, account.ID, func(model.Account) model.Account { return account })
	})
}

// PatchKnownAccountForSeed applies the set fields of upd to account accountID
// of seed id under the mutation lock.
func (r *Repository) PatchKnownAccountForSeed(ctx context.Context, id int64, accountID int64, upd model.AccountUpdate) error {
	if accountID == model.InvalidAccountID {
		return fmt.Errorf("%w: account id must be valid", errs.ErrInvariant)
	}
	return r.mutate(ctx, "PatchKnownAccountForSeed", func(doc *repository.Document) ([]model.ChangeNotification, error) {
		return editAccount(doc, id, accountID, upd.Apply)
	})
}

// editAccount rewrites the name and flags of an account; other fields of the
// edited value are ignored.
func editAccount(doc *repository.Document, id int64, accountID int64, edit func(model.Account) model.Account) ([]model.ChangeNotification, error) {
	i := doc.SeedIndex(id)
	if i == -1 {
		return nil, seedNotFound(id)
	}
	accs := doc.Seeds[i].KnownAccounts
	j := slices.IndexFunc(accs, func(a repository.AccountRecord) bool { return a.AccountID == accountID })
	if j == -1 {
		return nil, fmt.Errorf("%w: account %d in seed %d", errs.ErrNotFound, accountID, id)
	}
	a := &accs[j]
	next := edit(model.Account{ID: a.AccountID, Name: a.Name, IsUserWallet: a.IsUserWallet, IsValid: a.IsValid})
	if a.Name == next.Name && a.IsUserWallet == next.IsUserWallet && a.IsValid == next.IsValid {
		return nil, nil
	}
	a.Name, a.IsUserWallet, a.IsValid = next.Name, next.IsUserWallet, next.IsValid
	return []model.ChangeNotification{model.NewChange(model.CategoryAccount, model.ChangeUpdate, accountID)}, nil
}

// RemoveAllKnownAccountsForSeed forgets every account of seed id.
func (r *Repository) RemoveAllKnownAccountsForSeed(ctx context.Context, id int64) error {
	return r.mutate(ctx, "RemoveAllKnownAccountsForSeed", func(doc *repository.Document) ([]model.ChangeNotification, error) {
		i := doc.SeedIndex(id)
		if i == -1 {
			return nil, seedNotFound(id)
		}
		if len(doc.Seeds[i].KnownAccounts) == 0 {
			return nil, nil
		}
		doc.Seeds[i].KnownAccounts = []repository.AccountRecord{}
		return []model.ChangeNotification{model.NewBulkChange(model.CategoryAccount, model.ChangeDelete)}, nil
	})
}
