package seeds

import (
	"fmt"

	"github.com/and161185/seedvault/internal/errs"
	"github.com/and161185/seedvault/internal/model"
	"github.com/and161185/seedvault/internal/repository"
)

// checkInvariants guards every write: ids are unique and below their counters,
// counters never move backwards, at most one authorization exists per (seed, uid),
// known accounts are unique per (purpose, path), and an authorization is never
// rewritten in place.
func checkInvariants(before, after repository.Document) error {
	if after.NextSeedID < before.NextSeedID || after.NextAuthToken < before.NextAuthToken || after.NextAccountID < before.NextAccountID {
		return fmt.Errorf("%w: counter moved backwards", errs.ErrInvariant)
	}
	if len(after.Seeds) > model.MaxSeeds {
		return fmt.Errorf("%w: %d seeds exceed capacity", errs.ErrInvariant, len(after.Seeds))
	}

	prior := make(map[int64]repository.AuthorizationRecord)
	for _, s := range before.Seeds {
		for _, a := range s.Authorizations {
			prior[a.AuthToken] = a
		}
	}

	seedIDs := make(map[int64]struct{}, len(after.Seeds))
	tokens := make(map[int64]struct{})
	accountIDs := make(map[int64]struct{})
	for _, s := range after.Seeds {
		if _, dup := seedIDs[s.SeedID]; dup || s.SeedID >= after.NextSeedID {
			return fmt.Errorf("%w: seed id %d", errs.ErrInvariant, s.SeedID)
		}
		seedIDs[s.SeedID] = struct{}{}

		uids := make(map[int]struct{}, len(s.Authorizations))
		for _, a := range s.Authorizations {
			if _, dup := uids[a.UID]; dup {
				return fmt.Errorf("%w: uid %d authorized twice for seed %d", errs.ErrInvariant, a.UID, s.SeedID)
			}
			uids[a.UID] = struct{}{}
			if _, dup := tokens[a.AuthToken]; dup || a.AuthToken >= after.NextAuthToken {
				return fmt.Errorf("%w: auth token %d", errs.ErrInvariant, a.AuthToken)
			}
			tokens[a.AuthToken] = struct{}{}
			if p, ok := prior[a.AuthToken]; ok && p != a {
				return fmt.Errorf("%w: authorization %d must not be updated", errs.ErrInvariant, a.AuthToken)
			}
		}

		type pathKey struct {
			purpose int
			uri     string
		}
		paths := make(map[pathKey]struct{}, len(s.KnownAccounts))
		for _, a := range s.KnownAccounts {
			k := pathKey{a.Purpose, a.Bip32URI}
			if _, dup := paths[k]; dup {
				return fmt.Errorf("%w: account path %s known twice for seed %d", errs.ErrInvariant, a.Bip32URI, s.SeedID)
			}
			paths[k] = struct{}{}
			if _, dup := accountIDs[a.AccountID]; dup || a.AccountID >= after.NextAccountID {
				return fmt.Errorf("%w: account id %d", errs.ErrInvariant, a.AccountID)
			}
			accountIDs[a.AccountID] = struct{}{}
		}
	}
	return nil
}
