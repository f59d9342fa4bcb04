package seeds

import (
	"slices"

	"github.com/and161185/seedvault/internal/model"
	"github.com/and161185/seedvault/internal/repository"
)

// Snapshot is an immutable view of the vault at one store version.
// Callers must not modify the maps or the seeds they contain.
type Snapshot struct {
	Version        uint64
	Seeds          map[int64]model.Seed
	Authorizations map[model.AuthorizationKey]model.Seed
	IsFull         bool
}

func emptySnapshot() *Snapshot {
	return &Snapshot{
		Seeds:          map[int64]model.Seed{},
		Authorizations: map[model.AuthorizationKey]model.Seed{},
	}
}

func buildSnapshot(doc repository.Document, version uint64) *Snapshot {
	s := &Snapshot{
		Version:        version,
		Seeds:          make(map[int64]model.Seed, len(doc.Seeds)),
		Authorizations: make(map[model.AuthorizationKey]model.Seed),
	}
	for _, e := range doc.Seeds {
		seed := e.Model()
		s.Seeds[seed.ID] = seed
		for _, a := range seed.Authorizations {
			s.Authorizations[model.AuthorizationKey{UID: a.UID, AuthToken: a.AuthToken}] = seed
		}
	}
	s.IsFull = len(s.Seeds) >= model.MaxSeeds
	return s
}

// Ordered returns the seeds sorted by id.
func (s *Snapshot) Ordered() []model.Seed {
	out := make([]model.Seed, 0, len(s.Seeds))
	for _, seed := range s.Seeds {
		out = append(out, seed)
	}
	slices.SortFunc(out, func(a, b model.Seed) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out
}

// SeedForAuthorization returns the seed that uid reaches through authToken.
func (s *Snapshot) SeedForAuthorization(uid int, authToken int64) (model.Seed, bool) {
	seed, ok := s.Authorizations[model.AuthorizationKey{UID: uid, AuthToken: authToken}]
	return seed, ok
}
