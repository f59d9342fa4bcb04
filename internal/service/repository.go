// Package service contains the vault's application services: seed authorization,
// signing, public key requests, account discovery and seed administration.
package service

import (
	"context"
	"runtime"

	"github.com/and161185/seedvault/internal/derivation"
	"github.com/and161185/seedvault/internal/model"
	"github.com/and161185/seedvault/internal/seeds"
)

// SeedRepository is the subset of the seed repository the services use.
type SeedRepository interface {
	DelayUntilDataValid(ctx context.Context) error
	Snapshot() *seeds.Snapshot
	Subscribe() (<-chan model.ChangeNotification, func())

	CreateSeed(ctx context.Context, details model.SeedDetails) (int64, error)
	UpdateSeed(ctx context.Context, id int64, details model.SeedDetails) error
	PatchSeed(ctx context.Context, id int64, upd model.SeedUpdate) error
	DeleteSeed(ctx context.Context, id int64) error
	DeleteAllSeeds(ctx context.Context) error
	AuthorizeSeedForUID(ctx context.Context, id int64, uid int, purpose model.Purpose) (int64, error)
	DeauthorizeSeed(ctx context.Context, id int64, authToken int64) error
	AddKnownAccountForSeed(ctx context.Context, id int64, account model.Account) (int64, error)
	UpdateKnownAccountForSeed(ctx context.Context, id int64, account model.Account) error
	PatchKnownAccountForSeed(ctx context.Context, id int64, accountID int64, upd model.AccountUpdate) error
}

var _ SeedRepository = (*seeds.Repository)(nil)

// Deriver selects the derivation scheme for a purpose.
type Deriver interface {
	For(purpose model.Purpose) (derivation.Scheme, error)
}

var _ Deriver = (*derivation.Engine)(nil)

func defaultWorkers(n int) int {
	if n <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return n
}
