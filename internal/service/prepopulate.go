package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/and161185/seedvault/internal/bip"
	"github.com/and161185/seedvault/internal/errs"
	"github.com/and161185/seedvault/internal/model"
)

// KnownAccountsPerSeed is how many account indices are discovered per purpose.
const KnownAccountsPerSeed = 50

// AccountPrepopulator discovers the standard Solana accounts of a seed and
// records them as known accounts.
type AccountPrepopulator struct {
	repo    SeedRepository
	deriver Deriver
	log     *zap.Logger
	workers int
}

// NewAccountPrepopulator returns a prepopulator deriving on up to workers
// goroutines; workers <= 0 selects GOMAXPROCS.
func NewAccountPrepopulator(repo SeedRepository, deriver Deriver, log *zap.Logger, workers int) *AccountPrepopulator {
	if log == nil {
		log = zap.NewNop()
	}
	return &AccountPrepopulator{repo: repo, deriver: deriver, log: log, workers: defaultWorkers(workers)}
}

// templates returns m/44'/501'/i' and m/44'/501'/i'/0' for every index, in path order.
func templates(root bip.Bip32Path) ([]bip.Bip32Path, error) {
	out := make([]bip.Bip32Path, 0, 2*KnownAccountsPerSeed)
	for i := range uint32(KnownAccountsPerSeed) {
		account, err := root.Append(bip.Hardened(i))
		if err != nil {
			return nil, err
		}
		change, err := account.Append(bip.Hardened(0))
		if err != nil {
			return nil, err
		}
		out = append(out, account, change)
	}
	return out, nil
}

// PopulateKnownAccounts derives every template path not yet known for
// (seed, purpose) and adds the results to the seed. Paths without a key are
// skipped. Safe to call repeatedly.
func (p *AccountPrepopulator) PopulateKnownAccounts(ctx context.Context, seed model.Seed, purpose model.Purpose) error {
	scheme, err := p.deriver.For(purpose)
	if err != nil {
		return err
	}
	root, err := bip.NormalizeBip32(bip.SolanaRoot(), purpose)
	if err != nil {
		return err
	}
	paths, err := templates(root)
	if err != nil {
		return err
	}

	var pending []bip.Bip32Path
	for _, path := range paths {
		if _, ok := seed.KnownAccount(purpose, path.URI()); ok {
			continue
		}
		pending = append(pending, path)
	}
	if len(pending) == 0 {
		p.log.Debug("known accounts already populated", zap.Int64("seed", seed.ID), zap.Stringer("purpose", purpose))
		return nil
	}

	partial, err := scheme.PartialDerivation(seed.Details.Seed, root)
	if err != nil {
		return fmt.Errorf("derive %s: %w", root.URI(), err)
	}

	keys := make([][]byte, len(pending))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, path := range pending {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pub, err := scheme.PublicKey(seed.Details.Seed, path, partial)
			if errors.Is(err, errs.ErrKeyDoesNotExist) {
				p.log.Warn("key does not exist; skipping", zap.String("path", path.URI()), zap.Stringer("purpose", purpose))
				return nil
			}
			if err != nil {
				return err
			}
			keys[i] = pub
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	added := 0
	for i, path := range pending {
		if keys[i] == nil {
			continue
		}
		if _, err := p.repo.AddKnownAccountForSeed(ctx, seed.ID, model.NewAccount(purpose, path.URI(), keys[i])); err != nil {
			return fmt.Errorf("add known account %s: %w", path.URI(), err)
		}
		added++
	}
	p.log.Debug("known accounts populated", zap.Int64("seed", seed.ID), zap.Int("added", added))
	return nil
}
