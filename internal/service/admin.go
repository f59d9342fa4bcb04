package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/and161185/seedvault/internal/model"
	"github.com/and161185/seedvault/internal/phrase"
)

// AdminService is the operator surface for managing seeds.
type AdminService interface {
	// NewSeedPhrase generates a fresh mnemonic of 12 or 24 words.
	NewSeedPhrase(words int) (string, error)
	// CreateSeed stores a seed for a freshly generated phrase and returns the phrase for backup.
	CreateSeed(ctx context.Context, words int, name, pin string, unlockWithBiometrics bool) (id int64, mnemonic string, err error)
	// ImportSeed stores a seed restored from an existing phrase.
	ImportSeed(ctx context.Context, mnemonic, passphrase, name, pin string, unlockWithBiometrics bool) (int64, error)
	UpdateSeed(ctx context.Context, id int64, upd model.SeedUpdate) error
	DeleteSeed(ctx context.Context, id int64) error
	DeleteAllSeeds(ctx context.Context) error
	ListSeeds(ctx context.Context) ([]model.SeedInfo, error)
	// Changes streams change notifications until cancel is called.
	Changes() (changes <-chan model.ChangeNotification, cancel func())
}

type AdminServiceImpl struct {
	repo SeedRepository
	log  *zap.Logger
}

var _ AdminService = (*AdminServiceImpl)(nil)

// NewAdminService constructs AdminService.
func NewAdminService(repo SeedRepository, log *zap.Logger) *AdminServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	return &AdminServiceImpl{repo: repo, log: log}
}

// NewSeedPhrase implements AdminService.
func (s *AdminServiceImpl) NewSeedPhrase(words int) (string, error) {
	return phrase.New(words)
}

// CreateSeed implements AdminService. The new seed is not backed up yet.
func (s *AdminServiceImpl) CreateSeed(ctx context.Context, words int, name, pin string, unlockWithBiometrics bool) (int64, string, error) {
	mnemonic, err := phrase.New(words)
	if err != nil {
		return 0, "", err
	}
	d, err := model.NewSeedDetailsFromPhrase(mnemonic, "", name, pin, unlockWithBiometrics, false)
	if err != nil {
		return 0, "", err
	}
	id, err := s.repo.CreateSeed(ctx, d)
	if err != nil {
		return 0, "", err
	}
	s.log.Info("seed created", zap.Int64("seed", id), zap.Int("words", words))
	return id, mnemonic, nil
}

// ImportSeed implements AdminService. An imported phrase already exists
// outside the vault, so the seed counts as backed up.
func (s *AdminServiceImpl) ImportSeed(ctx context.Context, mnemonic, passphrase, name, pin string, unlockWithBiometrics bool) (int64, error) {
	d, err := model.NewSeedDetailsFromPhrase(mnemonic, passphrase, name, pin, unlockWithBiometrics, true)
	if err != nil {
		return 0, err
	}
	id, err := s.repo.CreateSeed(ctx, d)
	if err != nil {
		return 0, err
	}
	s.log.Info("seed imported", zap.Int64("seed", id))
	return id, nil
}

// UpdateSeed implements AdminService.
func (s *AdminServiceImpl) UpdateSeed(ctx context.Context, id int64, upd model.SeedUpdate) error {
	return s.repo.PatchSeed(ctx, id, upd)
}

// DeleteSeed implements AdminService.
func (s *AdminServiceImpl) DeleteSeed(ctx context.Context, id int64) error {
	return s.repo.DeleteSeed(ctx, id)
}

// DeleteAllSeeds implements AdminService.
func (s *AdminServiceImpl) DeleteAllSeeds(ctx context.Context) error {
	return s.repo.DeleteAllSeeds(ctx)
}

// ListSeeds implements AdminService.
func (s *AdminServiceImpl) ListSeeds(ctx context.Context) ([]model.SeedInfo, error) {
	if err := s.repo.DelayUntilDataValid(ctx); err != nil {
		return nil, err
	}
	ordered := s.repo.Snapshot().Ordered()
	out := make([]model.SeedInfo, 0, len(ordered))
	for _, seed := range ordered {
		out = append(out, seed.Info())
	}
	return out, nil
}

// Changes implements AdminService.
func (s *AdminServiceImpl) Changes() (<-chan model.ChangeNotification, func()) {
	return s.repo.Subscribe()
}
