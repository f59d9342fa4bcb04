package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/seedvault/internal/crypto"
	"github.com/and161185/seedvault/internal/derivation"
	"github.com/and161185/seedvault/internal/limiter"
	"github.com/and161185/seedvault/internal/model"
	"github.com/and161185/seedvault/internal/repository/memory"
	"github.com/and161185/seedvault/internal/seeds"
	"github.com/and161185/seedvault/internal/signing"
)

const (
	testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	testPIN      = "1234"
	solana       = model.PurposeSignSolanaTransactions
)

type fakeLimiter struct {
	allowOK  bool
	allowErr error

	failBlocked bool

	allowCalls   int
	failureCalls int
	successCalls int
}

var _ limiter.Limiter = (*fakeLimiter)(nil)

func (l *fakeLimiter) Allow(context.Context, int, int64) (bool, time.Duration, error) {
	l.allowCalls++
	return l.allowOK, time.Minute, l.allowErr
}
func (l *fakeLimiter) Success(context.Context, int, int64) error {
	l.successCalls++
	return nil
}
func (l *fakeLimiter) Failure(context.Context, int, int64) (bool, time.Duration, error) {
	l.failureCalls++
	return l.failBlocked, time.Minute, nil
}

type fixture struct {
	repo   *seeds.Repository
	vault  *VaultServiceImpl
	admin  *AdminServiceImpl
	lim    *fakeLimiter
	signer *signing.ServiceImpl
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := zaptest.NewLogger(t)
	repo := seeds.New(memory.New(), log, time.Second)
	t.Cleanup(func() { _ = repo.Close() })

	ed := crypto.NewEd25519()
	lim := &fakeLimiter{allowOK: true}
	signer := signing.NewService(ed)
	return &fixture{
		repo:   repo,
		vault:  NewVaultService(repo, derivation.NewEngine(ed), signer, lim, log, 4),
		admin:  NewAdminService(repo, log),
		lim:    lim,
		signer: signer,
	}
}

// importSeed stores the test phrase and returns its id.
func (f *fixture) importSeed(t *testing.T, name string) int64 {
	t.Helper()
	id, err := f.admin.ImportSeed(context.Background(), testMnemonic, name, name, testPIN, false)
	require.NoError(t, err)
	return id
}

// authorize authorizes uid for seed id and returns the auth token.
func (f *fixture) authorize(t *testing.T, uid int, id int64) int64 {
	t.Helper()
	token, got, err := f.vault.AuthorizeSeed(context.Background(), uid, &id, solana, testPIN)
	require.NoError(t, err)
	require.Equal(t, id, got)
	return token
}
