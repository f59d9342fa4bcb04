package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/and161185/seedvault/internal/errs"
	"github.com/and161185/seedvault/internal/model"
	"github.com/and161185/seedvault/internal/seeds"
)

func TestVault_AuthorizeSeed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	_, _, err := f.vault.AuthorizeSeed(ctx, 10, nil, solana, testPIN)
	require.ErrorIs(t, err, errs.ErrNoAvailableSeeds)

	id := f.importSeed(t, "main")
	_, _, err = f.vault.AuthorizeSeed(ctx, 10, nil, solana, "0000")
	require.ErrorIs(t, err, errs.ErrAuthenticationFailed)
	require.Equal(t, 1, f.lim.failureCalls)
	require.Empty(t, f.repo.Snapshot().Seeds[id].Authorizations)

	token, got, err := f.vault.AuthorizeSeed(ctx, 10, nil, solana, testPIN)
	require.NoError(t, err)
	require.Equal(t, id, got)
	require.Equal(t, seeds.FirstAuthToken, token)
	require.Equal(t, 1, f.lim.successCalls)

	seed := f.repo.Snapshot().Seeds[id]
	require.Len(t, seed.Accounts, 2*KnownAccountsPerSeed)

	// every seed is now authorized for uid 10
	_, _, err = f.vault.AuthorizeSeed(ctx, 10, nil, solana, testPIN)
	require.ErrorIs(t, err, errs.ErrNoAvailableSeeds)

	// explicit re-authorization returns the existing token
	again := f.authorize(t, 10, id)
	require.Equal(t, token, again)

	missing := id + 1
	_, _, err = f.vault.AuthorizeSeed(ctx, 10, &missing, solana, testPIN)
	require.ErrorIs(t, err, errs.ErrNotFound)
	_, _, err = f.vault.AuthorizeSeed(ctx, -1, &id, solana, testPIN)
	require.ErrorIs(t, err, errs.ErrValidation)
	_, _, err = f.vault.AuthorizeSeed(ctx, 10, &id, model.Purpose(3), testPIN)
	require.ErrorIs(t, err, errs.ErrUnsupportedPurpose)
}

func TestVault_AuthorizeSeed_RateLimited(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	id := f.importSeed(t, "")

	f.lim.allowOK = false
	_, _, err := f.vault.AuthorizeSeed(context.Background(), 10, &id, solana, testPIN)
	require.ErrorIs(t, err, errs.ErrRateLimited)

	f.lim.allowOK = true
	f.lim.failBlocked = true
	_, _, err = f.vault.AuthorizeSeed(context.Background(), 10, &id, solana, "9999")
	require.ErrorIs(t, err, errs.ErrRateLimited)
}

func TestVault_SignTransactions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	id := f.importSeed(t, "")
	token := f.authorize(t, 10, id)

	reqs := []model.SigningRequest{
		{Payload: []byte("tx-1"), DerivationPaths: []string{"bip32:/m/44'/501'/0'", "bip44:/1'/0'"}},
		{Payload: []byte("tx-2"), DerivationPaths: []string{"bip32:/m/44/501/2"}},
	}
	out, err := f.vault.SignTransactions(ctx, 10, token, testPIN, reqs)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, []string{"bip32:/m/44'/501'/0'", "bip32:/m/44'/501'/1'/0'"}, out[0].ResolvedDerivationPaths)
	require.Equal(t, []string{"bip32:/m/44'/501'/2'"}, out[1].ResolvedDerivationPaths)

	seed := f.repo.Snapshot().Seeds[id]
	for i, r := range out {
		for j, uri := range r.ResolvedDerivationPaths {
			acc, ok := seed.KnownAccount(solana, uri)
			require.True(t, ok, uri)
			valid, err := f.signer.Verify(solana, acc.PublicKey, reqs[i].Payload, r.Signatures[j])
			require.NoError(t, err)
			require.True(t, valid, uri)
		}
	}

	msgs, err := f.vault.SignMessages(ctx, 10, token, testPIN, reqs[:1])
	require.NoError(t, err)
	require.Equal(t, out[0].Signatures, msgs[0].Signatures)
}

func TestVault_Sign_Errors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	id := f.importSeed(t, "")
	token := f.authorize(t, 10, id)
	path := []string{"bip32:/m/44'/501'/0'"}

	tooMany := make([]model.SigningRequest, model.MaxSigningRequests+1)
	for i := range tooMany {
		tooMany[i] = model.SigningRequest{Payload: []byte{1}, DerivationPaths: path}
	}
	cases := map[string]struct {
		uid   int
		token int64
		pin   string
		reqs  []model.SigningRequest
		want  error
	}{
		"no requests":    {10, token, testPIN, nil, errs.ErrValidation},
		"too many":       {10, token, testPIN, tooMany, errs.ErrLimitExceeded},
		"empty payload":  {10, token, testPIN, []model.SigningRequest{{DerivationPaths: path}}, errs.ErrValidation},
		"no paths":       {10, token, testPIN, []model.SigningRequest{{Payload: []byte{1}}}, errs.ErrValidation},
		"too many paths": {10, token, testPIN, []model.SigningRequest{{Payload: []byte{1}, DerivationPaths: []string{"m/0'", "m/1'", "m/2'", "m/3'"}}}, errs.ErrLimitExceeded},
		"bad path":       {10, token, testPIN, []model.SigningRequest{{Payload: []byte{1}, DerivationPaths: []string{"bip32:/m/x"}}}, errs.ErrValidation},
		"unknown token":  {10, token + 1, testPIN, []model.SigningRequest{{Payload: []byte{1}, DerivationPaths: path}}, errs.ErrUnauthorized},
		"other uid":      {11, token, testPIN, []model.SigningRequest{{Payload: []byte{1}, DerivationPaths: path}}, errs.ErrUnauthorized},
		"wrong pin":      {10, token, "4321", []model.SigningRequest{{Payload: []byte{1}, DerivationPaths: path}}, errs.ErrAuthenticationFailed},
	}
	for name, tc := range cases {
		_, err := f.vault.SignTransactions(ctx, tc.uid, tc.token, tc.pin, tc.reqs)
		require.ErrorIs(t, err, tc.want, name)
	}
}

func TestVault_RequestPublicKeys(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	id := f.importSeed(t, "")
	token := f.authorize(t, 10, id)
	before := len(f.repo.Snapshot().Seeds[id].Accounts)

	// known accounts are served without a PIN
	out, err := f.vault.RequestPublicKeys(ctx, 10, token, "", []string{"bip44:/0'"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "bip32:/m/44'/501'/0'", out[0].ResolvedDerivationPath)
	require.Len(t, out[0].PublicKey, 32)
	require.NotEmpty(t, out[0].PublicKeyBase58)

	_, err = f.vault.RequestPublicKeys(ctx, 10, token, "", []string{"bip32:/m/44'/501'/77'"})
	require.ErrorIs(t, err, errs.ErrAuthenticationFailed)

	out, err = f.vault.RequestPublicKeys(ctx, 10, token, testPIN, []string{"bip32:/m/44'/501'/77'", "bip32:/m/44'/501'/0'"})
	require.NoError(t, err)
	require.Equal(t, "bip32:/m/44'/501'/77'", out[0].ResolvedDerivationPath)
	require.Len(t, out[0].PublicKey, 32)
	require.False(t, bytes.Equal(out[0].PublicKey, out[1].PublicKey))

	seed := f.repo.Snapshot().Seeds[id]
	require.Len(t, seed.Accounts, before+1)
	acc, ok := seed.KnownAccount(solana, "bip32:/m/44'/501'/77'")
	require.True(t, ok)
	require.Equal(t, out[0].PublicKey, acc.PublicKey)

	tooMany := make([]string, model.MaxRequestedPublicKeys+1)
	for i := range tooMany {
		tooMany[i] = "m/0'"
	}
	_, err = f.vault.RequestPublicKeys(ctx, 10, token, testPIN, tooMany)
	require.ErrorIs(t, err, errs.ErrLimitExceeded)
	_, err = f.vault.RequestPublicKeys(ctx, 10, token, testPIN, nil)
	require.ErrorIs(t, err, errs.ErrValidation)
}

func TestVault_Queries(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	unauth, err := f.vault.UnauthorizedSeeds(ctx, 10, nil)
	require.NoError(t, err)
	require.Equal(t, []model.UnauthorizedSeeds{{Purpose: solana, HasUnauthorizedSeeds: false}}, unauth)

	a := f.importSeed(t, "a")
	b := f.importSeed(t, "b")
	unauth, err = f.vault.UnauthorizedSeeds(ctx, 10, nil)
	require.NoError(t, err)
	require.True(t, unauth[0].HasUnauthorizedSeeds)

	ta := f.authorize(t, 10, a)
	tb := f.authorize(t, 10, b)
	f.authorize(t, 11, a)

	p := solana
	unauth, err = f.vault.UnauthorizedSeeds(ctx, 10, &p)
	require.NoError(t, err)
	require.False(t, unauth[0].HasUnauthorizedSeeds)

	seedsOf, err := f.vault.AuthorizedSeeds(ctx, 10, nil)
	require.NoError(t, err)
	require.Equal(t, []model.AuthorizedSeed{
		{AuthToken: ta, Purpose: solana, SeedName: "a"},
		{AuthToken: tb, Purpose: solana, SeedName: "b"},
	}, seedsOf)
	only, err := f.vault.AuthorizedSeeds(ctx, 10, &tb)
	require.NoError(t, err)
	require.Len(t, only, 1)

	accs, err := f.vault.Accounts(ctx, 10, ta, nil)
	require.NoError(t, err)
	require.Len(t, accs, 2*KnownAccountsPerSeed)
	require.Equal(t, seeds.FirstAccountID, accs[0].ID)
	require.Equal(t, "bip32:/m/44'/501'/0'", accs[0].DerivationPath)
	require.Equal(t, "bip32:/m/44'/501'/0'/0'", accs[1].DerivationPath)

	_, err = f.vault.Accounts(ctx, 12, ta, nil)
	require.ErrorIs(t, err, errs.ErrUnauthorized)

	name, wallet := "savings", true
	require.NoError(t, f.vault.UpdateAccount(ctx, 10, ta, accs[0].ID, model.AccountUpdate{Name: &name, IsUserWallet: &wallet}))
	one, err := f.vault.Accounts(ctx, 10, ta, &accs[0].ID)
	require.NoError(t, err)
	require.Len(t, one, 1)
	require.Equal(t, "savings", one[0].Name)
	require.True(t, one[0].IsUserWallet)
	require.False(t, one[0].IsValid)

	require.ErrorIs(t, f.vault.UpdateAccount(ctx, 10, ta, 1, model.AccountUpdate{Name: &name}), errs.ErrNotFound)

	require.NoError(t, f.vault.Deauthorize(ctx, 10, ta))
	require.ErrorIs(t, f.vault.Deauthorize(ctx, 10, ta), errs.ErrUnauthorized)
	seedsOf, err = f.vault.AuthorizedSeeds(ctx, 10, nil)
	require.NoError(t, err)
	require.Len(t, seedsOf, 1)
}

func TestVault_LimitsAndResolve(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	lim, err := f.vault.ImplementationLimits(solana)
	require.NoError(t, err)
	require.Equal(t, model.ImplementationLimits{
		Purpose: solana, MaxSigningRequests: 3, MaxRequestedSignatures: 3, MaxRequestedPublicKeys: 10,
	}, lim)
	_, err = f.vault.ImplementationLimits(model.Purpose(9))
	require.ErrorIs(t, err, errs.ErrUnsupportedPurpose)

	uri, err := f.vault.ResolveDerivationPath(solana, "bip44:/3'/0/1")
	require.NoError(t, err)
	require.Equal(t, "bip32:/m/44'/501'/3'/0'/1'", uri)
	_, err = f.vault.ResolveDerivationPath(solana, "bip44:/3")
	require.ErrorIs(t, err, errs.ErrValidation)
}
