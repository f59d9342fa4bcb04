package seeds

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/seedvault/internal/errs"
	"github.com/and161185/seedvault/internal/model"
	"github.com/and161185/seedvault/internal/repository"
	"github.com/and161185/seedvault/internal/repository/memory"
)

const solana = model.PurposeSignSolanaTransactions

func details(t *testing.T, b byte, name string) model.SeedDetails {
	t.Helper()
	d, err := model.NewSeedDetails(bytes.Repeat([]byte{b}, model.SeedLength), make([]int, 12), name, "1234", false, false)
	require.NoError(t, err)
	return d
}

func account(path string) model.Account {
	return model.NewAccount(solana, path, bytes.Repeat([]byte{7}, 32))
}

func newRepo(t *testing.T, store repository.DurableStore) *Repository {
	t.Helper()
	if store == nil {
		store = memory.New()
	}
	r := New(store, zaptest.NewLogger(t), time.Second)
	t.Cleanup(func() { _ = r.Close() })
	require.NoError(t, r.DelayUntilDataValid(context.Background()))
	return r
}

func next(t *testing.T, ch <-chan model.ChangeNotification) model.ChangeNotification {
	t.Helper()
	select {
	case c, ok := <-ch:
		require.True(t, ok, "change stream closed")
		return c
	case <-time.After(time.Second):
		t.Fatalf("no change notification")
	}
	return model.ChangeNotification{}
}

func requireQuiet(t *testing.T, ch <-chan model.ChangeNotification) {
	t.Helper()
	select {
	case c := <-ch:
		t.Fatalf("unexpected change %s", c)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRepository_EmptyOnStart(t *testing.T) {
	t.Parallel()
	r := newRepo(t, nil)
	s := r.Snapshot()
	require.Empty(t, s.Seeds)
	require.Empty(t, s.Authorizations)
	require.False(t, s.IsFull)
}

func TestRepository_CreateSeed_AssignsIDsAndNotifies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := newRepo(t, nil)
	changes, stop := r.Subscribe()
	defer stop()

	id, err := r.CreateSeed(ctx, details(t, 1, "first"))
	require.NoError(t, err)
	require.Equal(t, FirstSeedID, id)
	require.Equal(t, "SEED/CREATE/1000", next(t, changes).String())

	// the write is visible as soon as the call returns
	seed, ok := r.Snapshot().Seeds[id]
	require.True(t, ok)
	require.Equal(t, "first", seed.DisplayName())

	id2, err := r.CreateSeed(ctx, details(t, 2, ""))
	require.NoError(t, err)
	require.Equal(t, FirstSeedID+1, id2)
	require.Equal(t, "Seed 1001", r.Snapshot().Seeds[id2].DisplayName())
}

func TestRepository_CreateSeed_Validation(t *testing.T) {
	t.Parallel()
	r := newRepo(t, nil)
	_, err := r.CreateSeed(context.Background(), model.SeedDetails{Seed: []byte{1}})
	require.ErrorIs(t, err, errs.ErrValidation)
	require.Empty(t, r.Snapshot().Seeds)
}

func TestRepository_Capacity(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := newRepo(t, nil)
	for i := range model.MaxSeeds {
		_, err := r.CreateSeed(ctx, details(t, byte(i+1), ""))
		require.NoError(t, err)
	}
	require.True(t, r.Snapshot().IsFull)

	_, err := r.CreateSeed(ctx, details(t, 9, ""))
	require.ErrorIs(t, err, errs.ErrCapacityExceeded)

	// ids are never reused after a delete
	require.NoError(t, r.DeleteSeed(ctx, FirstSeedID))
	id, err := r.CreateSeed(ctx, details(t, 9, ""))
	require.NoError(t, err)
	require.Equal(t, FirstSeedID+int64(model.MaxSeeds), id)
}

func TestRepository_UpdateSeed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := newRepo(t, nil)
	id, err := r.CreateSeed(ctx, details(t, 1, "a"))
	require.NoError(t, err)

	changes, stop := r.Subscribe()
	defer stop()

	require.NoError(t, r.UpdateSeed(ctx, id, details(t, 1, "b")))
	require.Equal(t, "SEED/UPDATE/1000", next(t, changes).String())
	require.Equal(t, "b", r.Snapshot().Seeds[id].Details.Name)

	ver := r.Snapshot().Version
	require.NoError(t, r.UpdateSeed(ctx, id, details(t, 1, "b")))
	requireQuiet(t, changes)
	require.Equal(t, ver, r.Snapshot().Version)

	require.ErrorIs(t, r.UpdateSeed(ctx, 42, details(t, 1, "b")), errs.ErrNotFound)
}

func TestRepository_PatchSeed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := newRepo(t, nil)
	id, err := r.CreateSeed(ctx, details(t, 1, "orig"))
	require.NoError(t, err)

	changes, stop := r.Subscribe()
	defer stop()

	name, backedUp := "renamed", true
	require.NoError(t, r.PatchSeed(ctx, id, model.SeedUpdate{Name: &name, IsBackedUp: &backedUp}))
	require.Equal(t, "SEED/UPDATE/1000", next(t, changes).String())
	got := r.Snapshot().Seeds[id].Details
	require.Equal(t, "renamed", got.Name)
	require.True(t, got.IsBackedUp)
	require.Equal(t, "1234", got.PIN)

	require.NoError(t, r.PatchSeed(ctx, id, model.SeedUpdate{Name: &name}))
	requireQuiet(t, changes)

	short := "12"
	require.ErrorIs(t, r.PatchSeed(ctx, id, model.SeedUpdate{PIN: &short}), errs.ErrValidation)
	require.ErrorIs(t, r.PatchSeed(ctx, id+1, model.SeedUpdate{Name: &name}), errs.ErrNotFound)
	requireQuiet(t, changes)
}

// slowStore holds every write long enough for concurrent callers to overlap.
type slowStore struct {
	*memory.Store
	delay time.Duration
}

func (s *slowStore) CompareAndSwap(ctx context.Context, expected uint64, doc repository.Document) (uint64, error) {
	time.Sleep(s.delay)
	return s.Store.CompareAndSwap(ctx, expected, doc)
}

func TestRepository_ConcurrentPatchesKeepEveryField(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := newRepo(t, &slowStore{Store: memory.New(), delay: 50 * time.Millisecond})
	id, err := r.CreateSeed(ctx, details(t, 1, "orig"))
	require.NoError(t, err)
	accID, err := r.AddKnownAccountForSeed(ctx, id, account("bip32:/m/44'/501'/0'"))
	require.NoError(t, err)

	name, pin, wallet := "renamed", "98765", true
	updates := []func() error{
		func() error { return r.PatchSeed(ctx, id, model.SeedUpdate{Name: &name}) },
		func() error { return r.PatchSeed(ctx, id, model.SeedUpdate{PIN: &pin}) },
		func() error { return r.PatchKnownAccountForSeed(ctx, id, accID, model.AccountUpdate{Name: &name}) },
		func() error {
			return r.PatchKnownAccountForSeed(ctx, id, accID, model.AccountUpdate{IsUserWallet: &wallet})
		},
	}
	failures := make([]error, len(updates))
	var wg sync.WaitGroup
	for i, upd := range updates {
		wg.Add(1)
		go func() {
			defer wg.Done()
			failures[i] = upd()
		}()
	}
	wg.Wait()
	require.NoError(t, errors.Join(failures...))

	seed := r.Snapshot().Seeds[id]
	require.Equal(t, "renamed", seed.Details.Name)
	require.Equal(t, "98765", seed.Details.PIN)
	acc, ok := seed.KnownAccount(solana, "bip32:/m/44'/501'/0'")
	require.True(t, ok)
	require.Equal(t, "renamed", acc.Name)
	require.True(t, acc.IsUserWallet)
}

func TestRepository_DeleteSeed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := newRepo(t, nil)
	id, err := r.CreateSeed(ctx, details(t, 1, ""))
	require.NoError(t, err)
	token, err := r.AuthorizeSeedForUID(ctx, id, 10, solana)
	require.NoError(t, err)

	changes, stop := r.Subscribe()
	defer stop()

	require.NoError(t, r.DeleteSeed(ctx, id))
	require.Equal(t, "SEED/DELETE/1000", next(t, changes).String())
	requireQuiet(t, changes)

	s := r.Snapshot()
	require.Empty(t, s.Seeds)
	_, ok := s.SeedForAuthorization(10, token)
	require.False(t, ok)

	require.ErrorIs(t, r.DeleteSeed(ctx, id), errs.ErrNotFound)
}

func TestRepository_DeleteAllSeeds(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := newRepo(t, nil)
	changes, stop := r.Subscribe()
	defer stop()

	require.NoError(t, r.DeleteAllSeeds(ctx))
	require.Equal(t, "SEED/DELETE", next(t, changes).String())

	_, err := r.CreateSeed(ctx, details(t, 1, ""))
	require.NoError(t, err)
	next(t, changes)
	_, err = r.CreateSeed(ctx, details(t, 2, ""))
	require.NoError(t, err)
	next(t, changes)

	require.NoError(t, r.DeleteAllSeeds(ctx))
	c := next(t, changes)
	require.Equal(t, model.CategorySeed, c.Category)
	require.Equal(t, model.ChangeDelete, c.Type)
	require.Nil(t, c.ID)
	require.Empty(t, r.Snapshot().Seeds)

	id, err := r.CreateSeed(ctx, details(t, 3, ""))
	require.NoError(t, err)
	require.Equal(t, FirstSeedID+2, id)
}

func TestRepository_Authorize(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := newRepo(t, nil)
	id, err := r.CreateSeed(ctx, details(t, 1, ""))
	require.NoError(t, err)

	changes, stop := r.Subscribe()
	defer stop()

	token, err := r.AuthorizeSeedForUID(ctx, id, 10, solana)
	require.NoError(t, err)
	require.Equal(t, FirstAuthToken, token)
	require.Equal(t, "AUTHORIZATION/CREATE/4000", next(t, changes).String())

	seed, ok := r.Snapshot().SeedForAuthorization(10, token)
	require.True(t, ok)
	require.Equal(t, id, seed.ID)
	_, ok = r.Snapshot().SeedForAuthorization(11, token)
	require.False(t, ok)

	// re-authorizing returns the same token and writes nothing
	again, err := r.AuthorizeSeedForUID(ctx, id, 10, solana)
	require.NoError(t, err)
	require.Equal(t, token, again)
	requireQuiet(t, changes)

	other, err := r.AuthorizeSeedForUID(ctx, id, 11, solana)
	require.NoError(t, err)
	require.Equal(t, FirstAuthToken+1, other)
	next(t, changes)

	_, err = r.AuthorizeSeedForUID(ctx, id, -1, solana)
	require.ErrorIs(t, err, errs.ErrValidation)
	_, err = r.AuthorizeSeedForUID(ctx, id, 10, model.Purpose(7))
	require.ErrorIs(t, err, errs.ErrUnsupportedPurpose)
	_, err = r.AuthorizeSeedForUID(ctx, 99, 10, solana)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestRepository_AuthorizeAllSeeds(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := newRepo(t, nil)
	for i := range 3 {
		_, err := r.CreateSeed(ctx, details(t, byte(i+1), ""))
		require.NoError(t, err)
	}
	existing, err := r.AuthorizeSeedForUID(ctx, FirstSeedID+1, 10, solana)
	require.NoError(t, err)

	tokens, err := r.AuthorizeAllSeedsForUID(ctx, 10, solana)
	require.NoError(t, err)
	require.Equal(t, []int64{existing + 1, existing, existing + 2}, tokens)

	s := r.Snapshot()
	for i, id := range []int64{FirstSeedID, FirstSeedID + 1, FirstSeedID + 2} {
		seed, ok := s.SeedForAuthorization(10, tokens[i])
		require.True(t, ok)
		require.Equal(t, id, seed.ID)
	}
}

func TestRepository_AuthorizeAllSeeds_SeedIDOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := memory.New()
	entry := func(id int64, b byte) repository.SeedEntry {
		return repository.SeedEntry{SeedID: id, Seed: repository.RecordFromDetails(details(t, b, ""))}
	}
	_, err := store.CompareAndSwap(ctx, 0, repository.Document{
		Seeds: []repository.SeedEntry{entry(1002, 3), entry(1000, 1), entry(1001, 2)},
	})
	require.NoError(t, err)

	r := newRepo(t, store)
	tokens, err := r.AuthorizeAllSeedsForUID(ctx, 10, solana)
	require.NoError(t, err)
	require.Equal(t, []int64{FirstAuthToken, FirstAuthToken + 1, FirstAuthToken + 2}, tokens)

	s := r.Snapshot()
	for i, id := range []int64{1000, 1001, 1002} {
		seed, ok := s.SeedForAuthorization(10, tokens[i])
		require.True(t, ok)
		require.Equal(t, id, seed.ID)
	}
}

func TestRepository_Deauthorize(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := newRepo(t, nil)
	id, err := r.CreateSeed(ctx, details(t, 1, ""))
	require.NoError(t, err)
	token, err := r.AuthorizeSeedForUID(ctx, id, 10, solana)
	require.NoError(t, err)

	require.ErrorIs(t, r.DeauthorizeSeed(ctx, id, token+1), errs.ErrNotFound)
	require.ErrorIs(t, r.DeauthorizeSeed(ctx, id+1, token), errs.ErrNotFound)

	require.NoError(t, r.DeauthorizeSeed(ctx, id, token))
	_, ok := r.Snapshot().SeedForAuthorization(10, token)
	require.False(t, ok)

	// a fresh authorization never reuses the revoked token
	again, err := r.AuthorizeSeedForUID(ctx, id, 10, solana)
	require.NoError(t, err)
	require.Greater(t, again, token)
}

func TestRepository_KnownAccounts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := newRepo(t, nil)
	id, err := r.CreateSeed(ctx, details(t, 1, ""))
	require.NoError(t, err)

	changes, stop := r.Subscribe()
	defer stop()

	accID, err := r.AddKnownAccountForSeed(ctx, id, account("bip32:/m/44'/501'/0'"))
	require.NoError(t, err)
	require.Equal(t, FirstAccountID, accID)
	require.Equal(t, "ACCOUNT/CREATE/7000", next(t, changes).String())

	// same (purpose, path) resolves to the known account
	dup, err := r.AddKnownAccountForSeed(ctx, id, account("m/44'/501'/0'"))
	require.NoError(t, err)
	require.Equal(t, accID, dup)
	requireQuiet(t, changes)

	acc, ok := r.Snapshot().Seeds[id].KnownAccount(solana, "bip32:/m/44'/501'/0'")
	require.True(t, ok)
	acc.Name, acc.IsUserWallet, acc.IsValid = "main", true, true
	require.NoError(t, r.UpdateKnownAccountForSeed(ctx, id, acc))
	require.Equal(t, "ACCOUNT/UPDATE/7000", next(t, changes).String())
	require.NoError(t, r.UpdateKnownAccountForSeed(ctx, id, acc))
	requireQuiet(t, changes)

	got, _ := r.Snapshot().Seeds[id].KnownAccount(solana, "bip32:/m/44'/501'/0'")
	require.Equal(t, "main", got.DisplayName())
	require.True(t, got.IsUserWallet)

	// only user-editable fields change
	acc.PublicKey = bytes.Repeat([]byte{9}, 32)
	acc.Name = "renamed"
	require.NoError(t, r.UpdateKnownAccountForSeed(ctx, id, acc))
	next(t, changes)
	got, _ = r.Snapshot().Seeds[id].KnownAccount(solana, "bip32:/m/44'/501'/0'")
	require.Equal(t, bytes.Repeat([]byte{7}, 32), got.PublicKey)

	require.NoError(t, r.RemoveAllKnownAccountsForSeed(ctx, id))
	c := next(t, changes)
	require.Equal(t, "ACCOUNT/DELETE", c.String())
	require.Empty(t, r.Snapshot().Seeds[id].Accounts)
	require.NoError(t, r.RemoveAllKnownAccountsForSeed(ctx, id))
	requireQuiet(t, changes)
}

func TestRepository_KnownAccounts_Errors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := newRepo(t, nil)
	id, err := r.CreateSeed(ctx, details(t, 1, ""))
	require.NoError(t, err)

	withID := account("bip32:/m/44'/501'/0'")
	withID.ID = 5
	_, err = r.AddKnownAccountForSeed(ctx, id, withID)
	require.ErrorIs(t, err, errs.ErrInvariant)

	_, err = r.AddKnownAccountForSeed(ctx, id, account("bip32:/m/x"))
	require.ErrorIs(t, err, errs.ErrValidation)

	short := account("bip32:/m/0'")
	short.PublicKey = []byte{1}
	_, err = r.AddKnownAccountForSeed(ctx, id, short)
	require.ErrorIs(t, err, errs.ErrValidation)

	_, err = r.AddKnownAccountForSeed(ctx, id+1, account("bip32:/m/0'"))
	require.ErrorIs(t, err, errs.ErrNotFound)

	require.ErrorIs(t, r.UpdateKnownAccountForSeed(ctx, id, account("bip32:/m/0'")), errs.ErrInvariant)
	missing := account("bip32:/m/0'")
	missing.ID = 7123
	require.ErrorIs(t, r.UpdateKnownAccountForSeed(ctx, id, missing), errs.ErrNotFound)
	require.ErrorIs(t, r.RemoveAllKnownAccountsForSeed(ctx, id+1), errs.ErrNotFound)
}

func TestRepository_ConcurrentAuthorizeDistinctUIDs(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := newRepo(t, nil)
	id, err := r.CreateSeed(ctx, details(t, 1, ""))
	require.NoError(t, err)

	const n = 20
	tokens := make([]int64, n)
	failures := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tokens[i], failures[i] = r.AuthorizeSeedForUID(ctx, id, 100+i, solana)
		}()
	}
	wg.Wait()
	require.NoError(t, errors.Join(failures...))

	seen := make(map[int64]bool, n)
	for _, tok := range tokens {
		require.False(t, seen[tok], "duplicate token %d", tok)
		seen[tok] = true
		require.GreaterOrEqual(t, tok, FirstAuthToken)
		require.Less(t, tok, FirstAuthToken+n)
	}
	require.Len(t, r.Snapshot().Seeds[id].Authorizations, n)
}

func TestRepository_ConcurrentAuthorizeSameUIDConverges(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := newRepo(t, nil)
	id, err := r.CreateSeed(ctx, details(t, 1, ""))
	require.NoError(t, err)

	changes, stop := r.Subscribe()
	defer stop()

	const n = 16
	tokens := make([]int64, n)
	failures := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tokens[i], failures[i] = r.AuthorizeSeedForUID(ctx, id, 42, solana)
		}()
	}
	wg.Wait()
	require.NoError(t, errors.Join(failures...))

	for _, tok := range tokens {
		require.Equal(t, FirstAuthToken, tok)
	}
	require.Equal(t, "AUTHORIZATION/CREATE/4000", next(t, changes).String())
	requireQuiet(t, changes)
	require.Len(t, r.Snapshot().Seeds[id].Authorizations, 1)
}

func TestRepository_PreCancelledCallerStillCommits(t *testing.T) {
	t.Parallel()
	r := newRepo(t, nil)
	id, err := r.CreateSeed(context.Background(), details(t, 1, ""))
	require.NoError(t, err)

	changes, stop := r.Subscribe()
	defer stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for i := range 20 {
		_, err := r.AuthorizeSeedForUID(ctx, id, 100+i, solana)
		if err != nil {
			require.ErrorIs(t, err, context.Canceled)
		}
		c := next(t, changes)
		require.Equal(t, model.CategoryAuthorization, c.Category)
		require.Equal(t, model.ChangeCreate, c.Type)
	}
	require.Len(t, r.Snapshot().Seeds[id].Authorizations, 20)
}

func TestRepository_CallerCancelStillCommits(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	r := newRepository(memory.New(), zaptest.NewLogger(t), 5*time.Second, func(v uint64) {
		if v > 0 {
			<-release
		}
	})
	t.Cleanup(func() { _ = r.Close() })
	require.NoError(t, r.DelayUntilDataValid(context.Background()))

	snaps, stop := r.ObserveSnapshots()
	defer stop()
	<-snaps

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := r.CreateSeed(ctx, details(t, 1, ""))
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	select {
	case s := <-snaps:
		require.Contains(t, s.Seeds, FirstSeedID)
	case <-time.After(time.Second):
		t.Fatalf("mutation was abandoned after caller cancel")
	}
}

func TestRepository_PropagationTimeout(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	store := memory.New()
	r := newRepository(store, zaptest.NewLogger(t), 30*time.Millisecond, func(v uint64) {
		if v > 0 {
			<-release
		}
	})
	t.Cleanup(func() {
		close(release)
		_ = r.Close()
	})
	require.NoError(t, r.DelayUntilDataValid(context.Background()))

	changes, stop := r.Subscribe()
	defer stop()

	_, err := r.CreateSeed(context.Background(), details(t, 1, ""))
	require.ErrorIs(t, err, errs.ErrTimeout)

	// durable and notified despite the stale read model
	doc, _, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, doc.Seeds, 1)
	require.Equal(t, "SEED/CREATE/1000", next(t, changes).String())
}

type conflictingStore struct {
	*memory.Store
	once   sync.Once
	inject repository.Document
}

func (s *conflictingStore) CompareAndSwap(ctx context.Context, expected uint64, doc repository.Document) (uint64, error) {
	s.once.Do(func() {
		_, _ = s.Store.CompareAndSwap(ctx, expected, s.inject)
	})
	return s.Store.CompareAndSwap(ctx, expected, doc)
}

func TestRepository_ReloadsOnVersionConflict(t *testing.T) {
	t.Parallel()
	d := details(t, 5, "external")
	store := &conflictingStore{
		Store: memory.New(),
		inject: repository.Document{
			Seeds: []repository.SeedEntry{{SeedID: FirstSeedID + 3, Seed: repository.RecordFromDetails(d)}},
		},
	}
	r := newRepo(t, store)

	id, err := r.CreateSeed(context.Background(), details(t, 1, ""))
	require.NoError(t, err)
	require.Equal(t, FirstSeedID+4, id)

	s := r.Snapshot()
	require.Len(t, s.Seeds, 2)
	require.Equal(t, "external", s.Seeds[FirstSeedID+3].Details.Name)
}

type failingStore struct{ *memory.Store }

func (failingStore) CompareAndSwap(context.Context, uint64, repository.Document) (uint64, error) {
	return 0, errors.New("disk full")
}

func TestRepository_PersistFailureLeavesStateUntouched(t *testing.T) {
	t.Parallel()
	r := newRepo(t, failingStore{memory.New()})
	_, err := r.CreateSeed(context.Background(), details(t, 1, ""))
	require.Error(t, err)
	require.Empty(t, r.Snapshot().Seeds)
}

func TestRepository_SeedsCountersFromDocument(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := memory.New()
	d := details(t, 1, "")
	_, err := store.CompareAndSwap(ctx, 0, repository.Document{
		Seeds: []repository.SeedEntry{{
			SeedID:         1002,
			Seed:           repository.RecordFromDetails(d),
			Authorizations: []repository.AuthorizationRecord{{UID: 3, AuthToken: 4010}},
			KnownAccounts:  []repository.AccountRecord{{AccountID: 7005, Bip32URI: "bip32:/m/0'", PublicKey: make([]byte, 32)}},
		}},
	})
	require.NoError(t, err)

	r := newRepo(t, store)
	id, err := r.CreateSeed(ctx, details(t, 2, ""))
	require.NoError(t, err)
	require.EqualValues(t, 1003, id)

	tok, err := r.AuthorizeSeedForUID(ctx, id, 3, solana)
	require.NoError(t, err)
	require.EqualValues(t, 4011, tok)

	accID, err := r.AddKnownAccountForSeed(ctx, id, account("bip32:/m/0'"))
	require.NoError(t, err)
	require.EqualValues(t, 7006, accID)
}

func TestRepository_ObserveSnapshots(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := newRepo(t, nil)
	snaps, stop := r.ObserveSnapshots()
	defer stop()

	first := <-snaps
	require.Empty(t, first.Seeds)

	_, err := r.CreateSeed(ctx, details(t, 1, ""))
	require.NoError(t, err)
	s := <-snaps
	require.Greater(t, s.Version, first.Version)
	require.Len(t, s.Seeds, 1)
}

func TestRepository_Close(t *testing.T) {
	t.Parallel()
	r := New(memory.New(), nil, 0)
	require.NoError(t, r.DelayUntilDataValid(context.Background()))
	changes, _ := r.Subscribe()
	snaps, _ := r.ObserveSnapshots()

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	_, ok := <-changes
	require.False(t, ok)
	for range snaps {
	}
	_, err := r.CreateSeed(context.Background(), details(t, 1, ""))
	require.Error(t, err)
}

type brokenStore struct{ *memory.Store }

func (brokenStore) Load(context.Context) (repository.Document, uint64, error) {
	return repository.Document{}, 0, errs.ErrAuthenticationFailed
}

func TestRepository_LoadFailure(t *testing.T) {
	t.Parallel()
	r := New(brokenStore{memory.New()}, zaptest.NewLogger(t), 0)
	defer r.Close()
	err := r.DelayUntilDataValid(context.Background())
	require.ErrorIs(t, err, errs.ErrAuthenticationFailed)
	_, err = r.CreateSeed(context.Background(), details(t, 1, ""))
	require.ErrorIs(t, err, errs.ErrAuthenticationFailed)
}
