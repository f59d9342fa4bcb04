package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/mr-tron/base58"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/and161185/seedvault/internal/bip"
	"github.com/and161185/seedvault/internal/crypto"
	"github.com/and161185/seedvault/internal/errs"
	"github.com/and161185/seedvault/internal/limiter"
	"github.com/and161185/seedvault/internal/model"
	"github.com/and161185/seedvault/internal/seeds"
	"github.com/and161185/seedvault/internal/signing"
)

// VaultService is the caller-facing API of the vault. Every call is made on
// behalf of a uid; auth tokens are only honored for the uid they were issued to.
type VaultService interface {
	// AuthorizeSeed authorizes uid for seedID, or for the first seed not yet
	// authorized for uid when seedID is nil, after checking the seed PIN.
	AuthorizeSeed(ctx context.Context, uid int, seedID *int64, purpose model.Purpose, pin string) (authToken int64, id int64, err error)
	Deauthorize(ctx context.Context, uid int, authToken int64) error

	SignTransactions(ctx context.Context, uid int, authToken int64, pin string, reqs []model.SigningRequest) ([]model.SigningResponse, error)
	SignMessages(ctx context.Context, uid int, authToken int64, pin string, reqs []model.SigningRequest) ([]model.SigningResponse, error)
	// RequestPublicKeys answers known accounts from the cache; the PIN is only
	// checked when a key has to be derived.
	RequestPublicKeys(ctx context.Context, uid int, authToken int64, pin string, paths []string) ([]model.PublicKeyResponse, error)

	AuthorizedSeeds(ctx context.Context, uid int, authToken *int64) ([]model.AuthorizedSeed, error)
	UnauthorizedSeeds(ctx context.Context, uid int, purpose *model.Purpose) ([]model.UnauthorizedSeeds, error)
	Accounts(ctx context.Context, uid int, authToken int64, accountID *int64) ([]model.Account, error)
	UpdateAccount(ctx context.Context, uid int, authToken int64, accountID int64, upd model.AccountUpdate) error
	ImplementationLimits(purpose model.Purpose) (model.ImplementationLimits, error)
	ResolveDerivationPath(purpose model.Purpose, uri string) (string, error)
}

type VaultServiceImpl struct {
	repo    SeedRepository
	deriver Deriver
	signer  signing.Service
	lim     limiter.Limiter
	prepop  *AccountPrepopulator
	log     *zap.Logger
	workers int
}

var _ VaultService = (*VaultServiceImpl)(nil)

// NewVaultService wires the vault API. workers bounds derivation and signing
// parallelism; workers <= 0 selects GOMAXPROCS.
func NewVaultService(repo SeedRepository, deriver Deriver, signer signing.Service, lim limiter.Limiter, log *zap.Logger, workers int) *VaultServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	workers = defaultWorkers(workers)
	return &VaultServiceImpl{
		repo:    repo,
		deriver: deriver,
		signer:  signer,
		lim:     lim,
		prepop:  NewAccountPrepopulator(repo, deriver, log.Named("prepopulate"), workers),
		log:     log,
		workers: workers,
	}
}

func checkUID(uid int) error {
	if uid <= model.InvalidUID {
		return fmt.Errorf("%w: uid %d", errs.ErrValidation, uid)
	}
	return nil
}

// snapshot waits for the first load and returns the current read model.
func (s *VaultServiceImpl) snapshot(ctx context.Context, uid int) (*seeds.Snapshot, error) {
	if err := checkUID(uid); err != nil {
		return nil, err
	}
	if err := s.repo.DelayUntilDataValid(ctx); err != nil {
		return nil, err
	}
	return s.repo.Snapshot(), nil
}

// authorized resolves (uid, authToken) to the seed and authorization it grants.
func (s *VaultServiceImpl) authorized(ctx context.Context, uid int, authToken int64) (model.Seed, model.Authorization, error) {
	v, err := s.snapshot(ctx, uid)
	if err != nil {
		return model.Seed{}, model.Authorization{}, err
	}
	seed, ok := v.SeedForAuthorization(uid, authToken)
	if !ok {
		return model.Seed{}, model.Authorization{}, fmt.Errorf("%w: auth token %d", errs.ErrUnauthorized, authToken)
	}
	auth, _ := seed.AuthorizationByToken(authToken)
	return seed, auth, nil
}

// checkPIN verifies pin for seed under the attempt limiter.
func (s *VaultServiceImpl) checkPIN(ctx context.Context, uid int, seed model.Seed, pin string) error {
	allowed, retry, err := s.lim.Allow(ctx, uid, seed.ID)
	if err != nil {
		return err
	}
	if !allowed {
		return fmt.Errorf("%w: retry after %s", errs.ErrRateLimited, retry)
	}
	if !crypto.PINEqual(pin, seed.Details.PIN) {
		if blocked, retry, ferr := s.lim.Failure(ctx, uid, seed.ID); ferr == nil && blocked {
			s.log.Warn("PIN attempts exhausted", zap.Int("uid", uid), zap.Int64("seed", seed.ID))
			return fmt.Errorf("%w: retry after %s", errs.ErrRateLimited, retry)
		}
		return errs.ErrAuthenticationFailed
	}
	_ = s.lim.Success(ctx, uid, seed.ID)
	return nil
}

// AuthorizeSeed implements VaultService.
func (s *VaultServiceImpl) AuthorizeSeed(ctx context.Context, uid int, seedID *int64, purpose model.Purpose, pin string) (int64, int64, error) {
	if _, err := model.ParsePurpose(int(purpose)); err != nil {
		return 0, 0, err
	}
	v, err := s.snapshot(ctx, uid)
	if err != nil {
		return 0, 0, err
	}

	var seed model.Seed
	if seedID != nil {
		var ok bool
		if seed, ok = v.Seeds[*seedID]; !ok {
			return 0, 0, fmt.Errorf("%w: seed %d", errs.ErrNotFound, *seedID)
		}
	} else {
		ordered := v.Ordered()
		i := slices.IndexFunc(ordered, func(sd model.Seed) bool {
			_, ok := sd.AuthorizationFor(uid, purpose)
			return !ok
		})
		if i == -1 {
			return 0, 0, errs.ErrNoAvailableSeeds
		}
		seed = ordered[i]
	}

	if err := s.checkPIN(ctx, uid, seed, pin); err != nil {
		return 0, 0, err
	}
	token, err := s.repo.AuthorizeSeedForUID(ctx, seed.ID, uid, purpose)
	if err != nil {
		return 0, 0, err
	}
	if err := s.prepop.PopulateKnownAccounts(ctx, seed, purpose); err != nil {
		s.log.Error("known account discovery failed", zap.Int64("seed", seed.ID), zap.Error(err))
	}
	s.log.Info("seed authorized", zap.Int("uid", uid), zap.Int64("seed", seed.ID), zap.Int64("auth_token", token))
	return token, seed.ID, nil
}

// Deauthorize implements VaultService.
func (s *VaultServiceImpl) Deauthorize(ctx context.Context, uid int, authToken int64) error {
	seed, _, err := s.authorized(ctx, uid, authToken)
	if err != nil {
		return err
	}
	return s.repo.DeauthorizeSeed(ctx, seed.ID, authToken)
}

// checkSigningRequests enforces the published limits.
func checkSigningRequests(reqs []model.SigningRequest) error {
	if len(reqs) == 0 {
		return fmt.Errorf("%w: no signing requests", errs.ErrValidation)
	}
	if len(reqs) > model.MaxSigningRequests {
		return fmt.Errorf("%w: %d signing requests, max %d", errs.ErrLimitExceeded, len(reqs), model.MaxSigningRequests)
	}
	for i, r := range reqs {
		if len(r.Payload) == 0 {
			return fmt.Errorf("%w: request %d has an empty payload", errs.ErrValidation, i)
		}
		if len(r.DerivationPaths) == 0 {
			return fmt.Errorf("%w: request %d has no derivation paths", errs.ErrValidation, i)
		}
		if len(r.DerivationPaths) > model.MaxRequestedSignatures {
			return fmt.Errorf("%w: request %d asks for %d signatures, max %d",
				errs.ErrLimitExceeded, i, len(r.DerivationPaths), model.MaxRequestedSignatures)
		}
	}
	return nil
}

func resolveAll(uris []string, purpose model.Purpose) ([]bip.Bip32Path, error) {
	out := make([]bip.Bip32Path, len(uris))
	for i, uri := range uris {
		p, err := bip.Resolve(uri, purpose)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

// SignTransactions implements VaultService.
func (s *VaultServiceImpl) SignTransactions(ctx context.Context, uid int, authToken int64, pin string, reqs []model.SigningRequest) ([]model.SigningResponse, error) {
	return s.sign(ctx, uid, authToken, pin, reqs, s.signer.SignTransaction)
}

// SignMessages implements VaultService.
func (s *VaultServiceImpl) SignMessages(ctx context.Context, uid int, authToken int64, pin string, reqs []model.SigningRequest) ([]model.SigningResponse, error) {
	return s.sign(ctx, uid, authToken, pin, reqs, s.signer.SignMessage)
}

type signFunc func(purpose model.Purpose, privateKey, payload []byte) ([]byte, error)

func (s *VaultServiceImpl) sign(ctx context.Context, uid int, authToken int64, pin string, reqs []model.SigningRequest, signFn signFunc) ([]model.SigningResponse, error) {
	if err := checkSigningRequests(reqs); err != nil {
		return nil, err
	}
	seed, auth, err := s.authorized(ctx, uid, authToken)
	if err != nil {
		return nil, err
	}
	paths := make([][]bip.Bip32Path, len(reqs))
	for i, r := range reqs {
		if paths[i], err = resolveAll(r.DerivationPaths, auth.Purpose); err != nil {
			return nil, err
		}
	}
	scheme, err := s.deriver.For(auth.Purpose)
	if err != nil {
		return nil, err
	}
	if err := s.checkPIN(ctx, uid, seed, pin); err != nil {
		return nil, err
	}

	out := make([]model.SigningResponse, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, r := range reqs {
		out[i] = model.SigningResponse{
			Signatures:              make([][]byte, len(paths[i])),
			ResolvedDerivationPaths: make([]string, len(paths[i])),
		}
		for j, path := range paths[i] {
			out[i].ResolvedDerivationPaths[j] = path.URI()
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				priv, err := scheme.PrivateKey(seed.Details.Seed, path, nil)
				if err != nil {
					if errors.Is(err, errs.ErrKeyDoesNotExist) {
						s.log.Error("key does not exist", zap.String("path", path.URI()), zap.Stringer("purpose", auth.Purpose))
					}
					return fmt.Errorf("invalid derivation path %s: %w", path.URI(), err)
				}
				defer clear(priv)
				sig, err := signFn(auth.Purpose, priv, r.Payload)
				if err != nil {
					return err
				}
				out[i].Signatures[j] = sig
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// RequestPublicKeys implements VaultService.
func (s *VaultServiceImpl) RequestPublicKeys(ctx context.Context, uid int, authToken int64, pin string, uris []string) ([]model.PublicKeyResponse, error) {
	if len(uris) == 0 {
		return nil, fmt.Errorf("%w: no derivation paths", errs.ErrValidation)
	}
	if len(uris) > model.MaxRequestedPublicKeys {
		return nil, fmt.Errorf("%w: %d public keys requested, max %d", errs.ErrLimitExceeded, len(uris), model.MaxRequestedPublicKeys)
	}
	seed, auth, err := s.authorized(ctx, uid, authToken)
	if err != nil {
		return nil, err
	}
	paths, err := resolveAll(uris, auth.Purpose)
	if err != nil {
		return nil, err
	}

	out := make([]model.PublicKeyResponse, len(paths))
	var missing []int
	for i, path := range paths {
		out[i].ResolvedDerivationPath = path.URI()
		if acc, ok := seed.KnownAccount(auth.Purpose, path.URI()); ok {
			out[i].PublicKey = slices.Clone(acc.PublicKey)
			continue
		}
		missing = append(missing, i)
	}

	if len(missing) > 0 {
		scheme, err := s.deriver.For(auth.Purpose)
		if err != nil {
			return nil, err
		}
		if err := s.checkPIN(ctx, uid, seed, pin); err != nil {
			return nil, err
		}
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.workers)
		for _, i := range missing {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				pub, err := scheme.PublicKey(seed.Details.Seed, paths[i], nil)
				if errors.Is(err, errs.ErrKeyDoesNotExist) {
					s.log.Error("key does not exist", zap.String("path", paths[i].URI()), zap.Stringer("purpose", auth.Purpose))
					return nil
				}
				if err != nil {
					return err
				}
				out[i].PublicKey = pub
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		for _, i := range missing {
			if out[i].PublicKey == nil {
				continue
			}
			acc := model.NewAccount(auth.Purpose, out[i].ResolvedDerivationPath, out[i].PublicKey)
			if _, err := s.repo.AddKnownAccountForSeed(ctx, seed.ID, acc); err != nil {
				return nil, err
			}
		}
	}

	for i := range out {
		if out[i].PublicKey != nil {
			out[i].PublicKeyBase58 = base58.Encode(out[i].PublicKey)
		}
	}
	return out, nil
}

// AuthorizedSeeds implements VaultService. A non-nil authToken filters to that token.
func (s *VaultServiceImpl) AuthorizedSeeds(ctx context.Context, uid int, authToken *int64) ([]model.AuthorizedSeed, error) {
	v, err := s.snapshot(ctx, uid)
	if err != nil {
		return nil, err
	}
	out := []model.AuthorizedSeed{}
	for _, seed := range v.Ordered() {
		for _, a := range seed.Authorizations {
			if a.UID != uid || (authToken != nil && a.AuthToken != *authToken) {
				continue
			}
			out = append(out, model.AuthorizedSeed{AuthToken: a.AuthToken, Purpose: a.Purpose, SeedName: seed.Details.Name})
		}
	}
	return out, nil
}

// UnauthorizedSeeds implements VaultService. A nil purpose reports every purpose.
func (s *VaultServiceImpl) UnauthorizedSeeds(ctx context.Context, uid int, purpose *model.Purpose) ([]model.UnauthorizedSeeds, error) {
	if purpose != nil {
		if _, err := model.ParsePurpose(int(*purpose)); err != nil {
			return nil, err
		}
	}
	v, err := s.snapshot(ctx, uid)
	if err != nil {
		return nil, err
	}
	out := []model.UnauthorizedSeeds{}
	for _, p := range []model.Purpose{model.PurposeSignSolanaTransactions} {
		if purpose != nil && *purpose != p {
			continue
		}
		authorized := 0
		for _, seed := range v.Seeds {
			if _, ok := seed.AuthorizationFor(uid, p); ok {
				authorized++
			}
		}
		out = append(out, model.UnauthorizedSeeds{Purpose: p, HasUnauthorizedSeeds: authorized < len(v.Seeds)})
	}
	return out, nil
}

// Accounts implements VaultService. A non-nil accountID filters to that account.
func (s *VaultServiceImpl) Accounts(ctx context.Context, uid int, authToken int64, accountID *int64) ([]model.Account, error) {
	seed, _, err := s.authorized(ctx, uid, authToken)
	if err != nil {
		return nil, err
	}
	out := []model.Account{}
	for _, a := range seed.Accounts {
		if accountID == nil || a.ID == *accountID {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(a, b model.Account) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out, nil
}

// UpdateAccount implements VaultService.
func (s *VaultServiceImpl) UpdateAccount(ctx context.Context, uid int, authToken int64, accountID int64, upd model.AccountUpdate) error {
	seed, _, err := s.authorized(ctx, uid, authToken)
	if err != nil {
		return err
	}
	return s.repo.PatchKnownAccountForSeed(ctx, seed.ID, accountID, upd)
}

// ImplementationLimits implements VaultService.
func (s *VaultServiceImpl) ImplementationLimits(purpose model.Purpose) (model.ImplementationLimits, error) {
	if _, err := model.ParsePurpose(int(purpose)); err != nil {
		return model.ImplementationLimits{}, err
	}
	return model.ImplementationLimits{
		Purpose:                purpose,
		MaxSigningRequests:     model.MaxSigningRequests,
		MaxRequestedSignatures: model.MaxRequestedSignatures,
		MaxRequestedPublicKeys: model.MaxRequestedPublicKeys,
	}, nil
}

// ResolveDerivationPath implements VaultService.
func (s *VaultServiceImpl) ResolveDerivationPath(purpose model.Purpose, uri string) (string, error) {
	p, err := bip.Resolve(uri, purpose)
	if err != nil {
		return "", err
	}
	return p.URI(), nil
}
