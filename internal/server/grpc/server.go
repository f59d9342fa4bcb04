// Package grpcserver exposes the seed vault over gRPC.
package grpcserver

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apiv1 "github.com/and161185/seedvault/api/seedvault/v1"
	"github.com/and161185/seedvault/internal/convert"
	"github.com/and161185/seedvault/internal/errs"
	"github.com/and161185/seedvault/internal/service"
)

// Server wires services into gRPC handlers. Caller identity is read from
// the claims stored by AuthUnary and AuthStream.
type Server struct {
	vault service.VaultService
	admin service.AdminService
	auth  service.AuthService
	log   *zap.Logger
}

var _ apiv1.SeedVaultServer = (*Server)(nil)

// New constructs a gRPC server with injected services.
func New(vault service.VaultService, admin service.AdminService, auth service.AuthService, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{vault: vault, admin: admin, auth: auth, log: log}
}

// toStatus maps domain errors to gRPC status codes.
func toStatus(op string, err error) error {
	var code codes.Code
	switch {
	case errors.Is(err, errs.ErrValidation), errors.Is(err, errs.ErrUnsupportedPurpose):
		code = codes.InvalidArgument
	case errors.Is(err, errs.ErrNotFound):
		code = codes.NotFound
	case errors.Is(err, errs.ErrUnauthorized):
		code = codes.PermissionDenied
	case errors.Is(err, errs.ErrAuthenticationFailed):
		code = codes.Unauthenticated
	case errors.Is(err, errs.ErrCapacityExceeded), errors.Is(err, errs.ErrLimitExceeded), errors.Is(err, errs.ErrRateLimited):
		code = codes.ResourceExhausted
	case errors.Is(err, errs.ErrNoAvailableSeeds), errors.Is(err, errs.ErrKeyDoesNotExist):
		code = codes.FailedPrecondition
	case errors.Is(err, errs.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	default:
		return status.Errorf(codes.Internal, "%s: internal error", op)
	}
	return status.Errorf(code, "%s: %v", op, err)
}

// uid returns the authenticated caller.
func uid(ctx context.Context) (int, error) {
	claims, ok := ClaimsFromCtx(ctx)
	if !ok {
		return 0, status.Error(codes.Unauthenticated, "no auth")
	}
	id, err := claims.UID()
	if err != nil {
		return 0, status.Error(codes.Unauthenticated, "bad subject")
	}
	return id, nil
}

func requireAdmin(ctx context.Context) error {
	claims, ok := ClaimsFromCtx(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "no auth")
	}
	if claims.Role != service.RoleAdmin {
		return status.Error(codes.PermissionDenied, "admin role required")
	}
	return nil
}

// --- Vault ---

// AuthorizeSeed authorizes the caller for a seed after checking its PIN.
func (s *Server) AuthorizeSeed(ctx context.Context, req *apiv1.AuthorizeSeedRequest) (*apiv1.AuthorizeSeedResponse, error) {
	caller, err := uid(ctx)
	if err != nil {
		return nil, err
	}
	purpose, err := convert.FromAPIPurpose(req.Purpose)
	if err != nil {
		return nil, toStatus("authorize seed", err)
	}
	token, id, err := s.vault.AuthorizeSeed(ctx, caller, req.SeedID, purpose, req.PIN)
	if err != nil {
		return nil, toStatus("authorize seed", err)
	}
	return &apiv1.AuthorizeSeedResponse{AuthToken: token, SeedID: id}, nil
}

// Deauthorize revokes one of the caller's auth tokens.
func (s *Server) Deauthorize(ctx context.Context, req *apiv1.DeauthorizeRequest) (*apiv1.Empty, error) {
	caller, err := uid(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.vault.Deauthorize(ctx, caller, req.AuthToken); err != nil {
		return nil, toStatus("deauthorize", err)
	}
	return &apiv1.Empty{}, nil
}

// SignTransactions signs each payload with the keys at its derivation paths.
func (s *Server) SignTransactions(ctx context.Context, req *apiv1.SignRequest) (*apiv1.SignResponse, error) {
	caller, err := uid(ctx)
	if err != nil {
		return nil, err
	}
	res, err := s.vault.SignTransactions(ctx, caller, req.AuthToken, req.PIN, convert.FromAPISigningRequests(req.Requests))
	if err != nil {
		return nil, toStatus("sign transactions", err)
	}
	return convert.ToAPISignResponse(res), nil
}

// SignMessages signs each payload with the keys at its derivation paths.
func (s *Server) SignMessages(ctx context.Context, req *apiv1.SignRequest) (*apiv1.SignResponse, error) {
	caller, err := uid(ctx)
	if err != nil {
		return nil, err
	}
	res, err := s.vault.SignMessages(ctx, caller, req.AuthToken, req.PIN, convert.FromAPISigningRequests(req.Requests))
	if err != nil {
		return nil, toStatus("sign messages", err)
	}
	return convert.ToAPISignResponse(res), nil
}

// GetPublicKeys returns the public keys at the requested paths.
func (s *Server) GetPublicKeys(ctx context.Context, req *apiv1.PublicKeysRequest) (*apiv1.PublicKeysResponse, error) {
	caller, err := uid(ctx)
	if err != nil {
		return nil, err
	}
	res, err := s.vault.RequestPublicKeys(ctx, caller, req.AuthToken, req.PIN, req.DerivationPaths)
	if err != nil {
		return nil, toStatus("public keys", err)
	}
	return convert.ToAPIPublicKeys(res), nil
}

// AuthorizedSeeds lists the caller's authorizations.
func (s *Server) AuthorizedSeeds(ctx context.Context, req *apiv1.AuthorizedSeedsRequest) (*apiv1.AuthorizedSeedsResponse, error) {
	caller, err := uid(ctx)
	if err != nil {
		return nil, err
	}
	res, err := s.vault.AuthorizedSeeds(ctx, caller, req.AuthToken)
	if err != nil {
		return nil, toStatus("authorized seeds", err)
	}
	return convert.ToAPIAuthorizedSeeds(res), nil
}

// UnauthorizedSeeds reports, per purpose, whether seeds remain to authorize.
func (s *Server) UnauthorizedSeeds(ctx context.Context, req *apiv1.UnauthorizedSeedsRequest) (*apiv1.UnauthorizedSeedsResponse, error) {
	caller, err := uid(ctx)
	if err != nil {
		return nil, err
	}
	purpose, err := convert.FromAPIOptionalPurpose(req.Purpose)
	if err != nil {
		return nil, toStatus("unauthorized seeds", err)
	}
	res, err := s.vault.UnauthorizedSeeds(ctx, caller, purpose)
	if err != nil {
		return nil, toStatus("unauthorized seeds", err)
	}
	return convert.ToAPIUnauthorizedSeeds(res), nil
}

// Accounts lists known accounts of an authorized seed.
func (s *Server) Accounts(ctx context.Context, req *apiv1.AccountsRequest) (*apiv1.AccountsResponse, error) {
	caller, err := uid(ctx)
	if err != nil {
		return nil, err
	}
	res, err := s.vault.Accounts(ctx, caller, req.AuthToken, req.AccountID)
	if err != nil {
		return nil, toStatus("accounts", err)
	}
	return convert.ToAPIAccounts(res), nil
}

// UpdateAccount edits the user fields of a known account.
func (s *Server) UpdateAccount(ctx context.Context, req *apiv1.UpdateAccountRequest) (*apiv1.Empty, error) {
	caller, err := uid(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.vault.UpdateAccount(ctx, caller, req.AuthToken, req.AccountID, convert.FromAPIAccountUpdate(req)); err != nil {
		return nil, toStatus("update account", err)
	}
	return &apiv1.Empty{}, nil
}

// ImplementationLimits returns the request limits for a purpose.
func (s *Server) ImplementationLimits(ctx context.Context, req *apiv1.ImplementationLimitsRequest) (*apiv1.ImplementationLimitsResponse, error) {
	if _, err := uid(ctx); err != nil {
		return nil, err
	}
	purpose, err := convert.FromAPIPurpose(req.Purpose)
	if err != nil {
		return nil, toStatus("implementation limits", err)
	}
	lim, err := s.vault.ImplementationLimits(purpose)
	if err != nil {
		return nil, toStatus("implementation limits", err)
	}
	return convert.ToAPILimits(lim), nil
}

// ResolveDerivationPath resolves a bip32 or bip44 URI to its canonical bip32 form.
func (s *Server) ResolveDerivationPath(ctx context.Context, req *apiv1.ResolveDerivationPathRequest) (*apiv1.ResolveDerivationPathResponse, error) {
	if _, err := uid(ctx); err != nil {
		return nil, err
	}
	purpose, err := convert.FromAPIPurpose(req.Purpose)
	if err != nil {
		return nil, toStatus("resolve derivation path", err)
	}
	resolved, err := s.vault.ResolveDerivationPath(purpose, req.DerivationPath)
	if err != nil {
		return nil, toStatus("resolve derivation path", err)
	}
	return &apiv1.ResolveDerivationPathResponse{ResolvedDerivationPath: resolved}, nil
}

// --- Admin ---

// CreateSeed stores a seed for a new phrase and returns the phrase once.
func (s *Server) CreateSeed(ctx context.Context, req *apiv1.CreateSeedRequest) (*apiv1.CreateSeedResponse, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	id, mnemonic, err := s.admin.CreateSeed(ctx, req.Words, req.Name, req.PIN, req.UnlockWithBiometrics)
	if err != nil {
		return nil, toStatus("create seed", err)
	}
	return &apiv1.CreateSeedResponse{SeedID: id, Mnemonic: mnemonic}, nil
}

// ImportSeed stores a seed restored from an existing phrase.
func (s *Server) ImportSeed(ctx context.Context, req *apiv1.ImportSeedRequest) (*apiv1.ImportSeedResponse, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	id, err := s.admin.ImportSeed(ctx, req.Mnemonic, req.Passphrase, req.Name, req.PIN, req.UnlockWithBiometrics)
	if err != nil {
		return nil, toStatus("import seed", err)
	}
	return &apiv1.ImportSeedResponse{SeedID: id}, nil
}

// UpdateSeed edits seed settings.
func (s *Server) UpdateSeed(ctx context.Context, req *apiv1.UpdateSeedRequest) (*apiv1.Empty, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := s.admin.UpdateSeed(ctx, req.SeedID, convert.FromAPISeedUpdate(req)); err != nil {
		return nil, toStatus("update seed", err)
	}
	return &apiv1.Empty{}, nil
}

// DeleteSeed removes a seed with its authorizations and accounts.
func (s *Server) DeleteSeed(ctx context.Context, req *apiv1.DeleteSeedRequest) (*apiv1.Empty, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := s.admin.DeleteSeed(ctx, req.SeedID); err != nil {
		return nil, toStatus("delete seed", err)
	}
	return &apiv1.Empty{}, nil
}

// DeleteAllSeeds empties the vault.
func (s *Server) DeleteAllSeeds(ctx context.Context, _ *apiv1.Empty) (*apiv1.Empty, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := s.admin.DeleteAllSeeds(ctx); err != nil {
		return nil, toStatus("delete all seeds", err)
	}
	return &apiv1.Empty{}, nil
}

// ListSeeds returns the operator view of every seed.
func (s *Server) ListSeeds(ctx context.Context, _ *apiv1.Empty) (*apiv1.ListSeedsResponse, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	res, err := s.admin.ListSeeds(ctx)
	if err != nil {
		return nil, toStatus("list seeds", err)
	}
	return convert.ToAPISeedInfos(res), nil
}

// IssueToken mints a caller token for uid.
func (s *Server) IssueToken(ctx context.Context, req *apiv1.IssueTokenRequest) (*apiv1.IssueTokenResponse, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	tok, exp, err := s.auth.IssueToken(req.UID, req.Admin)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "issue token: %v", err)
	}
	return &apiv1.IssueTokenResponse{Token: tok, ExpiresAt: exp.Unix()}, nil
}

// WatchChanges streams change notifications until the client goes away.
// Response headers are sent once the subscription is live.
func (s *Server) WatchChanges(_ *apiv1.Empty, stream grpc.ServerStreamingServer[apiv1.ChangeNotification]) error {
	ctx := stream.Context()
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	changes, cancel := s.admin.Changes()
	defer cancel()
	if err := stream.SendHeader(nil); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case c, ok := <-changes:
			if !ok {
				return status.Error(codes.Unavailable, "vault closed")
			}
			if err := stream.Send(convert.ToAPIChange(c)); err != nil {
				return err
			}
		}
	}
}
