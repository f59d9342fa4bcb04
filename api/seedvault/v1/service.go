package seedvaultv1

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "seedvault.v1.SeedVault"

// SeedVaultServer is the server API for the SeedVault service.
type SeedVaultServer interface {
	AuthorizeSeed(context.Context, *AuthorizeSeedRequest) (*AuthorizeSeedResponse, error)
	Deauthorize(context.Context, *DeauthorizeRequest) (*Empty, error)
	SignTransactions(context.Context, *SignRequest) (*SignResponse, error)
	SignMessages(context.Context, *SignRequest) (*SignResponse, error)
	GetPublicKeys(context.Context, *PublicKeysRequest) (*PublicKeysResponse, error)
	AuthorizedSeeds(context.Context, *AuthorizedSeedsRequest) (*AuthorizedSeedsResponse, error)
	UnauthorizedSeeds(context.Context, *UnauthorizedSeedsRequest) (*UnauthorizedSeedsResponse, error)
	Accounts(context.Context, *AccountsRequest) (*AccountsResponse, error)
	UpdateAccount(context.Context, *UpdateAccountRequest) (*Empty, error)
	ImplementationLimits(context.Context, *ImplementationLimitsRequest) (*ImplementationLimitsResponse, error)
	ResolveDerivationPath(context.Context, *ResolveDerivationPathRequest) (*ResolveDerivationPathResponse, error)

	CreateSeed(context.Context, *CreateSeedRequest) (*CreateSeedResponse, error)
	ImportSeed(context.Context, *ImportSeedRequest) (*ImportSeedResponse, error)
	UpdateSeed(context.Context, *UpdateSeedRequest) (*Empty, error)
	DeleteSeed(context.Context, *DeleteSeedRequest) (*Empty, error)
	DeleteAllSeeds(context.Context, *Empty) (*Empty, error)
	ListSeeds(context.Context, *Empty) (*ListSeedsResponse, error)
	IssueToken(context.Context, *IssueTokenRequest) (*IssueTokenResponse, error)
	WatchChanges(*Empty, grpc.ServerStreamingServer[ChangeNotification]) error
}

func unary[Req, Resp any](name string, call func(SeedVaultServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(SeedVaultServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(SeedVaultServer), ctx, req.(*Req))
			})
		},
	}
}

func watchChangesHandler(srv any, stream grpc.ServerStream) error {
	in := new(Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(SeedVaultServer).WatchChanges(in, &grpc.GenericServerStream[Empty, ChangeNotification]{ServerStream: stream})
}

// ServiceDesc describes the SeedVault service for grpc.ServiceRegistrar.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SeedVaultServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("AuthorizeSeed", SeedVaultServer.AuthorizeSeed),
		unary("Deauthorize", SeedVaultServer.Deauthorize),
		unary("SignTransactions", SeedVaultServer.SignTransactions),
		unary("SignMessages", SeedVaultServer.SignMessages),
		unary("GetPublicKeys", SeedVaultServer.GetPublicKeys),
		unary("AuthorizedSeeds", SeedVaultServer.AuthorizedSeeds),
		unary("UnauthorizedSeeds", SeedVaultServer.UnauthorizedSeeds),
		unary("Accounts", SeedVaultServer.Accounts),
		unary("UpdateAccount", SeedVaultServer.UpdateAccount),
		unary("ImplementationLimits", SeedVaultServer.ImplementationLimits),
		unary("ResolveDerivationPath", SeedVaultServer.ResolveDerivationPath),
		unary("CreateSeed", SeedVaultServer.CreateSeed),
		unary("ImportSeed", SeedVaultServer.ImportSeed),
		unary("UpdateSeed", SeedVaultServer.UpdateSeed),
		unary("DeleteSeed", SeedVaultServer.DeleteSeed),
		unary("DeleteAllSeeds", SeedVaultServer.DeleteAllSeeds),
		unary("ListSeeds", SeedVaultServer.ListSeeds),
		unary("IssueToken", SeedVaultServer.IssueToken),
	},
	Streams: []grpc.StreamDesc{{
		StreamName:    "WatchChanges",
		Handler:       watchChangesHandler,
		ServerStreams: true,
	}},
	Metadata: ProtoFile,
}

// RegisterSeedVaultServer registers srv on s.
func RegisterSeedVaultServer(s grpc.ServiceRegistrar, srv SeedVaultServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// SeedVaultClient is the client API for the SeedVault service.
type SeedVaultClient interface {
	AuthorizeSeed(ctx context.Context, in *AuthorizeSeedRequest, opts ...grpc.CallOption) (*AuthorizeSeedResponse, error)
	Deauthorize(ctx context.Context, in *DeauthorizeRequest, opts ...grpc.CallOption) (*Empty, error)
	SignTransactions(ctx context.Context, in *SignRequest, opts ...grpc.CallOption) (*SignResponse, error)
	SignMessages(ctx context.Context, in *SignRequest, opts ...grpc.CallOption) (*SignResponse, error)
	GetPublicKeys(ctx context.Context, in *PublicKeysRequest, opts ...grpc.CallOption) (*PublicKeysResponse, error)
	AuthorizedSeeds(ctx context.Context, in *AuthorizedSeedsRequest, opts ...grpc.CallOption) (*AuthorizedSeedsResponse, error)
	UnauthorizedSeeds(ctx context.Context, in *UnauthorizedSeedsRequest, opts ...grpc.CallOption) (*UnauthorizedSeedsResponse, error)
	Accounts(ctx context.Context, in *AccountsRequest, opts ...grpc.CallOption) (*AccountsResponse, error)
	UpdateAccount(ctx context.Context, in *UpdateAccountRequest, opts ...grpc.CallOption) (*Empty, error)
	ImplementationLimits(ctx context.Context, in *ImplementationLimitsRequest, opts ...grpc.CallOption) (*ImplementationLimitsResponse, error)
	ResolveDerivationPath(ctx context.Context, in *ResolveDerivationPathRequest, opts ...grpc.CallOption) (*ResolveDerivationPathResponse, error)
	CreateSeed(ctx context.Context, in *CreateSeedRequest, opts ...grpc.CallOption) (*CreateSeedResponse, error)
	ImportSeed(ctx context.Context, in *ImportSeedRequest, opts ...grpc.CallOption) (*ImportSeedResponse, error)
	UpdateSeed(ctx context.Context, in *UpdateSeedRequest, opts ...grpc.CallOption) (*Empty, error)
	DeleteSeed(ctx context.Context, in *DeleteSeedRequest, opts ...grpc.CallOption) (*Empty, error)
	DeleteAllSeeds(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error)
	ListSeeds(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*ListSeedsResponse, error)
	IssueToken(ctx context.Context, in *IssueTokenRequest, opts ...grpc.CallOption) (*IssueTokenResponse, error)
	WatchChanges(ctx context.Context, in *Empty, opts ...grpc.CallOption) (grpc.ServerStreamingClient[ChangeNotification], error)
}

type seedVaultClient struct {
	cc grpc.ClientConnInterface
}

// NewSeedVaultClient returns a client for the SeedVault service.
func NewSeedVaultClient(cc grpc.ClientConnInterface) SeedVaultClient {
	return &seedVaultClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	if err := cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *seedVaultClient) AuthorizeSeed(ctx context.Context, in *AuthorizeSeedRequest, opts ...grpc.CallOption) (*AuthorizeSeedResponse, error) {
	return invoke[AuthorizeSeedResponse](ctx, c.cc, "AuthorizeSeed", in, opts)
}

func (c *seedVaultClient) Deauthorize(ctx context.Context, in *DeauthorizeRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, "Deauthorize", in, opts)
}

func (c *seedVaultClient) SignTransactions(ctx context.Context, in *SignRequest, opts ...grpc.CallOption) (*SignResponse, error) {
	return invoke[SignResponse](ctx, c.cc, "SignTransactions", in, opts)
}

func (c *seedVaultClient) SignMessages(ctx context.Context, in *SignRequest, opts ...grpc.CallOption) (*SignResponse, error) {
	return invoke[SignResponse](ctx, c.cc, "SignMessages", in, opts)
}

func (c *seedVaultClient) GetPublicKeys(ctx context.Context, in *PublicKeysRequest, opts ...grpc.CallOption) (*PublicKeysResponse, error) {
	return invoke[PublicKeysResponse](ctx, c.cc, "GetPublicKeys", in, opts)
}

func (c *seedVaultClient) AuthorizedSeeds(ctx context.Context, in *AuthorizedSeedsRequest, opts ...grpc.CallOption) (*AuthorizedSeedsResponse, error) {
	return invoke[AuthorizedSeedsResponse](ctx, c.cc, "AuthorizedSeeds", in, opts)
}

func (c *seedVaultClient) UnauthorizedSeeds(ctx context.Context, in *UnauthorizedSeedsRequest, opts ...grpc.CallOption) (*UnauthorizedSeedsResponse, error) {
	return invoke[UnauthorizedSeedsResponse](ctx, c.cc, "UnauthorizedSeeds", in, opts)
}

func (c *seedVaultClient) Accounts(ctx context.Context, in *AccountsRequest, opts ...grpc.CallOption) (*AccountsResponse, error) {
	return invoke[AccountsResponse](ctx, c.cc, "Accounts", in, opts)
}

func (c *seedVaultClient) UpdateAccount(ctx context.Context, in *UpdateAccountRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, "UpdateAccount", in, opts)
}

func (c *seedVaultClient) ImplementationLimits(ctx context.Context, in *ImplementationLimitsRequest, opts ...grpc.CallOption) (*ImplementationLimitsResponse, error) {
	return invoke[ImplementationLimitsResponse](ctx, c.cc, "ImplementationLimits", in, opts)
}

func (c *seedVaultClient) ResolveDerivationPath(ctx context.Context, in *ResolveDerivationPathRequest, opts ...grpc.CallOption) (*ResolveDerivationPathResponse, error) {
	return invoke[ResolveDerivationPathResponse](ctx, c.cc, "ResolveDerivationPath", in, opts)
}

func (c *seedVaultClient) CreateSeed(ctx context.Context, in *CreateSeedRequest, opts ...grpc.CallOption) (*CreateSeedResponse, error) {
	return invoke[CreateSeedResponse](ctx, c.cc, "CreateSeed", in, opts)
}

func (c *seedVaultClient) ImportSeed(ctx context.Context, in *ImportSeedRequest, opts ...grpc.CallOption) (*ImportSeedResponse, error) {
	return invoke[ImportSeedResponse](ctx, c.cc, "ImportSeed", in, opts)
}

func (c *seedVaultClient) UpdateSeed(ctx context.Context, in *UpdateSeedRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, "UpdateSeed", in, opts)
}

func (c *seedVaultClient) DeleteSeed(ctx context.Context, in *DeleteSeedRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, "DeleteSeed", in, opts)
}

func (c *seedVaultClient) DeleteAllSeeds(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, "DeleteAllSeeds", in, opts)
}

func (c *seedVaultClient) ListSeeds(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*ListSeedsResponse, error) {
	return invoke[ListSeedsResponse](ctx, c.cc, "ListSeeds", in, opts)
}

func (c *seedVaultClient) IssueToken(ctx context.Context, in *IssueTokenRequest, opts ...grpc.CallOption) (*IssueTokenResponse, error) {
	return invoke[IssueTokenResponse](ctx, c.cc, "IssueToken", in, opts)
}

func (c *seedVaultClient) WatchChanges(ctx context.Context, in *Empty, opts ...grpc.CallOption) (grpc.ServerStreamingClient[ChangeNotification], error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], "/"+ServiceName+"/WatchChanges", opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[Empty, ChangeNotification]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
