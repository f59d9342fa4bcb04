package seedvaultv1

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
)

// ProtoFile is the path the API is registered under in the global proto registry.
const ProtoFile = "seedvault/v1/seedvault.proto"

const protoPackage = "seedvault.v1"

var messageTypes = []struct {
	name string
	new  func() message
}{
	{"Empty", func() message { return new(Empty) }},
	{"AuthorizeSeedRequest", func() message { return new(AuthorizeSeedRequest) }},
	{"AuthorizeSeedResponse", func() message { return new(AuthorizeSeedResponse) }},
	{"DeauthorizeRequest", func() message { return new(DeauthorizeRequest) }},
	{"SigningRequest", func() message { return new(SigningRequest) }},
	{"SignRequest", func() message { return new(SignRequest) }},
	{"SigningResponse", func() message { return new(SigningResponse) }},
	{"SignResponse", func() message { return new(SignResponse) }},
	{"PublicKeysRequest", func() message { return new(PublicKeysRequest) }},
	{"PublicKey", func() message { return new(PublicKey) }},
	{"PublicKeysResponse", func() message { return new(PublicKeysResponse) }},
	{"AuthorizedSeedsRequest", func() message { return new(AuthorizedSeedsRequest) }},
	{"AuthorizedSeed", func() message { return new(AuthorizedSeed) }},
	{"AuthorizedSeedsResponse", func() message { return new(AuthorizedSeedsResponse) }},
	{"UnauthorizedSeedsRequest", func() message { return new(UnauthorizedSeedsRequest) }},
	{"UnauthorizedSeeds", func() message { return new(UnauthorizedSeeds) }},
	{"UnauthorizedSeedsResponse", func() message { return new(UnauthorizedSeedsResponse) }},
	{"AccountsRequest", func() message { return new(AccountsRequest) }},
	{"Account", func() message { return new(Account) }},
	{"AccountsResponse", func() message { return new(AccountsResponse) }},
	{"UpdateAccountRequest", func() message { return new(UpdateAccountRequest) }},
	{"ImplementationLimitsRequest", func() message { return new(ImplementationLimitsRequest) }},
	{"ImplementationLimitsResponse", func() message { return new(ImplementationLimitsResponse) }},
	{"ResolveDerivationPathRequest", func() message { return new(ResolveDerivationPathRequest) }},
	{"ResolveDerivationPathResponse", func() message { return new(ResolveDerivationPathResponse) }},
	{"CreateSeedRequest", func() message { return new(CreateSeedRequest) }},
	{"CreateSeedResponse", func() message { return new(CreateSeedResponse) }},
	{"ImportSeedRequest", func() message { return new(ImportSeedRequest) }},
	{"ImportSeedResponse", func() message { return new(ImportSeedResponse) }},
	{"UpdateSeedRequest", func() message { return new(UpdateSeedRequest) }},
	{"DeleteSeedRequest", func() message { return new(DeleteSeedRequest) }},
	{"Authorization", func() message { return new(Authorization) }},
	{"SeedInfo", func() message { return new(SeedInfo) }},
	{"ListSeedsResponse", func() message { return new(ListSeedsResponse) }},
	{"ChangeNotification", func() message { return new(ChangeNotification) }},
	{"IssueTokenRequest", func() message { return new(IssueTokenRequest) }},
	{"IssueTokenResponse", func() message { return new(IssueTokenResponse) }},
}

var rpcs = []struct {
	name, in, out string
	serverStreams bool
}{
	{"AuthorizeSeed", "AuthorizeSeedRequest", "AuthorizeSeedResponse", false},
	{"Deauthorize", "DeauthorizeRequest", "Empty", false},
	{"SignTransactions", "SignRequest", "SignResponse", false},
	{"SignMessages", "SignRequest", "SignResponse", false},
	{"GetPublicKeys", "PublicKeysRequest", "PublicKeysResponse", false},
	{"AuthorizedSeeds", "AuthorizedSeedsRequest", "AuthorizedSeedsResponse", false},
	{"UnauthorizedSeeds", "UnauthorizedSeedsRequest", "UnauthorizedSeedsResponse", false},
	{"Accounts", "AccountsRequest", "AccountsResponse", false},
	{"UpdateAccount", "UpdateAccountRequest", "Empty", false},
	{"ImplementationLimits", "ImplementationLimitsRequest", "ImplementationLimitsResponse", false},
	{"ResolveDerivationPath", "ResolveDerivationPathRequest", "ResolveDerivationPathResponse", false},
	{"CreateSeed", "CreateSeedRequest", "CreateSeedResponse", false},
	{"ImportSeed", "ImportSeedRequest", "ImportSeedResponse", false},
	{"UpdateSeed", "UpdateSeedRequest", "Empty", false},
	{"DeleteSeed", "DeleteSeedRequest", "Empty", false},
	{"DeleteAllSeeds", "Empty", "Empty", false},
	{"ListSeeds", "Empty", "ListSeedsResponse", false},
	{"IssueToken", "IssueTokenRequest", "IssueTokenResponse", false},
	{"WatchChanges", "Empty", "ChangeNotification", true},
}

func qualified(name string) *string {
	return proto.String("." + protoPackage + "." + name)
}

// fileDescriptor describes the API as a proto3 file. Optional fields get the
// synthetic oneof protoc would generate for them.
func fileDescriptor() *descriptorpb.FileDescriptorProto {
	fd := &descriptorpb.FileDescriptorProto{
		Name:    proto.String(ProtoFile),
		Package: proto.String(protoPackage),
		Syntax:  proto.String("proto3"),
	}
	for _, mt := range messageTypes {
		md := &descriptorpb.DescriptorProto{Name: proto.String(mt.name)}
		for _, f := range mt.new().fields() {
			fp := &descriptorpb.FieldDescriptorProto{
				Name:   proto.String(f.name),
				Number: proto.Int32(int32(f.num)),
				Type:   f.kind.Enum(),
				Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
			}
			if f.repeated {
				fp.Label = descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum()
			}
			if f.typeName != "" {
				fp.TypeName = qualified(f.typeName)
			}
			if f.optional {
				fp.OneofIndex = proto.Int32(int32(len(md.OneofDecl)))
				fp.Proto3Optional = proto.Bool(true)
				md.OneofDecl = append(md.OneofDecl, &descriptorpb.OneofDescriptorProto{Name: proto.String("_" + f.name)})
			}
			md.Field = append(md.Field, fp)
		}
		fd.MessageType = append(fd.MessageType, md)
	}

	svc := &descriptorpb.ServiceDescriptorProto{Name: proto.String("SeedVault")}
	for _, r := range rpcs {
		md := &descriptorpb.MethodDescriptorProto{
			Name:       proto.String(r.name),
			InputType:  qualified(r.in),
			OutputType: qualified(r.out),
		}
		if r.serverStreams {
			md.ServerStreaming = proto.Bool(true)
		}
		svc.Method = append(svc.Method, md)
	}
	fd.Service = append(fd.Service, svc)
	return fd
}

func init() {
	fd, err := protodesc.NewFile(fileDescriptor(), protoregistry.GlobalFiles)
	if err != nil {
		panic(fmt.Sprintf("seedvault: build %s: %v", ProtoFile, err))
	}
	if err := protoregistry.GlobalFiles.RegisterFile(fd); err != nil {
		panic(fmt.Sprintf("seedvault: register %s: %v", ProtoFile, err))
	}
}
