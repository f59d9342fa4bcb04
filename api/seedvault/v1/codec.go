// Package seedvaultv1 defines the SeedVault gRPC API: protobuf message types
// and their wire encoding, the file descriptor served to reflection clients,
// and the service descriptor with its client and server bindings.
package seedvaultv1

import (
	"fmt"

	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/encoding/proto"
	"google.golang.org/grpc/mem"
)

// Codec replaces the default gRPC "proto" codec. API messages are encoded by
// their field bindings; any other value, such as health or reflection
// messages, goes to the codec it replaced.
type Codec struct {
	fallback encoding.CodecV2
}

func (c Codec) Marshal(v any) (mem.BufferSlice, error) {
	if m, ok := v.(message); ok {
		return mem.BufferSlice{mem.SliceBuffer(marshal(m))}, nil
	}
	if c.fallback == nil {
		return nil, fmt.Errorf("seedvault codec: cannot marshal %T", v)
	}
	return c.fallback.Marshal(v)
}

func (c Codec) Unmarshal(data mem.BufferSlice, v any) error {
	if m, ok := v.(message); ok {
		return unmarshal(m, data.Materialize())
	}
	if c.fallback == nil {
		return fmt.Errorf("seedvault codec: cannot unmarshal into %T", v)
	}
	return c.fallback.Unmarshal(data, v)
}

func (Codec) Name() string { return proto.Name }

func init() {
	encoding.RegisterCodecV2(Codec{fallback: encoding.GetCodecV2(proto.Name)})
}
