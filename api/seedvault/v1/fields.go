package seedvaultv1

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/types/descriptorpb"
)

// message is implemented by every API type. fields binds the wire fields to
// the receiver; the same list drives encoding, decoding and the file descriptor.
type message interface {
	fields() []field
}

type field struct {
	num      protowire.Number
	name     string
	kind     descriptorpb.FieldDescriptorProto_Type
	repeated bool
	optional bool
	typeName string

	encode func(b []byte) []byte
	decode func(t protowire.Type, v []byte) (int, error)
}

var errWireType = errors.New("unexpected wire type")

// marshal writes the set fields of m in field order. Zero scalars are omitted
// unless the field tracks presence.
func marshal(m message) []byte {
	var b []byte
	for _, f := range m.fields() {
		b = f.encode(b)
	}
	return b
}

// unmarshal merges b into m. Unknown fields are skipped.
func unmarshal(m message, b []byte) error {
	fs := m.fields()
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		n = -1
		for i := range fs {
			if fs[i].num != num {
				continue
			}
			var err error
			if n, err = fs[i].decode(typ, b); err != nil {
				return fmt.Errorf("field %s: %w", fs[i].name, err)
			}
			break
		}
		if n < 0 {
			if n = protowire.ConsumeFieldValue(num, typ, b); n < 0 {
				return protowire.ParseError(n)
			}
		}
		b = b[n:]
	}
	return nil
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func consumeVarint(t protowire.Type, b []byte) (uint64, int, error) {
	if t != protowire.VarintType {
		return 0, 0, errWireType
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, 0, protowire.ParseError(n)
	}
	return v, n, nil
}

func consumeBytes(t protowire.Type, b []byte) ([]byte, int, error) {
	if t != protowire.BytesType {
		return nil, 0, errWireType
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, protowire.ParseError(n)
	}
	return v, n, nil
}

func int64Field(num protowire.Number, name string, p *int64) field {
	return field{
		num: num, name: name, kind: descriptorpb.FieldDescriptorProto_TYPE_INT64,
		encode: func(b []byte) []byte {
			if *p == 0 {
				return b
			}
			return appendVarint(b, num, uint64(*p))
		},
		decode: func(t protowire.Type, v []byte) (int, error) {
			x, n, err := consumeVarint(t, v)
			*p = int64(x)
			return n, err
		},
	}
}

func optInt64Field(num protowire.Number, name string, p **int64) field {
	return field{
		num: num, name: name, kind: descriptorpb.FieldDescriptorProto_TYPE_INT64, optional: true,
		encode: func(b []byte) []byte {
			if *p == nil {
				return b
			}
			return appendVarint(b, num, uint64(**p))
		},
		decode: func(t protowire.Type, v []byte) (int, error) {
			x, n, err := consumeVarint(t, v)
			y := int64(x)
			*p = &y
			return n, err
		},
	}
}

// intField carries a Go int as int32 on the wire.
func intField(num protowire.Number, name string, p *int) field {
	return field{
		num: num, name: name, kind: descriptorpb.FieldDescriptorProto_TYPE_INT32,
		encode: func(b []byte) []byte {
			if *p == 0 {
				return b
			}
			return appendVarint(b, num, uint64(int64(*p)))
		},
		decode: func(t protowire.Type, v []byte) (int, error) {
			x, n, err := consumeVarint(t, v)
			*p = int(int32(x))
			return n, err
		},
	}
}

func optIntField(num protowire.Number, name string, p **int) field {
	return field{
		num: num, name: name, kind: descriptorpb.FieldDescriptorProto_TYPE_INT32, optional: true,
		encode: func(b []byte) []byte {
			if *p == nil {
				return b
			}
			return appendVarint(b, num, uint64(int64(**p)))
		},
		decode: func(t protowire.Type, v []byte) (int, error) {
			x, n, err := consumeVarint(t, v)
			y := int(int32(x))
			*p = &y
			return n, err
		},
	}
}

func boolField(num protowire.Number, name string, p *bool) field {
	return field{
		num: num, name: name, kind: descriptorpb.FieldDescriptorProto_TYPE_BOOL,
		encode: func(b []byte) []byte {
			if !*p {
				return b
			}
			return appendVarint(b, num, 1)
		},
		decode: func(t protowire.Type, v []byte) (int, error) {
			x, n, err := consumeVarint(t, v)
			*p = protowire.DecodeBool(x)
			return n, err
		},
	}
}

func optBoolField(num protowire.Number, name string, p **bool) field {
	return field{
		num: num, name: name, kind: descriptorpb.FieldDescriptorProto_TYPE_BOOL, optional: true,
		encode: func(b []byte) []byte {
			if *p == nil {
				return b
			}
			return appendVarint(b, num, protowire.EncodeBool(**p))
		},
		decode: func(t protowire.Type, v []byte) (int, error) {
			x, n, err := consumeVarint(t, v)
			y := protowire.DecodeBool(x)
			*p = &y
			return n, err
		},
	}
}

func stringField(num protowire.Number, name string, p *string) field {
	return field{
		num: num, name: name, kind: descriptorpb.FieldDescriptorProto_TYPE_STRING,
		encode: func(b []byte) []byte {
			if *p == "" {
				return b
			}
			return appendBytes(b, num, []byte(*p))
		},
		decode: func(t protowire.Type, v []byte) (int, error) {
			x, n, err := consumeBytes(t, v)
			*p = string(x)
			return n, err
		},
	}
}

func optStringField(num protowire.Number, name string, p **string) field {
	return field{
		num: num, name: name, kind: descriptorpb.FieldDescriptorProto_TYPE_STRING, optional: true,
		encode: func(b []byte) []byte {
			if *p == nil {
				return b
			}
			return appendBytes(b, num, []byte(**p))
		},
		decode: func(t protowire.Type, v []byte) (int, error) {
			x, n, err := consumeBytes(t, v)
			y := string(x)
			*p = &y
			return n, err
		},
	}
}

func bytesField(num protowire.Number, name string, p *[]byte) field {
	return field{
		num: num, name: name, kind: descriptorpb.FieldDescriptorProto_TYPE_BYTES,
		encode: func(b []byte) []byte {
			if len(*p) == 0 {
				return b
			}
			return appendBytes(b, num, *p)
		},
		decode: func(t protowire.Type, v []byte) (int, error) {
			x, n, err := consumeBytes(t, v)
			*p = append([]byte(nil), x...)
			return n, err
		},
	}
}

func stringsField(num protowire.Number, name string, p *[]string) field {
	return field{
		num: num, name: name, kind: descriptorpb.FieldDescriptorProto_TYPE_STRING, repeated: true,
		encode: func(b []byte) []byte {
			for _, s := range *p {
				b = appendBytes(b, num, []byte(s))
			}
			return b
		},
		decode: func(t protowire.Type, v []byte) (int, error) {
			x, n, err := consumeBytes(t, v)
			if err == nil {
				*p = append(*p, string(x))
			}
			return n, err
		},
	}
}

func bytesListField(num protowire.Number, name string, p *[][]byte) field {
	return field{
		num: num, name: name, kind: descriptorpb.FieldDescriptorProto_TYPE_BYTES, repeated: true,
		encode: func(b []byte) []byte {
			for _, s := range *p {
				b = appendBytes(b, num, s)
			}
			return b
		},
		decode: func(t protowire.Type, v []byte) (int, error) {
			x, n, err := consumeBytes(t, v)
			if err == nil {
				*p = append(*p, append([]byte(nil), x...))
			}
			return n, err
		},
	}
}

// messagesField binds a repeated message field of type typeName.
func messagesField[T any, PT interface {
	*T
	message
}](num protowire.Number, name, typeName string, p *[]T) field {
	return field{
		num: num, name: name, kind: descriptorpb.FieldDescriptorProto_TYPE_MESSAGE, repeated: true, typeName: typeName,
		encode: func(b []byte) []byte {
			for i := range *p {
				b = appendBytes(b, num, marshal(PT(&(*p)[i])))
			}
			return b
		},
		decode: func(t protowire.Type, v []byte) (int, error) {
			x, n, err := consumeBytes(t, v)
			if err != nil {
				return n, err
			}
			var item T
			if err := unmarshal(PT(&item), x); err != nil {
				return n, err
			}
			*p = append(*p, item)
			return n, nil
		},
	}
}
