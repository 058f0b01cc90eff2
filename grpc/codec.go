// Package bridgegrpc provides the gRPC transport for the bridge,
// using cramberry for deterministic binary serialization.
//
// No protobuf code generation is required. Each registered procedure
// is one unary gRPC method whose request and response are
// wire.Message values serialized via cramberry struct tags.
package bridgegrpc

import (
	"fmt"

	"github.com/blockberries/cramberry/pkg/cramberry"
	"google.golang.org/grpc/encoding"

	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/wire"
)

const codecName = "cramberry"

// CramberryCodec implements grpc/encoding.Codec using cramberry
// for deterministic binary serialization.
type CramberryCodec struct{}

func (CramberryCodec) Marshal(v any) ([]byte, error) {
	if m, ok := v.(*wire.Message); ok {
		return wire.Marshal(m)
	}
	data, err := cramberry.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("cramberry marshal: %w", err)
	}
	return data, nil
}

func (CramberryCodec) Unmarshal(data []byte, v any) error {
	if err := cramberry.Unmarshal(data, v); err != nil {
		return fmt.Errorf("cramberry unmarshal: %w", err)
	}
	return nil
}

func (CramberryCodec) Name() string { return codecName }

func init() {
	encoding.RegisterCodec(CramberryCodec{})
}
