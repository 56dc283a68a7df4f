package rpc

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// jsonCodecName is the gRPC content-subtype this codec is registered
// under. Clients must call with grpc.CallContentSubtype(jsonCodecName)
// to use it, as Client in client.go does on every call.
const jsonCodecName = "json"

// jsonCodec marshals wire messages as JSON instead of protobuf binary.
// There is no protoc/.proto toolchain available to generate a real
// protobuf codec in this environment; grpc's encoding.Codec interface
// is deliberately wire-format-agnostic, so a JSON codec keeps the rest
// of the teacher's grpc stack (interceptors, grpc-prometheus, mTLS)
// untouched while avoiding a hand-transcribed protobuf wire format.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return jsonCodecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
