package rpc

import "encoding/json"

// jsonCodec implements google.golang.org/grpc/encoding.Codec over plain Go
// structs, used in place of protobuf wire encoding since this tree has no
// protoc-generated message types (spec §6.4's RPC surface is specified by
// field shape, not by a .proto file). Wired via grpc.ForceServerCodec so
// the server still runs the real gRPC framing, flow control and HTTP/2
// transport — only the payload encoding changes.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string { return "json" }
