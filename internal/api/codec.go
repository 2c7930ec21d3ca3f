// Package api defines the wire contract between the gophcheck server and
// its front-ends: message types, the gRPC service description and a client
// stub. Messages travel as JSON using a gRPC codec registered under
// CodecName.
package api

import (
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// CodecName is the gRPC content-subtype of the JSON codec.
const CodecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func (jsonCodec) Name() string { return CodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// CallOption selects the JSON codec for an outgoing call. Servers pick the
// codec from the request content-type, so no server option is needed.
func CallOption() grpc.CallOption {
	return grpc.CallContentSubtype(CodecName)
}
