package hivepb

import (
	"fmt"

	gogoproto "github.com/gogo/protobuf/proto"
	"google.golang.org/grpc/encoding"
)

// CodecName is registered with grpc's encoding package and selected via
// grpc.ForceServerCodec / grpc.CallContentSubtype so the coordinator's
// gogoproto-generated messages can ride grpc without requiring every
// message to also implement the newer google.golang.org/protobuf API.
const CodecName = "gogoproto"

func init() {
	encoding.RegisterCodec(gogoCodec{})
}

type gogoCodec struct{}

func (gogoCodec) Name() string { return CodecName }

func (gogoCodec) Marshal(v interface{}) ([]byte, error) {
	var m, ok = v.(gogoproto.Message)
	if !ok {
		return nil, fmt.Errorf("gogoproto codec: %T does not implement proto.Message", v)
	}
	return gogoproto.Marshal(m)
}

func (gogoCodec) Unmarshal(data []byte, v interface{}) error {
	var m, ok = v.(gogoproto.Message)
	if !ok {
		return fmt.Errorf("gogoproto codec: %T does not implement proto.Message", v)
	}
	return gogoproto.Unmarshal(data, m)
}
