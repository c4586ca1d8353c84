package modeldispatch

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// jsonCodecName is registered as a gRPC call content-subtype so Dispatch
// can invoke the external QA/model router without a generated protobuf
// stub: the wire messages are plain structs marshaled as JSON instead of
// protobuf bytes. See codec_test.go for the round-trip this replaces.
const jsonCodecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// jsonCodec implements google.golang.org/grpc/encoding.Codec over
// encoding/json. grpc.ClientConn.Invoke accepts any Go value for its
// request/response pair as long as a codec matching the call's content
// subtype is registered; it does not require proto.Message.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("json codec marshal: %w", err)
	}
	return data, nil
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("json codec unmarshal: %w", err)
	}
	return nil
}

func (jsonCodec) Name() string { return jsonCodecName }
