package service

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// jsonCodec lets Connect carry plain Go structs. It is registered under the
// "json" name, replacing the protojson codec for these handlers.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(msg any) ([]byte, error) { return json.Marshal(msg) }

func (jsonCodec) Unmarshal(data []byte, msg any) error { return json.Unmarshal(data, msg) }

// WithJSONCodec configures a handler or client to speak JSON over Go structs.
func WithJSONCodec() connect.Option {
	return connect.WithCodec(jsonCodec{})
}
