package server

import "encoding/json"

// jsonCodec lets the read API carry plain Go structs instead of protobuf
// messages. It registers under connect's "json" name so clients send
// application/json.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
