// Package json is a drop-in replacement for encoding/json backed by sonic.
package json

import (
	stdjson "encoding/json"
	"io"

	"github.com/bytedance/sonic"
)

var api = sonic.ConfigStd

// RawMessage mirrors encoding/json.RawMessage so callers need a single import.
type RawMessage = stdjson.RawMessage

func Marshal(v any) ([]byte, error) {
	return api.Marshal(v)
}

func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return api.MarshalIndent(v, prefix, indent)
}

func MarshalString(v any) (string, error) {
	return api.MarshalToString(v)
}

func Unmarshal(data []byte, v any) error {
	return api.Unmarshal(data, v)
}

func UnmarshalString(data string, v any) error {
	return api.UnmarshalFromString(data, v)
}

func NewEncoder(w io.Writer) sonic.Encoder {
	return api.NewEncoder(w)
}

func NewDecoder(r io.Reader) sonic.Decoder {
	return api.NewDecoder(r)
}

// Valid reports whether data is a valid JSON encoding.
func Valid(data []byte) bool {
	return api.Valid(data)
}
