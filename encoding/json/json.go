// Package json is the single import point for JSON encoding so the
// implementation can be swapped without touching callers
package json

import "encoding/json"

// Aliases of the encoding/json types used across the codebase
type (
	RawMessage  = json.RawMessage
	Marshaler   = json.Marshaler
	Unmarshaler = json.Unmarshaler
	Encoder     = json.Encoder
	Decoder     = json.Decoder
)

var (
	// Marshal returns the JSON encoding of v
	Marshal = json.Marshal
	// MarshalIndent is like Marshal but applies Indent to format the output
	MarshalIndent = json.MarshalIndent
	// Unmarshal parses the JSON-encoded data and stores the result in the value pointed to by v
	Unmarshal = json.Unmarshal
	// NewEncoder returns a new encoder that writes to w
	NewEncoder = json.NewEncoder
	// NewDecoder returns a new decoder that reads from r
	NewDecoder = json.NewDecoder
	// Valid reports whether data is a valid JSON encoding
	Valid = json.Valid
)
