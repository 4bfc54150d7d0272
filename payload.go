package scribews

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Payload is an inbound frame that was successfully parsed as a JSON document.
type Payload struct {
	raw   json.RawMessage
	value any
}

// ParsePayload parses a frame as a JSON document.
func ParsePayload(data []byte) (Payload, error) {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return Payload{}, errors.Wrap(ErrDecode, err.Error())
	}

	raw := make(json.RawMessage, len(data))
	copy(raw, data)

	return Payload{raw: raw, value: value}, nil
}

// Raw returns the document bytes as received.
func (p Payload) Raw() json.RawMessage { return p.raw }

// Value returns the generic decoded document: map[string]any, []any, string, float64, bool or nil.
func (p Payload) Value() any { return p.value }

// Decode unmarshals the document into v.
func (p Payload) Decode(v any) error {
	return json.Unmarshal(p.raw, v)
}

// Kind returns the "type" member of an object document, or "" when there is none.
func (p Payload) Kind() string {
	obj, ok := p.value.(map[string]any)
	if !ok {
		return ""
	}
	kind, _ := obj["type"].(string)
	return kind
}

func (p Payload) String() string { return string(p.raw) }
