package cache

import "encoding/json"

// Envelope is a tagged, polymorphic wire format for cached values held
// in a byte store, from which the original Go type must be recovered
// on read. The Distributed provider does not use it: it stores the
// plain json.Marshal encoding of each value. Type names are
// assigned by callers (e.g. "confighash.Entry", "string"); Payload is
// left as raw JSON until the caller knows which concrete type to
// unmarshal into.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// NewEnvelope marshals value and tags it with typeName.
func NewEnvelope(typeName string, value any) (Envelope, error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: typeName, Payload: payload}, nil
}

// Decode unmarshals the envelope's payload into dest. Callers should
// check Type before calling Decode if more than one type may appear
// under the same cache name.
func (e Envelope) Decode(dest any) error {
	return json.Unmarshal(e.Payload, dest)
}
