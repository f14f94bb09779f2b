package toolkit

import (
	"encoding/json"

	"github.com/bytedance/sonic"
)

// Encoder serializes everything the ledger persists: activity records and
// the cumulative counters. Implementations must round-trip the json tags on
// Activity and Stats, since stored blobs outlive the process that wrote them.
type Encoder interface {
	// Encode serializes a value to bytes.
	Encode(any) ([]byte, error)
	// Decode deserializes bytes into a value.
	Decode([]byte, any) error
}

// JSONEncoder is the default Encoder. Writes are rare (one per finished
// batch) and go through the standard library; reads load the whole retained
// history at once and go through sonic.
type JSONEncoder struct{}

// Encode serializes a value to JSON.
func (*JSONEncoder) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Decode deserializes JSON bytes with sonic.
func (*JSONEncoder) Decode(data []byte, v any) error {
	return sonic.Unmarshal(data, v)
}
