package store

import (
	"encoding/json"
	"fmt"

	"quantum-vault-engine/engine/types"
)

// Event is one row of the append-only operation log described in
// SPEC_FULL.md's "Persisted record layout" (the `e/` prefix), consumed by
// engine/feed on restart to replay history to newly-connected subscribers.
type Event struct {
	Seq       uint64        `json:"seq"`
	Kind      string        `json:"kind"`
	Actor     types.Address `json:"actor"`
	VaultID   types.VaultID `json:"vault_id"`
	Timestamp int64         `json:"timestamp"`
	Detail    string        `json:"detail"`
}

func encodeEvent(e Event) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	return data, nil
}

func decodeEvent(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	return e, nil
}
