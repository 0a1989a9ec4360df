package tiered

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrCorruptRecord reports a slot body that is not an encoded Record.
var ErrCorruptRecord = errors.New("tiered: corrupt record")

// Record is the payload unit returned by a tier.
//
// Identity is by slot, not by key: a Resolver holds at most one Record per tier.
type Record struct {
	Payload   string    `json:"payload"`
	FetchedAt time.Time `json:"fetched_at"`

	// stale is computed on read and never persisted.
	stale bool
}

// NewRecord returns a fresh record.
func NewRecord(payload string, fetchedAt time.Time) Record {
	return Record{Payload: payload, FetchedAt: fetchedAt}
}

// UpToDate reports whether the record is fresh.
func (r Record) UpToDate() bool {
	return !r.stale
}

// Equal reports whether both records carry the same payload fetched at the same instant.
func (r Record) Equal(other Record) bool {
	return r.Payload == other.Payload && r.FetchedAt.Equal(other.FetchedAt)
}

func (r Record) String() string {
	return r.Payload
}

func encodeRecord(r Record) ([]byte, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return body, nil
}

func decodeRecord(body []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(body, &r); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return r, nil
}
