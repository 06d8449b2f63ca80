package models

import (
	"encoding/json"
	"time"
)

// JournalKind distinguishes the records written to the scan journal.
type JournalKind string

const (
	JournalSignal  JournalKind = "signal"
	JournalSummary JournalKind = "summary"
)

// JournalRecord is one append-only entry: a matched signal or a session summary.
type JournalRecord struct {
	ID         string          `json:"id"`
	Kind       JournalKind     `json:"kind"`
	SessionID  string          `json:"session_id"`
	Timeframe  string          `json:"timeframe"`
	Name       string          `json:"name,omitempty"`
	Direction  Direction       `json:"direction,omitempty"`
	Price      float64         `json:"price,omitempty"`
	State      SessionState    `json:"state,omitempty"`
	Scanned    int             `json:"scanned,omitempty"`
	Found      int             `json:"found,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// Key is the partition key used by message bus backends.
func (r *JournalRecord) Key() string {
	if r.Name != "" {
		return r.Name
	}
	return r.SessionID
}
