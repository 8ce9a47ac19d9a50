package models

import "time"

// -----------------------------------------------------------------------------
// Source kinds and status
// -----------------------------------------------------------------------------

type SourceKind string

const (
	KindStocks  SourceKind = "stocks"
	KindWeather SourceKind = "weather"
	KindNews    SourceKind = "news"
)

type SnapshotStatus string

const (
	StatusUnknown  SnapshotStatus = "unknown"
	StatusOK       SnapshotStatus = "ok"
	StatusDegraded SnapshotStatus = "degraded"
	StatusError    SnapshotStatus = "error"
)

// -----------------------------------------------------------------------------

// MSnapshot is the last known state of one external data source.
// Payload is nil until the first successful fetch lands.
type MSnapshot struct {
	SourceID  string         `json:"source_id"`
	Kind      SourceKind     `json:"kind"`
	Payload   Payload        `json:"payload"`
	FetchedAt time.Time      `json:"fetched_at"`
	Status    SnapshotStatus `json:"status"`
	LastOKAt  time.Time      `json:"last_ok_at"`
	Error     string         `json:"error,omitempty"`
	Failures  int            `json:"failures"`

	// Forced marks a result produced by an out-of-band refresh.
	Forced bool `json:"-"`
}

// -----------------------------------------------------------------------------

// HasPayload reports whether a good payload has ever been recorded.
func (s MSnapshot) HasPayload() bool {
	return s.Payload != nil
}

// -----------------------------------------------------------------------------

// UnknownSnapshot is what the cache reports for a source before its first tick.
func UnknownSnapshot(sourceID string, kind SourceKind) MSnapshot {
	return MSnapshot{
		SourceID: sourceID,
		Kind:     kind,
		Status:   StatusUnknown,
	}
}
