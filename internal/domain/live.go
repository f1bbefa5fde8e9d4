package domain

import (
	"context"
	"errors"
	"time"
)

// ErrStoreUnavailable indicates that the authoritative event store could not
// be queried (failure or timeout). Callers fall back to the last snapshot and
// must surface staleness rather than guess.
var ErrStoreUnavailable = errors.New("event store unavailable")

// LiveRepresentation is the single outward-facing live countdown state for a
// logical session: which event drives the countdown, the combined dose of all
// open events, and when the countdown ends. At most one exists at any time,
// and it is always fully populated.
type LiveRepresentation struct {
	RepresentativeEventID string    `json:"representativeEventId"`
	AggregateDose         float64   `json:"aggregateDoseMg"`
	EndTime               time.Time `json:"endTime"`
	LastUpdated           time.Time `json:"lastUpdated"`
}

// SnapshotRecord is the last-known-good mirror of the live state plus the
// last computed total level. It is written by the live controller after every
// transition and is readable by consumers that cannot reach the authoritative
// store.
type SnapshotRecord struct {
	Level                 float64   `json:"levelMg"`
	Running               bool      `json:"running"`
	RepresentativeEventID string    `json:"representativeEventId,omitempty"`
	EndTime               time.Time `json:"endTime,omitzero"`
	AggregateDose         float64   `json:"aggregateDoseMg,omitempty"`
	LastUpdated           time.Time `json:"lastUpdated"`
}

// Staleness is the age of the record relative to now, clamped at zero against
// clock skew between writer and reader. Consumers display it; they never hide
// it.
func (r SnapshotRecord) Staleness(now time.Time) time.Duration {
	age := now.Sub(r.LastUpdated)
	if age < 0 {
		return 0
	}
	return age
}

// SnapshotStore is the boundary port for the shared snapshot cache.
// Writes are overwrite-only, last-writer-wins by LastUpdated; reads never
// trigger computation.
type SnapshotStore interface {
	WriteSnapshot(rec SnapshotRecord) error
	// ReadSnapshot returns nil when no snapshot has been written yet.
	ReadSnapshot() (*SnapshotRecord, error)
}

// Peer is the cross-device request contract: a synchronous snapshot fetch
// with a reachability flag checked before sending.
type Peer interface {
	Reachable() bool
	FetchSnapshot(ctx context.Context) (*SnapshotRecord, error)
}
