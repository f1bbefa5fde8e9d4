package app

import (
	"context"
	"errors"
	"log"
	"time"

	"pouchlog/internal/domain"
)

// SyncManager consumes remote-change notifications from peer devices sharing
// the same logical state. A notification never carries trusted state: it only
// prompts the live controller to re-validate against the authoritative store.
// When the store is unreachable, a reachable peer's snapshot is adopted as
// the stale fallback so constrained consumers still have something to show.
type SyncManager struct {
	live  *LiveService
	snaps domain.SnapshotStore
	peer  domain.Peer
}

// NewSyncManager creates a SyncManager. peer may be nil when the deployment
// has no paired devices.
func NewSyncManager(live *LiveService, snaps domain.SnapshotStore, peer domain.Peer) *SyncManager {
	return &SyncManager{live: live, snaps: snaps, peer: peer}
}

// HandleRemoteChange resyncs the live state after a peer reports that the
// shared event store changed. Racing notifications are serialized by the
// controller and collapse into idempotent recomputes.
func (m *SyncManager) HandleRemoteChange(ctx context.Context, now time.Time) error {
	_, err := m.live.Sync(ctx, now)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		return err
	}

	// Deferred transition: try to refresh the snapshot from the peer so the
	// fallback read is as fresh as the network allows.
	if m.peer == nil || !m.peer.Reachable() {
		return err
	}
	rec, ferr := m.peer.FetchSnapshot(ctx)
	if ferr != nil || rec == nil {
		log.Printf("sync: peer snapshot fetch failed: %v", ferr)
		return err
	}

	local, _ := m.snaps.ReadSnapshot()
	if local != nil && !rec.LastUpdated.After(local.LastUpdated) {
		// Last-writer-wins: the local record is at least as fresh.
		return err
	}
	if werr := m.snaps.WriteSnapshot(*rec); werr != nil {
		log.Printf("sync: adopt peer snapshot: %v", werr)
	}
	return err
}
