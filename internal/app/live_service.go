package app

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"pouchlog/internal/domain"
)

// LiveState is the live countdown state machine position.
type LiveState int

const (
	// StateAbsent means no live countdown exists.
	StateAbsent LiveState = iota
	// StateActive means exactly one live countdown is outward-facing.
	StateActive
	// StateEnding is the transient state while a close is in flight.
	StateEnding
)

func (s LiveState) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateEnding:
		return "ending"
	default:
		return "absent"
	}
}

// defaultQueryTimeout bounds the authoritative-store queries used for
// precondition re-validation. On timeout the store is treated as unreachable
// and the transition is deferred, never guessed.
const defaultQueryTimeout = 3 * time.Second

// LiveService owns the single outward live countdown for one logical session.
// All transitions pass through one critical section, and every transition
// re-validates its precondition against the authoritative event store at the
// moment it executes. Callers (foreground ticker, background refresh, remote
// sync notification) may race freely: whichever request runs first wins, the
// rest become no-ops, and no interleaving can produce a duplicate or zombie
// representation.
type LiveService struct {
	repo         domain.EventRepository
	snaps        domain.SnapshotStore
	params       domain.Params
	userID       int64
	queryTimeout time.Duration

	mu      sync.Mutex
	state   LiveState
	current *domain.LiveRepresentation

	stopCh chan struct{}
}

// NewLiveService creates the live countdown controller for one logical
// session (user).
func NewLiveService(repo domain.EventRepository, snaps domain.SnapshotStore, params domain.Params, userID int64) *LiveService {
	return &LiveService{
		repo:         repo,
		snaps:        snaps,
		params:       params,
		userID:       userID,
		queryTimeout: defaultQueryTimeout,
		stopCh:       make(chan struct{}),
	}
}

// UserID returns the logical session this controller owns.
func (s *LiveService) UserID() int64 {
	return s.userID
}

// State returns the current state machine position.
func (s *LiveService) State() LiveState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Current returns the live representation, if one exists.
func (s *LiveService) Current() (domain.LiveRepresentation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return domain.LiveRepresentation{}, false
	}
	return *s.current, true
}

// Sync drives the state machine from the authoritative open-event set as of
// now. It creates the representation when absent and events are open,
// recomputes it in place while events remain open, and tears it down when the
// open set empties. Applying the same open-event set twice is a no-op the
// second time.
//
// If the store cannot be queried the transition is deferred: the last
// successfully applied representation stays in effect and
// domain.ErrStoreUnavailable is returned.
func (s *LiveService) Sync(ctx context.Context, now time.Time) (*domain.LiveRepresentation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	qctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	open, err := s.repo.ListOpenEvents(qctx, s.userID)
	if err != nil {
		return s.current, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	sel, ok := SelectActive(open, now)
	switch {
	case !ok && s.state == StateAbsent:
		// Nothing open, nothing shown.
		return nil, nil

	case !ok:
		// Last open event closed (or an end-all landed first): tear down.
		s.state = StateEnding
		s.writeSnapshot(ctx, domain.SnapshotRecord{
			Level:       s.bestLevel(ctx, open, now),
			Running:     false,
			LastUpdated: now,
		})
		log.Printf("live: %s ended", s.current.RepresentativeEventID)
		s.state = StateAbsent
		s.current = nil
		return nil, nil

	case s.state == StateAbsent:
		s.current = &domain.LiveRepresentation{
			RepresentativeEventID: sel.Representative.ID,
			AggregateDose:         sel.AggregateDose,
			EndTime:               sel.EndTime,
			LastUpdated:           now,
		}
		s.state = StateActive
		log.Printf("live: started, representative %s until %s", sel.Representative.ID, sel.EndTime.Format(time.RFC3339))

	default:
		if s.current.RepresentativeEventID == sel.Representative.ID &&
			s.current.EndTime.Equal(sel.EndTime) &&
			s.current.AggregateDose == sel.AggregateDose {
			// Idempotent recompute: nothing changed, no side effects.
			rep := *s.current
			return &rep, nil
		}
		if s.current.RepresentativeEventID != sel.Representative.ID {
			log.Printf("live: representative %s superseded by %s", s.current.RepresentativeEventID, sel.Representative.ID)
		}
		s.current.RepresentativeEventID = sel.Representative.ID
		s.current.AggregateDose = sel.AggregateDose
		s.current.EndTime = sel.EndTime
		s.current.LastUpdated = now
	}

	s.writeSnapshot(ctx, domain.SnapshotRecord{
		Level:                 s.bestLevel(ctx, open, now),
		Running:               true,
		RepresentativeEventID: s.current.RepresentativeEventID,
		EndTime:               s.current.EndTime,
		AggregateDose:         s.current.AggregateDose,
		LastUpdated:           now,
	})
	rep := *s.current
	return &rep, nil
}

// EndAll closes every open event and tears the live representation down.
// Closing an already-closed event is benign; the authoritative set is
// re-queried inside Sync, so a racing EndAll cannot resurrect a countdown.
func (s *LiveService) EndAll(ctx context.Context, now time.Time) (int, error) {
	qctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	open, err := s.repo.ListOpenEvents(qctx, s.userID)
	cancel()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	closed := 0
	for _, e := range open {
		ok, err := s.repo.CloseEvent(ctx, s.userID, e.ID, now.UTC())
		if err != nil {
			return closed, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
		}
		if !ok {
			log.Printf("live: event %s already closed elsewhere", e.ID)
			continue
		}
		closed++
	}

	_, err = s.Sync(ctx, now)
	return closed, err
}

// bestLevel computes the level for the snapshot. It prefers the full lookback
// window so recently closed, still-decaying events count; if that query fails
// mid-transition it degrades to the open set already in hand rather than
// blocking the transition.
func (s *LiveService) bestLevel(ctx context.Context, open []domain.DoseEvent, now time.Time) float64 {
	qctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	events, err := s.repo.ListEventsSince(qctx, s.userID, now.Add(-s.params.Lookback()))
	if err != nil {
		log.Printf("live: level lookback query failed, using open events only: %v", err)
		events = open
	}
	return TotalLevelAt(s.params, events, now)
}

func (s *LiveService) writeSnapshot(ctx context.Context, rec domain.SnapshotRecord) {
	if s.snaps == nil {
		return
	}
	if err := s.snaps.WriteSnapshot(rec); err != nil {
		// The snapshot is a best-effort cache; the representation itself is
		// already consistent.
		log.Printf("live: snapshot write failed: %v", err)
	}
}

// Start runs an initial sync and then resyncs on every tick until Stop is
// called. Tick failures are deferred transitions; the next tick retries.
func (s *LiveService) Start(interval time.Duration) {
	if _, err := s.Sync(context.Background(), time.Now()); err != nil {
		log.Printf("live: initial sync: %v", err)
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if _, err := s.Sync(context.Background(), time.Now()); err != nil {
					log.Printf("live: sync: %v", err)
				}
			case <-s.stopCh:
				return
			}
		}
	}()
}

// Stop shuts down the ticker goroutine.
func (s *LiveService) Stop() {
	close(s.stopCh)
}
