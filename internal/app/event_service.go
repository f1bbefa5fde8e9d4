// Package app holds the application services and business logic.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"pouchlog/internal/domain"
)

const (
	minContentMg = 0.1
	maxContentMg = 100
	minDuration  = time.Minute
	maxDuration  = 4 * time.Hour
)

// EventService encapsulates dose event logging use cases. It is the
// validation boundary: malformed events are rejected here and never enter
// the core.
type EventService struct {
	repo domain.EventRepository
}

// NewEventService creates an EventService backed by the given repository.
func NewEventService(repo domain.EventRepository) *EventService {
	return &EventService{repo: repo}
}

// LogEvent validates and stores a new dose event starting now, returning the
// stored event.
func (s *EventService) LogEvent(ctx context.Context, userID int64, contentMg float64, plannedDuration time.Duration) (domain.DoseEvent, error) {
	if contentMg < minContentMg || contentMg > maxContentMg {
		return domain.DoseEvent{}, fmt.Errorf("%w: content must be within [%g, %g] mg", domain.ErrInvalidEvent, float64(minContentMg), float64(maxContentMg))
	}
	if plannedDuration < minDuration || plannedDuration > maxDuration {
		return domain.DoseEvent{}, fmt.Errorf("%w: planned duration must be within [%s, %s]", domain.ErrInvalidEvent, minDuration, maxDuration)
	}

	e := domain.DoseEvent{
		ID:              uuid.NewString(),
		UserID:          userID,
		Content:         contentMg,
		StartTime:       time.Now().UTC(),
		PlannedDuration: plannedDuration,
	}
	if err := e.Validate(); err != nil {
		return domain.DoseEvent{}, err
	}
	if err := s.repo.AddEvent(ctx, userID, e); err != nil {
		return domain.DoseEvent{}, err
	}
	return e, nil
}

// CloseEvent sets the end time on an open event. Returns false when the event
// was already closed or does not exist; that is a benign outcome, not an
// error.
func (s *EventService) CloseEvent(ctx context.Context, userID int64, id string, endTime time.Time) (bool, error) {
	if id == "" {
		return false, errors.New("event id required")
	}
	return s.repo.CloseEvent(ctx, userID, id, endTime.UTC())
}

// CloseAll closes every open event at the given time and returns how many
// were closed.
func (s *EventService) CloseAll(ctx context.Context, userID int64, endTime time.Time) (int, error) {
	open, err := s.repo.ListOpenEvents(ctx, userID)
	if err != nil {
		return 0, err
	}
	closed := 0
	for _, e := range open {
		ok, err := s.repo.CloseEvent(ctx, userID, e.ID, endTime.UTC())
		if err != nil {
			return closed, err
		}
		if ok {
			closed++
		}
	}
	return closed, nil
}

// ListOpen returns the currently open events, ascending by start time.
func (s *EventService) ListOpen(ctx context.Context, userID int64) ([]domain.DoseEvent, error) {
	return s.repo.ListOpenEvents(ctx, userID)
}

// ListRecent returns the most recent events up to limit.
func (s *EventService) ListRecent(ctx context.Context, userID int64, limit int) ([]domain.DoseEvent, error) {
	return s.repo.ListRecentEvents(ctx, userID, limit)
}
