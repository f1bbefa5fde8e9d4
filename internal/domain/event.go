// Package domain contains the core business entities and interfaces.
package domain

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidEvent indicates that a dose event failed validation at the
// creation boundary.
var ErrInvalidEvent = errors.New("invalid dose event")

// DoseEvent represents a single pouch intake. Content, StartTime and
// PlannedDuration are immutable once committed; EndTime is set exactly once
// when the event is closed and never cleared.
type DoseEvent struct {
	ID              string        `json:"id"`
	UserID          int64         `json:"userId"`
	Content         float64       `json:"contentMg"`
	StartTime       time.Time     `json:"startTime"`
	EndTime         *time.Time    `json:"endTime,omitempty"`
	PlannedDuration time.Duration `json:"plannedDurationNs"`
}

// Open reports whether the event has not been explicitly closed.
func (e DoseEvent) Open() bool {
	return e.EndTime == nil
}

// EffectiveEnd is the explicit end time if set, otherwise the natural
// absorption boundary StartTime + PlannedDuration.
func (e DoseEvent) EffectiveEnd() time.Time {
	if e.EndTime != nil {
		return *e.EndTime
	}
	return e.StartTime.Add(e.PlannedDuration)
}

// EffectiveDuration is the duration the absorption clock runs against: the
// actual in-effect time for closed events, the planned duration otherwise.
func (e DoseEvent) EffectiveDuration() time.Duration {
	if e.EndTime != nil {
		return e.EndTime.Sub(e.StartTime)
	}
	return e.PlannedDuration
}

// RemainingAt returns the time left until the natural boundary, clamped at 0.
func (e DoseEvent) RemainingAt(now time.Time) time.Duration {
	rem := e.PlannedDuration - now.Sub(e.StartTime)
	if rem < 0 {
		return 0
	}
	return rem
}

// Validate checks the invariants an event must satisfy before it enters the
// core: positive content, positive planned duration, and EndTime (when
// present) not before StartTime.
func (e DoseEvent) Validate() error {
	if e.Content <= 0 {
		return ErrInvalidEvent
	}
	if e.PlannedDuration <= 0 {
		return ErrInvalidEvent
	}
	if e.StartTime.IsZero() {
		return ErrInvalidEvent
	}
	if e.EndTime != nil && e.EndTime.Before(e.StartTime) {
		return ErrInvalidEvent
	}
	return nil
}

// EventRepository is the port for dose event persistence. Implementations
// must return events in ascending StartTime order from the list queries.
type EventRepository interface {
	AddEvent(ctx context.Context, userID int64, e DoseEvent) error
	// CloseEvent sets EndTime on an open event. Returns false without error
	// when the event is missing or already closed (benign race).
	CloseEvent(ctx context.Context, userID int64, id string, endTime time.Time) (bool, error)
	// ListEventsSince returns events with StartTime >= since, ascending.
	ListEventsSince(ctx context.Context, userID int64, since time.Time) ([]DoseEvent, error)
	// ListOpenEvents returns events with no EndTime, ascending by StartTime.
	ListOpenEvents(ctx context.Context, userID int64) ([]DoseEvent, error)
	ListRecentEvents(ctx context.Context, userID int64, limit int) ([]DoseEvent, error)
}
