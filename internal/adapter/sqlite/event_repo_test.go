package sqlite

import (
	"context"
	"testing"
	"time"

	"pouchlog/internal/domain"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestAddAndListEvents(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	userID := int64(1)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for _, e := range []domain.DoseEvent{
		{ID: "b", Content: 4, StartTime: base.Add(10 * time.Minute), PlannedDuration: 30 * time.Minute},
		{ID: "a", Content: 6, StartTime: base, PlannedDuration: 30 * time.Minute},
	} {
		if err := db.AddEvent(ctx, userID, e); err != nil {
			t.Fatalf("AddEvent(%s): %v", e.ID, err)
		}
	}

	open, err := db.ListOpenEvents(ctx, userID)
	if err != nil {
		t.Fatalf("ListOpenEvents: %v", err)
	}
	if len(open) != 2 || open[0].ID != "a" || open[1].ID != "b" {
		t.Fatalf("open events = %+v, want a then b ascending", open)
	}
	if open[0].Content != 6 || open[0].PlannedDuration != 30*time.Minute {
		t.Errorf("roundtripped event = %+v", open[0])
	}
	if !open[0].StartTime.Equal(base) {
		t.Errorf("start time = %s, want %s", open[0].StartTime, base)
	}

	since, err := db.ListEventsSince(ctx, userID, base.Add(5*time.Minute))
	if err != nil {
		t.Fatalf("ListEventsSince: %v", err)
	}
	if len(since) != 1 || since[0].ID != "b" {
		t.Fatalf("events since = %+v, want just b", since)
	}

	recent, err := db.ListRecentEvents(ctx, userID, 1)
	if err != nil {
		t.Fatalf("ListRecentEvents: %v", err)
	}
	if len(recent) != 1 || recent[0].ID != "b" {
		t.Fatalf("recent = %+v, want just the newest", recent)
	}
}

func TestCloseEvent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	userID := int64(1)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	e := domain.DoseEvent{ID: "a", Content: 6, StartTime: base, PlannedDuration: 30 * time.Minute}
	if err := db.AddEvent(ctx, userID, e); err != nil {
		t.Fatalf("AddEvent: %v", err)
	}

	ok, err := db.CloseEvent(ctx, userID, "a", base.Add(20*time.Minute))
	if err != nil || !ok {
		t.Fatalf("CloseEvent = %v, %v; want true, nil", ok, err)
	}

	// The conditional update makes repeated closes benign: the second writer
	// loses the race and is told so without an error.
	ok, err = db.CloseEvent(ctx, userID, "a", base.Add(25*time.Minute))
	if err != nil || ok {
		t.Fatalf("second CloseEvent = %v, %v; want false, nil", ok, err)
	}
	if ok, _ := db.CloseEvent(ctx, userID, "missing", base); ok {
		t.Error("closing a missing event reported success")
	}

	events, err := db.ListEventsSince(ctx, userID, base.Add(-time.Hour))
	if err != nil {
		t.Fatalf("ListEventsSince: %v", err)
	}
	if len(events) != 1 || events[0].EndTime == nil {
		t.Fatalf("events = %+v, want one closed event", events)
	}
	if !events[0].EndTime.Equal(base.Add(20 * time.Minute)) {
		t.Errorf("end time = %s, want the first close to stick", events[0].EndTime)
	}

	open, _ := db.ListOpenEvents(ctx, userID)
	if len(open) != 0 {
		t.Errorf("open events = %+v, want none", open)
	}
}

func TestUserIsolation(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	e := domain.DoseEvent{ID: "a", Content: 6, StartTime: base, PlannedDuration: 30 * time.Minute}
	if err := db.AddEvent(ctx, 1, e); err != nil {
		t.Fatalf("AddEvent: %v", err)
	}

	if open, _ := db.ListOpenEvents(ctx, 2); len(open) != 0 {
		t.Errorf("user 2 sees %d events, want 0", len(open))
	}
	if ok, _ := db.CloseEvent(ctx, 2, "a", base.Add(time.Minute)); ok {
		t.Error("user 2 closed another user's event")
	}
}
