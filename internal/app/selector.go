package app

import (
	"time"

	"pouchlog/internal/domain"
)

// Selection is the outcome of picking a single representative among the
// currently open events: a single countdown cannot represent N independent
// timers, so the most time-constrained clock is shown alongside the combined
// dose of everything open, and the displayed number is never understated.
type Selection struct {
	Representative domain.DoseEvent
	EndTime        time.Time
	AggregateDose  float64
}

// SelectActive picks the representative from the open events as of now: the
// event with the longest remaining time drives the countdown, with ties
// broken by earliest start time (the oldest is closest to completion and most
// urgent to surface). Returns false when no events are open.
func SelectActive(open []domain.DoseEvent, now time.Time) (Selection, bool) {
	if len(open) == 0 {
		return Selection{}, false
	}

	best := open[0]
	for _, e := range open[1:] {
		switch {
		case e.RemainingAt(now) > best.RemainingAt(now):
			best = e
		case e.RemainingAt(now) == best.RemainingAt(now) && e.StartTime.Before(best.StartTime):
			best = e
		}
	}

	total := 0.0
	for _, e := range open {
		total += e.Content
	}

	return Selection{
		Representative: best,
		EndTime:        best.StartTime.Add(best.PlannedDuration),
		AggregateDose:  total,
	}, true
}
