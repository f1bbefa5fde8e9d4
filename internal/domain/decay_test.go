package domain_test

import (
	"math"
	"testing"
	"time"

	"pouchlog/internal/domain"
)

func almostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) < epsilon
}

func openEvent(id string, content float64, start time.Time, planned time.Duration) domain.DoseEvent {
	return domain.DoseEvent{
		ID:              id,
		UserID:          1,
		Content:         content,
		StartTime:       start,
		PlannedDuration: planned,
	}
}

func closedEvent(id string, content float64, start time.Time, planned time.Duration, end time.Time) domain.DoseEvent {
	e := openEvent(id, content, start, planned)
	e.EndTime = &end
	return e
}

func TestAbsorbed(t *testing.T) {
	p := domain.DefaultParams()

	tests := []struct {
		name         string
		content      float64
		timeInEffect time.Duration
		fullRelease  time.Duration
		want         float64
	}{
		{"zero at start", 6, 0, 30 * time.Minute, 0},
		{"negative clamps to zero", 6, -time.Minute, 30 * time.Minute, 0},
		{"half way", 6, 15 * time.Minute, 30 * time.Minute, 0.9},
		{"one third", 6, 10 * time.Minute, 30 * time.Minute, 0.6},
		{"full at boundary", 6, 30 * time.Minute, 30 * time.Minute, 1.8},
		{"saturates past boundary", 6, 45 * time.Minute, 30 * time.Minute, 1.8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Absorbed(tt.content, tt.timeInEffect, tt.fullRelease)
			if !almostEqual(got, tt.want, 1e-9) {
				t.Errorf("Absorbed(%g, %s, %s) = %g, want %g", tt.content, tt.timeInEffect, tt.fullRelease, got, tt.want)
			}
		})
	}
}

func TestAbsorbedMonotone(t *testing.T) {
	p := domain.DefaultParams()
	prev := -1.0
	for m := 0; m <= 60; m++ {
		got := p.Absorbed(8, time.Duration(m)*time.Minute, 30*time.Minute)
		if got < prev {
			t.Fatalf("absorption decreased at minute %d: %g -> %g", m, prev, got)
		}
		prev = got
	}
}

func TestDecayedHalvesEveryHalfLife(t *testing.T) {
	const initial = 1.2
	halfLife := 2 * time.Hour

	if got := domain.Decayed(initial, 0, halfLife); got != initial {
		t.Errorf("Decayed at 0 = %g, want %g", got, initial)
	}
	if got := domain.Decayed(initial, halfLife, halfLife); !almostEqual(got, initial/2, 1e-9) {
		t.Errorf("Decayed after one half-life = %g, want %g", got, initial/2)
	}
	if got := domain.Decayed(initial, 2*halfLife, halfLife); !almostEqual(got, initial/4, 1e-9) {
		t.Errorf("Decayed after two half-lives = %g, want %g", got, initial/4)
	}
	if got := domain.Decayed(initial, time.Hour, halfLife); !almostEqual(got, initial*math.Pow(0.5, 0.5), 1e-9) {
		t.Errorf("Decayed after half a half-life = %g, want %g", got, initial*math.Pow(0.5, 0.5))
	}
}

func TestContributionZeroBeforeStart(t *testing.T) {
	p := domain.DefaultParams()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e := openEvent("a", 6, start, 30*time.Minute)

	for _, at := range []time.Time{
		start.Add(-time.Nanosecond),
		start.Add(-time.Hour),
		start.Add(-24 * time.Hour),
	} {
		if got := p.Contribution(e, at); got != 0 {
			t.Errorf("Contribution at %s before start = %g, want 0", at, got)
		}
	}
}

func TestContributionDuringAbsorption(t *testing.T) {
	p := domain.DefaultParams()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e := openEvent("a", 6, start, 30*time.Minute)

	// 900s into an 1800s event: half of the full 1.8mg.
	if got := p.Contribution(e, start.Add(15*time.Minute)); !almostEqual(got, 0.9, 1e-9) {
		t.Errorf("Contribution half way = %g, want 0.9", got)
	}
	// Full absorption exactly at the natural boundary.
	if got := p.Contribution(e, start.Add(30*time.Minute)); !almostEqual(got, 6*0.30, 1e-9) {
		t.Errorf("Contribution at boundary = %g, want %g", got, 6*0.30)
	}
}

func TestContributionDecayAfterClose(t *testing.T) {
	p := domain.DefaultParams()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)
	e := closedEvent("b", 4, start, 30*time.Minute, end)

	// Closed exactly at the planned duration: 1.2mg absorbed, then one hour of
	// decay against a two-hour half-life.
	want := 1.2 * math.Pow(0.5, 0.5)
	if got := p.Contribution(e, end.Add(time.Hour)); !almostEqual(got, want, 1e-9) {
		t.Errorf("Contribution one hour after close = %g, want %g", got, want)
	}
}

func TestContributionContinuousAtEffectiveEnd(t *testing.T) {
	p := domain.DefaultParams()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		e    domain.DoseEvent
	}{
		{"closed at planned", closedEvent("a", 6, start, 30*time.Minute, start.Add(30*time.Minute))},
		{"closed early", closedEvent("b", 6, start, 30*time.Minute, start.Add(10*time.Minute))},
		{"closed late", closedEvent("c", 6, start, 30*time.Minute, start.Add(50*time.Minute))},
		{"still open", openEvent("d", 6, start, 30*time.Minute)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			end := tt.e.EffectiveEnd()
			before := p.Contribution(tt.e, end)
			after := p.Contribution(tt.e, end.Add(time.Millisecond))
			if !almostEqual(before, after, 1e-4) {
				t.Errorf("discontinuity at effective end: %g vs %g", before, after)
			}
		})
	}
}

// Overlapping events: one absorbing a third of the way in, one decaying half a
// half-life past its close, one absorbing a sixth of the way in.
func TestContributionOverlappingEvents(t *testing.T) {
	p := domain.DefaultParams()
	now := time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC)

	a := openEvent("a", 6, now.Add(-10*time.Minute), 30*time.Minute)
	b := closedEvent("b", 4, now.Add(-60*time.Minute), 30*time.Minute, now.Add(-30*time.Minute))
	c := openEvent("c", 8, now.Add(-5*time.Minute), 30*time.Minute)

	total := p.Contribution(a, now) + p.Contribution(b, now) + p.Contribution(c, now)
	want := 0.6 + 1.2*math.Pow(0.5, 0.25) + 0.4
	if !almostEqual(total, want, 1e-9) {
		t.Errorf("total = %g, want %g", total, want)
	}
	if !almostEqual(total, 2.01, 0.01) {
		t.Errorf("total = %g, want ~2.01", total)
	}
}

func TestLookback(t *testing.T) {
	p := domain.DefaultParams()
	if got := p.Lookback(); got != 10*time.Hour {
		t.Errorf("Lookback = %s, want 10h", got)
	}

	// Past the lookback window a contribution is negligible: under 3.2% of
	// its peak.
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	e := closedEvent("a", 100, start, 30*time.Minute, start.Add(30*time.Minute))
	peak := p.Contribution(e, start.Add(30*time.Minute))
	tail := p.Contribution(e, start.Add(30*time.Minute).Add(p.Lookback()))
	if tail > peak*0.032 {
		t.Errorf("tail %g exceeds 3.2%% of peak %g", tail, peak)
	}
}

func TestRoundLevel(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{2.00915, 2.009},
		{0.84853, 0.849},
		{0.0004, 0},
		{0.0005, 0.001},
		{1.9999, 2},
	}
	for _, tt := range tests {
		if got := domain.RoundLevel(tt.in); got != tt.want {
			t.Errorf("RoundLevel(%g) = %g, want %g", tt.in, got, tt.want)
		}
	}
}
