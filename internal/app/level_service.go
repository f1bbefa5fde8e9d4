package app

import (
	"context"
	"fmt"
	"iter"
	"time"

	"pouchlog/internal/domain"
)

// LevelPoint is a single (timestamp, level) sample.
type LevelPoint struct {
	Time  time.Time `json:"time"`
	Level float64   `json:"levelMg"`
}

// TotalLevelAt sums the contribution of every event that has started by the
// query time. The result is floored at 0 to guard against floating-point
// underflow producing tiny negatives.
func TotalLevelAt(p domain.Params, events []domain.DoseEvent, at time.Time) float64 {
	total := 0.0
	for _, e := range events {
		if e.StartTime.After(at) {
			continue
		}
		total += p.Contribution(e, at)
	}
	if total < 0 {
		return 0
	}
	return total
}

// Series yields (timestamp, level) samples at a fixed stride from from to to
// inclusive, ascending. It is a pure function of its inputs: the sequence is
// finite, restartable, and deterministic.
func Series(p domain.Params, events []domain.DoseEvent, from, to time.Time, stride time.Duration) iter.Seq[LevelPoint] {
	if stride < time.Second {
		stride = time.Second
	}
	return func(yield func(LevelPoint) bool) {
		for t := from; !t.After(to); t = t.Add(stride) {
			if !yield(LevelPoint{Time: t, Level: TotalLevelAt(p, events, t)}) {
				return
			}
		}
	}
}

// LevelService computes current levels and historical series over the event
// repository, applying the lookback window policy: only events starting
// within five half-lives of the earliest sample can contribute measurably,
// so older ones are not fetched.
type LevelService struct {
	repo   domain.EventRepository
	params domain.Params
}

// NewLevelService creates a LevelService backed by the given repository.
func NewLevelService(repo domain.EventRepository, params domain.Params) *LevelService {
	return &LevelService{repo: repo, params: params}
}

// Params returns the model constants the service computes with.
func (s *LevelService) Params() domain.Params {
	return s.params
}

// CurrentLevel returns the total active amount at the given instant.
func (s *LevelService) CurrentLevel(ctx context.Context, userID int64, at time.Time) (float64, error) {
	events, err := s.repo.ListEventsSince(ctx, userID, at.Add(-s.params.Lookback()))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return TotalLevelAt(s.params, events, at), nil
}

// HistorySeries returns level samples between from and to at the given
// stride, collected in ascending time order.
func (s *LevelService) HistorySeries(ctx context.Context, userID int64, from, to time.Time, stride time.Duration) ([]LevelPoint, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("series range is inverted")
	}
	events, err := s.repo.ListEventsSince(ctx, userID, from.Add(-s.params.Lookback()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	var points []LevelPoint
	for pt := range Series(s.params, events, from, to, stride) {
		points = append(points, pt)
	}
	return points, nil
}
