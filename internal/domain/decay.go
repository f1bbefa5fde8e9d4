package domain

import (
	"math"
	"time"
)

// Params holds the absorption/decay constants. They are threaded explicitly
// into every computation so the formulas stay pure and reproducible bit-for-bit
// across processes; nothing in this file reads ambient configuration or the
// wall clock.
type Params struct {
	// AbsorptionFraction is the fraction of declared content ultimately
	// absorbed while a pouch is in effect.
	AbsorptionFraction float64
	// HalfLife is the exponential decay time constant after an event ends.
	HalfLife time.Duration
}

// DefaultParams returns the standard model constants: 30% absorption and a
// two-hour half-life.
func DefaultParams() Params {
	return Params{
		AbsorptionFraction: 0.30,
		HalfLife:           2 * time.Hour,
	}
}

// minFullRelease guards the absorption formula against division by zero when
// an event was closed (or configured) with a degenerate duration.
const minFullRelease = time.Second

// Absorbed returns the amount of content absorbed after timeInEffect against
// a full release time. Monotone non-decreasing in timeInEffect, 0 at 0, and
// saturating at content * AbsorptionFraction once timeInEffect >= fullRelease.
func (p Params) Absorbed(content float64, timeInEffect, fullRelease time.Duration) float64 {
	if timeInEffect <= 0 {
		return 0
	}
	if fullRelease < minFullRelease {
		fullRelease = minFullRelease
	}
	frac := p.AbsorptionFraction * (timeInEffect.Seconds() / fullRelease.Seconds())
	if frac > p.AbsorptionFraction {
		frac = p.AbsorptionFraction
	}
	return content * frac
}

// Decayed returns the remaining amount sinceEnd after an initial level,
// halving every halfLife. It equals initial at sinceEnd = 0 and approaches
// zero asymptotically; callers bound negligible tails with a lookback window
// rather than a hard floor.
func Decayed(initial float64, sinceEnd, halfLife time.Duration) float64 {
	if sinceEnd <= 0 {
		return initial
	}
	if halfLife < minFullRelease {
		halfLife = minFullRelease
	}
	return initial * math.Pow(0.5, sinceEnd.Seconds()/halfLife.Seconds())
}

// Contribution returns the instantaneous amount attributable to one event at
// the query time.
//
// Before StartTime the contribution is zero. Up to the effective end the event
// is absorbing against its actual effective duration, so an event closed early
// correctly shows a lower absorbed fraction. Past the effective end the amount
// absorbed at that instant decays exponentially. The absorption value at the
// effective end equals the decay value at zero elapsed, so the curve is
// continuous for every event regardless of how it was closed.
func (p Params) Contribution(e DoseEvent, at time.Time) float64 {
	if at.Before(e.StartTime) {
		return 0
	}
	end := e.EffectiveEnd()
	if !at.After(end) {
		return p.Absorbed(e.Content, at.Sub(e.StartTime), e.EffectiveDuration())
	}
	atEnd := p.Absorbed(e.Content, end.Sub(e.StartTime), e.EffectiveDuration())
	return Decayed(atEnd, at.Sub(end), p.HalfLife)
}

// Lookback is the window beyond which an ended event's contribution is treated
// as negligible: five half-lives (under 3.2% of its peak remains).
func (p Params) Lookback() time.Duration {
	return 5 * p.HalfLife
}

// RoundLevel rounds a level to the three decimal places used at every display
// boundary. Internal computation stays at full precision; rounding here keeps
// independent consumer surfaces in exact agreement.
func RoundLevel(v float64) float64 {
	return math.Round(v*1000) / 1000
}
