// Package vwap maintains a running volume-weighted average price over a
// session of bars. One State instance is owned by, and scoped to, one
// execution run.
package vwap

import (
	"time"

	"github.com/Trong-Tra/Clione/internal/domain"
	"github.com/Trong-Tra/Clione/pkg/safe"
)

// State is a value object: operations return a new State and never mutate
// the receiver. CumVolume never decreases; the invariant
// VWAP == CumPV/CumVolume holds whenever CumVolume > 0.
type State struct {
	VWAP        float64   `json:"vwap"`
	CumPV       float64   `json:"cum_pv"`
	CumVolume   float64   `json:"cum_volume"`
	LastUpdated time.Time `json:"last_updated"`
}

// Initialize folds bars in sequence order, skipping invalid ones. A
// numerically degenerate result falls back to the simple average of typical
// prices; no input ever produces an error.
func Initialize(bars []domain.Bar) State {
	var s State
	var tpSum float64
	var tpCount int

	for _, b := range bars {
		if !b.Valid() {
			continue
		}
		tp := b.TypicalPrice()
		s.CumPV += tp * b.Volume
		s.CumVolume += b.Volume
		s.LastUpdated = b.Ts
		tpSum += tp
		tpCount++
	}

	if s.CumVolume > 0 {
		s.VWAP = s.CumPV / s.CumVolume
	}
	if !safe.FinitePositive(s.VWAP) && tpCount > 0 {
		s.VWAP = tpSum / float64(tpCount)
	}
	if !safe.Finite(s.VWAP) {
		s.VWAP = 0
	}
	return s
}

// Absorb folds one new bar into the cumulative sums. Invalid bars (including
// zero volume) leave the state unchanged. If the new VWAP would be
// non-finite, the prior value is retained.
func (s State) Absorb(bar domain.Bar) State {
	if !bar.Valid() {
		return s
	}

	next := s
	next.CumPV += bar.TypicalPrice() * bar.Volume
	next.CumVolume += bar.Volume
	next.LastUpdated = bar.Ts

	v := safe.Div(next.CumPV, next.CumVolume, s.VWAP)
	if !safe.FinitePositive(v) {
		// Retain the prior reference; with no prior session the bar's own
		// typical price is the best available reference.
		v = s.VWAP
		if v == 0 {
			v = bar.TypicalPrice()
		}
	}
	next.VWAP = v
	return next
}

// Reset starts a new session, optionally seeded with one bar's contribution.
// With no seed it returns the zero state.
func (s State) Reset(seed *domain.Bar) State {
	if seed == nil || !seed.Valid() {
		return State{}
	}
	tp := seed.TypicalPrice()
	return State{
		VWAP:        tp,
		CumPV:       tp * seed.Volume,
		CumVolume:   seed.Volume,
		LastUpdated: seed.Ts,
	}
}
