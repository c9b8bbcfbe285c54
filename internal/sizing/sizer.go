// Package sizing adjusts a base slice size using the deviation of the
// current price from the session VWAP reference.
package sizing

import (
	"fmt"

	"github.com/Trong-Tra/Clione/pkg/safe"
)

// Result explains one sizing decision.
type Result struct {
	AdjustedSize      float64 `json:"adjusted_size"`
	Multiplier        float64 `json:"multiplier"`
	PriceDeviationPct float64 `json:"price_deviation_pct"`
	Reason            string  `json:"reason"`
}

// Size computes the adjusted slice size. Degenerate inputs (zero or
// non-finite base, price, or vwap) return the base size unchanged with
// multiplier 1 — a defined degraded mode, not an error.
//
// deviation = (vwap - price) / vwap. Price below VWAP gives a positive
// deviation and a multiplier above 1: buy the dip harder. The sign convention
// is deliberately independent of order side.
func Size(baseSize, currentPrice, vwapRef, alpha, minMult, maxMult float64) Result {
	if !safe.FinitePositive(baseSize) || !safe.FinitePositive(currentPrice) || !safe.FinitePositive(vwapRef) {
		return Result{
			AdjustedSize: baseSize,
			Multiplier:   1,
			Reason:       "degraded: missing price or vwap reference, base size unchanged",
		}
	}

	deviation := (vwapRef - currentPrice) / vwapRef
	raw := 1 + alpha*deviation
	mult := safe.Clamp(raw, minMult, maxMult, 1)

	return Result{
		AdjustedSize:      baseSize * mult,
		Multiplier:        mult,
		PriceDeviationPct: deviation * 100,
		Reason: fmt.Sprintf("deviation %.4f%% -> multiplier %.4f (raw %.4f, bounds [%.2f, %.2f])",
			deviation*100, mult, raw, minMult, maxMult),
	}
}
