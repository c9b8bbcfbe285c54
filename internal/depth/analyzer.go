// Package depth computes liquidity and market-impact measures over a single
// order-book snapshot. Every function is pure: the snapshot is read-only and
// no I/O happens here.
package depth

import (
	"fmt"
	"math"

	"github.com/Trong-Tra/Clione/internal/domain"
	"github.com/Trong-Tra/Clione/pkg/safe"
)

// slippageSafetyMargin shaves the suggested maximum size below the exact
// tolerance boundary so book movement between estimate and submission does
// not immediately breach it.
const slippageSafetyMargin = 0.9

// Analysis summarizes both sides of a snapshot.
type Analysis struct {
	TotalBidVolume float64 `json:"total_bid_volume"`
	TotalAskVolume float64 `json:"total_ask_volume"`
	BidDepth       int     `json:"bid_depth"`
	AskDepth       int     `json:"ask_depth"`
	Spread         float64 `json:"spread"`
	SpreadPct      float64 `json:"spread_pct"`
	MidPrice       float64 `json:"mid_price"`
}

// SlippageEstimate is the projected outcome of crossing the book with a
// hypothetical order.
type SlippageEstimate struct {
	EstimatedPrice float64 `json:"estimated_price"`
	SlippagePct    float64 `json:"slippage_pct"`
	LevelsConsumed int     `json:"levels_consumed"`
	WouldExecute   bool    `json:"would_execute"`
}

// ConstraintResult is the admission-control answer for one proposed size.
type ConstraintResult struct {
	CanHandle          bool    `json:"can_handle"`
	Reason             string  `json:"reason,omitempty"`
	SuggestedMaxVolume float64 `json:"suggested_max_volume,omitempty"`
}

// Analyze computes best bid/ask, spread and total depth for a snapshot.
// A zero-depth snapshot yields a zero Analysis.
func Analyze(book *domain.BookSnapshot) Analysis {
	var a Analysis
	if book == nil {
		return a
	}

	for _, lvl := range book.Bids {
		a.TotalBidVolume += lvl.Size
	}
	for _, lvl := range book.Asks {
		a.TotalAskVolume += lvl.Size
	}
	a.BidDepth = len(book.Bids)
	a.AskDepth = len(book.Asks)

	bid, ask := book.BestBid().Price, book.BestAsk().Price
	if bid > 0 && ask > 0 {
		a.Spread = ask - bid
		a.MidPrice = (ask + bid) / 2
		a.SpreadPct = safe.Pct(a.Spread, a.MidPrice)
	}
	return a
}

// EstimateSlippage walks the opposing side of the book in price priority
// order, consuming level sizes until size is filled or the book is exhausted.
// Slippage is the absolute deviation of the size-weighted average fill price
// from the best available price, as a percentage. An unfillable size reports
// WouldExecute=false with slippage saturated at 100.
func EstimateSlippage(book *domain.BookSnapshot, size float64, side domain.Side) SlippageEstimate {
	levels := opposing(book, side)
	best := 0.0
	if len(levels) > 0 {
		best = levels[0].Price
	}

	if size == 0 {
		return SlippageEstimate{EstimatedPrice: best, SlippagePct: 0, WouldExecute: true}
	}
	if !safe.FinitePositive(size) || len(levels) == 0 {
		return SlippageEstimate{SlippagePct: 100, WouldExecute: false}
	}

	var cost, filled float64
	consumed := 0
	for _, lvl := range levels {
		take := math.Min(size-filled, lvl.Size)
		if take <= 0 {
			break
		}
		cost += take * lvl.Price
		filled += take
		consumed++
		if filled >= size {
			break
		}
	}

	if filled < size {
		return SlippageEstimate{
			EstimatedPrice: safe.Div(cost, filled, 0),
			SlippagePct:    100,
			LevelsConsumed: consumed,
			WouldExecute:   false,
		}
	}

	avg := cost / size
	return SlippageEstimate{
		EstimatedPrice: avg,
		SlippagePct:    safe.Pct(math.Abs(avg-best), best),
		LevelsConsumed: consumed,
		WouldExecute:   true,
	}
}

// CheckVolumeConstraint admits or rejects a proposed size. Participation is
// checked first: a size above maxVolumeRatio of the relevant side's total
// depth is rejected with a smaller suggestion. A size whose estimated
// slippage breaches maxSlippagePct is rejected with the largest size that
// stays inside the tolerance (with the safety margin applied).
func CheckVolumeConstraint(book *domain.BookSnapshot, size float64, side domain.Side, maxSlippagePct, maxVolumeRatio float64) ConstraintResult {
	if !safe.FinitePositive(size) {
		return ConstraintResult{CanHandle: false, Reason: "size must be positive"}
	}

	levels := opposing(book, side)
	var total float64
	for _, lvl := range levels {
		total += lvl.Size
	}
	if total <= 0 {
		return ConstraintResult{CanHandle: false, Reason: "no liquidity on the opposing side"}
	}

	if maxVolumeRatio > 0 && size > total*maxVolumeRatio {
		cap := total * maxVolumeRatio
		return ConstraintResult{
			CanHandle:          false,
			Reason:             fmt.Sprintf("size %.8g exceeds %.4g%% of visible depth %.8g", size, maxVolumeRatio*100, total),
			SuggestedMaxVolume: cap,
		}
	}

	est := EstimateSlippage(book, size, side)
	if !est.WouldExecute {
		return ConstraintResult{
			CanHandle:          false,
			Reason:             "book depth insufficient to fill the requested size",
			SuggestedMaxVolume: MaxSizeWithinSlippage(book, side, maxSlippagePct) * slippageSafetyMargin,
		}
	}
	if est.SlippagePct > maxSlippagePct {
		return ConstraintResult{
			CanHandle:          false,
			Reason:             fmt.Sprintf("estimated slippage %.4f%% exceeds tolerance %.4f%%", est.SlippagePct, maxSlippagePct),
			SuggestedMaxVolume: MaxSizeWithinSlippage(book, side, maxSlippagePct) * slippageSafetyMargin,
		}
	}
	return ConstraintResult{CanHandle: true}
}

// MaxSizeWithinSlippage finds the largest size whose size-weighted average
// fill price stays within maxSlippagePct of the best price, by walking the
// book until the running average would breach the tolerance.
func MaxSizeWithinSlippage(book *domain.BookSnapshot, side domain.Side, maxSlippagePct float64) float64 {
	levels := opposing(book, side)
	if len(levels) == 0 || maxSlippagePct < 0 {
		return 0
	}
	best := levels[0].Price
	if best <= 0 {
		return 0
	}

	// target is the worst acceptable average fill price.
	target := best * (1 + maxSlippagePct/100)
	if side == domain.SideSell {
		target = best * (1 - maxSlippagePct/100)
	}

	var cost, filled float64
	for _, lvl := range levels {
		within := lvl.Price <= target
		if side == domain.SideSell {
			within = lvl.Price >= target
		}
		if within {
			// The whole level keeps the average inside the tolerance.
			cost += lvl.Size * lvl.Price
			filled += lvl.Size
			continue
		}

		// Partial take: solve (cost + x*p) / (filled + x) == target.
		denom := target - lvl.Price
		if denom == 0 {
			break
		}
		x := (cost - filled*target) / denom
		if x > 0 {
			if x > lvl.Size {
				x = lvl.Size
			}
			filled += x
		}
		break
	}
	return filled
}

// opposing returns the side of the book an order would consume: asks for a
// buy, bids for a sell. Both are already in price priority order.
func opposing(book *domain.BookSnapshot, side domain.Side) []domain.BookLevel {
	if book == nil {
		return nil
	}
	if side == domain.SideBuy {
		return book.Asks
	}
	return book.Bids
}
