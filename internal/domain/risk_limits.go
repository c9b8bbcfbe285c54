package domain

// RiskLimits are the per-run limits the risk monitor enforces. Immutable for
// the lifetime of a run.
type RiskLimits struct {
	// MaxPriceDeviationPct halts the run when price drifts this far from the
	// session start price. Critical.
	MaxPriceDeviationPct float64 `json:"max_price_deviation_pct" yaml:"max_price_deviation_pct"`

	// MaxVolumeRatio caps order size relative to visible side depth. Warning.
	MaxVolumeRatio float64 `json:"max_volume_ratio" yaml:"max_volume_ratio"`

	// MaxSlippagePct halts when the estimated fill slips past this. Critical.
	MaxSlippagePct float64 `json:"max_slippage_pct" yaml:"max_slippage_pct"`

	// MinSpread flags a spread below this floor (degenerate quoting). Warning.
	MinSpread float64 `json:"min_spread" yaml:"min_spread"`

	// MaxOrderNotional caps a single slice's notional. Warning.
	MaxOrderNotional float64 `json:"max_order_notional" yaml:"max_order_notional"`

	// MaxTotalNotional halts when cumulative executed notional exceeds it. Critical.
	MaxTotalNotional float64 `json:"max_total_notional" yaml:"max_total_notional"`

	// WarnEscalateAfter promotes a warning class to critical after this many
	// consecutive occurrences. Zero means warnings never escalate.
	WarnEscalateAfter int `json:"warn_escalate_after" yaml:"warn_escalate_after"`
}

// The three presets are canned value sets, not distinct code paths.

// ConservativeLimits tolerate very little drift or impact.
func ConservativeLimits() RiskLimits {
	return RiskLimits{
		MaxPriceDeviationPct: 1.0,
		MaxVolumeRatio:       0.05,
		MaxSlippagePct:       0.5,
		MinSpread:            0.01,
		MaxOrderNotional:     10_000,
		MaxTotalNotional:     100_000,
	}
}

// BalancedLimits are the defaults.
func BalancedLimits() RiskLimits {
	return RiskLimits{
		MaxPriceDeviationPct: 2.0,
		MaxVolumeRatio:       0.10,
		MaxSlippagePct:       1.0,
		MinSpread:            0.005,
		MaxOrderNotional:     50_000,
		MaxTotalNotional:     500_000,
	}
}

// AggressiveLimits accept meaningful impact in exchange for completion.
func AggressiveLimits() RiskLimits {
	return RiskLimits{
		MaxPriceDeviationPct: 5.0,
		MaxVolumeRatio:       0.25,
		MaxSlippagePct:       2.5,
		MinSpread:            0.001,
		MaxOrderNotional:     250_000,
		MaxTotalNotional:     2_500_000,
	}
}

// LimitsPreset resolves a preset by name, defaulting to balanced.
func LimitsPreset(name string) RiskLimits {
	switch name {
	case "conservative":
		return ConservativeLimits()
	case "aggressive":
		return AggressiveLimits()
	default:
		return BalancedLimits()
	}
}
