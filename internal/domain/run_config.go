package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/Trong-Tra/Clione/pkg/safe"
)

// ErrInvalidConfig wraps every run-configuration validation failure so
// callers can distinguish fatal configuration errors from transient ones.
var ErrInvalidConfig = errors.New("invalid run configuration")

// Default tunables. The limit buffer and band were hard-coded in earlier
// revisions; they are explicit configuration now, with these defaults.
const (
	DefaultAlpha          = 0.5
	DefaultMinMultiplier  = 0.5
	DefaultMaxMultiplier  = 2.0
	DefaultMaxSlippagePct = 1.0
	DefaultVWAPWindow     = 20
	DefaultLimitBufferPct = 0.5 // limit price offset from market, in the order's favor
	DefaultLimitBandPct   = 5.0 // safety band either side of market
	DefaultCandleInterval = "1m"
)

// RunConfig is the immutable configuration of one execution run.
// Validated once at start; never mutated during the run.
type RunConfig struct {
	Coin          string        `json:"coin" yaml:"coin"`
	Side          Side          `json:"side" yaml:"side"`
	TotalQuantity float64       `json:"total_quantity" yaml:"total_quantity"`
	SliceCount    int           `json:"slice_count" yaml:"slice_count"`
	Interval      time.Duration `json:"interval" yaml:"interval"`

	// Dynamic sizing.
	Alpha         float64 `json:"alpha" yaml:"alpha"`
	MinMultiplier float64 `json:"min_multiplier" yaml:"min_multiplier"`
	MaxMultiplier float64 `json:"max_multiplier" yaml:"max_multiplier"`

	// Admission control.
	MaxSlippagePct float64 `json:"max_slippage_pct" yaml:"max_slippage_pct"`
	VWAPWindow     int     `json:"vwap_window" yaml:"vwap_window"`

	// Limit price construction.
	LimitBufferPct float64 `json:"limit_buffer_pct" yaml:"limit_buffer_pct"`
	LimitBandPct   float64 `json:"limit_band_pct" yaml:"limit_band_pct"`

	CandleInterval string `json:"candle_interval" yaml:"candle_interval"`
}

// ApplyDefaults fills zero-valued tunables with the documented defaults.
func (c *RunConfig) ApplyDefaults() {
	if c.Alpha == 0 {
		c.Alpha = DefaultAlpha
	}
	if c.MinMultiplier == 0 {
		c.MinMultiplier = DefaultMinMultiplier
	}
	if c.MaxMultiplier == 0 {
		c.MaxMultiplier = DefaultMaxMultiplier
	}
	if c.MaxSlippagePct == 0 {
		c.MaxSlippagePct = DefaultMaxSlippagePct
	}
	if c.VWAPWindow == 0 {
		c.VWAPWindow = DefaultVWAPWindow
	}
	if c.LimitBufferPct == 0 {
		c.LimitBufferPct = DefaultLimitBufferPct
	}
	if c.LimitBandPct == 0 {
		c.LimitBandPct = DefaultLimitBandPct
	}
	if c.CandleInterval == "" {
		c.CandleInterval = DefaultCandleInterval
	}
}

// Validate rejects a configuration no run should ever start with.
func (c *RunConfig) Validate() error {
	if c.Coin == "" {
		return fmt.Errorf("%w: coin is required", ErrInvalidConfig)
	}
	if !c.Side.Valid() {
		return fmt.Errorf("%w: side must be BUY or SELL, got %q", ErrInvalidConfig, c.Side)
	}
	if !safe.FinitePositive(c.TotalQuantity) {
		return fmt.Errorf("%w: total quantity must be positive, got %v", ErrInvalidConfig, c.TotalQuantity)
	}
	if c.SliceCount <= 0 {
		return fmt.Errorf("%w: slice count must be positive, got %d", ErrInvalidConfig, c.SliceCount)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive, got %v", ErrInvalidConfig, c.Interval)
	}
	if !safe.Finite(c.Alpha) || c.Alpha < 0 {
		return fmt.Errorf("%w: alpha must be non-negative, got %v", ErrInvalidConfig, c.Alpha)
	}
	if !safe.FinitePositive(c.MinMultiplier) || !safe.FinitePositive(c.MaxMultiplier) {
		return fmt.Errorf("%w: multiplier bounds must be positive", ErrInvalidConfig)
	}
	if c.MinMultiplier > c.MaxMultiplier {
		return fmt.Errorf("%w: min multiplier %v exceeds max %v", ErrInvalidConfig, c.MinMultiplier, c.MaxMultiplier)
	}
	if !safe.FinitePositive(c.MaxSlippagePct) {
		return fmt.Errorf("%w: max slippage pct must be positive", ErrInvalidConfig)
	}
	if !safe.FinitePositive(c.LimitBufferPct) || !safe.FinitePositive(c.LimitBandPct) {
		return fmt.Errorf("%w: limit buffer and band must be positive", ErrInvalidConfig)
	}
	if c.LimitBufferPct >= c.LimitBandPct {
		return fmt.Errorf("%w: limit buffer %v must sit inside the band %v", ErrInvalidConfig, c.LimitBufferPct, c.LimitBandPct)
	}
	return nil
}
