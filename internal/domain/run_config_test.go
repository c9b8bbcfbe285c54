package domain

import (
	"errors"
	"math"
	"testing"
	"time"
)

func validConfig() RunConfig {
	cfg := RunConfig{
		Coin:          "BTC",
		Side:          SideBuy,
		TotalQuantity: 100,
		SliceCount:    10,
		Interval:      30 * time.Second,
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestRunConfig_Validate(t *testing.T) {
	t.Run("Valid config passes", func(t *testing.T) {
		cfg := validConfig()
		if err := cfg.Validate(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	tests := []struct {
		name   string
		mutate func(*RunConfig)
	}{
		{"Missing coin", func(c *RunConfig) { c.Coin = "" }},
		{"Bad side", func(c *RunConfig) { c.Side = "HOLD" }},
		{"Zero quantity", func(c *RunConfig) { c.TotalQuantity = 0 }},
		{"NaN quantity", func(c *RunConfig) { c.TotalQuantity = math.NaN() }},
		{"Zero slices", func(c *RunConfig) { c.SliceCount = 0 }},
		{"Negative interval", func(c *RunConfig) { c.Interval = -time.Second }},
		{"Negative alpha", func(c *RunConfig) { c.Alpha = -0.1 }},
		{"Inverted multiplier bounds", func(c *RunConfig) { c.MinMultiplier = 3; c.MaxMultiplier = 2 }},
		{"Buffer outside band", func(c *RunConfig) { c.LimitBufferPct = 6; c.LimitBandPct = 5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("error %v should wrap ErrInvalidConfig", err)
			}
		})
	}
}

func TestRunConfig_ApplyDefaults(t *testing.T) {
	cfg := RunConfig{Coin: "ETH", Side: SideSell, TotalQuantity: 5, SliceCount: 5, Interval: time.Minute}
	cfg.ApplyDefaults()

	if cfg.Alpha != DefaultAlpha {
		t.Errorf("alpha default not applied, got %v", cfg.Alpha)
	}
	if cfg.MaxMultiplier != DefaultMaxMultiplier || cfg.MinMultiplier != DefaultMinMultiplier {
		t.Error("multiplier defaults not applied")
	}
	if cfg.CandleInterval != DefaultCandleInterval {
		t.Errorf("candle interval default not applied, got %q", cfg.CandleInterval)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaulted config should validate, got %v", err)
	}
}

func TestBar_Valid(t *testing.T) {
	base := Bar{High: 101, Low: 99, Close: 100, Volume: 10, Ts: time.Now()}

	t.Run("Valid bar", func(t *testing.T) {
		if !base.Valid() {
			t.Error("expected valid")
		}
	})
	t.Run("Zero volume invalid", func(t *testing.T) {
		b := base
		b.Volume = 0
		if b.Valid() {
			t.Error("zero volume must be invalid")
		}
	})
	t.Run("NaN close invalid", func(t *testing.T) {
		b := base
		b.Close = math.NaN()
		if b.Valid() {
			t.Error("NaN close must be invalid")
		}
	})
}

func TestBar_TypicalPrice(t *testing.T) {
	b := Bar{High: 102, Low: 98, Close: 100}
	if got := b.TypicalPrice(); got != 100 {
		t.Errorf("got %v, want 100", got)
	}
}

func TestLimitsPreset(t *testing.T) {
	if LimitsPreset("conservative").MaxSlippagePct >= LimitsPreset("aggressive").MaxSlippagePct {
		t.Error("conservative preset must be tighter than aggressive")
	}
	if LimitsPreset("unknown") != BalancedLimits() {
		t.Error("unknown preset must fall back to balanced")
	}
	if LimitsPreset("balanced").WarnEscalateAfter != 0 {
		t.Error("warnings must never escalate by default")
	}
}
