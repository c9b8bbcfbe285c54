package infra

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Trong-Tra/Clione/internal/domain"
)

// Config holds every application setting. LoadConfig reads the yaml file and
// then lets environment variables override the sensitive fields.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Trading struct {
		Mode string `yaml:"mode"` // PAPER or REAL
	} `yaml:"trading"`

	API struct {
		Hyperliquid struct {
			RestURL       string `yaml:"rest_url"`
			WSURL         string `yaml:"ws_url"`
			WalletAddress string `yaml:"wallet_address"`
			PrivateKey    string `yaml:"private_key"`
		} `yaml:"hyperliquid"`
	} `yaml:"api"`

	Run struct {
		Coin           string  `yaml:"coin"`
		Side           string  `yaml:"side"`
		TotalQuantity  float64 `yaml:"total_quantity"`
		SliceCount     int     `yaml:"slice_count"`
		IntervalSec    int     `yaml:"interval_sec"`
		Alpha          float64 `yaml:"alpha"`
		MinMultiplier  float64 `yaml:"min_multiplier"`
		MaxMultiplier  float64 `yaml:"max_multiplier"`
		MaxSlippagePct float64 `yaml:"max_slippage_pct"`
		VWAPWindow     int     `yaml:"vwap_window"`
		LimitBufferPct float64 `yaml:"limit_buffer_pct"`
		LimitBandPct   float64 `yaml:"limit_band_pct"`
		CandleInterval string  `yaml:"candle_interval"`
	} `yaml:"run"`

	Risk struct {
		Preset            string `yaml:"preset"` // conservative | balanced | aggressive
		WarnEscalateAfter int    `yaml:"warn_escalate_after"`
	} `yaml:"risk"`

	Cache struct {
		Path string `yaml:"path"`
	} `yaml:"cache"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the config file, applies environment
// overrides and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if c.API.Hyperliquid.RestURL == "" || !strings.HasPrefix(c.API.Hyperliquid.RestURL, "http") {
		return fmt.Errorf("invalid Hyperliquid REST URL: %s", c.API.Hyperliquid.RestURL)
	}
	if c.API.Hyperliquid.WSURL != "" &&
		!strings.HasPrefix(c.API.Hyperliquid.WSURL, "ws://") &&
		!strings.HasPrefix(c.API.Hyperliquid.WSURL, "wss://") {
		return fmt.Errorf("invalid Hyperliquid WS URL: %s", c.API.Hyperliquid.WSURL)
	}

	mode := strings.ToUpper(c.Trading.Mode)
	if mode != "" && mode != "PAPER" && mode != "REAL" {
		return fmt.Errorf("trading mode must be PAPER or REAL, got %q", c.Trading.Mode)
	}
	if mode == "REAL" && c.API.Hyperliquid.PrivateKey == "" {
		return fmt.Errorf("REAL mode requires a private key (set CLIONE_PRIVATE_KEY)")
	}

	if c.Run.Coin == "" {
		return fmt.Errorf("run coin is required")
	}

	switch strings.ToLower(c.Risk.Preset) {
	case "", "conservative", "balanced", "aggressive":
	default:
		return fmt.Errorf("unknown risk preset: %s", c.Risk.Preset)
	}

	// The remaining run parameters go through domain validation so the CLI
	// and the engine reject the same inputs.
	rc := c.RunConfig()
	return rc.Validate()
}

// RunConfig maps the yaml run section onto the engine's configuration with
// defaults applied.
func (c *Config) RunConfig() domain.RunConfig {
	run := domain.RunConfig{
		Coin:           c.Run.Coin,
		Side:           domain.Side(strings.ToUpper(c.Run.Side)),
		TotalQuantity:  c.Run.TotalQuantity,
		SliceCount:     c.Run.SliceCount,
		Interval:       time.Duration(c.Run.IntervalSec) * time.Second,
		Alpha:          c.Run.Alpha,
		MinMultiplier:  c.Run.MinMultiplier,
		MaxMultiplier:  c.Run.MaxMultiplier,
		MaxSlippagePct: c.Run.MaxSlippagePct,
		VWAPWindow:     c.Run.VWAPWindow,
		LimitBufferPct: c.Run.LimitBufferPct,
		LimitBandPct:   c.Run.LimitBandPct,
		CandleInterval: c.Run.CandleInterval,
	}
	run.ApplyDefaults()
	return run
}

// RiskLimits resolves the configured preset, balanced when unset.
func (c *Config) RiskLimits() domain.RiskLimits {
	limits := domain.LimitsPreset(c.Risk.Preset)
	if c.Risk.WarnEscalateAfter > 0 {
		limits.WarnEscalateAfter = c.Risk.WarnEscalateAfter
	}
	return limits
}

// overrideWithEnv lets environment variables take precedence over file
// values for credentials.
func overrideWithEnv(cfg *Config) {
	if cfg.API.Hyperliquid.PrivateKey != "" {
		fmt.Println("WARNING: private key found in config file; prefer CLIONE_PRIVATE_KEY")
	}

	if key := os.Getenv("CLIONE_PRIVATE_KEY"); key != "" {
		cfg.API.Hyperliquid.PrivateKey = key
	}
	if addr := os.Getenv("CLIONE_WALLET_ADDRESS"); addr != "" {
		cfg.API.Hyperliquid.WalletAddress = addr
	}
	if mode := os.Getenv("CLIONE_TRADING_MODE"); mode != "" {
		cfg.Trading.Mode = mode
	}
}
