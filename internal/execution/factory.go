package execution

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/Trong-Tra/Clione/internal/domain"
)

// Mode selects how orders leave the engine.
type Mode string

const (
	ModePaper Mode = "PAPER"
	ModeReal  Mode = "REAL"
)

// LiveSubmitterFactory builds the venue-backed submitter; injected so this
// package does not depend on the transport client.
type LiveSubmitterFactory func() (Submitter, error)

// NewSubmitter returns the Submitter for the configured mode.
// Real trading requires the CONFIRM_REAL_MONEY=true environment latch.
func NewSubmitter(mode Mode, md domain.MarketData, live LiveSubmitterFactory) (Submitter, error) {
	slog.Info("initializing execution mode", slog.String("mode", string(mode)))

	switch mode {
	case ModePaper:
		return NewPaperSubmitter(md), nil

	case ModeReal:
		if os.Getenv("CONFIRM_REAL_MONEY") != "true" {
			return nil, fmt.Errorf("SAFETY_GUARD: real trading requires CONFIRM_REAL_MONEY=true")
		}
		if live == nil {
			return nil, fmt.Errorf("no live submitter configured")
		}
		slog.Warn("REAL EXECUTION ENABLED: orders will reach the venue")
		return live()

	default:
		return nil, fmt.Errorf("unknown execution mode: %s", mode)
	}
}
