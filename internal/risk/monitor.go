// Package risk evaluates each slice against the configured limits and owns
// the halt latch: a critical breach stops the run until an explicit resume.
package risk

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Trong-Tra/Clione/internal/depth"
	"github.com/Trong-Tra/Clione/internal/domain"
	"github.com/Trong-Tra/Clione/pkg/safe"
)

// alertRetention bounds ActiveAlerts; older entries stay in the raw log
// for audit.
const alertRetention = 5 * time.Minute

// Severity of an alert.
type Severity string

const (
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Alert codes.
const (
	CodePriceDeviation = "PRICE_DEVIATION"
	CodeSpreadFloor    = "SPREAD_FLOOR"
	CodeSlippage       = "SLIPPAGE"
	CodeParticipation  = "PARTICIPATION"
	CodeOrderNotional  = "ORDER_NOTIONAL"
	CodeTotalNotional  = "TOTAL_NOTIONAL"
)

// Alert is one recorded limit breach.
type Alert struct {
	Code     string    `json:"code"`
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`
	Value    float64   `json:"value"`
	Limit    float64   `json:"limit"`
	Ts       time.Time `json:"ts"`
}

// Decision is the outcome of one CheckLimits call.
type Decision struct {
	CanProceed bool    `json:"can_proceed"`
	Alerts     []Alert `json:"alerts,omitempty"`
}

// Monitor tracks session risk state. Safe for concurrent reads of state and
// the alert log while a run is in flight.
type Monitor struct {
	mu          sync.Mutex
	limits      domain.RiskLimits
	startPrice  float64
	halted      bool
	alerts      []Alert
	warnStreaks map[string]int

	now func() time.Time
}

// NewMonitor creates a monitor with the given limits.
func NewMonitor(limits domain.RiskLimits) *Monitor {
	return &Monitor{
		limits:      limits,
		warnStreaks: make(map[string]int),
		now:         time.Now,
	}
}

// Initialize starts a new session: clears the halt latch and the alert log
// and records the session start price used for deviation checks.
func (m *Monitor) Initialize(startPrice float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startPrice = startPrice
	m.halted = false
	m.alerts = nil
	m.warnStreaks = make(map[string]int)
}

// CheckLimits evaluates one proposed slice against every configured limit,
// using a freshly captured book snapshot. Any critical breach latches the
// halt; CanProceed is false when a critical alert fired in this call or the
// monitor was already halted.
func (m *Monitor) CheckLimits(book *domain.BookSnapshot, orderSize, currentPrice, executedVolume float64, side domain.Side) Decision {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var fired []Alert
	critical := false

	record := func(code string, sev Severity, value, limit float64, msg string) {
		if sev == SeverityWarning && m.limits.WarnEscalateAfter > 0 {
			m.warnStreaks[code]++
			if m.warnStreaks[code] >= m.limits.WarnEscalateAfter {
				sev = SeverityCritical
				msg = fmt.Sprintf("%s (escalated after %d consecutive warnings)", msg, m.warnStreaks[code])
			}
		}
		a := Alert{Code: code, Severity: sev, Message: msg, Value: value, Limit: limit, Ts: now}
		fired = append(fired, a)
		m.alerts = append(m.alerts, a)
		if sev == SeverityCritical {
			critical = true
		}
		slog.Warn("RISK_ALERT",
			slog.String("code", code),
			slog.String("severity", string(sev)),
			slog.Float64("value", value),
			slog.Float64("limit", limit))
	}

	// Price drift from session start. Critical.
	if m.limits.MaxPriceDeviationPct > 0 && safe.FinitePositive(m.startPrice) && safe.FinitePositive(currentPrice) {
		devPct := safe.Pct(abs(currentPrice-m.startPrice), m.startPrice)
		if devPct > m.limits.MaxPriceDeviationPct {
			record(CodePriceDeviation, SeverityCritical, devPct, m.limits.MaxPriceDeviationPct,
				fmt.Sprintf("price drifted %.4f%% from session start %.8g", devPct, m.startPrice))
		}
	}

	analysis := depth.Analyze(book)

	// Spread floor. Warning: a collapsed spread signals degenerate quoting.
	if m.limits.MinSpread > 0 && analysis.MidPrice > 0 && analysis.Spread < m.limits.MinSpread {
		record(CodeSpreadFloor, SeverityWarning, analysis.Spread, m.limits.MinSpread,
			fmt.Sprintf("spread %.8g below floor %.8g", analysis.Spread, m.limits.MinSpread))
	}

	// Estimated slippage for this slice. Critical.
	if m.limits.MaxSlippagePct > 0 && orderSize > 0 {
		est := depth.EstimateSlippage(book, orderSize, side)
		if est.SlippagePct > m.limits.MaxSlippagePct {
			record(CodeSlippage, SeverityCritical, est.SlippagePct, m.limits.MaxSlippagePct,
				fmt.Sprintf("estimated slippage %.4f%% exceeds %.4f%%", est.SlippagePct, m.limits.MaxSlippagePct))
		}
	}

	// Participation rate against visible depth. Warning.
	sideDepth := analysis.TotalAskVolume
	if side == domain.SideSell {
		sideDepth = analysis.TotalBidVolume
	}
	if m.limits.MaxVolumeRatio > 0 && sideDepth > 0 {
		ratio := orderSize / sideDepth
		if ratio > m.limits.MaxVolumeRatio {
			record(CodeParticipation, SeverityWarning, ratio, m.limits.MaxVolumeRatio,
				fmt.Sprintf("order is %.2f%% of visible depth", ratio*100))
		}
	}

	// Per-order notional. Warning.
	orderNotional := orderSize * currentPrice
	if m.limits.MaxOrderNotional > 0 && orderNotional > m.limits.MaxOrderNotional {
		record(CodeOrderNotional, SeverityWarning, orderNotional, m.limits.MaxOrderNotional,
			fmt.Sprintf("slice notional %.2f exceeds %.2f", orderNotional, m.limits.MaxOrderNotional))
	}

	// Cumulative exposure including this slice. Critical.
	totalNotional := (executedVolume + orderSize) * currentPrice
	if m.limits.MaxTotalNotional > 0 && totalNotional > m.limits.MaxTotalNotional {
		record(CodeTotalNotional, SeverityCritical, totalNotional, m.limits.MaxTotalNotional,
			fmt.Sprintf("cumulative notional %.2f exceeds %.2f", totalNotional, m.limits.MaxTotalNotional))
	}

	// Reset streaks for warning codes that did not fire this call.
	if m.limits.WarnEscalateAfter > 0 {
		seen := make(map[string]bool, len(fired))
		for _, a := range fired {
			seen[a.Code] = true
		}
		for code := range m.warnStreaks {
			if !seen[code] {
				delete(m.warnStreaks, code)
			}
		}
	}

	if critical {
		m.halted = true
	}
	return Decision{CanProceed: !m.halted, Alerts: fired}
}

// Resume clears the halt latch. The latch is otherwise irreversible: it stays
// set even if the breaching condition no longer holds.
func (m *Monitor) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.halted = false
	slog.Info("risk monitor resumed")
}

// Limits returns the immutable limit set this monitor enforces.
func (m *Monitor) Limits() domain.RiskLimits {
	return m.limits
}

// Halted reports the current latch state.
func (m *Monitor) Halted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.halted
}

// ActiveAlerts returns alerts within the retention window, newest last.
func (m *Monitor) ActiveAlerts() []Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-alertRetention)
	var out []Alert
	for _, a := range m.alerts {
		if a.Ts.After(cutoff) {
			out = append(out, a)
		}
	}
	return out
}

// AlertLog returns the full audit log, retention ignored.
func (m *Monitor) AlertLog() []Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Alert, len(m.alerts))
	copy(out, m.alerts)
	return out
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
