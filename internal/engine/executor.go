// Package engine orchestrates a time-sliced execution run: per slice it
// pulls a market price, resizes via the VWAP signal, admits the slice through
// depth and risk checks, formats the order, submits it and folds the result
// into running statistics, waiting the configured interval between slices.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Trong-Tra/Clione/internal/depth"
	"github.com/Trong-Tra/Clione/internal/domain"
	"github.com/Trong-Tra/Clione/internal/event"
	"github.com/Trong-Tra/Clione/internal/execution"
	"github.com/Trong-Tra/Clione/internal/risk"
	"github.com/Trong-Tra/Clione/internal/sizing"
	"github.com/Trong-Tra/Clione/internal/vwap"
	"github.com/Trong-Tra/Clione/pkg/px"
	"github.com/Trong-Tra/Clione/pkg/safe"
)

// ErrAlreadyRunning is returned when Execute is called on an engine whose
// run is still in flight. Rejected, never queued.
var ErrAlreadyRunning = errors.New("engine: a run is already active")

// haltPollInterval bounds how often the loop re-checks the risk latch while
// halted.
const haltPollInterval = 500 * time.Millisecond

// eventBufferSize is the capacity of the observer channel. Emission never
// blocks the run loop; overflow events are dropped from the channel but kept
// in the in-memory log.
const eventBufferSize = 256

// Engine runs one execution at a time. It exclusively owns the run state and
// the slice result log; observers get copies and the event stream.
type Engine struct {
	md        domain.MarketData
	submitter execution.Submitter
	monitor   *risk.Monitor

	running  atomic.Bool
	stopFlag atomic.Bool
	stopCh   chan struct{}
	stopOnce *sync.Once

	mu       sync.Mutex
	state    domain.RunState
	results  []domain.SliceResult
	eventLog []event.Event

	eventSeq uint64
	events   chan event.Event
	dropped  atomic.Uint64
}

// New wires an engine from its collaborators.
func New(md domain.MarketData, submitter execution.Submitter, monitor *risk.Monitor) *Engine {
	return &Engine{
		md:        md,
		submitter: submitter,
		monitor:   monitor,
		events:    make(chan event.Event, eventBufferSize),
		state:     domain.RunState{Status: domain.StatusPending},
	}
}

// Events returns the run event stream. The channel stays open across runs;
// a RunFinishedEvent closes each run logically.
func (e *Engine) Events() <-chan event.Event {
	return e.events
}

// State returns a copy of the current run state.
func (e *Engine) State() domain.RunState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Results returns a copy of the ordered slice result log.
func (e *Engine) Results() []domain.SliceResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.SliceResult, len(e.results))
	copy(out, e.results)
	return out
}

// EventLog returns a copy of every event emitted during the current run.
func (e *Engine) EventLog() []event.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]event.Event, len(e.eventLog))
	copy(out, e.eventLog)
	return out
}

// Stop requests cooperative cancellation. The flag is observed at the top of
// each slice iteration and before the inter-slice sleep; an order already in
// flight is not interrupted.
func (e *Engine) Stop() {
	e.stopFlag.Store(true)
	e.mu.Lock()
	ch, once := e.stopCh, e.stopOnce
	e.mu.Unlock()
	if once != nil {
		once.Do(func() { close(ch) })
	}
}

// Resume clears a risk-driven halt so the run loop can continue.
func (e *Engine) Resume() {
	e.monitor.Resume()
}

// Execute runs the full schedule. It is the single entry point; a second
// call while a run is active returns ErrAlreadyRunning. Configuration errors
// abort before any slice with status FAILED; per-slice failures degrade only
// that slice.
func (e *Engine) Execute(ctx context.Context, cfg domain.RunConfig, historical []domain.Bar) (domain.RunSummary, error) {
	if !e.running.CompareAndSwap(false, true) {
		return domain.RunSummary{}, ErrAlreadyRunning
	}
	defer e.running.Store(false)

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		e.setStatus(domain.StatusFailed)
		return domain.RunSummary{}, err
	}
	if e.submitter == nil {
		e.setStatus(domain.StatusFailed)
		return domain.RunSummary{}, fmt.Errorf("%w: no order submitter", domain.ErrInvalidConfig)
	}

	e.stopFlag.Store(false)
	e.mu.Lock()
	e.stopCh = make(chan struct{})
	e.stopOnce = &sync.Once{}
	e.mu.Unlock()

	run := &runCtx{
		cfg:       cfg,
		vwapState: vwap.Initialize(historical),
		remaining: cfg.TotalQuantity,
	}

	// Instrument metadata; absence degrades to the default size precision.
	meta, err := e.md.FetchInstrumentMeta(ctx, cfg.Coin)
	if err != nil {
		slog.Warn("META_FETCH_FAILED: using default size precision",
			slog.String("coin", cfg.Coin), slog.Any("error", err))
		meta = domain.InstrumentMeta{Coin: cfg.Coin, SizeDecimals: px.DefaultSizeDecimals}
	}
	run.meta = meta
	run.rules = px.DefaultRules(meta.SizeDecimals)

	started := time.Now()
	e.mu.Lock()
	e.state = domain.RunState{
		Status:         domain.StatusRunning,
		StartedAt:      started,
		EstimatedEndAt: started.Add(time.Duration(cfg.SliceCount-1) * cfg.Interval),
	}
	e.results = nil
	e.eventLog = nil
	e.eventSeq = 0
	e.mu.Unlock()

	e.emit(&event.RunStartedEvent{Config: cfg})
	slog.Info("run started",
		slog.String("coin", cfg.Coin),
		slog.String("side", string(cfg.Side)),
		slog.Float64("total_qty", cfg.TotalQuantity),
		slog.Int("slices", cfg.SliceCount))

	finalStatus := domain.StatusCompleted

loop:
	for i := 0; i < cfg.SliceCount; i++ {
		if e.cancelled(ctx) {
			finalStatus = domain.StatusCancelled
			break loop
		}

		// Risk halt gate: hold here until resumed, cancelled, or stopped.
		if e.monitor.Halted() {
			if !e.awaitResume(ctx) {
				finalStatus = domain.StatusCancelled
				break loop
			}
		}

		e.setSliceIndex(i)
		res := e.executeSlice(ctx, run, i)
		e.recordResult(run, res)

		if i < cfg.SliceCount-1 && !e.sleepInterval(ctx, cfg.Interval) {
			finalStatus = domain.StatusCancelled
			break loop
		}
	}

	summary := e.finish(finalStatus, started, cfg)
	return summary, nil
}

// runCtx carries the per-run working set through the slice pipeline.
type runCtx struct {
	cfg       domain.RunConfig
	meta      domain.InstrumentMeta
	rules     px.Rules
	vwapState vwap.State
	remaining float64

	monitorReady bool
	achievedPV   float64
}

// executeSlice runs the full admission pipeline for one slice. Nothing it
// returns can terminate the run; every failure is folded into the result.
func (e *Engine) executeSlice(ctx context.Context, run *runCtx, index int) domain.SliceResult {
	cfg := run.cfg
	slicesLeft := cfg.SliceCount - index
	baseSize := run.remaining / float64(slicesLeft)

	e.emit(&event.SliceStartedEvent{Index: index, BaseSize: baseSize})

	fail := func(reason string) domain.SliceResult {
		slog.Warn("SLICE_FAILED",
			slog.Int("index", index),
			slog.String("reason", reason))
		return domain.SliceResult{
			Index:         index,
			RequestedSize: baseSize,
			Ts:            time.Now(),
			ErrorReason:   reason,
		}
	}

	// 1. Market price for the configured side.
	prices, err := e.md.FetchBestPrices(ctx, cfg.Coin)
	if err != nil {
		return fail(fmt.Sprintf("price fetch failed: %v", err))
	}
	marketPx := prices.ForSide(cfg.Side)
	if !safe.FinitePositive(marketPx) {
		return fail(fmt.Sprintf("no usable %s price in %+v", cfg.Side, prices))
	}

	// 2. Fold the freshest bar into the VWAP session. A fetch failure just
	// leaves the reference where it was.
	if bar, err := e.md.FetchRecentBar(ctx, cfg.Coin, cfg.CandleInterval); err == nil {
		run.vwapState = run.vwapState.Absorb(bar)
	} else {
		slog.Debug("recent bar unavailable", slog.Any("error", err))
	}

	// 3. Dynamic sizing against the VWAP reference.
	sz := sizing.Size(baseSize, marketPx, run.vwapState.VWAP, cfg.Alpha, cfg.MinMultiplier, cfg.MaxMultiplier)
	adjusted := sz.AdjustedSize
	if adjusted > run.remaining || index == cfg.SliceCount-1 {
		// The final slice takes exactly what is left so rounding drift and
		// multiplier growth cannot leak past the target quantity.
		adjusted = run.remaining
	}

	// 4. Quantize to the instrument's size precision.
	rounded := px.RoundSize(adjusted, run.meta.SizeDecimals)
	if rounded <= 0 {
		return fail(fmt.Sprintf("size %.10g rounds to zero at %d decimals", adjusted, run.meta.SizeDecimals))
	}

	// Fresh depth snapshot for this slice; unavailable books mean zero depth.
	book, err := e.md.FetchOrderBook(ctx, cfg.Coin)
	if err != nil || book == nil {
		slog.Warn("BOOK_FETCH_FAILED: treating as zero depth", slog.Any("error", err))
		book = domain.ZeroDepth(cfg.Coin)
	}

	// Impact guard: shrink to the largest admissible size when the book
	// cannot absorb the adjusted one.
	limits := e.monitor.Limits()
	constraint := depth.CheckVolumeConstraint(book, rounded, cfg.Side, cfg.MaxSlippagePct, limits.MaxVolumeRatio)
	if !constraint.CanHandle {
		if constraint.SuggestedMaxVolume <= 0 {
			return fail(fmt.Sprintf("insufficient liquidity: %s", constraint.Reason))
		}
		shrunk := px.RoundSize(math.Min(constraint.SuggestedMaxVolume, rounded), run.meta.SizeDecimals)
		if shrunk <= 0 {
			return fail(fmt.Sprintf("insufficient liquidity: %s", constraint.Reason))
		}
		slog.Info("slice shrunk by impact guard",
			slog.Int("index", index),
			slog.Float64("from", rounded),
			slog.Float64("to", shrunk),
			slog.String("reason", constraint.Reason))
		rounded = shrunk
	}

	// 5. Risk limits against the same snapshot. The first usable price of
	// the run anchors the deviation checks.
	if !run.monitorReady {
		e.monitor.Initialize(marketPx)
		run.monitorReady = true
	}
	executedQty := e.State().ExecutedQuantity
	decision := e.monitor.CheckLimits(book, rounded, marketPx, executedQty, cfg.Side)
	if len(decision.Alerts) > 0 {
		e.emit(&event.RiskAlertEvent{Alerts: decision.Alerts, Halted: !decision.CanProceed})
	}
	if !decision.CanProceed {
		e.setHalted(true)
		e.emit(&event.RunHaltedEvent{Reason: fmt.Sprintf("risk limits breached on slice %d", index)})
		return fail("risk monitor halted the run")
	}

	// 6. Limit price: offset in the order's favor, clamped to the safety
	// band, then formatted and re-validated.
	limitPx := marketPx * (1 + cfg.LimitBufferPct/100)
	if cfg.Side == domain.SideSell {
		limitPx = marketPx * (1 - cfg.LimitBufferPct/100)
	}
	lo := marketPx * (1 - cfg.LimitBandPct/100)
	hi := marketPx * (1 + cfg.LimitBandPct/100)
	limitPx = safe.Clamp(limitPx, lo, hi, marketPx)

	pxStr, err := run.rules.FormatPrice(limitPx)
	if err != nil {
		return fail(fmt.Sprintf("price %.10g failed formatting: %v", limitPx, err))
	}
	szStr, err := run.rules.FormatSize(rounded)
	if err != nil {
		return fail(fmt.Sprintf("size %.10g failed formatting: %v", rounded, err))
	}

	// Projected fill for achieved-price statistics.
	est := depth.EstimateSlippage(book, rounded, cfg.Side)
	fillPx := est.EstimatedPrice
	if !safe.FinitePositive(fillPx) {
		fillPx = marketPx
	}

	// 7. Submit. Transport errors and venue rejections fail the slice only.
	order := domain.SliceOrder{
		Coin:    cfg.Coin,
		Side:    cfg.Side,
		LimitPx: pxStr,
		Size:    szStr,
		TIF:     domain.TIFIoc,
	}
	result, err := e.submitter.SubmitOrder(ctx, order)
	if err != nil {
		return fail(fmt.Sprintf("submission failed: %v", err))
	}
	if !result.Success {
		return fail(fmt.Sprintf("venue rejected order: %s", result.Reason))
	}

	slog.Info("slice executed",
		slog.Int("index", index),
		slog.String("size", szStr),
		slog.String("limit_px", pxStr),
		slog.Float64("multiplier", sz.Multiplier),
		slog.String("order_id", result.OrderID))

	return domain.SliceResult{
		Index:             index,
		RequestedSize:     rounded,
		ExecutedSize:      rounded,
		Price:             fillPx,
		Ts:                time.Now(),
		AppliedMultiplier: sz.Multiplier,
		SlippagePct:       est.SlippagePct,
		Success:           true,
		OrderID:           result.OrderID,
	}
}

// recordResult appends the slice result, updates running statistics and
// emits the matching event.
func (e *Engine) recordResult(run *runCtx, res domain.SliceResult) {
	e.mu.Lock()
	e.results = append(e.results, res)
	if res.Success {
		run.remaining -= res.ExecutedSize
		if run.remaining < 0 {
			run.remaining = 0
		}
		run.achievedPV += res.Price * res.ExecutedSize
		e.state.ExecutedQuantity += res.ExecutedSize
		e.state.SuccessCount++
		e.state.AchievedVWAP = safe.Div(run.achievedPV, e.state.ExecutedQuantity, 0)
	} else {
		e.state.FailureCount++
	}
	e.mu.Unlock()

	if res.Success {
		e.emit(&event.SliceExecutedEvent{Result: res})
	} else {
		e.emit(&event.SliceFailedEvent{Result: res})
	}
}

// awaitResume blocks while the risk latch is set. Returns false when the
// run was cancelled while waiting.
func (e *Engine) awaitResume(ctx context.Context) bool {
	slog.Warn("RUN_HALTED: waiting for explicit resume")
	for e.monitor.Halted() {
		select {
		case <-ctx.Done():
			return false
		case <-e.stopCh:
			return false
		case <-time.After(haltPollInterval):
		}
	}
	e.setHalted(false)
	e.emit(&event.RunResumedEvent{})
	slog.Info("RUN_RESUMED")
	return true
}

// sleepInterval waits the inter-slice delay while staying responsive to
// cancellation. Returns false when the run was cancelled.
func (e *Engine) sleepInterval(ctx context.Context, d time.Duration) bool {
	if e.cancelled(ctx) {
		return false
	}
	select {
	case <-ctx.Done():
		return false
	case <-e.stopCh:
		return false
	case <-time.After(d):
		return true
	}
}

func (e *Engine) cancelled(ctx context.Context) bool {
	return e.stopFlag.Load() || ctx.Err() != nil
}

// finish fixes the terminal status, builds the summary and closes the run.
func (e *Engine) finish(status domain.RunStatus, started time.Time, cfg domain.RunConfig) domain.RunSummary {
	e.mu.Lock()
	e.state.Status = status
	e.state.Halted = false

	var slip domain.SlippageStats
	var n int
	for _, r := range e.results {
		if !r.Success {
			continue
		}
		if n == 0 || r.SlippagePct < slip.Min {
			slip.Min = r.SlippagePct
		}
		if r.SlippagePct > slip.Max {
			slip.Max = r.SlippagePct
		}
		slip.Avg += r.SlippagePct
		n++
	}
	if n > 0 {
		slip.Avg /= float64(n)
	}

	summary := domain.RunSummary{
		Status:           status,
		TotalSlices:      cfg.SliceCount,
		SuccessCount:     e.state.SuccessCount,
		FailureCount:     e.state.FailureCount,
		ExecutedQuantity: e.state.ExecutedQuantity,
		AchievedVWAP:     e.state.AchievedVWAP,
		Duration:         time.Since(started),
		Slippage:         slip,
	}
	e.mu.Unlock()

	e.emit(&event.RunFinishedEvent{Summary: summary})
	slog.Info("run finished",
		slog.String("status", string(status)),
		slog.Int("success", summary.SuccessCount),
		slog.Int("failure", summary.FailureCount),
		slog.Float64("executed_qty", summary.ExecutedQuantity),
		slog.Float64("achieved_vwap", summary.AchievedVWAP),
		slog.Duration("duration", summary.Duration))
	return summary
}

func (e *Engine) setStatus(s domain.RunStatus) {
	e.mu.Lock()
	e.state.Status = s
	e.mu.Unlock()
}

func (e *Engine) setSliceIndex(i int) {
	e.mu.Lock()
	e.state.CurrentSliceIndex = i
	e.mu.Unlock()
}

func (e *Engine) setHalted(h bool) {
	e.mu.Lock()
	e.state.Halted = h
	e.mu.Unlock()
}

// emit stamps and publishes an event without ever blocking the run loop.
func (e *Engine) emit(ev event.Event) {
	e.mu.Lock()
	e.eventSeq++
	if s, ok := ev.(interface{ Stamp(uint64, time.Time) }); ok {
		s.Stamp(e.eventSeq, time.Now())
	}
	e.eventLog = append(e.eventLog, ev)
	e.mu.Unlock()

	select {
	case e.events <- ev:
	default:
		e.dropped.Add(1)
	}
}
