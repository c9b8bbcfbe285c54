// Package backtest replays an execution schedule against cached candles so
// a slicing configuration can be evaluated without touching the venue.
package backtest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Trong-Tra/Clione/internal/domain"
	"github.com/Trong-Tra/Clione/internal/engine"
	"github.com/Trong-Tra/Clione/internal/execution"
	"github.com/Trong-Tra/Clione/internal/risk"
	"github.com/Trong-Tra/Clione/internal/storage"
)

// syntheticSpreadPct is the half-spread applied around each bar close when
// reconstructing a book from candles.
const syntheticSpreadPct = 0.01

// syntheticDepthLevels spreads the bar volume over this many book levels.
const syntheticDepthLevels = 4

// Replayer drives runs against historical candles from the cache.
type Replayer struct {
	cache *storage.CandleCache
}

// NewReplayer creates a replayer over the given cache.
func NewReplayer(cache *storage.CandleCache) *Replayer {
	return &Replayer{cache: cache}
}

// Result carries the outcome of one replayed run.
type Result struct {
	Summary domain.RunSummary
	Slices  []domain.SliceResult
}

// Run replays the schedule over the cached bars at or after since. The
// configured interval is ignored; bars advance one per slice.
func (r *Replayer) Run(ctx context.Context, cfg domain.RunConfig, limits domain.RiskLimits, since time.Time) (*Result, error) {
	// Defaults first: an unset candle interval must resolve before it keys
	// the cache query.
	cfg.ApplyDefaults()
	bars, err := r.cache.LoadBars(ctx, cfg.Coin, cfg.CandleInterval, since, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load bars: %w", err)
	}
	if len(bars) < cfg.SliceCount+cfg.VWAPWindow {
		return nil, fmt.Errorf("need at least %d cached bars, have %d", cfg.SliceCount+cfg.VWAPWindow, len(bars))
	}

	warmup := bars[:cfg.VWAPWindow]
	market := newBarMarket(cfg.Coin, bars[cfg.VWAPWindow:])

	// Replays never wait out the real schedule.
	cfg.Interval = time.Millisecond

	submitter := execution.NewPaperSubmitter(market)
	eng := engine.New(market, submitter, risk.NewMonitor(limits))

	summary, err := eng.Execute(ctx, cfg, warmup)
	if err != nil {
		return nil, err
	}
	return &Result{Summary: summary, Slices: eng.Results()}, nil
}

// barMarket serves one bar per slice as the live market view: the close is
// the mid, a fixed spread makes the top of book, and the bar volume spreads
// over a few levels each side.
type barMarket struct {
	coin string

	mu   sync.Mutex
	bars []domain.Bar
	idx  int
}

func newBarMarket(coin string, bars []domain.Bar) *barMarket {
	return &barMarket{coin: coin, bars: bars}
}

// current returns the bar for the slice in flight without advancing.
func (m *barMarket) current() domain.Bar {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.idx
	if i >= len(m.bars) {
		i = len(m.bars) - 1
	}
	return m.bars[i]
}

// FetchBestPrices advances to the next bar; one call is made per slice.
func (m *barMarket) FetchBestPrices(ctx context.Context, coin string) (domain.BestPrices, error) {
	m.mu.Lock()
	i := m.idx
	if i >= len(m.bars) {
		i = len(m.bars) - 1
	} else {
		m.idx++
	}
	bar := m.bars[i]
	m.mu.Unlock()

	half := bar.Close * syntheticSpreadPct / 100
	return domain.BestPrices{Bid: bar.Close - half, Ask: bar.Close + half}, nil
}

func (m *barMarket) FetchOrderBook(ctx context.Context, coin string) (*domain.BookSnapshot, error) {
	bar := m.current()
	half := bar.Close * syntheticSpreadPct / 100

	snap := &domain.BookSnapshot{Coin: m.coin, CapturedAt: bar.Ts}
	perLevel := bar.Volume / syntheticDepthLevels
	for i := 0; i < syntheticDepthLevels; i++ {
		step := half * float64(i+1)
		snap.Bids = append(snap.Bids, domain.BookLevel{Price: bar.Close - step, Size: perLevel})
		snap.Asks = append(snap.Asks, domain.BookLevel{Price: bar.Close + step, Size: perLevel})
	}
	return snap, nil
}

func (m *barMarket) FetchInstrumentMeta(ctx context.Context, coin string) (domain.InstrumentMeta, error) {
	return domain.InstrumentMeta{Coin: coin, SizeDecimals: 4}, nil
}

func (m *barMarket) FetchCandles(ctx context.Context, coin, interval string, start, end time.Time) ([]domain.Bar, error) {
	return nil, fmt.Errorf("replay market serves no candle snapshots")
}

func (m *barMarket) FetchRecentBar(ctx context.Context, coin, interval string) (domain.Bar, error) {
	return m.current(), nil
}
