package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Trong-Tra/Clione/internal/domain"
)

func testCache(t *testing.T) *CandleCache {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "candles.db")
	cache, err := NewCandleCache(dbPath)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	t.Cleanup(func() {
		cache.Close()
		os.Remove(dbPath + "-wal")
		os.Remove(dbPath + "-shm")
	})
	return cache
}

func TestCandleCache_SaveAndLoad(t *testing.T) {
	cache := testCache(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	bars := []domain.Bar{
		{High: 101, Low: 99, Close: 100, Volume: 10, Ts: base},
		{High: 103, Low: 100, Close: 102, Volume: 20, Ts: base.Add(time.Minute)},
		{High: 104, Low: 101, Close: 103, Volume: 15, Ts: base.Add(2 * time.Minute)},
	}
	if err := cache.SaveBars(ctx, "BTC", "1m", bars); err != nil {
		t.Fatalf("Failed to save bars: %v", err)
	}

	loaded, err := cache.LoadBars(ctx, "BTC", "1m", base, 0)
	if err != nil {
		t.Fatalf("Failed to load bars: %v", err)
	}
	if len(loaded) != 3 {
		t.Fatalf("Expected 3 bars, got %d", len(loaded))
	}
	if loaded[0].Close != 100 || loaded[2].Close != 103 {
		t.Errorf("Bars out of order: %+v", loaded)
	}
	if !loaded[1].Ts.Equal(base.Add(time.Minute)) {
		t.Errorf("Ts mismatch: got %v", loaded[1].Ts)
	}
}

func TestCandleCache_UpsertOverwrites(t *testing.T) {
	cache := testCache(t)
	ctx := context.Background()
	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	first := []domain.Bar{{High: 101, Low: 99, Close: 100, Volume: 10, Ts: ts}}
	if err := cache.SaveBars(ctx, "ETH", "1m", first); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}
	// Refetch of the same open time carries the settled values.
	second := []domain.Bar{{High: 102, Low: 99, Close: 101.5, Volume: 25, Ts: ts}}
	if err := cache.SaveBars(ctx, "ETH", "1m", second); err != nil {
		t.Fatalf("Failed to re-save: %v", err)
	}

	loaded, err := cache.LoadBars(ctx, "ETH", "1m", ts, 0)
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("Expected 1 bar after upsert, got %d", len(loaded))
	}
	if loaded[0].Close != 101.5 || loaded[0].Volume != 25 {
		t.Errorf("Upsert did not overwrite: %+v", loaded[0])
	}
}

func TestCandleCache_SkipsInvalidBars(t *testing.T) {
	cache := testCache(t)
	ctx := context.Background()
	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	bars := []domain.Bar{
		{High: 101, Low: 99, Close: 100, Volume: 10, Ts: ts},
		{High: -1, Low: 99, Close: 100, Volume: 10, Ts: ts.Add(time.Minute)},
		{High: 101, Low: 99, Close: 100, Volume: 0, Ts: ts.Add(2 * time.Minute)},
	}
	if err := cache.SaveBars(ctx, "BTC", "1m", bars); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	loaded, err := cache.LoadBars(ctx, "BTC", "1m", ts, 0)
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	if len(loaded) != 1 {
		t.Errorf("Expected only the valid bar, got %d", len(loaded))
	}
}

func TestCandleCache_LatestTs(t *testing.T) {
	cache := testCache(t)
	ctx := context.Background()

	latest, err := cache.LatestTs(ctx, "BTC", "1m")
	if err != nil {
		t.Fatalf("LatestTs failed: %v", err)
	}
	if !latest.IsZero() {
		t.Errorf("Expected zero time for empty cache, got %v", latest)
	}

	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	bars := []domain.Bar{
		{High: 101, Low: 99, Close: 100, Volume: 10, Ts: ts},
		{High: 101, Low: 99, Close: 100, Volume: 10, Ts: ts.Add(time.Minute)},
	}
	if err := cache.SaveBars(ctx, "BTC", "1m", bars); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	latest, err = cache.LatestTs(ctx, "BTC", "1m")
	if err != nil {
		t.Fatalf("LatestTs failed: %v", err)
	}
	if !latest.Equal(ts.Add(time.Minute)) {
		t.Errorf("Expected %v, got %v", ts.Add(time.Minute), latest)
	}
}

func TestCandleCache_Metadata(t *testing.T) {
	cache := testCache(t)
	ctx := context.Background()

	val, err := cache.GetMetadata(ctx, "missing")
	if err != nil {
		t.Fatalf("GetMetadata failed: %v", err)
	}
	if val != "" {
		t.Errorf("Expected empty value for missing key, got %q", val)
	}

	if err := cache.UpsertMetadata(ctx, "last_warmup", "BTC:1m", 1000); err != nil {
		t.Fatalf("UpsertMetadata failed: %v", err)
	}
	if err := cache.UpsertMetadata(ctx, "last_warmup", "ETH:1m", 2000); err != nil {
		t.Fatalf("UpsertMetadata overwrite failed: %v", err)
	}

	val, err = cache.GetMetadata(ctx, "last_warmup")
	if err != nil {
		t.Fatalf("GetMetadata failed: %v", err)
	}
	if val != "ETH:1m" {
		t.Errorf("Expected ETH:1m, got %q", val)
	}
}

// warmupMarket serves one canned candle batch and records the fetch range.
type warmupMarket struct {
	bars      []domain.Bar
	fetchErr  error
	fetchFrom time.Time
}

func (m *warmupMarket) FetchBestPrices(ctx context.Context, coin string) (domain.BestPrices, error) {
	return domain.BestPrices{}, errors.New("not implemented")
}

func (m *warmupMarket) FetchOrderBook(ctx context.Context, coin string) (*domain.BookSnapshot, error) {
	return nil, errors.New("not implemented")
}

func (m *warmupMarket) FetchInstrumentMeta(ctx context.Context, coin string) (domain.InstrumentMeta, error) {
	return domain.InstrumentMeta{}, errors.New("not implemented")
}

func (m *warmupMarket) FetchCandles(ctx context.Context, coin, interval string, start, end time.Time) ([]domain.Bar, error) {
	m.fetchFrom = start
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	return m.bars, nil
}

func (m *warmupMarket) FetchRecentBar(ctx context.Context, coin, interval string) (domain.Bar, error) {
	return domain.Bar{}, errors.New("not implemented")
}

func TestWarmup_FetchesAndCaches(t *testing.T) {
	cache := testCache(t)
	ctx := context.Background()

	now := time.Now()
	md := &warmupMarket{bars: []domain.Bar{
		{High: 101, Low: 99, Close: 100, Volume: 10, Ts: now.Add(-2 * time.Minute)},
		{High: 102, Low: 100, Close: 101, Volume: 12, Ts: now.Add(-time.Minute)},
	}}

	bars, err := Warmup(ctx, cache, md, "BTC", "1m", 20)
	if err != nil {
		t.Fatalf("Warmup failed: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("Expected 2 bars, got %d", len(bars))
	}

	// Second warmup with a dead venue still serves from the cache.
	md.fetchErr = errors.New("venue down")
	bars, err = Warmup(ctx, cache, md, "BTC", "1m", 20)
	if err != nil {
		t.Fatalf("Warmup with dead venue failed: %v", err)
	}
	if len(bars) != 2 {
		t.Errorf("Expected cached bars to survive venue outage, got %d", len(bars))
	}
}

func TestWarmup_RejectsNonPositiveWindow(t *testing.T) {
	cache := testCache(t)
	if _, err := Warmup(context.Background(), cache, &warmupMarket{}, "BTC", "1m", 0); err == nil {
		t.Error("Expected error for zero window")
	}
}
