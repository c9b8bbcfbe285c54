package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Trong-Tra/Clione/internal/domain"
)

// intervalDuration maps a venue candle interval string to its length.
// Unknown intervals fall back to one minute.
func intervalDuration(interval string) time.Duration {
	switch interval {
	case "1m":
		return time.Minute
	case "5m":
		return 5 * time.Minute
	case "15m":
		return 15 * time.Minute
	case "1h":
		return time.Hour
	case "4h":
		return 4 * time.Hour
	case "1d":
		return 24 * time.Hour
	default:
		return time.Minute
	}
}

// Warmup returns the most recent `window` bars for the pair, serving from
// the cache and fetching only the missing tail from the venue. A venue
// failure degrades to whatever the cache holds.
func Warmup(ctx context.Context, cache *CandleCache, md domain.MarketData, coin, interval string, window int) ([]domain.Bar, error) {
	if window <= 0 {
		return nil, fmt.Errorf("warmup window must be positive, got %d", window)
	}

	barLen := intervalDuration(interval)
	now := time.Now()
	since := now.Add(-time.Duration(window) * barLen)

	fetchFrom := since
	if latest, err := cache.LatestTs(ctx, coin, interval); err == nil && latest.After(since) {
		fetchFrom = latest
	}

	fresh, err := md.FetchCandles(ctx, coin, interval, fetchFrom, now)
	if err != nil {
		slog.Warn("CANDLE_FETCH_FAILED: serving warmup from cache only",
			slog.String("coin", coin),
			slog.String("interval", interval),
			slog.Any("error", err))
	} else if len(fresh) > 0 {
		if err := cache.SaveBars(ctx, coin, interval, fresh); err != nil {
			slog.Warn("CANDLE_CACHE_WRITE_FAILED", slog.Any("error", err))
		}
	}

	bars, err := cache.LoadBars(ctx, coin, interval, since, window)
	if err != nil {
		return nil, fmt.Errorf("failed to load warmup bars: %w", err)
	}
	return bars, nil
}
