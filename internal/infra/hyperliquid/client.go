package hyperliquid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/Trong-Tra/Clione/internal/domain"
	"github.com/Trong-Tra/Clione/internal/infra"
)

const (
	// MainnetURL is the production REST endpoint.
	MainnetURL = "https://api.hyperliquid.xyz"
	// TestnetURL is the paper-friendly REST endpoint.
	TestnetURL = "https://api.hyperliquid-testnet.xyz"

	maxRetries = 3
)

// InfoClient serves market data through the venue's info endpoint. It
// implements domain.MarketData.
type InfoClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *infra.RateLimiter
	breaker    *infra.CircuitBreaker

	metaMu   sync.Mutex
	metaTTL  time.Time
	universe *metaResponse
}

// NewInfoClient creates an info client against the given base URL.
func NewInfoClient(baseURL string) *InfoClient {
	return &InfoClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: infra.GetInfoLimiter(),
		breaker: infra.NewCircuitBreaker("hyperliquid-info"),
	}
}

// post sends one info request and decodes the reply, retrying transient
// failures with exponential backoff behind the circuit breaker.
func (c *InfoClient) post(ctx context.Context, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal info request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(infra.RestBackoff.Delay(attempt - 1)):
			}
		}

		if !c.breaker.Allow() {
			lastErr = fmt.Errorf("circuit breaker open for info endpoint")
			continue
		}
		c.limiter.Wait()

		if err := c.doOnce(ctx, body, out); err != nil {
			c.breaker.RecordFailure()
			lastErr = err
			slog.Debug("info request failed",
				slog.Int("attempt", attempt),
				slog.Any("error", err))
			continue
		}

		c.breaker.RecordSuccess()
		return nil
	}
	return fmt.Errorf("info request exhausted retries: %w", lastErr)
}

func (c *InfoClient) doOnce(ctx context.Context, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/info", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("info endpoint returned %d: %s", resp.StatusCode, snippet)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode info response: %w", err)
	}
	return nil
}

// FetchOrderBook returns the current depth snapshot for the coin.
func (c *InfoClient) FetchOrderBook(ctx context.Context, coin string) (*domain.BookSnapshot, error) {
	payload := map[string]string{"type": "l2Book", "coin": coin}

	var resp l2BookResponse
	if err := c.post(ctx, payload, &resp); err != nil {
		return nil, err
	}
	return resp.toSnapshot()
}

// FetchBestPrices returns the top of book for the coin.
func (c *InfoClient) FetchBestPrices(ctx context.Context, coin string) (domain.BestPrices, error) {
	book, err := c.FetchOrderBook(ctx, coin)
	if err != nil {
		return domain.BestPrices{}, err
	}
	return domain.BestPrices{Bid: book.BestBid().Price, Ask: book.BestAsk().Price}, nil
}

// FetchInstrumentMeta resolves the coin's size precision and asset index.
// The universe is cached for a minute to keep the meta endpoint quiet.
func (c *InfoClient) FetchInstrumentMeta(ctx context.Context, coin string) (domain.InstrumentMeta, error) {
	c.metaMu.Lock()
	defer c.metaMu.Unlock()

	if c.universe == nil || time.Now().After(c.metaTTL) {
		var resp metaResponse
		if err := c.post(ctx, map[string]string{"type": "meta"}, &resp); err != nil {
			return domain.InstrumentMeta{}, err
		}
		c.universe = &resp
		c.metaTTL = time.Now().Add(time.Minute)
	}

	return c.universe.find(coin)
}

// FetchCandles returns the bars covering [start, end], oldest first.
func (c *InfoClient) FetchCandles(ctx context.Context, coin, interval string, start, end time.Time) ([]domain.Bar, error) {
	payload := map[string]any{
		"type": "candleSnapshot",
		"req": map[string]any{
			"coin":      coin,
			"interval":  interval,
			"startTime": start.UnixMilli(),
			"endTime":   end.UnixMilli(),
		},
	}

	var resp []wsCandle
	if err := c.post(ctx, payload, &resp); err != nil {
		return nil, err
	}

	bars := make([]domain.Bar, 0, len(resp))
	for _, raw := range resp {
		bar, err := raw.toBar()
		if err != nil {
			return nil, err
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

// FetchRecentBar returns the newest bar for the pair.
func (c *InfoClient) FetchRecentBar(ctx context.Context, coin, interval string) (domain.Bar, error) {
	now := time.Now()
	span := 2 * intervalDuration(interval)

	bars, err := c.FetchCandles(ctx, coin, interval, now.Add(-span), now)
	if err != nil {
		return domain.Bar{}, err
	}
	if len(bars) == 0 {
		return domain.Bar{}, fmt.Errorf("no recent %s candle for %s", interval, coin)
	}
	return bars[len(bars)-1], nil
}

// intervalDuration maps a venue interval string to its length, one minute
// when unknown.
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
