package domain

import (
	"context"
	"time"
)

// BestPrices is the top of book for one instrument.
type BestPrices struct {
	Bid float64 `json:"bid"`
	Ask float64 `json:"ask"`
}

// ForSide returns the price an aggressive order of the given side would
// cross: the ask for a buy, the bid for a sell.
func (p BestPrices) ForSide(side Side) float64 {
	if side == SideBuy {
		return p.Ask
	}
	return p.Bid
}

// MarketData is the read-only collaborator boundary to the venue. All calls
// may fail or return partial data; the engine treats failures as slice-local.
type MarketData interface {
	// FetchBestPrices returns the current top of book.
	FetchBestPrices(ctx context.Context, coin string) (BestPrices, error)

	// FetchOrderBook returns a fresh depth snapshot. Implementations return
	// a zero-depth snapshot when the book is unavailable.
	FetchOrderBook(ctx context.Context, coin string) (*BookSnapshot, error)

	// FetchInstrumentMeta returns size precision and the venue identifier.
	FetchInstrumentMeta(ctx context.Context, coin string) (InstrumentMeta, error)

	// FetchCandles returns historical bars in ascending time order.
	FetchCandles(ctx context.Context, coin, interval string, start, end time.Time) ([]Bar, error)

	// FetchRecentBar returns the freshest available bar.
	FetchRecentBar(ctx context.Context, coin, interval string) (Bar, error)
}
