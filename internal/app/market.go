package app

import (
	"context"

	"github.com/Trong-Tra/Clione/internal/domain"
	"github.com/Trong-Tra/Clione/internal/infra/hyperliquid"
)

// LiveMarket serves market data REST-first, except best prices, which
// prefer the websocket top-of-book cache and fall back to REST when the
// stream is stale or down.
type LiveMarket struct {
	*hyperliquid.InfoClient
	bbo *hyperliquid.TopOfBookWorker
}

// NewLiveMarket wraps the info client. The worker may be nil, leaving a
// pure REST market.
func NewLiveMarket(info *hyperliquid.InfoClient, bbo *hyperliquid.TopOfBookWorker) *LiveMarket {
	return &LiveMarket{InfoClient: info, bbo: bbo}
}

// FetchBestPrices returns the freshest top of book available.
func (m *LiveMarket) FetchBestPrices(ctx context.Context, coin string) (domain.BestPrices, error) {
	if m.bbo != nil {
		if best, ok := m.bbo.Best(); ok {
			return best, nil
		}
	}
	return m.InfoClient.FetchBestPrices(ctx, coin)
}
