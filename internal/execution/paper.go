package execution

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/Trong-Tra/Clione/internal/domain"
)

// Fill is one simulated execution.
type Fill struct {
	OrderID string      `json:"order_id"`
	Coin    string      `json:"coin"`
	Side    domain.Side `json:"side"`
	Price   float64     `json:"price"`
	Size    float64     `json:"size"`
	Ts      time.Time   `json:"ts"`
}

// PaperSubmitter simulates fills against the live book without touching the
// venue. Used for strategy validation before real deployment.
type PaperSubmitter struct {
	md domain.MarketData

	mu     sync.Mutex
	fills  []Fill
	nextID int
}

// NewPaperSubmitter creates a paper executor backed by live market data.
func NewPaperSubmitter(md domain.MarketData) *PaperSubmitter {
	return &PaperSubmitter{md: md, nextID: 1}
}

// SubmitOrder fills the order by walking the current book up to the limit
// price. An order the visible book cannot fill inside its limit is rejected,
// mirroring what an Ioc order would do on the venue.
func (p *PaperSubmitter) SubmitOrder(ctx context.Context, order domain.SliceOrder) (domain.SubmitResult, error) {
	limit, err := strconv.ParseFloat(order.LimitPx, 64)
	if err != nil {
		return domain.SubmitResult{Success: false, Reason: "unparseable limit price"}, nil
	}
	size, err := strconv.ParseFloat(order.Size, 64)
	if err != nil || size <= 0 {
		return domain.SubmitResult{Success: false, Reason: "unparseable size"}, nil
	}

	book, err := p.md.FetchOrderBook(ctx, order.Coin)
	if err != nil {
		return domain.SubmitResult{}, fmt.Errorf("paper fill: book fetch: %w", err)
	}

	levels := book.Asks
	if order.Side == domain.SideSell {
		levels = book.Bids
	}

	var cost, filled float64
	for _, lvl := range levels {
		within := lvl.Price <= limit
		if order.Side == domain.SideSell {
			within = lvl.Price >= limit
		}
		if !within {
			break
		}
		take := size - filled
		if take > lvl.Size {
			take = lvl.Size
		}
		cost += take * lvl.Price
		filled += take
		if filled >= size {
			break
		}
	}

	if filled < size {
		return domain.SubmitResult{
			Success: false,
			Reason:  fmt.Sprintf("insufficient liquidity inside limit %s (filled %.8g of %.8g)", order.LimitPx, filled, size),
		}, nil
	}

	p.mu.Lock()
	id := fmt.Sprintf("PAPER-%06d", p.nextID)
	p.nextID++
	fill := Fill{
		OrderID: id,
		Coin:    order.Coin,
		Side:    order.Side,
		Price:   cost / size,
		Size:    size,
		Ts:      time.Now(),
	}
	p.fills = append(p.fills, fill)
	p.mu.Unlock()

	slog.Info("PAPER EXECUTION: order filled",
		slog.String("id", id),
		slog.String("coin", order.Coin),
		slog.String("side", string(order.Side)),
		slog.Float64("price", fill.Price),
		slog.Float64("size", size))

	return domain.SubmitResult{Success: true, OrderID: id}, nil
}

// Fills returns a copy of all simulated fills.
func (p *PaperSubmitter) Fills() []Fill {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Fill, len(p.fills))
	copy(out, p.fills)
	return out
}
