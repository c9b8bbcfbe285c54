package domain

import (
	"time"
)

// BookLevel is one resting price level on one side of the book.
type BookLevel struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// BookSnapshot is a two-sided depth snapshot. Bids are ordered descending by
// price, asks ascending. Read-only once captured; each execution step
// captures a fresh snapshot, there is no caching across slices.
type BookSnapshot struct {
	Coin       string      `json:"coin"`
	Bids       []BookLevel `json:"bids"`
	Asks       []BookLevel `json:"asks"`
	CapturedAt time.Time   `json:"captured_at"`
}

// ZeroDepth returns an empty snapshot. An unavailable book is treated as
// zero depth, not as an error.
func ZeroDepth(coin string) *BookSnapshot {
	return &BookSnapshot{Coin: coin, CapturedAt: time.Now()}
}

// BestBid returns the highest bid, or a zero level when the side is empty.
func (b *BookSnapshot) BestBid() BookLevel {
	if len(b.Bids) == 0 {
		return BookLevel{}
	}
	return b.Bids[0]
}

// BestAsk returns the lowest ask, or a zero level when the side is empty.
func (b *BookSnapshot) BestAsk() BookLevel {
	if len(b.Asks) == 0 {
		return BookLevel{}
	}
	return b.Asks[0]
}

// Empty reports whether both sides carry no depth.
func (b *BookSnapshot) Empty() bool {
	return len(b.Bids) == 0 && len(b.Asks) == 0
}
