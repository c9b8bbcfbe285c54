package execution

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/Trong-Tra/Clione/internal/domain"
)

// bookMarket serves one fixed snapshot.
type bookMarket struct {
	book *domain.BookSnapshot
	err  error
}

func (m *bookMarket) FetchBestPrices(ctx context.Context, coin string) (domain.BestPrices, error) {
	return domain.BestPrices{Bid: m.book.BestBid().Price, Ask: m.book.BestAsk().Price}, nil
}

func (m *bookMarket) FetchOrderBook(ctx context.Context, coin string) (*domain.BookSnapshot, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.book, nil
}

func (m *bookMarket) FetchInstrumentMeta(ctx context.Context, coin string) (domain.InstrumentMeta, error) {
	return domain.InstrumentMeta{Coin: coin, SizeDecimals: 4}, nil
}

func (m *bookMarket) FetchCandles(ctx context.Context, coin, interval string, start, end time.Time) ([]domain.Bar, error) {
	return nil, nil
}

func (m *bookMarket) FetchRecentBar(ctx context.Context, coin, interval string) (domain.Bar, error) {
	return domain.Bar{}, errors.New("no bars")
}

func testBook() *domain.BookSnapshot {
	return &domain.BookSnapshot{
		Coin: "BTC",
		Bids: []domain.BookLevel{{Price: 99.9, Size: 5}, {Price: 99.8, Size: 10}},
		Asks: []domain.BookLevel{{Price: 100.1, Size: 5}, {Price: 100.2, Size: 10}},
	}
}

func TestPaperSubmitter_FillsWithinLimit(t *testing.T) {
	p := NewPaperSubmitter(&bookMarket{book: testBook()})

	res, err := p.SubmitOrder(context.Background(), domain.SliceOrder{
		Coin: "BTC", Side: domain.SideBuy, LimitPx: "100.3", Size: "8", TIF: domain.TIFIoc,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success {
		t.Fatalf("order rejected: %s", res.Reason)
	}
	if res.OrderID == "" {
		t.Error("missing order id")
	}

	fills := p.Fills()
	if len(fills) != 1 {
		t.Fatalf("got %d fills, want 1", len(fills))
	}
	// 5 @ 100.1 + 3 @ 100.2 = 801.1 over 8 units.
	wantAvg := 801.1 / 8
	if math.Abs(fills[0].Price-wantAvg) > 1e-9 {
		t.Errorf("fill price = %v, want %v", fills[0].Price, wantAvg)
	}
}

func TestPaperSubmitter_RejectsBeyondLimit(t *testing.T) {
	p := NewPaperSubmitter(&bookMarket{book: testBook()})

	// Limit below best ask: the book offers nothing inside it.
	res, err := p.SubmitOrder(context.Background(), domain.SliceOrder{
		Coin: "BTC", Side: domain.SideBuy, LimitPx: "100.0", Size: "1", TIF: domain.TIFIoc,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success {
		t.Error("expected rejection with no book inside the limit")
	}
}

func TestPaperSubmitter_RejectsUnderfill(t *testing.T) {
	p := NewPaperSubmitter(&bookMarket{book: testBook()})

	// 20 units sought, only 15 visible within the limit.
	res, err := p.SubmitOrder(context.Background(), domain.SliceOrder{
		Coin: "BTC", Side: domain.SideBuy, LimitPx: "101", Size: "20", TIF: domain.TIFIoc,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success {
		t.Error("expected Ioc-style rejection on partial availability")
	}
}

func TestPaperSubmitter_SellWalksBids(t *testing.T) {
	p := NewPaperSubmitter(&bookMarket{book: testBook()})

	res, err := p.SubmitOrder(context.Background(), domain.SliceOrder{
		Coin: "BTC", Side: domain.SideSell, LimitPx: "99.7", Size: "6", TIF: domain.TIFIoc,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success {
		t.Fatalf("order rejected: %s", res.Reason)
	}
	fills := p.Fills()
	// 5 @ 99.9 + 1 @ 99.8 = 599.3 over 6 units.
	wantAvg := 599.3 / 6
	if math.Abs(fills[0].Price-wantAvg) > 1e-9 {
		t.Errorf("fill price = %v, want %v", fills[0].Price, wantAvg)
	}
}

func TestPaperSubmitter_BookFetchFailureIsTransportError(t *testing.T) {
	p := NewPaperSubmitter(&bookMarket{book: testBook(), err: errors.New("venue down")})

	_, err := p.SubmitOrder(context.Background(), domain.SliceOrder{
		Coin: "BTC", Side: domain.SideBuy, LimitPx: "101", Size: "1", TIF: domain.TIFIoc,
	})
	if err == nil {
		t.Error("expected transport error when the book is unavailable")
	}
}

func TestNewSubmitter_Modes(t *testing.T) {
	md := &bookMarket{book: testBook()}

	t.Run("paper mode needs no latch", func(t *testing.T) {
		sub, err := NewSubmitter(ModePaper, md, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := sub.(*PaperSubmitter); !ok {
			t.Errorf("got %T, want *PaperSubmitter", sub)
		}
	})

	t.Run("real mode refused without latch", func(t *testing.T) {
		t.Setenv("CONFIRM_REAL_MONEY", "")
		if _, err := NewSubmitter(ModeReal, md, nil); err == nil {
			t.Error("expected safety guard error")
		}
	})

	t.Run("real mode uses live factory with latch", func(t *testing.T) {
		t.Setenv("CONFIRM_REAL_MONEY", "true")
		called := false
		_, err := NewSubmitter(ModeReal, md, func() (Submitter, error) {
			called = true
			return NewPaperSubmitter(md), nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !called {
			t.Error("live factory was not invoked")
		}
	})

	t.Run("unknown mode rejected", func(t *testing.T) {
		if _, err := NewSubmitter(Mode("YOLO"), md, nil); err == nil {
			t.Error("expected error for unknown mode")
		}
	})
}
