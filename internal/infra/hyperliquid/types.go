// Package hyperliquid implements the venue gateway: the info REST client,
// the exchange order client and the top-of-book websocket worker.
package hyperliquid

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Trong-Tra/Clione/internal/domain"
)

// wsLevel is one price level as the venue serializes it, numeric fields as
// strings.
type wsLevel struct {
	Px string `json:"px"`
	Sz string `json:"sz"`
	N  int    `json:"n"`
}

func (l wsLevel) toDomain() (domain.BookLevel, error) {
	px, err := decimal.NewFromString(l.Px)
	if err != nil {
		return domain.BookLevel{}, fmt.Errorf("bad level px %q: %w", l.Px, err)
	}
	sz, err := decimal.NewFromString(l.Sz)
	if err != nil {
		return domain.BookLevel{}, fmt.Errorf("bad level sz %q: %w", l.Sz, err)
	}
	if px.Sign() <= 0 || sz.Sign() < 0 {
		return domain.BookLevel{}, fmt.Errorf("non-positive level %s @ %s", l.Sz, l.Px)
	}
	return domain.BookLevel{
		Price: px.InexactFloat64(),
		Size:  sz.InexactFloat64(),
	}, nil
}

// l2BookResponse is the venue's l2Book payload. Levels[0] holds bids,
// Levels[1] asks, both best-first.
type l2BookResponse struct {
	Coin   string      `json:"coin"`
	Time   int64       `json:"time"`
	Levels [][]wsLevel `json:"levels"`
}

func (r *l2BookResponse) toSnapshot() (*domain.BookSnapshot, error) {
	if len(r.Levels) != 2 {
		return nil, fmt.Errorf("l2Book for %s has %d sides, want 2", r.Coin, len(r.Levels))
	}

	snap := &domain.BookSnapshot{
		Coin:       r.Coin,
		CapturedAt: time.UnixMilli(r.Time),
	}
	for _, raw := range r.Levels[0] {
		lvl, err := raw.toDomain()
		if err != nil {
			return nil, fmt.Errorf("bid side: %w", err)
		}
		snap.Bids = append(snap.Bids, lvl)
	}
	for _, raw := range r.Levels[1] {
		lvl, err := raw.toDomain()
		if err != nil {
			return nil, fmt.Errorf("ask side: %w", err)
		}
		snap.Asks = append(snap.Asks, lvl)
	}
	return snap, nil
}

// wsCandle is one candleSnapshot entry. The open time is "t", OHLCV come as
// strings.
type wsCandle struct {
	OpenMs  int64  `json:"t"`
	CloseMs int64  `json:"T"`
	Coin    string `json:"s"`
	Int     string `json:"i"`
	Open    string `json:"o"`
	Close   string `json:"c"`
	High    string `json:"h"`
	Low     string `json:"l"`
	Volume  string `json:"v"`
	Trades  int    `json:"n"`
}

func (c wsCandle) toBar() (domain.Bar, error) {
	parse := func(name, s string) (float64, error) {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return 0, fmt.Errorf("bad candle %s %q: %w", name, s, err)
		}
		return d.InexactFloat64(), nil
	}

	var bar domain.Bar
	var err error
	if bar.High, err = parse("high", c.High); err != nil {
		return domain.Bar{}, err
	}
	if bar.Low, err = parse("low", c.Low); err != nil {
		return domain.Bar{}, err
	}
	if bar.Close, err = parse("close", c.Close); err != nil {
		return domain.Bar{}, err
	}
	if bar.Volume, err = parse("volume", c.Volume); err != nil {
		return domain.Bar{}, err
	}
	bar.Ts = time.UnixMilli(c.OpenMs)
	return bar, nil
}

// assetMeta is one entry of the meta universe.
type assetMeta struct {
	Name       string `json:"name"`
	SzDecimals int    `json:"szDecimals"`
	IsDelisted bool   `json:"isDelisted"`
}

// metaResponse is the venue's meta payload. An asset's index in the
// universe is its order id namespace.
type metaResponse struct {
	Universe []assetMeta `json:"universe"`
}

func (r *metaResponse) find(coin string) (domain.InstrumentMeta, error) {
	for i, a := range r.Universe {
		if a.Name != coin {
			continue
		}
		if a.IsDelisted {
			return domain.InstrumentMeta{}, fmt.Errorf("coin %s is delisted", coin)
		}
		if a.SzDecimals < 0 {
			return domain.InstrumentMeta{}, fmt.Errorf("coin %s has negative szDecimals %d", coin, a.SzDecimals)
		}
		return domain.InstrumentMeta{
			Coin:         coin,
			SizeDecimals: a.SzDecimals,
			AssetIndex:   i,
		}, nil
	}
	return domain.InstrumentMeta{}, fmt.Errorf("coin %s not in universe", coin)
}

// wireOrder is the order shape the exchange endpoint expects.
type wireOrder struct {
	Asset      int           `json:"a"`
	IsBuy      bool          `json:"b"`
	Price      string        `json:"p"`
	Size       string        `json:"s"`
	ReduceOnly bool          `json:"r"`
	Type       wireOrderType `json:"t"`
}

type wireOrderType struct {
	Limit wireLimit `json:"limit"`
}

type wireLimit struct {
	TIF string `json:"tif"`
}

type orderAction struct {
	Type     string      `json:"type"`
	Orders   []wireOrder `json:"orders"`
	Grouping string      `json:"grouping"`
}

// exchangeResponse is the venue's reply to an order action. Per-order
// outcomes live in statuses.
type exchangeResponse struct {
	Status   string `json:"status"`
	Response struct {
		Type string `json:"type"`
		Data struct {
			Statuses []orderStatus `json:"statuses"`
		} `json:"data"`
	} `json:"response"`
}

type orderStatus struct {
	Resting *struct {
		Oid int64 `json:"oid"`
	} `json:"resting,omitempty"`
	Filled *struct {
		Oid     int64  `json:"oid"`
		TotalSz string `json:"totalSz"`
		AvgPx   string `json:"avgPx"`
	} `json:"filled,omitempty"`
	Error string `json:"error,omitempty"`
}
