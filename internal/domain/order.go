package domain

// Side of an order.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Valid reports whether the side is one of the two legal values.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// TimeInForce for a slice order.
type TimeInForce string

const (
	// TIFGtc rests the order until filled or cancelled.
	TIFGtc TimeInForce = "Gtc"
	// TIFIoc fills what it can immediately and cancels the rest.
	TIFIoc TimeInForce = "Ioc"
)

// SliceOrder is one venue-ready order. Price and size are venue-formatted
// strings produced by pkg/px, never raw floats.
type SliceOrder struct {
	Coin       string      `json:"coin"`
	Side       Side        `json:"side"`
	LimitPx    string      `json:"limit_px"`
	Size       string      `json:"size"`
	TIF        TimeInForce `json:"tif"`
	ReduceOnly bool        `json:"reduce_only"`
}

// SubmitResult is the venue's answer to one submission attempt.
type SubmitResult struct {
	Success bool   `json:"success"`
	OrderID string `json:"order_id,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// InstrumentMeta is the venue metadata the engine needs per instrument.
type InstrumentMeta struct {
	Coin         string `json:"coin"`
	SizeDecimals int    `json:"size_decimals"`
	AssetIndex   int    `json:"asset_index"`
}
