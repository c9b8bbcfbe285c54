package domain

import (
	"time"

	"github.com/Trong-Tra/Clione/pkg/safe"
)

// Bar is one observed OHLCV candle. Immutable once observed.
type Bar struct {
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
	Ts     time.Time `json:"ts"`
}

// Valid reports whether every numeric field is finite and positive.
// Invalid bars are skipped by consumers, never turned into errors.
func (b Bar) Valid() bool {
	return safe.FinitePositive(b.High) &&
		safe.FinitePositive(b.Low) &&
		safe.FinitePositive(b.Close) &&
		safe.FinitePositive(b.Volume)
}

// TypicalPrice is the (high+low+close)/3 reference used for VWAP.
func (b Bar) TypicalPrice() float64 {
	return (b.High + b.Low + b.Close) / 3
}
