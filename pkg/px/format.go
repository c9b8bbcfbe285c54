// Package px formats numeric prices and sizes into the venue's wire
// representation and validates formatted strings back against the same rules.
// Hyperliquid accepts a price when it has at most MaxSigFigs significant
// figures AND at most (MaxDecimals - SizeDecimals) decimal places; integer
// prices are always accepted regardless of significant figures. Sizes are
// quantized to the instrument's SizeDecimals.
package px

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Trong-Tra/Clione/pkg/safe"
)

const (
	// DefaultMaxSigFigs is the venue-wide significant-figure cap.
	DefaultMaxSigFigs = 5
	// DefaultMaxDecimals is the venue decimal budget for perp prices.
	DefaultMaxDecimals = 6
	// DefaultSizeDecimals is assumed when instrument metadata is unavailable.
	DefaultSizeDecimals = 4
)

var (
	ErrNotPositive     = errors.New("px: value must be finite and positive")
	ErrRoundsToZero    = errors.New("px: value rounds to zero at allowed precision")
	ErrTooManyDecimals = errors.New("px: too many decimal places")
	ErrTooManySigFigs  = errors.New("px: too many significant figures")
	ErrMalformed       = errors.New("px: malformed numeric string")
)

// Rules captures the precision constraints for one instrument.
type Rules struct {
	MaxSigFigs   int
	MaxDecimals  int
	SizeDecimals int
}

// DefaultRules returns the venue defaults for an instrument with the given
// size precision.
func DefaultRules(sizeDecimals int) Rules {
	if sizeDecimals < 0 {
		sizeDecimals = DefaultSizeDecimals
	}
	return Rules{
		MaxSigFigs:   DefaultMaxSigFigs,
		MaxDecimals:  DefaultMaxDecimals,
		SizeDecimals: sizeDecimals,
	}
}

// PriceDecimals is the number of decimal places a price may carry:
// venue decimal budget minus instrument size precision, floored at zero.
func (r Rules) PriceDecimals() int {
	d := r.MaxDecimals - r.SizeDecimals
	if d < 0 {
		return 0
	}
	return d
}

// FormatPrice renders p as a venue-acceptable price string. The value is
// rounded to the tighter of the decimal budget and the significant-figure
// budget. Values that cannot be represented (non-positive, or rounding to
// zero) return an error.
func (r Rules) FormatPrice(p float64) (string, error) {
	if !safe.FinitePositive(p) {
		return "", ErrNotPositive
	}

	dec := r.PriceDecimals()

	// Decimal places still permitted by the significant-figure budget.
	// msd is the exponent of the most significant digit: 123.4 -> 2.
	msd := int(math.Floor(math.Log10(p)))
	sigDec := r.MaxSigFigs - 1 - msd
	if sigDec < dec {
		dec = sigDec
	}
	if dec < 0 {
		// Rounding above the ones place would distort the price; integer
		// prices bypass the significant-figure cap, so round to a whole
		// number instead.
		dec = 0
	}

	d := decimal.NewFromFloat(p).Round(int32(dec))
	if !d.IsPositive() {
		return "", ErrRoundsToZero
	}

	s := trimZeros(d.String())
	if err := r.ValidatePrice(s); err != nil {
		return "", err
	}
	return s, nil
}

// ValidatePrice checks a formatted price string against the venue rules.
// A price that fails here must never be submitted.
func (r Rules) ValidatePrice(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return ErrMalformed
	}
	if !d.IsPositive() {
		return ErrNotPositive
	}

	norm := trimZeros(d.String())
	intPart, fracPart, hasFrac := strings.Cut(norm, ".")

	if hasFrac && len(fracPart) > r.PriceDecimals() {
		return ErrTooManyDecimals
	}

	// Whole-number prices bypass the significant-figure cap.
	if !hasFrac {
		return nil
	}
	if countSigFigs(intPart, fracPart) > r.MaxSigFigs {
		return ErrTooManySigFigs
	}
	return nil
}

// FormatSize renders a quantity quantized to the instrument's size precision.
func (r Rules) FormatSize(v float64) (string, error) {
	if !safe.FinitePositive(v) {
		return "", ErrNotPositive
	}
	d := decimal.NewFromFloat(v).Round(int32(r.SizeDecimals))
	if !d.IsPositive() {
		return "", ErrRoundsToZero
	}
	return trimZeros(d.String()), nil
}

// RoundSize quantizes v to the given number of decimal places. Used by the
// engine for its numeric bookkeeping; the wire string comes from FormatSize.
func RoundSize(v float64, decimals int) float64 {
	if !safe.Finite(v) {
		return 0
	}
	pow := math.Pow(10, float64(decimals))
	return math.Round(v*pow) / pow
}

// trimZeros strips trailing fractional zeros ("10.500" -> "10.5",
// "10.000" -> "10") without touching integer strings.
func trimZeros(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// countSigFigs counts significant digits of a normalized numeric string
// split into integer and fractional parts.
func countSigFigs(intPart, fracPart string) int {
	digits := strings.TrimLeft(intPart, "-0")
	if digits == "" {
		// Leading zeros before the first significant digit do not count:
		// 0.0001234 has four significant figures.
		return len(strings.TrimLeft(fracPart, "0"))
	}
	return len(digits) + len(fracPart)
}

// String implements a compact debug description of the rules.
func (r Rules) String() string {
	return fmt.Sprintf("sigfigs<=%d decimals<=%d szDec=%d", r.MaxSigFigs, r.PriceDecimals(), r.SizeDecimals)
}
