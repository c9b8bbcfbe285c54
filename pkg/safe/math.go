package safe

import (
	"math"
)

// Finite reports whether v is a usable number (not NaN, not ±Inf).
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// FinitePositive reports whether v is finite and strictly greater than zero.
// Market prices, volumes and sizes must all pass this check before they enter
// any sizing formula.
func FinitePositive(v float64) bool {
	return Finite(v) && v > 0
}

// Div divides a by b, returning fallback when b is zero or the result is not
// finite. Engine math must degrade, never panic or propagate NaN.
func Div(a, b, fallback float64) float64 {
	if b == 0 {
		return fallback
	}
	q := a / b
	if !Finite(q) {
		return fallback
	}
	return q
}

// Clamp bounds v to [lo, hi]. A NaN v clamps to fallback so a degenerate
// intermediate value cannot leak out of a bounded formula.
func Clamp(v, lo, hi, fallback float64) float64 {
	if math.IsNaN(v) {
		return fallback
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Pct expresses part/whole as a percentage, 0 when whole is zero.
func Pct(part, whole float64) float64 {
	return Div(part, whole, 0) * 100
}
