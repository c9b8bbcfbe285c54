package vwap

import (
	"math"
	"testing"
	"time"

	"github.com/Trong-Tra/Clione/internal/domain"
)

func bar(h, l, c, v float64) domain.Bar {
	return domain.Bar{High: h, Low: l, Close: c, Volume: v, Ts: time.Now()}
}

func TestInitialize(t *testing.T) {
	t.Run("Single bar equals typical price", func(t *testing.T) {
		s := Initialize([]domain.Bar{bar(102, 98, 100, 10)})
		if s.VWAP != 100 {
			t.Errorf("got %v, want 100", s.VWAP)
		}
		if s.CumVolume != 10 {
			t.Errorf("got volume %v, want 10", s.CumVolume)
		}
	})

	t.Run("Weighted across bars", func(t *testing.T) {
		// typical prices 100 (vol 10) and 110 (vol 30) -> 107.5
		s := Initialize([]domain.Bar{bar(102, 98, 100, 10), bar(112, 108, 110, 30)})
		if s.VWAP != 107.5 {
			t.Errorf("got %v, want 107.5", s.VWAP)
		}
	})

	t.Run("Invalid bars skipped not fatal", func(t *testing.T) {
		s := Initialize([]domain.Bar{
			bar(102, 98, 100, 10),
			{High: math.NaN(), Low: 1, Close: 1, Volume: 1},
			bar(102, 98, 100, 0), // zero volume
		})
		if s.VWAP != 100 {
			t.Errorf("got %v, want 100", s.VWAP)
		}
		if s.CumVolume != 10 {
			t.Errorf("invalid bars must not contribute volume, got %v", s.CumVolume)
		}
	})

	t.Run("Empty input yields zero state", func(t *testing.T) {
		s := Initialize(nil)
		if s.VWAP != 0 || s.CumVolume != 0 {
			t.Errorf("got %+v, want zero state", s)
		}
	})
}

func TestAbsorb(t *testing.T) {
	t.Run("Invariant holds after every absorb", func(t *testing.T) {
		s := Initialize([]domain.Bar{bar(102, 98, 100, 10)})
		bars := []domain.Bar{bar(112, 108, 110, 5), bar(92, 88, 90, 20), bar(101, 99, 100, 1)}
		for _, b := range bars {
			s = s.Absorb(b)
			want := s.CumPV / s.CumVolume
			if math.Abs(s.VWAP-want) > 1e-12 {
				t.Fatalf("invariant broken: vwap=%v cumPV/cumVol=%v", s.VWAP, want)
			}
		}
	})

	t.Run("Zero-volume bar leaves vwap unchanged", func(t *testing.T) {
		s := Initialize([]domain.Bar{bar(102, 98, 100, 10)})
		next := s.Absorb(bar(200, 190, 195, 0))
		if next.VWAP != s.VWAP || next.CumVolume != s.CumVolume {
			t.Errorf("zero-volume bar mutated state: %+v -> %+v", s, next)
		}
	})

	t.Run("CumVolume never decreases", func(t *testing.T) {
		s := Initialize([]domain.Bar{bar(102, 98, 100, 10)})
		next := s.Absorb(bar(101, 99, 100, 3))
		if next.CumVolume < s.CumVolume {
			t.Error("cumulative volume decreased")
		}
	})

	t.Run("Absorb into empty session uses bar reference", func(t *testing.T) {
		var s State
		s = s.Absorb(bar(102, 98, 100, 4))
		if s.VWAP != 100 {
			t.Errorf("got %v, want 100", s.VWAP)
		}
	})
}

func TestReset(t *testing.T) {
	t.Run("No seed returns zero state", func(t *testing.T) {
		s := Initialize([]domain.Bar{bar(102, 98, 100, 10)})
		if got := s.Reset(nil); got != (State{}) {
			t.Errorf("got %+v, want zero state", got)
		}
	})

	t.Run("Seed bar establishes new session", func(t *testing.T) {
		s := Initialize([]domain.Bar{bar(102, 98, 100, 10)})
		seed := bar(112, 108, 110, 7)
		got := s.Reset(&seed)
		if got.VWAP != 110 {
			t.Errorf("got vwap %v, want 110", got.VWAP)
		}
		if got.CumVolume != 7 {
			t.Errorf("got volume %v, want 7", got.CumVolume)
		}
	})
}
