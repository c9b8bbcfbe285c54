package infra

import (
	"testing"
	"time"
)

func TestBackoffPolicyDelay(t *testing.T) {
	tests := []struct {
		name   string
		policy BackoffPolicy
		retry  int
		want   time.Duration
	}{
		{"stream first retry", StreamBackoff, 0, 1 * time.Second},
		{"stream doubles", StreamBackoff, 1, 2 * time.Second},
		{"stream third", StreamBackoff, 2, 4 * time.Second},
		{"stream capped", StreamBackoff, 10, 60 * time.Second},
		{"stream capped far out", StreamBackoff, 100, 60 * time.Second},
		{"stream negative reads as first", StreamBackoff, -1, 1 * time.Second},
		{"rest first retry", RestBackoff, 0, 500 * time.Millisecond},
		{"rest doubles", RestBackoff, 2, 2 * time.Second},
		{"rest capped", RestBackoff, 5, 10 * time.Second},
	}

	for _, tt := range tests {
		if got := tt.policy.Delay(tt.retry); got != tt.want {
			t.Errorf("%s: Delay(%d) = %s, want %s", tt.name, tt.retry, got, tt.want)
		}
	}
}

func TestBackoffPolicyShiftOverflowGuard(t *testing.T) {
	p := BackoffPolicy{Base: time.Second, Max: time.Minute}
	for _, retry := range []int{31, 63, 64, 1 << 20} {
		if got := p.Delay(retry); got != p.Max {
			t.Errorf("Delay(%d) = %s, want cap %s", retry, got, p.Max)
		}
	}
}
