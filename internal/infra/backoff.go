package infra

import "time"

// BackoffPolicy produces exponential retry delays: Base * 2^retry, capped
// at Max. Policy values are immutable and safe to share.
type BackoffPolicy struct {
	Base time.Duration
	Max  time.Duration
}

// RestBackoff paces retries against the venue's REST endpoints. Transient
// 5xx responses and timeouts usually clear within seconds, so delays start
// short and cap well under the info rate window.
var RestBackoff = BackoffPolicy{Base: 500 * time.Millisecond, Max: 10 * time.Second}

// StreamBackoff paces websocket reconnects. A down venue stays down for a
// while; reconnect pressure only risks the client's IP allowance.
var StreamBackoff = BackoffPolicy{Base: 1 * time.Second, Max: 60 * time.Second}

// Delay returns the wait before retry number retry. Negative counts read
// as the first retry.
func (p BackoffPolicy) Delay(retry int) time.Duration {
	if retry < 0 {
		return p.Base
	}

	// 2^30 base units already dwarf any Max; cap before the shift overflows.
	if retry > 30 {
		return p.Max
	}

	d := p.Base * time.Duration(1<<retry)
	if d > p.Max {
		return p.Max
	}
	return d
}
