package stream

import "time"

// Default reconnect backoff bounds. The delay starts at the base, doubles
// on each consecutive failure, and never exceeds the cap.
const (
	DefaultInitialBackoff = 1 * time.Second
	DefaultMaxBackoff     = 30 * time.Second
)

// backoff produces the capped exponential reconnect delay sequence.
type backoff struct {
	base    time.Duration
	max     time.Duration
	current time.Duration
}

func newBackoff(base, max time.Duration) backoff {
	if base <= 0 {
		base = DefaultInitialBackoff
	}
	if max <= 0 {
		max = DefaultMaxBackoff
	}
	return backoff{base: base, max: max, current: base}
}

// Next returns the delay to wait before the next attempt and advances the
// sequence: base, 2×base, 4×base, ... capped at max.
func (b *backoff) Next() time.Duration {
	d := b.current
	b.current = min(b.current*2, b.max)
	return d
}

// Reset returns the sequence to the base delay. Only a successful reset
// event from the feed (or an explicit disconnect) does this.
func (b *backoff) Reset() {
	b.current = b.base
}
