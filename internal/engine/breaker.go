package engine

import (
	"time"

	"go.uber.org/atomic"
)

// Breaker suppresses analysis and execution after repeated upstream failures.
// The two fields are independently atomic; IsOpen is a snapshot read with
// last-write-wins semantics across them, which is fine for an advisory gate.
// There is no half-open state: the breaker heals by elapsed time alone, and
// the failure count keeps accumulating until the owner calls Reset.
type Breaker struct {
	failures    *atomic.Uint32
	lastFailure *atomic.Time
	threshold   uint32
	resetWindow time.Duration
}

func NewBreaker(threshold uint32, resetWindow time.Duration) *Breaker {
	return &Breaker{
		failures:    atomic.NewUint32(0),
		lastFailure: atomic.NewTime(time.Time{}),
		threshold:   threshold,
		resetWindow: resetWindow,
	}
}

func (b *Breaker) RecordFailure() {
	b.failures.Inc()
	b.lastFailure.Store(time.Now())
}

// IsOpen reports whether the breaker currently blocks work. Evaluated fresh
// on every call.
func (b *Breaker) IsOpen() bool {
	if b.failures.Load() < b.threshold {
		return false
	}
	last := b.lastFailure.Load()
	if last.IsZero() {
		return false
	}
	return time.Since(last) < b.resetWindow
}

// Reset clears the failure state unconditionally. The engine never calls this
// on its own; the driver decides when a success run has been long enough.
func (b *Breaker) Reset() {
	b.failures.Store(0)
	b.lastFailure.Store(time.Time{})
}

func (b *Breaker) Failures() uint32 { return b.failures.Load() }
