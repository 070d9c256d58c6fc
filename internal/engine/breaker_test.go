package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreaker_OpensAtThreshold(t *testing.T) {
	b := NewBreaker(5, 5*time.Minute)

	for i := 0; i < 4; i++ {
		b.RecordFailure()
	}
	assert.False(t, b.IsOpen(), "threshold-1 failures must not open")

	b.RecordFailure()
	assert.True(t, b.IsOpen(), "threshold failures must open")
}

func TestBreaker_HealsAfterResetWindow(t *testing.T) {
	b := NewBreaker(2, 50*time.Millisecond)
	b.RecordFailure()
	b.RecordFailure()
	assert.True(t, b.IsOpen())

	time.Sleep(80 * time.Millisecond)
	assert.False(t, b.IsOpen(), "elapsed reset window must close the breaker")

	// The count keeps accumulating until an explicit Reset: one more failure
	// reopens immediately.
	b.RecordFailure()
	assert.True(t, b.IsOpen())
}

func TestBreaker_ExplicitReset(t *testing.T) {
	b := NewBreaker(2, 5*time.Minute)
	b.RecordFailure()
	b.RecordFailure()
	assert.True(t, b.IsOpen())

	b.Reset()
	assert.False(t, b.IsOpen())
	assert.Equal(t, uint32(0), b.Failures())

	b.RecordFailure()
	assert.False(t, b.IsOpen(), "single failure after reset stays closed")
}

func TestBreaker_NeverFailedStaysClosed(t *testing.T) {
	b := NewBreaker(1, time.Minute)
	assert.False(t, b.IsOpen())
}
