package bot

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/you/arb-engine/internal/types"
)

func TestBackoff(t *testing.T) {
	assert.Equal(t, 2*time.Second, backoff(1))
	assert.Equal(t, 4*time.Second, backoff(2))
	assert.Equal(t, 32*time.Second, backoff(5))
	assert.Equal(t, 64*time.Second, backoff(6))
	assert.Equal(t, 64*time.Second, backoff(10), "sleep is capped")
}

func TestChanSink(t *testing.T) {
	ch := make(chan types.Opportunity, 1)
	sink := ChanSink(ch)

	opp := types.Opportunity{VenuePath: "binance->bybit", NetProfitPct: decimal.NewFromInt(1)}
	assert.NoError(t, sink.Publish(context.Background(), opp))

	got := <-ch
	assert.Equal(t, "binance->bybit", got.VenuePath)
}

func TestChanSink_FullChannelDropsInsteadOfBlocking(t *testing.T) {
	ch := make(chan types.Opportunity, 1)
	sink := ChanSink(ch)

	assert.NoError(t, sink.Publish(context.Background(), types.Opportunity{}))

	done := make(chan error, 1)
	go func() { done <- sink.Publish(context.Background(), types.Opportunity{}) }()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full channel")
	}
}
