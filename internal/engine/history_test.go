package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/you/arb-engine/internal/types"
)

func opp(venuePath string, ts time.Time) types.Opportunity {
	return types.Opportunity{VenuePath: venuePath, Ts: ts}
}

func TestHistory_RecordAndGet(t *testing.T) {
	h := NewHistory(7 * 24 * time.Hour)
	now := time.Now().UTC()

	h.Record(opp("Binance->Bybit", now))
	h.Record(opp("Binance->Bybit", now))
	h.Record(opp("Binance", now))

	assert.Len(t, h.Get("Binance->Bybit", now), 2)
	assert.Len(t, h.Get("Binance", now), 1)
	assert.Empty(t, h.Get("Bybit", now))
	assert.Equal(t, 3, h.Size())
}

func TestHistory_PrunesBeyondRetention(t *testing.T) {
	h := NewHistory(7 * 24 * time.Hour)
	old := time.Now().UTC().Add(-8 * 24 * time.Hour)

	for i := 0; i < 5; i++ {
		h.Record(opp("Binance", old))
	}
	// The write path itself sweeps: nothing older than the window survives,
	// and the emptied bucket is removed outright.
	assert.Equal(t, 0, h.Size())
	assert.Equal(t, 0, h.buckets.Count())

	now := time.Now().UTC()
	h.Record(opp("Binance", now))
	assert.Equal(t, 1, h.Size())
	assert.Len(t, h.Get("Binance", now), 1)
}

func TestHistory_PartialBucketPrune(t *testing.T) {
	h := NewHistory(24 * time.Hour)
	now := time.Now().UTC()
	stale := now.Add(-25 * time.Hour)

	// Same calendar bucket can mix retained and expired entries when the
	// retention window is shorter than a day boundary crossing.
	h.buckets.Set(bucketKey("Binance", now), []types.Opportunity{
		opp("Binance", stale),
		opp("Binance", now),
	})

	h.Record(opp("Binance", now))
	got := h.Get("Binance", now)
	assert.Len(t, got, 2)
	for _, o := range got {
		assert.True(t, o.Ts.After(now.Add(-24*time.Hour)))
	}
}

func TestHistory_GetReturnsCopy(t *testing.T) {
	h := NewHistory(7 * 24 * time.Hour)
	now := time.Now().UTC()
	h.Record(opp("Binance", now))

	got := h.Get("Binance", now)
	got[0].VenuePath = "mutated"

	assert.Equal(t, "Binance", h.Get("Binance", now)[0].VenuePath)
}
