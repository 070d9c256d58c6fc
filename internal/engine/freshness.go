package engine

import (
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/shopspring/decimal"
)

type cacheEntry struct {
	price decimal.Decimal
	ts    time.Time
}

// freshnessGuard is the engine's sole defense against acting on a racing or
// glitched pair of price feeds. Staleness is judged against the previously
// cached observation, so the first observation of a symbol always passes the
// age check.
type freshnessGuard struct {
	cache       cmap.ConcurrentMap[string, cacheEntry]
	maxAge      time.Duration
	maxVariance decimal.Decimal
}

func newFreshnessGuard(maxAge time.Duration, maxVariance decimal.Decimal) *freshnessGuard {
	return &freshnessGuard{
		cache:       cmap.New[cacheEntry](),
		maxAge:      maxAge,
		maxVariance: maxVariance,
	}
}

// Observe records the averaged pair price and reports whether the pair is
// usable. A stale previous entry rejects the current pair; the observation
// itself is always recorded, whichever way the checks go.
func (g *freshnessGuard) Observe(symbol string, p1, p2 decimal.Decimal) bool {
	now := time.Now()
	avg := p1.Add(p2).Div(two)

	stale := false
	if prev, ok := g.cache.Get(symbol); ok {
		stale = now.Sub(prev.ts) > g.maxAge
	}

	// The entry is overwritten even when this observation is rejected, so a
	// single stale gap does not wedge the symbol forever.
	g.cache.Set(symbol, cacheEntry{price: avg, ts: now})

	if stale {
		return false
	}
	if avg.IsZero() {
		return false
	}
	variance := p1.Sub(p2).Abs().Div(avg)
	return variance.LessThanOrEqual(g.maxVariance)
}
