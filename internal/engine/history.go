package engine

import (
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/you/arb-engine/internal/types"
)

const dayLayout = "20060102"

// History retains discovered opportunities in day buckets keyed by
// (venue path, date). Pruning is amortized into the write path: every Record
// sweeps all buckets, drops entries older than the retention window and
// removes buckets left empty.
type History struct {
	buckets   cmap.ConcurrentMap[string, []types.Opportunity]
	retention time.Duration
}

func NewHistory(retention time.Duration) *History {
	return &History{
		buckets:   cmap.New[[]types.Opportunity](),
		retention: retention,
	}
}

func bucketKey(venuePath string, ts time.Time) string {
	return venuePath + "_" + ts.UTC().Format(dayLayout)
}

func (h *History) Record(opp types.Opportunity) {
	key := bucketKey(opp.VenuePath, opp.Ts)
	h.buckets.Upsert(key, nil, func(_ bool, cur, _ []types.Opportunity) []types.Opportunity {
		return append(cur, opp)
	})
	h.prune()
}

func (h *History) prune() {
	cutoff := time.Now().Add(-h.retention)
	for item := range h.buckets.IterBuffered() {
		kept := item.Val[:0:0]
		for _, opp := range item.Val {
			if opp.Ts.After(cutoff) {
				kept = append(kept, opp)
			}
		}
		switch {
		case len(kept) == 0:
			h.buckets.Remove(item.Key)
		case len(kept) != len(item.Val):
			h.buckets.Set(item.Key, kept)
		}
	}
}

// Get returns the bucket for one venue path and day. The returned slice is a
// copy; callers may keep it across cycles.
func (h *History) Get(venuePath string, day time.Time) []types.Opportunity {
	opps, ok := h.buckets.Get(bucketKey(venuePath, day))
	if !ok {
		return nil
	}
	out := make([]types.Opportunity, len(opps))
	copy(out, opps)
	return out
}

// Size counts stored opportunities across all buckets.
func (h *History) Size() int {
	n := 0
	for item := range h.buckets.IterBuffered() {
		n += len(item.Val)
	}
	return n
}
