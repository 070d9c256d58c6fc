package engine

import (
	"math"

	"github.com/shopspring/decimal"
)

// spreadRiskScore maps the relative spread between two venue prices to a
// score in [0,1]. A wide spread usually means stale data or a volatile
// market, both of which make the fill less likely to happen at the quoted
// prices. A zero average price scores maximum risk.
func spreadRiskScore(priceDiff, avgPrice decimal.Decimal) float64 {
	if avgPrice.IsZero() {
		return 1.0
	}
	variance := priceDiff.Div(avgPrice).InexactFloat64()
	return math.Min(variance*10.0, 1.0)
}

// triangleRiskScore starts from a fixed 0.3 base (three legs means more
// latency exposure and more chances for a partial fill) and adds the average
// fractional deviation of the three leg prices from their mean.
func triangleRiskScore(p1, p2, p3 decimal.Decimal) float64 {
	const baseRisk = 0.3

	mean := decimal.Avg(p1, p2, p3)
	if mean.IsZero() {
		return 1.0
	}

	var dev float64
	for _, p := range []decimal.Decimal{p1, p2, p3} {
		dev += p.Sub(mean).Abs().Div(mean).InexactFloat64()
	}
	dev /= 3.0

	return math.Min(baseRisk+dev, 1.0)
}
