package engine

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/you/arb-engine/internal/types"
	"go.uber.org/zap"
)

func triParams() Params {
	p := testParams()
	p.Triangles = []types.Triangle{
		{Pair1: "BTCUSDT", Pair2: "ETHBTC", Pair3: "ETHUSDT"},
	}
	return p
}

func TestTriangular_RejectsUnprofitableRoundTrip(t *testing.T) {
	sink := &captureSink{}
	e, err := New(triParams(), zap.NewNop(), WithSink(sink))
	require.NoError(t, err)

	// (1/50000) * 0.06 * 3000 = 0.0036: a ~-64% round trip. Correctly
	// rejecting non-arbitrage inputs matters as much as finding real ones.
	snap := VenueSnapshot{Venue: "Binance", Prices: types.PriceSnapshot{
		"BTCUSDT": d("50000"),
		"ETHBTC":  d("0.06"),
		"ETHUSDT": d("3000"),
	}}
	e.scanTriangles(context.Background(), snap)
	assert.Empty(t, sink.opps)
}

func TestTriangular_ForwardProfitable(t *testing.T) {
	p := triParams()
	p.Triangles = []types.Triangle{{Pair1: "AAAUSDT", Pair2: "BBBAAA", Pair3: "BBBUSDT"}}
	sink := &captureSink{}
	e, err := New(p, zap.NewNop(), WithSink(sink))
	require.NoError(t, err)

	// Forward factor: (1/100) * 0.5 * 204 = 1.02, gross 2%, net 1.7%.
	snap := VenueSnapshot{Venue: "Binance", Prices: types.PriceSnapshot{
		"AAAUSDT": d("100"),
		"BBBAAA":  d("0.5"),
		"BBBUSDT": d("204"),
	}}
	e.scanTriangles(context.Background(), snap)
	require.Len(t, sink.opps, 1)

	opp := sink.opps[0]
	assert.Equal(t, "Binance", opp.VenuePath)
	assert.True(t, opp.GrossProfitPct.Equal(d("2")), "gross %s", opp.GrossProfitPct)
	assert.True(t, opp.NetProfitPct.Equal(d("1.7")), "net %s", opp.NetProfitPct)

	require.Len(t, opp.Steps, 3)
	assert.Equal(t, types.Buy, opp.Steps[0].Side)
	assert.Equal(t, "AAAUSDT", opp.Steps[0].Symbol)
	assert.Equal(t, types.Sell, opp.Steps[1].Side)
	assert.Equal(t, "BBBAAA", opp.Steps[1].Symbol)
	assert.Equal(t, types.Sell, opp.Steps[2].Side)
	assert.Equal(t, "BBBUSDT", opp.Steps[2].Symbol)

	// position * (factor-1) - position * 3*taker = 1000*0.02 - 1000*0.003
	assert.True(t, opp.EstProfitQuote.Equal(d("17")), "est profit %s", opp.EstProfitQuote)
	assert.GreaterOrEqual(t, opp.RiskScore, 0.3)
}

func TestTriangular_ReverseProfitable(t *testing.T) {
	p := triParams()
	p.Triangles = []types.Triangle{{Pair1: "AAAUSDT", Pair2: "BBBAAA", Pair3: "BBBUSDT"}}
	sink := &captureSink{}
	e, err := New(p, zap.NewNop(), WithSink(sink))
	require.NoError(t, err)

	// Forward factor (1/100)*0.5*196 = 0.98; reverse (1/196)/0.5*100 ≈ 1.0204.
	snap := VenueSnapshot{Venue: "Bybit", Prices: types.PriceSnapshot{
		"AAAUSDT": d("100"),
		"BBBAAA":  d("0.5"),
		"BBBUSDT": d("196"),
	}}
	e.scanTriangles(context.Background(), snap)
	require.Len(t, sink.opps, 1)

	opp := sink.opps[0]
	require.Len(t, opp.Steps, 3)
	// Reverse plan enters through pair3.
	assert.Equal(t, "BBBUSDT", opp.Steps[0].Symbol)
	assert.Equal(t, types.Buy, opp.Steps[0].Side)
	assert.Equal(t, "BBBAAA", opp.Steps[1].Symbol)
	assert.Equal(t, types.Buy, opp.Steps[1].Side)
	assert.Equal(t, "AAAUSDT", opp.Steps[2].Symbol)
	assert.Equal(t, types.Sell, opp.Steps[2].Side)
	assert.True(t, opp.NetProfitPct.GreaterThan(d("0.5")))
}

func TestTriangular_ForwardWinsWhenBothClear(t *testing.T) {
	// Forward and reverse factors multiply to 1, so both directions can only
	// clear the bar with pathological fees. Forward priority is documented
	// behavior; pin it.
	p := triParams()
	p.Triangles = []types.Triangle{{Pair1: "AAAUSDT", Pair2: "BBBAAA", Pair3: "BBBUSDT"}}
	p.Fees.Taker = d("-0.01")
	sink := &captureSink{}
	e, err := New(p, zap.NewNop(), WithSink(sink))
	require.NoError(t, err)

	snap := VenueSnapshot{Venue: "Binance", Prices: types.PriceSnapshot{
		"AAAUSDT": d("100"),
		"BBBAAA":  d("0.5"),
		"BBBUSDT": d("200"),
	}}
	e.scanTriangles(context.Background(), snap)
	require.Len(t, sink.opps, 1)
	assert.Equal(t, "AAAUSDT", sink.opps[0].Steps[0].Symbol, "forward plan must win")
}

func TestTriangular_SkipsZeroOrMissingLegs(t *testing.T) {
	sink := &captureSink{}
	e, err := New(triParams(), zap.NewNop(), WithSink(sink))
	require.NoError(t, err)

	e.scanTriangles(context.Background(), VenueSnapshot{Venue: "A", Prices: types.PriceSnapshot{
		"BTCUSDT": d("50000"),
		"ETHBTC":  decimal.Zero,
		"ETHUSDT": d("3000"),
	}})
	e.scanTriangles(context.Background(), VenueSnapshot{Venue: "A", Prices: types.PriceSnapshot{
		"BTCUSDT": d("50000"),
		"ETHUSDT": d("3000"),
	}})
	assert.Empty(t, sink.opps)
}
