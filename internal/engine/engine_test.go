package engine

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/you/arb-engine/internal/types"
	"go.uber.org/zap"
)

func testParams() Params {
	return Params{
		MinProfitThreshold: decimal.RequireFromString("0.5"),
		MaxPositionSize:    decimal.NewFromInt(1000),
		Pairs:              []string{"BTCUSDT", "ETHUSDT"},
		Settlement:         "USDT",
		Fees:               types.DefaultFees(),
	}
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := New(testParams(), zap.NewNop(), opts...)
	require.NoError(t, err)
	return e
}

type captureSink struct{ opps []types.Opportunity }

func (s *captureSink) Publish(_ context.Context, opp types.Opportunity) error {
	s.opps = append(s.opps, opp)
	return nil
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestNew_RejectsInvalidParams(t *testing.T) {
	p := testParams()
	p.MaxPositionSize = decimal.Zero
	_, err := New(p, zap.NewNop())
	assert.Error(t, err)

	p = testParams()
	p.MinProfitThreshold = d("-1")
	_, err = New(p, zap.NewNop())
	assert.Error(t, err)

	p = testParams()
	p.Pairs = nil
	_, err = New(p, zap.NewNop())
	assert.Error(t, err)
}

func TestAnalyze_CrossExchangeProfitable(t *testing.T) {
	sink := &captureSink{}
	e := newTestEngine(t, WithSink(sink))

	a := VenueSnapshot{Venue: "Binance", Prices: types.PriceSnapshot{"BTCUSDT": d("50000")}}
	b := VenueSnapshot{Venue: "Bybit", Prices: types.PriceSnapshot{"BTCUSDT": d("49000")}}

	require.NoError(t, e.Analyze(context.Background(), a, b))
	require.Len(t, sink.opps, 1)

	opp := sink.opps[0]
	assert.Equal(t, "Binance->Bybit", opp.VenuePath)

	diff := d("1000")
	avg := d("49500")
	wantGross := diff.Div(avg).Mul(decimal.NewFromInt(100))
	wantNet := wantGross.Sub(d("0.001").Mul(decimal.NewFromInt(2)).Mul(decimal.NewFromInt(100)))
	assert.True(t, opp.GrossProfitPct.Equal(wantGross), "gross %s != %s", opp.GrossProfitPct, wantGross)
	assert.True(t, opp.NetProfitPct.Equal(wantNet), "net %s != %s", opp.NetProfitPct, wantNet)

	require.Len(t, opp.Steps, 2)
	assert.Equal(t, types.Sell, opp.Steps[0].Side)
	assert.Equal(t, "Binance", opp.Steps[0].Venue)
	assert.Equal(t, types.Buy, opp.Steps[1].Side)
	assert.Equal(t, "Bybit", opp.Steps[1].Venue)

	// Sized at ceiling / sell price.
	assert.True(t, opp.Steps[0].Quantity.Equal(decimal.NewFromInt(1000).Div(d("50000"))))
	assert.True(t, opp.EstProfitQuote.IsPositive())
	assert.Equal(t, 1, e.HistorySize())
}

func TestAnalyze_SellVenueIsHigherPrice(t *testing.T) {
	sink := &captureSink{}
	e := newTestEngine(t, WithSink(sink))

	a := VenueSnapshot{Venue: "Binance", Prices: types.PriceSnapshot{"BTCUSDT": d("49000")}}
	b := VenueSnapshot{Venue: "Bybit", Prices: types.PriceSnapshot{"BTCUSDT": d("50000")}}

	require.NoError(t, e.Analyze(context.Background(), a, b))
	require.Len(t, sink.opps, 1)
	assert.Equal(t, "Bybit->Binance", sink.opps[0].VenuePath)
	assert.Equal(t, "Bybit", sink.opps[0].Steps[0].Venue)
}

func TestAnalyze_SkipsZeroAndMissingPrices(t *testing.T) {
	sink := &captureSink{}
	e := newTestEngine(t, WithSink(sink))

	a := VenueSnapshot{Venue: "A", Prices: types.PriceSnapshot{
		"BTCUSDT": decimal.Zero,
		"ETHUSDT": d("3000"),
	}}
	b := VenueSnapshot{Venue: "B", Prices: types.PriceSnapshot{
		"BTCUSDT": d("50000"),
		// ETHUSDT missing entirely
	}}

	require.NoError(t, e.Analyze(context.Background(), a, b))
	assert.Empty(t, sink.opps)
	assert.Equal(t, 0, e.HistorySize())
}

func TestAnalyze_IdenticalPricesBelowThreshold(t *testing.T) {
	sink := &captureSink{}
	e := newTestEngine(t, WithSink(sink))

	a := VenueSnapshot{Venue: "A", Prices: types.PriceSnapshot{"BTCUSDT": d("50000")}}
	b := VenueSnapshot{Venue: "B", Prices: types.PriceSnapshot{"BTCUSDT": d("50000")}}

	require.NoError(t, e.Analyze(context.Background(), a, b))
	assert.Empty(t, sink.opps)
}

func TestAnalyze_SpreadTooWideRejectedByVarianceGuard(t *testing.T) {
	sink := &captureSink{}
	e := newTestEngine(t, WithSink(sink))

	// 50% apart: hugely profitable on paper, but the guard rejects >10%
	// variance as a feed glitch.
	a := VenueSnapshot{Venue: "A", Prices: types.PriceSnapshot{"BTCUSDT": d("60000")}}
	b := VenueSnapshot{Venue: "B", Prices: types.PriceSnapshot{"BTCUSDT": d("30000")}}

	require.NoError(t, e.Analyze(context.Background(), a, b))
	assert.Empty(t, sink.opps)
}

func TestAnalyze_CircuitOpenSuppressesCycle(t *testing.T) {
	sink := &captureSink{}
	e := newTestEngine(t, WithSink(sink))

	for i := 0; i < 5; i++ {
		e.RecordFailure()
	}
	require.True(t, e.IsCircuitOpen())

	a := VenueSnapshot{Venue: "A", Prices: types.PriceSnapshot{"BTCUSDT": d("50000")}}
	b := VenueSnapshot{Venue: "B", Prices: types.PriceSnapshot{"BTCUSDT": d("49000")}}

	// Not an error: an open breaker is a no-op cycle.
	require.NoError(t, e.Analyze(context.Background(), a, b))
	assert.Empty(t, sink.opps)

	e.ResetCircuitBreaker()
	require.NoError(t, e.Analyze(context.Background(), a, b))
	assert.Len(t, sink.opps, 1)
}

func TestAnalyze_IdempotentOnFreshSnapshots(t *testing.T) {
	sink := &captureSink{}
	e := newTestEngine(t, WithSink(sink))

	a := VenueSnapshot{Venue: "A", Prices: types.PriceSnapshot{"BTCUSDT": d("50000")}}
	b := VenueSnapshot{Venue: "B", Prices: types.PriceSnapshot{"BTCUSDT": d("49000")}}

	require.NoError(t, e.Analyze(context.Background(), a, b))
	require.NoError(t, e.Analyze(context.Background(), a, b))

	require.Len(t, sink.opps, 2)
	assert.True(t, sink.opps[0].GrossProfitPct.Equal(sink.opps[1].GrossProfitPct))
	assert.Equal(t, 2, e.HistorySize())

	day := time.Now().UTC()
	assert.Len(t, e.History("A->B", day), 2)
}

func TestEvaluateExecutionImpact_Delegates(t *testing.T) {
	e := newTestEngine(t)
	book := &types.OrderBook{
		Symbol: "BTCUSDT",
		Asks: []types.PriceLevel{
			{Price: d("50010"), Qty: d("1.0")},
			{Price: d("50020"), Qty: d("2.0")},
		},
	}
	impact, err := e.EvaluateExecutionImpact(book, d("1.5"), types.Buy)
	require.NoError(t, err)
	assert.Equal(t, 2, impact.LevelsConsumed)
}
