package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/you/arb-engine/internal/config"
	"github.com/you/arb-engine/internal/metrics"
	"github.com/you/arb-engine/internal/orderbook"
	"github.com/you/arb-engine/internal/types"
	"go.uber.org/zap"
)

var (
	two     = decimal.NewFromInt(2)
	three   = decimal.NewFromInt(3)
	hundred = decimal.NewFromInt(100)
)

// Params carries all engine configuration. Immutable after New.
type Params struct {
	MinProfitThreshold decimal.Decimal // percent, e.g. 0.5 means 0.5%
	MaxPositionSize    decimal.Decimal // quote-currency units per opportunity
	Pairs              []string
	Triangles          []types.Triangle
	Settlement         string
	Fees               types.TradingFees // fractions, e.g. 0.001

	StalenessWindow    time.Duration
	VarianceTolerance  decimal.Decimal // fraction, e.g. 0.1
	RetentionWindow    time.Duration
	BreakerThreshold   uint32
	BreakerResetWindow time.Duration
}

// ParamsFromConfig converts the percent-based config values into the
// fraction-based parameters the calculators work in.
func ParamsFromConfig(c *config.Config) Params {
	return Params{
		MinProfitThreshold: decimal.NewFromFloat(c.Trading.MinProfitThresholdPct),
		MaxPositionSize:    decimal.NewFromFloat(c.Trading.MaxPositionSize),
		Pairs:              c.Trading.Pairs,
		Triangles:          c.Trading.Triangles,
		Settlement:         c.Trading.Settlement,
		Fees: types.TradingFees{
			Maker:      decimal.NewFromFloat(c.Fees.MakerPct).Div(hundred),
			Taker:      decimal.NewFromFloat(c.Fees.TakerPct).Div(hundred),
			Withdrawal: decimal.NewFromFloat(c.Fees.WithdrawalPct).Div(hundred),
		},
		StalenessWindow:    c.StalenessWindow(),
		VarianceTolerance:  decimal.NewFromFloat(float64(c.Monitoring.VariancePct)).Div(hundred),
		RetentionWindow:    c.RetentionWindow(),
		BreakerThreshold:   c.Risk.CircuitBreakerThreshold,
		BreakerResetWindow: c.BreakerResetWindow(),
	}
}

// Sink receives every recorded opportunity, e.g. a Redis stream publisher.
type Sink interface {
	Publish(ctx context.Context, opp types.Opportunity) error
}

type Option func(*Engine)

func WithSink(s Sink) Option {
	return func(e *Engine) { e.sinks = append(e.sinks, s) }
}

// VenueSnapshot pairs one venue's name with its current price snapshot.
type VenueSnapshot struct {
	Venue  string
	Prices types.PriceSnapshot
}

// Engine detects cross-exchange and triangular arbitrage over externally
// supplied price snapshots. It owns the freshness cache, the opportunity
// history and the circuit breaker; snapshots and order books are read-only
// borrows from the caller.
type Engine struct {
	params  Params
	guard   *freshnessGuard
	history *History
	breaker *Breaker
	sinks   []Sink
	log     *zap.Logger
}

func New(params Params, log *zap.Logger, opts ...Option) (*Engine, error) {
	if params.MinProfitThreshold.IsNegative() {
		return nil, fmt.Errorf("min profit threshold cannot be negative")
	}
	if !params.MaxPositionSize.IsPositive() {
		return nil, fmt.Errorf("max position size must be positive")
	}
	if len(params.Pairs) == 0 {
		return nil, fmt.Errorf("trading pair universe cannot be empty")
	}
	if params.Settlement == "" {
		params.Settlement = "USDT"
	}
	if params.StalenessWindow == 0 {
		params.StalenessWindow = 30 * time.Second
	}
	if params.VarianceTolerance.IsZero() {
		params.VarianceTolerance = decimal.RequireFromString("0.1")
	}
	if params.RetentionWindow == 0 {
		params.RetentionWindow = 7 * 24 * time.Hour
	}
	if params.BreakerThreshold == 0 {
		params.BreakerThreshold = 5
	}
	if params.BreakerResetWindow == 0 {
		params.BreakerResetWindow = 5 * time.Minute
	}

	e := &Engine{
		params:  params,
		guard:   newFreshnessGuard(params.StalenessWindow, params.VarianceTolerance),
		history: NewHistory(params.RetentionWindow),
		breaker: NewBreaker(params.BreakerThreshold, params.BreakerResetWindow),
		log:     log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Analyze runs one detection cycle over two venue snapshots. Finding nothing
// is a success; an open circuit breaker suppresses the whole cycle.
func (e *Engine) Analyze(ctx context.Context, a, b VenueSnapshot) error {
	if e.breaker.IsOpen() {
		e.log.Warn("circuit breaker open, skipping opportunity analysis")
		return nil
	}

	e.scanCrossExchange(ctx, a, b)
	e.scanTriangles(ctx, a)
	e.scanTriangles(ctx, b)
	return nil
}

// scanCrossExchange compares each configured pair across the two venues and
// records every spread whose fee-adjusted profit clears the threshold.
func (e *Engine) scanCrossExchange(ctx context.Context, a, b VenueSnapshot) {
	for _, pair := range e.params.Pairs {
		pa, okA := a.Prices[pair]
		pb, okB := b.Prices[pair]
		if !okA || !okB || pa.IsZero() || pb.IsZero() {
			continue
		}

		if !e.guard.Observe(pair, pa, pb) {
			e.log.Debug("stale or inconsistent pair skipped", zap.String("pair", pair))
			continue
		}

		diff := pa.Sub(pb).Abs()
		avg := pa.Add(pb).Div(two)
		if avg.IsZero() {
			e.log.Warn("zero average price", zap.String("pair", pair))
			continue
		}

		grossPct := diff.Div(avg).Mul(hundred)
		metrics.LastSpreadPct.WithLabelValues(pair).Set(grossPct.InexactFloat64())

		// Two legs: sell high on one venue, buy back low on the other.
		netPct := grossPct.Sub(e.params.Fees.Taker.Mul(two).Mul(hundred))
		if netPct.LessThanOrEqual(e.params.MinProfitThreshold) {
			continue
		}

		sellVenue, buyVenue, sellPx, buyPx := a.Venue, b.Venue, pa, pb
		if pb.GreaterThan(pa) {
			sellVenue, buyVenue, sellPx, buyPx = b.Venue, a.Venue, pb, pa
		}

		qty := e.params.MaxPositionSize.Div(sellPx)
		sellFee := sellPx.Mul(qty).Mul(e.params.Fees.Taker)
		buyFee := buyPx.Mul(qty).Mul(e.params.Fees.Taker)
		estProfit := sellPx.Sub(buyPx).Mul(qty).Sub(sellFee).Sub(buyFee)

		opp := types.Opportunity{
			VenuePath: sellVenue + "->" + buyVenue,
			Legs: []string{
				fmt.Sprintf("Sell %s on %s at %s", pair, sellVenue, sellPx),
				fmt.Sprintf("Buy %s on %s at %s", pair, buyVenue, buyPx),
			},
			GrossProfitPct: grossPct,
			NetProfitPct:   netPct,
			PositionSize:   e.params.MaxPositionSize,
			EstProfitQuote: estProfit,
			RiskScore:      spreadRiskScore(diff, avg),
			Steps: []types.ExecutionStep{
				{
					Action:        "Sell on " + sellVenue,
					Venue:         sellVenue,
					Symbol:        pair,
					Side:          types.Sell,
					Quantity:      qty,
					ExpectedPrice: sellPx,
					Fees:          sellFee,
				},
				{
					Action:        "Buy on " + buyVenue,
					Venue:         buyVenue,
					Symbol:        pair,
					Side:          types.Buy,
					Quantity:      qty,
					ExpectedPrice: buyPx,
					Fees:          buyFee,
				},
			},
			Ts: time.Now().UTC(),
		}

		e.log.Info("cross-exchange opportunity found",
			zap.String("pair", pair),
			zap.String("path", opp.VenuePath),
			zap.String("gross_pct", grossPct.StringFixed(4)),
			zap.String("net_pct", netPct.StringFixed(4)),
			zap.Float64("risk", opp.RiskScore),
		)
		e.record(ctx, "cross_exchange", opp)
	}
}

func (e *Engine) record(ctx context.Context, kind string, opp types.Opportunity) {
	e.history.Record(opp)
	metrics.OpportunitiesFound.WithLabelValues(kind).Inc()
	for _, s := range e.sinks {
		if err := s.Publish(ctx, opp); err != nil {
			e.log.Warn("opportunity sink publish failed", zap.Error(err))
		}
	}
}

// EvaluateExecutionImpact pre-checks a candidate trade against real depth.
func (e *Engine) EvaluateExecutionImpact(book *types.OrderBook, qty decimal.Decimal, side types.Side) (*orderbook.Impact, error) {
	return orderbook.CalculateImpact(book, qty, side)
}

func (e *Engine) RecordFailure() { e.breaker.RecordFailure() }

func (e *Engine) IsCircuitOpen() bool { return e.breaker.IsOpen() }

func (e *Engine) ResetCircuitBreaker() { e.breaker.Reset() }

// History returns the opportunities recorded for one venue path on one day.
func (e *Engine) History(venuePath string, day time.Time) []types.Opportunity {
	return e.history.Get(venuePath, day)
}

func (e *Engine) HistorySize() int { return e.history.Size() }
