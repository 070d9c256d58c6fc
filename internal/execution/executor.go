package execution

import (
	"context"

	"github.com/you/arb-engine/internal/exchange"
	"github.com/you/arb-engine/internal/risk"
	"github.com/you/arb-engine/internal/types"
	"go.uber.org/zap"
)

type breakerIface interface {
	IsCircuitOpen() bool
}

// Executor consumes gated opportunities. Order placement stays disabled
// unless execution is explicitly enabled in config; the default behavior is
// to log the full plan and do nothing.
type Executor struct {
	venues  map[string]exchange.Venue
	risk    *risk.Engine
	breaker breakerIface
	log     *zap.Logger
}

func NewExecutor(venues map[string]exchange.Venue, riskEng *risk.Engine, breaker breakerIface, log *zap.Logger) *Executor {
	return &Executor{venues: venues, risk: riskEng, breaker: breaker, log: log}
}

func (e *Executor) Run(ctx context.Context, in <-chan types.Opportunity) {
	for {
		select {
		case <-ctx.Done():
			return
		case opp := <-in:
			e.handle(ctx, opp)
		}
	}
}

func (e *Executor) handle(ctx context.Context, opp types.Opportunity) {
	if e.breaker.IsCircuitOpen() {
		e.log.Warn("circuit breaker open, skipping execution", zap.String("path", opp.VenuePath))
		return
	}
	if opp.RiskScore > 0.7 {
		e.log.Warn("risk score too high, skipping execution",
			zap.Float64("risk", opp.RiskScore),
			zap.String("path", opp.VenuePath),
		)
		return
	}
	if !e.risk.AllowExecution(opp) {
		e.log.Warn("execution disabled for safety, opportunity logged only",
			zap.String("path", opp.VenuePath),
			zap.String("net_pct", opp.NetProfitPct.StringFixed(4)),
			zap.Strings("legs", opp.Legs),
		)
		return
	}

	for i, step := range opp.Steps {
		venue, ok := e.venues[step.Venue]
		if !ok {
			e.log.Error("no connector for venue, aborting plan",
				zap.String("venue", step.Venue),
				zap.Int("step", i),
			)
			return
		}
		receipt, err := venue.PlaceOrder(ctx, types.OrderRequest{
			Symbol:   step.Symbol,
			Side:     step.Side,
			Type:     types.Limit,
			Quantity: step.Quantity,
			Price:    step.ExpectedPrice,
		})
		if err != nil {
			e.log.Error("order placement failed, aborting plan",
				zap.String("venue", step.Venue),
				zap.String("symbol", step.Symbol),
				zap.Int("step", i),
				zap.Error(err),
			)
			return
		}
		e.log.Info("leg executed",
			zap.String("venue", step.Venue),
			zap.String("order_id", receipt.OrderID),
			zap.String("filled", receipt.FilledQty.String()),
			zap.String("avg_price", receipt.AvgPrice.String()),
		)
	}
}
