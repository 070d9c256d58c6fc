package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/you/arb-engine/internal/types"
	"go.uber.org/zap"
)

// scanTriangles evaluates every configured 3-leg cycle against one venue's
// snapshot. For each cycle the forward direction (settlement -> base1 ->
// base2 -> settlement) is checked before the reverse; if both clear the
// threshold only the forward plan is emitted.
func (e *Engine) scanTriangles(ctx context.Context, snap VenueSnapshot) {
	one := decimal.NewFromInt(1)
	legFees := e.params.Fees.Taker.Mul(three)

	for _, tri := range e.params.Triangles {
		p1, ok1 := snap.Prices[tri.Pair1]
		p2, ok2 := snap.Prices[tri.Pair2]
		p3, ok3 := snap.Prices[tri.Pair3]
		if !ok1 || !ok2 || !ok3 {
			continue
		}
		if p1.IsZero() || p2.IsZero() || p3.IsZero() {
			continue
		}

		// Forward: 1 unit of settlement -> 1/p1 base1 -> (1/p1)*p2 base2
		// -> (1/p1)*p2*p3 settlement.
		forward := one.Div(p1).Mul(p2).Mul(p3)
		forwardGross := forward.Sub(one).Mul(hundred)
		forwardNet := forwardGross.Sub(legFees.Mul(hundred))

		// Reverse: 1 unit of settlement -> 1/p3 base2 -> (1/p3)/p2 base1
		// -> ((1/p3)/p2)*p1 settlement.
		reverse := one.Div(p3).Div(p2).Mul(p1)
		reverseGross := reverse.Sub(one).Mul(hundred)
		reverseNet := reverseGross.Sub(legFees.Mul(hundred))

		switch {
		case forwardNet.GreaterThan(e.params.MinProfitThreshold):
			opp := e.buildForwardPlan(snap.Venue, tri, p1, p2, p3, forward, forwardGross, forwardNet, legFees)
			e.log.Info("triangular opportunity found (forward)",
				zap.String("venue", snap.Venue),
				zap.String("cycle", tri.Pair1+"/"+tri.Pair2+"/"+tri.Pair3),
				zap.String("net_pct", forwardNet.StringFixed(4)),
			)
			e.record(ctx, "triangular", opp)
		case reverseNet.GreaterThan(e.params.MinProfitThreshold):
			opp := e.buildReversePlan(snap.Venue, tri, p1, p2, p3, reverse, reverseGross, reverseNet, legFees)
			e.log.Info("triangular opportunity found (reverse)",
				zap.String("venue", snap.Venue),
				zap.String("cycle", tri.Pair1+"/"+tri.Pair2+"/"+tri.Pair3),
				zap.String("net_pct", reverseNet.StringFixed(4)),
			)
			e.record(ctx, "triangular", opp)
		}
	}
}

func (e *Engine) buildForwardPlan(venue string, tri types.Triangle, p1, p2, p3, factor, grossPct, netPct, legFees decimal.Decimal) types.Opportunity {
	one := decimal.NewFromInt(1)
	settlement := e.params.Settlement
	base1 := strings.TrimSuffix(tri.Pair1, settlement)
	base2 := strings.TrimSuffix(tri.Pair3, settlement)

	amount := e.params.MaxPositionSize
	base1Qty := amount.Div(p1)
	base2Qty := base1Qty.Mul(p2)
	estProfit := amount.Mul(factor.Sub(one)).Sub(amount.Mul(legFees))

	steps := []types.ExecutionStep{
		{
			Action:        fmt.Sprintf("Buy %s with %s", base1, settlement),
			Venue:         venue,
			Symbol:        tri.Pair1,
			Side:          types.Buy,
			Quantity:      base1Qty,
			ExpectedPrice: p1,
			Fees:          amount.Mul(e.params.Fees.Taker),
		},
		{
			Action:        fmt.Sprintf("Trade %s to %s", base1, base2),
			Venue:         venue,
			Symbol:        tri.Pair2,
			Side:          types.Sell,
			Quantity:      base1Qty,
			ExpectedPrice: p2,
			Fees:          base1Qty.Mul(p2).Mul(e.params.Fees.Taker),
		},
		{
			Action:        fmt.Sprintf("Sell %s for %s", base2, settlement),
			Venue:         venue,
			Symbol:        tri.Pair3,
			Side:          types.Sell,
			Quantity:      base2Qty,
			ExpectedPrice: p3,
			Fees:          base2Qty.Mul(p3).Mul(e.params.Fees.Taker),
		},
	}

	return types.Opportunity{
		VenuePath: venue,
		Legs: []string{
			fmt.Sprintf("Buy %s with %s at %s", base1, settlement, p1),
			fmt.Sprintf("Trade %s to %s via %s at %s", base1, base2, tri.Pair2, p2),
			fmt.Sprintf("Sell %s for %s at %s", base2, settlement, p3),
		},
		GrossProfitPct: grossPct,
		NetProfitPct:   netPct,
		PositionSize:   amount,
		EstProfitQuote: estProfit,
		RiskScore:      triangleRiskScore(p1, p2, p3),
		Steps:          steps,
		Ts:             time.Now().UTC(),
	}
}

func (e *Engine) buildReversePlan(venue string, tri types.Triangle, p1, p2, p3, factor, grossPct, netPct, legFees decimal.Decimal) types.Opportunity {
	one := decimal.NewFromInt(1)
	settlement := e.params.Settlement
	base1 := strings.TrimSuffix(tri.Pair1, settlement)
	base2 := strings.TrimSuffix(tri.Pair3, settlement)

	amount := e.params.MaxPositionSize
	base2Qty := amount.Div(p3)
	base1Qty := base2Qty.Div(p2)
	estProfit := amount.Mul(factor.Sub(one)).Sub(amount.Mul(legFees))

	steps := []types.ExecutionStep{
		{
			Action:        fmt.Sprintf("Buy %s with %s", base2, settlement),
			Venue:         venue,
			Symbol:        tri.Pair3,
			Side:          types.Buy,
			Quantity:      base2Qty,
			ExpectedPrice: p3,
			Fees:          amount.Mul(e.params.Fees.Taker),
		},
		{
			Action:        fmt.Sprintf("Trade %s to %s", base2, base1),
			Venue:         venue,
			Symbol:        tri.Pair2,
			Side:          types.Buy,
			Quantity:      base1Qty,
			ExpectedPrice: p2,
			Fees:          base2Qty.Mul(e.params.Fees.Taker),
		},
		{
			Action:        fmt.Sprintf("Sell %s for %s", base1, settlement),
			Venue:         venue,
			Symbol:        tri.Pair1,
			Side:          types.Sell,
			Quantity:      base1Qty,
			ExpectedPrice: p1,
			Fees:          base1Qty.Mul(p1).Mul(e.params.Fees.Taker),
		},
	}

	return types.Opportunity{
		VenuePath: venue,
		Legs: []string{
			fmt.Sprintf("Buy %s with %s at %s", base2, settlement, p3),
			fmt.Sprintf("Trade %s to %s via %s at %s", base2, base1, tri.Pair2, p2),
			fmt.Sprintf("Sell %s for %s at %s", base1, settlement, p1),
		},
		GrossProfitPct: grossPct,
		NetProfitPct:   netPct,
		PositionSize:   amount,
		EstProfitQuote: estProfit,
		RiskScore:      triangleRiskScore(p1, p2, p3),
		Steps:          steps,
		Ts:             time.Now().UTC(),
	}
}
