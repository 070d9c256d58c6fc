// Package orderbook analyzes how a target order size interacts with real
// market depth: achievable execution price, slippage against the top of the
// book, and whether the book can fill the order at all.
package orderbook

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/you/arb-engine/internal/types"
)

var (
	ErrEmptyBook             = errors.New("order book side is empty")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
)

// Impact is the ephemeral result of walking the book for one target quantity.
type Impact struct {
	WeightedAvgPrice decimal.Decimal
	TotalCost        decimal.Decimal
	SlippagePct      decimal.Decimal
	LevelsConsumed   int
	Executable       bool
}

// CalculateImpact walks levels from the best price outward until the target
// quantity is filled. Buying consumes asks, selling consumes bids. No partial
// fill is assumed: a book that cannot cover the full quantity returns
// ErrInsufficientLiquidity.
func CalculateImpact(book *types.OrderBook, quantity decimal.Decimal, side types.Side) (*Impact, error) {
	levels := book.Bids
	if side == types.Buy {
		levels = book.Asks
	}
	if len(levels) == 0 {
		return nil, fmt.Errorf("%s %s: %w", book.Symbol, side, ErrEmptyBook)
	}
	if !quantity.IsPositive() {
		return nil, fmt.Errorf("target quantity must be positive, got %s", quantity)
	}

	remaining := quantity
	totalCost := decimal.Zero
	consumed := 0

	for _, lvl := range levels {
		if !remaining.IsPositive() {
			break
		}
		fill := decimal.Min(remaining, lvl.Qty)
		totalCost = totalCost.Add(fill.Mul(lvl.Price))
		remaining = remaining.Sub(fill)
		consumed++
	}

	if remaining.IsPositive() {
		return nil, fmt.Errorf("%s: need %s more units: %w", book.Symbol, remaining, ErrInsufficientLiquidity)
	}

	avgPrice := totalCost.Div(quantity)
	bestPrice := levels[0].Price
	slippage := avgPrice.Sub(bestPrice).Div(bestPrice).Abs().Mul(decimal.NewFromInt(100))

	return &Impact{
		WeightedAvgPrice: avgPrice,
		TotalCost:        totalCost,
		SlippagePct:      slippage,
		LevelsConsumed:   consumed,
		Executable:       true,
	}, nil
}

const depthLevels = 10

// HasMinimumLiquidity sums notional depth across the top levels on both
// sides and compares against the configured floor, independent of any
// specific order size.
func HasMinimumLiquidity(book *types.OrderBook, minDepthQuote decimal.Decimal) bool {
	return sideDepth(book.Bids).GreaterThanOrEqual(minDepthQuote) &&
		sideDepth(book.Asks).GreaterThanOrEqual(minDepthQuote)
}

func sideDepth(levels []types.PriceLevel) decimal.Decimal {
	depth := decimal.Zero
	for i, lvl := range levels {
		if i >= depthLevels {
			break
		}
		depth = depth.Add(lvl.Price.Mul(lvl.Qty))
	}
	return depth
}

const (
	baseLatency     = 100 * time.Millisecond
	perLevelLatency = 50 * time.Millisecond
)

// EstimateExecutionTime gives callers a latency budget for deciding whether
// a detected margin survives the time it takes to eat the levels.
func EstimateExecutionTime(levelsConsumed int) time.Duration {
	return baseLatency + perLevelLatency*time.Duration(levelsConsumed)
}
