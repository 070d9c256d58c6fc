// impact-check reads an order-book JSON file and reports the execution
// impact of a target quantity: weighted average fill price, slippage against
// the top of the book, levels consumed and the expected latency budget.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/you/arb-engine/internal/orderbook"
	"github.com/you/arb-engine/internal/types"
)

func main() {
	bookPath := flag.String("book", "", "path to order-book JSON file")
	qtyStr := flag.String("qty", "1.0", "target quantity")
	sideStr := flag.String("side", "buy", "buy or sell")
	minDepth := flag.String("min-depth", "10000", "minimum notional depth for the liquidity check")
	flag.Parse()

	if *bookPath == "" {
		fmt.Fprintln(os.Stderr, "usage: impact-check -book book.json -qty 1.5 -side buy")
		os.Exit(2)
	}

	raw, err := os.ReadFile(*bookPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read book:", err)
		os.Exit(1)
	}
	var book types.OrderBook
	if err := json.Unmarshal(raw, &book); err != nil {
		fmt.Fprintln(os.Stderr, "parse book:", err)
		os.Exit(1)
	}

	qty, err := decimal.NewFromString(*qtyStr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "parse qty:", err)
		os.Exit(1)
	}
	side := types.Sell
	if *sideStr == "buy" {
		side = types.Buy
	}

	impact, err := orderbook.CalculateImpact(&book, qty, side)
	if err != nil {
		fmt.Fprintln(os.Stderr, "impact:", err)
		os.Exit(1)
	}

	fmt.Printf("symbol:            %s\n", book.Symbol)
	fmt.Printf("side / qty:        %s / %s\n", side, qty)
	fmt.Printf("weighted avg px:   %s\n", impact.WeightedAvgPrice)
	fmt.Printf("total cost:        %s\n", impact.TotalCost)
	fmt.Printf("slippage:          %s%%\n", impact.SlippagePct.StringFixed(4))
	fmt.Printf("levels consumed:   %d\n", impact.LevelsConsumed)
	fmt.Printf("est exec time:     %s\n", orderbook.EstimateExecutionTime(impact.LevelsConsumed))

	depth, _ := decimal.NewFromString(*minDepth)
	fmt.Printf("liquidity ok:      %v (min depth %s)\n", orderbook.HasMinimumLiquidity(&book, depth), depth)
}
