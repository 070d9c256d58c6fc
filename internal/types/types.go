package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

type OrderType string

const (
	Market OrderType = "MARKET"
	Limit  OrderType = "LIMIT"
)

// PriceSnapshot maps a trading-pair symbol to its last quoted price on one
// venue. Snapshots are supplied fresh by the driver each scan cycle and are
// read-only for the duration of one Analyze call.
type PriceSnapshot map[string]decimal.Decimal

type PriceLevel struct {
	Price decimal.Decimal `json:"price"`
	Qty   decimal.Decimal `json:"qty"`
}

// OrderBook holds sorted depth for one symbol: bids descending, asks ascending.
type OrderBook struct {
	Symbol string       `json:"symbol"`
	Bids   []PriceLevel `json:"bids"`
	Asks   []PriceLevel `json:"asks"`
	Ts     time.Time    `json:"ts"`
}

type TradingFees struct {
	Maker      decimal.Decimal
	Taker      decimal.Decimal
	Withdrawal decimal.Decimal
}

// DefaultFees mirrors the standard spot schedule: 0.1% maker/taker,
// 0.05% withdrawal.
func DefaultFees() TradingFees {
	return TradingFees{
		Maker:      decimal.RequireFromString("0.001"),
		Taker:      decimal.RequireFromString("0.001"),
		Withdrawal: decimal.RequireFromString("0.0005"),
	}
}

// Triangle is one 3-leg cycle within a single venue. Pair1 and Pair3 are
// quoted against the settlement currency; Pair2 bridges their base assets,
// e.g. BTCUSDT / ETHBTC / ETHUSDT.
type Triangle struct {
	Pair1 string `yaml:"pair1"`
	Pair2 string `yaml:"pair2"`
	Pair3 string `yaml:"pair3"`
}

// ExecutionStep is one leg of an opportunity's plan. The ordered legs form a
// closed loop returning to the starting unit of account.
type ExecutionStep struct {
	Action        string          `json:"action"`
	Venue         string          `json:"venue"`
	Symbol        string          `json:"symbol"`
	Side          Side            `json:"side"`
	Quantity      decimal.Decimal `json:"quantity"`
	ExpectedPrice decimal.Decimal `json:"expected_price"`
	Fees          decimal.Decimal `json:"fees"`
}

// Opportunity is an immutable record of one detected arbitrage. NetProfitPct
// is GrossProfitPct minus all leg fees; only opportunities whose net profit
// clears the configured threshold are ever surfaced.
type Opportunity struct {
	VenuePath      string          `json:"venue_path"`
	Legs           []string        `json:"legs"`
	GrossProfitPct decimal.Decimal `json:"gross_profit_pct"`
	NetProfitPct   decimal.Decimal `json:"net_profit_pct"`
	PositionSize   decimal.Decimal `json:"position_size"`
	EstProfitQuote decimal.Decimal `json:"est_profit_quote"`
	RiskScore      float64         `json:"risk_score"`
	Steps          []ExecutionStep `json:"steps"`
	Ts             time.Time       `json:"ts"`
}

type OrderRequest struct {
	Symbol   string
	Side     Side
	Type     OrderType
	Quantity decimal.Decimal
	Price    decimal.Decimal // ignored for Market orders
}

type OrderReceipt struct {
	OrderID   string
	Symbol    string
	FilledQty decimal.Decimal
	AvgPrice  decimal.Decimal
	Ts        time.Time
}
