package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/you/arb-engine/internal/config"
	"github.com/you/arb-engine/internal/types"
	"go.uber.org/zap"
)

type Client struct {
	cfg  *config.Config
	log  *zap.Logger
	http *http.Client

	mu       sync.Mutex
	lastCall time.Time
}

func NewClient(cfg *config.Config, log *zap.Logger) *Client {
	return &Client{cfg: cfg, log: log, http: &http.Client{Timeout: 10 * time.Second}}
}

func (c *Client) Name() string { return "Binance" }

// pace enforces the configured minimum interval between REST calls.
func (c *Client) pace() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if wait := c.cfg.RateLimit() - time.Since(c.lastCall); wait > 0 {
		time.Sleep(wait)
	}
	c.lastCall = time.Now()
}

type tickerResp struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

func (c *Client) FetchPrices(ctx context.Context) (types.PriceSnapshot, error) {
	c.pace()
	endpoint := c.cfg.Binance.RestURL + "/api/v3/ticker/price"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("binance tickers: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("binance tickers %d: %s", resp.StatusCode, string(b))
	}

	var tickers []tickerResp
	if err := json.NewDecoder(resp.Body).Decode(&tickers); err != nil {
		return nil, fmt.Errorf("binance tickers decode: %w", err)
	}

	snap := make(types.PriceSnapshot, len(tickers))
	for _, t := range tickers {
		p, err := decimal.NewFromString(t.Price)
		if err != nil || !p.IsPositive() {
			continue
		}
		snap[t.Symbol] = p
	}
	return snap, nil
}

type depthResp struct {
	Bids [][2]string `json:"bids"`
	Asks [][2]string `json:"asks"`
}

func (c *Client) FetchOrderBook(ctx context.Context, symbol string, limit int) (*types.OrderBook, error) {
	c.pace()
	endpoint := fmt.Sprintf("%s/api/v3/depth?symbol=%s&limit=%d",
		c.cfg.Binance.RestURL, url.QueryEscape(symbol), limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("binance depth: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("binance depth %d: %s", resp.StatusCode, string(b))
	}

	var d depthResp
	if err := json.NewDecoder(resp.Body).Decode(&d); err != nil {
		return nil, fmt.Errorf("binance depth decode: %w", err)
	}

	book := &types.OrderBook{Symbol: symbol, Ts: time.Now().UTC()}
	book.Bids = parseLevels(d.Bids)
	book.Asks = parseLevels(d.Asks)
	return book, nil
}

func parseLevels(raw [][2]string) []types.PriceLevel {
	levels := make([]types.PriceLevel, 0, len(raw))
	for _, l := range raw {
		price, err1 := decimal.NewFromString(l[0])
		qty, err2 := decimal.NewFromString(l[1])
		if err1 != nil || err2 != nil {
			continue
		}
		levels = append(levels, types.PriceLevel{Price: price, Qty: qty})
	}
	return levels
}

func (c *Client) PlaceOrder(ctx context.Context, o types.OrderRequest) (*types.OrderReceipt, error) {
	c.pace()
	params := url.Values{}
	params.Set("symbol", o.Symbol)
	params.Set("side", string(o.Side))
	params.Set("type", string(o.Type))
	params.Set("quantity", o.Quantity.String())
	if o.Type == types.Limit {
		params.Set("price", o.Price.String())
		params.Set("timeInForce", "IOC")
	}
	params.Set("timestamp", fmt.Sprintf("%d", time.Now().UnixMilli()))
	params.Set("recvWindow", "5000")
	params.Set("signature", c.sign(params.Encode()))

	endpoint := c.cfg.Binance.RestURL + "/api/v3/order"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-MBX-APIKEY", c.cfg.Binance.ApiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("binance order: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("binance order %d: %s", resp.StatusCode, string(body))
	}

	var ack struct {
		OrderID     json.Number `json:"orderId"`
		ExecutedQty string      `json:"executedQty"`
		Fills       []struct {
			Price string `json:"price"`
			Qty   string `json:"qty"`
		} `json:"fills"`
	}
	if err := json.Unmarshal(body, &ack); err != nil {
		return nil, fmt.Errorf("binance order decode: %w", err)
	}

	receipt := &types.OrderReceipt{
		OrderID: ack.OrderID.String(),
		Symbol:  o.Symbol,
		Ts:      time.Now().UTC(),
	}
	if q, err := decimal.NewFromString(ack.ExecutedQty); err == nil {
		receipt.FilledQty = q
	}
	if len(ack.Fills) > 0 {
		notional, qty := decimal.Zero, decimal.Zero
		for _, f := range ack.Fills {
			p, err1 := decimal.NewFromString(f.Price)
			q, err2 := decimal.NewFromString(f.Qty)
			if err1 != nil || err2 != nil {
				continue
			}
			notional = notional.Add(p.Mul(q))
			qty = qty.Add(q)
		}
		if qty.IsPositive() {
			receipt.AvgPrice = notional.Div(qty)
		}
	}
	return receipt, nil
}

func (c *Client) sign(payload string) string {
	mac := hmac.New(sha256.New, []byte(c.cfg.Binance.ApiSecret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
