package bybit

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/you/arb-engine/internal/config"
	"github.com/you/arb-engine/internal/types"
	"go.uber.org/zap"
)

const recvWindow = "5000"

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

func (c *Client) Name() string { return "Bybit" }

func (c *Client) pace() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if wait := c.cfg.RateLimit() - time.Since(c.lastCall); wait > 0 {
		time.Sleep(wait)
	}
	c.lastCall = time.Now()
}

type tickersResp struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		List []struct {
			Symbol    string `json:"symbol"`
			LastPrice string `json:"lastPrice"`
		} `json:"list"`
	} `json:"result"`
}

func (c *Client) FetchPrices(ctx context.Context) (types.PriceSnapshot, error) {
	c.pace()
	endpoint := c.cfg.Bybit.RestURL + "/v5/market/tickers?category=spot"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bybit tickers: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("bybit tickers %d: %s", resp.StatusCode, string(b))
	}

	var tr tickersResp
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("bybit tickers decode: %w", err)
	}
	if tr.RetCode != 0 {
		return nil, fmt.Errorf("bybit tickers retCode %d: %s", tr.RetCode, tr.RetMsg)
	}

	snap := make(types.PriceSnapshot, len(tr.Result.List))
	for _, t := range tr.Result.List {
		p, err := decimal.NewFromString(t.LastPrice)
		if err != nil || !p.IsPositive() {
			continue
		}
		snap[t.Symbol] = p
	}
	return snap, nil
}

type orderbookResp struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		Bids [][2]string `json:"b"`
		Asks [][2]string `json:"a"`
	} `json:"result"`
}

func (c *Client) FetchOrderBook(ctx context.Context, symbol string, limit int) (*types.OrderBook, error) {
	c.pace()
	endpoint := fmt.Sprintf("%s/v5/market/orderbook?category=spot&symbol=%s&limit=%d",
		c.cfg.Bybit.RestURL, url.QueryEscape(symbol), limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bybit orderbook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("bybit orderbook %d: %s", resp.StatusCode, string(b))
	}

	var or orderbookResp
	if err := json.NewDecoder(resp.Body).Decode(&or); err != nil {
		return nil, fmt.Errorf("bybit orderbook decode: %w", err)
	}
	if or.RetCode != 0 {
		return nil, fmt.Errorf("bybit orderbook retCode %d: %s", or.RetCode, or.RetMsg)
	}

	book := &types.OrderBook{Symbol: symbol, Ts: time.Now().UTC()}
	book.Bids = parseLevels(or.Result.Bids)
	book.Asks = parseLevels(or.Result.Asks)
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
	sideTitle := "Buy"
	if o.Side == types.Sell {
		sideTitle = "Sell"
	}
	orderType := "Market"
	if o.Type == types.Limit {
		orderType = "Limit"
	}
	payload := map[string]any{
		"category":  "spot",
		"symbol":    o.Symbol,
		"side":      sideTitle,
		"orderType": orderType,
		"qty":       o.Quantity.String(),
	}
	if o.Type == types.Limit {
		payload["price"] = o.Price.String()
		payload["timeInForce"] = "IOC"
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	ts := fmt.Sprintf("%d", time.Now().UnixMilli())
	// Bybit v5 signature: timestamp + api key + recv window + body.
	sig := c.sign(ts + c.cfg.Bybit.ApiKey + recvWindow + string(body))

	endpoint := c.cfg.Bybit.RestURL + "/v5/order/create"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-BAPI-API-KEY", c.cfg.Bybit.ApiKey)
	req.Header.Set("X-BAPI-TIMESTAMP", ts)
	req.Header.Set("X-BAPI-RECV-WINDOW", recvWindow)
	req.Header.Set("X-BAPI-SIGN", sig)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bybit order: %w", err)
	}
	defer resp.Body.Close()
	rb, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bybit order %d: %s", resp.StatusCode, string(rb))
	}

	var ack struct {
		RetCode int    `json:"retCode"`
		RetMsg  string `json:"retMsg"`
		Result  struct {
			OrderID string `json:"orderId"`
		} `json:"result"`
	}
	if err := json.Unmarshal(rb, &ack); err != nil {
		return nil, fmt.Errorf("bybit order decode: %w", err)
	}
	if ack.RetCode != 0 {
		return nil, fmt.Errorf("bybit order retCode %d: %s", ack.RetCode, ack.RetMsg)
	}

	return &types.OrderReceipt{
		OrderID:   ack.Result.OrderID,
		Symbol:    o.Symbol,
		FilledQty: o.Quantity,
		AvgPrice:  o.Price,
		Ts:        time.Now().UTC(),
	}, nil
}

func (c *Client) sign(payload string) string {
	mac := hmac.New(sha256.New, []byte(c.cfg.Bybit.ApiSecret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
