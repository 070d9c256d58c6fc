package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/you/arb-engine/internal/types"
	"go.uber.org/zap"
)

// WS maintains a live price snapshot from the combined miniticker stream.
// It is an alternative price source for the driver when mode is "ws": the
// driver reads Snapshot() instead of hitting the REST ticker endpoint each
// cycle.
type WS struct {
	url string
	log *zap.Logger

	dialer *websocket.Dialer

	mu     sync.RWMutex
	prices types.PriceSnapshot
}

func NewWS(wsURL string, log *zap.Logger) *WS {
	return &WS{
		url: strings.TrimRight(wsURL, "/") + "/!miniTicker@arr",
		log: log,
		dialer: &websocket.Dialer{
			HandshakeTimeout:  15 * time.Second,
			EnableCompression: true,
		},
		prices: make(types.PriceSnapshot),
	}
}

type miniTicker struct {
	Symbol string `json:"s"`
	Close  string `json:"c"`
}

// Run reads the stream until ctx is cancelled, reconnecting on failures.
func (w *WS) Run(ctx context.Context) {
	for {
		if err := w.readLoop(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			w.log.Warn("miniticker stream dropped, reconnecting", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(2 * time.Second):
			}
		}
	}
}

func (w *WS) readLoop(ctx context.Context) error {
	conn, _, err := w.dialer.DialContext(ctx, w.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", w.url, err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	})

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))

		var tickers []miniTicker
		if err := json.Unmarshal(msg, &tickers); err != nil {
			continue
		}
		w.mu.Lock()
		for _, t := range tickers {
			p, err := decimal.NewFromString(t.Close)
			if err != nil || !p.IsPositive() {
				continue
			}
			w.prices[t.Symbol] = p
		}
		w.mu.Unlock()
	}
}

// Snapshot copies the current live prices.
func (w *WS) Snapshot() types.PriceSnapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	snap := make(types.PriceSnapshot, len(w.prices))
	for s, p := range w.prices {
		snap[s] = p
	}
	return snap
}
