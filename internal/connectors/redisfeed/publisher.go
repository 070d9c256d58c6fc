package redisfeed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/you/arb-engine/internal/config"
	"github.com/you/arb-engine/internal/types"
)

// Publisher pushes every recorded opportunity onto a Redis stream and keeps a
// per-path "latest" hash for dashboards. It satisfies the engine's Sink.
type Publisher struct {
	rdb    *redis.Client
	stream string
}

func NewPublisher(cfg *config.Config) *Publisher {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
	})
	return &Publisher{rdb: rdb, stream: cfg.Redis.Stream}
}

func (p *Publisher) Publish(ctx context.Context, opp types.Opportunity) error {
	payload, err := json.Marshal(opp)
	if err != nil {
		return fmt.Errorf("marshal opportunity: %w", err)
	}

	if err := p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: 10000,
		Approx: true,
		Values: map[string]interface{}{
			"path":    opp.VenuePath,
			"net_pct": opp.NetProfitPct.String(),
			"risk":    opp.RiskScore,
			"ts_ms":   opp.Ts.UnixMilli(),
			"payload": payload,
		},
	}).Err(); err != nil {
		return fmt.Errorf("xadd: %w", err)
	}

	latestKey := "arb:latest:" + opp.VenuePath
	return p.rdb.HSet(ctx, latestKey, map[string]interface{}{
		"net_pct":    opp.NetProfitPct.String(),
		"gross_pct":  opp.GrossProfitPct.String(),
		"est_profit": opp.EstProfitQuote.String(),
		"risk":       opp.RiskScore,
		"ts_ms":      opp.Ts.UnixMilli(),
	}).Err()
}

func (p *Publisher) Close() error { return p.rdb.Close() }
