package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/you/arb-engine/internal/bot"
	"github.com/you/arb-engine/internal/config"
	"github.com/you/arb-engine/internal/connectors/cex/binance"
	"github.com/you/arb-engine/internal/connectors/cex/bybit"
	"github.com/you/arb-engine/internal/connectors/redisfeed"
	"github.com/you/arb-engine/internal/engine"
	"github.com/you/arb-engine/internal/exchange"
	"github.com/you/arb-engine/internal/execution"
	"github.com/you/arb-engine/internal/metrics"
	"github.com/you/arb-engine/internal/risk"
	"github.com/you/arb-engine/internal/types"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.MessageKey = "msg"
	cfg.EncoderConfig.CallerKey = "caller"
	cfg.EncoderConfig.StacktraceKey = "stacktrace"
	cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339)
	return cfg.Build()
}

func main() {
	cfgPath := flag.String("config", "./config.yaml", "path to config file")
	metricsAddr := flag.String("metrics", "", "metrics listen addr (overrides config)")
	flag.Parse()

	logger, err := newLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.Fatal("config load failed", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addr := cfg.Monitoring.MetricsAddr
	if *metricsAddr != "" {
		addr = *metricsAddr
	}
	metrics.Serve(ctx, addr, nil, logger)

	binanceClient := binance.NewClient(cfg, logger)
	bybitClient := bybit.NewClient(cfg, logger)

	oppCh := make(chan types.Opportunity, 64)
	opts := []engine.Option{engine.WithSink(bot.ChanSink(oppCh))}
	if cfg.Redis.Enabled {
		pub := redisfeed.NewPublisher(cfg)
		defer pub.Close()
		opts = append(opts, engine.WithSink(pub))
		logger.Info("opportunity feed enabled", zap.String("stream", cfg.Redis.Stream))
	}

	var ws *binance.WS
	if cfg.Mode == "ws" {
		ws = binance.NewWS(cfg.Binance.WsURL, logger)
	}

	eng, err := engine.New(engine.ParamsFromConfig(cfg), logger, opts...)
	if err != nil {
		logger.Fatal("engine init failed", zap.Error(err))
	}

	b := bot.New(cfg, eng, binanceClient, bybitClient, ws, logger)

	// The executor consumes whatever the detectors surface; placement stays
	// disabled unless enable_execution is set.
	riskEng := risk.NewEngine(cfg.Risk.MaxRiskScore, cfg.Trading.EnableExecution && !cfg.DryRun)
	venues := map[string]exchange.Venue{
		binanceClient.Name(): binanceClient,
		bybitClient.Name():   bybitClient,
	}
	exec := execution.NewExecutor(venues, riskEng, eng, logger)
	go exec.Run(ctx, oppCh)

	if err := b.Run(ctx); err != nil {
		logger.Error("bot stopped", zap.Error(err))
		os.Exit(1)
	}
}
