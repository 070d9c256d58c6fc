package bot

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/you/arb-engine/internal/config"
	"github.com/you/arb-engine/internal/connectors/cex/binance"
	"github.com/you/arb-engine/internal/engine"
	"github.com/you/arb-engine/internal/exchange"
	"github.com/you/arb-engine/internal/metrics"
	"github.com/you/arb-engine/internal/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Bot is the scan driver: it owns the loop timing, the per-scan timeout, the
// retry/backoff policy and the consecutive-error shutdown. The engine only
// ever sees completed snapshots.
type Bot struct {
	cfg    *config.Config
	log    *zap.Logger
	eng    *engine.Engine
	venueA exchange.Venue
	venueB exchange.Venue
	ws     *binance.WS // live price source for venue A when mode is "ws"
}

func New(cfg *config.Config, eng *engine.Engine, venueA, venueB exchange.Venue, ws *binance.WS, log *zap.Logger) *Bot {
	return &Bot{
		cfg:    cfg,
		log:    log,
		eng:    eng,
		venueA: venueA,
		venueB: venueB,
		ws:     ws,
	}
}

// ChanSink adapts an opportunity channel to the engine's Sink. Sends never
// block: a full channel drops, detection must not stall on a slow consumer.
func ChanSink(ch chan types.Opportunity) engine.Sink { return chanSink{ch: ch} }

type chanSink struct{ ch chan types.Opportunity }

func (s chanSink) Publish(_ context.Context, opp types.Opportunity) error {
	select {
	case s.ch <- opp:
		return nil
	default:
		return fmt.Errorf("opportunity channel full")
	}
}

func (b *Bot) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		b.log.Warn("received signal, shutting down...")
		cancel()
	}()

	if b.ws != nil {
		go b.ws.Run(ctx)
		b.log.Info("live miniticker stream started for venue A")
	}

	b.log.Info("starting arbitrage scan loop",
		zap.String("venue_a", b.venueA.Name()),
		zap.String("venue_b", b.venueB.Name()),
		zap.Duration("interval", b.cfg.ScanInterval()),
	)

	consecutiveErrors := 0
	breakerWasOpen := false

	for {
		select {
		case <-ctx.Done():
			b.log.Info("scan loop finished")
			return nil
		default:
		}

		scanCtx, scanCancel := context.WithTimeout(ctx, b.cfg.ScanTimeout())
		err := b.scan(scanCtx)
		scanCancel()

		if b.eng.IsCircuitOpen() {
			metrics.CircuitOpen.Set(1)
			breakerWasOpen = true
		} else {
			metrics.CircuitOpen.Set(0)
		}

		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			consecutiveErrors++
			metrics.ScanErrors.Inc()
			b.eng.RecordFailure()
			b.log.Error("scan failed",
				zap.Int("consecutive", consecutiveErrors),
				zap.Error(err),
			)

			if consecutiveErrors >= b.cfg.Risk.MaxConsecutiveErrors {
				b.log.Error("too many consecutive errors, stopping",
					zap.Int("max", b.cfg.Risk.MaxConsecutiveErrors))
				return fmt.Errorf("stopped after %d consecutive errors: %w", consecutiveErrors, err)
			}

			sleep := backoff(consecutiveErrors)
			b.log.Warn("backing off before next scan", zap.Duration("sleep", sleep))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(sleep):
			}
			continue
		}

		consecutiveErrors = 0
		if breakerWasOpen && !b.eng.IsCircuitOpen() {
			// The reset window elapsed and a clean scan went through; clear
			// the accumulated count so one new failure does not reopen it.
			b.eng.ResetCircuitBreaker()
			breakerWasOpen = false
			b.log.Info("circuit breaker reset after clean scan")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(b.cfg.ScanInterval()):
		}
	}
}

// backoff returns the exponential sleep for the n-th consecutive failure,
// capped at 64 seconds.
func backoff(n int) time.Duration {
	if n > 6 {
		n = 6
	}
	return time.Duration(1<<uint(n)) * time.Second
}

// scan fetches both venue snapshots concurrently and hands them to the
// engine. Both requests are in flight at once; the engine itself never does
// network I/O.
func (b *Bot) scan(ctx context.Context) error {
	started := time.Now()
	defer func() {
		metrics.ScanDuration.Observe(time.Since(started).Seconds())
	}()

	var snapA, snapB types.PriceSnapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if b.ws != nil {
			snapA = b.ws.Snapshot()
			return nil
		}
		snapA, err = b.venueA.FetchPrices(gctx)
		if err != nil {
			metrics.VenueFetchErrors.WithLabelValues(b.venueA.Name()).Inc()
			return fmt.Errorf("%s prices: %w", b.venueA.Name(), err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		snapB, err = b.venueB.FetchPrices(gctx)
		if err != nil {
			metrics.VenueFetchErrors.WithLabelValues(b.venueB.Name()).Inc()
			return fmt.Errorf("%s prices: %w", b.venueB.Name(), err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if len(snapA) == 0 || len(snapB) == 0 {
		return fmt.Errorf("empty snapshot: %s=%d %s=%d",
			b.venueA.Name(), len(snapA), b.venueB.Name(), len(snapB))
	}
	metrics.SnapshotSize.WithLabelValues(b.venueA.Name()).Set(float64(len(snapA)))
	metrics.SnapshotSize.WithLabelValues(b.venueB.Name()).Set(float64(len(snapB)))

	return b.eng.Analyze(ctx,
		engine.VenueSnapshot{Venue: b.venueA.Name(), Prices: snapA},
		engine.VenueSnapshot{Venue: b.venueB.Name(), Prices: snapB},
	)
}
