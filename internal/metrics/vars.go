package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	OpportunitiesFound = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "arb_opportunities_found_total",
		Help: "Number of detected arbitrage opportunities by kind",
	}, []string{"kind"})

	ScanDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "arb_scan_duration_seconds",
		Help:    "Wall-clock time of one full scan cycle",
		Buckets: prometheus.DefBuckets,
	})

	ScanErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arb_scan_errors_total",
		Help: "Number of failed scan cycles",
	})

	VenueFetchErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "arb_venue_fetch_errors_total",
		Help: "Number of failed snapshot fetches by venue",
	}, []string{"venue"})

	CircuitOpen = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "arb_circuit_breaker_open",
		Help: "1 while the circuit breaker suppresses analysis",
	})

	LastSpreadPct = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "arb_last_spread_pct",
		Help: "Last observed cross-venue spread by pair (percent)",
	}, []string{"pair"})

	SnapshotSize = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "arb_snapshot_pairs",
		Help: "Number of symbols in the last snapshot by venue",
	}, []string{"venue"})
)

func init() {
	prometheus.MustRegister(
		OpportunitiesFound,
		ScanDuration,
		ScanErrors,
		VenueFetchErrors,
		CircuitOpen,
		LastSpreadPct,
		SnapshotSize,
	)
}
