package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics aggregates the engine's operational counters for the /metrics
// endpoint. One instance is shared by the runner and the ops server.
type Metrics struct {
	Registry *prometheus.Registry

	CycleDuration    prometheus.Histogram
	SymbolsScored    prometheus.Counter
	SymbolsStale     prometheus.Counter
	SymbolsFailed    prometheus.Counter
	SignalsDemoted   prometheus.Counter
	StageTransits    *prometheus.CounterVec
	TierDistribution *prometheus.CounterVec
}

// New builds the metric set on a private registry so tests never collide
// with the global default.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		Registry: registry,
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ambush",
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of a full scoring cycle.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		SymbolsScored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ambush",
			Name:      "symbols_scored_total",
			Help:      "Symbols scored successfully across all cycles.",
		}),
		SymbolsStale: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ambush",
			Name:      "symbols_stale_total",
			Help:      "Symbols abandoned for exceeding the per-symbol time budget.",
		}),
		SymbolsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ambush",
			Name:      "symbols_failed_total",
			Help:      "Symbols whose pipeline failed and were isolated from the batch.",
		}),
		SignalsDemoted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ambush",
			Name:      "signals_demoted_total",
			Help:      "Composite signals demoted one tier by the reliability filter.",
		}),
		StageTransits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ambush",
			Name:      "stage_transitions_total",
			Help:      "Lifecycle stage transitions by from/to stage.",
		}, []string{"from", "to"}),
		TierDistribution: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ambush",
			Name:      "signals_by_tier_total",
			Help:      "Final signal tiers after reliability filtering.",
		}, []string{"tier"}),
	}

	registry.MustRegister(
		m.CycleDuration,
		m.SymbolsScored,
		m.SymbolsStale,
		m.SymbolsFailed,
		m.SignalsDemoted,
		m.StageTransits,
		m.TierDistribution,
	)
	return m
}
