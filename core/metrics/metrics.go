// Package metrics exposes the client's Prometheus instrumentation,
// grounded on the teacher's network_test.go/connection_pool.go gauge
// and counter usage but collected under its own registry rather than
// the global default one so a client embedding multiple node
// connections doesn't collide registrations.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry bundles the client's counters, gauges and histograms,
// constructed once at startup and exposed through client.Client.Metrics.
// The sync engine, transaction engine and store do not receive it, so
// nothing in this module records into these metrics.
type Registry struct {
	reg *prometheus.Registry

	SyncStepsTotal     prometheus.Counter
	SyncFailuresTotal  prometheus.Counter
	SyncChainTip       prometheus.Gauge
	SyncStepDuration   prometheus.Histogram
	NotesConsumedTotal prometheus.Counter

	TxBuiltTotal     prometheus.Counter
	TxAppliedTotal   prometheus.Counter
	TxDiscardedTotal *prometheus.CounterVec
	TxPending        prometheus.Gauge

	StoreApplyDuration *prometheus.HistogramVec
	WALBytesWritten    prometheus.Counter
}

// NewRegistry builds and registers every metric on a fresh
// prometheus.Registry.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	m := &Registry{
		reg: reg,
		SyncStepsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "miden_client",
			Subsystem: "sync",
			Name:      "steps_total",
			Help:      "Total number of state sync steps attempted.",
		}),
		SyncFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "miden_client",
			Subsystem: "sync",
			Name:      "failures_total",
			Help:      "Total number of state sync steps that returned an error.",
		}),
		SyncChainTip: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "miden_client",
			Subsystem: "sync",
			Name:      "chain_tip",
			Help:      "Highest block number the client has synced to.",
		}),
		SyncStepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "miden_client",
			Subsystem: "sync",
			Name:      "step_duration_seconds",
			Help:      "Duration of a single sync step.",
			Buckets:   prometheus.DefBuckets,
		}),
		NotesConsumedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "miden_client",
			Subsystem: "notes",
			Name:      "consumed_total",
			Help:      "Total number of notes observed as consumed during sync.",
		}),
		TxBuiltTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "miden_client",
			Subsystem: "txengine",
			Name:      "built_total",
			Help:      "Total number of transactions built.",
		}),
		TxAppliedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "miden_client",
			Subsystem: "txengine",
			Name:      "applied_total",
			Help:      "Total number of transactions applied to the store.",
		}),
		TxDiscardedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "miden_client",
			Subsystem: "txengine",
			Name:      "discarded_total",
			Help:      "Total number of transactions discarded, by phase.",
		}, []string{"phase"}),
		TxPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "miden_client",
			Subsystem: "txengine",
			Name:      "pending",
			Help:      "Number of transactions currently pending in the lifecycle engine.",
		}),
		StoreApplyDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "miden_client",
			Subsystem: "store",
			Name:      "apply_duration_seconds",
			Help:      "Duration of store apply operations, by kind.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		WALBytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "miden_client",
			Subsystem: "store",
			Name:      "wal_bytes_written_total",
			Help:      "Total bytes appended to the write-ahead log.",
		}),
	}

	reg.MustRegister(
		m.SyncStepsTotal, m.SyncFailuresTotal, m.SyncChainTip, m.SyncStepDuration, m.NotesConsumedTotal,
		m.TxBuiltTotal, m.TxAppliedTotal, m.TxDiscardedTotal, m.TxPending,
		m.StoreApplyDuration, m.WALBytesWritten,
	)
	return m
}

// Gatherer exposes the underlying registry for an HTTP /metrics handler.
func (m *Registry) Gatherer() prometheus.Gatherer { return m.reg }
