package keyedhash

// metrics.go contains a thin abstraction over Prometheus so a table can be
// used with or without metrics. When the caller passes a *prometheus.Registry
// via WithMetrics, labeled metrics are created and registered; otherwise a
// no-op sink is used and the hot path does not pay for metric updates.
//
// Metric names follow Prometheus best practices, suffixed "_total" for
// counters.
//
// ┌──────────────────────────────┬───────┬────────┐
// │ Metric                       │ Type  │ Labels │
// ├───────────────────────────────┼───────┼────────┤
// │ keyedhash_rehash_total        │ Ctr   │ table  │
// │ keyedhash_compact_total       │ Ctr   │ table  │
// │ keyedhash_probe_length        │ Hist  │ table  │
// │ keyedhash_tombstones          │ Gge   │ table  │
// │ keyedhash_size                │ Gge   │ table  │
// └──────────────────────────────┴───────┴────────┘
//
// © 2025 keyedhash authors. MIT License.

import (
	"github.com/prometheus/client_golang/prometheus"
)

// metricsSink is an internal interface abstracting away the concrete
// backend (Prometheus vs noop). Not exposed outside the package.
type metricsSink interface {
	incRehash(table string)
	incCompact(table string)
	observeProbeLength(table string, n int)
	setTombstones(table string, n int)
	setSize(table string, n int)
}

type noopMetrics struct{}

func (noopMetrics) incRehash(string)                {}
func (noopMetrics) incCompact(string)                {}
func (noopMetrics) observeProbeLength(string, int)   {}
func (noopMetrics) setTombstones(string, int)        {}
func (noopMetrics) setSize(string, int)              {}

type promMetrics struct {
	rehashes    *prometheus.CounterVec
	compactions *prometheus.CounterVec
	probeLength *prometheus.HistogramVec
	tombstones  *prometheus.GaugeVec
	size        *prometheus.GaugeVec
}

func newPromMetrics(reg *prometheus.Registry) *promMetrics {
	label := []string{"table"}

	pm := &promMetrics{
		rehashes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "keyedhash",
				Name:      "rehash_total",
				Help:      "Number of rehash-by-swap operations performed.",
			}, label),
		compactions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "keyedhash",
				Name:      "compact_total",
				Help:      "Number of explicit Compact() calls performed.",
			}, label),
		probeLength: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "keyedhash",
				Name:      "probe_length",
				Help:      "Number of slots visited to resolve a probe.",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
			}, label),
		tombstones: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "keyedhash",
				Name:      "tombstones",
				Help:      "Approximate tombstone count since the last rehash.",
			}, label),
		size: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "keyedhash",
				Name:      "size",
				Help:      "Live entry count.",
			}, label),
	}

	reg.MustRegister(pm.rehashes, pm.compactions, pm.probeLength, pm.tombstones, pm.size)
	return pm
}

func (m *promMetrics) incRehash(table string) {
	m.rehashes.WithLabelValues(table).Inc()
}
func (m *promMetrics) incCompact(table string) {
	m.compactions.WithLabelValues(table).Inc()
}
func (m *promMetrics) observeProbeLength(table string, n int) {
	m.probeLength.WithLabelValues(table).Observe(float64(n))
}
func (m *promMetrics) setTombstones(table string, n int) {
	m.tombstones.WithLabelValues(table).Set(float64(n))
}
func (m *promMetrics) setSize(table string, n int) {
	m.size.WithLabelValues(table).Set(float64(n))
}

// newMetricsSink decides which implementation to use based on whether a
// registry was supplied.
func newMetricsSink(reg *prometheus.Registry) metricsSink {
	if reg == nil {
		return noopMetrics{}
	}
	return newPromMetrics(reg)
}
