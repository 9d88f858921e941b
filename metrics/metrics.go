// Package metrics exports Prometheus counters and gauges for the capture
// pipeline, grounded on the teacher's per-audit-record Prometheus counters
// (writeIPProfile's i.Inc() call, guarded by conf.ExportMetrics). These are
// an ambient observability concern carried alongside capture; they are not
// the "live statistics" UI feature spec.md's Non-goals exclude — nothing
// here is surfaced to a caller of the command surface, it is scrape-only.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// PacketsAdmitted counts admitted frames (summary parse succeeded) by
	// protocol label.
	PacketsAdmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rwire_packets_admitted_total",
			Help: "Frames admitted into the cache and batch stream, by protocol.",
		},
		[]string{"protocol"},
	)

	// PacketsDropped counts frames that failed summary parsing and were
	// silently dropped per spec.md §7.
	PacketsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rwire_packets_dropped_total",
			Help: "Frames dropped because summary parsing failed.",
		},
	)

	// CacheSize reports the current number of entries held in the packet
	// cache.
	CacheSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rwire_cache_entries",
			Help: "Current number of packets held in the packet cache.",
		},
	)

	// BatchesEmitted counts "new_packet_batch" emissions.
	BatchesEmitted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rwire_batches_emitted_total",
			Help: "Number of packet-summary batches emitted to the consumer.",
		},
	)
)

func init() {
	prometheus.MustRegister(PacketsAdmitted, PacketsDropped, CacheSize, BatchesEmitted)
}
