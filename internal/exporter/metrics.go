package exporter

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	itemsReceived  prometheus.Counter
	itemsFlushed   prometheus.Counter
	batchesFlushed prometheus.Counter
	flushErrors    prometheus.Counter
}

// Metrics are registered once per process and shared by every Exporter
// instance; the default Prometheus registry rejects duplicate collector
// registration, which multiple Exporters (e.g. in tests) would otherwise
// trigger.
var (
	metricsOnce  sync.Once
	sharedMetrics *metrics
)

func newMetrics() *metrics {
	metricsOnce.Do(func() {
		sharedMetrics = &metrics{
			itemsReceived: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "argus",
				Subsystem: "exporter",
				Name:      "items_received_total",
				Help:      "Total number of trace items received by the exporter.",
			}),
			itemsFlushed: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "argus",
				Subsystem: "exporter",
				Name:      "items_flushed_total",
				Help:      "Total number of deduped items successfully enqueued.",
			}),
			batchesFlushed: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "argus",
				Subsystem: "exporter",
				Name:      "batches_flushed_total",
				Help:      "Total number of sub-batches successfully enqueued.",
			}),
			flushErrors: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "argus",
				Subsystem: "exporter",
				Name:      "flush_errors_total",
				Help:      "Total number of sub-batch enqueue failures.",
			}),
		}
	})
	return sharedMetrics
}
