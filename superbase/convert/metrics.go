package convert

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus metrics of a conversion run.
type Metrics struct {
	Tables       *prometheus.CounterVec
	Rows         prometheus.Counter
	BlocksRead   prometheus.Counter
	DroppedBytes prometheus.Counter
	Duration     prometheus.Histogram
}

// NewMetrics creates and registers all metrics with the provided registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	tables := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "superbase_tables_total",
		Help: "Tables processed, by outcome",
	}, []string{"status"})

	rows := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "superbase_rows_total",
		Help: "Rows decoded from converted tables",
	})

	blocksRead := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "superbase_blocks_read_total",
		Help: "Data blocks read from .SBF files",
	})

	droppedBytes := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "superbase_dropped_bytes_total",
		Help: "Bytes of short trailing blocks ignored by the block reader",
	})

	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "superbase_table_conversion_seconds",
		Help:    "Time spent converting one table",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
	})

	reg.MustRegister(tables, rows, blocksRead, droppedBytes, duration)

	return &Metrics{
		Tables:       tables,
		Rows:         rows,
		BlocksRead:   blocksRead,
		DroppedBytes: droppedBytes,
		Duration:     duration,
	}
}
