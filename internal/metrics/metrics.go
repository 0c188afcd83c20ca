package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	SnapshotsReceived = "resspectra_snapshots_received_total"
	SnapshotsIgnored  = "resspectra_snapshots_ignored_total"
	DecodeErrors      = "resspectra_decode_errors_total"
	HandlerErrors     = "resspectra_handler_errors_total"
	WriterErrors      = "resspectra_writer_errors_total"
	ResultsWritten    = "resspectra_results_written_total"
	AggregationActive = "resspectra_aggregation_active"
	CollectDuration   = "resspectra_collect_duration_seconds"
)

// Metrics holds the Prometheus collectors of the engine, keyed by metric name.
type Metrics struct {
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	received := prometheus.NewCounter(prometheus.CounterOpts{
		Name: SnapshotsReceived,
		Help: "Resource snapshots delivered by the transport.",
	})
	ignored := prometheus.NewCounter(prometheus.CounterOpts{
		Name: SnapshotsIgnored,
		Help: "Snapshots that arrived while aggregation was stopped.",
	})
	decodeErrs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: DecodeErrors,
		Help: "Messages that could not be decoded into a snapshot.",
	})
	handlerErrs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: HandlerErrors,
		Help: "Snapshots rejected by the aggregator.",
	})
	writerErrs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: WriterErrors,
		Help: "Results writer failures.",
	})
	written := prometheus.NewCounter(prometheus.CounterOpts{
		Name: ResultsWritten,
		Help: "Results successfully handed to a writer.",
	})
	active := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: AggregationActive,
		Help: "1 while snapshots are being recorded.",
	})
	collect := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    CollectDuration,
		Help:    "Time to compute a result and hand it to every writer.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	reg.MustRegister(received, ignored, decodeErrs, handlerErrs, writerErrs, written, active, collect)

	return &Metrics{
		counters: map[string]prometheus.Counter{
			SnapshotsReceived: received,
			SnapshotsIgnored:  ignored,
			DecodeErrors:      decodeErrs,
			HandlerErrors:     handlerErrs,
			WriterErrors:      writerErrs,
			ResultsWritten:    written,
		},
		gauges: map[string]prometheus.Gauge{
			AggregationActive: active,
		},
		histos: map[string]prometheus.Observer{
			CollectDuration: collect,
		},
	}
}

// Inc adds one to the named counter. Unknown names are ignored.
func (m *Metrics) Inc(name string) {
	if m == nil {
		return
	}
	if c, ok := m.counters[name]; ok {
		c.Inc()
	}
}

// SetActive reflects the aggregator's active flag.
func (m *Metrics) SetActive(active bool) {
	if m == nil {
		return
	}
	v := 0.0
	if active {
		v = 1
	}
	m.gauges[AggregationActive].Set(v)
}

// ObserveCollect records the duration of one collect, in seconds.
func (m *Metrics) ObserveCollect(seconds float64) {
	if m == nil {
		return
	}
	m.histos[CollectDuration].Observe(seconds)
}
