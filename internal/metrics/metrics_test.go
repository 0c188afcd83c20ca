package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Inc(SnapshotsReceived)
	m.Inc(SnapshotsReceived)
	m.Inc("no_such_metric")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.counters[SnapshotsReceived]))

	m.SetActive(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.gauges[AggregationActive]))
	m.SetActive(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.gauges[AggregationActive]))

	m.ObserveCollect(0.25)
	hCollector := m.histos[CollectDuration].(prometheus.Collector)
	assert.Equal(t, 1, testutil.CollectAndCount(hCollector))

	count, err := testutil.GatherAndCount(reg)
	assert.NoError(t, err)
	assert.Equal(t, 8, count)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.Inc(SnapshotsReceived)
	m.SetActive(true)
	m.ObserveCollect(1)
}
