package manager

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"Go2ResSpectra/internal/config"
	"Go2ResSpectra/internal/metrics"
	"Go2ResSpectra/internal/model"
	"Go2ResSpectra/internal/resources"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	handler model.SnapshotHandler
	closed  bool
}

func (s *fakeSource) Start(h model.SnapshotHandler) error {
	s.handler = h
	return nil
}

func (s *fakeSource) Close() {
	s.closed = true
}

type recordingWriter struct {
	mu      sync.Mutex
	name    string
	err     error
	results []resources.Result
	closed  bool
}

func (w *recordingWriter) Name() string {
	return w.name
}

func (w *recordingWriter) Write(_ context.Context, r resources.Result) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.results = append(w.results, r)
	return w.err
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func newTestManager(t *testing.T, writers ...model.Writer) (*Manager, *fakeSource, *prometheus.Registry) {
	t.Helper()
	src := &fakeSource{}
	reg := prometheus.NewRegistry()
	m, err := New(Options{
		Spec:      resources.Spec{resources.KindCPU: {"nodeA"}},
		NewSource: func() (model.Source, error) { return src, nil },
		Writers:   writers,
		Metrics:   metrics.New(reg),
		AggregatorOptions: []resources.Option{
			resources.WithClock(func() time.Time { return time.Unix(100, 0) }),
		},
	})
	require.NoError(t, err)
	require.NoError(t, m.Start())
	return m, src, reg
}

func counter(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == name {
			return f.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func TestManager_CollectFansOutToWriters(t *testing.T) {
	w1 := &recordingWriter{name: "one"}
	w2 := &recordingWriter{name: "two"}
	m, src, reg := newTestManager(t, w1, w2)

	// 1. Snapshots before Begin are ignored
	require.NoError(t, src.handler(&resources.Snapshot{Nodes: []resources.NodeSample{{Name: "nodeA", CPU: 99}}}))

	// 2. Record two samples
	m.Begin()
	require.NoError(t, src.handler(&resources.Snapshot{Nodes: []resources.NodeSample{{Name: "nodeA", CPU: 10.004}}}))
	require.NoError(t, src.handler(&resources.Snapshot{Nodes: []resources.NodeSample{{Name: "nodeA", CPU: 20.006}}}))
	m.End()

	// 3. Collect
	result, err := m.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 100.0, result.Timestamp)
	assert.Equal(t, resources.Payload{"nodeA": {"cpu": 15.0}}, result.Average())

	for _, w := range []*recordingWriter{w1, w2} {
		require.Len(t, w.results, 1)
		assert.Equal(t, result.Raw(), w.results[0].Raw())
	}

	assert.Equal(t, 3.0, counter(t, reg, metrics.SnapshotsReceived))
	assert.Equal(t, 1.0, counter(t, reg, metrics.SnapshotsIgnored))
	assert.Equal(t, 2.0, counter(t, reg, metrics.ResultsWritten))

	// 4. Stop closes source and writers
	m.Stop()
	assert.True(t, src.closed)
	assert.True(t, w1.closed)
}

func TestManager_CollectJoinsWriterErrors(t *testing.T) {
	ok := &recordingWriter{name: "ok"}
	bad := &recordingWriter{name: "bad", err: errors.New("disk full")}
	m, _, reg := newTestManager(t, ok, bad)

	_, err := m.Collect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad writer: disk full")
	assert.Len(t, ok.results, 1)
	assert.Equal(t, 1.0, counter(t, reg, metrics.WriterErrors))
}

func TestManager_HandlerErrors(t *testing.T) {
	m, src, reg := newTestManager(t)
	m.Begin()

	err := src.handler(nil)
	assert.ErrorIs(t, err, resources.ErrMalformedSnapshot)
	assert.Equal(t, 1.0, counter(t, reg, metrics.HandlerErrors))
}

func TestManager_StartTwice(t *testing.T) {
	m, _, _ := newTestManager(t)
	assert.Error(t, m.Start())
}

func TestManager_StatusAndReset(t *testing.T) {
	m, src, reg := newTestManager(t, &recordingWriter{name: "yaml"})
	m.Begin()
	require.NoError(t, src.handler(&resources.Snapshot{Nodes: []resources.NodeSample{{Name: "nodeA", CPU: 1}}}))

	status := m.Status()
	assert.True(t, status.Active)
	assert.Equal(t, []string{"nodeA"}, status.Nodes)
	assert.Equal(t, []string{"yaml"}, status.Writers)
	assert.Equal(t, time.Unix(100, 0), status.ActivatedAt)

	m.Reset()
	assert.Equal(t, []float64{}, m.Result().Raw()["nodeA"]["cpu"])

	count, err := testutil.GatherAndCount(reg, metrics.AggregationActive)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNewManager_FromConfig(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Parse([]byte(`
resources:
  cpu: [nodeA]
writers:
  - type: yaml
    enabled: true
    yaml:
      root_path: ` + dir + `
`))
	require.NoError(t, err)

	m, err := NewManager(cfg, metrics.New(prometheus.NewRegistry()))
	require.NoError(t, err)
	assert.Equal(t, []string{"yaml"}, m.Status().Writers)

	m.Begin()
	require.NoError(t, m.handleSnapshot(&resources.Snapshot{Nodes: []resources.NodeSample{{Name: "nodeA", CPU: 42}}}))
	_, err = m.Collect(context.Background())
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	_, err = os.Stat(filepath.Join(dir, entries[0].Name(), "resources.yaml"))
	assert.NoError(t, err)
}

func TestManager_StopAfterFailedStart(t *testing.T) {
	w := &recordingWriter{name: "postgres"}
	m, err := New(Options{
		Spec:      resources.Spec{resources.KindCPU: {"nodeA"}},
		NewSource: func() (model.Source, error) { return nil, errors.New("connection refused") },
		Writers:   []model.Writer{w},
		Metrics:   metrics.New(prometheus.NewRegistry()),
	})
	require.NoError(t, err)

	require.Error(t, m.Start())
	m.Stop()
	assert.True(t, w.closed)
}
