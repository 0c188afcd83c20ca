package manager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"Go2ResSpectra/internal/config"
	"Go2ResSpectra/internal/factory"
	"Go2ResSpectra/internal/metrics"
	"Go2ResSpectra/internal/model"
	"Go2ResSpectra/internal/probe"
	"Go2ResSpectra/internal/probe/persistent"
	"Go2ResSpectra/internal/resources"
	_ "Go2ResSpectra/internal/writer" // Registers the results writers

	log "github.com/sirupsen/logrus"
)

// SourceFactory connects the transport a manager reads snapshots from.
type SourceFactory func() (model.Source, error)

// Status describes the aggregation state for the control API.
type Status struct {
	Active      bool      `json:"active"`
	ActivatedAt time.Time `json:"activated_at"`
	Nodes       []string  `json:"nodes"`
	Writers     []string  `json:"writers"`
}

// Manager wires a resource aggregator to its transport and results writers.
type Manager struct {
	agg       *resources.Aggregator
	nodes     []string
	newSource SourceFactory
	writers   []model.Writer
	recorder  *persistent.Recorder
	metrics   *metrics.Metrics

	mu     sync.Mutex // guards source
	source model.Source
}

// Options carries the collaborators of a Manager built by New.
type Options struct {
	Spec      resources.Spec
	NewSource SourceFactory
	Writers   []model.Writer
	Recorder  *persistent.Recorder
	Metrics   *metrics.Metrics
	// AggregatorOptions are passed to resources.New.
	AggregatorOptions []resources.Option
}

// New creates a Manager from already built collaborators.
func New(opts Options) (*Manager, error) {
	agg, err := resources.New(opts.Spec, opts.AggregatorOptions...)
	if err != nil {
		return nil, err
	}
	return &Manager{
		agg:       agg,
		nodes:     opts.Spec.Nodes(),
		newSource: opts.NewSource,
		writers:   opts.Writers,
		recorder:  opts.Recorder,
		metrics:   opts.Metrics,
	}, nil
}

// NewManager creates a Manager from the application configuration. The transport is not
// contacted until Start.
func NewManager(cfg *config.Config, m *metrics.Metrics) (*Manager, error) {
	spec, err := cfg.Spec()
	if err != nil {
		return nil, err
	}

	writers, err := factory.CreateWriters(cfg)
	if err != nil {
		return nil, err
	}
	if len(writers) == 0 {
		log.Warn("No results writers enabled; results are only available through the API.")
	}

	var recorder *persistent.Recorder
	if cfg.Recorder.Enabled {
		recorder, err = persistent.NewRecorder(cfg.Recorder)
		if err != nil {
			return nil, fmt.Errorf("failed to create recorder: %w", err)
		}
	}

	transport := cfg.Transport
	return New(Options{
		Spec: spec,
		NewSource: func() (model.Source, error) {
			return probe.NewSource(transport)
		},
		Writers:  writers,
		Recorder: recorder,
		Metrics:  m,
	})
}

// Start connects the transport and wires its messages to the aggregator. Aggregation itself
// stays inactive until Begin.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.source != nil {
		return errors.New("manager already started")
	}

	source, err := m.newSource()
	if err != nil {
		return err
	}
	if s, ok := source.(interface{ OnDecodeError(func(error)) }); ok {
		s.OnDecodeError(func(error) { m.metrics.Inc(metrics.DecodeErrors) })
	}
	if err := source.Start(m.handleSnapshot); err != nil {
		source.Close()
		return fmt.Errorf("failed to start source: %w", err)
	}
	m.source = source
	log.Infof("Manager started for %d nodes with %d writers.", len(m.nodes), len(m.writers))
	return nil
}

// handleSnapshot is the transport callback.
func (m *Manager) handleSnapshot(snap *resources.Snapshot) error {
	m.metrics.Inc(metrics.SnapshotsReceived)
	if m.recorder != nil && snap != nil {
		m.recorder.Enqueue(snap)
	}
	recorded, err := m.agg.Record(snap)
	if !recorded {
		m.metrics.Inc(metrics.SnapshotsIgnored)
	}
	if err != nil {
		m.metrics.Inc(metrics.HandlerErrors)
		return err
	}
	return nil
}

// Begin starts aggregation and records the activation time.
func (m *Manager) Begin() {
	m.agg.Start()
	m.metrics.SetActive(true)
	log.Infof("Resource aggregation started at %s", m.agg.ActivatedAt().Format(time.RFC3339))
}

// End stops aggregation. Buffered samples are kept.
func (m *Manager) End() {
	m.agg.Stop()
	m.metrics.SetActive(false)
	log.Info("Resource aggregation stopped.")
}

// Reset discards every buffered sample.
func (m *Manager) Reset() {
	m.agg.Reset()
	log.Info("Resource buffers reset.")
}

// Result computes the current result without writing it.
func (m *Manager) Result() resources.Result {
	return m.agg.Result()
}

// Status reports the aggregation state.
func (m *Manager) Status() Status {
	names := make([]string, len(m.writers))
	for i, w := range m.writers {
		names[i] = w.Name()
	}
	return Status{
		Active:      m.agg.Active(),
		ActivatedAt: m.agg.ActivatedAt(),
		Nodes:       m.nodes,
		Writers:     names,
	}
}

// Collect computes the current result and hands it to every writer concurrently.
// Writer failures are joined into the returned error; the result is returned regardless.
func (m *Manager) Collect(ctx context.Context) (resources.Result, error) {
	start := time.Now()
	result := m.agg.Result()
	log.Infof("Collecting resource result for %d nodes, %d writers.", len(result.Raw()), len(m.writers))

	var wg sync.WaitGroup
	errs := make([]error, len(m.writers))
	wg.Add(len(m.writers))
	for i, writer := range m.writers {
		go func(i int, w model.Writer) {
			defer wg.Done()
			if err := w.Write(ctx, result); err != nil {
				m.metrics.Inc(metrics.WriterErrors)
				log.Errorf("Error writing result with %s writer: %v", w.Name(), err)
				errs[i] = fmt.Errorf("%s writer: %w", w.Name(), err)
				return
			}
			m.metrics.Inc(metrics.ResultsWritten)
		}(i, writer)
	}
	wg.Wait()

	m.metrics.ObserveCollect(time.Since(start).Seconds())
	return result, errors.Join(errs...)
}

// Stop closes the transport, the recorder and every writer that holds a connection.
func (m *Manager) Stop() {
	log.Info("Manager stopping...")
	m.mu.Lock()
	if m.source != nil {
		m.source.Close()
		m.source = nil
	}
	m.mu.Unlock()

	if m.recorder != nil {
		m.recorder.Stop()
	}
	for _, w := range m.writers {
		if c, ok := w.(io.Closer); ok {
			if err := c.Close(); err != nil {
				log.Errorf("Error closing %s writer: %v", w.Name(), err)
			}
		}
	}
	log.Info("Manager stopped.")
}
