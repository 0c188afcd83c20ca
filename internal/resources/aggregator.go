// Package resources buffers per-node resource readings from the resource stream and reduces
// them to averages on request.
package resources

import (
	"fmt"
	"sync"
	"time"
)

// Aggregator demultiplexes snapshots into per-node, per-kind buffers while active.
// All methods are safe for concurrent use.
type Aggregator struct {
	mu          sync.RWMutex
	nodes       map[string]map[Kind]buffer
	active      bool
	activatedAt time.Time
	now         func() time.Time
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock replaces the wall clock used for the activation timestamp.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// New creates an inactive aggregator with an empty buffer for every node/kind pair in spec.
func New(spec Spec, opts ...Option) (*Aggregator, error) {
	if len(spec) == 0 {
		return nil, fmt.Errorf("%w: no resources requested", ErrConfiguration)
	}

	nodes := make(map[string]map[Kind]buffer)
	for kind, names := range spec {
		if !kind.valid() {
			return nil, fmt.Errorf("%w: %w: %s", ErrConfiguration, ErrUnknownKind, kind)
		}
		for _, name := range names {
			if name == "" {
				return nil, fmt.Errorf("%w: empty node name under %q", ErrConfiguration, kind)
			}
			bufs, ok := nodes[name]
			if !ok {
				bufs = make(map[Kind]buffer)
				nodes[name] = bufs
			}
			if _, ok := bufs[kind]; !ok {
				bufs[kind] = bufferFactories[kind]()
			}
		}
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: no nodes listed for any resource", ErrConfiguration)
	}

	a := &Aggregator{nodes: nodes, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Start resumes ingestion and records the activation time. Buffered samples are kept.
func (a *Aggregator) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.active = true
	a.activatedAt = a.now()
}

// Stop pauses ingestion; snapshots arriving afterwards are ignored until the next Start.
func (a *Aggregator) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.active = false
}

// Reset discards every buffered sample. Start never calls it.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, bufs := range a.nodes {
		for kind := range bufs {
			bufs[kind] = bufferFactories[kind]()
		}
	}
}

// Active reports whether snapshots are currently recorded.
func (a *Aggregator) Active() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.active
}

// ActivatedAt returns the time of the last Start, or the zero time.
func (a *Aggregator) ActivatedAt() time.Time {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.activatedAt
}

// OnSnapshot records one inbound snapshot. It is the handler the owner wires to the transport.
// Nodes and kinds that were not requested are skipped.
func (a *Aggregator) OnSnapshot(snap *Snapshot) error {
	_, err := a.Record(snap)
	return err
}

// Record is OnSnapshot that also reports whether aggregation was active when the snapshot
// arrived. The check and the append happen under one lock.
func (a *Aggregator) Record(snap *Snapshot) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.active {
		return false, nil
	}
	if snap == nil {
		return true, fmt.Errorf("%w: nil snapshot", ErrMalformedSnapshot)
	}

	for _, node := range snap.Nodes {
		bufs, ok := a.nodes[node.Name]
		if !ok {
			continue
		}
		for _, buf := range bufs {
			buf.add(node)
		}
	}
	return true, nil
}

// Result reduces the current buffers. It does not depend on Active and is recomputed on
// every call.
func (a *Aggregator) Result() Result {
	a.mu.RLock()
	defer a.mu.RUnlock()

	raw := make(Payload, len(a.nodes))
	avg := make(Payload, len(a.nodes))
	averages := make(map[string]NodeAverages, len(a.nodes))

	for name, bufs := range a.nodes {
		nodeRaw := make(map[string]any, len(bufs))
		nodeAvg := make(map[string]any, len(bufs))
		typed := make(NodeAverages, len(bufs))
		for kind, buf := range bufs {
			av := buf.average()
			nodeRaw[kind.String()] = buf.raw()
			nodeAvg[kind.String()] = av.payload()
			typed[kind] = av
		}
		raw[name] = nodeRaw
		avg[name] = nodeAvg
		averages[name] = typed
	}

	return Result{
		Timestamp:   seconds(a.activatedAt),
		ActivatedAt: a.activatedAt,
		Labels:      [2]string{LabelResources, LabelAverageResources},
		Payloads:    [2]Payload{raw, avg},
		Averages:    averages,
	}
}

func seconds(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return float64(t.UnixNano()) / 1e9
}
