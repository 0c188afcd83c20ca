package model

import "Go2ResSpectra/internal/resources"

// SnapshotHandler receives every decoded snapshot from a Source.
type SnapshotHandler func(snap *resources.Snapshot) error

// Source delivers resource snapshots from a message bus.
type Source interface {
	// Start subscribes and invokes handler once per message until Close.
	Start(handler SnapshotHandler) error

	// Close unsubscribes and releases the connection.
	Close()
}
