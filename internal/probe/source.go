package probe

import (
	"fmt"

	"Go2ResSpectra/internal/config"
	"Go2ResSpectra/internal/model"
	"Go2ResSpectra/internal/resources"
)

// Source is a model.Source that can report undecodable messages.
type Source interface {
	model.Source
	OnDecodeError(fn func(error))
}

// SnapshotPublisher publishes snapshots onto the configured bus.
type SnapshotPublisher interface {
	Publish(snap *resources.Snapshot) error
	Close()
}

// NewSource connects to the bus selected by cfg.Type.
func NewSource(cfg config.TransportConfig) (Source, error) {
	var (
		src Source
		err error
	)
	switch cfg.Type {
	case "nats":
		src, err = NewSubscriber(cfg)
	case "kafka":
		src, err = NewConsumer(cfg.Kafka)
	default:
		return nil, fmt.Errorf("unknown transport type: '%s'", cfg.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect %s source: %w", cfg.Type, err)
	}
	return src, nil
}

// NewSnapshotPublisher connects a publisher to the bus selected by cfg.Type.
func NewSnapshotPublisher(cfg config.TransportConfig) (SnapshotPublisher, error) {
	var (
		pub SnapshotPublisher
		err error
	)
	switch cfg.Type {
	case "nats":
		pub, err = NewPublisher(cfg)
	case "kafka":
		pub, err = NewProducer(cfg.Kafka)
	default:
		return nil, fmt.Errorf("unknown transport type: '%s'", cfg.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect %s publisher: %w", cfg.Type, err)
	}
	return pub, nil
}
