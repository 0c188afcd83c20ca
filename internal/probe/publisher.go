package probe

import (
	"Go2ResSpectra/internal/config"
	"Go2ResSpectra/internal/resources"
	"Go2ResSpectra/internal/wire"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// Publisher is responsible for publishing resource snapshots to a NATS subject.
type Publisher struct {
	nc      *nats.Conn
	subject string
}

// NewPublisher creates a new NATS publisher.
func NewPublisher(cfg config.TransportConfig) (*Publisher, error) {
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		return nil, err
	}
	log.Infof("Connected to NATS server at %s", cfg.NATSURL)
	return &Publisher{nc: nc, subject: cfg.Subject}, nil
}

// Publish encodes a snapshot and publishes it to the configured NATS subject.
func (p *Publisher) Publish(snap *resources.Snapshot) error {
	data, err := wire.Marshal(snap)
	if err != nil {
		return err
	}
	return p.nc.Publish(p.subject, data)
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		log.Info("NATS connection drained and closed.")
	}
}
