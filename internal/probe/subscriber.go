package probe

import (
	"Go2ResSpectra/internal/config"
	"Go2ResSpectra/internal/model"
	"Go2ResSpectra/internal/wire"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// Subscriber is responsible for subscribing to a NATS subject and processing snapshots.
type Subscriber struct {
	nc      *nats.Conn
	sub     *nats.Subscription
	subject string
	onError func(error)
}

// NewSubscriber creates a new NATS subscriber.
func NewSubscriber(cfg config.TransportConfig) (*Subscriber, error) {
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		return nil, err
	}
	log.Infof("Connected to NATS server at %s", cfg.NATSURL)
	return &Subscriber{nc: nc, subject: cfg.Subject}, nil
}

// OnDecodeError registers a callback for messages that could not be decoded.
func (s *Subscriber) OnDecodeError(fn func(error)) {
	s.onError = fn
}

// Start subscribes to the configured subject and hands every snapshot to handler.
func (s *Subscriber) Start(handler model.SnapshotHandler) error {
	sub, err := s.nc.Subscribe(s.subject, func(msg *nats.Msg) {
		dispatch(msg.Data, handler, s.onError)
	})
	if err != nil {
		return err
	}
	s.sub = sub
	log.Infof("Subscribed to '%s'. Waiting for snapshots...", s.subject)
	return nil
}

// Close unsubscribes and closes the NATS connection.
func (s *Subscriber) Close() {
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
	if s.nc != nil {
		s.nc.Close()
		log.Info("NATS connection closed.")
	}
}

// dispatch decodes one message and invokes handler. Decode and handler failures are logged
// and the message dropped.
func dispatch(data []byte, handler model.SnapshotHandler, onError func(error)) {
	snap, err := wire.Unmarshal(data)
	if err != nil {
		log.Errorf("Error decoding resource snapshot: %v", err)
		if onError != nil {
			onError(err)
		}
		return
	}
	if err := handler(snap); err != nil {
		log.Errorf("Error handling resource snapshot: %v", err)
	}
}
