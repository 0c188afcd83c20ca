package probe

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"Go2ResSpectra/internal/config"
	"Go2ResSpectra/internal/model"
	"Go2ResSpectra/internal/resources"
	"Go2ResSpectra/internal/wire"

	log "github.com/sirupsen/logrus"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Consumer reads resource snapshots from a Kafka topic as part of a consumer group.
type Consumer struct {
	cl      *kgo.Client
	topic   string
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	onError func(error)
}

// NewConsumer creates a Kafka consumer for the configured topic.
func NewConsumer(cfg config.KafkaConfig) (*Consumer, error) {
	cl, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.Group),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}
	log.Infof("Kafka consumer created for brokers %v, group '%s'", cfg.Brokers, cfg.Group)
	return &Consumer{cl: cl, topic: cfg.Topic}, nil
}

// OnDecodeError registers a callback for records that could not be decoded.
func (c *Consumer) OnDecodeError(fn func(error)) {
	c.onError = fn
}

// Start launches the poll loop on its own goroutine.
func (c *Consumer) Start(handler model.SnapshotHandler) error {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.poll(ctx, handler)
	}()
	log.Infof("Consuming '%s'. Waiting for snapshots...", c.topic)
	return nil
}

func (c *Consumer) poll(ctx context.Context, handler model.SnapshotHandler) {
	for {
		fetches := c.cl.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return
		}
		// Fetch errors are retried by the client; the ones returned here are informational.
		fetches.EachError(func(topic string, partition int32, err error) {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Warnf("Kafka fetch error on %s[%d]: %v", topic, partition, err)
		})

		iter := fetches.RecordIter()
		for !iter.Done() {
			record := iter.Next()
			dispatch(record.Value, handler, c.onError)
		}
		if err := c.cl.CommitUncommittedOffsets(ctx); err != nil && ctx.Err() == nil {
			log.Warnf("Kafka commit failed: %v", err)
		}
	}
}

// Close stops the poll loop and closes the client.
func (c *Consumer) Close() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	c.cl.Close()
	log.Info("Kafka consumer closed.")
}

// Producer publishes resource snapshots to a Kafka topic.
type Producer struct {
	cl    *kgo.Client
	topic string
}

// NewProducer creates a Kafka producer for the configured topic.
func NewProducer(cfg config.KafkaConfig) (*Producer, error) {
	cl, err := kgo.NewClient(kgo.SeedBrokers(cfg.Brokers...), kgo.DefaultProduceTopic(cfg.Topic))
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}
	return &Producer{cl: cl, topic: cfg.Topic}, nil
}

// Publish encodes a snapshot and produces it synchronously.
func (p *Producer) Publish(snap *resources.Snapshot) error {
	data, err := wire.Marshal(snap)
	if err != nil {
		return err
	}
	return p.cl.ProduceSync(context.Background(), &kgo.Record{Topic: p.topic, Value: data}).FirstErr()
}

// Close flushes pending records and closes the client.
func (p *Producer) Close() {
	if err := p.cl.Flush(context.Background()); err != nil {
		log.Warnf("Kafka flush failed: %v", err)
	}
	p.cl.Close()
}
