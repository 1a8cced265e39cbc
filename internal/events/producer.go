package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cloud-wave-best-zizon/storefront/internal/domain"
	"github.com/cloud-wave-best-zizon/storefront/internal/service"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"
)

type messageProducer interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
}

// SnapshotProducer publishes every order change to a Kafka topic. Produce is
// asynchronous; delivery failures are logged from the events loop.
type SnapshotProducer struct {
	producer messageProducer
	topic    string
	logger   *zap.Logger
	now      func() time.Time
	close    func()
}

func NewSnapshotProducer(brokers, topic string, logger *zap.Logger) (*SnapshotProducer, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
		"acks":              "all",
		"retries":           10,
	})
	if err != nil {
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for e := range p.Events() {
			if ev, ok := e.(*kafka.Message); ok && ev.TopicPartition.Error != nil {
				logger.Error("Snapshot delivery failed",
					zap.String("key", string(ev.Key)),
					zap.Error(ev.TopicPartition.Error))
			}
		}
	}()

	sp := newSnapshotProducer(p, topic, logger)
	sp.close = func() {
		p.Flush(5000)
		p.Close()
		<-done
	}
	return sp, nil
}

func newSnapshotProducer(p messageProducer, topic string, logger *zap.Logger) *SnapshotProducer {
	return &SnapshotProducer{
		producer: p,
		topic:    topic,
		logger:   logger,
		now:      time.Now,
		close:    func() {},
	}
}

func (p *SnapshotProducer) OrderChanged(_ context.Context, change service.OrderChange) {
	event := NewSnapshotEvent(change, p.now())
	if err := p.Publish(event); err != nil {
		p.logger.Error("Failed to publish order snapshot",
			zap.String("order_number", event.OrderNumber),
			zap.String("intent", event.Intent),
			zap.Error(err))
	}
}

func (p *SnapshotProducer) CatalogChanged(context.Context, []domain.Product) {}

func (p *SnapshotProducer) Publish(event OrderSnapshotEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &p.topic,
			Partition: kafka.PartitionAny,
		},
		Key:   orderKey(event.OrderNumber),
		Value: data,
	}, nil)
}

// Close flushes outstanding messages for up to five seconds.
func (p *SnapshotProducer) Close() {
	p.close()
}
