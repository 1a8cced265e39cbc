package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/cloud-wave-best-zizon/storefront/internal/domain"
	"github.com/cloud-wave-best-zizon/storefront/internal/service"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// CompletionProducer publishes one event per submitted order.
type CompletionProducer struct {
	writer messageWriter
	logger *zap.Logger
	now    func() time.Time
}

func NewCompletionProducer(brokers, topic string, logger *zap.Logger) *CompletionProducer {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(strings.Split(brokers, ",")...),
		Topic:    topic,
		Balancer: &kafka.Hash{},
		Async:    true,
		Completion: func(messages []kafka.Message, err error) {
			if err == nil {
				return
			}
			for _, m := range messages {
				logger.Error("Completion delivery failed",
					zap.String("key", string(m.Key)),
					zap.Error(err))
			}
		},
	}
	return newCompletionProducer(writer, logger)
}

func newCompletionProducer(w messageWriter, logger *zap.Logger) *CompletionProducer {
	return &CompletionProducer{
		writer: w,
		logger: logger,
		now:    time.Now,
	}
}

func (p *CompletionProducer) OrderChanged(ctx context.Context, change service.OrderChange) {
	event, ok := NewCompletedEvent(change, p.now())
	if !ok {
		return
	}
	if err := p.Publish(ctx, event); err != nil {
		p.logger.Error("Failed to publish order completion",
			zap.String("event_id", event.EventID),
			zap.String("order_number", event.OrderNumber),
			zap.Error(err))
	}
}

func (p *CompletionProducer) CatalogChanged(context.Context, []domain.Product) {}

func (p *CompletionProducer) Publish(ctx context.Context, event OrderCompletedEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: orderKey(event.OrderNumber), Value: data}); err != nil {
		return err
	}

	p.logger.Info("Order completion published",
		zap.String("event_id", event.EventID),
		zap.String("order_number", event.OrderNumber),
		zap.String("total", event.TotalAmount))
	return nil
}

func (p *CompletionProducer) Close() error {
	return p.writer.Close()
}
