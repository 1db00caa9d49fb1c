package publisher

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/mvetrov/go_checkout/internal/repository"
)

const (
	defaultTopic     = "order-events"
	defaultBatchSize = 100
)

// messageWriter is the slice of kafka.Writer the poller needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// OutboxPoller drains the order outbox into Kafka and purges expired
// orders on a slower tick.
type OutboxPoller struct {
	eventTick time.Duration
	purgeTick time.Duration
	store     repository.OrderStore
	writer    messageWriter
	logger    *zap.Logger
}

func NewOutboxPoller(store repository.OrderStore, logger *zap.Logger, brokers ...string) *OutboxPoller {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  defaultTopic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &OutboxPoller{
		eventTick: time.Second,
		purgeTick: time.Minute,
		store:     store,
		writer:    w,
		logger:    logger,
	}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.eventTick)
	purgeTicker := time.NewTicker(p.purgeTick)
	defer eventTicker.Stop()
	defer purgeTicker.Stop()
	for {
		select {
		case <-eventTicker.C:
			p.processUnpublishedEvents(ctx)
		case <-purgeTicker.C:
			p.purgeExpiredOrders(ctx)
		case <-ctx.Done():
			p.writer.Close()
			return
		}
	}
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	events, err := p.store.GetUnprocessedEvents(ctx, defaultBatchSize)
	if err != nil {
		p.logger.Error("failed to fetch outbox events", zap.Error(err))
		return
	}

	for _, event := range events {
		if err := p.publish(ctx, event); err != nil {
			p.logger.Error("failed to publish outbox event",
				zap.Int64("event_id", event.ID),
				zap.Error(err))
			continue
		}

		if err := p.store.MarkEventProcessed(ctx, event.ID); err != nil {
			p.logger.Error("failed to mark outbox event processed",
				zap.Int64("event_id", event.ID),
				zap.Error(err))
			continue
		}
	}
}

func (p *OutboxPoller) purgeExpiredOrders(ctx context.Context) {
	purged, err := p.store.PurgeExpired(ctx, time.Now().UTC())
	if err != nil {
		p.logger.Error("failed to purge expired orders", zap.Error(err))
		return
	}
	if purged > 0 {
		p.logger.Info("purged expired orders", zap.Int64("count", purged))
	}
}

func (p *OutboxPoller) publish(ctx context.Context, event *repository.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.AggregateID), // cart_id keys partition ordering
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}
	return p.writer.WriteMessages(ctx, msg)
}
