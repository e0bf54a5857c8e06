package service

import (
	"context"
	"time"

	"corebank/internal/events"
	"corebank/internal/infrastructure/metrics"
	"corebank/internal/infrastructure/mq"
	"corebank/internal/model"
	"corebank/internal/repository"

	"go.uber.org/zap"
)

// EventPublisher sends registry events to the bus, best effort.
//
// Each publish gets one attempt bounded by timeout. When it fails the encoded
// envelope is parked in the outbox for the re-delivery job; the caller is
// never told and nothing it wrote is rolled back.
type EventPublisher struct {
	publisher  mq.Publisher
	outboxRepo *repository.OutboxRepository
	topic      string
	timeout    time.Duration
	metrics    *metrics.Metrics
	log        *zap.Logger
	now        func() time.Time
}

func NewEventPublisher(publisher mq.Publisher, outboxRepo *repository.OutboxRepository, topic string, timeout time.Duration, m *metrics.Metrics, log *zap.Logger) *EventPublisher {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &EventPublisher{
		publisher:  publisher,
		outboxRepo: outboxRepo,
		topic:      topic,
		timeout:    timeout,
		metrics:    m,
		log:        log.Named("event-publisher"),
		now:        time.Now,
	}
}

func (p *EventPublisher) PublishCustomerCreated(ctx context.Context, evt events.CustomerCreated) {
	env, err := events.NewCustomerCreated(evt, p.now())
	if err != nil {
		p.log.Error("encode customer.created failed", zap.Int64("customer_id", evt.CustomerID), zap.Error(err))
		return
	}
	payload, err := env.Marshal()
	if err != nil {
		p.log.Error("marshal envelope failed", zap.String("event_id", env.ID), zap.Error(err))
		return
	}

	// the caller's cancellation must not cut the attempt or the parking short
	base := context.WithoutCancel(ctx)
	pubCtx, cancel := context.WithTimeout(base, p.timeout)
	err = p.publisher.Publish(pubCtx, p.topic, evt.Key(), payload)
	cancel()

	if err == nil {
		p.metrics.EventPublished("sent")
		p.log.Info("customer.created published",
			zap.String("event_id", env.ID),
			zap.Int64("customer_id", evt.CustomerID),
		)
		return
	}

	p.log.Warn("publish failed, parking event in outbox",
		zap.String("event_id", env.ID),
		zap.Int64("customer_id", evt.CustomerID),
		zap.Error(err),
	)
	msg := &model.OutboxMessage{
		EventID:    env.ID,
		EventType:  env.Type,
		MessageKey: evt.Key(),
		Topic:      p.topic,
		Payload:    string(payload),
		Status:     model.OutboxStatusPending,
		LastError:  truncate(err.Error(), 512),
	}
	if err := p.outboxRepo.Create(base, msg); err != nil {
		p.metrics.EventPublished("lost")
		p.log.Error("park event failed", zap.String("event_id", env.ID), zap.Error(err))
		return
	}
	p.metrics.EventPublished("parked")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
