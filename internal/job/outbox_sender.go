package job

import (
	"context"
	"time"

	"corebank/internal/config"
	"corebank/internal/infrastructure/metrics"
	"corebank/internal/infrastructure/mq"
	"corebank/internal/model"
	"corebank/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OutboxSender re-publishes events whose first publish attempt failed.
//
// Each tick sends a batch of PENDING messages in insertion order. A send that
// succeeds marks the row SENT; a failure bumps retry_count, and the row turns
// FAILED once maxRetryCount attempts have failed.
type OutboxSender struct {
	outboxRepo    *repository.OutboxRepository
	publisher     mq.Publisher
	metrics       *metrics.Metrics
	log           *zap.Logger
	stopCh        chan struct{}
	interval      time.Duration
	batchSize     int
	maxRetryCount int
	sendTimeout   time.Duration
}

func NewOutboxSender(db *gorm.DB, publisher mq.Publisher, cfg config.OutboxConfig, sendTimeout time.Duration, m *metrics.Metrics, log *zap.Logger) *OutboxSender {
	s := &OutboxSender{
		outboxRepo:    repository.NewOutboxRepository(db),
		publisher:     publisher,
		metrics:       m,
		log:           log.Named("outbox-sender"),
		stopCh:        make(chan struct{}),
		interval:      cfg.Interval,
		batchSize:     cfg.BatchSize,
		maxRetryCount: cfg.MaxRetryCount,
		sendTimeout:   sendTimeout,
	}
	if s.interval <= 0 {
		s.interval = time.Second
	}
	if s.batchSize <= 0 {
		s.batchSize = 100
	}
	if s.maxRetryCount <= 0 {
		s.maxRetryCount = 5
	}
	if s.sendTimeout <= 0 {
		s.sendTimeout = 3 * time.Second
	}
	return s
}

// Start blocks until ctx is cancelled or Stop is called.
func (s *OutboxSender) Start(ctx context.Context) {
	s.log.Info("outbox sender started", zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("outbox sender stopping")
			return
		case <-s.stopCh:
			s.log.Info("outbox sender stopped")
			return
		case <-ticker.C:
			s.ProcessPending(ctx)
		}
	}
}

func (s *OutboxSender) Stop() {
	close(s.stopCh)
}

// ProcessPending sends one batch and returns how many messages were sent.
func (s *OutboxSender) ProcessPending(ctx context.Context) int {
	messages, err := s.outboxRepo.GetPendingMessages(ctx, s.batchSize)
	if err != nil {
		s.log.Error("load pending messages failed", zap.Error(err))
		return 0
	}

	sent := 0
	for _, msg := range messages {
		if ctx.Err() != nil {
			break
		}
		if s.sendMessage(ctx, msg) {
			sent++
		}
	}
	return sent
}

func (s *OutboxSender) sendMessage(ctx context.Context, msg *model.OutboxMessage) bool {
	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	err := s.publisher.Publish(sendCtx, msg.Topic, msg.MessageKey, []byte(msg.Payload))
	cancel()

	if err == nil {
		if updateErr := s.outboxRepo.MarkAsSent(ctx, msg.ID, time.Now().UTC()); updateErr != nil {
			s.log.Error("mark message sent failed", zap.Int64("id", msg.ID), zap.Error(updateErr))
		} else {
			s.metrics.EventPublished("redelivered")
			s.log.Info("message redelivered",
				zap.Int64("id", msg.ID),
				zap.String("event_id", msg.EventID),
				zap.String("topic", msg.Topic),
			)
		}
		return true
	}

	giveUp := msg.RetryCount+1 >= s.maxRetryCount
	s.log.Warn("redelivery failed",
		zap.Int64("id", msg.ID),
		zap.Int("attempt", msg.RetryCount+1),
		zap.Bool("give_up", giveUp),
		zap.Error(err),
	)
	if err := s.outboxRepo.RecordFailure(ctx, msg.ID, err.Error(), giveUp); err != nil {
		s.log.Error("record failure failed", zap.Int64("id", msg.ID), zap.Error(err))
	}
	if giveUp {
		s.metrics.EventPublished("failed")
	}
	return false
}
