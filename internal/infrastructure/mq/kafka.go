package mq

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"corebank/internal/config"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

func newSaramaConfig(cfg config.KafkaConfig, timeout time.Duration) *sarama.Config {
	kafkaConfig := sarama.NewConfig()
	kafkaConfig.ClientID = cfg.ClientID
	kafkaConfig.Producer.RequiredAcks = sarama.WaitForAll
	kafkaConfig.Producer.Retry.Max = 3
	kafkaConfig.Producer.Return.Successes = true
	kafkaConfig.Producer.Idempotent = false
	if timeout > 0 {
		kafkaConfig.Producer.Timeout = timeout
		kafkaConfig.Net.DialTimeout = timeout
		kafkaConfig.Net.WriteTimeout = timeout
		kafkaConfig.Net.ReadTimeout = timeout
	}
	kafkaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	kafkaConfig.Consumer.Return.Errors = true
	return kafkaConfig
}

// KafkaPublisher publishes through a synchronous producer; every message waits
// for all in-sync replicas.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	log      *zap.Logger
}

func NewKafkaPublisher(cfg config.KafkaConfig, timeout time.Duration, log *zap.Logger) (*KafkaPublisher, error) {
	producer, err := sarama.NewSyncProducer(cfg.Brokers, newSaramaConfig(cfg, timeout))
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return NewKafkaPublisherWithProducer(producer, log), nil
}

func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, log *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, log: log.Named("kafka-publisher")}
}

func (p *KafkaPublisher) Publish(ctx context.Context, topic, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(value),
	}

	done := make(chan error, 1)
	go func() {
		_, _, err := p.producer.SendMessage(msg)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("kafka send to %s: %w", topic, err)
		}
		p.log.Debug("message sent", zap.String("topic", topic), zap.String("key", key))
		return nil
	case <-ctx.Done():
		return fmt.Errorf("kafka send to %s: %w", topic, ctx.Err())
	}
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// KafkaSubscriber consumes one topic as a member of a consumer group. Offsets
// are marked only after the handler succeeds.
type KafkaSubscriber struct {
	group   sarama.ConsumerGroup
	topic   string
	backoff time.Duration
	log     *zap.Logger
}

func NewKafkaSubscriber(cfg config.KafkaConfig, bus config.BusConfig, log *zap.Logger) (*KafkaSubscriber, error) {
	group, err := sarama.NewConsumerGroup(cfg.Brokers, bus.Group, newSaramaConfig(cfg, 0))
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer group: %w", err)
	}
	return &KafkaSubscriber{
		group:   group,
		topic:   bus.Topic,
		backoff: time.Second,
		log:     log.Named("kafka-subscriber"),
	}, nil
}

func (s *KafkaSubscriber) Run(ctx context.Context, handler Handler) error {
	s.log.Info("subscriber started", zap.String("topic", s.topic))

	go func() {
		for err := range s.group.Errors() {
			s.log.Warn("consumer group error", zap.Error(err))
		}
	}()

	h := &groupHandler{handler: handler, log: s.log}
	for {
		// Consume returns on every rebalance and whenever a claim stops on a
		// handler error; rejoining resumes from the last marked offset.
		if err := s.group.Consume(ctx, []string{s.topic}, h); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			s.log.Error("consume failed", zap.Error(err))
		}
		if ctx.Err() != nil {
			s.log.Info("subscriber stopping", zap.String("topic", s.topic))
			return nil
		}
		if h.failed() {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(s.backoff):
			}
		}
	}
}

func (s *KafkaSubscriber) Close() error {
	return s.group.Close()
}

type groupHandler struct {
	handler Handler
	log     *zap.Logger
	failure atomic.Bool
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error {
	h.failure.Store(false)
	return nil
}

func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := h.handler(sess.Context(), msg.Value); err != nil {
				h.log.Warn("message left unacknowledged",
					zap.String("topic", msg.Topic),
					zap.Int32("partition", msg.Partition),
					zap.Int64("offset", msg.Offset),
					zap.Error(err),
				)
				h.failure.Store(true)
				return err
			}
			sess.MarkMessage(msg, "")
		case <-sess.Context().Done():
			return nil
		}
	}
}

func (h *groupHandler) failed() bool {
	return h.failure.Load()
}
