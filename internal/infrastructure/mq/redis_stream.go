package mq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"corebank/internal/config"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const streamField = "event"

// StreamPublisher appends messages to a Redis stream named after the topic.
type StreamPublisher struct {
	client *redis.Client
}

func NewStreamPublisher(client *redis.Client) *StreamPublisher {
	return &StreamPublisher{client: client}
}

func (p *StreamPublisher) Publish(ctx context.Context, topic, key string, value []byte) error {
	args := &redis.XAddArgs{
		Stream: topic,
		Values: map[string]interface{}{
			"key":       key,
			streamField: string(value),
		},
	}
	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", topic, err)
	}
	return nil
}

// Close is a no-op; the client is owned by the caller.
func (p *StreamPublisher) Close() error { return nil }

// StreamSubscriber reads a Redis stream through a consumer group. Entries are
// acknowledged only after the handler succeeds. Pending entries of this
// consumer are read again on start and after every handler failure.
type StreamSubscriber struct {
	client        *redis.Client
	stream        string
	group         string
	consumer      string
	batchSize     int64
	blockDuration time.Duration
	backoff       time.Duration
	log           *zap.Logger
}

func NewStreamSubscriber(client *redis.Client, bus config.BusConfig, log *zap.Logger) *StreamSubscriber {
	s := &StreamSubscriber{
		client:        client,
		stream:        bus.Topic,
		group:         bus.Group,
		consumer:      bus.Consumer,
		batchSize:     bus.BatchSize,
		blockDuration: bus.BlockDuration,
		backoff:       time.Second,
		log:           log.Named("stream-subscriber"),
	}
	if s.batchSize <= 0 {
		s.batchSize = 10
	}
	if s.blockDuration <= 0 {
		s.blockDuration = 5 * time.Second
	}
	return s
}

func (s *StreamSubscriber) Run(ctx context.Context, handler Handler) error {
	err := s.client.XGroupCreateMkStream(ctx, s.stream, s.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group: %w", err)
	}

	s.log.Info("subscriber started",
		zap.String("stream", s.stream),
		zap.String("group", s.group),
		zap.String("consumer", s.consumer),
	)

	pending := true
	for {
		if ctx.Err() != nil {
			s.log.Info("subscriber stopping", zap.String("stream", s.stream))
			return nil
		}

		start := ">"
		if pending {
			start = "0"
		}
		read, failed, err := s.readOnce(ctx, start, handler)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				continue
			}
			s.log.Error("read stream failed", zap.Error(err))
			s.sleep(ctx)
		case failed:
			pending = true
			s.sleep(ctx)
		case pending && read == 0:
			pending = false
		}
	}
}

// readOnce reads one batch starting at start and reports how many entries were
// read and whether any of them was left unacknowledged.
func (s *StreamSubscriber) readOnce(ctx context.Context, start string, handler Handler) (int, bool, error) {
	args := &redis.XReadGroupArgs{
		Group:    s.group,
		Consumer: s.consumer,
		Streams:  []string{s.stream, start},
		Count:    s.batchSize,
		Block:    s.blockDuration,
	}
	if start != ">" {
		// pending entries are returned immediately
		args.Block = -1
	}

	streams, err := s.client.XReadGroup(ctx, args).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	read, failed := 0, false
	for _, stream := range streams {
		for _, message := range stream.Messages {
			read++
			if err := s.process(ctx, message, handler); err != nil {
				s.log.Warn("message left pending", zap.String("id", message.ID), zap.Error(err))
				failed = true
				continue
			}
			if err := s.client.XAck(ctx, s.stream, s.group, message.ID).Err(); err != nil {
				s.log.Warn("ack failed", zap.String("id", message.ID), zap.Error(err))
			}
		}
	}
	return read, failed, nil
}

func (s *StreamSubscriber) process(ctx context.Context, message redis.XMessage, handler Handler) error {
	value, ok := message.Values[streamField].(string)
	if !ok {
		s.log.Warn("dropping entry without event field", zap.String("id", message.ID))
		return nil
	}
	return handler(ctx, []byte(value))
}

func (s *StreamSubscriber) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(s.backoff):
	}
}

// Close is a no-op; the client is owned by the caller.
func (s *StreamSubscriber) Close() error { return nil }
