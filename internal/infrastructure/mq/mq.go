package mq

import (
	"context"
	"errors"
	"fmt"

	"corebank/internal/config"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ErrClosed is returned by a publisher used after Close.
var ErrClosed = errors.New("mq: publisher closed")

// Publisher hands one encoded message to the bus. Implementations must honor
// ctx as the upper bound of a single attempt.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, value []byte) error
	Close() error
}

// Handler processes one delivered message. A nil return acknowledges it; an
// error leaves it unacknowledged so the bus delivers it again.
type Handler func(ctx context.Context, value []byte) error

// Subscriber delivers messages of one topic to a Handler until ctx is done.
type Subscriber interface {
	Run(ctx context.Context, handler Handler) error
	Close() error
}

// NewPublisher builds the publisher selected by bus.driver. The redis client
// is only used by the redis driver.
func NewPublisher(bus config.BusConfig, kafka config.KafkaConfig, client *redis.Client, log *zap.Logger) (Publisher, error) {
	switch bus.Driver {
	case "kafka", "":
		publisher, err := NewKafkaPublisher(kafka, bus.PublishTimeout, log)
		if err != nil {
			return nil, err
		}
		return publisher, nil
	case "redis":
		if client == nil {
			return nil, fmt.Errorf("bus driver redis needs a redis client")
		}
		return NewStreamPublisher(client), nil
	default:
		return nil, fmt.Errorf("unsupported bus driver %q", bus.Driver)
	}
}

// NewSubscriber builds the subscriber selected by bus.driver.
func NewSubscriber(bus config.BusConfig, kafka config.KafkaConfig, client *redis.Client, log *zap.Logger) (Subscriber, error) {
	switch bus.Driver {
	case "kafka", "":
		subscriber, err := NewKafkaSubscriber(kafka, bus, log)
		if err != nil {
			return nil, err
		}
		return subscriber, nil
	case "redis":
		if client == nil {
			return nil, fmt.Errorf("bus driver redis needs a redis client")
		}
		return NewStreamSubscriber(client, bus, log), nil
	default:
		return nil, fmt.Errorf("unsupported bus driver %q", bus.Driver)
	}
}
