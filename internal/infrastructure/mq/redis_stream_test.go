package mq

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"corebank/internal/config"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func redisClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	require.NoError(t, client.Ping(context.Background()).Err())
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestStreamSubscriber_RedeliversFailedEntries(t *testing.T) {
	client := redisClient(t)
	stream := fmt.Sprintf("test.customer.created.%d", time.Now().UnixNano())
	t.Cleanup(func() { client.Del(context.Background(), stream) })

	pub := NewStreamPublisher(client)
	require.NoError(t, pub.Publish(context.Background(), stream, "1", []byte("first")))
	require.NoError(t, pub.Publish(context.Background(), stream, "2", []byte("second")))

	sub := NewStreamSubscriber(client, config.BusConfig{
		Topic:         stream,
		Group:         "test-group",
		Consumer:      "c1",
		BlockDuration: 100 * time.Millisecond,
	}, zap.NewNop())
	sub.backoff = 10 * time.Millisecond

	var calls, failedOnce atomic.Int32
	handled := make(chan string, 10)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go func() {
		_ = sub.Run(ctx, func(_ context.Context, v []byte) error {
			calls.Add(1)
			if string(v) == "second" && failedOnce.Add(1) == 1 {
				return errors.New("transient")
			}
			handled <- string(v)
			return nil
		})
	}()

	got := map[string]bool{}
	for len(got) < 2 {
		select {
		case v := <-handled:
			got[v] = true
		case <-ctx.Done():
			t.Fatalf("only handled %v", got)
		}
	}
	assert.GreaterOrEqual(t, calls.Load(), int32(3))

	pending, err := client.XPending(context.Background(), stream, "test-group").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending.Count)
}
