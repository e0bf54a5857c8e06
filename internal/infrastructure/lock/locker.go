package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"corebank/internal/config"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Locker hands out mutual exclusion per key. The returned release func must be
// called exactly once.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// AccountKey is the lock key guarding one account's movement log.
func AccountKey(accountID int64) string {
	return fmt.Sprintf("ledger:lock:account:%d", accountID)
}

// RedisLocker serializes across every ledger instance sharing the Redis.
type RedisLocker struct {
	client        *redis.Client
	ttl           time.Duration
	retryInterval time.Duration
	maxRetries    int
	log           *zap.Logger
}

func NewRedisLocker(client *redis.Client, cfg config.LockConfig, log *zap.Logger) *RedisLocker {
	return &RedisLocker{
		client:        client,
		ttl:           cfg.TTL,
		retryInterval: cfg.RetryInterval,
		maxRetries:    cfg.MaxRetries,
		log:           log.Named("redis-lock"),
	}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	dl := NewDistributedLock(l.client, key, uuid.NewString(), l.ttl)
	if err := dl.Lock(ctx, l.retryInterval, l.maxRetries); err != nil {
		return nil, fmt.Errorf("acquire %s: %w", key, err)
	}
	return func() {
		// release even if the request context is already cancelled
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := dl.Unlock(ctx); err != nil {
			l.log.Warn("unlock failed", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

// LocalLocker is an in-process keyed mutex for single-instance deployments.
// Entries are dropped once no goroutine holds or waits for them.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*keyLock)}
}

func (l *LocalLocker) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	select {
	case kl.ch <- struct{}{}:
	case <-ctx.Done():
		l.unref(key, kl)
		return nil, fmt.Errorf("acquire %s: %w", key, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-kl.ch
			l.unref(key, kl)
		})
	}, nil
}

func (l *LocalLocker) unref(key string, kl *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
}

// New picks the Locker configured by lock.driver.
func New(cfg config.LockConfig, client *redis.Client, log *zap.Logger) (Locker, error) {
	switch cfg.Driver {
	case "redis":
		if client == nil {
			return nil, fmt.Errorf("lock driver redis needs a redis client")
		}
		return NewRedisLocker(client, cfg, log), nil
	case "local", "":
		return NewLocalLocker(), nil
	default:
		return nil, fmt.Errorf("unsupported lock driver %q", cfg.Driver)
	}
}
