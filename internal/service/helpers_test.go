package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"corebank/internal/config"
	"corebank/internal/events"
	"corebank/internal/infrastructure/database"
	"corebank/internal/infrastructure/lock"
	"corebank/internal/infrastructure/metrics"
	"corebank/internal/model"
	"corebank/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{
		Driver:   "sqlite",
		Path:     filepath.Join(t.TempDir(), "corebank.db"),
		LogLevel: "silent",
	}, zap.NewNop(),
		&model.Account{},
		&model.Movement{},
		&model.CustomerProjection{},
		&model.Customer{},
		&model.OutboxMessage{},
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

type ledgerEnv struct {
	db        *gorm.DB
	metrics   *metrics.Metrics
	sync      *SyncService
	ledger    *LedgerService
	movements *MovementService
	reports   *ReportService
}

func newLedgerEnv(t *testing.T) *ledgerEnv {
	t.Helper()
	db := newTestDB(t)
	m := metrics.New("ledger-test")
	log := zap.NewNop()

	syncSvc := NewSyncService(repository.NewProjectionRepository(db, nil), m, log)
	ledger := NewLedgerService(db, syncSvc, lock.NewLocalLocker(), log)
	return &ledgerEnv{
		db:        db,
		metrics:   m,
		sync:      syncSvc,
		ledger:    ledger,
		movements: NewMovementService(db, ledger, m, log),
		reports:   NewReportService(db, ledger, syncSvc),
	}
}

func (e *ledgerEnv) seedCustomer(t *testing.T, id int64, name string) {
	t.Helper()
	require.NoError(t, e.sync.OnCustomerCreated(context.Background(), events.CustomerCreated{
		CustomerID: id, Name: name, NationalID: "ID" + name, Active: true,
	}))
}

func (e *ledgerEnv) openAccount(t *testing.T, number, opening string, customerID int64) *model.Account {
	t.Helper()
	account, err := e.ledger.OpenAccount(context.Background(), &OpenAccountRequest{
		Number:         number,
		Type:           model.AccountTypeSavings,
		OpeningBalance: dec(opening),
		CustomerID:     customerID,
	})
	require.NoError(t, err)
	return account
}

// at pins the movement clock.
func (e *ledgerEnv) at(ts time.Time) {
	e.movements.now = func() time.Time { return ts }
}

type published struct {
	topic, key string
	value      []byte
}

// fakePublisher records messages and fails while err is set.
type fakePublisher struct {
	mu       sync.Mutex
	err      error
	block    bool
	messages []published
}

func (p *fakePublisher) Publish(ctx context.Context, topic, key string, value []byte) error {
	if p.block {
		<-ctx.Done()
		return ctx.Err()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, published{topic: topic, key: key, value: value})
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) sent() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.messages...)
}
