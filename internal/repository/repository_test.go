package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"corebank/internal/config"
	"corebank/internal/infrastructure/database"
	"corebank/internal/model"
	"corebank/pkg/errs"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{
		Driver:   "sqlite",
		Path:     filepath.Join(t.TempDir(), "repo.db"),
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

func TestAccountRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewAccountRepository(db)
	ctx := context.Background()

	a := &model.Account{Number: "478758", Type: model.AccountTypeSavings, OpeningBalance: decimal.NewFromInt(2000), Active: true, CustomerID: 1}
	b := &model.Account{Number: "225487", Type: model.AccountTypeChecking, OpeningBalance: decimal.NewFromInt(100), Active: true, CustomerID: 1}
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))
	require.NoError(t, repo.Deactivate(ctx, b.ID))

	got, err := repo.GetByNumber(ctx, "478758")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.True(t, got.OpeningBalance.Equal(decimal.NewFromInt(2000)))

	_, err = repo.GetByID(ctx, 999)
	assert.ErrorIs(t, err, errs.ErrAccountNotFound)

	exists, err := repo.ExistsByNumber(ctx, "225487")
	require.NoError(t, err)
	assert.True(t, exists, "inactive accounts still reserve their number")

	active, err := repo.ListByCustomer(ctx, 1, false)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	all, err := repo.ListByCustomer(ctx, 1, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestMovementRepository_Ordering(t *testing.T) {
	db := newTestDB(t)
	repo := NewMovementRepository(db)
	ctx := context.Background()

	base := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	insert := func(no string, at time.Time, amount int64) {
		require.NoError(t, repo.Create(ctx, nil, &model.Movement{
			MovementNo: no, AccountID: 1, OccurredAt: at,
			Kind: model.MovementKind(decimal.NewFromInt(amount)), Amount: decimal.NewFromInt(amount), ResultingBalance: decimal.Zero,
		}))
	}
	insert("m1", base.Add(2*time.Hour), 10)
	insert("m2", base, -5)
	insert("m3", base, 7) // same timestamp as m2, inserted later
	insert("m4", base.Add(48*time.Hour), 1)

	between, err := repo.ListByAccountBetween(ctx, 1, base, base.Add(2*time.Hour))
	require.NoError(t, err)
	var nos []string
	for _, m := range between {
		nos = append(nos, m.MovementNo)
	}
	assert.Equal(t, []string{"m2", "m3", "m1"}, nos)

	newest, err := repo.ListByAccount(ctx, 1)
	require.NoError(t, err)
	require.Len(t, newest, 4)
	assert.Equal(t, "m4", newest[0].MovementNo)

	sum, err := repo.SumAmounts(ctx, nil, 1)
	require.NoError(t, err)
	assert.True(t, sum.Equal(decimal.NewFromInt(13)))

	count, err := repo.CountByAccount(ctx, nil, 2)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestProjectionRepository_Upsert(t *testing.T) {
	db := newTestDB(t)
	repo := NewProjectionRepository(db, nil)
	ctx := context.Background()

	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Upsert(ctx, &model.CustomerProjection{CustomerID: 5, Name: "A", NationalID: "1", Active: true, LastSyncedAt: at}))
	require.NoError(t, repo.Upsert(ctx, &model.CustomerProjection{CustomerID: 5, Name: "B", NationalID: "1", Active: false, LastSyncedAt: at.Add(time.Hour)}))

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	p, found, err := repo.Get(ctx, 5)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "B", p.Name)
	assert.False(t, p.Active)
	assert.True(t, p.LastSyncedAt.Equal(at.Add(time.Hour)))
}

func TestOutboxRepository_Lifecycle(t *testing.T) {
	db := newTestDB(t)
	repo := NewOutboxRepository(db)
	ctx := context.Background()

	msg := &model.OutboxMessage{EventID: "e-1", MessageKey: "1", Topic: "customer.created", Payload: "{}", Status: model.OutboxStatusPending}
	require.NoError(t, repo.Create(ctx, msg))

	require.NoError(t, repo.RecordFailure(ctx, msg.ID, "timeout", false))
	got, err := repo.GetByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.RetryCount)
	assert.Equal(t, model.OutboxStatusPending, got.Status)
	assert.Equal(t, "timeout", got.LastError)

	require.NoError(t, repo.RecordFailure(ctx, msg.ID, "timeout", true))
	got, err = repo.GetByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.RetryCount)
	assert.Equal(t, model.OutboxStatusFailed, got.Status)

	pending, err := repo.GetPendingMessages(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestOutboxRepository_MarkAsSent(t *testing.T) {
	db := newTestDB(t)
	repo := NewOutboxRepository(db)
	ctx := context.Background()

	msg := &model.OutboxMessage{EventID: "e-2", EventType: "customer.created", MessageKey: "2", Topic: "customer.created", Payload: "{}", Status: model.OutboxStatusPending}
	require.NoError(t, repo.Create(ctx, msg))

	sentAt := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.MarkAsSent(ctx, msg.ID, sentAt))

	got, err := repo.GetByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OutboxStatusSent, got.Status)
	require.NotNil(t, got.SentAt)
	assert.True(t, got.SentAt.Equal(sentAt))

	sent, err := repo.CountByStatus(ctx, model.OutboxStatusSent)
	require.NoError(t, err)
	assert.Equal(t, int64(1), sent)
}
