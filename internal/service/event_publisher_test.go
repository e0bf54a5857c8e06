package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"corebank/internal/events"
	"corebank/internal/model"
	"corebank/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var jose = events.CustomerCreated{CustomerID: 42, Name: "Jose Lema", NationalID: "1712345678", Active: true}

func newEventPublisher(t *testing.T, bus *fakePublisher, timeout time.Duration) (*EventPublisher, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	return NewEventPublisher(bus, repository.NewOutboxRepository(db), "customer.created", timeout, nil, zap.NewNop()), db
}

func parked(t *testing.T, db *gorm.DB) []model.OutboxMessage {
	t.Helper()
	var messages []model.OutboxMessage
	require.NoError(t, db.Order("id ASC").Find(&messages).Error)
	return messages
}

func TestPublishCustomerCreated_Sent(t *testing.T) {
	bus := &fakePublisher{}
	p, db := newEventPublisher(t, bus, time.Second)

	p.PublishCustomerCreated(context.Background(), jose)

	sent := bus.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "customer.created", sent[0].topic)
	assert.Equal(t, "42", sent[0].key)

	env, err := events.Decode(sent[0].value)
	require.NoError(t, err)
	evt, err := env.CustomerCreated()
	require.NoError(t, err)
	assert.Equal(t, jose, evt)

	assert.Empty(t, parked(t, db))
}

func TestPublishCustomerCreated_ParksOnFailure(t *testing.T) {
	bus := &fakePublisher{err: errors.New("connection refused")}
	p, db := newEventPublisher(t, bus, time.Second)

	p.PublishCustomerCreated(context.Background(), jose)

	messages := parked(t, db)
	require.Len(t, messages, 1)
	msg := messages[0]
	assert.Equal(t, model.OutboxStatusPending, msg.Status)
	assert.Equal(t, "42", msg.MessageKey)
	assert.Equal(t, "customer.created", msg.Topic)
	assert.Equal(t, events.TypeCustomerCreated, msg.EventType)
	assert.Contains(t, msg.LastError, "connection refused")

	env, err := events.Decode([]byte(msg.Payload))
	require.NoError(t, err)
	assert.Equal(t, msg.EventID, env.ID)
}

func TestPublishCustomerCreated_BoundedByTimeout(t *testing.T) {
	bus := &fakePublisher{block: true}
	p, db := newEventPublisher(t, bus, 50*time.Millisecond)

	start := time.Now()
	p.PublishCustomerCreated(context.Background(), jose)

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Len(t, parked(t, db), 1)
}

func TestPublishCustomerCreated_IgnoresCallerCancellation(t *testing.T) {
	bus := &fakePublisher{}
	p, _ := newEventPublisher(t, bus, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.PublishCustomerCreated(ctx, jose)

	assert.Len(t, bus.sent(), 1)
}
