package service

import (
	"context"
	"errors"
	"time"

	"corebank/internal/events"
	"corebank/internal/infrastructure/metrics"
	"corebank/internal/model"
	"corebank/internal/repository"
	"corebank/pkg/errs"

	"go.uber.org/zap"
)

// SyncService keeps the ledger's customer projection in step with the
// registry. It is the projection's only writer.
//
// Every delivery is an upsert keyed by customer id, so redelivery is harmless
// and the last delivered event wins.
type SyncService struct {
	projections *repository.ProjectionRepository
	metrics     *metrics.Metrics
	log         *zap.Logger
	now         func() time.Time
}

func NewSyncService(projections *repository.ProjectionRepository, m *metrics.Metrics, log *zap.Logger) *SyncService {
	return &SyncService{
		projections: projections,
		metrics:     m,
		log:         log.Named("customer-sync"),
		now:         time.Now,
	}
}

// OnCustomerCreated upserts the projection. A storage failure is logged and
// returned so the transport leaves the message unacknowledged; this method
// never retries on its own.
func (s *SyncService) OnCustomerCreated(ctx context.Context, evt events.CustomerCreated) error {
	p := &model.CustomerProjection{
		CustomerID:   evt.CustomerID,
		Name:         evt.Name,
		NationalID:   evt.NationalID,
		Active:       evt.Active,
		LastSyncedAt: s.now().UTC(),
	}
	if err := s.projections.Upsert(ctx, p); err != nil {
		s.metrics.CustomerEvent("failed")
		s.log.Error("store customer projection failed", zap.Int64("customer_id", evt.CustomerID), zap.Error(err))
		return errs.Unavailable("store customer projection", err)
	}

	s.metrics.CustomerEvent("applied")
	s.log.Info("customer synced", zap.Int64("customer_id", evt.CustomerID))
	return nil
}

func (s *SyncService) Lookup(ctx context.Context, customerID int64) (*model.CustomerProjection, bool, error) {
	return s.projections.Get(ctx, customerID)
}

// HandleEnvelope ignores event types it does not know and drops payloads that
// cannot be decoded.
func (s *SyncService) HandleEnvelope(ctx context.Context, env events.Envelope) error {
	if env.Type != events.TypeCustomerCreated {
		s.metrics.CustomerEvent("ignored")
		s.log.Debug("ignoring event", zap.String("type", env.Type), zap.String("id", env.ID))
		return nil
	}
	evt, err := env.CustomerCreated()
	if err != nil {
		s.metrics.CustomerEvent("malformed")
		s.log.Warn("dropping malformed event", zap.String("id", env.ID), zap.Error(err))
		return nil
	}
	return s.OnCustomerCreated(ctx, evt)
}

// HandleMessage is the mq.Handler for raw bus payloads.
func (s *SyncService) HandleMessage(ctx context.Context, raw []byte) error {
	env, err := events.Decode(raw)
	if err != nil {
		if errors.Is(err, events.ErrMalformed) {
			s.metrics.CustomerEvent("malformed")
			s.log.Warn("dropping malformed message", zap.Error(err))
			return nil
		}
		return err
	}
	return s.HandleEnvelope(ctx, env)
}
