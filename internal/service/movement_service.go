package service

import (
	"context"
	"time"

	"corebank/internal/infrastructure/metrics"
	"corebank/internal/model"
	"corebank/internal/repository"
	"corebank/pkg/errs"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MovementService is the only writer of movements. It resolves the account
// by number and delegates the balance check and insert to the ledger.
type MovementService struct {
	ledger       *LedgerService
	movementRepo *repository.MovementRepository
	metrics      *metrics.Metrics
	log          *zap.Logger
	now          func() time.Time
}

func NewMovementService(db *gorm.DB, ledger *LedgerService, m *metrics.Metrics, log *zap.Logger) *MovementService {
	return &MovementService{
		ledger:       ledger,
		movementRepo: repository.NewMovementRepository(db),
		metrics:      m,
		log:          log.Named("movement"),
		now:          time.Now,
	}
}

type PostMovementRequest struct {
	AccountNumber string          `json:"account_number" binding:"required"`
	Amount        decimal.Decimal `json:"amount"`
}

// PostMovement applies a signed amount: positive deposits, zero or negative
// withdraws. A withdrawal that would leave the balance below zero is rejected.
func (s *MovementService) PostMovement(ctx context.Context, accountNumber string, amount decimal.Decimal) (*model.MovementResult, error) {
	account, err := s.ledger.GetAccountByNumber(ctx, accountNumber)
	if err != nil {
		s.reject(accountNumber, err)
		return nil, err
	}
	if !account.Active {
		s.reject(accountNumber, errs.ErrAccountInactive)
		return nil, errs.ErrAccountInactive
	}

	movement, err := s.ledger.AppendMovement(ctx, account.ID, amount, s.now().UTC().Truncate(time.Millisecond))
	if err != nil {
		s.reject(accountNumber, err)
		return nil, err
	}

	s.metrics.MovementPosted(movement.Kind)
	s.log.Info("movement posted",
		zap.String("account", account.Number),
		zap.String("movement_no", movement.MovementNo),
		zap.String("kind", movement.Kind),
		zap.String("amount", movement.Amount.String()),
		zap.String("balance", movement.ResultingBalance.String()),
	)
	return &model.MovementResult{Movement: *movement, AccountNumber: account.Number}, nil
}

// ListMovements returns the account's movements newest first.
func (s *MovementService) ListMovements(ctx context.Context, accountNumber string) ([]model.MovementResult, error) {
	account, err := s.ledger.GetAccountByNumber(ctx, accountNumber)
	if err != nil {
		return nil, err
	}
	movements, err := s.movementRepo.ListByAccount(ctx, account.ID)
	if err != nil {
		return nil, errs.Unavailable("list movements", err)
	}

	results := make([]model.MovementResult, 0, len(movements))
	for _, m := range movements {
		results = append(results, model.MovementResult{Movement: *m, AccountNumber: account.Number})
	}
	return results, nil
}

func (s *MovementService) reject(accountNumber string, err error) {
	kind := errs.KindOf(err)
	s.metrics.MovementRejected(kind.String())
	if kind == errs.KindUnavailable {
		s.log.Error("movement failed", zap.String("account", accountNumber), zap.Error(err))
		return
	}
	s.log.Info("movement rejected", zap.String("account", accountNumber), zap.Error(err))
}
