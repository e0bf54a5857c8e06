package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"corebank/internal/infrastructure/lock"
	"corebank/internal/model"
	"corebank/internal/repository"
	"corebank/pkg/errs"
	"corebank/pkg/idgen"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CustomerLookup answers whether a customer is known to the ledger.
// A miss is (nil, false, nil), never an error.
type CustomerLookup interface {
	Lookup(ctx context.Context, customerID int64) (*model.CustomerProjection, bool, error)
}

// LedgerService owns accounts and the append-only movement log.
//
// Balances are never stored: they are always the opening balance plus the sum
// of the account's movements. Every balance-dependent write runs under the
// account's lock and, inside one transaction, a row lock on the account, so
// two writers on the same account never see the same starting balance.
type LedgerService struct {
	db           *gorm.DB
	accountRepo  *repository.AccountRepository
	movementRepo *repository.MovementRepository
	customers    CustomerLookup
	locker       lock.Locker
	log          *zap.Logger
}

func NewLedgerService(db *gorm.DB, customers CustomerLookup, locker lock.Locker, log *zap.Logger) *LedgerService {
	return &LedgerService{
		db:           db,
		accountRepo:  repository.NewAccountRepository(db),
		movementRepo: repository.NewMovementRepository(db),
		customers:    customers,
		locker:       locker,
		log:          log.Named("ledger"),
	}
}

type OpenAccountRequest struct {
	Number         string          `json:"number" binding:"required,max=32"`
	Type           string          `json:"type" binding:"required"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	CustomerID     int64           `json:"customer_id" binding:"required"`
}

type UpdateAccountRequest struct {
	Type           *string          `json:"type"`
	OpeningBalance *decimal.Decimal `json:"opening_balance"`
}

func (s *LedgerService) OpenAccount(ctx context.Context, req *OpenAccountRequest) (*model.Account, error) {
	number := strings.TrimSpace(req.Number)
	if number == "" {
		return nil, errs.Invalid("account number is required")
	}
	if !model.ValidAccountType(req.Type) {
		return nil, errs.ErrInvalidAccountType
	}
	if req.OpeningBalance.IsNegative() {
		return nil, errs.ErrInvalidOpeningBalance
	}

	_, found, err := s.customers.Lookup(ctx, req.CustomerID)
	if err != nil {
		return nil, errs.Unavailable("look up customer", err)
	}
	if !found {
		return nil, errs.ErrCustomerNotFound
	}

	exists, err := s.accountRepo.ExistsByNumber(ctx, number)
	if err != nil {
		return nil, errs.Unavailable("check account number", err)
	}
	if exists {
		return nil, errs.ErrDuplicateAccountNumber
	}

	account := &model.Account{
		Number:         number,
		Type:           req.Type,
		OpeningBalance: req.OpeningBalance,
		Active:         true,
		CustomerID:     req.CustomerID,
	}
	if err := s.accountRepo.Create(ctx, account); err != nil {
		return nil, infraErr("create account", err)
	}

	s.log.Info("account opened",
		zap.Int64("account_id", account.ID),
		zap.String("number", account.Number),
		zap.Int64("customer_id", account.CustomerID),
	)
	return account, nil
}

func (s *LedgerService) GetAccount(ctx context.Context, id int64) (*model.Account, error) {
	account, err := s.accountRepo.GetByID(ctx, id)
	if err != nil {
		return nil, infraErr("get account", err)
	}
	return account, nil
}

func (s *LedgerService) GetAccountByNumber(ctx context.Context, number string) (*model.Account, error) {
	account, err := s.accountRepo.GetByNumber(ctx, number)
	if err != nil {
		return nil, infraErr("get account", err)
	}
	return account, nil
}

func (s *LedgerService) ListAccountsForCustomer(ctx context.Context, customerID int64, includeInactive bool) ([]*model.Account, error) {
	accounts, err := s.accountRepo.ListByCustomer(ctx, customerID, includeInactive)
	if err != nil {
		return nil, errs.Unavailable("list accounts", err)
	}
	return accounts, nil
}

func (s *LedgerService) ListAccounts(ctx context.Context) ([]*model.Account, error) {
	accounts, err := s.accountRepo.List(ctx)
	if err != nil {
		return nil, errs.Unavailable("list accounts", err)
	}
	return accounts, nil
}

// UpdateAccount edits the type and opening balance. The opening balance is
// frozen once a movement exists, since every resulting balance depends on it.
func (s *LedgerService) UpdateAccount(ctx context.Context, id int64, req *UpdateAccountRequest) (*model.Account, error) {
	if req.Type != nil && !model.ValidAccountType(*req.Type) {
		return nil, errs.ErrInvalidAccountType
	}
	if req.OpeningBalance != nil && req.OpeningBalance.IsNegative() {
		return nil, errs.ErrInvalidOpeningBalance
	}

	release, err := s.locker.Acquire(ctx, lock.AccountKey(id))
	if err != nil {
		return nil, errs.Unavailable("lock account", err)
	}
	defer release()

	var updated *model.Account
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		account, err := s.accountRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}

		fields := map[string]interface{}{}
		if req.Type != nil && *req.Type != account.Type {
			fields["type"] = *req.Type
			account.Type = *req.Type
		}
		if req.OpeningBalance != nil && !req.OpeningBalance.Equal(account.OpeningBalance) {
			count, err := s.movementRepo.CountByAccount(ctx, tx, id)
			if err != nil {
				return err
			}
			if count > 0 {
				return errs.ErrOpeningBalanceLocked
			}
			fields["opening_balance"] = *req.OpeningBalance
			account.OpeningBalance = *req.OpeningBalance
		}

		if len(fields) > 0 {
			if err := s.accountRepo.Update(ctx, tx, id, fields); err != nil {
				return err
			}
		}
		updated = account
		return nil
	})
	if err != nil {
		return nil, infraErr("update account", err)
	}
	return updated, nil
}

// DeactivateAccount soft-deletes the account. Deactivating twice succeeds.
func (s *LedgerService) DeactivateAccount(ctx context.Context, id int64) error {
	account, err := s.accountRepo.GetByID(ctx, id)
	if err != nil {
		return infraErr("get account", err)
	}
	if !account.Active {
		return nil
	}
	if err := s.accountRepo.Deactivate(ctx, id); err != nil {
		return errs.Unavailable("deactivate account", err)
	}
	s.log.Info("account deactivated", zap.Int64("account_id", id), zap.String("number", account.Number))
	return nil
}

// ComputeBalance returns opening balance plus every movement, read in one transaction.
func (s *LedgerService) ComputeBalance(ctx context.Context, id int64) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var account model.Account
		if err := tx.Where("id = ?", id).First(&account).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.ErrAccountNotFound
			}
			return err
		}
		sum, err := s.movementRepo.SumAmounts(ctx, tx, id)
		if err != nil {
			return err
		}
		balance = account.OpeningBalance.Add(sum)
		return nil
	})
	if err != nil {
		return decimal.Zero, infraErr("compute balance", err)
	}
	return balance, nil
}

// AppendMovement is the ledger's critical section: balance read, overdraft
// check and insert happen atomically with respect to other movements on the
// same account. Nothing is written when it fails.
func (s *LedgerService) AppendMovement(ctx context.Context, accountID int64, amount decimal.Decimal, at time.Time) (*model.Movement, error) {
	release, err := s.locker.Acquire(ctx, lock.AccountKey(accountID))
	if err != nil {
		return nil, errs.Unavailable("lock account", err)
	}
	defer release()

	var movement *model.Movement
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		account, err := s.accountRepo.GetByIDForUpdate(ctx, tx, accountID)
		if err != nil {
			return err
		}
		if !account.Active {
			return errs.ErrAccountInactive
		}

		sum, err := s.movementRepo.SumAmounts(ctx, tx, accountID)
		if err != nil {
			return err
		}
		newBalance := account.OpeningBalance.Add(sum).Add(amount)
		if amount.IsNegative() && newBalance.IsNegative() {
			return errs.ErrInsufficientFunds
		}

		movement = &model.Movement{
			MovementNo:       idgen.GenerateMovementNo(),
			AccountID:        accountID,
			OccurredAt:       at,
			Kind:             model.MovementKind(amount),
			Amount:           amount,
			ResultingBalance: newBalance,
		}
		return s.movementRepo.Create(ctx, tx, movement)
	})
	if err != nil {
		return nil, infraErr("append movement", err)
	}
	return movement, nil
}

// infraErr passes typed domain errors through and marks everything else as
// an infrastructure failure.
func infraErr(message string, err error) error {
	var e *errs.Error
	if errors.As(err, &e) {
		return err
	}
	return errs.Unavailable(message, err)
}
