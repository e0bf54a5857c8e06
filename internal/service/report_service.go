package service

import (
	"context"
	"time"

	"corebank/internal/model"
	"corebank/internal/repository"
	"corebank/pkg/errs"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReportService builds account statements from the ledger.
type ReportService struct {
	ledger       *LedgerService
	customers    CustomerLookup
	accountRepo  *repository.AccountRepository
	movementRepo *repository.MovementRepository
}

func NewReportService(db *gorm.DB, ledger *LedgerService, customers CustomerLookup) *ReportService {
	return &ReportService{
		ledger:       ledger,
		customers:    customers,
		accountRepo:  repository.NewAccountRepository(db),
		movementRepo: repository.NewMovementRepository(db),
	}
}

// GenerateStatement lists, for every active account of the customer, the
// movements with from <= occurred_at <= to in ascending order. The closing
// balance of each account is its current balance regardless of to.
func (s *ReportService) GenerateStatement(ctx context.Context, customerID int64, from, to time.Time) (*model.Statement, error) {
	customer, found, err := s.customers.Lookup(ctx, customerID)
	if err != nil {
		return nil, errs.Unavailable("look up customer", err)
	}
	if !found {
		return nil, errs.ErrCustomerNotFound
	}
	if from.After(to) {
		return nil, errs.ErrInvalidDateRange
	}

	accounts, err := s.accountRepo.ListByCustomer(ctx, customerID, false)
	if err != nil {
		return nil, errs.Unavailable("list accounts", err)
	}

	statement := &model.Statement{
		CustomerID:   customerID,
		CustomerName: customer.Name,
		From:         from,
		To:           to,
		Accounts:     make([]model.AccountStatement, 0, len(accounts)),
		Totals: model.StatementTotals{
			ClosingBalance:   decimal.Zero,
			TotalDeposits:    decimal.Zero,
			TotalWithdrawals: decimal.Zero,
		},
	}

	for _, account := range accounts {
		line, err := s.accountStatement(ctx, account, from, to)
		if err != nil {
			return nil, err
		}
		statement.Accounts = append(statement.Accounts, *line)

		statement.Totals.ClosingBalance = statement.Totals.ClosingBalance.Add(line.ClosingBalance)
		statement.Totals.TotalDeposits = statement.Totals.TotalDeposits.Add(line.TotalDeposits)
		statement.Totals.TotalWithdrawals = statement.Totals.TotalWithdrawals.Add(line.TotalWithdrawals)
		statement.Totals.TotalMovements += line.MovementCount
	}
	return statement, nil
}

func (s *ReportService) accountStatement(ctx context.Context, account *model.Account, from, to time.Time) (*model.AccountStatement, error) {
	movements, err := s.movementRepo.ListByAccountBetween(ctx, account.ID, from, to)
	if err != nil {
		return nil, errs.Unavailable("list movements", err)
	}
	closing, err := s.ledger.ComputeBalance(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	line := &model.AccountStatement{
		AccountID:        account.ID,
		AccountNumber:    account.Number,
		AccountType:      account.Type,
		OpeningBalance:   account.OpeningBalance,
		ClosingBalance:   closing,
		TotalDeposits:    decimal.Zero,
		TotalWithdrawals: decimal.Zero,
		MovementCount:    len(movements),
		Movements:        make([]model.Movement, 0, len(movements)),
	}
	for _, m := range movements {
		if m.Amount.IsPositive() {
			line.TotalDeposits = line.TotalDeposits.Add(m.Amount)
		} else {
			line.TotalWithdrawals = line.TotalWithdrawals.Add(m.Amount)
		}
		line.Movements = append(line.Movements, *m)
	}
	return line, nil
}
