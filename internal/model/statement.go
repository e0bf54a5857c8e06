package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Statement is a customer's account activity over an inclusive date range.
type Statement struct {
	CustomerID   int64              `json:"customer_id"`
	CustomerName string             `json:"customer_name"`
	From         time.Time          `json:"from"`
	To           time.Time          `json:"to"`
	Accounts     []AccountStatement `json:"accounts"`
	Totals       StatementTotals    `json:"totals"`
}

// AccountStatement covers one active account. ClosingBalance is the account's
// current balance, not the balance as of To.
type AccountStatement struct {
	AccountID        int64           `json:"account_id"`
	AccountNumber    string          `json:"account_number"`
	AccountType      string          `json:"account_type"`
	OpeningBalance   decimal.Decimal `json:"opening_balance"`
	ClosingBalance   decimal.Decimal `json:"closing_balance"`
	TotalDeposits    decimal.Decimal `json:"total_deposits"`
	TotalWithdrawals decimal.Decimal `json:"total_withdrawals"` // sum of negative amounts
	MovementCount    int             `json:"movement_count"`
	Movements        []Movement      `json:"movements"`
}

type StatementTotals struct {
	ClosingBalance   decimal.Decimal `json:"closing_balance"`
	TotalDeposits    decimal.Decimal `json:"total_deposits"`
	TotalWithdrawals decimal.Decimal `json:"total_withdrawals"`
	TotalMovements   int             `json:"total_movements"`
}
