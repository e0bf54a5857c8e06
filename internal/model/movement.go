package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	MovementKindDeposit    = "DEPOSIT"
	MovementKindWithdrawal = "WITHDRAWAL"
)

// MovementKind labels a signed amount. Zero is labelled a withdrawal.
func MovementKind(amount decimal.Decimal) string {
	if amount.IsPositive() {
		return MovementKindDeposit
	}
	return MovementKindWithdrawal
}

// Movement is one append-only ledger entry.
//
// Rows are inserted once and never updated or deleted. ResultingBalance is the
// account balance right after this movement, snapshotted at insert time.
type Movement struct {
	ID               int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	MovementNo       string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"movement_no"`
	AccountID        int64           `gorm:"index:idx_movement_account_time,priority:1;not null" json:"account_id"`
	OccurredAt       time.Time       `gorm:"index:idx_movement_account_time,priority:2;not null" json:"occurred_at"`
	Kind             string          `gorm:"type:varchar(16);not null" json:"kind"`
	Amount           decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	ResultingBalance decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"resulting_balance"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (Movement) TableName() string {
	return "movement"
}

// MovementResult is a movement annotated with its account number.
type MovementResult struct {
	Movement
	AccountNumber string `json:"account_number"`
}
