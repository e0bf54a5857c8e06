package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	AccountTypeSavings  = "SAVINGS"
	AccountTypeChecking = "CHECKING"
)

// ValidAccountType reports whether t is one of the supported account types.
func ValidAccountType(t string) bool {
	return t == AccountTypeSavings || t == AccountTypeChecking
}

// Account is the mutable half of the ledger. Its balance is never stored;
// it is always opening_balance plus the sum of its movements.
//
// Number is unique across every account ever opened, inactive ones included.
// Accounts are soft deleted through Active and never removed.
type Account struct {
	ID             int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Number         string          `gorm:"type:varchar(32);uniqueIndex;not null" json:"number"`
	Type           string          `gorm:"type:varchar(16);not null" json:"type"`
	OpeningBalance decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"opening_balance"`
	Active         bool            `gorm:"not null" json:"active"`
	CustomerID     int64           `gorm:"index;not null" json:"customer_id"` // looked up in the customer projection
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Account) TableName() string {
	return "account"
}
