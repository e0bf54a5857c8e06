package model

import "time"

// CustomerProjection is the ledger's read-only copy of a registry customer.
// Only the customer synchronizer writes it.
type CustomerProjection struct {
	CustomerID   int64     `gorm:"primaryKey;autoIncrement:false" json:"customer_id"`
	Name         string    `gorm:"type:varchar(100);not null" json:"name"`
	NationalID   string    `gorm:"type:varchar(20);not null" json:"national_id"`
	Active       bool      `gorm:"not null" json:"active"`
	LastSyncedAt time.Time `gorm:"not null" json:"last_synced_at"`
}

func (CustomerProjection) TableName() string {
	return "customer_projection"
}
