package model

import "time"

// Person holds the identity fields shared by person-like records.
type Person struct {
	Name       string `gorm:"type:varchar(100);not null" json:"name"`
	Gender     string `gorm:"type:varchar(1);not null" json:"gender"`
	Age        int    `gorm:"not null" json:"age"`
	NationalID string `gorm:"type:varchar(20);uniqueIndex;not null" json:"national_id"`
	Address    string `gorm:"type:varchar(200)" json:"address"`
	Phone      string `gorm:"type:varchar(15)" json:"phone"`
}

// Customer is the registry's source of truth for a bank customer.
type Customer struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CustomerID   int64     `gorm:"uniqueIndex;not null" json:"customer_id"`
	Person       `gorm:"embedded"`
	PasswordHash string    `gorm:"type:varchar(100);not null" json:"-"`
	Active       bool      `gorm:"not null" json:"active"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Customer) TableName() string {
	return "customer"
}
