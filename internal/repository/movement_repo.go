package repository

import (
	"context"
	"time"

	"corebank/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MovementRepository only ever inserts and reads; movements are immutable.
type MovementRepository struct {
	db *gorm.DB
}

func NewMovementRepository(db *gorm.DB) *MovementRepository {
	return &MovementRepository{db: db}
}

func (r *MovementRepository) Create(ctx context.Context, tx *gorm.DB, movement *model.Movement) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(movement).Error
}

// SumAmounts returns the sum of every movement amount of an account, added in
// insertion order.
func (r *MovementRepository) SumAmounts(ctx context.Context, tx *gorm.DB, accountID int64) (decimal.Decimal, error) {
	if tx == nil {
		tx = r.db
	}
	var amounts []decimal.Decimal
	err := tx.WithContext(ctx).
		Model(&model.Movement{}).
		Where("account_id = ?", accountID).
		Order("id ASC").
		Pluck("amount", &amounts).Error
	if err != nil {
		return decimal.Zero, err
	}

	sum := decimal.Zero
	for _, amount := range amounts {
		sum = sum.Add(amount)
	}
	return sum, nil
}

func (r *MovementRepository) CountByAccount(ctx context.Context, tx *gorm.DB, accountID int64) (int64, error) {
	if tx == nil {
		tx = r.db
	}
	var count int64
	err := tx.WithContext(ctx).
		Model(&model.Movement{}).
		Where("account_id = ?", accountID).
		Count(&count).Error
	return count, err
}

// ListByAccount returns the account's movements newest first.
func (r *MovementRepository) ListByAccount(ctx context.Context, accountID int64) ([]*model.Movement, error) {
	var movements []*model.Movement
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("occurred_at DESC").
		Order("id DESC").
		Find(&movements).Error
	return movements, err
}

// ListByAccountBetween returns movements with from <= occurred_at <= to in
// ascending time, ties broken by insertion order.
func (r *MovementRepository) ListByAccountBetween(ctx context.Context, accountID int64, from, to time.Time) ([]*model.Movement, error) {
	var movements []*model.Movement
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND occurred_at >= ? AND occurred_at <= ?", accountID, from, to).
		Order("occurred_at ASC").
		Order("id ASC").
		Find(&movements).Error
	return movements, err
}
