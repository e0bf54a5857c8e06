package repository

import (
	"context"
	"errors"
	"strconv"

	"corebank/internal/infrastructure/cache"
	"corebank/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProjectionRepository stores the ledger's customer projection, optionally
// fronted by a Redis read-through cache.
type ProjectionRepository struct {
	db    *gorm.DB
	cache *cache.ViewCache[model.CustomerProjection]
}

func NewProjectionRepository(db *gorm.DB, viewCache *cache.ViewCache[model.CustomerProjection]) *ProjectionRepository {
	return &ProjectionRepository{db: db, cache: viewCache}
}

// Upsert inserts the projection or overwrites every field of the existing row.
func (r *ProjectionRepository) Upsert(ctx context.Context, p *model.CustomerProjection) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "customer_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "national_id", "active", "last_synced_at"}),
		}).
		Create(p).Error
	if err != nil {
		return err
	}
	r.cache.Set(ctx, cacheKey(p.CustomerID), p)
	return nil
}

// Get reports a miss as (nil, false, nil).
func (r *ProjectionRepository) Get(ctx context.Context, customerID int64) (*model.CustomerProjection, bool, error) {
	if p, ok := r.cache.Get(ctx, cacheKey(customerID)); ok {
		return p, true, nil
	}

	var p model.CustomerProjection
	err := r.db.WithContext(ctx).Where("customer_id = ?", customerID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	r.cache.Set(ctx, cacheKey(customerID), &p)
	return &p, true, nil
}

func (r *ProjectionRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.CustomerProjection{}).Count(&count).Error
	return count, err
}

func cacheKey(customerID int64) string {
	return strconv.FormatInt(customerID, 10)
}
