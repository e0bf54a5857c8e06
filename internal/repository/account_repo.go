package repository

import (
	"context"
	"errors"

	"corebank/internal/model"
	"corebank/pkg/errs"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create inserts a new account. A unique index violation on number surfaces
// as errs.ErrDuplicateAccountNumber.
func (r *AccountRepository) Create(ctx context.Context, account *model.Account) error {
	err := r.db.WithContext(ctx).Create(account).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errs.ErrDuplicateAccountNumber
	}
	return err
}

func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*model.Account, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *AccountRepository) GetByNumber(ctx context.Context, number string) (*model.Account, error) {
	return r.first(r.db.WithContext(ctx).Where("number = ?", number))
}

// GetByIDForUpdate reads the account row with SELECT ... FOR UPDATE inside tx.
func (r *AccountRepository) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id int64) (*model.Account, error) {
	return r.first(tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id))
}

func (r *AccountRepository) first(query *gorm.DB) (*model.Account, error) {
	var account model.Account
	err := query.First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// ExistsByNumber looks at every account ever opened, inactive ones included.
func (r *AccountRepository) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Account{}).
		Where("number = ?", number).
		Count(&count).Error
	return count > 0, err
}

func (r *AccountRepository) ListByCustomer(ctx context.Context, customerID int64, includeInactive bool) ([]*model.Account, error) {
	var accounts []*model.Account
	query := r.db.WithContext(ctx).Where("customer_id = ?", customerID)
	if !includeInactive {
		query = query.Where("active = ?", true)
	}
	err := query.Order("id ASC").Find(&accounts).Error
	return accounts, err
}

func (r *AccountRepository) List(ctx context.Context) ([]*model.Account, error) {
	var accounts []*model.Account
	err := r.db.WithContext(ctx).Order("id ASC").Find(&accounts).Error
	return accounts, err
}

// Update writes the given columns of one account inside tx.
func (r *AccountRepository) Update(ctx context.Context, tx *gorm.DB, id int64, fields map[string]interface{}) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).
		Model(&model.Account{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *AccountRepository) Deactivate(ctx context.Context, id int64) error {
	return r.Update(ctx, nil, id, map[string]interface{}{"active": false})
}
