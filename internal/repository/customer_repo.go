package repository

import (
	"context"
	"errors"

	"corebank/internal/model"
	"corebank/pkg/errs"

	"gorm.io/gorm"
)

type CustomerRepository struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

func (r *CustomerRepository) Create(ctx context.Context, customer *model.Customer) error {
	err := r.db.WithContext(ctx).Create(customer).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errs.ErrDuplicateNationalID
	}
	return err
}

func (r *CustomerRepository) GetByID(ctx context.Context, id int64) (*model.Customer, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *CustomerRepository) GetByCustomerID(ctx context.Context, customerID int64) (*model.Customer, error) {
	return r.first(r.db.WithContext(ctx).Where("customer_id = ?", customerID))
}

func (r *CustomerRepository) first(query *gorm.DB) (*model.Customer, error) {
	var customer model.Customer
	if err := query.First(&customer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrCustomerNotFound
		}
		return nil, err
	}
	return &customer, nil
}

// NationalIDTaken reports whether another customer (id != excludeID) already
// uses nationalID. Pass 0 to check against everyone.
func (r *CustomerRepository) NationalIDTaken(ctx context.Context, nationalID string, excludeID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Customer{}).
		Where("national_id = ? AND id <> ?", nationalID, excludeID).
		Count(&count).Error
	return count > 0, err
}

func (r *CustomerRepository) List(ctx context.Context) ([]*model.Customer, error) {
	var customers []*model.Customer
	err := r.db.WithContext(ctx).Order("id ASC").Find(&customers).Error
	return customers, err
}

func (r *CustomerRepository) Save(ctx context.Context, customer *model.Customer) error {
	err := r.db.WithContext(ctx).Save(customer).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errs.ErrDuplicateNationalID
	}
	return err
}

func (r *CustomerRepository) Deactivate(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Model(&model.Customer{}).
		Where("id = ?", id).
		Update("active", false).Error
}
