package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"corebank/internal/events"
	"corebank/internal/model"
	"corebank/internal/repository"
	"corebank/pkg/errs"
	"corebank/pkg/idgen"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// CustomerEventPublisher is the registry's outbound side of the bus.
type CustomerEventPublisher interface {
	PublishCustomerCreated(ctx context.Context, evt events.CustomerCreated)
}

// CustomerService is the registry: the source of truth for customers.
type CustomerService struct {
	customerRepo *repository.CustomerRepository
	publisher    CustomerEventPublisher
	log          *zap.Logger
	nextID       func() int64
	hashCost     int
}

func NewCustomerService(db *gorm.DB, publisher CustomerEventPublisher, log *zap.Logger) *CustomerService {
	return &CustomerService{
		customerRepo: repository.NewCustomerRepository(db),
		publisher:    publisher,
		log:          log.Named("customer"),
		nextID:       idgen.NextCustomerID,
		hashCost:     bcrypt.DefaultCost,
	}
}

type CreateCustomerRequest struct {
	Name       string `json:"name" binding:"required,max=100"`
	Gender     string `json:"gender" binding:"required,len=1"`
	Age        int    `json:"age" binding:"required,gte=18,lte=120"`
	NationalID string `json:"national_id" binding:"required,max=20"`
	Address    string `json:"address" binding:"max=200"`
	Phone      string `json:"phone" binding:"max=15"`
	Password   string `json:"password" binding:"required"`
}

// UpdateCustomerRequest replaces the person fields. Password and Active are
// left alone when omitted.
type UpdateCustomerRequest struct {
	Name       string `json:"name" binding:"required,max=100"`
	Gender     string `json:"gender" binding:"required,len=1"`
	Age        int    `json:"age" binding:"required,gte=18,lte=120"`
	NationalID string `json:"national_id" binding:"required,max=20"`
	Address    string `json:"address" binding:"max=200"`
	Phone      string `json:"phone" binding:"max=15"`
	Password   string `json:"password"`
	Active     *bool  `json:"active"`
}

func (r *CreateCustomerRequest) person() model.Person {
	return model.Person{
		Name:       strings.TrimSpace(r.Name),
		Gender:     r.Gender,
		Age:        r.Age,
		NationalID: strings.TrimSpace(r.NationalID),
		Address:    r.Address,
		Phone:      r.Phone,
	}
}

func (r *UpdateCustomerRequest) person() model.Person {
	return model.Person{
		Name:       strings.TrimSpace(r.Name),
		Gender:     r.Gender,
		Age:        r.Age,
		NationalID: strings.TrimSpace(r.NationalID),
		Address:    r.Address,
		Phone:      r.Phone,
	}
}

func validatePerson(p model.Person) error {
	switch {
	case p.Name == "":
		return errs.Invalid("name is required")
	case utf8.RuneCountInString(p.Name) > 100:
		return errs.Invalid("name must be at most 100 characters")
	case utf8.RuneCountInString(p.Gender) != 1:
		return errs.Invalid("gender must be a single character")
	case p.Age < 18 || p.Age > 120:
		return errs.Invalid("age must be between 18 and 120")
	case p.NationalID == "":
		return errs.Invalid("national id is required")
	case utf8.RuneCountInString(p.NationalID) > 20:
		return errs.Invalid("national id must be at most 20 characters")
	case utf8.RuneCountInString(p.Address) > 200:
		return errs.Invalid("address must be at most 200 characters")
	case utf8.RuneCountInString(p.Phone) > 15:
		return errs.Invalid("phone must be at most 15 characters")
	}
	return nil
}

// CreateCustomer stores the customer and then publishes CustomerCreated. The
// publish is best effort; a bus outage never fails the creation.
func (s *CustomerService) CreateCustomer(ctx context.Context, req *CreateCustomerRequest) (*model.Customer, error) {
	person := req.person()
	if err := validatePerson(person); err != nil {
		return nil, err
	}
	if req.Password == "" {
		return nil, errs.Invalid("password is required")
	}

	taken, err := s.customerRepo.NationalIDTaken(ctx, person.NationalID, 0)
	if err != nil {
		return nil, errs.Unavailable("check national id", err)
	}
	if taken {
		return nil, errs.ErrDuplicateNationalID
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		return nil, errs.Invalid("password cannot be hashed: %v", err)
	}

	customer := &model.Customer{
		CustomerID:   s.nextID(),
		Person:       person,
		PasswordHash: string(hash),
		Active:       true,
	}
	if err := s.customerRepo.Create(ctx, customer); err != nil {
		return nil, infraErr("create customer", err)
	}
	s.log.Info("customer created", zap.Int64("customer_id", customer.CustomerID))

	s.publisher.PublishCustomerCreated(ctx, events.CustomerCreated{
		CustomerID: customer.CustomerID,
		Name:       customer.Name,
		NationalID: customer.NationalID,
		Active:     customer.Active,
	})
	return customer, nil
}

func (s *CustomerService) GetCustomer(ctx context.Context, id int64) (*model.Customer, error) {
	customer, err := s.customerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, infraErr("get customer", err)
	}
	return customer, nil
}

func (s *CustomerService) GetCustomerByCustomerID(ctx context.Context, customerID int64) (*model.Customer, error) {
	customer, err := s.customerRepo.GetByCustomerID(ctx, customerID)
	if err != nil {
		return nil, infraErr("get customer", err)
	}
	return customer, nil
}

func (s *CustomerService) ListCustomers(ctx context.Context) ([]*model.Customer, error) {
	customers, err := s.customerRepo.List(ctx)
	if err != nil {
		return nil, errs.Unavailable("list customers", err)
	}
	return customers, nil
}

// UpdateCustomer edits a customer. No event is published for updates.
func (s *CustomerService) UpdateCustomer(ctx context.Context, id int64, req *UpdateCustomerRequest) (*model.Customer, error) {
	person := req.person()
	if err := validatePerson(person); err != nil {
		return nil, err
	}

	customer, err := s.customerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, infraErr("get customer", err)
	}

	if person.NationalID != customer.NationalID {
		taken, err := s.customerRepo.NationalIDTaken(ctx, person.NationalID, id)
		if err != nil {
			return nil, errs.Unavailable("check national id", err)
		}
		if taken {
			return nil, errs.ErrDuplicateNationalID
		}
	}

	customer.Person = person
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
		if err != nil {
			return nil, errs.Invalid("password cannot be hashed: %v", err)
		}
		customer.PasswordHash = string(hash)
	}
	if req.Active != nil {
		customer.Active = *req.Active
	}

	if err := s.customerRepo.Save(ctx, customer); err != nil {
		return nil, infraErr("update customer", err)
	}
	return customer, nil
}

// DeactivateCustomer soft-deletes the customer. Deactivating twice succeeds.
func (s *CustomerService) DeactivateCustomer(ctx context.Context, id int64) error {
	customer, err := s.customerRepo.GetByID(ctx, id)
	if err != nil {
		return infraErr("get customer", err)
	}
	if !customer.Active {
		return nil
	}
	if err := s.customerRepo.Deactivate(ctx, id); err != nil {
		return errs.Unavailable("deactivate customer", err)
	}
	s.log.Info("customer deactivated", zap.Int64("customer_id", customer.CustomerID))
	return nil
}

// CheckPassword reports whether password matches the stored hash.
func (s *CustomerService) CheckPassword(customer *model.Customer, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(customer.PasswordHash), []byte(password)) == nil
}
