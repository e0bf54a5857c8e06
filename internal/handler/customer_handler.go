package handler

import (
	"corebank/internal/service"
	"corebank/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CustomerHandler struct {
	customers *service.CustomerService
	log       *zap.Logger
}

func NewCustomerHandler(customers *service.CustomerService, log *zap.Logger) *CustomerHandler {
	return &CustomerHandler{
		customers: customers,
		log:       log.Named("http"),
	}
}

// CreateCustomer responds once the customer is stored; CustomerCreated is
// delivered in the background.
// POST /api/v1/customers
func (h *CustomerHandler) CreateCustomer(c *gin.Context) {
	var req service.CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}

	customer, err := h.customers.CreateCustomer(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, customer)
}

// ListCustomers
// GET /api/v1/customers
func (h *CustomerHandler) ListCustomers(c *gin.Context) {
	customers, err := h.customers.ListCustomers(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, customers)
}

// GetCustomer
// GET /api/v1/customers/:id
func (h *CustomerHandler) GetCustomer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	customer, err := h.customers.GetCustomer(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, customer)
}

// UpdateCustomer
// PUT /api/v1/customers/:id
func (h *CustomerHandler) UpdateCustomer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.UpdateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}

	customer, err := h.customers.UpdateCustomer(c.Request.Context(), id, &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, customer)
}

// DeactivateCustomer
// DELETE /api/v1/customers/:id
func (h *CustomerHandler) DeactivateCustomer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.customers.DeactivateCustomer(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, gin.H{"id": id, "active": false})
}

func (h *CustomerHandler) fail(c *gin.Context, err error) {
	writeError(c, h.log, err)
}
