package handler

import (
	"strconv"
	"time"

	"corebank/internal/service"
	"corebank/pkg/errs"
	"corebank/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

type LedgerHandler struct {
	ledger    *service.LedgerService
	movements *service.MovementService
	reports   *service.ReportService
	log       *zap.Logger
}

func NewLedgerHandler(ledger *service.LedgerService, movements *service.MovementService, reports *service.ReportService, log *zap.Logger) *LedgerHandler {
	return &LedgerHandler{
		ledger:    ledger,
		movements: movements,
		reports:   reports,
		log:       log.Named("http"),
	}
}

// OpenAccount
// POST /api/v1/accounts
func (h *LedgerHandler) OpenAccount(c *gin.Context) {
	var req service.OpenAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}

	account, err := h.ledger.OpenAccount(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, account)
}

// ListAccounts
// GET /api/v1/accounts
func (h *LedgerHandler) ListAccounts(c *gin.Context) {
	accounts, err := h.ledger.ListAccounts(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, accounts)
}

// GetAccount
// GET /api/v1/accounts/:id
func (h *LedgerHandler) GetAccount(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	account, err := h.ledger.GetAccount(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, account)
}

// GetAccountByNumber
// GET /api/v1/accounts/number/:number
func (h *LedgerHandler) GetAccountByNumber(c *gin.Context) {
	account, err := h.ledger.GetAccountByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, account)
}

// ListCustomerAccounts returns active accounts unless all=true.
// GET /api/v1/accounts/customer/:customerId?all=true
func (h *LedgerHandler) ListCustomerAccounts(c *gin.Context) {
	customerID, ok := pathID(c, "customerId")
	if !ok {
		return
	}
	all, _ := strconv.ParseBool(c.DefaultQuery("all", "false"))

	accounts, err := h.ledger.ListAccountsForCustomer(c.Request.Context(), customerID, all)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, accounts)
}

// UpdateAccount
// PUT /api/v1/accounts/:id
func (h *LedgerHandler) UpdateAccount(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}

	account, err := h.ledger.UpdateAccount(c.Request.Context(), id, &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, account)
}

// DeactivateAccount
// DELETE /api/v1/accounts/:id
func (h *LedgerHandler) DeactivateAccount(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.ledger.DeactivateAccount(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, gin.H{"id": id, "active": false})
}

// GetBalance
// GET /api/v1/accounts/:id/balance
func (h *LedgerHandler) GetBalance(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	balance, err := h.ledger.ComputeBalance(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, gin.H{
		"id":      id,
		"balance": balance,
	})
}

// PostMovement
// POST /api/v1/movements
func (h *LedgerHandler) PostMovement(c *gin.Context) {
	var req service.PostMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}

	result, err := h.movements.PostMovement(c.Request.Context(), req.AccountNumber, req.Amount)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, result)
}

// ListMovements returns the movements of an account, newest first.
// GET /api/v1/movements/account/:number
func (h *LedgerHandler) ListMovements(c *gin.Context) {
	results, err := h.movements.ListMovements(c.Request.Context(), c.Param("number"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, results)
}

// GenerateStatement
// GET /api/v1/reports?customerId=&from=&to=
func (h *LedgerHandler) GenerateStatement(c *gin.Context) {
	customerID, err := strconv.ParseInt(c.Query("customerId"), 10, 64)
	if err != nil {
		response.ParamError(c, "customerId must be an integer")
		return
	}
	from, err := parseTime(c.Query("from"), false)
	if err != nil {
		response.ParamError(c, "from must be YYYY-MM-DD or RFC3339")
		return
	}
	to, err := parseTime(c.Query("to"), true)
	if err != nil {
		response.ParamError(c, "to must be YYYY-MM-DD or RFC3339")
		return
	}

	statement, err := h.reports.GenerateStatement(c.Request.Context(), customerID, from, to)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, statement)
}

func (h *LedgerHandler) fail(c *gin.Context, err error) {
	writeError(c, h.log, err)
}

// writeError logs infrastructure failures with their cause; the response
// carries only a generic message.
func writeError(c *gin.Context, log *zap.Logger, err error) {
	_ = c.Error(err)
	if errs.KindOf(err) == errs.KindUnavailable {
		log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	response.FromError(c, err)
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.ParamError(c, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

// parseTime accepts a calendar date or an RFC3339 timestamp. A date used as
// the upper bound covers the whole day.
func parseTime(s string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Millisecond)
	}
	return t, nil
}
