package handler

import (
	"net/http"

	"corebank/internal/infrastructure/metrics"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RouterOptions struct {
	Mode        string
	MetricsPath string
}

func newEngine(m *metrics.Metrics, log *zap.Logger, opts RouterOptions) *gin.Engine {
	if opts.Mode != "" {
		gin.SetMode(opts.Mode)
	}

	r := gin.New()
	r.Use(RecoveryMiddleware(log))
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware())
	if m != nil {
		r.Use(m.GinMiddleware())
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(m.Handler()))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return r
}

// SetupLedgerRouter wires accounts, movements and statements.
func SetupLedgerRouter(h *LedgerHandler, m *metrics.Metrics, log *zap.Logger, opts RouterOptions) *gin.Engine {
	r := newEngine(m, log, opts)

	api := r.Group("/api/v1")
	{
		accounts := api.Group("/accounts")
		{
			accounts.POST("", h.OpenAccount)
			accounts.GET("", h.ListAccounts)
			accounts.GET("/:id", h.GetAccount)
			accounts.GET("/:id/balance", h.GetBalance)
			accounts.GET("/number/:number", h.GetAccountByNumber)
			accounts.GET("/customer/:customerId", h.ListCustomerAccounts)
			accounts.PUT("/:id", h.UpdateAccount)
			accounts.DELETE("/:id", h.DeactivateAccount)
		}

		movements := api.Group("/movements")
		{
			movements.POST("", h.PostMovement)
			movements.GET("/account/:number", h.ListMovements)
		}

		api.GET("/reports", h.GenerateStatement)
	}

	return r
}

// SetupRegistryRouter wires the customer registry.
func SetupRegistryRouter(h *CustomerHandler, m *metrics.Metrics, log *zap.Logger, opts RouterOptions) *gin.Engine {
	r := newEngine(m, log, opts)

	api := r.Group("/api/v1")
	{
		customers := api.Group("/customers")
		{
			customers.POST("", h.CreateCustomer)
			customers.GET("", h.ListCustomers)
			customers.GET("/:id", h.GetCustomer)
			customers.PUT("/:id", h.UpdateCustomer)
			customers.DELETE("/:id", h.DeactivateCustomer)
		}
	}

	return r
}
