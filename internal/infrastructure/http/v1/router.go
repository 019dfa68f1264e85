// Package v1 provides HTTP API version 1.
package v1

import (
	"time"

	"github.com/gin-gonic/gin"

	"pharmaledger/internal/app"
	"pharmaledger/internal/infrastructure/http/v1/handlers"
	"pharmaledger/internal/infrastructure/http/v1/middleware"
	"pharmaledger/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Services is the assembled ledger
	Services *app.Services

	// Logger for request logging
	Logger *logger.Logger

	// Idempotency guards the POST endpoints when set
	Idempotency middleware.IdempotencyStore

	// HealthChecks are probed by /health/ready (database, redis)
	HealthChecks map[string]handlers.Check

	// Version is reported by /health
	Version string

	// Now is the clock used for default report dates
	Now func() time.Time
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Recovery())

	healthHandler := handlers.NewHealthHandler(cfg.Version, cfg.HealthChecks)
	router.GET("/health", healthHandler.Ready)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	v1 := router.Group("/api/v1")
	if cfg.Idempotency != nil {
		v1.Use(middleware.Idempotency(cfg.Idempotency))
	}

	base := handlers.NewBaseHandler()
	svc := cfg.Services

	registerTransactionRoutes(v1, handlers.NewTransactionHandler(base, svc.Posting))
	registerPaymentRoutes(v1, handlers.NewPaymentHandler(base, svc.Posting))
	registerVoucherRoutes(v1, handlers.NewVoucherHandler(base, svc.Ledger))
	registerAccountRoutes(v1, handlers.NewAccountHandler(base, svc.Chart, svc.Reports))
	registerReportRoutes(v1, handlers.NewReportsHandler(base, svc.Reports, cfg.Now))

	return router
}

func registerPaymentRoutes(rg *gin.RouterGroup, h *handlers.PaymentHandler) {
	payments := rg.Group("/payments")
	payments.POST("", h.Create)
	payments.POST("/:id/void", h.Void)
}

func registerVoucherRoutes(rg *gin.RouterGroup, h *handlers.VoucherHandler) {
	vouchers := rg.Group("/vouchers")
	vouchers.GET("", h.List)
	vouchers.POST("", h.Post)
	vouchers.GET("/:id", h.Get)
	vouchers.POST("/:id/reverse", h.Reverse)
}

func registerAccountRoutes(rg *gin.RouterGroup, h *handlers.AccountHandler) {
	accounts := rg.Group("/accounts")
	accounts.GET("", h.List)
	accounts.GET("/:id/balance", h.Balance)
	accounts.GET("/:id/ledger", h.Ledger)
}

func registerReportRoutes(rg *gin.RouterGroup, h *handlers.ReportsHandler) {
	reportsGroup := rg.Group("/reports")
	reportsGroup.GET("/trial-balance", h.TrialBalance)
	reportsGroup.GET("/aging", h.Aging)
}
