package v1

import (
	"github.com/gin-gonic/gin"

	"ledgerd/internal/domain/ledger"
	"ledgerd/internal/infrastructure/http/v1/handlers"
	"ledgerd/internal/infrastructure/http/v1/middleware"
	"ledgerd/internal/infrastructure/storage/postgres"
	"ledgerd/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// Database is the process-wide store handle, used by health checks.
	Database *postgres.Database

	// TxManager backs the ambient-transaction middleware on transfer routes.
	TxManager *postgres.TxManager

	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// LedgerService serves account and transfer operations.
	LedgerService *ledger.Service

	// AuditLog serves entity change history.
	AuditLog *postgres.AuditLog
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth required)
	healthHandler := handlers.NewHealthHandler(cfg.Database)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	// API v1 (bearer token required)
	v1 := router.Group("/api/v1")
	v1.Use(middleware.Auth(cfg.JWTValidator))
	{
		baseHandler := handlers.NewBaseHandler()

		accountHandler := handlers.NewAccountHandler(baseHandler, cfg.LedgerService, cfg.AuditLog)
		RegisterAccountRoutes(v1.Group("/accounts"), accountHandler)

		transferHandler := handlers.NewTransferHandler(baseHandler, cfg.LedgerService)
		RegisterTransferRoutes(v1.Group("/transfers"), transferHandler, middleware.Transactional(cfg.TxManager))
	}

	return router
}
