// Package main is the entry point for the ledgerd API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ledgerd/internal/core/security"
	"ledgerd/internal/domain/ledger"
	v1 "ledgerd/internal/infrastructure/http/v1"
	"ledgerd/internal/infrastructure/storage/postgres"
	"ledgerd/internal/infrastructure/storage/postgres/ledger_repo"
	"ledgerd/pkg/logger"
)

func main() {
	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := logger.WithLogger(context.Background(), log)
	log.Info("starting ledgerd server")

	// --- Database ---
	// Connect completes before anything can resolve a handle; resolver
	// reads in the uninitialized state are hard errors, never worked
	// around with a second pool.
	poolCfg := postgres.DefaultPoolConfig(mustEnv("DATABASE_URL"))
	if maxConns := getEnvInt("DB_MAX_CONNS", 0); maxConns > 0 {
		poolCfg.MaxConns = int32(maxConns)
	}
	if minConns := getEnvInt("DB_MIN_CONNS", 0); minConns > 0 {
		poolCfg.MinConns = int32(minConns)
	}

	db := postgres.NewDatabase(poolCfg)
	if err := db.Connect(ctx); err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	log.Info("database connection established")

	// --- Transaction manager and transactional collaborators ---
	txManager := postgres.NewTxManager(db)

	auditLog, err := postgres.NewAuditLog(txManager)
	if err != nil {
		log.Fatalw("failed to create audit log", "error", err)
	}

	outbox := postgres.NewOutboxPublisher(txManager)

	// --- Ledger domain ---
	accountRepo := ledger_repo.NewAccountRepo(txManager)
	transferRepo := ledger_repo.NewTransferRepo(txManager)
	entryRepo := ledger_repo.NewEntryRepo(txManager)

	ledgerService := ledger.NewService(
		accountRepo,
		transferRepo,
		entryRepo,
		txManager,
		auditLog,
		outbox,
	)

	// --- Token validation ---
	tokenService := security.NewTokenService(
		security.DefaultConfig(getEnv("JWT_SECRET", "your-secret-key-change-in-production")),
	)

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Database:      db,
		TxManager:     txManager,
		Logger:        log,
		JWTValidator:  tokenService,
		LedgerService: ledgerService,
		AuditLog:      auditLog,
	})

	// --- HTTP Server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Stop accepting requests first, then drain the database: in-flight
	// root transactions get to finish before the pool closes.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	if err := db.Shutdown(shutdownCtx); err != nil {
		log.Errorw("database shutdown incomplete", "error", err)
	}

	log.Info("server stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
