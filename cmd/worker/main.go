// Package main is the entry point for the ledgerd outbox relay worker.
// It drains the transactional outbox and publishes ledger events to NATS.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"ledgerd/internal/infrastructure/storage/postgres"
	"ledgerd/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(logger.WithLogger(context.Background(), log))
	defer cancel()

	log.Info("starting ledgerd worker")

	// --- Database ---
	db := postgres.NewDatabase(postgres.DefaultPoolConfig(mustEnv("DATABASE_URL")))
	if err := db.Connect(ctx); err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	txManager := postgres.NewTxManager(db)

	// --- NATS ---
	nc, err := nats.Connect(
		getEnv("NATS_URL", nats.DefaultURL),
		nats.Name("ledgerd-worker"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		log.Fatalw("failed to connect to NATS", "error", err)
	}
	defer nc.Drain()
	log.Infow("connected to NATS", "url", nc.ConnectedUrl())

	relay := postgres.NewOutboxRelay(
		txManager,
		getEnvInt("OUTBOX_BATCH_SIZE", 100),
		&natsPublisher{nc: nc, prefix: getEnv("NATS_SUBJECT_PREFIX", "ledger")},
	)

	worker := &relayWorker{
		relay:    relay,
		interval: getEnvDuration("OUTBOX_POLL_INTERVAL", 5*time.Second),
		log:      log.WithComponent("worker"),
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := db.Shutdown(shutdownCtx); err != nil {
		log.Errorw("database shutdown incomplete", "error", err)
	}

	log.Info("worker stopped")
}

// relayWorker polls the outbox on a fixed interval and periodically
// sweeps exhausted messages to the dead letter table.
type relayWorker struct {
	relay    *postgres.OutboxRelay
	interval time.Duration
	log      *logger.Logger
}

// Run processes batches until ctx is cancelled.
func (w *relayWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	sweep := time.NewTicker(time.Hour)
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			processed, err := w.relay.ProcessBatch(ctx)
			if err != nil {
				w.log.Errorw("outbox batch failed", "error", err)
				continue
			}
			if processed > 0 {
				w.log.Infow("outbox batch published", "count", processed)
			}

		case <-sweep.C:
			moved, err := w.relay.MoveToDLQ(ctx)
			if err != nil {
				w.log.Errorw("DLQ sweep failed", "error", err)
				continue
			}
			if moved > 0 {
				w.log.Warnw("messages moved to DLQ", "count", moved)
			}
		}
	}
}

// natsPublisher publishes outbox messages to per-event NATS subjects,
// e.g. ledger.transfer.TransferPosted.
type natsPublisher struct {
	nc     *nats.Conn
	prefix string
}

// Handle implements postgres.OutboxHandler.
func (p *natsPublisher) Handle(ctx context.Context, msg *postgres.OutboxMessage) error {
	subject := fmt.Sprintf("%s.%s.%s", p.prefix, msg.AggregateType, msg.EventType)

	m := nats.NewMsg(subject)
	m.Data = msg.Payload
	m.Header.Set("Message-Id", msg.ID.String())
	m.Header.Set("Aggregate-Id", msg.AggregateID.String())

	if err := p.nc.PublishMsg(m); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
