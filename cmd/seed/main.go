// Package main provides a CLI tool for seeding the database with demo
// ledger data through the real service stack.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"

	"ledgerd/internal/core/apperror"
	"ledgerd/internal/core/entity"
	"ledgerd/internal/domain/ledger"
	"ledgerd/internal/infrastructure/storage/postgres"
	"ledgerd/internal/infrastructure/storage/postgres/ledger_repo"
	"ledgerd/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := logger.WithLogger(context.Background(), log)

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	db := postgres.NewDatabase(postgres.DefaultPoolConfig(dbURL))
	if err := db.Connect(ctx); err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	log.Info("connected to database")

	txManager := postgres.NewTxManager(db)

	auditLog, err := postgres.NewAuditLog(txManager)
	if err != nil {
		log.Fatalw("failed to create audit log", "error", err)
	}

	accountRepo := ledger_repo.NewAccountRepo(txManager)
	service := ledger.NewService(
		accountRepo,
		ledger_repo.NewTransferRepo(txManager),
		ledger_repo.NewEntryRepo(txManager),
		txManager,
		auditLog,
		postgres.NewOutboxPublisher(txManager),
	)

	accounts, err := seedAccounts(ctx, service, getEnvInt("SEED_ACCOUNTS", 20))
	if err != nil {
		log.Fatalw("failed to seed accounts", "error", err)
	}
	log.Infow("accounts seeded", "count", len(accounts))

	if bulk := getEnvInt("SEED_BULK_ACCOUNTS", 0); bulk > 0 {
		if err := seedBulkAccounts(ctx, txManager, bulk); err != nil {
			log.Fatalw("failed to bulk-load accounts", "error", err)
		}
		log.Infow("bulk accounts loaded", "count", bulk)
	}

	transfers := getEnvInt("SEED_TRANSFERS", 50)
	posted, err := seedTransfers(ctx, service, accounts, transfers)
	if err != nil {
		log.Fatalw("failed to seed transfers", "error", err)
	}
	log.Infow("transfers seeded", "count", posted)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := db.Shutdown(shutdownCtx); err != nil {
		log.Warnw("database shutdown incomplete", "error", err)
	}

	log.Info("seed complete")
}

var currencies = []string{"USD", "EUR", "GBP"}

// seedAccounts opens accounts through the service so audit entries and
// outbox events are produced exactly as in production.
func seedAccounts(ctx context.Context, service *ledger.Service, count int) ([]*ledger.Account, error) {
	accounts := make([]*ledger.Account, 0, count)
	for i := 0; i < count; i++ {
		opening := decimal.NewFromInt(int64(gofakeit.Number(100, 100_000)))
		account := ledger.NewAccount(
			gofakeit.Company()+" "+gofakeit.NounAbstract(),
			currencies[i%len(currencies)],
			opening,
		)

		if err := service.CreateAccount(ctx, account); err != nil {
			return nil, fmt.Errorf("create account %q: %w", account.Name, err)
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

// seedBulkAccounts loads a large volume of accounts over the COPY
// protocol inside one transaction. Used for load testing; bypasses
// audit and outbox on purpose.
func seedBulkAccounts(ctx context.Context, txManager *postgres.TxManager, count int) error {
	inserter := postgres.NewBatchInserter(txManager)
	columns := postgres.ExtractDBColumns[ledger.Account]()

	return txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		rows := make([][]any, 0, count)
		for i := 0; i < count; i++ {
			base := entity.NewBase()
			rows = append(rows, []any{
				base.ID,
				base.Version,
				base.CreatedAt,
				base.UpdatedAt,
				gofakeit.Company() + " " + gofakeit.NounAbstract(),
				currencies[i%len(currencies)],
				decimal.NewFromInt(int64(gofakeit.Number(0, 10_000))),
				ledger.AccountActive,
			})
		}

		n, err := inserter.CopyFromSlice(ctx, "ledger_accounts", columns, rows)
		if err != nil {
			return fmt.Errorf("copy accounts: %w", err)
		}
		if n != int64(count) {
			return fmt.Errorf("copy accounts: loaded %d of %d", n, count)
		}
		return nil
	})
}

// seedTransfers posts random transfers between seeded accounts. Same-
// currency pairs only; failed postings (insufficient funds) are skipped.
func seedTransfers(ctx context.Context, service *ledger.Service, accounts []*ledger.Account, count int) (int, error) {
	byCurrency := make(map[string][]*ledger.Account)
	for _, a := range accounts {
		byCurrency[a.Currency] = append(byCurrency[a.Currency], a)
	}

	posted := 0
	for i := 0; i < count; i++ {
		pool := byCurrency[currencies[rand.Intn(len(currencies))]]
		if len(pool) < 2 {
			continue
		}

		from := pool[rand.Intn(len(pool))]
		to := pool[rand.Intn(len(pool))]
		if from.ID == to.ID {
			continue
		}

		_, err := service.Transfer(ctx, ledger.TransferInput{
			FromAccountID: from.ID,
			ToAccountID:   to.ID,
			Amount:        decimal.NewFromInt(int64(gofakeit.Number(1, 500))),
			Description:   gofakeit.Sentence(4),
		})
		if err != nil {
			if appErr, ok := apperror.AsAppError(err); ok && appErr.Code == apperror.CodeInsufficientFunds {
				continue
			}
			return posted, fmt.Errorf("post transfer: %w", err)
		}
		posted++
	}
	return posted, nil
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
