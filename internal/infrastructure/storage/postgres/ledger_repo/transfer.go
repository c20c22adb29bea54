package ledger_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"ledgerd/internal/core/apperror"
	"ledgerd/internal/core/id"
	"ledgerd/internal/domain"
	"ledgerd/internal/domain/ledger"
	"ledgerd/internal/infrastructure/storage/postgres"
)

const transfersTable = "ledger_transfers"

// pgUniqueViolation is the PostgreSQL error code for unique constraint violations.
const pgUniqueViolation = "23505"

// TransferRepo implements ledger.TransferRepository.
type TransferRepo struct {
	baseRepo
}

var _ ledger.TransferRepository = (*TransferRepo)(nil)

// NewTransferRepo creates a new transfer repository.
func NewTransferRepo(txManager *postgres.TxManager) *TransferRepo {
	return &TransferRepo{
		baseRepo: newBaseRepo(txManager, transfersTable, postgres.ExtractDBColumns[ledger.Transfer]()),
	}
}

// Create inserts a transfer. A reference collision surfaces as a
// duplicate error so retried requests don't post twice.
func (r *TransferRepo) Create(ctx context.Context, transfer *ledger.Transfer) error {
	q := r.Builder().
		Insert(transfersTable).
		Columns(
			"id", "reference", "from_account_id", "to_account_id",
			"currency", "amount", "description", "tx_id", "posted_at",
		).
		Values(
			transfer.ID, transfer.Reference, transfer.FromAccountID, transfer.ToAccountID,
			transfer.Currency, transfer.Amount, transfer.Description, transfer.TxID, transfer.PostedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier, err := r.querier(ctx)
	if err != nil {
		return err
	}
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return apperror.NewDuplicate("transfer", "reference", transfer.Reference)
		}
		return fmt.Errorf("insert %s: %w", transfersTable, err)
	}

	return nil
}

// GetByID retrieves a transfer by ID.
func (r *TransferRepo) GetByID(ctx context.Context, transferID id.ID) (*ledger.Transfer, error) {
	q := r.baseSelect().Where(squirrel.Eq{"id": transferID})
	return r.getOne(ctx, q, transferID.String())
}

// GetByReference retrieves a transfer by its idempotency key.
func (r *TransferRepo) GetByReference(ctx context.Context, reference string) (*ledger.Transfer, error) {
	q := r.baseSelect().Where(squirrel.Eq{"reference": reference})
	return r.getOne(ctx, q, reference)
}

func (r *TransferRepo) getOne(ctx context.Context, q squirrel.SelectBuilder, key string) (*ledger.Transfer, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	querier, err := r.querier(ctx)
	if err != nil {
		return nil, err
	}

	var transfer ledger.Transfer
	if err := pgxscan.Get(ctx, querier, &transfer, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("transfer", key)
		}
		return nil, fmt.Errorf("get transfer: %w", err)
	}

	return &transfer, nil
}

// applyFilter narrows the query to the filter's conditions.
func (r *TransferRepo) applyFilter(q squirrel.SelectBuilder, filter ledger.TransferFilter) squirrel.SelectBuilder {
	if len(filter.IDs) > 0 {
		q = q.Where(squirrel.Eq{"id": filter.IDs})
	}

	if filter.AccountID != nil {
		q = q.Where(squirrel.Or{
			squirrel.Eq{"from_account_id": *filter.AccountID},
			squirrel.Eq{"to_account_id": *filter.AccountID},
		})
	}

	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"posted_at": *filter.DateFrom})
	}

	if filter.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"posted_at": *filter.DateTo})
	}

	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"reference": searchPattern},
			squirrel.ILike{"description": searchPattern},
		})
	}

	return q
}

// List retrieves transfers with filtering and pagination.
func (r *TransferRepo) List(ctx context.Context, filter ledger.TransferFilter) (domain.ListResult[*ledger.Transfer], error) {
	result := domain.ListResult[*ledger.Transfer]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.applyFilter(r.baseSelect(), filter)

	total, err := r.count(ctx, q)
	if err != nil {
		return result, err
	}
	result.TotalCount = total

	q, err = r.paginate(q, filter.ListFilter, "posted_at DESC")
	if err != nil {
		return result, err
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	querier, err := r.querier(ctx)
	if err != nil {
		return result, err
	}
	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list transfers: %w", err)
	}

	return result, nil
}
