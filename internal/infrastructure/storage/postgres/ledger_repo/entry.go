package ledger_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"ledgerd/internal/core/id"
	"ledgerd/internal/domain"
	"ledgerd/internal/domain/ledger"
	"ledgerd/internal/infrastructure/storage/postgres"
)

const entriesTable = "ledger_entries"

// EntryRepo implements ledger.EntryRepository. Entries are append-only.
type EntryRepo struct {
	baseRepo
}

var _ ledger.EntryRepository = (*EntryRepo)(nil)

// NewEntryRepo creates a new entry repository.
func NewEntryRepo(txManager *postgres.TxManager) *EntryRepo {
	return &EntryRepo{
		baseRepo: newBaseRepo(txManager, entriesTable, postgres.ExtractDBColumns[ledger.Entry]()),
	}
}

// CreateAll inserts all legs of a transfer in one statement.
func (r *EntryRepo) CreateAll(ctx context.Context, entries []ledger.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	q := r.Builder().
		Insert(entriesTable).
		Columns(
			"id", "transfer_id", "account_id", "direction",
			"currency", "amount", "balance_after", "created_at",
		)

	for _, e := range entries {
		q = q.Values(
			e.ID, e.TransferID, e.AccountID, e.Direction,
			e.Currency, e.Amount, e.BalanceAfter, e.CreatedAt,
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert entries: %w", err)
	}

	querier, err := r.querier(ctx)
	if err != nil {
		return err
	}
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert %s: %w", entriesTable, err)
	}

	return nil
}

// applyFilter narrows the query to the filter's conditions.
func (r *EntryRepo) applyFilter(q squirrel.SelectBuilder, filter ledger.EntryFilter) squirrel.SelectBuilder {
	if filter.Direction != nil {
		q = q.Where(squirrel.Eq{"direction": *filter.Direction})
	}

	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *filter.DateFrom})
	}

	if filter.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"created_at": *filter.DateTo})
	}

	return q
}

// ListByAccount retrieves entries posted against an account.
func (r *EntryRepo) ListByAccount(ctx context.Context, accountID id.ID, filter ledger.EntryFilter) (domain.ListResult[ledger.Entry], error) {
	result := domain.ListResult[ledger.Entry]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.applyFilter(r.baseSelect().Where(squirrel.Eq{"account_id": accountID}), filter)

	total, err := r.count(ctx, q)
	if err != nil {
		return result, err
	}
	result.TotalCount = total

	q, err = r.paginate(q, filter.ListFilter, "created_at DESC")
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
		return result, fmt.Errorf("list entries: %w", err)
	}

	return result, nil
}
