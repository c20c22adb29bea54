package ledger_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"ledgerd/internal/core/apperror"
	"ledgerd/internal/core/id"
	"ledgerd/internal/domain"
	"ledgerd/internal/domain/ledger"
	"ledgerd/internal/infrastructure/storage/postgres"
)

const accountsTable = "ledger_accounts"

// AccountRepo implements ledger.AccountRepository.
type AccountRepo struct {
	baseRepo
}

var _ ledger.AccountRepository = (*AccountRepo)(nil)

// NewAccountRepo creates a new account repository.
func NewAccountRepo(txManager *postgres.TxManager) *AccountRepo {
	return &AccountRepo{
		baseRepo: newBaseRepo(txManager, accountsTable, postgres.ExtractDBColumns[ledger.Account]()),
	}
}

// Create inserts a new account.
func (r *AccountRepo) Create(ctx context.Context, account *ledger.Account) error {
	data := postgres.StructToMap(account)
	if len(data) == 0 {
		return fmt.Errorf("no db tags found in account")
	}

	q := r.Builder().
		Insert(accountsTable).
		SetMap(data)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier, err := r.querier(ctx)
	if err != nil {
		return err
	}
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert %s: %w", accountsTable, err)
	}

	return nil
}

// GetByID retrieves an account by ID.
func (r *AccountRepo) GetByID(ctx context.Context, accountID id.ID) (*ledger.Account, error) {
	return r.getOne(ctx, r.baseSelect().Where(squirrel.Eq{"id": accountID}), accountID)
}

// GetForUpdate retrieves an account with a row lock. Must be called
// inside a transaction; the lock is released when it resolves.
func (r *AccountRepo) GetForUpdate(ctx context.Context, accountID id.ID) (*ledger.Account, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"id": accountID}).
		Suffix("FOR UPDATE")
	return r.getOne(ctx, q, accountID)
}

func (r *AccountRepo) getOne(ctx context.Context, q squirrel.SelectBuilder, accountID id.ID) (*ledger.Account, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	querier, err := r.querier(ctx)
	if err != nil {
		return nil, err
	}

	var account ledger.Account
	if err := pgxscan.Get(ctx, querier, &account, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("account", accountID.String())
		}
		return nil, fmt.Errorf("get account: %w", err)
	}

	return &account, nil
}

// Update persists account changes with optimistic locking. The caller
// advances the version via Touch before calling; the previous version
// guards the write.
func (r *AccountRepo) Update(ctx context.Context, account *ledger.Account) error {
	q := r.Builder().
		Update(accountsTable).
		Set("name", account.Name).
		Set("balance", account.Balance).
		Set("status", account.Status).
		Set("version", account.Version).
		Set("updated_at", account.UpdatedAt).
		Where(squirrel.Eq{"id": account.ID}).
		Where(squirrel.Eq{"version": account.Version - 1})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier, err := r.querier(ctx)
	if err != nil {
		return err
	}
	result, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", accountsTable, err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("account", account.ID)
	}

	return nil
}

// applyFilter narrows the query to the filter's conditions.
func (r *AccountRepo) applyFilter(q squirrel.SelectBuilder, filter ledger.AccountFilter) squirrel.SelectBuilder {
	if len(filter.IDs) > 0 {
		q = q.Where(squirrel.Eq{"id": filter.IDs})
	}

	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}

	if filter.Currency != nil {
		q = q.Where(squirrel.Eq{"currency": *filter.Currency})
	}

	if filter.Search != "" {
		q = q.Where(squirrel.ILike{"name": "%" + filter.Search + "%"})
	}

	return q
}

// List retrieves accounts with filtering and pagination.
func (r *AccountRepo) List(ctx context.Context, filter ledger.AccountFilter) (domain.ListResult[*ledger.Account], error) {
	result := domain.ListResult[*ledger.Account]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.applyFilter(r.baseSelect(), filter)

	total, err := r.count(ctx, q)
	if err != nil {
		return result, err
	}
	result.TotalCount = total

	q, err = r.paginate(q, filter.ListFilter, "name ASC")
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
		return result, fmt.Errorf("list accounts: %w", err)
	}

	return result, nil
}
