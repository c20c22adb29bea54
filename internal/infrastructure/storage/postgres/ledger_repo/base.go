// Package ledger_repo provides PostgreSQL implementations for the
// ledger repositories. All statements resolve their executor through
// the transaction manager, so a repository call made inside a
// transaction runs on that transaction.
package ledger_repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"

	"ledgerd/internal/core/apperror"
	"ledgerd/internal/domain"
	"ledgerd/internal/infrastructure/storage/postgres"
)

// baseRepo carries what every ledger repository needs: the transaction
// manager that resolves the active querier and the table metadata used
// to build and validate queries.
type baseRepo struct {
	txManager  *postgres.TxManager
	tableName  string
	selectCols []string
}

func newBaseRepo(txManager *postgres.TxManager, tableName string, selectCols []string) baseRepo {
	return baseRepo{
		txManager:  txManager,
		tableName:  tableName,
		selectCols: selectCols,
	}
}

// Builder returns a new squirrel builder with PostgreSQL placeholders.
func (r baseRepo) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// baseSelect creates a SELECT builder over the repository's table.
func (r baseRepo) baseSelect() squirrel.SelectBuilder {
	return r.Builder().
		Select(r.selectCols...).
		From(r.tableName)
}

// querier resolves the statement executor for ctx: the active
// transaction when one is bound, the pool otherwise.
func (r baseRepo) querier(ctx context.Context) (postgres.Querier, error) {
	return r.txManager.GetQuerier(ctx)
}

// count runs COUNT(*) over the filtered query. Call before applying
// ordering and pagination.
func (r baseRepo) count(ctx context.Context, q squirrel.SelectBuilder) (int64, error) {
	countQ := r.Builder().Select("COUNT(*)").FromSelect(q, "sub")
	sql, args, err := countQ.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}

	querier, err := r.querier(ctx)
	if err != nil {
		return 0, err
	}

	var total int64
	if err := querier.QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count %s: %w", r.tableName, err)
	}
	return total, nil
}

// paginate applies ordering and paging from the common filter.
func (r baseRepo) paginate(q squirrel.SelectBuilder, filter domain.ListFilter, defaultOrder string) (squirrel.SelectBuilder, error) {
	orderBy, err := r.parseOrderBy(filter.OrderBy, defaultOrder)
	if err != nil {
		return q, err
	}
	q = q.OrderBy(orderBy)

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}
	return q, nil
}

// parseOrderBy validates a client-supplied sort field against the
// table's columns. "-field" sorts descending, "field" or "+field"
// ascending.
func (r baseRepo) parseOrderBy(orderBy, defaultOrder string) (string, error) {
	if strings.TrimSpace(orderBy) == "" {
		return defaultOrder, nil
	}

	direction := "ASC"
	field := orderBy
	if strings.HasPrefix(orderBy, "-") {
		direction = "DESC"
		field = strings.TrimPrefix(orderBy, "-")
	} else if strings.HasPrefix(orderBy, "+") {
		field = strings.TrimPrefix(orderBy, "+")
	}

	field = strings.TrimSpace(field)
	if field == "" {
		return "", apperror.NewValidation("invalid orderBy").WithDetail("orderBy", orderBy)
	}

	allowed := false
	for _, col := range r.selectCols {
		if col == field {
			allowed = true
			break
		}
	}
	if !allowed {
		return "", apperror.NewValidation("invalid orderBy").
			WithDetail("orderBy", orderBy).
			WithDetail("field", field)
	}

	return field + " " + direction, nil
}
