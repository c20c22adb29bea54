package ledger_repo

import (
	"testing"

	"github.com/Masterminds/squirrel"

	"ledgerd/internal/core/apperror"
	"ledgerd/internal/core/id"
	"ledgerd/internal/domain/ledger"
)

// Builder-level tests: no database, assertions run against the
// generated SQL. Repositories are constructed without a transaction
// manager because only the query builders are exercised.

func TestAccountRepo_ApplyFilter(t *testing.T) {
	repo := NewAccountRepo(nil)

	status := ledger.AccountFrozen
	currency := "EUR"

	tests := []struct {
		name     string
		filter   ledger.AccountFilter
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "ByStatus",
			filter:   ledger.AccountFilter{Status: &status},
			wantSQL:  "SELECT id, version, created_at, updated_at, name, currency, balance, status FROM ledger_accounts WHERE status = $1",
			wantArgs: []any{ledger.AccountFrozen},
		},
		{
			name:     "ByCurrency",
			filter:   ledger.AccountFilter{Currency: &currency},
			wantSQL:  "SELECT id, version, created_at, updated_at, name, currency, balance, status FROM ledger_accounts WHERE currency = $1",
			wantArgs: []any{"EUR"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := repo.applyFilter(repo.baseSelect(), tt.filter)

			sql, args, err := q.ToSql()
			if err != nil {
				t.Fatalf("ToSql failed: %v", err)
			}

			if sql != tt.wantSQL {
				t.Errorf("SQL mismatch\nwant: %s\ngot:  %s", tt.wantSQL, sql)
			}
			if len(args) != len(tt.wantArgs) {
				t.Fatalf("Args count mismatch\nwant: %d\ngot:  %d", len(tt.wantArgs), len(args))
			}
			if args[0] != tt.wantArgs[0] {
				t.Errorf("Args mismatch\nwant: %v\ngot:  %v", tt.wantArgs[0], args[0])
			}
		})
	}
}

func TestAccountRepo_SearchUsesILike(t *testing.T) {
	repo := NewAccountRepo(nil)

	filter := ledger.AccountFilter{}
	filter.Search = "savings"

	sql, args, err := repo.applyFilter(repo.baseSelect(), filter).ToSql()
	if err != nil {
		t.Fatalf("ToSql failed: %v", err)
	}

	want := "SELECT id, version, created_at, updated_at, name, currency, balance, status FROM ledger_accounts WHERE name ILIKE $1"
	if sql != want {
		t.Errorf("SQL mismatch\nwant: %s\ngot:  %s", want, sql)
	}
	if len(args) != 1 || args[0] != "%savings%" {
		t.Errorf("Args mismatch: %v", args)
	}
}

func TestTransferRepo_AccountFilterMatchesBothSides(t *testing.T) {
	repo := NewTransferRepo(nil)

	accountID := id.New()
	filter := ledger.TransferFilter{AccountID: &accountID}

	sql, args, err := repo.applyFilter(repo.baseSelect(), filter).ToSql()
	if err != nil {
		t.Fatalf("ToSql failed: %v", err)
	}

	want := "SELECT id, reference, from_account_id, to_account_id, currency, amount, description, tx_id, posted_at FROM ledger_transfers WHERE (from_account_id = $1 OR to_account_id = $2)"
	if sql != want {
		t.Errorf("SQL mismatch\nwant: %s\ngot:  %s", want, sql)
	}
	if len(args) != 2 || args[0] != accountID || args[1] != accountID {
		t.Errorf("Args mismatch: %v", args)
	}
}

func TestEntryRepo_ApplyFilter(t *testing.T) {
	repo := NewEntryRepo(nil)

	accountID := id.New()
	direction := ledger.Debit
	filter := ledger.EntryFilter{Direction: &direction}

	base := repo.baseSelect().Where(squirrel.Eq{"account_id": accountID})
	sql, args, err := repo.applyFilter(base, filter).ToSql()
	if err != nil {
		t.Fatalf("ToSql failed: %v", err)
	}

	want := "SELECT id, transfer_id, account_id, direction, currency, amount, balance_after, created_at FROM ledger_entries WHERE account_id = $1 AND direction = $2"
	if sql != want {
		t.Errorf("SQL mismatch\nwant: %s\ngot:  %s", want, sql)
	}
	if len(args) != 2 || args[1] != ledger.Debit {
		t.Errorf("Args mismatch: %v", args)
	}
}

func TestParseOrderBy(t *testing.T) {
	repo := NewTransferRepo(nil)

	tests := []struct {
		name    string
		orderBy string
		want    string
		wantErr bool
	}{
		{name: "Default", orderBy: "", want: "posted_at DESC"},
		{name: "Ascending", orderBy: "reference", want: "reference ASC"},
		{name: "ExplicitAscending", orderBy: "+amount", want: "amount ASC"},
		{name: "Descending", orderBy: "-posted_at", want: "posted_at DESC"},
		{name: "UnknownColumn", orderBy: "evil; DROP TABLE ledger_transfers", wantErr: true},
		{name: "BareDash", orderBy: "-", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.parseOrderBy(tt.orderBy, "posted_at DESC")
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.orderBy)
				}
				if !apperror.IsAppError(err) {
					t.Errorf("expected AppError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseOrderBy failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("orderBy mismatch\nwant: %s\ngot:  %s", tt.want, got)
			}
		})
	}
}
