package ledger

import (
	"context"
	"time"

	"ledgerd/internal/core/id"
	"ledgerd/internal/domain"
)

// AccountRepository defines persistence operations for accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, accountID id.ID) (*Account, error)

	// GetForUpdate retrieves the account with a row lock. Must be
	// called inside a transaction.
	GetForUpdate(ctx context.Context, accountID id.ID) (*Account, error)

	// Update persists account changes with optimistic locking.
	Update(ctx context.Context, account *Account) error

	List(ctx context.Context, filter AccountFilter) (domain.ListResult[*Account], error)
}

// TransferRepository defines persistence operations for transfers.
// Transfers are append-only; there is no update or delete.
type TransferRepository interface {
	Create(ctx context.Context, transfer *Transfer) error
	GetByID(ctx context.Context, transferID id.ID) (*Transfer, error)
	GetByReference(ctx context.Context, reference string) (*Transfer, error)
	List(ctx context.Context, filter TransferFilter) (domain.ListResult[*Transfer], error)
}

// EntryRepository defines persistence operations for entry legs.
type EntryRepository interface {
	// CreateAll inserts all legs of a transfer in one statement.
	CreateAll(ctx context.Context, entries []Entry) error

	ListByAccount(ctx context.Context, accountID id.ID, filter EntryFilter) (domain.ListResult[Entry], error)
}

// AccountFilter narrows account listings.
type AccountFilter struct {
	domain.ListFilter

	Status   *AccountStatus
	Currency *string
}

// TransferFilter narrows transfer listings.
type TransferFilter struct {
	domain.ListFilter

	// AccountID matches transfers on either side.
	AccountID *id.ID
	DateFrom  *time.Time
	DateTo    *time.Time
}

// EntryFilter narrows entry listings for an account.
type EntryFilter struct {
	domain.ListFilter

	Direction *Direction
	DateFrom  *time.Time
	DateTo    *time.Time
}
