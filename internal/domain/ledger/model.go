// Package ledger provides the double-entry ledger domain: accounts,
// transfers between them, and the entry legs every transfer posts.
package ledger

import (
	"context"
	"strings"
	"time"

	"ledgerd/internal/core/apperror"
	"ledgerd/internal/core/entity"
	"ledgerd/internal/core/id"
	"ledgerd/internal/core/types"
)

// AccountStatus is the lifecycle state of an account.
type AccountStatus string

const (
	AccountActive AccountStatus = "active"
	AccountFrozen AccountStatus = "frozen"
	AccountClosed AccountStatus = "closed"
)

// Account is a ledger account holding a balance in a single currency.
type Account struct {
	entity.Base

	Name     string        `db:"name" json:"name"`
	Currency string        `db:"currency" json:"currency"`
	Balance  types.Money   `db:"balance" json:"balance"`
	Status   AccountStatus `db:"status" json:"status"`
}

// NewAccount creates an active account with the given opening balance.
func NewAccount(name, currency string, opening types.Money) *Account {
	return &Account{
		Base:     entity.NewBase(),
		Name:     name,
		Currency: strings.ToUpper(strings.TrimSpace(currency)),
		Balance:  opening,
		Status:   AccountActive,
	}
}

// Validate implements entity.Validatable.
func (a *Account) Validate(ctx context.Context) error {
	if strings.TrimSpace(a.Name) == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}

	if len(a.Name) > 255 {
		return apperror.NewValidation("name is too long").
			WithDetail("field", "name").
			WithDetail("maxLength", 255)
	}

	if !ValidCurrency(a.Currency) {
		return apperror.NewValidation("currency must be a 3-letter ISO 4217 code").
			WithDetail("field", "currency").
			WithDetail("value", a.Currency)
	}

	if a.Balance.IsNegative() {
		return apperror.NewValidation("balance cannot be negative").
			WithDetail("field", "balance").
			WithDetail("value", a.Balance.String())
	}

	switch a.Status {
	case AccountActive, AccountFrozen, AccountClosed:
	default:
		return apperror.NewValidation("unknown account status").
			WithDetail("field", "status").
			WithDetail("value", string(a.Status))
	}

	return nil
}

// CanTransact reports whether the account accepts postings.
func (a *Account) CanTransact() error {
	if a.Status != AccountActive {
		return apperror.NewAccountInactive(a.ID.String(), string(a.Status))
	}
	return nil
}

// Freeze suspends an active account.
func (a *Account) Freeze() error {
	if a.Status != AccountActive {
		return apperror.NewBusinessRule(apperror.CodeBusinessRule, "only active accounts can be frozen").
			WithDetail("account_id", a.ID.String()).
			WithDetail("status", string(a.Status))
	}
	a.Status = AccountFrozen
	return nil
}

// Unfreeze reactivates a frozen account.
func (a *Account) Unfreeze() error {
	if a.Status != AccountFrozen {
		return apperror.NewBusinessRule(apperror.CodeBusinessRule, "only frozen accounts can be unfrozen").
			WithDetail("account_id", a.ID.String()).
			WithDetail("status", string(a.Status))
	}
	a.Status = AccountActive
	return nil
}

// Close permanently closes the account. The balance must be zero.
func (a *Account) Close() error {
	if a.Status == AccountClosed {
		return apperror.NewBusinessRule(apperror.CodeBusinessRule, "account is already closed").
			WithDetail("account_id", a.ID.String())
	}
	if !a.Balance.IsZero() {
		return apperror.NewBusinessRule(apperror.CodeBusinessRule, "account balance must be zero to close").
			WithDetail("account_id", a.ID.String()).
			WithDetail("balance", a.Balance.String())
	}
	a.Status = AccountClosed
	return nil
}

// ValidCurrency reports whether code is a plausible ISO 4217 currency code.
func ValidCurrency(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// TransferInput describes a requested transfer between two accounts.
type TransferInput struct {
	// Reference is the client-supplied idempotency key. Generated when empty.
	Reference     string
	FromAccountID id.ID
	ToAccountID   id.ID
	Amount        types.Money
	Description   string
}

// Validate checks the request invariants that need no database access.
func (in TransferInput) Validate(ctx context.Context) error {
	if id.IsNil(in.FromAccountID) {
		return apperror.NewValidation("source account is required").
			WithDetail("field", "fromAccountId")
	}

	if id.IsNil(in.ToAccountID) {
		return apperror.NewValidation("destination account is required").
			WithDetail("field", "toAccountId")
	}

	if in.FromAccountID == in.ToAccountID {
		return apperror.NewValidation("cannot transfer to the same account").
			WithDetail("field", "toAccountId")
	}

	if !in.Amount.IsPositive() {
		return apperror.NewValidation("amount must be positive").
			WithDetail("field", "amount").
			WithDetail("value", in.Amount.String())
	}

	return nil
}

// Transfer is a posted movement of money between two accounts.
// Transfers are immutable once written; there is no update path.
type Transfer struct {
	ID            id.ID       `db:"id" json:"id"`
	Reference     string      `db:"reference" json:"reference"`
	FromAccountID id.ID       `db:"from_account_id" json:"fromAccountId"`
	ToAccountID   id.ID       `db:"to_account_id" json:"toAccountId"`
	Currency      string      `db:"currency" json:"currency"`
	Amount        types.Money `db:"amount" json:"amount"`
	Description   string      `db:"description" json:"description,omitempty"`

	// TxID is the correlation id of the database transaction that
	// posted this transfer. Links the row to audit entries and logs.
	TxID string `db:"tx_id" json:"txId"`

	PostedAt time.Time `db:"posted_at" json:"postedAt"`
}

// NewTransfer builds a transfer from a validated input.
func NewTransfer(in TransferInput, currency string) *Transfer {
	ref := in.Reference
	if ref == "" {
		ref = id.New().String()
	}
	return &Transfer{
		ID:            id.New(),
		Reference:     ref,
		FromAccountID: in.FromAccountID,
		ToAccountID:   in.ToAccountID,
		Currency:      currency,
		Amount:        in.Amount,
		Description:   in.Description,
		PostedAt:      time.Now().UTC(),
	}
}

// Direction marks which side of a transfer an entry records.
type Direction string

const (
	Debit  Direction = "debit"
	Credit Direction = "credit"
)

// Entry is one leg of a transfer. Every transfer posts exactly two:
// a debit against the source account and a credit to the destination.
type Entry struct {
	ID           id.ID       `db:"id" json:"id"`
	TransferID   id.ID       `db:"transfer_id" json:"transferId"`
	AccountID    id.ID       `db:"account_id" json:"accountId"`
	Direction    Direction   `db:"direction" json:"direction"`
	Currency     string      `db:"currency" json:"currency"`
	Amount       types.Money `db:"amount" json:"amount"`
	BalanceAfter types.Money `db:"balance_after" json:"balanceAfter"`
	CreatedAt    time.Time   `db:"created_at" json:"createdAt"`
}

// NewEntry creates one leg of a transfer.
func NewEntry(transferID, accountID id.ID, dir Direction, currency string, amount, balanceAfter types.Money) Entry {
	return Entry{
		ID:           id.New(),
		TransferID:   transferID,
		AccountID:    accountID,
		Direction:    dir,
		Currency:     currency,
		Amount:       amount,
		BalanceAfter: balanceAfter,
		CreatedAt:    time.Now().UTC(),
	}
}
