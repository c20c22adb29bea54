package ledger

import (
	"bytes"
	"context"
	"fmt"

	"ledgerd/internal/core/apperror"
	"ledgerd/internal/core/id"
	"ledgerd/internal/core/tx"
	"ledgerd/internal/domain"
	"ledgerd/pkg/logger"
)

// ChangeLogger records entity change history alongside ledger writes.
// Implemented by the audit log in infrastructure/storage/postgres.
type ChangeLogger interface {
	LogChange(ctx context.Context, entityType string, entityID id.ID, action string, changes map[string]any) error
}

// EventPublisher stages domain events on the transactional outbox.
// Implemented by the outbox publisher in infrastructure/storage/postgres.
type EventPublisher interface {
	Publish(ctx context.Context, aggregateType string, aggregateID id.ID, eventType string, payload any) error
}

// Service provides business operations for accounts and transfers.
// Every write runs inside a transaction owned by the service; audit
// entries and outbox events commit or roll back with the change they
// describe.
type Service struct {
	accounts  AccountRepository
	transfers TransferRepository
	entries   EntryRepository
	txManager tx.ReadOnlyManager
	audit     ChangeLogger
	events    EventPublisher
}

// NewService creates a new ledger service.
func NewService(
	accounts AccountRepository,
	transfers TransferRepository,
	entries EntryRepository,
	txManager tx.ReadOnlyManager,
	audit ChangeLogger,
	events EventPublisher,
) *Service {
	return &Service{
		accounts:  accounts,
		transfers: transfers,
		entries:   entries,
		txManager: txManager,
		audit:     audit,
		events:    events,
	}
}

// CreateAccount opens a new account.
func (s *Service) CreateAccount(ctx context.Context, account *Account) error {
	if err := account.Validate(ctx); err != nil {
		return err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.accounts.Create(ctx, account); err != nil {
			return fmt.Errorf("create account: %w", err)
		}

		if err := s.audit.LogChange(ctx, "account", account.ID, "create", map[string]any{
			"name":     account.Name,
			"currency": account.Currency,
			"balance":  account.Balance.String(),
		}); err != nil {
			return fmt.Errorf("audit account creation: %w", err)
		}

		return s.events.Publish(ctx, AggregateAccount, account.ID, EventAccountCreated, AccountCreatedEvent{
			AccountID: account.ID,
			Name:      account.Name,
			Currency:  account.Currency,
			Balance:   account.Balance.String(),
		})
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "account created", "id", account.ID, "name", account.Name, "currency", account.Currency)
	return nil
}

// GetAccount retrieves an account by ID.
func (s *Service) GetAccount(ctx context.Context, accountID id.ID) (*Account, error) {
	return s.accounts.GetByID(ctx, accountID)
}

// ListAccounts retrieves accounts with filtering.
func (s *Service) ListAccounts(ctx context.Context, filter AccountFilter) (domain.ListResult[*Account], error) {
	return s.accounts.List(ctx, filter)
}

// RenameAccount changes the display name of an account.
func (s *Service) RenameAccount(ctx context.Context, accountID id.ID, name string) (*Account, error) {
	var account *Account
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		account, err = s.accounts.GetForUpdate(ctx, accountID)
		if err != nil {
			return err
		}

		oldName := account.Name
		account.Name = name
		if err := account.Validate(ctx); err != nil {
			return err
		}

		account.Touch()
		if err := s.accounts.Update(ctx, account); err != nil {
			return fmt.Errorf("update account: %w", err)
		}

		return s.audit.LogChange(ctx, "account", account.ID, "update", map[string]any{
			"name": map[string]any{"old": oldName, "new": name},
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "account renamed", "id", accountID, "name", name)
	return account, nil
}

// FreezeAccount suspends an active account.
func (s *Service) FreezeAccount(ctx context.Context, accountID id.ID) (*Account, error) {
	return s.changeStatus(ctx, accountID, "freeze", (*Account).Freeze)
}

// UnfreezeAccount reactivates a frozen account.
func (s *Service) UnfreezeAccount(ctx context.Context, accountID id.ID) (*Account, error) {
	return s.changeStatus(ctx, accountID, "unfreeze", (*Account).Unfreeze)
}

// CloseAccount permanently closes an account with a zero balance.
func (s *Service) CloseAccount(ctx context.Context, accountID id.ID) (*Account, error) {
	return s.changeStatus(ctx, accountID, "close", (*Account).Close)
}

// changeStatus applies a status transition under a row lock.
func (s *Service) changeStatus(ctx context.Context, accountID id.ID, action string, transition func(*Account) error) (*Account, error) {
	var account *Account
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		account, err = s.accounts.GetForUpdate(ctx, accountID)
		if err != nil {
			return err
		}

		oldStatus := account.Status
		if err := transition(account); err != nil {
			return err
		}

		account.Touch()
		if err := s.accounts.Update(ctx, account); err != nil {
			return fmt.Errorf("update account: %w", err)
		}

		if err := s.audit.LogChange(ctx, "account", account.ID, action, map[string]any{
			"status": map[string]any{"old": string(oldStatus), "new": string(account.Status)},
		}); err != nil {
			return fmt.Errorf("audit status change: %w", err)
		}

		return s.events.Publish(ctx, AggregateAccount, account.ID, EventAccountStatusChanged, AccountStatusChangedEvent{
			AccountID: account.ID,
			OldStatus: string(oldStatus),
			NewStatus: string(account.Status),
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "account status changed", "id", accountID, "status", account.Status)
	return account, nil
}

// Transfer atomically moves money between two accounts. The transfer
// row, both entry legs, both balance updates, the audit entry and the
// outbox event all commit together or not at all.
func (s *Service) Transfer(ctx context.Context, in TransferInput) (*Transfer, error) {
	if err := in.Validate(ctx); err != nil {
		return nil, err
	}

	var transfer *Transfer
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		from, to, err := s.lockAccountPair(ctx, in.FromAccountID, in.ToAccountID)
		if err != nil {
			return err
		}

		if err := from.CanTransact(); err != nil {
			return err
		}
		if err := to.CanTransact(); err != nil {
			return err
		}

		if from.Currency != to.Currency {
			return apperror.NewCurrencyMismatch(from.Currency, to.Currency)
		}

		if from.Balance.LessThan(in.Amount) {
			return apperror.NewInsufficientFunds(from.ID.String(), in.Amount.String(), from.Balance.String())
		}

		transfer = NewTransfer(in, from.Currency)
		transfer.TxID = tx.GetID(ctx)

		if err := s.transfers.Create(ctx, transfer); err != nil {
			return fmt.Errorf("create transfer: %w", err)
		}

		fromBalance := from.Balance.Sub(in.Amount)
		toBalance := to.Balance.Add(in.Amount)

		if err := s.postEntries(ctx, []Entry{
			NewEntry(transfer.ID, from.ID, Debit, transfer.Currency, in.Amount, fromBalance),
			NewEntry(transfer.ID, to.ID, Credit, transfer.Currency, in.Amount, toBalance),
		}); err != nil {
			return fmt.Errorf("post entries: %w", err)
		}

		from.Balance = fromBalance
		from.Touch()
		if err := s.accounts.Update(ctx, from); err != nil {
			return fmt.Errorf("debit account: %w", err)
		}

		to.Balance = toBalance
		to.Touch()
		if err := s.accounts.Update(ctx, to); err != nil {
			return fmt.Errorf("credit account: %w", err)
		}

		if err := s.audit.LogChange(ctx, "transfer", transfer.ID, "transfer", map[string]any{
			"reference":       transfer.Reference,
			"from_account_id": transfer.FromAccountID.String(),
			"to_account_id":   transfer.ToAccountID.String(),
			"currency":        transfer.Currency,
			"amount":          transfer.Amount.String(),
		}); err != nil {
			return fmt.Errorf("audit transfer: %w", err)
		}

		return s.events.Publish(ctx, AggregateTransfer, transfer.ID, EventTransferPosted, TransferPostedEvent{
			TransferID:    transfer.ID,
			Reference:     transfer.Reference,
			FromAccountID: transfer.FromAccountID,
			ToAccountID:   transfer.ToAccountID,
			Currency:      transfer.Currency,
			Amount:        transfer.Amount.String(),
			TxID:          transfer.TxID,
			PostedAt:      transfer.PostedAt,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "transfer posted",
		"id", transfer.ID,
		"reference", transfer.Reference,
		"from", transfer.FromAccountID,
		"to", transfer.ToAccountID,
		"amount", transfer.Amount.String(),
		"currency", transfer.Currency,
	)
	return transfer, nil
}

// postEntries writes all legs of a transfer as one transactional unit.
// Called from Transfer it joins the ambient transaction; the legs land
// in the same native transaction as the transfer row itself.
func (s *Service) postEntries(ctx context.Context, entries []Entry) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.entries.CreateAll(ctx, entries)
	})
}

// lockAccountPair loads both accounts with row locks, always locking
// in ascending id order so opposite transfers between the same pair
// cannot deadlock.
func (s *Service) lockAccountPair(ctx context.Context, fromID, toID id.ID) (*Account, *Account, error) {
	first, second := fromID, toID
	swapped := false
	if bytes.Compare(second[:], first[:]) < 0 {
		first, second = second, first
		swapped = true
	}

	a, err := s.accounts.GetForUpdate(ctx, first)
	if err != nil {
		return nil, nil, err
	}
	b, err := s.accounts.GetForUpdate(ctx, second)
	if err != nil {
		return nil, nil, err
	}

	if swapped {
		return b, a, nil
	}
	return a, b, nil
}

// GetTransfer retrieves a transfer by ID.
func (s *Service) GetTransfer(ctx context.Context, transferID id.ID) (*Transfer, error) {
	return s.transfers.GetByID(ctx, transferID)
}

// GetTransferByReference retrieves a transfer by its idempotency key.
func (s *Service) GetTransferByReference(ctx context.Context, reference string) (*Transfer, error) {
	return s.transfers.GetByReference(ctx, reference)
}

// ListTransfers retrieves transfers with filtering.
func (s *Service) ListTransfers(ctx context.Context, filter TransferFilter) (domain.ListResult[*Transfer], error) {
	return s.transfers.List(ctx, filter)
}

// ListEntries retrieves the entry history of an account. The existence
// check and the page read share one read-only transaction so they see
// a consistent snapshot.
func (s *Service) ListEntries(ctx context.Context, accountID id.ID, filter EntryFilter) (domain.ListResult[Entry], error) {
	var result domain.ListResult[Entry]
	err := s.txManager.ReadOnly(ctx, func(ctx context.Context) error {
		if _, err := s.accounts.GetByID(ctx, accountID); err != nil {
			return err
		}

		var err error
		result, err = s.entries.ListByAccount(ctx, accountID, filter)
		return err
	})
	return result, err
}
