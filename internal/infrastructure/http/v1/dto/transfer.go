package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"ledgerd/internal/core/apperror"
	"ledgerd/internal/core/id"
	"ledgerd/internal/domain/ledger"
)

// --- Request DTOs ---

// CreateTransferRequest is the request body for posting a transfer.
type CreateTransferRequest struct {
	// Reference is the client idempotency key; generated when omitted.
	Reference     string          `json:"reference"`
	FromAccountID string          `json:"fromAccountId" binding:"required,uuid"`
	ToAccountID   string          `json:"toAccountId" binding:"required,uuid"`
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	Description   string          `json:"description"`
}

// ToInput converts DTO to a domain transfer input.
func (r *CreateTransferRequest) ToInput() (ledger.TransferInput, error) {
	from, err := id.Parse(r.FromAccountID)
	if err != nil {
		return ledger.TransferInput{}, apperror.NewValidation("invalid fromAccountId").
			WithDetail("field", "fromAccountId").
			WithDetail("value", r.FromAccountID)
	}

	to, err := id.Parse(r.ToAccountID)
	if err != nil {
		return ledger.TransferInput{}, apperror.NewValidation("invalid toAccountId").
			WithDetail("field", "toAccountId").
			WithDetail("value", r.ToAccountID)
	}

	return ledger.TransferInput{
		Reference:     r.Reference,
		FromAccountID: from,
		ToAccountID:   to,
		Amount:        r.Amount,
		Description:   r.Description,
	}, nil
}

// ListTransfersRequest contains transfer listing filters.
type ListTransfersRequest struct {
	ListRequest

	AccountID *string    `form:"accountId" binding:"omitempty,uuid"`
	DateFrom  *time.Time `form:"dateFrom" time_format:"2006-01-02T15:04:05Z07:00"`
	DateTo    *time.Time `form:"dateTo" time_format:"2006-01-02T15:04:05Z07:00"`
}

// ToFilter converts the request to a domain filter.
func (r *ListTransfersRequest) ToFilter() (ledger.TransferFilter, error) {
	filter := ledger.TransferFilter{
		ListFilter: r.ListRequest.ToFilter(),
		DateFrom:   r.DateFrom,
		DateTo:     r.DateTo,
	}
	if r.AccountID != nil {
		accountID, err := id.Parse(*r.AccountID)
		if err != nil {
			return filter, apperror.NewValidation("invalid accountId").
				WithDetail("field", "accountId").
				WithDetail("value", *r.AccountID)
		}
		filter.AccountID = &accountID
	}
	return filter, nil
}

// ListEntriesRequest contains entry listing filters for one account.
type ListEntriesRequest struct {
	ListRequest

	Direction *string    `form:"direction" binding:"omitempty,oneof=debit credit"`
	DateFrom  *time.Time `form:"dateFrom" time_format:"2006-01-02T15:04:05Z07:00"`
	DateTo    *time.Time `form:"dateTo" time_format:"2006-01-02T15:04:05Z07:00"`
}

// ToFilter converts the request to a domain filter.
func (r *ListEntriesRequest) ToFilter() ledger.EntryFilter {
	filter := ledger.EntryFilter{
		ListFilter: r.ListRequest.ToFilter(),
		DateFrom:   r.DateFrom,
		DateTo:     r.DateTo,
	}
	if r.Direction != nil {
		dir := ledger.Direction(*r.Direction)
		filter.Direction = &dir
	}
	return filter
}

// --- Response DTOs ---

// TransferResponse is the response body for a transfer.
type TransferResponse struct {
	ID            string          `json:"id"`
	Reference     string          `json:"reference"`
	FromAccountID string          `json:"fromAccountId"`
	ToAccountID   string          `json:"toAccountId"`
	Currency      string          `json:"currency"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description,omitempty"`
	TxID          string          `json:"txId"`
	PostedAt      time.Time       `json:"postedAt"`
}

// FromTransfer creates response DTO from domain entity.
func FromTransfer(t *ledger.Transfer) *TransferResponse {
	return &TransferResponse{
		ID:            t.ID.String(),
		Reference:     t.Reference,
		FromAccountID: t.FromAccountID.String(),
		ToAccountID:   t.ToAccountID.String(),
		Currency:      t.Currency,
		Amount:        t.Amount,
		Description:   t.Description,
		TxID:          t.TxID,
		PostedAt:      t.PostedAt,
	}
}

// EntryResponse is the response body for one entry leg.
type EntryResponse struct {
	ID           string          `json:"id"`
	TransferID   string          `json:"transferId"`
	AccountID    string          `json:"accountId"`
	Direction    string          `json:"direction"`
	Currency     string          `json:"currency"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balanceAfter"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// FromEntry creates response DTO from domain entity.
func FromEntry(e ledger.Entry) EntryResponse {
	return EntryResponse{
		ID:           e.ID.String(),
		TransferID:   e.TransferID.String(),
		AccountID:    e.AccountID.String(),
		Direction:    string(e.Direction),
		Currency:     e.Currency,
		Amount:       e.Amount,
		BalanceAfter: e.BalanceAfter,
		CreatedAt:    e.CreatedAt,
	}
}
