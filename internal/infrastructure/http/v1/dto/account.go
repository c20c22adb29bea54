package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"ledgerd/internal/domain/ledger"
)

// --- Request DTOs ---

// CreateAccountRequest is the request body for opening an account.
type CreateAccountRequest struct {
	Name           string          `json:"name" binding:"required"`
	Currency       string          `json:"currency" binding:"required"`
	OpeningBalance decimal.Decimal `json:"openingBalance"`
}

// ToEntity converts DTO to domain entity.
func (r *CreateAccountRequest) ToEntity() *ledger.Account {
	return ledger.NewAccount(r.Name, r.Currency, r.OpeningBalance)
}

// RenameAccountRequest is the request body for renaming an account.
type RenameAccountRequest struct {
	Name string `json:"name" binding:"required"`
}

// ListAccountsRequest contains account listing filters.
type ListAccountsRequest struct {
	ListRequest

	Status   *string `form:"status" binding:"omitempty,oneof=active frozen closed"`
	Currency *string `form:"currency"`
}

// ToFilter converts the request to a domain filter.
func (r *ListAccountsRequest) ToFilter() ledger.AccountFilter {
	filter := ledger.AccountFilter{
		ListFilter: r.ListRequest.ToFilter(),
		Currency:   r.Currency,
	}
	if r.Status != nil {
		status := ledger.AccountStatus(*r.Status)
		filter.Status = &status
	}
	return filter
}

// --- Response DTOs ---

// AccountResponse is the response body for an account.
type AccountResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Currency  string          `json:"currency"`
	Balance   decimal.Decimal `json:"balance"`
	Status    string          `json:"status"`
	Version   int             `json:"version"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// FromAccount creates response DTO from domain entity.
func FromAccount(a *ledger.Account) *AccountResponse {
	return &AccountResponse{
		ID:        a.ID.String(),
		Name:      a.Name,
		Currency:  a.Currency,
		Balance:   a.Balance,
		Status:    string(a.Status),
		Version:   a.Version,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}
