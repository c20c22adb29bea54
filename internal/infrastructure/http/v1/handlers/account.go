package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"ledgerd/internal/core/id"
	"ledgerd/internal/domain/ledger"
	"ledgerd/internal/infrastructure/http/v1/dto"
	"ledgerd/internal/infrastructure/storage/postgres"
)

// AccountHandler serves account endpoints.
type AccountHandler struct {
	*BaseHandler

	service *ledger.Service
	audit   *postgres.AuditLog
}

// NewAccountHandler creates a new account handler.
func NewAccountHandler(base *BaseHandler, service *ledger.Service, audit *postgres.AuditLog) *AccountHandler {
	return &AccountHandler{
		BaseHandler: base,
		service:     service,
		audit:       audit,
	}
}

// Create opens a new account.
// POST /api/v1/accounts
func (h *AccountHandler) Create(c *gin.Context) {
	var req dto.CreateAccountRequest
	if !h.BindJSON(c, &req) {
		return
	}

	account := req.ToEntity()
	if err := h.service.CreateAccount(c.Request.Context(), account); err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, account.ID)
}

// Get retrieves an account by ID.
// GET /api/v1/accounts/:id
func (h *AccountHandler) Get(c *gin.Context) {
	accountID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	account, err := h.service.GetAccount(c.Request.Context(), accountID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromAccount(account))
}

// List retrieves accounts with filtering.
// GET /api/v1/accounts
func (h *AccountHandler) List(c *gin.Context) {
	var req dto.ListAccountsRequest
	if !h.BindQuery(c, &req) {
		return
	}

	result, err := h.service.ListAccounts(c.Request.Context(), req.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.NewListResponse(result, dto.FromAccount))
}

// Rename changes the display name of an account.
// PUT /api/v1/accounts/:id/name
func (h *AccountHandler) Rename(c *gin.Context) {
	accountID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.RenameAccountRequest
	if !h.BindJSON(c, &req) {
		return
	}

	account, err := h.service.RenameAccount(c.Request.Context(), accountID, req.Name)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromAccount(account))
}

// Freeze suspends an active account.
// POST /api/v1/accounts/:id/freeze
func (h *AccountHandler) Freeze(c *gin.Context) {
	h.changeStatus(c, h.service.FreezeAccount)
}

// Unfreeze reactivates a frozen account.
// POST /api/v1/accounts/:id/unfreeze
func (h *AccountHandler) Unfreeze(c *gin.Context) {
	h.changeStatus(c, h.service.UnfreezeAccount)
}

// Close permanently closes an account.
// POST /api/v1/accounts/:id/close
func (h *AccountHandler) Close(c *gin.Context) {
	h.changeStatus(c, h.service.CloseAccount)
}

func (h *AccountHandler) changeStatus(c *gin.Context, op func(context.Context, id.ID) (*ledger.Account, error)) {
	accountID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	account, err := op(c.Request.Context(), accountID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromAccount(account))
}

// Entries retrieves the entry history of an account.
// GET /api/v1/accounts/:id/entries
func (h *AccountHandler) Entries(c *gin.Context) {
	accountID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.ListEntriesRequest
	if !h.BindQuery(c, &req) {
		return
	}

	result, err := h.service.ListEntries(c.Request.Context(), accountID, req.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.NewListResponse(result, dto.FromEntry))
}

// History retrieves the audited change log of an account.
// GET /api/v1/accounts/:id/history
func (h *AccountHandler) History(c *gin.Context) {
	accountID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.ListRequest
	if !h.BindQuery(c, &req) {
		return
	}
	limit := 50
	if req.Limit > 0 {
		limit = req.Limit
	}

	entries, err := h.audit.GetEntityHistory(c.Request.Context(), "account", accountID, limit)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.HistoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, dto.FromAuditEntry(e))
	}
	h.OK(c, dto.ListResponse{Items: items, TotalCount: int64(len(items)), Limit: limit})
}
