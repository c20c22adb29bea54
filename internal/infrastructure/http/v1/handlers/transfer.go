package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ledgerd/internal/domain/ledger"
	"ledgerd/internal/infrastructure/http/v1/dto"
)

// TransferHandler serves transfer endpoints.
type TransferHandler struct {
	*BaseHandler

	service *ledger.Service
}

// NewTransferHandler creates a new transfer handler.
func NewTransferHandler(base *BaseHandler, service *ledger.Service) *TransferHandler {
	return &TransferHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Create posts a transfer between two accounts.
// POST /api/v1/transfers
func (h *TransferHandler) Create(c *gin.Context) {
	var req dto.CreateTransferRequest
	if !h.BindJSON(c, &req) {
		return
	}

	input, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	transfer, err := h.service.Transfer(c.Request.Context(), input)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromTransfer(transfer))
}

// Get retrieves a transfer by ID.
// GET /api/v1/transfers/:id
func (h *TransferHandler) Get(c *gin.Context) {
	transferID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	transfer, err := h.service.GetTransfer(c.Request.Context(), transferID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromTransfer(transfer))
}

// GetByReference retrieves a transfer by its client reference.
// GET /api/v1/transfers/reference/:reference
func (h *TransferHandler) GetByReference(c *gin.Context) {
	transfer, err := h.service.GetTransferByReference(c.Request.Context(), c.Param("reference"))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromTransfer(transfer))
}

// List retrieves transfers with filtering.
// GET /api/v1/transfers
func (h *TransferHandler) List(c *gin.Context) {
	var req dto.ListTransfersRequest
	if !h.BindQuery(c, &req) {
		return
	}

	filter, err := req.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.service.ListTransfers(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.NewListResponse(result, dto.FromTransfer))
}
