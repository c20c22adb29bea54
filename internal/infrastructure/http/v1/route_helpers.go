// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"ledgerd/internal/infrastructure/http/v1/middleware"
)

// AccountRouteHandler defines the interface for account handlers.
type AccountRouteHandler interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
	Rename(c *gin.Context)
	Freeze(c *gin.Context)
	Unfreeze(c *gin.Context)
	Close(c *gin.Context)
	Entries(c *gin.Context)
	History(c *gin.Context)
}

// TransferRouteHandler defines the interface for transfer handlers.
type TransferRouteHandler interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
	GetByReference(c *gin.Context)
}

// RegisterAccountRoutes registers the account endpoints on a group.
// Read endpoints require the read role, mutations the write role;
// admins pass either check.
func RegisterAccountRoutes(group *gin.RouterGroup, handler AccountRouteHandler) {
	group.GET("", middleware.RequireRole(RoleLedgerRead), handler.List)
	group.POST("", middleware.RequireRole(RoleLedgerWrite), handler.Create)
	group.GET("/:id", middleware.RequireRole(RoleLedgerRead), handler.Get)
	group.PUT("/:id/name", middleware.RequireRole(RoleLedgerWrite), handler.Rename)
	group.POST("/:id/freeze", middleware.RequireRole(RoleLedgerWrite), handler.Freeze)
	group.POST("/:id/unfreeze", middleware.RequireRole(RoleLedgerWrite), handler.Unfreeze)
	group.POST("/:id/close", middleware.RequireRole(RoleLedgerWrite), handler.Close)
	group.GET("/:id/entries", middleware.RequireRole(RoleLedgerRead), handler.Entries)
	group.GET("/:id/history", middleware.RequireRole(RoleLedgerRead), handler.History)
}

// RegisterTransferRoutes registers the transfer endpoints on a group.
// The create route additionally runs under txWrap, so the whole request
// executes inside one ambient transaction that the service joins.
func RegisterTransferRoutes(group *gin.RouterGroup, handler TransferRouteHandler, txWrap gin.HandlerFunc) {
	group.GET("", middleware.RequireRole(RoleLedgerRead), handler.List)
	group.POST("", middleware.RequireRole(RoleLedgerWrite), txWrap, handler.Create)
	group.GET("/:id", middleware.RequireRole(RoleLedgerRead), handler.Get)
	group.GET("/reference/:reference", middleware.RequireRole(RoleLedgerRead), handler.GetByReference)
}

// Roles understood by the API. Token issuers grant them per user.
const (
	RoleLedgerRead  = "ledger:read"
	RoleLedgerWrite = "ledger:write"
)
