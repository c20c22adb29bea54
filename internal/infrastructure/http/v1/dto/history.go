package dto

import (
	"encoding/json"
	"time"

	"ledgerd/internal/infrastructure/storage/postgres"
)

// HistoryEntryResponse is one audited change of an entity.
type HistoryEntryResponse struct {
	ID        string          `json:"id"`
	Action    string          `json:"action"`
	UserID    string          `json:"userId,omitempty"`
	UserEmail string          `json:"userEmail,omitempty"`
	TxID      string          `json:"txId,omitempty"`
	Changes   json.RawMessage `json:"changes,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// FromAuditEntry creates response DTO from an audit log entry.
func FromAuditEntry(e postgres.AuditEntry) HistoryEntryResponse {
	return HistoryEntryResponse{
		ID:        e.ID.String(),
		Action:    string(e.Action),
		UserID:    e.UserID,
		UserEmail: e.UserEmail,
		TxID:      e.TxID,
		Changes:   e.Changes,
		CreatedAt: e.CreatedAt,
	}
}
