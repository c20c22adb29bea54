package ledger

import (
	"time"

	"ledgerd/internal/core/id"
)

// Aggregate types used for outbox routing.
const (
	AggregateAccount  = "account"
	AggregateTransfer = "transfer"
)

// Event types published through the outbox.
const (
	EventAccountCreated       = "AccountCreated"
	EventAccountStatusChanged = "AccountStatusChanged"
	EventTransferPosted       = "TransferPosted"
)

// AccountCreatedEvent is the payload for EventAccountCreated.
// Amounts travel as decimal strings to stay exact on the wire.
type AccountCreatedEvent struct {
	AccountID id.ID  `json:"accountId"`
	Name      string `json:"name"`
	Currency  string `json:"currency"`
	Balance   string `json:"balance"`
}

// AccountStatusChangedEvent is the payload for EventAccountStatusChanged.
type AccountStatusChangedEvent struct {
	AccountID id.ID  `json:"accountId"`
	OldStatus string `json:"oldStatus"`
	NewStatus string `json:"newStatus"`
}

// TransferPostedEvent is the payload for EventTransferPosted.
type TransferPostedEvent struct {
	TransferID    id.ID     `json:"transferId"`
	Reference     string    `json:"reference"`
	FromAccountID id.ID     `json:"fromAccountId"`
	ToAccountID   id.ID     `json:"toAccountId"`
	Currency      string    `json:"currency"`
	Amount        string    `json:"amount"`
	TxID          string    `json:"txId"`
	PostedAt      time.Time `json:"postedAt"`
}
