// Package txid issues short correlation IDs for database transactions.
package txid

import "github.com/google/uuid"

// New returns an 8-hex-char ID, unique enough to correlate the log and
// audit lines of one transaction within a process's lifetime.
func New() string {
	return uuid.New().String()[:8]
}
