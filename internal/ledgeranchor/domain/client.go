// Package domain defines the ledger anchoring contract. The engine is a
// client of an external distributed ledger; it never implements consensus
// or ordering itself.
package domain

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Operation names submitted to the ledger.
const (
	OpCreateBatch = "createBatch"
	OpAddEvent    = "addEvent"
	OpGenerateQR  = "generateQR"
)

// Receipt is the proof of one anchored mutation.
type Receipt struct {
	TransactionID string    `json:"transaction_id"`
	BlockNumber   *uint64   `json:"block_number,omitempty"`
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`

	// Synthetic marks receipts issued locally while the ledger was
	// unavailable or disabled.
	Synthetic bool `json:"synthetic"`
}

// Client anchors state-changing operations to the ledger. Implementations
// must be safe for concurrent use and hold no per-request state. Submit
// never retries and never buffers: on failure the caller decides whether
// the parent mutation aborts.
type Client interface {
	Submit(ctx context.Context, operation string, payload map[string]any) (Receipt, error)
	Query(ctx context.Context, operation string, payload map[string]any) (json.RawMessage, error)
}

// ErrLedgerUnavailable is returned when the ledger call failed or timed out.
var ErrLedgerUnavailable = errors.New("ledger_unavailable")
