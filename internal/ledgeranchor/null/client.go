// Package null issues synthetic receipts when no ledger is configured,
// letting the rest of the engine run unchanged while producing
// receipt-shaped output for persistence.
package null

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/herbtrace/herbtrace/internal/ledgeranchor/domain"
)

type Client struct{}

func New() *Client {
	return &Client{}
}

// Submit never fails and never blocks the caller.
func (c *Client) Submit(ctx context.Context, operation string, payload map[string]any) (domain.Receipt, error) {
	_ = ctx
	_ = operation
	_ = payload
	return domain.Receipt{
		TransactionID: "local-" + uuid.NewString(),
		Status:        "success",
		Timestamp:     time.Now().UTC(),
		Synthetic:     true,
	}, nil
}

func (c *Client) Query(ctx context.Context, operation string, payload map[string]any) (json.RawMessage, error) {
	_ = ctx
	_ = operation
	_ = payload
	return json.RawMessage(`{}`), nil
}
