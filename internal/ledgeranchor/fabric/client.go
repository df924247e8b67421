// Package fabric talks to a Hyperledger Fabric gateway bridge over HTTP.
package fabric

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/herbtrace/herbtrace/internal/ledgeranchor/domain"
	"go.uber.org/zap"
)

type Config struct {
	GatewayURL string
	Channel    string
	Chaincode  string
	Timeout    time.Duration
}

type Client struct {
	cfg  Config
	http *http.Client
	log  *zap.Logger
}

func New(cfg Config, log *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
		log:  log.Named("ledger.fabric"),
	}
}

type gatewayRequest struct {
	Function string         `json:"function"`
	Payload  map[string]any `json:"payload"`
}

type gatewayReceipt struct {
	TransactionID string    `json:"transactionId"`
	BlockNumber   *uint64   `json:"blockNumber,omitempty"`
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
}

// Submit sends the operation through the gateway's submitTransaction
// endpoint. Any transport failure, timeout or gateway error surfaces as
// ErrLedgerUnavailable; the adapter never retries.
func (c *Client) Submit(ctx context.Context, operation string, payload map[string]any) (domain.Receipt, error) {
	body, err := c.post(ctx, "submit", operation, payload)
	if err != nil {
		return domain.Receipt{}, err
	}

	var receipt gatewayReceipt
	if err := json.Unmarshal(body, &receipt); err != nil {
		return domain.Receipt{}, fmt.Errorf("decode gateway receipt: %w", domain.ErrLedgerUnavailable)
	}

	out := domain.Receipt{
		TransactionID: receipt.TransactionID,
		BlockNumber:   receipt.BlockNumber,
		Status:        receipt.Status,
		Timestamp:     receipt.Timestamp,
	}
	if out.Status == "" {
		out.Status = "success"
	}
	if out.Timestamp.IsZero() {
		out.Timestamp = time.Now().UTC()
	}
	return out, nil
}

// Query reads from the ledger via evaluateTransaction; the raw chaincode
// response is returned to the caller.
func (c *Client) Query(ctx context.Context, operation string, payload map[string]any) (json.RawMessage, error) {
	body, err := c.post(ctx, "evaluate", operation, payload)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

func (c *Client) post(ctx context.Context, action, operation string, payload map[string]any) ([]byte, error) {
	url := fmt.Sprintf("%s/channels/%s/chaincodes/%s/%s",
		c.cfg.GatewayURL, c.cfg.Channel, c.cfg.Chaincode, action)

	raw, err := json.Marshal(gatewayRequest{Function: operation, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("encode gateway request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("ledger gateway unreachable",
			zap.String("operation", operation),
			zap.Error(err),
		)
		return nil, fmt.Errorf("ledger gateway call failed: %w", domain.ErrLedgerUnavailable)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read gateway response: %w", domain.ErrLedgerUnavailable)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Warn("ledger gateway rejected operation",
			zap.String("operation", operation),
			zap.Int("status", resp.StatusCode),
		)
		return nil, fmt.Errorf("ledger gateway status %d: %w", resp.StatusCode, domain.ErrLedgerUnavailable)
	}

	return body, nil
}
