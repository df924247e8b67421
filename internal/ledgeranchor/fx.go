package ledgeranchor

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/herbtrace/herbtrace/internal/config"
	"github.com/herbtrace/herbtrace/internal/ledgeranchor/domain"
	"github.com/herbtrace/herbtrace/internal/ledgeranchor/fabric"
	"github.com/herbtrace/herbtrace/internal/ledgeranchor/null"
	"github.com/herbtrace/herbtrace/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("ledgeranchor",
	fx.Provide(NewClient),
)

type Params struct {
	fx.In

	Cfg     config.Config
	Log     *zap.Logger
	Metrics *metrics.Metrics `optional:"true"`
}

// NewClient selects the connected or degraded implementation from
// configuration and wraps it with submission metrics.
func NewClient(p Params) (domain.Client, error) {
	var inner domain.Client
	switch p.Cfg.LedgerMode {
	case config.LedgerModeFabric:
		if p.Cfg.LedgerGatewayURL == "" {
			return nil, errors.New("LEDGER_GATEWAY_URL is required in fabric mode")
		}
		inner = fabric.New(fabric.Config{
			GatewayURL: p.Cfg.LedgerGatewayURL,
			Channel:    p.Cfg.LedgerChannel,
			Chaincode:  p.Cfg.LedgerChaincode,
			Timeout:    p.Cfg.LedgerTimeout,
		}, p.Log)
	default:
		p.Log.Named("ledgeranchor").Info("ledger disabled, issuing synthetic receipts")
		inner = null.New()
	}

	return &instrumentedClient{inner: inner, metrics: p.Metrics}, nil
}

type instrumentedClient struct {
	inner   domain.Client
	metrics *metrics.Metrics
}

func (c *instrumentedClient) Submit(ctx context.Context, operation string, payload map[string]any) (domain.Receipt, error) {
	receipt, err := c.inner.Submit(ctx, operation, payload)
	outcome := "success"
	if err != nil {
		outcome = "error"
	} else if receipt.Synthetic {
		outcome = "synthetic"
	}
	c.metrics.RecordLedgerSubmission(operation, outcome)
	return receipt, err
}

func (c *instrumentedClient) Query(ctx context.Context, operation string, payload map[string]any) (json.RawMessage, error) {
	return c.inner.Query(ctx, operation, payload)
}
