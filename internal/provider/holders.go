package provider

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// RPCHolderOptions parameterise the JSON-RPC holder source.
type RPCHolderOptions struct {
	RPCURL  string
	Timeout time.Duration
}

// RPCHolders looks up the largest token accounts over Solana JSON-RPC.
type RPCHolders struct {
	opts      RPCHolderOptions
	logger    zerolog.Logger
	client    *rpc.Client
	clientMux sync.Mutex
}

// NewRPCHolders builds a holder source. The connection is opened lazily.
func NewRPCHolders(opts RPCHolderOptions, logger zerolog.Logger) *RPCHolders {
	return &RPCHolders{opts: opts, logger: logger.With().Str("component", "rpc_holders").Logger()}
}

// LargestAccounts returns up to limit of the largest accounts for mint.
// Percentages are derived from the token supply; when the supply lookup
// fails they stay zero.
func (h *RPCHolders) LargestAccounts(ctx context.Context, mint string, limit int) ([]HolderAccount, error) {
	if h.opts.RPCURL == "" {
		return nil, errors.New("solana rpc url not configured")
	}
	if mint == "" {
		return nil, errors.New("token address required")
	}
	if limit <= 0 {
		limit = 10
	}

	ctx, cancel := withTimeout(ctx, h.opts.Timeout)
	defer cancel()

	client, err := h.getClient(ctx)
	if err != nil {
		return nil, err
	}

	var largest largestAccountsResult
	if err := client.CallContext(ctx, &largest, "getTokenLargestAccounts", mint); err != nil {
		return nil, err
	}

	supply := decimal.Zero
	var supplyRes tokenSupplyResult
	if err := client.CallContext(ctx, &supplyRes, "getTokenSupply", mint); err != nil {
		h.logger.Debug().Err(err).Str("mint", mint).Msg("token supply unavailable")
	} else {
		supply = supplyRes.Value.UIAmountString.Decimal
	}

	accounts := largest.Value
	if len(accounts) > limit {
		accounts = accounts[:limit]
	}

	out := make([]HolderAccount, 0, len(accounts))
	hundred := decimal.NewFromInt(100)
	for _, acc := range accounts {
		holder := HolderAccount{
			Address: acc.Address,
			Amount:  acc.UIAmountString.Decimal,
		}
		if supply.IsPositive() {
			holder.Percentage = holder.Amount.Div(supply).Mul(hundred)
		}
		out = append(out, holder)
	}
	return out, nil
}

// Close releases the RPC connection.
func (h *RPCHolders) Close() {
	h.clientMux.Lock()
	defer h.clientMux.Unlock()
	if h.client != nil {
		h.client.Close()
		h.client = nil
	}
}

func (h *RPCHolders) getClient(ctx context.Context) (*rpc.Client, error) {
	h.clientMux.Lock()
	defer h.clientMux.Unlock()

	if h.client != nil {
		return h.client, nil
	}

	timeout := h.opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client, err := rpc.DialOptions(ctx, h.opts.RPCURL, rpc.WithHTTPClient(&http.Client{Timeout: timeout}))
	if err != nil {
		return nil, err
	}
	h.client = client
	return client, nil
}

type tokenAmount struct {
	Amount         string      `json:"amount"`
	Decimals       int         `json:"decimals"`
	UIAmountString flexDecimal `json:"uiAmountString"`
}

type largestAccountsResult struct {
	Value []struct {
		Address string `json:"address"`
		tokenAmount
	} `json:"value"`
}

type tokenSupplyResult struct {
	Value tokenAmount `json:"value"`
}

var _ HolderSource = (*RPCHolders)(nil)
