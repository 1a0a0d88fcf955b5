// Package provider contains clients for the external data providers the
// detection engine depends on.
package provider

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

const defaultTimeout = 10 * time.Second

// ListingRecord is one entry of a new-listings feed. Only Address is
// guaranteed; empty fields mean the provider did not supply them.
type ListingRecord struct {
	Address   string
	Name      string
	Symbol    string
	CreatedAt time.Time
	Creator   string
	Liquidity decimal.Decimal
}

// TokenTransfer is one token movement inside a transaction.
type TokenTransfer struct {
	Mint        string
	Symbol      string
	FromAccount string
	ToAccount   string
	Amount      decimal.Decimal
}

// NativeTransfer is a SOL movement inside a transaction, in lamports.
type NativeTransfer struct {
	FromAccount string
	ToAccount   string
	Lamports    int64
}

// Transaction is a parsed wallet transaction.
type Transaction struct {
	Signature       string
	Type            string
	Timestamp       time.Time
	TokenTransfers  []TokenTransfer
	NativeTransfers []NativeTransfer
}

// IsSwap reports whether the provider classified the transaction as a swap.
func (t Transaction) IsSwap() bool {
	return strings.EqualFold(t.Type, "SWAP")
}

// Pair is one trading pair record from a market data provider.
type Pair struct {
	ChainID        string
	DexID          string
	PairAddress    string
	BaseAddress    string
	BaseName       string
	BaseSymbol     string
	QuoteSymbol    string
	PriceUSD       decimal.Decimal
	PriceChange24h decimal.Decimal
	Volume24h      decimal.Decimal
	LiquidityUSD   decimal.Decimal
	MarketCapUSD   decimal.Decimal
	FDV            decimal.Decimal
}

// HolderAccount is a large token account, with its share of supply when known.
type HolderAccount struct {
	Address    string
	Amount     decimal.Decimal
	Percentage decimal.Decimal
}

// ListingFeed returns recently created tokens, newest first.
type ListingFeed interface {
	NewListings(ctx context.Context, limit int) ([]ListingRecord, error)
}

// HistorySource returns a wallet's most recent transactions, newest first.
type HistorySource interface {
	Transactions(ctx context.Context, wallet string, limit int) ([]Transaction, error)
}

// PairSource returns the trading pairs of a token.
type PairSource interface {
	Pairs(ctx context.Context, mint string) ([]Pair, error)
	Search(ctx context.Context, query string) ([]Pair, error)
}

// HolderSource returns the largest holders of a token.
type HolderSource interface {
	LargestAccounts(ctx context.Context, mint string, limit int) ([]HolderAccount, error)
}

// flexDecimal accepts JSON numbers, numeric strings, empty strings and null.
type flexDecimal struct {
	decimal.Decimal
}

func (f *flexDecimal) UnmarshalJSON(b []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if raw == "" || raw == "null" {
		f.Decimal = decimal.Zero
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("parse decimal %q: %w", raw, err)
	}
	f.Decimal = d
	return nil
}

type httpDoer struct {
	client    *http.Client
	name      string
	userAgent string
}

func newHTTPDoer(name string, timeout time.Duration, userAgent string) httpDoer {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return httpDoer{client: &http.Client{Timeout: timeout}, name: name, userAgent: userAgent}
}

// doJSON issues a request and decodes a 200 response into out.
func (d httpDoer) doJSON(ctx context.Context, method, url string, headers map[string]string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", d.name, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("create %s request: %w", d.name, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("send %s request: %w", d.name, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", d.name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return parseHTTPError(d.name, resp.StatusCode, payload)
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode %s response: %w", d.name, err)
	}
	return nil
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func parseHTTPError(name string, status int, payload []byte) error {
	var apiErr errorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil {
		if apiErr.Message != "" {
			return fmt.Errorf("%s api error (%d): %s", name, status, apiErr.Message)
		}
		if apiErr.Error != "" {
			return fmt.Errorf("%s api error (%d): %s", name, status, apiErr.Error)
		}
	}
	if len(payload) > 0 {
		return fmt.Errorf("%s api error (%d): %s", name, status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("%s api error (%d)", name, status)
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return context.WithTimeout(ctx, timeout)
}
