package provider

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// HeliusOptions parameterise the Helius enhanced-transactions client.
type HeliusOptions struct {
	BaseURL   string
	APIKey    string
	Timeout   time.Duration
	UserAgent string
}

// Helius reads parsed wallet history from the Helius enhanced transactions API.
type Helius struct {
	opts    HeliusOptions
	http    httpDoer
	baseURL string
	logger  zerolog.Logger
}

// NewHelius constructs a Helius history client.
func NewHelius(opts HeliusOptions, logger zerolog.Logger) *Helius {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.helius.xyz"
	}
	return &Helius{
		opts:    opts,
		http:    newHTTPDoer("helius", opts.Timeout, opts.UserAgent),
		baseURL: baseURL,
		logger:  logger.With().Str("component", "helius_history").Logger(),
	}
}

// Transactions returns up to limit of the wallet's most recent transactions, newest first.
func (h *Helius) Transactions(ctx context.Context, wallet string, limit int) ([]Transaction, error) {
	if h.opts.APIKey == "" {
		return nil, errors.New("helius api key not configured")
	}
	if wallet == "" {
		return nil, errors.New("wallet address required")
	}
	if limit <= 0 {
		limit = 10
	}

	ctx, cancel := withTimeout(ctx, h.opts.Timeout)
	defer cancel()

	q := url.Values{}
	q.Set("api-key", h.opts.APIKey)
	q.Set("limit", strconv.Itoa(limit))
	endpoint := h.baseURL + "/v0/addresses/" + url.PathEscape(wallet) + "/transactions?" + q.Encode()

	var raw []heliusTransaction
	if err := h.http.doJSON(ctx, http.MethodGet, endpoint, nil, nil, &raw); err != nil {
		return nil, err
	}

	txs := make([]Transaction, 0, len(raw))
	for _, item := range raw {
		txs = append(txs, item.toTransaction())
	}
	return txs, nil
}

type heliusTransaction struct {
	Signature       string                 `json:"signature"`
	Type            string                 `json:"type"`
	Source          string                 `json:"source"`
	Timestamp       int64                  `json:"timestamp"`
	FeePayer        string                 `json:"feePayer"`
	TokenTransfers  []heliusTokenTransfer  `json:"tokenTransfers"`
	NativeTransfers []heliusNativeTransfer `json:"nativeTransfers"`
}

type heliusTokenTransfer struct {
	FromUserAccount string      `json:"fromUserAccount"`
	ToUserAccount   string      `json:"toUserAccount"`
	Mint            string      `json:"mint"`
	Symbol          string      `json:"symbol"`
	TokenAmount     flexDecimal `json:"tokenAmount"`
}

type heliusNativeTransfer struct {
	FromUserAccount string `json:"fromUserAccount"`
	ToUserAccount   string `json:"toUserAccount"`
	Amount          int64  `json:"amount"`
}

func (t heliusTransaction) toTransaction() Transaction {
	tx := Transaction{
		Signature: t.Signature,
		Type:      t.Type,
	}
	if t.Timestamp > 0 {
		tx.Timestamp = time.Unix(t.Timestamp, 0).UTC()
	}
	for _, tt := range t.TokenTransfers {
		tx.TokenTransfers = append(tx.TokenTransfers, TokenTransfer{
			Mint:        tt.Mint,
			Symbol:      tt.Symbol,
			FromAccount: tt.FromUserAccount,
			ToAccount:   tt.ToUserAccount,
			Amount:      tt.TokenAmount.Decimal,
		})
	}
	for _, nt := range t.NativeTransfers {
		tx.NativeTransfers = append(tx.NativeTransfers, NativeTransfer{
			FromAccount: nt.FromUserAccount,
			ToAccount:   nt.ToUserAccount,
			Lamports:    nt.Amount,
		})
	}
	return tx
}

var _ HistorySource = (*Helius)(nil)
