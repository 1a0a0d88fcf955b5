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

const moralisNewTokensPath = "/token/mainnet/exchange/pumpfun/new"

// MoralisOptions parameterise the Moralis new-listings client.
type MoralisOptions struct {
	BaseURL   string
	APIKey    string
	Timeout   time.Duration
	UserAgent string
}

// Moralis reads newly created pump.fun tokens from the Moralis Solana gateway.
type Moralis struct {
	opts    MoralisOptions
	http    httpDoer
	baseURL string
	logger  zerolog.Logger
}

// NewMoralis constructs a Moralis listing feed.
func NewMoralis(opts MoralisOptions, logger zerolog.Logger) *Moralis {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://solana-gateway.moralis.io"
	}
	return &Moralis{
		opts:    opts,
		http:    newHTTPDoer("moralis", opts.Timeout, opts.UserAgent),
		baseURL: baseURL,
		logger:  logger.With().Str("component", "moralis_feed").Logger(),
	}
}

// NewListings fetches up to limit newly created tokens in provider order.
func (m *Moralis) NewListings(ctx context.Context, limit int) ([]ListingRecord, error) {
	if m.opts.APIKey == "" {
		return nil, errors.New("moralis api key not configured")
	}
	if limit <= 0 {
		limit = 20
	}

	ctx, cancel := withTimeout(ctx, m.opts.Timeout)
	defer cancel()

	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	endpoint := m.baseURL + moralisNewTokensPath + "?" + q.Encode()

	var res moralisNewTokensResponse
	headers := map[string]string{"X-API-Key": m.opts.APIKey}
	if err := m.http.doJSON(ctx, http.MethodGet, endpoint, headers, nil, &res); err != nil {
		return nil, err
	}

	records := make([]ListingRecord, 0, len(res.Result))
	for _, item := range res.Result {
		if item.TokenAddress == "" {
			m.logger.Debug().Msg("skip listing without token address")
			continue
		}
		records = append(records, ListingRecord{
			Address:   item.TokenAddress,
			Name:      item.Name,
			Symbol:    item.Symbol,
			CreatedAt: parseListingTime(item.CreatedAt),
			Creator:   item.Creator,
			Liquidity: item.Liquidity.Decimal,
		})
	}
	return records, nil
}

type moralisNewTokensResponse struct {
	Result []moralisToken `json:"result"`
	Cursor string         `json:"cursor"`
}

type moralisToken struct {
	TokenAddress string      `json:"tokenAddress"`
	Name         string      `json:"name"`
	Symbol       string      `json:"symbol"`
	CreatedAt    string      `json:"createdAt"`
	Creator      string      `json:"creator"`
	Liquidity    flexDecimal `json:"liquidity"`
	PriceUSD     flexDecimal `json:"priceUsd"`
}

// parseListingTime accepts RFC3339 timestamps or unix seconds/milliseconds.
// Unparseable values yield the zero time.
func parseListingTime(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return ts.UTC()
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if n > 1e12 {
			return time.UnixMilli(n).UTC()
		}
		return time.Unix(n, 0).UTC()
	}
	return time.Time{}
}

var _ ListingFeed = (*Moralis)(nil)
