package provider

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DexScreenerOptions parameterise the DexScreener client.
type DexScreenerOptions struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// DexScreener reads pair data from the public DexScreener API. No key is required.
type DexScreener struct {
	opts    DexScreenerOptions
	http    httpDoer
	baseURL string
	logger  zerolog.Logger
}

// NewDexScreener constructs a DexScreener pair source.
func NewDexScreener(opts DexScreenerOptions, logger zerolog.Logger) *DexScreener {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.dexscreener.com/latest/dex"
	}
	return &DexScreener{
		opts:    opts,
		http:    newHTTPDoer("dexscreener", opts.Timeout, opts.UserAgent),
		baseURL: baseURL,
		logger:  logger.With().Str("component", "dexscreener").Logger(),
	}
}

// Pairs returns every pair that trades the given token. An unknown token
// yields an empty slice.
func (d *DexScreener) Pairs(ctx context.Context, mint string) ([]Pair, error) {
	if mint == "" {
		return nil, errors.New("token address required")
	}
	return d.fetch(ctx, d.baseURL+"/tokens/"+url.PathEscape(mint))
}

// Search returns pairs matching a name, symbol or address query.
func (d *DexScreener) Search(ctx context.Context, query string) ([]Pair, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("search query required")
	}
	return d.fetch(ctx, d.baseURL+"/search?q="+url.QueryEscape(query))
}

func (d *DexScreener) fetch(ctx context.Context, endpoint string) ([]Pair, error) {
	ctx, cancel := withTimeout(ctx, d.opts.Timeout)
	defer cancel()

	var res dexPairsResponse
	if err := d.http.doJSON(ctx, http.MethodGet, endpoint, nil, nil, &res); err != nil {
		return nil, err
	}

	pairs := make([]Pair, 0, len(res.Pairs))
	for _, p := range res.Pairs {
		pairs = append(pairs, p.toPair())
	}
	return pairs, nil
}

type dexPairsResponse struct {
	SchemaVersion string    `json:"schemaVersion"`
	Pairs         []dexPair `json:"pairs"`
}

type dexToken struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

type dexPair struct {
	ChainID     string      `json:"chainId"`
	DexID       string      `json:"dexId"`
	PairAddress string      `json:"pairAddress"`
	BaseToken   dexToken    `json:"baseToken"`
	QuoteToken  dexToken    `json:"quoteToken"`
	PriceUSD    flexDecimal `json:"priceUsd"`
	PriceChange struct {
		H24 flexDecimal `json:"h24"`
	} `json:"priceChange"`
	Volume struct {
		H24 flexDecimal `json:"h24"`
	} `json:"volume"`
	Liquidity *struct {
		USD flexDecimal `json:"usd"`
	} `json:"liquidity"`
	FDV       flexDecimal `json:"fdv"`
	MarketCap flexDecimal `json:"marketCap"`
}

func (p dexPair) toPair() Pair {
	out := Pair{
		ChainID:        p.ChainID,
		DexID:          p.DexID,
		PairAddress:    p.PairAddress,
		BaseAddress:    p.BaseToken.Address,
		BaseName:       p.BaseToken.Name,
		BaseSymbol:     p.BaseToken.Symbol,
		QuoteSymbol:    p.QuoteToken.Symbol,
		PriceUSD:       p.PriceUSD.Decimal,
		PriceChange24h: p.PriceChange.H24.Decimal,
		Volume24h:      p.Volume.H24.Decimal,
		MarketCapUSD:   p.MarketCap.Decimal,
		FDV:            p.FDV.Decimal,
	}
	if p.Liquidity != nil {
		out.LiquidityUSD = p.Liquidity.USD.Decimal
	}
	return out
}

var _ PairSource = (*DexScreener)(nil)
