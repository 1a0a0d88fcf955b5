package tracker

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"alpha-radar/internal/provider"
)

// PriceSource prices the native quote asset in USD.
type PriceSource interface {
	SOLPrice(ctx context.Context) (decimal.Decimal, bool)
}

// FixedPrice is a PriceSource returning a constant.
type FixedPrice decimal.Decimal

// SOLPrice implements PriceSource.
func (f FixedPrice) SOLPrice(context.Context) (decimal.Decimal, bool) {
	return decimal.Decimal(f), true
}

// QuoteOracle looks up SOL/USD from the deepest wrapped-SOL pair and keeps
// the result for a short TTL.
type QuoteOracle struct {
	pairs  provider.PairSource
	cache  *expirable.LRU[string, decimal.Decimal]
	logger zerolog.Logger
}

var _ PriceSource = (*QuoteOracle)(nil)

// NewQuoteOracle builds an oracle over pairs. ttl defaults to one minute.
func NewQuoteOracle(pairs provider.PairSource, ttl time.Duration, logger zerolog.Logger) *QuoteOracle {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &QuoteOracle{
		pairs:  pairs,
		cache:  expirable.NewLRU[string, decimal.Decimal](8, nil, ttl),
		logger: logger.With().Str("component", "quote_oracle").Logger(),
	}
}

// SOLPrice returns the cached price, refreshing it when expired.
func (o *QuoteOracle) SOLPrice(ctx context.Context) (decimal.Decimal, bool) {
	if price, ok := o.cache.Get(WrappedSOLMint); ok {
		return price, true
	}
	if o.pairs == nil {
		return decimal.Zero, false
	}

	pairs, err := o.pairs.Pairs(ctx, WrappedSOLMint)
	if err != nil {
		o.logger.Warn().Err(err).Msg("sol price lookup failed")
		return decimal.Zero, false
	}

	var best *provider.Pair
	for i := range pairs {
		p := &pairs[i]
		if p.BaseAddress != WrappedSOLMint || !p.PriceUSD.IsPositive() {
			continue
		}
		if best == nil || p.LiquidityUSD.GreaterThan(best.LiquidityUSD) {
			best = p
		}
	}
	if best == nil {
		o.logger.Warn().Int("pairs", len(pairs)).Msg("no priced wrapped sol pair")
		return decimal.Zero, false
	}

	o.cache.Add(WrappedSOLMint, best.PriceUSD)
	o.logger.Debug().Str("price_usd", best.PriceUSD.String()).Str("dex", best.DexID).Msg("sol price refreshed")
	return best.PriceUSD, true
}
