// Package marketdata builds point-in-time market snapshots for tokens.
package marketdata

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"alpha-radar/internal/logging"
	"alpha-radar/internal/model"
	"alpha-radar/internal/provider"
)

var (
	ErrEmptyQuery     = errors.New("empty search query")
	ErrNoHolderSource = errors.New("holder source not configured")
)

// Options tune snapshot lookups.
type Options struct {
	TopHolders  int
	Concurrency int
}

// Service combines pair data and holder data into snapshots. Nothing is cached.
type Service struct {
	opts    Options
	pairs   provider.PairSource
	holders provider.HolderSource
	logger  zerolog.Logger
}

// New builds a Service. holders may be nil.
func New(opts Options, pairs provider.PairSource, holders provider.HolderSource, logger zerolog.Logger) *Service {
	if opts.TopHolders <= 0 {
		opts.TopHolders = 10
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	return &Service{
		opts:    opts,
		pairs:   pairs,
		holders: holders,
		logger:  logger.With().Str("component", "market_data").Logger(),
	}
}

// Snapshot returns the market state of mint from its deepest pair, or nil
// when no pair is listed or the lookup failed. Holder lookup failures leave
// TopHolders empty.
func (s *Service) Snapshot(ctx context.Context, mint string) *model.MarketSnapshot {
	pairs, err := s.pairs.Pairs(ctx, mint)
	if err != nil {
		s.logger.Warn().Err(err).Str("mint", logging.ShortAddr(mint)).Msg("pair lookup failed")
		return nil
	}
	best, ok := deepestPair(pairs)
	if !ok {
		s.logger.Debug().Str("mint", logging.ShortAddr(mint)).Msg("no pairs listed")
		return nil
	}

	snap := snapshotFromPair(mint, best)
	snap.TopHolders = s.topHolders(ctx, mint)
	return &snap
}

// Many looks up snapshots concurrently and returns the ones found, in input
// order. Unlisted tokens and failed lookups are dropped.
func (s *Service) Many(ctx context.Context, mints []string) []model.MarketSnapshot {
	results := make([]*model.MarketSnapshot, len(mints))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for i, mint := range mints {
		g.Go(func() error {
			results[i] = s.Snapshot(gctx, mint)
			return nil
		})
	}
	_ = g.Wait()

	out := make([]model.MarketSnapshot, 0, len(mints))
	for _, snap := range results {
		if snap != nil {
			out = append(out, *snap)
		}
	}
	return out
}

// Search returns snapshots for the pairs matching query, without holders.
// A failed provider call yields no results. Only an empty query is an error.
func (s *Service) Search(ctx context.Context, query string) ([]model.MarketSnapshot, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	pairs, err := s.pairs.Search(ctx, query)
	if err != nil {
		s.logger.Warn().Err(err).Str("query", query).Msg("pair search failed")
		return []model.MarketSnapshot{}, nil
	}
	out := make([]model.MarketSnapshot, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, snapshotFromPair(p.BaseAddress, p))
	}
	return out, nil
}

// Holders returns the largest holders of mint. A failed provider call
// yields an empty list; a missing holder source is an error.
func (s *Service) Holders(ctx context.Context, mint string, limit int) ([]model.HolderShare, error) {
	if s.holders == nil {
		return nil, ErrNoHolderSource
	}
	if limit <= 0 {
		limit = s.opts.TopHolders
	}
	accounts, err := s.holders.LargestAccounts(ctx, mint, limit)
	if err != nil {
		s.logger.Warn().Err(err).Str("mint", logging.ShortAddr(mint)).Msg("holder lookup failed")
		return []model.HolderShare{}, nil
	}
	out := make([]model.HolderShare, 0, len(accounts))
	for _, acc := range accounts {
		out = append(out, model.HolderShare{Address: acc.Address, Percentage: acc.Percentage})
	}
	return out, nil
}

func (s *Service) topHolders(ctx context.Context, mint string) []model.HolderShare {
	if s.holders == nil {
		return nil
	}
	holders, _ := s.Holders(ctx, mint, s.opts.TopHolders)
	return holders
}

func deepestPair(pairs []provider.Pair) (provider.Pair, bool) {
	if len(pairs) == 0 {
		return provider.Pair{}, false
	}
	best := pairs[0]
	for _, p := range pairs[1:] {
		if p.LiquidityUSD.GreaterThan(best.LiquidityUSD) {
			best = p
		}
	}
	return best, true
}

func snapshotFromPair(mint string, p provider.Pair) model.MarketSnapshot {
	marketCap := p.MarketCapUSD
	if marketCap.IsZero() {
		marketCap = p.FDV
	}
	return model.MarketSnapshot{
		Address:        mint,
		Name:           orDefault(p.BaseName, model.UnknownName),
		Symbol:         orDefault(p.BaseSymbol, model.UnknownSymbol),
		PriceUSD:       p.PriceUSD,
		PriceChange24h: p.PriceChange24h,
		MarketCapUSD:   marketCap,
		LiquidityUSD:   p.LiquidityUSD,
		Volume24h:      p.Volume24h,
		PairAddress:    p.PairAddress,
		DexID:          p.DexID,
	}
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

