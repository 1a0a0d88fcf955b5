// Package tracker profiles wallets from their trade history and watches the
// smart-money wallets for new swaps.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"alpha-radar/internal/logging"
	"alpha-radar/internal/model"
	"alpha-radar/internal/provider"
	"alpha-radar/internal/registry"
)

// ProfilerOptions tune classification.
type ProfilerOptions struct {
	HistoryLimit       int
	WinRateThreshold   float64
	MinTrades          int
	BatchDelay         time.Duration
	DemoteOnReanalysis bool
}

func (o *ProfilerOptions) applyDefaults() {
	if o.HistoryLimit <= 0 {
		o.HistoryLimit = 100
	}
	if o.WinRateThreshold <= 0 {
		o.WinRateThreshold = 0.6
	}
	if o.MinTrades <= 0 {
		o.MinTrades = 10
	}
	if o.BatchDelay < 0 {
		o.BatchDelay = 0
	}
}

// Profiler turns a wallet's transaction history into a WalletProfile and
// keeps the registry of smart-money wallets current.
type Profiler struct {
	opts     ProfilerOptions
	history  provider.HistorySource
	prices   PriceSource
	registry *registry.Registry
	logger   zerolog.Logger
	now      func() time.Time

	mu         sync.RWMutex
	onAnalyzed func(model.WalletProfile)

	pending sync.WaitGroup
}

// NewProfiler wires a profiler. prices may be nil, in which case SOL legs
// are valued one-to-one.
func NewProfiler(opts ProfilerOptions, history provider.HistorySource, prices PriceSource, reg *registry.Registry, logger zerolog.Logger) *Profiler {
	opts.applyDefaults()
	return &Profiler{
		opts:     opts,
		history:  history,
		prices:   prices,
		registry: reg,
		logger:   logger.With().Str("component", "wallet_profiler").Logger(),
		now:      time.Now,
	}
}

// OnAnalyzed installs a hook called with every computed profile.
func (p *Profiler) OnAnalyzed(fn func(model.WalletProfile)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onAnalyzed = fn
}

// IsSmartMoney applies the configured thresholds.
func (p *Profiler) IsSmartMoney(winRate float64, totalTrades int) bool {
	return winRate > p.opts.WinRateThreshold && totalTrades >= p.opts.MinTrades
}

// Analyze fetches the wallet's recent history and classifies it. Provider
// failures yield an empty, non-smart profile rather than an error.
func (p *Profiler) Analyze(ctx context.Context, wallet string) model.WalletProfile {
	log := p.logger.With().Str("wallet", logging.ShortAddr(wallet)).Logger()

	txs, err := p.history.Transactions(ctx, wallet, p.opts.HistoryLimit)
	if err != nil {
		log.Error().Err(err).Msg("fetch wallet history failed")
		return p.finish(p.emptyProfile(wallet), false)
	}
	if len(txs) == 0 {
		log.Debug().Msg("wallet has no history")
		return p.finish(p.emptyProfile(wallet), false)
	}

	solUSD := p.solPrice(ctx)
	groups := groupLegs(wallet, txs)

	wins, losses := 0, 0
	total := decimal.Zero
	for _, legs := range groups {
		profit := realizedProfit(legs, solUSD)
		switch profit.Sign() {
		case 1:
			wins++
		case -1:
			losses++
		default:
			continue
		}
		total = total.Add(profit)
	}

	profile := model.WalletProfile{
		Address:        wallet,
		TotalTrades:    wins + losses,
		AvgProfitPct:   decimal.Zero,
		TotalProfitUSD: total,
		LastActive:     txs[0].Timestamp,
	}
	if profile.TotalTrades > 0 {
		profile.WinRate = float64(wins) / float64(profile.TotalTrades)
		profile.AvgProfitPct = total.Div(decimal.NewFromInt(int64(profile.TotalTrades))).Mul(decimal.NewFromInt(100))
	}
	if profile.LastActive.IsZero() {
		profile.LastActive = p.now().UTC()
	}
	profile.IsSmartMoney = p.IsSmartMoney(profile.WinRate, profile.TotalTrades)

	log.Info().
		Int("assets", len(groups)).
		Int("trades", profile.TotalTrades).
		Float64("win_rate", profile.WinRate).
		Str("total_profit_usd", profile.TotalProfitUSD.StringFixed(2)).
		Bool("smart_money", profile.IsSmartMoney).
		Msg("wallet analyzed")

	return p.finish(profile, true)
}

// AnalyzeMany analyzes wallets one after another, pausing BatchDelay between
// calls. It stops early when ctx is cancelled and returns what it has.
func (p *Profiler) AnalyzeMany(ctx context.Context, wallets []string) ([]model.WalletProfile, error) {
	out := make([]model.WalletProfile, 0, len(wallets))
	for i, wallet := range wallets {
		if i > 0 && p.opts.BatchDelay > 0 {
			timer := time.NewTimer(p.opts.BatchDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return out, ctx.Err()
			case <-timer.C:
			}
		}
		if err := ctx.Err(); err != nil {
			return out, err
		}
		out = append(out, p.Analyze(ctx, wallet))
	}
	return out, nil
}

// AddKnownWallet validates the address and analyzes it in the background.
// Wait blocks until every pending analysis finished.
func (p *Profiler) AddKnownWallet(ctx context.Context, wallet string) error {
	if err := model.ValidateAddress(wallet); err != nil {
		return fmt.Errorf("add known wallet: %w", err)
	}
	p.pending.Add(1)
	go func() {
		defer p.pending.Done()
		profile := p.Analyze(ctx, wallet)
		if !profile.IsSmartMoney {
			p.logger.Info().Str("wallet", logging.ShortAddr(wallet)).Msg("known wallet did not qualify as smart money")
		}
	}()
	return nil
}

// Wait blocks until background analyses started by AddKnownWallet finish.
func (p *Profiler) Wait() {
	p.pending.Wait()
}

// finish records the outcome. Only a completed analysis may demote; an empty
// profile from a failed or empty fetch leaves the registry untouched.
func (p *Profiler) finish(profile model.WalletProfile, completed bool) model.WalletProfile {
	if p.registry != nil {
		switch {
		case profile.IsSmartMoney:
			p.registry.Upsert(profile)
		case completed && p.opts.DemoteOnReanalysis:
			if p.registry.Remove(profile.Address) {
				p.logger.Info().Str("wallet", logging.ShortAddr(profile.Address)).Msg("wallet demoted from smart money")
			}
		}
	}

	p.mu.RLock()
	hook := p.onAnalyzed
	p.mu.RUnlock()
	if hook != nil {
		hook(profile)
	}
	return profile
}

func (p *Profiler) emptyProfile(wallet string) model.WalletProfile {
	return model.WalletProfile{
		Address:        wallet,
		AvgProfitPct:   decimal.Zero,
		TotalProfitUSD: decimal.Zero,
		LastActive:     p.now().UTC(),
	}
}

func (p *Profiler) solPrice(ctx context.Context) decimal.Decimal {
	if p.prices != nil {
		if price, ok := p.prices.SOLPrice(ctx); ok && price.IsPositive() {
			return price
		}
	}
	p.logger.Warn().Msg("sol price unavailable, valuing sol legs at 1")
	return decimal.NewFromInt(1)
}

// ErrNoWallets is returned when a batch has nothing to analyze.
var ErrNoWallets = errors.New("no wallets to analyze")

// SortByWinRate orders profiles best first.
func SortByWinRate(profiles []model.WalletProfile) {
	sort.SliceStable(profiles, func(i, j int) bool {
		if profiles[i].WinRate != profiles[j].WinRate {
			return profiles[i].WinRate > profiles[j].WinRate
		}
		return profiles[i].TotalProfitUSD.GreaterThan(profiles[j].TotalProfitUSD)
	})
}
