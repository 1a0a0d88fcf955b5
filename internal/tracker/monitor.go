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

	"alpha-radar/internal/dedup"
	"alpha-radar/internal/events"
	"alpha-radar/internal/logging"
	"alpha-radar/internal/model"
	"alpha-radar/internal/provider"
	"alpha-radar/internal/registry"
	"alpha-radar/internal/scheduler"
)

// MonitorOptions tune the smart-money monitor.
type MonitorOptions struct {
	Interval time.Duration
	Limit    int
	// StartupDelay gives the initial known-wallet analysis a head start.
	StartupDelay time.Duration
}

// Monitor polls every registered wallet for new swaps.
type Monitor struct {
	opts     MonitorOptions
	history  provider.HistorySource
	prices   PriceSource
	registry *registry.Registry
	seen     *dedup.Set
	out      *events.Fanout[model.SmartMoneyTrade]
	task     *scheduler.Task
	logger   zerolog.Logger

	tickMu sync.Mutex
}

// NewMonitor wires a monitor. seen must be dedicated to transaction signatures.
func NewMonitor(opts MonitorOptions, history provider.HistorySource, prices PriceSource, reg *registry.Registry, seen *dedup.Set, out *events.Fanout[model.SmartMoneyTrade], onFailure func(string), logger zerolog.Logger) *Monitor {
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	if opts.Limit <= 0 {
		opts.Limit = 10
	}
	m := &Monitor{
		opts:     opts,
		history:  history,
		prices:   prices,
		registry: reg,
		seen:     seen,
		out:      out,
		logger:   logger.With().Str("component", "smart_money_monitor").Logger(),
	}
	sched := scheduler.New(scheduler.Options{
		Name:         "smart_money_monitor",
		Interval:     opts.Interval,
		StartupDelay: opts.StartupDelay,
		OnFailure:    onFailure,
	}, logger)
	m.task = scheduler.NewTask(sched, func(ctx context.Context, _ time.Time) error {
		_, err := m.Tick(ctx)
		return err
	})
	return m
}

// Start begins monitoring every Interval.
func (m *Monitor) Start(ctx context.Context) error {
	m.logger.Info().Int("wallets", m.registry.Len()).Msg("start monitoring smart money")
	return m.task.Start(ctx)
}

// Stop cancels future ticks. Safe to call when not started and more than once.
func (m *Monitor) Stop() {
	m.task.Stop()
}

// Running reports whether the recurring schedule is active.
func (m *Monitor) Running() bool {
	return m.task.Running()
}

// Tick checks every registered wallet once. Trades found for healthy wallets
// are published even when other wallets fail; the failures are returned
// joined.
func (m *Monitor) Tick(ctx context.Context) ([]model.SmartMoneyTrade, error) {
	m.tickMu.Lock()
	defer m.tickMu.Unlock()

	wallets := m.registry.Wallets()
	sort.Strings(wallets)
	if len(wallets) == 0 {
		return nil, nil
	}

	var (
		published []model.SmartMoneyTrade
		errs      []error
		solUSD    decimal.Decimal
		priced    bool
	)
	for _, wallet := range wallets {
		txs, err := m.history.Transactions(ctx, wallet, m.opts.Limit)
		if err != nil {
			m.logger.Error().Err(err).Str("wallet", logging.ShortAddr(wallet)).Msg("fetch wallet transactions failed")
			errs = append(errs, fmt.Errorf("wallet %s: %w", wallet, err))
			continue
		}

		for _, tx := range txs {
			if !tx.IsSwap() || len(tx.TokenTransfers) == 0 || tx.Signature == "" {
				continue
			}
			if !m.seen.IsNew(tx.Signature) {
				continue
			}
			if !priced {
				solUSD, priced = m.solPrice(ctx), true
			}

			trade := model.SmartMoneyTrade{WalletTrade: toTrade(wallet, tx, solUSD), Wallet: wallet}
			m.logger.Info().
				Str("wallet", logging.ShortAddr(wallet)).
				Str("action", string(trade.Action)).
				Str("symbol", trade.TokenSymbol).
				Str("amount", trade.Amount.String()).
				Str("signature", trade.Signature).
				Msg("smart money trade detected")

			m.out.Publish(ctx, trade)
			published = append(published, trade)
		}
	}

	if len(errs) > 0 {
		return published, fmt.Errorf("%d of %d wallets failed: %w", len(errs), len(wallets), errors.Join(errs...))
	}
	return published, nil
}

func (m *Monitor) solPrice(ctx context.Context) decimal.Decimal {
	if m.prices != nil {
		if price, ok := m.prices.SOLPrice(ctx); ok && price.IsPositive() {
			return price
		}
	}
	return decimal.Zero
}

// toTrade converts a swap into the wallet's trade record. The USD price is
// derived from the quote side and left zero when it cannot be valued.
func toTrade(wallet string, tx provider.Transaction, solUSD decimal.Decimal) model.WalletTrade {
	trade := model.WalletTrade{
		TokenAddress: model.UnknownMint,
		TokenSymbol:  model.UnknownSymbol,
		Action:       model.ActionBuy,
		Amount:       decimal.Zero,
		PriceUSD:     decimal.Zero,
		Timestamp:    tx.Timestamp,
		Signature:    tx.Signature,
	}
	l, ok := extractLeg(wallet, tx)
	if !ok {
		return trade
	}
	if l.mint != "" {
		trade.TokenAddress = l.mint
	}
	if l.symbol != "" {
		trade.TokenSymbol = l.symbol
	}
	trade.Action = l.action
	trade.Amount = l.amount
	if l.amount.IsPositive() {
		value := l.valueUSD(solUSD)
		if value.IsPositive() {
			trade.PriceUSD = value.Div(l.amount)
		}
	}
	return trade
}
