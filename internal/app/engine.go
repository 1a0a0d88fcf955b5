package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"alpha-radar/internal/dedup"
	"alpha-radar/internal/events"
	"alpha-radar/internal/listing"
	"alpha-radar/internal/marketdata"
	"alpha-radar/internal/model"
	"alpha-radar/internal/observability"
	"alpha-radar/internal/provider"
	"alpha-radar/internal/registry"
	"alpha-radar/internal/tracker"
)

// Providers are the external data sources the engine reads.
type Providers struct {
	Listing provider.ListingFeed
	History provider.HistorySource
	Pairs   provider.PairSource
	Holders provider.HolderSource
}

// EngineOptions tune the engine components.
type EngineOptions struct {
	Listing  listing.Options
	Stream   *listing.StreamOptions
	Profiler tracker.ProfilerOptions
	Monitor  tracker.MonitorOptions
	Market   marketdata.Options
	PriceTTL time.Duration
}

// Engine owns the detection state: the smart-money registry, one
// deduplicator per identifier domain and one fan-out per event type.
type Engine struct {
	registry  *registry.Registry
	tokens    *events.Fanout[model.NewToken]
	trades    *events.Fanout[model.SmartMoneyTrade]
	tokenSeen *dedup.Set
	txSeen    *dedup.Set

	poller   *listing.Poller
	stream   *listing.Stream
	monitor  *tracker.Monitor
	profiler *tracker.Profiler
	market   *marketdata.Service

	logger zerolog.Logger
	wg     sync.WaitGroup
}

// NewEngine wires every component. metrics may be nil.
func NewEngine(opts EngineOptions, p Providers, metrics *observability.Metrics, logger zerolog.Logger) *Engine {
	e := &Engine{
		registry:  registry.New(),
		tokens:    events.NewFanout[model.NewToken]("tokens", logger),
		trades:    events.NewFanout[model.SmartMoneyTrade]("trades", logger),
		tokenSeen: dedup.New(),
		txSeen:    dedup.New(),
		logger:    logger.With().Str("component", "engine").Logger(),
	}

	var onTickFailure func(string)
	if metrics != nil {
		onTickFailure = metrics.RecordTickFailure
		e.tokens.OnFailure(metrics.RecordHandlerFailure)
		e.trades.OnFailure(metrics.RecordHandlerFailure)
		e.tokens.Subscribe(metrics.TokenHandler)
		e.trades.Subscribe(metrics.TradeHandler)
	}

	oracle := tracker.NewQuoteOracle(p.Pairs, opts.PriceTTL, logger)
	e.market = marketdata.New(opts.Market, p.Pairs, p.Holders, logger)
	e.poller = listing.NewPoller(opts.Listing, p.Listing, e.tokenSeen, e.tokens, onTickFailure, logger)
	e.monitor = tracker.NewMonitor(opts.Monitor, p.History, oracle, e.registry, e.txSeen, e.trades, onTickFailure, logger)
	e.profiler = tracker.NewProfiler(opts.Profiler, p.History, oracle, e.registry, logger)
	if metrics != nil {
		e.profiler.OnAnalyzed(func(profile model.WalletProfile) {
			metrics.RecordAnalysis(profile)
			metrics.SetSmartWallets(e.registry.Len())
		})
	}
	if opts.Stream != nil {
		e.stream = listing.NewStream(*opts.Stream, e.poller, logger)
	}
	return e
}

// OnNewToken subscribes to new-token events.
func (e *Engine) OnNewToken(h events.Handler[model.NewToken]) {
	e.tokens.Subscribe(h)
}

// OnTrade subscribes to smart-money trade events.
func (e *Engine) OnTrade(h events.Handler[model.SmartMoneyTrade]) {
	e.trades.Subscribe(h)
}

// Start launches the poller, the monitor and the optional log stream, then
// seeds the registry from wallets in the background.
func (e *Engine) Start(ctx context.Context, wallets []string) error {
	if err := e.poller.Start(ctx); err != nil {
		return err
	}
	if err := e.monitor.Start(ctx); err != nil {
		e.poller.Stop()
		return err
	}
	if e.stream != nil {
		if err := e.stream.Start(ctx); err != nil {
			e.logger.Warn().Err(err).Msg("listing stream disabled")
		}
	}

	if len(wallets) > 0 {
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			profiles, err := e.profiler.AnalyzeMany(ctx, wallets)
			smart := 0
			for _, p := range profiles {
				if p.IsSmartMoney {
					smart++
				}
			}
			log := e.logger.Info()
			if err != nil {
				log = e.logger.Warn().Err(err)
			}
			log.Int("requested", len(wallets)).Int("analyzed", len(profiles)).Int("smart_money", smart).Msg("known wallets analyzed")
		}()
	}
	return nil
}

// Stop halts every task and waits for in-flight work.
func (e *Engine) Stop() {
	if e.stream != nil {
		e.stream.Stop()
	}
	e.poller.Stop()
	e.monitor.Stop()
	e.wg.Wait()
	e.profiler.Wait()
}

// Analyze profiles one wallet.
func (e *Engine) Analyze(ctx context.Context, wallet string) model.WalletProfile {
	return e.profiler.Analyze(ctx, wallet)
}

// AnalyzeMany profiles wallets sequentially.
func (e *Engine) AnalyzeMany(ctx context.Context, wallets []string) ([]model.WalletProfile, error) {
	return e.profiler.AnalyzeMany(ctx, wallets)
}

// AddKnownWallet analyzes a wallet in the background.
func (e *Engine) AddKnownWallet(ctx context.Context, wallet string) error {
	return e.profiler.AddKnownWallet(ctx, wallet)
}

// Snapshot returns the market snapshot of a token, or nil when it is unlisted
// or the providers could not be reached.
func (e *Engine) Snapshot(ctx context.Context, mint string) *model.MarketSnapshot {
	return e.market.Snapshot(ctx, mint)
}

// SmartWallets lists the registry, best first.
func (e *Engine) SmartWallets() []model.WalletProfile {
	return e.registry.Ranked()
}

// Registry exposes the smart-money registry.
func (e *Engine) Registry() *registry.Registry { return e.registry }

// Poller exposes the new-token poller.
func (e *Engine) Poller() *listing.Poller { return e.poller }

// Monitor exposes the smart-money monitor.
func (e *Engine) Monitor() *tracker.Monitor { return e.monitor }

// Market exposes the market data service.
func (e *Engine) Market() *marketdata.Service { return e.market }
