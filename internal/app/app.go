package app

import (
	"context"
	"errors"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"alpha-radar/internal/alerting"
	"alpha-radar/internal/config"
	"alpha-radar/internal/httpapi"
	"alpha-radar/internal/listing"
	"alpha-radar/internal/marketdata"
	"alpha-radar/internal/observability"
	"alpha-radar/internal/provider"
	"alpha-radar/internal/sink"
	"alpha-radar/internal/storage"
	"alpha-radar/internal/tracker"
	"alpha-radar/internal/version"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

// newProviders builds the provider clients. The returned closer releases the
// RPC connection.
func (a *App) newProviders() (Providers, func()) {
	pc := a.Config.Providers
	moralis := provider.NewMoralis(provider.MoralisOptions{
		BaseURL:   pc.Moralis.BaseURL,
		APIKey:    pc.Moralis.APIKey,
		Timeout:   pc.RequestTimeout,
		UserAgent: pc.UserAgent,
	}, a.Logger)
	helius := provider.NewHelius(provider.HeliusOptions{
		BaseURL:   pc.Helius.BaseURL,
		APIKey:    pc.Helius.APIKey,
		Timeout:   pc.RequestTimeout,
		UserAgent: pc.UserAgent,
	}, a.Logger)
	dex := provider.NewDexScreener(provider.DexScreenerOptions{
		BaseURL:   pc.DexScreener.BaseURL,
		Timeout:   pc.RequestTimeout,
		UserAgent: pc.UserAgent,
	}, a.Logger)

	p := Providers{Listing: moralis, History: helius, Pairs: dex}
	closer := func() {}
	if rpcURL := a.Config.HeliusRPCURL(); rpcURL != "" {
		holders := provider.NewRPCHolders(provider.RPCHolderOptions{RPCURL: rpcURL, Timeout: pc.RequestTimeout}, a.Logger)
		p.Holders = holders
		closer = holders.Close
	}
	return p, closer
}

func (a *App) engineOptions() EngineOptions {
	c := a.Config
	opts := EngineOptions{
		Listing: listing.Options{
			Interval:     c.Listing.Interval,
			PageSize:     c.Listing.PageSize,
			StartupDelay: c.Listing.StartupDelay,
		},
		Profiler: tracker.ProfilerOptions{
			HistoryLimit:       c.Tracker.HistoryLimit,
			WinRateThreshold:   c.Tracker.WinRateThreshold,
			MinTrades:          c.Tracker.MinTrades,
			BatchDelay:         c.Tracker.BatchDelay,
			DemoteOnReanalysis: c.Tracker.DemoteOnReanalysis,
		},
		Monitor: tracker.MonitorOptions{
			Interval:     c.Tracker.MonitorInterval,
			Limit:        c.Tracker.MonitorLimit,
			StartupDelay: c.Tracker.MonitorDelay,
		},
		Market:   marketdata.Options{TopHolders: c.Market.TopHolders, Concurrency: c.Market.Concurrency},
		PriceTTL: c.Tracker.PriceTTL,
	}
	if c.Listing.Stream.Enabled {
		opts.Stream = &listing.StreamOptions{
			URL:            c.HeliusWSURL(),
			ProgramID:      c.Listing.Stream.ProgramID,
			ReconnectDelay: c.Listing.Stream.ReconnectDelay,
		}
	}
	return opts
}

func (a *App) newNotifier() alerting.Notifier {
	if !a.Config.Alerting.Enabled {
		return nil
	}
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, a.Config.Alerting.Timeout, a.Logger)
	}
	return alerting.NewLogNotifier(a.Logger)
}

// subscribeAlerts attaches the notifier to both event streams.
func (a *App) subscribeAlerts(engine *Engine) {
	notifier := a.newNotifier()
	if notifier == nil {
		a.Logger.Warn().Msg("alerting disabled")
		return
	}
	var market SnapshotSource
	if a.Config.Market.EnrichTokens {
		market = engine.Market()
	}
	engine.OnNewToken(tokenAlertHandler(market, notifier, a.Logger))
	engine.OnTrade(tradeAlertHandler(engine.Registry(), notifier))
}

// openSinks connects the enabled message-bus sinks and subscribes them.
func (a *App) openSinks(ctx context.Context, engine *Engine) (func(), error) {
	var pubs []sink.Publisher
	closeAll := func() {
		for _, p := range pubs {
			if err := p.Close(); err != nil {
				a.Logger.Warn().Err(err).Msg("close sink failed")
			}
		}
	}

	sc := a.Config.Sinks
	if sc.Kafka.Enabled {
		kp, err := sink.NewKafkaPublisher(sink.KafkaOptions{Brokers: sc.Kafka.Brokers, Topic: sc.Kafka.Topic, BatchTimeout: sc.Kafka.BatchTimeout})
		if err != nil {
			return closeAll, err
		}
		pubs = append(pubs, kp)
		a.Logger.Info().Str("topic", sc.Kafka.Topic).Str("brokers", strings.Join(sc.Kafka.Brokers, ",")).Msg("kafka sink enabled")
	}
	if sc.Redis.Enabled {
		rp, err := sink.NewRedisPublisher(ctx, sink.RedisOptions{
			Addr:          sc.Redis.Addr,
			Password:      sc.Redis.Password,
			DB:            sc.Redis.DB,
			ChannelPrefix: sc.Redis.ChannelPrefix,
		})
		if err != nil {
			return closeAll, err
		}
		pubs = append(pubs, rp)
		a.Logger.Info().Str("addr", sc.Redis.Addr).Msg("redis sink enabled")
	}

	for _, p := range pubs {
		engine.OnNewToken(sink.TokenHandler(p))
		engine.OnTrade(sink.TradeHandler(p))
	}
	return closeAll, nil
}

// acquireLeadership blocks until this instance holds the advisory lock.
// Without a DSN every instance leads.
func (a *App) acquireLeadership(ctx context.Context) (func(), error) {
	if a.Config.Database.DSN == "" {
		return func() {}, nil
	}
	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, err
	}
	locker := storage.NewLocker(pool, a.Logger)
	unlock, err := storage.AcquireLeadership(ctx, locker, a.Config.Database.AdvisoryLockKey, 5*time.Second, a.Logger)
	if err != nil {
		locker.Close()
		return nil, err
	}
	return func() {
		unlock()
		locker.Close()
	}, nil
}

// Run executes the long-running detection service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if missing := a.Config.MissingCredentials(); len(missing) > 0 {
		a.Logger.Warn().Strs("missing", missing).Msg("provider credentials not configured; affected tasks will fail every tick")
	}

	metrics := observability.NewMetrics(a.Config.Metrics.Namespace)
	providers, closeProviders := a.newProviders()
	defer closeProviders()

	engine := NewEngine(a.engineOptions(), providers, metrics, a.Logger)
	a.subscribeAlerts(engine)

	closeSinks, err := a.openSinks(ctx, engine)
	defer closeSinks()
	if err != nil {
		return err
	}

	var server *httpapi.Server
	if a.Config.HTTP.Enabled {
		server = httpapi.NewServer(a.Config.HTTP.Addr, httpapi.Deps{
			Name:     a.Config.App.Name,
			Version:  version.String(),
			Registry: engine.Registry(),
			Wallets:  engine,
			Tasks: map[string]httpapi.TaskStatus{
				"token_poller":        engine.Poller(),
				"smart_money_monitor": engine.Monitor(),
			},
			Metrics: metrics.Handler(),
		}, a.Logger)
		if err := server.Start(); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelShutdown()
			if err := server.Shutdown(shutdownCtx); err != nil {
				a.Logger.Warn().Err(err).Msg("http shutdown failed")
			}
		}()
	}

	release, err := a.acquireLeadership(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	defer release()

	a.Logger.Info().Int("known_wallets", len(a.Config.Tracker.Wallets)).Msg("starting detection service")
	if err := engine.Start(ctx, a.Config.Tracker.Wallets); err != nil {
		return err
	}

	<-ctx.Done()
	engine.Stop()
	a.Logger.Info().Msg("detection service stopped")
	return nil
}

// newEngine builds an engine for one-shot commands. The closer releases
// provider connections.
func (a *App) newEngine() (*Engine, func()) {
	providers, closer := a.newProviders()
	return NewEngine(a.engineOptions(), providers, nil, a.Logger), closer
}

