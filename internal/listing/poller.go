// Package listing turns the new-listings feed into a stream of new-token events.
package listing

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"alpha-radar/internal/dedup"
	"alpha-radar/internal/events"
	"alpha-radar/internal/logging"
	"alpha-radar/internal/model"
	"alpha-radar/internal/provider"
	"alpha-radar/internal/scheduler"
)

// Options tune the poller.
type Options struct {
	Interval     time.Duration
	PageSize     int
	StartupDelay time.Duration
}

// Poller periodically reads the listing feed and publishes unseen tokens.
type Poller struct {
	opts   Options
	feed   provider.ListingFeed
	seen   *dedup.Set
	out    *events.Fanout[model.NewToken]
	task   *scheduler.Task
	logger zerolog.Logger
	now    func() time.Time

	// tickMu serialises scheduled ticks and stream wake-ups.
	tickMu sync.Mutex
}

// NewPoller wires a poller. seen must be dedicated to token addresses.
func NewPoller(opts Options, feed provider.ListingFeed, seen *dedup.Set, out *events.Fanout[model.NewToken], onFailure func(string), logger zerolog.Logger) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Second
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 20
	}

	p := &Poller{
		opts:   opts,
		feed:   feed,
		seen:   seen,
		out:    out,
		logger: logger.With().Str("component", "token_poller").Logger(),
		now:    time.Now,
	}
	sched := scheduler.New(scheduler.Options{
		Name:         "token_poller",
		Interval:     opts.Interval,
		StartupDelay: opts.StartupDelay,
		OnFailure:    onFailure,
	}, logger)
	p.task = scheduler.NewTask(sched, func(ctx context.Context, _ time.Time) error {
		_, err := p.Tick(ctx)
		return err
	})
	return p
}

// Start begins polling every Interval.
func (p *Poller) Start(ctx context.Context) error {
	p.logger.Info().Int("page_size", p.opts.PageSize).Msg("start polling new tokens")
	return p.task.Start(ctx)
}

// Stop cancels future ticks. Safe to call when not started and more than once.
func (p *Poller) Stop() {
	p.task.Stop()
}

// Running reports whether the recurring schedule is active.
func (p *Poller) Running() bool {
	return p.task.Running()
}

// Tick performs one poll and returns the tokens that were published.
func (p *Poller) Tick(ctx context.Context) ([]model.NewToken, error) {
	p.tickMu.Lock()
	defer p.tickMu.Unlock()

	records, err := p.feed.NewListings(ctx, p.opts.PageSize)
	if err != nil {
		return nil, fmt.Errorf("poll new tokens: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	var published []model.NewToken
	for _, rec := range records {
		if !p.seen.IsNew(rec.Address) {
			continue
		}
		token := p.materialize(rec)
		p.logger.Info().
			Str("symbol", token.Symbol).
			Str("name", token.Name).
			Str("address", token.Address).
			Str("creator", logging.ShortAddr(token.Creator)).
			Str("liquidity_usd", token.InitialLiquidity.StringFixed(2)).
			Msg("new token detected")

		p.out.Publish(ctx, token)
		published = append(published, token)
	}
	return published, nil
}

func (p *Poller) materialize(rec provider.ListingRecord) model.NewToken {
	token := model.NewToken{
		Address:          rec.Address,
		Name:             orDefault(rec.Name, model.UnknownName),
		Symbol:           orDefault(rec.Symbol, model.UnknownSymbol),
		CreatedAt:        rec.CreatedAt,
		Creator:          orDefault(rec.Creator, model.UnknownCreator),
		InitialLiquidity: rec.Liquidity,
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = p.now().UTC()
	}
	return token
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
