package app

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"alpha-radar/internal/provider"
)

// SimulateOptions describe the fake listing pushed through the pipeline.
type SimulateOptions struct {
	Address   string
	Symbol    string
	Liquidity decimal.Decimal
}

// SimulateAlert 通过静态上币数据模拟一次新币告警流程。
func (a *App) SimulateAlert(ctx context.Context, opts SimulateOptions) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting 未启用")
	}

	providers, closer := a.newProviders()
	defer closer()
	providers.Listing = &staticListingFeed{record: provider.ListingRecord{
		Address:   opts.Address,
		Name:      "Simulated " + opts.Symbol,
		Symbol:    opts.Symbol,
		CreatedAt: time.Now().UTC(),
		Creator:   "simulated",
		Liquidity: opts.Liquidity,
	}}

	engine := NewEngine(a.engineOptions(), providers, nil, a.Logger)
	a.subscribeAlerts(engine)

	published, err := engine.Poller().Tick(ctx)
	if err != nil {
		return err
	}
	if len(published) == 0 {
		return errors.New("模拟代币未被发布")
	}
	return nil
}

type staticListingFeed struct {
	record provider.ListingRecord
}

func (s *staticListingFeed) NewListings(ctx context.Context, limit int) ([]provider.ListingRecord, error) {
	return []provider.ListingRecord{s.record}, nil
}

var _ provider.ListingFeed = (*staticListingFeed)(nil)
