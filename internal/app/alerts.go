package app

import (
	"context"

	"github.com/rs/zerolog"

	"alpha-radar/internal/alerting"
	"alpha-radar/internal/events"
	"alpha-radar/internal/logging"
	"alpha-radar/internal/model"
	"alpha-radar/internal/registry"
)

// SnapshotSource looks up a token's market state.
type SnapshotSource interface {
	Snapshot(ctx context.Context, mint string) *model.MarketSnapshot
}

// tokenAlertHandler enriches a new token with its market snapshot when
// market is set and forwards it to the notifier. An unlisted token or a
// failed lookup still alerts, without market data.
func tokenAlertHandler(market SnapshotSource, notifier alerting.Notifier, logger zerolog.Logger) events.Handler[model.NewToken] {
	return func(ctx context.Context, tok model.NewToken) error {
		alert := alerting.TokenAlert{Token: tok}
		if market != nil {
			alert.Market = market.Snapshot(ctx, tok.Address)
			if alert.Market == nil {
				logger.Debug().Str("token", logging.ShortAddr(tok.Address)).Msg("token alert without market data")
			}
		}
		return notifier.NotifyToken(ctx, alert)
	}
}

// tradeAlertHandler attaches the wallet's registry profile to the alert.
func tradeAlertHandler(reg *registry.Registry, notifier alerting.Notifier) events.Handler[model.SmartMoneyTrade] {
	return func(ctx context.Context, trade model.SmartMoneyTrade) error {
		alert := alerting.TradeAlert{Trade: trade}
		if profile, ok := reg.Get(trade.Wallet); ok {
			alert.Profile = &profile
		}
		return notifier.NotifyTrade(ctx, alert)
	}
}
