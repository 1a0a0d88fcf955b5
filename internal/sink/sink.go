// Package sink forwards detection events to external message buses.
package sink

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"alpha-radar/internal/events"
	"alpha-radar/internal/model"
)

// Event kinds carried in Envelope.Kind.
const (
	KindNewToken        = "new_token"
	KindSmartMoneyTrade = "smart_money_trade"
)

// Envelope wraps one event for the wire.
type Envelope struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Key       string    `json:"key"`
	EmittedAt time.Time `json:"emitted_at"`
	Payload   any       `json:"payload"`
}

// Publisher delivers envelopes to a bus.
type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
	Close() error
}

type tokenPayload struct {
	Address          string          `json:"address"`
	Name             string          `json:"name"`
	Symbol           string          `json:"symbol"`
	CreatedAt        time.Time       `json:"created_at"`
	Creator          string          `json:"creator"`
	InitialLiquidity decimal.Decimal `json:"initial_liquidity_usd"`
}

type tradePayload struct {
	Wallet       string          `json:"wallet"`
	TokenAddress string          `json:"token_address"`
	TokenSymbol  string          `json:"token_symbol"`
	Action       string          `json:"action"`
	Amount       decimal.Decimal `json:"amount"`
	PriceUSD     decimal.Decimal `json:"price_usd"`
	Timestamp    time.Time       `json:"timestamp"`
	Signature    string          `json:"signature"`
}

// NewTokenEnvelope wraps a new-token event keyed by token address.
func NewTokenEnvelope(tok model.NewToken, now time.Time) Envelope {
	return Envelope{
		ID:        uuid.NewString(),
		Kind:      KindNewToken,
		Key:       tok.Address,
		EmittedAt: now.UTC(),
		Payload: tokenPayload{
			Address:          tok.Address,
			Name:             tok.Name,
			Symbol:           tok.Symbol,
			CreatedAt:        tok.CreatedAt.UTC(),
			Creator:          tok.Creator,
			InitialLiquidity: tok.InitialLiquidity,
		},
	}
}

// NewTradeEnvelope wraps a smart-money trade keyed by wallet, so one wallet's
// trades stay ordered on a partitioned bus.
func NewTradeEnvelope(trade model.SmartMoneyTrade, now time.Time) Envelope {
	return Envelope{
		ID:        uuid.NewString(),
		Kind:      KindSmartMoneyTrade,
		Key:       trade.Wallet,
		EmittedAt: now.UTC(),
		Payload: tradePayload{
			Wallet:       trade.Wallet,
			TokenAddress: trade.TokenAddress,
			TokenSymbol:  trade.TokenSymbol,
			Action:       string(trade.Action),
			Amount:       trade.Amount,
			PriceUSD:     trade.PriceUSD,
			Timestamp:    trade.Timestamp.UTC(),
			Signature:    trade.Signature,
		},
	}
}

func encode(env Envelope) ([]byte, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", env.Kind, err)
	}
	return data, nil
}

// TokenHandler adapts pub into a token fan-out subscriber.
func TokenHandler(pub Publisher) events.Handler[model.NewToken] {
	return func(ctx context.Context, tok model.NewToken) error {
		return pub.Publish(ctx, NewTokenEnvelope(tok, time.Now()))
	}
}

// TradeHandler adapts pub into a trade fan-out subscriber.
func TradeHandler(pub Publisher) events.Handler[model.SmartMoneyTrade] {
	return func(ctx context.Context, trade model.SmartMoneyTrade) error {
		return pub.Publish(ctx, NewTradeEnvelope(trade, time.Now()))
	}
}
