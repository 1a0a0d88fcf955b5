package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Defaults applied to listing records with missing fields.
const (
	UnknownName    = "Unknown"
	UnknownSymbol  = "???"
	UnknownCreator = "unknown"
	UnknownMint    = "unknown"
)

// Action is the side of a wallet trade.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
)

// NewToken describes a freshly listed token the first time it is seen.
type NewToken struct {
	Address          string
	Name             string
	Symbol           string
	CreatedAt        time.Time
	Creator          string
	InitialLiquidity decimal.Decimal
}

// HolderShare is a single top-holder entry.
type HolderShare struct {
	Address    string
	Percentage decimal.Decimal
}

// MarketSnapshot is a point-in-time view of a token's main trading pair.
type MarketSnapshot struct {
	Address        string
	Name           string
	Symbol         string
	PriceUSD       decimal.Decimal
	PriceChange24h decimal.Decimal
	MarketCapUSD   decimal.Decimal
	LiquidityUSD   decimal.Decimal
	// Holders is not supplied by the pair provider and stays zero.
	Holders     int
	Volume24h   decimal.Decimal
	TopHolders  []HolderShare
	PairAddress string
	DexID       string
}

// WalletProfile is the win-rate classification of a wallet.
type WalletProfile struct {
	Address        string
	WinRate        float64
	TotalTrades    int
	AvgProfitPct   decimal.Decimal
	TotalProfitUSD decimal.Decimal
	LastActive     time.Time
	IsSmartMoney   bool
}

// WalletTrade is a single swap observed for a wallet.
type WalletTrade struct {
	TokenAddress string
	TokenSymbol  string
	Action       Action
	Amount       decimal.Decimal
	PriceUSD     decimal.Decimal
	Timestamp    time.Time
	Signature    string
}

// SmartMoneyTrade is a WalletTrade annotated with the wallet that made it.
type SmartMoneyTrade struct {
	WalletTrade
	Wallet string
}
