package tracker

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"alpha-radar/internal/model"
	"alpha-radar/internal/provider"
)

// Quote assets. Transfers of these mints price a swap rather than being the
// traded asset.
const (
	WrappedSOLMint = "So11111111111111111111111111111111111111112"
	USDCMint       = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	USDTMint       = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"
)

var lamportsPerSOL = decimal.New(1, 9)

func isQuoteMint(mint string) bool {
	switch mint {
	case WrappedSOLMint, USDCMint, USDTMint:
		return true
	}
	return false
}

func isStableMint(mint string) bool {
	return mint == USDCMint || mint == USDTMint
}

// leg is one side of a wallet's position in a single asset.
type leg struct {
	mint      string
	symbol    string
	action    model.Action
	amount    decimal.Decimal
	quoteSOL  decimal.Decimal
	quoteUSD  decimal.Decimal
	at        time.Time
	signature string
}

// valueUSD converts the quote side of the leg using solUSD per SOL.
func (l leg) valueUSD(solUSD decimal.Decimal) decimal.Decimal {
	return l.quoteUSD.Add(l.quoteSOL.Mul(solUSD))
}

// primaryTransfer returns the traded asset movement of a transaction: the
// first transfer whose mint is not a quote asset, else the first transfer.
func primaryTransfer(tx provider.Transaction) (int, bool) {
	if len(tx.TokenTransfers) == 0 {
		return -1, false
	}
	for i, tr := range tx.TokenTransfers {
		if tr.Mint != "" && !isQuoteMint(tr.Mint) {
			return i, true
		}
	}
	return 0, true
}

// actionFor is sell when the wallet sent the primary asset, buy otherwise.
func actionFor(wallet string, tr provider.TokenTransfer) model.Action {
	if tr.FromAccount == wallet {
		return model.ActionSell
	}
	return model.ActionBuy
}

// extractLeg reads the wallet's side of a transaction. Quote value is what
// the wallet paid on a buy or received on a sell.
func extractLeg(wallet string, tx provider.Transaction) (leg, bool) {
	idx, ok := primaryTransfer(tx)
	if !ok {
		return leg{}, false
	}
	primary := tx.TokenTransfers[idx]

	l := leg{
		mint:      primary.Mint,
		symbol:    primary.Symbol,
		action:    actionFor(wallet, primary),
		amount:    primary.Amount.Abs(),
		quoteSOL:  decimal.Zero,
		quoteUSD:  decimal.Zero,
		at:        tx.Timestamp,
		signature: tx.Signature,
	}

	counts := func(from, to string) bool {
		if l.action == model.ActionBuy {
			return from == wallet
		}
		return to == wallet
	}

	for i, tr := range tx.TokenTransfers {
		if i == idx || !isQuoteMint(tr.Mint) || !counts(tr.FromAccount, tr.ToAccount) {
			continue
		}
		if isStableMint(tr.Mint) {
			l.quoteUSD = l.quoteUSD.Add(tr.Amount.Abs())
		} else {
			l.quoteSOL = l.quoteSOL.Add(tr.Amount.Abs())
		}
	}
	for _, nt := range tx.NativeTransfers {
		if nt.Lamports == 0 || !counts(nt.FromAccount, nt.ToAccount) {
			continue
		}
		l.quoteSOL = l.quoteSOL.Add(decimal.NewFromInt(nt.Lamports).Abs().Div(lamportsPerSOL))
	}
	return l, true
}

// groupLegs buckets legs by asset mint. txs are newest first, as providers
// return them; each bucket comes out oldest first so that legs sharing a
// timestamp keep their on-chain order. Transactions without a recognisable
// transfer are dropped.
func groupLegs(wallet string, txs []provider.Transaction) map[string][]leg {
	groups := make(map[string][]leg)
	for i := len(txs) - 1; i >= 0; i-- {
		l, ok := extractLeg(wallet, txs[i])
		if !ok || l.mint == "" {
			continue
		}
		groups[l.mint] = append(groups[l.mint], l)
	}
	return groups
}

type lot struct {
	qty  decimal.Decimal
	cost decimal.Decimal
}

// realizedProfit matches sells against earlier buys first-in first-out and
// returns proceeds minus matched cost. Sold quantity with no inventory
// behind it is ignored, as is any inventory still held.
func realizedProfit(legs []leg, solUSD decimal.Decimal) decimal.Decimal {
	ordered := make([]leg, len(legs))
	copy(ordered, legs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].at.Before(ordered[j].at)
	})

	var lots []lot
	profit := decimal.Zero
	for _, l := range ordered {
		if !l.amount.IsPositive() {
			continue
		}
		value := l.valueUSD(solUSD)

		if l.action == model.ActionBuy {
			lots = append(lots, lot{qty: l.amount, cost: value})
			continue
		}

		remaining := l.amount
		for remaining.IsPositive() && len(lots) > 0 {
			head := &lots[0]
			take := decimal.Min(remaining, head.qty)
			matchedCost := head.cost.Mul(take).Div(head.qty)
			proceeds := value.Mul(take).Div(l.amount)
			profit = profit.Add(proceeds.Sub(matchedCost))

			head.qty = head.qty.Sub(take)
			head.cost = head.cost.Sub(matchedCost)
			remaining = remaining.Sub(take)
			if !head.qty.IsPositive() {
				lots = lots[1:]
			}
		}
	}
	return profit
}
