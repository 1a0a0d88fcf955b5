package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"alpha-radar/internal/provider"
)

const (
	testWallet = "vines1vzrYbzLMRdu58ou5XTby4qAqVRLmqo36NKPTg"
	testPool   = "pool1111111111111111111111111111111111111111"
)

var baseTime = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

type fakeHistory struct {
	mu     sync.Mutex
	txs    map[string][]provider.Transaction
	errs   map[string]error
	calls  []string
	limits []int
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{txs: map[string][]provider.Transaction{}, errs: map[string]error{}}
}

func (f *fakeHistory) set(wallet string, txs []provider.Transaction) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txs[wallet] = txs
}

func (f *fakeHistory) fail(wallet string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[wallet] = err
}

func (f *fakeHistory) Transactions(ctx context.Context, wallet string, limit int) ([]provider.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, wallet)
	f.limits = append(f.limits, limit)
	if err := f.errs[wallet]; err != nil {
		return nil, err
	}
	txs := f.txs[wallet]
	if len(txs) > limit {
		txs = txs[:limit]
	}
	return txs, nil
}

var errProviderDown = errors.New("provider down")

// swap builds a SOL-quoted swap of amount tokens of mint for lamports.
func swap(wallet, mint string, action string, amount int64, lamports int64, at time.Time, sig string) provider.Transaction {
	tx := provider.Transaction{Signature: sig, Type: "SWAP", Timestamp: at}
	tr := provider.TokenTransfer{Mint: mint, Symbol: "T" + mint[:3], Amount: decimal.NewFromInt(amount)}
	nt := provider.NativeTransfer{Lamports: lamports}
	if action == "buy" {
		tr.FromAccount, tr.ToAccount = testPool, wallet
		nt.FromAccount, nt.ToAccount = wallet, testPool
	} else {
		tr.FromAccount, tr.ToAccount = wallet, testPool
		nt.FromAccount, nt.ToAccount = testPool, wallet
	}
	tx.TokenTransfers = []provider.TokenTransfer{tr}
	tx.NativeTransfers = []provider.NativeTransfer{nt}
	return tx
}

// roundTrips builds one buy and one sell per asset: wins assets double,
// losses assets halve. The result is newest first like the provider.
func roundTrips(wallet string, wins, losses int) []provider.Transaction {
	var ascending []provider.Transaction
	at := baseTime
	add := func(i int, sellLamports int64) {
		mint := fmt.Sprintf("mint%03d", i)
		ascending = append(ascending, swap(wallet, mint, "buy", 100, 1_000_000_000, at, mint+"-buy"))
		at = at.Add(time.Minute)
		ascending = append(ascending, swap(wallet, mint, "sell", 100, sellLamports, at, mint+"-sell"))
		at = at.Add(time.Minute)
	}
	for i := 0; i < wins; i++ {
		add(i, 2_000_000_000)
	}
	for i := wins; i < wins+losses; i++ {
		add(i, 500_000_000)
	}

	out := make([]provider.Transaction, len(ascending))
	for i := range ascending {
		out[len(ascending)-1-i] = ascending[i]
	}
	return out
}

type countingPairs struct {
	mu    sync.Mutex
	calls int
	pairs []provider.Pair
	err   error
}

func (c *countingPairs) Pairs(ctx context.Context, mint string) ([]provider.Pair, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.pairs, c.err
}

func (c *countingPairs) Search(ctx context.Context, query string) ([]provider.Pair, error) {
	return nil, nil
}
