package tracker

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alpha-radar/internal/model"
	"alpha-radar/internal/provider"
	"alpha-radar/internal/registry"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestProfiler(history provider.HistorySource, opts ProfilerOptions) (*Profiler, *registry.Registry) {
	reg := registry.New()
	p := NewProfiler(opts, history, FixedPrice(decimal.NewFromInt(1)), reg, zerolog.Nop())
	p.now = func() time.Time { return fixedNow }
	return p, reg
}

func assertInvariant(t *testing.T, p *Profiler, profile model.WalletProfile) {
	t.Helper()
	assert.Equal(t, profile.WinRate > 0.6 && profile.TotalTrades >= 10, profile.IsSmartMoney)
	assert.Equal(t, p.IsSmartMoney(profile.WinRate, profile.TotalTrades), profile.IsSmartMoney)
}

func TestAnalyzeClassifiesSmartMoney(t *testing.T) {
	history := newFakeHistory()
	history.set(testWallet, roundTrips(testWallet, 8, 4))
	p, reg := newTestProfiler(history, ProfilerOptions{})

	profile := p.Analyze(context.Background(), testWallet)

	assert.Equal(t, 12, profile.TotalTrades)
	assert.InDelta(t, 0.667, profile.WinRate, 0.001)
	assert.True(t, profile.IsSmartMoney)
	assert.True(t, profile.TotalProfitUSD.Equal(decimal.NewFromInt(6)), profile.TotalProfitUSD.String())
	assert.True(t, profile.AvgProfitPct.Equal(decimal.NewFromInt(50)), profile.AvgProfitPct.String())
	assert.Equal(t, baseTime.Add(23*time.Minute), profile.LastActive)
	assertInvariant(t, p, profile)

	stored, ok := reg.Get(testWallet)
	require.True(t, ok)
	assert.Equal(t, profile.TotalTrades, stored.TotalTrades)
	assert.Equal(t, []int{100}, history.limits)
}

func TestAnalyzeTooFewTradesIsNotSmart(t *testing.T) {
	history := newFakeHistory()
	history.set(testWallet, roundTrips(testWallet, 9, 0))
	p, reg := newTestProfiler(history, ProfilerOptions{})

	profile := p.Analyze(context.Background(), testWallet)

	assert.Equal(t, 9, profile.TotalTrades)
	assert.Equal(t, 1.0, profile.WinRate)
	assert.False(t, profile.IsSmartMoney)
	assertInvariant(t, p, profile)
	assert.Equal(t, 0, reg.Len())
}

func TestAnalyzeEmptyHistory(t *testing.T) {
	p, reg := newTestProfiler(newFakeHistory(), ProfilerOptions{})

	profile := p.Analyze(context.Background(), testWallet)

	assert.Equal(t, testWallet, profile.Address)
	assert.Zero(t, profile.TotalTrades)
	assert.Zero(t, profile.WinRate)
	assert.True(t, profile.AvgProfitPct.IsZero())
	assert.True(t, profile.TotalProfitUSD.IsZero())
	assert.Equal(t, fixedNow, profile.LastActive)
	assert.False(t, profile.IsSmartMoney)
	assertInvariant(t, p, profile)
	assert.Equal(t, 0, reg.Len())
}

func TestAnalyzeFetchFailureYieldsEmptyProfile(t *testing.T) {
	history := newFakeHistory()
	history.fail(testWallet, errProviderDown)
	p, _ := newTestProfiler(history, ProfilerOptions{})

	profile := p.Analyze(context.Background(), testWallet)

	assert.Zero(t, profile.TotalTrades)
	assert.False(t, profile.IsSmartMoney)
	assert.Equal(t, fixedNow, profile.LastActive)
}

func TestAnalyzeBreakEvenAssetsAreExcluded(t *testing.T) {
	history := newFakeHistory()
	history.set(testWallet, []provider.Transaction{
		swap(testWallet, "mintEVN", "sell", 100, 1_000_000_000, baseTime.Add(time.Minute), "b"),
		swap(testWallet, "mintEVN", "buy", 100, 1_000_000_000, baseTime, "a"),
	})
	p, _ := newTestProfiler(history, ProfilerOptions{})

	profile := p.Analyze(context.Background(), testWallet)

	assert.Zero(t, profile.TotalTrades)
	assert.Zero(t, profile.WinRate)
	assert.True(t, profile.AvgProfitPct.IsZero())
	assert.Equal(t, baseTime.Add(time.Minute), profile.LastActive)
}

func TestAnalyzeCustomThresholds(t *testing.T) {
	history := newFakeHistory()
	history.set(testWallet, roundTrips(testWallet, 3, 2))
	p, reg := newTestProfiler(history, ProfilerOptions{WinRateThreshold: 0.5, MinTrades: 5})

	profile := p.Analyze(context.Background(), testWallet)

	assert.True(t, profile.IsSmartMoney)
	assert.Equal(t, 1, reg.Len())
}

func TestReanalysisKeepsWalletByDefault(t *testing.T) {
	history := newFakeHistory()
	history.set(testWallet, roundTrips(testWallet, 8, 4))
	p, reg := newTestProfiler(history, ProfilerOptions{})

	require.True(t, p.Analyze(context.Background(), testWallet).IsSmartMoney)

	history.set(testWallet, roundTrips(testWallet, 1, 11))
	assert.False(t, p.Analyze(context.Background(), testWallet).IsSmartMoney)

	stored, ok := reg.Get(testWallet)
	require.True(t, ok)
	assert.Equal(t, 12, stored.TotalTrades)
	assert.InDelta(t, 0.667, stored.WinRate, 0.001)
}

func TestReanalysisDemotesWhenEnabled(t *testing.T) {
	history := newFakeHistory()
	history.set(testWallet, roundTrips(testWallet, 8, 4))
	p, reg := newTestProfiler(history, ProfilerOptions{DemoteOnReanalysis: true})

	require.True(t, p.Analyze(context.Background(), testWallet).IsSmartMoney)
	require.Equal(t, 1, reg.Len())

	history.set(testWallet, roundTrips(testWallet, 1, 11))
	p.Analyze(context.Background(), testWallet)

	_, ok := reg.Get(testWallet)
	assert.False(t, ok)
}

func TestFailedFetchDoesNotDemote(t *testing.T) {
	history := newFakeHistory()
	history.set(testWallet, roundTrips(testWallet, 8, 4))
	p, reg := newTestProfiler(history, ProfilerOptions{DemoteOnReanalysis: true})

	require.True(t, p.Analyze(context.Background(), testWallet).IsSmartMoney)

	history.fail(testWallet, errProviderDown)
	assert.False(t, p.Analyze(context.Background(), testWallet).IsSmartMoney)
	_, ok := reg.Get(testWallet)
	assert.True(t, ok)

	history.fail(testWallet, nil)
	history.set(testWallet, nil)
	p.Analyze(context.Background(), testWallet)
	_, ok = reg.Get(testWallet)
	assert.True(t, ok)
}

func TestAnalyzeManyKeepsInputOrder(t *testing.T) {
	history := newFakeHistory()
	history.set("w2", roundTrips("w2", 8, 4))
	p, reg := newTestProfiler(history, ProfilerOptions{BatchDelay: time.Millisecond})

	var hooked []string
	p.OnAnalyzed(func(profile model.WalletProfile) { hooked = append(hooked, profile.Address) })

	profiles, err := p.AnalyzeMany(context.Background(), []string{"w1", "w2", "w3"})
	require.NoError(t, err)
	require.Len(t, profiles, 3)
	assert.Equal(t, "w1", profiles[0].Address)
	assert.Equal(t, "w2", profiles[1].Address)
	assert.Equal(t, "w3", profiles[2].Address)
	assert.True(t, profiles[1].IsSmartMoney)
	assert.Equal(t, []string{"w1", "w2", "w3"}, hooked)
	assert.Equal(t, []string{"w2"}, reg.Wallets())
}

func TestAnalyzeManyPausesBetweenWallets(t *testing.T) {
	p, _ := newTestProfiler(newFakeHistory(), ProfilerOptions{BatchDelay: 20 * time.Millisecond})

	start := time.Now()
	_, err := p.AnalyzeMany(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestAnalyzeManyStopsOnCancel(t *testing.T) {
	history := newFakeHistory()
	p, _ := newTestProfiler(history, ProfilerOptions{BatchDelay: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	profiles, err := p.AnalyzeMany(ctx, []string{"a", "b", "c"})
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, profiles, 1)
	assert.Equal(t, []string{"a"}, history.calls)
}

func TestAddKnownWallet(t *testing.T) {
	history := newFakeHistory()
	history.set(testWallet, roundTrips(testWallet, 8, 4))
	p, reg := newTestProfiler(history, ProfilerOptions{})

	require.Error(t, p.AddKnownWallet(context.Background(), "not-a-wallet"))
	require.NoError(t, p.AddKnownWallet(context.Background(), testWallet))
	p.Wait()

	_, ok := reg.Get(testWallet)
	assert.True(t, ok)
}

func TestAnalyzeValuesSOLWithOracle(t *testing.T) {
	history := newFakeHistory()
	history.set(testWallet, roundTrips(testWallet, 1, 0))
	pairs := &countingPairs{pairs: []provider.Pair{{BaseAddress: WrappedSOLMint, PriceUSD: decimal.NewFromInt(150), LiquidityUSD: decimal.NewFromInt(1000)}}}
	p := NewProfiler(ProfilerOptions{}, history, NewQuoteOracle(pairs, time.Minute, zerolog.Nop()), nil, zerolog.Nop())

	profile := p.Analyze(context.Background(), testWallet)
	assert.True(t, profile.TotalProfitUSD.Equal(decimal.NewFromInt(150)), profile.TotalProfitUSD.String())
}

func TestSortByWinRate(t *testing.T) {
	profiles := []model.WalletProfile{
		{Address: "low", WinRate: 0.2, TotalProfitUSD: decimal.NewFromInt(100)},
		{Address: "high-small", WinRate: 0.9, TotalProfitUSD: decimal.NewFromInt(1)},
		{Address: "high-big", WinRate: 0.9, TotalProfitUSD: decimal.NewFromInt(5)},
	}
	SortByWinRate(profiles)
	assert.Equal(t, "high-big", profiles[0].Address)
	assert.Equal(t, "high-small", profiles[1].Address)
	assert.Equal(t, "low", profiles[2].Address)
}
