package observability

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alpha-radar/internal/model"
)

func TestMetricsAreIndependentPerInstance(t *testing.T) {
	a := NewMetrics("")
	b := NewMetrics("")

	require.NoError(t, a.TokenHandler(context.Background(), model.NewToken{}))
	require.NoError(t, a.TokenHandler(context.Background(), model.NewToken{}))

	assert.Equal(t, 2.0, testutil.ToFloat64(a.TokensDetected))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.TokensDetected))
}

func TestRecordHelpers(t *testing.T) {
	m := NewMetrics("test")

	require.NoError(t, m.TradeHandler(context.Background(), model.SmartMoneyTrade{WalletTrade: model.WalletTrade{Action: model.ActionSell}}))
	m.RecordTickFailure("token_poller")
	m.RecordHandlerFailure("tokens")
	m.RecordAnalysis(model.WalletProfile{IsSmartMoney: true, TotalTrades: 12})
	m.RecordAnalysis(model.WalletProfile{})
	m.SetSmartWallets(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.TradesDetected.WithLabelValues("sell")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TickFailures.WithLabelValues("token_poller")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HandlerFailures.WithLabelValues("tokens")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WalletsAnalyzed.WithLabelValues("smart_money")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WalletsAnalyzed.WithLabelValues("no_trades")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.SmartWallets))
}

func TestHandlerServesMetrics(t *testing.T) {
	m := NewMetrics("")
	m.RecordTickFailure("smart_money_monitor")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `alpharadar_scheduler_tick_failures_total{task="smart_money_monitor"} 1`)
}
