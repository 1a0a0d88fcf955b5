package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alpha-radar/internal/model"
	"alpha-radar/internal/registry"
)

type recordingAdder struct {
	wallets []string
	ctxErr  error
}

func (r *recordingAdder) AddKnownWallet(ctx context.Context, wallet string) error {
	if err := model.ValidateAddress(wallet); err != nil {
		return err
	}
	r.wallets = append(r.wallets, wallet)
	r.ctxErr = ctx.Err()
	return nil
}

type fixedTask bool

func (f fixedTask) Running() bool { return bool(f) }

func newTestServer() (*Server, *registry.Registry) {
	reg := registry.New()
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("metric 1\n"))
	})
	s := NewServer("127.0.0.1:0", Deps{
		Name:     "alpharadar",
		Version:  "test",
		Registry: reg,
		Tasks:    map[string]TaskStatus{"token_poller": fixedTask(true), "smart_money_monitor": fixedTask(false)},
		Metrics:  metrics,
	}, zerolog.Nop())
	return s, reg
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	s, reg := newTestServer()
	reg.Upsert(model.WalletProfile{Address: "w1", IsSmartMoney: true})

	rec := get(t, s.Handler(), "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, 1, body.SmartWallets)
	assert.True(t, body.Tasks["token_poller"])
	assert.False(t, body.Tasks["smart_money_monitor"])
}

func TestIndex(t *testing.T) {
	s, _ := newTestServer()

	rec := get(t, s.Handler(), "/")
	require.Equal(t, http.StatusOK, rec.Code)

	var body indexResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "alpharadar", body.Name)
	assert.Equal(t, []string{"/api/smart-wallets", "/health", "/metrics"}, body.Endpoints)

	assert.Equal(t, http.StatusNotFound, get(t, s.Handler(), "/nope").Code)
}

func TestSmartWalletsRanked(t *testing.T) {
	s, reg := newTestServer()
	reg.Upsert(model.WalletProfile{Address: "low", WinRate: 0.65, TotalTrades: 10, TotalProfitUSD: decimal.NewFromInt(5)})
	reg.Upsert(model.WalletProfile{Address: "high", WinRate: 0.9, TotalTrades: 20, TotalProfitUSD: decimal.NewFromInt(50)})

	rec := get(t, s.Handler(), "/api/smart-wallets")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count   int `json:"count"`
		Wallets []struct {
			Address        string `json:"address"`
			TotalProfitUSD string `json:"total_profit_usd"`
		} `json:"wallets"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	require.Len(t, body.Wallets, 2)
	assert.Equal(t, "high", body.Wallets[0].Address)
	assert.Equal(t, "50", body.Wallets[0].TotalProfitUSD)
}

func TestAddWallet(t *testing.T) {
	adder := &recordingAdder{}
	s := NewServer("127.0.0.1:0", Deps{Registry: registry.New(), Wallets: adder}, zerolog.Nop())

	post := func(body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/smart-wallets", strings.NewReader(body)))
		return rec
	}

	rec := post(`{"address":"vines1vzrYbzLMRdu58ou5XTby4qAqVRLmqo36NKPTg"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []string{"vines1vzrYbzLMRdu58ou5XTby4qAqVRLmqo36NKPTg"}, adder.wallets)
	assert.NoError(t, adder.ctxErr)

	assert.Equal(t, http.StatusBadRequest, post(`{"address":"not a wallet"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(`{`).Code)
	assert.Len(t, adder.wallets, 1)
}

func TestAddWalletDisabledWithoutAdder(t *testing.T) {
	s, _ := newTestServer()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/smart-wallets", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestMetricsRoute(t *testing.T) {
	s, _ := newTestServer()
	rec := get(t, s.Handler(), "/metrics")
	assert.Equal(t, "metric 1\n", rec.Body.String())
}

func TestStartAndShutdown(t *testing.T) {
	s, _ := newTestServer()
	require.NoError(t, s.Start())

	resp, err := http.Get("http://" + s.Addr() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
}

func TestStartBindFailure(t *testing.T) {
	first, _ := newTestServer()
	require.NoError(t, first.Start())
	defer first.Shutdown(context.Background())

	second := NewServer(first.Addr(), Deps{}, zerolog.Nop())
	assert.Error(t, second.Start())
}
