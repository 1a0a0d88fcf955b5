package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestMoralisMissingKey(t *testing.T) {
	m := NewMoralis(MoralisOptions{}, noopLogger())
	_, err := m.NewListings(context.Background(), 20)
	require.Error(t, err)
}

func TestMoralisNewListings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, moralisNewTokensPath, r.URL.Path)
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		assert.Equal(t, "key", r.Header.Get("X-API-Key"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":[
			{"tokenAddress":"mintA","name":"Alpha","symbol":"ALP","createdAt":"2024-05-01T10:00:00.000Z","liquidity":"1234.5"},
			{"tokenAddress":"mintB","liquidity":null},
			{"name":"no address"}
		]}`))
	}))
	defer srv.Close()

	m := NewMoralis(MoralisOptions{BaseURL: srv.URL, APIKey: "key", Timeout: time.Second}, noopLogger())
	records, err := m.NewListings(context.Background(), 20)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "mintA", records[0].Address)
	assert.Equal(t, "ALP", records[0].Symbol)
	assert.True(t, records[0].Liquidity.Equal(decimal.RequireFromString("1234.5")))
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), records[0].CreatedAt)

	assert.Equal(t, "mintB", records[1].Address)
	assert.Empty(t, records[1].Name)
	assert.True(t, records[1].Liquidity.IsZero())
	assert.True(t, records[1].CreatedAt.IsZero())
}

func TestMoralisHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "Invalid key"})
	}))
	defer srv.Close()

	m := NewMoralis(MoralisOptions{BaseURL: srv.URL, APIKey: "bad"}, noopLogger())
	_, err := m.NewListings(context.Background(), 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid key")
	assert.Contains(t, err.Error(), "401")
}

func TestParseListingTime(t *testing.T) {
	assert.True(t, parseListingTime("").IsZero())
	assert.True(t, parseListingTime("yesterday").IsZero())
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), parseListingTime("1700000000"))
	assert.Equal(t, time.UnixMilli(1700000000123).UTC(), parseListingTime("1700000000123"))
}

func TestHeliusTransactions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v0/addresses/wallet1/transactions", r.URL.Path)
		assert.Equal(t, "key", r.URL.Query().Get("api-key"))
		assert.Equal(t, "100", r.URL.Query().Get("limit"))

		_, _ = w.Write([]byte(`[{
			"signature":"sig1","type":"SWAP","timestamp":1700000000,
			"tokenTransfers":[{"fromUserAccount":"pool","toUserAccount":"wallet1","mint":"mintA","tokenAmount":1500.25}],
			"nativeTransfers":[{"fromUserAccount":"wallet1","toUserAccount":"pool","amount":2000000000}]
		},{"signature":"sig2","type":"TRANSFER","timestamp":1699999000}]`))
	}))
	defer srv.Close()

	h := NewHelius(HeliusOptions{BaseURL: srv.URL, APIKey: "key"}, noopLogger())
	txs, err := h.Transactions(context.Background(), "wallet1", 100)
	require.NoError(t, err)
	require.Len(t, txs, 2)

	assert.True(t, txs[0].IsSwap())
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), txs[0].Timestamp)
	require.Len(t, txs[0].TokenTransfers, 1)
	assert.Equal(t, "mintA", txs[0].TokenTransfers[0].Mint)
	assert.True(t, txs[0].TokenTransfers[0].Amount.Equal(decimal.RequireFromString("1500.25")))
	require.Len(t, txs[0].NativeTransfers, 1)
	assert.EqualValues(t, 2_000_000_000, txs[0].NativeTransfers[0].Lamports)

	assert.False(t, txs[1].IsSwap())
	assert.Empty(t, txs[1].TokenTransfers)
}

func TestHeliusMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not":"an array"}`))
	}))
	defer srv.Close()

	h := NewHelius(HeliusOptions{BaseURL: srv.URL, APIKey: "key"}, noopLogger())
	_, err := h.Transactions(context.Background(), "wallet1", 10)
	require.Error(t, err)
}

func TestDexScreenerPairs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/tokens/unknown":
			_, _ = w.Write([]byte(`{"schemaVersion":"1.0.0","pairs":null}`))
		case r.URL.Path == "/tokens/mintA":
			_, _ = w.Write([]byte(`{"pairs":[
				{"dexId":"raydium","pairAddress":"p1","baseToken":{"address":"mintA","name":"Alpha","symbol":"ALP"},
				 "priceUsd":"0.0012","priceChange":{"h24":-3.5},"volume":{"h24":1000},"liquidity":{"usd":500},"marketCap":12000},
				{"dexId":"orca","pairAddress":"p2","baseToken":{"address":"mintA","name":"Alpha","symbol":"ALP"},"priceUsd":"0.0013"}
			]}`))
		case strings.HasPrefix(r.URL.Path, "/search"):
			assert.Equal(t, "alpha coin", r.URL.Query().Get("q"))
			_, _ = w.Write([]byte(`{"pairs":[{"pairAddress":"p9","baseToken":{"symbol":"ALP"}}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	d := NewDexScreener(DexScreenerOptions{BaseURL: srv.URL}, noopLogger())

	pairs, err := d.Pairs(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Empty(t, pairs)

	pairs, err = d.Pairs(context.Background(), "mintA")
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	assert.Equal(t, "raydium", pairs[0].DexID)
	assert.True(t, pairs[0].LiquidityUSD.Equal(decimal.NewFromInt(500)))
	assert.True(t, pairs[0].PriceChange24h.Equal(decimal.RequireFromString("-3.5")))
	assert.True(t, pairs[1].LiquidityUSD.IsZero())

	found, err := d.Search(context.Background(), "alpha coin")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "p9", found[0].PairAddress)

	_, err = d.Search(context.Background(), "  ")
	require.Error(t, err)
}

func TestRPCHoldersMissingConfig(t *testing.T) {
	h := NewRPCHolders(RPCHolderOptions{}, noopLogger())
	_, err := h.LargestAccounts(context.Background(), "mintA", 10)
	require.Error(t, err)
}

func TestRPCHoldersLargestAccounts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
			Params []string        `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"mintA"}, req.Params)

		var result any
		switch req.Method {
		case "getTokenLargestAccounts":
			result = map[string]any{"value": []map[string]any{
				{"address": "acc1", "amount": "500000", "decimals": 3, "uiAmountString": "500"},
				{"address": "acc2", "amount": "250000", "decimals": 3, "uiAmountString": "250"},
				{"address": "acc3", "amount": "100000", "decimals": 3, "uiAmountString": "100"},
			}}
		case "getTokenSupply":
			result = map[string]any{"value": map[string]any{"amount": "1000000", "decimals": 3, "uiAmountString": "1000"}}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": result})
	}))
	defer srv.Close()

	h := NewRPCHolders(RPCHolderOptions{RPCURL: srv.URL, Timeout: time.Second}, noopLogger())
	defer h.Close()

	holders, err := h.LargestAccounts(context.Background(), "mintA", 2)
	require.NoError(t, err)
	require.Len(t, holders, 2)
	assert.Equal(t, "acc1", holders[0].Address)
	assert.True(t, holders[0].Percentage.Equal(decimal.NewFromInt(50)), holders[0].Percentage.String())
	assert.True(t, holders[1].Percentage.Equal(decimal.NewFromInt(25)))
}

func TestFlexDecimal(t *testing.T) {
	var v struct {
		A flexDecimal `json:"a"`
		B flexDecimal `json:"b"`
		C flexDecimal `json:"c"`
		D flexDecimal `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"1.5","b":2,"c":"","d":null}`), &v))
	assert.True(t, v.A.Equal(decimal.RequireFromString("1.5")))
	assert.True(t, v.B.Equal(decimal.NewFromInt(2)))
	assert.True(t, v.C.IsZero())
	assert.True(t, v.D.IsZero())
}
