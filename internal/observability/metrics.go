// Package observability provides Prometheus metrics for the detection engine.
package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"alpha-radar/internal/model"
)

// Metrics holds the Prometheus collectors, registered on their own registry.
type Metrics struct {
	registry *prometheus.Registry

	// Detection metrics
	TokensDetected prometheus.Counter
	TradesDetected *prometheus.CounterVec

	// Profiling metrics
	WalletsAnalyzed *prometheus.CounterVec
	SmartWallets    prometheus.Gauge

	// Failure metrics
	TickFailures    *prometheus.CounterVec
	HandlerFailures *prometheus.CounterVec
}

// NewMetrics creates the collectors under namespace, together with the Go
// runtime and process collectors.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "alpharadar"
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		TokensDetected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "listing",
			Name:      "new_tokens_detected_total",
			Help:      "Total number of new tokens published",
		}),
		TradesDetected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "smart_money_trades_total",
			Help:      "Total number of smart-money trades published by action",
		}, []string{"action"}),

		WalletsAnalyzed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "wallets_analyzed_total",
			Help:      "Total number of wallet analyses by result",
		}, []string{"result"}),
		SmartWallets: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "smart_wallets",
			Help:      "Current number of wallets in the smart-money registry",
		}),

		TickFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "tick_failures_total",
			Help:      "Total number of failed recurring ticks by task",
		}, []string{"task"}),
		HandlerFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "handler_failures_total",
			Help:      "Total number of failed event handler calls by stream",
		}, []string{"stream"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordTickFailure counts a failed tick of task.
func (m *Metrics) RecordTickFailure(task string) {
	m.TickFailures.WithLabelValues(task).Inc()
}

// RecordHandlerFailure counts a failed subscriber call on stream.
func (m *Metrics) RecordHandlerFailure(stream string) {
	m.HandlerFailures.WithLabelValues(stream).Inc()
}

// RecordAnalysis counts a finished wallet analysis.
func (m *Metrics) RecordAnalysis(profile model.WalletProfile) {
	result := "regular"
	switch {
	case profile.IsSmartMoney:
		result = "smart_money"
	case profile.TotalTrades == 0:
		result = "no_trades"
	}
	m.WalletsAnalyzed.WithLabelValues(result).Inc()
}

// SetSmartWallets updates the registry size gauge.
func (m *Metrics) SetSmartWallets(n int) {
	m.SmartWallets.Set(float64(n))
}

// TokenHandler counts published tokens. It is meant to be subscribed to the
// token fan-out.
func (m *Metrics) TokenHandler(ctx context.Context, _ model.NewToken) error {
	m.TokensDetected.Inc()
	return nil
}

// TradeHandler counts published trades by action.
func (m *Metrics) TradeHandler(ctx context.Context, trade model.SmartMoneyTrade) error {
	m.TradesDetected.WithLabelValues(string(trade.Action)).Inc()
	return nil
}
