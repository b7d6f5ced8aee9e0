// internal/metrics/metrics.go
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the client's instruments on a private registry, so
// each binary decides whether to expose them.
type Collector struct {
	registry *prometheus.Registry

	discoveryPolls        *prometheus.CounterVec
	discoveryPollDuration prometheus.Histogram
	discoveryTokens       prometheus.Gauge
	lowLiquidityTokens    prometheus.Gauge

	bridgeCalls        *prometheus.CounterVec
	bridgeCallDuration *prometheus.HistogramVec

	balanceRefreshes  *prometheus.CounterVec
	migrationSwitches *prometheus.CounterVec
}

// NewCollector creates a collector with all instruments registered.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		discoveryPolls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cardex_discovery_polls_total",
			Help: "Total discovery polls by status",
		}, []string{"status"}),
		discoveryPollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cardex_discovery_poll_duration_seconds",
			Help:    "Duration of discovery polls",
			Buckets: prometheus.LinearBuckets(0, 0.1, 10),
		}),
		discoveryTokens: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cardex_discovery_tokens",
			Help: "Tokens in the current discovery snapshot",
		}),
		lowLiquidityTokens: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cardex_discovery_low_liquidity_tokens",
			Help: "Tokens flagged below the liquidity threshold",
		}),
		bridgeCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cardex_bridge_calls_total",
			Help: "Total bridge calls by implementation, operation and status",
		}, []string{"impl", "op", "status"}),
		bridgeCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cardex_bridge_call_duration_seconds",
			Help:    "Duration of bridge calls",
			Buckets: prometheus.LinearBuckets(0, 0.1, 10),
		}, []string{"impl", "op"}),
		balanceRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cardex_balance_refreshes_total",
			Help: "Total balance aggregations by status",
		}, []string{"status"}),
		migrationSwitches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cardex_migration_switches_total",
			Help: "Total implementation switches by status",
		}, []string{"status"}),
	}

	registry.MustRegister(
		c.discoveryPolls,
		c.discoveryPollDuration,
		c.discoveryTokens,
		c.lowLiquidityTokens,
		c.bridgeCalls,
		c.bridgeCallDuration,
		c.balanceRefreshes,
		c.migrationSwitches,
	)

	return c
}

// Handler serves the collector in Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordPoll records one discovery poll. Gauges keep their last good
// values across failed polls.
func (c *Collector) RecordPoll(duration time.Duration, tokens, lowLiquidity int, err error) {
	c.discoveryPolls.WithLabelValues(statusLabel(err)).Inc()
	c.discoveryPollDuration.Observe(duration.Seconds())
	if err == nil {
		c.discoveryTokens.Set(float64(tokens))
		c.lowLiquidityTokens.Set(float64(lowLiquidity))
	}
}

// RecordBridgeCall records one wallet bridge round trip.
func (c *Collector) RecordBridgeCall(impl, op string, duration time.Duration, err error) {
	c.bridgeCalls.WithLabelValues(impl, op, statusLabel(err)).Inc()
	c.bridgeCallDuration.WithLabelValues(impl, op).Observe(duration.Seconds())
}

// RecordBalanceRefresh records one balance aggregation.
func (c *Collector) RecordBalanceRefresh(err error) {
	c.balanceRefreshes.WithLabelValues(statusLabel(err)).Inc()
}

// RecordMigration records the outcome of an implementation switch.
func (c *Collector) RecordMigration(err error) {
	c.migrationSwitches.WithLabelValues(statusLabel(err)).Inc()
}

func statusLabel(err error) string {
	if err != nil {
		return "failed"
	}
	return "success"
}
