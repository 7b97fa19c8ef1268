// Package metrics exposes the simulation's Prometheus instrumentation.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ticksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "exchange_ticks_total",
		Help: "Completed live tick cycles",
	})
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "exchange_tick_duration_seconds",
		Help:    "Time spent computing and writing one tick cycle",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
	})
	tradesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "exchange_trades_total",
		Help: "Executed trades by side",
	}, []string{"side"})
	tradesRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "exchange_trades_rejected_total",
		Help: "Orders rejected by validation",
	})
	storeWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "exchange_store_write_failures_total",
		Help: "Document store writes that returned an error",
	})
	numericAnomalies = promauto.NewCounter(prometheus.CounterOpts{
		Name: "exchange_numeric_anomalies_total",
		Help: "Non-finite values caught before reaching the store",
	})
	leadershipChanges = promauto.NewCounter(prometheus.CounterOpts{
		Name: "exchange_leadership_changes_total",
		Help: "Times this process gained or lost the market controller lease",
	})
)

func TickCompleted(d time.Duration) {
	ticksTotal.Inc()
	tickDuration.Observe(d.Seconds())
}

func TradeExecuted(side string) { tradesTotal.WithLabelValues(side).Inc() }

func TradeRejected() { tradesRejected.Inc() }

func StoreWriteFailed() { storeWriteFailures.Inc() }

func NumericAnomaly() { numericAnomalies.Inc() }

func LeadershipChanged() { leadershipChanges.Inc() }

// Handler serves the registry for scraping.
func Handler() http.Handler { return promhttp.Handler() }
