package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	QuoteBid = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "spread_quote_bid",
		Help: "Best bid of the last successful round",
	}, []string{"venue", "pair"})

	QuoteAsk = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "spread_quote_ask",
		Help: "Best ask of the last successful round",
	}, []string{"venue", "pair"})

	FetchErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spread_fetch_errors_total",
		Help: "Failed order book fetches, retries included",
	}, []string{"venue"})

	FetchLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "spread_fetch_latency_seconds",
		Help:    "Time to obtain one venue order book",
		Buckets: prometheus.DefBuckets,
	}, []string{"venue"})

	Cycles = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "spread_cycles_total",
		Help: "Completed monitoring cycles",
	})

	Opportunities = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spread_opportunities_total",
		Help: "Arbitrage opportunities reported",
	}, []string{"direction"})

	LastProfit = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "spread_last_profit",
		Help: "Profit per unit of the last reported opportunity",
	})
)

func init() {
	prometheus.MustRegister(
		QuoteBid,
		QuoteAsk,
		FetchErrors,
		FetchLatency,
		Cycles,
		Opportunities,
		LastProfit,
	)
}
