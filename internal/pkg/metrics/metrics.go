package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TradesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polyrelay_trades_total",
		Help: "The total number of trade submissions, by outcome and identity used",
	}, []string{"outcome", "identity"})

	FunderRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polyrelay_funder_retries_total",
		Help: "Order placements retried with the funder address after a 403",
	})

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polyrelay_rate_limited_total",
		Help: "Requests rejected by the per-owner rate gate",
	})

	LatencyBucket = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "polyrelay_latency_bucket",
		Help:    "Request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	UpstreamLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "polyrelay_upstream_latency_seconds",
		Help:    "Exchange round-trip latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"path"})
)
