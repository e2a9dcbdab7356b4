package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	StoreConflicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "gallery", Name: "store_conflicts_total", Help: "Number of conditional writes rejected on a stale revision token."},
		[]string{"category"},
	)
	StoreTransientErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "gallery", Name: "store_transient_errors_total", Help: "Number of transient store failures (network, timeout, 5xx)."},
		[]string{"category"},
	)
	UpdateRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "gallery", Name: "update_retries_total", Help: "Number of optimistic update attempts beyond the first."},
		[]string{"category"},
	)
	UpdateExhausted = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "gallery", Name: "update_exhausted_total", Help: "Number of updates abandoned after the retry ceiling, by failure kind."},
		[]string{"category", "kind"},
	)
	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "gallery", Name: "cache_hits_total", Help: "Number of reads served from a fresh cache entry."},
		[]string{"category"},
	)
	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "gallery", Name: "cache_misses_total", Help: "Number of reads that went to the backing store."},
		[]string{"category"},
	)
	CacheStaleServes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "gallery", Name: "cache_stale_serves_total", Help: "Number of reads served from an expired entry after a fetch failure."},
		[]string{"category"},
	)
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "gallery", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "gallery", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(StoreConflicts)
	reg.MustRegister(StoreTransientErrors)
	reg.MustRegister(UpdateRetries)
	reg.MustRegister(UpdateExhausted)
	reg.MustRegister(CacheHits)
	reg.MustRegister(CacheMisses)
	reg.MustRegister(CacheStaleServes)
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
}
