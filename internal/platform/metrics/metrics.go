package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	RunStepRequests     *prometheus.CounterVec
	ValidationFailures  prometheus.Counter
	PaywallDenials      prometheus.Counter
	EntitlementFailOpen prometheus.Counter
	TierCacheHits       prometheus.Counter
	TierCacheMisses     prometheus.Counter
	LLMLatencySeconds   prometheus.Histogram
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		RunStepRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "schola_run_step_requests_total",
			Help: "Run-step requests by outcome",
		}, []string{"outcome"}),
		ValidationFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "schola_prompt_validation_failures_total",
			Help: "Prompts rejected by the structural validator",
		}),
		PaywallDenials: promauto.NewCounter(prometheus.CounterOpts{
			Name: "schola_paywall_denials_total",
			Help: "Requests denied because the step requires a paid tier",
		}),
		EntitlementFailOpen: promauto.NewCounter(prometheus.CounterOpts{
			Name: "schola_entitlement_fail_open_total",
			Help: "Entitlement lookups that failed and resolved to the free tier",
		}),
		TierCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "schola_tier_cache_hits_total",
			Help: "Tier resolutions served from cache",
		}),
		TierCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "schola_tier_cache_misses_total",
			Help: "Tier resolutions that went to the entitlement store",
		}),
		LLMLatencySeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "schola_llm_latency_seconds",
			Help:    "Latency of language-model completions",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
}
