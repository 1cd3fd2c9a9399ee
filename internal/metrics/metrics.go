// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// LLMRequestDuration is chat model call latency in seconds
	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fixmytext_llm_request_duration_seconds",
			Help:    "Chat model call latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~50s
		},
		[]string{"provider", "tier", "status"},
	)

	// LLMRequestCount counts chat model calls by outcome
	LLMRequestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fixmytext_llm_request_count",
			Help: "Total number of chat model calls",
		},
		[]string{"provider", "tier", "status"}, // status: success, network, auth, rate_limit, response
	)

	// LLMCacheHitCount counts responses served from the response cache
	LLMCacheHitCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fixmytext_llm_cache_hit_count",
			Help: "Total number of chat model responses served from cache",
		},
	)

	// TriggerCount counts dispatched hotkey gestures
	TriggerCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fixmytext_trigger_count",
			Help: "Total number of hotkey gestures dispatched",
		},
		[]string{"trigger"},
	)

	// TriggerDroppedCount counts gestures dropped because the consumer was busy
	TriggerDroppedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fixmytext_trigger_dropped_count",
			Help: "Total number of hotkey gestures dropped on a full trigger channel",
		},
		[]string{"trigger"},
	)

	// ActionOutcomeCount counts action executions by outcome
	ActionOutcomeCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fixmytext_action_outcome_count",
			Help: "Total number of action executions by outcome",
		},
		[]string{"action", "outcome"},
	)

	// PipelinePhaseDuration is pyramid phase latency in seconds
	PipelinePhaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fixmytext_pipeline_phase_duration_seconds",
			Help:    "Pyramid pipeline phase duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
		},
		[]string{"phase"},
	)

	// SpecialistFailureCount counts specialists replaced by placeholders
	SpecialistFailureCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fixmytext_specialist_failure_count",
			Help: "Total number of specialist calls that fell back to a placeholder",
		},
		[]string{"specialist"},
	)

	// QualityScore is the distribution of final pipeline quality scores
	QualityScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fixmytext_pipeline_quality_score",
			Help:    "Final quality score of pipeline runs",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
	)
)

// RecordLLMRequest records one chat model call
func RecordLLMRequest(provider, tier, status string, duration time.Duration) {
	LLMRequestDuration.WithLabelValues(provider, tier, status).Observe(duration.Seconds())
	LLMRequestCount.WithLabelValues(provider, tier, status).Inc()
}

// RecordPhase records the duration of a pipeline phase
func RecordPhase(phase string, duration time.Duration) {
	PipelinePhaseDuration.WithLabelValues(phase).Observe(duration.Seconds())
}

// RecordActionOutcome records one action result
func RecordActionOutcome(action, outcome string) {
	ActionOutcomeCount.WithLabelValues(action, outcome).Inc()
}

// Handler returns the Prometheus scrape handler
func Handler() http.Handler {
	return promhttp.Handler()
}
