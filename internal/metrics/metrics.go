// Package metrics declares the prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeMock     = "mock"
	OutcomeError    = "error"
	OutcomeFallback = "fallback"
)

var (
	SourceFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signal_research_source_fetches_total",
		Help: "Source fetches by provider and outcome",
	}, []string{"provider", "outcome"})

	SourceItems = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signal_research_source_items_total",
		Help: "Research items returned by each provider",
	}, []string{"provider"})

	LLMRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "signal_research_llm_request_duration_seconds",
		Help:    "Duration of LLM requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"backend", "operation"})

	LLMRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signal_research_llm_requests_total",
		Help: "LLM requests by backend and status",
	}, []string{"backend", "status"})

	ClassifiedItems = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signal_research_classified_items_total",
		Help: "Classified items by kind (signal or noise) and path",
	}, []string{"kind", "path"})

	ResearchRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signal_research_runs_total",
		Help: "Research runs by status",
	}, []string{"status"})

	ResearchRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "signal_research_run_duration_seconds",
		Help:    "End-to-end duration of a research run",
		Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 120, 300},
	})
)
