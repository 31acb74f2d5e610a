package model

import "time"

// RunMeta records what happened during a single research run. It is built
// per request and returned alongside the classified data; nothing is stored.
type RunMeta struct {
	ID            string           `json:"id" yaml:"id"`
	Query         string           `json:"query" yaml:"query"`
	EnhancedQuery string           `json:"enhancedQuery" yaml:"enhanced_query"`
	StartedAt     time.Time        `json:"startedAt" yaml:"started_at"`
	DurationMs    int64            `json:"durationMs" yaml:"duration_ms"`
	SourceCounts  map[Provider]int `json:"sourceCounts" yaml:"source_counts"`
	CostUSD       float64          `json:"costUsd" yaml:"cost_usd"`
}

// Report pairs a run's metadata with its classified output.
type Report struct {
	Run  RunMeta        `json:"run" yaml:"run"`
	Data ClassifiedData `json:"data" yaml:"data"`
}
