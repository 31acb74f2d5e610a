package model

import (
	"sort"
	"time"
)

// Provider identifies the external research data source an item came from.
type Provider string

const (
	ProviderPerplexity Provider = "perplexity"
	ProviderExa        Provider = "exa"
)

// Valid reports whether p is one of the known providers.
func (p Provider) Valid() bool {
	return p == ProviderPerplexity || p == ProviderExa
}

// ResearchItem is a single snippet of research returned by a provider,
// possibly rewritten by the classifier.
type ResearchItem struct {
	Source     string    `json:"source" yaml:"source"`
	Content    string    `json:"content" yaml:"content"`
	Confidence float64   `json:"confidence" yaml:"confidence"`
	Timestamp  time.Time `json:"timestamp" yaml:"timestamp"`
	URL        string    `json:"url,omitempty" yaml:"url,omitempty"`
	FetchedBy  Provider  `json:"fetchedBy,omitempty" yaml:"fetched_by,omitempty"`
}

// ClassifiedData is the result of classifying a set of research items.
type ClassifiedData struct {
	Signals           []ResearchItem `json:"signals" yaml:"signals"`
	Noise             []ResearchItem `json:"noise" yaml:"noise"`
	StrategicDecision string         `json:"strategicDecision" yaml:"strategic_decision"`
}

// Empty reports whether neither signals nor noise were produced.
func (c ClassifiedData) Empty() bool {
	return len(c.Signals) == 0 && len(c.Noise) == 0
}

// APIResponse is the JSON envelope returned by the HTTP API.
type APIResponse[T any] struct {
	Success bool   `json:"success"`
	Data    *T     `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ClampConfidence bounds a score to [0, 1].
func ClampConfidence(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// SortByConfidence returns a copy of items ordered by descending confidence.
// Items with equal confidence keep their input order.
func SortByConfidence(items []ResearchItem) []ResearchItem {
	out := make([]ResearchItem, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return out
}

// TopByConfidence keeps the n most confident items. Slices that already fit
// are returned unchanged, in their original order.
func TopByConfidence(items []ResearchItem, n int) []ResearchItem {
	if n <= 0 || len(items) <= n {
		return items
	}
	return SortByConfidence(items)[:n]
}
