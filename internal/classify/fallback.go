package classify

import (
	"fmt"
	"math"
	"time"
	"unicode/utf8"

	"github.com/sells-group/signal-research/internal/model"
)

const (
	simpleDecision = "Based on the available data, we recommend proceeding with caution while gathering more specific market information to validate these initial findings."
	simpleNoData   = "Insufficient high-quality data available to make a strategic decision. Recommend conducting more targeted research."

	mockDecision = "Based on high-confidence market research for %q, we recommend proceeding with market expansion while monitoring competitor consolidation trends. Strategic opportunities exist in differentiation through product innovation and targeted marketing to the most receptive customer segments identified in the data."
	mockNoData   = "Not enough high-confidence data available for %q to make a strategic decision."
)

// Simple categorizes items without an LLM. About 60% of items, and at least
// five, become signals when they are confident or long and linked.
func Simple(items []model.ResearchItem) model.ClassifiedData {
	sorted := model.SortByConfidence(items)
	target := max(5, int(math.Ceil(float64(len(sorted))*0.6)))

	var data model.ClassifiedData
	for i, it := range sorted {
		long := utf8.RuneCountInString(it.Content) > 100 && it.URL != ""
		if i < target && (it.Confidence > 0.5 || long) {
			data.Signals = append(data.Signals, it)
		} else {
			data.Noise = append(data.Noise, it)
		}
	}

	data.StrategicDecision = simpleNoData
	if len(data.Signals) > 0 {
		data.StrategicDecision = simpleDecision
	}
	return data
}

// simpleChunk categorizes a chunk too small to be worth an LLM call.
func simpleChunk(chunk []model.ResearchItem, now func() time.Time) (signals, noise []model.ResearchItem) {
	sorted := model.SortByConfidence(chunk)
	target := int(math.Ceil(float64(len(sorted)) * 0.6))

	for i, it := range sorted {
		if i >= target || (utf8.RuneCountInString(it.Content) <= 200 && it.Confidence <= 0.5) {
			noise = append(noise, it)
			continue
		}
		it.Source = orDefault(it.Source, "Unknown Source")
		it.Content = orDefault(it.Content, "No content available")
		if it.Confidence == 0 {
			it.Confidence = 0.5
		}
		if it.FetchedBy == "" {
			it.FetchedBy = model.ProviderPerplexity
		}
		if it.Timestamp.IsZero() {
			it.Timestamp = now().UTC()
		}
		signals = append(signals, it)
	}
	return signals, noise
}

// Mock classifies linked items by confidence alone: the top 60% (at least
// one) are signals unless they score below 0.5.
func Mock(items []model.ResearchItem, query string) model.ClassifiedData {
	var valid []model.ResearchItem
	for _, it := range items {
		if it.URL != "" && it.Source != "" {
			valid = append(valid, it)
		}
	}
	sorted := model.SortByConfidence(valid)
	count := min(max(1, len(sorted)*6/10), len(sorted))

	var data model.ClassifiedData
	var weak []model.ResearchItem
	for _, it := range sorted[:count] {
		if it.Confidence >= 0.5 {
			data.Signals = append(data.Signals, it)
		} else {
			weak = append(weak, it)
		}
	}
	data.Noise = append(append(data.Noise, sorted[count:]...), weak...)

	data.StrategicDecision = fmt.Sprintf(mockNoData, query)
	if len(data.Signals) > 0 {
		data.StrategicDecision = fmt.Sprintf(mockDecision, query)
	}
	return data
}
