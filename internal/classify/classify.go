// Package classify splits research items into signals and noise, rewriting
// their content and producing a strategic decision. The LLM does the
// judging; everything here is chunking, reassembly and fallbacks.
package classify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/signal-research/internal/config"
	"github.com/sells-group/signal-research/internal/llm"
	"github.com/sells-group/signal-research/internal/metrics"
	"github.com/sells-group/signal-research/internal/model"
	"github.com/sells-group/signal-research/internal/textclean"
)

const (
	signalConfidence     = 0.95
	noiseConfidence      = 0.40
	statisticConfidence  = 0.99
	defaultQuery         = "market research"
	defaultMaxSources    = 25
	defaultChunkSize     = 25
	defaultMinChunkItems = 3
)

// Classification paths, used as the "path" metric label.
const (
	PathLLM    = "llm"
	PathLegacy = "legacy"
	PathSimple = "simple"
	PathMock   = "mock"
)

// Classifier turns research items into ClassifiedData.
type Classifier struct {
	llm llm.Completer
	cfg config.ClassifyConfig
	now func() time.Time
}

// New creates a classifier. A nil completer disables AI processing: Classify
// then returns mock classifications and Process simple ones.
func New(completer llm.Completer, cfg config.ClassifyConfig) *Classifier {
	if cfg.MaxSources <= 0 {
		cfg.MaxSources = defaultMaxSources
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = defaultChunkSize
	}
	if cfg.MinChunkSize <= 0 {
		cfg.MinChunkSize = defaultMinChunkItems
	}
	return &Classifier{llm: completer, cfg: cfg, now: time.Now}
}

// Classify runs chunked processing and falls back to the single-call legacy
// classifier when processing yields nothing. It never fails.
func (c *Classifier) Classify(ctx context.Context, items []model.ResearchItem, query string) model.ClassifiedData {
	if c.llm == nil || len(items) == 0 {
		zap.L().Warn("classify: AI disabled or no items, using mock classification",
			zap.Int("items", len(items)))
		return record(PathMock, Mock(items, query))
	}

	data := c.Process(ctx, items, query)
	if !data.Empty() {
		return data
	}

	zap.L().Warn("classify: processing returned no results, using legacy classification")
	return c.legacy(ctx, items, query)
}

// chunkEntry is one classified item in an LLM response.
type chunkEntry struct {
	Index   int    `json:"index"`
	Content string `json:"content"`
	Reason  string `json:"reason"`
}

type chunkResult struct {
	Signals           []chunkEntry `json:"signals"`
	Noise             []chunkEntry `json:"noise"`
	Statistics        []string     `json:"statistics"`
	StrategicDecision string       `json:"strategicDecision"`
}

// Process classifies items in chunks. Each chunk's zero-based indices are
// local to the chunk and are offset back onto the capped input.
func (c *Classifier) Process(ctx context.Context, items []model.ResearchItem, query string) model.ClassifiedData {
	if c.llm == nil {
		zap.L().Warn("classify: AI disabled, using simple categorization")
		return record(PathSimple, Simple(items))
	}

	q := query
	if q == "" {
		q = DeriveQuery(items)
	}
	if q == "" {
		q = defaultQuery
	}

	limited := model.TopByConfidence(items, c.cfg.MaxSources)
	if len(limited) < len(items) {
		zap.L().Info("classify: capped sources",
			zap.Int("items", len(items)), zap.Int("max_sources", c.cfg.MaxSources))
	}

	var (
		signals    []model.ResearchItem
		noise      []model.ResearchItem
		statistics []string
		decision   string
	)
	covered := make([]bool, len(limited))

	for start := 0; start < len(limited); start += c.cfg.ChunkSize {
		end := min(start+c.cfg.ChunkSize, len(limited))
		chunk := limited[start:end]

		if start > 0 && end == len(limited) && len(chunk) < c.cfg.MinChunkSize {
			zap.L().Debug("classify: small final chunk, using simple categorization",
				zap.Int("items", len(chunk)))
			s, n := simpleChunk(chunk, c.now)
			signals = append(signals, s...)
			noise = append(noise, n...)
			continue
		}

		res, ok := c.processChunk(ctx, q, chunk)
		if !ok {
			continue
		}

		take := func(e chunkEntry) (model.ResearchItem, bool) {
			idx := start + e.Index
			if e.Index < 0 || idx >= end || covered[idx] {
				return model.ResearchItem{}, false
			}
			covered[idx] = true
			return limited[idx], true
		}

		for _, e := range res.Signals {
			item, ok := take(e)
			if !ok {
				continue
			}
			if content := textclean.FormatSignal(e.Content); content != "" {
				item.Content = content
			}
			item.Confidence = signalConfidence
			signals = append(signals, item)
		}
		for _, e := range res.Noise {
			item, ok := take(e)
			if !ok {
				continue
			}
			if content := strings.TrimSpace(e.Content); content != "" {
				item.Content = content
			} else {
				item.Content = noiseText(item.Content)
			}
			item.Confidence = noiseConfidence
			noise = append(noise, item)
		}

		for idx := start; idx < end; idx++ {
			if covered[idx] {
				continue
			}
			covered[idx] = true
			item := limited[idx]
			item.Content = noiseText(item.Content)
			item.Confidence = noiseConfidence
			noise = append(noise, item)
		}

		if start == 0 {
			statistics = res.Statistics
			decision = res.StrategicDecision
		}
	}

	now := c.now().UTC()
	var stats []model.ResearchItem
	for i, stat := range statistics {
		if strings.TrimSpace(stat) == "" {
			continue
		}
		var from model.ResearchItem
		switch {
		case len(signals) > 0:
			from = signals[min(i, len(signals)-1)]
		case len(limited) > 0:
			from = limited[min(i, len(limited)-1)]
		}
		provider := from.FetchedBy
		if provider == "" {
			provider = model.ProviderPerplexity
		}
		stats = append(stats, model.ResearchItem{
			Source:     "Statistical Analysis: " + from.Source,
			Content:    stat,
			Confidence: statisticConfidence,
			Timestamp:  now,
			URL:        from.URL,
			FetchedBy:  provider,
		})
	}

	if decision == "" {
		decision = fmt.Sprintf("Insufficient data to provide a strategic decision for %q.", q)
	}

	zap.L().Info("classify: processed",
		zap.Int("items", len(limited)),
		zap.Int("signals", len(signals)),
		zap.Int("noise", len(noise)),
		zap.Int("statistics", len(stats)),
	)

	return record(PathLLM, model.ClassifiedData{
		Signals:           append(signals, stats...),
		Noise:             noise,
		StrategicDecision: decision,
	})
}

// processChunk asks the LLM to classify one chunk. Failures are logged and
// reported as !ok so the chunk contributes nothing.
func (c *Classifier) processChunk(ctx context.Context, query string, chunk []model.ResearchItem) (chunkResult, bool) {
	resp, err := c.llm.Complete(ctx, llm.Request{
		Operation:   "classify_chunk",
		System:      chunkSystemPrompt,
		Prompt:      fmt.Sprintf(userPrompt, query, formatItems(chunk, true)),
		Temperature: 0.3,
		MaxTokens:   4000,
		JSON:        true,
	})
	if err != nil {
		zap.L().Warn("classify: chunk request failed", zap.Int("items", len(chunk)), zap.Error(err))
		return chunkResult{}, false
	}

	var res chunkResult
	if err := llm.DecodeJSON(resp.Text, &res); err != nil {
		zap.L().Warn("classify: chunk response unparseable", zap.Int("items", len(chunk)), zap.Error(err))
		return chunkResult{}, false
	}

	zap.L().Debug("classify: chunk coverage",
		zap.Int("items", len(chunk)),
		zap.Int("signals", len(res.Signals)),
		zap.Int("noise", len(res.Noise)),
	)
	return res, true
}

type legacyEntry struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

type legacyResult struct {
	Signals           []legacyEntry `json:"signals"`
	Noise             []legacyEntry `json:"noise"`
	StrategicDecision string        `json:"strategicDecision"`
}

// legacy classifies every item in one call without rewriting them. Any
// failure produces a mock classification.
func (c *Classifier) legacy(ctx context.Context, items []model.ResearchItem, query string) model.ClassifiedData {
	resp, err := c.llm.Complete(ctx, llm.Request{
		Operation:   "classify_legacy",
		System:      legacySystemPrompt,
		Prompt:      fmt.Sprintf(userPrompt, query, formatItems(items, false)),
		Temperature: 0.2,
		MaxTokens:   2000,
		JSON:        true,
	})
	if err != nil {
		zap.L().Warn("classify: legacy request failed, using mock classification", zap.Error(err))
		return record(PathMock, Mock(items, query))
	}

	var res legacyResult
	if err := llm.DecodeJSON(resp.Text, &res); err != nil {
		zap.L().Warn("classify: legacy response unparseable, using mock classification", zap.Error(err))
		return record(PathMock, Mock(items, query))
	}
	if res.Signals == nil || res.Noise == nil {
		zap.L().Warn("classify: legacy response missing signals or noise, using mock classification")
		return record(PathMock, Mock(items, query))
	}

	seen := make(map[int]bool)
	pick := func(e legacyEntry) (model.ResearchItem, bool) {
		if e.Index < 0 || e.Index >= len(items) || seen[e.Index] {
			return model.ResearchItem{}, false
		}
		seen[e.Index] = true
		return items[e.Index], true
	}

	var data model.ClassifiedData
	for _, e := range res.Signals {
		if item, ok := pick(e); ok {
			item.Content = textclean.Polish(item.Content)
			data.Signals = append(data.Signals, item)
		}
	}
	for _, e := range res.Noise {
		if item, ok := pick(e); ok {
			data.Noise = append(data.Noise, item)
		}
	}

	data.StrategicDecision = res.StrategicDecision
	if data.StrategicDecision == "" {
		data.StrategicDecision = fmt.Sprintf("Not enough data to provide a strategic decision for %q.", query)
	}
	return record(PathLegacy, data)
}

// formatItems renders items as the numbered list the prompts expect.
func formatItems(items []model.ResearchItem, withProvider bool) string {
	blocks := make([]string, len(items))
	for i, it := range items {
		var b strings.Builder
		fmt.Fprintf(&b, "Item %d:\n", i+1)
		fmt.Fprintf(&b, "Source: %s\n", orDefault(it.Source, "Unknown"))
		fmt.Fprintf(&b, "Content: %s\n", orDefault(it.Content, "No content available"))
		fmt.Fprintf(&b, "URL: %s\n", orDefault(it.URL, "N/A"))
		if withProvider {
			fmt.Fprintf(&b, "From: %s\n", orDefault(string(it.FetchedBy), "Unknown service"))
		}
		blocks[i] = b.String()
	}
	return strings.Join(blocks, "\n\n")
}

func noiseText(content string) string {
	if formatted := textclean.FormatNoise(content); formatted != "" {
		return formatted
	}
	return content
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func record(path string, data model.ClassifiedData) model.ClassifiedData {
	metrics.ClassifiedItems.WithLabelValues("signal", path).Add(float64(len(data.Signals)))
	metrics.ClassifiedItems.WithLabelValues("noise", path).Add(float64(len(data.Noise)))
	return data
}
