// Package research runs a research query end to end: query enhancement,
// parallel provider fetches, aggregation and classification.
package research

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/signal-research/internal/config"
	"github.com/sells-group/signal-research/internal/cost"
	"github.com/sells-group/signal-research/internal/llm"
	"github.com/sells-group/signal-research/internal/metrics"
	"github.com/sells-group/signal-research/internal/model"
	"github.com/sells-group/signal-research/internal/source"
)

const enhanceSystemPrompt = `You are a market research optimization assistant. Your job is to enhance user queries for better search results.

Focus on:
1. Adding relevant industry terms and specific metrics that would improve search results
2. Making the query more specific and searchable
3. Maintaining the core intent of the original query

DO NOT:
1. Add arbitrary timeframes or dates that weren't in the original query
2. Change the fundamental meaning or intent of the query
3. Add explanations or commentary
4. Add any content that wasn't implied by the original query

Return ONLY the enhanced query text with no additional explanation.`

const defaultMaxTotalSources = 25

// Run statuses, used as the "status" metric label.
const (
	StatusOK    = "ok"
	StatusEmpty = "empty"
	StatusError = "error"
)

// Classifier splits items into signals and noise.
type Classifier interface {
	Classify(ctx context.Context, items []model.ResearchItem, query string) model.ClassifiedData
}

// Dataset is the aggregated provider output for one query.
type Dataset struct {
	EnhancedQuery string
	Items         []model.ResearchItem
	Counts        map[model.Provider]int
}

// Service wires the query enhancer, sources and classifier together.
type Service struct {
	llm        llm.Completer
	sources    []source.Source
	classifier Classifier
	cfg        config.ResearchConfig
	rates      cost.Rates
}

// New creates a research service. Sources are combined in the order given.
// A nil completer skips query enhancement.
func New(completer llm.Completer, sources []source.Source, classifier Classifier, cfg config.ResearchConfig, rates cost.Rates) *Service {
	if cfg.MaxTotalSources <= 0 {
		cfg.MaxTotalSources = defaultMaxTotalSources
	}
	return &Service{
		llm:        completer,
		sources:    sources,
		classifier: classifier,
		cfg:        cfg,
		rates:      rates,
	}
}

// EnhanceQuery rewrites query for better search results. The original query
// is returned when AI is disabled, the call fails or the output is empty.
func (s *Service) EnhanceQuery(ctx context.Context, query string) string {
	if s.llm == nil || !s.cfg.EnhanceQuery {
		return query
	}

	start := time.Now()
	resp, err := s.llm.Complete(ctx, llm.Request{
		Operation:   "enhance_query",
		System:      enhanceSystemPrompt,
		Prompt:      query,
		Temperature: 0.3,
		MaxTokens:   500,
	})
	if err != nil {
		zap.L().Warn("research: query enhancement failed, using original query", zap.Error(err))
		return query
	}

	enhanced := strings.TrimSpace(resp.Text)
	if enhanced == "" {
		return query
	}
	zap.L().Info("research: query enhanced",
		zap.String("original", query),
		zap.String("enhanced", enhanced),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return enhanced
}

// FetchResearchData enhances query and fetches every source in parallel. A
// failing source contributes nothing; the combined items are capped by
// confidence. It only fails when ctx is done.
func (s *Service) FetchResearchData(ctx context.Context, query string) (*Dataset, error) {
	enhanced := s.EnhanceQuery(ctx, query)

	start := time.Now()
	results := make([][]model.ResearchItem, len(s.sources))
	var g errgroup.Group
	for i, src := range s.sources {
		g.Go(func() error {
			items, err := src.Fetch(ctx, enhanced)
			if err != nil {
				zap.L().Error("research: source fetch failed",
					zap.String("provider", string(src.Name())), zap.Error(err))
				return nil
			}
			results[i] = items
			return nil
		})
	}
	// Sources never fail the group; fetch errors are logged above.
	g.Wait() //nolint:errcheck

	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "research: fetch sources")
	}

	ds := &Dataset{EnhancedQuery: enhanced, Counts: make(map[model.Provider]int)}
	for i, items := range results {
		ds.Counts[s.sources[i].Name()] += len(items)
		ds.Items = append(ds.Items, items...)
	}

	combined := len(ds.Items)
	ds.Items = model.TopByConfidence(ds.Items, s.cfg.MaxTotalSources)

	zap.L().Info("research: sources fetched",
		zap.Any("counts", ds.Counts),
		zap.Int("combined", combined),
		zap.Int("kept", len(ds.Items)),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return ds, nil
}

// ProcessQuery runs a full research query. The report is always non-nil;
// on error its decision carries the error text.
func (s *Service) ProcessQuery(ctx context.Context, query string) (*model.Report, error) {
	start := time.Now()
	ledger := cost.NewLedger(cost.NewCalculator(s.rates))
	ctx = cost.WithLedger(ctx, ledger)

	report := &model.Report{Run: model.RunMeta{
		ID:        uuid.NewString(),
		Query:     query,
		StartedAt: start.UTC(),
	}}
	log := zap.L().With(zap.String("run_id", report.Run.ID), zap.String("query", query))
	log.Info("research: starting run")

	finish := func(status string) {
		if report.Data.Signals == nil {
			report.Data.Signals = []model.ResearchItem{}
		}
		if report.Data.Noise == nil {
			report.Data.Noise = []model.ResearchItem{}
		}
		elapsed := time.Since(start)
		report.Run.DurationMs = elapsed.Milliseconds()
		report.Run.CostUSD = ledger.Total()
		metrics.ResearchRuns.WithLabelValues(status).Inc()
		metrics.ResearchRunDuration.Observe(elapsed.Seconds())
		log.Info("research: run finished",
			zap.String("status", status),
			zap.Int("signals", len(report.Data.Signals)),
			zap.Int("noise", len(report.Data.Noise)),
			zap.Float64("estimated_cost_usd", report.Run.CostUSD),
			zap.Int64("duration_ms", report.Run.DurationMs),
		)
	}
	fail := func(err error) (*model.Report, error) {
		report.Data = model.ClassifiedData{StrategicDecision: fmt.Sprintf("Error processing query: %v", err)}
		finish(StatusError)
		return report, err
	}

	ds, err := s.FetchResearchData(ctx, query)
	if err != nil {
		return fail(err)
	}
	report.Run.EnhancedQuery = ds.EnhancedQuery
	report.Run.SourceCounts = ds.Counts

	if len(ds.Items) == 0 {
		log.Warn("research: no research data found")
		report.Data = model.ClassifiedData{StrategicDecision: "No research data found for: " + query}
		finish(StatusEmpty)
		return report, nil
	}

	report.Data = s.classifier.Classify(ctx, ds.Items, query)
	if err := ctx.Err(); err != nil {
		return fail(eris.Wrap(err, "research: classify"))
	}

	finish(StatusOK)
	return report, nil
}
