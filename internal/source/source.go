// Package source fetches raw research items from the external providers.
// Fetchers degrade to deterministic mock data instead of failing, so a
// research run always has something to classify.
package source

import (
	"context"
	"time"

	"github.com/araddon/dateparse"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/signal-research/internal/metrics"
	"github.com/sells-group/signal-research/internal/model"
)

// Source is a research data provider.
type Source interface {
	Name() model.Provider
	// Fetch returns the items found for query. It only fails when ctx is
	// done; provider errors produce mock data.
	Fetch(ctx context.Context, query string) ([]model.ResearchItem, error)
}

// Clock returns the current time. Tests pin it.
type Clock func() time.Time

// fallback logs why a fetcher is using mock data and records the outcome.
// A done context wins over mock data.
func fallback(ctx context.Context, provider model.Provider, reason string, err error, mock []model.ResearchItem) ([]model.ResearchItem, error) {
	if ctx.Err() != nil {
		metrics.SourceFetches.WithLabelValues(string(provider), metrics.OutcomeError).Inc()
		return nil, eris.Wrapf(ctx.Err(), "source: %s fetch", provider)
	}

	fields := []zap.Field{zap.String("provider", string(provider)), zap.String("reason", reason)}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	zap.L().Warn("source: using mock data", fields...)

	metrics.SourceFetches.WithLabelValues(string(provider), metrics.OutcomeMock).Inc()
	metrics.SourceItems.WithLabelValues(string(provider)).Add(float64(len(mock)))
	return mock, nil
}

func recordOK(provider model.Provider, items []model.ResearchItem) {
	metrics.SourceFetches.WithLabelValues(string(provider), metrics.OutcomeOK).Inc()
	metrics.SourceItems.WithLabelValues(string(provider)).Add(float64(len(items)))
}

// publishedAt parses a provider date string, falling back to now. Dates
// without a zone are read as UTC.
func publishedAt(raw string, now time.Time) time.Time {
	if raw == "" {
		return now
	}
	t, err := dateparse.ParseIn(raw, time.UTC)
	if err != nil {
		return now
	}
	return t.UTC()
}
