package source

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/signal-research/internal/config"
	"github.com/sells-group/signal-research/internal/cost"
	"github.com/sells-group/signal-research/internal/metrics"
	"github.com/sells-group/signal-research/internal/model"
	"github.com/sells-group/signal-research/internal/resilience"
	"github.com/sells-group/signal-research/internal/textclean"
	"github.com/sells-group/signal-research/pkg/exa"
)

const (
	defaultExaScore    = 0.5
	fallbackPenalty    = 0.7
	untitledExaResult  = "Research Result"
	unavailableContent = "Content summary not available for this resource. Please visit the source directly: "
)

var documentExtensions = []string{".pdf", ".ppt", ".doc", ".xls", ".xlsx", ".docx", ".pptx"}

// Domains that block scraping or sit behind paywalls.
var problematicDomains = []string{
	"bloomberg.com", "bnef.com", "ft.com", "wsj.com", "nytimes.com",
	"sciencedirect.com", "springer.com", "ieee.org", "onlinelibrary.wiley.com",
	"jstor.org", "tandfonline.com", "elsevier.com", "gmatclub.com", "dmnews.com",
	"energydigital.com", "linkedin.com", "facebook.com", "twitter.com",
}

// Exa runs a neural search and fetches page text for every hit.
type Exa struct {
	client exa.Client
	cfg    config.ExaConfig
	calc   *cost.Calculator
	now    Clock
}

// NewExa creates the fetcher. A nil client means no API key: every fetch
// returns mock data.
func NewExa(client exa.Client, cfg config.ExaConfig, rates cost.Rates) *Exa {
	return &Exa{client: client, cfg: cfg, calc: cost.NewCalculator(rates), now: time.Now}
}

// Name implements Source.
func (e *Exa) Name() model.Provider { return model.ProviderExa }

// Fetch implements Source.
func (e *Exa) Fetch(ctx context.Context, query string) ([]model.ResearchItem, error) {
	if e.client == nil {
		return fallback(ctx, e.Name(), "api key not set", nil, MockExa(query, e.now()))
	}

	start := time.Now()
	resp, err := e.client.Search(ctx, exa.SearchRequest{
		Query:         query,
		NumResults:    e.cfg.NumResults,
		Type:          "auto",
		UseAutoprompt: true,
	})
	if err != nil {
		return fallback(ctx, e.Name(), "search failed", err, MockExa(query, e.now()))
	}
	cost.Charge(ctx, e.calc.ExaSearch())

	if len(resp.Results) == 0 {
		return fallback(ctx, e.Name(), "no search results", nil, MockExa(query, e.now()))
	}

	items, err := e.contents(ctx, resp.Results)
	if err != nil {
		return fallback(ctx, e.Name(), "content fetch aborted", err, MockExa(query, e.now()))
	}
	if len(items) == 0 {
		return fallback(ctx, e.Name(), "no usable content", nil, MockExa(query, e.now()))
	}

	recordOK(e.Name(), items)
	zap.L().Info("source: exa fetched",
		zap.Int("results", len(resp.Results)),
		zap.Int("items", len(items)),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return items, nil
}

// contents fetches page text for every result concurrently. Requests are
// released one per stagger interval; problematic URLs skip the fetch.
func (e *Exa) contents(ctx context.Context, results []exa.Result) ([]model.ResearchItem, error) {
	limit := rate.Inf
	if e.cfg.StaggerMs > 0 {
		limit = rate.Every(time.Duration(e.cfg.StaggerMs) * time.Millisecond)
	}
	limiter := rate.NewLimiter(limit, 1)

	items := make([]model.ResearchItem, len(results))
	var g errgroup.Group
	for i, r := range results {
		if problematicURL(r.URL) {
			items[i] = e.unavailable(r)
			continue
		}
		g.Go(func() error {
			if err := limiter.Wait(ctx); err != nil {
				return eris.Wrap(err, "source: exa stagger")
			}
			items[i] = e.fetchContent(ctx, r)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return items, nil
}

func (e *Exa) fetchContent(ctx context.Context, r exa.Result) model.ResearchItem {
	policy := resilience.FixedPolicy(e.cfg.ContentRetries, time.Duration(e.cfg.RetryDelayMs)*time.Millisecond)
	policy.Retryable = func(error) bool { return true }
	policy.OnRetry = resilience.LogRetry("exa", "contents")

	page, err := resilience.Do(ctx, policy, func(ctx context.Context) (*exa.Result, error) {
		resp, err := e.client.Contents(ctx, exa.ContentsRequest{
			URLs:      []string{r.URL},
			Text:      true,
			Livecrawl: "fallback",
		})
		if err != nil {
			return nil, err
		}
		cost.Charge(ctx, e.calc.ExaContents(1))
		if len(resp.Results) == 0 {
			return nil, eris.New("source: exa contents returned no results")
		}
		return &resp.Results[0], nil
	})

	item := model.ResearchItem{
		Source:     textclean.CleanTitle(titleOr(r.Title), model.ProviderExa),
		Confidence: score(r),
		Timestamp:  publishedAt(r.PublishedDate, e.now().UTC()),
		URL:        r.URL,
		FetchedBy:  model.ProviderExa,
	}

	if err != nil {
		zap.L().Warn("source: exa content fetch failed, using snippet",
			zap.String("url", r.URL), zap.Error(err))
		metrics.SourceFetches.WithLabelValues(string(model.ProviderExa), metrics.OutcomeFallback).Inc()
		snippet := r.Snippet
		if snippet == "" {
			snippet = "No snippet available"
		}
		item.Content = "Information available at the source: " + snippet
		item.Confidence *= fallbackPenalty
		return item
	}

	text := textclean.StripHTML(textclean.Normalize(page.Text))
	text = truncate(text, e.cfg.MaxContentChars)
	if strings.TrimSpace(text) == "" {
		text = "Please visit the source directly: " + r.URL
	}
	item.Content = text
	return item
}

func (e *Exa) unavailable(r exa.Result) model.ResearchItem {
	link := r.URL
	if link == "" {
		link = "URL not provided"
	}
	return model.ResearchItem{
		Source:     textclean.CleanTitle(titleOr(r.Title), model.ProviderExa),
		Content:    unavailableContent + link,
		Confidence: score(r),
		Timestamp:  publishedAt(r.PublishedDate, e.now().UTC()),
		URL:        r.URL,
		FetchedBy:  model.ProviderExa,
	}
}

// problematicURL reports whether fetching url's content is unlikely to work:
// empty URLs, office documents, PDF paths and paywalled or social hosts.
func problematicURL(raw string) bool {
	if strings.TrimSpace(raw) == "" {
		return true
	}
	lower := strings.ToLower(raw)
	for _, ext := range documentExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	if strings.Contains(lower, "/pdf/") {
		return true
	}

	host := lower
	if u, err := url.Parse(lower); err == nil && u.Host != "" {
		host = u.Hostname()
	}
	for _, d := range problematicDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func score(r exa.Result) float64 {
	if r.Score == nil {
		return defaultExaScore
	}
	return model.ClampConfidence(*r.Score)
}

func titleOr(title string) string {
	if strings.TrimSpace(title) == "" {
		return untitledExaResult
	}
	return title
}

// truncate cuts s to n runes and marks the cut with "...".
func truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
