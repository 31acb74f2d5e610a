package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/signal-research/internal/config"
	"github.com/sells-group/signal-research/internal/cost"
	"github.com/sells-group/signal-research/internal/model"
	"github.com/sells-group/signal-research/internal/textclean"
	"github.com/sells-group/signal-research/pkg/perplexity"
)

const analystSystemPrompt = `You are a market research analyst providing evidence-based information.

Rules:
1. Every claim must be cited using numbered citations [1], [2], etc.
2. Include at least 12 different citations from diverse sources.
3. Format all URLs as complete links starting with http:// or https://
4. Include a REFERENCES section at the end with full details for each source.
5. Use different publishers - never cite the same source twice.

Steps:
1. Research the topic thoroughly using multiple sources.
2. Format each reference as: [number] Title. Publisher. URL: full-url
3. Include the complete URL for every source directly in your text.
4. Ensure all important statements have an appropriate citation.
5. Create a properly formatted REFERENCES section at the end.`

const analystUserPrompt = `Conduct comprehensive market research on: %s.

I need research with AT LEAST 12 citations from different sources. Format each citation in the text with numbers [1], [2], etc.

IMPORTANT: Include a REFERENCES section at the end with ALL sources used, formatted like:
[1] Title of Source. Publisher Name. URL: https://example.com
[2] Another Source Title. Another Publisher. URL: https://another-example.com`

const citationSystemPrompt = `You are a citation specialist. Your ONLY job is to provide additional research citations that were NOT included previously.
CRITICAL REQUIREMENTS:
1. Format each citation with a number [1], [2], etc.
2. Include ONLY the title, publisher, and FULL URL for each source
3. Do not include any additional text or analysis
4. Include the COMPLETE URL for each source (with https://)
5. Format exactly like this: [1] Title. Publisher. URL: https://example.com
6. Find DIFFERENT sources than were provided previously`

const citationUserPrompt = `Find 10 additional high-quality sources about: %s.

The following sources have ALREADY BEEN FOUND, so DO NOT repeat them:
%s

ONLY provide sources in this format:
[1] Title. Publisher. URL: https://example.com
[2] Another Title. Another Publisher. URL: https://another-example.com

IMPORTANT: Include the full URL starting with http:// or https:// for EVERY source.`

const (
	synthesisSource     = "Market Analysis Synthesis"
	synthesisConfidence = 0.90
	citationConfidence  = 0.80
	citationPlaceholder = "Source information available at the provided URL. Referenced in market analysis."
)

// citation is one source found for a Perplexity answer.
type citation struct {
	URL   string
	Title string
	Text  string
}

// Perplexity fetches a cited market analysis and turns each citation into
// its own research item.
type Perplexity struct {
	client perplexity.Client
	cfg    config.PerplexityConfig
	calc   *cost.Calculator
	now    Clock
}

// NewPerplexity creates the fetcher. A nil client means no API key: every
// fetch returns mock data.
func NewPerplexity(client perplexity.Client, cfg config.PerplexityConfig, rates cost.Rates) *Perplexity {
	return &Perplexity{client: client, cfg: cfg, calc: cost.NewCalculator(rates), now: time.Now}
}

// Name implements Source.
func (p *Perplexity) Name() model.Provider { return model.ProviderPerplexity }

// Fetch implements Source.
func (p *Perplexity) Fetch(ctx context.Context, query string) ([]model.ResearchItem, error) {
	if p.client == nil {
		return fallback(ctx, p.Name(), "api key not set", nil, MockPerplexity(query, p.now()))
	}

	start := time.Now()
	items, err := p.fetch(ctx, query)
	if err != nil {
		return fallback(ctx, p.Name(), "api error", err, MockPerplexity(query, p.now()))
	}

	recordOK(p.Name(), items)
	zap.L().Info("source: perplexity fetched",
		zap.Int("items", len(items)),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return items, nil
}

func (p *Perplexity) fetch(ctx context.Context, query string) ([]model.ResearchItem, error) {
	resp, err := p.call(ctx, p.cfg.TimeoutSecs, analystSystemPrompt, fmt.Sprintf(analystUserPrompt, query), 0.25, 4000)
	if err != nil {
		return nil, eris.Wrap(err, "source: perplexity primary call")
	}
	if len(resp.Choices) == 0 {
		return nil, eris.New("source: perplexity response has no choices")
	}
	content := textclean.Normalize(resp.Content())

	sources := p.primarySources(content, resp.CitationURLs())
	zap.L().Debug("source: perplexity primary sources", zap.Int("sources", len(sources)))

	var extra []citation
	if len(sources) < p.cfg.MinSources {
		extra, err = p.followup(ctx, query, sources)
		if err != nil {
			if ctx.Err() != nil {
				return nil, eris.Wrap(ctx.Err(), "source: perplexity followup")
			}
			zap.L().Warn("source: perplexity followup failed, keeping primary sources", zap.Error(err))
		}
	}

	return p.items(content, mergeCitations(sources, extra)), nil
}

func (p *Perplexity) primarySources(content string, apiCitations []string) []citation {
	var sources []citation
	for _, u := range apiCitations {
		sources = append(sources, citation{URL: u})
	}

	if refs := textclean.ReferencesSection(content); refs != "" && textclean.HasNumberedCitations(content) {
		for _, ref := range textclean.ParseReferences(refs) {
			sources = append(sources, citation{
				URL:   ref.URL,
				Title: ref.Title,
				Text:  fmt.Sprintf("Referenced as [%d] in the analysis", ref.Num),
			})
		}
	}

	if len(sources) == 0 {
		for i, u := range textclean.ExtractURLs(content) {
			title := textclean.TitleBefore(content, u)
			if title == "" {
				title = fmt.Sprintf("Source %d", i+1)
			}
			sources = append(sources, citation{URL: u, Title: title, Text: "Information from " + title})
		}
	}

	if len(sources) == 0 {
		sources = append(sources, citation{Title: "Market Analysis", Text: "Based on AI-powered market analysis"})
	}
	return sources
}

// followup asks for more sources than the primary answer cited.
func (p *Perplexity) followup(ctx context.Context, query string, found []citation) ([]citation, error) {
	lines := make([]string, len(found))
	for i, s := range found {
		lines[i] = fmt.Sprintf("%d. %s %s", i+1, s.Title, s.URL)
	}

	resp, err := p.call(ctx, p.cfg.FollowupTimeoutSecs, citationSystemPrompt,
		fmt.Sprintf(citationUserPrompt, query, strings.Join(lines, "\n")), 0.3, 3000)
	if err != nil {
		return nil, err
	}

	var out []citation
	for _, u := range resp.CitationURLs() {
		out = append(out, citation{URL: u})
	}
	if len(out) > 0 {
		return out, nil
	}

	content := resp.Content()
	for _, ref := range textclean.ParseReferences(content) {
		out = append(out, citation{URL: ref.URL, Title: ref.Title, Text: fmt.Sprintf("Additional source [%d]", ref.Num)})
	}
	if len(out) > 0 {
		return out, nil
	}

	for i, u := range textclean.ExtractURLs(content) {
		out = append(out, citation{URL: u, Title: fmt.Sprintf("Additional Source %d", i+1), Text: "Information from additional research"})
	}
	return out, nil
}

func (p *Perplexity) call(ctx context.Context, timeoutSecs int, system, user string, temperature float64, maxTokens int) (*perplexity.ChatCompletionResponse, error) {
	if timeoutSecs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(timeoutSecs)*time.Second)
		defer cancel()
	}

	topP, penalty := 0.9, 1.0
	resp, err := p.client.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
		Model: p.cfg.Model,
		Messages: []perplexity.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature:         &temperature,
		MaxTokens:           &maxTokens,
		TopP:                &topP,
		FrequencyPenalty:    &penalty,
		SearchRecencyFilter: p.cfg.SearchRecencyFilter,
	})
	if err != nil {
		return nil, err
	}
	cost.Charge(ctx, p.calc.PerplexityQuery())
	return resp, nil
}

// mergeCitations appends extra sources whose URL is new. Duplicate primary
// URLs are dropped too; sources without a URL are kept.
func mergeCitations(primary, extra []citation) []citation {
	seen := make(map[string]bool)
	var out []citation
	for _, s := range primary {
		if s.URL != "" {
			if seen[s.URL] {
				continue
			}
			seen[s.URL] = true
		}
		out = append(out, s)
	}
	for _, s := range extra {
		if s.URL == "" || seen[s.URL] {
			continue
		}
		seen[s.URL] = true
		out = append(out, s)
	}
	return out
}

func (p *Perplexity) items(content string, sources []citation) []model.ResearchItem {
	now := p.now().UTC()

	synthesis := model.ResearchItem{
		Source:     synthesisSource,
		Content:    content,
		Confidence: synthesisConfidence,
		Timestamp:  now,
		FetchedBy:  model.ProviderPerplexity,
	}
	if len(sources) > 0 {
		synthesis.URL = sources[0].URL
	}
	items := []model.ResearchItem{synthesis}

	for i, s := range sources {
		if s.Title == "" && s.URL == "" {
			continue
		}
		title := s.Title
		if title == "" {
			title = fmt.Sprintf("Research Source %d", i+1)
		}
		text := s.Text
		if text == "" {
			text = citationPlaceholder
		}
		items = append(items, model.ResearchItem{
			Source:     textclean.CleanTitle(title, model.ProviderPerplexity),
			Content:    text,
			Confidence: citationConfidence,
			Timestamp:  now,
			URL:        s.URL,
			FetchedBy:  model.ProviderPerplexity,
		})
	}
	return items
}
