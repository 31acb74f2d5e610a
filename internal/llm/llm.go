// Package llm is the chat-completion layer used by query enhancement and
// classification. Every backend is rate limited, guarded by a circuit
// breaker, timed into prometheus, and priced through internal/cost.
package llm

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/signal-research/internal/config"
	"github.com/sells-group/signal-research/internal/cost"
	"github.com/sells-group/signal-research/internal/metrics"
	"github.com/sells-group/signal-research/internal/resilience"
	"github.com/sells-group/signal-research/pkg/anthropic"
)

// Backend names.
const (
	BackendOpenAI    = "openai"
	BackendAnthropic = "anthropic"
)

// Request is a single-turn completion.
type Request struct {
	// Operation labels logs and metrics, e.g. "enhance_query".
	Operation   string
	System      string
	Prompt      string
	Model       string
	Temperature float64
	MaxTokens   int
	// JSON asks the backend for a single JSON object.
	JSON bool
}

// Response is the completion text and its token usage.
type Response struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}

// Completer runs chat completions.
type Completer interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Limits throttles a backend and configures its breaker and retries. When
// Breakers is set the backend's breaker is taken from that registry. A zero
// Retry makes a single attempt.
type Limits struct {
	RPS              float64
	BreakerThreshold int
	BreakerCooldown  time.Duration
	Breakers         *resilience.Breakers
	Retry            resilience.Policy
}

// backend is a raw provider call with no guards.
type backend interface {
	name() string
	defaultModel() string
	complete(ctx context.Context, req Request) (*Response, error)
}

type guarded struct {
	backend backend
	limiter *rate.Limiter
	breaker *resilience.Breaker
	retry   resilience.Policy
	calc    *cost.Calculator
}

func newGuarded(b backend, limits Limits, rates cost.Rates) *guarded {
	limit := rate.Inf
	if limits.RPS > 0 {
		limit = rate.Limit(limits.RPS)
	}
	breaker := resilience.NewBreaker(b.name(), limits.BreakerThreshold, limits.BreakerCooldown)
	if limits.Breakers != nil {
		breaker = limits.Breakers.For("llm_" + b.name())
	}
	retry := limits.Retry
	if retry.Retryable == nil {
		retry.Retryable = retryable
	}
	return &guarded{
		backend: b,
		limiter: rate.NewLimiter(limit, 1),
		breaker: breaker,
		retry:   retry,
		calc:    cost.NewCalculator(rates),
	}
}

// retryable classifies backend errors. go-openai reports the HTTP status on
// its own error types; everything else goes through resilience.IsRetryable.
func retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return resilience.IsRetryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return resilience.IsRetryableStatus(reqErr.HTTPStatusCode)
	}
	return resilience.IsRetryable(err)
}

func (g *guarded) Complete(ctx context.Context, req Request) (*Response, error) {
	name := g.backend.name()
	if req.Model == "" {
		req.Model = g.backend.defaultModel()
	}
	if req.Operation == "" {
		req.Operation = "complete"
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "llm: rate limiter")
	}

	retry := g.retry
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.LogRetry("llm_"+name, req.Operation)
	}

	// The breaker sees one outcome per Complete, after retries.
	start := time.Now()
	resp, err := resilience.Call(ctx, g.breaker, func(ctx context.Context) (*Response, error) {
		return resilience.Do(ctx, retry, func(ctx context.Context) (*Response, error) {
			return g.backend.complete(ctx, req)
		})
	})
	elapsed := time.Since(start)
	metrics.LLMRequestDuration.WithLabelValues(name, req.Operation).Observe(elapsed.Seconds())

	if err != nil {
		metrics.LLMRequests.WithLabelValues(name, "error").Inc()
		return nil, eris.Wrapf(err, "llm: %s %s", name, req.Operation)
	}
	metrics.LLMRequests.WithLabelValues(name, "ok").Inc()

	usd := g.calc.Tokens(req.Model, resp.InputTokens, resp.OutputTokens)
	cost.Charge(ctx, usd)

	zap.L().Info("llm: cost attribution",
		zap.String("backend", name),
		zap.String("model", req.Model),
		zap.String("operation", req.Operation),
		zap.Int("input_tokens", resp.InputTokens),
		zap.Int("output_tokens", resp.OutputTokens),
		zap.Float64("estimated_cost_usd", usd),
		zap.Int64("duration_ms", elapsed.Milliseconds()),
	)

	return resp, nil
}

// New builds the backend named by llm.provider. It returns nil when that
// backend has no API key; callers treat a nil Completer as AI disabled.
// breakers may be nil.
func New(cfg *config.Config, breakers *resilience.Breakers) Completer {
	limits := Limits{
		RPS:              cfg.LLM.RateLimitRPS,
		BreakerThreshold: cfg.LLM.BreakerThreshold,
		BreakerCooldown:  time.Duration(cfg.LLM.BreakerCooldownSecs) * time.Second,
		Breakers:         breakers,
		Retry:            resilience.FromSettings(cfg.Retry.Attempts, cfg.Retry.DelayMs, cfg.Retry.Multiplier),
	}

	switch cfg.LLM.Provider {
	case BackendAnthropic:
		if cfg.Anthropic.Key == "" {
			zap.L().Warn("llm: anthropic key not set, AI processing disabled")
			return nil
		}
		return NewAnthropic(anthropic.NewClient(cfg.Anthropic.Key), cfg.Anthropic.Model, limits, cfg.Pricing)
	default:
		if cfg.OpenAI.Key == "" {
			zap.L().Warn("llm: openai key not set, AI processing disabled")
			return nil
		}
		return NewOpenAI(cfg.OpenAI.Key, cfg.OpenAI.BaseURL, cfg.OpenAI.Model, limits, cfg.Pricing)
	}
}
