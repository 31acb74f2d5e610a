package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/signal-research/internal/classify"
	"github.com/sells-group/signal-research/internal/config"
	"github.com/sells-group/signal-research/internal/llm"
	"github.com/sells-group/signal-research/internal/model"
	"github.com/sells-group/signal-research/internal/research"
	"github.com/sells-group/signal-research/internal/resilience"
	"github.com/sells-group/signal-research/internal/source"
	"github.com/sells-group/signal-research/pkg/exa"
	"github.com/sells-group/signal-research/pkg/perplexity"
)

// researcher runs a research query end to end.
type researcher interface {
	ProcessQuery(ctx context.Context, query string) (*model.Report, error)
}

// appEnv holds the clients and services shared by the research and serve
// commands. Clients are nil when their API key is missing.
type appEnv struct {
	Research   *research.Service
	Exa        exa.Client
	Perplexity perplexity.Client
	LLM        llm.Completer
	Breakers   *resilience.Breakers
}

// initApp validates the config for mode and wires every dependency.
func initApp(c *config.Config, mode string) (*appEnv, error) {
	if err := c.Validate(mode); err != nil {
		return nil, err
	}

	retry := resilience.FromSettings(c.Retry.Attempts, c.Retry.DelayMs, c.Retry.Multiplier)
	env := &appEnv{
		Breakers: resilience.NewBreakers(c.LLM.BreakerThreshold, time.Duration(c.LLM.BreakerCooldownSecs)*time.Second),
	}

	if c.Perplexity.Key != "" {
		env.Perplexity = perplexity.NewClient(c.Perplexity.Key,
			perplexity.WithBaseURL(c.Perplexity.BaseURL),
			perplexity.WithModel(c.Perplexity.Model),
			perplexity.WithRetryPolicy(retry),
		)
	} else {
		zap.L().Warn("perplexity key not set, perplexity results will be mock data")
	}

	if c.Exa.Key != "" {
		env.Exa = exa.NewClient(c.Exa.Key,
			exa.WithBaseURL(c.Exa.BaseURL),
			exa.WithContentsTimeout(time.Duration(c.Exa.ContentTimeoutSecs)*time.Second),
			exa.WithRetryPolicy(retry),
		)
	} else {
		zap.L().Warn("exa key not set, exa results will be mock data")
	}

	env.LLM = llm.New(c, env.Breakers)

	sources := []source.Source{
		source.NewPerplexity(env.Perplexity, c.Perplexity, c.Pricing),
		source.NewExa(env.Exa, c.Exa, c.Pricing),
	}
	classifier := classify.New(env.LLM, c.Classify)
	env.Research = research.New(env.LLM, sources, classifier, c.Research, c.Pricing)

	return env, nil
}
