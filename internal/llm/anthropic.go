package llm

import (
	"context"

	"github.com/sells-group/signal-research/internal/cost"
	"github.com/sells-group/signal-research/pkg/anthropic"
)

const defaultAnthropicModel = "claude-sonnet-4-5-20250929"

type anthropicBackend struct {
	client anthropic.Client
	model  string
}

// NewAnthropic returns a Completer backed by the Anthropic messages API.
func NewAnthropic(client anthropic.Client, model string, limits Limits, rates cost.Rates) Completer {
	if model == "" {
		model = defaultAnthropicModel
	}
	return newGuarded(&anthropicBackend{client: client, model: model}, limits, rates)
}

func (b *anthropicBackend) name() string         { return BackendAnthropic }
func (b *anthropicBackend) defaultModel() string { return b.model }

func (b *anthropicBackend) complete(ctx context.Context, req Request) (*Response, error) {
	temp := req.Temperature
	resp, err := b.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       req.Model,
		MaxTokens:   int64(req.MaxTokens),
		System:      req.System,
		Prompt:      req.Prompt,
		Temperature: &temp,
		JSONOnly:    req.JSON,
	})
	if err != nil {
		return nil, err
	}

	text := resp.Text
	if req.JSON {
		// Claude sometimes fences the object despite the instruction.
		text = ExtractJSON(text)
	}

	return &Response{
		Text:         text,
		Model:        resp.Model,
		InputTokens:  int(resp.Usage.TotalInput()),
		OutputTokens: int(resp.Usage.OutputTokens),
	}, nil
}
