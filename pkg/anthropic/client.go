// Package anthropic wraps the Anthropic messages API for the single-turn,
// optionally JSON-only completions the LLM layer makes.
package anthropic

import (
	"context"
	"errors"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"

	"github.com/sells-group/signal-research/internal/resilience"
)

const (
	// DefaultMaxTokens is used when a request leaves MaxTokens at zero.
	DefaultMaxTokens = 1024

	// JSONOnlyInstruction is appended to the system prompt of JSONOnly requests.
	JSONOnlyInstruction = "Respond with a single JSON object and nothing else."

	defaultCacheTTL = "5m"
)

// Client defines the Anthropic API operations used by the LLM layer.
type Client interface {
	CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error)
}

// MessageRequest is one user turn with an optional system prompt. The
// system prompt is sent as a single block with an ephemeral cache
// breakpoint, so repeated classifier chunks read it from the cache.
type MessageRequest struct {
	Model       string
	MaxTokens   int64
	System      string
	Prompt      string
	Temperature *float64
	// JSONOnly asks the model for a bare JSON object.
	JSONOnly bool
	// CacheTTL is "5m" (default) or "1h".
	CacheTTL string
}

// SystemPrompt returns the system text actually sent.
func (r MessageRequest) SystemPrompt() string {
	if !r.JSONOnly {
		return r.System
	}
	if r.System == "" {
		return JSONOnlyInstruction
	}
	return r.System + "\n\n" + JSONOnlyInstruction
}

func (r MessageRequest) params() sdk.MessageNewParams {
	maxTokens := r.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	p := sdk.MessageNewParams{
		Model:     sdk.Model(r.Model),
		MaxTokens: maxTokens,
		Messages:  []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(r.Prompt))},
	}

	if system := r.SystemPrompt(); system != "" {
		ttl := r.CacheTTL
		if ttl == "" {
			ttl = defaultCacheTTL
		}
		cc := sdk.NewCacheControlEphemeralParam()
		cc.TTL = sdk.CacheControlEphemeralTTL(ttl)
		p.System = []sdk.TextBlockParam{{Text: system, CacheControl: cc}}
	}

	if r.Temperature != nil {
		p.Temperature = sdk.Float(*r.Temperature)
	}
	return p
}

// MessageResponse is the text and usage of a completed message.
type MessageResponse struct {
	ID         string
	Model      string
	Text       string
	StopReason string
	Usage      TokenUsage
}

// TokenUsage tracks token consumption.
type TokenUsage struct {
	InputTokens              int64
	OutputTokens             int64
	CacheCreationInputTokens int64
	CacheReadInputTokens     int64
}

// TotalInput counts every prompt token, cached or not.
func (u TokenUsage) TotalInput() int64 {
	return u.InputTokens + u.CacheCreationInputTokens + u.CacheReadInputTokens
}

type sdkClient struct {
	client sdk.Client
}

// NewClient creates a client backed by the SDK. SDK retries are off by
// default since the LLM layer retries; opts are applied after the defaults.
func NewClient(apiKey string, opts ...option.RequestOption) Client {
	all := append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}, opts...)
	return &sdkClient{
		client: sdk.NewClient(all...),
	}
}

// CreateMessage sends req. API errors come back as *resilience.StatusError.
func (c *sdkClient) CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, eris.New("anthropic: empty prompt")
	}

	msg, err := c.client.Messages.New(ctx, req.params())
	if err != nil {
		var apiErr *sdk.Error
		if errors.As(err, &apiErr) {
			return nil, eris.Wrap(resilience.NewStatusError("anthropic", apiErr.StatusCode, []byte(apiErr.Error())), "anthropic: create message")
		}
		return nil, eris.Wrap(err, "anthropic: create message")
	}

	return fromSDKMessage(msg), nil
}

func fromSDKMessage(msg *sdk.Message) *MessageResponse {
	var text strings.Builder
	for _, b := range msg.Content {
		if b.Type == "text" {
			text.WriteString(b.Text)
		}
	}

	return &MessageResponse{
		ID:         msg.ID,
		Model:      string(msg.Model),
		Text:       text.String(),
		StopReason: string(msg.StopReason),
		Usage: TokenUsage{
			InputTokens:              msg.Usage.InputTokens,
			OutputTokens:             msg.Usage.OutputTokens,
			CacheCreationInputTokens: msg.Usage.CacheCreationInputTokens,
			CacheReadInputTokens:     msg.Usage.CacheReadInputTokens,
		},
	}
}
