package classify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/signal-research/internal/config"
	"github.com/sells-group/signal-research/internal/llm"
	"github.com/sells-group/signal-research/internal/llm/mocks"
	"github.com/sells-group/signal-research/internal/model"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func item(source string, confidence float64) model.ResearchItem {
	return model.ResearchItem{
		Source:     source,
		Content:    source + " content body.",
		Confidence: confidence,
		Timestamp:  fixedNow,
		URL:        "https://" + source + ".com",
		FetchedBy:  model.ProviderExa,
	}
}

func newTestClassifier(c llm.Completer, cfg config.ClassifyConfig) *Classifier {
	cl := New(c, cfg)
	cl.now = func() time.Time { return fixedNow }
	return cl
}

func chunkCall(contains ...string) any {
	return mock.MatchedBy(func(req llm.Request) bool {
		if req.Operation != "classify_chunk" {
			return false
		}
		for _, s := range contains {
			if !strings.Contains(req.Prompt, s) {
				return false
			}
		}
		return true
	})
}

func legacyCall() any {
	return mock.MatchedBy(func(req llm.Request) bool { return req.Operation == "classify_legacy" })
}

func text(s string) *llm.Response { return &llm.Response{Text: s} }

func TestProcess_SingleChunk(t *testing.T) {
	items := []model.ResearchItem{item("a", 0.9), item("b", 0.8), item("c", 0.7)}

	c := mocks.NewMockCompleter(t)
	c.On("Complete", mock.Anything, mock.MatchedBy(func(req llm.Request) bool {
		return req.Operation == "classify_chunk" &&
			req.JSON && req.Temperature == 0.3 && req.MaxTokens == 4000 &&
			req.System == chunkSystemPrompt &&
			strings.HasPrefix(req.Prompt, "Query: ev batteries\n\nResearch Items:\n\nItem 1:\nSource: a\n") &&
			strings.Contains(req.Prompt, "Item 3:\nSource: c\nContent: c content body.\nURL: https://c.com\nFrom: exa\n")
	})).Return(text("```json\n"+`{
		"signals": [{"index": 0, "content": "• demand up 20%"}, {"index": 5, "content": "out of range"}],
		"noise": [{"index": 1, "content": "B summary."}, {"index": 0, "content": "duplicate"}],
		"statistics": ["Revenue grew 12%"],
		"strategicDecision": "Expand now."
	}`+"\n```"), nil).Once()

	data := newTestClassifier(c, config.ClassifyConfig{}).Process(context.Background(), items, "ev batteries")

	require.Len(t, data.Signals, 2)
	assert.Equal(t, "a", data.Signals[0].Source)
	assert.Equal(t, "• Demand up 20%.", data.Signals[0].Content)
	assert.InDelta(t, 0.95, data.Signals[0].Confidence, 0.001)

	stat := data.Signals[1]
	assert.Equal(t, "Statistical Analysis: a", stat.Source)
	assert.Equal(t, "Revenue grew 12%", stat.Content)
	assert.Equal(t, "https://a.com", stat.URL)
	assert.InDelta(t, 0.99, stat.Confidence, 0.001)
	assert.Equal(t, model.ProviderExa, stat.FetchedBy)
	assert.Equal(t, fixedNow, stat.Timestamp)

	require.Len(t, data.Noise, 2)
	assert.Equal(t, "B summary.", data.Noise[0].Content)
	assert.InDelta(t, 0.40, data.Noise[0].Confidence, 0.001)
	// c was skipped by the model and is backfilled as noise.
	assert.Equal(t, "c", data.Noise[1].Source)
	assert.Equal(t, "C content body.", data.Noise[1].Content)
	assert.InDelta(t, 0.40, data.Noise[1].Confidence, 0.001)

	assert.Equal(t, "Expand now.", data.StrategicDecision)
}

func TestProcess_ChunksWithIndexOffset(t *testing.T) {
	items := []model.ResearchItem{
		item("i0", 0.9), item("i1", 0.8), item("i2", 0.7), item("i3", 0.6), item("i4", 0.55),
	}

	c := mocks.NewMockCompleter(t)
	c.On("Complete", mock.Anything, chunkCall("Item 1:\nSource: i0", "Item 2:\nSource: i1")).Return(text(`{
		"signals": [{"index": 0}],
		"noise": [{"index": 1}],
		"statistics": ["Share rose 5%"],
		"strategicDecision": "first"
	}`), nil).Once()
	c.On("Complete", mock.Anything, chunkCall("Item 1:\nSource: i2", "Item 2:\nSource: i3")).Return(text(`{
		"signals": [{"index": 1}],
		"noise": [{"index": 0}],
		"statistics": ["ignored"],
		"strategicDecision": "second"
	}`), nil).Once()

	cfg := config.ClassifyConfig{MaxSources: 25, ChunkSize: 2, MinChunkSize: 3}
	data := newTestClassifier(c, cfg).Process(context.Background(), items, "q")

	var signals []string
	for _, s := range data.Signals {
		signals = append(signals, s.Source)
	}
	assert.Equal(t, []string{"i0", "i3", "i4", "Statistical Analysis: i0"}, signals)

	// LLM signals keep their content when the rewrite is empty; the simple
	// chunk leaves i4 untouched.
	assert.Equal(t, "i0 content body.", data.Signals[0].Content)
	assert.InDelta(t, 0.55, data.Signals[2].Confidence, 0.001)

	require.Len(t, data.Noise, 2)
	assert.Equal(t, "i1", data.Noise[0].Source)
	assert.Equal(t, "i2", data.Noise[1].Source)
	assert.Equal(t, "I1 content body.", data.Noise[0].Content)

	assert.Equal(t, "first", data.StrategicDecision)
}

func TestProcess_CapsAndDerivesQuery(t *testing.T) {
	items := []model.ResearchItem{
		{Source: "low", Content: "ok go", Confidence: 0.1},
		{Source: "high", Content: "ok go", Confidence: 0.9},
		{Source: "mid", Content: "ok go", Confidence: 0.5},
	}

	c := mocks.NewMockCompleter(t)
	c.On("Complete", mock.Anything, mock.MatchedBy(func(req llm.Request) bool {
		return strings.HasPrefix(req.Prompt, "Query: market research\n") &&
			strings.Contains(req.Prompt, "Item 1:\nSource: high\nContent: ok go\nURL: N/A\nFrom: Unknown service\n") &&
			strings.Contains(req.Prompt, "Source: mid") &&
			!strings.Contains(req.Prompt, "Source: low")
	})).Return(text(`{"signals": [], "noise": [{"index": 0, "content": ""}], "statistics": ["s1", "s2"]}`), nil).Once()

	cfg := config.ClassifyConfig{MaxSources: 2}
	data := newTestClassifier(c, cfg).Process(context.Background(), items, "")

	require.Len(t, data.Noise, 2)
	// FormatNoise drops text this short, so the original stays.
	assert.Equal(t, "ok go", data.Noise[0].Content)

	// Without signals, statistics are attributed to the capped inputs.
	require.Len(t, data.Signals, 2)
	assert.Equal(t, "Statistical Analysis: high", data.Signals[0].Source)
	assert.Equal(t, "Statistical Analysis: mid", data.Signals[1].Source)
	assert.Equal(t, model.ProviderPerplexity, data.Signals[0].FetchedBy)

	assert.Equal(t, `Insufficient data to provide a strategic decision for "market research".`, data.StrategicDecision)
}

func TestProcess_NoLLMUsesSimple(t *testing.T) {
	items := []model.ResearchItem{item("a", 0.9), item("b", 0.2)}
	data := New(nil, config.ClassifyConfig{}).Process(context.Background(), items, "q")

	require.Len(t, data.Signals, 1)
	assert.Equal(t, "a", data.Signals[0].Source)
	assert.Equal(t, simpleDecision, data.StrategicDecision)
}

func TestClassify_NoLLMOrItemsUsesMock(t *testing.T) {
	data := New(nil, config.ClassifyConfig{}).Classify(context.Background(), []model.ResearchItem{item("a", 0.9)}, "solar")
	require.Len(t, data.Signals, 1)
	assert.Contains(t, data.StrategicDecision, `"solar"`)

	c := mocks.NewMockCompleter(t)
	data = newTestClassifier(c, config.ClassifyConfig{}).Classify(context.Background(), nil, "solar")
	assert.True(t, data.Empty())
	assert.Equal(t, `Not enough high-confidence data available for "solar" to make a strategic decision.`, data.StrategicDecision)
}

func TestClassify_UsesProcessResult(t *testing.T) {
	c := mocks.NewMockCompleter(t)
	c.On("Complete", mock.Anything, chunkCall()).
		Return(text(`{"signals": [{"index": 0, "content": "Solid data point here"}], "noise": [], "strategicDecision": "Go."}`), nil).Once()

	data := newTestClassifier(c, config.ClassifyConfig{}).Classify(context.Background(), []model.ResearchItem{item("a", 0.6)}, "q")
	require.Len(t, data.Signals, 1)
	assert.Equal(t, "• Solid data point here.", data.Signals[0].Content)
	assert.Equal(t, "Go.", data.StrategicDecision)
}

func TestClassify_FallsBackToLegacy(t *testing.T) {
	items := []model.ResearchItem{item("a", 0.9), item("b", 0.8)}
	items[1].Content = "Additionally, prices fell"

	c := mocks.NewMockCompleter(t)
	c.On("Complete", mock.Anything, chunkCall()).Return(nil, errors.New("timeout")).Once()
	c.On("Complete", mock.Anything, mock.MatchedBy(func(req llm.Request) bool {
		return req.Operation == "classify_legacy" &&
			req.Temperature == 0.2 && req.MaxTokens == 2000 && req.JSON &&
			strings.Contains(req.Prompt, "Item 2:\nSource: b\nContent: Additionally, prices fell\nURL: https://b.com\n") &&
			!strings.Contains(req.Prompt, "From:")
	})).Return(text(`{"signals": [{"index": 1}, {"index": 9}], "noise": [{"index": 0}, {"index": 1}]}`), nil).Once()

	data := newTestClassifier(c, config.ClassifyConfig{}).Classify(context.Background(), items, "q")

	require.Len(t, data.Signals, 1)
	assert.Equal(t, "b", data.Signals[0].Source)
	assert.Equal(t, "prices fell.", data.Signals[0].Content)
	assert.InDelta(t, 0.8, data.Signals[0].Confidence, 0.001)

	require.Len(t, data.Noise, 1)
	assert.Equal(t, "a content body.", data.Noise[0].Content)

	assert.Equal(t, `Not enough data to provide a strategic decision for "q".`, data.StrategicDecision)
}

func TestClassify_LegacyFailuresUseMock(t *testing.T) {
	tests := []struct {
		name string
		resp *llm.Response
		err  error
	}{
		{"request error", nil, errors.New("503")},
		{"invalid json", text("no json here"), nil},
		{"missing noise", text(`{"signals": [{"index": 0}]}`), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := []model.ResearchItem{item("a", 0.9), item("b", 0.3)}

			c := mocks.NewMockCompleter(t)
			c.On("Complete", mock.Anything, chunkCall()).Return(text("not json"), nil).Once()
			c.On("Complete", mock.Anything, legacyCall()).Return(tt.resp, tt.err).Once()

			data := newTestClassifier(c, config.ClassifyConfig{}).Classify(context.Background(), items, "q")
			require.Len(t, data.Signals, 1)
			assert.Equal(t, "a", data.Signals[0].Source)
			require.Len(t, data.Noise, 1)
			assert.Equal(t, "b", data.Noise[0].Source)
			assert.Contains(t, data.StrategicDecision, "Based on high-confidence market research")
		})
	}
}
