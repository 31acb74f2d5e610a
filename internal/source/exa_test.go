package source

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
	"github.com/sells-group/signal-research/internal/cost"
	"github.com/sells-group/signal-research/internal/model"
	"github.com/sells-group/signal-research/pkg/exa"
	"github.com/sells-group/signal-research/pkg/exa/mocks"
)

func testExaConfig() config.ExaConfig {
	return config.ExaConfig{
		NumResults:      15,
		StaggerMs:       0,
		ContentRetries:  1,
		RetryDelayMs:    1,
		MaxContentChars: 20,
	}
}

func newTestExa(client exa.Client, cfg config.ExaConfig) *Exa {
	e := NewExa(client, cfg, cost.DefaultRates())
	e.now = func() time.Time { return fixedNow }
	return e
}

func forURL(u string) any {
	return mock.MatchedBy(func(req exa.ContentsRequest) bool {
		return len(req.URLs) == 1 && req.URLs[0] == u && req.Text && req.Livecrawl == "fallback"
	})
}

func pageText(u, text string) *exa.ContentsResponse {
	return &exa.ContentsResponse{Results: []exa.Result{{URL: u, Text: text}}}
}

func ptr(f float64) *float64 { return &f }

func TestExa_NoClientUsesMock(t *testing.T) {
	items, err := newTestExa(nil, testExaConfig()).Fetch(context.Background(), "heat pumps")
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "Industry Research Report", items[0].Source)
	assert.InDelta(t, 0.92, items[0].Confidence, 0.001)
	assert.Contains(t, items[2].Content, `"heat pumps"`)
	assert.Equal(t, model.ProviderExa, items[1].FetchedBy)
}

func TestExa_SearchFailuresUseMock(t *testing.T) {
	tests := []struct {
		name string
		resp *exa.SearchResponse
		err  error
	}{
		{"search error", nil, errors.New("502")},
		{"no results", &exa.SearchResponse{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := mocks.NewMockClient(t)
			client.On("Search", mock.Anything, mock.Anything).Return(tt.resp, tt.err).Once()

			items, err := newTestExa(client, testExaConfig()).Fetch(context.Background(), "q")
			require.NoError(t, err)
			require.Len(t, items, 3)
			assert.Equal(t, "Industry Research Report", items[0].Source)
		})
	}
}

func TestExa_Fetch(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("Search", mock.Anything, exa.SearchRequest{
		Query:         "ev batteries",
		NumResults:    15,
		Type:          "auto",
		UseAutoprompt: true,
	}).Return(&exa.SearchResponse{Results: []exa.Result{
		{Title: "Exa pick: Battery Outlook", URL: "https://a.com", Score: ptr(0.82), PublishedDate: "2024-05-01T00:00:00.000Z"},
		{Title: "Whitepaper", URL: "https://b.com/paper.pdf", Score: ptr(1.4)},
		{Title: "", URL: "https://www.ft.com/content/x"},
		{Title: "Flaky", URL: "https://d.com", Score: ptr(0.6), Snippet: "cheaper cells"},
		{Title: "Long", URL: "https://e.com", Score: ptr(-0.2)},
		{Title: "Blank page", URL: "https://f.com"},
		{Title: "Missing", URL: "https://g.com"},
	}}, nil).Once()

	client.On("Contents", mock.Anything, forURL("https://a.com")).
		Return(pageText("https://a.com", "Battery <b>demand</b> rises"), nil).Once()
	client.On("Contents", mock.Anything, forURL("https://d.com")).
		Return(nil, errors.New("boom")).Times(2)
	client.On("Contents", mock.Anything, forURL("https://e.com")).
		Return(pageText("https://e.com", strings.Repeat("x", 30)), nil).Once()
	client.On("Contents", mock.Anything, forURL("https://f.com")).
		Return(pageText("https://f.com", "   "), nil).Once()
	client.On("Contents", mock.Anything, forURL("https://g.com")).
		Return(&exa.ContentsResponse{}, nil).Times(2)

	ledger := cost.NewLedger(cost.NewCalculator(cost.DefaultRates()))
	ctx := cost.WithLedger(context.Background(), ledger)

	items, err := newTestExa(client, testExaConfig()).Fetch(ctx, "ev batteries")
	require.NoError(t, err)
	require.Len(t, items, 7)

	a := items[0]
	assert.Equal(t, "Research pick: Battery Outlook", a.Source)
	assert.Equal(t, "Battery demand rises", a.Content)
	assert.InDelta(t, 0.82, a.Confidence, 0.001)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), a.Timestamp)
	assert.Equal(t, model.ProviderExa, a.FetchedBy)

	pdf := items[1]
	assert.Equal(t, "Whitepaper", pdf.Source)
	assert.Equal(t, "Content summary not available for this resource. Please visit the source directly: https://b.com/paper.pdf", pdf.Content)
	assert.InDelta(t, 1.0, pdf.Confidence, 0.001)
	assert.Equal(t, fixedNow, pdf.Timestamp)

	ft := items[2]
	assert.Equal(t, "Research Result", ft.Source)
	assert.InDelta(t, 0.5, ft.Confidence, 0.001)
	assert.Contains(t, ft.Content, "https://www.ft.com/content/x")

	flaky := items[3]
	assert.Equal(t, "Information available at the source: cheaper cells", flaky.Content)
	assert.InDelta(t, 0.42, flaky.Confidence, 0.001)

	long := items[4]
	assert.Equal(t, strings.Repeat("x", 20)+"...", long.Content)
	assert.InDelta(t, 0.0, long.Confidence, 0.001)

	assert.Equal(t, "Please visit the source directly: https://f.com", items[5].Content)
	assert.Equal(t, "Information available at the source: No snippet available", items[6].Content)
	assert.InDelta(t, 0.35, items[6].Confidence, 0.001)

	// One search plus five content responses; g.com answered empty twice.
	assert.InDelta(t, 0.005+5*0.001, ledger.Total(), 1e-9)
}

func TestExa_StaggersContentRequests(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("Search", mock.Anything, mock.Anything).Return(&exa.SearchResponse{Results: []exa.Result{
		{URL: "https://a.com"}, {URL: "https://b.com"}, {URL: "https://c.com"},
	}}, nil).Once()
	client.On("Contents", mock.Anything, mock.Anything).Return(pageText("", "text"), nil).Times(3)

	cfg := testExaConfig()
	cfg.StaggerMs = 50

	start := time.Now()
	items, err := newTestExa(client, cfg).Fetch(context.Background(), "q")
	require.NoError(t, err)
	assert.Len(t, items, 3)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestExa_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := mocks.NewMockClient(t)
	client.On("Search", mock.Anything, mock.Anything).Return(nil, context.Canceled).Once()

	_, err := newTestExa(client, testExaConfig()).Fetch(ctx, "q")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProblematicURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url  string
		want bool
	}{
		{"", true},
		{"https://x.com/report.PDF", true},
		{"https://x.com/deck.pptx", true},
		{"https://x.com/pdf/123", true},
		{"https://www.ft.com/content/x", true},
		{"HTTPS://LinkedIn.com/in/someone", true},
		{"https://onlinelibrary.wiley.com/doi/1", true},
		{"https://microsoft.com/news", false},
		{"https://example.com/article", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, problematicURL(tt.url))
		})
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "héllo", truncate("héllo", 5))
	assert.Equal(t, "hé...", truncate("héllo", 2))
	assert.Equal(t, "anything", truncate("anything", 0))
}

func TestPublishedAt(t *testing.T) {
	t.Parallel()

	assert.Equal(t, fixedNow, publishedAt("", fixedNow))
	assert.Equal(t, fixedNow, publishedAt("not a date", fixedNow))
	assert.Equal(t, time.Date(2023, 11, 2, 0, 0, 0, 0, time.UTC), publishedAt("2023-11-02", fixedNow))
}
