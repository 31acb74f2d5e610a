package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		provider Provider
		want     bool
	}{
		{ProviderPerplexity, true},
		{ProviderExa, true},
		{Provider(""), false},
		{Provider("google"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.provider), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.provider.Valid())
		})
	}
}

func TestClampConfidence(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 0.0, ClampConfidence(-0.3))
	assert.Equal(t, 1.0, ClampConfidence(1.7))
	assert.InDelta(t, 0.42, ClampConfidence(0.42), 0.0001)
}

func TestSortByConfidence_StableAndCopied(t *testing.T) {
	t.Parallel()
	items := []ResearchItem{
		{Source: "a", Confidence: 0.5},
		{Source: "b", Confidence: 0.9},
		{Source: "c", Confidence: 0.5},
		{Source: "d", Confidence: 0.7},
	}

	sorted := SortByConfidence(items)

	var got []string
	for _, it := range sorted {
		got = append(got, it.Source)
	}
	assert.Equal(t, []string{"b", "d", "a", "c"}, got)
	assert.Equal(t, "a", items[0].Source, "input must not be reordered")
}

func TestTopByConfidence(t *testing.T) {
	t.Parallel()
	items := []ResearchItem{
		{Source: "low", Confidence: 0.1},
		{Source: "high", Confidence: 0.9},
		{Source: "mid", Confidence: 0.5},
	}

	t.Run("fits", func(t *testing.T) {
		t.Parallel()
		got := TopByConfidence(items, 3)
		assert.Equal(t, items, got)
	})

	t.Run("trims", func(t *testing.T) {
		t.Parallel()
		got := TopByConfidence(items, 2)
		require.Len(t, got, 2)
		assert.Equal(t, "high", got[0].Source)
		assert.Equal(t, "mid", got[1].Source)
	})

	t.Run("non_positive_limit", func(t *testing.T) {
		t.Parallel()
		assert.Len(t, TopByConfidence(items, 0), 3)
	})
}

func TestResearchItemJSONShape(t *testing.T) {
	t.Parallel()
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	item := ResearchItem{
		Source:     "Industry Report",
		Content:    "Market grew 12%.",
		Confidence: 0.8,
		Timestamp:  ts,
		URL:        "https://example.com",
		FetchedBy:  ProviderExa,
	}

	data, err := json.Marshal(item)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "exa", raw["fetchedBy"])
	assert.Equal(t, "2026-03-01T12:00:00Z", raw["timestamp"])

	bare, err := json.Marshal(ResearchItem{Source: "x"})
	require.NoError(t, err)
	assert.NotContains(t, string(bare), "fetchedBy")
	assert.NotContains(t, string(bare), `"url"`)
}

func TestAPIResponseOmitsEmpty(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(APIResponse[ClassifiedData]{Success: false, Error: "Invalid query parameter"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"error":"Invalid query parameter"}`, string(data))

	cd := ClassifiedData{StrategicDecision: "go"}
	data, err = json.Marshal(APIResponse[ClassifiedData]{Success: true, Data: &cd})
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"data":{"signals":null,"noise":null,"strategicDecision":"go"}}`, string(data))
}

func TestClassifiedDataEmpty(t *testing.T) {
	t.Parallel()
	assert.True(t, ClassifiedData{}.Empty())
	assert.False(t, ClassifiedData{Noise: []ResearchItem{{}}}.Empty())
}
