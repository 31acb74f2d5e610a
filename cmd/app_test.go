package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/signal-research/internal/config"
	"github.com/sells-group/signal-research/internal/model"
)

func clearKeys(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"RESEARCH_OPENAI_KEY", "OPENAI_API_KEY", "NEXT_PUBLIC_OPENAI_API_KEY",
		"RESEARCH_PERPLEXITY_KEY", "PERPLEXITY_API_KEY", "NEXT_PUBLIC_PERPLEXITY_API_KEY",
		"RESEARCH_EXA_KEY", "EXA_API_KEY", "NEXT_PUBLIC_EXA_API_KEY",
		"RESEARCH_ANTHROPIC_KEY", "ANTHROPIC_API_KEY",
	} {
		t.Setenv(k, "")
	}
	t.Setenv("RESEARCH_LOG_LEVEL", "error")
}

func loadConfig(t *testing.T) *config.Config {
	t.Helper()
	clearKeys(t)
	c, err := config.Load()
	require.NoError(t, err)
	return c
}

func TestInitApp_WithoutKeys(t *testing.T) {
	c := loadConfig(t)

	env, err := initApp(c, "research")
	require.NoError(t, err)

	assert.Nil(t, env.Exa)
	assert.Nil(t, env.Perplexity)
	assert.Nil(t, env.LLM)
	assert.NotNil(t, env.Research)
}

func TestInitApp_WithKeys(t *testing.T) {
	c := loadConfig(t)
	c.Exa.Key = "exa-test"
	c.Perplexity.Key = "pplx-test"
	c.OpenAI.Key = "sk-test"

	env, err := initApp(c, "serve")
	require.NoError(t, err)

	assert.NotNil(t, env.Exa)
	assert.NotNil(t, env.Perplexity)
	assert.NotNil(t, env.LLM)
}

func TestInitApp_InvalidConfig(t *testing.T) {
	c := loadConfig(t)
	c.Server.Port = 0

	_, err := initApp(c, "serve")
	assert.Error(t, err)

	_, err = initApp(c, "research")
	assert.NoError(t, err)
}

func TestResearchCommand_MockRun(t *testing.T) {
	clearKeys(t)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"research", "--format", "json", "ev", "charging"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		researchFormat = "text"
	})

	require.NoError(t, rootCmd.Execute())

	var report model.Report
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, "ev charging", report.Run.Query)
	assert.NotEmpty(t, report.Run.ID)
	assert.NotEmpty(t, report.Data.Signals)
	assert.NotEmpty(t, report.Data.StrategicDecision)
	assert.Positive(t, report.Run.SourceCounts[model.ProviderPerplexity])
	assert.Positive(t, report.Run.SourceCounts[model.ProviderExa])
}

func TestConfigCommand_RedactsKeys(t *testing.T) {
	clearKeys(t)
	t.Setenv("RESEARCH_EXA_KEY", "exa-secret-value")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"config"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "exa-****")
	assert.NotContains(t, out.String(), "exa-secret-value")
}
