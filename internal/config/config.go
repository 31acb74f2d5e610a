package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/signal-research/internal/cost"
)

// Config holds the full application configuration.
type Config struct {
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Exa        ExaConfig        `yaml:"exa" mapstructure:"exa"`
	OpenAI     OpenAIConfig     `yaml:"openai" mapstructure:"openai"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	LLM        LLMConfig        `yaml:"llm" mapstructure:"llm"`
	Research   ResearchConfig   `yaml:"research" mapstructure:"research"`
	Classify   ClassifyConfig   `yaml:"classify" mapstructure:"classify"`
	Retry      RetryConfig      `yaml:"retry" mapstructure:"retry"`
	Pricing    cost.Rates       `yaml:"pricing" mapstructure:"pricing"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key                 string `yaml:"key" mapstructure:"key"`
	BaseURL             string `yaml:"base_url" mapstructure:"base_url"`
	Model               string `yaml:"model" mapstructure:"model"`
	TimeoutSecs         int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	FollowupTimeoutSecs int    `yaml:"followup_timeout_secs" mapstructure:"followup_timeout_secs"`
	MinSources          int    `yaml:"min_sources" mapstructure:"min_sources"`
	SearchRecencyFilter string `yaml:"search_recency_filter" mapstructure:"search_recency_filter"`
}

// ExaConfig holds Exa search API settings.
type ExaConfig struct {
	Key                string `yaml:"key" mapstructure:"key"`
	BaseURL            string `yaml:"base_url" mapstructure:"base_url"`
	NumResults         int    `yaml:"num_results" mapstructure:"num_results"`
	StaggerMs          int    `yaml:"stagger_ms" mapstructure:"stagger_ms"`
	ContentRetries     int    `yaml:"content_retries" mapstructure:"content_retries"`
	RetryDelayMs       int    `yaml:"retry_delay_ms" mapstructure:"retry_delay_ms"`
	ContentTimeoutSecs int    `yaml:"content_timeout_secs" mapstructure:"content_timeout_secs"`
	MaxContentChars    int    `yaml:"max_content_chars" mapstructure:"max_content_chars"`
}

// OpenAIConfig holds OpenAI API settings.
type OpenAIConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// LLMConfig selects and throttles the LLM backend.
type LLMConfig struct {
	Provider            string  `yaml:"provider" mapstructure:"provider"`
	RateLimitRPS        float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	BreakerThreshold    int     `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerCooldownSecs int     `yaml:"breaker_cooldown_secs" mapstructure:"breaker_cooldown_secs"`
}

// ResearchConfig controls aggregation of provider results.
type ResearchConfig struct {
	MaxTotalSources int  `yaml:"max_total_sources" mapstructure:"max_total_sources"`
	EnhanceQuery    bool `yaml:"enhance_query" mapstructure:"enhance_query"`
}

// ClassifyConfig controls chunked LLM classification.
type ClassifyConfig struct {
	MaxSources   int `yaml:"max_sources" mapstructure:"max_sources"`
	ChunkSize    int `yaml:"chunk_size" mapstructure:"chunk_size"`
	MinChunkSize int `yaml:"min_chunk_size" mapstructure:"min_chunk_size"`
}

// RetryConfig configures retries of provider HTTP calls and LLM completions.
type RetryConfig struct {
	Attempts   int     `yaml:"attempts" mapstructure:"attempts"`
	DelayMs    int     `yaml:"delay_ms" mapstructure:"delay_ms"`
	Multiplier float64 `yaml:"multiplier" mapstructure:"multiplier"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port               int      `yaml:"port" mapstructure:"port"`
	CORSOrigins        []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	RequestTimeoutSecs int      `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// envFallbacks lets the conventional provider variables stand in for the
// RESEARCH_-prefixed ones.
var envFallbacks = map[string][]string{
	"openai.key":     {"RESEARCH_OPENAI_KEY", "OPENAI_API_KEY", "NEXT_PUBLIC_OPENAI_API_KEY"},
	"perplexity.key": {"RESEARCH_PERPLEXITY_KEY", "PERPLEXITY_API_KEY", "NEXT_PUBLIC_PERPLEXITY_API_KEY"},
	"exa.key":        {"RESEARCH_EXA_KEY", "EXA_API_KEY", "NEXT_PUBLIC_EXA_API_KEY"},
	"anthropic.key":  {"RESEARCH_ANTHROPIC_KEY", "ANTHROPIC_API_KEY"},
}

// Load reads configuration from .env, config file and environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: read .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RESEARCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, envs := range envFallbacks {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", key)
		}
	}

	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.request_timeout_secs", 180)
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("perplexity.timeout_secs", 45)
	v.SetDefault("perplexity.followup_timeout_secs", 30)
	v.SetDefault("perplexity.min_sources", 8)
	v.SetDefault("perplexity.search_recency_filter", "month")
	v.SetDefault("exa.base_url", "https://api.exa.ai")
	v.SetDefault("exa.num_results", 15)
	v.SetDefault("exa.stagger_ms", 300)
	v.SetDefault("exa.content_retries", 2)
	v.SetDefault("exa.retry_delay_ms", 1000)
	v.SetDefault("exa.content_timeout_secs", 20)
	v.SetDefault("exa.max_content_chars", 1000)
	v.SetDefault("openai.model", "gpt-4o")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.rate_limit_rps", 2)
	v.SetDefault("llm.breaker_threshold", 5)
	v.SetDefault("llm.breaker_cooldown_secs", 60)
	v.SetDefault("research.max_total_sources", 25)
	v.SetDefault("research.enhance_query", true)
	v.SetDefault("classify.max_sources", 25)
	v.SetDefault("classify.chunk_size", 25)
	v.SetDefault("classify.min_chunk_size", 3)
	v.SetDefault("retry.attempts", 3)
	v.SetDefault("retry.delay_ms", 500)
	v.SetDefault("retry.multiplier", 2.0)

	rates := cost.DefaultRates()
	for model, r := range rates.Models {
		v.SetDefault("pricing.models."+model+".input", r.Input)
		v.SetDefault("pricing.models."+model+".output", r.Output)
	}
	v.SetDefault("pricing.perplexity.per_query", rates.Perplexity.PerQuery)
	v.SetDefault("pricing.exa.per_search", rates.Exa.PerSearch)
	v.SetDefault("pricing.exa.per_content", rates.Exa.PerContent)
}

// Validate checks the settings needed by the given command mode
// ("research" or "serve") and reports every problem at once.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "research", "serve":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.LLM.Provider {
	case "openai", "anthropic":
	default:
		errs = append(errs, `llm.provider must be "openai" or "anthropic"`)
	}
	if c.Research.MaxTotalSources <= 0 {
		errs = append(errs, "research.max_total_sources must be > 0")
	}
	if c.Classify.MaxSources <= 0 {
		errs = append(errs, "classify.max_sources must be > 0")
	}
	if c.Classify.ChunkSize <= 0 {
		errs = append(errs, "classify.chunk_size must be > 0")
	}
	if c.Classify.MinChunkSize < 0 {
		errs = append(errs, "classify.min_chunk_size must be >= 0")
	}
	if c.Exa.NumResults <= 0 || c.Exa.NumResults > 100 {
		errs = append(errs, "exa.num_results must be between 1 and 100")
	}
	if c.Exa.ContentRetries < 0 {
		errs = append(errs, "exa.content_retries must be >= 0")
	}

	if mode == "serve" && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		errs = append(errs, "server.port must be > 0 and <= 65535")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Redacted returns a copy with API keys masked, for display.
func (c Config) Redacted() Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		if len(s) <= 8 {
			return "****"
		}
		return s[:4] + "****"
	}
	c.Perplexity.Key = mask(c.Perplexity.Key)
	c.Exa.Key = mask(c.Exa.Key)
	c.OpenAI.Key = mask(c.OpenAI.Key)
	c.Anthropic.Key = mask(c.Anthropic.Key)
	return c
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
