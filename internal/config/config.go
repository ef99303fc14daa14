package config

import (
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	LLM        LLMConfig        `yaml:"llm" mapstructure:"llm"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Gemini     GeminiConfig     `yaml:"gemini" mapstructure:"gemini"`
	Jina       JinaConfig       `yaml:"jina" mapstructure:"jina"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Search     SearchConfig     `yaml:"search" mapstructure:"search"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Sender     SenderConfig     `yaml:"sender" mapstructure:"sender"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run history backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// Text-generation providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// LLMConfig configures the capability handles shared by every stage.
type LLMConfig struct {
	Provider      string      `yaml:"provider" mapstructure:"provider"`
	Model         string      `yaml:"model" mapstructure:"model"`
	EmailModel    string      `yaml:"email_model" mapstructure:"email_model"`
	History       int         `yaml:"history" mapstructure:"history"`
	MaxTokens     int64       `yaml:"max_tokens" mapstructure:"max_tokens"`
	MaxToolRounds int         `yaml:"max_tool_rounds" mapstructure:"max_tool_rounds"`
	RatePerMinute int         `yaml:"rate_per_minute" mapstructure:"rate_per_minute"`
	Retry         RetryConfig `yaml:"retry" mapstructure:"retry"`
}

// RetryConfig configures transport-level retries of model calls.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// GeminiConfig holds Gemini API settings.
type GeminiConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// JinaConfig holds Jina AI Reader and Search settings.
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
	MaxResults    int    `yaml:"max_results" mapstructure:"max_results"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// SearchConfig configures the search provider chain.
type SearchConfig struct {
	BreakerThreshold int `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerResetSecs int `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// PipelineConfig configures run defaults.
type PipelineConfig struct {
	MaxCompanies      int    `yaml:"max_companies" mapstructure:"max_companies"`
	BatchMaxCompanies int    `yaml:"batch_max_companies" mapstructure:"batch_max_companies"`
	EmailStyle        string `yaml:"email_style" mapstructure:"email_style"`
	StylesPath        string `yaml:"styles_path" mapstructure:"styles_path"`
}

// SenderConfig identifies who outreach emails are from.
type SenderConfig struct {
	Name         string `yaml:"name" mapstructure:"name"`
	Company      string `yaml:"company" mapstructure:"company"`
	CalendarLink string `yaml:"calendar_link" mapstructure:"calendar_link"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port      int `yaml:"port" mapstructure:"port"`
	QueueSize int `yaml:"queue_size" mapstructure:"queue_size"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

var emailStyles = []string{"Professional", "Casual", "Cold", "Consultative"}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("OUTREACH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "outreach.db")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("llm.provider", ProviderAnthropic)
	v.SetDefault("llm.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("llm.history", 6)
	v.SetDefault("llm.max_tokens", 8192)
	v.SetDefault("llm.max_tool_rounds", 8)
	v.SetDefault("llm.rate_per_minute", 50)
	v.SetDefault("llm.retry.max_attempts", 3)
	v.SetDefault("llm.retry.initial_backoff_ms", 500)
	v.SetDefault("llm.retry.max_backoff_ms", 30000)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.base_url", "")
	v.SetDefault("gemini.key", "")
	v.SetDefault("gemini.base_url", "")
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("jina.key", "")
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("jina.max_results", 5)
	v.SetDefault("perplexity.key", "")
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("search.breaker_threshold", 3)
	v.SetDefault("search.breaker_reset_secs", 60)
	v.SetDefault("pipeline.max_companies", 5)
	v.SetDefault("pipeline.batch_max_companies", 3)
	v.SetDefault("pipeline.email_style", "Professional")
	v.SetDefault("pipeline.styles_path", "")
	v.SetDefault("sender.name", "")
	v.SetDefault("sender.company", "")
	v.SetDefault("sender.calendar_link", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.queue_size", 100)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// Validate checks the settings a command needs. mode is "pipeline" for the
// run and batch commands, "serve" for the server and "store" for commands
// that only read run history.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "store":
		errs = append(errs, c.validateStore()...)
	case "pipeline":
		errs = append(errs, c.validateStore()...)
		errs = append(errs, c.validatePipeline()...)
	case "serve":
		errs = append(errs, c.validateStore()...)
		errs = append(errs, c.validatePipeline()...)
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Server.QueueSize <= 0 {
			errs = append(errs, "server.queue_size must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateStore() []string {
	var errs []string
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, "store.driver must be sqlite or postgres")
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}
	return errs
}

func (c *Config) validatePipeline() []string {
	var errs []string
	switch c.LLM.Provider {
	case ProviderAnthropic:
		if c.Anthropic.Key == "" {
			errs = append(errs, "anthropic.key is required")
		}
		if c.Jina.Key == "" && c.Perplexity.Key == "" {
			errs = append(errs, "jina.key or perplexity.key is required for search")
		}
	case ProviderGemini:
		if c.Gemini.Key == "" {
			errs = append(errs, "gemini.key is required")
		}
	default:
		errs = append(errs, "llm.provider must be anthropic or gemini")
	}
	if c.LLM.History < 0 {
		errs = append(errs, "llm.history must be >= 0")
	}
	if c.LLM.MaxToolRounds < 1 {
		errs = append(errs, "llm.max_tool_rounds must be >= 1")
	}
	if c.Pipeline.MaxCompanies < 1 || c.Pipeline.MaxCompanies > 10 {
		errs = append(errs, "pipeline.max_companies must be between 1 and 10")
	}
	if c.Pipeline.BatchMaxCompanies < 1 || c.Pipeline.BatchMaxCompanies > 10 {
		errs = append(errs, "pipeline.batch_max_companies must be between 1 and 10")
	}
	if c.Pipeline.EmailStyle != "" && !slices.Contains(emailStyles, c.Pipeline.EmailStyle) {
		errs = append(errs, "pipeline.email_style must be one of "+strings.Join(emailStyles, ", "))
	}
	return errs
}

// DefaultModel returns the default model of the configured provider.
func (c *Config) DefaultModel() string {
	if c.LLM.Provider == ProviderGemini && c.Gemini.Model != "" {
		return c.Gemini.Model
	}
	return c.LLM.Model
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
