package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "outreach.db", cfg.Store.DatabaseURL)
	assert.Equal(t, ProviderAnthropic, cfg.LLM.Provider)
	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.LLM.Model)
	assert.Equal(t, 6, cfg.LLM.History)
	assert.Equal(t, int64(8192), cfg.LLM.MaxTokens)
	assert.Equal(t, 8, cfg.LLM.MaxToolRounds)
	assert.Equal(t, 50, cfg.LLM.RatePerMinute)
	assert.Equal(t, 3, cfg.LLM.Retry.MaxAttempts)
	assert.Equal(t, "gemini-2.5-flash", cfg.Gemini.Model)
	assert.Equal(t, "https://r.jina.ai", cfg.Jina.BaseURL)
	assert.Equal(t, "https://s.jina.ai", cfg.Jina.SearchBaseURL)
	assert.Equal(t, "sonar-pro", cfg.Perplexity.Model)
	assert.Equal(t, 3, cfg.Search.BreakerThreshold)
	assert.Equal(t, 5, cfg.Pipeline.MaxCompanies)
	assert.Equal(t, 3, cfg.Pipeline.BatchMaxCompanies)
	assert.Equal(t, "Professional", cfg.Pipeline.EmailStyle)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 100, cfg.Server.QueueSize)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/outreach
llm:
  provider: gemini
  history: 4
pipeline:
  max_companies: 8
  email_style: Casual
sender:
  name: Dana
  company: Trustline
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/outreach", cfg.Store.DatabaseURL)
	assert.Equal(t, ProviderGemini, cfg.LLM.Provider)
	assert.Equal(t, 4, cfg.LLM.History)
	assert.Equal(t, 8, cfg.Pipeline.MaxCompanies)
	assert.Equal(t, "Casual", cfg.Pipeline.EmailStyle)
	assert.Equal(t, "Dana", cfg.Sender.Name)
	assert.Equal(t, "Trustline", cfg.Sender.Company)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Defaults still apply for unset values
	assert.Equal(t, 3, cfg.Pipeline.BatchMaxCompanies)
	assert.Equal(t, "gemini-2.5-flash", cfg.DefaultModel())
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("OUTREACH_STORE_DRIVER", "postgres")
	t.Setenv("OUTREACH_LOG_LEVEL", "warn")
	t.Setenv("OUTREACH_ANTHROPIC_KEY", "sk-ant-env")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "sk-ant-env", cfg.Anthropic.Key)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("OUTREACH_SERVER_PORT", "3000")
	t.Setenv("OUTREACH_SENDER_CALENDAR_LINK", "https://cal.com/dana")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "https://cal.com/dana", cfg.Sender.CalendarLink)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0o644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = "outreach.db"
	cfg.LLM.Provider = ProviderAnthropic
	cfg.LLM.History = 6
	cfg.LLM.MaxToolRounds = 8
	cfg.Anthropic.Key = "sk-ant-key"
	cfg.Jina.Key = "jina-key"
	cfg.Pipeline.MaxCompanies = 5
	cfg.Pipeline.BatchMaxCompanies = 3
	cfg.Pipeline.EmailStyle = "Professional"
	cfg.Server.Port = 8080
	cfg.Server.QueueSize = 100
	return cfg
}

func TestValidatePipeline_AllPresent(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("pipeline"))
}

func TestValidatePipeline_MissingKeys(t *testing.T) {
	cfg := validDefaults()
	cfg.Anthropic.Key = ""
	cfg.Jina.Key = ""

	err := cfg.Validate("pipeline")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key is required")
	assert.Contains(t, err.Error(), "jina.key or perplexity.key is required")
}

func TestValidatePipeline_PerplexityOnlySearch(t *testing.T) {
	cfg := validDefaults()
	cfg.Jina.Key = ""
	cfg.Perplexity.Key = "pplx-key"

	assert.NoError(t, cfg.Validate("pipeline"))
}

func TestValidatePipeline_Gemini(t *testing.T) {
	cfg := validDefaults()
	cfg.LLM.Provider = ProviderGemini
	cfg.Anthropic.Key = ""
	cfg.Jina.Key = ""

	err := cfg.Validate("pipeline")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gemini.key is required")

	cfg.Gemini.Key = "g-key"
	assert.NoError(t, cfg.Validate("pipeline"))
}

func TestValidatePipeline_Bounds(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "unknown provider", mutate: func(c *Config) { c.LLM.Provider = "openai" }, want: "llm.provider must be anthropic or gemini"},
		{name: "negative history", mutate: func(c *Config) { c.LLM.History = -1 }, want: "llm.history must be >= 0"},
		{name: "no tool rounds", mutate: func(c *Config) { c.LLM.MaxToolRounds = 0 }, want: "llm.max_tool_rounds"},
		{name: "too many companies", mutate: func(c *Config) { c.Pipeline.MaxCompanies = 11 }, want: "pipeline.max_companies must be between 1 and 10"},
		{name: "zero batch companies", mutate: func(c *Config) { c.Pipeline.BatchMaxCompanies = 0 }, want: "pipeline.batch_max_companies"},
		{name: "unknown style", mutate: func(c *Config) { c.Pipeline.EmailStyle = "Pirate" }, want: "pipeline.email_style"},
		{name: "unknown driver", mutate: func(c *Config) { c.Store.Driver = "mysql" }, want: "store.driver must be sqlite or postgres"},
		{name: "no database", mutate: func(c *Config) { c.Store.DatabaseURL = "" }, want: "store.database_url is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			tt.mutate(cfg)
			err := cfg.Validate("pipeline")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateServe_ValidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 9090

	assert.NoError(t, cfg.Validate("serve"))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateStore_IgnoresProviderKeys(t *testing.T) {
	cfg := validDefaults()
	cfg.Anthropic.Key = ""
	cfg.Jina.Key = ""

	assert.NoError(t, cfg.Validate("store"))
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
