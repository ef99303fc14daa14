package main

import (
	"context"
	"time"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/outreach-cli/internal/agent"
	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/pipeline"
	"github.com/sells-group/outreach-cli/internal/prompt"
	"github.com/sells-group/outreach-cli/internal/resilience"
	"github.com/sells-group/outreach-cli/internal/search"
	"github.com/sells-group/outreach-cli/internal/store"
	anthropicpkg "github.com/sells-group/outreach-cli/pkg/anthropic"
	"github.com/sells-group/outreach-cli/pkg/jina"
	"github.com/sells-group/outreach-cli/pkg/perplexity"
)

// pipelineEnv holds the store and pipeline needed by the run, batch and
// serve commands.
type pipelineEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline validates config for mode, opens and migrates the store and
// builds the Pipeline. Callers should defer env.Close().
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}

	catalog, err := prompt.LoadCatalog(cfg.Pipeline.StylesPath)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	factory, err := initAgentFactory(ctx)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	p := pipeline.New(factory, cfg.DefaultModel(),
		pipeline.WithStore(st),
		pipeline.WithCatalog(catalog),
		pipeline.WithStageModel(model.StageEmails, cfg.LLM.EmailModel),
	)

	zap.L().Info("pipeline ready",
		zap.String("provider", cfg.LLM.Provider),
		zap.String("model", cfg.DefaultModel()),
		zap.String("store", cfg.Store.Driver),
	)
	return &pipelineEnv{Store: st, Pipeline: p}, nil
}

// initStore creates the configured run store.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "outreach.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// openStore creates the store and applies its migrations.
func openStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initAgentFactory builds the handle factory for the configured provider.
func initAgentFactory(ctx context.Context) (agent.Factory, error) {
	retry := resilience.FromRetryConfig(cfg.LLM.Retry.MaxAttempts, cfg.LLM.Retry.InitialBackoffMs, cfg.LLM.Retry.MaxBackoffMs)

	switch cfg.LLM.Provider {
	case config.ProviderGemini:
		return agent.NewGeminiFactory(ctx, agent.GeminiOptions{
			APIKey:  cfg.Gemini.Key,
			BaseURL: cfg.Gemini.BaseURL,
			History: cfg.LLM.History,
			Limiter: newLimiter(cfg.LLM.RatePerMinute),
			Retry:   retry,
		})
	case config.ProviderAnthropic:
		var opts []option.RequestOption
		if cfg.Anthropic.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.Anthropic.BaseURL))
		}
		searcher, reader := initSearch(retry)
		return agent.NewAnthropicFactory(anthropicpkg.NewClient(cfg.Anthropic.Key, opts...), agent.AnthropicOptions{
			MaxTokens:     cfg.LLM.MaxTokens,
			MaxToolRounds: cfg.LLM.MaxToolRounds,
			History:       cfg.LLM.History,
			Limiter:       newLimiter(cfg.LLM.RatePerMinute),
			Retry:         retry,
			Toolbox:       &agent.Toolbox{Searcher: searcher, Reader: reader},
		}), nil
	default:
		return nil, eris.Errorf("unsupported llm provider: %s", cfg.LLM.Provider)
	}
}

// initSearch builds the search chain: Jina primary, Perplexity fallback.
// Providers without a key are left out. The reader is nil without Jina.
func initSearch(retry resilience.RetryConfig) (search.Searcher, search.Reader) {
	var (
		searchers []search.Searcher
		reader    search.Reader
	)
	if cfg.Jina.Key != "" {
		jinaOpts := []jina.Option{jina.WithBaseURL(cfg.Jina.BaseURL), jina.WithRetry(retry)}
		if cfg.Jina.SearchBaseURL != "" {
			jinaOpts = append(jinaOpts, jina.WithSearchBaseURL(cfg.Jina.SearchBaseURL))
		}
		jinaClient := jina.NewClient(cfg.Jina.Key, jinaOpts...)
		searchers = append(searchers, search.NewJinaSearcher(jinaClient, cfg.Jina.MaxResults))
		reader = search.NewJinaReader(jinaClient)
	}
	if cfg.Perplexity.Key != "" {
		pc := perplexity.NewClient(cfg.Perplexity.Key,
			perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
			perplexity.WithModel(cfg.Perplexity.Model),
		)
		searchers = append(searchers, search.NewPerplexitySearcher(pc, retry))
	}
	if len(searchers) == 0 {
		zap.L().Warn("no search provider configured, agents will run without web search")
		return nil, nil
	}

	chain := search.NewChain(resilience.BreakerConfig{
		FailureThreshold: cfg.Search.BreakerThreshold,
		ResetTimeout:     time.Duration(cfg.Search.BreakerResetSecs) * time.Second,
	}, searchers...)
	return chain, reader
}

// newLimiter paces model calls to perMinute requests. Zero or less means
// unlimited.
func newLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
}

// baseRequest returns the configured request defaults: sender, style and
// company limit.
func baseRequest(maxCompanies int) model.RunRequest {
	return model.RunRequest{
		Sender: model.Sender{
			Name:         cfg.Sender.Name,
			Company:      cfg.Sender.Company,
			CalendarLink: cfg.Sender.CalendarLink,
		},
		MaxCompanies: maxCompanies,
		EmailStyle:   cfg.Pipeline.EmailStyle,
	}
}

// mergeRequest fills the zero fields of req from base.
func mergeRequest(req, base model.RunRequest) model.RunRequest {
	if req.Offering == "" {
		req.Offering = base.Offering
	}
	if req.Sender.Name == "" {
		req.Sender.Name = base.Sender.Name
	}
	if req.Sender.Company == "" {
		req.Sender.Company = base.Sender.Company
	}
	if req.Sender.CalendarLink == "" {
		req.Sender.CalendarLink = base.Sender.CalendarLink
	}
	if req.MaxCompanies == 0 {
		req.MaxCompanies = base.MaxCompanies
	}
	if req.EmailStyle == "" {
		req.EmailStyle = base.EmailStyle
	}
	return req
}

// warnUnknownCompanies logs downstream company names that discovery did not
// return.
func warnUnknownCompanies(log *zap.Logger, result *model.PipelineResult) {
	if unknown := pipeline.UnknownCompanies(result); len(unknown) > 0 {
		log.Warn("results reference companies that were not discovered", zap.Strings("companies", unknown))
	}
}
