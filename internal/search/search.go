// Package search provides the web search and page reading capability that
// discovery stages hand to their text-generation agents.
package search

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/resilience"
)

// Result is a single search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	Source  string `json:"source"` // provider name, e.g. "jina"
}

// Searcher runs a web search.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Result, error)
	Name() string
}

// Page is the readable content of a web page.
type Page struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// Reader fetches a page as text.
type Reader interface {
	Read(ctx context.Context, url string) (*Page, error)
}

// ErrNoProviders is returned by an empty chain.
var ErrNoProviders = eris.New("search: no providers configured")

// Chain tries searchers in priority order and returns the first successful
// response, even an empty one. Each provider sits behind its own circuit
// breaker so a provider that keeps failing is skipped.
type Chain struct {
	providers []provider
}

type provider struct {
	searcher Searcher
	breaker  *resilience.Breaker
}

// NewChain creates a Chain. Searchers are tried in the order given.
func NewChain(cfg resilience.BreakerConfig, searchers ...Searcher) *Chain {
	c := &Chain{}
	for _, s := range searchers {
		name := s.Name()
		bc := cfg
		bc.OnStateChange = func(from, to resilience.CircuitState) {
			zap.L().Warn("search: provider circuit changed",
				zap.String("provider", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to),
			)
		}
		c.providers = append(c.providers, provider{searcher: s, breaker: resilience.NewBreaker(bc)})
	}
	return c
}

// Name implements Searcher.
func (c *Chain) Name() string { return "chain" }

// Search implements Searcher.
func (c *Chain) Search(ctx context.Context, query string) ([]Result, error) {
	if len(c.providers) == 0 {
		return nil, ErrNoProviders
	}

	var lastErr error
	for _, p := range c.providers {
		results, err := resilience.Call(ctx, p.breaker, func(ctx context.Context) ([]Result, error) {
			return p.searcher.Search(ctx, query)
		})
		if err == nil {
			return results, nil
		}
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "search: cancelled")
		}
		if !errors.Is(err, resilience.ErrCircuitOpen) {
			zap.L().Debug("search: provider failed, trying next",
				zap.String("provider", p.searcher.Name()),
				zap.String("query", query),
				zap.Error(err),
			)
		}
		lastErr = err
	}
	return nil, eris.Wrap(lastErr, "search: all providers failed")
}
