package search

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/resilience"
	"github.com/sells-group/outreach-cli/pkg/perplexity"
)

// PerplexitySearcher answers a query with a web-grounded Perplexity
// completion. The answer comes back as the first result, followed by one
// result per cited source.
type PerplexitySearcher struct {
	client perplexity.Client
	retry  resilience.RetryConfig
}

// NewPerplexitySearcher creates a PerplexitySearcher.
func NewPerplexitySearcher(client perplexity.Client, retry resilience.RetryConfig) *PerplexitySearcher {
	return &PerplexitySearcher{client: client, retry: retry}
}

// Name implements Searcher.
func (s *PerplexitySearcher) Name() string { return "perplexity" }

// Search implements Searcher.
func (s *PerplexitySearcher) Search(ctx context.Context, query string) ([]Result, error) {
	cfg := s.retry
	cfg.OnRetry = resilience.RetryLogger("perplexity", "search")

	resp, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*perplexity.ChatCompletionResponse, error) {
		return s.client.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
			Messages: []perplexity.Message{
				{Role: "system", Content: "Answer with concise factual findings from the web. Name your sources."},
				{Role: "user", Content: query},
			},
		})
	})
	if err != nil {
		return nil, eris.Wrap(err, "search: perplexity")
	}

	var results []Result
	if answer := resp.Text(); answer != "" {
		results = append(results, Result{
			Title:   fmt.Sprintf("Answer: %s", clip(query, 80)),
			Snippet: answer,
			Source:  s.Name(),
		})
	}

	seen := make(map[string]bool)
	for _, sr := range resp.SearchResults {
		if sr.URL == "" || seen[sr.URL] {
			continue
		}
		seen[sr.URL] = true
		results = append(results, Result{Title: sr.Title, URL: sr.URL, Source: s.Name()})
	}
	for _, u := range resp.Citations {
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		results = append(results, Result{URL: u, Source: s.Name()})
	}
	return results, nil
}
