package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/resilience"
	"github.com/sells-group/outreach-cli/pkg/jina"
	jinamocks "github.com/sells-group/outreach-cli/pkg/jina/mocks"
	"github.com/sells-group/outreach-cli/pkg/perplexity"
	pplxmocks "github.com/sells-group/outreach-cli/pkg/perplexity/mocks"
)

// stubSearcher implements Searcher for testing.
type stubSearcher struct {
	name    string
	results []Result
	err     error
	calls   int
}

func (s *stubSearcher) Name() string { return s.name }
func (s *stubSearcher) Search(_ context.Context, _ string) ([]Result, error) {
	s.calls++
	return s.results, s.err
}

func TestChain_FirstSuccessWins(t *testing.T) {
	primary := &stubSearcher{name: "primary", results: []Result{{Title: "A"}}}
	fallback := &stubSearcher{name: "fallback", results: []Result{{Title: "B"}}}

	chain := NewChain(resilience.BreakerConfig{}, primary, fallback)
	got, err := chain.Search(context.Background(), "q")

	require.NoError(t, err)
	assert.Equal(t, []Result{{Title: "A"}}, got)
	assert.Equal(t, 0, fallback.calls)
}

func TestChain_EmptyResultIsSuccess(t *testing.T) {
	primary := &stubSearcher{name: "primary", results: []Result{}}
	fallback := &stubSearcher{name: "fallback", results: []Result{{Title: "B"}}}

	got, err := NewChain(resilience.BreakerConfig{}, primary, fallback).Search(context.Background(), "q")

	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 0, fallback.calls)
}

func TestChain_FallsBackOnError(t *testing.T) {
	primary := &stubSearcher{name: "primary", err: errors.New("down")}
	fallback := &stubSearcher{name: "fallback", results: []Result{{Title: "B"}}}

	got, err := NewChain(resilience.BreakerConfig{}, primary, fallback).Search(context.Background(), "q")

	require.NoError(t, err)
	assert.Equal(t, "B", got[0].Title)
}

func TestChain_AllFail(t *testing.T) {
	primary := &stubSearcher{name: "primary", err: errors.New("down")}
	fallback := &stubSearcher{name: "fallback", err: errors.New("also down")}

	_, err := NewChain(resilience.BreakerConfig{}, primary, fallback).Search(context.Background(), "q")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "search: all providers failed")
	assert.Contains(t, err.Error(), "also down")
}

func TestChain_SkipsProviderWithOpenCircuit(t *testing.T) {
	primary := &stubSearcher{name: "primary", err: errors.New("down")}
	fallback := &stubSearcher{name: "fallback", results: []Result{{Title: "B"}}}

	chain := NewChain(resilience.BreakerConfig{FailureThreshold: 2, ResetTimeout: time.Hour}, primary, fallback)
	for i := 0; i < 4; i++ {
		_, err := chain.Search(context.Background(), "q")
		require.NoError(t, err)
	}

	assert.Equal(t, 2, primary.calls)
	assert.Equal(t, 4, fallback.calls)
}

func TestChain_NoProviders(t *testing.T) {
	_, err := NewChain(resilience.BreakerConfig{}).Search(context.Background(), "q")
	assert.ErrorIs(t, err, ErrNoProviders)
}

func TestJinaSearcher(t *testing.T) {
	client := jinamocks.NewMockClient(t)
	client.On("Search", mock.Anything, "b2b saas").Return(&jina.SearchResponse{
		Code: 200,
		Data: []jina.SearchResult{
			{Title: "One", URL: "https://one.com", Description: "first"},
			{Title: "Two", URL: "https://two.com", Content: "  body text  "},
			{Title: "Three", URL: "https://three.com"},
		},
	}, nil)

	got, err := NewJinaSearcher(client, 2).Search(context.Background(), "b2b saas")

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, Result{Title: "One", URL: "https://one.com", Snippet: "first", Source: "jina"}, got[0])
	assert.Equal(t, "body text", got[1].Snippet)
}

func TestJinaSearcher_Error(t *testing.T) {
	client := jinamocks.NewMockClient(t)
	client.On("Search", mock.Anything, "q").Return(nil, errors.New("boom"))

	_, err := NewJinaSearcher(client, 0).Search(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search: jina")
}

func TestJinaReader_ClipsContent(t *testing.T) {
	long := make([]rune, MaxPageChars+50)
	for i := range long {
		long[i] = 'x'
	}
	client := jinamocks.NewMockClient(t)
	client.On("Read", mock.Anything, "https://acme.com").Return(&jina.ReadResponse{
		Code: 200,
		Data: jina.ReadData{Title: "Acme", Content: string(long)},
	}, nil)

	page, err := NewJinaReader(client).Read(context.Background(), "https://acme.com")

	require.NoError(t, err)
	assert.Equal(t, "Acme", page.Title)
	assert.Equal(t, "https://acme.com", page.URL)
	assert.Len(t, page.Content, MaxPageChars)
}

func TestPerplexitySearcher(t *testing.T) {
	client := pplxmocks.NewMockClient(t)
	client.On("ChatCompletion", mock.Anything, mock.MatchedBy(func(req perplexity.ChatCompletionRequest) bool {
		return len(req.Messages) == 2 && req.Messages[1].Content == "acme funding"
	})).Return(&perplexity.ChatCompletionResponse{
		Choices: []perplexity.Choice{{Message: perplexity.Message{Role: "assistant", Content: "Acme raised $20M."}}},
		SearchResults: []perplexity.SearchResult{
			{Title: "Acme raises", URL: "https://news.com/acme"},
		},
		Citations: []string{"https://news.com/acme", "https://acme.com/blog"},
	}, nil)

	got, err := NewPerplexitySearcher(client, resilience.RetryConfig{MaxAttempts: 1}).Search(context.Background(), "acme funding")

	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "Acme raised $20M.", got[0].Snippet)
	assert.Equal(t, "https://news.com/acme", got[1].URL)
	assert.Equal(t, "https://acme.com/blog", got[2].URL)
	for _, r := range got {
		assert.Equal(t, "perplexity", r.Source)
	}
}

func TestPerplexitySearcher_RetriesTransient(t *testing.T) {
	client := pplxmocks.NewMockClient(t)
	client.On("ChatCompletion", mock.Anything, mock.Anything).
		Return(nil, resilience.NewTransientError(errors.New("429"), 429)).Once()
	client.On("ChatCompletion", mock.Anything, mock.Anything).
		Return(&perplexity.ChatCompletionResponse{}, nil).Once()

	cfg := resilience.RetryConfig{MaxAttempts: 2, InitialBackoff: time.Millisecond}
	got, err := NewPerplexitySearcher(client, cfg).Search(context.Background(), "q")

	require.NoError(t, err)
	assert.Empty(t, got)
}
