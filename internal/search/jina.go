package search

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/pkg/jina"
)

// MaxPageChars caps the page content returned by JinaReader.
const MaxPageChars = 12000

// JinaSearcher searches via Jina AI Search.
type JinaSearcher struct {
	client     jina.Client
	maxResults int
}

// NewJinaSearcher creates a JinaSearcher returning at most maxResults hits
// (0 means no limit).
func NewJinaSearcher(client jina.Client, maxResults int) *JinaSearcher {
	return &JinaSearcher{client: client, maxResults: maxResults}
}

// Name implements Searcher.
func (s *JinaSearcher) Name() string { return "jina" }

// Search implements Searcher.
func (s *JinaSearcher) Search(ctx context.Context, query string) ([]Result, error) {
	resp, err := s.client.Search(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "search: jina")
	}

	results := make([]Result, 0, len(resp.Data))
	for _, d := range resp.Data {
		snippet := d.Description
		if snippet == "" {
			snippet = d.Content
		}
		results = append(results, Result{
			Title:   d.Title,
			URL:     d.URL,
			Snippet: clip(snippet, 500),
			Source:  s.Name(),
		})
		if s.maxResults > 0 && len(results) == s.maxResults {
			break
		}
	}
	return results, nil
}

// JinaReader reads pages via Jina AI Reader.
type JinaReader struct {
	client jina.Client
}

// NewJinaReader creates a JinaReader.
func NewJinaReader(client jina.Client) *JinaReader {
	return &JinaReader{client: client}
}

// Read implements Reader.
func (r *JinaReader) Read(ctx context.Context, url string) (*Page, error) {
	resp, err := r.client.Read(ctx, url)
	if err != nil {
		return nil, eris.Wrapf(err, "search: read %s", url)
	}
	return &Page{
		Title:   resp.Data.Title,
		URL:     url,
		Content: clip(resp.Data.Content, MaxPageChars),
	}, nil
}

func clip(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
