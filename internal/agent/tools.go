package agent

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/search"
	"github.com/sells-group/outreach-cli/pkg/anthropic"
)

// Tool names exposed to the model.
const (
	ToolWebSearch = "web_search"
	ToolReadPage  = "read_page"
)

// Toolbox executes the client-side tools available to search-enabled handles.
type Toolbox struct {
	Searcher search.Searcher
	Reader   search.Reader // optional
}

// Definitions returns the tool schemas sent with each request.
func (t *Toolbox) Definitions() []anthropic.Tool {
	if t == nil || t.Searcher == nil {
		return nil
	}
	tools := []anthropic.Tool{{
		Name:        ToolWebSearch,
		Description: "Search the web. Returns titles, URLs and snippets for the query.",
		Properties: map[string]any{
			"query": map[string]any{"type": "string", "description": "Search query"},
		},
		Required: []string{"query"},
	}}
	if t.Reader != nil {
		tools = append(tools, anthropic.Tool{
			Name:        ToolReadPage,
			Description: "Fetch a web page and return its readable text.",
			Properties: map[string]any{
				"url": map[string]any{"type": "string", "description": "Absolute URL of the page"},
			},
			Required: []string{"url"},
		})
	}
	return tools
}

// Run executes a tool call. Failures are reported to the model as error
// results instead of failing the invocation.
func (t *Toolbox) Run(ctx context.Context, use anthropic.ToolUse) anthropic.ToolResult {
	out, err := t.run(ctx, use)
	if err != nil {
		zap.L().Debug("agent: tool call failed",
			zap.String("tool", use.Name),
			zap.Error(err),
		)
		return anthropic.ToolResult{ToolUseID: use.ID, Content: err.Error(), IsError: true}
	}
	return anthropic.ToolResult{ToolUseID: use.ID, Content: out}
}

func (t *Toolbox) run(ctx context.Context, use anthropic.ToolUse) (string, error) {
	if t == nil {
		return "", eris.New("tools are not available")
	}
	var in struct {
		Query string `json:"query"`
		URL   string `json:"url"`
	}
	if len(use.Input) > 0 {
		if err := json.Unmarshal(use.Input, &in); err != nil {
			return "", eris.Errorf("invalid input for %s: %v", use.Name, err)
		}
	}

	switch use.Name {
	case ToolWebSearch:
		if t.Searcher == nil {
			return "", eris.New("web search is not available")
		}
		if strings.TrimSpace(in.Query) == "" {
			return "", eris.New("query is required")
		}
		results, err := t.Searcher.Search(ctx, in.Query)
		if err != nil {
			return "", err
		}
		if len(results) == 0 {
			return "No results.", nil
		}
		return marshal(results)
	case ToolReadPage:
		if t.Reader == nil {
			return "", eris.New("page reading is not available")
		}
		if strings.TrimSpace(in.URL) == "" {
			return "", eris.New("url is required")
		}
		page, err := t.Reader.Read(ctx, in.URL)
		if err != nil {
			return "", err
		}
		return marshal(page)
	default:
		return "", eris.Errorf("unknown tool %q", use.Name)
	}
}

func marshal(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
