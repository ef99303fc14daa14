package agent

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/sells-group/outreach-cli/internal/resilience"
)

// contentGenerator is the slice of genai.Models used by the Gemini handle.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiOptions configures handles backed by the Gemini API. Search-enabled
// handles use Google Search grounding instead of client-side tools.
type GeminiOptions struct {
	APIKey  string
	BaseURL string
	History int
	Limiter *rate.Limiter
	Retry   resilience.RetryConfig
}

// GeminiFactory builds Gemini-backed handles.
type GeminiFactory struct {
	gen  contentGenerator
	opts GeminiOptions
}

// NewGeminiFactory creates a GeminiFactory with its own genai client.
func NewGeminiFactory(ctx context.Context, opts GeminiOptions) (*GeminiFactory, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, eris.New("agent: gemini api key is required")
	}
	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(opts.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(opts.BaseURL) != "" {
		cc.HTTPOptions.BaseURL = strings.TrimSpace(opts.BaseURL)
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, eris.Wrap(err, "agent: create gemini client")
	}
	return newGeminiFactory(client.Models, opts), nil
}

func newGeminiFactory(gen contentGenerator, opts GeminiOptions) *GeminiFactory {
	if opts.Limiter == nil {
		opts.Limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &GeminiFactory{gen: gen, opts: opts}
}

// New implements Factory.
func (f *GeminiFactory) New(spec Spec) Agent {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(spec.Instructions, genai.RoleUser),
		CandidateCount:    1,
	}
	if spec.Search {
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}
	return &geminiAgent{
		gen:    f.gen,
		opts:   f.opts,
		spec:   spec,
		config: cfg,
		memory: NewMemory(f.opts.History),
	}
}

type geminiAgent struct {
	gen    contentGenerator
	opts   GeminiOptions
	spec   Spec
	config *genai.GenerateContentConfig
	memory *Memory
}

func (a *geminiAgent) Invoke(ctx context.Context, prompt string) (string, error) {
	start := time.Now()

	history := a.memory.Exchanges()
	contents := make([]*genai.Content, 0, 2*len(history)+1)
	for _, ex := range history {
		contents = append(contents,
			genai.NewContentFromText(ex.Prompt, genai.RoleUser),
			genai.NewContentFromText(ex.Reply, genai.RoleModel),
		)
	}
	contents = append(contents, genai.NewContentFromText(prompt, genai.RoleUser))

	retry := a.opts.Retry
	retry.OnRetry = resilience.RetryLogger("gemini", string(a.spec.Stage))

	resp, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (*genai.GenerateContentResponse, error) {
		if err := a.opts.Limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "agent: rate limiter")
		}
		resp, err := a.gen.GenerateContent(ctx, a.spec.Model, contents, a.config)
		return resp, classify(err)
	})
	if err != nil {
		return "", eris.Wrapf(err, "agent: %s invoke", a.spec.Stage)
	}

	reply := resp.Text()
	a.memory.Add(prompt, reply)

	fields := []zap.Field{
		zap.String("model", a.spec.Model),
		zap.String("stage", string(a.spec.Stage)),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	}
	if u := resp.UsageMetadata; u != nil {
		fields = append(fields,
			zap.Int32("input_tokens", u.PromptTokenCount),
			zap.Int32("output_tokens", u.CandidatesTokenCount),
		)
	}
	zap.L().Info("cost attribution", fields...)
	return reply, nil
}
