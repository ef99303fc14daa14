package agent

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/outreach-cli/internal/resilience"
	"github.com/sells-group/outreach-cli/pkg/anthropic"
)

// AnthropicOptions configures handles backed by the Anthropic Messages API.
type AnthropicOptions struct {
	MaxTokens     int64
	MaxToolRounds int
	History       int
	Limiter       *rate.Limiter // shared by every handle; nil means unlimited
	Retry         resilience.RetryConfig
	Toolbox       *Toolbox // nil disables search for every handle
}

// AnthropicFactory builds Anthropic-backed handles.
type AnthropicFactory struct {
	client anthropic.Client
	opts   AnthropicOptions
}

// NewAnthropicFactory creates an AnthropicFactory.
func NewAnthropicFactory(client anthropic.Client, opts AnthropicOptions) *AnthropicFactory {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 8192
	}
	if opts.MaxToolRounds <= 0 {
		opts.MaxToolRounds = 8
	}
	if opts.Limiter == nil {
		opts.Limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &AnthropicFactory{client: client, opts: opts}
}

// New implements Factory.
func (f *AnthropicFactory) New(spec Spec) Agent {
	a := &anthropicAgent{
		client: f.client,
		opts:   f.opts,
		spec:   spec,
		memory: NewMemory(f.opts.History),
		system: anthropic.BuildCachedSystemBlocks(spec.Instructions),
	}
	if spec.Search {
		a.tools = f.opts.Toolbox.Definitions()
	}
	return a
}

type anthropicAgent struct {
	client anthropic.Client
	opts   AnthropicOptions
	spec   Spec
	memory *Memory
	system []anthropic.SystemBlock
	tools  []anthropic.Tool
}

// Invoke sends the prompt with the handle's history and resolves any tool
// calls the model makes, up to MaxToolRounds. The final text reply is
// recorded in memory and returned.
func (a *anthropicAgent) Invoke(ctx context.Context, prompt string) (string, error) {
	log := zap.L().With(
		zap.String("stage", string(a.spec.Stage)),
		zap.String("model", a.spec.Model),
	)
	start := time.Now()

	msgs := make([]anthropic.Message, 0, 2*len(a.memory.Exchanges())+1)
	for _, ex := range a.memory.Exchanges() {
		msgs = append(msgs,
			anthropic.Message{Role: "user", Content: ex.Prompt},
			anthropic.Message{Role: "assistant", Content: ex.Reply},
		)
	}
	msgs = append(msgs, anthropic.Message{Role: "user", Content: prompt})

	var usage anthropic.TokenUsage
	var resp *anthropic.MessageResponse
	for round := 0; ; round++ {
		var err error
		resp, err = a.call(ctx, msgs)
		if err != nil {
			return "", eris.Wrapf(err, "agent: %s invoke", a.spec.Stage)
		}
		usage.Add(resp.Usage)

		uses := resp.ToolUses()
		if resp.StopReason != anthropic.StopReasonToolUse || len(uses) == 0 {
			break
		}
		if round >= a.opts.MaxToolRounds {
			log.Warn("agent: tool round limit reached", zap.Int("rounds", round))
			break
		}

		results := make([]anthropic.ToolResult, 0, len(uses))
		for _, use := range uses {
			log.Debug("agent: tool call", zap.String("tool", use.Name), zap.ByteString("input", use.Input))
			results = append(results, a.opts.Toolbox.Run(ctx, use))
		}
		msgs = append(msgs,
			anthropic.Message{Role: "assistant", Content: resp.Text(), ToolUses: uses},
			anthropic.Message{Role: "user", ToolResults: results},
		)
	}

	reply := resp.Text()
	a.memory.Add(prompt, reply)

	usage.LogCost(a.spec.Model, string(a.spec.Stage))
	log.Debug("agent: invoke complete",
		zap.Int("reply_chars", len(reply)),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return reply, nil
}

func (a *anthropicAgent) call(ctx context.Context, msgs []anthropic.Message) (*anthropic.MessageResponse, error) {
	retry := a.opts.Retry
	retry.OnRetry = resilience.RetryLogger("anthropic", string(a.spec.Stage))

	return resilience.DoVal(ctx, retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		if err := a.opts.Limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "agent: rate limiter")
		}
		resp, err := a.client.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     a.spec.Model,
			MaxTokens: a.opts.MaxTokens,
			System:    a.system,
			Messages:  msgs,
			Tools:     a.tools,
		})
		return resp, classify(err)
	})
}
