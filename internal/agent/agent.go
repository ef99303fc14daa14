// Package agent provides the text-generation capability each pipeline stage
// invokes: a handle bound to fixed instructions, a model, optional web search
// and a bounded conversational memory.
package agent

import (
	"context"
	"sync"

	"github.com/sells-group/outreach-cli/internal/model"
)

// Agent turns a prompt into free-form text.
type Agent interface {
	Invoke(ctx context.Context, prompt string) (string, error)
}

// Spec binds a handle to a stage.
type Spec struct {
	Stage        model.Stage
	Model        string
	Instructions string
	Search       bool
}

// Factory constructs capability handles. Each call returns a new handle with
// its own memory.
type Factory interface {
	New(spec Spec) Agent
}

// DefaultHistory is the number of past exchanges a handle replays.
const DefaultHistory = 6

// Exchange is one prompt and the reply it produced.
type Exchange struct {
	Prompt string
	Reply  string
}

// Memory keeps the most recent exchanges of a handle. It only provides
// conversational continuity; stages pass their data explicitly in prompts.
type Memory struct {
	mu        sync.Mutex
	limit     int
	exchanges []Exchange
}

// NewMemory creates a Memory holding at most limit exchanges. A limit of 0
// disables memory.
func NewMemory(limit int) *Memory {
	if limit < 0 {
		limit = 0
	}
	return &Memory{limit: limit}
}

// Add records an exchange, evicting the oldest beyond the limit.
func (m *Memory) Add(prompt, reply string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.limit == 0 {
		return
	}
	m.exchanges = append(m.exchanges, Exchange{Prompt: prompt, Reply: reply})
	if over := len(m.exchanges) - m.limit; over > 0 {
		m.exchanges = append([]Exchange(nil), m.exchanges[over:]...)
	}
}

// Exchanges returns a copy of the retained exchanges, oldest first.
func (m *Memory) Exchanges() []Exchange {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Exchange(nil), m.exchanges...)
}
