package batch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/agent"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/pipeline"
)

// stageFactory hands out agents that honour ctx and answer with a fixed
// reply per stage. before, when set, runs ahead of every reply and may fail
// the call.
type stageFactory struct {
	mu      sync.Mutex
	calls   map[model.Stage]int
	replies map[model.Stage]string
	before  func(s model.Stage, prompt string) error
}

func newStageFactory() *stageFactory {
	return &stageFactory{
		calls: map[model.Stage]int{},
		replies: map[model.Stage]string{
			model.StageCompanies: `{"companies":[{"name":"Acme","website":"https://acme.com"}]}`,
			model.StageContacts:  `{"companies":[{"name":"Acme","contacts":[{"full_name":"Ana Ruiz","title":"CTO"}]}]}`,
			model.StagePhones:    `{"companies":[]}`,
			model.StageResearch:  `{"companies":[{"name":"Acme","insights":["Raised a Series B"]}]}`,
			model.StageEmails:    `{"emails":[{"company":"Acme","contact":"Ana Ruiz","subject":"Hi","body":"Hello Ana"}]}`,
		},
	}
}

func (f *stageFactory) New(spec agent.Spec) agent.Agent {
	return &stageAgent{f: f, stage: spec.Stage}
}

func (f *stageFactory) count(s model.Stage) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[s]
}

type stageAgent struct {
	f     *stageFactory
	stage model.Stage
}

func (a *stageAgent) Invoke(ctx context.Context, prompt string) (string, error) {
	a.f.mu.Lock()
	a.f.calls[a.stage]++
	before := a.f.before
	a.f.mu.Unlock()

	if before != nil {
		if err := before(a.stage, prompt); err != nil {
			return "", err
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return a.f.replies[a.stage], nil
}

func TestRunner_Run_ContactFailureIsolatedToRow(t *testing.T) {
	f := newStageFactory()
	f.before = func(s model.Stage, prompt string) error {
		if s == model.StageContacts && strings.Contains(prompt, "Healthcare | Boston") {
			return errors.New("contact lookup unavailable")
		}
		return nil
	}
	r := &Runner{Pipeline: pipeline.New(f, "test-model"), Defaults: defaults()}

	results, err := r.Run(context.Background(), [][]string{
		{"Fintech", "Berlin"},
		{"Healthcare", "Boston"},
		{"Logistics", "Ohio"},
	}, "SOC 2 automation")

	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.False(t, results[0].Failed())
	require.NotNil(t, results[0].Result)
	assert.Len(t, results[0].Result.Emails, 1)

	assert.Equal(t, 2, results[1].Row)
	assert.True(t, results[1].Failed())
	assert.Nil(t, results[1].Result)
	assert.Contains(t, results[1].Error, "stage contacts failed")
	assert.Contains(t, results[1].Error, "contact lookup unavailable")

	assert.False(t, results[2].Failed())
	require.NotNil(t, results[2].Result)
	assert.Len(t, results[2].Result.Emails, 1)

	assert.Equal(t, 3, f.count(model.StageContacts))
	assert.Equal(t, 2, f.count(model.StageEmails))
}

func TestRunner_Run_CancelDuringStageFinishesRow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newStageFactory()
	f.before = func(s model.Stage, _ string) error {
		if s == model.StageContacts {
			cancel()
		}
		return nil
	}
	r := &Runner{Pipeline: pipeline.New(f, "test-model"), Defaults: defaults()}

	results, err := r.Run(ctx, [][]string{{"Fintech", "Berlin"}, {"Logistics", "Ohio"}}, "SOC 2 automation")

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, results, 1)
	assert.False(t, results[0].Failed(), "row in flight failed: %s", results[0].Error)
	require.NotNil(t, results[0].Result)
	assert.Len(t, results[0].Result.Emails, 1)
	assert.Equal(t, 1, f.count(model.StageCompanies))
}
