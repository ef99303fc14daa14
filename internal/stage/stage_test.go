package stage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/extract"
	"github.com/sells-group/outreach-cli/internal/model"
)

type replyAgent struct {
	reply   string
	err     error
	prompts []string
}

func (a *replyAgent) Invoke(_ context.Context, prompt string) (string, error) {
	a.prompts = append(a.prompts, prompt)
	return a.reply, a.err
}

func TestRun_DecodesRecords(t *testing.T) {
	a := &replyAgent{reply: "Here you go:\n```json\n{\"companies\":[{\"name\":\"Acme\",\"employee_count\":250}]}\n```"}

	got, err := Run[model.Company](context.Background(), a, "find", "companies")

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Acme", got[0].Name)
	assert.Equal(t, model.FlexString("250"), got[0].EmployeeCount)
	assert.Equal(t, []string{"find"}, a.prompts)
}

func TestRun_MissingKeyIsEmpty(t *testing.T) {
	for _, reply := range []string{`{"other":[1]}`, `{"companies":null}`, `{"companies":[]}`} {
		got, err := Run[model.Company](context.Background(), &replyAgent{reply: reply}, "p", "companies")
		require.NoError(t, err, reply)
		assert.NotNil(t, got, reply)
		assert.Empty(t, got, reply)
	}
}

func TestRun_MalformedOutput(t *testing.T) {
	_, err := Run[model.Company](context.Background(), &replyAgent{reply: "I could not find anything."}, "p", "companies")

	require.Error(t, err)
	assert.ErrorIs(t, err, extract.ErrMalformedOutput)
	var mo *extract.MalformedOutputError
	require.ErrorAs(t, err, &mo)
	assert.Equal(t, "I could not find anything.", mo.Snippet)
}

func TestRun_WrongShape(t *testing.T) {
	_, err := Run[model.Company](context.Background(), &replyAgent{reply: `{"companies":"Acme"}`}, "p", "companies")

	require.Error(t, err)
	assert.NotErrorIs(t, err, extract.ErrMalformedOutput)
	assert.Contains(t, err.Error(), "stage: read records")
}

func TestRun_InvokeError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Run[model.Company](context.Background(), &replyAgent{err: boom}, "p", "companies")

	assert.ErrorIs(t, err, boom)
}
