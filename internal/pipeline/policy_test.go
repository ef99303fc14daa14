package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/outreach-cli/internal/model"
)

func TestPolicies(t *testing.T) {
	tests := []struct {
		stage model.Stage
		want  Policy
	}{
		{model.StageCompanies, Policy{OnError: Fatal, OnEmpty: Halt}},
		{model.StageContacts, Policy{OnError: Fatal, OnEmpty: Halt}},
		{model.StagePhones, Policy{OnError: Tolerate, OnEmpty: Continue}},
		{model.StageResearch, Policy{OnError: Fatal, OnEmpty: Continue}},
		{model.StageEmails, Policy{OnError: Fatal, OnEmpty: Continue}},
	}
	for _, tt := range tests {
		t.Run(string(tt.stage), func(t *testing.T) {
			assert.Equal(t, tt.want, PolicyFor(tt.stage))
		})
	}
	assert.Len(t, Policies, len(model.Stages))
	assert.Equal(t, Policy{OnError: Fatal, OnEmpty: Continue}, PolicyFor("unknown"))
}

func TestStageError(t *testing.T) {
	cause := errors.New("boom")
	err := &StageError{Stage: model.StageContacts, Err: cause}

	assert.Equal(t, "pipeline: stage contacts failed: boom", err.Error())
	assert.ErrorIs(t, err, cause)
}
