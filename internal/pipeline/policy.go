package pipeline

import (
	"fmt"

	"github.com/sells-group/outreach-cli/internal/model"
)

// ErrorPolicy says what a stage failure does to the run.
type ErrorPolicy string

const (
	// Fatal stops the run and returns the partial result with a StageError.
	Fatal ErrorPolicy = "fatal"
	// Tolerate treats the failure as an empty result and continues.
	Tolerate ErrorPolicy = "tolerate"
)

// EmptyPolicy says what a stage with zero records does to the run.
type EmptyPolicy string

const (
	// Halt ends the run successfully with the partial result.
	Halt EmptyPolicy = "halt"
	// Continue proceeds to the next stage.
	Continue EmptyPolicy = "continue"
)

// Policy is the fault handling of one stage.
type Policy struct {
	OnError ErrorPolicy
	OnEmpty EmptyPolicy
}

// Policies is the fault-policy table. Phone discovery is best effort;
// every other failure is fatal. Nothing downstream can run without
// companies or contacts.
var Policies = map[model.Stage]Policy{
	model.StageCompanies: {OnError: Fatal, OnEmpty: Halt},
	model.StageContacts:  {OnError: Fatal, OnEmpty: Halt},
	model.StagePhones:    {OnError: Tolerate, OnEmpty: Continue},
	model.StageResearch:  {OnError: Fatal, OnEmpty: Continue},
	model.StageEmails:    {OnError: Fatal, OnEmpty: Continue},
}

// PolicyFor returns the policy of stage. Unknown stages are fatal on error
// and continue on empty.
func PolicyFor(stage model.Stage) Policy {
	if p, ok := Policies[stage]; ok {
		return p
	}
	return Policy{OnError: Fatal, OnEmpty: Continue}
}

// StageError reports the stage whose failure aborted a run.
type StageError struct {
	Stage model.Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline: stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
