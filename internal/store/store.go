// Package store persists pipeline run history: each run's request, final
// result and the outcome of every stage.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/model"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = eris.New("not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status  model.RunStatus `json:"status,omitempty"`
	BatchID string          `json:"batch_id,omitempty"`
	Limit   int             `json:"limit,omitempty"`
	Offset  int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for run history.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, req model.RunRequest, batchID string, row int) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	CompleteRun(ctx context.Context, runID string, result *model.PipelineResult, runErr string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Stages
	RecordStage(ctx context.Context, runID string, outcome model.StageOutcome) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100

// finalStatus maps a run error message to its terminal status.
func finalStatus(runErr string) model.RunStatus {
	if runErr != "" {
		return model.RunStatusFailed
	}
	return model.RunStatusComplete
}

// stagePosition orders stage rows in execution order.
func stagePosition(s model.Stage) int {
	for i, st := range model.Stages {
		if st == s {
			return i
		}
	}
	return len(model.Stages)
}
