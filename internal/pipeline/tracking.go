package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/store"
)

// runState tracks one run in the store. Store failures are logged and
// never fail the run.
type runState struct {
	store store.Store
	runID string
	log   *zap.Logger
}

// begin creates the run record unless the run was queued with an ID, then
// marks it running.
func (rs *runState) begin(ctx context.Context, req model.RunRequest, ro runOptions) {
	if rs.store == nil {
		return
	}
	if rs.runID == "" {
		run, err := rs.store.CreateRun(ctx, req, ro.batchID, ro.row)
		if err != nil {
			rs.log.Warn("pipeline: failed to create run", zap.Error(err))
			return
		}
		rs.runID = run.ID
	}
	rs.log = rs.log.With(zap.String("run_id", rs.runID))
	if err := rs.store.UpdateRunStatus(ctx, rs.runID, model.RunStatusRunning); err != nil {
		rs.log.Warn("pipeline: failed to update status", zap.Error(err))
	}
}

func (rs *runState) record(ctx context.Context, outcome model.StageOutcome) {
	if rs.store == nil || rs.runID == "" {
		return
	}
	if err := rs.store.RecordStage(ctx, rs.runID, outcome); err != nil {
		rs.log.Warn("pipeline: failed to record stage", zap.String("stage", string(outcome.Stage)), zap.Error(err))
	}
}

func (rs *runState) finish(ctx context.Context, result *model.PipelineResult, runErr error) {
	if rs.store == nil || rs.runID == "" {
		return
	}
	var msg string
	if runErr != nil {
		msg = runErr.Error()
	}
	if err := rs.store.CompleteRun(ctx, rs.runID, result, msg); err != nil {
		rs.log.Warn("pipeline: failed to complete run", zap.Error(err))
	}
}
