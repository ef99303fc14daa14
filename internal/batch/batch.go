// Package batch runs the pipeline once per input row and collects one
// result record per row.
package batch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/pipeline"
)

// EmptyRow is the target description used for rows with no data.
const EmptyRow = "No row data provided"

// Pipeline runs a single request. *pipeline.Pipeline satisfies it.
type Pipeline interface {
	Run(ctx context.Context, req model.RunRequest, opts ...pipeline.RunOption) (*model.PipelineResult, error)
}

// Runner processes batch rows sequentially, in input order.
type Runner struct {
	Pipeline Pipeline
	// Defaults supplies everything but the target description: sender,
	// style and max companies.
	Defaults model.RunRequest
	// OnRow, when set, is called after each row completes.
	OnRow func(model.BatchRowResult)
}

// TargetDescription joins the trimmed non-empty cells of a row with " | ".
func TargetDescription(row []string) string {
	parts := make([]string, 0, len(row))
	for _, cell := range row {
		if cell = strings.TrimSpace(cell); cell != "" {
			parts = append(parts, cell)
		}
	}
	if len(parts) == 0 {
		return EmptyRow
	}
	return strings.Join(parts, " | ")
}

// Run executes one pipeline run per row. A failing row becomes an error
// record and never stops the batch. Cancellation is checked before each
// row and never interrupts the row being run; on cancellation the completed
// rows are returned with ctx.Err().
func (r *Runner) Run(ctx context.Context, rows [][]string, offering string) ([]model.BatchRowResult, error) {
	batchID := uuid.NewString()
	log := zap.L().With(zap.String("batch_id", batchID))
	log.Info("batch: starting", zap.Int("rows", len(rows)))

	results := make([]model.BatchRowResult, 0, len(rows))
	start := time.Now()
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			log.Warn("batch: cancelled", zap.Int("completed", len(results)))
			return results, eris.Wrap(err, "batch: cancelled")
		}

		num := i + 1
		req := r.Defaults
		req.TargetDescription = TargetDescription(row)
		if offering != "" {
			req.Offering = offering
		}

		rowLog := log.With(zap.Int("row", num))
		rowLog.Info("batch: processing row", zap.String("target", req.TargetDescription))

		rec := model.BatchRowResult{Row: num, TargetDesc: req.TargetDescription}
		// A row in flight always finishes; cancellation only stops the next row.
		result, err := r.Pipeline.Run(context.WithoutCancel(ctx), req, pipeline.WithBatch(batchID, num))
		if err != nil {
			rec.Error = err.Error()
			rowLog.Error("batch: row failed", zap.Error(err))
		} else {
			rec.Result = result
			rowLog.Info("batch: row complete", zap.Int("emails", len(result.Emails)))
		}

		results = append(results, rec)
		if r.OnRow != nil {
			r.OnRow(rec)
		}
	}

	s := Summarize(results)
	log.Info("batch: complete",
		zap.Int("succeeded", s.Succeeded),
		zap.Int("failed", s.Failed),
		zap.Int("emails", s.Emails),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return results, nil
}

// DescribeRow renders a one-line status for a row.
func DescribeRow(rec model.BatchRowResult) string {
	if rec.Failed() {
		return fmt.Sprintf("Row %d: Error: %s", rec.Row, rec.Error)
	}
	n := 0
	if rec.Result != nil {
		n = len(rec.Result.Emails)
	}
	return fmt.Sprintf("Row %d: %d emails generated", rec.Row, n)
}

// RowEmail is an email draft tagged with the batch row that produced it.
type RowEmail struct {
	Row int `json:"row"`
	model.EmailDraft
}

// AllEmails flattens the emails of every successful row, in row order.
func AllEmails(results []model.BatchRowResult) []RowEmail {
	var out []RowEmail
	for _, rec := range results {
		if rec.Result == nil {
			continue
		}
		for _, e := range rec.Result.Emails {
			out = append(out, RowEmail{Row: rec.Row, EmailDraft: e})
		}
	}
	return out
}

// Summary counts the outcome of a batch.
type Summary struct {
	Rows      int `json:"rows"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Companies int `json:"companies"`
	Contacts  int `json:"contacts"`
	Phones    int `json:"phones"`
	Emails    int `json:"emails"`
}

// Summarize aggregates the row results.
func Summarize(results []model.BatchRowResult) Summary {
	s := Summary{Rows: len(results)}
	for _, rec := range results {
		if rec.Failed() || rec.Result == nil {
			s.Failed++
			continue
		}
		s.Succeeded++
		s.Companies += len(rec.Result.Companies)
		s.Contacts += rec.Result.ContactCount()
		s.Phones += rec.Result.PhoneCount()
		s.Emails += len(rec.Result.Emails)
	}
	return s
}
