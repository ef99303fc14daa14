package main

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/batch"
	"github.com/sells-group/outreach-cli/internal/export"
	"github.com/sells-group/outreach-cli/internal/fetcher"
	"github.com/sells-group/outreach-cli/internal/model"
)

var (
	batchFlags     requestFlags
	batchInput     string
	batchSheet     string
	batchNoHeader  bool
	batchOut       string
	batchEmailsOut string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run the pipeline once per row of a CSV or XLSX file",
	Long:  "Each row's non-empty cells are joined into a target description and run independently. A failing row is recorded and the batch continues.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		defaults := batchFlags.request(cfg.Pipeline.BatchMaxCompanies)
		// Rows supply the target; check everything else up front.
		probe := defaults
		probe.TargetDescription = batch.EmptyRow
		if err := probe.Validate(); err != nil {
			return err
		}

		rows, err := fetcher.ReadRows(ctx, batchInput, fetcher.Options{
			HasHeader: !batchNoHeader,
			Sheet:     batchSheet,
		})
		if err != nil {
			return eris.Wrap(err, "read batch input")
		}
		if len(rows) == 0 {
			zap.L().Info("no rows to process")
			return nil
		}

		env, err := initPipeline(ctx, "pipeline")
		if err != nil {
			return err
		}
		defer env.Close()

		progress := cmd.ErrOrStderr()
		runner := &batch.Runner{
			Pipeline: env.Pipeline,
			Defaults: defaults,
			OnRow: func(rec model.BatchRowResult) {
				if rec.Result != nil {
					warnUnknownCompanies(zap.L().With(zap.Int("row", rec.Row)), rec.Result)
				}
				_, _ = fmt.Fprintln(progress, batch.DescribeRow(rec))
			},
		}

		results, runErr := runner.Run(ctx, rows, defaults.Offering)

		if err := writeBatchOutputs(cmd.OutOrStdout(), results, batchOut, batchEmailsOut); err != nil {
			return err
		}
		printSummary(progress, batch.Summarize(results))
		return runErr
	},
}

// writeBatchOutputs writes every row result as JSON to outPath, or to
// stdout when outPath is empty, and the combined emails when emailsPath is
// set. The emails format follows the file extension.
func writeBatchOutputs(stdout io.Writer, results []model.BatchRowResult, outPath, emailsPath string) error {
	if outPath == "" {
		if err := export.BatchJSON(stdout, results); err != nil {
			return err
		}
	} else if err := export.WriteFile(outPath, func(w io.Writer) error { return export.BatchJSON(w, results) }); err != nil {
		return err
	}

	if emailsPath != "" {
		emails := batch.AllEmails(results)
		if err := export.WriteBatchEmails(emailsPath, emails); err != nil {
			return err
		}
		zap.L().Info("emails written", zap.String("path", emailsPath), zap.Int("emails", len(emails)))
	}
	return nil
}

func printSummary(w io.Writer, s batch.Summary) {
	_, _ = fmt.Fprintf(w, "\nRows: %d (%d succeeded, %d failed)\n", s.Rows, s.Succeeded, s.Failed)
	_, _ = fmt.Fprintf(w, "Companies: %d  Contacts: %d  Phones: %d  Emails: %d\n", s.Companies, s.Contacts, s.Phones, s.Emails)
}

func init() {
	batchFlags.register(batchCmd)
	batchCmd.Flags().StringVar(&batchInput, "input", "", "CSV or XLSX file path or http(s) URL (required)")
	batchCmd.Flags().StringVar(&batchSheet, "sheet", "", "XLSX sheet name (default first sheet)")
	batchCmd.Flags().BoolVar(&batchNoHeader, "no-header", false, "treat the first row as data")
	batchCmd.Flags().StringVar(&batchOut, "out", "", "write all row results as JSON to this file instead of stdout")
	batchCmd.Flags().StringVar(&batchEmailsOut, "emails", "", "write combined emails to this .csv, .xlsx or .json file")
	_ = batchCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(batchCmd)
}
