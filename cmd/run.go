package main

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/export"
	"github.com/sells-group/outreach-cli/internal/model"
)

// requestFlags are the request fields shared by run and batch.
type requestFlags struct {
	offering      string
	maxCompanies  int
	style         string
	senderName    string
	senderCompany string
	calendarLink  string
}

func (f *requestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.offering, "offering", "", "description of what you are selling (required)")
	cmd.Flags().IntVar(&f.maxCompanies, "max-companies", 0, "companies to discover per run, 1-10 (default from config)")
	cmd.Flags().StringVar(&f.style, "style", "", "email style: Professional, Casual, Cold or Consultative")
	cmd.Flags().StringVar(&f.senderName, "sender-name", "", "sender name (default from config)")
	cmd.Flags().StringVar(&f.senderCompany, "sender-company", "", "sender company (default from config)")
	cmd.Flags().StringVar(&f.calendarLink, "calendar-link", "", "calendar booking link for the call to action")
	_ = cmd.MarkFlagRequired("offering")
}

// request builds a request from the flags, falling back to config for
// anything unset.
func (f *requestFlags) request(defaultMax int) model.RunRequest {
	req := model.RunRequest{
		Offering: f.offering,
		Sender: model.Sender{
			Name:         f.senderName,
			Company:      f.senderCompany,
			CalendarLink: f.calendarLink,
		},
		MaxCompanies: f.maxCompanies,
		EmailStyle:   f.style,
	}
	return mergeRequest(req, baseRequest(defaultMax))
}

var (
	runFlags     requestFlags
	runTarget    string
	runOut       string
	runEmailsOut string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline for a single target description",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		req := runFlags.request(cfg.Pipeline.MaxCompanies)
		req.TargetDescription = runTarget
		if err := req.Validate(); err != nil {
			return err
		}

		env, err := initPipeline(ctx, "pipeline")
		if err != nil {
			return err
		}
		defer env.Close()

		log := zap.L().With(zap.String("target", req.TargetDescription))
		result, runErr := env.Pipeline.Run(ctx, req)
		warnUnknownCompanies(log, result)

		if err := writeRunOutputs(cmd.OutOrStdout(), result, runOut, runEmailsOut); err != nil {
			return err
		}
		if runErr != nil {
			return eris.Wrap(runErr, "pipeline run")
		}

		log.Info("run complete",
			zap.Int("companies", len(result.Companies)),
			zap.Int("contacts", result.ContactCount()),
			zap.Int("phones", result.PhoneCount()),
			zap.Int("emails", len(result.Emails)),
		)
		return nil
	},
}

// writeRunOutputs writes the {"results": ...} JSON to outPath, or to stdout
// when outPath is empty, and the emails CSV when emailsPath is set. Partial
// results of a failed run are written too.
func writeRunOutputs(stdout io.Writer, result *model.PipelineResult, outPath, emailsPath string) error {
	if outPath == "" {
		if err := export.RunJSON(stdout, result); err != nil {
			return err
		}
	} else if err := export.WriteFile(outPath, func(w io.Writer) error { return export.RunJSON(w, result) }); err != nil {
		return err
	}

	if emailsPath != "" {
		emails := []model.EmailDraft{}
		if result != nil {
			emails = result.Emails
		}
		if err := export.WriteFile(emailsPath, func(w io.Writer) error { return export.RunEmailsCSV(w, emails) }); err != nil {
			return err
		}
		zap.L().Info("emails written", zap.String("path", emailsPath), zap.Int("emails", len(emails)))
	}
	return nil
}

func init() {
	runFlags.register(runCmd)
	runCmd.Flags().StringVar(&runTarget, "target", "", "target customer description (required)")
	runCmd.Flags().StringVar(&runOut, "out", "", "write result JSON to this file instead of stdout")
	runCmd.Flags().StringVar(&runEmailsOut, "emails", "", "write drafted emails as CSV to this file")
	_ = runCmd.MarkFlagRequired("target")
	rootCmd.AddCommand(runCmd)
}
