package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/jonathan/candidate-pipeline/internal/pipeline"
	"github.com/jonathan/candidate-pipeline/internal/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Run the full pipeline for one uploaded résumé",
	Long:  "Download, extract, structure and persist a résumé, update the candidate, enqueue follow-up jobs and embed the candidate.",
	RunE:  runProcess,
}

var (
	processResumeURL   string
	processCandidateID string
	processOrgID       string
	processVerbose     bool
)

func init() {
	processCmd.Flags().StringVar(&processResumeURL, "resume-url", "", "URL of the uploaded résumé (http(s):// or s3://bucket/key)")
	processCmd.Flags().StringVar(&processCandidateID, "candidate-id", "", "Candidate ID")
	processCmd.Flags().StringVar(&processOrgID, "org-id", "", "Organization ID")
	_ = processCmd.MarkFlagRequired("resume-url")
	processCmd.Flags().BoolVarP(&processVerbose, "verbose", "v", false, "Print the stored résumé, jobs and embedding attempts after the run")
	_ = processCmd.MarkFlagRequired("candidate-id")
	_ = processCmd.MarkFlagRequired("org-id")

	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, _ []string) error {
	req := &types.ProcessRequest{
		ResumeURL:   processResumeURL,
		CandidateID: processCandidateID,
		OrgID:       processOrgID,
	}
	if err := req.Validate(); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}

	a, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	candidateID, _ := uuid.Parse(processCandidateID)
	orgID, _ := uuid.Parse(processOrgID)
	reporter := pipeline.NewCallbackReporter(candidateID, printProgress(cmd.ErrOrStderr()))

	result, runErr := a.orchestrator.ProcessCandidate(cmd.Context(), req, reporter)
	if err := printJSON(cmd.OutOrStdout(), result); err != nil {
		return err
	}
	if processVerbose {
		if err := printSummary(cmd.Context(), cmd.ErrOrStderr(), a.db, orgID, candidateID); err != nil {
			logger.Warn("failed to print summary", zap.Error(err))
		}
	}
	return runErr
}

// printProgress writes one line per stage event
func printProgress(w io.Writer) pipeline.ProgressCallback {
	return func(e pipeline.ProgressEvent) {
		line := fmt.Sprintf("[%s] %s", e.Stage, e.Status)
		if e.Message != "" {
			line += ": " + e.Message
		}
		_, _ = fmt.Fprintln(w, line)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return nil
}
