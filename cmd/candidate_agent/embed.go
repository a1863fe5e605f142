package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jonathan/candidate-pipeline/internal/pipeline"
	"github.com/jonathan/candidate-pipeline/internal/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Re-embed a candidate from the latest parsed résumé",
	RunE:  runEmbed,
}

var (
	embedCandidateID string
	embedOrgID       string
	embedVerbose     bool
)

func init() {
	embedCmd.Flags().StringVar(&embedCandidateID, "candidate-id", "", "Candidate ID")
	embedCmd.Flags().StringVar(&embedOrgID, "org-id", "", "Organization ID")
	embedCmd.Flags().BoolVarP(&embedVerbose, "verbose", "v", false, "Print the stored résumé, jobs and embedding attempts after the run")
	_ = embedCmd.MarkFlagRequired("candidate-id")
	_ = embedCmd.MarkFlagRequired("org-id")

	rootCmd.AddCommand(embedCmd)
}

func runEmbed(cmd *cobra.Command, _ []string) error {
	req := &types.EmbedRequest{CandidateID: embedCandidateID, OrgID: embedOrgID}
	if err := req.Validate(); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}

	a, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	candidateID, _ := uuid.Parse(embedCandidateID)
	orgID, _ := uuid.Parse(embedOrgID)
	reporter := pipeline.NewCallbackReporter(candidateID, printProgress(cmd.ErrOrStderr()))

	result, runErr := a.orchestrator.EmbedCandidate(cmd.Context(), req, reporter)
	if err := printJSON(cmd.OutOrStdout(), result); err != nil {
		return err
	}
	if embedVerbose {
		if err := printSummary(cmd.Context(), cmd.ErrOrStderr(), a.db, orgID, candidateID); err != nil {
			logger.Warn("failed to print summary", zap.Error(err))
		}
	}
	return runErr
}
