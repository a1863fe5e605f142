package main

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/jonathan/candidate-pipeline/internal/db"
	"github.com/jonathan/candidate-pipeline/internal/ingestion"
	"github.com/jonathan/candidate-pipeline/internal/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Upload a résumé PDF and queue it for processing",
	Long:  "Upload a local résumé PDF to the object store, create a pending candidate and enqueue a parse_resume job for the worker.",
	RunE:  runIngest,
}

var (
	ingestFile  string
	ingestOrgID string
	ingestJobID string
	ingestEmail string
)

func init() {
	ingestCmd.Flags().StringVarP(&ingestFile, "file", "f", "", "Path to the résumé PDF")
	ingestCmd.Flags().StringVar(&ingestOrgID, "org-id", "", "Organization ID")
	ingestCmd.Flags().StringVar(&ingestJobID, "job-id", "", "Job posting the candidate applied to (optional)")
	ingestCmd.Flags().StringVar(&ingestEmail, "email", "", "Known candidate email (optional; parsing never overwrites it)")
	_ = ingestCmd.MarkFlagRequired("file")
	_ = ingestCmd.MarkFlagRequired("org-id")

	rootCmd.AddCommand(ingestCmd)
}

// IngestOutput is printed after a successful ingest
type IngestOutput struct {
	CandidateID string `json:"candidate_id"`
	ResumeURL   string `json:"resume_url"`
	JobID       string `json:"queue_job_id"`
}

func runIngest(cmd *cobra.Command, _ []string) error {
	orgID, err := uuid.Parse(ingestOrgID)
	if err != nil {
		return fmt.Errorf("invalid --org-id: %w", err)
	}
	var jobID *uuid.UUID
	if ingestJobID != "" {
		id, err := uuid.Parse(ingestJobID)
		if err != nil {
			return fmt.Errorf("invalid --job-id: %w", err)
		}
		jobID = &id
	}

	data, err := os.ReadFile(ingestFile)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", ingestFile, err)
	}
	if !ingestion.IsPDF(data) {
		return fmt.Errorf("%s is not a PDF", ingestFile)
	}

	objects, err := newObjectStore(cfg)
	if err != nil {
		return err
	}
	if objects == nil {
		return fmt.Errorf("object store is not configured (set OBJECT_STORE_ENDPOINT and OBJECT_STORE_BUCKET)")
	}

	ctx := cmd.Context()
	database, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	resumeURL, err := objects.Upload(ctx, objectKey(orgID, ingestFile), bytes.NewReader(data), int64(len(data)), "application/pdf")
	if err != nil {
		return err
	}

	candidate, err := database.CreateCandidate(ctx, &db.CandidateInput{
		OrgID:     orgID,
		JobID:     jobID,
		Email:     ingestEmail,
		ResumeURL: resumeURL,
	})
	if err != nil {
		return err
	}

	ids, err := database.EnqueueJobs(ctx, []db.JobInput{{
		JobType:     types.JobTypeParseResume,
		CandidateID: &candidate.ID,
		JobID:       jobID,
		OrgID:       orgID,
	}})
	if err != nil {
		return err
	}

	logger.Info("résumé ingested", zap.String("candidate_id", candidate.ID.String()), zap.String("resume_url", resumeURL))
	return printJSON(cmd.OutOrStdout(), IngestOutput{
		CandidateID: candidate.ID.String(),
		ResumeURL:   resumeURL,
		JobID:       ids[0].String(),
	})
}

// objectKey stores each upload under its org with a fresh name, keeping the extension
func objectKey(orgID uuid.UUID, filename string) string {
	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".pdf"
	}
	return path.Join(orgID.String(), uuid.New().String()+ext)
}
