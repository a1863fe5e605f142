package main

import (
	"github.com/jonathan/candidate-pipeline/internal/worker"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Process pending parse_resume and embed_resume jobs",
	Long:  "Poll the work queue and run the pipeline for each pending parse_resume job and the embedding generator for each pending embed_resume job. Stops on SIGINT/SIGTERM.",
	RunE:  runWorker,
}

var (
	workerConcurrency int
	workerBatchSize   int
)

func init() {
	workerCmd.Flags().IntVar(&workerConcurrency, "concurrency", 0, "Jobs run at once (overrides WORKER_CONCURRENCY)")
	workerCmd.Flags().IntVar(&workerBatchSize, "batch-size", 0, "Jobs claimed per poll (overrides WORKER_BATCH_SIZE)")
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, _ []string) error {
	if cmd.Flags().Changed("concurrency") {
		cfg.Worker.Concurrency = workerConcurrency
	}
	if cmd.Flags().Changed("batch-size") {
		cfg.Worker.BatchSize = workerBatchSize
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	w := worker.New(a.db, a.orchestrator, a.embeddings, worker.Options{
		PollInterval: cfg.Worker.PollInterval.Std(),
		BatchSize:    cfg.Worker.BatchSize,
		Concurrency:  cfg.Worker.Concurrency,
	}, logger.Named("worker"))
	return w.Run(cmd.Context())
}
