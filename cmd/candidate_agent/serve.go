package main

import (
	"fmt"

	"github.com/jonathan/candidate-pipeline/internal/server"
	"github.com/jonathan/candidate-pipeline/internal/server/ratelimit"
	"github.com/spf13/cobra"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes endpoints for processing and embedding candidates.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on (overrides SERVER_PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = servePort
	}

	limits, err := ratelimit.LoadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := server.New(server.Config{Port: cfg.Server.Port, RateLimit: limits}, a.orchestrator, a.db, logger.Named("server"))
	if err := srv.Start(cmd.Context()); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
