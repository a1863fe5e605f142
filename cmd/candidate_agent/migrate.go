package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down|status]",
	Short:     "Apply or roll back database migrations",
	Long:      "up applies every pending migration, down rolls back the latest one and status prints the current schema version.",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down", "status"},
	RunE:      runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	database, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	switch args[0] {
	case "up":
		err = database.Migrate(ctx)
	case "down":
		err = database.MigrateDown(ctx)
	}
	if err != nil {
		return err
	}

	version, err := database.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Schema version: %d\n", version)
	return nil
}
