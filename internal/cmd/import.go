package cmd

import (
	"fmt"
	"os"

	"github.com/joshdurbin/runlog/internal/db"
	syncsvc "github.com/joshdurbin/runlog/internal/sync"
	"github.com/joshdurbin/runlog/internal/workers"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import FILE.json",
	Short: "Load activity summaries from a JSON array into the database",
	Long: `Load activity summaries produced by an external decoder into the database.

The file holds a JSON array of objects with start_time (RFC3339 with offset),
total_distance (meters), total_time (seconds), avg_speed (m/s) and optional
avg_heart_rate, avg_cadence, id, name and type (default "Run"). Records without
an id are keyed on their start time, so importing the same file twice is safe.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening import file: %w", err)
		}
		defer f.Close()

		records, err := syncsvc.ReadImportFile(f)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		return withQueries(ctx, func(q *db.Queries) error {
			result, err := syncsvc.Import(ctx, q, records)
			if err != nil {
				return err
			}
			workers.LogDatabaseStats(ctx, q)
			fmt.Fprintf(cmd.OutOrStdout(), "read %d, saved %d, skipped %d\n", result.Read, result.Saved, result.Skipped)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
