package cmd

import (
	"fmt"

	"github.com/joshdurbin/runlog/internal/export"
	"github.com/joshdurbin/runlog/internal/logging"
	"github.com/joshdurbin/runlog/internal/training"
	"github.com/spf13/cobra"
)

var (
	exportOut      string
	exportDailyOut string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the weekly distance analysis to a parquet file",
	Long: `Write the weekly distance analysis to a parquet file.

Use --out - to write the weekly file to stdout.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		activities, err := loadActivities(cmd.Context())
		if err != nil {
			return err
		}

		analysis, err := training.ComputeAnalysis(activities, training.AnalysisOptions{
			ByDay:       exportDailyOut != "",
			RollingWeek: exportDailyOut != "",
		})
		if err != nil {
			return explainTrainingError(err)
		}

		toStdout := exportOut == "-"
		if toStdout {
			err = export.WriteWeeklyParquet(cmd.OutOrStdout(), analysis.ByWeek)
		} else {
			err = export.WriteWeeklyParquetFile(exportOut, analysis.ByWeek)
		}
		if err != nil {
			return err
		}
		logging.Logger.Info().Str("path", exportOut).Int("weeks", len(analysis.ByWeek)).Msg("weekly analysis exported")

		if exportDailyOut != "" {
			if err := export.WriteDailyParquetFile(exportDailyOut, analysis.ByDay); err != nil {
				return err
			}
			logging.Logger.Info().Str("path", exportDailyOut).Int("days", len(analysis.ByDay)).Msg("daily analysis exported")
		}

		// stdout carries the parquet bytes
		if !toStdout {
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d weeks to %s\n", len(analysis.ByWeek), exportOut)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "weekly.parquet", "weekly parquet output path, - for stdout")
	exportCmd.Flags().StringVar(&exportDailyOut, "daily-out", "", "optional daily parquet output path")

	rootCmd.AddCommand(exportCmd)
}
