package cmd

import (
	"github.com/joshdurbin/runlog/internal/logging"
	"github.com/joshdurbin/runlog/internal/training"
	"github.com/spf13/cobra"
)

var (
	analyseDays        bool
	analyseRollingWeek bool
)

var analyseCmd = &cobra.Command{
	Use:     "analyse",
	Aliases: []string{"analyze"},
	Short:   "Print weekly (and optionally daily) distance trends as JSON",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := training.AnalysisOptions{
			ByDay:       cfg.Planner.IncludeDaily,
			RollingWeek: cfg.Planner.RollingWeek,
		}
		if cmd.Flags().Changed("days") {
			opts.ByDay = analyseDays
		}
		if cmd.Flags().Changed("rolling-week") {
			opts.RollingWeek = analyseRollingWeek
		}
		if opts.RollingWeek {
			opts.ByDay = true
		}

		activities, err := loadActivities(cmd.Context())
		if err != nil {
			return err
		}

		analysis, err := training.ComputeAnalysis(activities, opts)
		if err != nil {
			return explainTrainingError(err)
		}

		logging.Logger.Debug().
			Int("weeks", len(analysis.ByWeek)).
			Int("days", len(analysis.ByDay)).
			Msg("analysis computed")
		return writeJSON(cmd.OutOrStdout(), analysis)
	},
}

func init() {
	analyseCmd.Flags().BoolVar(&analyseDays, "days", true, "include the daily series")
	analyseCmd.Flags().BoolVar(&analyseRollingWeek, "rolling-week", false, "add a rolling 7-day distance to each day")

	rootCmd.AddCommand(analyseCmd)
}
