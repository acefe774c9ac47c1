package cmd

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/joshdurbin/runlog/internal/db"
	"github.com/joshdurbin/runlog/internal/logging"
	"github.com/joshdurbin/runlog/internal/training"
	"github.com/spf13/cobra"
)

var (
	planGain  float64
	planWeeks int
	planNow   string
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the weekly training plan as JSON",
	Long: `Print the current week's target, the past weeks compared with their
targets and the projected weeks ahead, as JSON.

Defaults for --gain and --weeks come from the [planner] section of the config.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := training.PlanOptions{
			DistanceGain:   cfg.Planner.WeeklyDistanceGain,
			WeeksProjected: cfg.Planner.WeeksProjected,
			Now:            time.Now(),
		}
		if cmd.Flags().Changed("gain") {
			opts.DistanceGain = planGain
		}
		if cmd.Flags().Changed("weeks") {
			opts.WeeksProjected = planWeeks
		}
		if planNow != "" {
			now, err := parseNow(planNow)
			if err != nil {
				return err
			}
			opts.Now = now
		}

		activities, err := loadActivities(cmd.Context())
		if err != nil {
			return err
		}

		plan, err := training.ComputePlan(activities, opts)
		if err != nil {
			return explainTrainingError(err)
		}

		logging.Logger.Debug().
			Time("week_start", plan.CurrentWeek.Start).
			Float64("projected_distance", plan.CurrentWeek.ProjectedDistance).
			Int("past_weeks", len(plan.PastWeeks)).
			Msg("plan computed")
		return writeJSON(cmd.OutOrStdout(), plan)
	},
}

func init() {
	planCmd.Flags().Float64Var(&planGain, "gain", 0.1, "fractional week-over-week distance gain (0.1 = +10%)")
	planCmd.Flags().IntVar(&planWeeks, "weeks", 26, "number of future weeks to project")
	planCmd.Flags().StringVar(&planNow, "now", "", "anchor date (YYYY-MM-DD or RFC3339), default now")

	rootCmd.AddCommand(planCmd)
}

// parseNow accepts an RFC3339 timestamp or a local date, which anchors at the
// end of that day
func parseNow(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	day, err := time.ParseInLocation("2006-01-02", value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing --now %q: expected YYYY-MM-DD or RFC3339", value)
	}
	return day.AddDate(0, 0, 1).Add(-time.Second), nil
}

// withQueries opens the database for a one-shot command
func withQueries(ctx context.Context, fn func(q *db.Queries) error) error {
	sqlDB, err := db.Open(ctx, dbPath)
	if err != nil {
		return err
	}
	defer sqlDB.Close()
	return fn(db.New(sqlDB))
}

// loadActivities reads the configured activity types in planner form
func loadActivities(ctx context.Context) ([]training.Activity, error) {
	var activities []training.Activity
	err := withQueries(ctx, func(q *db.Queries) error {
		rows, err := q.ListActivitiesByTypes(ctx, cfg.Planner.ActivityTypes)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("listing activities: %w", err)
		}
		activities = db.ToTrainingActivities(rows)
		logging.Logger.Debug().
			Int("activities", len(activities)).
			Strs("types", cfg.Planner.ActivityTypes).
			Msg("activities loaded")
		return nil
	})
	return activities, err
}

func explainTrainingError(err error) error {
	if errors.Is(err, training.ErrEmptySeries) {
		return fmt.Errorf("no activities in %s yet, run a sync or \"runlog import\" first: %w", dbPath, err)
	}
	return err
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
