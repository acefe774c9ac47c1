package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joshdurbin/runlog/internal/logging"
	"github.com/joshdurbin/runlog/internal/training"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const maxWeeksProjected = 104

func (s *Server) registerTrainingTools() {
	logging.Debug("Registering tool", "name", "get_training_plan")
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "get_training_plan",
		Description: `Build the weekly running plan: this week's target distance, what is left, and targets for the weeks ahead.

Each week's target is last week's actual distance grown by the weekly gain. Targets are split into
three runs that grow by the cube root of the weekly gain, so the runs of a week compound to the full gain.

Use when:
- User asks "How far should I run today?" or "What's my plan this week?"
- User wants targets for the coming weeks
- User wants to see how past weeks compared with their targets

Parameters:
- weekly_distance_gain (number): Fractional week-over-week increase, e.g. 0.1 for +10%. Default: configured value.
- weeks_projected (integer): Number of future weeks to project (0-104). Default: configured value.
- as_of (string): Date in YYYY-MM-DD format that anchors the current week. Default: today.

Returns: current week (accrued, projected and remaining distance, run split, remaining runs), past weeks most recent first,
future weeks soonest first, the next suggested run, and insights. Distances are meters with formatted km strings alongside.

Example: {} or {"weekly_distance_gain": 0.05, "weeks_projected": 8}`,
		Annotations: &mcp.ToolAnnotations{
			Title:           "Get Training Plan",
			ReadOnlyHint:    true,
			IdempotentHint:  true,
			OpenWorldHint:   ptr(false),
			DestructiveHint: ptr(false),
		},
	}, s.getTrainingPlan)

	logging.Debug("Registering tool", "name", "analyze_training")
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "analyze_training",
		Description: `Analyze weekly running distance and week-over-week gains, optionally with a daily series.

Use when:
- User asks "Am I building mileage too fast?" or "How has my weekly distance changed?"
- User wants daily totals or a rolling 7-day distance

Parameters:
- weeks (integer): Limit the output to the most recent N weeks. Default: all weeks.
- include_days (boolean): Include the daily series. Default: configured value.
- rolling_week (boolean): Add a rolling 7-day distance to each day. Default: configured value.

Returns: weekly totals most recent first with fractional gain versus the previous week (null when the previous week
had no distance), optional daily totals (null on days without runs), and trend insights.

Example: {"weeks": 12} or {"weeks": 4, "include_days": true, "rolling_week": true}`,
		Annotations: &mcp.ToolAnnotations{
			Title:           "Analyze Training",
			ReadOnlyHint:    true,
			IdempotentHint:  true,
			OpenWorldHint:   ptr(false),
			DestructiveHint: ptr(false),
		},
	}, s.analyzeTraining)
}

// Input types

type TrainingPlanInput struct {
	WeeklyDistanceGain *float64 `json:"weekly_distance_gain,omitempty" jsonschema:"Fractional week-over-week increase, e.g. 0.1 for +10%"`
	WeeksProjected     *int     `json:"weeks_projected,omitempty" jsonschema:"Number of future weeks to project (0-104)"`
	AsOf               string   `json:"as_of,omitempty" jsonschema:"Date in YYYY-MM-DD format that anchors the current week, defaults to today"`
}

type AnalyzeTrainingInput struct {
	Weeks       int   `json:"weeks,omitempty" jsonschema:"Limit the output to the most recent N weeks"`
	IncludeDays *bool `json:"include_days,omitempty" jsonschema:"Include the daily series"`
	RollingWeek *bool `json:"rolling_week,omitempty" jsonschema:"Add a rolling 7-day distance to each day"`
}

// Output types

type TrainingPlanOutput struct {
	WeeklyDistanceGain float64             `json:"weekly_distance_gain"`
	WeeksProjected     int                 `json:"weeks_projected"`
	HasActivities      bool                `json:"has_activities"`
	CurrentWeek        *CurrentWeekTargets `json:"current_week,omitempty"`
	PastWeeks          []PastWeekResult    `json:"past_weeks,omitempty"`
	FutureWeeks        []FutureWeekTargets `json:"future_weeks,omitempty"`
	NextRun            *NextRun            `json:"next_run,omitempty"`
	Insights           []Insight           `json:"insights,omitempty"`
	SuggestedActions   []SuggestedAction   `json:"suggested_actions,omitempty"`
}

// CurrentWeekTargets is the week containing as_of. Distances are meters with
// formatted strings alongside.
type CurrentWeekTargets struct {
	WeekStart         string    `json:"week_start"`
	AccruedRuns       []float64 `json:"accrued_runs"`
	AccruedDistance   float64   `json:"accrued_distance"`
	ProjectedDistance float64   `json:"projected_distance"`
	RemainingDistance float64   `json:"remaining_distance"`
	AsThreeRuns       []float64 `json:"as_three_runs"`
	RemainingRuns     []float64 `json:"remaining_runs"`
	Accrued           string    `json:"accrued"`
	Projected         string    `json:"projected"`
	Remaining         string    `json:"remaining"`
	Runs              []string  `json:"runs"`
	RemainingRunsText []string  `json:"remaining_runs_text"`
}

// PastWeekResult is a finished week and how it compared with its target
type PastWeekResult struct {
	WeekStart         string    `json:"week_start"`
	AccruedRuns       []float64 `json:"accrued_runs"`
	AccruedDistance   float64   `json:"accrued_distance"`
	ProjectedDistance float64   `json:"projected_distance"`
	RemainingDistance float64   `json:"remaining_distance"`
	TargetMet         bool      `json:"target_met"`
	Accrued           string    `json:"accrued"`
	Projected         string    `json:"projected"`
}

// FutureWeekTargets is a projected week after the current one
type FutureWeekTargets struct {
	WeekStart         string    `json:"week_start"`
	ProjectedDistance float64   `json:"projected_distance"`
	AsThreeRuns       []float64 `json:"as_three_runs"`
	Projected         string    `json:"projected"`
	Runs              []string  `json:"runs"`
}

// NextRun is the distance of the next run to do
type NextRun struct {
	When           string  `json:"when"` // "this week" or "next week"
	WeekStart      string  `json:"week_start"`
	DistanceMeters float64 `json:"distance_meters"`
	Distance       string  `json:"distance"`
}

type AnalyzeTrainingOutput struct {
	HasActivities    bool              `json:"has_activities"`
	WeeksAnalyzed    int               `json:"weeks_analyzed"`
	ByWeek           []WeekTrend       `json:"by_week"`
	ByDay            []DayTrend        `json:"by_day,omitempty"`
	Insights         []Insight         `json:"insights,omitempty"`
	SuggestedActions []SuggestedAction `json:"suggested_actions,omitempty"`
}

// WeekTrend is one week of the weekly series. DistanceGain is nil when the
// previous week had no distance.
type WeekTrend struct {
	WeekStart     string   `json:"week_start"`
	TotalDistance float64  `json:"total_distance"`
	DistanceGain  *float64 `json:"distance_gain"`
	Distance      string   `json:"distance"`
	Gain          string   `json:"gain,omitempty"`
}

// DayTrend is one day of the daily series. TotalDistance is nil on days
// without runs.
type DayTrend struct {
	Date                string   `json:"date"`
	TotalDistance       *float64 `json:"total_distance"`
	RollingWeekDistance *float64 `json:"rolling_week_distance,omitempty"`
}

// Tool handlers

func (s *Server) getTrainingPlan(ctx context.Context, req *mcp.CallToolRequest, input TrainingPlanInput) (*mcp.CallToolResult, TrainingPlanOutput, error) {
	logging.Info("MCP tool call", "tool", "get_training_plan", "as_of", input.AsOf)
	if logging.IsVerbose() {
		logging.Debug("MCP request params", "tool", "get_training_plan", "input", logging.ToJSON(input))
	}

	opts, err := s.planOptions(input)
	if err != nil {
		return nil, TrainingPlanOutput{}, err
	}

	output, err := s.buildPlan(ctx, opts)
	if err != nil {
		return nil, TrainingPlanOutput{}, err
	}

	logging.Debug("MCP tool response", "tool", "get_training_plan",
		"has_activities", output.HasActivities, "past_weeks", len(output.PastWeeks))
	return nil, output, nil
}

// planOptions resolves tool input against the configured defaults
func (s *Server) planOptions(input TrainingPlanInput) (training.PlanOptions, error) {
	opts := training.PlanOptions{
		DistanceGain:   s.opts.DistanceGain,
		WeeksProjected: s.opts.WeeksProjected,
		Now:            s.opts.Now(),
	}
	if input.WeeklyDistanceGain != nil {
		opts.DistanceGain = *input.WeeklyDistanceGain
	}
	if input.WeeksProjected != nil {
		opts.WeeksProjected = *input.WeeksProjected
	}
	if opts.DistanceGain <= -1 {
		return opts, NewInvalidInputErrorWithDetails("weekly_distance_gain must be greater than -1", fmt.Sprintf("got %g", opts.DistanceGain))
	}
	if opts.WeeksProjected < 0 || opts.WeeksProjected > maxWeeksProjected {
		return opts, NewInvalidInputErrorWithDetails(fmt.Sprintf("weeks_projected must be between 0 and %d", maxWeeksProjected), fmt.Sprintf("got %d", opts.WeeksProjected))
	}
	if input.AsOf != "" {
		day, err := time.ParseInLocation("2006-01-02", input.AsOf, opts.Now.Location())
		if err != nil {
			return opts, NewInvalidInputErrorWithDetails("as_of must be in YYYY-MM-DD format", err.Error())
		}
		// Anchor at the end of the day so runs recorded on as_of count.
		opts.Now = day.AddDate(0, 0, 1).Add(-time.Second)
	}
	return opts, nil
}

func (s *Server) buildPlan(ctx context.Context, opts training.PlanOptions) (TrainingPlanOutput, error) {
	output := TrainingPlanOutput{
		WeeklyDistanceGain: opts.DistanceGain,
		WeeksProjected:     opts.WeeksProjected,
	}

	activities, err := s.loadTrainingActivities(ctx)
	if err != nil {
		logging.Error("get_training_plan failed", "error", err)
		return TrainingPlanOutput{}, NewDatabaseErrorWithContext("activity listing", err)
	}

	plan, err := training.ComputePlan(activities, opts)
	if err != nil {
		if errors.Is(err, training.ErrEmptySeries) {
			output.Insights = []Insight{{Type: "suggestion", Message: "No runs recorded yet. Sync or import activities to build a plan."}}
			output.SuggestedActions = SuggestNextActions("empty")
			return output, nil
		}
		logging.Error("get_training_plan failed", "error", err)
		return TrainingPlanOutput{}, trainingError(err)
	}

	output.HasActivities = true
	output.CurrentWeek = currentWeekTargets(plan.CurrentWeek)
	output.PastWeeks = make([]PastWeekResult, len(plan.PastWeeks))
	for i, w := range plan.PastWeeks {
		output.PastWeeks[i] = pastWeekResult(w)
	}
	output.FutureWeeks = make([]FutureWeekTargets, len(plan.FutureWeeks))
	for i, w := range plan.FutureWeeks {
		output.FutureWeeks[i] = futureWeekTargets(w)
	}
	output.NextRun = nextRun(plan)
	output.Insights = NewInsightGenerator().GeneratePlanInsights(plan)
	output.SuggestedActions = SuggestNextActions("plan")
	return output, nil
}

func (s *Server) analyzeTraining(ctx context.Context, req *mcp.CallToolRequest, input AnalyzeTrainingInput) (*mcp.CallToolResult, AnalyzeTrainingOutput, error) {
	logging.Info("MCP tool call", "tool", "analyze_training", "weeks", input.Weeks)
	if logging.IsVerbose() {
		logging.Debug("MCP request params", "tool", "analyze_training", "input", logging.ToJSON(input))
	}

	if input.Weeks < 0 {
		return nil, AnalyzeTrainingOutput{}, NewInvalidInputErrorWithDetails("weeks must not be negative", fmt.Sprintf("got %d", input.Weeks))
	}

	opts := training.AnalysisOptions{
		ByDay:       s.opts.IncludeDaily,
		RollingWeek: s.opts.RollingWeek,
	}
	if input.IncludeDays != nil {
		opts.ByDay = *input.IncludeDays
	}
	if input.RollingWeek != nil {
		opts.RollingWeek = *input.RollingWeek
		if opts.RollingWeek {
			opts.ByDay = true
		}
	}

	output := AnalyzeTrainingOutput{ByWeek: []WeekTrend{}}

	activities, err := s.loadTrainingActivities(ctx)
	if err != nil {
		logging.Error("analyze_training failed", "error", err)
		return nil, AnalyzeTrainingOutput{}, NewDatabaseErrorWithContext("activity listing", err)
	}

	analysis, err := training.ComputeAnalysis(activities, opts)
	if err != nil {
		if errors.Is(err, training.ErrEmptySeries) {
			output.Insights = []Insight{{Type: "suggestion", Message: "No runs recorded yet. Sync or import activities to see trends."}}
			output.SuggestedActions = SuggestNextActions("empty")
			return nil, output, nil
		}
		logging.Error("analyze_training failed", "error", err)
		return nil, AnalyzeTrainingOutput{}, trainingError(err)
	}

	analysis = truncateAnalysis(analysis, input.Weeks)

	output.HasActivities = true
	output.WeeksAnalyzed = len(analysis.ByWeek)
	for _, w := range analysis.ByWeek {
		output.ByWeek = append(output.ByWeek, WeekTrend{
			WeekStart:     w.Start.Format("2006-01-02"),
			TotalDistance: w.TotalDistance,
			DistanceGain:  w.DistanceGain,
			Distance:      formatDistance(w.TotalDistance),
			Gain:          formatGain(w.DistanceGain),
		})
	}
	for _, d := range analysis.ByDay {
		output.ByDay = append(output.ByDay, DayTrend{
			Date:                d.Date.Format("2006-01-02"),
			TotalDistance:       d.TotalDistance,
			RollingWeekDistance: d.RollingWeekDistance,
		})
	}
	output.Insights = NewInsightGenerator().GenerateTrendInsights(analysis.ByWeek, s.opts.DistanceGain)
	output.SuggestedActions = SuggestNextActions("analysis")

	logging.Debug("MCP tool response", "tool", "analyze_training", "weeks", output.WeeksAnalyzed, "days", len(output.ByDay))
	return nil, output, nil
}

// truncateAnalysis keeps the most recent weeks and the days falling inside them.
// A non-positive weeks keeps everything.
func truncateAnalysis(a training.Analysis, weeks int) training.Analysis {
	if weeks <= 0 || weeks >= len(a.ByWeek) {
		return a
	}
	a.ByWeek = a.ByWeek[:weeks]
	oldest := a.ByWeek[len(a.ByWeek)-1].Start
	n := 0
	for n < len(a.ByDay) && !a.ByDay[n].Date.Before(oldest) {
		n++
	}
	if a.ByDay != nil {
		a.ByDay = a.ByDay[:n]
	}
	return a
}

// nextRun picks the largest remaining run this week, or the first run of next
// week once this week's runs are used up.
func nextRun(plan training.Plan) *NextRun {
	current := plan.CurrentWeek
	if n := len(current.RemainingRuns); n > 0 {
		d := current.RemainingRuns[n-1]
		return &NextRun{
			When:           "this week",
			WeekStart:      current.Start.Format("2006-01-02"),
			DistanceMeters: d,
			Distance:       formatDistance(d),
		}
	}
	if len(plan.FutureWeeks) > 0 && len(plan.FutureWeeks[0].AsThreeRuns) > 0 {
		next := plan.FutureWeeks[0]
		d := next.AsThreeRuns[0]
		return &NextRun{
			When:           "next week",
			WeekStart:      next.Start.Format("2006-01-02"),
			DistanceMeters: d,
			Distance:       formatDistance(d),
		}
	}
	return nil
}

func currentWeekTargets(w training.CurrentWeek) *CurrentWeekTargets {
	return &CurrentWeekTargets{
		WeekStart:         w.Start.Format("2006-01-02"),
		AccruedRuns:       w.AccruedRuns,
		AccruedDistance:   w.AccruedDistance,
		ProjectedDistance: w.ProjectedDistance,
		RemainingDistance: w.RemainingDistance,
		AsThreeRuns:       w.AsThreeRuns,
		RemainingRuns:     w.RemainingRuns,
		Accrued:           formatDistance(w.AccruedDistance),
		Projected:         formatDistance(w.ProjectedDistance),
		Remaining:         formatDistance(w.RemainingDistance),
		Runs:              formatDistances(w.AsThreeRuns),
		RemainingRunsText: formatDistances(w.RemainingRuns),
	}
}

func pastWeekResult(w training.PastWeek) PastWeekResult {
	return PastWeekResult{
		WeekStart:         w.Start.Format("2006-01-02"),
		AccruedRuns:       w.AccruedRuns,
		AccruedDistance:   w.AccruedDistance,
		ProjectedDistance: w.ProjectedDistance,
		RemainingDistance: w.RemainingDistance,
		TargetMet:         w.ProjectedDistance > 0 && w.RemainingDistance <= 0,
		Accrued:           formatDistance(w.AccruedDistance),
		Projected:         formatDistance(w.ProjectedDistance),
	}
}

func futureWeekTargets(w training.FutureWeek) FutureWeekTargets {
	return FutureWeekTargets{
		WeekStart:         w.Start.Format("2006-01-02"),
		ProjectedDistance: w.ProjectedDistance,
		AsThreeRuns:       w.AsThreeRuns,
		Projected:         formatDistance(w.ProjectedDistance),
		Runs:              formatDistances(w.AsThreeRuns),
	}
}
