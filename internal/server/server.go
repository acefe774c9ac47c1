package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/joshdurbin/runlog/internal/db"
	"github.com/joshdurbin/runlog/internal/logging"
	"github.com/joshdurbin/runlog/internal/training"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ptr returns a pointer to the given value - useful for optional fields in structs
func ptr[T any](v T) *T {
	return &v
}

// Querier defines the database queries the tools need
type Querier interface {
	GetActivity(ctx context.Context, id int64) (db.Activity, error)
	ListActivitiesByTypes(ctx context.Context, types []string) ([]db.Activity, error)
	ListActivitiesInRange(ctx context.Context, arg db.ListActivitiesInRangeParams) ([]db.Activity, error)
}

// Options holds the planner defaults applied when a tool call leaves them out
type Options struct {
	DistanceGain   float64
	WeeksProjected int
	ActivityTypes  []string
	IncludeDaily   bool
	RollingWeek    bool
	// Now returns the instant that anchors the current week. Defaults to time.Now.
	Now func() time.Time
}

// DefaultOptions mirrors the config defaults
func DefaultOptions() Options {
	return Options{
		DistanceGain:   0.1,
		WeeksProjected: 26,
		ActivityTypes:  []string{"Run"},
		IncludeDaily:   true,
	}
}

// Server wraps the MCP server and database queries
type Server struct {
	mcp     *mcp.Server
	queries Querier
	opts    Options
}

// MCPServer returns the underlying MCP server (for use with HTTP/SSE transport)
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// New creates a new MCP server with the training tools registered
func New(queries Querier, opts Options) *Server {
	logging.Info("MCP server initializing", "name", "runlog", "version", "1.0.0")

	if opts.Now == nil {
		opts.Now = time.Now
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    "runlog",
		Version: "1.0.0",
	}, nil)

	s := &Server{
		mcp:     mcpServer,
		queries: queries,
		opts:    opts,
	}

	logging.Debug("Registering MCP tools")
	s.registerTools()
	s.registerTrainingTools()

	logging.Debug("Registering MCP resources")
	s.registerResources()

	logging.Debug("Registering MCP prompts")
	s.registerPrompts()

	logging.Info("MCP server initialized", "tools_registered", 3, "resources_registered", 3, "prompts_registered", 2)
	return s
}

// Run starts the MCP server over stdio transport
func (s *Server) Run(ctx context.Context) error {
	logging.Info("MCP server starting")
	defer logging.Info("MCP server stopped")
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	logging.Debug("Registering tool", "name", "find_runs")
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "find_runs",
		Description: `List recorded runs, newest first, optionally bounded by date.

Use when:
- User asks "What runs did I do last week?" or "Show my latest runs"
- User wants the individual activities behind a weekly total
- User needs a run's details by ID

Parameters:
- id (integer): Get a specific activity by its ID. Overrides other filters.
- type (string): Activity type to list. Default: the configured planner types (usually Run).
- start_date (string): Start date in YYYY-MM-DD format.
- end_date (string): End date in YYYY-MM-DD format (inclusive).
- limit (integer): Number of runs to return. Default: 20, Max: 100.

Returns: List of runs with id, name, type, date, distance, duration, pace, heartrate and cadence.

Example: {"start_date": "2024-03-04", "end_date": "2024-03-10"}`,
		Annotations: &mcp.ToolAnnotations{
			Title:           "Find Runs",
			ReadOnlyHint:    true,
			IdempotentHint:  true,
			OpenWorldHint:   ptr(false),
			DestructiveHint: ptr(false),
		},
	}, s.findRuns)
}

// Input types

type FindRunsInput struct {
	ID        int64  `json:"id,omitempty" jsonschema:"Get a specific activity by its ID"`
	Type      string `json:"type,omitempty" jsonschema:"Activity type to list, defaults to the configured planner types"`
	StartDate string `json:"start_date,omitempty" jsonschema:"Start date in YYYY-MM-DD format"`
	EndDate   string `json:"end_date,omitempty" jsonschema:"End date in YYYY-MM-DD format, inclusive"`
	Limit     int    `json:"limit,omitempty" jsonschema:"Number of runs to return (default 20, max 100)"`
}

// Output types

type FindRunsOutput struct {
	Runs             []RunSummary      `json:"runs"`
	Count            int               `json:"count"`
	TotalDistance    string            `json:"total_distance,omitempty"`
	Insights         []Insight         `json:"insights,omitempty"`
	SuggestedActions []SuggestedAction `json:"suggested_actions,omitempty"`
}

type RunSummary struct {
	ID           int64  `json:"id,omitempty"`
	Name         string `json:"name,omitempty"`
	Type         string `json:"type,omitempty"`
	Date         string `json:"date,omitempty"`
	Week         string `json:"week,omitempty"`
	Distance     string `json:"distance,omitempty"`
	Duration     string `json:"duration,omitempty"`
	Pace         string `json:"pace,omitempty"`
	AvgHeartrate int    `json:"avg_heartrate_bpm,omitempty"`
	AvgCadence   int    `json:"avg_cadence_spm,omitempty"`
	Source       string `json:"source,omitempty"`
}

const (
	defaultActivityLimit = 20
	maxActivityLimit     = 100
)

// Tool handlers

func (s *Server) findRuns(ctx context.Context, req *mcp.CallToolRequest, input FindRunsInput) (*mcp.CallToolResult, FindRunsOutput, error) {
	logging.Info("MCP tool call", "tool", "find_runs", "id", input.ID, "type", input.Type, "start_date", input.StartDate, "end_date", input.EndDate)
	if logging.IsVerbose() {
		logging.Debug("MCP request params", "tool", "find_runs", "input", logging.ToJSON(input))
	}

	output := FindRunsOutput{Runs: []RunSummary{}}

	if input.ID > 0 {
		activity, err := s.queries.GetActivity(ctx, input.ID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, FindRunsOutput{}, NewNotFoundErrorWithID("activity", input.ID)
			}
			return nil, FindRunsOutput{}, NewDatabaseErrorWithContext("activity lookup", err)
		}
		output.Runs = []RunSummary{convertActivity(activity)}
		output.Count = 1
		output.SuggestedActions = SuggestNextActions("runs")
		return nil, output, nil
	}

	start, end, err := parseServerDateRange(input.StartDate, input.EndDate)
	if err != nil {
		return nil, FindRunsOutput{}, NewInvalidInputErrorWithDetails("invalid date range", err.Error())
	}
	if start.Valid && end.Valid && end.Time.Before(start.Time) {
		return nil, FindRunsOutput{}, NewInvalidInputError("end_date is before start_date")
	}

	types := s.opts.ActivityTypes
	if input.Type != "" {
		types = []string{input.Type}
	}
	limit := applyLimit(input.Limit)

	var activities []db.Activity
	if len(types) == 0 {
		activities, err = s.queries.ListActivitiesInRange(ctx, db.ListActivitiesInRangeParams{
			Start: start,
			End:   end,
			Limit: int64(limit),
		})
		if err != nil {
			return nil, FindRunsOutput{}, NewDatabaseErrorWithContext("run search", err)
		}
	} else {
		for _, t := range types {
			rows, err := s.queries.ListActivitiesInRange(ctx, db.ListActivitiesInRangeParams{
				Type:  sql.NullString{String: t, Valid: true},
				Start: start,
				End:   end,
				Limit: int64(limit),
			})
			if err != nil {
				return nil, FindRunsOutput{}, NewDatabaseErrorWithContext("run search", err)
			}
			activities = mergeNewestFirst(activities, rows)
		}
		if len(activities) > limit {
			activities = activities[:limit]
		}
	}

	output.Runs = convertActivities(activities)
	output.Count = len(output.Runs)

	var total float64
	for _, a := range activities {
		if a.Distance.Valid {
			total += a.Distance.Float64
		}
	}
	if output.Count > 0 {
		output.TotalDistance = formatDistance(total)
	} else {
		output.Insights = []Insight{{Type: "suggestion", Message: "No runs found in this range. Sync or import activities first."}}
	}
	output.SuggestedActions = SuggestNextActions("runs")

	logging.Debug("MCP tool response", "tool", "find_runs", "count", output.Count)
	return nil, output, nil
}

// loadTrainingActivities reads every dated activity of the planner types and
// converts it for the training engine.
func (s *Server) loadTrainingActivities(ctx context.Context) ([]training.Activity, error) {
	rows, err := s.queries.ListActivitiesByTypes(ctx, s.opts.ActivityTypes)
	if err != nil {
		return nil, fmt.Errorf("listing activities: %w", err)
	}
	activities := db.ToTrainingActivities(rows)
	logging.Debug("Loaded training activities", "rows", len(rows), "activities", len(activities), "types", s.opts.ActivityTypes)
	return activities, nil
}

// Helpers

func applyLimit(limit int) int {
	if limit <= 0 {
		return defaultActivityLimit
	}
	if limit > maxActivityLimit {
		return maxActivityLimit
	}
	return limit
}

// mergeNewestFirst merges two newest-first slices into one
func mergeNewestFirst(a, b []db.Activity) []db.Activity {
	if len(a) == 0 {
		return b
	}
	merged := make([]db.Activity, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i].StartDate.Time.After(b[j].StartDate.Time) {
			merged = append(merged, a[i])
			i++
		} else {
			merged = append(merged, b[j])
			j++
		}
	}
	merged = append(merged, a[i:]...)
	return append(merged, b[j:]...)
}

func convertActivities(activities []db.Activity) []RunSummary {
	result := make([]RunSummary, len(activities))
	for i, a := range activities {
		result[i] = convertActivity(a)
	}
	return result
}

func convertActivity(a db.Activity) RunSummary {
	summary := RunSummary{
		ID:     a.ID,
		Name:   a.Name,
		Source: a.Source,
	}

	if a.Type.Valid {
		summary.Type = a.Type.String
	}
	if a.StartDate.Valid {
		local := a.StartDate.Time
		if a.Timezone.Valid {
			local = local.In(db.ParseTimezone(a.Timezone.String))
		}
		summary.Date = local.Format("2006-01-02")
		summary.Week = training.Week.Start(local).Format("2006-01-02")
	}
	if a.Distance.Valid && a.Distance.Float64 > 0 {
		summary.Distance = formatDistance(a.Distance.Float64)
	}
	seconds := a.MovingTime
	if !seconds.Valid || seconds.Int64 <= 0 {
		seconds = a.ElapsedTime
	}
	if seconds.Valid && seconds.Int64 > 0 {
		summary.Duration = formatDuration(seconds.Int64)
	}
	if a.AverageSpeed.Valid && a.AverageSpeed.Float64 > 0 && a.Distance.Valid && a.Distance.Float64 > 0 {
		summary.Pace = formatPace(a.AverageSpeed.Float64)
	}
	if a.AverageHeartrate.Valid && a.AverageHeartrate.Float64 > 0 {
		summary.AvgHeartrate = int(a.AverageHeartrate.Float64)
	}
	if a.AverageCadence.Valid && a.AverageCadence.Float64 > 0 {
		summary.AvgCadence = int(a.AverageCadence.Float64)
	}

	return summary
}

// formatDistance converts meters to human-readable format
func formatDistance(meters float64) string {
	km := meters / 1000
	if km >= 1 {
		return fmt.Sprintf("%.2f km", km)
	}
	return fmt.Sprintf("%.0f m", meters)
}

// formatDistances formats a run split
func formatDistances(meters []float64) []string {
	out := make([]string, len(meters))
	for i, m := range meters {
		out[i] = formatDistance(m)
	}
	return out
}

// formatDuration converts seconds to human-readable format
func formatDuration(seconds int64) string {
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, secs)
	}
	return fmt.Sprintf("%ds", secs)
}

// formatPace converts m/s to min/km pace
func formatPace(mps float64) string {
	if mps <= 0 {
		return ""
	}
	secPerKm := 1000 / mps
	mins := int(secPerKm) / 60
	secs := int(secPerKm) % 60
	return fmt.Sprintf("%d:%02d/km", mins, secs)
}

// formatGain renders a fractional gain as a signed percentage
func formatGain(gain *float64) string {
	if gain == nil {
		return ""
	}
	return fmt.Sprintf("%+.1f%%", *gain*100)
}

// parseServerDateRange parses local calendar dates into inclusive bounds on
// the activity's local wall clock, labelled UTC like start_date_local
func parseServerDateRange(startDate, endDate string) (sql.NullTime, sql.NullTime, error) {
	var start, end sql.NullTime

	if startDate != "" {
		t, err := time.Parse("2006-01-02", startDate)
		if err != nil {
			return start, end, fmt.Errorf("parsing start date: %w", err)
		}
		start = sql.NullTime{Time: t, Valid: true}
	}

	if endDate != "" {
		t, err := time.Parse("2006-01-02", endDate)
		if err != nil {
			return start, end, fmt.Errorf("parsing end date: %w", err)
		}
		// Set to end of day
		t = t.Add(24*time.Hour - time.Second)
		end = sql.NullTime{Time: t, Valid: true}
	}

	return start, end, nil
}
