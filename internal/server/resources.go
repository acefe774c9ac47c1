package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/joshdurbin/runlog/internal/logging"
	"github.com/joshdurbin/runlog/internal/training"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	currentPlanURI    = "training://plan/current"
	weeklyAnalysisURI = "training://analysis/weekly"
)

// registerResources registers all MCP resources for the server
func (s *Server) registerResources() {
	s.mcp.AddResource(&mcp.Resource{
		URI:         currentPlanURI,
		Name:        "current_plan",
		Description: "The training plan for the current week using the configured weekly gain and horizon",
		MIMEType:    "application/json",
	}, s.readCurrentPlan)

	s.mcp.AddResource(&mcp.Resource{
		URI:         weeklyAnalysisURI,
		Name:        "weekly_analysis",
		Description: "Weekly distance totals with week-over-week gains, most recent first",
		MIMEType:    "application/json",
	}, s.readWeeklyAnalysis)

	s.mcp.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "training://runs/{id}",
		Name:        "run_by_id",
		Description: "Fetch a specific run by its activity ID",
		MIMEType:    "application/json",
	}, s.readRunByID)

	logging.Debug("MCP resources registered", "count", 3)
}

// readCurrentPlan returns the default plan as of now
func (s *Server) readCurrentPlan(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	logging.Info("MCP resource read", "resource", "current_plan")

	opts, err := s.planOptions(TrainingPlanInput{})
	if err != nil {
		return nil, err
	}
	output, err := s.buildPlan(ctx, opts)
	if err != nil {
		return nil, err
	}
	return jsonResource(currentPlanURI, output)
}

// readWeeklyAnalysis returns the weekly series without the daily breakdown
func (s *Server) readWeeklyAnalysis(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	logging.Info("MCP resource read", "resource", "weekly_analysis")

	activities, err := s.loadTrainingActivities(ctx)
	if err != nil {
		logging.Error("readWeeklyAnalysis failed", "error", err)
		return nil, NewDatabaseErrorWithContext("activity listing", err)
	}

	analysis, err := training.ComputeAnalysis(activities, training.AnalysisOptions{})
	if err != nil {
		if errors.Is(err, training.ErrEmptySeries) {
			return jsonResource(weeklyAnalysisURI, training.Analysis{ByWeek: []training.PeriodAnalysis{}})
		}
		return nil, trainingError(err)
	}
	return jsonResource(weeklyAnalysisURI, analysis)
}

// readRunByID returns a specific run by its activity ID
func (s *Server) readRunByID(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	// URI format: training://runs/{id}
	uri := req.Params.URI
	parts := strings.Split(uri, "/")
	if len(parts) < 2 {
		return nil, NewInvalidInputError("invalid run URI format")
	}

	idStr := parts[len(parts)-1]
	activityID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return nil, NewInvalidInputErrorWithDetails("invalid activity ID", idStr)
	}

	logging.Info("MCP resource read", "resource", "run_by_id", "id", activityID)

	activity, err := s.queries.GetActivity(ctx, activityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &mcp.ReadResourceResult{
				Contents: []*mcp.ResourceContents{
					{
						URI:      uri,
						MIMEType: "application/json",
						Text:     fmt.Sprintf(`{"error": "Run %d not found"}`, activityID),
					},
				},
			}, nil
		}
		logging.Error("readRunByID failed", "error", err)
		return nil, NewDatabaseErrorWithContext("activity lookup", err)
	}

	return jsonResource(uri, convertActivity(activity))
}

func jsonResource(uri string, v interface{}) (*mcp.ReadResourceResult, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, NewInternalErrorWithCause("failed to marshal resource", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: "application/json",
				Text:     string(jsonData),
			},
		},
	}, nil
}
