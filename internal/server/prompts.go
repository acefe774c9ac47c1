package server

import (
	"context"
	"fmt"

	"github.com/joshdurbin/runlog/internal/logging"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// registerPrompts registers all MCP prompts for the server
func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(&mcp.Prompt{
		Name:        "weekly_plan",
		Description: "Explain this week's running targets and what to run next",
		Arguments: []*mcp.PromptArgument{
			{
				Name:        "weekly_distance_gain",
				Description: "Fractional week-over-week increase to plan with, e.g. '0.1'. Leave empty for the configured value.",
				Required:    false,
			},
		},
	}, s.weeklyPlanPrompt)

	s.mcp.AddPrompt(&mcp.Prompt{
		Name:        "mileage_check",
		Description: "Review how weekly distance has been building and whether the ramp is sustainable",
		Arguments: []*mcp.PromptArgument{
			{
				Name:        "weeks",
				Description: "Number of recent weeks to review (e.g., '8'). Leave empty for 12.",
				Required:    false,
			},
		},
	}, s.mileageCheckPrompt)

	logging.Debug("MCP prompts registered", "count", 2)
}

// weeklyPlanPrompt generates a prompt for reviewing this week's plan
func (s *Server) weeklyPlanPrompt(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	gain := fmt.Sprintf("%g", s.opts.DistanceGain)
	if req.Params.Arguments != nil {
		if g, ok := req.Params.Arguments["weekly_distance_gain"]; ok && g != "" {
			gain = g
		}
	}

	logging.Info("MCP prompt requested", "prompt", "weekly_plan", "weekly_distance_gain", gain)

	promptText := fmt.Sprintf(`Please walk me through my running plan for this week.

Use the following tools to gather data:
1. **get_training_plan** with weekly_distance_gain=%s for this week's target, remaining distance and next run
2. **find_runs** with this week's date range to list the runs already done

Then provide:
- **This Week**: Distance done so far against the target, and what is left
- **Next Run**: How far the next run should be and when it falls
- **Remaining Runs**: The distances of the runs still to do this week
- **Looking Ahead**: Next week's target and its three runs
- **Consistency**: How often recent weekly targets were met

Distances in the tool output are meters. Present them in kilometers.`, gain)

	return &mcp.GetPromptResult{
		Description: "Weekly plan review prompt",
		Messages: []*mcp.PromptMessage{
			{
				Role:    "user",
				Content: &mcp.TextContent{Text: promptText},
			},
		},
	}, nil
}

// mileageCheckPrompt generates a prompt for weekly distance trend review
func (s *Server) mileageCheckPrompt(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	weeks := "12"
	if req.Params.Arguments != nil {
		if w, ok := req.Params.Arguments["weeks"]; ok && w != "" {
			weeks = w
		}
	}

	logging.Info("MCP prompt requested", "prompt", "mileage_check", "weeks", weeks)

	promptText := fmt.Sprintf(`Please review how my weekly running distance has developed over the last %s weeks.

Use the following tools to gather data:
1. **analyze_training** with weeks=%s and rolling_week=true for weekly totals, gains and the rolling 7-day distance
2. **get_training_plan** to compare the trend with the planned weekly gain of %+.0f%%

Then provide:
- **Trend Summary**: Is weekly distance growing, stable, or falling?
- **Ramp Rate**: Typical week-over-week gain and any weeks that jumped well above the plan
- **Gaps**: Weeks without runs and how they reset the following targets
- **Recommendations**: Whether to hold, build, or back off next week

Please be specific with numbers and use the actual data from the tools.`, weeks, weeks, s.opts.DistanceGain*100)

	return &mcp.GetPromptResult{
		Description: "Weekly mileage review prompt",
		Messages: []*mcp.PromptMessage{
			{
				Role:    "user",
				Content: &mcp.TextContent{Text: promptText},
			},
		},
	}, nil
}
