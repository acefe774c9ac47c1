package server

import (
	"fmt"
	"math"

	"github.com/joshdurbin/runlog/internal/training"
)

// Insight represents a single AI-friendly insight about the data
type Insight struct {
	Type    string `json:"type"`    // e.g., "trend", "achievement", "warning", "suggestion"
	Message string `json:"message"` // Human-readable insight
}

// SuggestedAction represents a suggested next tool call
type SuggestedAction struct {
	Tool        string `json:"tool"`        // Tool name to call
	Description string `json:"description"` // Why this action is suggested
	Priority    string `json:"priority"`    // "high", "medium", "low"
}

// InsightGenerator provides methods for generating insights from data
type InsightGenerator struct{}

// NewInsightGenerator creates a new insight generator
func NewInsightGenerator() *InsightGenerator {
	return &InsightGenerator{}
}

// GenerateProgressInsights compares a metric between two periods
func (g *InsightGenerator) GenerateProgressInsights(
	currentValue, previousValue float64,
	metric string,
	higherIsBetter bool,
) []Insight {
	var insights []Insight

	if previousValue == 0 {
		return insights
	}

	changePercent := ((currentValue - previousValue) / previousValue) * 100
	improving := (higherIsBetter && changePercent > 0) || (!higherIsBetter && changePercent < 0)

	absChange := math.Abs(changePercent)

	if absChange < 5 {
		insights = append(insights, Insight{
			Type:    "trend",
			Message: fmt.Sprintf("Your %s is stable (%.1f%% change)", metric, changePercent),
		})
	} else if improving {
		intensity := "improving"
		if absChange > 20 {
			intensity = "significantly improving"
		}
		insights = append(insights, Insight{
			Type:    "achievement",
			Message: fmt.Sprintf("Your %s is %s (%.1f%% better)", metric, intensity, absChange),
		})
	} else {
		intensity := "declining"
		if absChange > 20 {
			intensity = "significantly declining"
		}
		insights = append(insights, Insight{
			Type:    "warning",
			Message: fmt.Sprintf("Your %s is %s (%.1f%% worse)", metric, intensity, absChange),
		})
	}

	return insights
}

// GenerateTrainingLoadInsights compares a week's volume against the average of
// the weeks before it.
func (g *InsightGenerator) GenerateTrainingLoadInsights(currentWeekVolume, avgWeeklyVolume float64) []Insight {
	var insights []Insight

	if avgWeeklyVolume == 0 {
		return insights
	}

	volumeRatio := currentWeekVolume / avgWeeklyVolume

	if volumeRatio > 1.3 {
		insights = append(insights, Insight{
			Type:    "warning",
			Message: fmt.Sprintf("Weekly distance is %.0f%% above your average - consider recovery", (volumeRatio-1)*100),
		})
	} else if volumeRatio > 1.1 {
		insights = append(insights, Insight{
			Type:    "trend",
			Message: fmt.Sprintf("Weekly distance is %.0f%% above average - good progressive overload", (volumeRatio-1)*100),
		})
	} else if volumeRatio < 0.7 {
		insights = append(insights, Insight{
			Type:    "suggestion",
			Message: fmt.Sprintf("Weekly distance is %.0f%% below average - planned recovery or time to ramp up?", (1-volumeRatio)*100),
		})
	} else if volumeRatio < 0.9 {
		insights = append(insights, Insight{
			Type:    "trend",
			Message: fmt.Sprintf("Weekly distance is slightly below average (%.0f%%)", (1-volumeRatio)*100),
		})
	} else {
		insights = append(insights, Insight{
			Type:    "trend",
			Message: "Weekly distance is consistent with your average",
		})
	}

	return insights
}

// GeneratePlanInsights describes how the current week is tracking against its
// target and how often recent targets were met.
func (g *InsightGenerator) GeneratePlanInsights(plan training.Plan) []Insight {
	var insights []Insight
	current := plan.CurrentWeek

	switch {
	case current.ProjectedDistance <= 0:
		insights = append(insights, Insight{
			Type:    "warning",
			Message: "No distance was recorded last week, so this week's target is zero. Any run this week restarts the progression.",
		})
	case current.RemainingDistance <= 0:
		insights = append(insights, Insight{
			Type: "achievement",
			Message: fmt.Sprintf("Weekly target reached: %s of %s",
				formatDistance(current.AccruedDistance), formatDistance(current.ProjectedDistance)),
		})
	default:
		insights = append(insights, Insight{
			Type: "trend",
			Message: fmt.Sprintf("%s of %s done this week, %s left over %d run(s)",
				formatDistance(current.AccruedDistance), formatDistance(current.ProjectedDistance),
				formatDistance(current.RemainingDistance), len(current.RemainingRuns)),
		})
	}

	if len(current.AccruedRuns) >= training.RunsPerWeek && current.RemainingDistance > 0 {
		insights = append(insights, Insight{
			Type:    "suggestion",
			Message: fmt.Sprintf("All %d runs are done but %s is still short of the target", training.RunsPerWeek, formatDistance(current.RemainingDistance)),
		})
	}

	window := plan.PastWeeks
	if len(window) > 4 {
		window = window[:4]
	}
	hit := 0
	for _, w := range window {
		if w.RemainingDistance <= 0 && w.ProjectedDistance > 0 {
			hit++
		}
	}
	if len(window) > 0 {
		kind := "trend"
		if hit == len(window) {
			kind = "achievement"
		}
		insights = append(insights, Insight{
			Type:    kind,
			Message: fmt.Sprintf("Weekly target met in %d of the last %d weeks", hit, len(window)),
		})
	}

	return insights
}

// GenerateTrendInsights summarizes a most-recent-first weekly series against
// the configured fractional gain.
func (g *InsightGenerator) GenerateTrendInsights(weeks []training.PeriodAnalysis, targetGain float64) []Insight {
	var insights []Insight
	if len(weeks) == 0 {
		return insights
	}

	if len(weeks) > 1 {
		insights = append(insights, g.GenerateProgressInsights(weeks[0].TotalDistance, weeks[1].TotalDistance, "weekly distance", true)...)

		var sum float64
		for _, w := range weeks[1:] {
			sum += w.TotalDistance
		}
		insights = append(insights, g.GenerateTrainingLoadInsights(weeks[0].TotalDistance, sum/float64(len(weeks)-1))...)
	}

	var gains []float64
	for _, w := range weeks {
		if w.DistanceGain != nil {
			gains = append(gains, *w.DistanceGain)
		}
	}
	if len(gains) > 0 {
		var sum float64
		for _, gain := range gains {
			sum += gain
		}
		avg := sum / float64(len(gains))
		if targetGain > 0 && avg > targetGain*1.5 {
			insights = append(insights, Insight{
				Type:    "warning",
				Message: fmt.Sprintf("Average week-over-week gain is %+.1f%%, well above the %+.1f%% target", avg*100, targetGain*100),
			})
		} else {
			insights = append(insights, Insight{
				Type:    "trend",
				Message: fmt.Sprintf("Average week-over-week gain is %+.1f%% (target %+.1f%%)", avg*100, targetGain*100),
			})
		}
	}

	streak := 0
	for _, w := range weeks {
		if w.DistanceGain == nil || *w.DistanceGain <= 0 {
			break
		}
		streak++
	}
	if streak >= 3 {
		insights = append(insights, Insight{
			Type:    "achievement",
			Message: fmt.Sprintf("Distance has grown %d weeks in a row", streak),
		})
	}

	empty := 0
	for _, w := range weeks {
		if w.TotalDistance == 0 {
			empty++
		}
	}
	if empty > 0 {
		insights = append(insights, Insight{
			Type:    "suggestion",
			Message: fmt.Sprintf("%d of %d weeks have no runs. A zero week resets the next week's target.", empty, len(weeks)),
		})
	}

	return insights
}

// SuggestNextActions suggests logical next tool calls based on context
func SuggestNextActions(context string) []SuggestedAction {
	suggestions := make([]SuggestedAction, 0)

	switch context {
	case "runs":
		suggestions = append(suggestions,
			SuggestedAction{
				Tool:        "get_training_plan",
				Description: "See how these runs count toward this week's target",
				Priority:    "high",
			},
			SuggestedAction{
				Tool:        "analyze_training",
				Description: "See weekly distance trends",
				Priority:    "medium",
			},
		)
	case "plan":
		suggestions = append(suggestions,
			SuggestedAction{
				Tool:        "find_runs",
				Description: "List the runs recorded this week",
				Priority:    "medium",
			},
			SuggestedAction{
				Tool:        "analyze_training",
				Description: "Check week-over-week gains behind the targets",
				Priority:    "medium",
			},
		)
	case "analysis":
		suggestions = append(suggestions,
			SuggestedAction{
				Tool:        "get_training_plan",
				Description: "Turn the trend into targets for the coming weeks",
				Priority:    "high",
			},
			SuggestedAction{
				Tool:        "find_runs",
				Description: "Drill into the runs of a specific week",
				Priority:    "low",
			},
		)
	case "empty":
		suggestions = append(suggestions,
			SuggestedAction{
				Tool:        "find_runs",
				Description: "Check which activities are stored",
				Priority:    "high",
			},
		)
	}

	return suggestions
}
