package server

import (
	"strings"
	"testing"
	"time"

	"github.com/joshdurbin/runlog/internal/training"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weeklySeries(totals ...float64) []training.PeriodAnalysis {
	// totals are oldest first; the series is returned most recent first
	out := make([]training.PeriodAnalysis, len(totals))
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, total := range totals {
		entry := training.PeriodAnalysis{Start: start.AddDate(0, 0, 7*i), TotalDistance: total}
		if i > 0 && totals[i-1] > 0 {
			gain := total/totals[i-1] - 1
			entry.DistanceGain = &gain
		}
		out[len(totals)-1-i] = entry
	}
	return out
}

func hasInsight(insights []Insight, kind, fragment string) bool {
	for _, in := range insights {
		if in.Type == kind && strings.Contains(in.Message, fragment) {
			return true
		}
	}
	return false
}

func TestGenerateTrendInsightsStreak(t *testing.T) {
	t.Parallel()

	insights := NewInsightGenerator().GenerateTrendInsights(weeklySeries(1000, 1100, 1210, 1331), 0.1)

	assert.True(t, hasInsight(insights, "achievement", "3 weeks in a row"))
	assert.True(t, hasInsight(insights, "trend", "+10.0%"))
}

func TestGenerateTrendInsightsFastRamp(t *testing.T) {
	t.Parallel()

	insights := NewInsightGenerator().GenerateTrendInsights(weeklySeries(1000, 2000), 0.1)

	assert.True(t, hasInsight(insights, "warning", "well above"))
	assert.True(t, hasInsight(insights, "achievement", "significantly improving"))
}

func TestGenerateTrendInsightsZeroWeeks(t *testing.T) {
	t.Parallel()

	insights := NewInsightGenerator().GenerateTrendInsights(weeklySeries(1000, 0, 1000), 0.1)

	assert.True(t, hasInsight(insights, "suggestion", "1 of 3 weeks"))
	assert.Empty(t, NewInsightGenerator().GenerateTrendInsights(nil, 0.1))
}

func TestGeneratePlanInsights(t *testing.T) {
	t.Parallel()

	plan := training.Plan{
		CurrentWeek: training.CurrentWeek{
			AccruedRuns:       []float64{1500, 1500},
			AccruedDistance:   3000,
			ProjectedDistance: 2750,
			RemainingDistance: -250,
		},
		PastWeeks: []training.PastWeek{
			{AccruedDistance: 2500, ProjectedDistance: 2200, RemainingDistance: -300},
			{AccruedDistance: 2000, ProjectedDistance: 2200, RemainingDistance: 200},
		},
	}

	insights := NewInsightGenerator().GeneratePlanInsights(plan)
	require.Len(t, insights, 2)
	assert.Equal(t, "achievement", insights[0].Type)
	assert.Contains(t, insights[0].Message, "Weekly target reached")
	assert.Equal(t, "Weekly target met in 1 of the last 2 weeks", insights[1].Message)
}

func TestGenerateTrainingLoadInsights(t *testing.T) {
	t.Parallel()

	gen := NewInsightGenerator()
	assert.Empty(t, gen.GenerateTrainingLoadInsights(100, 0))
	assert.True(t, hasInsight(gen.GenerateTrainingLoadInsights(140, 100), "warning", "above your average"))
	assert.True(t, hasInsight(gen.GenerateTrainingLoadInsights(100, 100), "trend", "consistent"))
}

func TestSuggestNextActions(t *testing.T) {
	t.Parallel()

	for _, context := range []string{"runs", "plan", "analysis", "empty"} {
		assert.NotEmpty(t, SuggestNextActions(context), context)
	}
	assert.Empty(t, SuggestNextActions("unknown"))
}
