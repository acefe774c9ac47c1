package training

import (
	"fmt"
	"time"
)

// gainEpsilon guards the gain ratio against near-zero predecessors
const gainEpsilon = 0.00001

// PeriodAnalysis is one period of a trend series
type PeriodAnalysis struct {
	Start         time.Time `json:"start"`
	TotalDistance float64   `json:"total_distance"`
	// DistanceGain is the fractional change versus the previous period, nil when
	// there is no previous period or it has (effectively) no distance.
	DistanceGain *float64 `json:"distance_gain"`
}

// DayAnalysis is one day of the daily series. TotalDistance is nil on days
// without any recorded activity.
type DayAnalysis struct {
	Date          time.Time `json:"date"`
	TotalDistance *float64  `json:"total_distance"`
	// RollingWeekDistance sums the recorded distance of this day and the six
	// before it. Only populated when requested.
	RollingWeekDistance *float64 `json:"rolling_week_distance,omitempty"`
}

// Analysis is the historical view over all activities
type Analysis struct {
	ByWeek []PeriodAnalysis `json:"by_week"`
	ByDay  []DayAnalysis    `json:"by_day,omitempty"`
}

// AnalysisOptions toggles the optional parts of an Analysis
type AnalysisOptions struct {
	ByDay       bool
	RollingWeek bool
}

// AnalyseByPeriod computes period-over-period gains for an ascending bucket
// series and returns it most recent first.
func AnalyseByPeriod(buckets []PeriodBucket) []PeriodAnalysis {
	result := make([]PeriodAnalysis, len(buckets))
	for i, b := range buckets {
		entry := PeriodAnalysis{
			Start:         b.Start,
			TotalDistance: b.TotalDistance,
		}
		if i > 0 {
			entry.DistanceGain = distanceGain(buckets[i-1], b)
		}
		result[len(buckets)-1-i] = entry
	}
	return result
}

func distanceGain(previous, current PeriodBucket) *float64 {
	if previous.NoData || current.NoData || previous.TotalDistance < gainEpsilon {
		return nil
	}
	gain := current.TotalDistance/previous.TotalDistance - 1
	return &gain
}

// ComputeAnalysis builds the weekly trend series and, optionally, the daily series.
func ComputeAnalysis(activities []Activity, opts AnalysisOptions) (Analysis, error) {
	weeks, err := Bucket(activities, Week, time.Time{})
	if err != nil {
		return Analysis{}, fmt.Errorf("computing weekly analysis: %w", err)
	}

	analysis := Analysis{ByWeek: AnalyseByPeriod(weeks)}
	if !opts.ByDay {
		return analysis, nil
	}

	days, err := Bucket(activities, Day, time.Time{})
	if err != nil {
		return Analysis{}, fmt.Errorf("computing daily analysis: %w", err)
	}
	analysis.ByDay = analyseByDay(days, opts.RollingWeek)
	return analysis, nil
}

func analyseByDay(days []PeriodBucket, rollingWeek bool) []DayAnalysis {
	result := make([]DayAnalysis, len(days))
	for i, d := range days {
		entry := DayAnalysis{
			Date:          d.Start,
			TotalDistance: d.Distance(),
		}
		if rollingWeek {
			entry.RollingWeekDistance = rollingSum(days, i, 7)
		}
		result[len(days)-1-i] = entry
	}
	return result
}

// rollingSum adds the recorded totals of days[end-window+1..end]. Days without
// data are skipped; nil is returned when none of them has data.
func rollingSum(days []PeriodBucket, end, window int) *float64 {
	var sum float64
	recorded := false
	for i := end; i >= 0 && i > end-window; i-- {
		if days[i].NoData {
			continue
		}
		sum += days[i].TotalDistance
		recorded = true
	}
	if !recorded {
		return nil
	}
	return &sum
}
