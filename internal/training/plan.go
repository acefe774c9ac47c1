package training

import (
	"fmt"
	"time"
)

// PastWeek is a week before the current one, with its target and how it fared
type PastWeek struct {
	Start             time.Time `json:"start"`
	AccruedRuns       []float64 `json:"accrued_runs"`
	AccruedDistance   float64   `json:"accrued_distance"`
	ProjectedDistance float64   `json:"projected_distance"`
	RemainingDistance float64   `json:"remaining_distance"`
}

// CurrentWeek is the week containing "now"
type CurrentWeek struct {
	Start             time.Time `json:"start"`
	AccruedRuns       []float64 `json:"accrued_runs"`
	AccruedDistance   float64   `json:"accrued_distance"`
	ProjectedDistance float64   `json:"projected_distance"`
	RemainingDistance float64   `json:"remaining_distance"`
	AsThreeRuns       []float64 `json:"as_three_runs"`
	RemainingRuns     []float64 `json:"remaining_runs"`
}

// FutureWeek is a synthesized week after the current one
type FutureWeek struct {
	Start             time.Time `json:"start"`
	ProjectedDistance float64   `json:"projected_distance"`
	AsThreeRuns       []float64 `json:"as_three_runs"`
}

// Plan is the forward-looking training plan
type Plan struct {
	CurrentWeek CurrentWeek  `json:"current_week"`
	PastWeeks   []PastWeek   `json:"past_weeks"`   // most recent first
	FutureWeeks []FutureWeek `json:"future_weeks"` // soonest first
}

// PlanOptions configures ComputePlan
type PlanOptions struct {
	// DistanceGain is the fractional week-over-week increase, e.g. 0.1 for +10%
	DistanceGain float64
	// WeeksProjected is the number of future weeks to extrapolate
	WeeksProjected int
	// Now anchors the current week
	Now time.Time
}

// WeeklyGain returns the multiplicative gain factor for the options
func (o PlanOptions) WeeklyGain() float64 {
	return o.DistanceGain + 1.0
}

// ComputePlan projects weekly targets from past volume and splits them into runs.
func ComputePlan(activities []Activity, opts PlanOptions) (Plan, error) {
	weeklyGain := opts.WeeklyGain()

	weeks, err := Bucket(activities, Week, opts.Now)
	if err != nil {
		return Plan{}, fmt.Errorf("bucketing weeks: %w", err)
	}

	projected, err := Project(weeks, weeklyGain)
	if err != nil {
		return Plan{}, err
	}

	idx := currentIndex(projected, Week, opts.Now)
	if idx < 0 {
		return Plan{}, fmt.Errorf("planning for %s: %w", opts.Now.Format(time.RFC3339), ErrNoCurrentPeriod)
	}

	current, err := newCurrentWeek(projected[idx], weeklyGain)
	if err != nil {
		return Plan{}, err
	}

	future, err := Extrapolate(projected[idx], weeklyGain, opts.WeeksProjected)
	if err != nil {
		return Plan{}, err
	}

	pastWeeks := make([]PastWeek, 0, idx)
	for i := idx - 1; i >= 0; i-- {
		pastWeeks = append(pastWeeks, newPastWeek(projected[i]))
	}

	futureWeeks := make([]FutureWeek, len(future))
	for i, f := range future {
		futureWeeks[i] = FutureWeek{
			Start:             f.Start,
			ProjectedDistance: f.ProjectedDistance,
			AsThreeRuns:       SplitEven(f.ProjectedDistance, weeklyGain),
		}
	}

	return Plan{
		CurrentWeek: current,
		PastWeeks:   pastWeeks,
		FutureWeeks: futureWeeks,
	}, nil
}

func newCurrentWeek(b ProjectedBucket, weeklyGain float64) (CurrentWeek, error) {
	remainingRuns, err := SplitRemaining(b.ProjectedDistance, b.RemainingDistance, len(b.Runs), weeklyGain)
	if err != nil {
		return CurrentWeek{}, fmt.Errorf("week of %s: %w", b.Start.Format("2006-01-02"), err)
	}
	return CurrentWeek{
		Start:             b.Start,
		AccruedRuns:       append([]float64{}, b.Runs...),
		AccruedDistance:   b.TotalDistance,
		ProjectedDistance: b.ProjectedDistance,
		RemainingDistance: b.RemainingDistance,
		AsThreeRuns:       SplitEven(b.ProjectedDistance, weeklyGain),
		RemainingRuns:     remainingRuns,
	}, nil
}

func newPastWeek(b ProjectedBucket) PastWeek {
	return PastWeek{
		Start:             b.Start,
		AccruedRuns:       append([]float64{}, b.Runs...),
		AccruedDistance:   b.TotalDistance,
		ProjectedDistance: b.ProjectedDistance,
		RemainingDistance: b.RemainingDistance,
	}
}
