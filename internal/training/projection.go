package training

import (
	"fmt"
	"math"
	"time"
)

// ProjectedBucket is a period bucket with its target distance attached
type ProjectedBucket struct {
	PeriodBucket
	ProjectedDistance float64
	// RemainingDistance is ProjectedDistance minus TotalDistance. Negative when
	// the period already exceeded its target.
	RemainingDistance float64
}

// FutureBucket is a synthesized period after the current one
type FutureBucket struct {
	Start             time.Time
	ProjectedDistance float64
}

// Project attaches a target to every bucket of an ascending, gap-free series.
//
// The first bucket has no predecessor and gets a zero target. Every later
// bucket's target is the previous bucket's actual total times weeklyGain. The
// lookback reads actuals, never earlier targets.
func Project(buckets []PeriodBucket, weeklyGain float64) ([]ProjectedBucket, error) {
	if weeklyGain <= 0 {
		return nil, fmt.Errorf("projecting with gain %v: %w", weeklyGain, ErrInvalidGain)
	}

	projected := make([]ProjectedBucket, len(buckets))
	var previousActual float64
	for i, b := range buckets {
		var target float64
		if i > 0 {
			target = previousActual * weeklyGain
		}
		projected[i] = ProjectedBucket{
			PeriodBucket:      b,
			ProjectedDistance: target,
			RemainingDistance: target - b.TotalDistance,
		}
		previousActual = b.TotalDistance
	}
	return projected, nil
}

// Extrapolate compounds the current target forward for count weekly periods.
// Period k (1-based) gets current.ProjectedDistance * weeklyGain^k.
func Extrapolate(current ProjectedBucket, weeklyGain float64, count int) ([]FutureBucket, error) {
	if weeklyGain <= 0 {
		return nil, fmt.Errorf("extrapolating with gain %v: %w", weeklyGain, ErrInvalidGain)
	}
	if count < 0 {
		return nil, fmt.Errorf("extrapolating %d periods: %w", count, ErrInvalidHorizon)
	}

	future := make([]FutureBucket, count)
	for k := 1; k <= count; k++ {
		future[k-1] = FutureBucket{
			Start:             Week.Add(current.Start, k),
			ProjectedDistance: current.ProjectedDistance * math.Pow(weeklyGain, float64(k)),
		}
	}
	return future, nil
}

// currentIndex returns the index of the latest bucket starting at or before now's period.
func currentIndex(buckets []ProjectedBucket, period Period, now time.Time) int {
	nowStart := period.Start(now)
	for i := len(buckets) - 1; i >= 0; i-- {
		if !buckets[i].Start.After(nowStart) {
			return i
		}
	}
	return -1
}
