package training

import (
	"fmt"
	"math"
)

// RunsPerWeek is the number of runs a planned week is split into
const RunsPerWeek = 3

// perRunGain is the ratio between consecutive runs so that RunsPerWeek runs
// compound to the full weekly gain.
func perRunGain(weeklyGain float64) float64 {
	return math.Pow(weeklyGain, 1.0/RunsPerWeek)
}

// SplitEven splits target into three increasing runs at ratio weeklyGain^(1/3).
// The runs sum to target.
func SplitEven(target, weeklyGain float64) []float64 {
	r := perRunGain(weeklyGain)
	base := target / (1 + r + r*r)
	return []float64{base, base * r, base * r * r}
}

// SplitRemaining distributes remaining across the run slots not yet used this
// week. completed is the number of runs already recorded in the period.
func SplitRemaining(target, remaining float64, completed int, weeklyGain float64) ([]float64, error) {
	r := perRunGain(weeklyGain)

	switch RunsPerWeek - completed {
	case 0:
		return []float64{}, nil
	case 1:
		return []float64{remaining}, nil
	case 2:
		base := remaining / (1 + r)
		return []float64{base, base * r}, nil
	case 3:
		return SplitEven(target, weeklyGain), nil
	default:
		return nil, fmt.Errorf("splitting remaining distance with %d completed runs: %w", completed, ErrInvalidRunCount)
	}
}
