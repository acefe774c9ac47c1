package training

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var someWednesday = evening(7, 21)

func threeRuns() []Activity {
	return []Activity{
		simpleRun(evening(7, 14), 100, 50),
		simpleRun(evening(7, 15), 120, 60),
		simpleRun(evening(7, 16), 140, 70),
	}
}

func TestComputePlanProjectsFromPreviousWeek(t *testing.T) {
	t.Parallel()

	plan, err := ComputePlan(threeRuns(), PlanOptions{DistanceGain: 0.1, WeeksProjected: 2, Now: someWednesday})
	require.NoError(t, err)

	assert.True(t, date(7, 19).Equal(plan.CurrentWeek.Start))
	assert.InDelta(t, 396, plan.CurrentWeek.ProjectedDistance, tolerance)

	require.Len(t, plan.FutureWeeks, 2)
	assert.True(t, date(7, 26).Equal(plan.FutureWeeks[0].Start))
	assert.InDelta(t, 435.6, plan.FutureWeeks[0].ProjectedDistance, tolerance)
	assert.True(t, date(8, 2).Equal(plan.FutureWeeks[1].Start))
	assert.InDelta(t, 479.16, plan.FutureWeeks[1].ProjectedDistance, tolerance)

	require.Len(t, plan.PastWeeks, 1)
	assert.True(t, date(7, 12).Equal(plan.PastWeeks[0].Start))
	assert.InDelta(t, 360, plan.PastWeeks[0].AccruedDistance, tolerance)
	assert.Equal(t, 0.0, plan.PastWeeks[0].ProjectedDistance)
	assert.Equal(t, []float64{100, 120, 140}, plan.PastWeeks[0].AccruedRuns)
}

func TestComputePlanSplitsRuns(t *testing.T) {
	t.Parallel()

	plan, err := ComputePlan(threeRuns(), PlanOptions{DistanceGain: 0.1, WeeksProjected: 1, Now: someWednesday})
	require.NoError(t, err)

	current := plan.CurrentWeek
	assert.InDelta(t, 127.83, current.AsThreeRuns[0], tolerance)
	assert.InDelta(t, 131.96, current.AsThreeRuns[1], tolerance)
	assert.InDelta(t, 136.22, current.AsThreeRuns[2], tolerance)
	assert.Equal(t, current.AsThreeRuns, current.RemainingRuns)

	next := plan.FutureWeeks[0]
	assert.InDelta(t, 140.61, next.AsThreeRuns[0], tolerance)
	assert.InDelta(t, 145.15, next.AsThreeRuns[1], tolerance)
	assert.InDelta(t, 149.84, next.AsThreeRuns[2], tolerance)
}

func TestComputePlanIncludesRunsInCurrentWeek(t *testing.T) {
	t.Parallel()

	runs := append(threeRuns(), simpleRun(evening(7, 20), 128, 65))

	plan, err := ComputePlan(runs, PlanOptions{DistanceGain: 0.1, WeeksProjected: 1, Now: someWednesday})
	require.NoError(t, err)

	current := plan.CurrentWeek
	assert.InDelta(t, 396, current.ProjectedDistance, tolerance)
	assert.InDelta(t, 128, current.AccruedDistance, tolerance)
	assert.InDelta(t, 268, current.RemainingDistance, tolerance)

	require.Len(t, current.AccruedRuns, 1)
	assert.InDelta(t, 128, current.AccruedRuns[0], tolerance)
	require.Len(t, current.RemainingRuns, 2)
	assert.InDelta(t, 131.87, current.RemainingRuns[0], tolerance)
	assert.InDelta(t, 136.13, current.RemainingRuns[1], tolerance)
}

func TestComputePlanPastWeeksDescending(t *testing.T) {
	t.Parallel()

	runs := []Activity{
		simpleRun(evening(6, 30), 1000, 300),
		simpleRun(evening(7, 14), 2000, 600),
	}

	plan, err := ComputePlan(runs, PlanOptions{DistanceGain: 0.1, WeeksProjected: 0, Now: someWednesday})
	require.NoError(t, err)

	require.Len(t, plan.PastWeeks, 3)
	assert.True(t, date(7, 12).Equal(plan.PastWeeks[0].Start))
	assert.True(t, date(7, 5).Equal(plan.PastWeeks[1].Start))
	assert.True(t, date(6, 28).Equal(plan.PastWeeks[2].Start))

	// the empty week's target comes from the week before it
	assert.InDelta(t, 1100, plan.PastWeeks[1].ProjectedDistance, tolerance)
	assert.InDelta(t, 1100, plan.PastWeeks[1].RemainingDistance, tolerance)
	// and the week after an empty week gets a zero target
	assert.Equal(t, 0.0, plan.PastWeeks[0].ProjectedDistance)
	assert.InDelta(t, -2000, plan.PastWeeks[0].RemainingDistance, tolerance)

	assert.InDelta(t, 2200, plan.CurrentWeek.ProjectedDistance, tolerance)
	assert.Empty(t, plan.FutureWeeks)
}

func TestComputePlanErrors(t *testing.T) {
	t.Parallel()

	_, err := ComputePlan(nil, PlanOptions{DistanceGain: 0.1, Now: someWednesday})
	require.ErrorIs(t, err, ErrEmptySeries)

	_, err = ComputePlan(threeRuns(), PlanOptions{DistanceGain: -1, Now: someWednesday})
	require.ErrorIs(t, err, ErrInvalidGain)

	_, err = ComputePlan(threeRuns(), PlanOptions{DistanceGain: 0.1, WeeksProjected: -1, Now: someWednesday})
	require.ErrorIs(t, err, ErrInvalidHorizon)

	_, err = ComputePlan(threeRuns(), PlanOptions{DistanceGain: 0.1, Now: evening(7, 1)})
	require.ErrorIs(t, err, ErrNoCurrentPeriod)

	tooMany := append(threeRuns(),
		simpleRun(evening(7, 19), 10, 5),
		simpleRun(evening(7, 20), 10, 5),
		simpleRun(evening(7, 21), 10, 5),
		simpleRun(evening(7, 22), 10, 5),
	)
	_, err = ComputePlan(tooMany, PlanOptions{DistanceGain: 0.1, Now: someWednesday})
	require.ErrorIs(t, err, ErrInvalidRunCount)
}

func TestComputePlanIgnoresLaterWeeks(t *testing.T) {
	t.Parallel()

	runs := append(threeRuns(), simpleRun(evening(8, 3), 500, 200))

	plan, err := ComputePlan(runs, PlanOptions{DistanceGain: 0.1, WeeksProjected: 1, Now: someWednesday})
	require.NoError(t, err)

	assert.True(t, date(7, 19).Equal(plan.CurrentWeek.Start))
	assert.Len(t, plan.PastWeeks, 1)
}

func TestComputePlanDoesNotShareSlices(t *testing.T) {
	t.Parallel()

	runs := threeRuns()
	plan, err := ComputePlan(runs, PlanOptions{DistanceGain: 0.1, WeeksProjected: 1, Now: evening(7, 16)})
	require.NoError(t, err)

	plan.CurrentWeek.AccruedRuns[0] = -1
	again, err := ComputePlan(runs, PlanOptions{DistanceGain: 0.1, WeeksProjected: 1, Now: evening(7, 16)})
	require.NoError(t, err)
	assert.Equal(t, 100.0, again.CurrentWeek.AccruedRuns[0])
}

func TestComputePlanConcurrentCalls(t *testing.T) {
	t.Parallel()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(gain float64) {
			defer wg.Done()
			plan, err := ComputePlan(threeRuns(), PlanOptions{DistanceGain: gain, WeeksProjected: 4, Now: someWednesday})
			assert.NoError(t, err)
			assert.InDelta(t, 360*(1+gain), plan.CurrentWeek.ProjectedDistance, tolerance)
		}(float64(i) / 10)
	}
	wg.Wait()
}

func TestPlanJSON(t *testing.T) {
	t.Parallel()

	plan, err := ComputePlan(threeRuns(), PlanOptions{DistanceGain: 0.1, WeeksProjected: 1, Now: someWednesday})
	require.NoError(t, err)

	raw, err := json.Marshal(plan)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	current := decoded["current_week"].(map[string]any)
	assert.Equal(t, "2021-07-19T00:00:00Z", current["start"])
	start, err := time.Parse(time.RFC3339, current["start"].(string))
	require.NoError(t, err)
	assert.True(t, plan.CurrentWeek.Start.Equal(start))
	assert.Contains(t, current, "remaining_runs")
	assert.Len(t, decoded["future_weeks"], 1)
}
