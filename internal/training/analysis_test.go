package training

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeAnalysisByWeek(t *testing.T) {
	t.Parallel()

	runs := []Activity{
		simpleRun(evening(7, 14), 0.5, 180),
		simpleRun(evening(7, 21), 1.0, 360),
		simpleRun(evening(7, 28), 1.5, 540),
	}

	analysis, err := ComputeAnalysis(runs, AnalysisOptions{})
	require.NoError(t, err)
	require.Len(t, analysis.ByWeek, 3)
	assert.Nil(t, analysis.ByDay)

	week := analysis.ByWeek
	assert.True(t, date(7, 26).Equal(week[0].Start))
	assert.Equal(t, 1.5, week[0].TotalDistance)
	require.NotNil(t, week[0].DistanceGain)
	assert.InDelta(t, 0.5, *week[0].DistanceGain, 1e-9)

	assert.True(t, date(7, 19).Equal(week[1].Start))
	require.NotNil(t, week[1].DistanceGain)
	assert.InDelta(t, 1.0, *week[1].DistanceGain, 1e-9)

	assert.True(t, date(7, 12).Equal(week[2].Start))
	assert.Equal(t, 0.5, week[2].TotalDistance)
	assert.Nil(t, week[2].DistanceGain)
}

func TestComputeAnalysisNoRunWeek(t *testing.T) {
	t.Parallel()

	runs := []Activity{
		simpleRun(evening(7, 14), 0.5, 180),
		simpleRun(evening(7, 28), 1.5, 540),
	}

	analysis, err := ComputeAnalysis(runs, AnalysisOptions{})
	require.NoError(t, err)
	require.Len(t, analysis.ByWeek, 3)

	week := analysis.ByWeek
	assert.True(t, date(7, 26).Equal(week[0].Start))
	assert.Nil(t, week[0].DistanceGain)

	assert.True(t, date(7, 19).Equal(week[1].Start))
	assert.Equal(t, 0.0, week[1].TotalDistance)
	require.NotNil(t, week[1].DistanceGain)
	assert.InDelta(t, -1.0, *week[1].DistanceGain, 1e-9)

	assert.Nil(t, week[2].DistanceGain)
}

func TestComputeAnalysisByDay(t *testing.T) {
	t.Parallel()

	runs := []Activity{
		simpleRun(evening(7, 15), 1.0, 360),
		simpleRun(evening(7, 17), 1.5, 540),
	}

	analysis, err := ComputeAnalysis(runs, AnalysisOptions{ByDay: true})
	require.NoError(t, err)
	require.Len(t, analysis.ByDay, 3)

	day := analysis.ByDay
	assert.True(t, date(7, 17).Equal(day[0].Date))
	require.NotNil(t, day[0].TotalDistance)
	assert.Equal(t, 1.5, *day[0].TotalDistance)

	assert.True(t, date(7, 16).Equal(day[1].Date))
	assert.Nil(t, day[1].TotalDistance)

	assert.True(t, date(7, 15).Equal(day[2].Date))
	require.NotNil(t, day[2].TotalDistance)
	assert.Equal(t, 1.0, *day[2].TotalDistance)

	for _, d := range day {
		assert.Nil(t, d.RollingWeekDistance)
	}
}

func TestComputeAnalysisRollingWeek(t *testing.T) {
	t.Parallel()

	runs := []Activity{
		simpleRun(evening(7, 1), 1000, 300),
		simpleRun(evening(7, 4), 2000, 600),
		simpleRun(evening(7, 8), 3000, 900),
	}

	analysis, err := ComputeAnalysis(runs, AnalysisOptions{ByDay: true, RollingWeek: true})
	require.NoError(t, err)
	require.Len(t, analysis.ByDay, 8)

	// 7/8 window covers 7/2..7/8, dropping 7/1
	latest := analysis.ByDay[0]
	require.NotNil(t, latest.RollingWeekDistance)
	assert.InDelta(t, 5000, *latest.RollingWeekDistance, tolerance)

	// 7/7 window covers 7/1..7/7
	require.NotNil(t, analysis.ByDay[1].RollingWeekDistance)
	assert.InDelta(t, 3000, *analysis.ByDay[1].RollingWeekDistance, tolerance)
}

func TestAnalyseByPeriodNeverProducesInfOrNaN(t *testing.T) {
	t.Parallel()

	gains := AnalyseByPeriod(weeksOf(0, 10, 0, 0, 5, 0.000001, 3))
	for _, g := range gains {
		if g.DistanceGain == nil {
			continue
		}
		assert.False(t, math.IsInf(*g.DistanceGain, 0))
		assert.False(t, math.IsNaN(*g.DistanceGain))
	}
	// predecessor of the last bucket is below epsilon
	assert.Nil(t, gains[0].DistanceGain)
}

func TestAnalyseByPeriodSkipsNoDataDays(t *testing.T) {
	t.Parallel()

	days := []PeriodBucket{
		{Start: date(7, 15), TotalDistance: 1},
		{Start: date(7, 16), NoData: true},
		{Start: date(7, 17), TotalDistance: 2},
	}

	gains := AnalyseByPeriod(days)
	for _, g := range gains {
		assert.Nil(t, g.DistanceGain)
	}
}

func TestComputeAnalysisEmpty(t *testing.T) {
	t.Parallel()

	_, err := ComputeAnalysis(nil, AnalysisOptions{ByDay: true})
	require.ErrorIs(t, err, ErrEmptySeries)
}

func TestDistanceGainHelper(t *testing.T) {
	t.Parallel()

	g := distanceGain(PeriodBucket{TotalDistance: 2}, PeriodBucket{TotalDistance: 3})
	require.NotNil(t, g)
	assert.InDelta(t, 0.5, *g, 1e-9)
	assert.Equal(t, floatPtr(0.5), g)
}
