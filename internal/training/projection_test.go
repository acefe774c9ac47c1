package training

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weeksOf(totals ...float64) []PeriodBucket {
	buckets := make([]PeriodBucket, len(totals))
	for i, total := range totals {
		buckets[i] = PeriodBucket{
			Start:         Week.Add(date(7, 5), i),
			TotalDistance: total,
		}
	}
	return buckets
}

func TestProjectLooksBackOnePeriod(t *testing.T) {
	t.Parallel()

	actual := []float64{100, 0, 250, 80, 400}
	projected, err := Project(weeksOf(actual...), 1.1)
	require.NoError(t, err)
	require.Len(t, projected, len(actual))

	assert.Equal(t, 0.0, projected[0].ProjectedDistance)
	for i := 1; i < len(actual); i++ {
		assert.InDelta(t, actual[i-1]*1.1, projected[i].ProjectedDistance, 1e-9, "index %d", i)
	}
}

func TestProjectRemainingMayBeNegative(t *testing.T) {
	t.Parallel()

	projected, err := Project(weeksOf(100, 500), 1.1)
	require.NoError(t, err)

	assert.InDelta(t, -100, projected[0].RemainingDistance, tolerance)
	assert.InDelta(t, 110-500, projected[1].RemainingDistance, tolerance)
}

func TestProjectRejectsNonPositiveGain(t *testing.T) {
	t.Parallel()

	_, err := Project(weeksOf(100), 0)
	require.ErrorIs(t, err, ErrInvalidGain)

	_, err = Project(weeksOf(100), -0.5)
	require.ErrorIs(t, err, ErrInvalidGain)
}

func TestExtrapolateCompounds(t *testing.T) {
	t.Parallel()

	current := ProjectedBucket{
		PeriodBucket:      PeriodBucket{Start: date(7, 19)},
		ProjectedDistance: 396,
	}

	future, err := Extrapolate(current, 1.1, 3)
	require.NoError(t, err)
	require.Len(t, future, 3)

	assert.True(t, date(7, 26).Equal(future[0].Start))
	assert.InDelta(t, 435.6, future[0].ProjectedDistance, tolerance)
	assert.True(t, date(8, 2).Equal(future[1].Start))
	assert.InDelta(t, 479.16, future[1].ProjectedDistance, tolerance)
	assert.InDelta(t, 527.076, future[2].ProjectedDistance, tolerance)
}

func TestExtrapolateHorizon(t *testing.T) {
	t.Parallel()

	current := ProjectedBucket{PeriodBucket: PeriodBucket{Start: date(7, 19)}, ProjectedDistance: 100}

	future, err := Extrapolate(current, 1.1, 0)
	require.NoError(t, err)
	assert.Empty(t, future)

	_, err = Extrapolate(current, 1.1, -1)
	require.ErrorIs(t, err, ErrInvalidHorizon)
}
