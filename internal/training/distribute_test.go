package training

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitEven(t *testing.T) {
	t.Parallel()

	runs := SplitEven(396, 1.1)
	require.Len(t, runs, 3)

	assert.InDelta(t, 127.83, runs[0], tolerance)
	assert.InDelta(t, 131.96, runs[1], tolerance)
	assert.InDelta(t, 136.22, runs[2], tolerance)
}

func TestSplitEvenConservesAndIncreases(t *testing.T) {
	t.Parallel()

	for _, gain := range []float64{1.05, 1.1, 1.331, 2} {
		for _, target := range []float64{0, 1, 396, 12345.6} {
			runs := SplitEven(target, gain)
			assert.InDelta(t, target, runs[0]+runs[1]+runs[2], 1e-6, "target %v gain %v", target, gain)

			r := math.Pow(gain, 1.0/3)
			assert.InDelta(t, runs[0]*r, runs[1], 1e-6)
			assert.InDelta(t, runs[1]*r, runs[2], 1e-6)
			if target > 0 {
				assert.Less(t, runs[0], runs[1])
				assert.Less(t, runs[1], runs[2])
			}
		}
	}
}

func TestSplitRemaining(t *testing.T) {
	t.Parallel()

	t.Run("no runs completed uses even split of target", func(t *testing.T) {
		runs, err := SplitRemaining(396, 396, 0, 1.1)
		require.NoError(t, err)
		assert.Equal(t, SplitEven(396, 1.1), runs)
	})

	t.Run("one run completed splits remaining in two", func(t *testing.T) {
		runs, err := SplitRemaining(396, 268, 1, 1.1)
		require.NoError(t, err)
		require.Len(t, runs, 2)
		assert.InDelta(t, 131.87, runs[0], tolerance)
		assert.InDelta(t, 136.13, runs[1], tolerance)
		assert.InDelta(t, 268, runs[0]+runs[1], 1e-9)
	})

	t.Run("two runs completed leaves a single run", func(t *testing.T) {
		runs, err := SplitRemaining(396, 50, 2, 1.1)
		require.NoError(t, err)
		assert.Equal(t, []float64{50}, runs)
	})

	t.Run("three runs completed leaves nothing", func(t *testing.T) {
		runs, err := SplitRemaining(396, -20, 3, 1.1)
		require.NoError(t, err)
		assert.Empty(t, runs)
		assert.NotNil(t, runs)
	})

	t.Run("more than three runs is an invariant violation", func(t *testing.T) {
		_, err := SplitRemaining(396, 0, 4, 1.1)
		require.ErrorIs(t, err, ErrInvalidRunCount)
	})
}
