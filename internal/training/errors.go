package training

import "errors"

var (
	// ErrEmptySeries is returned when bucketing is asked to build a series without any activities
	ErrEmptySeries = errors.New("no activities to establish a period span")

	// ErrInvalidRunCount is returned when a period records more runs than the plan allows.
	// It signals a broken invariant upstream and must not be swallowed.
	ErrInvalidRunCount = errors.New("unexpected number of runs in period")

	// ErrInvalidGain is returned when the weekly gain factor is not positive
	ErrInvalidGain = errors.New("weekly gain must be greater than zero")

	// ErrInvalidHorizon is returned when a negative number of future periods is requested
	ErrInvalidHorizon = errors.New("projection horizon must not be negative")

	// ErrNoCurrentPeriod is returned when no bucket starts at or before "now"
	ErrNoCurrentPeriod = errors.New("no period at or before now")
)
