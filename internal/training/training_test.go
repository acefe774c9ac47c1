package training

import (
	"time"
)

const tolerance = 0.01

func date(month time.Month, day int) time.Time {
	return time.Date(2021, month, day, 0, 0, 0, 0, time.UTC)
}

func evening(month time.Month, day int) time.Time {
	return time.Date(2021, month, day, 18, 0, 0, 0, time.UTC)
}

func simpleRun(start time.Time, distance, duration float64) Activity {
	hr := 130.0
	cadence := 180.0
	return Activity{
		StartTime:     start,
		TotalDistance: distance,
		TotalTime:     duration,
		AvgHeartRate:  &hr,
		AvgSpeed:      5,
		AvgCadence:    &cadence,
	}
}

func floatPtr(v float64) *float64 {
	return &v
}
