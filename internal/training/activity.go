// Package training buckets running activities into calendar periods and derives
// training plans and period-over-period analysis from them.
//
// Everything here is pure: functions take immutable inputs, allocate fresh outputs
// and never block, so they are safe to call concurrently with different inputs.
package training

import "time"

// Activity is the summary of a single completed activity as supplied by an
// external decoder or sync source. StartTime carries the activity's own location.
type Activity struct {
	StartTime     time.Time `json:"start_time"`
	TotalDistance float64   `json:"total_distance"` // meters
	TotalTime     float64   `json:"total_time"`     // seconds
	AvgHeartRate  *float64  `json:"avg_heart_rate,omitempty"`
	AvgSpeed      float64   `json:"avg_speed"` // m/s
	AvgCadence    *float64  `json:"avg_cadence,omitempty"`
}
