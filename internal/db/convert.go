package db

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joshdurbin/runlog/internal/training"
)

// Strava timezones look like "(GMT+01:00) Europe/Paris"
var gmtOffsetPattern = regexp.MustCompile(`^\(GMT([+-])(\d{2}):(\d{2})\)`)

// ParseTimezone resolves a stored timezone string. The IANA name is preferred,
// then the GMT offset prefix, and UTC when neither can be used.
func ParseTimezone(tz string) *time.Location {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		return time.UTC
	}

	name := tz
	if i := strings.Index(tz, ") "); i >= 0 {
		name = strings.TrimSpace(tz[i+2:])
	}
	if name != "" && !strings.HasPrefix(name, "(") {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}

	if m := gmtOffsetPattern.FindStringSubmatch(tz); m != nil {
		hours, _ := strconv.Atoi(m[2])
		minutes, _ := strconv.Atoi(m[3])
		offset := hours*3600 + minutes*60
		if m[1] == "-" {
			offset = -offset
		}
		return time.FixedZone(m[0][1:len(m[0])-1], offset)
	}

	return time.UTC
}

// ToTrainingActivity converts a stored activity into the summary used for
// planning. It reports false when the activity has no start date.
func ToTrainingActivity(a Activity) (training.Activity, bool) {
	if !a.StartDate.Valid {
		return training.Activity{}, false
	}

	loc := ParseTimezone(a.Timezone.String)
	out := training.Activity{
		StartTime:     a.StartDate.Time.In(loc),
		TotalDistance: a.Distance.Float64,
		AvgSpeed:      a.AverageSpeed.Float64,
	}

	switch {
	case a.MovingTime.Valid:
		out.TotalTime = float64(a.MovingTime.Int64)
	case a.ElapsedTime.Valid:
		out.TotalTime = float64(a.ElapsedTime.Int64)
	}
	if out.AvgSpeed == 0 && out.TotalTime > 0 {
		out.AvgSpeed = out.TotalDistance / out.TotalTime
	}
	if a.AverageHeartrate.Valid {
		hr := a.AverageHeartrate.Float64
		out.AvgHeartRate = &hr
	}
	if a.AverageCadence.Valid {
		cadence := a.AverageCadence.Float64
		out.AvgCadence = &cadence
	}
	return out, true
}

// ToTrainingActivities converts stored activities, skipping any without a start date
func ToTrainingActivities(rows []Activity) []training.Activity {
	out := make([]training.Activity, 0, len(rows))
	for _, r := range rows {
		if a, ok := ToTrainingActivity(r); ok {
			out = append(out, a)
		}
	}
	return out
}
