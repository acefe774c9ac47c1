package training

import (
	"fmt"
	"time"
)

// PeriodBucket is the aggregate of all activities starting within one period.
type PeriodBucket struct {
	Start         time.Time
	TotalDistance float64
	// NoData marks a synthesized day with no recorded activity. Synthesized weeks
	// are treated as "ran zero" and keep NoData false.
	NoData bool
	// Runs holds the member activity distances in input order
	Runs []float64
}

// Distance returns the bucket total, or nil when the bucket has no data.
func (b PeriodBucket) Distance() *float64 {
	if b.NoData {
		return nil
	}
	d := b.TotalDistance
	return &d
}

// Bucket groups activities into contiguous periods, ascending by start.
//
// The span runs from the earliest observed period to the later of the latest
// observed period and the period containing through. A zero through means no
// anchor. Missing weeks are synthesized with a zero total; missing days are
// synthesized as NoData.
//
// Activities are grouped by the civil date of their local start time and the
// series is laid out in through's location, or the earliest activity's
// location when no anchor is given.
func Bucket(activities []Activity, period Period, through time.Time) ([]PeriodBucket, error) {
	if len(activities) == 0 {
		return nil, fmt.Errorf("bucketing by %s: %w", period, ErrEmptySeries)
	}

	loc := earliest(activities).StartTime.Location()
	if !through.IsZero() {
		loc = through.Location()
	}

	type group struct {
		total float64
		runs  []float64
	}
	groups := make(map[civilDate]*group)

	var first, last time.Time
	for i, a := range activities {
		key := civil(period.Start(a.StartTime))
		start := key.in(loc)
		if i == 0 || start.Before(first) {
			first = start
		}
		if i == 0 || start.After(last) {
			last = start
		}

		g, ok := groups[key]
		if !ok {
			g = &group{}
			groups[key] = g
		}
		g.total += a.TotalDistance
		g.runs = append(g.runs, a.TotalDistance)
	}

	if !through.IsZero() {
		anchor := period.Start(through)
		if anchor.After(last) {
			last = anchor
		}
	}

	var buckets []PeriodBucket
	for cursor := first; !cursor.After(last); cursor = period.Next(cursor) {
		g, ok := groups[civil(cursor)]
		if !ok {
			buckets = append(buckets, PeriodBucket{
				Start:  cursor,
				NoData: period == Day,
				Runs:   []float64{},
			})
			continue
		}
		buckets = append(buckets, PeriodBucket{
			Start:         cursor,
			TotalDistance: g.total,
			Runs:          g.runs,
		})
	}

	return buckets, nil
}

func earliest(activities []Activity) Activity {
	first := activities[0]
	for _, a := range activities[1:] {
		if a.StartTime.Before(first.StartTime) {
			first = a
		}
	}
	return first
}
