package training

import (
	"fmt"
	"time"
)

// Period is the calendar length used to aggregate activities
type Period int

const (
	// Week periods start on Monday at local midnight (ISO week)
	Week Period = iota
	// Day periods start at local midnight
	Day
)

func (p Period) String() string {
	switch p {
	case Week:
		return "week"
	case Day:
		return "day"
	default:
		return fmt.Sprintf("period(%d)", int(p))
	}
}

// Start normalizes t to the start of the period containing it, in t's location.
func (p Period) Start(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	if p == Day {
		return day
	}
	// Monday = 0 ... Sunday = 6
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// Next returns the start of the period following the one that starts at start.
// Calendar arithmetic keeps boundaries at local midnight across DST changes.
func (p Period) Next(start time.Time) time.Time {
	return p.Add(start, 1)
}

// Add moves start by n whole periods.
func (p Period) Add(start time.Time, n int) time.Time {
	if p == Day {
		return start.AddDate(0, 0, n)
	}
	return start.AddDate(0, 0, 7*n)
}

// civilDate identifies a calendar date independent of location
type civilDate struct {
	year  int
	month time.Month
	day   int
}

func civil(t time.Time) civilDate {
	y, m, d := t.Date()
	return civilDate{year: y, month: m, day: d}
}

func (c civilDate) in(loc *time.Location) time.Time {
	return time.Date(c.year, c.month, c.day, 0, 0, 0, 0, loc)
}
