package training

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPeriodStart(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		period Period
		in     time.Time
		want   time.Time
	}{
		{"wednesday to monday", Week, evening(7, 21), date(7, 19)},
		{"monday stays", Week, date(7, 19), date(7, 19)},
		{"sunday goes back six days", Week, evening(7, 25), date(7, 19)},
		{"crosses month boundary", Week, evening(8, 1), date(7, 26)},
		{"day truncates time", Day, evening(7, 21), date(7, 21)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(tt.period.Start(tt.in)), "got %v", tt.period.Start(tt.in))
		})
	}
}

func TestPeriodStartKeepsLocation(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC-7", -7*3600)
	// 2021-07-19 03:00 UTC is still Sunday 18th locally
	in := time.Date(2021, 7, 19, 3, 0, 0, 0, time.UTC).In(loc)

	got := Week.Start(in)

	assert.Equal(t, loc, got.Location())
	assert.True(t, time.Date(2021, 7, 12, 0, 0, 0, 0, loc).Equal(got))
}

func TestPeriodAdd(t *testing.T) {
	t.Parallel()

	assert.True(t, date(8, 2).Equal(Week.Add(date(7, 19), 2)))
	assert.True(t, date(7, 20).Equal(Day.Next(date(7, 19))))
	assert.Equal(t, "week", Week.String())
	assert.Equal(t, "day", Day.String())
}
