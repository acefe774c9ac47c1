package sync

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/joshdurbin/runlog/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const summariesJSON = `[
	{"start_time": "2021-07-12T18:00:00+02:00", "total_distance": 5000, "total_time": 1800, "avg_speed": 2.78, "avg_heart_rate": 150},
	{"id": 99, "name": "Long run", "type": "Run", "start_time": "2021-07-18T07:30:00+02:00", "total_distance": 15000, "total_time": 5400, "avg_speed": 2.78},
	{"total_distance": 3000},
	{"start_time": "2021-07-19T07:30:00Z", "total_distance": -1}
]`

func TestReadImportFile(t *testing.T) {
	t.Parallel()

	records, err := ReadImportFile(strings.NewReader(summariesJSON))
	require.NoError(t, err)
	require.Len(t, records, 4)

	assert.Equal(t, int64(99), records[1].ID)
	assert.InDelta(t, 15000, records[1].TotalDistance, 1e-9)
	require.NotNil(t, records[0].AvgHeartRate)
	assert.Nil(t, records[1].AvgHeartRate)

	_, err = ReadImportFile(strings.NewReader(`{"not": "an array"}`))
	assert.Error(t, err)
}

func TestImportStoresSummaries(t *testing.T) {
	t.Parallel()

	queries := setupTestDB(t)
	ctx := context.Background()

	records, err := ReadImportFile(strings.NewReader(summariesJSON))
	require.NoError(t, err)

	result, err := Import(ctx, queries, records)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Read: 4, Saved: 2, Skipped: 2}, result)

	// Importing again replaces rather than duplicates
	_, err = Import(ctx, queries, records)
	require.NoError(t, err)
	count, err := queries.CountActivities(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	start := time.Date(2021, 7, 12, 16, 0, 0, 0, time.UTC)
	row, err := queries.GetActivity(ctx, -start.Unix())
	require.NoError(t, err)
	assert.Equal(t, SourceImport, row.Source)
	assert.Equal(t, "(GMT+02:00)", row.Timezone.String)

	a, ok := db.ToTrainingActivity(row)
	require.True(t, ok)
	assert.Equal(t, 18, a.StartTime.Hour(), "local start hour survives the round trip")
	require.NotNil(t, a.AvgHeartRate)
	assert.InDelta(t, 150, *a.AvgHeartRate, 1e-9)
}

func TestGMTOffset(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "(GMT+00:00)", gmtOffset(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "(GMT-03:30)", gmtOffset(time.Date(2021, 1, 1, 0, 0, 0, 0, time.FixedZone("", -(3*3600+1800)))))
	assert.Equal(t, "(GMT+05:45)", gmtOffset(time.Date(2021, 1, 1, 0, 0, 0, 0, time.FixedZone("", 5*3600+45*60))))
}
