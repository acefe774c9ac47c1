package sync

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/joshdurbin/runlog/internal/db"
	"github.com/joshdurbin/runlog/internal/logging"
	"github.com/joshdurbin/runlog/internal/training"
)

// Activity sources recorded in the activities table
const (
	SourceStrava = "strava"
	SourceImport = "import"
)

// ImportRecord is one activity summary produced by an external decoder.
// ID, Name and Type are optional; the summary fields are required.
type ImportRecord struct {
	ID   int64  `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	Type string `json:"type,omitempty"`
	training.Activity
}

// ImportResult summarizes an import
type ImportResult struct {
	Read    int
	Saved   int
	Skipped int
}

// ReadImportFile decodes a JSON array of ImportRecord
func ReadImportFile(r io.Reader) ([]ImportRecord, error) {
	var records []ImportRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decoding activity summaries: %w", err)
	}
	return records, nil
}

// Import stores externally decoded activity summaries. Records without a
// start time or with a negative distance are skipped.
func Import(ctx context.Context, store Store, records []ImportRecord) (ImportResult, error) {
	log := logging.Logger
	result := ImportResult{Read: len(records)}

	for i, rec := range records {
		if err := validateRecord(rec); err != nil {
			result.Skipped++
			log.Warn().Int("index", i).Err(err).Msg("skipping activity summary")
			continue
		}
		if err := store.CreateActivity(ctx, ImportRecordToParams(rec)); err != nil {
			return result, fmt.Errorf("saving activity %d: %w", i, err)
		}
		result.Saved++
	}

	log.Info().
		Int("read", result.Read).
		Int("saved", result.Saved).
		Int("skipped", result.Skipped).
		Msg("activity import completed")
	return result, nil
}

func validateRecord(rec ImportRecord) error {
	switch {
	case rec.StartTime.IsZero():
		return errors.New("missing start_time")
	case rec.TotalDistance < 0:
		return fmt.Errorf("negative total_distance %g", rec.TotalDistance)
	case rec.TotalTime < 0:
		return fmt.Errorf("negative total_time %g", rec.TotalTime)
	}
	return nil
}

// ImportRecordToParams converts an import record to database params. Records
// without an ID get a negative one derived from the start time, so they never
// collide with Strava IDs and re-importing the same file is idempotent.
func ImportRecordToParams(rec ImportRecord) db.CreateActivityParams {
	id := rec.ID
	if id == 0 {
		id = -rec.StartTime.Unix()
	}
	name := rec.Name
	if name == "" {
		name = "Imported activity"
	}
	activityType := rec.Type
	if activityType == "" {
		activityType = "Run"
	}

	params := db.CreateActivityParams{
		ID:             id,
		Name:           name,
		Type:           toNullString(activityType),
		SportType:      toNullString(activityType),
		StartDate:      toNullTime(rec.StartTime),
		StartDateLocal: toNullTime(localWallClock(rec.StartTime)),
		Timezone:       toNullString(gmtOffset(rec.StartTime)),
		Distance:       sql.NullFloat64{Float64: rec.TotalDistance, Valid: true},
		MovingTime:     toNullInt64(int64(rec.TotalTime)),
		ElapsedTime:    toNullInt64(int64(rec.TotalTime)),
		AverageSpeed:   toNullFloat64(rec.AvgSpeed),
		Source:         SourceImport,
	}
	if rec.AvgHeartRate != nil {
		params.AverageHeartrate = sql.NullFloat64{Float64: *rec.AvgHeartRate, Valid: true}
	}
	if rec.AvgCadence != nil {
		params.AverageCadence = sql.NullFloat64{Float64: *rec.AvgCadence, Valid: true}
	}
	return params
}

// localWallClock re-labels the local wall clock time as UTC, the way Strava
// reports start_date_local
func localWallClock(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// gmtOffset renders t's offset in Strava's "(GMT+01:00)" timezone form
func gmtOffset(t time.Time) string {
	_, offset := t.Zone()
	sign := '+'
	if offset < 0 {
		sign = '-'
		offset = -offset
	}
	return fmt.Sprintf("(GMT%c%02d:%02d)", sign, offset/3600, offset%3600/60)
}
