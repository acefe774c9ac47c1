package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

const activityColumns = `id, name, type, sport_type, start_date, start_date_local, timezone,
	distance, moving_time, elapsed_time, total_elevation_gain,
	average_speed, average_heartrate, average_cadence, source, created_at`

func scanActivity(row interface{ Scan(...interface{}) error }) (Activity, error) {
	var a Activity
	err := row.Scan(
		&a.ID,
		&a.Name,
		&a.Type,
		&a.SportType,
		&a.StartDate,
		&a.StartDateLocal,
		&a.Timezone,
		&a.Distance,
		&a.MovingTime,
		&a.ElapsedTime,
		&a.TotalElevationGain,
		&a.AverageSpeed,
		&a.AverageHeartrate,
		&a.AverageCadence,
		&a.Source,
		&a.CreatedAt,
	)
	return a, err
}

func scanActivities(rows *sql.Rows) ([]Activity, error) {
	defer rows.Close()
	var items []Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createActivity = `INSERT INTO activities (
	id, name, type, sport_type, start_date, start_date_local, timezone,
	distance, moving_time, elapsed_time, total_elevation_gain,
	average_speed, average_heartrate, average_cadence, source
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
	name = excluded.name,
	type = excluded.type,
	sport_type = excluded.sport_type,
	start_date = excluded.start_date,
	start_date_local = excluded.start_date_local,
	timezone = excluded.timezone,
	distance = excluded.distance,
	moving_time = excluded.moving_time,
	elapsed_time = excluded.elapsed_time,
	total_elevation_gain = excluded.total_elevation_gain,
	average_speed = excluded.average_speed,
	average_heartrate = excluded.average_heartrate,
	average_cadence = excluded.average_cadence,
	source = excluded.source`

// CreateActivityParams are the columns written by CreateActivity
type CreateActivityParams struct {
	ID                 int64
	Name               string
	Type               sql.NullString
	SportType          sql.NullString
	StartDate          sql.NullTime
	StartDateLocal     sql.NullTime
	Timezone           sql.NullString
	Distance           sql.NullFloat64
	MovingTime         sql.NullInt64
	ElapsedTime        sql.NullInt64
	TotalElevationGain sql.NullFloat64
	AverageSpeed       sql.NullFloat64
	AverageHeartrate   sql.NullFloat64
	AverageCadence     sql.NullFloat64
	Source             string
}

// CreateActivity inserts an activity, replacing any existing row with the same ID
func (q *Queries) CreateActivity(ctx context.Context, arg CreateActivityParams) error {
	source := arg.Source
	if source == "" {
		source = "strava"
	}
	startDate := arg.StartDate
	if startDate.Valid {
		startDate.Time = startDate.Time.UTC()
	}
	_, err := q.db.ExecContext(ctx, createActivity,
		arg.ID,
		arg.Name,
		arg.Type,
		arg.SportType,
		startDate,
		arg.StartDateLocal,
		arg.Timezone,
		arg.Distance,
		arg.MovingTime,
		arg.ElapsedTime,
		arg.TotalElevationGain,
		arg.AverageSpeed,
		arg.AverageHeartrate,
		arg.AverageCadence,
		source,
	)
	return err
}

const getActivity = `SELECT ` + activityColumns + ` FROM activities WHERE id = ?`

// GetActivity returns the activity with the given ID
func (q *Queries) GetActivity(ctx context.Context, id int64) (Activity, error) {
	return scanActivity(q.db.QueryRowContext(ctx, getActivity, id))
}

const countActivities = `SELECT COUNT(*) FROM activities`

// CountActivities returns the number of stored activities
func (q *Queries) CountActivities(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countActivities).Scan(&count)
	return count, err
}

const getRecentActivities = `SELECT ` + activityColumns + ` FROM activities
ORDER BY start_date DESC
LIMIT ?`

// GetRecentActivities returns the most recently started activities
func (q *Queries) GetRecentActivities(ctx context.Context, limit int64) ([]Activity, error) {
	rows, err := q.db.QueryContext(ctx, getRecentActivities, limit)
	if err != nil {
		return nil, err
	}
	return scanActivities(rows)
}

// ListActivitiesByTypes returns all dated activities whose type is one of
// types, oldest first. An empty types list matches every activity.
func (q *Queries) ListActivitiesByTypes(ctx context.Context, types []string) ([]Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities WHERE start_date IS NOT NULL`
	args := make([]interface{}, 0, len(types))
	if len(types) > 0 {
		placeholders := make([]string, len(types))
		for i, t := range types {
			placeholders[i] = "?"
			args = append(args, t)
		}
		query += fmt.Sprintf(" AND type IN (%s)", strings.Join(placeholders, ", "))
	}
	query += " ORDER BY start_date ASC"

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanActivities(rows)
}

const listActivitiesInRange = `SELECT ` + activityColumns + ` FROM activities
WHERE (? IS NULL OR type = ?)
  AND (? IS NULL OR COALESCE(start_date_local, start_date) >= ?)
  AND (? IS NULL OR COALESCE(start_date_local, start_date) <= ?)
ORDER BY start_date DESC
LIMIT ?`

// ListActivitiesInRangeParams filters ListActivitiesInRange. Null fields do not
// filter. Start and End are local wall clock times labelled UTC, the same way
// start_date_local is stored.
type ListActivitiesInRangeParams struct {
	Type  sql.NullString
	Start sql.NullTime
	End   sql.NullTime
	Limit int64
}

// ListActivitiesInRange returns activities newest first, filtered by type and
// local start date. Rows without start_date_local fall back to start_date.
func (q *Queries) ListActivitiesInRange(ctx context.Context, arg ListActivitiesInRangeParams) ([]Activity, error) {
	start, end := arg.Start, arg.End
	if start.Valid {
		start.Time = start.Time.UTC()
	}
	if end.Valid {
		end.Time = end.Time.UTC()
	}
	rows, err := q.db.QueryContext(ctx, listActivitiesInRange,
		arg.Type, arg.Type,
		start, start,
		end, end,
		arg.Limit,
	)
	if err != nil {
		return nil, err
	}
	return scanActivities(rows)
}

const getLatestActivityDate = `SELECT MAX(start_date) FROM activities`

// GetLatestActivityDate returns the start date of the newest activity
func (q *Queries) GetLatestActivityDate(ctx context.Context) (interface{}, error) {
	var v interface{}
	err := q.db.QueryRowContext(ctx, getLatestActivityDate).Scan(&v)
	return v, err
}

const getOldestActivityDate = `SELECT MIN(start_date) FROM activities`

// GetOldestActivityDate returns the start date of the oldest activity
func (q *Queries) GetOldestActivityDate(ctx context.Context) (interface{}, error) {
	var v interface{}
	err := q.db.QueryRowContext(ctx, getOldestActivityDate).Scan(&v)
	return v, err
}
