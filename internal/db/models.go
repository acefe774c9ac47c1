package db

import (
	"database/sql"
	"time"
)

// Activity is a stored activity summary
type Activity struct {
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
	CreatedAt          time.Time
}

// AuthConfig holds the single row of OAuth client credentials and tokens
type AuthConfig struct {
	ID           int64
	ClientID     string
	ClientSecret string
	AccessToken  sql.NullString
	RefreshToken sql.NullString
	ExpiresAt    sql.NullInt64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
