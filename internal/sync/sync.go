// Package sync copies activities from Strava or from exported summary files
// into the local activity store.
package sync

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/joshdurbin/runlog/internal/db"
	"github.com/joshdurbin/runlog/internal/logging"
	"github.com/joshdurbin/runlog/internal/strava"
)

// deltaOverlap re-fetches a little before the newest stored activity so
// edits made shortly after upload are picked up
const deltaOverlap = time.Hour

// Fetcher is the part of the Strava client the service needs
type Fetcher interface {
	FetchAllActivities(ctx context.Context, progress strava.ProgressCallback) ([]strava.Activity, error)
	FetchActivitiesSince(ctx context.Context, since time.Time, progress strava.ProgressCallback) ([]strava.Activity, error)
}

// Store is the part of the database the service writes to
type Store interface {
	CreateActivity(ctx context.Context, arg db.CreateActivityParams) error
	GetRecentActivities(ctx context.Context, limit int64) ([]db.Activity, error)
}

// Result summarizes one sync pass
type Result struct {
	Delta   bool
	Since   time.Time
	Fetched int
	Saved   int
	Failed  int
}

// Service handles syncing activities from Strava to the database
type Service struct {
	store   Store
	fetcher Fetcher
}

// NewService creates a new sync service
func NewService(store Store, fetcher Fetcher) *Service {
	return &Service{
		store:   store,
		fetcher: fetcher,
	}
}

// Run syncs everything after the newest stored activity, or the whole
// history when the store is empty
func (s *Service) Run(ctx context.Context) (Result, error) {
	latest, err := s.latestStartDate(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("finding latest activity: %w", err)
	}
	if latest.IsZero() {
		return s.Sync(ctx)
	}
	return s.SyncDelta(ctx, latest.Add(-deltaOverlap))
}

// Sync fetches all activities from Strava and saves them
func (s *Service) Sync(ctx context.Context) (Result, error) {
	logging.Logger.Info().Msg("performing full sync")

	activities, err := s.fetcher.FetchAllActivities(ctx, logProgress)
	if err != nil {
		return Result{}, fmt.Errorf("fetching activities: %w", err)
	}
	return s.save(ctx, activities, Result{Fetched: len(activities)})
}

// SyncDelta fetches and saves activities that started after since
func (s *Service) SyncDelta(ctx context.Context, since time.Time) (Result, error) {
	logging.Logger.Info().Str("since", since.Format(time.RFC3339)).Msg("performing delta sync")

	activities, err := s.fetcher.FetchActivitiesSince(ctx, since, logProgress)
	if err != nil {
		return Result{}, fmt.Errorf("fetching activities: %w", err)
	}
	return s.save(ctx, activities, Result{Delta: true, Since: since, Fetched: len(activities)})
}

func (s *Service) save(ctx context.Context, activities []strava.Activity, result Result) (Result, error) {
	log := logging.Logger

	for _, activity := range activities {
		if err := ctx.Err(); err != nil {
			log.Info().Int("fetched", result.Fetched).Int("saved", result.Saved).Msg("sync interrupted")
			return result, err
		}

		if err := s.store.CreateActivity(ctx, ConvertActivityToParams(activity)); err != nil {
			result.Failed++
			log.Error().
				Int64("activity_id", activity.ID).
				Str("activity_name", activity.Name).
				Err(err).
				Msg("failed to save activity")
			continue
		}
		result.Saved++
		log.Debug().
			Int64("activity_id", activity.ID).
			Str("activity_type", activity.Type).
			Float64("distance_m", activity.Distance).
			Msg("saved activity")
	}

	log.Info().
		Bool("delta", result.Delta).
		Int("fetched", result.Fetched).
		Int("saved", result.Saved).
		Int("failed", result.Failed).
		Msg("activity sync completed")
	return result, nil
}

func (s *Service) latestStartDate(ctx context.Context) (time.Time, error) {
	recent, err := s.store.GetRecentActivities(ctx, 1)
	if err != nil {
		return time.Time{}, err
	}
	if len(recent) == 0 || !recent[0].StartDate.Valid {
		return time.Time{}, nil
	}
	return recent[0].StartDate.Time, nil
}

func logProgress(result strava.FetchResult) {
	rl := result.RateLimit
	event := logging.Logger.Debug()
	if rl.IsRateLimited {
		event = logging.Logger.Info()
	}
	event.
		Int("page", result.Page).
		Int("activities_on_page", result.Fetched).
		Int("total_fetched", result.TotalFetched).
		Str("15min_usage", fmt.Sprintf("%d/%d", rl.Usage15Min, rl.Limit15Min)).
		Str("daily_usage", fmt.Sprintf("%d/%d", rl.UsageDaily, rl.LimitDaily)).
		Msg("activity sync progress")
}

// ConvertActivityToParams converts a Strava activity to database params
func ConvertActivityToParams(a strava.Activity) db.CreateActivityParams {
	params := db.CreateActivityParams{
		ID:                 a.ID,
		Name:               a.Name,
		Type:               toNullString(a.Type),
		SportType:          toNullString(a.SportType),
		StartDate:          toNullTime(a.StartDate),
		StartDateLocal:     toNullTime(a.StartDateLocal),
		Timezone:           toNullString(a.Timezone),
		Distance:           sql.NullFloat64{Float64: a.Distance, Valid: true},
		MovingTime:         toNullInt64(int64(a.MovingTime)),
		ElapsedTime:        toNullInt64(int64(a.ElapsedTime)),
		TotalElevationGain: toNullFloat64(a.TotalElevationGain),
		AverageSpeed:       toNullFloat64(a.AverageSpeed),
		AverageCadence:     toNullFloat64(a.AverageCadence),
		Source:             SourceStrava,
	}
	if a.HasHeartrate || a.AverageHeartrate != 0 {
		params.AverageHeartrate = toNullFloat64(a.AverageHeartrate)
	}
	return params
}

func toNullFloat64(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: v != 0}
}

func toNullInt64(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v != 0}
}

func toNullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func toNullTime(v time.Time) sql.NullTime {
	return sql.NullTime{Time: v, Valid: !v.IsZero()}
}
