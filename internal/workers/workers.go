// Package workers runs the periodic background jobs of the server: keeping
// the Strava token fresh and pulling new activities.
package workers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/joshdurbin/runlog/internal/auth"
	"github.com/joshdurbin/runlog/internal/logging"
	"github.com/joshdurbin/runlog/internal/strava"
	syncsvc "github.com/joshdurbin/runlog/internal/sync"
)

// refreshWindow is how close to expiry the refresher renews a token
const refreshWindow = 10 * time.Minute

// runEvery calls fn immediately and then on every tick until ctx is done
func runEvery(ctx context.Context, name string, interval time.Duration, fn func(context.Context)) {
	log := logging.Logger
	log.Info().Str("worker", name).Dur("interval", interval).Msg("worker started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	fn(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("worker", name).Msg("worker stopped")
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

// TokenStore is the token persistence the refresher needs
type TokenStore interface {
	LoadTokens(ctx context.Context) (*auth.StoredTokens, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.TokenResponse, error)
}

// TokenRefresher keeps auth tokens up to date
type TokenRefresher struct {
	tokens   TokenStore
	interval time.Duration
	now      func() time.Time
}

// NewTokenRefresher creates a new token refresher worker
func NewTokenRefresher(tokens TokenStore, interval time.Duration) *TokenRefresher {
	return &TokenRefresher{
		tokens:   tokens,
		interval: interval,
		now:      time.Now,
	}
}

// Run refreshes the token on every interval until ctx is done
func (t *TokenRefresher) Run(ctx context.Context) {
	runEvery(ctx, "token_refresher", t.interval, func(ctx context.Context) {
		if _, err := t.RefreshIfExpiring(ctx); err != nil {
			logging.Logger.Error().Err(err).Msg("token refresh check failed")
		}
	})
}

// RefreshIfExpiring renews the token when it expires within refreshWindow and
// reports whether it did
func (t *TokenRefresher) RefreshIfExpiring(ctx context.Context) (bool, error) {
	log := logging.Logger

	tokens, err := t.tokens.LoadTokens(ctx)
	if err != nil {
		return false, fmt.Errorf("loading tokens: %w", err)
	}

	untilExpiry := time.Unix(tokens.ExpiresAt, 0).Sub(t.now())
	if untilExpiry >= refreshWindow {
		log.Debug().Dur("expires_in", untilExpiry.Round(time.Second)).Msg("token still valid")
		return false, nil
	}

	log.Info().Dur("expires_in", untilExpiry.Round(time.Second)).Msg("token expiring soon, refreshing")
	refreshed, err := t.tokens.Refresh(ctx, tokens.RefreshToken)
	if err != nil {
		return false, err
	}

	log.Info().
		Str("new_expires_at", time.Unix(refreshed.ExpiresAt, 0).Format(time.RFC3339)).
		Msg("token refreshed successfully")
	return true, nil
}

// AccessTokens hands out access tokens to the syncer
type AccessTokens interface {
	GetValidAccessToken(ctx context.Context) (string, error)
	ForceRefresh(ctx context.Context) (string, error)
}

// Client is the Strava API surface used by a sync pass
type Client interface {
	syncsvc.Fetcher
	WaitForRateLimit(ctx context.Context) error
}

// ClientFactory builds a Client for an access token
type ClientFactory func(accessToken string) Client

// StravaClientFactory returns a factory for real Strava clients
func StravaClientFactory(retryConfig strava.RetryConfig) ClientFactory {
	return func(accessToken string) Client {
		return strava.NewClient(accessToken, strava.WithRetryConfig(retryConfig))
	}
}

// ActivitySyncer periodically syncs activities from Strava
type ActivitySyncer struct {
	store     syncsvc.Store
	tokens    AccessTokens
	newClient ClientFactory
	interval  time.Duration
}

// NewActivitySyncer creates a new activity sync worker
func NewActivitySyncer(store syncsvc.Store, tokens AccessTokens, newClient ClientFactory, interval time.Duration) *ActivitySyncer {
	return &ActivitySyncer{
		store:     store,
		tokens:    tokens,
		newClient: newClient,
		interval:  interval,
	}
}

// Run syncs on every interval until ctx is done
func (a *ActivitySyncer) Run(ctx context.Context) {
	runEvery(ctx, "activity_syncer", a.interval, func(ctx context.Context) {
		if _, err := a.SyncNow(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logging.Logger.Error().Err(err).Msg("activity sync failed")
		}
	})
}

// SyncNow runs a single sync pass, retrying once with a refreshed token if
// Strava rejects the current one
func (a *ActivitySyncer) SyncNow(ctx context.Context) (syncsvc.Result, error) {
	accessToken, err := a.tokens.GetValidAccessToken(ctx)
	if err != nil {
		return syncsvc.Result{}, fmt.Errorf("getting access token: %w", err)
	}

	result, err := SyncOnce(ctx, a.store, a.newClient(accessToken))
	if !errors.Is(err, strava.ErrUnauthorized) {
		return result, err
	}

	logging.Logger.Warn().Msg("access token rejected, forcing refresh")
	accessToken, err = a.tokens.ForceRefresh(ctx)
	if err != nil {
		return syncsvc.Result{}, fmt.Errorf("refreshing rejected token: %w", err)
	}
	return SyncOnce(ctx, a.store, a.newClient(accessToken))
}

// SyncOnce waits for rate limit headroom and runs one delta or full sync
func SyncOnce(ctx context.Context, store syncsvc.Store, client Client) (syncsvc.Result, error) {
	if err := client.WaitForRateLimit(ctx); err != nil {
		return syncsvc.Result{}, err
	}
	return syncsvc.NewService(store, client).Run(ctx)
}

// StatsQuerier is the subset of queries LogDatabaseStats reads
type StatsQuerier interface {
	CountActivities(ctx context.Context) (int64, error)
	GetLatestActivityDate(ctx context.Context) (interface{}, error)
	GetOldestActivityDate(ctx context.Context) (interface{}, error)
}

// LogDatabaseStats logs the activity count and date span of the store
func LogDatabaseStats(ctx context.Context, queries StatsQuerier) {
	log := logging.Logger

	count, err := queries.CountActivities(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to count activities")
		return
	}

	if count == 0 {
		log.Info().Int64("total_activities", 0).Msg("database statistics")
		return
	}

	newestRaw, _ := queries.GetLatestActivityDate(ctx)
	oldestRaw, _ := queries.GetOldestActivityDate(ctx)

	log.Info().
		Int64("total_activities", count).
		Str("newest_activity", formatDate(newestRaw)).
		Str("oldest_activity", formatDate(oldestRaw)).
		Msg("database statistics")
}

func formatDate(raw interface{}) string {
	switch v := raw.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case sql.NullTime:
		if v.Valid {
			return v.Time.Format(time.RFC3339)
		}
	case time.Time:
		return v.Format(time.RFC3339)
	}
	return "unknown"
}
