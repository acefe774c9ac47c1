package auth

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/joshdurbin/runlog/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *db.Queries {
	t.Helper()

	sqlDB, err := db.Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	return db.New(sqlDB)
}

func validTokens() *TokenResponse {
	return &TokenResponse{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    time.Now().Add(time.Hour).Unix(),
	}
}

func TestSaveAndLoadClientConfig(t *testing.T) {
	t.Parallel()

	storage := NewStorage(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, storage.SaveClientConfig(ctx, "test_client_id", "test_client_secret"))

	config, err := storage.LoadClientConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, "test_client_id", config.ClientID)
	assert.Equal(t, "test_client_secret", config.ClientSecret)
}

func TestLoadClientConfigNotFound(t *testing.T) {
	t.Parallel()

	storage := NewStorage(setupTestDB(t))
	_, err := storage.LoadClientConfig(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestSaveTokensRequiresClientConfig(t *testing.T) {
	t.Parallel()

	storage := NewStorage(setupTestDB(t))
	err := storage.SaveTokens(context.Background(), validTokens())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestSaveAndLoadTokens(t *testing.T) {
	t.Parallel()

	storage := NewStorage(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, storage.SaveClientConfig(ctx, "id", "secret"))

	_, err := storage.LoadTokens(ctx)
	assert.ErrorIs(t, err, ErrNotAuthenticated, "credentials alone are not a login")

	tokens := validTokens()
	require.NoError(t, storage.SaveTokens(ctx, tokens))

	loaded, err := storage.LoadTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, tokens.AccessToken, loaded.AccessToken)
	assert.Equal(t, tokens.RefreshToken, loaded.RefreshToken)
	assert.Equal(t, tokens.ExpiresAt, loaded.ExpiresAt)

	config, err := storage.LoadClientConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, "id", config.ClientID, "saving tokens keeps credentials")
}

func TestDeleteTokens(t *testing.T) {
	t.Parallel()

	storage := NewStorage(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, storage.SaveFullConfig(ctx, "id", "secret", validTokens()))
	require.NoError(t, storage.DeleteTokens(ctx))

	_, err := storage.LoadTokens(ctx)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	_, err = storage.LoadClientConfig(ctx)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestGetValidAccessTokenUsesStoredToken(t *testing.T) {
	t.Parallel()

	refresher := func(context.Context, string, string, string) (*TokenResponse, error) {
		t.Error("refresh should not be called for a valid token")
		return nil, errors.New("unexpected")
	}
	storage := NewStorageWithRefresher(setupTestDB(t), refresher)
	ctx := context.Background()

	require.NoError(t, storage.SaveFullConfig(ctx, "id", "secret", validTokens()))

	token, err := storage.GetValidAccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access", token)
}

func TestGetValidAccessTokenRefreshesExpiredToken(t *testing.T) {
	t.Parallel()

	var gotClient, gotRefresh string
	refresher := func(_ context.Context, clientID, _ string, refreshToken string) (*TokenResponse, error) {
		gotClient, gotRefresh = clientID, refreshToken
		return &TokenResponse{
			AccessToken:  "fresh",
			RefreshToken: "refresh-2",
			ExpiresAt:    time.Now().Add(6 * time.Hour).Unix(),
		}, nil
	}
	storage := NewStorageWithRefresher(setupTestDB(t), refresher)
	ctx := context.Background()

	expired := validTokens()
	expired.ExpiresAt = time.Now().Add(-time.Minute).Unix()
	require.NoError(t, storage.SaveFullConfig(ctx, "id", "secret", expired))

	token, err := storage.GetValidAccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "fresh", token)
	assert.Equal(t, "id", gotClient)
	assert.Equal(t, "refresh", gotRefresh)

	stored, err := storage.LoadTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, "refresh-2", stored.RefreshToken)
}

func TestGetValidAccessTokenRefreshFailure(t *testing.T) {
	t.Parallel()

	refresher := func(context.Context, string, string, string) (*TokenResponse, error) {
		return nil, errors.New("invalid_grant")
	}
	storage := NewStorageWithRefresher(setupTestDB(t), refresher)
	ctx := context.Background()

	expired := validTokens()
	expired.ExpiresAt = 0
	require.NoError(t, storage.SaveFullConfig(ctx, "id", "secret", expired))

	_, err := storage.GetValidAccessToken(ctx)
	assert.ErrorIs(t, err, ErrRefreshFailed)
	assert.ErrorContains(t, err, "invalid_grant")
}

func TestForceRefreshIgnoresExpiry(t *testing.T) {
	t.Parallel()

	calls := 0
	refresher := func(context.Context, string, string, string) (*TokenResponse, error) {
		calls++
		return &TokenResponse{AccessToken: "forced", RefreshToken: "r", ExpiresAt: time.Now().Add(time.Hour).Unix()}, nil
	}
	storage := NewStorageWithRefresher(setupTestDB(t), refresher)
	ctx := context.Background()
	require.NoError(t, storage.SaveFullConfig(ctx, "id", "secret", validTokens()))

	token, err := storage.ForceRefresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, "forced", token)
	assert.Equal(t, 1, calls)
}
