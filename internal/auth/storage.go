package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/joshdurbin/runlog/internal/db"
)

var (
	// ErrNotConfigured means no client credentials have been stored yet
	ErrNotConfigured = errors.New("strava client not configured")
	// ErrNotAuthenticated means credentials exist but no access token does
	ErrNotAuthenticated = errors.New("not authenticated with strava")
	// ErrRefreshFailed means the stored refresh token was rejected
	ErrRefreshFailed = errors.New("refreshing token")
)

// RefreshFunc exchanges a refresh token using the given client credentials
type RefreshFunc func(ctx context.Context, clientID, clientSecret, refreshToken string) (*TokenResponse, error)

func refreshWithStrava(ctx context.Context, clientID, clientSecret, refreshToken string) (*TokenResponse, error) {
	return NewOAuth(clientID, clientSecret).Refresh(ctx, refreshToken)
}

// Storage persists OAuth client credentials and tokens in SQLite
type Storage struct {
	queries *db.Queries
	refresh RefreshFunc
}

// NewStorage creates a Storage that refreshes tokens against Strava
func NewStorage(queries *db.Queries) *Storage {
	return NewStorageWithRefresher(queries, refreshWithStrava)
}

// NewStorageWithRefresher creates a Storage with a custom token refresher
func NewStorageWithRefresher(queries *db.Queries, refresh RefreshFunc) *Storage {
	return &Storage{
		queries: queries,
		refresh: refresh,
	}
}

// SaveTokens replaces the stored tokens. Client credentials must already exist.
func (s *Storage) SaveTokens(ctx context.Context, tokens *TokenResponse) error {
	if _, err := s.queries.GetAuthConfig(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotConfigured
		}
		return fmt.Errorf("checking existing config: %w", err)
	}

	return s.queries.UpdateTokens(ctx, db.UpdateTokensParams{
		AccessToken:  sql.NullString{String: tokens.AccessToken, Valid: true},
		RefreshToken: sql.NullString{String: tokens.RefreshToken, Valid: true},
		ExpiresAt:    sql.NullInt64{Int64: tokens.ExpiresAt, Valid: true},
	})
}

// LoadTokens loads tokens from the database
func (s *Storage) LoadTokens(ctx context.Context) (*StoredTokens, error) {
	config, err := s.queries.GetAuthConfig(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotAuthenticated
		}
		return nil, fmt.Errorf("loading auth config: %w", err)
	}

	if !config.AccessToken.Valid {
		return nil, ErrNotAuthenticated
	}

	return &StoredTokens{
		AccessToken:  config.AccessToken.String,
		RefreshToken: config.RefreshToken.String,
		ExpiresAt:    config.ExpiresAt.Int64,
	}, nil
}

// SaveClientConfig stores client credentials, clearing any tokens
func (s *Storage) SaveClientConfig(ctx context.Context, clientID, clientSecret string) error {
	return s.queries.SaveAuthConfig(ctx, db.SaveAuthConfigParams{
		ClientID:     clientID,
		ClientSecret: clientSecret,
	})
}

// SaveFullConfig saves client credentials and tokens together
func (s *Storage) SaveFullConfig(ctx context.Context, clientID, clientSecret string, tokens *TokenResponse) error {
	return s.queries.SaveAuthConfig(ctx, db.SaveAuthConfigParams{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		AccessToken:  sql.NullString{String: tokens.AccessToken, Valid: true},
		RefreshToken: sql.NullString{String: tokens.RefreshToken, Valid: true},
		ExpiresAt:    sql.NullInt64{Int64: tokens.ExpiresAt, Valid: true},
	})
}

// LoadClientConfig loads client credentials from the database
func (s *Storage) LoadClientConfig(ctx context.Context) (*ClientConfig, error) {
	config, err := s.queries.GetAuthConfig(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotConfigured
		}
		return nil, fmt.Errorf("loading auth config: %w", err)
	}

	return &ClientConfig{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
	}, nil
}

// DeleteTokens removes the stored auth config from the database
func (s *Storage) DeleteTokens(ctx context.Context) error {
	return s.queries.DeleteAuthConfig(ctx)
}

// GetValidAccessToken returns the stored access token, refreshing it first
// when it is expired or about to expire
func (s *Storage) GetValidAccessToken(ctx context.Context) (string, error) {
	tokens, err := s.LoadTokens(ctx)
	if err != nil {
		return "", err
	}

	if !IsTokenExpired(tokens.ExpiresAt) {
		return tokens.AccessToken, nil
	}

	refreshed, err := s.Refresh(ctx, tokens.RefreshToken)
	if err != nil {
		return "", err
	}
	return refreshed.AccessToken, nil
}

// Refresh exchanges refreshToken for new tokens and stores them
func (s *Storage) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	config, err := s.LoadClientConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading client config for refresh: %w", err)
	}

	newTokens, err := s.refresh(ctx, config.ClientID, config.ClientSecret, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}

	if err := s.SaveTokens(ctx, newTokens); err != nil {
		return nil, fmt.Errorf("saving refreshed tokens: %w", err)
	}
	return newTokens, nil
}

// StoredTokens represents the tokens stored in the database
type StoredTokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    int64
}

// ClientConfig represents the stored client credentials
type ClientConfig struct {
	ClientID     string
	ClientSecret string
}

// ForceRefresh refreshes the stored tokens regardless of their expiry, for
// when the API has rejected an access token that looked valid
func (s *Storage) ForceRefresh(ctx context.Context) (string, error) {
	tokens, err := s.LoadTokens(ctx)
	if err != nil {
		return "", err
	}
	refreshed, err := s.Refresh(ctx, tokens.RefreshToken)
	if err != nil {
		return "", err
	}
	return refreshed.AccessToken, nil
}
