package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// newTokenServer serves a fixed token response and records the grant types it saw
func newTokenServer(t *testing.T, grants chan<- string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if grants != nil {
			grants <- r.Form.Get("grant_type")
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "new-access",
			"refresh_token": "new-refresh",
			"token_type":    "Bearer",
			"expires_in":    21600,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestIsTokenExpired(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		expiresAt int64
		want      bool
	}{
		{name: "expired in the past", expiresAt: time.Now().Add(-1 * time.Hour).Unix(), want: true},
		{name: "expires in 1 minute", expiresAt: time.Now().Add(1 * time.Minute).Unix(), want: true},
		{name: "expires in 4 minutes", expiresAt: time.Now().Add(4 * time.Minute).Unix(), want: true},
		{name: "expires in 10 minutes", expiresAt: time.Now().Add(10 * time.Minute).Unix(), want: false},
		{name: "expires in 1 hour", expiresAt: time.Now().Add(1 * time.Hour).Unix(), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsTokenExpired(tt.expiresAt))
		})
	}
}

func TestTokenConversionRoundTrip(t *testing.T) {
	t.Parallel()

	original := &TokenResponse{
		AccessToken:  "access_token",
		RefreshToken: "refresh_token",
		ExpiresAt:    time.Now().Add(time.Hour).Unix(),
		TokenType:    "Bearer",
	}

	converted := original.ToOAuth2Token()
	assert.Equal(t, "access_token", converted.AccessToken)
	assert.Equal(t, "Bearer", converted.TokenType)

	assert.Equal(t, original, TokenFromOAuth2(converted))
}

func TestOAuthConfigDefaults(t *testing.T) {
	t.Parallel()

	config := NewOAuth("test_client_id", "test_client_secret").Config("http://localhost:8089/callback")

	assert.Equal(t, "test_client_id", config.ClientID)
	assert.Equal(t, "test_client_secret", config.ClientSecret)
	assert.Equal(t, "https://www.strava.com/oauth/authorize", config.Endpoint.AuthURL)
	assert.Equal(t, "https://www.strava.com/oauth/token", config.Endpoint.TokenURL)
	assert.Equal(t, []string{"activity:read_all"}, config.Scopes)
}

func TestRefresh(t *testing.T) {
	t.Parallel()

	grants := make(chan string, 1)
	srv := newTokenServer(t, grants)

	o := NewOAuth("id", "secret", WithEndpoint(oauth2.Endpoint{TokenURL: srv.URL}))
	tokens, err := o.Refresh(context.Background(), "old-refresh")
	require.NoError(t, err)

	assert.Equal(t, "refresh_token", <-grants)
	assert.Equal(t, "new-access", tokens.AccessToken)
	assert.Equal(t, "new-refresh", tokens.RefreshToken)
	assert.False(t, IsTokenExpired(tokens.ExpiresAt))
}

func TestAuthenticateCompletesCallbackFlow(t *testing.T) {
	t.Parallel()

	srv := newTokenServer(t, nil)

	opener := func(authURL string) error {
		u, err := url.Parse(authURL)
		if err != nil {
			return err
		}
		q := u.Query()
		callback := q.Get("redirect_uri") + "?code=abc&state=" + url.QueryEscape(q.Get("state"))
		go func() {
			resp, err := http.Get(callback)
			if err == nil {
				resp.Body.Close()
			}
		}()
		return nil
	}

	o := NewOAuth("id", "secret",
		WithEndpoint(oauth2.Endpoint{AuthURL: srv.URL + "/authorize", TokenURL: srv.URL}),
		WithCallbackAddr("127.0.0.1:0"),
		WithURLOpener(opener),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tokens, err := o.Authenticate(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new-access", tokens.AccessToken)
}

func TestAuthenticateRejectsWrongState(t *testing.T) {
	t.Parallel()

	opener := func(authURL string) error {
		u, err := url.Parse(authURL)
		if err != nil {
			return err
		}
		go func() {
			resp, err := http.Get(u.Query().Get("redirect_uri") + "?code=abc&state=forged")
			if err == nil {
				resp.Body.Close()
			}
		}()
		return nil
	}

	o := NewOAuth("id", "secret",
		WithEndpoint(oauth2.Endpoint{AuthURL: "http://127.0.0.1/authorize", TokenURL: "http://127.0.0.1/token"}),
		WithCallbackAddr("127.0.0.1:0"),
		WithURLOpener(opener),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := o.Authenticate(ctx)
	assert.ErrorContains(t, err, "state mismatch")
}
