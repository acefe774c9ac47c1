package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/joshdurbin/runlog/internal/logging"
	"github.com/pkg/browser"
	"golang.org/x/oauth2"
)

const (
	stravaAuthURL  = "https://www.strava.com/oauth/authorize"
	stravaTokenURL = "https://www.strava.com/oauth/token"

	// DefaultCallbackAddr must match the callback domain registered with Strava
	DefaultCallbackAddr = "localhost:8089"

	scopes = "activity:read_all"

	authorizationTimeout = 5 * time.Minute

	// expiryMargin treats tokens this close to expiry as already expired
	expiryMargin = 5 * time.Minute
)

// StravaEndpoint is the OAuth endpoint of the Strava API
var StravaEndpoint = oauth2.Endpoint{
	AuthURL:  stravaAuthURL,
	TokenURL: stravaTokenURL,
}

// TokenResponse is the token set persisted after login or refresh
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
	TokenType    string `json:"token_type"`
}

// TokenFromOAuth2 converts an oauth2.Token to a TokenResponse
func TokenFromOAuth2(token *oauth2.Token) *TokenResponse {
	return &TokenResponse{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry.Unix(),
		TokenType:    token.TokenType,
	}
}

// ToOAuth2Token converts a TokenResponse to an oauth2.Token
func (t *TokenResponse) ToOAuth2Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		Expiry:       time.Unix(t.ExpiresAt, 0),
		TokenType:    t.TokenType,
	}
}

// OAuth runs the authorization-code flow and token refreshes for one client
type OAuth struct {
	clientID     string
	clientSecret string
	endpoint     oauth2.Endpoint
	callbackAddr string
	openURL      func(string) error
}

// Option customizes an OAuth
type Option func(*OAuth)

// WithEndpoint overrides the Strava OAuth endpoint
func WithEndpoint(endpoint oauth2.Endpoint) Option {
	return func(o *OAuth) { o.endpoint = endpoint }
}

// WithCallbackAddr overrides the local address that receives the redirect
func WithCallbackAddr(addr string) Option {
	return func(o *OAuth) { o.callbackAddr = addr }
}

// WithURLOpener replaces the browser launcher
func WithURLOpener(open func(string) error) Option {
	return func(o *OAuth) { o.openURL = open }
}

// NewOAuth creates an OAuth helper for the given client credentials
func NewOAuth(clientID, clientSecret string, opts ...Option) *OAuth {
	o := &OAuth{
		clientID:     clientID,
		clientSecret: clientSecret,
		endpoint:     StravaEndpoint,
		callbackAddr: DefaultCallbackAddr,
		openURL:      browser.OpenURL,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Config returns the oauth2 configuration for the given redirect URL
func (o *OAuth) Config(redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     o.clientID,
		ClientSecret: o.clientSecret,
		Endpoint:     o.endpoint,
		RedirectURL:  redirectURL,
		Scopes:       []string{scopes},
	}
}

// Authenticate opens the browser at the authorization page, waits for the
// redirect on the local callback server and exchanges the code for tokens.
func (o *OAuth) Authenticate(ctx context.Context) (*TokenResponse, error) {
	log := logging.Logger

	listener, err := net.Listen("tcp", o.callbackAddr)
	if err != nil {
		return nil, fmt.Errorf("starting callback server: %w", err)
	}

	redirectURL := fmt.Sprintf("http://%s/callback", listener.Addr().String())
	if o.callbackAddr == DefaultCallbackAddr {
		redirectURL = "http://" + DefaultCallbackAddr + "/callback"
	}
	config := o.Config(redirectURL)

	state, err := randomState()
	if err != nil {
		listener.Close()
		return nil, err
	}

	codeChan := make(chan string, 1)
	errChan := make(chan error, 1)
	fail := func(err error) {
		select {
		case errChan <- err:
		default:
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			fail(errors.New("authorization failed: state mismatch"))
			return
		}
		code := q.Get("code")
		if code == "" {
			errMsg := q.Get("error")
			if errMsg == "" {
				errMsg = "no authorization code received"
			}
			http.Error(w, errMsg, http.StatusBadRequest)
			fail(fmt.Errorf("authorization failed: %s", errMsg))
			return
		}

		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body><h1>Authorization successful!</h1><p>You can close this window.</p></body></html>`)
		select {
		case codeChan <- code:
		default:
		}
	})

	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fail(fmt.Errorf("callback server error: %w", err))
		}
	}()
	defer server.Shutdown(context.Background())

	authURL := config.AuthCodeURL(state, oauth2.SetAuthURLParam("approval_prompt", "force"))
	log.Debug().Str("redirect_url", redirectURL).Msg("waiting for OAuth callback")

	fmt.Println("Opening browser for Strava authorization...")
	fmt.Printf("If browser doesn't open, visit: %s\n\n", authURL)
	if err := o.openURL(authURL); err != nil {
		fmt.Printf("Could not open browser automatically: %v\n", err)
	}

	var code string
	select {
	case code = <-codeChan:
	case err := <-errChan:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(authorizationTimeout):
		return nil, errors.New("authorization timeout")
	}

	token, err := config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}
	return TokenFromOAuth2(token), nil
}

// Refresh exchanges a refresh token for a new token set
func (o *OAuth) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	expired := &oauth2.Token{
		RefreshToken: refreshToken,
		Expiry:       time.Now().Add(-time.Hour),
	}

	newToken, err := o.Config("").TokenSource(ctx, expired).Token()
	if err != nil {
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}
	return TokenFromOAuth2(newToken), nil
}

// IsTokenExpired reports whether a token expiring at expiresAt (unix seconds)
// is expired or about to be
func IsTokenExpired(expiresAt int64) bool {
	return time.Now().Add(expiryMargin).Unix() > expiresAt
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating OAuth state: %w", err)
	}
	return hex.EncodeToString(b), nil
}
