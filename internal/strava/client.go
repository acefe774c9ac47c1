// Package strava is a small client for the Strava activities API that keeps
// within the published rate limits.
package strava

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/joshdurbin/runlog/internal/logging"
)

const (
	defaultBaseURL = "https://www.strava.com/api/v3"
	perPage        = 200
	requestTimeout = 30 * time.Second
)

var (
	// ErrRateLimited is returned once retries are exhausted on HTTP 429
	ErrRateLimited = errors.New("rate limited")
	// ErrUnauthorized is returned on HTTP 401; the access token needs refreshing
	ErrUnauthorized = errors.New("unauthorized")
)

// StatusError is returned for any other non-200 response
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.StatusCode)
}

// RetryConfig holds retry/backoff settings
type RetryConfig struct {
	MaxRetries int
	MinWait    time.Duration
	MaxWait    time.Duration
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 5,
		MinWait:    1 * time.Second,
		MaxWait:    5 * time.Minute,
	}
}

// Option customizes a Client
type Option func(*Client)

// WithBaseURL points the client at another API root, e.g. a test server
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithRetryConfig overrides the retry and backoff settings
func WithRetryConfig(cfg RetryConfig) Option {
	return func(c *Client) {
		c.httpClient.RetryMax = cfg.MaxRetries
		c.httpClient.RetryWaitMin = cfg.MinWait
		c.httpClient.RetryWaitMax = cfg.MaxWait
	}
}

// Client fetches activities for the authenticated athlete
type Client struct {
	httpClient  *retryablehttp.Client
	accessToken string
	baseURL     string

	rateMu    sync.RWMutex
	rateLimit RateLimitInfo
}

// NewClient creates a Strava API client
func NewClient(accessToken string, opts ...Option) *Client {
	c := &Client{
		httpClient:  newRetryClient(),
		accessToken: accessToken,
		baseURL:     defaultBaseURL,
	}
	WithRetryConfig(DefaultRetryConfig())(c)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newRetryClient() *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.HTTPClient.Timeout = requestTimeout
	client.Logger = &logging.LeveledLogger{}
	client.CheckRetry = checkRetry
	client.Backoff = backoff
	client.RequestLogHook = logRequest
	client.ResponseLogHook = logResponse
	// Hand the final response back instead of a generic "giving up" error
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return client
}

// checkRetry retries connection errors, 429 and 5xx responses only
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return true, nil
	}
	return resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500, nil
}

// backoff waits for the rate limit window on 429 and backs off exponentially otherwise
func backoff(minWait, maxWait time.Duration, attemptNum int, resp *http.Response) time.Duration {
	log := logging.Logger

	if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
		if seconds, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
			wait := time.Duration(seconds) * time.Second
			log.Info().Dur("wait", wait).Int("attempt", attemptNum).Msg("rate limited, honoring Retry-After")
			return wait
		}
		wait := timeUntilNext15MinWindow(time.Now())
		log.Info().Dur("wait", wait).Int("attempt", attemptNum).Msg("rate limited, waiting for 15-minute window reset")
		return wait
	}

	wait := minWait * time.Duration(1<<uint(attemptNum))
	if wait > maxWait || wait <= 0 {
		wait = maxWait
	}
	log.Info().Dur("wait", wait).Int("attempt", attemptNum).Msg("backing off before retry")
	return wait
}

func logRequest(_ retryablehttp.Logger, req *http.Request, retry int) {
	log := logging.Logger
	if retry > 0 {
		log.Info().Str("url", req.URL.Path).Int("attempt", retry+1).Msg("retrying request")
	}
	if logging.IsTraceEnabled() {
		log.Trace().
			Str("method", req.Method).
			Str("url", req.URL.String()).
			Str("headers", formatHeaders(req.Header)).
			Msg("request headers")
	}
}

func logResponse(_ retryablehttp.Logger, resp *http.Response) {
	log := logging.Logger
	if logging.IsTraceEnabled() {
		log.Trace().
			Int("status", resp.StatusCode).
			Str("url", resp.Request.URL.Path).
			Str("headers", formatHeaders(resp.Header)).
			Msg("response headers")
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		rl := parseRateLimitHeaders(resp.Header, time.Now())
		log.Warn().
			Str("url", resp.Request.URL.Path).
			Str("15min_usage", fmt.Sprintf("%d/%d", rl.Usage15Min, rl.Limit15Min)).
			Str("daily_usage", fmt.Sprintf("%d/%d", rl.UsageDaily, rl.LimitDaily)).
			Dur("wait_for_reset", rl.TimeUntil15MinReset).
			Msg("rate limited by API")
	}
}

// GetRateLimit returns the last seen rate limit state with countdowns for now
func (c *Client) GetRateLimit() RateLimitInfo {
	c.rateMu.RLock()
	info := c.rateLimit
	c.rateMu.RUnlock()

	info.recalculate(time.Now())
	return info
}

// WaitForRateLimit blocks until the rate limits allow more requests or ctx is done
func (c *Client) WaitForRateLimit(ctx context.Context) error {
	rl := c.GetRateLimit()
	if rl.RecommendedWait <= 0 {
		return nil
	}

	logging.Logger.Info().
		Dur("wait", rl.RecommendedWait).
		Str("15min_usage", fmt.Sprintf("%d/%d", rl.Usage15Min, rl.Limit15Min)).
		Str("daily_usage", fmt.Sprintf("%d/%d", rl.UsageDaily, rl.LimitDaily)).
		Msg("waiting for rate limit window to reset")

	timer := time.NewTimer(rl.RecommendedWait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) updateRateLimit(resp *http.Response) RateLimitInfo {
	rl := parseRateLimitHeaders(resp.Header, time.Now())
	if resp.StatusCode == http.StatusTooManyRequests {
		rl.IsRateLimited = true
	}
	c.rateMu.Lock()
	c.rateLimit = rl
	c.rateMu.Unlock()
	return rl
}

// FetchResult describes one fetched page
type FetchResult struct {
	Page         int
	Fetched      int
	TotalFetched int
	RateLimit    RateLimitInfo
}

// ProgressCallback is called after each page is fetched
type ProgressCallback func(result FetchResult)

// FetchAllActivities pages through every activity of the athlete
func (c *Client) FetchAllActivities(ctx context.Context, progress ProgressCallback) ([]Activity, error) {
	return c.fetchPages(ctx, 0, progress)
}

// FetchActivitiesSince pages through activities that started after since
func (c *Client) FetchActivitiesSince(ctx context.Context, since time.Time, progress ProgressCallback) ([]Activity, error) {
	return c.fetchPages(ctx, since.Unix(), progress)
}

func (c *Client) fetchPages(ctx context.Context, after int64, progress ProgressCallback) ([]Activity, error) {
	var all []Activity
	for page := 1; ; page++ {
		activities, rl, err := c.fetchActivitiesPage(ctx, page, after)
		if err != nil {
			return all, err
		}
		all = append(all, activities...)

		if progress != nil {
			progress(FetchResult{
				Page:         page,
				Fetched:      len(activities),
				TotalFetched: len(all),
				RateLimit:    rl,
			})
		}

		if len(activities) < perPage {
			return all, nil
		}
	}
}

func (c *Client) fetchActivitiesPage(ctx context.Context, page int, after int64) ([]Activity, RateLimitInfo, error) {
	url := fmt.Sprintf("%s/athlete/activities?page=%d&per_page=%d", c.baseURL, page, perPage)
	if after > 0 {
		url += fmt.Sprintf("&after=%d", after)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, RateLimitInfo{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, RateLimitInfo{}, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	rl := c.updateRateLimit(resp)

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return nil, rl, ErrRateLimited
	case http.StatusUnauthorized:
		return nil, rl, ErrUnauthorized
	default:
		return nil, rl, &StatusError{StatusCode: resp.StatusCode}
	}

	var activities []Activity
	if err := json.NewDecoder(resp.Body).Decode(&activities); err != nil {
		return nil, rl, fmt.Errorf("decoding response: %w", err)
	}
	return activities, rl, nil
}

// formatHeaders renders headers for trace logs with credentials redacted
func formatHeaders(headers http.Header) string {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		value := strings.Join(headers[k], ", ")
		switch strings.ToLower(k) {
		case "authorization", "cookie", "set-cookie":
			value = "[REDACTED]"
		}
		parts = append(parts, fmt.Sprintf("%s: %q", k, value))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
