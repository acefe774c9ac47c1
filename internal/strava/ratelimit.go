package strava

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// rateLimitBuffer leaves headroom below the published limits
const rateLimitBuffer = 5

// RateLimitInfo is the client's view of Strava's two rate limit windows
type RateLimitInfo struct {
	Limit15Min    int
	Usage15Min    int
	LimitDaily    int
	UsageDaily    int
	IsRateLimited bool

	TimeUntil15MinReset time.Duration
	TimeUntilDailyReset time.Duration
	RecommendedWait     time.Duration
}

// IsApproaching15MinLimit returns true if we're close to the 15-minute limit
func (info *RateLimitInfo) IsApproaching15MinLimit() bool {
	return info.Limit15Min > 0 && info.Usage15Min >= info.Limit15Min-rateLimitBuffer
}

// IsApproachingDailyLimit returns true if we're close to the daily limit
func (info *RateLimitInfo) IsApproachingDailyLimit() bool {
	return info.LimitDaily > 0 && info.UsageDaily >= info.LimitDaily-rateLimitBuffer
}

// recalculate refreshes the reset countdowns and the recommended wait for now
func (info *RateLimitInfo) recalculate(now time.Time) {
	info.TimeUntil15MinReset = timeUntilNext15MinWindow(now)
	info.TimeUntilDailyReset = timeUntilMidnightUTC(now)
	info.RecommendedWait = 0

	switch {
	case info.Limit15Min > 0 && info.Usage15Min >= info.Limit15Min:
		info.IsRateLimited = true
		info.RecommendedWait = info.TimeUntil15MinReset
	case info.LimitDaily > 0 && info.UsageDaily >= info.LimitDaily:
		info.IsRateLimited = true
		info.RecommendedWait = info.TimeUntilDailyReset
	case info.IsApproaching15MinLimit():
		info.RecommendedWait = info.TimeUntil15MinReset
	case info.IsApproachingDailyLimit():
		info.RecommendedWait = info.TimeUntilDailyReset
	}
}

// timeUntilNext15MinWindow returns the time until the next quarter hour, when
// Strava resets the short window, plus a two second margin
func timeUntilNext15MinWindow(now time.Time) time.Duration {
	next := now.Truncate(15 * time.Minute).Add(15 * time.Minute)
	return next.Sub(now) + 2*time.Second
}

// timeUntilMidnightUTC returns the time until the daily window resets
func timeUntilMidnightUTC(now time.Time) time.Duration {
	nowUTC := now.UTC()
	midnight := time.Date(nowUTC.Year(), nowUTC.Month(), nowUTC.Day()+1, 0, 0, 0, 0, time.UTC)
	return midnight.Sub(nowUTC) + 2*time.Second
}

// parsePair reads a "15min,daily" header value
func parsePair(v string) (short, daily int) {
	if v == "" {
		return 0, 0
	}
	parts := strings.Split(v, ",")
	short, _ = strconv.Atoi(strings.TrimSpace(parts[0]))
	if len(parts) > 1 {
		daily, _ = strconv.Atoi(strings.TrimSpace(parts[1]))
	}
	return short, daily
}

// minPositive returns the smaller of two limits, ignoring unset (zero) ones
func minPositive(a, b int) int {
	switch {
	case a <= 0:
		return b
	case b <= 0:
		return a
	default:
		return min(a, b)
	}
}

// parseRateLimitHeaders merges the general X-RateLimit-* and the stricter
// X-ReadRateLimit-* headers, keeping the lower limit and the higher usage.
func parseRateLimitHeaders(headers http.Header, now time.Time) RateLimitInfo {
	limit15, limitDay := parsePair(headers.Get("X-RateLimit-Limit"))
	usage15, usageDay := parsePair(headers.Get("X-RateLimit-Usage"))
	readLimit15, readLimitDay := parsePair(headers.Get("X-ReadRateLimit-Limit"))
	readUsage15, readUsageDay := parsePair(headers.Get("X-ReadRateLimit-Usage"))

	info := RateLimitInfo{
		Limit15Min: minPositive(limit15, readLimit15),
		LimitDaily: minPositive(limitDay, readLimitDay),
		Usage15Min: max(usage15, readUsage15),
		UsageDaily: max(usageDay, readUsageDay),
	}
	info.recalculate(now)
	return info
}
