// Package config loads planner and sync settings from a TOML file, an
// optional .env file and RUNLOG_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	// DefaultPath is read when no --config flag is given. A missing file is not an error.
	DefaultPath = "runlog.toml"

	maxWeeksProjected = 104
)

// Config is the full application configuration
type Config struct {
	Planner PlannerConfig `toml:"planner"`
	Sync    SyncConfig    `toml:"sync"`
	Strava  StravaConfig  `toml:"strava"`
}

// PlannerConfig holds the defaults used when a tool or command omits a value
type PlannerConfig struct {
	WeeklyDistanceGain float64  `toml:"weekly_distance_gain"`
	WeeksProjected     int      `toml:"weeks_projected"`
	ActivityTypes      []string `toml:"activity_types"`
	IncludeDaily       bool     `toml:"include_daily"`
	RollingWeek        bool     `toml:"rolling_week"`
}

// SyncConfig controls the background Strava workers
type SyncConfig struct {
	Interval             Duration `toml:"interval"`
	TokenRefreshInterval Duration `toml:"token_refresh_interval"`
}

// StravaConfig holds API client credentials. When both are set the
// interactive credential prompt is skipped.
type StravaConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"-"`
}

// Duration is a time.Duration decoded from strings like "15m"
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Planner: PlannerConfig{
			WeeklyDistanceGain: 0.1,
			WeeksProjected:     26,
			ActivityTypes:      []string{"Run"},
			IncludeDaily:       true,
			RollingWeek:        false,
		},
		Sync: SyncConfig{
			Interval:             Duration{15 * time.Minute},
			TokenRefreshInterval: Duration{30 * time.Minute},
		},
	}
}

// Load builds the configuration from defaults, the TOML file at path, a .env
// file in the working directory and the environment. An empty path means
// DefaultPath. Only an explicitly named missing file is an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading .env file: %w", err)
	}

	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if !errors.Is(err, os.ErrNotExist) || explicit {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadFromEnv(cfg *Config) error {
	if v := os.Getenv("RUNLOG_WEEKLY_DISTANCE_GAIN"); v != "" {
		gain, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parsing RUNLOG_WEEKLY_DISTANCE_GAIN: %w", err)
		}
		cfg.Planner.WeeklyDistanceGain = gain
	}
	if v := os.Getenv("RUNLOG_WEEKS_PROJECTED"); v != "" {
		weeks, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing RUNLOG_WEEKS_PROJECTED: %w", err)
		}
		cfg.Planner.WeeksProjected = weeks
	}
	if v := os.Getenv("RUNLOG_ACTIVITY_TYPES"); v != "" {
		var types []string
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				types = append(types, t)
			}
		}
		cfg.Planner.ActivityTypes = types
	}
	if v := os.Getenv("RUNLOG_STRAVA_CLIENT_ID"); v != "" {
		cfg.Strava.ClientID = v
	}
	if v := os.Getenv("RUNLOG_STRAVA_CLIENT_SECRET"); v != "" {
		cfg.Strava.ClientSecret = v
	}
	return nil
}

// Validate checks that the planner can run with these settings
func (c *Config) Validate() error {
	if c.Planner.WeeklyDistanceGain <= -1 {
		return fmt.Errorf("weekly_distance_gain must be greater than -1, got %g", c.Planner.WeeklyDistanceGain)
	}
	if c.Planner.WeeksProjected < 0 || c.Planner.WeeksProjected > maxWeeksProjected {
		return fmt.Errorf("weeks_projected must be between 0 and %d, got %d", maxWeeksProjected, c.Planner.WeeksProjected)
	}
	if c.Sync.Interval.Duration <= 0 {
		return fmt.Errorf("sync interval must be positive")
	}
	if c.Sync.TokenRefreshInterval.Duration <= 0 {
		return fmt.Errorf("token refresh interval must be positive")
	}
	return nil
}

// HasStravaCredentials reports whether client credentials came from config
func (c *Config) HasStravaCredentials() bool {
	return c.Strava.ClientID != "" && c.Strava.ClientSecret != ""
}
