package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/joshdurbin/runlog/internal/config"
	"github.com/joshdurbin/runlog/internal/logging"
	"github.com/spf13/cobra"
)

var (
	verbosity            int
	dbPath               string
	configPath           string
	mcpPort              int
	syncInterval         time.Duration
	tokenRefreshInterval time.Duration
	noSync               bool
	forceReauth          bool

	// cfg is loaded before any command runs
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "runlog",
	Short: "runlog - weekly running plans from your activity history",
	Long: `runlog keeps a local SQLite log of your runs and turns it into a weekly plan:
each week's target is last week's distance grown by a configurable gain,
split into three runs that build through the week.

The default command serves the plan over the Model Context Protocol (MCP):
- Automatic authentication via OAuth (prompts on first run)
- Background token refresh to keep authentication valid
- Periodic activity sync from Strava
- MCP tools for plans, trends and run lookups

Use --no-sync to serve only what is already in the database, for example
after "runlog import". Planner defaults are read from runlog.toml and
RUNLOG_* environment variables.
`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Set up logging based on verbosity before any command runs
		logging.Setup(logging.Level(verbosity))

		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		// Explicit flags win over the config file
		if cmd.Flags().Changed("sync-interval") {
			loaded.Sync.Interval = config.Duration{Duration: syncInterval}
		}
		if cmd.Flags().Changed("token-refresh-interval") {
			loaded.Sync.TokenRefreshInterval = config.Duration{Duration: tokenRefreshInterval}
		}
		if err := loaded.Validate(); err != nil {
			return err
		}
		cfg = loaded

		logging.Logger.Debug().
			Float64("weekly_distance_gain", cfg.Planner.WeeklyDistanceGain).
			Int("weeks_projected", cfg.Planner.WeeksProjected).
			Strs("activity_types", cfg.Planner.ActivityTypes).
			Msg("configuration loaded")
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return Run(runtimeConfig())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Sync activities and serve the training tools over MCP (default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return Run(runtimeConfig())
	},
}

func init() {
	// Logging verbosity
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase verbosity (-v for debug, -vv for trace with HTTP headers)")

	// Runtime settings as CLI flags
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "runlog.db", "path to SQLite database file")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to TOML config file (default runlog.toml if present)")
	rootCmd.PersistentFlags().IntVarP(&mcpPort, "port", "p", 8080, "MCP server port (0 for stdio mode)")
	rootCmd.PersistentFlags().DurationVar(&syncInterval, "sync-interval", 15*time.Minute, "interval between activity syncs")
	rootCmd.PersistentFlags().DurationVar(&tokenRefreshInterval, "token-refresh-interval", 30*time.Minute, "interval between token refresh checks")

	// Offline mode
	rootCmd.PersistentFlags().BoolVar(&noSync, "no-sync", false, "run MCP server only without Strava API sync (offline mode)")

	// Force re-authentication
	rootCmd.PersistentFlags().BoolVar(&forceReauth, "force-reauth", false, "force OAuth re-authentication, clearing existing tokens")

	rootCmd.AddCommand(serveCmd)
}

func runtimeConfig() *RuntimeConfig {
	return &RuntimeConfig{
		DBPath:               dbPath,
		MCPPort:              mcpPort,
		SyncInterval:         cfg.Sync.Interval.Duration,
		TokenRefreshInterval: cfg.Sync.TokenRefreshInterval.Duration,
		NoSync:               noSync,
		ForceReauth:          forceReauth,
		Config:               cfg,
	}
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
