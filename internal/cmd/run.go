package cmd

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joshdurbin/runlog/internal/auth"
	"github.com/joshdurbin/runlog/internal/config"
	"github.com/joshdurbin/runlog/internal/db"
	"github.com/joshdurbin/runlog/internal/logging"
	"github.com/joshdurbin/runlog/internal/server"
	"github.com/joshdurbin/runlog/internal/strava"
	"github.com/joshdurbin/runlog/internal/workers"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/errgroup"
)

// RuntimeConfig holds all runtime configuration from CLI flags and the config file
type RuntimeConfig struct {
	DBPath               string
	MCPPort              int
	SyncInterval         time.Duration
	TokenRefreshInterval time.Duration
	NoSync               bool
	ForceReauth          bool
	Config               *config.Config
}

// Run is the main entry point for the serve mode
func Run(cfg *RuntimeConfig) error {
	log := logging.Logger

	log.Info().
		Str("db_path", cfg.DBPath).
		Int("mcp_port", cfg.MCPPort).
		Bool("no_sync", cfg.NoSync).
		Dur("sync_interval", cfg.SyncInterval).
		Dur("token_refresh_interval", cfg.TokenRefreshInterval).
		Msg("starting runlog")

	// Set up context for shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	log.Info().Str("path", cfg.DBPath).Msg("opening database")
	sqlDB, err := db.Open(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	// Check for database lock (another instance running)
	if err := checkDatabaseLock(sqlDB); err != nil {
		return err
	}

	queries := db.New(sqlDB)

	// Log database statistics
	workers.LogDatabaseStats(ctx, queries)

	// Start background workers with errgroup for graceful shutdown
	g, gCtx := errgroup.WithContext(ctx)

	if !cfg.NoSync {
		storage := auth.NewStorage(queries)

		// Check and handle authentication
		if err := ensureAuthenticated(ctx, storage, cfg); err != nil {
			return fmt.Errorf("authentication: %w", err)
		}

		// Use default retry config (rate limiting is handled by waiting for window resets)
		clients := workers.StravaClientFactory(strava.DefaultRetryConfig())
		activitySyncer := workers.NewActivitySyncer(queries, storage, clients, cfg.SyncInterval)

		// Perform initial sync
		if _, err := activitySyncer.SyncNow(ctx); err != nil {
			log.Warn().Err(err).Msg("initial sync failed")
			// Continue anyway - background worker will retry
		}

		// Log database statistics after initial sync
		workers.LogDatabaseStats(ctx, queries)

		log.Info().Msg("starting background workers")

		tokenRefresher := workers.NewTokenRefresher(storage, cfg.TokenRefreshInterval)
		g.Go(func() error {
			tokenRefresher.Run(gCtx)
			return nil
		})

		g.Go(func() error {
			activitySyncer.Run(gCtx)
			return nil
		})
	} else {
		log.Info().Msg("running in offline mode (--no-sync), skipping Strava API sync")
	}

	srv := server.New(queries, serverOptions(cfg.Config))

	var serverErr error
	if cfg.MCPPort > 0 {
		serverErr = runHTTPServer(ctx, srv.MCPServer(), cfg.MCPPort)
	} else {
		log.Info().Msg("MCP server running via stdio")
		serverErr = srv.Run(ctx)
	}

	// Stop the workers once the server is gone, e.g. when the stdio client disconnects
	cancel()

	if !cfg.NoSync {
		log.Info().Msg("waiting for workers to shut down")
		if err := g.Wait(); err != nil {
			log.Warn().Err(err).Msg("worker error during shutdown")
		} else {
			log.Info().Msg("all workers shut down gracefully")
		}
	}

	return serverErr
}

// serverOptions maps planner config onto the MCP server defaults
func serverOptions(c *config.Config) server.Options {
	opts := server.DefaultOptions()
	if c == nil {
		return opts
	}
	opts.DistanceGain = c.Planner.WeeklyDistanceGain
	opts.WeeksProjected = c.Planner.WeeksProjected
	opts.ActivityTypes = c.Planner.ActivityTypes
	opts.IncludeDaily = c.Planner.IncludeDaily
	opts.RollingWeek = c.Planner.RollingWeek
	return opts
}

// ensureAuthenticated checks if we have valid auth tokens, and if not, runs the OAuth flow
func ensureAuthenticated(ctx context.Context, storage *auth.Storage, cfg *RuntimeConfig) error {
	log := logging.Logger

	// If force reauth is requested, clear existing tokens and credentials, then re-prompt
	if cfg.ForceReauth {
		log.Info().Msg("force re-authentication requested, clearing existing credentials and tokens")
		if err := storage.DeleteTokens(ctx); err != nil {
			log.Debug().Err(err).Msg("failed to delete existing auth config (may not exist)")
		}
	}

	clientConfig, err := clientCredentials(ctx, storage, cfg)
	if err != nil {
		return err
	}

	// Try to get existing valid token (only if not force reauth)
	if !cfg.ForceReauth {
		_, err := storage.GetValidAccessToken(ctx)
		if err == nil {
			log.Info().Msg("using existing authentication")
			return nil
		}

		if errors.Is(err, auth.ErrRefreshFailed) {
			log.Warn().Err(err).Msg("token refresh failed, re-authentication required")
			fmt.Println("\n=== Token Refresh Failed ===")
			fmt.Println("Your Strava authentication has expired or been revoked.")
			fmt.Println("Re-authentication is required.")
		} else {
			log.Info().Msg("no valid authentication found, starting OAuth flow")
		}
	}

	return runOAuthFlow(ctx, storage, clientConfig)
}

// clientCredentials resolves the Strava API credentials from config, the
// database or an interactive prompt, in that order
func clientCredentials(ctx context.Context, storage *auth.Storage, cfg *RuntimeConfig) (*auth.ClientConfig, error) {
	if cfg.Config != nil && cfg.Config.HasStravaCredentials() {
		logging.Logger.Debug().Msg("using Strava credentials from configuration")
		return &auth.ClientConfig{
			ClientID:     cfg.Config.Strava.ClientID,
			ClientSecret: cfg.Config.Strava.ClientSecret,
		}, nil
	}

	if !cfg.ForceReauth {
		if stored, err := storage.LoadClientConfig(ctx); err == nil {
			return stored, nil
		}
	}

	clientConfig, err := promptForCredentials()
	if err != nil {
		return nil, fmt.Errorf("getting credentials: %w", err)
	}
	if err := storage.SaveClientConfig(ctx, clientConfig.ClientID, clientConfig.ClientSecret); err != nil {
		return nil, fmt.Errorf("saving credentials: %w", err)
	}
	return clientConfig, nil
}

// promptForCredentials prompts the user to enter their Strava API credentials
func promptForCredentials() (*auth.ClientConfig, error) {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("\n=== Strava API Credentials Required ===")
	fmt.Println("Get your API credentials from: https://www.strava.com/settings/api")
	fmt.Println()

	fmt.Print("Enter your Client ID: ")
	clientID, err := reader.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("reading client ID: %w", err)
	}
	clientID = strings.TrimSpace(clientID)

	if clientID == "" {
		return nil, fmt.Errorf("client ID is required")
	}

	fmt.Print("Enter your Client Secret: ")
	clientSecret, err := reader.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("reading client secret: %w", err)
	}
	clientSecret = strings.TrimSpace(clientSecret)

	if clientSecret == "" {
		return nil, fmt.Errorf("client secret is required")
	}

	return &auth.ClientConfig{
		ClientID:     clientID,
		ClientSecret: clientSecret,
	}, nil
}

// runOAuthFlow performs the OAuth authentication flow with Strava
func runOAuthFlow(ctx context.Context, storage *auth.Storage, clientConfig *auth.ClientConfig) error {
	log := logging.Logger

	fmt.Println("\n=== Strava Authentication Required ===")
	fmt.Println("A browser window will open for you to authorize this application.")
	fmt.Println("Press Enter to continue...")

	reader := bufio.NewReader(os.Stdin)
	reader.ReadString('\n')

	tokens, err := auth.NewOAuth(clientConfig.ClientID, clientConfig.ClientSecret).Authenticate(ctx)
	if err != nil {
		return fmt.Errorf("OAuth flow failed: %w", err)
	}

	log.Info().
		Str("expires_at", time.Unix(tokens.ExpiresAt, 0).Format(time.RFC3339)).
		Msg("OAuth authentication successful")

	// Save tokens with client config
	if err := storage.SaveFullConfig(ctx, clientConfig.ClientID, clientConfig.ClientSecret, tokens); err != nil {
		return fmt.Errorf("saving tokens: %w", err)
	}

	fmt.Printf("\nAuthentication successful! Token expires: %s\n\n",
		time.Unix(tokens.ExpiresAt, 0).Format(time.RFC1123))

	return nil
}

// runHTTPServer runs the MCP server over HTTP/SSE
func runHTTPServer(ctx context.Context, mcpServer *mcp.Server, port int) error {
	log := logging.Logger

	handler := mcp.NewSSEHandler(func(r *http.Request) *mcp.Server {
		return mcpServer
	}, nil)

	addr := fmt.Sprintf(":%d", port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info().
			Str("address", addr).
			Str("endpoint", fmt.Sprintf("http://localhost%s", addr)).
			Msg("MCP server running via HTTP/SSE")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down HTTP server")
		return httpServer.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

// checkDatabaseLock verifies no other process has the database locked
func checkDatabaseLock(sqlDB *sql.DB) error {
	log := logging.Logger

	// BEGIN IMMEDIATE takes the write lock and fails if another writer holds it
	_, err := sqlDB.Exec("BEGIN IMMEDIATE")
	if err != nil {
		if strings.Contains(err.Error(), "locked") || strings.Contains(err.Error(), "busy") {
			return fmt.Errorf("another instance is already running (database is locked)")
		}
		return fmt.Errorf("checking database lock: %w", err)
	}

	_, err = sqlDB.Exec("COMMIT")
	if err != nil {
		return fmt.Errorf("releasing lock check: %w", err)
	}

	log.Debug().Msg("database lock check passed")
	return nil
}
