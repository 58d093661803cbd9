package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cticu/cticu-schedule/cmd/cli/commands"
	"github.com/cticu/cticu-schedule/internal/config"
	"github.com/cticu/cticu-schedule/pkg/cache"
	"github.com/cticu/cticu-schedule/pkg/clients/apiclient"
	"github.com/cticu/cticu-schedule/pkg/core/session"
	"github.com/cticu/cticu-schedule/pkg/postgres"
	"github.com/cticu/cticu-schedule/pkg/utils/logging"
)

var (
	env     string
	app     = &commands.AppContext{}
	closers []func()
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "cticu",
		Short:         "CTICU schedule - shifts, swaps and days off from the terminal",
		Long:          `A CLI client for the CTICU scheduling service: view the schedule, request and review shift swaps, and manage unavailability. Data stays readable offline from the local cache.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			shutdown()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (selects cticu_config.<env>.yaml and stored credentials)")

	rootCmd.AddCommand(commands.LoginCmd(app))
	rootCmd.AddCommand(commands.LogoutCmd(app))
	rootCmd.AddCommand(commands.WhoamiCmd(app))
	rootCmd.AddCommand(commands.ChangePasswordCmd(app))
	rootCmd.AddCommand(commands.DoctorsCmd(app))
	rootCmd.AddCommand(commands.ScheduleCmd(app))
	rootCmd.AddCommand(commands.HolidaysCmd(app))
	rootCmd.AddCommand(commands.EventsCmd(app))
	rootCmd.AddCommand(commands.UnavailabilityCmd(app))
	rootCmd.AddCommand(commands.SwapsCmd(app))
	rootCmd.AddCommand(commands.BadgesCmd(app))
	rootCmd.AddCommand(commands.SwingCmd(app))
	rootCmd.AddCommand(commands.CacheCmd(app))
	rootCmd.AddCommand(commands.WatchCmd(app))
	rootCmd.AddCommand(commands.InteractiveCmd(app))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		shutdown()
		os.Exit(1)
	}
}

// initApp sets up config, logger, API client, cache and the stored session
func initApp() error {
	var err error
	app.Ctx = context.Background()
	app.Env = env

	// Load configuration
	app.Cfg, err = config.LoadWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logName := env
	if logName == "" {
		logName = "default"
	}
	app.Logger, err = logging.InitLogger(logName, app.Cfg.LogDir)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	app.Logger.Info("Starting application", zap.String("environment", logName))

	// Initialize API client
	store, err := apiclient.DefaultTokenStore(env)
	if err != nil {
		return fmt.Errorf("failed to locate credential store: %w", err)
	}
	app.Client = apiclient.New(apiclient.Options{
		BaseURL:            app.Cfg.APIBaseURL,
		Timeout:            app.Cfg.RequestTimeout,
		RateLimitPerSecond: app.Cfg.RateLimitPerSecond,
		RateLimitBurst:     app.Cfg.RateLimitBurst,
		Store:              store,
		Logger:             app.Logger,
	})
	app.Logger.Debug("API client initialized", zap.String("base_url", app.Cfg.APIBaseURL))

	// Initialize cache
	cacheStore, err := openCacheStore()
	if err != nil {
		return err
	}
	app.Fetcher = cache.NewFetcher(cacheStore, app.Client, cache.DefaultRegistry(), app.Cfg.CacheDuration, app.Logger)

	// Resume the stored session, if any
	app.Session, err = session.Start(app.Client, app.Logger)
	if err != nil && !errors.Is(err, session.ErrNoSession) {
		return fmt.Errorf("failed to resume session: %w", err)
	}

	return nil
}

func openCacheStore() (cache.Store, error) {
	switch app.Cfg.CacheBackend {
	case config.CacheBackendPostgres:
		app.Logger.Info("Connecting to cache database")
		db, err := postgres.Open(app.Ctx, app.Cfg.DatabaseURL, app.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open cache database: %w", err)
		}
		closers = append(closers, db.Close)
		return db, nil
	default:
		dir, err := app.Cfg.ResolveCacheDir(env)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve cache directory: %w", err)
		}
		fs, err := cache.NewFileStore(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to open cache directory: %w", err)
		}
		app.Logger.Debug("Using file cache", zap.String("dir", dir))
		return fs, nil
	}
}

// shutdown lets background badge refreshes finish before resources are released
func shutdown() {
	if app.Session != nil {
		app.Session.Wait()
	}
	for _, closeFn := range closers {
		closeFn()
	}
	closers = nil
	if app.Logger != nil {
		_ = app.Logger.Sync()
	}
}
