package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"shipdesk/db"
	"shipdesk/internal/account"
	"shipdesk/internal/auth"
	"shipdesk/internal/carrier"
	"shipdesk/internal/config"
	"shipdesk/internal/eventlog"
	"shipdesk/internal/location"
	"shipdesk/internal/logger"
	"shipdesk/internal/session"
	"shipdesk/internal/settings"
	"shipdesk/internal/shipping"
	"shipdesk/internal/web"
	"shipdesk/middleware"
	"shipdesk/models"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "shipdesk",
		Short:        "Operator console for the carrier shipping API",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the console HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "policy",
		Short: "Print the effective location policy as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			policy := config.DefaultLocationPolicy()
			if path := os.Getenv("LOCATION_POLICY_FILE"); path != "" {
				var err error
				if policy, err = config.LoadLocationPolicy(path); err != nil {
					return err
				}
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(policy)
		},
	})

	return root
}

func serve() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := logger.Init(cfg.LogLevel); err != nil {
		return err
	}
	defer logger.Sync()
	log := logger.GetLogger("main")

	log.Infof("Starting shipdesk - Process ID: %d", os.Getpid())
	log.Infof("Runtime: %s/%s, Go version: %s", runtime.GOOS, runtime.GOARCH, runtime.Version())

	sqliteDB, err := db.ConnectToSQLite(cfg.SQLitePath)
	if err != nil {
		return err
	}
	defer sqliteDB.Close()

	if err := db.InitializeSchema(sqliteDB); err != nil {
		return fmt.Errorf("failed to initialize database schema: %w", err)
	}

	repoFactory := db.NewRepositoryFactory(sqliteDB)
	eventLogRepo := repoFactory.NewEventLogRepository()
	accountRepo := repoFactory.NewAccountRepository()
	settingsRepo := repoFactory.NewSettingsRepository()
	snapshotRepo := repoFactory.NewLocationSnapshotRepository()

	dbManager := db.NewDBManager()

	eventLogService := eventlog.NewEventLogService(eventLogRepo, dbManager)
	accountService := account.NewAccountService(accountRepo, dbManager)
	settingsService := settings.NewSettingsService(settingsRepo, dbManager, accountService)
	shippingService := shipping.NewShippingService(eventLogService, shipping.PreferenceDefaults{
		Lookup: settingsService.GetUserSettings,
	})

	cache := location.NewCache(location.OptionsFromPolicy(cfg.Location))
	warmLocationCache(cache, snapshotRepo)

	carrierClient := carrier.NewClient(cfg.CarrierAPIURL, cfg.CarrierAPITimeout)
	sessions := session.NewManager(carrierClient, cache, location.PolicyFromConfig(cfg.Location))
	sessions.OnLocationResolved(func(s *session.Session, picker string, sel location.Selection) {
		eventLogService.Record(s.Username, models.LocationResolved, describeSelection(picker, sel))
	})

	authHandlers := auth.NewAuthHandlers(cfg, carrierClient, sessions, auth.NewCookieStore(cfg.SessionSecret), eventLogService)

	locationHandlers := location.NewLocationHandlers(cache, func(r *http.Request) (location.PickerHost, bool) {
		s := session.FromContext(r.Context())
		if s == nil {
			return nil, false
		}
		return s, true
	})
	locationHandlers.OnCacheCleared = func(r *http.Request, scope string) {
		if s := session.FromContext(r.Context()); s != nil {
			eventLogService.Record(s.Username, models.LocationCacheCleared, scope)
		}
	}

	handlers := &web.Handlers{
		Auth:       authHandlers,
		Middleware: middleware.NewMiddleware(authHandlers, eventLogService),
		Locations:  locationHandlers,
		Accounts:   account.NewAccountHandlers(accountService, eventLogService),
		Settings:   settings.NewSettingsHandlers(settingsService, eventLogService),
		Shipping:   shipping.NewShippingHandlers(shippingService),
		EventLogs:  eventlog.NewEventLogHandlers(eventLogService),

		AllowedOrigins: cfg.AllowedOrigins,
	}

	done := make(chan bool)
	maintenanceStopped := make(chan struct{})
	go func() {
		defer close(maintenanceStopped)
		runMaintenance(&maintenance{
			cache:        cache,
			sessions:     sessions,
			snapshots:    snapshotRepo,
			dbManager:    dbManager,
			events:       eventLogService,
			pruneEvery:   cfg.Location.PruneInterval,
			idleTimeout:  cfg.SessionIdleTimeout,
			persistEvery: 10 * time.Minute,
		}, done)
	}()

	server := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           handlers.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infof("Server is starting on port %s...", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	err = waitForShutdown(serverErr)

	close(done)
	<-maintenanceStopped

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if shutdownErr := server.Shutdown(ctx); shutdownErr != nil {
		log.Errorf("Server shutdown error: %v", shutdownErr)
	}

	persistLocationCache(cache, snapshotRepo, dbManager)
	dbManager.Stop()
	log.Info("Shutdown complete")
	return err
}

// waitForShutdown blocks until a termination signal arrives or the server fails.
func waitForShutdown(serverErr <-chan error) error {
	log := logger.GetLogger("main")
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case sig := <-stop:
		log.Infof("Received %s, shutting down", sig)
		return nil
	case err, ok := <-serverErr:
		if !ok || err == nil {
			return nil
		}
		log.Errorf("Server failed: %v", err)
		return err
	}
}

func describeSelection(picker string, sel location.Selection) string {
	parts := []string{sel.CountryCode}
	for _, p := range []string{sel.StateCode, sel.City, sel.ServiceAreaCode, sel.PostalCode} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return picker + ": " + strings.Join(parts, " / ")
}
