package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/magnusk/deal-scout/app/alert"
	"github.com/magnusk/deal-scout/app/api"
	"github.com/magnusk/deal-scout/app/cfg"
	"github.com/magnusk/deal-scout/app/database"
	"github.com/magnusk/deal-scout/app/fetcher"
	"github.com/magnusk/deal-scout/app/marketplace"
	"github.com/magnusk/deal-scout/app/search"
	"github.com/magnusk/deal-scout/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting Deal Scout", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.RunMigrations(db); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath)

	registry := marketplace.DefaultRegistry()

	configCache := search.NewConfigCache(appCfg.SearchesDir, registry.Names())
	if err := configCache.Run(); err != nil {
		slog.Error("Failed to load search configurations", "dir", appCfg.SearchesDir, "error", err)
		os.Exit(1)
	}
	slog.Info("Search configurations loaded", "count", configCache.GetConfigCount())

	searchRepo := database.NewSearchRepository(db)
	listingRepo := database.NewListingRepository(db)
	alertRepo := database.NewAlertRepository(db)
	taskLogRepo := database.NewTaskLogRepository(db)

	staticFetcher := fetcher.NewClient(fetcher.Options{
		Timeout:    time.Duration(appCfg.FetchTimeout) * time.Second,
		MaxRetries: appCfg.FetchMaxRetries,
		Delay:      time.Duration(appCfg.FetchDelay) * time.Second,
		UserAgent:  appCfg.UserAgent,
	})
	renderedFetcher := fetcher.NewBrowser(fetcher.BrowserOptions{
		DevtoolsURL: appCfg.DevtoolsURL,
		Timeout:     time.Duration(appCfg.FetchTimeout) * time.Second,
		UserAgent:   appCfg.UserAgent,
		SnapshotDir: appCfg.SnapshotDir,
	})

	dispatcher := alert.NewDispatcher(alertRepo, alert.NewLogNotifier())

	scheduler := tasks.NewScheduler(configCache, registry, staticFetcher, renderedFetcher,
		searchRepo, listingRepo, alertRepo, taskLogRepo, dispatcher,
		tasks.SchedulerOptions{
			Interval:           time.Duration(appCfg.SchedulerInterval) * time.Second,
			WorkerCount:        appCfg.WorkerCount,
			RunBudget:          time.Duration(appCfg.RunBudget) * time.Minute,
			RetentionDays:      appCfg.RetentionDays,
			RetentionKeepSaved: appCfg.RetentionKeepSaved,
		})

	slog.Info("Starting background scheduler", "workers", appCfg.WorkerCount)
	scheduler.Start()
	defer scheduler.Stop()

	apiHandler := api.NewHandler(configCache, searchRepo, listingRepo, taskLogRepo,
		scheduler, appCfg.Version)
	server := api.NewServer(apiHandler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}
