package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ebelokrylov/ytracker-tui/internal/config"
	"github.com/ebelokrylov/ytracker-tui/internal/events"
	"github.com/ebelokrylov/ytracker-tui/internal/logger"
	"github.com/ebelokrylov/ytracker-tui/internal/store"
	"github.com/ebelokrylov/ytracker-tui/internal/timer"
	"github.com/ebelokrylov/ytracker-tui/internal/trackerapi"
	"github.com/ebelokrylov/ytracker-tui/internal/tui"
)

func main() {
	// Handle --version flag
	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-v") {
		fmt.Println(VersionInfo())
		os.Exit(0)
	}

	// Load configuration from environment and config file
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		fmt.Fprintf(os.Stderr, "Please set the %s environment variable.\n", config.TokenEnv)
		os.Exit(1)
	}

	// Initialize logger
	logLevel := parseLogLevel(cfg.LogLevel)
	if err := logger.Init(cfg.LogFile, logLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	logger.Info("Application starting")
	logger.Debug("Configuration: Endpoint=%s, PageSize=%d, CacheTTL=%s",
		cfg.Endpoint, cfg.PageSize, cfg.CacheTTL)

	// Create Tracker API client
	apiClient := trackerapi.NewClient(trackerapi.ClientConfig{
		Token:        cfg.Token,
		OrgID:        cfg.OrgID,
		CloudOrg:     cfg.OrgType == config.OrgTypeCloud,
		Endpoint:     cfg.Endpoint,
		Timeout:      cfg.Timeout,
		WorkdayHours: cfg.WorkdayHours,
		Cooldown:     cfg.RequestCooldown,
	})

	// Wire the push-event feed, the work timer and the data store
	bus := events.NewBus()
	defer bus.Close()

	workTimer := timer.New(events.TimerNotifier{Bus: bus})
	timerCtx, stopTimer := context.WithCancel(context.Background())
	defer stopTimer()
	go workTimer.Run(timerCtx)

	dataStore := store.New(apiClient, store.Options{TTL: cfg.CacheTTL})
	timerSync := store.NewTimerSync(workTimer, bus)
	defer timerSync.Close()

	// Create and run the tview application
	app := tui.NewApp(dataStore, timerSync, bus, cfg)

	if err := app.Run(); err != nil {
		logger.ErrorWithErr(err, "Application error")
		fmt.Fprintf(os.Stderr, "Error running application: %v\n", err)
		os.Exit(1)
	}

	logger.Info("Application shutdown")
}

// parseLogLevel converts a string log level to a logger.LogLevel.
func parseLogLevel(level string) logger.LogLevel {
	switch level {
	case "debug":
		return logger.LevelDebug
	case "info":
		return logger.LevelInfo
	case "warning":
		return logger.LevelWarning
	case "error":
		return logger.LevelError
	default:
		return logger.LevelWarning
	}
}
