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

	"bskyrss/app/bsky"
	"bskyrss/app/cfg"
	"bskyrss/app/config"
	"bskyrss/app/database"
	"bskyrss/app/feed"
	"bskyrss/app/image"
	"bskyrss/app/publisher"
	"bskyrss/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	setupLogging(appCfg.Debug)

	if err := run(appCfg); err != nil {
		slog.Error("Fatal error", "error", err)
		os.Exit(1)
	}
}

// run holds the daemon lifecycle so deferred cleanup executes on every
// exit path; main only translates its error into the process exit code.
func run(appCfg *cfg.Cfg) error {
	slog.Info("Starting Bluesky RSS bot", "version", appCfg.Version, "feed", appCfg.FeedURL)

	opts, err := config.NewLoader(appCfg.OptionsFile).Load()
	if err != nil {
		return fmt.Errorf("failed to load options: %w", err)
	}

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database %s: %w", appCfg.DBPath, err)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "migration_version", version, "dirty", dirty)

	postRepo := database.NewPostRepository(db)
	if count, err := postRepo.GetPostCount(); err == nil {
		slog.Info("Loaded post history", "recorded_posts", count)
	}

	httpClient := &http.Client{Timeout: 60 * time.Second}

	client := bsky.NewClient(httpClient, appCfg.ServiceURL, appCfg.UserAgent)

	loginCtx, cancelLogin := context.WithTimeout(context.Background(), 5*time.Minute)
	err = client.Login(loginCtx, appCfg.Identifier, appCfg.Password,
		opts.MaxLoginRetries, time.Duration(opts.InitialRetryDelay)*time.Second)
	cancelLogin()
	if err != nil {
		return fmt.Errorf("failed to log in to Bluesky: %w", err)
	}

	intake := feed.NewIntake(httpClient, postRepo, appCfg.FeedURL, appCfg.UserAgent, opts.MinPostDateParsed)
	resolver := image.NewResolver(httpClient, appCfg.UserAgent, opts.MaxImageKB)
	detector := publisher.NewDetector(postRepo, client, opts.DuplicateDetection, opts.PostsToCheck)
	pipeline := publisher.NewPipeline(detector, resolver, client, postRepo, opts)

	scheduler := tasks.NewScheduler(intake, pipeline, time.Duration(opts.CheckInterval)*time.Second)
	scheduler.Start()
	slog.Info("Scheduler started", "check_interval_seconds", opts.CheckInterval)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	sig := <-sigChan
	slog.Info("Received signal, shutting down", "signal", sig.String())

	scheduler.Stop()
	slog.Info("Shutdown complete")
	return nil
}

func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
