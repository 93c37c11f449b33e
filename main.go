package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"proplens/config"
	"proplens/logging"
	"proplens/models"
	"proplens/scheduler"
	"proplens/scraper"
	"proplens/storage"
)

func main() {
	searchLocation := flag.String("search", "", "run a one-off search for this location and print the results as JSON")
	priceMin := flag.Float64("min", 0, "minimum price for the one-off search")
	priceMax := flag.Float64("max", 0, "maximum price for the one-off search")
	bedsMin := flag.Int("beds", 0, "minimum bedrooms for the one-off search")
	propertyType := flag.String("type", "", "property type for the one-off search (houses, flats, bungalows)")
	maxResults := flag.Int("limit", 0, "cap on one-off search results")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logWriter, err := logging.Setup(cfg.LogLevel, cfg.LogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}
	if logWriter != nil {
		defer logWriter.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctrl, err := buildController(ctx, cfg)
	if err != nil {
		slog.Error("failed to build controller", "error", err)
		os.Exit(1)
	}
	defer ctrl.Cleanup()

	if *searchLocation != "" {
		criteria := models.Criteria{
			Location:     *searchLocation,
			PropertyType: *propertyType,
		}
		if *priceMin > 0 {
			criteria.PriceMin = priceMin
		}
		if *priceMax > 0 {
			criteria.PriceMax = priceMax
		}
		if *bedsMin > 0 {
			criteria.BedroomsMin = bedsMin
		}
		runOnce(ctx, ctrl, criteria, *maxResults)
		return
	}

	runDaemon(ctx, cancel, cfg, ctrl)
}

// buildController assembles one adapter per configured provider and
// initializes them concurrently. Providers that fail to initialize are
// logged and sidelined; the controller runs with whatever survived.
func buildController(ctx context.Context, cfg *config.Config) (*scraper.Controller, error) {
	var scrapers []scraper.Scraper
	for id, provider := range cfg.Providers {
		s, err := scraper.New(provider)
		if err != nil {
			slog.Warn("skipping provider", "provider", id, "error", err)
			continue
		}
		scrapers = append(scrapers, s)
	}
	if len(scrapers) == 0 {
		return nil, fmt.Errorf("no usable providers configured")
	}

	ctrl := scraper.NewController(scrapers...)
	ctrl.Initialize(ctx)
	return ctrl, nil
}

// runOnce executes a single search and prints the merged result set as
// JSON projections on stdout.
func runOnce(ctx context.Context, ctrl *scraper.Controller, criteria models.Criteria, maxResults int) {
	listings := ctrl.Search(ctx, criteria, maxResults)

	projections := make([]map[string]any, 0, len(listings))
	for i := range listings {
		projections = append(projections, listings[i].ToMap())
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(projections); err != nil {
		slog.Error("failed to encode results", "error", err)
		os.Exit(1)
	}
	slog.Info("search finished", "listings", len(listings))
}

func runDaemon(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, ctrl *scraper.Controller) {
	journal, err := storage.NewSQLiteStore(cfg.SQLitePath)
	if err != nil {
		slog.Error("failed to open run journal", "path", cfg.SQLitePath, "error", err)
		os.Exit(1)
	}
	defer journal.Close()

	var pg *storage.PostgresStore
	if cfg.DatabaseURL != "" {
		pg, err = storage.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
	} else {
		slog.Warn("DATABASE_URL not set, listings will not be persisted")
	}

	var archiver *storage.SnapshotArchiver
	if cfg.Snapshots.Enabled() {
		archiver, err = storage.NewSnapshotArchiver(ctx, storage.S3Config{
			Bucket:          cfg.Snapshots.Bucket,
			Region:          cfg.Snapshots.Region,
			Endpoint:        cfg.Snapshots.Endpoint,
			AccessKeyID:     cfg.Snapshots.AccessKeyID,
			SecretAccessKey: cfg.Snapshots.SecretAccessKey,
		})
		if err != nil {
			slog.Error("failed to build snapshot archiver", "error", err)
			os.Exit(1)
		}
	}

	sched := scheduler.New(cfg, ctrl, pg, journal, archiver)
	if err := sched.Start(ctx); err != nil {
		slog.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	// Run the saved searches once immediately so a fresh deploy does
	// not wait for the first tick.
	if len(cfg.Searches) > 0 {
		go sched.RunAll(ctx)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("shutting down", "signal", sig)
	cancel()
}
