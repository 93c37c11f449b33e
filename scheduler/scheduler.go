package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"proplens/config"
	"proplens/models"
	"proplens/scraper"
	"proplens/storage"
)

// Scheduler re-runs the configured saved searches on a cron schedule
// or a fixed interval and pushes each run's results through the
// persistence collaborators.
type Scheduler struct {
	cfg      *config.Config
	ctrl     *scraper.Controller
	pg       *storage.PostgresStore
	journal  *storage.SQLiteStore
	archiver *storage.SnapshotArchiver
	cron     *cron.Cron
	ticker   *time.Ticker
	stopCh   chan struct{}
	log      *slog.Logger
}

func New(cfg *config.Config, ctrl *scraper.Controller, pg *storage.PostgresStore, journal *storage.SQLiteStore, archiver *storage.SnapshotArchiver) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		ctrl:     ctrl,
		pg:       pg,
		journal:  journal,
		archiver: archiver,
		cron:     cron.New(),
		stopCh:   make(chan struct{}),
		log:      slog.With("component", "scheduler"),
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	if s.cfg.Scheduler.Cron != "" {
		s.log.Info("starting scheduler", "cron", s.cfg.Scheduler.Cron)
		_, err := s.cron.AddFunc(s.cfg.Scheduler.Cron, func() {
			s.RunAll(ctx)
		})
		if err != nil {
			return fmt.Errorf("invalid cron expression: %w", err)
		}
		s.cron.Start()
		return nil
	}

	if s.cfg.Scheduler.Interval > 0 {
		s.log.Info("starting scheduler", "interval", s.cfg.Scheduler.Interval)
		s.ticker = time.NewTicker(s.cfg.Scheduler.Interval)
		go func() {
			for {
				select {
				case <-s.ticker.C:
					s.RunAll(ctx)
				case <-s.stopCh:
					return
				case <-ctx.Done():
					return
				}
			}
		}()
		return nil
	}

	s.log.Info("no schedule configured, daemon is idle until stopped")
	return nil
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.stopCh)
}

// RunAll executes every saved search; one failing run does not stop
// the others.
func (s *Scheduler) RunAll(ctx context.Context) {
	for _, search := range s.cfg.Searches {
		if err := s.RunSearch(ctx, search); err != nil {
			s.log.Error("saved search failed", "search", search.Name, "error", err)
		}
	}
}

// RunSearch executes one saved search end to end: controller fan-out,
// optional detail enrichment, persistence, journaling and snapshot
// archival.
func (s *Scheduler) RunSearch(ctx context.Context, search config.SavedSearch) error {
	sessionID := uuid.New()
	run := &models.SearchRun{
		SessionID:  sessionID,
		SearchName: search.Name,
		Location:   search.Location,
		StartedAt:  time.Now().UTC(),
		Status:     models.RunStatusRunning,
	}

	runID, err := s.journal.CreateRun(run)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	run.ID = runID

	s.log.Info("running saved search", "search", search.Name, "session", sessionID)

	listings := s.ctrl.Search(ctx, criteriaFrom(search), search.MaxResults)
	run.ListingsFound = len(listings)

	s.enrichDetails(ctx, listings)

	status := models.RunStatusCompleted
	if s.pg != nil {
		if err := s.pg.SaveListings(ctx, sessionID, listings); err != nil {
			s.journal.LogEvent(&run.ID, models.LogLevelError, fmt.Sprintf("persist failed: %v", err), "")
			status = models.RunStatusFailed
		}
	}

	if s.archiver != nil && len(listings) > 0 {
		key, err := s.archiver.ArchiveRun(ctx, sessionID, listings)
		if err != nil {
			s.journal.LogEvent(&run.ID, models.LogLevelWarn, fmt.Sprintf("snapshot failed: %v", err), "")
		} else {
			run.SnapshotKey = key
		}
	}

	now := time.Now().UTC()
	run.FinishedAt = &now
	run.Status = status
	if err := s.journal.UpdateRun(run); err != nil {
		s.log.Warn("failed to update run record", "run", run.ID, "error", err)
	}

	s.log.Info("saved search finished", "search", search.Name,
		"listings", run.ListingsFound, "status", status)
	return nil
}

// enrichDetails upgrades the cheapest few results to full detail
// records when configured. Absent details leave the search result
// untouched.
func (s *Scheduler) enrichDetails(ctx context.Context, listings []models.Listing) {
	limit := s.cfg.DetailFetchLimit
	if limit <= 0 {
		return
	}
	if limit > len(listings) {
		limit = len(listings)
	}

	for i := 0; i < limit; i++ {
		detailed := s.ctrl.GetListingDetails(ctx, listings[i].ID, listings[i].Source)
		if detailed != nil {
			listings[i] = *detailed
		}
	}
}

func criteriaFrom(search config.SavedSearch) models.Criteria {
	criteria := models.Criteria{
		Location:     search.Location,
		PropertyType: search.PropertyType,
	}
	if search.PriceMin > 0 {
		v := search.PriceMin
		criteria.PriceMin = &v
	}
	if search.PriceMax > 0 {
		v := search.PriceMax
		criteria.PriceMax = &v
	}
	if search.BedroomsMin > 0 {
		v := search.BedroomsMin
		criteria.BedroomsMin = &v
	}
	if search.BedroomsMax > 0 {
		v := search.BedroomsMax
		criteria.BedroomsMax = &v
	}
	return criteria
}
