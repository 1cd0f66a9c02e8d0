package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/calvales/co2scope/internal/core/usecases"
	"github.com/calvales/co2scope/internal/pkg/metrics"
)

// Scheduler periodically refreshes the granule catalog so gauges and
// readiness reflect files dropped into the data directory after startup.
type Scheduler struct {
	scheduler *gocron.Scheduler
	catalog   *usecases.CatalogService
	interval  time.Duration
}

// New creates a new Scheduler.
func New(catalog *usecases.CatalogService, interval time.Duration) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		catalog:   catalog,
		interval:  interval,
	}
}

// Start schedules the periodic refresh and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 15
	}

	_, err := s.scheduler.Every(minutes).Minutes().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		s.RunOnce(ctx)
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// RunOnce refreshes the catalog immediately and publishes the aggregate as
// gauges. Also called at startup so readiness does not wait a full interval.
func (s *Scheduler) RunOnce(ctx context.Context) {
	start := time.Now()
	stats, err := s.catalog.Refresh(ctx)
	metrics.CatalogRefreshDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.CatalogRefreshErrors.Inc()
		slog.Error("catalog refresh failed", "error", err)
		return
	}

	metrics.CatalogGranules.Set(float64(stats.Granules))
	metrics.CatalogSoundings.Set(float64(stats.Soundings))
	metrics.CatalogSizeBytes.Set(float64(stats.SizeBytes))
	metrics.CatalogFootprintGranules.Set(float64(stats.FootprintGranules))
	metrics.CatalogLastRefresh.Set(float64(stats.LastRefresh.Unix()))

	slog.Info("catalog refreshed",
		"granules", stats.Granules,
		"soundings", stats.Soundings,
		"size_bytes", stats.SizeBytes,
		"duration", time.Since(start))
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
