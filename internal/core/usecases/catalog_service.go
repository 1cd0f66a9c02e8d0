package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/calvales/co2scope/internal/core/domain"
	"github.com/calvales/co2scope/internal/core/ports"
)

// CatalogService reports what the granule collection currently contains.
// Listings walk the directory live; only the refresh timestamp is kept in
// memory, guarded for the scheduler goroutine.
type CatalogService struct {
	granules ports.GranuleSource
	clock    clockwork.Clock

	mu          sync.RWMutex
	lastRefresh time.Time
}

func NewCatalogService(granules ports.GranuleSource, clock clockwork.Clock) *CatalogService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &CatalogService{granules: granules, clock: clock}
}

// Granules stats every granule in the collection. A granule that cannot
// be statted is logged and left out rather than failing the listing.
func (s *CatalogService) Granules(ctx context.Context) ([]domain.GranuleInfo, error) {
	paths, err := s.granules.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list granules: %w", err)
	}

	infos := make([]domain.GranuleInfo, 0, len(paths))
	for _, path := range paths {
		info, err := s.granules.Stat(ctx, path)
		if err != nil {
			slog.Warn("granule left out of catalog", "granule", path, "error", err)
			continue
		}
		infos = append(infos, *info)
	}
	return infos, nil
}

// Stats aggregates the catalog. LastRefresh is the time of the most
// recent Refresh, zero if none has run yet.
func (s *CatalogService) Stats(ctx context.Context) (*domain.CatalogStats, error) {
	infos, err := s.Granules(ctx)
	if err != nil {
		return nil, err
	}

	stats := &domain.CatalogStats{Granules: len(infos), LastRefresh: s.LastRefresh()}
	for _, info := range infos {
		stats.Soundings += int64(info.Soundings)
		stats.SizeBytes += info.SizeBytes
		if info.HasFootprints {
			stats.FootprintGranules++
		}
	}
	return stats, nil
}

// Refresh recomputes the aggregate and stamps the refresh time. It is
// called once at startup and then periodically by the scheduler.
func (s *CatalogService) Refresh(ctx context.Context) (*domain.CatalogStats, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	s.mu.Lock()
	s.lastRefresh = now
	s.mu.Unlock()

	stats.LastRefresh = now
	return stats, nil
}

// LastRefresh returns when Refresh last completed, zero if never.
func (s *CatalogService) LastRefresh() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRefresh
}
