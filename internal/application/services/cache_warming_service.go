package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hemoglovida/dashboard/backend/internal/domain/providers"
)

// CacheWarmingService precomputes the views every operator opens first
type CacheWarmingService struct {
	facilities *FacilityService
	dashboard  *DashboardService
	cache      providers.CacheProvider
	facilityID string
}

// NewCacheWarmingService creates a new cache warming service
func NewCacheWarmingService(
	facilities *FacilityService,
	dashboard *DashboardService,
	cache providers.CacheProvider,
	facilityID string,
) *CacheWarmingService {
	return &CacheWarmingService{
		facilities: facilities,
		dashboard:  dashboard,
		cache:      cache,
		facilityID: facilityID,
	}
}

// WarmCache loads the facility profile and dashboard summary through their
// caching read paths
func (s *CacheWarmingService) WarmCache(ctx context.Context) error {
	log.Debug().Msg("starting cache warming")

	if _, err := s.facilities.Get(ctx); err != nil {
		return fmt.Errorf("failed to warm facility profile: %w", err)
	}
	if _, err := s.dashboard.Summary(ctx); err != nil {
		return fmt.Errorf("failed to warm dashboard summary: %w", err)
	}

	log.Debug().Msg("cache warming completed")
	return nil
}

// StartPeriodicWarming warms now and then every interval until ctx is done
func (s *CacheWarmingService) StartPeriodicWarming(ctx context.Context, interval time.Duration) {
	if err := s.WarmCache(ctx); err != nil {
		log.Warn().Err(err).Msg("initial cache warming failed")
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("stopping cache warming service")
				return
			case <-ticker.C:
				if err := s.WarmCache(ctx); err != nil {
					log.Warn().Err(err).Msg("periodic cache warming failed")
				}
			}
		}
	}()
	log.Info().Dur("interval", interval).Msg("started periodic cache warming")
}

// GetCacheStats reports which warmed keys are currently cached
func (s *CacheWarmingService) GetCacheStats(ctx context.Context) (map[string]interface{}, error) {
	keys := []string{
		"facility:" + s.facilityID,
		DashboardSummaryKey(s.facilityID),
	}

	stats := make(map[string]interface{}, len(keys)+1)
	cached := 0
	for _, key := range keys {
		exists, err := s.cache.Exists(ctx, key)
		if err != nil {
			return nil, err
		}
		stats[key] = exists
		if exists {
			cached++
		}
	}
	stats["cached_keys"] = cached
	return stats, nil
}
