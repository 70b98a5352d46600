package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/hemoglovida/dashboard/backend/internal/domain/entities"
	"github.com/hemoglovida/dashboard/backend/internal/domain/providers"
	"github.com/hemoglovida/dashboard/backend/internal/domain/repositories"
)

// CachedFacilityAdapter wraps FacilityAdapter with caching
type CachedFacilityAdapter struct {
	adapter repositories.FacilityRepository
	cache   providers.CacheProvider
}

// NewCachedFacilityAdapter creates a new cached facility adapter
func NewCachedFacilityAdapter(adapter repositories.FacilityRepository, cache providers.CacheProvider) repositories.FacilityRepository {
	return &CachedFacilityAdapter{
		adapter: adapter,
		cache:   cache,
	}
}

// facility profile is read on every dashboard render and rarely written
const facilityByIDTTL = 600

func facilityCacheKey(id string) string {
	return fmt.Sprintf("facility:%s", id)
}

// GetByID retrieves a facility by ID with caching
func (a *CachedFacilityAdapter) GetByID(ctx context.Context, id string) (*entities.Facility, error) {
	cacheKey := facilityCacheKey(id)

	if cached, err := a.cache.Get(ctx, cacheKey); err == nil {
		var facility entities.Facility
		if err := json.Unmarshal(cached, &facility); err == nil {
			return &facility, nil
		}
		log.Warn().Str("facility_id", id).Msg("discarding unreadable cached facility")
	}

	facility, err := a.adapter.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(facility); err == nil {
		if err := a.cache.Set(ctx, cacheKey, data, facilityByIDTTL); err != nil {
			log.Warn().Err(err).Str("facility_id", id).Msg("failed to cache facility")
		}
	}

	return facility, nil
}

// Upsert saves the facility and drops its cached copy
func (a *CachedFacilityAdapter) Upsert(ctx context.Context, facility *entities.Facility) error {
	if err := a.adapter.Upsert(ctx, facility); err != nil {
		return err
	}

	if err := a.cache.Delete(ctx, facilityCacheKey(facility.ID)); err != nil {
		log.Warn().Err(err).Str("facility_id", facility.ID).Msg("failed to invalidate facility cache")
	}
	return nil
}
