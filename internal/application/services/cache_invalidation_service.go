package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hemoglovida/dashboard/backend/internal/domain/entities"
	"github.com/hemoglovida/dashboard/backend/internal/domain/providers"
)

// CacheInvalidationService drops cached views when the collections behind them change
type CacheInvalidationService struct {
	cache      providers.CacheProvider
	eventBus   providers.EventBus
	facilityID string
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewCacheInvalidationService creates a new cache invalidation service
func NewCacheInvalidationService(cache providers.CacheProvider, eventBus providers.EventBus, facilityID string) *CacheInvalidationService {
	ctx, cancel := context.WithCancel(context.Background())
	return &CacheInvalidationService{
		cache:      cache,
		eventBus:   eventBus,
		facilityID: facilityID,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// ResponseCacheKey is the key of a cached GET response for a facility
func ResponseCacheKey(facilityID, digest string) string {
	return fmt.Sprintf("http:cache:%s:%s", facilityID, digest)
}

// ResponseCachePattern matches every cached GET response of a facility
func ResponseCachePattern(facilityID string) string {
	return fmt.Sprintf("http:cache:%s:*", facilityID)
}

// watchedCollections feed the dashboard summary
var watchedCollections = []entities.Collection{
	entities.CollectionAppointments,
	entities.CollectionDonors,
	entities.CollectionCampaigns,
	entities.CollectionFacility,
}

// Start begins listening for events and invalidating cache
func (s *CacheInvalidationService) Start() error {
	for _, collection := range watchedCollections {
		channel := providers.CollectionChannel(collection, s.facilityID)
		eventChan, err := s.eventBus.Subscribe(s.ctx, channel)
		if err != nil {
			s.cancel()
			return fmt.Errorf("failed to subscribe to %s: %w", channel, err)
		}
		go s.processEvents(eventChan)
	}

	log.Info().Str("facility_id", s.facilityID).Msg("cache invalidation service started")
	return nil
}

// Stop stops the cache invalidation service
func (s *CacheInvalidationService) Stop() {
	s.cancel()
	log.Info().Msg("cache invalidation service stopped")
}

func (s *CacheInvalidationService) processEvents(eventChan <-chan *entities.ChangeEvent) {
	for {
		select {
		case <-s.ctx.Done():
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if event == nil {
				continue
			}
			s.handleEvent(event)
		}
	}
}

func (s *CacheInvalidationService) handleEvent(event *entities.ChangeEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	log.Debug().
		Str("event_id", event.ID).
		Str("collection", string(event.Collection)).
		Str("document_id", event.DocumentID).
		Msg("processing cache invalidation")

	if err := s.cache.Delete(ctx, DashboardSummaryKey(event.FacilityID)); err != nil {
		log.Warn().Err(err).Str("facility_id", event.FacilityID).Msg("failed to invalidate dashboard summary")
	}

	if err := s.cache.DeletePattern(ctx, ResponseCachePattern(event.FacilityID)); err != nil {
		log.Warn().Err(err).Str("facility_id", event.FacilityID).Msg("failed to invalidate cached responses")
	}

	// the cached facility adapter already drops its own key on write; other
	// writers (cmd/admin, direct SQL) only reach it through this event
	if event.Collection == entities.CollectionFacility {
		if err := s.cache.Delete(ctx, "facility:"+event.DocumentID); err != nil {
			log.Warn().Err(err).Str("facility_id", event.DocumentID).Msg("failed to invalidate facility cache")
		}
	}
}

// InvalidateAll drops every cached dashboard view. Used during maintenance.
func (s *CacheInvalidationService) InvalidateAll(ctx context.Context) error {
	for _, pattern := range []string{"dashboard:*", "facility:*", "http:cache:*"} {
		if err := s.cache.DeletePattern(ctx, pattern); err != nil {
			return fmt.Errorf("failed to invalidate pattern %s: %w", pattern, err)
		}
		log.Info().Str("pattern", pattern).Msg("invalidated cache pattern")
	}
	return nil
}
