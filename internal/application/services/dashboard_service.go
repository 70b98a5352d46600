package services

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/hemoglovida/dashboard/backend/internal/domain/entities"
	"github.com/hemoglovida/dashboard/backend/internal/domain/providers"
	"github.com/hemoglovida/dashboard/backend/internal/domain/repositories"
	"github.com/hemoglovida/dashboard/backend/internal/infrastructure/observability"
	"github.com/hemoglovida/dashboard/backend/pkg/calendar"
)

const (
	dashboardSummaryTTL    = 60
	dashboardRecentEntries = 5
	// upcoming confirmed appointments scanned for the next one
	dashboardUpcomingScan = 50
)

// DashboardSummaryKey is the cache key of a facility's home screen summary
func DashboardSummaryKey(facilityID string) string {
	return "dashboard:summary:" + facilityID
}

// DashboardService aggregates the home screen cards
type DashboardService struct {
	donors       repositories.DonorRepository
	campaigns    repositories.CampaignRepository
	appointments repositories.AppointmentRepository
	activities   repositories.ActivityRepository
	cache        providers.CacheProvider
	facilityID   string
	clock        calendar.Clock
	metrics      *observability.Metrics
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(
	donors repositories.DonorRepository,
	campaigns repositories.CampaignRepository,
	appointments repositories.AppointmentRepository,
	activities repositories.ActivityRepository,
	cache providers.CacheProvider,
	facilityID string,
	clock calendar.Clock,
	metrics *observability.Metrics,
) *DashboardService {
	return &DashboardService{
		donors:       donors,
		campaigns:    campaigns,
		appointments: appointments,
		activities:   activities,
		cache:        cache,
		facilityID:   facilityID,
		clock:        clock,
		metrics:      metrics,
	}
}

// Summary returns the cached summary or computes a fresh one
func (s *DashboardService) Summary(ctx context.Context) (*entities.DashboardSummary, error) {
	key := DashboardSummaryKey(s.facilityID)

	if cached, err := s.cache.Get(ctx, key); err == nil {
		var summary entities.DashboardSummary
		if err := json.Unmarshal(cached, &summary); err == nil {
			observability.RecordCacheHit(ctx, s.metrics, "dashboard:summary")
			return &summary, nil
		}
	}
	observability.RecordCacheMiss(ctx, s.metrics, "dashboard:summary")

	summary, err := s.compute(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(summary); err == nil {
		if err := s.cache.Set(ctx, key, data, dashboardSummaryTTL); err != nil {
			log.Warn().Err(err).Msg("failed to cache dashboard summary")
		}
	}
	return summary, nil
}

// Invalidate drops the cached summary
func (s *DashboardService) Invalidate(ctx context.Context) error {
	return s.cache.Delete(ctx, DashboardSummaryKey(s.facilityID))
}

func (s *DashboardService) compute(ctx context.Context) (*entities.DashboardSummary, error) {
	now := s.clock.Now()
	today := calendar.DateOf(now)
	summary := &entities.DashboardSummary{GeneratedAt: now}

	var err error
	if summary.TotalDonors, err = s.donors.Count(ctx, repositories.DonorFilter{FacilityID: s.facilityID}); err != nil {
		return nil, err
	}
	if summary.ActiveDonors, err = s.donors.Count(ctx, repositories.DonorFilter{
		FacilityID: s.facilityID,
		Status:     entities.DonorStatusActive,
	}); err != nil {
		return nil, err
	}

	active, err := s.campaigns.List(ctx, repositories.CampaignFilter{FacilityID: s.facilityID, ActiveOn: &today})
	if err != nil {
		return nil, err
	}
	summary.ActiveCampaigns = len(active)
	summary.UrgentBloodTypes = urgentBloodTypes(active)

	pending := entities.AppointmentStatusPending
	pendingList, err := s.appointments.ListByFacility(ctx, s.facilityID, repositories.AppointmentFilter{Status: &pending})
	if err != nil {
		return nil, err
	}
	summary.PendingAppointments = len(pendingList)

	confirmed := entities.AppointmentStatusConfirmed
	upcoming, err := s.appointments.ListByFacility(ctx, s.facilityID, repositories.AppointmentFilter{
		Status: &confirmed,
		From:   &today,
		Limit:  dashboardUpcomingScan,
	})
	if err != nil {
		return nil, err
	}
	for _, apt := range upcoming {
		if !apt.IsPast(now) {
			summary.NextAppointment = apt
			break
		}
	}

	if summary.RecentActivities, err = s.activities.List(ctx, repositories.ActivityFilter{
		FacilityID: s.facilityID,
		Limit:      dashboardRecentEntries,
	}); err != nil {
		return nil, err
	}
	return summary, nil
}

func urgentBloodTypes(active []*entities.Campaign) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, c := range active {
		for _, bt := range c.TargetBloodTypes {
			if !seen[bt] {
				seen[bt] = true
				out = append(out, bt)
			}
		}
	}
	sort.Strings(out)
	return out
}
