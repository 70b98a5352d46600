package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hemoglovida/dashboard/backend/internal/application/services"
	"github.com/hemoglovida/dashboard/backend/internal/domain/entities"
	"github.com/hemoglovida/dashboard/backend/internal/domain/repositories"
	"github.com/hemoglovida/dashboard/backend/pkg/calendar"
)

func TestDashboardService_Summary(t *testing.T) {
	now := at(2025, time.October, 28, 10, 0)
	today := calendar.DateOf(now)

	donors := new(MockDonorRepository)
	campaigns := new(MockCampaignRepository)
	activities := new(MockActivityRepository)
	appointments := newFakeAppointmentRepo(
		&entities.Appointment{ID: "p1", FacilityID: testFacility, PatientName: "Ana", Date: today,
			Time: calendar.TimeOfDay{Hour: 11}, Status: entities.AppointmentStatusPending},
		&entities.Appointment{ID: "c-past", FacilityID: testFacility, PatientName: "Bruno", Date: today,
			Time: calendar.TimeOfDay{Hour: 8}, Status: entities.AppointmentStatusConfirmed},
		&entities.Appointment{ID: "c-next", FacilityID: testFacility, PatientName: "Carla", Date: today,
			Time: calendar.TimeOfDay{Hour: 14, Minute: 30}, Status: entities.AppointmentStatusConfirmed},
	)
	cache := NewMockCacheProvider()

	donors.On("Count", mock.Anything, repositories.DonorFilter{FacilityID: testFacility}).Return(12, nil)
	donors.On("Count", mock.Anything, repositories.DonorFilter{FacilityID: testFacility, Status: entities.DonorStatusActive}).Return(9, nil)
	campaigns.On("List", mock.Anything, mock.MatchedBy(func(f repositories.CampaignFilter) bool {
		return f.ActiveOn != nil && *f.ActiveOn == today
	})).Return([]*entities.Campaign{
		{ID: "c1", TargetBloodTypes: pq.StringArray{"O-", "B-"}},
		{ID: "c2", TargetBloodTypes: pq.StringArray{"A-", "O-"}},
	}, nil)
	activities.On("List", mock.Anything, repositories.ActivityFilter{FacilityID: testFacility, Limit: 5}).
		Return([]*entities.Activity{}, nil)

	svc := services.NewDashboardService(donors, campaigns, appointments, activities, cache, testFacility,
		calendar.NewFixedClock(now), nil)

	summary, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, summary.TotalDonors)
	assert.Equal(t, 9, summary.ActiveDonors)
	assert.Equal(t, 2, summary.ActiveCampaigns)
	assert.Equal(t, []string{"A-", "B-", "O-"}, summary.UrgentBloodTypes)
	assert.Equal(t, 1, summary.PendingAppointments)
	require.NotNil(t, summary.NextAppointment)
	assert.Equal(t, "c-next", summary.NextAppointment.ID)
	assert.Equal(t, 60, cache.TTL(services.DashboardSummaryKey(testFacility)))

	t.Run("served from cache", func(t *testing.T) {
		cached, err := svc.Summary(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 12, cached.TotalDonors)
		donors.AssertNumberOfCalls(t, "Count", 2)
	})

	t.Run("invalidate forces recompute", func(t *testing.T) {
		require.NoError(t, svc.Invalidate(context.Background()))
		_, err := svc.Summary(context.Background())
		require.NoError(t, err)
		donors.AssertNumberOfCalls(t, "Count", 4)
	})
}
