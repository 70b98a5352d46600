package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hemoglovida/dashboard/backend/internal/application/services"
	"github.com/hemoglovida/dashboard/backend/internal/domain/entities"
	"github.com/hemoglovida/dashboard/backend/internal/domain/providers"
	"github.com/hemoglovida/dashboard/backend/internal/domain/repositories"
	"github.com/hemoglovida/dashboard/backend/pkg/calendar"
	apperrors "github.com/hemoglovida/dashboard/backend/pkg/errors"
)

type campaignFixture struct {
	repo       *MockCampaignRepository
	facilities *MockFacilityRepository
	alerts     *MockAlertSender
	activities *fakeActivities
	svc        *services.CampaignService
}

func newCampaignFixture() *campaignFixture {
	f := &campaignFixture{
		repo:       new(MockCampaignRepository),
		facilities: new(MockFacilityRepository),
		alerts:     new(MockAlertSender),
		activities: &fakeActivities{},
	}
	clock := calendar.NewFixedClock(at(2025, time.October, 28, 10, 0))
	f.svc = services.NewCampaignService(f.repo, f.facilities, f.alerts, f.activities, NewMockEventBus(), testFacility, clock)
	return f
}

func TestCampaignService_Create(t *testing.T) {
	f := newCampaignFixture()
	f.repo.On("Create", mock.Anything, mock.MatchedBy(func(c *entities.Campaign) bool {
		return c.FacilityID == testFacility && len(c.TargetBloodTypes) == 2
	})).Return(nil)

	c, err := f.svc.Create(context.Background(), entities.CampaignInput{
		Name: "Outubro Vermelho", StartDate: "2025-10-01", EndDate: "2025-10-31",
		TargetBloodTypes: []string{"O-", "o-", "A-"},
	})
	require.NoError(t, err)
	assert.Equal(t, 31, c.DurationDays())
	assert.Equal(t, []entities.ActivityType{entities.ActivityCampaignCreated}, f.activities.Types())

	_, err = f.svc.Create(context.Background(), entities.CampaignInput{
		Name: "Invertida", StartDate: "2025-10-31", EndDate: "2025-10-01",
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeValidation))
	f.repo.AssertNumberOfCalls(t, "Create", 1)
}

func TestCampaignService_ListActive(t *testing.T) {
	f := newCampaignFixture()
	today := calendar.NewDate(2025, time.October, 28)
	f.repo.On("List", mock.Anything, repositories.CampaignFilter{FacilityID: testFacility, ActiveOn: &today, Limit: 10}).
		Return([]*entities.Campaign{}, nil)

	_, err := f.svc.List(context.Background(), true, 10, 0)
	require.NoError(t, err)
	f.repo.AssertExpectations(t)
}

func TestCampaignService_SendAlert(t *testing.T) {
	running := &entities.Campaign{
		ID: "c1", FacilityID: testFacility, Name: "Estoque baixo",
		StartDate: calendar.NewDate(2025, time.October, 20), EndDate: calendar.NewDate(2025, time.November, 5),
		TargetBloodTypes: pq.StringArray{"O-", "B-"},
	}

	t.Run("sends and logs", func(t *testing.T) {
		f := newCampaignFixture()
		facility := &entities.Facility{ID: testFacility, Name: "Hemocentro"}
		f.repo.On("GetByID", mock.Anything, "c1").Return(running, nil)
		f.facilities.On("GetByID", mock.Anything, testFacility).Return(facility, nil)
		f.alerts.On("SendBloodTypeAlert", mock.Anything, providers.BloodTypeAlert{
			Campaign: running, Facility: facility, BloodTypes: []string{"O-", "B-"}, Message: "Venha doar",
		}).Return("42", nil)

		res, err := f.svc.SendAlert(context.Background(), "c1", " Venha doar ")
		require.NoError(t, err)
		assert.Equal(t, "42", res.MessageID)
		assert.Equal(t, []entities.ActivityType{entities.ActivityAlertSent}, f.activities.Types())
	})

	t.Run("ended campaign is refused", func(t *testing.T) {
		f := newCampaignFixture()
		ended := *running
		ended.EndDate = calendar.NewDate(2025, time.October, 27)
		f.repo.On("GetByID", mock.Anything, "c1").Return(&ended, nil)

		_, err := f.svc.SendAlert(context.Background(), "c1", "")
		assert.True(t, apperrors.Is(err, apperrors.ErrorTypeValidation))
		f.alerts.AssertNotCalled(t, "SendBloodTypeAlert", mock.Anything, mock.Anything)
	})

	t.Run("telegram failure is external", func(t *testing.T) {
		f := newCampaignFixture()
		f.repo.On("GetByID", mock.Anything, "c1").Return(running, nil)
		f.facilities.On("GetByID", mock.Anything, testFacility).Return(nil, apperrors.NewNotFoundError("facility not found"))
		f.alerts.On("SendBloodTypeAlert", mock.Anything, mock.Anything).Return("", errors.New("bot blocked"))

		_, err := f.svc.SendAlert(context.Background(), "c1", "")
		assert.True(t, apperrors.Is(err, apperrors.ErrorTypeExternal))
		assert.Empty(t, f.activities.Types())
	})
}
