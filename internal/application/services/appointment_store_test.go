package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hemoglovida/dashboard/backend/internal/adapters/events"
	"github.com/hemoglovida/dashboard/backend/internal/application/services"
	"github.com/hemoglovida/dashboard/backend/internal/domain/entities"
	"github.com/hemoglovida/dashboard/backend/internal/domain/providers"
	"github.com/hemoglovida/dashboard/backend/pkg/calendar"
	apperrors "github.com/hemoglovida/dashboard/backend/pkg/errors"
)

const testFacility = "hemocentro-1"

func newTestStore(repo *fakeAppointmentRepo, bus providers.EventBus, policy services.DoubleBookingPolicy) (*services.AppointmentStore, *fakeActivities) {
	activities := &fakeActivities{}
	clock := calendar.NewFixedClock(at(2025, time.October, 28, 10, 0))
	return services.NewAppointmentStore(repo, bus, activities, testFacility, policy, clock), activities
}

func TestAppointmentStore_Create(t *testing.T) {
	t.Run("manual booking defaults to confirmed at the store's facility", func(t *testing.T) {
		repo := newFakeAppointmentRepo()
		bus := NewMockEventBus()
		store, activities := newTestStore(repo, bus, services.DoubleBookingAllow)

		result, err := store.Create(context.Background(), entities.NewAppointmentInput{
			PatientName: " Maria Souza ",
			Date:        "2025-10-30",
			Time:        "09:30",
		})
		require.NoError(t, err)

		apt := result.Appointment
		assert.NotEmpty(t, apt.ID)
		assert.Equal(t, testFacility, apt.FacilityID)
		assert.Equal(t, "Maria Souza", apt.PatientName)
		assert.Equal(t, entities.AppointmentStatusConfirmed, apt.Status)
		assert.False(t, apt.HasDonor())
		assert.Zero(t, result.Conflicts)

		published := bus.Published()
		require.Len(t, published, 1)
		assert.Equal(t, entities.ChangeKindCreated, published[0].Kind)
		assert.Equal(t, apt.ID, published[0].DocumentID)
		assert.Equal(t, []entities.ActivityType{entities.ActivityAppointmentCreated}, activities.Types())
	})

	t.Run("self service booking starts pending", func(t *testing.T) {
		store, _ := newTestStore(newFakeAppointmentRepo(), NewMockEventBus(), services.DoubleBookingAllow)

		result, err := store.Create(context.Background(), entities.NewAppointmentInput{
			PatientName: "João",
			Date:        "2025-10-30",
			Time:        "10:00",
			DonorID:     strPtr("donor-1"),
			SelfService: true,
		})
		require.NoError(t, err)
		assert.Equal(t, entities.AppointmentStatusPending, result.Appointment.Status)
		assert.True(t, result.Appointment.HasDonor())
	})

	t.Run("blank donor reference is dropped", func(t *testing.T) {
		store, _ := newTestStore(newFakeAppointmentRepo(), NewMockEventBus(), services.DoubleBookingAllow)

		result, err := store.Create(context.Background(), entities.NewAppointmentInput{
			PatientName: "Ana", Date: "2025-10-30", Time: "10:00", DonorID: strPtr("  "),
		})
		require.NoError(t, err)
		assert.Nil(t, result.Appointment.DonorID)
	})

	missing := []struct {
		name string
		in   entities.NewAppointmentInput
	}{
		{"patient name", entities.NewAppointmentInput{Date: "2025-10-30", Time: "10:00"}},
		{"date", entities.NewAppointmentInput{PatientName: "Ana", Time: "10:00"}},
		{"time", entities.NewAppointmentInput{PatientName: "Ana", Date: "2025-10-30"}},
		{"malformed time", entities.NewAppointmentInput{PatientName: "Ana", Date: "2025-10-30", Time: "25:00"}},
	}
	for _, tt := range missing {
		t.Run("rejects missing "+tt.name+" before writing", func(t *testing.T) {
			repo := newFakeAppointmentRepo()
			bus := NewMockEventBus()
			store, _ := newTestStore(repo, bus, services.DoubleBookingAllow)

			_, err := store.Create(context.Background(), tt.in)
			assert.True(t, apperrors.Is(err, apperrors.ErrorTypeValidation))
			assert.Zero(t, repo.created)
			assert.Empty(t, bus.Published())
		})
	}
}

func TestAppointmentStore_DoubleBooking(t *testing.T) {
	existing := []*entities.Appointment{
		{ID: "a1", FacilityID: testFacility, PatientName: "A", Date: calendar.NewDate(2025, time.October, 30), Time: calendar.TimeOfDay{Hour: 9}, Status: entities.AppointmentStatusConfirmed},
		{ID: "a2", FacilityID: testFacility, PatientName: "B", Date: calendar.NewDate(2025, time.October, 30), Time: calendar.TimeOfDay{Hour: 9}, Status: entities.AppointmentStatusCancelled},
	}
	in := entities.NewAppointmentInput{PatientName: "C", Date: "2025-10-30", Time: "09:00"}

	tests := []struct {
		policy        services.DoubleBookingPolicy
		wantErr       apperrors.ErrorType
		wantConflicts int
	}{
		{policy: services.DoubleBookingAllow, wantConflicts: 0},
		{policy: services.DoubleBookingWarn, wantConflicts: 1},
		{policy: services.DoubleBookingReject, wantErr: apperrors.ErrorTypeConflict},
	}

	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			repo := newFakeAppointmentRepo(existing...)
			store, _ := newTestStore(repo, NewMockEventBus(), tt.policy)

			result, err := store.Create(context.Background(), in)
			if tt.wantErr != "" {
				assert.Equal(t, tt.wantErr, apperrors.TypeOf(err))
				assert.Zero(t, repo.created)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantConflicts, result.Conflicts)
			assert.Equal(t, 1, repo.created)
		})
	}
}

func TestParseDoubleBookingPolicy(t *testing.T) {
	p, err := services.ParseDoubleBookingPolicy("")
	require.NoError(t, err)
	assert.Equal(t, services.DoubleBookingAllow, p)

	p, err = services.ParseDoubleBookingPolicy(" Reject ")
	require.NoError(t, err)
	assert.Equal(t, services.DoubleBookingReject, p)

	_, err = services.ParseDoubleBookingPolicy("sometimes")
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeValidation))
}

func TestAppointmentStore_SetStatus(t *testing.T) {
	apt := &entities.Appointment{ID: "a1", FacilityID: testFacility, Status: entities.AppointmentStatusPending}

	t.Run("writes status and publishes", func(t *testing.T) {
		repo := newFakeAppointmentRepo(apt)
		bus := NewMockEventBus()
		store, _ := newTestStore(repo, bus, services.DoubleBookingAllow)

		require.NoError(t, store.SetStatus(context.Background(), "a1", entities.AppointmentStatusConfirmed))

		got, err := repo.GetByID(context.Background(), "a1")
		require.NoError(t, err)
		assert.Equal(t, entities.AppointmentStatusConfirmed, got.Status)
		require.Len(t, bus.Published(), 1)
		assert.Equal(t, "confirmed", bus.Published()[0].ChangedFields["status"])
	})

	t.Run("vanished appointment is not found and nothing is published", func(t *testing.T) {
		bus := NewMockEventBus()
		store, _ := newTestStore(newFakeAppointmentRepo(), bus, services.DoubleBookingAllow)

		err := store.SetStatus(context.Background(), "gone", entities.AppointmentStatusConfirmed)
		assert.True(t, apperrors.Is(err, apperrors.ErrorTypeNotFound))
		assert.Empty(t, bus.Published())
	})

	t.Run("publish failure does not fail the write", func(t *testing.T) {
		bus := NewMockEventBus()
		bus.publishErr = assert.AnError
		store, _ := newTestStore(newFakeAppointmentRepo(apt), bus, services.DoubleBookingAllow)

		assert.NoError(t, store.SetStatus(context.Background(), "a1", entities.AppointmentStatusCancelled))
	})
}

func TestAppointmentStore_GetOtherFacility(t *testing.T) {
	repo := newFakeAppointmentRepo(&entities.Appointment{ID: "x", FacilityID: "other", Status: entities.AppointmentStatusPending})
	store, _ := newTestStore(repo, NewMockEventBus(), services.DoubleBookingAllow)

	_, err := store.Get(context.Background(), "x")
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeNotFound))
}

func TestAppointmentStore_Subscribe(t *testing.T) {
	repo := newFakeAppointmentRepo(
		&entities.Appointment{ID: "late", FacilityID: testFacility, Date: calendar.NewDate(2025, time.October, 27), Time: calendar.TimeOfDay{Hour: 15}, Status: entities.AppointmentStatusConfirmed},
		&entities.Appointment{ID: "early", FacilityID: testFacility, Date: calendar.NewDate(2025, time.October, 29), Time: calendar.TimeOfDay{Hour: 8}, Status: entities.AppointmentStatusPending},
		&entities.Appointment{ID: "elsewhere", FacilityID: "other", Date: calendar.NewDate(2025, time.October, 29), Time: calendar.TimeOfDay{Hour: 7}, Status: entities.AppointmentStatusPending},
	)
	bus := events.NewMemoryEventBus()
	defer bus.Close()
	store, _ := newTestStore(repo, bus, services.DoubleBookingAllow)

	snapshots := make(chan []*entities.Appointment, 10)
	unsubscribe, err := store.Subscribe(context.Background(), func(list []*entities.Appointment) {
		snapshots <- list
	})
	require.NoError(t, err)
	defer unsubscribe()

	first := waitSnapshot(t, snapshots)
	require.Len(t, first, 2)
	// ordered by time of day, not by date
	assert.Equal(t, "early", first[0].ID)
	assert.Equal(t, "late", first[1].ID)

	_, err = store.Create(context.Background(), entities.NewAppointmentInput{PatientName: "Nova", Date: "2025-10-29", Time: "11:00"})
	require.NoError(t, err)

	second := waitSnapshot(t, snapshots)
	require.Len(t, second, 3)
	assert.Equal(t, "Nova", second[1].PatientName)

	unsubscribe()
	require.NoError(t, store.SetStatus(context.Background(), "early", entities.AppointmentStatusConfirmed))
	select {
	case s := <-snapshots:
		t.Fatalf("received snapshot after unsubscribe: %d items", len(s))
	case <-time.After(100 * time.Millisecond):
	}
}

func waitSnapshot(t *testing.T, ch <-chan []*entities.Appointment) []*entities.Appointment {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}
