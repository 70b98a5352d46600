package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hemoglovida/dashboard/backend/internal/domain/entities"
	"github.com/hemoglovida/dashboard/backend/internal/domain/repositories"
	"github.com/hemoglovida/dashboard/backend/pkg/calendar"
	apperrors "github.com/hemoglovida/dashboard/backend/pkg/errors"
)

func TestCampaignAdapter_CreateAndList(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewCampaignAdapter(client)

	campaign := &entities.Campaign{
		ID:               "camp-1",
		FacilityID:       "fac-1",
		Name:             "Junho Vermelho",
		StartDate:        calendar.NewDate(2025, time.June, 1),
		EndDate:          calendar.NewDate(2025, time.June, 30),
		TargetBloodTypes: pq.StringArray{"O-", "A-"},
	}

	mock.ExpectExec(`INSERT INTO "campaigns" .*'2025-06-30'.*'2025-06-01'`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, adapter.Create(context.Background(), campaign))

	now := time.Now()
	mock.ExpectQuery(`SELECT .* FROM "campaigns" WHERE .*"start_date" <= '2025-06-15'.*"end_date" >= '2025-06-15'.* ORDER BY "start_date" DESC`).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "facility_id", "name", "reason", "start_date", "end_date",
			"institution", "location", "target_blood_types", "created_at", "updated_at",
		}).AddRow("camp-1", "fac-1", "Junho Vermelho", "", "2025-06-01", "2025-06-30", "", "", "{O-,A-}", now, now))

	day := calendar.NewDate(2025, time.June, 15)
	list, err := adapter.List(context.Background(), repositories.CampaignFilter{FacilityID: "fac-1", ActiveOn: &day})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, []string{"O-", "A-"}, []string(list[0].TargetBloodTypes))
	assert.True(t, list[0].IsActiveOn(day))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCampaignAdapter_Delete(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewCampaignAdapter(client)

	mock.ExpectExec(`DELETE FROM "campaigns" WHERE \("id" = 'camp-1'\)`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM "campaigns"`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, adapter.Delete(context.Background(), "camp-1"))
	err := adapter.Delete(context.Background(), "camp-1")
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityAdapter(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewActivityAdapter(client)

	mock.ExpectExec(`INSERT INTO "activities" .*'appointment_confirmed'`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	activity := &entities.Activity{ID: "act-1", FacilityID: "fac-1", Type: entities.ActivityAppointmentConfirmed}
	require.NoError(t, adapter.Append(context.Background(), activity))
	assert.False(t, activity.OccurredAt.IsZero())

	mock.ExpectQuery(`SELECT .* FROM "activities" WHERE .*"type" IN \('appointment_confirmed'\).* ORDER BY "occurred_at" DESC.* LIMIT 50`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "facility_id", "type", "description", "subject_id", "actor_id", "occurred_at"}).
			AddRow("act-1", "fac-1", "appointment_confirmed", "", "apt-1", "", time.Now()))

	list, err := adapter.List(context.Background(), repositories.ActivityFilter{
		FacilityID: "fac-1",
		Types:      []entities.ActivityType{entities.ActivityAppointmentConfirmed},
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "apt-1", list[0].SubjectID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserAdapter(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewUserAdapter(client)

	now := time.Now()
	mock.ExpectQuery(`SELECT .* FROM "users" WHERE \("email" = 'admin@hemo.org'\)`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "name", "password_hash", "is_admin", "facility_id", "created_at", "updated_at"}).
			AddRow("u1", "admin@hemo.org", "Admin", "$argon2id$...", true, "fac-1", now, now))

	user, err := adapter.GetByEmail(context.Background(), "  Admin@Hemo.org ")
	require.NoError(t, err)
	assert.True(t, user.IsAdmin)

	mock.ExpectExec(`UPDATE "users" SET "is_admin"=FALSE`).WillReturnResult(sqlmock.NewResult(0, 0))
	err = adapter.SetAdmin(context.Background(), "u2", false)
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}
