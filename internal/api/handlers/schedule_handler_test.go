package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hemoglovida/dashboard/backend/internal/api/handlers"
	"github.com/hemoglovida/dashboard/backend/internal/domain/entities"
	"github.com/hemoglovida/dashboard/backend/pkg/calendar"
)

type snapshotFunc func(ctx context.Context) ([]*entities.Appointment, error)

func (f snapshotFunc) Snapshot(ctx context.Context) ([]*entities.Appointment, error) {
	return f(ctx)
}

func TestScheduleHandler_GetSchedule(t *testing.T) {
	list := []*entities.Appointment{
		testAppointment("apt-1", entities.AppointmentStatusConfirmed, 28, 8),
		testAppointment("apt-2", entities.AppointmentStatusCancelled, 30, 9),
	}
	handler := handlers.NewScheduleHandler(snapshotFunc(func(ctx context.Context) ([]*entities.Appointment, error) {
		return list, nil
	}), calendar.NewFixedClock(handlerNow))

	t.Run("defaults to today", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.GetSchedule(w, httptest.NewRequest("GET", "/api/schedule", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var view struct {
			Month         string `json:"month"`
			LeadingBlanks int    `json:"leading_blanks"`
			Days          []struct {
				HasAppointments bool `json:"has_appointments"`
				IsToday         bool `json:"is_today"`
			} `json:"days"`
			Appointments []struct {
				IsPast  bool `json:"is_past"`
				Actions []struct {
					Label string `json:"label"`
				} `json:"actions"`
			} `json:"appointments"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
		assert.Equal(t, 3, view.LeadingBlanks)
		require.Len(t, view.Days, 31)
		assert.True(t, view.Days[27].IsToday)
		assert.True(t, view.Days[27].HasAppointments)
		assert.False(t, view.Days[29].HasAppointments)
		require.Len(t, view.Appointments, 1)
		assert.True(t, view.Appointments[0].IsPast)
		require.Len(t, view.Appointments[0].Actions, 2)
		assert.Equal(t, "Concluir doação", view.Appointments[0].Actions[0].Label)
	})

	t.Run("month and selection from query", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.GetSchedule(w, httptest.NewRequest("GET", "/api/schedule?month=2025-11&selected=2025-10-30", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var view struct {
			MonthLabel   string                   `json:"month_label"`
			Appointments []map[string]interface{} `json:"appointments"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
		assert.Equal(t, "novembro de 2025", view.MonthLabel)
		assert.Len(t, view.Appointments, 1)
	})

	t.Run("bad date", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.GetSchedule(w, httptest.NewRequest("GET", "/api/schedule?selected=31/10/2025", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

}
