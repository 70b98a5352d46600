package handlers

import (
	"context"
	"net/http"

	"github.com/hemoglovida/dashboard/backend/internal/domain/entities"
	"github.com/hemoglovida/dashboard/backend/internal/scheduling"
	"github.com/hemoglovida/dashboard/backend/pkg/calendar"
)

// AppointmentSnapshotter reads the facility's full appointment list
type AppointmentSnapshotter interface {
	Snapshot(ctx context.Context) ([]*entities.Appointment, error)
}

// ScheduleHandler renders the scheduling screen
type ScheduleHandler struct {
	appointments AppointmentSnapshotter
	clock        calendar.Clock
}

// NewScheduleHandler creates a new schedule handler
func NewScheduleHandler(appointments AppointmentSnapshotter, clock calendar.Clock) *ScheduleHandler {
	return &ScheduleHandler{appointments: appointments, clock: clock}
}

// GetSchedule handles GET /api/schedule?month=YYYY-MM&selected=YYYY-MM-DD
func (h *ScheduleHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	opts, err := parseScheduleOptions(r)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	list, err := h.appointments.Snapshot(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	now := h.clock.Now()
	selected := calendar.DateOf(now)
	if opts.Selected != nil {
		selected = *opts.Selected
	}
	month := calendar.MonthOf(selected)
	if opts.Month != nil {
		month = *opts.Month
	}

	view := scheduling.BuildView(month, selected, now, list)
	view.Loaded = true
	respondWithJSON(w, http.StatusOK, view)
}

func parseScheduleOptions(r *http.Request) (scheduling.Options, error) {
	var opts scheduling.Options
	query := r.URL.Query()
	if s := query.Get("month"); s != "" {
		month, err := calendar.ParseMonth(s)
		if err != nil {
			return opts, err
		}
		opts.Month = &month
	}
	if s := query.Get("selected"); s != "" {
		day, err := calendar.ParseISO(s)
		if err != nil {
			return opts, err
		}
		opts.Selected = &day
	}
	return opts, nil
}
