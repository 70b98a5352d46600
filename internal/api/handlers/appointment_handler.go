package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/hemoglovida/dashboard/backend/internal/api/loaders"
	"github.com/hemoglovida/dashboard/backend/internal/application/services"
	"github.com/hemoglovida/dashboard/backend/internal/domain/entities"
	"github.com/hemoglovida/dashboard/backend/internal/domain/repositories"
	"github.com/hemoglovida/dashboard/backend/internal/scheduling"
	"github.com/hemoglovida/dashboard/backend/pkg/calendar"
	apperrors "github.com/hemoglovida/dashboard/backend/pkg/errors"
)

// AppointmentService defines the interface for appointment operations
type AppointmentService interface {
	List(ctx context.Context, filter repositories.AppointmentFilter) ([]*entities.Appointment, error)
	Get(ctx context.Context, id string) (*entities.Appointment, error)
	Create(ctx context.Context, in entities.NewAppointmentInput) (*services.CreateResult, error)
}

// AppointmentHandler handles appointment requests
type AppointmentHandler struct {
	service  AppointmentService
	workflow scheduling.Applier
	donors   loaders.DonorFetcher
	clock    calendar.Clock
}

// NewAppointmentHandler creates a new appointment handler
func NewAppointmentHandler(service AppointmentService, workflow scheduling.Applier, donors loaders.DonorFetcher, clock calendar.Clock) *AppointmentHandler {
	return &AppointmentHandler{
		service:  service,
		workflow: workflow,
		donors:   donors,
		clock:    clock,
	}
}

// AppointmentView is an appointment with its donor and the actions offered now
type AppointmentView struct {
	*entities.Appointment
	Donor   *entities.Donor              `json:"donor,omitempty"`
	Display entities.StatusDescriptor    `json:"status_display"`
	Actions []entities.AppointmentAction `json:"actions"`
}

type actionRequest struct {
	Action  entities.AppointmentAction `json:"action"`
	Confirm bool                       `json:"confirm"`
}

type actionResponse struct {
	Applied bool                       `json:"applied"`
	Status  entities.AppointmentStatus `json:"status"`
	Partial bool                       `json:"partial,omitempty"`
	Error   string                     `json:"error,omitempty"`
}

// ListAppointments handles GET /api/appointments?from=&to=&status=
func (h *AppointmentHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	filter, err := parseAppointmentFilter(r)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	list, err := h.service.List(r.Context(), filter)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	views, err := h.views(r.Context(), list)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"appointments": views,
		"count":        len(views),
	})
}

// GetAppointment handles GET /api/appointments/{id}
func (h *AppointmentHandler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	apt, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	views, err := h.views(r.Context(), []*entities.Appointment{apt})
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, views[0])
}

// CreateAppointment handles POST /api/appointments
func (h *AppointmentHandler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var in entities.NewAppointmentInput
	if err := decodeJSON(r, &in); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	result, err := h.service.Create(r.Context(), in)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, result)
}

// ApplyAction handles POST /api/appointments/{id}/actions.
// Unconfirmed requests get 428 with the prompt to show; a completion whose
// donor update failed answers 207.
func (h *AppointmentHandler) ApplyAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	apt, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	// the client confirms by re-sending with confirm set; until then the
	// prompt goes back with 428
	var prompt *scheduling.Prompt
	confirmer := scheduling.ConfirmFunc(func(_ context.Context, p scheduling.Prompt) (bool, error) {
		if !req.Confirm {
			prompt = &p
		}
		return req.Confirm, nil
	})

	outcome, err := scheduling.Dispatch(r.Context(), h.workflow, apt, h.clock.Now(), req.Action, confirmer)
	switch {
	case outcome.Partial:
		respondWithJSON(w, http.StatusMultiStatus, actionResponse{
			Applied: true,
			Status:  outcome.Status,
			Partial: true,
			Error:   apperrors.MessageOf(err),
		})
	case err != nil:
		respondWithAppError(w, r, err)
	case prompt != nil:
		respondWithJSON(w, http.StatusPreconditionRequired, map[string]interface{}{
			"error":  "confirmation required",
			"prompt": prompt,
		})
	default:
		respondWithJSON(w, http.StatusOK, actionResponse{Applied: outcome.Applied, Status: outcome.Status})
	}
}

func (h *AppointmentHandler) views(ctx context.Context, list []*entities.Appointment) ([]AppointmentView, error) {
	ids := make([]string, 0, len(list))
	for _, apt := range list {
		if apt.HasDonor() {
			ids = append(ids, *apt.DonorID)
		}
	}
	donors, err := loaders.LoadDonors(ctx, h.donors, ids)
	if err != nil {
		return nil, err
	}

	now := h.clock.Now()
	views := make([]AppointmentView, 0, len(list))
	for _, apt := range list {
		view := AppointmentView{
			Appointment: apt,
			Display:     apt.Status.Display(),
			Actions:     entities.AvailableActions(apt.Status, apt.IsPast(now)),
		}
		if apt.HasDonor() {
			view.Donor = donors[*apt.DonorID]
		}
		views = append(views, view)
	}
	return views, nil
}

func parseAppointmentFilter(r *http.Request) (repositories.AppointmentFilter, error) {
	query := r.URL.Query()
	filter := repositories.AppointmentFilter{}

	if s := query.Get("status"); s != "" {
		status, err := entities.ParseAppointmentStatus(s)
		if err != nil {
			return filter, err
		}
		filter.Status = &status
	}
	if s := query.Get("from"); s != "" {
		from, err := calendar.ParseISO(s)
		if err != nil {
			return filter, err
		}
		filter.From = &from
	}
	if s := query.Get("to"); s != "" {
		to, err := calendar.ParseISO(s)
		if err != nil {
			return filter, err
		}
		filter.To = &to
	}
	if s := query.Get("date"); s != "" {
		day, err := calendar.ParseISO(s)
		if err != nil {
			return filter, err
		}
		filter.From, filter.To = &day, &day
	}

	var err error
	if filter.Limit, filter.Offset, err = parsePage(r, 0); err != nil {
		return filter, err
	}
	return filter, nil
}

// parsePage reads limit and offset; limit defaults to def
func parsePage(r *http.Request, def int) (limit, offset int, err error) {
	query := r.URL.Query()
	limit = def
	if s := query.Get("limit"); s != "" {
		if limit, err = strconv.Atoi(s); err != nil || limit < 0 || limit > 500 {
			return 0, 0, apperrors.NewValidationError("limit must be between 0 and 500")
		}
	}
	if s := query.Get("offset"); s != "" {
		if offset, err = strconv.Atoi(s); err != nil || offset < 0 {
			return 0, 0, apperrors.NewValidationError("offset must be a non-negative integer")
		}
	}
	return limit, offset, nil
}
