package handlers

import (
	"context"
	"net/http"

	"github.com/hemoglovida/dashboard/backend/internal/domain/entities"
)

// ActivityService lists the activity log
type ActivityService interface {
	List(ctx context.Context, section entities.ActivitySection, limit, offset int) ([]*entities.Activity, error)
}

// DashboardService computes the home screen summary
type DashboardService interface {
	Summary(ctx context.Context) (*entities.DashboardSummary, error)
}

// ActivityHandler serves the activity log and the dashboard summary
type ActivityHandler struct {
	activities ActivityService
	dashboard  DashboardService
}

// NewActivityHandler creates a new activity handler
func NewActivityHandler(activities ActivityService, dashboard DashboardService) *ActivityHandler {
	return &ActivityHandler{activities: activities, dashboard: dashboard}
}

// ListActivities handles GET /api/activities?section=donors|campaigns|appointments
func (h *ActivityHandler) ListActivities(w http.ResponseWriter, r *http.Request) {
	var section entities.ActivitySection
	if s := r.URL.Query().Get("section"); s != "" {
		parsed, err := entities.ParseActivitySection(s)
		if err != nil {
			respondWithAppError(w, r, err)
			return
		}
		section = parsed
	}

	limit, offset, err := parsePage(r, 20)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	list, err := h.activities.List(r.Context(), section, limit, offset)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"activities": list,
		"count":      len(list),
	})
}

// GetSummary handles GET /api/dashboard/summary
func (h *ActivityHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.dashboard.Summary(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, summary)
}
