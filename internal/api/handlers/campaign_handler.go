package handlers

import (
	"context"
	"net/http"

	"github.com/hemoglovida/dashboard/backend/internal/application/services"
	"github.com/hemoglovida/dashboard/backend/internal/domain/entities"
)

// CampaignService defines the campaign operations
type CampaignService interface {
	List(ctx context.Context, activeOnly bool, limit, offset int) ([]*entities.Campaign, error)
	Get(ctx context.Context, id string) (*entities.Campaign, error)
	Create(ctx context.Context, in entities.CampaignInput) (*entities.Campaign, error)
	Update(ctx context.Context, id string, in entities.CampaignInput) (*entities.Campaign, error)
	Delete(ctx context.Context, id string) error
	SendAlert(ctx context.Context, id, message string) (*services.AlertResult, error)
}

// CampaignHandler handles campaign requests
type CampaignHandler struct {
	service CampaignService
}

// NewCampaignHandler creates a new campaign handler
func NewCampaignHandler(service CampaignService) *CampaignHandler {
	return &CampaignHandler{service: service}
}

// ListCampaigns handles GET /api/campaigns?active=true
func (h *CampaignHandler) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parsePage(r, 50)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	campaigns, err := h.service.List(r.Context(), r.URL.Query().Get("active") == "true", limit, offset)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"campaigns": campaigns,
		"count":     len(campaigns),
	})
}

// GetCampaign handles GET /api/campaigns/{id}
func (h *CampaignHandler) GetCampaign(w http.ResponseWriter, r *http.Request) {
	campaign, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, campaign)
}

// CreateCampaign handles POST /api/campaigns
func (h *CampaignHandler) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var in entities.CampaignInput
	if err := decodeJSON(r, &in); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	campaign, err := h.service.Create(r.Context(), in)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, campaign)
}

// UpdateCampaign handles PUT /api/campaigns/{id}
func (h *CampaignHandler) UpdateCampaign(w http.ResponseWriter, r *http.Request) {
	var in entities.CampaignInput
	if err := decodeJSON(r, &in); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	campaign, err := h.service.Update(r.Context(), r.PathValue("id"), in)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, campaign)
}

// DeleteCampaign handles DELETE /api/campaigns/{id}
func (h *CampaignHandler) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), r.PathValue("id")); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SendAlert handles POST /api/campaigns/{id}/alert
func (h *CampaignHandler) SendAlert(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Message string `json:"message"`
	}
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &body); err != nil {
			respondWithAppError(w, r, err)
			return
		}
	}

	result, err := h.service.SendAlert(r.Context(), r.PathValue("id"), body.Message)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}
