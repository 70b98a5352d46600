package handlers

import (
	"context"
	"net/http"

	"github.com/hemoglovida/dashboard/backend/internal/application/services"
	"github.com/hemoglovida/dashboard/backend/internal/domain/entities"
)

// DonorService defines the donor registry operations
type DonorService interface {
	List(ctx context.Context, params services.DonorListParams) (*services.DonorPage, error)
	Get(ctx context.Context, id string) (*entities.Donor, error)
	Create(ctx context.Context, in entities.DonorInput) (*entities.Donor, error)
	Update(ctx context.Context, id string, in entities.DonorInput) (*entities.Donor, error)
	Deactivate(ctx context.Context, id string) error
	Reindex(ctx context.Context) (int, error)
}

// DonorHandler handles donor requests
type DonorHandler struct {
	service DonorService
}

// NewDonorHandler creates a new donor handler
func NewDonorHandler(service DonorService) *DonorHandler {
	return &DonorHandler{service: service}
}

// ListDonors handles GET /api/donors?q=&status=&blood_type=
func (h *DonorHandler) ListDonors(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	params := services.DonorListParams{
		Query:  query.Get("q"),
		Status: entities.DonorStatus(query.Get("status")),
	}
	if s := query.Get("blood_type"); s != "" {
		bt, err := entities.ParseBloodType(s)
		if err != nil {
			respondWithAppError(w, r, err)
			return
		}
		params.BloodType = bt
	}

	var err error
	if params.Limit, params.Offset, err = parsePage(r, 20); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	page, err := h.service.List(r.Context(), params)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"donors": page.Donors,
		"count":  len(page.Donors),
		"total":  page.Total,
	})
}

// GetDonor handles GET /api/donors/{id}
func (h *DonorHandler) GetDonor(w http.ResponseWriter, r *http.Request) {
	donor, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, donor)
}

// CreateDonor handles POST /api/donors
func (h *DonorHandler) CreateDonor(w http.ResponseWriter, r *http.Request) {
	var in entities.DonorInput
	if err := decodeJSON(r, &in); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	donor, err := h.service.Create(r.Context(), in)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, donor)
}

// UpdateDonor handles PUT /api/donors/{id}
func (h *DonorHandler) UpdateDonor(w http.ResponseWriter, r *http.Request) {
	var in entities.DonorInput
	if err := decodeJSON(r, &in); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	donor, err := h.service.Update(r.Context(), r.PathValue("id"), in)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, donor)
}

// DeactivateDonor handles POST /api/donors/{id}/deactivate
func (h *DonorHandler) DeactivateDonor(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Deactivate(r.Context(), r.PathValue("id")); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReindexDonors handles POST /api/donors/reindex
func (h *DonorHandler) ReindexDonors(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.Reindex(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]int{"indexed": n})
}
