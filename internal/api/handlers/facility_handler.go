package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/hemoglovida/dashboard/backend/internal/domain/entities"
	apperrors "github.com/hemoglovida/dashboard/backend/pkg/errors"
)

// FacilityService defines the facility profile operations
type FacilityService interface {
	Get(ctx context.Context) (*entities.Facility, error)
	Update(ctx context.Context, in entities.FacilityInput) (*entities.Facility, error)
}

// FacilityHandler handles the operating facility's profile
type FacilityHandler struct {
	service FacilityService
}

// NewFacilityHandler creates a new facility handler
func NewFacilityHandler(service FacilityService) *FacilityHandler {
	return &FacilityHandler{
		service: service,
	}
}

// GetFacility handles GET /api/facility
func (h *FacilityHandler) GetFacility(w http.ResponseWriter, r *http.Request) {
	facility, err := h.service.Get(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, facility)
}

// UpdateFacility handles PUT /api/facility
func (h *FacilityHandler) UpdateFacility(w http.ResponseWriter, r *http.Request) {
	var in entities.FacilityInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	facility, err := h.service.Update(r.Context(), in)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, facility)
}

// Helper functions
func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Warn().Err(err).Msg("failed to write response")
	}
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// StatusFor maps an application error to its HTTP status
func StatusFor(err error) int {
	switch apperrors.TypeOf(err) {
	case apperrors.ErrorTypeValidation:
		return http.StatusBadRequest
	case apperrors.ErrorTypeNotFound:
		return http.StatusNotFound
	case apperrors.ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	case apperrors.ErrorTypeForbidden:
		return http.StatusForbidden
	case apperrors.ErrorTypeConflict:
		return http.StatusConflict
	case apperrors.ErrorTypeTransient:
		return http.StatusServiceUnavailable
	case apperrors.ErrorTypePartial:
		return http.StatusMultiStatus
	case apperrors.ErrorTypeExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondWithAppError writes err with its mapped status. Unexpected errors are
// logged and their details hidden from the client.
func respondWithAppError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	message := apperrors.MessageOf(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
		message = "internal server error"
	} else if status >= http.StatusInternalServerError {
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("upstream failure")
	}
	respondWithError(w, status, message)
}

func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.NewValidationError("invalid request payload")
	}
	return nil
}
