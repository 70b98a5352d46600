package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/hemoglovida/dashboard/backend/internal/application/services"
	"github.com/hemoglovida/dashboard/backend/internal/domain/entities"
	apperrors "github.com/hemoglovida/dashboard/backend/pkg/errors"
)

// AuthService defines the session operations exposed over HTTP
type AuthService interface {
	SignIn(ctx context.Context, email, pass string) (*entities.Session, error)
	SignOut(ctx context.Context, token string) error
}

// AuthHandler handles operator sign-in and sign-out
type AuthHandler struct {
	service AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(service AuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignIn handles POST /api/auth/sign-in
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	session, err := h.service.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, session)
}

// SignOut handles POST /api/auth/sign-out
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	token := BearerToken(r)
	if token == "" {
		respondWithAppError(w, r, apperrors.NewUnauthorizedError("missing session token"))
		return
	}

	if err := h.service.SignOut(r.Context(), token); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := services.ClaimsFromContext(r.Context())
	if !ok {
		respondWithAppError(w, r, apperrors.NewUnauthorizedError("not signed in"))
		return
	}
	respondWithJSON(w, http.StatusOK, claims)
}

// BearerToken reads the session token from the Authorization header, falling
// back to the access_token query parameter used by EventSource clients.
func BearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("access_token")
}
