package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/hemoglovida/dashboard/backend/internal/api/handlers"
	"github.com/hemoglovida/dashboard/backend/internal/application/services"
	"github.com/hemoglovida/dashboard/backend/internal/domain/entities"
	apperrors "github.com/hemoglovida/dashboard/backend/pkg/errors"
)

// SessionVerifier resolves a session token to its claims
type SessionVerifier interface {
	Claims(ctx context.Context, token string) (*entities.Claims, error)
}

// RequireSession rejects requests without a live session and stores the
// session claims on the request context.
func RequireSession(verifier SessionVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := handlers.BearerToken(r)
			if token == "" {
				writeAuthError(w, apperrors.NewUnauthorizedError("missing session token"))
				return
			}

			claims, err := verifier.Claims(r.Context(), token)
			if err != nil {
				writeAuthError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(services.WithClaims(r.Context(), claims)))
		})
	}
}

// RequireAdmin only lets operators holding the admin claim through. It must
// run after RequireSession.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := services.ClaimsFromContext(r.Context())
		if !ok {
			writeAuthError(w, apperrors.NewUnauthorizedError("not signed in"))
			return
		}
		if err := services.RequireAdmin(claims); err != nil {
			log.Warn().Str("user_id", claims.UserID).Str("path", r.URL.Path).Msg("admin route refused")
			writeAuthError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeAuthError(w http.ResponseWriter, err error) {
	status := handlers.StatusFor(err)
	message := apperrors.MessageOf(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("session check failed")
		message = "internal server error"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
