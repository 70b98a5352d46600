package routes_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hemoglovida/dashboard/backend/internal/api/handlers"
	"github.com/hemoglovida/dashboard/backend/internal/api/routes"
	"github.com/hemoglovida/dashboard/backend/internal/domain/entities"
	apperrors "github.com/hemoglovida/dashboard/backend/pkg/errors"
)

type staticVerifier map[string]*entities.Claims

func (v staticVerifier) Claims(ctx context.Context, token string) (*entities.Claims, error) {
	if c, ok := v[token]; ok {
		return c, nil
	}
	return nil, apperrors.NewUnauthorizedError("invalid session token")
}

type staticFacility struct{}

func (staticFacility) Get(ctx context.Context) (*entities.Facility, error) {
	return &entities.Facility{ID: "fac-1", Name: "Hemocentro Regional"}, nil
}

func (staticFacility) Update(ctx context.Context, in entities.FacilityInput) (*entities.Facility, error) {
	return nil, apperrors.NewValidationError("read only")
}

func newTestRouter() http.Handler {
	verifier := staticVerifier{
		"admin-token":    {UserID: "u1", FacilityID: "fac-1", Admin: true},
		"operator-token": {UserID: "u2", FacilityID: "fac-1"},
	}
	h := routes.Handlers{Facility: handlers.NewFacilityHandler(staticFacility{})}
	return routes.NewRouter(h, verifier, nil, nil, []string{"https://painel.hemoglovida.org"}, nil).SetupRoutes()
}

func TestRouter(t *testing.T) {
	router := newTestRouter()

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		wantStatus int
	}{
		{name: "health is public", method: http.MethodGet, path: "/health", wantStatus: http.StatusOK},
		{name: "no session", method: http.MethodGet, path: "/api/facility", wantStatus: http.StatusUnauthorized},
		{name: "operator without admin claim", method: http.MethodGet, path: "/api/facility", token: "operator-token", wantStatus: http.StatusForbidden},
		{name: "admin", method: http.MethodGet, path: "/api/facility", token: "admin-token", wantStatus: http.StatusOK},
		{name: "unregistered handler group", method: http.MethodGet, path: "/api/donors", token: "admin-token", wantStatus: http.StatusNotFound},
		{name: "preflight skips session", method: http.MethodOptions, path: "/api/facility", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			req.Header.Set("Origin", "https://painel.hemoglovida.org")
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rr := httptest.NewRecorder()

			router.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, "https://painel.hemoglovida.org", rr.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestRouter_FacilityBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/facility", nil)
	req.Header.Set("Authorization", "Bearer admin-token")
	rr := httptest.NewRecorder()

	newTestRouter().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"name":"Hemocentro Regional"`)
	assert.Equal(t, "private, max-age=60, must-revalidate", rr.Header().Get("Cache-Control"))
}
