package handlers_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/hemoglovida/dashboard/backend/internal/api/handlers"
	"github.com/hemoglovida/dashboard/backend/internal/application/services"
	"github.com/hemoglovida/dashboard/backend/internal/domain/entities"
	apperrors "github.com/hemoglovida/dashboard/backend/pkg/errors"
)

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) SignIn(ctx context.Context, email, pass string) (*entities.Session, error) {
	args := m.Called(ctx, email, pass)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Session), args.Error(1)
}

func (m *MockAuthService) SignOut(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func TestAuthHandler_SignIn(t *testing.T) {
	t.Run("returns session", func(t *testing.T) {
		service := new(MockAuthService)
		handler := handlers.NewAuthHandler(service)

		service.On("SignIn", mock.Anything, "ana@hemoglovida.org", "doe-sangue-2025").
			Return(&entities.Session{Token: "jwt", ExpiresAt: handlerNow.Add(8 * time.Hour)}, nil)

		req := httptest.NewRequest("POST", "/api/auth/sign-in",
			bytes.NewBufferString(`{"email":"ana@hemoglovida.org","password":"doe-sangue-2025"}`))
		w := httptest.NewRecorder()
		handler.SignIn(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"token":"jwt"`)
		service.AssertExpectations(t)
	})

	t.Run("wrong credentials", func(t *testing.T) {
		service := new(MockAuthService)
		handler := handlers.NewAuthHandler(service)

		service.On("SignIn", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, apperrors.NewUnauthorizedError("invalid email or password"))

		req := httptest.NewRequest("POST", "/api/auth/sign-in", bytes.NewBufferString(`{"email":"a@b.c","password":"x"}`))
		w := httptest.NewRecorder()
		handler.SignIn(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAuthHandler_SignOut(t *testing.T) {
	t.Run("revokes bearer token", func(t *testing.T) {
		service := new(MockAuthService)
		handler := handlers.NewAuthHandler(service)
		service.On("SignOut", mock.Anything, "jwt").Return(nil)

		req := httptest.NewRequest("POST", "/api/auth/sign-out", nil)
		req.Header.Set("Authorization", "Bearer jwt")
		w := httptest.NewRecorder()
		handler.SignOut(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		service.AssertExpectations(t)
	})

	t.Run("missing token", func(t *testing.T) {
		service := new(MockAuthService)
		handler := handlers.NewAuthHandler(service)

		req := httptest.NewRequest("POST", "/api/auth/sign-out", nil)
		w := httptest.NewRecorder()
		handler.SignOut(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		service.AssertNotCalled(t, "SignOut", mock.Anything, mock.Anything)
	})
}

func TestAuthHandler_Me(t *testing.T) {
	handler := handlers.NewAuthHandler(new(MockAuthService))

	req := httptest.NewRequest("GET", "/api/auth/me", nil)
	req = req.WithContext(services.WithClaims(req.Context(), &entities.Claims{UserID: "user-1", Email: "ana@hemoglovida.org", Admin: true}))
	w := httptest.NewRecorder()
	handler.Me(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"admin":true`)

	w = httptest.NewRecorder()
	handler.Me(w, httptest.NewRequest("GET", "/api/auth/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		target string
		want   string
	}{
		{name: "bearer header", header: "Bearer abc", target: "/", want: "abc"},
		{name: "case insensitive scheme", header: "bearer abc", target: "/", want: "abc"},
		{name: "other scheme", header: "Basic abc", target: "/", want: ""},
		{name: "query fallback", target: "/api/stream/appointments?access_token=xyz", want: "xyz"},
		{name: "header wins over query", header: "Bearer abc", target: "/?access_token=xyz", want: "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			assert.Equal(t, tt.want, handlers.BearerToken(req))
		})
	}
}
