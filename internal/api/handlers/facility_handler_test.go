package handlers_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/hemoglovida/dashboard/backend/internal/api/handlers"
	"github.com/hemoglovida/dashboard/backend/internal/domain/entities"
	apperrors "github.com/hemoglovida/dashboard/backend/pkg/errors"
)

type MockFacilityService struct {
	mock.Mock
}

func (m *MockFacilityService) Get(ctx context.Context) (*entities.Facility, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Facility), args.Error(1)
}

func (m *MockFacilityService) Update(ctx context.Context, in entities.FacilityInput) (*entities.Facility, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Facility), args.Error(1)
}

func TestFacilityHandler_GetFacility(t *testing.T) {
	service := new(MockFacilityService)
	handler := handlers.NewFacilityHandler(service)

	service.On("Get", mock.Anything).Return(&entities.Facility{ID: "fac-1", Name: "Hemocentro Campinas"}, nil)

	w := httptest.NewRecorder()
	handler.GetFacility(w, httptest.NewRequest("GET", "/api/facility", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Hemocentro Campinas")
	service.AssertExpectations(t)
}

func TestFacilityHandler_UpdateFacility(t *testing.T) {
	t.Run("returns bad request for invalid payload", func(t *testing.T) {
		service := new(MockFacilityService)
		handler := handlers.NewFacilityHandler(service)

		w := httptest.NewRecorder()
		handler.UpdateFacility(w, httptest.NewRequest("PUT", "/api/facility", bytes.NewBufferString("{")))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		service.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("maps validation error", func(t *testing.T) {
		service := new(MockFacilityService)
		handler := handlers.NewFacilityHandler(service)

		service.On("Update", mock.Anything, mock.Anything).Return(nil, apperrors.NewValidationError("invalid CNPJ"))

		w := httptest.NewRecorder()
		handler.UpdateFacility(w, httptest.NewRequest("PUT", "/api/facility", bytes.NewBufferString(`{"name":"X","cnpj":"1"}`)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"invalid CNPJ"}`, w.Body.String())
	})
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperrors.NewValidationError("bad"), http.StatusBadRequest},
		{apperrors.NewNotFoundError("missing"), http.StatusNotFound},
		{apperrors.NewUnauthorizedError("who"), http.StatusUnauthorized},
		{apperrors.NewForbiddenError("no"), http.StatusForbidden},
		{apperrors.NewConflictError("dup"), http.StatusConflict},
		{apperrors.NewTransientError("retry", errors.New("x")), http.StatusServiceUnavailable},
		{apperrors.NewPartialError("half", errors.New("x")), http.StatusMultiStatus},
		{apperrors.NewExternalError("telegram", errors.New("x")), http.StatusBadGateway},
		{errors.New("plain"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, handlers.StatusFor(tt.err), tt.err.Error())
	}
}
