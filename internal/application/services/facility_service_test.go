package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hemoglovida/dashboard/backend/internal/application/services"
	"github.com/hemoglovida/dashboard/backend/internal/domain/entities"
	apperrors "github.com/hemoglovida/dashboard/backend/pkg/errors"
)

func TestFacilityService_GetBeforeFirstSave(t *testing.T) {
	repo := new(MockFacilityRepository)
	repo.On("GetByID", mock.Anything, testFacility).Return(nil, apperrors.NewNotFoundError("facility not found"))

	svc := services.NewFacilityService(repo, NewMockEventBus(), testFacility)
	facility, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testFacility, facility.ID)
	assert.True(t, facility.IsActive)
	assert.Equal(t, "Brasil", facility.Address.Country)
}

func TestFacilityService_Update(t *testing.T) {
	input := entities.FacilityInput{
		Name:    "Hemocentro Regional",
		Email:   "contato@hemocentro.org",
		CNPJ:    "11.222.333/0001-81",
		Address: entities.Address{City: "Campinas", State: "sp", CEP: "13083-970"},
	}

	t.Run("saves and notifies", func(t *testing.T) {
		repo := new(MockFacilityRepository)
		bus := NewMockEventBus()
		svc := services.NewFacilityService(repo, bus, testFacility)

		repo.On("GetByID", mock.Anything, testFacility).Return(nil, apperrors.NewNotFoundError("facility not found"))
		repo.On("Upsert", mock.Anything, mock.MatchedBy(func(f *entities.Facility) bool {
			return f.CNPJ == "11222333000181" && f.Address.State == "SP" && f.Address.CEP == "13083970"
		})).Return(nil)

		facility, err := svc.Update(context.Background(), input)
		require.NoError(t, err)
		assert.Equal(t, "Hemocentro Regional", facility.Name)
		require.Len(t, bus.Published(), 1)
		assert.Equal(t, entities.CollectionFacility, bus.Published()[0].Collection)
	})

	t.Run("invalid CNPJ", func(t *testing.T) {
		repo := new(MockFacilityRepository)
		svc := services.NewFacilityService(repo, NewMockEventBus(), testFacility)
		repo.On("GetByID", mock.Anything, testFacility).Return(&entities.Facility{ID: testFacility}, nil)

		bad := input
		bad.CNPJ = "11.222.333/0001-82"
		_, err := svc.Update(context.Background(), bad)
		assert.True(t, apperrors.Is(err, apperrors.ErrorTypeValidation))
		repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	})

	t.Run("missing email", func(t *testing.T) {
		repo := new(MockFacilityRepository)
		svc := services.NewFacilityService(repo, NewMockEventBus(), testFacility)

		bad := input
		bad.Email = ""
		_, err := svc.Update(context.Background(), bad)
		assert.Equal(t, "email is required", apperrors.MessageOf(err))
	})
}
