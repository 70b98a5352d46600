package services

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/hemoglovida/dashboard/backend/internal/domain/entities"
	"github.com/hemoglovida/dashboard/backend/internal/domain/providers"
	"github.com/hemoglovida/dashboard/backend/internal/domain/repositories"
	apperrors "github.com/hemoglovida/dashboard/backend/pkg/errors"
)

// FacilityService handles the profile of the operating facility
type FacilityService struct {
	repo       repositories.FacilityRepository
	bus        providers.EventBus
	facilityID string
}

// NewFacilityService creates a new facility service
func NewFacilityService(repo repositories.FacilityRepository, bus providers.EventBus, facilityID string) *FacilityService {
	return &FacilityService{
		repo:       repo,
		bus:        bus,
		facilityID: facilityID,
	}
}

// Get retrieves the operating facility. Before the first save the profile is
// empty rather than missing.
func (s *FacilityService) Get(ctx context.Context) (*entities.Facility, error) {
	facility, err := s.repo.GetByID(ctx, s.facilityID)
	if apperrors.Is(err, apperrors.ErrorTypeNotFound) {
		return &entities.Facility{ID: s.facilityID, IsActive: true, Address: entities.Address{Country: "Brasil"}}, nil
	}
	return facility, err
}

// Update validates and saves the profile form
func (s *FacilityService) Update(ctx context.Context, in entities.FacilityInput) (*entities.Facility, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	// 1. Load the current profile so creation metadata survives
	facility, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	if err := in.Apply(facility); err != nil {
		return nil, err
	}

	// 2. Save to database
	if err := s.repo.Upsert(ctx, facility); err != nil {
		return nil, err
	}

	// 3. Notify live views
	event := entities.NewChangeEvent(entities.CollectionFacility, entities.ChangeKindUpdated, s.facilityID, s.facilityID, nil)
	if err := s.bus.Publish(ctx, providers.CollectionChannel(entities.CollectionFacility, s.facilityID), event); err != nil {
		log.Warn().Err(err).Str("facility_id", s.facilityID).Msg("failed to publish facility change")
	}

	log.Info().Str("facility_id", s.facilityID).Str("cnpj", facility.FormattedCNPJ()).Msgf("facility profile saved: %s", facility.Name)
	return facility, nil
}
