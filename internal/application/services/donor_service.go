package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hemoglovida/dashboard/backend/internal/domain/entities"
	"github.com/hemoglovida/dashboard/backend/internal/domain/providers"
	"github.com/hemoglovida/dashboard/backend/internal/domain/repositories"
	apperrors "github.com/hemoglovida/dashboard/backend/pkg/errors"
)

// DonorListParams selects a page of donors
type DonorListParams struct {
	Status    entities.DonorStatus
	BloodType entities.BloodType
	Query     string
	Limit     int
	Offset    int
}

// DonorPage is one page of donors plus the total matching count
type DonorPage struct {
	Donors []*entities.Donor `json:"donors"`
	Total  int               `json:"total"`
}

// DonorService handles the donor registry
type DonorService struct {
	repo       repositories.DonorRepository
	search     repositories.DonorSearchRepository
	activities ActivityRecorder
	bus        providers.EventBus
	facilityID string
}

// NewDonorService creates a new donor service. search may be nil, in which
// case text queries run against the database.
func NewDonorService(
	repo repositories.DonorRepository,
	search repositories.DonorSearchRepository,
	activities ActivityRecorder,
	bus providers.EventBus,
	facilityID string,
) *DonorService {
	return &DonorService{
		repo:       repo,
		search:     search,
		activities: activities,
		bus:        bus,
		facilityID: facilityID,
	}
}

// Create registers a donor at the operating facility
func (s *DonorService) Create(ctx context.Context, in entities.DonorInput) (*entities.Donor, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	donor := &entities.Donor{
		ID:         uuid.NewString(),
		FacilityID: s.facilityID,
	}
	if err := in.Apply(donor); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, donor); err != nil {
		return nil, err
	}

	s.index(ctx, donor)
	s.publish(ctx, entities.ChangeKindCreated, donor.ID)
	s.activities.Record(ctx, entities.ActivityDonorCreated, donor.ID,
		fmt.Sprintf("%s (%s) cadastrado", donor.Name, donor.BloodType))
	return donor, nil
}

// Get returns a donor of the operating facility
func (s *DonorService) Get(ctx context.Context, id string) (*entities.Donor, error) {
	donor, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if donor.FacilityID != s.facilityID {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("donor with id %s not found", id))
	}
	return donor, nil
}

// GetByIDs returns the donors with the given ids, skipping missing ones
func (s *DonorService) GetByIDs(ctx context.Context, ids []string) ([]*entities.Donor, error) {
	return s.repo.GetByIDs(ctx, ids)
}

// Update replaces the profile fields of a donor
func (s *DonorService) Update(ctx context.Context, id string, in entities.DonorInput) (*entities.Donor, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	donor, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := in.Apply(donor); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, donor); err != nil {
		return nil, err
	}

	s.index(ctx, donor)
	s.publish(ctx, entities.ChangeKindUpdated, donor.ID)
	s.activities.Record(ctx, entities.ActivityDonorUpdated, donor.ID,
		fmt.Sprintf("Dados de %s atualizados", donor.Name))
	return donor, nil
}

// Deactivate removes a donor from the active registry. Donors are never deleted.
func (s *DonorService) Deactivate(ctx context.Context, id string) error {
	donor, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if donor.Status == entities.DonorStatusInactive {
		return nil
	}
	if err := s.repo.SetStatus(ctx, id, entities.DonorStatusInactive); err != nil {
		return err
	}

	donor.Status = entities.DonorStatusInactive
	s.index(ctx, donor)
	s.publish(ctx, entities.ChangeKindUpdated, id)
	s.activities.Record(ctx, entities.ActivityDonorDeactivated, id,
		fmt.Sprintf("%s inativado", donor.Name))
	return nil
}

// List returns a page of donors. Text queries go to the search index when
// one is configured and fall back to the database when it fails.
func (s *DonorService) List(ctx context.Context, params DonorListParams) (*DonorPage, error) {
	params.Query = strings.TrimSpace(params.Query)
	if params.Limit <= 0 {
		params.Limit = 20
	}

	if params.Query != "" && s.search != nil {
		page, err := s.searchIndex(ctx, params)
		if err == nil {
			return page, nil
		}
		log.Warn().Err(err).Str("query", params.Query).Msg("donor search failed, falling back to database")
	}

	filter := repositories.DonorFilter{
		FacilityID: s.facilityID,
		Status:     params.Status,
		BloodType:  params.BloodType,
		Query:      params.Query,
		Limit:      params.Limit,
		Offset:     params.Offset,
	}
	donors, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &DonorPage{Donors: donors, Total: total}, nil
}

func (s *DonorService) searchIndex(ctx context.Context, params DonorListParams) (*DonorPage, error) {
	ids, err := s.search.Search(ctx, s.facilityID, params.Query, params.Limit+params.Offset)
	if err != nil {
		return nil, err
	}
	found, err := s.repo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*entities.Donor, len(found))
	for _, d := range found {
		byID[d.ID] = d
	}

	// keep relevance order, apply the structured filters the index does not know
	matched := make([]*entities.Donor, 0, len(ids))
	for _, id := range ids {
		d, ok := byID[id]
		if !ok {
			continue
		}
		if params.Status != "" && d.Status != params.Status {
			continue
		}
		if params.BloodType != "" && d.BloodType != params.BloodType {
			continue
		}
		matched = append(matched, d)
	}

	page := &DonorPage{Donors: []*entities.Donor{}, Total: len(matched)}
	if params.Offset < len(matched) {
		end := params.Offset + params.Limit
		if end > len(matched) {
			end = len(matched)
		}
		page.Donors = matched[params.Offset:end]
	}
	return page, nil
}

// Reindex pushes every donor of the facility to the search index
func (s *DonorService) Reindex(ctx context.Context) (int, error) {
	if s.search == nil {
		return 0, apperrors.NewValidationError("donor search is not configured")
	}

	const batch = 200
	indexed := 0
	for offset := 0; ; offset += batch {
		donors, err := s.repo.List(ctx, repositories.DonorFilter{FacilityID: s.facilityID, Limit: batch, Offset: offset})
		if err != nil {
			return indexed, err
		}
		for _, d := range donors {
			if err := s.search.Index(ctx, d); err != nil {
				return indexed, err
			}
			indexed++
		}
		if len(donors) < batch {
			return indexed, nil
		}
	}
}

func (s *DonorService) index(ctx context.Context, donor *entities.Donor) {
	if s.search == nil {
		return
	}
	if err := s.search.Index(ctx, donor); err != nil {
		log.Warn().Err(err).Str("donor_id", donor.ID).Msg("failed to index donor")
	}
}

func (s *DonorService) publish(ctx context.Context, kind entities.ChangeKind, id string) {
	event := entities.NewChangeEvent(entities.CollectionDonors, kind, s.facilityID, id, nil)
	if err := s.bus.Publish(ctx, providers.CollectionChannel(entities.CollectionDonors, s.facilityID), event); err != nil {
		log.Warn().Err(err).Str("donor_id", id).Msg("failed to publish donor change")
	}
}
