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
	"github.com/hemoglovida/dashboard/backend/pkg/calendar"
	apperrors "github.com/hemoglovida/dashboard/backend/pkg/errors"
)

// AlertResult reports a delivered blood-type alert
type AlertResult struct {
	MessageID  string   `json:"message_id"`
	BloodTypes []string `json:"blood_types"`
}

// CampaignService handles donation campaigns and their alerts
type CampaignService struct {
	repo       repositories.CampaignRepository
	facilities repositories.FacilityRepository
	alerts     providers.AlertSender
	activities ActivityRecorder
	bus        providers.EventBus
	facilityID string
	clock      calendar.Clock
}

// NewCampaignService creates a new campaign service
func NewCampaignService(
	repo repositories.CampaignRepository,
	facilities repositories.FacilityRepository,
	alerts providers.AlertSender,
	activities ActivityRecorder,
	bus providers.EventBus,
	facilityID string,
	clock calendar.Clock,
) *CampaignService {
	return &CampaignService{
		repo:       repo,
		facilities: facilities,
		alerts:     alerts,
		activities: activities,
		bus:        bus,
		facilityID: facilityID,
		clock:      clock,
	}
}

// Create creates a campaign at the operating facility
func (s *CampaignService) Create(ctx context.Context, in entities.CampaignInput) (*entities.Campaign, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	campaign := &entities.Campaign{
		ID:         uuid.NewString(),
		FacilityID: s.facilityID,
	}
	if err := in.Apply(campaign); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, campaign); err != nil {
		return nil, err
	}

	s.publish(ctx, entities.ChangeKindCreated, campaign.ID)
	s.activities.Record(ctx, entities.ActivityCampaignCreated, campaign.ID,
		fmt.Sprintf("Campanha %q criada (%s a %s)", campaign.Name, campaign.StartDate.Display(), campaign.EndDate.Display()))
	return campaign, nil
}

// Get returns a campaign of the operating facility
func (s *CampaignService) Get(ctx context.Context, id string) (*entities.Campaign, error) {
	campaign, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if campaign.FacilityID != s.facilityID {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("campaign with id %s not found", id))
	}
	return campaign, nil
}

// Update replaces the editable fields of a campaign
func (s *CampaignService) Update(ctx context.Context, id string, in entities.CampaignInput) (*entities.Campaign, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	campaign, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := in.Apply(campaign); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, campaign); err != nil {
		return nil, err
	}

	s.publish(ctx, entities.ChangeKindUpdated, id)
	s.activities.Record(ctx, entities.ActivityCampaignUpdated, id,
		fmt.Sprintf("Campanha %q atualizada", campaign.Name))
	return campaign, nil
}

// Delete removes a campaign
func (s *CampaignService) Delete(ctx context.Context, id string) error {
	campaign, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.publish(ctx, entities.ChangeKindDeleted, id)
	s.activities.Record(ctx, entities.ActivityCampaignDeleted, id,
		fmt.Sprintf("Campanha %q removida", campaign.Name))
	return nil
}

// List returns campaigns, most recent first. activeOnly keeps campaigns running today.
func (s *CampaignService) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*entities.Campaign, error) {
	filter := repositories.CampaignFilter{
		FacilityID: s.facilityID,
		Limit:      limit,
		Offset:     offset,
	}
	if activeOnly {
		today := calendar.Today(s.clock)
		filter.ActiveOn = &today
	}
	return s.repo.List(ctx, filter)
}

// SendAlert asks donors of the campaign's target blood types to come donate
func (s *CampaignService) SendAlert(ctx context.Context, id, message string) (*AlertResult, error) {
	campaign, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if campaign.HasEnded(calendar.Today(s.clock)) {
		return nil, apperrors.NewValidationError("campaign has already ended")
	}
	if len(campaign.TargetBloodTypes) == 0 {
		return nil, apperrors.NewValidationError("campaign has no target blood types")
	}

	facility, err := s.facilities.GetByID(ctx, s.facilityID)
	if err != nil && !apperrors.Is(err, apperrors.ErrorTypeNotFound) {
		return nil, err
	}

	bloodTypes := []string(campaign.TargetBloodTypes)
	messageID, err := s.alerts.SendBloodTypeAlert(ctx, providers.BloodTypeAlert{
		Campaign:   campaign,
		Facility:   facility,
		BloodTypes: bloodTypes,
		Message:    strings.TrimSpace(message),
	})
	if err != nil {
		return nil, apperrors.NewExternalError("failed to send blood type alert", err)
	}

	log.Info().Str("campaign_id", id).Str("message_id", messageID).Strs("blood_types", bloodTypes).Msg("blood type alert sent")
	s.activities.Record(ctx, entities.ActivityAlertSent, id,
		fmt.Sprintf("Alerta para %s enviado (%s)", strings.Join(bloodTypes, ", "), campaign.Name))
	return &AlertResult{MessageID: messageID, BloodTypes: bloodTypes}, nil
}

func (s *CampaignService) publish(ctx context.Context, kind entities.ChangeKind, id string) {
	event := entities.NewChangeEvent(entities.CollectionCampaigns, kind, s.facilityID, id, nil)
	if err := s.bus.Publish(ctx, providers.CollectionChannel(entities.CollectionCampaigns, s.facilityID), event); err != nil {
		log.Warn().Err(err).Str("campaign_id", id).Msg("failed to publish campaign change")
	}
}
