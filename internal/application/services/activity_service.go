package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hemoglovida/dashboard/backend/internal/domain/entities"
	"github.com/hemoglovida/dashboard/backend/internal/domain/repositories"
	"github.com/hemoglovida/dashboard/backend/pkg/calendar"
)

// ActivityRecorder appends entries to the activity log. Recording never
// fails the write that triggered it.
type ActivityRecorder interface {
	Record(ctx context.Context, activityType entities.ActivityType, subjectID, description string)
}

// ActivityService writes and reads the facility's activity log
type ActivityService struct {
	repo       repositories.ActivityRepository
	facilityID string
	clock      calendar.Clock
}

// NewActivityService creates a new activity service
func NewActivityService(repo repositories.ActivityRepository, facilityID string, clock calendar.Clock) *ActivityService {
	return &ActivityService{
		repo:       repo,
		facilityID: facilityID,
		clock:      clock,
	}
}

// Record appends an entry attributed to the signed-in operator, if any
func (s *ActivityService) Record(ctx context.Context, activityType entities.ActivityType, subjectID, description string) {
	entry := &entities.Activity{
		ID:          uuid.NewString(),
		FacilityID:  s.facilityID,
		Type:        activityType,
		Description: description,
		SubjectID:   subjectID,
		OccurredAt:  s.clock.Now(),
	}
	if claims, ok := ClaimsFromContext(ctx); ok {
		entry.ActorID = claims.UserID
	}

	if err := s.repo.Append(ctx, entry); err != nil {
		log.Warn().Err(err).
			Str("type", string(activityType)).
			Str("subject_id", subjectID).
			Msg("failed to record activity")
	}
}

// List returns entries newest first. An empty section lists every type.
func (s *ActivityService) List(ctx context.Context, section entities.ActivitySection, limit, offset int) ([]*entities.Activity, error) {
	filter := repositories.ActivityFilter{
		FacilityID: s.facilityID,
		Limit:      limit,
		Offset:     offset,
	}
	if section != "" {
		filter.Types = entities.ActivityTypesIn(section)
	}
	return s.repo.List(ctx, filter)
}

// Recent returns the latest n entries across all sections
func (s *ActivityService) Recent(ctx context.Context, n int) ([]*entities.Activity, error) {
	return s.List(ctx, "", n, 0)
}
