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

// DoubleBookingPolicy decides what happens when a new appointment lands on an
// occupied slot
type DoubleBookingPolicy string

const (
	DoubleBookingAllow  DoubleBookingPolicy = "allow"
	DoubleBookingWarn   DoubleBookingPolicy = "warn"
	DoubleBookingReject DoubleBookingPolicy = "reject"
)

// ParseDoubleBookingPolicy parses a configured policy; empty means allow
func ParseDoubleBookingPolicy(s string) (DoubleBookingPolicy, error) {
	switch p := DoubleBookingPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return DoubleBookingAllow, nil
	case DoubleBookingAllow, DoubleBookingWarn, DoubleBookingReject:
		return p, nil
	}
	return "", apperrors.NewValidationError(fmt.Sprintf("unknown double booking policy %q", s))
}

// CreateResult is the outcome of a booking
type CreateResult struct {
	Appointment *entities.Appointment `json:"appointment"`
	// Conflicts counts other non-cancelled appointments on the same slot; only
	// reported under the warn policy
	Conflicts int `json:"conflicts,omitempty"`
}

// AppointmentStore exposes the operating facility's appointments as a live
// collection and performs the writes the scheduling screen issues
type AppointmentStore struct {
	repo       repositories.AppointmentRepository
	bus        providers.EventBus
	activities ActivityRecorder
	facilityID string
	policy     DoubleBookingPolicy
	clock      calendar.Clock
	live       *LiveCollection[*entities.Appointment]
}

// NewAppointmentStore creates a store bound to facilityID
func NewAppointmentStore(
	repo repositories.AppointmentRepository,
	bus providers.EventBus,
	activities ActivityRecorder,
	facilityID string,
	policy DoubleBookingPolicy,
	clock calendar.Clock,
) *AppointmentStore {
	if policy == "" {
		policy = DoubleBookingAllow
	}
	s := &AppointmentStore{
		repo:       repo,
		bus:        bus,
		activities: activities,
		facilityID: facilityID,
		policy:     policy,
		clock:      clock,
	}
	s.live = NewLiveCollection(bus, providers.AppointmentsChannel(facilityID), s.snapshot)
	return s
}

// FacilityID returns the facility the store is bound to
func (s *AppointmentStore) FacilityID() string {
	return s.facilityID
}

// Subscribe delivers the full appointment list, sorted by time of day, now
// and after every change
func (s *AppointmentStore) Subscribe(ctx context.Context, onChange func([]*entities.Appointment)) (func(), error) {
	return s.live.Subscribe(ctx, onChange)
}

// Snapshot reads the sorted appointment list once
func (s *AppointmentStore) Snapshot(ctx context.Context) ([]*entities.Appointment, error) {
	return s.live.Snapshot(ctx)
}

func (s *AppointmentStore) snapshot(ctx context.Context) ([]*entities.Appointment, error) {
	list, err := s.repo.ListByFacility(ctx, s.facilityID, repositories.AppointmentFilter{})
	if err != nil {
		return nil, err
	}
	entities.SortAppointments(list)
	return list, nil
}

// List returns appointments matching filter in date and time order
func (s *AppointmentStore) List(ctx context.Context, filter repositories.AppointmentFilter) ([]*entities.Appointment, error) {
	return s.repo.ListByFacility(ctx, s.facilityID, filter)
}

// Get returns one appointment of the facility
func (s *AppointmentStore) Get(ctx context.Context, id string) (*entities.Appointment, error) {
	apt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if apt.FacilityID != s.facilityID {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("appointment with id %s not found", id))
	}
	return apt, nil
}

// Create books a new appointment at the store's facility
func (s *AppointmentStore) Create(ctx context.Context, in entities.NewAppointmentInput) (*CreateResult, error) {
	date, tod, err := in.Parse()
	if err != nil {
		return nil, err
	}

	result := &CreateResult{}
	if s.policy != DoubleBookingAllow {
		conflicts, err := s.repo.CountSlotConflicts(ctx, s.facilityID, date, tod)
		if err != nil {
			return nil, err
		}
		if conflicts > 0 && s.policy == DoubleBookingReject {
			return nil, apperrors.NewConflictError(fmt.Sprintf("slot %s %s is already booked", date.Display(), tod))
		}
		result.Conflicts = conflicts
	}

	apt := &entities.Appointment{
		ID:          uuid.NewString(),
		FacilityID:  s.facilityID,
		PatientName: strings.TrimSpace(in.PatientName),
		Date:        date,
		Time:        tod,
		Status:      in.InitialStatus(),
		Notes:       strings.TrimSpace(in.Notes),
	}
	if in.DonorID != nil && strings.TrimSpace(*in.DonorID) != "" {
		donorID := strings.TrimSpace(*in.DonorID)
		apt.DonorID = &donorID
	}

	if err := s.repo.Create(ctx, apt); err != nil {
		return nil, err
	}
	result.Appointment = apt

	s.publish(ctx, entities.ChangeKindCreated, apt.ID, map[string]interface{}{"status": apt.Status.Code()})
	if s.activities != nil {
		s.activities.Record(ctx, entities.ActivityAppointmentCreated, apt.ID,
			fmt.Sprintf("%s agendado para %s às %s", apt.PatientName, apt.Date.Display(), apt.Time))
	}
	return result, nil
}

// SetStatus writes only the status of an appointment
func (s *AppointmentStore) SetStatus(ctx context.Context, id string, status entities.AppointmentStatus) error {
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return err
	}
	s.publish(ctx, entities.ChangeKindUpdated, id, map[string]interface{}{"status": status.Code()})
	return nil
}

// MarkCompleted moves an appointment to Completed and raises its pending
// eligibility marker when it references a donor
func (s *AppointmentStore) MarkCompleted(ctx context.Context, id string) error {
	if err := s.repo.MarkCompleted(ctx, id, s.clock.Now()); err != nil {
		return err
	}
	s.publish(ctx, entities.ChangeKindUpdated, id, map[string]interface{}{"status": entities.AppointmentStatusCompleted.Code()})
	return nil
}

func (s *AppointmentStore) publish(ctx context.Context, kind entities.ChangeKind, id string, fields map[string]interface{}) {
	event := entities.NewChangeEvent(entities.CollectionAppointments, kind, s.facilityID, id, fields)
	if err := s.bus.Publish(ctx, providers.AppointmentsChannel(s.facilityID), event); err != nil {
		// the write already succeeded; subscribers catch up on the next change
		log.Warn().Err(err).Str("appointment_id", id).Msg("failed to publish appointment change")
	}
}
