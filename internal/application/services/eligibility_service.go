package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hemoglovida/dashboard/backend/internal/domain/entities"
	"github.com/hemoglovida/dashboard/backend/internal/domain/providers"
	"github.com/hemoglovida/dashboard/backend/internal/domain/repositories"
	"github.com/hemoglovida/dashboard/backend/internal/infrastructure/observability"
	"github.com/hemoglovida/dashboard/backend/pkg/calendar"
	apperrors "github.com/hemoglovida/dashboard/backend/pkg/errors"
)

// EligibilityService applies the donor-side effects of a completed donation
type EligibilityService struct {
	donors       repositories.DonorRepository
	appointments repositories.AppointmentRepository
	bus          providers.EventBus
}

// NewEligibilityService creates a new eligibility service
func NewEligibilityService(
	donors repositories.DonorRepository,
	appointments repositories.AppointmentRepository,
	bus providers.EventBus,
) *EligibilityService {
	return &EligibilityService{
		donors:       donors,
		appointments: appointments,
		bus:          bus,
	}
}

// ApplyDonationCompletion credits a donation made today to the donor. An
// empty id or a donor that no longer exists is a no-op.
func (s *EligibilityService) ApplyDonationCompletion(ctx context.Context, donorID string, today calendar.Date) error {
	_, err := s.apply(ctx, donorID, "", today)
	return err
}

// ApplyForAppointment credits the donation recorded by a completed
// appointment. The appointment's pending marker guarantees the donor is
// credited at most once; applied is false when there was nothing to do.
func (s *EligibilityService) ApplyForAppointment(ctx context.Context, apt *entities.Appointment, today calendar.Date) (applied bool, err error) {
	if !apt.HasDonor() {
		return false, nil
	}
	return s.apply(ctx, *apt.DonorID, apt.ID, today)
}

func (s *EligibilityService) apply(ctx context.Context, donorID, appointmentID string, today calendar.Date) (bool, error) {
	donorID = strings.TrimSpace(donorID)
	if donorID == "" {
		return false, nil
	}

	donor, err := s.donors.GetByID(ctx, donorID)
	if apperrors.Is(err, apperrors.ErrorTypeNotFound) {
		log.Info().Str("donor_id", donorID).Str("appointment_id", appointmentID).
			Msg("donor record not found, skipping eligibility update")
		if appointmentID != "" {
			return false, s.appointments.ClearEligibilityPending(ctx, appointmentID)
		}
		return false, nil
	}
	if err != nil {
		return false, err
	}

	applied, err := s.donors.RecordDonation(ctx, entities.NewDonationRecord(donor, appointmentID, today))
	if err != nil {
		return false, err
	}
	if applied {
		event := entities.NewChangeEvent(entities.CollectionDonors, entities.ChangeKindUpdated, donor.FacilityID, donor.ID,
			map[string]interface{}{"donation_count": donor.DonationCount + 1})
		if err := s.bus.Publish(ctx, providers.CollectionChannel(entities.CollectionDonors, donor.FacilityID), event); err != nil {
			log.Warn().Err(err).Str("donor_id", donor.ID).Msg("failed to publish donor change")
		}
	}
	return applied, nil
}

// CompletionService concludes a donation in two phases: the appointment is
// marked Completed with a pending marker, then the donor is credited. A donor
// failure leaves the marker set for the reconciler.
type CompletionService struct {
	store       AppointmentWriter
	eligibility *EligibilityService
	clock       calendar.Clock
	metrics     *observability.Metrics
}

// AppointmentWriter issues appointment status writes
type AppointmentWriter interface {
	SetStatus(ctx context.Context, id string, status entities.AppointmentStatus) error
	MarkCompleted(ctx context.Context, id string) error
}

// NewCompletionService creates a new completion service
func NewCompletionService(store AppointmentWriter, eligibility *EligibilityService, clock calendar.Clock, metrics *observability.Metrics) *CompletionService {
	return &CompletionService{
		store:       store,
		eligibility: eligibility,
		clock:       clock,
		metrics:     metrics,
	}
}

// Conclude completes apt. When only the first phase succeeds the returned
// error has type PARTIAL.
func (s *CompletionService) Conclude(ctx context.Context, apt *entities.Appointment) error {
	if err := s.store.MarkCompleted(ctx, apt.ID); err != nil {
		return err
	}

	if _, err := s.eligibility.ApplyForAppointment(ctx, apt, calendar.Today(s.clock)); err != nil {
		observability.RecordPartialCompletion(ctx, s.metrics)
		log.Error().Err(err).
			Str("appointment_id", apt.ID).
			Msg("appointment completed but donor update failed; left for reconciliation")
		return apperrors.NewPartialError("appointment completed but the donor record was not updated; it will be retried", err)
	}
	return nil
}

// EligibilityReconciler retries donor updates left pending by partial completions
type EligibilityReconciler struct {
	appointments repositories.AppointmentRepository
	eligibility  *EligibilityService
	clock        calendar.Clock
	metrics      *observability.Metrics
}

// NewEligibilityReconciler creates a new reconciler
func NewEligibilityReconciler(
	appointments repositories.AppointmentRepository,
	eligibility *EligibilityService,
	clock calendar.Clock,
	metrics *observability.Metrics,
) *EligibilityReconciler {
	return &EligibilityReconciler{
		appointments: appointments,
		eligibility:  eligibility,
		clock:        clock,
		metrics:      metrics,
	}
}

// ReconcilePending applies up to limit pending donor updates, each dated on
// the day its appointment was completed. It returns how many were applied;
// failures are joined and the remaining appointments are still attempted.
func (r *EligibilityReconciler) ReconcilePending(ctx context.Context, limit int) (int, error) {
	pending, err := r.appointments.ListEligibilityPending(ctx, limit)
	if err != nil {
		return 0, err
	}

	loc := r.clock.Now().Location()
	applied := 0
	var errs []error
	for _, apt := range pending {
		day := calendar.Today(r.clock)
		if apt.CompletedAt != nil {
			day = calendar.DateOf(apt.CompletedAt.In(loc))
		}

		ok, err := r.eligibility.ApplyForAppointment(ctx, apt, day)
		if err != nil {
			log.Warn().Err(err).Str("appointment_id", apt.ID).Msg("eligibility reconciliation failed")
			errs = append(errs, err)
			continue
		}
		if !apt.HasDonor() {
			// marker raised without a usable donor reference
			if err := r.appointments.ClearEligibilityPending(ctx, apt.ID); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		if ok {
			applied++
		}
	}

	observability.RecordReconciled(ctx, r.metrics, applied)
	return applied, errors.Join(errs...)
}

// Run reconciles every interval until ctx is done
func (r *EligibilityReconciler) Run(ctx context.Context, interval time.Duration, batch int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := r.ReconcilePending(ctx, batch)
			if err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("eligibility reconciliation pass finished with errors")
			}
			if n > 0 {
				log.Info().Int("applied", n).Msg("applied pending donor updates")
			}
		}
	}
}
