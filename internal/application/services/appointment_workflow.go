package services

import (
	"context"
	"fmt"

	"github.com/hemoglovida/dashboard/backend/internal/domain/entities"
	"github.com/hemoglovida/dashboard/backend/internal/infrastructure/observability"
	"github.com/hemoglovida/dashboard/backend/pkg/calendar"
	apperrors "github.com/hemoglovida/dashboard/backend/pkg/errors"
)

// AppointmentWorkflow validates status transitions against the current time
// and issues the matching write
type AppointmentWorkflow struct {
	store      *AppointmentStore
	completion *CompletionService
	activities ActivityRecorder
	clock      calendar.Clock
	metrics    *observability.Metrics
}

// NewAppointmentWorkflow creates a new appointment workflow
func NewAppointmentWorkflow(
	store *AppointmentStore,
	completion *CompletionService,
	activities ActivityRecorder,
	clock calendar.Clock,
	metrics *observability.Metrics,
) *AppointmentWorkflow {
	return &AppointmentWorkflow{
		store:      store,
		completion: completion,
		activities: activities,
		clock:      clock,
		metrics:    metrics,
	}
}

// ApplyByID loads the appointment and applies action to it
func (w *AppointmentWorkflow) ApplyByID(ctx context.Context, id string, action entities.AppointmentAction) (entities.AppointmentStatus, error) {
	apt, err := w.store.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	return w.Apply(ctx, apt, action)
}

// Apply moves apt to the status action leads to. A conclusion whose donor
// update failed returns the Completed status together with a PARTIAL error.
func (w *AppointmentWorkflow) Apply(ctx context.Context, apt *entities.Appointment, action entities.AppointmentAction) (entities.AppointmentStatus, error) {
	from := apt.Status
	to, err := entities.Transition(from, action, apt.IsPast(w.clock.Now()))
	if err != nil {
		return 0, err
	}

	if to == entities.AppointmentStatusCompleted {
		err = w.completion.Conclude(ctx, apt)
		if err != nil && !apperrors.Is(err, apperrors.ErrorTypePartial) {
			return 0, err
		}
	} else if err = w.store.SetStatus(ctx, apt.ID, to); err != nil {
		return 0, err
	}

	observability.RecordTransition(ctx, w.metrics, from.Code(), to.Code())
	if w.activities != nil {
		w.activities.Record(ctx, entities.ActivityForTransition(to, from), apt.ID,
			fmt.Sprintf("%s: %s → %s", apt.PatientName, from.Display().Label, to.Display().Label))
	}
	return to, err
}
