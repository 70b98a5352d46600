package repositories

import (
	"context"
	"time"

	"github.com/hemoglovida/dashboard/backend/internal/domain/entities"
	"github.com/hemoglovida/dashboard/backend/pkg/calendar"
)

// AppointmentRepository defines the interface for appointment data operations.
// Appointments are never hard-deleted.
type AppointmentRepository interface {
	// Create creates a new appointment
	Create(ctx context.Context, appointment *entities.Appointment) error

	// GetByID retrieves an appointment by ID
	GetByID(ctx context.Context, id string) (*entities.Appointment, error)

	// ListByFacility retrieves appointments for a facility
	ListByFacility(ctx context.Context, facilityID string, filter AppointmentFilter) ([]*entities.Appointment, error)

	// UpdateStatus writes only the status column
	UpdateStatus(ctx context.Context, id string, status entities.AppointmentStatus) error

	// MarkCompleted sets status Completed and raises the eligibility marker when a donor is referenced
	MarkCompleted(ctx context.Context, id string, completedAt time.Time) error

	// ClearEligibilityPending lowers the marker without touching the donor
	ClearEligibilityPending(ctx context.Context, id string) error

	// ListEligibilityPending returns completed appointments whose donor update has not been applied
	ListEligibilityPending(ctx context.Context, limit int) ([]*entities.Appointment, error)

	// CountSlotConflicts counts non-cancelled appointments at the same facility, date and time
	CountSlotConflicts(ctx context.Context, facilityID string, date calendar.Date, tod calendar.TimeOfDay) (int, error)
}

// AppointmentFilter defines filters for listing appointments
type AppointmentFilter struct {
	Status *entities.AppointmentStatus
	From   *calendar.Date
	To     *calendar.Date
	Limit  int
	Offset int
}
