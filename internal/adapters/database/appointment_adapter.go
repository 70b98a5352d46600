package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/hemoglovida/dashboard/backend/internal/domain/entities"
	"github.com/hemoglovida/dashboard/backend/internal/domain/repositories"
	"github.com/hemoglovida/dashboard/backend/internal/infrastructure/clients/postgres"
	"github.com/hemoglovida/dashboard/backend/pkg/calendar"
	apperrors "github.com/hemoglovida/dashboard/backend/pkg/errors"
)

const appointmentsTable = "appointments"

var appointmentColumns = []interface{}{
	"id", "facility_id", "donor_id", "patient_name", "date", "time",
	"status", "notes", "eligibility_pending", "completed_at",
	"created_at", "updated_at",
}

// AppointmentAdapter implements the AppointmentRepository interface
type AppointmentAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewAppointmentAdapter creates a new appointment adapter
func NewAppointmentAdapter(client *postgres.Client) repositories.AppointmentRepository {
	return &AppointmentAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create creates a new appointment
func (a *AppointmentAdapter) Create(ctx context.Context, appointment *entities.Appointment) error {
	now := time.Now()
	if appointment.CreatedAt.IsZero() {
		appointment.CreatedAt = now
	}
	appointment.UpdatedAt = now

	record := goqu.Record{
		"id":                  appointment.ID,
		"facility_id":         appointment.FacilityID,
		"donor_id":            nullString(appointment.DonorID),
		"patient_name":        appointment.PatientName,
		"date":                appointment.Date,
		"time":                appointment.Time,
		"status":              appointment.Status,
		"notes":               appointment.Notes,
		"eligibility_pending": false,
		"created_at":          appointment.CreatedAt,
		"updated_at":          appointment.UpdatedAt,
	}

	query, args, err := a.db.Insert(appointmentsTable).Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err = a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return wrapWriteError("failed to create appointment", err)
	}

	return nil
}

// GetByID retrieves an appointment by ID
func (a *AppointmentAdapter) GetByID(ctx context.Context, id string) (*entities.Appointment, error) {
	query, args, err := a.db.Select(appointmentColumns...).
		From(appointmentsTable).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	appointment := &entities.Appointment{}
	err = a.client.X().GetContext(ctx, appointment, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("appointment with id %s not found", id))
	}
	if err != nil {
		return nil, wrapReadError("failed to get appointment", err)
	}

	return appointment, nil
}

// ListByFacility retrieves appointments for a facility ordered by date and time
func (a *AppointmentAdapter) ListByFacility(ctx context.Context, facilityID string, filter repositories.AppointmentFilter) ([]*entities.Appointment, error) {
	ds := a.db.Select(appointmentColumns...).
		From(appointmentsTable).
		Where(goqu.Ex{"facility_id": facilityID})

	if filter.Status != nil {
		ds = ds.Where(goqu.Ex{"status": *filter.Status})
	}
	if filter.From != nil {
		ds = ds.Where(goqu.C("date").Gte(*filter.From))
	}
	if filter.To != nil {
		ds = ds.Where(goqu.C("date").Lte(*filter.To))
	}

	ds = ds.Order(goqu.I("date").Asc(), goqu.I("time").Asc(), goqu.I("created_at").Asc())

	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}
	if filter.Offset > 0 {
		ds = ds.Offset(uint(filter.Offset))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	appointments := []*entities.Appointment{}
	if err := a.client.X().SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, wrapReadError("failed to list appointments", err)
	}

	return appointments, nil
}

// UpdateStatus writes only the status column
func (a *AppointmentAdapter) UpdateStatus(ctx context.Context, id string, status entities.AppointmentStatus) error {
	if !status.Valid() {
		return apperrors.NewValidationError("invalid appointment status")
	}

	query, args, err := a.db.Update(appointmentsTable).
		Set(goqu.Record{
			"status":     status,
			"updated_at": time.Now(),
		}).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	return a.execOne(ctx, id, "failed to update appointment status", query, args)
}

// MarkCompleted moves a Confirmed appointment to Completed and raises
// eligibility_pending when a donor is referenced. A row that already left
// Confirmed is reported as a conflict and keeps its marker untouched.
func (a *AppointmentAdapter) MarkCompleted(ctx context.Context, id string, completedAt time.Time) error {
	query, args, err := a.db.Update(appointmentsTable).
		Set(goqu.Record{
			"status":              entities.AppointmentStatusCompleted,
			"completed_at":        completedAt,
			"eligibility_pending": goqu.L("donor_id IS NOT NULL AND donor_id <> ''"),
			"updated_at":          time.Now(),
		}).
		Where(goqu.Ex{"id": id, "status": entities.AppointmentStatusConfirmed}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build completion query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return wrapWriteError("failed to complete appointment", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	current, err := a.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return apperrors.NewConflictError(fmt.Sprintf("appointment %s is already %s", id, current.Status))
}

// ClearEligibilityPending lowers the marker without touching the donor
func (a *AppointmentAdapter) ClearEligibilityPending(ctx context.Context, id string) error {
	query, args, err := a.db.Update(appointmentsTable).
		Set(goqu.Record{"eligibility_pending": false}).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	return a.execOne(ctx, id, "failed to clear eligibility marker", query, args)
}

// ListEligibilityPending returns completed appointments with the marker still set, oldest first
func (a *AppointmentAdapter) ListEligibilityPending(ctx context.Context, limit int) ([]*entities.Appointment, error) {
	ds := a.db.Select(appointmentColumns...).
		From(appointmentsTable).
		Where(goqu.Ex{"eligibility_pending": true}).
		Order(goqu.I("completed_at").Asc())
	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	appointments := []*entities.Appointment{}
	if err := a.client.X().SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, wrapReadError("failed to list pending completions", err)
	}
	return appointments, nil
}

// CountSlotConflicts counts non-cancelled appointments sharing the slot
func (a *AppointmentAdapter) CountSlotConflicts(ctx context.Context, facilityID string, date calendar.Date, tod calendar.TimeOfDay) (int, error) {
	query, args, err := a.db.Select(goqu.COUNT("*")).
		From(appointmentsTable).
		Where(
			goqu.Ex{"facility_id": facilityID, "date": date, "time": tod},
			goqu.C("status").Neq(entities.AppointmentStatusCancelled),
		).
		ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build count query", err)
	}

	var count int
	if err := a.client.DB().QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, wrapReadError("failed to count slot conflicts", err)
	}
	return count, nil
}

func nullString(p *string) interface{} {
	if p == nil || *p == "" {
		return nil
	}
	return *p
}

func (a *AppointmentAdapter) execOne(ctx context.Context, id, message, query string, args []interface{}) error {
	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return wrapWriteError(message, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("appointment with id %s not found", id))
	}
	return nil
}
