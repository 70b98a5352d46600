package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/hemoglovida/dashboard/backend/internal/domain/entities"
	"github.com/hemoglovida/dashboard/backend/internal/domain/repositories"
	"github.com/hemoglovida/dashboard/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/hemoglovida/dashboard/backend/pkg/errors"
)

const donorsTable = "donors"

var donorColumns = []interface{}{
	"id", "facility_id", "name", "email", "phone", "blood_type", "sex",
	"birth_date", "status", "donation_count", "lives_saved",
	"last_donation_date", "next_eligible_date", "eligibility_status",
	"created_at", "updated_at",
}

// DonorAdapter implements the DonorRepository interface
type DonorAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewDonorAdapter creates a new donor adapter
func NewDonorAdapter(client *postgres.Client) repositories.DonorRepository {
	return &DonorAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create creates a new donor
func (a *DonorAdapter) Create(ctx context.Context, donor *entities.Donor) error {
	now := time.Now()
	donor.CreatedAt = now
	donor.UpdatedAt = now
	if donor.Status == "" {
		donor.Status = entities.DonorStatusActive
	}
	if donor.EligibilityStatus == "" {
		donor.EligibilityStatus = entities.EligibilityStatusEligible
	}

	query, args, err := a.db.Insert(donorsTable).Rows(goqu.Record{
		"id":                 donor.ID,
		"facility_id":        donor.FacilityID,
		"name":               donor.Name,
		"email":              donor.Email,
		"phone":              donor.Phone,
		"blood_type":         string(donor.BloodType),
		"sex":                string(donor.Sex),
		"birth_date":         donor.BirthDate,
		"status":             string(donor.Status),
		"donation_count":     donor.DonationCount,
		"lives_saved":        donor.LivesSaved,
		"last_donation_date": donor.LastDonationDate,
		"next_eligible_date": donor.NextEligibleDate,
		"eligibility_status": donor.EligibilityStatus,
		"created_at":         donor.CreatedAt,
		"updated_at":         donor.UpdatedAt,
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflictError(fmt.Sprintf("donor with email %s already exists", donor.Email))
		}
		return wrapWriteError("failed to create donor", err)
	}
	return nil
}

// GetByID retrieves a donor by ID
func (a *DonorAdapter) GetByID(ctx context.Context, id string) (*entities.Donor, error) {
	query, args, err := a.db.Select(donorColumns...).
		From(donorsTable).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	donor := &entities.Donor{}
	err = a.client.X().GetContext(ctx, donor, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("donor with id %s not found", id))
	}
	if err != nil {
		return nil, wrapReadError("failed to get donor", err)
	}
	return donor, nil
}

// GetByIDs retrieves multiple donors in one query
func (a *DonorAdapter) GetByIDs(ctx context.Context, ids []string) ([]*entities.Donor, error) {
	if len(ids) == 0 {
		return []*entities.Donor{}, nil
	}

	query, args, err := a.db.Select(donorColumns...).
		From(donorsTable).
		Where(goqu.C("id").In(ids)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	donors := []*entities.Donor{}
	if err := a.client.X().SelectContext(ctx, &donors, query, args...); err != nil {
		return nil, wrapReadError("failed to get donors", err)
	}
	return donors, nil
}

// Update writes the profile fields; counters and eligibility are owned by RecordDonation
func (a *DonorAdapter) Update(ctx context.Context, donor *entities.Donor) error {
	donor.UpdatedAt = time.Now()

	query, args, err := a.db.Update(donorsTable).
		Set(goqu.Record{
			"name":       donor.Name,
			"email":      donor.Email,
			"phone":      donor.Phone,
			"blood_type": string(donor.BloodType),
			"sex":        string(donor.Sex),
			"birth_date": donor.BirthDate,
			"updated_at": donor.UpdatedAt,
		}).
		Where(goqu.Ex{"id": donor.ID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	return a.execOne(ctx, donor.ID, "failed to update donor", query, args)
}

// SetStatus activates or deactivates a donor
func (a *DonorAdapter) SetStatus(ctx context.Context, id string, status entities.DonorStatus) error {
	query, args, err := a.db.Update(donorsTable).
		Set(goqu.Record{"status": string(status), "updated_at": time.Now()}).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	return a.execOne(ctx, id, "failed to update donor status", query, args)
}

// List retrieves donors ordered by name
func (a *DonorAdapter) List(ctx context.Context, filter repositories.DonorFilter) ([]*entities.Donor, error) {
	ds := a.db.Select(donorColumns...).
		From(donorsTable).
		Where(donorConditions(filter)...).
		Order(goqu.I("name").Asc(), goqu.I("id").Asc())

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

	donors := []*entities.Donor{}
	if err := a.client.X().SelectContext(ctx, &donors, query, args...); err != nil {
		return nil, wrapReadError("failed to list donors", err)
	}
	return donors, nil
}

// Count counts donors matching the filter
func (a *DonorAdapter) Count(ctx context.Context, filter repositories.DonorFilter) (int, error) {
	query, args, err := a.db.Select(goqu.COUNT("*")).
		From(donorsTable).
		Where(donorConditions(filter)...).
		ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build count query", err)
	}

	var count int
	if err := a.client.DB().QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, wrapReadError("failed to count donors", err)
	}
	return count, nil
}

// RecordDonation applies the donation counters and cooldown. When the record
// carries an appointment, the appointment's eligibility marker is consumed in
// the same transaction so retries never double count.
func (a *DonorAdapter) RecordDonation(ctx context.Context, rec entities.DonationRecord) (bool, error) {
	tx, err := a.client.BeginTx(ctx)
	if err != nil {
		return false, wrapWriteError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	if rec.AppointmentID != "" {
		query, args, err := a.db.Update(appointmentsTable).
			Set(goqu.Record{"eligibility_pending": false}).
			Where(goqu.Ex{"id": rec.AppointmentID, "eligibility_pending": true}).
			ToSQL()
		if err != nil {
			return false, apperrors.NewInternalError("failed to build marker query", err)
		}

		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return false, wrapWriteError("failed to consume eligibility marker", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return false, apperrors.NewInternalError("failed to get rows affected", err)
		}
		if n == 0 {
			// already applied
			return false, nil
		}
	}

	query, args, err := a.db.Update(donorsTable).
		Set(goqu.Record{
			"donation_count":     goqu.L("donation_count + 1"),
			"lives_saved":        goqu.L("lives_saved + ?", entities.LivesPerDonation),
			"last_donation_date": rec.DonationDate,
			"next_eligible_date": rec.NextEligibleDate,
			"eligibility_status": entities.EligibilityStatusTemporarilyIneligible,
			"updated_at":         time.Now(),
		}).
		Where(goqu.Ex{"id": rec.DonorID}).
		ToSQL()
	if err != nil {
		return false, apperrors.NewInternalError("failed to build donation query", err)
	}

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return false, wrapWriteError("failed to record donation", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.NewInternalError("failed to get rows affected", err)
	}
	if n == 0 {
		return false, apperrors.NewNotFoundError(fmt.Sprintf("donor with id %s not found", rec.DonorID))
	}

	if err := tx.Commit(); err != nil {
		return false, wrapWriteError("failed to commit donation", err)
	}
	return true, nil
}

func donorConditions(filter repositories.DonorFilter) []exp.Expression {
	conds := []exp.Expression{}
	if filter.FacilityID != "" {
		conds = append(conds, goqu.Ex{"facility_id": filter.FacilityID})
	}
	if filter.Status != "" {
		conds = append(conds, goqu.Ex{"status": string(filter.Status)})
	}
	if filter.BloodType != "" {
		conds = append(conds, goqu.Ex{"blood_type": string(filter.BloodType)})
	}
	if filter.Query != "" {
		pattern := "%" + filter.Query + "%"
		conds = append(conds, goqu.Or(
			goqu.C("name").ILike(pattern),
			goqu.C("email").ILike(pattern),
			goqu.C("phone").ILike(pattern),
		))
	}
	return conds
}

func (a *DonorAdapter) execOne(ctx context.Context, id, message, query string, args []interface{}) error {
	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflictError("donor email already in use")
		}
		return wrapWriteError(message, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("donor with id %s not found", id))
	}
	return nil
}
