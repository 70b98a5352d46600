package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hemoglovida/dashboard/backend/internal/domain/entities"
	"github.com/hemoglovida/dashboard/backend/internal/domain/repositories"
	"github.com/hemoglovida/dashboard/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/hemoglovida/dashboard/backend/pkg/errors"
)

// FacilityAdapter implements the FacilityRepository interface
type FacilityAdapter struct {
	client *postgres.Client
}

// NewFacilityAdapter creates a new facility adapter
func NewFacilityAdapter(client *postgres.Client) repositories.FacilityRepository {
	return &FacilityAdapter{
		client: client,
	}
}

// GetByID retrieves a facility by ID
func (a *FacilityAdapter) GetByID(ctx context.Context, id string) (*entities.Facility, error) {
	query := `
		SELECT
			id, name, email, phone, cnpj,
			street, district, cep, city, state, country,
			is_active, created_at, updated_at
		FROM facilities
		WHERE id = $1
	`

	facility := &entities.Facility{}
	err := a.client.DB().QueryRowContext(ctx, query, id).Scan(
		&facility.ID,
		&facility.Name,
		&facility.Email,
		&facility.Phone,
		&facility.CNPJ,
		&facility.Address.Street,
		&facility.Address.District,
		&facility.Address.CEP,
		&facility.Address.City,
		&facility.Address.State,
		&facility.Address.Country,
		&facility.IsActive,
		&facility.CreatedAt,
		&facility.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("facility with id %s not found", id))
	}
	if err != nil {
		return nil, wrapReadError("failed to get facility", err)
	}

	return facility, nil
}

// Upsert creates the facility row on first save and replaces the profile afterwards
func (a *FacilityAdapter) Upsert(ctx context.Context, facility *entities.Facility) error {
	now := time.Now()
	if facility.CreatedAt.IsZero() {
		facility.CreatedAt = now
	}
	facility.UpdatedAt = now

	query := `
		INSERT INTO facilities (
			id, name, email, phone, cnpj,
			street, district, cep, city, state, country,
			is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			cnpj = EXCLUDED.cnpj,
			street = EXCLUDED.street,
			district = EXCLUDED.district,
			cep = EXCLUDED.cep,
			city = EXCLUDED.city,
			state = EXCLUDED.state,
			country = EXCLUDED.country,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at
	`

	_, err := a.client.DB().ExecContext(ctx, query,
		facility.ID,
		facility.Name,
		facility.Email,
		facility.Phone,
		facility.CNPJ,
		facility.Address.Street,
		facility.Address.District,
		facility.Address.CEP,
		facility.Address.City,
		facility.Address.State,
		facility.Address.Country,
		facility.IsActive,
		facility.CreatedAt,
		facility.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflictError("CNPJ already registered to another facility")
		}
		return wrapWriteError("failed to save facility", err)
	}

	return nil
}
