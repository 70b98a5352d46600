package repositories

import (
	"context"

	"github.com/hemoglovida/dashboard/backend/internal/domain/entities"
)

// FacilityRepository defines the interface for facility profile operations
type FacilityRepository interface {
	// GetByID retrieves a facility by ID
	GetByID(ctx context.Context, id string) (*entities.Facility, error)

	// Upsert creates the facility or replaces its profile fields
	Upsert(ctx context.Context, facility *entities.Facility) error
}
