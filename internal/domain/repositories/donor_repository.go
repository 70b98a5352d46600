package repositories

import (
	"context"

	"github.com/hemoglovida/dashboard/backend/internal/domain/entities"
)

// DonorRepository defines the interface for donor data operations
type DonorRepository interface {
	// Create creates a new donor
	Create(ctx context.Context, donor *entities.Donor) error

	// GetByID retrieves a donor by ID
	GetByID(ctx context.Context, id string) (*entities.Donor, error)

	// GetByIDs retrieves multiple donors; missing ids are skipped
	GetByIDs(ctx context.Context, ids []string) ([]*entities.Donor, error)

	// Update updates the editable profile fields of a donor
	Update(ctx context.Context, donor *entities.Donor) error

	// SetStatus activates or deactivates a donor
	SetStatus(ctx context.Context, id string, status entities.DonorStatus) error

	// List retrieves donors with filters
	List(ctx context.Context, filter DonorFilter) ([]*entities.Donor, error)

	// Count counts donors matching filter, ignoring Limit and Offset
	Count(ctx context.Context, filter DonorFilter) (int, error)

	// RecordDonation applies a completed donation to the donor in one statement.
	// When rec.AppointmentID is set, the appointment's eligibility marker is
	// cleared in the same transaction and applied is false if it was already clear.
	RecordDonation(ctx context.Context, rec entities.DonationRecord) (applied bool, err error)
}

// DonorFilter defines filters for listing donors
type DonorFilter struct {
	FacilityID string
	Status     entities.DonorStatus
	BloodType  entities.BloodType
	// Query matches name, email or phone (case-insensitive substring)
	Query  string
	Limit  int
	Offset int
}

// DonorSearchRepository is the full-text donor index
type DonorSearchRepository interface {
	// Search returns donor ids ranked by relevance
	Search(ctx context.Context, facilityID, query string, limit int) ([]string, error)

	// Index upserts a donor document
	Index(ctx context.Context, donor *entities.Donor) error

	// Delete removes a donor from the index
	Delete(ctx context.Context, id string) error
}
