package repositories

import (
	"context"

	"github.com/hemoglovida/dashboard/backend/internal/domain/entities"
)

// UserRepository defines the interface for operator account operations
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *entities.User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id string) (*entities.User, error)

	// GetByEmail retrieves a user by email
	GetByEmail(ctx context.Context, email string) (*entities.User, error)

	// SetAdmin grants or revokes the admin claim
	SetAdmin(ctx context.Context, id string, admin bool) error

	// SetPassword replaces the stored password hash
	SetPassword(ctx context.Context, id string, passwordHash string) error
}
