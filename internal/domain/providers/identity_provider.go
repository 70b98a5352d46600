package providers

import (
	"context"

	"github.com/hemoglovida/dashboard/backend/internal/domain/entities"
)

// IdentityProvider authenticates operators and asserts their claims
type IdentityProvider interface {
	// SignIn verifies credentials and opens a session
	SignIn(ctx context.Context, email, password string) (*entities.Session, error)

	// Claims verifies a session token and returns its claims
	Claims(ctx context.Context, token string) (*entities.Claims, error)

	// SignOut revokes a session token
	SignOut(ctx context.Context, token string) error

	// OnAuthStateChanged streams sign-in and sign-out events until ctx is done
	OnAuthStateChanged(ctx context.Context) (<-chan entities.AuthStateChange, error)
}
