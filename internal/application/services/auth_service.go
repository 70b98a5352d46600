package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hemoglovida/dashboard/backend/internal/domain/entities"
	"github.com/hemoglovida/dashboard/backend/internal/domain/providers"
	"github.com/hemoglovida/dashboard/backend/internal/domain/repositories"
	"github.com/hemoglovida/dashboard/backend/pkg/calendar"
	"github.com/hemoglovida/dashboard/backend/pkg/config"
	apperrors "github.com/hemoglovida/dashboard/backend/pkg/errors"
	"github.com/hemoglovida/dashboard/backend/pkg/password"
)

type claimsContextKey struct{}

// WithClaims attaches the caller's verified claims to ctx
func WithClaims(ctx context.Context, claims *entities.Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// ClaimsFromContext returns the claims attached by WithClaims
func ClaimsFromContext(ctx context.Context) (*entities.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*entities.Claims)
	return claims, ok && claims != nil
}

// RequireAdmin is the route guard rule: a verified session carrying the admin claim
func RequireAdmin(claims *entities.Claims) error {
	if claims == nil {
		return apperrors.NewUnauthorizedError("authentication required")
	}
	if !claims.Admin {
		return apperrors.NewForbiddenError("admin access required")
	}
	return nil
}

type sessionClaims struct {
	Email      string `json:"email"`
	Admin      bool   `json:"admin"`
	FacilityID string `json:"facility_id"`
	jwt.RegisteredClaims
}

func revokedKey(tokenID string) string {
	return "auth:revoked:" + tokenID
}

var errInvalidCredentials = apperrors.NewUnauthorizedError("invalid email or password")

// AuthService is the identity provider: it verifies operator credentials,
// issues signed session tokens and tracks sign-outs
type AuthService struct {
	users  repositories.UserRepository
	cache  providers.CacheProvider
	bus    providers.EventBus
	secret []byte
	ttl    time.Duration
	issuer string
	clock  calendar.Clock
}

// NewAuthService creates a new identity provider
func NewAuthService(
	users repositories.UserRepository,
	cache providers.CacheProvider,
	bus providers.EventBus,
	cfg *config.AuthConfig,
	clock calendar.Clock,
) *AuthService {
	return &AuthService{
		users:  users,
		cache:  cache,
		bus:    bus,
		secret: []byte(cfg.TokenSecret),
		ttl:    cfg.TokenTTL,
		issuer: cfg.Issuer,
		clock:  clock,
	}
}

var _ providers.IdentityProvider = (*AuthService)(nil)

// SignIn verifies credentials and opens a session
func (s *AuthService) SignIn(ctx context.Context, email, pass string) (*entities.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || pass == "" {
		return nil, apperrors.NewValidationError("email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if apperrors.Is(err, apperrors.ErrorTypeNotFound) {
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	ok, err := password.Verify(pass, user.PasswordHash)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("stored password hash is unreadable")
		return nil, errInvalidCredentials
	}
	if !ok {
		return nil, errInvalidCredentials
	}

	now := s.clock.Now()
	claims := &entities.Claims{
		UserID:     user.ID,
		Email:      user.Email,
		Admin:      user.IsAdmin,
		FacilityID: user.FacilityID,
		TokenID:    uuid.NewString(),
		ExpiresAt:  now.Add(s.ttl).Truncate(time.Second),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		Email:      claims.Email,
		Admin:      claims.Admin,
		FacilityID: claims.FacilityID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        claims.TokenID,
			Subject:   user.ID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
	}).SignedString(s.secret)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to sign session token", err)
	}

	s.publish(ctx, entities.ChangeKindSignedIn, claims)
	log.Info().Str("user_id", user.ID).Bool("admin", user.IsAdmin).Msg("operator signed in")

	return &entities.Session{
		Token:     token,
		ExpiresAt: claims.ExpiresAt,
		User:      user,
		Claims:    claims,
	}, nil
}

// Claims verifies a session token and returns its claims
func (s *AuthService) Claims(ctx context.Context, token string) (*entities.Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperrors.NewUnauthorizedError("authentication required")
	}

	var parsed sessionClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.NewUnauthorizedError("session expired")
		}
		return nil, apperrors.NewUnauthorizedError("invalid session token")
	}

	revoked, err := s.cache.Exists(ctx, revokedKey(parsed.ID))
	if err != nil {
		return nil, apperrors.NewTransientError("failed to check session revocation", err)
	}
	if revoked {
		return nil, apperrors.NewUnauthorizedError("session signed out")
	}

	return &entities.Claims{
		UserID:     parsed.Subject,
		Email:      parsed.Email,
		Admin:      parsed.Admin,
		FacilityID: parsed.FacilityID,
		TokenID:    parsed.ID,
		ExpiresAt:  parsed.ExpiresAt.Time,
	}, nil
}

// SignOut revokes a session token until it would have expired
func (s *AuthService) SignOut(ctx context.Context, token string) error {
	claims, err := s.Claims(ctx, token)
	if err != nil {
		return err
	}

	ttl := int(claims.ExpiresAt.Sub(s.clock.Now()).Seconds()) + 1
	if err := s.cache.Set(ctx, revokedKey(claims.TokenID), []byte(claims.UserID), ttl); err != nil {
		return apperrors.NewTransientError("failed to revoke session", err)
	}

	s.publish(ctx, entities.ChangeKindSignedOut, claims)
	log.Info().Str("user_id", claims.UserID).Msg("operator signed out")
	return nil
}

// OnAuthStateChanged streams sign-in and sign-out events until ctx is done
func (s *AuthService) OnAuthStateChanged(ctx context.Context) (<-chan entities.AuthStateChange, error) {
	events, err := s.bus.Subscribe(ctx, providers.EventChannelAuth)
	if err != nil {
		return nil, err
	}

	out := make(chan entities.AuthStateChange, 16)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-events:
				if !ok {
					return
				}
				if event == nil {
					continue
				}
				change := entities.AuthStateChange{
					Kind:   event.Kind,
					UserID: event.DocumentID,
					At:     event.Timestamp,
				}
				if id, ok := event.ChangedFields["token_id"].(string); ok {
					change.TokenID = id
				}
				select {
				case out <- change:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// CreateUser registers an operator account
func (s *AuthService) CreateUser(ctx context.Context, email, name, pass, facilityID string, admin bool) (*entities.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, apperrors.NewValidationError("email is required")
	}
	hash, err := password.Hash(pass)
	if err != nil {
		if errors.Is(err, password.ErrTooShort) {
			return nil, apperrors.NewValidationError(err.Error())
		}
		return nil, apperrors.NewInternalError("failed to hash password", err)
	}

	user := &entities.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		IsAdmin:      admin,
		FacilityID:   facilityID,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// SetAdmin grants or revokes the admin claim. Sessions issued earlier keep
// their claim until they expire or sign out.
func (s *AuthService) SetAdmin(ctx context.Context, email string, admin bool) (*entities.User, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}
	if err := s.users.SetAdmin(ctx, user.ID, admin); err != nil {
		return nil, err
	}
	user.IsAdmin = admin
	return user, nil
}

// ResetPassword replaces an operator's password
func (s *AuthService) ResetPassword(ctx context.Context, email, pass string) error {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return err
	}
	hash, err := password.Hash(pass)
	if err != nil {
		if errors.Is(err, password.ErrTooShort) {
			return apperrors.NewValidationError(err.Error())
		}
		return apperrors.NewInternalError("failed to hash password", err)
	}
	return s.users.SetPassword(ctx, user.ID, hash)
}

func (s *AuthService) publish(ctx context.Context, kind entities.ChangeKind, claims *entities.Claims) {
	event := entities.NewChangeEvent(entities.CollectionAuth, kind, claims.FacilityID, claims.UserID,
		map[string]interface{}{"token_id": claims.TokenID})
	if err := s.bus.Publish(ctx, providers.EventChannelAuth, event); err != nil {
		log.Warn().Err(err).Str("user_id", claims.UserID).Msgf("failed to publish %s event", kind)
	}
}
