package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"b2bmarket/internal/domain/entity"
	"b2bmarket/internal/domain/repository"
	"b2bmarket/pkg/errors"
	"b2bmarket/pkg/logger"
)

const (
	IdentityKey = "identity"
	UIDKey      = "uid"
)

// TokenVerifier turns a bearer token into its subject. Firebase, HS256 and
// JWKS verifiers all satisfy it.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*entity.TokenClaims, error)
}

type AuthMiddleware struct {
	verifier TokenVerifier
	userRepo repository.UserRepository
}

func NewAuthMiddleware(verifier TokenVerifier, userRepo repository.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		userRepo: userRepo,
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return errors.Unauthorized("Authorization header is required", nil)
		}

		token, ok := bearerToken(authHeader)
		if !ok {
			return errors.Unauthorized("Invalid authorization format", nil)
		}

		identity, err := m.ResolveToken(c.Request().Context(), token)
		if err != nil {
			return err
		}

		c.Set(IdentityKey, identity)
		c.Set(UIDKey, identity.UserID)
		return next(c)
	}
}

// ResolveToken verifies token and loads the caller's marketplace profile.
func (m *AuthMiddleware) ResolveToken(ctx context.Context, token string) (entity.Identity, error) {
	claims, err := m.verifier.VerifyToken(ctx, token)
	if err != nil {
		logger.Debug("Token verification failed: %v", err)
		return entity.Identity{}, errors.Unauthorized("Invalid or expired token", nil)
	}

	profile, err := m.userRepo.GetByUserID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, "NOT_FOUND") {
			return entity.Identity{}, errors.Forbidden("No marketplace account is linked to this user", nil)
		}
		return entity.Identity{}, err
	}

	identity := profile.Identity()
	identity.EmailVerified = identity.EmailVerified || claims.EmailVerified
	return identity, nil
}

// IdentityFrom returns the identity Authenticate stored on the context.
func IdentityFrom(c echo.Context) (entity.Identity, bool) {
	identity, ok := c.Get(IdentityKey).(entity.Identity)
	return identity, ok
}
