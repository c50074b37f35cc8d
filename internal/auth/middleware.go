package auth

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	User   *domain.User
	Claims *Claims
}

// Actor returns the explicit identity handed to lifecycle operations.
func (p *Principal) Actor() domain.Actor {
	return p.User.Actor()
}

// RevocationChecker reports whether a session token was logged out.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// AuthMiddleware resolves the session cookie into a Principal. Requests
// without a valid session continue anonymously; guards decide access. A
// session whose revocation status cannot be checked is not trusted.
type AuthMiddleware struct {
	tokens     *TokenManager
	users      repository.UserRepository
	revoked    RevocationChecker
	cookieName string
	logger     *zap.Logger
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, users repository.UserRepository, revoked RevocationChecker, cookieName string, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users, revoked: revoked, cookieName: cookieName, logger: logger}
}

// Handle loads the principal when a valid session cookie is present.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	raw := c.Cookies(m.cookieName)
	if raw == "" {
		return c.Next()
	}

	claims, err := m.tokens.ParseToken(raw)
	if err != nil {
		c.ClearCookie(m.cookieName)
		return c.Next()
	}

	if m.revoked != nil {
		revoked, err := m.revoked.IsRevoked(c.UserContext(), claims.TokenID())
		if err != nil {
			// The cookie is kept so the session resumes once the store is back.
			m.logger.Warn("session revocation check failed; treating request as anonymous",
				zap.String("token_id", claims.TokenID()),
				zap.Int64("user_id", claims.UserID),
				zap.Error(err))
			return c.Next()
		}
		if revoked {
			c.ClearCookie(m.cookieName)
			return c.Next()
		}
	}

	user, err := m.users.GetByID(c.UserContext(), claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.ClearCookie(m.cookieName)
			return c.Next()
		}
		return apperrors.MapError(err)
	}

	c.Locals(principalKey, &Principal{User: user, Claims: claims})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

// ActorFromContext returns the caller identity, or nil when anonymous.
func ActorFromContext(c *fiber.Ctx) *domain.Actor {
	principal, ok := PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return nil
	}
	actor := principal.Actor()
	return &actor
}
