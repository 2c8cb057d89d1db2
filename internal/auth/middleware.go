package auth

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/chat-platform/internal/domain"
	apperrors "github.com/spec-kit/chat-platform/pkg/util/errorutil"
)

const (
	userKey = "auth_user"

	// CookieName carries the browser session as "Bearer <token>".
	CookieName   = "access_token"
	bearerPrefix = "Bearer "
)

// UserFinder looks up accounts by the token subject.
type UserFinder interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// TokenSource extracts a raw token from a request. It returns "" when none is present.
type TokenSource func(c *fiber.Ctx) string

// SessionResolver turns a presented token into the authenticated user.
type SessionResolver struct {
	tokens *TokenManager
	users  UserFinder
}

// NewSessionResolver constructs a resolver.
func NewSessionResolver(tokens *TokenManager, users UserFinder) *SessionResolver {
	return &SessionResolver{tokens: tokens, users: users}
}

// Resolve verifies raw and loads its subject. Every failure is reported as ErrTokenInvalid.
func (r *SessionResolver) Resolve(ctx context.Context, raw string) (*domain.User, error) {
	if raw == "" {
		return nil, ErrTokenInvalid
	}
	subject, err := r.tokens.Verify(raw)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	user, err := r.users.GetByEmail(ctx, subject)
	if err != nil || user == nil {
		return nil, ErrTokenInvalid
	}
	return user, nil
}

// Middleware authenticates requests using source. Failures get one uniform 401.
func (r *SessionResolver) Middleware(source TokenSource) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := r.Resolve(c.UserContext(), source(c))
		if err != nil {
			return apperrors.NewCredentialsError()
		}
		c.Locals(userKey, user)
		return c.Next()
	}
}

// CookieToken reads the session cookie. The value must start with the literal "Bearer ".
func CookieToken(c *fiber.Ctx) string {
	return stripBearer(c.Cookies(CookieName), false)
}

// HeaderToken reads an RFC 6750 Authorization header; the scheme is case-insensitive.
func HeaderToken(c *fiber.Ctx) string {
	return stripBearer(c.Get(fiber.HeaderAuthorization), true)
}

func stripBearer(value string, foldScheme bool) string {
	if len(value) <= len(bearerPrefix) {
		return ""
	}
	prefix := value[:len(bearerPrefix)]
	if prefix != bearerPrefix && !(foldScheme && strings.EqualFold(prefix, bearerPrefix)) {
		return ""
	}
	return strings.TrimSpace(value[len(bearerPrefix):])
}

// UserFromContext retrieves the authenticated user.
func UserFromContext(c *fiber.Ctx) (*domain.User, bool) {
	user, ok := c.Locals(userKey).(*domain.User)
	return user, ok && user != nil
}
