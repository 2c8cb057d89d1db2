package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/chat-platform/internal/domain"
)

// DefaultTokenTTL applies when no positive TTL is configured.
const DefaultTokenTTL = 30 * time.Minute

var (
	// ErrTokenInvalid is the umbrella for every token or session failure.
	ErrTokenInvalid = errors.New("invalid token")

	ErrTokenExpired   = fmt.Errorf("%w: expired", ErrTokenInvalid)
	ErrTokenMalformed = fmt.Errorf("%w: malformed", ErrTokenInvalid)
	ErrMissingSubject = fmt.Errorf("%w: missing subject", ErrTokenInvalid)
)

// TokenManager issues and verifies HS256 session tokens carrying {sub, exp}.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock replaces the time source. Intended for tests.
func (tm *TokenManager) WithClock(now func() time.Time) *TokenManager {
	tm.now = now
	return tm
}

// TTL returns the default token lifetime.
func (tm *TokenManager) TTL() time.Duration {
	return tm.ttl
}

// Issue signs a token for subject that expires ttl from now. A non-positive ttl uses the default.
func (tm *TokenManager) Issue(subject string, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		ttl = tm.ttl
	}
	expiresAt := tm.now().Add(ttl)
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, claims.ExpiresAt.Time, nil
}

// Parse validates signature, algorithm, expiry and subject and returns the claim.
func (tm *TokenManager) Parse(tokenStr string) (domain.Claim, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return tm.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Claim{}, ErrTokenExpired
		}
		return domain.Claim{}, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
	if claims.Subject == "" {
		return domain.Claim{}, ErrMissingSubject
	}
	return domain.Claim{Subject: claims.Subject, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// Verify returns the token's subject or an error wrapping ErrTokenInvalid.
func (tm *TokenManager) Verify(tokenStr string) (string, error) {
	claim, err := tm.Parse(tokenStr)
	if err != nil {
		return "", err
	}
	return claim.Subject, nil
}
