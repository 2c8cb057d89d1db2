package service

import (
	"context"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/chat-platform/internal/auth"
	"github.com/spec-kit/chat-platform/internal/domain"
	"github.com/spec-kit/chat-platform/internal/events"
	"github.com/spec-kit/chat-platform/internal/limiter"
	"github.com/spec-kit/chat-platform/internal/repository"
	apperrors "github.com/spec-kit/chat-platform/pkg/util/errorutil"
)

// bcrypt ignores input past 72 bytes; longer passwords are refused rather than truncated.
const maxPasswordBytes = 72

// Session is the result of a successful register or login.
type Session struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	hasher     *auth.PasswordHasher
	tokens     *auth.TokenManager
	limiter    limiter.Limiter
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// AuthDependencies bundles collaborators for the auth service.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	Hasher     *auth.PasswordHasher
	Tokens     *auth.TokenManager
	Limiter    limiter.Limiter
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewAuthService builds the service. A nil limiter never blocks.
func NewAuthService(deps AuthDependencies) *AuthService {
	lim := deps.Limiter
	if lim == nil {
		lim = limiter.Nop{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      deps.UserRepo,
		hasher:     deps.Hasher,
		tokens:     deps.Tokens,
		limiter:    lim,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// Register creates an account and signs the caller in.
func (s *AuthService) Register(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.CreateAccount(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

// CreateAccount validates and stores a new account without issuing a token.
func (s *AuthService) CreateAccount(ctx context.Context, email, password string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	user := &domain.User{Email: email, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	publish(ctx, s.dispatcher, s.logger, events.Event{Type: events.EventUserRegistered, UserID: user.ID})
	return user, nil
}

// Login verifies credentials. An unknown email and a wrong password both yield
// auth.ErrInvalidCredentials; a blocked (email, IP) pair yields *limiter.BlockedError.
func (s *AuthService) Login(ctx context.Context, email, password, clientIP string) (*Session, error) {
	email = strings.TrimSpace(email)
	ipHash := limiter.HashIP(clientIP)
	payload := events.LoginPayload{Email: email, IPHash: hex.EncodeToString(ipHash)}

	allowed, retryAfter, err := s.limiter.Allow(ctx, email, ipHash)
	if err != nil {
		s.logger.Warn("login limiter unavailable; allowing attempt", zap.Error(err))
		allowed = true
	}
	if !allowed {
		payload.Blocked = true
		publish(ctx, s.dispatcher, s.logger, events.Event{Type: events.EventLoginFailed, Payload: payload})
		return nil, &limiter.BlockedError{RetryAfter: retryAfter}
	}

	user, err := s.users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		s.hasher.VerifyDummy(password)
		return nil, s.loginFailed(ctx, email, ipHash, payload)
	case err != nil:
		return nil, err
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, s.loginFailed(ctx, email, ipHash, payload)
	}

	if err := s.limiter.Success(ctx, email, ipHash); err != nil {
		s.logger.Warn("login limiter reset failed", zap.Error(err))
	}
	publish(ctx, s.dispatcher, s.logger, events.Event{Type: events.EventLoginSucceeded, UserID: user.ID, Payload: payload})
	return s.issue(user)
}

// Logout has no server-side state to clear: tokens are stateless and remain valid until they expire.
func (s *AuthService) Logout(context.Context) error {
	return nil
}

func (s *AuthService) loginFailed(ctx context.Context, email string, ipHash []byte, payload events.LoginPayload) error {
	blocked, _, err := s.limiter.Failure(ctx, email, ipHash)
	if err != nil {
		s.logger.Warn("login limiter update failed", zap.Error(err))
	}
	payload.Blocked = blocked
	publish(ctx, s.dispatcher, s.logger, events.Event{Type: events.EventLoginFailed, Payload: payload})
	return auth.ErrInvalidCredentials
}

func (s *AuthService) issue(user *domain.User) (*Session, error) {
	token, exp, err := s.tokens.Issue(user.Email, 0)
	if err != nil {
		return nil, err
	}
	return &Session{User: user, Token: token, ExpiresAt: exp}, nil
}

func validateCredentials(email, password string) error {
	details := map[string]any{}
	if email == "" || !strings.Contains(email, "@") {
		details["email"] = "a valid email address is required"
	}
	if password == "" {
		details["password"] = "password is required"
	} else if len(password) > maxPasswordBytes {
		details["password"] = "password must be at most 72 bytes"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid registration", details)
	}
	return nil
}
