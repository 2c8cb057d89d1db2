package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/chat-platform/internal/auth"
	"github.com/spec-kit/chat-platform/internal/events"
	"github.com/spec-kit/chat-platform/internal/limiter"
	"github.com/spec-kit/chat-platform/internal/repository/repotest"
	apperrors "github.com/spec-kit/chat-platform/pkg/util/errorutil"
)

type countingLimiter struct {
	max      int
	failures map[string]int
	allowErr error
}

func (l *countingLimiter) Allow(_ context.Context, username string, _ []byte) (bool, time.Duration, error) {
	if l.allowErr != nil {
		return false, 0, l.allowErr
	}
	if l.failures[username] >= l.max {
		return false, time.Minute, nil
	}
	return true, 0, nil
}

func (l *countingLimiter) Success(_ context.Context, username string, _ []byte) error {
	delete(l.failures, username)
	return nil
}

func (l *countingLimiter) Failure(_ context.Context, username string, _ []byte) (bool, time.Duration, error) {
	l.failures[username]++
	return l.failures[username] >= l.max, time.Minute, nil
}

type authFixture struct {
	svc        *AuthService
	tokens     *auth.TokenManager
	dispatcher *recordingDispatcher
	limiter    *countingLimiter
}

func newAuthFixture(t *testing.T) authFixture {
	t.Helper()
	store := repotest.NewStore()
	tokens := auth.NewTokenManager("test-secret", 30*time.Minute)
	dispatcher := &recordingDispatcher{}
	lim := &countingLimiter{max: 3, failures: map[string]int{}}
	svc := NewAuthService(AuthDependencies{
		UserRepo:   store.Users(),
		Hasher:     auth.NewPasswordHasher(bcrypt.MinCost),
		Tokens:     tokens,
		Limiter:    lim,
		Dispatcher: dispatcher,
	})
	return authFixture{svc: svc, tokens: tokens, dispatcher: dispatcher, limiter: lim}
}

func TestAuthService_RegisterThenLogin(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	reg, err := f.svc.Register(ctx, "a@x.com", "pw123")
	require.NoError(t, err)
	assert.NotZero(t, reg.User.ID)
	assert.NotEqual(t, "pw123", reg.User.PasswordHash)

	sess, err := f.svc.Login(ctx, "a@x.com", "pw123", "10.0.0.1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), sess.ExpiresAt, 5*time.Second)

	sub, err := f.tokens.Verify(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", sub)

	assert.Equal(t, []events.EventType{events.EventUserRegistered, events.EventLoginSucceeded}, f.dispatcher.types())
}

func TestAuthService_RegisterDuplicate(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "a@x.com", "pw123")
	require.NoError(t, err)
	_, err = f.svc.Register(ctx, " a@x.com ", "other")
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestAuthService_RegisterValidation(t *testing.T) {
	f := newAuthFixture(t)
	for _, tc := range []struct{ email, password string }{
		{"", "pw"},
		{"not-an-email", "pw"},
		{"a@x.com", ""},
		{"a@x.com", string(make([]byte, 73))},
	} {
		_, err := f.svc.Register(context.Background(), tc.email, tc.password)
		de := apperrors.ToDomainError(err)
		require.NotNil(t, de)
		assert.Equal(t, 400, de.HTTPStatus)
	}
}

func TestAuthService_LoginFailuresAreIndistinguishable(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, "a@x.com", "pw123")
	require.NoError(t, err)

	_, wrongPassword := f.svc.Login(ctx, "a@x.com", "nope", "10.0.0.1")
	_, unknownUser := f.svc.Login(ctx, "ghost@x.com", "pw123", "10.0.0.1")

	require.ErrorIs(t, wrongPassword, auth.ErrInvalidCredentials)
	require.ErrorIs(t, unknownUser, auth.ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownUser.Error())
}

func TestAuthService_LoginBlockedAfterFailures(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, "a@x.com", "pw123")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := f.svc.Login(ctx, "a@x.com", "wrong", "10.0.0.1")
		require.ErrorIs(t, err, auth.ErrInvalidCredentials)
	}

	_, err = f.svc.Login(ctx, "a@x.com", "pw123", "10.0.0.1")
	require.ErrorIs(t, err, limiter.ErrRateLimited)
	var blocked *limiter.BlockedError
	require.True(t, errors.As(err, &blocked))
	assert.Equal(t, time.Minute, blocked.RetryAfter)
}

func TestAuthService_LimiterErrorFailsOpen(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, "a@x.com", "pw123")
	require.NoError(t, err)

	f.limiter.allowErr = errors.New("redis down")
	_, err = f.svc.Login(ctx, "a@x.com", "pw123", "10.0.0.1")
	require.NoError(t, err)
}

func TestAuthService_ExpiredTokenRejected(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, "a@x.com", "pw123")
	require.NoError(t, err)
	sess, err := f.svc.Login(ctx, "a@x.com", "pw123", "10.0.0.1")
	require.NoError(t, err)

	later := auth.NewTokenManager("test-secret", 30*time.Minute).WithClock(func() time.Time {
		return sess.ExpiresAt.Add(time.Second)
	})
	_, err = later.Verify(sess.Token)
	require.ErrorIs(t, err, auth.ErrTokenInvalid)
}

func TestAuthService_LogoutIsNoop(t *testing.T) {
	f := newAuthFixture(t)
	require.NoError(t, f.svc.Logout(context.Background()))
}
