package auth_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"vaccine-reservation-api/internal/auth"
	"vaccine-reservation-api/internal/model"
	"vaccine-reservation-api/internal/store"
)

const secret = "test-secret"

func newService(limit *auth.LoginLimiter) *auth.Service {
	return auth.NewService(store.NewMemory(), secret, limit, zerolog.Nop())
}

func TestRegisterAndLogin(t *testing.T) {
	s := newService(nil)
	ctx := context.Background()

	require.NoError(t, s.Register(ctx, model.RolePatient, "alice", "password123"))

	tok, err := s.Login(ctx, model.RolePatient, "alice", "password123")
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	sess, err := s.Authenticate(tok)
	require.NoError(t, err)
	require.Equal(t, model.Session{Role: model.RolePatient, Username: "alice"}, sess)
}

func TestRegisterValidation(t *testing.T) {
	s := newService(nil)
	ctx := context.Background()

	require.ErrorIs(t, s.Register(ctx, model.RolePatient, "", "password123"), auth.ErrBadRegistration)
	require.ErrorIs(t, s.Register(ctx, model.RolePatient, "alice", "short"), auth.ErrBadRegistration)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	s := newService(nil)
	ctx := context.Background()

	require.NoError(t, s.Register(ctx, model.RolePatient, "alice", "password123"))
	err := s.Register(ctx, model.RoleCaregiver, "alice", "password456")
	require.ErrorIs(t, err, auth.ErrUsernameTaken)
}

func TestLoginFailuresAreUniform(t *testing.T) {
	s := newService(nil)
	ctx := context.Background()
	require.NoError(t, s.Register(ctx, model.RolePatient, "alice", "password123"))

	// wrong password, unknown user, and role mismatch all look the same
	_, err := s.Login(ctx, model.RolePatient, "alice", "wrongpassword")
	require.ErrorIs(t, err, auth.ErrBadCredentials)

	_, err = s.Login(ctx, model.RolePatient, "nobody", "password123")
	require.ErrorIs(t, err, auth.ErrBadCredentials)

	_, err = s.Login(ctx, model.RoleCaregiver, "alice", "password123")
	require.ErrorIs(t, err, auth.ErrBadCredentials)
}

func TestLoginRateLimit(t *testing.T) {
	s := newService(auth.NewLoginLimiter(0.1, 2))
	ctx := context.Background()
	require.NoError(t, s.Register(ctx, model.RolePatient, "alice", "password123"))

	for i := 0; i < 2; i++ {
		_, err := s.Login(ctx, model.RolePatient, "alice", "wrongpassword")
		require.ErrorIs(t, err, auth.ErrBadCredentials)
	}
	_, err := s.Login(ctx, model.RolePatient, "alice", "password123")
	require.ErrorIs(t, err, auth.ErrTooManyAttempts)

	// other usernames are unaffected
	require.NoError(t, s.Register(ctx, model.RolePatient, "bob", "password123"))
	_, err = s.Login(ctx, model.RolePatient, "bob", "password123")
	require.NoError(t, err)
}

func TestTokenTampering(t *testing.T) {
	s := newService(nil)
	ctx := context.Background()
	require.NoError(t, s.Register(ctx, model.RoleCaregiver, "carol", "password123"))
	tok, err := s.Login(ctx, model.RoleCaregiver, "carol", "password123")
	require.NoError(t, err)

	_, err = s.Authenticate("not.a.token")
	require.ErrorIs(t, err, auth.ErrBadToken)

	_, err = auth.ParseToken(tok, "wrong-secret")
	require.ErrorIs(t, err, auth.ErrBadToken)

	// a token with a made-up role is rejected even when correctly signed
	forged, err := auth.MakeToken(model.Session{Role: "admin", Username: "carol"}, secret)
	require.NoError(t, err)
	_, err = auth.ParseToken(forged, secret)
	require.ErrorIs(t, err, auth.ErrBadToken)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)
	require.NotEqual(t, "password123", hash)
	require.True(t, auth.CheckPassword(hash, "password123"))
	require.False(t, auth.CheckPassword(hash, "password124"))
}
