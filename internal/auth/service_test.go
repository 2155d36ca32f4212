// Copyright (c) 2026 Tikra. All rights reserved.

package auth_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tikra-app/tikra/internal/auth"
	"github.com/tikra-app/tikra/internal/platform/apperr"
	"github.com/tikra-app/tikra/internal/platform/sec"
)

// # Fakes

// fakeUserRepo is an in-memory auth.UserRepository with the same unique-email
// behavior as the Postgres implementation.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*auth.User // keyed by ID
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*auth.User)}
}

func (repo *fakeUserRepo) FindByID(_ context.Context, id string) (*auth.User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	user, found := repo.users[id]
	if !found {
		return nil, apperr.NotFound(apperr.CodeUserNotFound, "User not found")
	}
	clone := *user
	return &clone, nil
}

func (repo *fakeUserRepo) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	for _, user := range repo.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, apperr.NotFound(apperr.CodeUserNotFound, "User not found")
}

func (repo *fakeUserRepo) Create(_ context.Context, user *auth.User) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	for _, existing := range repo.users {
		if existing.Email == user.Email {
			return apperr.Conflict(apperr.CodeUserExists, "An account with this email already exists")
		}
	}

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	clone := *user
	repo.users[user.ID] = &clone
	return nil
}

func (repo *fakeUserRepo) UpdatePassword(_ context.Context, userID, newHash string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	user, found := repo.users[userID]
	if !found {
		return apperr.NotFound(apperr.CodeUserNotFound, "User not found")
	}
	user.PasswordHash = newHash
	user.UpdatedAt = time.Now()
	return nil
}

func (repo *fakeUserRepo) UpdatePreferences(_ context.Context, userID string, preferences auth.Preferences) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	user, found := repo.users[userID]
	if !found {
		return apperr.NotFound(apperr.CodeUserNotFound, "User not found")
	}
	user.Preferences = preferences
	user.UpdatedAt = time.Now()
	return nil
}

// # Harness

const testSecret = "0123456789abcdef0123456789abcdef" // 32 bytes, HS256 floor

func newAuthService(t *testing.T) (*auth.Service, *auth.MemorySessionStore) {
	t.Helper()

	tokens, err := sec.NewTokenService(testSecret, "tikra.test")
	require.NoError(t, err)

	// Minimum bcrypt cost keeps the suite fast; the policy floor is enforced
	// by configuration, not by the service.
	options := auth.Options{
		AccessTTL:      15 * time.Minute,
		RefreshTTL:     time.Hour,
		SessionIdleTTL: time.Hour,
		PasswordCost:   4,
	}

	store := auth.NewMemorySessionStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := auth.NewService(newFakeUserRepo(), store, store, tokens, options, logger)

	return service, store
}

func register(t *testing.T, service *auth.Service) *auth.AuthResult {
	t.Helper()

	result, err := service.Register(context.Background(), auth.RegisterInput{
		Email:    "Dana@Example.COM",
		Name:     "Dana",
		Password: "Sup3r-Secret!",
	})
	require.NoError(t, err)
	return result
}

// # Registration

/*
TestAuth_Register verifies normalization, defaults, and that the returned
token pair is immediately usable.
*/
func TestAuth_Register(t *testing.T) {
	service, _ := newAuthService(t)

	result := register(t, service)

	assert.Equal(t, "dana@example.com", result.User.Email)
	assert.Equal(t, sec.RoleUser, result.User.Role)
	assert.Equal(t, "24h", result.User.Preferences.TimeFormat)
	assert.NotEmpty(t, result.SessionID)
	assert.NotEmpty(t, result.AccessToken)
	assert.NotEmpty(t, result.RefreshToken)

	// The session is live straight away.
	alive, err := service.ValidateSession(context.Background(), result.SessionID)
	require.NoError(t, err)
	assert.True(t, alive)
}

/*
TestAuth_Register_Duplicate rejects a second account on the same email,
case-insensitively.
*/
func TestAuth_Register_Duplicate(t *testing.T) {
	service, _ := newAuthService(t)
	register(t, service)

	_, err := service.Register(context.Background(), auth.RegisterInput{
		Email:    "DANA@example.com",
		Name:     "Imposter",
		Password: "Sup3r-Secret!",
	})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeUserExists))
}

/*
TestAuth_Register_WeakPassword rejects passwords outside the policy.
*/
func TestAuth_Register_WeakPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
	}{
		{"too_short", "Ab1!"},
		{"no_upper", "sup3r-secret!"},
		{"no_digit", "Super-Secret!"},
		{"no_symbol", "Sup3rSecret1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, _ := newAuthService(t)

			_, err := service.Register(context.Background(), auth.RegisterInput{
				Email:    "dana@example.com",
				Name:     "Dana",
				Password: tt.password,
			})
			require.Error(t, err)
			assert.True(t, apperr.IsCode(err, apperr.CodeValidation))
		})
	}
}

// # Login

/*
TestAuth_Login verifies the uniform credential error for both unknown email
and wrong password.
*/
func TestAuth_Login(t *testing.T) {
	service, _ := newAuthService(t)
	register(t, service)
	ctx := context.Background()

	result, err := service.Login(ctx, auth.LoginInput{Email: "dana@example.com", Password: "Sup3r-Secret!"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)

	_, err = service.Login(ctx, auth.LoginInput{Email: "dana@example.com", Password: "wrong"})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidCredentials))

	_, err = service.Login(ctx, auth.LoginInput{Email: "nobody@example.com", Password: "Sup3r-Secret!"})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidCredentials))
}

// # Token Rotation

/*
TestAuth_Refresh verifies single-use rotation: the refresh succeeds once and
yields a different token pair.
*/
func TestAuth_Refresh(t *testing.T) {
	service, _ := newAuthService(t)
	first := register(t, service)

	rotated, err := service.Refresh(context.Background(), first.RefreshToken)
	require.NoError(t, err)

	assert.NotEqual(t, first.RefreshToken, rotated.RefreshToken)
	assert.NotEmpty(t, rotated.AccessToken)
	assert.Equal(t, first.User.ID, rotated.User.ID)
}

/*
TestAuth_Refresh_Replay verifies the replay response: reusing a consumed
refresh token revokes every session and refresh token of the user.
*/
func TestAuth_Refresh_Replay(t *testing.T) {
	service, _ := newAuthService(t)
	first := register(t, service)
	ctx := context.Background()

	rotated, err := service.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)

	// Replaying the consumed token fails...
	_, err = service.Refresh(ctx, first.RefreshToken)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidRefreshToken))

	// ...and takes the legitimate rotated token down with it.
	_, err = service.Refresh(ctx, rotated.RefreshToken)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidRefreshToken))

	// Sessions were revoked as part of the cascade.
	alive, err := service.ValidateSession(ctx, rotated.SessionID)
	require.NoError(t, err)
	assert.False(t, alive)
}

/*
TestAuth_Refresh_Garbage rejects structurally invalid tokens without touching
any stored state.
*/
func TestAuth_Refresh_Garbage(t *testing.T) {
	service, _ := newAuthService(t)
	result := register(t, service)
	ctx := context.Background()

	_, err := service.Refresh(ctx, "not-a-jwt")
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidRefreshToken))

	// The legitimate token still works afterwards.
	_, err = service.Refresh(ctx, result.RefreshToken)
	require.NoError(t, err)
}

// # Session Lifecycle

/*
TestAuth_Logout verifies the session dies and a double logout stays silent.
*/
func TestAuth_Logout(t *testing.T) {
	service, _ := newAuthService(t)
	result := register(t, service)
	ctx := context.Background()

	require.NoError(t, service.Logout(ctx, result.SessionID, result.RefreshToken))

	alive, err := service.ValidateSession(ctx, result.SessionID)
	require.NoError(t, err)
	assert.False(t, alive)

	// The refresh token was revoked alongside the session.
	_, err = service.Refresh(ctx, result.RefreshToken)
	require.Error(t, err)

	require.NoError(t, service.Logout(ctx, result.SessionID, result.RefreshToken))
}

/*
TestAuth_ChangePassword verifies credential rotation logs out every device
and the new password takes effect.
*/
func TestAuth_ChangePassword(t *testing.T) {
	service, _ := newAuthService(t)
	result := register(t, service)
	ctx := context.Background()

	err := service.ChangePassword(ctx, result.User.ID, "wrong", "N3w-Secret!!")
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidCurrentPassword))

	err = service.ChangePassword(ctx, result.User.ID, "Sup3r-Secret!", "weak")
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeValidation))

	require.NoError(t, service.ChangePassword(ctx, result.User.ID, "Sup3r-Secret!", "N3w-Secret!!"))

	// Every session and refresh token is gone.
	alive, err := service.ValidateSession(ctx, result.SessionID)
	require.NoError(t, err)
	assert.False(t, alive)

	_, err = service.Refresh(ctx, result.RefreshToken)
	require.Error(t, err)

	// Old credential dead, new credential live.
	_, err = service.Login(ctx, auth.LoginInput{Email: "dana@example.com", Password: "Sup3r-Secret!"})
	require.Error(t, err)

	_, err = service.Login(ctx, auth.LoginInput{Email: "dana@example.com", Password: "N3w-Secret!!"})
	require.NoError(t, err)
}

/*
TestAuth_UpdatePreferences verifies the preference whitelist.
*/
func TestAuth_UpdatePreferences(t *testing.T) {
	service, _ := newAuthService(t)
	result := register(t, service)
	ctx := context.Background()

	updated, err := service.UpdatePreferences(ctx, result.User.ID, auth.Preferences{
		TimeFormat:   "12h",
		WeekStartDay: 0,
	})
	require.NoError(t, err)
	assert.Equal(t, "12h", updated.Preferences.TimeFormat)

	_, err = service.UpdatePreferences(ctx, result.User.ID, auth.Preferences{
		TimeFormat:   "metric",
		WeekStartDay: 9,
	})
	require.Error(t, err)

	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, apperr.CodeValidation, ae.Code)
}
