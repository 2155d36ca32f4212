// Copyright (c) 2026 Tikra. All rights reserved.

package sec_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tikra-app/tikra/internal/platform/sec"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTokenService(t *testing.T) *sec.TokenService {
	t.Helper()

	service, err := sec.NewTokenService(testSecret, "tikra.test")
	require.NoError(t, err)
	return service
}

/*
TestTokenService_SecretFloor rejects secrets below the 32-byte floor.
*/
func TestTokenService_SecretFloor(t *testing.T) {
	_, err := sec.NewTokenService("too-short", "tikra.test")
	require.Error(t, err)

	_, err = sec.NewTokenService(testSecret, "tikra.test")
	assert.NoError(t, err)
}

/*
TestTokenService_AccessRoundTrip signs an access token and verifies every
custom claim survives.
*/
func TestTokenService_AccessRoundTrip(t *testing.T) {
	service := newTokenService(t)

	token, err := service.GenerateAccessToken("user-1", "dana@example.com", "admin", "sess-1", 15*time.Minute)
	require.NoError(t, err)

	claims, err := service.VerifyToken(token)
	require.NoError(t, err)

	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "dana@example.com", claims.Email)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "sess-1", claims.SessionID)
	assert.Equal(t, "tikra.test", claims.Issuer)
}

/*
TestTokenService_Expired verifies an expired token fails with the expiry
sentinel, not the generic invalid one.
*/
func TestTokenService_Expired(t *testing.T) {
	service := newTokenService(t)

	token, err := service.GenerateAccessToken("user-1", "dana@example.com", "user", "sess-1", -1*time.Minute)
	require.NoError(t, err)

	_, err = service.VerifyToken(token)
	require.Error(t, err)
	assert.ErrorIs(t, err, sec.ErrTokenExpired)
}

/*
TestTokenService_Tampered rejects tokens signed with a different secret and
plain garbage.
*/
func TestTokenService_Tampered(t *testing.T) {
	service := newTokenService(t)

	other, err := sec.NewTokenService("ffffffffffffffffffffffffffffffff", "tikra.test")
	require.NoError(t, err)

	foreign, err := other.GenerateAccessToken("user-1", "dana@example.com", "user", "sess-1", time.Minute)
	require.NoError(t, err)

	_, err = service.VerifyToken(foreign)
	require.Error(t, err)
	assert.ErrorIs(t, err, sec.ErrTokenInvalid)

	_, err = service.VerifyToken("not.a.jwt")
	require.Error(t, err)
	assert.ErrorIs(t, err, sec.ErrTokenInvalid)
}

/*
TestTokenService_RefreshRoundTrip verifies the refresh token carries its
token ID and that token kinds are not interchangeable.
*/
func TestTokenService_RefreshRoundTrip(t *testing.T) {
	service := newTokenService(t)

	token, err := service.GenerateRefreshToken("user-1", "tok-1", time.Hour)
	require.NoError(t, err)

	claims, err := service.VerifyRefreshToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "tok-1", claims.TokenID)

	// An access token is not a valid refresh token: it has no token ID.
	access, err := service.GenerateAccessToken("user-1", "dana@example.com", "user", "sess-1", time.Hour)
	require.NoError(t, err)

	_, err = service.VerifyRefreshToken(access)
	require.Error(t, err)
}

/*
TestPassword_HashRoundTrip verifies hashing and comparison, including the
cost floor fallback.
*/
func TestPassword_HashRoundTrip(t *testing.T) {
	hash, err := sec.HashPassword("Sup3r-Secret!", 4)
	require.NoError(t, err)
	assert.NotEqual(t, "Sup3r-Secret!", hash)

	assert.True(t, sec.CheckPasswordHash("Sup3r-Secret!", hash))
	assert.False(t, sec.CheckPasswordHash("sup3r-secret!", hash))

	// A cost below the bcrypt minimum falls back to the library default.
	fallback, err := sec.HashPassword("Sup3r-Secret!", 0)
	require.NoError(t, err)
	assert.True(t, sec.CheckPasswordHash("Sup3r-Secret!", fallback))
}

/*
TestPassword_VerifyDeadline verifies the bounded comparison matches the plain
one inside the deadline and refuses once the deadline has expired.
*/
func TestPassword_VerifyDeadline(t *testing.T) {
	hash, err := sec.HashPassword("Sup3r-Secret!", 4)
	require.NoError(t, err)

	// 1. Within the deadline the comparison is authoritative.
	assert.True(t, sec.VerifyPassword(context.Background(), time.Second, "Sup3r-Secret!", hash))
	assert.False(t, sec.VerifyPassword(context.Background(), time.Second, "wrong", hash))

	// 2. An expired deadline reports a mismatch even for the right password.
	assert.False(t, sec.VerifyPassword(context.Background(), -time.Millisecond, "Sup3r-Secret!", hash))
}
