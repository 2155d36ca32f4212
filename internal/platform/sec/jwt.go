// Copyright (c) 2026 Tikra. All rights reserved.

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing) from
// the domain logic. It acts as an Infrastructure service injected into the
// Application layer via the [auth.TokenProvider] interface.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// # Token Errors

var (
	// ErrTokenExpired marks a structurally valid but expired token.
	ErrTokenExpired = errors.New("sec: token expired")

	// ErrTokenInvalid marks a malformed, tampered, or mis-typed token.
	ErrTokenInvalid = errors.New("sec: token invalid")
)

// AuthClaims represents the payload embedded inside a JWT Access Token.
//
// # Why custom claims?
//
// By embedding the UserID, Email, and Role directly inside the JWT,
// the [middleware.Authenticate] can reconstruct the active user context
// WITHOUT querying the database on every single API request. The session
// ID ties the token to a revocable server-side session record.
type AuthClaims struct {
	jwt.RegisteredClaims

	// Custom application claims are abbreviated to keep the JWT payload small.
	UserID    string `json:"uid"`
	Email     string `json:"eml"`
	Role      string `json:"rol"`
	SessionID string `json:"sid"`
}

// RefreshClaims is the payload of a signed refresh token. The token ID must
// also exist in the session store — the signature alone is never sufficient.
type RefreshClaims struct {
	jwt.RegisteredClaims

	UserID  string `json:"uid"`
	TokenID string `json:"jti_id"`
}

// TokenService handles generation and verification of JWT tokens using
// HS256 with a process-wide secret injected via configuration.
type TokenService struct {
	secret []byte
	issuer string
}

// NewTokenService creates a new TokenService from the shared signing secret.
func NewTokenService(secret, issuer string) (*TokenService, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("sec: token secret must be at least 32 bytes, got %d", len(secret))
	}
	return &TokenService{secret: []byte(secret), issuer: issuer}, nil
}

// GenerateAccessToken creates a new short-lived JWT access token for a user.
func (service *TokenService) GenerateAccessToken(userID, email, role, sessionID string, timeToLive time.Duration) (string, error) {
	currentTime := time.Now()
	claims := AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(timeToLive)),
		},
		UserID:    userID,
		Email:     email,
		Role:      role,
		SessionID: sessionID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(service.secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign access token: %w", err)
	}

	return signedToken, nil
}

// GenerateRefreshToken creates a signed refresh token carrying the given
// opaque token ID. The caller is responsible for registering the ID in the
// session store.
func (service *TokenService) GenerateRefreshToken(userID, tokenID string, timeToLive time.Duration) (string, error) {
	currentTime := time.Now()
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    service.issuer,
			ID:        tokenID,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(timeToLive)),
		},
		UserID:  userID,
		TokenID: tokenID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(service.secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign refresh token: %w", err)
	}

	return signedToken, nil
}

// VerifyToken checks the signature and validity of a JWT access token.
func (service *TokenService) VerifyToken(tokenString string) (*AuthClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AuthClaims{}, service.keyFunc)
	if err != nil {
		return nil, classifyJWTError(err)
	}

	claims, ok := token.Claims.(*AuthClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// VerifyRefreshToken checks the signature and validity of a refresh token.
// The caller must still consume the token ID from the session store.
func (service *TokenService) VerifyRefreshToken(tokenString string) (*RefreshClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &RefreshClaims{}, service.keyFunc)
	if err != nil {
		return nil, classifyJWTError(err)
	}

	claims, ok := token.Claims.(*RefreshClaims)
	if !ok || !token.Valid || claims.TokenID == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// keyFunc restricts verification to the HMAC family before releasing the secret.
func (service *TokenService) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
	}
	return service.secret, nil
}

// classifyJWTError separates expiry from every other verification failure so
// the edge can emit TOKEN_EXPIRED vs TOKEN_INVALID.
func classifyJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return ErrTokenExpired
	}
	return fmt.Errorf("%w: %s", ErrTokenInvalid, err.Error())
}
