// Copyright (c) 2026 Tikra. All rights reserved.

package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tikra-app/tikra/internal/platform/apperr"
	"github.com/tikra-app/tikra/internal/platform/constants"
	"github.com/tikra-app/tikra/internal/platform/sec"
	"github.com/tikra-app/tikra/internal/platform/validate"
	"github.com/tikra-app/tikra/pkg/uuid"
)

// # Contracts & Types

// TokenProvider defines the contract for generating and verifying security tokens.
type TokenProvider interface {
	// GenerateAccessToken creates a signed JWT string for the given user and session.
	GenerateAccessToken(userID, email, role, sessionID string, timeToLive time.Duration) (string, error)

	// GenerateRefreshToken creates a signed refresh token carrying the token ID.
	GenerateRefreshToken(userID, tokenID string, timeToLive time.Duration) (string, error)

	// VerifyRefreshToken checks the signature and expiry of a refresh token.
	VerifyRefreshToken(tokenString string) (*sec.RefreshClaims, error)
}

// Options carries the tunable security parameters injected from configuration.
type Options struct {
	AccessTTL      time.Duration
	RefreshTTL     time.Duration
	SessionIdleTTL time.Duration
	PasswordCost   int
}

// Service implements the authentication use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing, token
// rotation, or replay handling must be reviewed by the security team.
type Service struct {
	userRepository UserRepository
	sessionStore   SessionStore
	refreshStore   RefreshTokenStore
	tokenProvider  TokenProvider
	options        Options
	logger         *slog.Logger
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(
	userRepo UserRepository,
	sessionStore SessionStore,
	refreshStore RefreshTokenStore,
	tokenProv TokenProvider,
	options Options,
	logger *slog.Logger,
) *Service {
	return &Service{
		userRepository: userRepo,
		sessionStore:   sessionStore,
		refreshStore:   refreshStore,
		tokenProvider:  tokenProv,
		options:        options,
		logger:         logger,
	}
}

// dummyHash is a real bcrypt digest compared against when the email does not
// resolve, so a miss costs the same as a wrong password.
const dummyHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

// NormalizeEmail trims and lower-cases an email for lookup and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// # Registration Flow

// RegisterInput holds the data required to enroll a new member.
type RegisterInput struct {
	Email          string
	Name           string
	Password       string
	OrganizationID string
}

// AuthResult represents a successfully established user session.
type AuthResult struct {
	User         *User
	SessionID    string
	AccessToken  string
	RefreshToken string
}

/*
Register validates, hashes, and persists a brand new user account, then
establishes its first session.

Parameters:
  - context: context.Context
  - input: RegisterInput

Returns:
  - *AuthResult: Created entity plus transport-ready credentials
  - error: VALIDATION_ERROR, USER_EXISTS, or storage errors
*/
func (service *Service) Register(context context.Context, input RegisterInput) (*AuthResult, error) {

	email := NormalizeEmail(input.Email)

	validator := &validate.Validator{}
	validator.Required(FieldEmail, email).
		Email(FieldEmail, email).
		Required(FieldName, input.Name).
		MinLen(FieldName, input.Name, 2).
		MaxLen(FieldName, input.Name, 100).
		Required(FieldPassword, input.Password).
		Password(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		return nil, err
	}

	// Prevent storing plain-text passwords. The cost factor is configured
	// with a hard floor of 10.
	hashedPassword, err := sec.HashPassword(input.Password, service.options.PasswordCost)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	// Time-sortable ID to prevent PG index fragmentation.
	user := &User{
		ID:             uuid.New(),
		Email:          email,
		Name:           strings.TrimSpace(input.Name),
		PasswordHash:   hashedPassword,
		OrganizationID: strings.TrimSpace(input.OrganizationID),
		Role:           sec.RoleUser,
		Preferences:    DefaultPreferences(),
	}

	// The unique index decides duplicates; no pre-check means no race window.
	if err := service.userRepository.Create(context, user); err != nil {
		return nil, err
	}

	return service.establishSession(context, user)
}

// # Authentication Flow

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	Email    string
	Password string
}

/*
Login validates user credentials and issues security tokens.

Description: Verifies identity with constant-time password comparison and a
uniform error for both unknown email and wrong password, then establishes a
fresh session.

Parameters:
  - context: context.Context
  - input: LoginInput

Returns:
  - *AuthResult: Transport-ready session identifiers
  - error: INVALID_CREDENTIALS or internal failures
*/
func (service *Service) Login(context context.Context, input LoginInput) (*AuthResult, error) {

	user, err := service.userRepository.FindByEmail(context, NormalizeEmail(input.Email))
	if err != nil {
		// Burn the same bcrypt cost as a real comparison before answering.
		_ = sec.VerifyPassword(context, constants.PasswordVerifyTimeout, input.Password, dummyHash)
		return nil, apperr.Unauthorized(apperr.CodeInvalidCredentials, "Invalid email or password")
	}

	if !sec.VerifyPassword(context, constants.PasswordVerifyTimeout, input.Password, user.PasswordHash) {
		return nil, apperr.Unauthorized(apperr.CodeInvalidCredentials, "Invalid email or password")
	}

	return service.establishSession(context, user)
}

// establishSession creates the session record, registers a refresh token ID,
// and signs both tokens. Nothing is persisted before the caller has verified
// the password.
func (service *Service) establishSession(context context.Context, user *User) (*AuthResult, error) {

	now := time.Now()
	session := &Session{
		ID:             uuid.New(),
		UserID:         user.ID,
		RefreshTokenID: uuid.New(),
		CreatedAt:      now,
		LastActivity:   now,
	}

	if err := service.sessionStore.Create(context, session, service.options.SessionIdleTTL); err != nil {
		return nil, fmt.Errorf("auth_service_session_creation_failed: %w", err)
	}

	record := RefreshRecord{UserID: user.ID, SessionID: session.ID}
	if err := service.refreshStore.Store(context, session.RefreshTokenID, record, service.options.RefreshTTL); err != nil {
		return nil, fmt.Errorf("auth_service_refresh_store_failed: %w", err)
	}

	accessToken, err := service.tokenProvider.GenerateAccessToken(
		user.ID, user.Email, string(user.Role), session.ID, service.options.AccessTTL)
	if err != nil {
		return nil, fmt.Errorf("auth_service_access_token_failed: %w", err)
	}

	refreshToken, err := service.tokenProvider.GenerateRefreshToken(
		user.ID, session.RefreshTokenID, service.options.RefreshTTL)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_token_failed: %w", err)
	}

	return &AuthResult{
		User:         user,
		SessionID:    session.ID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// # Token Rotation

/*
Refresh implements the single-use refresh token rotation mechanism.

Description: Verifies the signature, atomically consumes the token ID from
the session store, and issues a rotated token pair. A structurally valid
token whose ID is already consumed is a replay signal: every refresh token
for that user is revoked before failing.

Parameters:
  - context: context.Context
  - refreshToken: string

Returns:
  - *AuthResult: Rotated credentials bound to the surviving session
  - error: INVALID_REFRESH_TOKEN or storage failures
*/
func (service *Service) Refresh(context context.Context, refreshToken string) (*AuthResult, error) {

	claims, err := service.tokenProvider.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, apperr.Unauthorized(apperr.CodeInvalidRefreshToken, "Invalid or expired refresh token")
	}

	record, found, err := service.refreshStore.Consume(context, claims.TokenID)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_consume_failed: %w", err)
	}

	// Valid signature + missing record = the ID was consumed before. Someone
	// is replaying a stolen token; cut every outstanding refresh token.
	if !found || record.UserID != claims.UserID {
		service.logger.WarnContext(context, "refresh_replay_detected",
			slog.String("user_id", claims.UserID),
		)
		_ = service.refreshStore.RevokeAllForUser(context, claims.UserID)
		_ = service.sessionStore.DeleteByUser(context, claims.UserID)
		return nil, apperr.Unauthorized(apperr.CodeInvalidRefreshToken, "Refresh token has been revoked")
	}

	user, err := service.userRepository.FindByID(context, record.UserID)
	if err != nil {
		return nil, apperr.Unauthorized(apperr.CodeInvalidRefreshToken, "User no longer exists")
	}

	// Reuse the session the token was minted for; recreate it if the idle
	// TTL already reaped it.
	session, err := service.sessionStore.Get(context, record.SessionID)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_session_lookup_failed: %w", err)
	}
	if session == nil {
		now := time.Now()
		session = &Session{ID: uuid.New(), UserID: user.ID, CreatedAt: now, LastActivity: now}
	}

	// Rotation: fresh token ID, re-linked session, both with full TTLs.
	session.RefreshTokenID = uuid.New()
	session.LastActivity = time.Now()

	if err := service.sessionStore.Create(context, session, service.options.SessionIdleTTL); err != nil {
		return nil, fmt.Errorf("auth_service_refresh_session_update_failed: %w", err)
	}

	newRecord := RefreshRecord{UserID: user.ID, SessionID: session.ID}
	if err := service.refreshStore.Store(context, session.RefreshTokenID, newRecord, service.options.RefreshTTL); err != nil {
		return nil, fmt.Errorf("auth_service_refresh_rotate_failed: %w", err)
	}

	accessToken, err := service.tokenProvider.GenerateAccessToken(
		user.ID, user.Email, string(user.Role), session.ID, service.options.AccessTTL)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_access_token_failed: %w", err)
	}

	newRefreshToken, err := service.tokenProvider.GenerateRefreshToken(
		user.ID, session.RefreshTokenID, service.options.RefreshTTL)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_sign_failed: %w", err)
	}

	return &AuthResult{
		User:         user,
		SessionID:    session.ID,
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
	}, nil
}

// # Session Management

/*
Logout tears down the current session and its refresh token.

Description: Best-effort — records that are already gone never produce an
error, so a double logout is safe.

Parameters:
  - context: context.Context
  - sessionID: string
  - refreshToken: string (may be empty)

Returns:
  - error: Storage failures only
*/
func (service *Service) Logout(context context.Context, sessionID, refreshToken string) error {

	if refreshToken != "" {
		if claims, err := service.tokenProvider.VerifyRefreshToken(refreshToken); err == nil {
			_ = service.refreshStore.Revoke(context, claims.TokenID, claims.UserID)
		}
	}

	if sessionID != "" {
		if err := service.sessionStore.Delete(context, sessionID); err != nil {
			return fmt.Errorf("auth_service_logout_failed: %w", err)
		}
	}

	return nil
}

/*
LogoutAll destroys every session and refresh token for the user.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - error: Storage failures
*/
func (service *Service) LogoutAll(context context.Context, userID string) error {

	if err := service.sessionStore.DeleteByUser(context, userID); err != nil {
		return fmt.Errorf("auth_service_logout_all_sessions_failed: %w", err)
	}

	if err := service.refreshStore.RevokeAllForUser(context, userID); err != nil {
		return fmt.Errorf("auth_service_logout_all_refresh_failed: %w", err)
	}

	return nil
}

/*
ValidateSession reports whether the session is alive and bumps its
last-activity time. Implements the middleware session cross-check.

Parameters:
  - context: context.Context
  - sessionID: string

Returns:
  - bool: false when the session expired or was revoked
  - error: Storage failures
*/
func (service *Service) ValidateSession(context context.Context, sessionID string) (bool, error) {
	return service.sessionStore.Touch(context, sessionID, service.options.SessionIdleTTL)
}

// # Account Maintenance

/*
ChangePassword rotates the user's credential and logs out every device.

Description: Verifies the current password, applies the password policy to
the new one, persists the new hash, and destroys all sessions and refresh
tokens — the client must log in again.

Parameters:
  - context: context.Context
  - userID: string
  - currentPassword: string
  - newPassword: string

Returns:
  - error: INVALID_CURRENT_PASSWORD, VALIDATION_ERROR, or storage failures
*/
func (service *Service) ChangePassword(context context.Context, userID, currentPassword, newPassword string) error {

	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		return err
	}

	if !sec.VerifyPassword(context, constants.PasswordVerifyTimeout, currentPassword, user.PasswordHash) {
		return apperr.BadRequest(apperr.CodeInvalidCurrentPassword, "Current password is incorrect")
	}

	validator := &validate.Validator{}
	validator.Required(FieldNewPassword, newPassword).Password(FieldNewPassword, newPassword)
	if err := validator.Err(); err != nil {
		return err
	}

	hashedPassword, err := sec.HashPassword(newPassword, service.options.PasswordCost)
	if err != nil {
		return fmt.Errorf("auth_service_change_password_hash_failed: %w", err)
	}

	if err := service.userRepository.UpdatePassword(context, userID, hashedPassword); err != nil {
		return err
	}

	// Every device re-authenticates after a password change.
	return service.LogoutAll(context, userID)
}

/*
UpdatePreferences replaces the user's display and notification settings.

Parameters:
  - context: context.Context
  - userID: string
  - preferences: Preferences

Returns:
  - *User: The updated account view
  - error: VALIDATION_ERROR or storage failures
*/
func (service *Service) UpdatePreferences(context context.Context, userID string, preferences Preferences) (*User, error) {

	validator := &validate.Validator{}
	validator.OneOf(FieldTimeFormat, preferences.TimeFormat, "12h", "24h").
		Range(FieldWeekStartDay, preferences.WeekStartDay, 0, 6)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	if err := service.userRepository.UpdatePreferences(context, userID, preferences); err != nil {
		return nil, err
	}

	return service.userRepository.FindByID(context, userID)
}

/*
Me returns the account view of the authenticated user.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - *User: Hydrated entity
  - error: USER_NOT_FOUND or storage failures
*/
func (service *Service) Me(context context.Context, userID string) (*User, error) {
	return service.userRepository.FindByID(context, userID)
}
