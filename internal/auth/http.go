// Copyright (c) 2026 Tikra. All rights reserved.

package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tikra-app/tikra/internal/platform/apperr"
	"github.com/tikra-app/tikra/internal/platform/constants"
	"github.com/tikra-app/tikra/internal/platform/middleware"
	requestutil "github.com/tikra-app/tikra/internal/platform/request"
	"github.com/tikra-app/tikra/internal/platform/respond"
	"github.com/tikra-app/tikra/internal/platform/validate"
)

// # Definitions & Constructors

// Handler implements authentication-related HTTP endpoints.
//
// # Iframe Contract
//
// Every successful auth response carries the token pair both in the JSON
// body AND as HttpOnly SameSite=None cookies, because embedded clients in
// third-party iframes may be denied cookie storage and must be able to fall
// back to header-based auth.
type Handler struct {
	authService *Service
	options     Options
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service, options Options) *Handler {
	return &Handler{authService: service, options: options}
}

// Routes returns a [chi.Router] configured with authentication-specific routes.
// authLimit is the stricter per-IP window applied only to the credential
// endpoints — the attack surface for stuffing and token grinding.
func (handler *Handler) Routes(authLimit func(http.Handler) http.Handler) chi.Router {
	router := chi.NewRouter()

	// Credential endpoints behind the auth-class limiter
	router.Group(func(r chi.Router) {
		r.Use(authLimit)
		r.Post("/register", handler.register)
		r.Post("/login", handler.login)
		r.Post("/refresh", handler.refresh)
	})

	// Public endpoints
	router.Post("/logout", handler.logout)

	// Protected endpoints
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Post("/logout-all", handler.logoutAll)
		r.Get("/me", handler.me)
		r.Put("/change-password", handler.changePassword)
		r.Put("/preferences", handler.updatePreferences)
	})

	return router
}

// # Request Payloads

type registerRequest struct {
	Email          string `json:"email"`
	Name           string `json:"name"`
	Password       string `json:"password"`
	OrganizationID string `json:"organizationId"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

/*
Register handles the creation of a new user account.

POST /api/auth/register

Request:
  - Body: registerRequest (Email, Name, Password, OrganizationID?)

Response:
  - 201: {user, sessionId} plus auth cookies
  - 400: VALIDATION_ERROR: Bad input (weak password, invalid email, short name)
  - 409: USER_EXISTS: Email already registered
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	result, err := handler.authService.Register(request.Context(), RegisterInput{
		Email:          input.Email,
		Name:           input.Name,
		Password:       input.Password,
		OrganizationID: input.OrganizationID,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setAuthCookies(writer, result)
	respond.Created(writer, map[string]any{
		"user":      result.User,
		"sessionId": result.SessionID,
	})
}

/*
Login authenticates a user and establishes a session.

POST /api/auth/login

Request:
  - Body: loginRequest (Email, Password)

Response:
  - 200: {user, sessionId} plus auth cookies
  - 401: INVALID_CREDENTIALS: Uniform for unknown email and wrong password
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Required(FieldPassword, input.Password)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.authService.Login(request.Context(), LoginInput{
		Email:    input.Email,
		Password: input.Password,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setAuthCookies(writer, result)
	respond.OK(writer, map[string]any{
		"user":      result.User,
		"sessionId": result.SessionID,
	})
}

/*
Refresh rotates the token pair using a single-use refresh token.

POST /api/auth/refresh

Request:
  - Body: refreshRequest (RefreshToken?), falling back to the refresh cookie

Response:
  - 200: {accessToken} plus rotated auth cookies
  - 401: INVALID_REFRESH_TOKEN: Bad, expired, or replayed token
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	var input refreshRequest
	_ = requestutil.DecodeJSON(request, &input)

	refreshToken := input.RefreshToken
	if refreshToken == "" {
		if cookie, err := request.Cookie(constants.RefreshTokenCookieName); err == nil {
			refreshToken = cookie.Value
		}
	}

	if refreshToken == "" {
		respond.Error(writer, request, apperr.Unauthorized(apperr.CodeInvalidRefreshToken, "Missing refresh token"))
		return
	}

	result, err := handler.authService.Refresh(request.Context(), refreshToken)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setAuthCookies(writer, result)
	respond.OK(writer, map[string]any{
		"accessToken": result.AccessToken,
	})
}

/*
Logout terminates the current session.

POST /api/auth/logout

Description: Best-effort — works with or without a live access token, and
always clears the auth cookies.

Response:
  - 200: {success:true}
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {

	sessionID := ""
	if claims := requestutil.Claims(request); claims != nil {
		sessionID = claims.SessionID
	}

	refreshToken := ""
	if cookie, err := request.Cookie(constants.RefreshTokenCookieName); err == nil {
		refreshToken = cookie.Value
	}

	if err := handler.authService.Logout(request.Context(), sessionID, refreshToken); err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.clearAuthCookies(writer)
	respond.OK(writer, map[string]any{"success": true})
}

/*
LogoutAll destroys every session and refresh token of the caller.

POST /api/auth/logout-all

Response:
  - 200: {success:true}
  - 401: TOKEN_MISSING
*/
func (handler *Handler) logoutAll(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.LogoutAll(request.Context(), userID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.clearAuthCookies(writer)
	respond.OK(writer, map[string]any{"success": true})
}

/*
Me returns the profile of the authenticated user.

GET /api/auth/me

Response:
  - 200: {user}
  - 401: TOKEN_MISSING
*/
func (handler *Handler) me(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.authService.Me(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{"user": user})
}

/*
ChangePassword rotates the caller's credential and logs out all devices.

PUT /api/auth/change-password

Request:
  - Body: changePasswordRequest (CurrentPassword, NewPassword)

Response:
  - 200: {success:true}, auth cookies cleared
  - 400: INVALID_CURRENT_PASSWORD or VALIDATION_ERROR
*/
func (handler *Handler) changePassword(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input changePasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldCurrentPassword, input.CurrentPassword).
		Required(FieldNewPassword, input.NewPassword)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.ChangePassword(request.Context(), userID, input.CurrentPassword, input.NewPassword); err != nil {
		respond.Error(writer, request, err)
		return
	}

	// Every session is gone; the client must log in again.
	handler.clearAuthCookies(writer)
	respond.OK(writer, map[string]any{"success": true})
}

/*
UpdatePreferences replaces the caller's display and notification settings.

PUT /api/auth/preferences

Request:
  - Body: Preferences (TimeFormat, WeekStartDay, Notifications)

Response:
  - 200: {user}
  - 400: VALIDATION_ERROR
*/
func (handler *Handler) updatePreferences(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input Preferences
	if err := requestutil.DecodeJSONStrict(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	user, err := handler.authService.UpdatePreferences(request.Context(), userID, input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{"user": user})
}

// # Cookie Handling

// setAuthCookies mirrors the token pair as HttpOnly cookies. SameSite=None
// is required for cross-origin iframe requests; Secure is mandatory with it.
func (handler *Handler) setAuthCookies(writer http.ResponseWriter, result *AuthResult) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.AccessTokenCookieName,
		Value:    result.AccessToken,
		Path:     constants.AuthCookiePath,
		MaxAge:   int(handler.options.AccessTTL.Seconds()),
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteNoneMode,
	})
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.RefreshTokenCookieName,
		Value:    result.RefreshToken,
		Path:     constants.AuthCookiePath,
		MaxAge:   int(handler.options.RefreshTTL.Seconds()),
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteNoneMode,
	})
}

// clearAuthCookies expires both auth cookies on the client.
func (handler *Handler) clearAuthCookies(writer http.ResponseWriter) {
	for _, name := range []string{constants.AccessTokenCookieName, constants.RefreshTokenCookieName} {
		http.SetCookie(writer, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     constants.AuthCookiePath,
			MaxAge:   -1,
			Secure:   true,
			HttpOnly: true,
			SameSite: http.SameSiteNoneMode,
		})
	}
}
