// Copyright (c) 2026 Tikra. All rights reserved.

// Package middleware provides the HTTP middleware chain for the Tikra API server.
//
// # Architecture
//
// Middleware intercepts incoming HTTP requests to apply global policies
// before they reach the domain handlers. This includes cross-cutting concerns
// like Logging, AuthZ/AuthN, Rate Limiting, and CORS.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/tikra-app/tikra/internal/platform/apperr"
	"github.com/tikra-app/tikra/internal/platform/constants"
	"github.com/tikra-app/tikra/internal/platform/ctxutil"
	"github.com/tikra-app/tikra/internal/platform/respond"
	"github.com/tikra-app/tikra/internal/platform/sec"
)

// TokenVerifier defines the interface needed to verify tokens in middleware.
//
// # Why an interface?
//
// Defining TokenVerifier here decouples the middleware from the `sec` token
// service implementation, allowing us to easily inject mocks during unit testing.
type TokenVerifier interface {
	VerifyToken(tokenStr string) (*sec.AuthClaims, error)
}

// SessionValidator cross-checks the bearer token's session against the
// server-side Session Store and bumps its last-activity timestamp.
type SessionValidator interface {
	// ValidateSession returns false when the session no longer exists
	// (logged out, revoked, or idle-expired).
	ValidateSession(ctx context.Context, sessionID string) (bool, error)
}

// Authenticate extracts and verifies the JWT from the Authorization header
// (or the access-token cookie set for embedded clients).
//
// # Flow
//  1. Check for 'Authorization: Bearer <token>' header, then the cookie.
//  2. If absent, request proceeds as anonymous.
//  3. If present, parse and verify the JWT via [TokenVerifier].
//  4. Cross-check the session record; reject a mismatched 'session-id' header.
//  5. Inject [*sec.AuthClaims] into the request context for downstream use.
func Authenticate(verifier TokenVerifier, sessions SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			// ── 1. Credential Extraction ──────────────────────────────────────
			tokenStr := bearerToken(request)
			if tokenStr == "" {
				next.ServeHTTP(writer, request)
				return
			}

			// ── 2. Token Verification ─────────────────────────────────────────
			claims, err := verifier.VerifyToken(tokenStr)
			if err != nil {
				if errors.Is(err, sec.ErrTokenExpired) {
					respond.Error(writer, request, apperr.Unauthorized(apperr.CodeTokenExpired, "Token expired"))
					return
				}
				respond.Error(writer, request, apperr.Unauthorized(apperr.CodeTokenInvalid, "Invalid token"))
				return
			}

			// ── 3. Session Cross-Check ────────────────────────────────────────
			// The token is only as alive as its server-side session record.
			if claims.SessionID != "" && sessions != nil {
				if headerSession := request.Header.Get(constants.SessionIDHeader); headerSession != "" && headerSession != claims.SessionID {
					respond.Error(writer, request, apperr.Unauthorized(apperr.CodeInvalidSession, "Session does not match credential"))
					return
				}

				alive, err := sessions.ValidateSession(request.Context(), claims.SessionID)
				if err != nil {
					respond.Error(writer, request, err)
					return
				}
				if !alive {
					respond.Error(writer, request, apperr.Unauthorized(apperr.CodeInvalidSession, "Session expired or revoked"))
					return
				}
			}

			// ── 4. Context Injection ──────────────────────────────────────────
			ctx := ctxutil.WithAuthUser(request.Context(), claims)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// RequireAuth blocks requests that are not authenticated.
//
// # Usage
//
// Must be registered in the router AFTER [Authenticate].
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		claims := ctxutil.GetAuthUser(request.Context())
		if claims == nil {
			respond.Error(writer, request, apperr.Unauthorized(apperr.CodeTokenMissing, "Authentication required"))
			return
		}
		next.ServeHTTP(writer, request)
	})
}

// RequireRole blocks requests if the authenticated user doesn't have the required role.
//
// # Usage
//
// Must be registered in the router AFTER [Authenticate]. It automatically implies
// [RequireAuth] so you don't need to mount both.
func RequireRole(role sec.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			claims := ctxutil.GetAuthUser(request.Context())

			// ── 1. Authentication Check ───────────────────────────────────────
			if claims == nil {
				respond.Error(writer, request, apperr.Unauthorized(apperr.CodeTokenMissing, "Authentication required"))
				return
			}

			// ── 2. Authorization Check ────────────────────────────────────────
			userRole := sec.UserRole(claims.Role)
			if !userRole.AtLeast(role) {
				respond.Error(writer, request, apperr.Forbidden(apperr.CodeAdminRequired, "Administrator access required"))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

// bearerToken extracts the access token from the Authorization header, or
// falls back to the cookie set for embedded iframe clients.
func bearerToken(request *http.Request) string {
	authHeader := request.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
		return ""
	}

	cookie, err := request.Cookie(constants.AccessTokenCookieName)
	if err != nil || cookie == nil {
		return ""
	}
	return cookie.Value
}
