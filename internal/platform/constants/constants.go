// Copyright (c) 2026 Tikra. All rights reserved.

/*
Package constants provides centralized, immutable values for the entire platform.

It defines default timeouts, buffer sizes, and cross-cutting keys that are shared
between different layers of the system.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Realtime: Channel buffer bounds, heartbeat cadence, slow-consumer grace.
  - Security: JWT issuers and cookie configuration.

Using this package ensures Magic Strings and Magic Numbers are eliminated
from the business logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "tikra-api"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	GlobalRequestTimeout = 10 * time.Second

	// PasswordVerifyTimeout bounds the compute-heavy bcrypt comparison.
	PasswordVerifyTimeout = 2 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second
)

// # Realtime Channel

const (
	// SubscriptionBuffer bounds the per-subscription outbound event queue.
	SubscriptionBuffer = 256

	// SlowConsumerGrace is how long a full queue may block before the
	// subscription is closed.
	SlowConsumerGrace = 5 * time.Second

	// ChannelHeartbeat is the WebSocket ping cadence.
	ChannelHeartbeat = 30 * time.Second

	// ChannelIdleRead closes a channel that produced no frames (including
	// pongs) for this long.
	ChannelIdleRead = 60 * time.Second

	// PollSubscriptionTTL reaps polling subscriptions that stopped polling.
	PollSubscriptionTTL = 2 * time.Minute

	// ElapsedPushInterval is how often a running timer's elapsed seconds are
	// pushed to visible subscriptions.
	ElapsedPushInterval = 15 * time.Second

	// HiddenPushInterval throttles elapsed pushes when the embedding iframe
	// reports itself invisible.
	HiddenPushInterval = 60 * time.Second
)

// # Rate Limiting

const (
	// RateLimitCleanupInterval is how often idle client windows are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute
)

// # Authentication

const (
	// AuthIssuer is the standard 'iss' claim in JWTs.
	AuthIssuer = "tikra.app"

	// AccessTokenCookieName is the cookie that mirrors the bearer access token.
	AccessTokenCookieName = "access_token"

	// RefreshTokenCookieName is the name of the cookie that stores the refresh token.
	RefreshTokenCookieName = "refresh_token"

	// AuthCookiePath scopes the auth cookies to the API surface.
	AuthCookiePath = "/api"

	// SessionIDHeader optionally cross-checks the bearer token against a
	// server-side session record.
	SessionIDHeader = "session-id"
)

// # HTTP Headers

const (
	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderOrigin        = "Origin"

	// Iframe embedding contract headers exposed through CORS.
	HeaderIframeCompatible   = "X-Iframe-Compatible"
	HeaderIframeRestrictions = "X-Iframe-Restrictions"
	HeaderFallbackMode       = "X-Fallback-Mode"
)

// # Domain Limits

const (
	// MaxProjectNameLen bounds project names.
	MaxProjectNameLen = 100

	// MaxDescriptionLen bounds time entry descriptions.
	MaxDescriptionLen = 500

	// MaxListLimit is the hard cap for list endpoint page sizes.
	MaxListLimit = 100
)

// # Redis Prefixes (Session Store Taxonomy)

const (
	RedisPrefixSession     = "auth:session:"
	RedisPrefixSessionUser = "auth:session_user:"
	RedisPrefixRefresh     = "auth:refresh:"
	RedisPrefixRefreshUser = "auth:refresh_user:"
	RedisPrefixRateLimit   = "ratelimit:"
)
