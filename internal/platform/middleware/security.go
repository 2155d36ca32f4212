// Copyright (c) 2026 Tikra. All rights reserved.

package middleware

import (
	"net/http"
	"strings"

	"github.com/tikra-app/tikra/internal/platform/constants"
)

// # Embedding & Browser Security Policy

// SecurityHeaders sets the browser security policy for every response.
//
// # Iframe Contract
//
// The app is designed to run inside third-party iframes. Requests whose
// Origin is on the embed allow-list get a frame-ancestors policy naming the
// allowed hosts and an X-Iframe-Compatible marker; everything else is locked
// down to same-origin framing.
func SecurityHeaders(cfg EmbedConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			header := writer.Header()

			// 1. Baseline hardening for every response
			header.Set("X-Content-Type-Options", "nosniff")
			header.Set("X-XSS-Protection", "1; mode=block")
			header.Set("Referrer-Policy", "strict-origin-when-cross-origin")

			// 2. Framing policy driven by the Origin allow-list
			origin := request.Header.Get(constants.HeaderOrigin)
			embedded := origin != "" && (cfg.IsDevelopment() || OriginAllowed(cfg, origin))

			if embedded {
				header.Set("Content-Security-Policy", frameAncestorsPolicy(cfg))
				header.Set(constants.HeaderIframeCompatible, "true")
				header.Set(constants.HeaderIframeRestrictions, "third-party-cookies")
			} else {
				header.Set("X-Frame-Options", "SAMEORIGIN")
				header.Set("Content-Security-Policy", "frame-ancestors 'self'")
			}

			next.ServeHTTP(writer, request)
		})
	}
}

// frameAncestorsPolicy builds the CSP directive naming every allowed embedder.
func frameAncestorsPolicy(cfg EmbedConfig) string {
	ancestors := append([]string{"'self'"}, cfg.EmbedHosts()...)
	return "frame-ancestors " + strings.Join(ancestors, " ")
}
