// Copyright (c) 2026 Tikra. All rights reserved.

package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tikra-app/tikra/internal/platform/apperr"
	"github.com/tikra-app/tikra/internal/platform/constants"
	"github.com/tikra-app/tikra/internal/platform/respond"
)

// # Rate Limiting

// Limiter decides whether a keyed client may proceed. It is an interface so
// the in-memory single-instance implementation can be swapped for a shared
// Redis-backed one without touching any handler.
type Limiter interface {
	// Allow records an attempt for the key and reports whether it is within
	// the window, returning the retry hint when it is not.
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
}

// RateLimit applies the given limiter per client IP, with a class label to
// keep auth and general API windows in separate key spaces.
func RateLimit(limiter Limiter, class string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			key := class + ":" + RealIP(request)

			allowed, retryAfter, err := limiter.Allow(request.Context(), key)
			if err != nil {
				// A broken limiter backend must not take the API down.
				next.ServeHTTP(writer, request)
				return
			}

			if !allowed {
				retrySeconds := int(math.Ceil(retryAfter.Seconds()))
				if retrySeconds < 1 {
					retrySeconds = 1
				}
				writer.Header().Set("Retry-After", strconv.Itoa(retrySeconds))
				respond.Error(writer, request, apperr.RateLimited(retrySeconds))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

// # In-Memory Sliding Window

type slidingWindow struct {
	attempts []time.Time
	lastSeen time.Time
}

// MemoryLimiter is a per-process sliding-window limiter keyed by client.
//
// # Scale
//
// Suitable for a single instance; horizontal deployments should use
// [RedisLimiter] so all replicas share one window.
type MemoryLimiter struct {
	mu      sync.Mutex
	clients map[string]*slidingWindow
	max     int
	window  time.Duration
	now     func() time.Time
}

// NewMemoryLimiter constructs a limiter allowing max attempts per window.
// A background janitor reaps idle client windows until ctx is cancelled.
func NewMemoryLimiter(ctx context.Context, max int, window time.Duration) *MemoryLimiter {
	limiter := &MemoryLimiter{
		clients: make(map[string]*slidingWindow),
		max:     max,
		window:  window,
		now:     time.Now,
	}

	go func() {
		ticker := time.NewTicker(constants.RateLimitCleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				limiter.reap()
			case <-ctx.Done():
				return
			}
		}
	}()

	return limiter
}

// Allow implements [Limiter] with a true sliding window: only attempts inside
// the trailing window count, and the retry hint is the age of the oldest one.
func (limiter *MemoryLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	now := limiter.now()
	windowStart := now.Add(-limiter.window)

	client, found := limiter.clients[key]
	if !found {
		client = &slidingWindow{}
		limiter.clients[key] = client
	}
	client.lastSeen = now

	// Drop attempts that slid out of the window.
	kept := client.attempts[:0]
	for _, attempt := range client.attempts {
		if attempt.After(windowStart) {
			kept = append(kept, attempt)
		}
	}
	client.attempts = kept

	if len(client.attempts) >= limiter.max {
		oldest := client.attempts[0]
		retryAfter := oldest.Add(limiter.window).Sub(now)
		return false, retryAfter, nil
	}

	client.attempts = append(client.attempts, now)
	return true, 0, nil
}

// reap removes windows idle for longer than the window itself.
func (limiter *MemoryLimiter) reap() {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	cutoff := limiter.now().Add(-limiter.window)
	for key, client := range limiter.clients {
		if client.lastSeen.Before(cutoff) {
			delete(limiter.clients, key)
		}
	}
}

// # Shared Redis Window

// RedisLimiter is a fixed-window limiter backed by Redis INCR, shared by all
// replicas behind a load balancer.
type RedisLimiter struct {
	client *redis.Client
	max    int
	window time.Duration
}

// NewRedisLimiter constructs a shared limiter allowing max attempts per window.
func NewRedisLimiter(client *redis.Client, max int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, max: max, window: window}
}

// Allow implements [Limiter] using INCR + EXPIRE on a windowed key.
func (limiter *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	redisKey := constants.RedisPrefixRateLimit + key

	count, err := limiter.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, 0, fmt.Errorf("redis_rate_limit_incr_failed: %w", err)
	}

	// First attempt in this window starts the expiry clock.
	if count == 1 {
		if err := limiter.client.Expire(ctx, redisKey, limiter.window).Err(); err != nil {
			return false, 0, fmt.Errorf("redis_rate_limit_expire_failed: %w", err)
		}
	}

	if count > int64(limiter.max) {
		ttl, err := limiter.client.TTL(ctx, redisKey).Result()
		if err != nil || ttl < 0 {
			ttl = limiter.window
		}
		return false, ttl, nil
	}

	return true, 0, nil
}

// writeError outputs a simple JSON error payload without the respond helpers,
// for paths where no request context has been established yet.
func writeError(writer http.ResponseWriter, status int, code, message string) {
	writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	writer.WriteHeader(status)
	_ = json.NewEncoder(writer).Encode(map[string]any{
		"success": false,
		"error":   map[string]string{"code": code, "message": message},
	})
}
