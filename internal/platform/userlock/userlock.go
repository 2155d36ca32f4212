// Copyright (c) 2026 Tikra. All rights reserved.

// Package userlock provides a keyed mutex that serializes timer state
// transitions per user.
//
// # Why per-user locks?
//
// Timer invariants (at most one running timer, monotonic event sequence) are
// scoped to a single user. A global lock would serialize unrelated users;
// row-level database locks alone would let the realtime broadcast race the
// commit. Holding the user's lock across the transaction AND the broadcast
// keeps event order identical to commit order.
package userlock

import (
	"context"
	"sync"
	"time"
)

// reapInterval is how often idle lock entries are removed from memory.
const reapInterval = 5 * time.Minute

type entry struct {
	mu       sync.Mutex
	refCount int
	lastUsed time.Time
}

// Keyed hands out one mutex per key, creating entries on demand and reaping
// entries nobody has touched for a while.
type Keyed struct {
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time
}

// NewKeyed constructs the lock table. A background janitor reaps idle
// entries until ctx is cancelled.
func NewKeyed(ctx context.Context) *Keyed {
	keyed := &Keyed{
		entries: make(map[string]*entry),
		now:     time.Now,
	}

	go func() {
		ticker := time.NewTicker(reapInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				keyed.reap()
			case <-ctx.Done():
				return
			}
		}
	}()

	return keyed
}

// Lock acquires the mutex for the key, blocking until it is free.
// The returned function releases it and must be called exactly once.
func (keyed *Keyed) Lock(key string) (unlock func()) {
	keyed.mu.Lock()
	item, found := keyed.entries[key]
	if !found {
		item = &entry{}
		keyed.entries[key] = item
	}
	item.refCount++
	keyed.mu.Unlock()

	item.mu.Lock()

	return func() {
		item.mu.Unlock()

		keyed.mu.Lock()
		item.refCount--
		item.lastUsed = keyed.now()
		keyed.mu.Unlock()
	}
}

// reap removes entries that are unlocked and have been idle past the interval.
func (keyed *Keyed) reap() {
	keyed.mu.Lock()
	defer keyed.mu.Unlock()

	cutoff := keyed.now().Add(-reapInterval)
	for key, item := range keyed.entries {
		if item.refCount == 0 && item.lastUsed.Before(cutoff) {
			delete(keyed.entries, key)
		}
	}
}
