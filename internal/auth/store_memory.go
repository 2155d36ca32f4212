// Copyright (c) 2026 Tikra. All rights reserved.

package auth

import (
	"context"
	"sync"
	"time"
)

// MemorySessionStore implements both [SessionStore] and [RefreshTokenStore]
// in process memory.
//
// # Scope
//
// Suitable for a single instance and for tests. Horizontal deployments must
// use the Redis-backed stores so every replica shares one session table.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]memoryEntry[*Session]
	refresh  map[string]memoryEntry[RefreshRecord]
	now      func() time.Time
}

type memoryEntry[T any] struct {
	value     T
	expiresAt time.Time
}

// NewMemorySessionStore constructs an empty in-memory store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]memoryEntry[*Session]),
		refresh:  make(map[string]memoryEntry[RefreshRecord]),
		now:      time.Now,
	}
}

// Create implements [SessionStore].
func (store *MemorySessionStore) Create(_ context.Context, session *Session, ttl time.Duration) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	clone := *session
	store.sessions[session.ID] = memoryEntry[*Session]{value: &clone, expiresAt: store.now().Add(ttl)}
	return nil
}

// Get implements [SessionStore]. Expired entries read as absent.
func (store *MemorySessionStore) Get(_ context.Context, sessionID string) (*Session, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	entry, found := store.sessions[sessionID]
	if !found || entry.expiresAt.Before(store.now()) {
		delete(store.sessions, sessionID)
		return nil, nil
	}

	clone := *entry.value
	return &clone, nil
}

// Touch implements [SessionStore].
func (store *MemorySessionStore) Touch(_ context.Context, sessionID string, ttl time.Duration) (bool, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	entry, found := store.sessions[sessionID]
	if !found || entry.expiresAt.Before(store.now()) {
		delete(store.sessions, sessionID)
		return false, nil
	}

	entry.value.LastActivity = store.now()
	entry.expiresAt = store.now().Add(ttl)
	store.sessions[sessionID] = entry
	return true, nil
}

// Delete implements [SessionStore].
func (store *MemorySessionStore) Delete(_ context.Context, sessionID string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	delete(store.sessions, sessionID)
	return nil
}

// DeleteByUser implements [SessionStore].
func (store *MemorySessionStore) DeleteByUser(_ context.Context, userID string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	for id, entry := range store.sessions {
		if entry.value.UserID == userID {
			delete(store.sessions, id)
		}
	}
	return nil
}

// Store implements [RefreshTokenStore].
func (store *MemorySessionStore) Store(_ context.Context, tokenID string, record RefreshRecord, ttl time.Duration) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.refresh[tokenID] = memoryEntry[RefreshRecord]{value: record, expiresAt: store.now().Add(ttl)}
	return nil
}

// Consume implements [RefreshTokenStore]. The lock makes check-and-delete atomic.
func (store *MemorySessionStore) Consume(_ context.Context, tokenID string) (*RefreshRecord, bool, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	entry, found := store.refresh[tokenID]
	if !found || entry.expiresAt.Before(store.now()) {
		delete(store.refresh, tokenID)
		return nil, false, nil
	}

	delete(store.refresh, tokenID)
	record := entry.value
	return &record, true, nil
}

// Revoke implements [RefreshTokenStore].
func (store *MemorySessionStore) Revoke(_ context.Context, tokenID, _ string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	delete(store.refresh, tokenID)
	return nil
}

// RevokeAllForUser implements [RefreshTokenStore].
func (store *MemorySessionStore) RevokeAllForUser(_ context.Context, userID string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	for id, entry := range store.refresh {
		if entry.value.UserID == userID {
			delete(store.refresh, id)
		}
	}
	return nil
}
