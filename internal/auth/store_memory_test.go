// Copyright (c) 2026 Tikra. All rights reserved.

package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock drives the store's notion of now without sleeping.
type fakeClock struct {
	current time.Time
}

func (clock *fakeClock) now() time.Time { return clock.current }

func (clock *fakeClock) advance(d time.Duration) { clock.current = clock.current.Add(d) }

func newClockedStore() (*MemorySessionStore, *fakeClock) {
	clock := &fakeClock{current: time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)}
	store := NewMemorySessionStore()
	store.now = clock.now
	return store, clock
}

/*
TestMemoryStore_SessionTTL verifies idle expiry: a session reads as absent
once its TTL elapses, and Touch pushes the expiry forward.
*/
func TestMemoryStore_SessionTTL(t *testing.T) {
	store, clock := newClockedStore()
	ctx := context.Background()

	session := &Session{ID: "sess-1", UserID: "user-1"}
	require.NoError(t, store.Create(ctx, session, time.Hour))

	got, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.NotNil(t, got)

	// Touch at the 50-minute mark restarts the idle clock.
	clock.advance(50 * time.Minute)
	alive, err := store.Touch(ctx, "sess-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, alive)

	// 50 more minutes: inside the refreshed window.
	clock.advance(50 * time.Minute)
	got, err = store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.NotNil(t, got)

	// Past the refreshed window the session is gone.
	clock.advance(11 * time.Minute)
	got, err = store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	alive, err = store.Touch(ctx, "sess-1", time.Hour)
	require.NoError(t, err)
	assert.False(t, alive)
}

/*
TestMemoryStore_DeleteByUser removes only the target user's sessions.
*/
func TestMemoryStore_DeleteByUser(t *testing.T) {
	store, _ := newClockedStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, &Session{ID: "sess-1", UserID: "user-1"}, time.Hour))
	require.NoError(t, store.Create(ctx, &Session{ID: "sess-2", UserID: "user-1"}, time.Hour))
	require.NoError(t, store.Create(ctx, &Session{ID: "sess-3", UserID: "user-2"}, time.Hour))

	require.NoError(t, store.DeleteByUser(ctx, "user-1"))

	for _, tt := range []struct {
		sessionID string
		wantAlive bool
	}{
		{"sess-1", false},
		{"sess-2", false},
		{"sess-3", true},
	} {
		got, err := store.Get(ctx, tt.sessionID)
		require.NoError(t, err)
		assert.Equal(t, tt.wantAlive, got != nil, tt.sessionID)
	}
}

/*
TestMemoryStore_ConsumeOnce verifies the single-use refresh record contract:
exactly one consumer wins, and expiry reads as already consumed.
*/
func TestMemoryStore_ConsumeOnce(t *testing.T) {
	store, clock := newClockedStore()
	ctx := context.Background()

	record := RefreshRecord{UserID: "user-1", SessionID: "sess-1"}
	require.NoError(t, store.Store(ctx, "tok-1", record, time.Hour))

	got, found, err := store.Consume(ctx, "tok-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, record, *got)

	// The second consume loses.
	_, found, err = store.Consume(ctx, "tok-1")
	require.NoError(t, err)
	assert.False(t, found)

	// An expired record behaves exactly like a consumed one.
	require.NoError(t, store.Store(ctx, "tok-2", record, time.Hour))
	clock.advance(61 * time.Minute)

	_, found, err = store.Consume(ctx, "tok-2")
	require.NoError(t, err)
	assert.False(t, found)
}

/*
TestMemoryStore_RevokeAllForUser removes every refresh record of the user and
nothing else.
*/
func TestMemoryStore_RevokeAllForUser(t *testing.T) {
	store, _ := newClockedStore()
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, "tok-1", RefreshRecord{UserID: "user-1"}, time.Hour))
	require.NoError(t, store.Store(ctx, "tok-2", RefreshRecord{UserID: "user-1"}, time.Hour))
	require.NoError(t, store.Store(ctx, "tok-3", RefreshRecord{UserID: "user-2"}, time.Hour))

	require.NoError(t, store.RevokeAllForUser(ctx, "user-1"))

	_, found, err := store.Consume(ctx, "tok-1")
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = store.Consume(ctx, "tok-2")
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = store.Consume(ctx, "tok-3")
	require.NoError(t, err)
	assert.True(t, found)
}
