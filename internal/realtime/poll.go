// Copyright (c) 2026 Tikra. All rights reserved.

package realtime

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/tikra-app/tikra/internal/platform/constants"
	requestutil "github.com/tikra-app/tikra/internal/platform/request"
	"github.com/tikra-app/tikra/internal/platform/respond"
	"github.com/tikra-app/tikra/internal/platform/validate"
)

// PollManager is the HTTP fallback for environments where the embedding host
// blocks WebSockets. Each (user, session) pair owns one hub subscription
// whose queue is drained on every GET; a subscription that stops polling is
// reaped after the poll TTL.
type PollManager struct {
	hub    *Hub
	logger *slog.Logger
	ctx    context.Context

	mu   sync.Mutex
	subs map[string]*pollState
}

type pollState struct {
	subscription *Subscription
	lastPoll     time.Time
}

// NewPollManager constructs the manager and starts the reaper. The context
// bounds the lifetime of all polling subscriptions.
func NewPollManager(ctx context.Context, hub *Hub, logger *slog.Logger) *PollManager {
	manager := &PollManager{
		hub:    hub,
		logger: logger,
		ctx:    ctx,
		subs:   make(map[string]*pollState),
	}

	go manager.reapLoop(ctx)

	return manager
}

// Poll drains the caller's queued events. The first poll implicitly creates
// the subscription; an empty events array is a normal "nothing new" answer.
func (manager *PollManager) Poll(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	state := manager.acquire(claims.UserID, claims.SessionID)

	events := []Event{}
	for {
		select {
		case event := <-state.subscription.Events():
			events = append(events, event)
			continue
		default:
		}
		break
	}

	writer.Header().Set(constants.HeaderFallbackMode, "polling")
	respond.OK(writer, map[string]any{"events": events, "count": len(events)})
}

// Send injects one command frame, exactly as if it had arrived on a socket.
// Replies (timer:state, timer:error) are queued for the next poll.
func (manager *PollManager) Send(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var command Command
	if err := requestutil.DecodeJSON(request, &command); err != nil || command.Type == "" {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	state := manager.acquire(claims.UserID, claims.SessionID)
	manager.hub.Dispatch(request.Context(), state.subscription, command)

	respond.OK(writer, map[string]any{"success": true})
}

// acquire returns the live subscription for the session, creating or
// recreating it as needed, and stamps the poll time.
func (manager *PollManager) acquire(userID, sessionID string) *pollState {
	key := userID + ":" + sessionID

	manager.mu.Lock()
	defer manager.mu.Unlock()

	state, found := manager.subs[key]
	if found {
		select {
		case <-state.subscription.Done():
			// Closed (slow consumer or reaped); start fresh below.
			found = false
		default:
		}
	}

	if !found {
		state = &pollState{subscription: manager.hub.Subscribe(manager.ctx, userID, sessionID)}
		manager.subs[key] = state
	}

	state.lastPoll = time.Now()
	return state
}

// reapLoop drops subscriptions whose owner stopped polling.
func (manager *PollManager) reapLoop(ctx context.Context) {
	ticker := time.NewTicker(constants.PollSubscriptionTTL / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			manager.reap()
		case <-ctx.Done():
			return
		}
	}
}

func (manager *PollManager) reap() {
	cutoff := time.Now().Add(-constants.PollSubscriptionTTL)

	manager.mu.Lock()
	expired := []*pollState{}
	for key, state := range manager.subs {
		if state.lastPoll.Before(cutoff) {
			expired = append(expired, state)
			delete(manager.subs, key)
		}
	}
	manager.mu.Unlock()

	for _, state := range expired {
		state.subscription.close(CloseIdle)
		manager.hub.Unsubscribe(state.subscription)
		manager.logger.Debug("poll_subscription_reaped",
			slog.String("user_id", state.subscription.UserID),
			slog.String("subscription_id", state.subscription.ID),
		)
	}
}
