// Copyright (c) 2026 Tikra. All rights reserved.

package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/tikra-app/tikra/internal/platform/apperr"
	"github.com/tikra-app/tikra/internal/platform/constants"
)

// CommandHandler processes a domain command issued on a channel. The optional
// reply is delivered only to the issuing subscription; side effects reach
// every subscription through the normal publish path.
type CommandHandler interface {
	HandleCommand(context context.Context, userID string, command Command) *Event
}

// UpdateSource supplies the payload for the periodic timer:update push.
// running=false means the user is idle and nothing is pushed.
type UpdateSource interface {
	TimerUpdate(context context.Context, userID string) (payload any, running bool, err error)
}

// Hub is the per-user fan-out table. One instance per process; the table is
// guarded by a single mutex (subscription counts are small).
type Hub struct {
	handler CommandHandler
	source  UpdateSource
	logger  *slog.Logger

	mu            sync.Mutex
	subscriptions map[string]map[*Subscription]struct{}
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:        logger,
		subscriptions: make(map[string]map[*Subscription]struct{}),
	}
}

// Bind attaches the command handler and elapsed-push source. Separate from
// the constructor because the timer service publishes through the hub and the
// hub dispatches into the timer service; the hub is built first, then bound.
// Must be called before the server accepts connections.
func (hub *Hub) Bind(handler CommandHandler, source UpdateSource) {
	hub.handler = handler
	hub.source = source
}

// Subscribe registers a new channel for the user and starts its elapsed-push
// ticker. The ticker stops when ctx is cancelled or the subscription closes.
func (hub *Hub) Subscribe(ctx context.Context, userID, sessionID string) *Subscription {
	subscription := newSubscription(userID, sessionID)

	hub.mu.Lock()
	set, found := hub.subscriptions[userID]
	if !found {
		set = make(map[*Subscription]struct{})
		hub.subscriptions[userID] = set
	}
	set[subscription] = struct{}{}
	hub.mu.Unlock()

	go hub.pushElapsed(ctx, subscription)

	return subscription
}

// Unsubscribe tears the subscription down cleanly.
func (hub *Hub) Unsubscribe(subscription *Subscription) {
	hub.drop(subscription, CloseNormal)
}

/*
Publish fans events out to every live subscription of the user, preserving
order per subscription.

Description: A subscription whose queue stays full past the slow-consumer
grace is closed with SubscriberSlow and removed — the client reconnects or
falls back to polling; missed events are never replayed.

Parameters:
  - userID: string
  - events: ...Event (delivered in argument order)
*/
func (hub *Hub) Publish(userID string, events ...Event) {
	if len(events) == 0 {
		return
	}

	hub.mu.Lock()
	targets := make([]*Subscription, 0, len(hub.subscriptions[userID]))
	for subscription := range hub.subscriptions[userID] {
		targets = append(targets, subscription)
	}
	hub.mu.Unlock()

	for _, subscription := range targets {
		for _, event := range events {
			if !subscription.send(event, constants.SlowConsumerGrace) {
				hub.drop(subscription, CloseSubscriberSlow)
				break
			}
		}
	}
}

// Dispatch routes one inbound command frame. Visibility hints are handled by
// the hub itself since they target the issuing subscription, not the domain.
func (hub *Hub) Dispatch(context context.Context, subscription *Subscription, command Command) {
	if command.Type == CommandIframeVisibility {
		var payload VisibilityPayload
		if err := json.Unmarshal(command.Payload, &payload); err != nil {
			subscription.trySend(Event{Type: EventTimerError, Payload: ErrorPayload{
				Code:    apperr.CodeValidation,
				Message: "Invalid visibility payload",
			}})
			return
		}
		subscription.SetVisible(payload.Visible)
		return
	}

	if hub.handler == nil {
		return
	}

	if reply := hub.handler.HandleCommand(context, subscription.UserID, command); reply != nil {
		if !subscription.send(*reply, constants.SlowConsumerGrace) {
			hub.drop(subscription, CloseSubscriberSlow)
		}
	}
}

// SubscriberCount reports the user's live subscription count.
func (hub *Hub) SubscriberCount(userID string) int {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	return len(hub.subscriptions[userID])
}

// drop closes the subscription and removes it from the table.
func (hub *Hub) drop(subscription *Subscription, reason CloseReason) {
	subscription.close(reason)

	hub.mu.Lock()
	if set, found := hub.subscriptions[subscription.UserID]; found {
		delete(set, subscription)
		if len(set) == 0 {
			delete(hub.subscriptions, subscription.UserID)
		}
	}
	hub.mu.Unlock()

	if reason == CloseSubscriberSlow {
		hub.logger.Warn("subscriber_slow_closed",
			slog.String("user_id", subscription.UserID),
			slog.String("subscription_id", subscription.ID),
		)
	}
}

// pushElapsed pushes timer:update frames while the user has a running timer.
// The subscription's visibility limiter throttles hidden iframes; pushes to a
// full queue are skipped rather than treated as slowness.
func (hub *Hub) pushElapsed(ctx context.Context, subscription *Subscription) {
	if hub.source == nil {
		return
	}

	ticker := time.NewTicker(constants.ElapsedPushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !subscription.allowUpdate() {
				continue
			}

			payload, running, err := hub.source.TimerUpdate(ctx, subscription.UserID)
			if err != nil || !running {
				continue
			}
			subscription.trySend(Event{Type: EventTimerUpdate, Payload: payload})

		case <-subscription.done:
			return
		case <-ctx.Done():
			hub.drop(subscription, CloseNormal)
			return
		}
	}
}
