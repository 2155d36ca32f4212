// Copyright (c) 2026 Tikra. All rights reserved.

package realtime

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tikra-app/tikra/internal/platform/constants"
	"github.com/tikra-app/tikra/pkg/uuid"
)

// CloseReason records why a subscription was torn down.
type CloseReason string

const (
	CloseNormal         CloseReason = "normal"
	CloseSubscriberSlow CloseReason = "subscriber_slow"
	CloseIdle           CloseReason = "idle"
)

// Subscription is one live channel bound to a session. A user may hold
// several at once (multiple tabs, multiple embedding hosts).
type Subscription struct {
	ID        string
	UserID    string
	SessionID string

	events chan Event
	done   chan struct{}

	closeOnce sync.Once
	reason    CloseReason

	// visibility gates the elapsed-push cadence: hidden iframes are
	// throttled rather than cut off.
	mu      sync.Mutex
	visible bool
	limiter *rate.Limiter
}

func newSubscription(userID, sessionID string) *Subscription {
	return &Subscription{
		ID:        uuid.New(),
		UserID:    userID,
		SessionID: sessionID,
		events:    make(chan Event, constants.SubscriptionBuffer),
		done:      make(chan struct{}),
		visible:   true,
		limiter:   rate.NewLimiter(rate.Every(constants.ElapsedPushInterval), 1),
	}
}

// Events is the outbound frame queue drained by the transport.
func (subscription *Subscription) Events() <-chan Event { return subscription.events }

// Done is closed when the subscription is torn down.
func (subscription *Subscription) Done() <-chan struct{} { return subscription.done }

// Reason reports why the subscription closed. Valid after Done.
func (subscription *Subscription) Reason() CloseReason {
	subscription.mu.Lock()
	defer subscription.mu.Unlock()
	return subscription.reason
}

// SetVisible applies the client's iframe visibility hint by retuning the
// elapsed-push limiter.
func (subscription *Subscription) SetVisible(visible bool) {
	subscription.mu.Lock()
	defer subscription.mu.Unlock()

	if subscription.visible == visible {
		return
	}
	subscription.visible = visible

	if visible {
		subscription.limiter.SetLimit(rate.Every(constants.ElapsedPushInterval))
	} else {
		subscription.limiter.SetLimit(rate.Every(constants.HiddenPushInterval))
	}
}

// allowUpdate consults the visibility limiter for one elapsed push.
func (subscription *Subscription) allowUpdate() bool {
	subscription.mu.Lock()
	defer subscription.mu.Unlock()
	return subscription.limiter.Allow()
}

// close marks the subscription dead exactly once.
func (subscription *Subscription) close(reason CloseReason) {
	subscription.closeOnce.Do(func() {
		subscription.mu.Lock()
		subscription.reason = reason
		subscription.mu.Unlock()
		close(subscription.done)
	})
}

// trySend queues the event without blocking. Used for best-effort pushes
// (elapsed updates) where skipping a frame is harmless.
func (subscription *Subscription) trySend(event Event) bool {
	select {
	case <-subscription.done:
		return false
	default:
	}

	select {
	case subscription.events <- event:
		return true
	default:
		return false
	}
}

// send queues the event, waiting up to grace when the queue is full. A false
// return means the consumer is too slow (or gone) and must be dropped.
func (subscription *Subscription) send(event Event, grace time.Duration) bool {
	select {
	case subscription.events <- event:
		return true
	case <-subscription.done:
		return false
	default:
	}

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case subscription.events <- event:
		return true
	case <-subscription.done:
		return false
	case <-timer.C:
		return false
	}
}
