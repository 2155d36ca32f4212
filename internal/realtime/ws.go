// Copyright (c) 2026 Tikra. All rights reserved.

package realtime

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tikra-app/tikra/internal/platform/apperr"
	"github.com/tikra-app/tikra/internal/platform/constants"
	requestutil "github.com/tikra-app/tikra/internal/platform/request"
	"github.com/tikra-app/tikra/internal/platform/respond"
)

// WSHandler terminates WebSocket channels and bridges them to the hub.
//
// # Handshake
//
// Auth happens before the upgrade with the same bearer scheme as the REST
// surface: the Authenticate middleware has already verified the token by the
// time ServeHTTP runs, so an unauthenticated upgrade attempt fails with a
// plain 401 instead of a broken socket.
type WSHandler struct {
	hub      *Hub
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler constructs the channel endpoint. checkOrigin receives the
// handshake request; it should accept the configured embed hosts.
func NewWSHandler(hub *Hub, logger *slog.Logger, checkOrigin func(*http.Request) bool) *WSHandler {
	return &WSHandler{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

func (handler *WSHandler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	connection, err := handler.upgrader.Upgrade(writer, request, nil)
	if err != nil {
		// Upgrade already wrote the handshake failure.
		handler.logger.Warn("ws_upgrade_failed",
			slog.String("user_id", claims.UserID),
			slog.String("error", err.Error()),
		)
		return
	}

	subscription := handler.hub.Subscribe(request.Context(), claims.UserID, claims.SessionID)
	defer handler.hub.Unsubscribe(subscription)

	go handler.readLoop(request, connection, subscription)
	handler.writeLoop(connection, subscription)
}

// writeLoop drains the subscription queue onto the socket and keeps the
// connection alive with pings. It owns all writes to the connection.
func (handler *WSHandler) writeLoop(connection *websocket.Conn, subscription *Subscription) {
	heartbeat := time.NewTicker(constants.ChannelHeartbeat)
	defer heartbeat.Stop()
	defer connection.Close()

	for {
		select {
		case event := <-subscription.Events():
			_ = connection.SetWriteDeadline(time.Now().Add(constants.DefaultWriteTimeout))
			if err := connection.WriteJSON(event); err != nil {
				return
			}

		case <-heartbeat.C:
			deadline := time.Now().Add(constants.DefaultWriteTimeout)
			if err := connection.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}

		case <-subscription.Done():
			// Tell the client why before hanging up; best effort.
			message := websocket.FormatCloseMessage(websocket.CloseGoingAway, string(subscription.Reason()))
			_ = connection.WriteControl(websocket.CloseMessage, message, time.Now().Add(time.Second))
			return
		}
	}
}

// readLoop consumes inbound command frames. Any read error (including the
// idle deadline) tears the subscription down, which unblocks the write loop.
func (handler *WSHandler) readLoop(request *http.Request, connection *websocket.Conn, subscription *Subscription) {
	defer handler.hub.Unsubscribe(subscription)

	_ = connection.SetReadDeadline(time.Now().Add(constants.ChannelIdleRead))
	connection.SetPongHandler(func(string) error {
		return connection.SetReadDeadline(time.Now().Add(constants.ChannelIdleRead))
	})

	for {
		_, frame, err := connection.ReadMessage()
		if err != nil {
			return
		}
		_ = connection.SetReadDeadline(time.Now().Add(constants.ChannelIdleRead))

		var command Command
		if err := json.Unmarshal(frame, &command); err != nil || command.Type == "" {
			subscription.trySend(Event{Type: EventTimerError, Payload: ErrorPayload{
				Code:    apperr.CodeValidation,
				Message: "Invalid command frame",
			}})
			continue
		}

		handler.hub.Dispatch(request.Context(), subscription, command)
	}
}
