// Copyright (c) 2026 Tikra. All rights reserved.

package timer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/tikra-app/tikra/internal/platform/apperr"
	"github.com/tikra-app/tikra/internal/realtime"
)

// Commands adapts the timer service to the realtime channel: inbound command
// frames become service calls, failures become timer:error replies, and the
// hub's elapsed ticker reads its payload from here.
type Commands struct {
	service *Service
}

func NewCommands(service *Service) *Commands {
	return &Commands{service: service}
}

// HandleCommand implements [realtime.CommandHandler]. Successful mutations
// reply with nothing — the service publishes the resulting events to every
// subscription, including the issuer's.
func (commands *Commands) HandleCommand(context context.Context, userID string, command realtime.Command) *realtime.Event {
	switch command.Type {

	case realtime.CommandTimerStart:
		var payload realtime.StartCommandPayload
		if len(command.Payload) > 0 {
			if err := json.Unmarshal(command.Payload, &payload); err != nil {
				return invalidFrameReply()
			}
		}
		_, err := commands.service.Start(context, userID, payload.ProjectID, payload.Description)
		return errorReply(err)

	case realtime.CommandTimerStop:
		var payload realtime.StopCommandPayload
		if len(command.Payload) > 0 {
			if err := json.Unmarshal(command.Payload, &payload); err != nil {
				return invalidFrameReply()
			}
		}

		var endTime *time.Time
		if payload.EndTime != "" {
			parsed, err := time.Parse(time.RFC3339, payload.EndTime)
			if err != nil {
				return errorReply(apperr.BadRequest(apperr.CodeInvalidEndTime, "End time must be an RFC 3339 timestamp"))
			}
			endTime = &parsed
		}
		_, err := commands.service.Stop(context, userID, endTime)
		return errorReply(err)

	case realtime.CommandTimerPause:
		_, err := commands.service.Pause(context, userID)
		return errorReply(err)

	case realtime.CommandTimerSync:
		state, err := commands.service.State(context, userID)
		if err != nil {
			return errorReply(err)
		}
		return &realtime.Event{Type: realtime.EventTimerState, Payload: state}

	default:
		return &realtime.Event{Type: realtime.EventTimerError, Payload: realtime.ErrorPayload{
			Code:    apperr.CodeValidation,
			Message: "Unknown command type",
		}}
	}
}

// TimerUpdate implements [realtime.UpdateSource] for the elapsed ticker.
func (commands *Commands) TimerUpdate(context context.Context, userID string) (any, bool, error) {
	state, err := commands.service.State(context, userID)
	if err != nil {
		return nil, false, err
	}
	if !state.IsRunning {
		return nil, false, nil
	}
	return state, true, nil
}

// errorReply converts a service failure into a timer:error frame, or nil on
// success. Internal causes are never pushed to the channel.
func errorReply(err error) *realtime.Event {
	if err == nil {
		return nil
	}

	payload := realtime.ErrorPayload{Code: apperr.CodeInternal, Message: "An unexpected error occurred"}
	if appError := apperr.As(err); appError != nil {
		payload = realtime.ErrorPayload{Code: appError.Code, Message: appError.Message}
	}

	return &realtime.Event{Type: realtime.EventTimerError, Payload: payload}
}

func invalidFrameReply() *realtime.Event {
	return &realtime.Event{Type: realtime.EventTimerError, Payload: realtime.ErrorPayload{
		Code:    apperr.CodeValidation,
		Message: "Invalid command payload",
	}}
}
