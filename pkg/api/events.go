package api

import (
	"net/http"

	"github.com/dmitrymomot/notifykit/pkg/delivery"
	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/requestid"
)

type eventResponse struct {
	EventID  string   `json:"event_id"`
	Channels []string `json:"channels"`
}

// postEvent resolves the recipient and hands the event to the dispatcher.
// The request id doubles as the event id when the producer sends none.
func (s *Server) postEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var event delivery.Event
	if err := decodeJSON(r, &event); err != nil {
		writeError(ctx, s.logger, w, err)
		return
	}
	if err := event.Validate(); err != nil {
		writeError(ctx, s.logger, w, err)
		return
	}
	if event.ID == "" {
		event.ID = requestid.FromContext(ctx)
	}

	user, err := s.appUser(r, event.AppID, event.UserID)
	if err != nil {
		writeError(ctx, s.logger, w, err)
		return
	}

	channels, err := s.dispatcher.Dispatch(ctx, event, delivery.RecipientFromUser(user))
	if err != nil && len(channels) == 0 {
		writeError(ctx, s.logger, w, err)
		return
	}
	if err != nil {
		s.logger.WarnContext(ctx, "event partially dispatched", logger.Error(err))
	}
	if channels == nil {
		channels = []string{}
	}

	writeData(w, http.StatusAccepted, eventResponse{EventID: event.ID, Channels: channels})
}
