package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/notifykit/pkg/channel/inapp"
	"github.com/dmitrymomot/notifykit/pkg/validator"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

type inboxResponse struct {
	Items  []inapp.Notification `json:"items"`
	Unread int                  `json:"unread"`
}

type markReadRequest struct {
	IDs []string `json:"ids"`
}

// queryInt reads a non-negative integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, validator.ValidationErrors{{Field: name, Message: "must be a non-negative integer", Code: "integer"}}
	}
	return n, nil
}

func (s *Server) listInbox(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := chi.URLParam(r, "userID")

	if _, err := s.appUser(r, chi.URLParam(r, "appID"), userID); err != nil {
		writeError(ctx, s.logger, w, err)
		return
	}

	limit, err := queryInt(r, "limit", defaultListLimit)
	if err != nil {
		writeError(ctx, s.logger, w, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(ctx, s.logger, w, err)
		return
	}

	opts := inapp.ListOptions{
		Limit:      min(limit, maxListLimit),
		Offset:     offset,
		OnlyUnread: r.URL.Query().Get("unread") == "true",
		Topic:      r.URL.Query().Get("topic"),
	}
	items, err := s.inbox.List(ctx, userID, opts)
	if err != nil {
		writeError(ctx, s.logger, w, err)
		return
	}
	unread, err := s.inbox.CountUnread(ctx, userID)
	if err != nil {
		writeError(ctx, s.logger, w, err)
		return
	}
	if items == nil {
		items = []inapp.Notification{}
	}
	writeData(w, http.StatusOK, inboxResponse{Items: items, Unread: unread})
}

func (s *Server) markRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := chi.URLParam(r, "userID")

	var req markReadRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, s.logger, w, err)
		return
	}
	if err := validator.Apply(validator.MinNum("ids", len(req.IDs), 1)); err != nil {
		writeError(ctx, s.logger, w, err)
		return
	}
	if _, err := s.appUser(r, chi.URLParam(r, "appID"), userID); err != nil {
		writeError(ctx, s.logger, w, err)
		return
	}
	if err := s.inbox.MarkRead(ctx, userID, req.IDs...); err != nil {
		writeError(ctx, s.logger, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listFailures(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit, err := queryInt(r, "limit", defaultListLimit)
	if err != nil {
		writeError(ctx, s.logger, w, err)
		return
	}
	failures, err := s.failures.List(ctx, int64(min(limit, maxListLimit)))
	if err != nil {
		writeError(ctx, s.logger, w, err)
		return
	}
	writeData(w, http.StatusOK, failures)
}
