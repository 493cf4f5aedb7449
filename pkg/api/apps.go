package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/notifykit/pkg/apps"
	"github.com/dmitrymomot/notifykit/pkg/command"
	"github.com/dmitrymomot/notifykit/pkg/validator"
)

type appRequest struct {
	Name         string `json:"name"`
	EmailAddress string `json:"email_address"`
	EmailName    string `json:"email_name"`
}

type emailStatusRequest struct {
	Status apps.EmailVerificationStatus `json:"status"`
}

// putApp creates the app or updates its sender identity. The name is only
// taken on creation.
func (s *Server) putApp(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appID := chi.URLParam(r, "appID")

	var req appRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, s.logger, w, err)
		return
	}
	if err := validator.Apply(
		validator.Required("name", req.Name),
		validator.MaxLen("name", req.Name, 200),
	); err != nil {
		writeError(ctx, s.logger, w, err)
		return
	}

	current, err := s.apps.Get(ctx, appID)
	if errors.Is(err, command.ErrNotFound) {
		app := apps.New(appID, req.Name)
		app.EmailAddress = req.EmailAddress
		app.EmailName = req.EmailName
		if req.EmailAddress != "" {
			if err := (apps.UpdateSender{EmailAddress: req.EmailAddress, EmailName: req.EmailName}).Validate(); err != nil {
				writeError(ctx, s.logger, w, err)
				return
			}
		}
		created, err := s.apps.Create(ctx, app)
		if err != nil {
			writeError(ctx, s.logger, w, err)
			return
		}
		writeData(w, http.StatusCreated, created)
		return
	}
	if err != nil {
		writeError(ctx, s.logger, w, err)
		return
	}
	if req.EmailAddress == "" {
		writeData(w, http.StatusOK, current)
		return
	}

	app, err := command.Update[apps.App](ctx, s.apps, appID, apps.UpdateSender{EmailAddress: req.EmailAddress, EmailName: req.EmailName})
	if err != nil {
		writeError(ctx, s.logger, w, err)
		return
	}
	writeData(w, http.StatusOK, app)
}

func (s *Server) getApp(w http.ResponseWriter, r *http.Request) {
	app, err := s.apps.Get(r.Context(), chi.URLParam(r, "appID"))
	if err != nil {
		writeError(r.Context(), s.logger, w, err)
		return
	}
	writeData(w, http.StatusOK, app)
}

func (s *Server) putEmailStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req emailStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, s.logger, w, err)
		return
	}
	app, err := command.Update[apps.App](ctx, s.apps, chi.URLParam(r, "appID"), apps.UpdateEmailVerificationStatus{Status: req.Status})
	if err != nil {
		writeError(ctx, s.logger, w, err)
		return
	}
	writeData(w, http.StatusOK, app)
}
