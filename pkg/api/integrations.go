package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/notifykit/pkg/integration"
)

type integrationRequest struct {
	Status integration.Status `json:"status"`
	Reason string             `json:"reason,omitempty"`
}

func (s *Server) listIntegrations(w http.ResponseWriter, r *http.Request) {
	records, err := s.integrations.List(r.Context(), chi.URLParam(r, "appID"))
	if err != nil {
		writeError(r.Context(), s.logger, w, err)
		return
	}
	writeData(w, http.StatusOK, records)
}

func (s *Server) getIntegration(w http.ResponseWriter, r *http.Request) {
	rec, err := s.integrations.Record(r.Context(), chi.URLParam(r, "appID"), chi.URLParam(r, "integrationID"))
	if err != nil {
		writeError(r.Context(), s.logger, w, err)
		return
	}
	writeData(w, http.StatusOK, rec)
}

// putIntegration applies a status change. A verification_failed status is
// recorded with the reason from the body.
func (s *Server) putIntegration(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appID, id := chi.URLParam(r, "appID"), chi.URLParam(r, "integrationID")

	var req integrationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, s.logger, w, err)
		return
	}

	var err error
	if req.Status == integration.VerificationFailed {
		err = s.integrations.Fail(ctx, appID, id, req.Reason)
	} else {
		err = s.integrations.Set(ctx, appID, id, req.Status)
	}
	if err != nil {
		writeError(ctx, s.logger, w, err)
		return
	}
	s.getIntegration(w, r)
}

func (s *Server) reverifyIntegration(w http.ResponseWriter, r *http.Request) {
	rec, err := s.integrations.Reverify(r.Context(), chi.URLParam(r, "appID"), chi.URLParam(r, "integrationID"))
	if err != nil {
		writeError(r.Context(), s.logger, w, err)
		return
	}
	writeData(w, http.StatusOK, rec)
}
