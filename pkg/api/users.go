package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/notifykit/pkg/command"
	"github.com/dmitrymomot/notifykit/pkg/users"
	"github.com/dmitrymomot/notifykit/pkg/validator"
)

type userRequest struct {
	EmailAddress      string `json:"email_address"`
	PhoneNumber       string `json:"phone_number"`
	PreferredLanguage string `json:"preferred_language"`
}

type settingRequest struct {
	Send           bool `json:"send"`
	DelayInSeconds int  `json:"delay_in_seconds"`
}

type webPushRequest struct {
	URL string `json:"url"`
}

type deviceRequest struct {
	Token            string `json:"token"`
	DeviceType       string `json:"device_type"`
	DeviceIdentifier string `json:"device_identifier"`
}

// appUser loads a user and checks it belongs to appID.
func (s *Server) appUser(r *http.Request, appID, userID string) (users.User, error) {
	u, err := s.users.Get(r.Context(), userID)
	if err != nil {
		return users.User{}, err
	}
	if u.AppID != appID {
		return users.User{}, ErrWrongApp
	}
	return u, nil
}

// update runs cmd against the user named in the path.
func (s *Server) update(w http.ResponseWriter, r *http.Request, cmd command.Command[users.User]) {
	ctx := r.Context()
	if _, err := s.appUser(r, chi.URLParam(r, "appID"), chi.URLParam(r, "userID")); err != nil {
		writeError(ctx, s.logger, w, err)
		return
	}
	u, err := command.Update[users.User](ctx, s.users, chi.URLParam(r, "userID"), cmd)
	if err != nil {
		writeError(ctx, s.logger, w, err)
		return
	}
	writeData(w, http.StatusOK, u)
}

// putUser creates the user or updates its contact details and language.
func (s *Server) putUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appID, userID := chi.URLParam(r, "appID"), chi.URLParam(r, "userID")

	var req userRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, s.logger, w, err)
		return
	}
	contact := users.UpdateContact{EmailAddress: req.EmailAddress, PhoneNumber: req.PhoneNumber}
	language := users.UpdateLanguage{Language: req.PreferredLanguage}
	if err := errors.Join(contact.Validate(), language.Validate()); err != nil {
		writeError(ctx, s.logger, w, mergeValidation(err))
		return
	}

	_, err := s.appUser(r, appID, userID)
	switch {
	case errors.Is(err, command.ErrNotFound):
		u := users.New(appID, userID)
		u.EmailAddress = req.EmailAddress
		u.PhoneNumber = req.PhoneNumber
		u.PreferredLanguage = req.PreferredLanguage
		created, err := s.users.Create(ctx, u)
		if err != nil {
			writeError(ctx, s.logger, w, err)
			return
		}
		writeData(w, http.StatusCreated, created)
		return
	case err != nil:
		writeError(ctx, s.logger, w, err)
		return
	}

	if _, err := command.Update[users.User](ctx, s.users, userID, contact); err != nil {
		writeError(ctx, s.logger, w, err)
		return
	}
	u, err := command.Update[users.User](ctx, s.users, userID, language)
	if err != nil {
		writeError(ctx, s.logger, w, err)
		return
	}
	writeData(w, http.StatusOK, u)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.appUser(r, chi.URLParam(r, "appID"), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(r.Context(), s.logger, w, err)
		return
	}
	writeData(w, http.StatusOK, u)
}

func (s *Server) putSetting(w http.ResponseWriter, r *http.Request) {
	var req settingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), s.logger, w, err)
		return
	}
	s.update(w, r, users.UpdateChannelSetting{
		Channel: chi.URLParam(r, "channel"),
		Setting: users.ChannelSetting{Send: req.Send, DelayInSeconds: req.DelayInSeconds},
	})
}

func (s *Server) postWebPush(w http.ResponseWriter, r *http.Request) {
	var req webPushRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), s.logger, w, err)
		return
	}
	s.update(w, r, users.AddWebPushSubscription{URL: req.URL})
}

func (s *Server) deleteWebPush(w http.ResponseWriter, r *http.Request) {
	var req webPushRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), s.logger, w, err)
		return
	}
	s.update(w, r, users.RemoveWebPushSubscription{URL: req.URL})
}

func (s *Server) postDevice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := chi.URLParam(r, "userID")

	var req deviceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, s.logger, w, err)
		return
	}
	if _, err := s.appUser(r, chi.URLParam(r, "appID"), userID); err != nil {
		writeError(ctx, s.logger, w, err)
		return
	}

	u, err := s.devices.Register(ctx, userID, users.MobilePushToken{
		Token:            req.Token,
		DeviceType:       req.DeviceType,
		DeviceIdentifier: req.DeviceIdentifier,
	})
	if err != nil {
		writeError(ctx, s.logger, w, err)
		return
	}
	writeData(w, http.StatusOK, u)
}

func (s *Server) deleteDevice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := chi.URLParam(r, "userID")

	if _, err := s.appUser(r, chi.URLParam(r, "appID"), userID); err != nil {
		writeError(ctx, s.logger, w, err)
		return
	}
	u, err := s.devices.Unregister(ctx, userID, chi.URLParam(r, "token"))
	if err != nil {
		writeError(ctx, s.logger, w, err)
		return
	}
	writeData(w, http.StatusOK, u)
}

// mergeValidation flattens joined validation errors into one set.
func mergeValidation(err error) error {
	var merged validator.ValidationErrors
	var joined interface{ Unwrap() []error }
	if !errors.As(err, &joined) {
		return err
	}
	for _, e := range joined.Unwrap() {
		merged = append(merged, validator.ExtractValidationErrors(e)...)
	}
	return merged
}
