package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/dmitrymomot/notifykit/pkg/command"
	"github.com/dmitrymomot/notifykit/pkg/integration"
	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/validator"
)

const maxBodySize = 1 << 20

// Envelope is the body of every API response.
type Envelope struct {
	Data  any          `json:"data,omitempty"`
	Error *ErrorDetail `json:"error,omitempty"`
}

type ErrorDetail struct {
	Code    string              `json:"code"`
	Message string              `json:"message,omitempty"`
	Details map[string][]string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Envelope{Data: data})
}

// writeError maps err onto a status code and error envelope. Unmapped errors
// are logged and reported as 500 without their message.
func writeError(ctx context.Context, log *slog.Logger, w http.ResponseWriter, err error) {
	detail := &ErrorDetail{Message: err.Error()}
	status := http.StatusInternalServerError

	var httpErr HTTPError
	switch {
	case errors.As(err, &httpErr):
		status, detail.Code = httpErr.Code, httpErr.Key
	case validator.IsValidationError(err):
		status, detail.Code = ErrUnprocessableEntity.Code, ErrUnprocessableEntity.Key
		detail.Message = "validation failed"
		detail.Details = make(map[string][]string)
		for _, field := range validator.ExtractValidationErrors(err).Fields() {
			detail.Details[field] = validator.ExtractValidationErrors(err).Get(field)
		}
	case errors.Is(err, ErrInvalidJSON):
		status, detail.Code = ErrBadRequest.Code, ErrBadRequest.Key
	case errors.Is(err, ErrMissingContentType):
		status, detail.Code = ErrUnsupportedMediaType.Code, ErrUnsupportedMediaType.Key
	case errors.Is(err, command.ErrNotFound), errors.Is(err, ErrWrongApp):
		status, detail.Code = ErrNotFound.Code, ErrNotFound.Key
	case errors.Is(err, command.ErrAlreadyExists),
		errors.Is(err, command.ErrTooManyConflicts),
		errors.Is(err, command.ErrVersionConflict),
		errors.Is(err, integration.ErrInvalidTransition):
		status, detail.Code = ErrConflict.Code, ErrConflict.Key
	case errors.Is(err, integration.ErrUnknownStatus), errors.Is(err, integration.ErrEmptyID):
		status, detail.Code = ErrBadRequest.Code, ErrBadRequest.Key
	default:
		log.ErrorContext(ctx, "request failed", logger.Error(err))
		detail.Code = ErrInternalServerError.Key
		detail.Message = http.StatusText(status)
	}

	writeJSON(w, status, Envelope{Error: detail})
}

// decodeJSON strictly decodes a single JSON document from the request body.
func decodeJSON(r *http.Request, v any) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return ErrMissingContentType
	}

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.Join(ErrInvalidJSON, errors.New("empty body"))
		}
		return errors.Join(ErrInvalidJSON, err)
	}

	var extra json.RawMessage
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return errors.Join(ErrInvalidJSON, errors.New("unexpected data after JSON object"))
	}
	return nil
}
