package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// Check is a named dependency probe, such as a redis ping.
type Check struct {
	Name string
	Fn   func(context.Context) error
}

type healthStatus struct {
	Status string   `json:"status"`
	Failed []string `json:"failed,omitempty"`
}

// HealthCheckHandler runs every check with timeout per request. Without
// checks it reports "alive". Any failing check turns the answer into 503.
func HealthCheckHandler(log *slog.Logger, timeout time.Duration, checks ...Check) http.HandlerFunc {
	if log == nil {
		log = slog.Default()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		body := healthStatus{Status: "alive"}
		code := http.StatusOK

		if len(checks) > 0 {
			body.Status = "ready"
			ctx := r.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			for _, c := range checks {
				if err := c.Fn(ctx); err != nil {
					log.ErrorContext(ctx, "readiness check failed", slog.String("check", c.Name), logger.Error(err))
					body.Failed = append(body.Failed, c.Name)
				}
			}
			if len(body.Failed) > 0 {
				body.Status = "not_ready"
				code = http.StatusServiceUnavailable
			}
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(body)
	}
}
