// Package httpadmin serves the operator endpoints: Prometheus metrics, a
// health check and lockout inspection. The listener is meant for internal
// networks only; it carries no authentication.
package httpadmin

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dmitrijs2005/busauth/internal/logging"
	"github.com/dmitrijs2005/busauth/internal/server/lockout"
	"github.com/dmitrijs2005/busauth/internal/server/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Lockout is satisfied by *lockout.Tracker.
type Lockout interface {
	CheckLock(ctx context.Context, username string) (lockout.Status, error)
	Attempts(ctx context.Context, username string) (int64, error)
	ResetAttempts(ctx context.Context, username string) error
}

type Deps struct {
	Gatherer prometheus.Gatherer
	DB       Pinger
	Lockout  Lockout
	Logger   logging.Logger
	// PingTimeout bounds the health check, 2s when zero.
	PingTimeout time.Duration
}

func NewRouter(d Deps) http.Handler {
	if d.PingTimeout <= 0 {
		d.PingTimeout = 2 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	r.Get("/healthz", healthHandler(d))

	if d.Lockout != nil {
		r.Route("/lockout/{username}", func(r chi.Router) {
			r.Get("/", lockoutStatusHandler(d))
			r.Delete("/", lockoutResetHandler(d))
		})
	}

	return r
}

func healthHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.DB != nil {
			ctx, cancel := context.WithTimeout(r.Context(), d.PingTimeout)
			defer cancel()
			if err := d.DB.PingContext(ctx); err != nil {
				d.Logger.Warn(ctx, "health check failed", "error", err)
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

type lockoutStatus struct {
	Username         string `json:"username"`
	Attempts         int64  `json:"attempts"`
	Locked           bool   `json:"locked"`
	MinutesRemaining int    `json:"minutesRemaining,omitempty"`
}

func lockoutStatusHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		username := models.NormalizeUsername(chi.URLParam(r, "username"))

		st, err := d.Lockout.CheckLock(ctx, username)
		if err != nil {
			d.Logger.Error(ctx, "lockout check failed", "username", username, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "lockout state unavailable"})
			return
		}
		n, err := d.Lockout.Attempts(ctx, username)
		if err != nil {
			d.Logger.Error(ctx, "reading attempts failed", "username", username, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "lockout state unavailable"})
			return
		}

		writeJSON(w, http.StatusOK, lockoutStatus{
			Username:         username,
			Attempts:         n,
			Locked:           st.Locked,
			MinutesRemaining: st.MinutesRemaining,
		})
	}
}

func lockoutResetHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		username := models.NormalizeUsername(chi.URLParam(r, "username"))

		if err := d.Lockout.ResetAttempts(ctx, username); err != nil {
			d.Logger.Error(ctx, "lockout reset failed", "username", username, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "lockout state unavailable"})
			return
		}
		d.Logger.Info(ctx, "lockout cleared by operator", "username", username)
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
