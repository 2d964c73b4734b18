package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"coworkspace/internal/logging"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Handlers struct {
	User     *UserMeetingHandler
	Admin    *AdminHandler
	Calendar *CalendarHandler
	// Store is pinged by /healthz when set.
	Store  Pinger
	Logger *slog.Logger
}

// NewRouter wires the public, admin and OAuth routes. adminAuth guards every
// route under /admin.
func NewRouter(h Handlers, adminAuth mux.MiddlewareFunc) *mux.Router {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := mux.NewRouter()
	r.Use(requestLogger(logger))

	r.HandleFunc("/healthz", healthz(h.Store, logger)).Methods("GET")

	// Public endpoints
	r.HandleFunc("/availability", h.User.GetAvailability).Methods("GET")
	r.HandleFunc("/book", h.User.BookMeeting).Methods("POST")
	r.HandleFunc("/meeting/{id}", h.User.GetMeeting).Methods("GET")

	// Reached by browser redirect; authenticated by the signed state.
	r.HandleFunc("/oauth/google/callback", h.Calendar.Callback).Methods("GET")

	// Admin endpoints (protected)
	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(adminAuth)
	admin.HandleFunc("/meetings", h.Admin.ListMeetings).Methods("GET")
	admin.HandleFunc("/meetings/{id}/cancel", h.Admin.CancelMeeting).Methods("POST")
	admin.HandleFunc("/meetings/{id}/complete", h.Admin.CompleteMeeting).Methods("POST")
	admin.HandleFunc("/calendar/status", h.Calendar.Status).Methods("GET")
	admin.HandleFunc("/calendar/connect", h.Calendar.Connect).Methods("GET")
	admin.HandleFunc("/calendar/revoke", h.Calendar.Revoke).Methods("POST")

	return r
}

// requestLogger attaches a per-request logger carrying a request id.
func requestLogger(base *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-ID")
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", id)
			logger := base.With("request_id", id, "method", r.Method, "path", r.URL.Path)
			next.ServeHTTP(w, r.WithContext(logging.ContextWithLogger(r.Context(), logger)))
		})
	}
}

func healthz(store Pinger, fallback *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := store.Ping(ctx); err != nil {
				logging.FromContext(r.Context(), fallback).ErrorContext(r.Context(), "health check failed", "error", err)
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
