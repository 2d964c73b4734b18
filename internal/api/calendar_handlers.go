package api

import (
	"context"
	"log/slog"
	"net/http"

	"coworkspace/internal/logging"
)

type CalendarAuthorizer interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) error
	IsAuthorized(ctx context.Context) bool
	Revoke(ctx context.Context) error
}

type StateSigner interface {
	Sign() (string, error)
	Verify(state string) error
}

// CalendarHandler drives the consent flow that connects the sales calendar.
// A nil Authorizer means the integration is not configured.
type CalendarHandler struct {
	Authorizer CalendarAuthorizer
	State      StateSigner
	logger     *slog.Logger
}

func NewCalendarHandler(authorizer CalendarAuthorizer, state StateSigner, logger *slog.Logger) *CalendarHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CalendarHandler{Authorizer: authorizer, State: state, logger: logger}
}

func (h *CalendarHandler) configured(w http.ResponseWriter) bool {
	if h.Authorizer == nil {
		writeMessage(w, http.StatusServiceUnavailable, "Calendar integration is not configured")
		return false
	}
	return true
}

func (h *CalendarHandler) Status(w http.ResponseWriter, r *http.Request) {
	authorized := h.Authorizer != nil && h.Authorizer.IsAuthorized(r.Context())
	writeJSON(w, http.StatusOK, CalendarStatusResponse{Authorized: authorized})
}

func (h *CalendarHandler) Connect(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}
	state, err := h.State.Sign()
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, CalendarConnectResponse{URL: h.Authorizer.AuthCodeURL(state)})
}

func (h *CalendarHandler) Callback(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}
	logger := logging.FromContext(r.Context(), h.logger)
	q := r.URL.Query()

	if reason := q.Get("error"); reason != "" {
		logger.WarnContext(r.Context(), "calendar consent declined", "reason", reason)
		writeMessage(w, http.StatusBadRequest, "Calendar authorization was not granted")
		return
	}
	if err := h.State.Verify(q.Get("state")); err != nil {
		logger.WarnContext(r.Context(), "rejected oauth callback", "error", err)
		writeMessage(w, http.StatusBadRequest, "Invalid or expired authorization state")
		return
	}
	if err := h.Authorizer.Exchange(r.Context(), q.Get("code")); err != nil {
		logger.ErrorContext(r.Context(), "calendar authorization failed", "error", err)
		writeMessage(w, http.StatusBadRequest, "Calendar authorization failed")
		return
	}
	writeJSON(w, http.StatusOK, CalendarStatusResponse{Authorized: true})
}

func (h *CalendarHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}
	if err := h.Authorizer.Revoke(r.Context()); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, CalendarStatusResponse{Authorized: false})
}
