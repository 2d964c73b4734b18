package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"coworkspace/internal/db"
)

type AdminMeetingService interface {
	ListMeetings(ctx context.Context, from, to string) ([]db.Meeting, error)
	CancelMeeting(ctx context.Context, id string) (*db.Meeting, error)
	CompleteMeeting(ctx context.Context, id string) (*db.Meeting, error)
}

type AdminHandler struct {
	Service AdminMeetingService
	logger  *slog.Logger
}

func NewAdminHandler(svc AdminMeetingService, logger *slog.Logger) *AdminHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminHandler{Service: svc, logger: logger}
}

func (h *AdminHandler) ListMeetings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	meetings, err := h.Service.ListMeetings(r.Context(), q.Get("from"), q.Get("to"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if meetings == nil {
		meetings = []db.Meeting{}
	}
	writeJSON(w, http.StatusOK, MeetingListResponse{Meetings: meetings})
}

func (h *AdminHandler) CancelMeeting(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Service.CancelMeeting)
}

func (h *AdminHandler) CompleteMeeting(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Service.CompleteMeeting)
}

func (h *AdminHandler) transition(w http.ResponseWriter, r *http.Request, apply func(context.Context, string) (*db.Meeting, error)) {
	id := mux.Vars(r)["id"]
	meeting, err := apply(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MeetingResponse{Meeting: meeting})
}
