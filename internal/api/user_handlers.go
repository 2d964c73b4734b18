package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"coworkspace/internal/db"
	"coworkspace/internal/entities"
)

// MeetingService is the booking surface the public handlers need.
type MeetingService interface {
	GetAvailability(ctx context.Context, days int) ([]entities.DayAvailability, error)
	BookMeeting(ctx context.Context, req entities.BookingRequest) (*db.Meeting, error)
	GetMeetingByID(ctx context.Context, id string) (*db.Meeting, error)
	DefaultDays() int
	MaxDays() int
}

type UserMeetingHandler struct {
	Service MeetingService
	logger  *slog.Logger
}

func NewUserMeetingHandler(svc MeetingService, logger *slog.Logger) *UserMeetingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserMeetingHandler{Service: svc, logger: logger}
}

func (h *UserMeetingHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	days := h.Service.DefaultDays()
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > h.Service.MaxDays() {
			writeMessage(w, http.StatusBadRequest, fmt.Sprintf("days must be between 1 and %d", h.Service.MaxDays()))
			return
		}
		days = n
	}

	result, err := h.Service.GetAvailability(r.Context(), days)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if result == nil {
		result = []entities.DayAvailability{}
	}
	writeJSON(w, http.StatusOK, entities.AvailabilityResponse{Days: result})
}

func (h *UserMeetingHandler) BookMeeting(w http.ResponseWriter, r *http.Request) {
	var req entities.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if missing := missingBookingFields(req); len(missing) > 0 {
		writeMessage(w, http.StatusBadRequest, "Missing required fields: "+strings.Join(missing, ", "))
		return
	}

	meeting, err := h.Service.BookMeeting(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, MeetingResponse{Meeting: meeting})
}

func (h *UserMeetingHandler) GetMeeting(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	meeting, err := h.Service.GetMeetingByID(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MeetingResponse{Meeting: meeting})
}

func missingBookingFields(req entities.BookingRequest) []string {
	var missing []string
	if strings.TrimSpace(req.FullName) == "" {
		missing = append(missing, "fullName")
	}
	if strings.TrimSpace(req.Email) == "" {
		missing = append(missing, "email")
	}
	if strings.TrimSpace(req.PhoneNumber) == "" {
		missing = append(missing, "phoneNumber")
	}
	if req.SlotTime.IsZero() {
		missing = append(missing, "slotTime")
	}
	return missing
}
