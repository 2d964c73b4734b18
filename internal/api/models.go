package api

import (
	"coworkspace/internal/db"
	apperrors "coworkspace/internal/errors"
)

// Meeting
type MeetingResponse struct {
	Meeting *db.Meeting `json:"meeting"`
}

type MeetingListResponse struct {
	Meetings []db.Meeting `json:"meetings"`
}

// Errors
type ErrorResponse struct {
	Message string                    `json:"message"`
	Reason  apperrors.RejectionReason `json:"reason,omitempty"`
}

// Calendar authorization
type CalendarStatusResponse struct {
	Authorized bool `json:"authorized"`
}

type CalendarConnectResponse struct {
	URL string `json:"url"`
}
