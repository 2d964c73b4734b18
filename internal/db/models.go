package db

import "time"

type MeetingStatus string

const (
	StatusScheduled MeetingStatus = "Scheduled"
	StatusCompleted MeetingStatus = "Completed"
	StatusCancelled MeetingStatus = "Cancelled"
)

func (s MeetingStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type Meeting struct {
	ID               string        `json:"id"`
	FullName         string        `json:"fullName"`
	Email            string        `json:"email"`
	PhoneNumber      string        `json:"phoneNumber"`
	StartTime        time.Time     `json:"startTime"`
	EndTime          time.Time     `json:"endTime"`
	ExternalEventID  string        `json:"externalEventId,omitempty"`
	ExternalJoinLink string        `json:"externalJoinLink"`
	Status           MeetingStatus `json:"status"`
	Notes            string        `json:"notes,omitempty"`
	ExpiresAt        time.Time     `json:"expiresAt"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}
