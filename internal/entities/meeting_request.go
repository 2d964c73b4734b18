package entities

import "time"

// BookingRequest is the body accepted by POST /book.
type BookingRequest struct {
	FullName    string    `json:"fullName"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phoneNumber"`
	SlotTime    time.Time `json:"slotTime"`
	Notes       string    `json:"notes,omitempty"`
}
