package entities

import "time"

// TimeSlot is one bookable unit on the business calendar grid.
type TimeSlot struct {
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	DisplayLabel string    `json:"display_label"`
}

type DayAvailability struct {
	Date        string     `json:"date"`
	DisplayDate string     `json:"display_date"`
	Slots       []TimeSlot `json:"slots"`
}

type AvailabilityResponse struct {
	Days []DayAvailability `json:"days"`
}
