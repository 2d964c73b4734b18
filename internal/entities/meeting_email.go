package entities

type MeetingEmailData struct {
	UserName           string
	MeetingID          string
	StartTimeFormatted string
	EndTimeFormatted   string
	JoinLink           string
	Notes              string
	CurrentYear        int
}
