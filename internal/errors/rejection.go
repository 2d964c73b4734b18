package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrNotFound is returned when a meeting id does not exist.
var ErrNotFound = stderrors.New("not found")

// ErrNotScheduled is returned when a status change is requested for a meeting
// that is already cancelled or completed.
var ErrNotScheduled = stderrors.New("meeting is not scheduled")

type RejectionReason string

const (
	ReasonTooSoon             RejectionReason = "TOO_SOON"
	ReasonOutsideWorkingHours RejectionReason = "OUTSIDE_WORKING_HOURS"
	ReasonExcludedDay         RejectionReason = "EXCLUDED_DAY"
	ReasonSlotTaken           RejectionReason = "SLOT_TAKEN"
)

// PolicyRejection is a user-facing refusal of a booking request. The client
// has to pick a different slot; retrying the same request will not help.
type PolicyRejection struct {
	Reason  RejectionReason
	Message string
}

func (e *PolicyRejection) Error() string {
	return fmt.Sprintf("booking rejected (%s): %s", e.Reason, e.Message)
}

func NewRejection(reason RejectionReason, format string, args ...any) *PolicyRejection {
	return &PolicyRejection{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// IsRejection reports whether err is a PolicyRejection with the given reason.
func IsRejection(err error, reason RejectionReason) bool {
	var rejection *PolicyRejection
	return stderrors.As(err, &rejection) && rejection.Reason == reason
}
