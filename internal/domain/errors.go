package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// InvalidScheduleError reports a malformed day window or override.
type InvalidScheduleError struct {
	ProfessionalID uuid.UUID
	Date           time.Time
	Reason         string
}

func (e *InvalidScheduleError) Error() string {
	var b strings.Builder
	b.WriteString("invalid schedule")
	if e.ProfessionalID != uuid.Nil {
		b.WriteString(" for professional ")
		b.WriteString(e.ProfessionalID.String())
	}
	if !e.Date.IsZero() {
		b.WriteString(" on ")
		b.WriteString(DateKey(e.Date))
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	return b.String()
}

// InvalidServiceError means a service reference could not be resolved.
type InvalidServiceError struct {
	ServiceID uuid.UUID
	Reason    string
}

func (e *InvalidServiceError) Error() string {
	if e.ServiceID == uuid.Nil {
		return "invalid service: " + e.Reason
	}
	return fmt.Sprintf("invalid service %s: %s", e.ServiceID, e.Reason)
}

// OutOfWindowError means an interval does not fit in the professional's
// resolved working window. A nil window means the professional is off.
type OutOfWindowError struct {
	ProfessionalID uuid.UUID
	Start          time.Time
	End            time.Time
	Window         *DayWindow
}

func (e *OutOfWindowError) Error() string {
	if e.Window == nil {
		return fmt.Sprintf("professional %s is not working on %s", e.ProfessionalID, DateKey(e.Start))
	}
	return fmt.Sprintf("interval %s-%s is outside working window %s-%s of professional %s",
		TimeOfDayOf(e.Start), TimeOfDayOf(e.End), e.Window.Start, e.Window.End, e.ProfessionalID)
}

// StaleCommitError is returned when the store refused a reschedule because
// the appointment changed underneath the caller.
type StaleCommitError struct {
	AppointmentID uuid.UUID
	Err           error
}

func (e *StaleCommitError) Error() string {
	return fmt.Sprintf("appointment %s changed concurrently: %v", e.AppointmentID, e.Err)
}

func (e *StaleCommitError) Unwrap() error {
	return e.Err
}

// ConflictError lists the existing blocks an interval collides with.
type ConflictError struct {
	ProfessionalID uuid.UUID
	BlockIDs       []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("professional %s already has overlapping work: %s", e.ProfessionalID, strings.Join(e.BlockIDs, ", "))
}
