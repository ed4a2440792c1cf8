// Package availability resolves when and where professionals work, detects
// overlaps among their committed blocks and derives who is free for a slot.
// Everything here is a pure function of its inputs.
package availability

import (
	"time"

	"github.com/google/uuid"

	"podoagenda/backend/internal/domain"
)

type Source string

const (
	SourceWeekly       Source = "weekly"
	SourceSpecialShift Source = "special_shift"
	SourceTransfer     Source = "transfer"
)

// DailyAvailability is a professional's resolved working window for one date.
type DailyAvailability struct {
	ProfessionalID uuid.UUID
	Date           time.Time
	Start          domain.TimeOfDay
	End            domain.TimeOfDay
	LocationID     uuid.UUID
	// IsExternal marks a professional transferred in from another home location.
	IsExternal bool
	Source     Source
}

func (a DailyAvailability) Window() domain.DayWindow {
	return domain.DayWindow{IsWorking: true, Start: a.Start, End: a.End}
}

// StartTime and EndTime place the window on the availability date.
func (a DailyAvailability) StartTime() time.Time { return a.Start.On(a.Date) }
func (a DailyAvailability) EndTime() time.Time   { return a.End.On(a.Date) }

// Contains reports whether [start, end) lies within the window.
func (a DailyAvailability) Contains(start, end time.Time) bool {
	return !start.Before(a.StartTime()) && !end.After(a.EndTime()) && start.Before(end)
}

type Resolver struct {
	Grid time.Duration
}

func NewResolver(grid time.Duration) Resolver {
	if grid <= 0 {
		grid = domain.DefaultScheduleGrid
	}
	return Resolver{Grid: grid}
}

// Resolve applies, in order: the override for date, the weekly pattern for the
// weekday, and otherwise not working. A nil result with a nil error means the
// professional is off that day. date's location anchors the returned window.
func (r Resolver) Resolve(p domain.Professional, date time.Time) (*DailyAvailability, error) {
	date = domain.DateOf(date)

	overrides := p.OverridesOn(date)
	if len(overrides) > 1 {
		return nil, &domain.InvalidScheduleError{ProfessionalID: p.ID, Date: date, Reason: "more than one override for the same date"}
	}
	if len(overrides) == 1 {
		return r.fromOverride(p, date, overrides[0])
	}

	w, ok := p.Weekly[date.Weekday()]
	if !ok || !w.IsWorking {
		return nil, nil
	}
	if err := w.Validate(r.Grid); err != nil {
		ie := err.(*domain.InvalidScheduleError)
		ie.ProfessionalID = p.ID
		ie.Date = date
		return nil, ie
	}
	return &DailyAvailability{
		ProfessionalID: p.ID,
		Date:           date,
		Start:          w.Start,
		End:            w.End,
		LocationID:     p.HomeLocationID,
		Source:         SourceWeekly,
	}, nil
}

func (r Resolver) fromOverride(p domain.Professional, date time.Time, o domain.ScheduleOverride) (*DailyAvailability, error) {
	if err := o.Validate(r.Grid); err != nil {
		return nil, err
	}
	if o.Kind == domain.OverrideKindRest {
		return nil, nil
	}

	w, _ := o.Window()
	out := &DailyAvailability{
		ProfessionalID: p.ID,
		Date:           date,
		Start:          w.Start,
		End:            w.End,
		LocationID:     p.HomeLocationID,
		Source:         SourceSpecialShift,
	}
	if o.Kind == domain.OverrideKindTransfer {
		out.LocationID = *o.TargetLocationID
		out.IsExternal = out.LocationID != p.HomeLocationID
		out.Source = SourceTransfer
	}
	return out, nil
}

// WorkingAt reports whether the professional works at locationID on date.
func (r Resolver) WorkingAt(p domain.Professional, date time.Time, locationID uuid.UUID) (*DailyAvailability, error) {
	a, err := r.Resolve(p, date)
	if err != nil || a == nil {
		return nil, err
	}
	if a.LocationID != locationID {
		return nil, nil
	}
	return a, nil
}
