package domain

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// DefaultScheduleGrid is the granularity day windows are authored on.
const DefaultScheduleGrid = 30 * time.Minute

type DayWindow struct {
	IsWorking bool      `json:"is_working"`
	Start     TimeOfDay `json:"start"`
	End       TimeOfDay `json:"end"`
}

func (w DayWindow) Validate(grid time.Duration) error {
	if !w.IsWorking {
		return nil
	}
	if !w.Start.Valid() || !w.End.Valid() {
		return &InvalidScheduleError{Reason: "window bound out of range"}
	}
	if w.Start >= w.End {
		return &InvalidScheduleError{Reason: "window start " + w.Start.String() + " is not before end " + w.End.String()}
	}
	if !w.Start.OnGrid(grid) || !w.End.OnGrid(grid) {
		return &InvalidScheduleError{Reason: "window " + w.Start.String() + "-" + w.End.String() + " is off the " + grid.String() + " grid"}
	}
	return nil
}

// Contains reports whether [start, end) on the window's date fits in the window.
func (w DayWindow) Contains(start, end TimeOfDay) bool {
	return w.IsWorking && start >= w.Start && end <= w.End
}

// WeeklySchedule maps a weekday to its recurring window. Missing weekdays are
// days off.
type WeeklySchedule map[time.Weekday]DayWindow

func (s WeeklySchedule) Validate(grid time.Duration) error {
	for wd, w := range s {
		if wd < time.Sunday || wd > time.Saturday {
			return &InvalidScheduleError{Reason: "unknown weekday"}
		}
		if err := w.Validate(grid); err != nil {
			ie := err.(*InvalidScheduleError)
			ie.Reason = wd.String() + ": " + ie.Reason
			return ie
		}
	}
	return nil
}

type OverrideKind string

const (
	OverrideKindRest         OverrideKind = "rest"
	OverrideKindSpecialShift OverrideKind = "special_shift"
	OverrideKindTransfer     OverrideKind = "transfer"
)

func (k OverrideKind) Valid() bool {
	switch k {
	case OverrideKindRest, OverrideKindSpecialShift, OverrideKindTransfer:
		return true
	}
	return false
}

type ScheduleOverride struct {
	bun.BaseModel `bun:"table:schedule_overrides"`

	ID               uuid.UUID    `bun:"id,pk,type:uuid" json:"id"`
	ProfessionalID   uuid.UUID    `bun:"professional_id,notnull,type:uuid" json:"professional_id"`
	Date             time.Time    `bun:"date,notnull,type:date" json:"date"`
	Kind             OverrideKind `bun:"kind,notnull" json:"kind"`
	StartTime        *TimeOfDay   `bun:"start_time" json:"start_time,omitempty"`
	EndTime          *TimeOfDay   `bun:"end_time" json:"end_time,omitempty"`
	TargetLocationID *uuid.UUID   `bun:"target_location_id,type:uuid" json:"target_location_id,omitempty"`
	Note             string       `bun:"note" json:"note,omitempty"`
	CreatedAt        time.Time    `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt        time.Time    `bun:"updated_at,notnull" json:"updated_at"`
}

// OverrideID is deterministic per professional and date so that writes for the
// same day collapse onto one row.
func OverrideID(professionalID uuid.UUID, date time.Time) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("podoagenda:override:"+professionalID.String()+":"+DateKey(date)))
}

func (o *ScheduleOverride) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if o.ID == uuid.Nil {
			o.ID = OverrideID(o.ProfessionalID, o.Date)
		}
		if o.CreatedAt.IsZero() {
			o.CreatedAt = now
		}
		if o.UpdatedAt.IsZero() {
			o.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		o.UpdatedAt = now
	}
	return nil
}

// Window returns the replacement window carried by a special shift or transfer.
func (o ScheduleOverride) Window() (DayWindow, bool) {
	if o.StartTime == nil || o.EndTime == nil {
		return DayWindow{}, false
	}
	return DayWindow{IsWorking: true, Start: *o.StartTime, End: *o.EndTime}, true
}

func (o ScheduleOverride) Validate(grid time.Duration) error {
	fail := func(reason string) error {
		return &InvalidScheduleError{ProfessionalID: o.ProfessionalID, Date: o.Date, Reason: reason}
	}
	if o.ProfessionalID == uuid.Nil {
		return fail("override without professional")
	}
	if o.Date.IsZero() {
		return fail("override without date")
	}
	switch o.Kind {
	case OverrideKindRest:
		return nil
	case OverrideKindSpecialShift, OverrideKindTransfer:
		w, ok := o.Window()
		if !ok {
			return fail(string(o.Kind) + " override requires start and end times")
		}
		if err := w.Validate(grid); err != nil {
			return fail(err.(*InvalidScheduleError).Reason)
		}
		if o.Kind == OverrideKindTransfer && (o.TargetLocationID == nil || *o.TargetLocationID == uuid.Nil) {
			return fail("transfer override requires a target location")
		}
		return nil
	default:
		return fail("unknown override kind " + string(o.Kind))
	}
}

// CheckUniqueOverrides rejects a batch holding two overrides for the same
// professional and date.
func CheckUniqueOverrides(overrides []ScheduleOverride) error {
	seen := make(map[string]struct{}, len(overrides))
	for _, o := range overrides {
		key := o.ProfessionalID.String() + "/" + DateKey(o.Date)
		if _, ok := seen[key]; ok {
			return &InvalidScheduleError{ProfessionalID: o.ProfessionalID, Date: o.Date, Reason: "more than one override for the same date"}
		}
		seen[key] = struct{}{}
	}
	return nil
}

// OverrideTemplate is the per-day payload used when expanding a date range.
type OverrideTemplate struct {
	Kind             OverrideKind
	StartTime        *TimeOfDay
	EndTime          *TimeOfDay
	TargetLocationID *uuid.UUID
	Note             string
}

// ExpandOverrideRange produces one override per calendar day in [from, to].
func ExpandOverrideRange(professionalID uuid.UUID, from, to time.Time, tpl OverrideTemplate) []ScheduleOverride {
	from = DateOf(from)
	to = DateOf(to)
	if to.Before(from) {
		return nil
	}
	out := make([]ScheduleOverride, 0, DaysBetween(from, to)+1)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		out = append(out, ScheduleOverride{
			ID:               OverrideID(professionalID, d),
			ProfessionalID:   professionalID,
			Date:             d,
			Kind:             tpl.Kind,
			StartTime:        tpl.StartTime,
			EndTime:          tpl.EndTime,
			TargetLocationID: tpl.TargetLocationID,
			Note:             tpl.Note,
		})
	}
	return out
}

// ContiguousRun returns the overrides of consecutive days sharing kind, note,
// window and transfer target with the override on date, sorted by date. It is nil when date has none.
func ContiguousRun(overrides []ScheduleOverride, date time.Time) []ScheduleOverride {
	byDate := make(map[string]ScheduleOverride, len(overrides))
	for _, o := range overrides {
		byDate[DateKey(o.Date)] = o
	}
	anchor, ok := byDate[DateKey(date)]
	if !ok {
		return nil
	}
	same := func(o ScheduleOverride) bool {
		return o.Kind == anchor.Kind && o.Note == anchor.Note &&
			equalPtr(o.StartTime, anchor.StartTime) &&
			equalPtr(o.EndTime, anchor.EndTime) &&
			equalPtr(o.TargetLocationID, anchor.TargetLocationID)
	}

	run := []ScheduleOverride{anchor}
	for d := DateOf(date).AddDate(0, 0, -1); ; d = d.AddDate(0, 0, -1) {
		o, ok := byDate[DateKey(d)]
		if !ok || !same(o) {
			break
		}
		run = append(run, o)
	}
	for d := DateOf(date).AddDate(0, 0, 1); ; d = d.AddDate(0, 0, 1) {
		o, ok := byDate[DateKey(d)]
		if !ok || !same(o) {
			break
		}
		run = append(run, o)
	}
	sort.Slice(run, func(i, j int) bool { return run[i].Date.Before(run[j].Date) })
	return run
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
