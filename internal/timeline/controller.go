package timeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"podoagenda/backend/internal/availability"
	"podoagenda/backend/internal/domain"
	"podoagenda/backend/internal/store"
)

// Committer persists a reschedule. Both calls must reject a write whose
// expectedVersion no longer matches the stored appointment.
type Committer interface {
	CommitAppointmentProfessional(ctx context.Context, id, newProfessionalID uuid.UUID, targetServiceID *uuid.UUID, expectedVersion int) (domain.Appointment, error)
	CommitAppointmentTime(ctx context.Context, id uuid.UUID, newStart time.Time, expectedVersion int) (domain.Appointment, error)
}

type Mode string

const (
	ModeReassign      Mode = "reassign"
	ModeTimeShiftOnly Mode = "time_shift_only"
)

func (m Mode) Valid() bool {
	return m == ModeReassign || m == ModeTimeShiftOnly
}

var (
	ErrReassignNotAllowed = errors.New("reassigning across professionals is disabled")
	ErrNothingToCommit    = errors.New("drop does not change the appointment")
)

// DaySnapshot is the state a drag was started against. Appointments must hold
// every appointment on Date across all locations.
type DaySnapshot struct {
	Date         time.Time
	Roster       []domain.Professional
	Appointments []domain.Appointment
	Services     domain.ServiceCatalog
}

// day is the clinic date instants are read against. It falls back to the
// calendar date of t in its own zone when the snapshot carries no date.
func (s DaySnapshot) day(t time.Time) time.Time {
	if s.Date.IsZero() {
		return domain.DateOf(t)
	}
	return s.Date
}

func (s DaySnapshot) Appointment(id uuid.UUID) (domain.Appointment, bool) {
	for _, a := range s.Appointments {
		if a.ID == id {
			return a, true
		}
	}
	return domain.Appointment{}, false
}

func (s DaySnapshot) Professional(id uuid.UUID) (domain.Professional, bool) {
	for _, p := range s.Roster {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Professional{}, false
}

type ReassignRequest struct {
	AppointmentID    uuid.UUID
	ToProfessionalID uuid.UUID
	// TargetServiceID selects a single add-on to move. Nil, or the primary
	// service, moves the appointment with the add-ons that follow it.
	TargetServiceID *uuid.UUID
}

type TimeShiftRequest struct {
	AppointmentID uuid.UUID
	DeltaPixels   float64
}

type Controller struct {
	Committer Committer
	Mode      Mode
	SnapGrid  time.Duration
	Scale     float64
	DayStart  domain.TimeOfDay
	Resolver  availability.Resolver
}

func NewController(committer Committer, mode Mode, snapGrid time.Duration, scale float64, dayStart domain.TimeOfDay, resolver availability.Resolver) *Controller {
	if !mode.Valid() {
		mode = ModeReassign
	}
	if snapGrid <= 0 {
		snapGrid = DefaultSnapGrid
	}
	if scale <= 0 {
		scale = DefaultScale
	}
	return &Controller{Committer: committer, Mode: mode, SnapGrid: snapGrid, Scale: scale, DayStart: dayStart, Resolver: resolver}
}

func (c *Controller) lookup(snap DaySnapshot, id uuid.UUID) (domain.Appointment, error) {
	appt, ok := snap.Appointment(id)
	if !ok {
		return domain.Appointment{}, fmt.Errorf("appointment %s: %w", id, store.ErrNotFound)
	}
	return appt, nil
}

// movedBlocks returns the blocks of appt that change professional when
// targetServiceID is reassigned.
func movedBlocks(appt domain.Appointment, blocks []availability.Block, targetServiceID *uuid.UUID) ([]availability.Block, error) {
	if targetServiceID != nil && *targetServiceID != appt.ServiceID {
		idx := appt.AddOnIndex(*targetServiceID)
		if idx < 0 {
			return nil, &domain.InvalidServiceError{ServiceID: *targetServiceID, Reason: "not part of appointment " + appt.ID.String()}
		}
		for _, b := range blocks {
			if b.Kind == availability.BlockKindAddOn && b.AddOnIndex == idx {
				return []availability.Block{b}, nil
			}
		}
		return nil, nil
	}

	var out []availability.Block
	for _, b := range blocks {
		switch b.Kind {
		case availability.BlockKindPrimary:
			out = append(out, b)
		case availability.BlockKindAddOn:
			ad := appt.AddOns[b.AddOnIndex]
			if ad.ProfessionalID == nil || *ad.ProfessionalID == uuid.Nil || *ad.ProfessionalID == appt.ProfessionalID {
				out = append(out, b)
			}
		}
	}
	return out, nil
}

// RequestReassign moves work to another professional column. The moved
// interval is checked against the destination's existing blocks; nothing is
// committed when it overlaps.
func (c *Controller) RequestReassign(ctx context.Context, req ReassignRequest, snap DaySnapshot) (domain.Appointment, error) {
	if c.Mode != ModeReassign {
		return domain.Appointment{}, ErrReassignNotAllowed
	}
	appt, err := c.lookup(snap, req.AppointmentID)
	if err != nil {
		return domain.Appointment{}, err
	}
	if req.ToProfessionalID == uuid.Nil {
		return domain.Appointment{}, fmt.Errorf("destination professional: %w", store.ErrNotFound)
	}

	own, err := availability.ExpandAppointment(appt, snap.Services)
	if err != nil {
		return domain.Appointment{}, err
	}
	moving, err := movedBlocks(appt, own, req.TargetServiceID)
	if err != nil {
		return domain.Appointment{}, err
	}
	moving = changingOwner(moving, req.ToProfessionalID)
	if len(moving) == 0 {
		return domain.Appointment{}, ErrNothingToCommit
	}

	byProfessional, err := availability.BlocksByProfessional(snap.Appointments, snap.Services)
	if err != nil {
		return domain.Appointment{}, err
	}
	existing := availability.OnDate(byProfessional[req.ToProfessionalID], snap.day(appt.StartTime))

	var conflicts []string
	for _, b := range moving {
		b.ProfessionalID = req.ToProfessionalID
		conflicts = append(conflicts, availability.ConflictsWith(b, existing)...)
	}
	if len(conflicts) > 0 {
		return domain.Appointment{}, &domain.ConflictError{ProfessionalID: req.ToProfessionalID, BlockIDs: conflicts}
	}

	out, err := c.Committer.CommitAppointmentProfessional(ctx, appt.ID, req.ToProfessionalID, req.TargetServiceID, appt.Version)
	if err != nil {
		return domain.Appointment{}, commitError(appt.ID, err)
	}
	return out, nil
}

func changingOwner(blocks []availability.Block, to uuid.UUID) []availability.Block {
	var out []availability.Block
	for _, b := range blocks {
		if b.ProfessionalID != to {
			out = append(out, b)
		}
	}
	return out
}

// RequestTimeShift moves an appointment vertically within its column. The
// pixel delta is snapped to the grid and the shifted work of the assigned
// professional must stay inside their resolved window. Overlaps are not
// re-checked; they show up as warnings on the next layout.
func (c *Controller) RequestTimeShift(ctx context.Context, req TimeShiftRequest, snap DaySnapshot) (domain.Appointment, error) {
	appt, err := c.lookup(snap, req.AppointmentID)
	if err != nil {
		return domain.Appointment{}, err
	}

	delta := SnapDelta(PixelsToDuration(req.DeltaPixels, c.Scale), c.SnapGrid)
	if delta == 0 {
		return domain.Appointment{}, ErrNothingToCommit
	}

	blocks, err := availability.ExpandAppointment(appt, snap.Services)
	if err != nil {
		return domain.Appointment{}, err
	}
	newStart := appt.StartTime.Add(delta)
	if err := c.checkWindow(appt, blocks, delta, newStart, snap); err != nil {
		return domain.Appointment{}, err
	}

	out, err := c.Committer.CommitAppointmentTime(ctx, appt.ID, newStart, appt.Version)
	if err != nil {
		return domain.Appointment{}, commitError(appt.ID, err)
	}
	return out, nil
}

func (c *Controller) checkWindow(appt domain.Appointment, blocks []availability.Block, delta time.Duration, newStart time.Time, snap DaySnapshot) error {
	var start, end time.Time
	for _, b := range availability.WorkBlocks(blocks) {
		if b.ProfessionalID != appt.ProfessionalID {
			continue
		}
		b = b.Shift(delta)
		if start.IsZero() || b.Start.Before(start) {
			start = b.Start
		}
		if end.IsZero() || b.End.After(end) {
			end = b.End
		}
	}

	p, ok := snap.Professional(appt.ProfessionalID)
	if !ok {
		return &domain.OutOfWindowError{ProfessionalID: appt.ProfessionalID, Start: start, End: end}
	}
	avail, err := c.Resolver.Resolve(p, snap.day(appt.StartTime))
	if err != nil {
		return err
	}
	if avail == nil {
		return &domain.OutOfWindowError{ProfessionalID: p.ID, Start: start, End: end}
	}
	if !avail.Contains(start, end) {
		w := avail.Window()
		return &domain.OutOfWindowError{ProfessionalID: p.ID, Start: start, End: end, Window: &w}
	}
	return nil
}

// commitError maps a store refusal onto *StaleCommitError so callers roll back.
func commitError(id uuid.UUID, err error) error {
	if errors.Is(err, store.ErrStale) || errors.Is(err, store.ErrConflict) {
		return &domain.StaleCommitError{AppointmentID: id, Err: err}
	}
	return fmt.Errorf("commit appointment %s: %w", id, err)
}
