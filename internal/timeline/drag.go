package timeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"podoagenda/backend/internal/domain"
)

type DragState string

const (
	DragIdle           DragState = "idle"
	DragDragging       DragState = "dragging"
	DragDroppedValid   DragState = "dropped_valid"
	DragDroppedInvalid DragState = "dropped_invalid"
)

var ErrInvalidTransition = errors.New("invalid drag transition")

// Position is where a block is drawn.
type Position struct {
	ProfessionalID uuid.UUID `json:"professional_id"`
	Top            float64   `json:"top"`
}

// DropTarget is where the pointer was released. A column change is a
// reassignment; otherwise DeltaPixels is a time shift.
type DropTarget struct {
	ProfessionalID uuid.UUID `json:"professional_id"`
	DeltaPixels    float64   `json:"delta_pixels"`
}

// Outcome is the result of settling a drop.
type Outcome struct {
	// Dropped is the state the session settled from.
	Dropped     DragState
	Appointment *domain.Appointment
	Position    Position
	Reverted    bool
}

// DragSession tracks one block through
// idle -> dragging -> dropped_valid | dropped_invalid -> idle.
// It never mutates the snapshot; the caller redraws from Outcome.
type DragSession struct {
	controller *Controller
	snapshot   DaySnapshot

	state         DragState
	appointmentID uuid.UUID
	origin        Position
	target        *DropTarget
}

func NewDragSession(c *Controller, snapshot DaySnapshot) *DragSession {
	return &DragSession{controller: c, snapshot: snapshot, state: DragIdle}
}

func (s *DragSession) State() DragState {
	return s.state
}

func (s *DragSession) Begin(appointmentID uuid.UUID, origin Position) error {
	if s.state != DragIdle {
		return fmt.Errorf("%w: begin from %s", ErrInvalidTransition, s.state)
	}
	if _, ok := s.snapshot.Appointment(appointmentID); !ok {
		return fmt.Errorf("%w: appointment %s is not on the timeline", ErrInvalidTransition, appointmentID)
	}
	s.state = DragDragging
	s.appointmentID = appointmentID
	s.origin = origin
	s.target = nil
	return nil
}

// Drop releases the block. A nil target means it was released outside any
// column and is always invalid.
func (s *DragSession) Drop(target *DropTarget) (DragState, error) {
	if s.state != DragDragging {
		return s.state, fmt.Errorf("%w: drop from %s", ErrInvalidTransition, s.state)
	}
	s.target = target
	s.state = DragDroppedInvalid
	if s.validTarget(target) {
		s.state = DragDroppedValid
	}
	return s.state, nil
}

// Cancel abandons the drag. It is the same as dropping outside a target.
func (s *DragSession) Cancel() (DragState, error) {
	return s.Drop(nil)
}

func (s *DragSession) validTarget(t *DropTarget) bool {
	if t == nil || t.ProfessionalID == uuid.Nil {
		return false
	}
	if s.crossesColumn() {
		return s.controller.Mode == ModeReassign
	}
	return SnapDelta(PixelsToDuration(t.DeltaPixels, s.controller.Scale), s.controller.SnapGrid) != 0
}

func (s *DragSession) crossesColumn() bool {
	return s.target != nil && s.target.ProfessionalID != s.origin.ProfessionalID
}

// Settle returns the session to idle. An invalid drop reverts without any
// commit; a valid one commits through the controller and reverts on failure.
func (s *DragSession) Settle(ctx context.Context) (Outcome, error) {
	dropped := s.state
	switch dropped {
	case DragDroppedInvalid:
		s.reset()
		return Outcome{Dropped: dropped, Position: s.origin, Reverted: true}, nil
	case DragDroppedValid:
	default:
		return Outcome{}, fmt.Errorf("%w: settle from %s", ErrInvalidTransition, dropped)
	}

	var (
		appt domain.Appointment
		err  error
	)
	if s.crossesColumn() {
		appt, err = s.controller.RequestReassign(ctx, ReassignRequest{
			AppointmentID:    s.appointmentID,
			ToProfessionalID: s.target.ProfessionalID,
		}, s.snapshot)
	} else {
		appt, err = s.controller.RequestTimeShift(ctx, TimeShiftRequest{
			AppointmentID: s.appointmentID,
			DeltaPixels:   s.target.DeltaPixels,
		}, s.snapshot)
	}
	origin := s.origin
	s.reset()
	if err != nil {
		return Outcome{Dropped: dropped, Position: origin, Reverted: true}, err
	}

	pos := Position{
		ProfessionalID: appt.ProfessionalID,
		Top:            Top(appt.StartTime, s.snapshot.day(appt.StartTime), s.controller.DayStart, s.controller.Scale),
	}
	return Outcome{Dropped: dropped, Appointment: &appt, Position: pos}, nil
}

func (s *DragSession) reset() {
	s.state = DragIdle
	s.target = nil
}
