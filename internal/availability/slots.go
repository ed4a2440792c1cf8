package availability

import (
	"time"

	"github.com/google/uuid"

	"podoagenda/backend/internal/domain"
)

// SlotQuery is a candidate appointment. Date carries the clinic location;
// Start is the wall-clock start on that date. A nil LocationID accepts any
// location the professional works at that day.
type SlotQuery struct {
	Date       time.Time
	Start      domain.TimeOfDay
	Service    *domain.Service
	LocationID *uuid.UUID
}

func (q SlotQuery) interval() (time.Time, time.Time) {
	start := q.Start.On(q.Date)
	return start, start.Add(q.Service.Duration())
}

type Reason string

const (
	ReasonEligible      Reason = "eligible"
	ReasonNotWorking    Reason = "not_working"
	ReasonOtherLocation Reason = "other_location"
	ReasonOutOfWindow   Reason = "out_of_window"
	ReasonConflict      Reason = "conflict"
)

// Decision explains why a professional is or is not free for a slot.
type Decision struct {
	Professional domain.Professional
	Availability *DailyAvailability
	Reason       Reason
	OutOfWindow  *domain.OutOfWindowError
	Conflicts    []string
}

func (d Decision) Eligible() bool {
	return d.Reason == ReasonEligible
}

type Engine struct {
	Resolver Resolver
}

func NewEngine(resolver Resolver) Engine {
	return Engine{Resolver: resolver}
}

func validateQuery(q SlotQuery) error {
	if q.Service == nil {
		return &domain.InvalidServiceError{Reason: "service is required"}
	}
	if q.Service.DurationMinutes <= 0 {
		return &domain.InvalidServiceError{ServiceID: q.Service.ID, Reason: "service has no duration"}
	}
	return nil
}

// Evaluate checks one professional against q. existing holds that
// professional's blocks for the date; travel blocks among them are ignored.
func (e Engine) Evaluate(p domain.Professional, existing []Block, q SlotQuery) (Decision, error) {
	if err := validateQuery(q); err != nil {
		return Decision{}, err
	}
	d := Decision{Professional: p}

	avail, err := e.Resolver.Resolve(p, q.Date)
	if err != nil {
		return Decision{}, err
	}
	if avail == nil {
		d.Reason = ReasonNotWorking
		return d, nil
	}
	d.Availability = avail

	if q.LocationID != nil && *q.LocationID != avail.LocationID {
		d.Reason = ReasonOtherLocation
		return d, nil
	}

	start, end := q.interval()
	if !avail.Contains(start, end) {
		w := avail.Window()
		d.Reason = ReasonOutOfWindow
		d.OutOfWindow = &domain.OutOfWindowError{ProfessionalID: p.ID, Start: start, End: end, Window: &w}
		return d, nil
	}

	proposed := Block{
		ID:             ProposedBlockID,
		ProfessionalID: p.ID,
		ServiceID:      q.Service.ID,
		Kind:           BlockKindPrimary,
		AddOnIndex:     -1,
		Start:          start,
		End:            end,
	}
	if conflicts := ConflictsWith(proposed, existing); len(conflicts) > 0 {
		d.Reason = ReasonConflict
		d.Conflicts = conflicts
		return d, nil
	}

	d.Reason = ReasonEligible
	return d, nil
}

// EvaluateAll runs Evaluate for every professional in roster.
func (e Engine) EvaluateAll(roster []domain.Professional, blocks map[uuid.UUID][]Block, q SlotQuery) ([]Decision, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}
	out := make([]Decision, 0, len(roster))
	for _, p := range roster {
		d, err := e.Evaluate(p, blocks[p.ID], q)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// FindEligibleProfessionals returns the professionals free for q. An empty
// result is a normal outcome; a missing service is an *InvalidServiceError.
// blocks must hold every professional's complete block set for the date.
func (e Engine) FindEligibleProfessionals(roster []domain.Professional, blocks map[uuid.UUID][]Block, q SlotQuery) ([]domain.Professional, error) {
	decisions, err := e.EvaluateAll(roster, blocks, q)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Professional, 0, len(decisions))
	for _, d := range decisions {
		if d.Eligible() {
			out = append(out, d.Professional)
		}
	}
	return out, nil
}
