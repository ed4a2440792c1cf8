// Package timeline places a location's appointments for one day into
// professional columns and mediates drag-based rescheduling.
package timeline

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"podoagenda/backend/internal/availability"
	"podoagenda/backend/internal/domain"
)

// DefaultScale is pixels per minute.
const DefaultScale = 2.0

type LayoutInput struct {
	Date       time.Time
	LocationID uuid.UUID
	DayStart   domain.TimeOfDay
	Scale      float64
	Roster     []domain.Professional
	// Appointments must hold every appointment on Date across all locations,
	// otherwise overlaps with work booked elsewhere go unnoticed.
	Appointments []domain.Appointment
	Services     domain.ServiceCatalog
	Resolver     availability.Resolver
}

type PlacedBlock struct {
	availability.Block
	PatientID  uuid.UUID
	LocationID uuid.UUID
	Status     domain.AppointmentStatus
	Top        float64
	Height     float64
	Overlap    bool
}

type Column struct {
	Professional domain.Professional
	// Availability is nil for a professional who owns blocks here but is off
	// that day.
	Availability *availability.DailyAvailability
	IsExternal   bool
	Blocks       []PlacedBlock
	Overlaps     availability.BlockSet
}

// HasOverlap reports whether any block in the column overlaps another.
func (c Column) HasOverlap() bool {
	return len(c.Overlaps) > 0
}

type Day struct {
	Date       time.Time
	LocationID uuid.UUID
	DayStart   domain.TimeOfDay
	Scale      float64
	Columns    []Column
}

// Top is the vertical offset of t on the day grid.
func Top(t time.Time, date time.Time, dayStart domain.TimeOfDay, scale float64) float64 {
	return t.Sub(dayStart.On(date)).Minutes() * scale
}

// Layout builds the day view. Columns come in roster order for professionals
// working at the location, then professionals who only own blocks there,
// ordered by id. Overlap flags consider every committed block of the
// professional on the date, wherever it is booked.
func Layout(in LayoutInput) (Day, error) {
	scale := in.Scale
	if scale <= 0 {
		scale = DefaultScale
	}
	date := domain.DateOf(in.Date)
	out := Day{Date: date, LocationID: in.LocationID, DayStart: in.DayStart, Scale: scale}

	byProfessional, err := availability.BlocksByProfessional(in.Appointments, in.Services)
	if err != nil {
		return Day{}, err
	}
	apptByID := make(map[uuid.UUID]domain.Appointment, len(in.Appointments))
	for _, a := range in.Appointments {
		apptByID[a.ID] = a
	}

	// Blocks drawn at this location, per professional.
	local := make(map[uuid.UUID][]availability.Block)
	for pid, blocks := range byProfessional {
		for _, b := range availability.OnDate(blocks, date) {
			if apptByID[b.AppointmentID].LocationID == in.LocationID {
				local[pid] = append(local[pid], b)
			}
		}
	}

	seen := make(map[uuid.UUID]bool)
	roster := make(map[uuid.UUID]domain.Professional, len(in.Roster))
	for _, p := range in.Roster {
		roster[p.ID] = p
		avail, err := in.Resolver.WorkingAt(p, date, in.LocationID)
		if err != nil {
			return Day{}, err
		}
		if avail == nil {
			continue
		}
		seen[p.ID] = true
		out.Columns = append(out.Columns, Column{Professional: p, Availability: avail, IsExternal: avail.IsExternal})
	}

	var extras []uuid.UUID
	for pid := range local {
		if !seen[pid] {
			extras = append(extras, pid)
		}
	}
	sort.Slice(extras, func(i, j int) bool { return extras[i].String() < extras[j].String() })
	for _, pid := range extras {
		p, ok := roster[pid]
		if !ok {
			p = domain.Professional{ID: pid}
		}
		col := Column{Professional: p, IsExternal: !ok || p.HomeLocationID != in.LocationID}
		if ok {
			avail, err := in.Resolver.Resolve(p, date)
			if err != nil {
				return Day{}, err
			}
			col.Availability = avail
		}
		out.Columns = append(out.Columns, col)
	}

	for i := range out.Columns {
		col := &out.Columns[i]
		pid := col.Professional.ID
		col.Overlaps = availability.FindOverlaps(availability.OnDate(byProfessional[pid], date))

		blocks := local[pid]
		sort.Slice(blocks, func(a, b int) bool {
			if !blocks[a].Start.Equal(blocks[b].Start) {
				return blocks[a].Start.Before(blocks[b].Start)
			}
			return blocks[a].ID < blocks[b].ID
		})
		col.Blocks = make([]PlacedBlock, 0, len(blocks))
		for _, b := range blocks {
			appt := apptByID[b.AppointmentID]
			col.Blocks = append(col.Blocks, PlacedBlock{
				Block:      b,
				PatientID:  appt.PatientID,
				LocationID: appt.LocationID,
				Status:     appt.Status,
				Top:        Top(b.Start, date, in.DayStart, scale),
				Height:     b.Duration().Minutes() * scale,
				Overlap:    col.Overlaps.Has(b.ID),
			})
		}
	}

	return out, nil
}
