package availability

import (
	"time"

	"github.com/google/uuid"

	"podoagenda/backend/internal/domain"
)

// ExpandAppointment turns an appointment into its primary block, one block per
// add-on and one travel block per leg. An add-on without an explicit start
// begins when the previous service block ends.
func ExpandAppointment(appt domain.Appointment, services domain.ServiceCatalog) ([]Block, error) {
	svc, err := services.Lookup(appt.ServiceID)
	if err != nil {
		return nil, err
	}

	out := make([]Block, 0, 1+len(appt.AddOns)+len(appt.Travel))
	primary := Block{
		ID:             PrimaryBlockID(appt.ID),
		AppointmentID:  appt.ID,
		ProfessionalID: appt.ProfessionalID,
		ServiceID:      appt.ServiceID,
		Kind:           BlockKindPrimary,
		AddOnIndex:     -1,
		Start:          appt.StartTime,
		End:            appt.StartTime.Add(svc.Duration()),
	}
	out = append(out, primary)

	cursor := primary.End
	for i, ad := range appt.AddOns {
		d := ad.Duration()
		if d <= 0 {
			addSvc, err := services.Lookup(ad.ServiceID)
			if err != nil {
				return nil, err
			}
			d = addSvc.Duration()
		}
		start := cursor
		if ad.StartTime != nil {
			start = *ad.StartTime
		}
		professionalID := appt.ProfessionalID
		if ad.ProfessionalID != nil && *ad.ProfessionalID != uuid.Nil {
			professionalID = *ad.ProfessionalID
		}
		b := Block{
			ID:             AddOnBlockID(appt.ID, i),
			AppointmentID:  appt.ID,
			ProfessionalID: professionalID,
			ServiceID:      ad.ServiceID,
			Kind:           BlockKindAddOn,
			AddOnIndex:     i,
			Start:          start,
			End:            start.Add(d),
		}
		out = append(out, b)
		cursor = b.End
	}

	for i, leg := range appt.Travel {
		out = append(out, Block{
			ID:             TravelBlockID(appt.ID, i),
			AppointmentID:  appt.ID,
			ProfessionalID: leg.ProfessionalID,
			Kind:           BlockKindTravel,
			AddOnIndex:     -1,
			Start:          leg.StartTime,
			End:            leg.StartTime.Add(leg.Duration()),
		})
	}

	return out, nil
}

// BlocksByProfessional expands every committed appointment and groups the
// blocks by assigned professional, keeping appointment order.
func BlocksByProfessional(appts []domain.Appointment, services domain.ServiceCatalog) (map[uuid.UUID][]Block, error) {
	out := make(map[uuid.UUID][]Block)
	for _, a := range appts {
		if !a.Status.Committed() {
			continue
		}
		blocks, err := ExpandAppointment(a, services)
		if err != nil {
			return nil, err
		}
		for _, b := range blocks {
			out[b.ProfessionalID] = append(out[b.ProfessionalID], b)
		}
	}
	return out, nil
}

// WorkBlocks drops travel blocks.
func WorkBlocks(blocks []Block) []Block {
	out := make([]Block, 0, len(blocks))
	for _, b := range blocks {
		if b.Kind != BlockKindTravel {
			out = append(out, b)
		}
	}
	return out
}

// OnDate keeps blocks that start on date's calendar day in date's location.
func OnDate(blocks []Block, date time.Time) []Block {
	out := make([]Block, 0, len(blocks))
	for _, b := range blocks {
		if domain.SameDate(b.Start.In(date.Location()), date) {
			out = append(out, b)
		}
	}
	return out
}
