package timeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"podoagenda/backend/internal/domain"
)

var (
	clinicA = uuid.MustParse("00000000-0000-0000-0000-00000000a001")
	clinicB = uuid.MustParse("00000000-0000-0000-0000-00000000a002")

	quiropodia = domain.Service{ID: uuid.MustParse("00000000-0000-0000-0000-00000000c001"), Name: "Quiropodia", DurationMinutes: 45}
	plantillas = domain.Service{ID: uuid.MustParse("00000000-0000-0000-0000-00000000c002"), Name: "Plantillas", DurationMinutes: 30}
	services   = domain.NewServiceCatalog([]domain.Service{quiropodia, plantillas})

	tuesday = time.Date(2024, 7, 9, 0, 0, 0, 0, time.UTC)

	cot = time.FixedZone("COT", -5*3600)
)

func at(hhmm string) time.Time {
	return domain.MustParseTimeOfDay(hhmm).On(tuesday)
}

// inCOT returns a fixture whose snapshot date is Tuesday in COT while the
// appointments hold the same wall-clock times as UTC instants, the way rows
// come back from the database.
func inCOT(f fixture, moved, blocker string) fixture {
	day := time.Date(2024, 7, 9, 0, 0, 0, 0, cot)
	f.moved.StartTime = domain.MustParseTimeOfDay(moved).On(day).UTC()
	f.blocker.StartTime = domain.MustParseTimeOfDay(blocker).On(day).UTC()
	f.snap.Date = day
	f.snap.Appointments = []domain.Appointment{f.moved, f.blocker}
	return f
}

func tod(hhmm string) *domain.TimeOfDay {
	v := domain.MustParseTimeOfDay(hhmm)
	return &v
}

func professional(id string, home uuid.UUID) domain.Professional {
	weekly := domain.WeeklySchedule{}
	for wd := time.Monday; wd <= time.Saturday; wd++ {
		weekly[wd] = domain.DayWindow{IsWorking: true, Start: domain.MustParseTimeOfDay("10:00"), End: domain.MustParseTimeOfDay("19:00")}
	}
	return domain.Professional{ID: uuid.MustParse(id), FirstName: "P", LastName: id[len(id)-1:], HomeLocationID: home, Weekly: weekly}
}

func appointment(id string, p domain.Professional, location uuid.UUID, svc domain.Service, start string) domain.Appointment {
	return domain.Appointment{
		ID:             uuid.MustParse(id),
		LocationID:     location,
		PatientID:      uuid.MustParse("00000000-0000-0000-0000-00000000e001"),
		ProfessionalID: p.ID,
		ServiceID:      svc.ID,
		StartTime:      at(start),
		Status:         domain.AppointmentStatusScheduled,
		Version:        3,
	}
}

type fakeCommitter struct {
	professionalFn func(ctx context.Context, id, newProfessionalID uuid.UUID, targetServiceID *uuid.UUID, expectedVersion int) (domain.Appointment, error)
	timeFn         func(ctx context.Context, id uuid.UUID, newStart time.Time, expectedVersion int) (domain.Appointment, error)
}

func (f *fakeCommitter) CommitAppointmentProfessional(ctx context.Context, id, newProfessionalID uuid.UUID, targetServiceID *uuid.UUID, expectedVersion int) (domain.Appointment, error) {
	if f.professionalFn == nil {
		panic("CommitAppointmentProfessional not configured")
	}
	return f.professionalFn(ctx, id, newProfessionalID, targetServiceID, expectedVersion)
}

func (f *fakeCommitter) CommitAppointmentTime(ctx context.Context, id uuid.UUID, newStart time.Time, expectedVersion int) (domain.Appointment, error) {
	if f.timeFn == nil {
		panic("CommitAppointmentTime not configured")
	}
	return f.timeFn(ctx, id, newStart, expectedVersion)
}
