package scheduling

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"podoagenda/backend/internal/availability"
	"podoagenda/backend/internal/contract"
	"podoagenda/backend/internal/domain"
	"podoagenda/backend/internal/store"
	"podoagenda/backend/internal/timeline"
)

type fakeRoster struct {
	listFn     func(ctx context.Context, homeLocationID *uuid.UUID) ([]domain.Professional, error)
	getFn      func(ctx context.Context, id uuid.UUID) (domain.Professional, error)
	servicesFn func(ctx context.Context) ([]domain.Service, error)
}

func (f *fakeRoster) ListProfessionals(ctx context.Context, homeLocationID *uuid.UUID) ([]domain.Professional, error) {
	if f.listFn == nil {
		panic("ListProfessionals not configured")
	}
	return f.listFn(ctx, homeLocationID)
}

func (f *fakeRoster) GetProfessional(ctx context.Context, id uuid.UUID) (domain.Professional, error) {
	if f.getFn == nil {
		panic("GetProfessional not configured")
	}
	return f.getFn(ctx, id)
}

func (f *fakeRoster) ListServices(ctx context.Context) ([]domain.Service, error) {
	if f.servicesFn == nil {
		panic("ListServices not configured")
	}
	return f.servicesFn(ctx)
}

type fakeAppointments struct {
	listFn         func(ctx context.Context, filter store.AppointmentFilter) ([]domain.Appointment, error)
	getFn          func(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	professionalFn func(ctx context.Context, id, newProfessionalID uuid.UUID, targetServiceID *uuid.UUID, expectedVersion int) (domain.Appointment, error)
	timeFn         func(ctx context.Context, id uuid.UUID, newStart time.Time, expectedVersion int) (domain.Appointment, error)
}

func (f *fakeAppointments) ListAppointments(ctx context.Context, filter store.AppointmentFilter) ([]domain.Appointment, error) {
	if f.listFn == nil {
		panic("ListAppointments not configured")
	}
	return f.listFn(ctx, filter)
}

func (f *fakeAppointments) GetAppointment(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	if f.getFn == nil {
		panic("GetAppointment not configured")
	}
	return f.getFn(ctx, id)
}

func (f *fakeAppointments) CommitAppointmentProfessional(ctx context.Context, id, newProfessionalID uuid.UUID, targetServiceID *uuid.UUID, expectedVersion int) (domain.Appointment, error) {
	if f.professionalFn == nil {
		panic("CommitAppointmentProfessional not configured")
	}
	return f.professionalFn(ctx, id, newProfessionalID, targetServiceID, expectedVersion)
}

func (f *fakeAppointments) CommitAppointmentTime(ctx context.Context, id uuid.UUID, newStart time.Time, expectedVersion int) (domain.Appointment, error) {
	if f.timeFn == nil {
		panic("CommitAppointmentTime not configured")
	}
	return f.timeFn(ctx, id, newStart, expectedVersion)
}

type fakeOverrides struct {
	listFn   func(ctx context.Context, professionalID uuid.UUID, from, to time.Time) ([]domain.ScheduleOverride, error)
	putFn    func(ctx context.Context, overrides []domain.ScheduleOverride) ([]domain.ScheduleOverride, error)
	deleteFn func(ctx context.Context, professionalID uuid.UUID, ids []uuid.UUID) error
}

func (f *fakeOverrides) ListOverrides(ctx context.Context, professionalID uuid.UUID, from, to time.Time) ([]domain.ScheduleOverride, error) {
	if f.listFn == nil {
		panic("ListOverrides not configured")
	}
	return f.listFn(ctx, professionalID, from, to)
}

func (f *fakeOverrides) PutOverrides(ctx context.Context, overrides []domain.ScheduleOverride) ([]domain.ScheduleOverride, error) {
	if f.putFn == nil {
		panic("PutOverrides not configured")
	}
	return f.putFn(ctx, overrides)
}

func (f *fakeOverrides) DeleteOverrides(ctx context.Context, professionalID uuid.UUID, ids []uuid.UUID) error {
	if f.deleteFn == nil {
		panic("DeleteOverrides not configured")
	}
	return f.deleteFn(ctx, professionalID, ids)
}

type fakeContracts struct {
	replaceFn func(ctx context.Context, c domain.Contract) (domain.Contract, error)
	historyFn func(ctx context.Context, professionalID uuid.UUID) ([]domain.ContractHistory, error)
}

func (f *fakeContracts) ReplaceContract(ctx context.Context, c domain.Contract) (domain.Contract, error) {
	if f.replaceFn == nil {
		panic("ReplaceContract not configured")
	}
	return f.replaceFn(ctx, c)
}

func (f *fakeContracts) ListContractHistory(ctx context.Context, professionalID uuid.UUID) ([]domain.ContractHistory, error) {
	if f.historyFn == nil {
		panic("ListContractHistory not configured")
	}
	return f.historyFn(ctx, professionalID)
}

var (
	cot     = time.FixedZone("COT", -5*3600)
	centro  = uuid.MustParse("00000000-0000-0000-0000-00000000a001")
	norte   = uuid.MustParse("00000000-0000-0000-0000-00000000a002")
	tuesday = time.Date(2024, 7, 9, 0, 0, 0, 0, time.UTC)

	quiropodia = domain.Service{ID: uuid.MustParse("00000000-0000-0000-0000-00000000c001"), Name: "Quiropodia", DurationMinutes: 45}
)

func professional(id string, home uuid.UUID) domain.Professional {
	weekly := domain.WeeklySchedule{}
	for wd := time.Monday; wd <= time.Saturday; wd++ {
		weekly[wd] = domain.DayWindow{IsWorking: true, Start: domain.MustParseTimeOfDay("10:00"), End: domain.MustParseTimeOfDay("19:00")}
	}
	return domain.Professional{ID: uuid.MustParse(id), FirstName: id[len(id)-4:], HomeLocationID: home, Weekly: weekly}
}

func atCOT(hhmm string) time.Time {
	return domain.MustParseTimeOfDay(hhmm).On(time.Date(2024, 7, 9, 0, 0, 0, 0, cot))
}

func booking(id string, p domain.Professional, location uuid.UUID, start string) domain.Appointment {
	return domain.Appointment{
		ID:             uuid.MustParse(id),
		LocationID:     location,
		ProfessionalID: p.ID,
		ServiceID:      quiropodia.ID,
		StartTime:      atCOT(start),
		Status:         domain.AppointmentStatusScheduled,
		Version:        2,
	}
}

func newTestService(repos Repositories) *Service {
	return NewService(repos, Options{
		Location: cot,
		Grid:     30 * time.Minute,
		SnapGrid: 15 * time.Minute,
		Scale:    2,
		DayStart: domain.MustParseTimeOfDay("08:00"),
		Mode:     timeline.ModeReassign,
	}, nil)
}

type day struct {
	ana, beto domain.Professional
	booked    domain.Appointment
	filters   []store.AppointmentFilter
}

// clinicDay wires a roster of two professionals where ana is booked at 10:00
// in the north clinic.
func clinicDay() (*day, *fakeRoster, *fakeAppointments) {
	d := &day{
		ana:  professional("00000000-0000-0000-0000-00000000b001", centro),
		beto: professional("00000000-0000-0000-0000-00000000b002", centro),
	}
	d.booked = booking("00000000-0000-0000-0000-00000000d001", d.ana, norte, "10:00")

	roster := &fakeRoster{
		listFn: func(ctx context.Context, homeLocationID *uuid.UUID) ([]domain.Professional, error) {
			return []domain.Professional{d.ana, d.beto}, nil
		},
		servicesFn: func(ctx context.Context) ([]domain.Service, error) {
			return []domain.Service{quiropodia}, nil
		},
	}
	appts := &fakeAppointments{
		listFn: func(ctx context.Context, filter store.AppointmentFilter) ([]domain.Appointment, error) {
			d.filters = append(d.filters, filter)
			return []domain.Appointment{d.booked}, nil
		},
		getFn: func(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
			if id != d.booked.ID {
				return domain.Appointment{}, store.ErrNotFound
			}
			return d.booked, nil
		},
	}
	return d, roster, appts
}

func TestService_ValidationErrors(t *testing.T) {
	svc := newTestService(Repositories{})
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
		want string
	}{
		{"eligible without start", func() error {
			_, err := svc.FindEligibleProfessionals(ctx, EligibleInput{Date: tuesday, ServiceID: quiropodia.ID})
			return err
		}, "start is required"},
		{"eligible with bad start", func() error {
			_, err := svc.FindEligibleProfessionals(ctx, EligibleInput{Date: tuesday, Start: "25:00", ServiceID: quiropodia.ID})
			return err
		}, "invalid start"},
		{"override with unknown kind", func() error {
			_, err := svc.CreateOverrides(ctx, OverrideInput{ProfessionalID: uuid.New(), From: tuesday, Kind: "holiday"})
			return err
		}, "invalid kind"},
		{"override range backwards", func() error {
			to := tuesday.AddDate(0, 0, -1)
			_, err := svc.CreateOverrides(ctx, OverrideInput{ProfessionalID: uuid.New(), From: tuesday, To: &to, Kind: "rest"})
			return err
		}, "to must not be before from"},
		{"override range too long", func() error {
			to := tuesday.AddDate(2, 0, 0)
			_, err := svc.CreateOverrides(ctx, OverrideInput{ProfessionalID: uuid.New(), From: tuesday, To: &to, Kind: "rest"})
			return err
		}, "range must be within 366 days"},
		{"reassign without target", func() error {
			_, err := svc.Reassign(ctx, ReassignInput{AppointmentID: uuid.New()})
			return err
		}, "professional_id is required"},
		{"contract without start", func() error {
			_, err := svc.ReplaceContract(ctx, ContractInput{ProfessionalID: uuid.New()})
			return err
		}, "start_date is required"},
		{"contract ending before start", func() error {
			end := tuesday.AddDate(0, 0, -1)
			_, err := svc.ReplaceContract(ctx, ContractInput{ProfessionalID: uuid.New(), StartDate: tuesday, EndDate: &end})
			return err
		}, "end_date must not be before start_date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("error = %v (%T), want *ValidationError", err, err)
			}
			if vErr.Error() != tt.want {
				t.Fatalf("error = %q, want %q", vErr.Error(), tt.want)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("date", "2024-07-09")
	if err != nil || !got.Equal(tuesday) {
		t.Fatalf("ParseDate = %v, %v, want %v", got, err, tuesday)
	}
	var vErr *ValidationError
	if _, err := ParseDate("date", "09/07/2024"); !errors.As(err, &vErr) {
		t.Fatalf("ParseDate bad input error = %v, want *ValidationError", err)
	}
}

func TestFindEligibleProfessionals_LoadsWholeDate(t *testing.T) {
	d, roster, appts := clinicDay()
	svc := newTestService(Repositories{Roster: roster, Appointments: appts})

	res, err := svc.FindEligibleProfessionals(context.Background(), EligibleInput{
		Date:       tuesday,
		Start:      "10:15",
		ServiceID:  quiropodia.ID,
		LocationID: &centro,
	})
	if err != nil {
		t.Fatalf("FindEligibleProfessionals error: %v", err)
	}
	if len(res.Professionals) != 1 || res.Professionals[0].ID != d.beto.ID {
		t.Fatalf("eligible = %v, want only beto", res.Professionals)
	}
	if len(res.Decisions) != 2 || res.Decisions[0].Reason != availability.ReasonConflict {
		t.Fatalf("decisions = %+v, want ana rejected for a conflict", res.Decisions)
	}

	if len(d.filters) != 1 {
		t.Fatalf("ListAppointments calls = %d, want 1", len(d.filters))
	}
	f := d.filters[0]
	if f.LocationID != nil || f.ProfessionalID != nil {
		t.Fatalf("filter = %+v, want every location and professional", f)
	}
	if f.Date == nil || !f.Date.Equal(time.Date(2024, 7, 9, 0, 0, 0, 0, cot)) {
		t.Fatalf("filter date = %v, want clinic midnight", f.Date)
	}
	if !reflect.DeepEqual(f.Statuses, domain.CommittedStatuses) {
		t.Fatalf("filter statuses = %v, want committed", f.Statuses)
	}
}

func TestFindEligibleProfessionals_UnknownService(t *testing.T) {
	_, roster, appts := clinicDay()
	svc := newTestService(Repositories{Roster: roster, Appointments: appts})

	_, err := svc.FindEligibleProfessionals(context.Background(), EligibleInput{Date: tuesday, Start: "10:00", ServiceID: uuid.New()})
	var sErr *domain.InvalidServiceError
	if !errors.As(err, &sErr) {
		t.Fatalf("error = %v, want *InvalidServiceError", err)
	}
}

func TestDayTimeline(t *testing.T) {
	d, roster, appts := clinicDay()
	svc := newTestService(Repositories{Roster: roster, Appointments: appts})

	got, err := svc.DayTimeline(context.Background(), norte, tuesday)
	if err != nil {
		t.Fatalf("DayTimeline error: %v", err)
	}
	if len(got.Columns) != 1 || got.Columns[0].Professional.ID != d.ana.ID || !got.Columns[0].IsExternal {
		t.Fatalf("columns = %+v, want ana as an external column", got.Columns)
	}
	if len(got.Columns[0].Blocks) != 1 || got.Columns[0].Blocks[0].Top != 240 {
		t.Fatalf("blocks = %+v, want one block at top 240", got.Columns[0].Blocks)
	}
}

func TestReassign_CommitsThroughRepository(t *testing.T) {
	d, roster, appts := clinicDay()
	appts.professionalFn = func(ctx context.Context, id, newProfessionalID uuid.UUID, targetServiceID *uuid.UUID, expectedVersion int) (domain.Appointment, error) {
		if expectedVersion != d.booked.Version {
			t.Fatalf("expected version = %d, want %d", expectedVersion, d.booked.Version)
		}
		out := d.booked
		out.ProfessionalID = newProfessionalID
		out.Version++
		return out, nil
	}
	svc := newTestService(Repositories{Roster: roster, Appointments: appts})

	got, err := svc.Reassign(context.Background(), ReassignInput{AppointmentID: d.booked.ID, ToProfessionalID: d.beto.ID})
	if err != nil {
		t.Fatalf("Reassign error: %v", err)
	}
	if got.ProfessionalID != d.beto.ID || got.Version != 3 {
		t.Fatalf("got %s v%d, want beto v3", got.ProfessionalID, got.Version)
	}
	if len(d.filters) != 1 || !d.filters[0].Date.Equal(time.Date(2024, 7, 9, 0, 0, 0, 0, cot)) {
		t.Fatalf("snapshot filters = %+v, want the appointment's clinic date", d.filters)
	}

	_, err = svc.Reassign(context.Background(), ReassignInput{AppointmentID: uuid.New(), ToProfessionalID: d.beto.ID})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("unknown appointment error = %v, want %v", err, store.ErrNotFound)
	}
}

func TestTimeShift_Minutes(t *testing.T) {
	d, roster, appts := clinicDay()
	var gotStart time.Time
	appts.timeFn = func(ctx context.Context, id uuid.UUID, newStart time.Time, expectedVersion int) (domain.Appointment, error) {
		gotStart = newStart
		out := d.booked
		out.StartTime = newStart
		return out, nil
	}
	svc := newTestService(Repositories{Roster: roster, Appointments: appts})

	minutes := 30.0
	if _, err := svc.TimeShift(context.Background(), TimeShiftInput{AppointmentID: d.booked.ID, DeltaMinutes: &minutes}); err != nil {
		t.Fatalf("TimeShift error: %v", err)
	}
	if !gotStart.Equal(atCOT("10:30")) {
		t.Fatalf("new start = %v, want 10:30", gotStart)
	}
}

func TestTimeShift_StoredInUTC(t *testing.T) {
	d, roster, appts := clinicDay()
	// 15:00 COT comes back from the database as 20:00 UTC.
	d.booked.StartTime = atCOT("15:00").UTC()
	var gotStart time.Time
	appts.timeFn = func(ctx context.Context, id uuid.UUID, newStart time.Time, expectedVersion int) (domain.Appointment, error) {
		gotStart = newStart
		out := d.booked
		out.StartTime = newStart
		return out, nil
	}
	svc := newTestService(Repositories{Roster: roster, Appointments: appts})

	minutes := 30.0
	if _, err := svc.TimeShift(context.Background(), TimeShiftInput{AppointmentID: d.booked.ID, DeltaMinutes: &minutes}); err != nil {
		t.Fatalf("TimeShift error: %v", err)
	}
	if !gotStart.Equal(atCOT("15:30")) {
		t.Fatalf("new start = %v, want 15:30 COT", gotStart)
	}
}

func TestDrop_ReassignTopInClinicZone(t *testing.T) {
	d, roster, appts := clinicDay()
	d.booked.StartTime = atCOT("15:00").UTC()
	appts.professionalFn = func(ctx context.Context, id, newProfessionalID uuid.UUID, targetServiceID *uuid.UUID, expectedVersion int) (domain.Appointment, error) {
		out := d.booked
		out.ProfessionalID = newProfessionalID
		out.Version++
		return out, nil
	}
	svc := newTestService(Repositories{Roster: roster, Appointments: appts})

	out, err := svc.Drop(context.Background(), DropInput{
		AppointmentID: d.booked.ID,
		Origin:        timeline.Position{ProfessionalID: d.ana.ID, Top: 840},
		Target:        &timeline.DropTarget{ProfessionalID: d.beto.ID},
	})
	if err != nil {
		t.Fatalf("Drop error: %v", err)
	}
	if out.Reverted || out.Position.ProfessionalID != d.beto.ID || out.Position.Top != 840 {
		t.Fatalf("outcome = %+v, want beto at top 840", out)
	}
}

func TestDrop_InvalidTargetReverts(t *testing.T) {
	d, roster, appts := clinicDay()
	svc := newTestService(Repositories{Roster: roster, Appointments: appts})
	origin := timeline.Position{ProfessionalID: d.ana.ID, Top: 240}

	out, err := svc.Drop(context.Background(), DropInput{AppointmentID: d.booked.ID, Origin: origin})
	if err != nil {
		t.Fatalf("Drop error: %v", err)
	}
	if !out.Reverted || out.Position != origin {
		t.Fatalf("outcome = %+v, want reverted to origin", out)
	}
}

func TestCreateOverrides_Range(t *testing.T) {
	pid := uuid.MustParse("00000000-0000-0000-0000-00000000b001")
	var stored []domain.ScheduleOverride
	svc := newTestService(Repositories{
		Roster: &fakeRoster{
			getFn: func(ctx context.Context, id uuid.UUID) (domain.Professional, error) {
				return professional(id.String(), centro), nil
			},
		},
		Overrides: &fakeOverrides{
			putFn: func(ctx context.Context, overrides []domain.ScheduleOverride) ([]domain.ScheduleOverride, error) {
				stored = overrides
				return overrides, nil
			},
		},
	})

	to := tuesday.AddDate(0, 0, 2)
	got, err := svc.CreateOverrides(context.Background(), OverrideInput{ProfessionalID: pid, From: tuesday, To: &to, Kind: "rest", Note: " vacaciones "})
	if err != nil {
		t.Fatalf("CreateOverrides error: %v", err)
	}
	if len(got) != 3 || len(stored) != 3 {
		t.Fatalf("stored %d overrides, want 3", len(stored))
	}
	for i, o := range stored {
		wantDate := time.Date(2024, 7, 9+i, 0, 0, 0, 0, cot)
		if !o.Date.Equal(wantDate) || o.Note != "vacaciones" || o.ID != domain.OverrideID(pid, wantDate) {
			t.Fatalf("override %d = %+v, want rest on %s", i, o, domain.DateKey(wantDate))
		}
	}
}

func TestCreateOverrides_InvalidSchedule(t *testing.T) {
	svc := newTestService(Repositories{
		Roster: &fakeRoster{
			getFn: func(ctx context.Context, id uuid.UUID) (domain.Professional, error) {
				return domain.Professional{ID: id}, nil
			},
		},
		Overrides: &fakeOverrides{},
	})

	tests := []struct {
		name string
		in   OverrideInput
	}{
		{"transfer without target", OverrideInput{Kind: "transfer", Start: "10:00", End: "14:00"}},
		{"special shift without times", OverrideInput{Kind: "special_shift"}},
		{"special shift off grid", OverrideInput{Kind: "special_shift", Start: "10:15", End: "14:00"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.ProfessionalID = uuid.New()
			tt.in.From = tuesday
			_, err := svc.CreateOverrides(context.Background(), tt.in)
			var sErr *domain.InvalidScheduleError
			if !errors.As(err, &sErr) {
				t.Fatalf("error = %v, want *InvalidScheduleError", err)
			}
		})
	}
}

func TestDeleteOverrideRun(t *testing.T) {
	pid := uuid.MustParse("00000000-0000-0000-0000-00000000b001")
	rest := func(d int, note string) domain.ScheduleOverride {
		date := time.Date(2024, 7, d, 0, 0, 0, 0, time.UTC)
		return domain.ScheduleOverride{ID: domain.OverrideID(pid, date), ProfessionalID: pid, Date: date, Kind: domain.OverrideKindRest, Note: note}
	}
	p := professional(pid.String(), centro)
	p.Overrides = []domain.ScheduleOverride{rest(10, "vacaciones"), rest(11, "vacaciones"), rest(12, "vacaciones"), rest(13, "incapacidad"), rest(15, "vacaciones")}

	var deleted []uuid.UUID
	svc := newTestService(Repositories{
		Roster: &fakeRoster{
			getFn: func(ctx context.Context, id uuid.UUID) (domain.Professional, error) {
				return p, nil
			},
		},
		Overrides: &fakeOverrides{
			deleteFn: func(ctx context.Context, professionalID uuid.UUID, ids []uuid.UUID) error {
				deleted = ids
				return nil
			},
		},
	})

	run, err := svc.DeleteOverrideRun(context.Background(), pid, time.Date(2024, 7, 11, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("DeleteOverrideRun error: %v", err)
	}
	want := []uuid.UUID{p.Overrides[0].ID, p.Overrides[1].ID, p.Overrides[2].ID}
	if len(run) != 3 || !reflect.DeepEqual(deleted, want) {
		t.Fatalf("deleted = %v, want %v", deleted, want)
	}

	if _, err := svc.DeleteOverrideRun(context.Background(), pid, time.Date(2024, 7, 20, 0, 0, 0, 0, time.UTC)); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("no override error = %v, want %v", err, store.ErrNotFound)
	}
}

type fakePlan struct {
	overrides []domain.ScheduleOverride
	err       error
}

func (p fakePlan) Expand(from, to time.Time) ([]domain.ScheduleOverride, error) {
	return p.overrides, p.err
}

func TestMaterializeRotation(t *testing.T) {
	pid := uuid.New()
	sunday := time.Date(2024, 7, 14, 0, 0, 0, 0, time.UTC)
	plan := fakePlan{overrides: []domain.ScheduleOverride{{ID: domain.OverrideID(pid, sunday), ProfessionalID: pid, Date: sunday, Kind: domain.OverrideKindRest}}}

	puts := 0
	svc := newTestService(Repositories{
		Overrides: &fakeOverrides{
			putFn: func(ctx context.Context, overrides []domain.ScheduleOverride) ([]domain.ScheduleOverride, error) {
				puts++
				return overrides, nil
			},
		},
	})
	ctx := context.Background()
	to := sunday.AddDate(0, 1, 0)

	got, err := svc.MaterializeRotation(ctx, plan, sunday, to, true)
	if err != nil || len(got) != 1 || puts != 0 {
		t.Fatalf("dry run = %d overrides, %v, %d writes; want 1 override and no writes", len(got), err, puts)
	}
	if _, err := svc.MaterializeRotation(ctx, plan, sunday, to, false); err != nil || puts != 1 {
		t.Fatalf("materialize err = %v, writes = %d, want one write", err, puts)
	}

	dup := fakePlan{overrides: append(plan.overrides, plan.overrides[0])}
	var sErr *domain.InvalidScheduleError
	if _, err := svc.MaterializeRotation(ctx, dup, sunday, to, false); !errors.As(err, &sErr) {
		t.Fatalf("duplicate error = %v, want *InvalidScheduleError", err)
	}

	var vErr *ValidationError
	if _, err := svc.MaterializeRotation(ctx, fakePlan{err: errors.New("bad rule")}, sunday, to, false); !errors.As(err, &vErr) {
		t.Fatalf("expand error = %v, want *ValidationError", err)
	}
}

func TestReplaceContract(t *testing.T) {
	pid := uuid.New()
	var got domain.Contract
	svc := newTestService(Repositories{
		Roster: &fakeRoster{
			getFn: func(ctx context.Context, id uuid.UUID) (domain.Professional, error) {
				return domain.Professional{ID: id}, nil
			},
		},
		Contracts: &fakeContracts{
			replaceFn: func(ctx context.Context, c domain.Contract) (domain.Contract, error) {
				got = c
				return c, nil
			},
		},
	})

	end := tuesday.AddDate(1, 0, 0)
	if _, err := svc.ReplaceContract(context.Background(), ContractInput{ProfessionalID: pid, StartDate: tuesday, EndDate: &end, Company: "  Podoclinic SAS "}); err != nil {
		t.Fatalf("ReplaceContract error: %v", err)
	}
	if got.ProfessionalID != pid || got.Company == nil || *got.Company != "Podoclinic SAS" {
		t.Fatalf("contract = %+v, want trimmed company", got)
	}
	if got.StartDate == nil || domain.DateKey(*got.StartDate) != "2024-07-09" || got.EndDate == nil || domain.DateKey(*got.EndDate) != "2025-07-09" {
		t.Fatalf("contract dates = %v..%v", got.StartDate, got.EndDate)
	}
}

func TestContractStatusAndPayroll(t *testing.T) {
	date := func(y int, m time.Month, d int) *time.Time {
		t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		return &t
	}
	expiring := professional("00000000-0000-0000-0000-00000000b001", centro)
	expiring.Contract = &domain.Contract{StartDate: date(2024, 1, 1), EndDate: date(2024, 7, 19)}
	ended := professional("00000000-0000-0000-0000-00000000b002", centro)
	ended.Contract = &domain.Contract{StartDate: date(2024, 1, 1), EndDate: date(2024, 7, 5)}
	open := professional("00000000-0000-0000-0000-00000000b003", centro)
	open.Contract = &domain.Contract{StartDate: date(2024, 7, 20)}
	none := professional("00000000-0000-0000-0000-00000000b004", centro)

	roster := []domain.Professional{expiring, ended, open, none}
	svc := newTestService(Repositories{
		Roster: &fakeRoster{
			listFn: func(ctx context.Context, homeLocationID *uuid.UUID) ([]domain.Professional, error) {
				return roster, nil
			},
			getFn: func(ctx context.Context, id uuid.UUID) (domain.Professional, error) {
				for _, p := range roster {
					if p.ID == id {
						return p, nil
					}
				}
				return domain.Professional{}, store.ErrNotFound
			},
		},
	})
	ctx := context.Background()

	status, err := svc.ContractStatus(ctx, expiring.ID, tuesday)
	if err != nil || status != contract.StatusExpiringSoon {
		t.Fatalf("ContractStatus = %q, %v, want %q", status, err, contract.StatusExpiringSoon)
	}

	payroll, err := svc.PayrollRoster(ctx, nil, time.Date(2024, 7, 18, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("PayrollRoster error: %v", err)
	}
	if domain.DateKey(payroll.Period.Start) != "2024-07-16" || domain.DateKey(payroll.Period.End) != "2024-07-31" {
		t.Fatalf("period = %v..%v, want 16..31 July", payroll.Period.Start, payroll.Period.End)
	}
	var ids []uuid.UUID
	for _, p := range payroll.Professionals {
		ids = append(ids, p.ID)
	}
	if !reflect.DeepEqual(ids, []uuid.UUID{expiring.ID, open.ID}) {
		t.Fatalf("payroll = %v, want expiring and open", ids)
	}

	schedulable, err := svc.SchedulableRoster(ctx, nil, tuesday)
	if err != nil {
		t.Fatalf("SchedulableRoster error: %v", err)
	}
	if len(schedulable) != 2 || schedulable[0].ID != expiring.ID || schedulable[1].ID != open.ID {
		t.Fatalf("schedulable = %v, want expiring and open", schedulable)
	}
}
