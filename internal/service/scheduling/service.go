package scheduling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"podoagenda/backend/internal/availability"
	"podoagenda/backend/internal/contract"
	"podoagenda/backend/internal/domain"
	"podoagenda/backend/internal/store"
	"podoagenda/backend/internal/timeline"
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

const defaultMaxRangeDays = 366

// Options carries the clinic-wide scheduling settings.
type Options struct {
	// Location is the clinic time zone. Calendar dates handed to the service
	// are read in their own location and re-anchored here.
	Location          *time.Location
	Grid              time.Duration
	SnapGrid          time.Duration
	Scale             float64
	DayStart          domain.TimeOfDay
	Mode              timeline.Mode
	ContractLookahead time.Duration
	MaxRangeDays      int
}

type Repositories struct {
	Roster       store.RosterRepository
	Appointments store.AppointmentRepository
	Overrides    store.OverrideRepository
	Contracts    store.ContractRepository
}

type Service struct {
	roster       store.RosterRepository
	appointments store.AppointmentRepository
	overrides    store.OverrideRepository
	contracts    store.ContractRepository

	loc          *time.Location
	grid         time.Duration
	maxRangeDays int
	resolver     availability.Resolver
	engine       availability.Engine
	classifier   contract.Classifier
	controller   *timeline.Controller
	validate     *validator.Validate
	log          *slog.Logger
}

func NewService(repos Repositories, opts Options, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	maxDays := opts.MaxRangeDays
	if maxDays <= 0 {
		maxDays = defaultMaxRangeDays
	}

	resolver := availability.NewResolver(opts.Grid)
	validate := validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Service{
		roster:       repos.Roster,
		appointments: repos.Appointments,
		overrides:    repos.Overrides,
		contracts:    repos.Contracts,
		loc:          loc,
		grid:         resolver.Grid,
		maxRangeDays: maxDays,
		resolver:     resolver,
		engine:       availability.NewEngine(resolver),
		classifier:   contract.NewClassifier(opts.ContractLookahead),
		controller:   timeline.NewController(repos.Appointments, opts.Mode, opts.SnapGrid, opts.Scale, opts.DayStart, resolver),
		validate:     validate,
		log:          log.With(slog.String("component", "service.scheduling")),
	}
}

// ParseDate reads a "2006-01-02" calendar date.
func ParseDate(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, validationError(field + " is required")
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, validationError("invalid " + field)
	}
	return t, nil
}

// day re-anchors the calendar date of t at midnight in the clinic zone.
func (s *Service) day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.loc)
}

func (s *Service) check(in any) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		if fe.Tag() == "required" {
			return validationError(fe.Field() + " is required")
		}
		return validationError("invalid " + fe.Field())
	}
	return validationError(err.Error())
}

func (s *Service) ResolveAvailability(ctx context.Context, professionalID uuid.UUID, date time.Time) (*availability.DailyAvailability, error) {
	if professionalID == uuid.Nil {
		return nil, validationError("professional_id is required")
	}
	if date.IsZero() {
		return nil, validationError("date is required")
	}
	p, err := s.roster.GetProfessional(ctx, professionalID)
	if err != nil {
		return nil, err
	}
	return s.resolver.Resolve(p, s.day(date))
}

type EligibleInput struct {
	Date       time.Time  `json:"date" validate:"required"`
	Start      string     `json:"start" validate:"required,datetime=15:04"`
	ServiceID  uuid.UUID  `json:"service_id"`
	LocationID *uuid.UUID `json:"location_id"`
}

type EligibleResult struct {
	Professionals []domain.Professional
	Decisions     []availability.Decision
}

// FindEligibleProfessionals checks every professional against a candidate
// slot. Bookings are loaded for the whole date across all locations before
// anything is evaluated.
func (s *Service) FindEligibleProfessionals(ctx context.Context, in EligibleInput) (EligibleResult, error) {
	if err := s.check(in); err != nil {
		return EligibleResult{}, err
	}
	start, err := domain.ParseTimeOfDay(in.Start)
	if err != nil {
		return EligibleResult{}, validationError("invalid start")
	}

	snap, err := s.Snapshot(ctx, in.Date)
	if err != nil {
		return EligibleResult{}, err
	}
	catalog := snap.Services
	service, err := catalog.Lookup(in.ServiceID)
	if err != nil {
		return EligibleResult{}, err
	}
	blocks, err := availability.BlocksByProfessional(snap.Appointments, catalog)
	if err != nil {
		return EligibleResult{}, err
	}

	decisions, err := s.engine.EvaluateAll(snap.Roster, blocks, availability.SlotQuery{
		Date:       snap.Date,
		Start:      start,
		Service:    &service,
		LocationID: in.LocationID,
	})
	if err != nil {
		return EligibleResult{}, err
	}

	out := EligibleResult{Decisions: decisions}
	for _, d := range decisions {
		if d.Eligible() {
			out.Professionals = append(out.Professionals, d.Professional)
		}
	}
	return out, nil
}

// Snapshot loads everything the timeline needs for date: the full roster,
// every committed appointment of the date at any location, and the catalog.
func (s *Service) Snapshot(ctx context.Context, date time.Time) (timeline.DaySnapshot, error) {
	if date.IsZero() {
		return timeline.DaySnapshot{}, validationError("date is required")
	}
	day := s.day(date)

	roster, err := s.roster.ListProfessionals(ctx, nil)
	if err != nil {
		return timeline.DaySnapshot{}, err
	}
	appts, err := s.appointments.ListAppointments(ctx, store.AppointmentFilter{
		Date:     &day,
		Statuses: domain.CommittedStatuses,
	})
	if err != nil {
		return timeline.DaySnapshot{}, err
	}
	services, err := s.roster.ListServices(ctx)
	if err != nil {
		return timeline.DaySnapshot{}, err
	}

	return timeline.DaySnapshot{
		Date:         day,
		Roster:       roster,
		Appointments: inZone(appts, s.loc),
		Services:     domain.NewServiceCatalog(services),
	}, nil
}

// inZone reads every instant of the appointments in loc so blocks derived
// from them carry clinic wall-clock times.
func inZone(appts []domain.Appointment, loc *time.Location) []domain.Appointment {
	out := make([]domain.Appointment, len(appts))
	for i, a := range appts {
		a.StartTime = a.StartTime.In(loc)
		if len(a.AddOns) > 0 {
			addOns := make([]domain.AppointmentAddOn, len(a.AddOns))
			for j, ao := range a.AddOns {
				if ao.StartTime != nil {
					st := ao.StartTime.In(loc)
					ao.StartTime = &st
				}
				addOns[j] = ao
			}
			a.AddOns = addOns
		}
		if len(a.Travel) > 0 {
			travel := make([]domain.TravelLeg, len(a.Travel))
			for j, leg := range a.Travel {
				leg.StartTime = leg.StartTime.In(loc)
				travel[j] = leg
			}
			a.Travel = travel
		}
		out[i] = a
	}
	return out
}

func (s *Service) DayTimeline(ctx context.Context, locationID uuid.UUID, date time.Time) (timeline.Day, error) {
	if locationID == uuid.Nil {
		return timeline.Day{}, validationError("location_id is required")
	}
	snap, err := s.Snapshot(ctx, date)
	if err != nil {
		return timeline.Day{}, err
	}
	return timeline.Layout(timeline.LayoutInput{
		Date:         snap.Date,
		LocationID:   locationID,
		DayStart:     s.controller.DayStart,
		Scale:        s.controller.Scale,
		Roster:       snap.Roster,
		Appointments: snap.Appointments,
		Services:     snap.Services,
		Resolver:     s.resolver,
	})
}

func (s *Service) snapshotFor(ctx context.Context, appointmentID uuid.UUID) (timeline.DaySnapshot, error) {
	appt, err := s.appointments.GetAppointment(ctx, appointmentID)
	if err != nil {
		return timeline.DaySnapshot{}, err
	}
	return s.Snapshot(ctx, appt.StartTime.In(s.loc))
}

type ReassignInput struct {
	AppointmentID    uuid.UUID
	ToProfessionalID uuid.UUID
	// TargetServiceID selects a single add-on; nil moves the appointment.
	TargetServiceID *uuid.UUID
}

func (s *Service) Reassign(ctx context.Context, in ReassignInput) (domain.Appointment, error) {
	if in.AppointmentID == uuid.Nil {
		return domain.Appointment{}, validationError("appointment_id is required")
	}
	if in.ToProfessionalID == uuid.Nil {
		return domain.Appointment{}, validationError("professional_id is required")
	}
	snap, err := s.snapshotFor(ctx, in.AppointmentID)
	if err != nil {
		return domain.Appointment{}, err
	}

	out, err := s.controller.RequestReassign(ctx, timeline.ReassignRequest{
		AppointmentID:    in.AppointmentID,
		ToProfessionalID: in.ToProfessionalID,
		TargetServiceID:  in.TargetServiceID,
	}, snap)
	if err != nil {
		return domain.Appointment{}, err
	}
	s.log.InfoContext(ctx, "appointment reassigned",
		slog.String("appointment_id", out.ID.String()),
		slog.String("professional_id", in.ToProfessionalID.String()),
		slog.Int("version", out.Version),
	)
	return out, nil
}

// TimeShiftInput moves an appointment along its column. DeltaMinutes, when
// set, takes precedence over DeltaPixels.
type TimeShiftInput struct {
	AppointmentID uuid.UUID
	DeltaPixels   float64
	DeltaMinutes  *float64
}

func (s *Service) TimeShift(ctx context.Context, in TimeShiftInput) (domain.Appointment, error) {
	if in.AppointmentID == uuid.Nil {
		return domain.Appointment{}, validationError("appointment_id is required")
	}
	px := in.DeltaPixels
	if in.DeltaMinutes != nil {
		px = *in.DeltaMinutes * s.controller.Scale
	}
	snap, err := s.snapshotFor(ctx, in.AppointmentID)
	if err != nil {
		return domain.Appointment{}, err
	}

	out, err := s.controller.RequestTimeShift(ctx, timeline.TimeShiftRequest{AppointmentID: in.AppointmentID, DeltaPixels: px}, snap)
	if err != nil {
		return domain.Appointment{}, err
	}
	s.log.InfoContext(ctx, "appointment moved",
		slog.String("appointment_id", out.ID.String()),
		slog.String("start_time", out.StartTime.UTC().Format(time.RFC3339)),
		slog.Int("version", out.Version),
	)
	return out, nil
}

type DropInput struct {
	AppointmentID uuid.UUID
	Origin        timeline.Position
	// Target is nil when the block was released outside any column.
	Target *timeline.DropTarget
}

// Drop runs one drag gesture to completion. The outcome is meaningful even
// when an error is returned: it then carries the reverted position.
func (s *Service) Drop(ctx context.Context, in DropInput) (timeline.Outcome, error) {
	if in.AppointmentID == uuid.Nil {
		return timeline.Outcome{}, validationError("appointment_id is required")
	}
	snap, err := s.snapshotFor(ctx, in.AppointmentID)
	if err != nil {
		return timeline.Outcome{}, err
	}

	session := timeline.NewDragSession(s.controller, snap)
	if err := session.Begin(in.AppointmentID, in.Origin); err != nil {
		return timeline.Outcome{}, err
	}
	if _, err := session.Drop(in.Target); err != nil {
		return timeline.Outcome{}, err
	}
	out, err := session.Settle(ctx)
	if err != nil {
		s.log.WarnContext(ctx, "drop reverted",
			slog.String("appointment_id", in.AppointmentID.String()),
			slog.String("error", err.Error()),
		)
	}
	return out, err
}

type OverrideInput struct {
	ProfessionalID uuid.UUID  `json:"professional_id"`
	From           time.Time  `json:"from" validate:"required"`
	To             *time.Time `json:"to"`
	Kind           string     `json:"kind" validate:"required,oneof=rest special_shift transfer"`
	Start          string     `json:"start" validate:"omitempty,datetime=15:04"`
	End            string     `json:"end" validate:"omitempty,datetime=15:04"`
	// TargetLocationID is required for transfers.
	TargetLocationID *uuid.UUID `json:"target_location_id"`
	Note             string     `json:"note" validate:"max=500"`
}

// CreateOverrides writes one override per day of [From, To]. A nil To writes
// only From. Existing overrides on those dates are replaced.
func (s *Service) CreateOverrides(ctx context.Context, in OverrideInput) ([]domain.ScheduleOverride, error) {
	if in.ProfessionalID == uuid.Nil {
		return nil, validationError("professional_id is required")
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	from := s.day(in.From)
	to := from
	if in.To != nil {
		to = s.day(*in.To)
	}
	if err := s.checkRange(from, to); err != nil {
		return nil, err
	}

	tpl := domain.OverrideTemplate{
		Kind:             domain.OverrideKind(in.Kind),
		TargetLocationID: in.TargetLocationID,
		Note:             strings.TrimSpace(in.Note),
	}
	if in.Start != "" {
		t, err := domain.ParseTimeOfDay(in.Start)
		if err != nil {
			return nil, validationError("invalid start")
		}
		tpl.StartTime = &t
	}
	if in.End != "" {
		t, err := domain.ParseTimeOfDay(in.End)
		if err != nil {
			return nil, validationError("invalid end")
		}
		tpl.EndTime = &t
	}

	if _, err := s.roster.GetProfessional(ctx, in.ProfessionalID); err != nil {
		return nil, err
	}

	overrides := domain.ExpandOverrideRange(in.ProfessionalID, from, to, tpl)
	for _, o := range overrides {
		if err := o.Validate(s.grid); err != nil {
			return nil, err
		}
	}
	return s.overrides.PutOverrides(ctx, overrides)
}

func (s *Service) checkRange(from, to time.Time) error {
	if to.Before(from) {
		return validationError("to must not be before from")
	}
	if domain.DaysBetween(from, to)+1 > s.maxRangeDays {
		return validationError(fmt.Sprintf("range must be within %d days", s.maxRangeDays))
	}
	return nil
}

func (s *Service) ListOverrides(ctx context.Context, professionalID uuid.UUID, from, to time.Time) ([]domain.ScheduleOverride, error) {
	if professionalID == uuid.Nil {
		return nil, validationError("professional_id is required")
	}
	if from.IsZero() || to.IsZero() {
		return nil, validationError("from and to are required")
	}
	start, end := s.day(from), s.day(to)
	if err := s.checkRange(start, end); err != nil {
		return nil, err
	}
	return s.overrides.ListOverrides(ctx, professionalID, start, end)
}

// DeleteOverrideRun removes the override on date together with the adjacent
// days that share its kind and note, and returns what was removed.
func (s *Service) DeleteOverrideRun(ctx context.Context, professionalID uuid.UUID, date time.Time) ([]domain.ScheduleOverride, error) {
	if professionalID == uuid.Nil {
		return nil, validationError("professional_id is required")
	}
	if date.IsZero() {
		return nil, validationError("date is required")
	}
	p, err := s.roster.GetProfessional(ctx, professionalID)
	if err != nil {
		return nil, err
	}

	run := domain.ContiguousRun(p.Overrides, s.day(date))
	if len(run) == 0 {
		return nil, store.ErrNotFound
	}
	ids := make([]uuid.UUID, 0, len(run))
	for _, o := range run {
		ids = append(ids, o.ID)
	}
	if err := s.overrides.DeleteOverrides(ctx, professionalID, ids); err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "overrides deleted",
		slog.String("professional_id", professionalID.String()),
		slog.Int("count", len(run)),
	)
	return run, nil
}

// RotationPlan expands into overrides over a date range.
type RotationPlan interface {
	Expand(from, to time.Time) ([]domain.ScheduleOverride, error)
}

// MaterializeRotation expands plan over [from, to] and stores the result
// unless dryRun is set.
func (s *Service) MaterializeRotation(ctx context.Context, plan RotationPlan, from, to time.Time, dryRun bool) ([]domain.ScheduleOverride, error) {
	if plan == nil {
		return nil, validationError("plan is required")
	}
	if from.IsZero() || to.IsZero() {
		return nil, validationError("from and to are required")
	}
	start, end := s.day(from), s.day(to)
	if err := s.checkRange(start, end); err != nil {
		return nil, err
	}

	overrides, err := plan.Expand(start, end)
	if err != nil {
		return nil, validationError(err.Error())
	}
	for _, o := range overrides {
		if err := o.Validate(s.grid); err != nil {
			return nil, err
		}
	}
	if err := domain.CheckUniqueOverrides(overrides); err != nil {
		return nil, err
	}
	if dryRun || len(overrides) == 0 {
		return overrides, nil
	}

	stored, err := s.overrides.PutOverrides(ctx, overrides)
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "rotation materialized",
		slog.String("from", domain.DateKey(start)),
		slog.String("to", domain.DateKey(end)),
		slog.Int("count", len(stored)),
	)
	return stored, nil
}

type ContractInput struct {
	ProfessionalID uuid.UUID  `json:"professional_id"`
	StartDate      time.Time  `json:"start_date" validate:"required"`
	EndDate        *time.Time `json:"end_date"`
	Company        string     `json:"company" validate:"max=200"`
	Notes          string     `json:"notes" validate:"max=2000"`
}

func (s *Service) ReplaceContract(ctx context.Context, in ContractInput) (domain.Contract, error) {
	if in.ProfessionalID == uuid.Nil {
		return domain.Contract{}, validationError("professional_id is required")
	}
	if err := s.check(in); err != nil {
		return domain.Contract{}, err
	}
	start := s.day(in.StartDate)
	c := domain.Contract{
		ProfessionalID: in.ProfessionalID,
		StartDate:      &start,
		Notes:          strings.TrimSpace(in.Notes),
	}
	if in.EndDate != nil {
		end := s.day(*in.EndDate)
		if end.Before(start) {
			return domain.Contract{}, validationError("end_date must not be before start_date")
		}
		c.EndDate = &end
	}
	if company := strings.TrimSpace(in.Company); company != "" {
		c.Company = &company
	}

	if _, err := s.roster.GetProfessional(ctx, in.ProfessionalID); err != nil {
		return domain.Contract{}, err
	}
	return s.contracts.ReplaceContract(ctx, c)
}

func (s *Service) ContractHistory(ctx context.Context, professionalID uuid.UUID) ([]domain.ContractHistory, error) {
	if professionalID == uuid.Nil {
		return nil, validationError("professional_id is required")
	}
	return s.contracts.ListContractHistory(ctx, professionalID)
}

func (s *Service) ContractStatus(ctx context.Context, professionalID uuid.UUID, ref time.Time) (contract.Status, error) {
	if professionalID == uuid.Nil {
		return "", validationError("professional_id is required")
	}
	if ref.IsZero() {
		return "", validationError("date is required")
	}
	p, err := s.roster.GetProfessional(ctx, professionalID)
	if err != nil {
		return "", err
	}
	return s.classifier.Classify(p.Contract, s.day(ref)), nil
}

// SchedulableRoster lists the non-manager professionals whose contract allows
// them on the rotation roster on ref.
func (s *Service) SchedulableRoster(ctx context.Context, homeLocationID *uuid.UUID, ref time.Time) ([]domain.Professional, error) {
	if ref.IsZero() {
		return nil, validationError("date is required")
	}
	roster, err := s.roster.ListProfessionals(ctx, homeLocationID)
	if err != nil {
		return nil, err
	}
	return s.classifier.FilterSchedulable(roster, s.day(ref)), nil
}

type PayrollRoster struct {
	Period        contract.PayPeriod
	Professionals []domain.Professional
}

// PayrollRoster lists the professionals whose contract overlaps the pay
// period containing ref.
func (s *Service) PayrollRoster(ctx context.Context, homeLocationID *uuid.UUID, ref time.Time) (PayrollRoster, error) {
	if ref.IsZero() {
		return PayrollRoster{}, validationError("date is required")
	}
	roster, err := s.roster.ListProfessionals(ctx, homeLocationID)
	if err != nil {
		return PayrollRoster{}, err
	}

	out := PayrollRoster{Period: contract.PayPeriodOf(s.day(ref))}
	for _, p := range roster {
		if contract.EligibleForPeriod(p.Contract, out.Period) {
			out.Professionals = append(out.Professionals, p)
		}
	}
	return out, nil
}
