package grpc

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"podoagenda/backend/internal/availability"
	"podoagenda/backend/internal/contract"
	"podoagenda/backend/internal/domain"
	"podoagenda/backend/internal/rotation"
	"podoagenda/backend/internal/service/scheduling"
	"podoagenda/backend/internal/store"
	"podoagenda/backend/internal/timeline"
)

type SchedulingServer struct {
	svc schedulingService
	log *slog.Logger
}

type schedulingService interface {
	ResolveAvailability(ctx context.Context, professionalID uuid.UUID, date time.Time) (*availability.DailyAvailability, error)
	FindEligibleProfessionals(ctx context.Context, in scheduling.EligibleInput) (scheduling.EligibleResult, error)
	DayTimeline(ctx context.Context, locationID uuid.UUID, date time.Time) (timeline.Day, error)
	Reassign(ctx context.Context, in scheduling.ReassignInput) (domain.Appointment, error)
	TimeShift(ctx context.Context, in scheduling.TimeShiftInput) (domain.Appointment, error)
	CreateOverrides(ctx context.Context, in scheduling.OverrideInput) ([]domain.ScheduleOverride, error)
	ListOverrides(ctx context.Context, professionalID uuid.UUID, from, to time.Time) ([]domain.ScheduleOverride, error)
	DeleteOverrideRun(ctx context.Context, professionalID uuid.UUID, date time.Time) ([]domain.ScheduleOverride, error)
	MaterializeRotation(ctx context.Context, plan scheduling.RotationPlan, from, to time.Time, dryRun bool) ([]domain.ScheduleOverride, error)
	ReplaceContract(ctx context.Context, in scheduling.ContractInput) (domain.Contract, error)
	ContractStatus(ctx context.Context, professionalID uuid.UUID, ref time.Time) (contract.Status, error)
	ContractHistory(ctx context.Context, professionalID uuid.UUID) ([]domain.ContractHistory, error)
	PayrollRoster(ctx context.Context, homeLocationID *uuid.UUID, ref time.Time) (scheduling.PayrollRoster, error)
	SchedulableRoster(ctx context.Context, homeLocationID *uuid.UUID, ref time.Time) ([]domain.Professional, error)
}

func NewSchedulingServer(svc schedulingService, log *slog.Logger) *SchedulingServer {
	if log == nil {
		log = slog.Default()
	}
	return &SchedulingServer{
		svc: svc,
		log: log.With(slog.String("component", "grpc.scheduling")),
	}
}

// toStatus maps service errors onto gRPC codes. Unexpected errors are logged
// and hidden behind codes.Internal.
func toStatus(log *slog.Logger, op string, err error, attrs ...any) error {
	var (
		vErr     *scheduling.ValidationError
		schedErr *domain.InvalidScheduleError
		svcErr   *domain.InvalidServiceError
		winErr   *domain.OutOfWindowError
		confErr  *domain.ConflictError
		staleErr *domain.StaleCommitError
	)
	args := append([]any{slog.Any("err", err)}, attrs...)

	switch {
	case errors.As(err, &vErr), errors.As(err, &schedErr), errors.As(err, &svcErr):
		log.Warn("invalid request", args...)
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.As(err, &staleErr):
		log.Info(op+" stale", args...)
		return status.Error(codes.Aborted, "The appointment changed while you were editing it. Reload and try again.")
	case errors.As(err, &confErr):
		log.Info(op+" conflict", args...)
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.As(err, &winErr):
		log.Info(op+" out of window", args...)
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, timeline.ErrReassignNotAllowed), errors.Is(err, timeline.ErrNothingToCommit), errors.Is(err, timeline.ErrInvalidTransition):
		log.Info(op+" rejected", args...)
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, store.ErrNotFound):
		log.Info(op+" not found", args...)
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, store.ErrConflict):
		log.Info(op+" conflict", args...)
		return status.Error(codes.FailedPrecondition, "conflicting write")
	}
	log.Error(op+" failed", args...)
	return status.Error(codes.Internal, "internal error")
}

func parseID(field, value string, required bool) (uuid.UUID, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		if required {
			return uuid.Nil, status.Error(codes.InvalidArgument, field+" is required")
		}
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, status.Error(codes.InvalidArgument, field+" must be a UUID")
	}
	return id, nil
}

func parseOptionalID(field, value string) (*uuid.UUID, error) {
	id, err := parseID(field, value, false)
	if err != nil || id == uuid.Nil {
		return nil, err
	}
	return &id, nil
}

func parseDate(field, value string) (time.Time, error) {
	d, err := scheduling.ParseDate(field, value)
	if err != nil {
		return time.Time{}, status.Error(codes.InvalidArgument, err.Error())
	}
	return d, nil
}

func parseOptionalDate(field, value string) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	d, err := parseDate(field, value)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func nilRequest(log *slog.Logger) error {
	log.Warn("invalid request", slog.String("reason", "nil_request"))
	return status.Error(codes.InvalidArgument, "request is required")
}

func (s *SchedulingServer) ResolveAvailability(ctx context.Context, req *ResolveAvailabilityRequest) (*ResolveAvailabilityResponse, error) {
	log := s.log.With(slog.String("rpc", "ResolveAvailability"))
	if req == nil {
		return nil, nilRequest(log)
	}
	pid, err := parseID("professional_id", req.ProfessionalId, true)
	if err != nil {
		return nil, err
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		return nil, err
	}

	avail, err := s.svc.ResolveAvailability(ctx, pid, date)
	if err != nil {
		return nil, toStatus(log, "availability resolve", err, slog.String("professional_id", pid.String()))
	}
	return &ResolveAvailabilityResponse{Working: avail != nil, Availability: toWireAvailability(avail)}, nil
}

func (s *SchedulingServer) FindEligibleProfessionals(ctx context.Context, req *FindEligibleProfessionalsRequest) (*FindEligibleProfessionalsResponse, error) {
	log := s.log.With(slog.String("rpc", "FindEligibleProfessionals"))
	if req == nil {
		return nil, nilRequest(log)
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		return nil, err
	}
	serviceID, err := parseID("service_id", req.ServiceId, true)
	if err != nil {
		return nil, err
	}
	locationID, err := parseOptionalID("location_id", req.LocationId)
	if err != nil {
		return nil, err
	}

	res, err := s.svc.FindEligibleProfessionals(ctx, scheduling.EligibleInput{
		Date:       date,
		Start:      req.Start,
		ServiceID:  serviceID,
		LocationID: locationID,
	})
	if err != nil {
		return nil, toStatus(log, "eligibility", err, slog.String("service_id", serviceID.String()))
	}

	log.Debug("eligible professionals found",
		slog.String("date", req.Date),
		slog.String("start", req.Start),
		slog.Int("count", len(res.Professionals)),
	)
	return &FindEligibleProfessionalsResponse{
		Professionals: toWireProfessionals(res.Professionals),
		Decisions:     toWireDecisions(res.Decisions),
	}, nil
}

func (s *SchedulingServer) GetDayTimeline(ctx context.Context, req *GetDayTimelineRequest) (*GetDayTimelineResponse, error) {
	log := s.log.With(slog.String("rpc", "GetDayTimeline"))
	if req == nil {
		return nil, nilRequest(log)
	}
	locationID, err := parseID("location_id", req.LocationId, true)
	if err != nil {
		return nil, err
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		return nil, err
	}

	day, err := s.svc.DayTimeline(ctx, locationID, date)
	if err != nil {
		return nil, toStatus(log, "timeline", err, slog.String("location_id", locationID.String()))
	}
	return toWireDay(day), nil
}

func (s *SchedulingServer) ReassignAppointment(ctx context.Context, req *ReassignAppointmentRequest) (*AppointmentResponse, error) {
	log := s.log.With(slog.String("rpc", "ReassignAppointment"))
	if req == nil {
		return nil, nilRequest(log)
	}
	apptID, err := parseID("appointment_id", req.AppointmentId, true)
	if err != nil {
		return nil, err
	}
	pid, err := parseID("professional_id", req.ProfessionalId, true)
	if err != nil {
		return nil, err
	}
	target, err := parseOptionalID("target_service_id", req.TargetServiceId)
	if err != nil {
		return nil, err
	}

	appt, err := s.svc.Reassign(ctx, scheduling.ReassignInput{AppointmentID: apptID, ToProfessionalID: pid, TargetServiceID: target})
	if err != nil {
		return nil, toStatus(log, "appointment reassign", err,
			slog.String("appointment_id", apptID.String()),
			slog.String("professional_id", pid.String()),
		)
	}
	return &AppointmentResponse{Appointment: toWireAppointment(appt)}, nil
}

func (s *SchedulingServer) ShiftAppointment(ctx context.Context, req *ShiftAppointmentRequest) (*AppointmentResponse, error) {
	log := s.log.With(slog.String("rpc", "ShiftAppointment"))
	if req == nil {
		return nil, nilRequest(log)
	}
	apptID, err := parseID("appointment_id", req.AppointmentId, true)
	if err != nil {
		return nil, err
	}

	minutes := req.DeltaMinutes
	appt, err := s.svc.TimeShift(ctx, scheduling.TimeShiftInput{AppointmentID: apptID, DeltaMinutes: &minutes})
	if err != nil {
		return nil, toStatus(log, "appointment shift", err, slog.String("appointment_id", apptID.String()))
	}
	return &AppointmentResponse{Appointment: toWireAppointment(appt)}, nil
}

func (s *SchedulingServer) CreateOverrides(ctx context.Context, req *CreateOverridesRequest) (*OverridesResponse, error) {
	log := s.log.With(slog.String("rpc", "CreateOverrides"))
	if req == nil {
		return nil, nilRequest(log)
	}
	pid, err := parseID("professional_id", req.ProfessionalId, true)
	if err != nil {
		return nil, err
	}
	from, err := parseDate("from", req.From)
	if err != nil {
		return nil, err
	}
	to, err := parseOptionalDate("to", req.To)
	if err != nil {
		return nil, err
	}
	target, err := parseOptionalID("target_location_id", req.TargetLocationId)
	if err != nil {
		return nil, err
	}

	out, err := s.svc.CreateOverrides(ctx, scheduling.OverrideInput{
		ProfessionalID:   pid,
		From:             from,
		To:               to,
		Kind:             req.Kind,
		Start:            req.Start,
		End:              req.End,
		TargetLocationID: target,
		Note:             req.Note,
	})
	if err != nil {
		return nil, toStatus(log, "overrides create", err, slog.String("professional_id", pid.String()))
	}

	log.Info("overrides created",
		slog.String("professional_id", pid.String()),
		slog.String("kind", req.Kind),
		slog.Int("count", len(out)),
	)
	return &OverridesResponse{Overrides: toWireOverrides(out)}, nil
}

func (s *SchedulingServer) ListOverrides(ctx context.Context, req *ListOverridesRequest) (*OverridesResponse, error) {
	log := s.log.With(slog.String("rpc", "ListOverrides"))
	if req == nil {
		return nil, nilRequest(log)
	}
	pid, err := parseID("professional_id", req.ProfessionalId, true)
	if err != nil {
		return nil, err
	}
	from, err := parseDate("from", req.From)
	if err != nil {
		return nil, err
	}
	to, err := parseDate("to", req.To)
	if err != nil {
		return nil, err
	}

	out, err := s.svc.ListOverrides(ctx, pid, from, to)
	if err != nil {
		return nil, toStatus(log, "overrides list", err, slog.String("professional_id", pid.String()))
	}
	return &OverridesResponse{Overrides: toWireOverrides(out)}, nil
}

func (s *SchedulingServer) DeleteOverrideRun(ctx context.Context, req *DeleteOverrideRunRequest) (*OverridesResponse, error) {
	log := s.log.With(slog.String("rpc", "DeleteOverrideRun"))
	if req == nil {
		return nil, nilRequest(log)
	}
	pid, err := parseID("professional_id", req.ProfessionalId, true)
	if err != nil {
		return nil, err
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		return nil, err
	}

	out, err := s.svc.DeleteOverrideRun(ctx, pid, date)
	if err != nil {
		return nil, toStatus(log, "overrides delete", err, slog.String("professional_id", pid.String()), slog.String("date", req.Date))
	}
	return &OverridesResponse{Overrides: toWireOverrides(out)}, nil
}

func (s *SchedulingServer) MaterializeRotation(ctx context.Context, req *MaterializeRotationRequest) (*OverridesResponse, error) {
	log := s.log.With(slog.String("rpc", "MaterializeRotation"))
	if req == nil {
		return nil, nilRequest(log)
	}
	if strings.TrimSpace(req.PlanYaml) == "" {
		return nil, status.Error(codes.InvalidArgument, "plan_yaml is required")
	}
	plan, err := rotation.ParsePlan([]byte(req.PlanYaml))
	if err != nil {
		log.Warn("invalid request", slog.Any("err", err))
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	from, err := parseDate("from", req.From)
	if err != nil {
		return nil, err
	}
	to, err := parseDate("to", req.To)
	if err != nil {
		return nil, err
	}

	out, err := s.svc.MaterializeRotation(ctx, plan, from, to, req.DryRun)
	if err != nil {
		return nil, toStatus(log, "rotation materialize", err)
	}
	return &OverridesResponse{Overrides: toWireOverrides(out)}, nil
}

func (s *SchedulingServer) ReplaceContract(ctx context.Context, req *ReplaceContractRequest) (*ContractResponse, error) {
	log := s.log.With(slog.String("rpc", "ReplaceContract"))
	if req == nil {
		return nil, nilRequest(log)
	}
	pid, err := parseID("professional_id", req.ProfessionalId, true)
	if err != nil {
		return nil, err
	}
	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := parseOptionalDate("end_date", req.EndDate)
	if err != nil {
		return nil, err
	}

	c, err := s.svc.ReplaceContract(ctx, scheduling.ContractInput{
		ProfessionalID: pid,
		StartDate:      start,
		EndDate:        end,
		Company:        req.Company,
		Notes:          req.Notes,
	})
	if err != nil {
		return nil, toStatus(log, "contract replace", err, slog.String("professional_id", pid.String()))
	}

	log.Info("contract replaced", slog.String("professional_id", pid.String()), slog.String("contract_id", c.ID.String()))
	return &ContractResponse{Contract: toWireContract(c)}, nil
}

func (s *SchedulingServer) GetContractStatus(ctx context.Context, req *ProfessionalRequest) (*ContractStatusResponse, error) {
	log := s.log.With(slog.String("rpc", "GetContractStatus"))
	if req == nil {
		return nil, nilRequest(log)
	}
	pid, err := parseID("professional_id", req.ProfessionalId, true)
	if err != nil {
		return nil, err
	}
	ref, err := parseDate("date", req.Date)
	if err != nil {
		return nil, err
	}

	st, err := s.svc.ContractStatus(ctx, pid, ref)
	if err != nil {
		return nil, toStatus(log, "contract status", err, slog.String("professional_id", pid.String()))
	}
	return toWireStatus(st), nil
}

func (s *SchedulingServer) ListContractHistory(ctx context.Context, req *ProfessionalRequest) (*ContractHistoryResponse, error) {
	log := s.log.With(slog.String("rpc", "ListContractHistory"))
	if req == nil {
		return nil, nilRequest(log)
	}
	pid, err := parseID("professional_id", req.ProfessionalId, true)
	if err != nil {
		return nil, err
	}

	hist, err := s.svc.ContractHistory(ctx, pid)
	if err != nil {
		return nil, toStatus(log, "contract history", err, slog.String("professional_id", pid.String()))
	}
	return &ContractHistoryResponse{Contracts: toWireHistory(hist)}, nil
}

func (s *SchedulingServer) GetPayrollRoster(ctx context.Context, req *RosterRequest) (*RosterResponse, error) {
	log := s.log.With(slog.String("rpc", "GetPayrollRoster"))
	if req == nil {
		return nil, nilRequest(log)
	}
	home, err := parseOptionalID("home_location_id", req.HomeLocationId)
	if err != nil {
		return nil, err
	}
	ref, err := parseDate("date", req.Date)
	if err != nil {
		return nil, err
	}

	roster, err := s.svc.PayrollRoster(ctx, home, ref)
	if err != nil {
		return nil, toStatus(log, "payroll roster", err)
	}
	return &RosterResponse{
		PeriodStart:   domain.DateKey(roster.Period.Start),
		PeriodEnd:     domain.DateKey(roster.Period.End),
		Professionals: toWireProfessionals(roster.Professionals),
	}, nil
}

func (s *SchedulingServer) ListSchedulableRoster(ctx context.Context, req *RosterRequest) (*RosterResponse, error) {
	log := s.log.With(slog.String("rpc", "ListSchedulableRoster"))
	if req == nil {
		return nil, nilRequest(log)
	}
	home, err := parseOptionalID("home_location_id", req.HomeLocationId)
	if err != nil {
		return nil, err
	}
	ref, err := parseDate("date", req.Date)
	if err != nil {
		return nil, err
	}

	roster, err := s.svc.SchedulableRoster(ctx, home, ref)
	if err != nil {
		return nil, toStatus(log, "schedulable roster", err)
	}
	return &RosterResponse{Professionals: toWireProfessionals(roster)}, nil
}
