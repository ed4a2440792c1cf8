package grpc

import (
	"google.golang.org/protobuf/types/known/timestamppb"

	"podoagenda/backend/internal/availability"
	"podoagenda/backend/internal/contract"
	"podoagenda/backend/internal/domain"
	"podoagenda/backend/internal/timeline"
)

// Calendar dates travel as "2006-01-02" strings and times of day as "15:04".
// Instants use timestamppb.

type Professional struct {
	Id             string `json:"id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	HomeLocationId string `json:"home_location_id"`
	IsManager      bool   `json:"is_manager,omitempty"`
}

type Availability struct {
	ProfessionalId string `json:"professional_id"`
	Date           string `json:"date"`
	Start          string `json:"start"`
	End            string `json:"end"`
	LocationId     string `json:"location_id"`
	IsExternal     bool   `json:"is_external,omitempty"`
	Source         string `json:"source"`
}

type AddOn struct {
	ServiceId       string                 `json:"service_id"`
	DurationMinutes int32                  `json:"duration_minutes"`
	StartTime       *timestamppb.Timestamp `json:"start_time,omitempty"`
	ProfessionalId  string                 `json:"professional_id,omitempty"`
}

type Appointment struct {
	Id             string                 `json:"id"`
	LocationId     string                 `json:"location_id"`
	PatientId      string                 `json:"patient_id"`
	ProfessionalId string                 `json:"professional_id"`
	ServiceId      string                 `json:"service_id"`
	StartTime      *timestamppb.Timestamp `json:"start_time"`
	Status         string                 `json:"status"`
	AddOns         []*AddOn               `json:"add_ons,omitempty"`
	Version        int32                  `json:"version"`
	UpdatedAt      *timestamppb.Timestamp `json:"updated_at,omitempty"`
}

type Override struct {
	Id               string `json:"id"`
	ProfessionalId   string `json:"professional_id"`
	Date             string `json:"date"`
	Kind             string `json:"kind"`
	Start            string `json:"start,omitempty"`
	End              string `json:"end,omitempty"`
	TargetLocationId string `json:"target_location_id,omitempty"`
	Note             string `json:"note,omitempty"`
}

type Contract struct {
	Id             string                 `json:"id,omitempty"`
	ProfessionalId string                 `json:"professional_id"`
	StartDate      string                 `json:"start_date,omitempty"`
	EndDate        string                 `json:"end_date,omitempty"`
	Company        string                 `json:"company,omitempty"`
	Notes          string                 `json:"notes,omitempty"`
	ArchivedAt     *timestamppb.Timestamp `json:"archived_at,omitempty"`
}

type Decision struct {
	Professional *Professional `json:"professional"`
	Reason       string        `json:"reason"`
	Conflicts    []string      `json:"conflicts,omitempty"`
	Detail       string        `json:"detail,omitempty"`
}

type Block struct {
	Id            string                 `json:"id"`
	AppointmentId string                 `json:"appointment_id"`
	ServiceId     string                 `json:"service_id,omitempty"`
	Kind          string                 `json:"kind"`
	LocationId    string                 `json:"location_id"`
	PatientId     string                 `json:"patient_id,omitempty"`
	Status        string                 `json:"status"`
	Start         *timestamppb.Timestamp `json:"start"`
	End           *timestamppb.Timestamp `json:"end"`
	Top           float64                `json:"top"`
	Height        float64                `json:"height"`
	Overlap       bool                   `json:"overlap,omitempty"`
}

type Column struct {
	Professional *Professional `json:"professional"`
	Availability *Availability `json:"availability,omitempty"`
	IsExternal   bool          `json:"is_external,omitempty"`
	HasOverlap   bool          `json:"has_overlap,omitempty"`
	Blocks       []*Block      `json:"blocks"`
}

type ResolveAvailabilityRequest struct {
	ProfessionalId string `json:"professional_id"`
	Date           string `json:"date"`
}

type ResolveAvailabilityResponse struct {
	Working      bool          `json:"working"`
	Availability *Availability `json:"availability,omitempty"`
}

type FindEligibleProfessionalsRequest struct {
	Date       string `json:"date"`
	Start      string `json:"start"`
	ServiceId  string `json:"service_id"`
	LocationId string `json:"location_id,omitempty"`
}

type FindEligibleProfessionalsResponse struct {
	Professionals []*Professional `json:"professionals"`
	Decisions     []*Decision     `json:"decisions"`
}

type GetDayTimelineRequest struct {
	LocationId string `json:"location_id"`
	Date       string `json:"date"`
}

type GetDayTimelineResponse struct {
	Date       string    `json:"date"`
	LocationId string    `json:"location_id"`
	DayStart   string    `json:"day_start"`
	Scale      float64   `json:"scale"`
	Columns    []*Column `json:"columns"`
}

type ReassignAppointmentRequest struct {
	AppointmentId   string `json:"appointment_id"`
	ProfessionalId  string `json:"professional_id"`
	TargetServiceId string `json:"target_service_id,omitempty"`
}

type ShiftAppointmentRequest struct {
	AppointmentId string  `json:"appointment_id"`
	DeltaMinutes  float64 `json:"delta_minutes"`
}

type AppointmentResponse struct {
	Appointment *Appointment `json:"appointment"`
}

type CreateOverridesRequest struct {
	ProfessionalId   string `json:"professional_id"`
	From             string `json:"from"`
	To               string `json:"to,omitempty"`
	Kind             string `json:"kind"`
	Start            string `json:"start,omitempty"`
	End              string `json:"end,omitempty"`
	TargetLocationId string `json:"target_location_id,omitempty"`
	Note             string `json:"note,omitempty"`
}

type ListOverridesRequest struct {
	ProfessionalId string `json:"professional_id"`
	From           string `json:"from"`
	To             string `json:"to"`
}

type DeleteOverrideRunRequest struct {
	ProfessionalId string `json:"professional_id"`
	Date           string `json:"date"`
}

type MaterializeRotationRequest struct {
	PlanYaml string `json:"plan_yaml"`
	From     string `json:"from"`
	To       string `json:"to"`
	DryRun   bool   `json:"dry_run,omitempty"`
}

type OverridesResponse struct {
	Overrides []*Override `json:"overrides"`
}

type ReplaceContractRequest struct {
	ProfessionalId string `json:"professional_id"`
	StartDate      string `json:"start_date"`
	EndDate        string `json:"end_date,omitempty"`
	Company        string `json:"company,omitempty"`
	Notes          string `json:"notes,omitempty"`
}

type ContractResponse struct {
	Contract *Contract `json:"contract"`
}

type ProfessionalRequest struct {
	ProfessionalId string `json:"professional_id"`
	Date           string `json:"date,omitempty"`
}

type ContractStatusResponse struct {
	Status      string `json:"status"`
	Schedulable bool   `json:"schedulable"`
}

type ContractHistoryResponse struct {
	Contracts []*Contract `json:"contracts"`
}

type RosterRequest struct {
	HomeLocationId string `json:"home_location_id,omitempty"`
	Date           string `json:"date"`
}

type RosterResponse struct {
	PeriodStart   string          `json:"period_start,omitempty"`
	PeriodEnd     string          `json:"period_end,omitempty"`
	Professionals []*Professional `json:"professionals"`
}

func toWireProfessional(p domain.Professional) *Professional {
	return &Professional{
		Id:             p.ID.String(),
		FirstName:      p.FirstName,
		LastName:       p.LastName,
		HomeLocationId: p.HomeLocationID.String(),
		IsManager:      p.IsManager,
	}
}

func toWireProfessionals(in []domain.Professional) []*Professional {
	out := make([]*Professional, 0, len(in))
	for _, p := range in {
		out = append(out, toWireProfessional(p))
	}
	return out
}

func toWireAvailability(a *availability.DailyAvailability) *Availability {
	if a == nil {
		return nil
	}
	return &Availability{
		ProfessionalId: a.ProfessionalID.String(),
		Date:           domain.DateKey(a.Date),
		Start:          a.Start.String(),
		End:            a.End.String(),
		LocationId:     a.LocationID.String(),
		IsExternal:     a.IsExternal,
		Source:         string(a.Source),
	}
}

func toWireAppointment(a domain.Appointment) *Appointment {
	out := &Appointment{
		Id:             a.ID.String(),
		LocationId:     a.LocationID.String(),
		PatientId:      a.PatientID.String(),
		ProfessionalId: a.ProfessionalID.String(),
		ServiceId:      a.ServiceID.String(),
		StartTime:      timestamppb.New(a.StartTime),
		Status:         string(a.Status),
		Version:        int32(a.Version),
	}
	if !a.UpdatedAt.IsZero() {
		out.UpdatedAt = timestamppb.New(a.UpdatedAt)
	}
	for _, ad := range a.AddOns {
		w := &AddOn{ServiceId: ad.ServiceID.String(), DurationMinutes: int32(ad.DurationMinutes)}
		if ad.StartTime != nil {
			w.StartTime = timestamppb.New(*ad.StartTime)
		}
		if ad.ProfessionalID != nil {
			w.ProfessionalId = ad.ProfessionalID.String()
		}
		out.AddOns = append(out.AddOns, w)
	}
	return out
}

func toWireOverrides(in []domain.ScheduleOverride) []*Override {
	out := make([]*Override, 0, len(in))
	for _, o := range in {
		w := &Override{
			Id:             o.ID.String(),
			ProfessionalId: o.ProfessionalID.String(),
			Date:           domain.DateKey(o.Date),
			Kind:           string(o.Kind),
			Note:           o.Note,
		}
		if o.StartTime != nil {
			w.Start = o.StartTime.String()
		}
		if o.EndTime != nil {
			w.End = o.EndTime.String()
		}
		if o.TargetLocationID != nil {
			w.TargetLocationId = o.TargetLocationID.String()
		}
		out = append(out, w)
	}
	return out
}

func toWireContract(c domain.Contract) *Contract {
	out := &Contract{Id: c.ID.String(), ProfessionalId: c.ProfessionalID.String(), Notes: c.Notes}
	if c.StartDate != nil {
		out.StartDate = domain.DateKey(*c.StartDate)
	}
	if c.EndDate != nil {
		out.EndDate = domain.DateKey(*c.EndDate)
	}
	if c.Company != nil {
		out.Company = *c.Company
	}
	return out
}

func toWireHistory(in []domain.ContractHistory) []*Contract {
	out := make([]*Contract, 0, len(in))
	for _, h := range in {
		w := &Contract{Id: h.ID.String(), ProfessionalId: h.ProfessionalID.String(), Notes: h.Notes, ArchivedAt: timestamppb.New(h.ArchivedAt)}
		if h.StartDate != nil {
			w.StartDate = domain.DateKey(*h.StartDate)
		}
		if h.EndDate != nil {
			w.EndDate = domain.DateKey(*h.EndDate)
		}
		if h.Company != nil {
			w.Company = *h.Company
		}
		out = append(out, w)
	}
	return out
}

func toWireDecisions(in []availability.Decision) []*Decision {
	out := make([]*Decision, 0, len(in))
	for _, d := range in {
		w := &Decision{Professional: toWireProfessional(d.Professional), Reason: string(d.Reason), Conflicts: d.Conflicts}
		if d.OutOfWindow != nil {
			w.Detail = d.OutOfWindow.Error()
		}
		out = append(out, w)
	}
	return out
}

func toWireDay(d timeline.Day) *GetDayTimelineResponse {
	out := &GetDayTimelineResponse{
		Date:       domain.DateKey(d.Date),
		LocationId: d.LocationID.String(),
		DayStart:   d.DayStart.String(),
		Scale:      d.Scale,
		Columns:    make([]*Column, 0, len(d.Columns)),
	}
	for _, c := range d.Columns {
		col := &Column{
			Professional: toWireProfessional(c.Professional),
			Availability: toWireAvailability(c.Availability),
			IsExternal:   c.IsExternal,
			HasOverlap:   c.HasOverlap(),
			Blocks:       make([]*Block, 0, len(c.Blocks)),
		}
		for _, b := range c.Blocks {
			col.Blocks = append(col.Blocks, &Block{
				Id:            b.ID,
				AppointmentId: b.AppointmentID.String(),
				ServiceId:     b.ServiceID.String(),
				Kind:          string(b.Kind),
				LocationId:    b.LocationID.String(),
				PatientId:     b.PatientID.String(),
				Status:        string(b.Status),
				Start:         timestamppb.New(b.Start),
				End:           timestamppb.New(b.End),
				Top:           b.Top,
				Height:        b.Height,
				Overlap:       b.Overlap,
			})
		}
		out.Columns = append(out.Columns, col)
	}
	return out
}

func toWireStatus(s contract.Status) *ContractStatusResponse {
	return &ContractStatusResponse{Status: string(s), Schedulable: contract.Schedulable(s)}
}
