package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "scheduled"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusNoShow    AppointmentStatus = "no_show"
)

// CommittedStatuses are the statuses that occupy a professional's time.
var CommittedStatuses = []AppointmentStatus{
	AppointmentStatusScheduled,
	AppointmentStatusConfirmed,
	AppointmentStatusCompleted,
}

func (s AppointmentStatus) Committed() bool {
	for _, c := range CommittedStatuses {
		if s == c {
			return true
		}
	}
	return false
}

type Appointment struct {
	bun.BaseModel `bun:"table:appointments"`

	ID             uuid.UUID          `bun:"id,pk,type:uuid" json:"id"`
	LocationID     uuid.UUID          `bun:"location_id,notnull,type:uuid" json:"location_id"`
	PatientID      uuid.UUID          `bun:"patient_id,notnull,type:uuid" json:"patient_id"`
	ProfessionalID uuid.UUID          `bun:"professional_id,notnull,type:uuid" json:"professional_id"`
	ServiceID      uuid.UUID          `bun:"service_id,notnull,type:uuid" json:"service_id"`
	StartTime      time.Time          `bun:"start_time,notnull" json:"start_time"`
	Status         AppointmentStatus  `bun:"status,notnull" json:"status"`
	AddOns         []AppointmentAddOn `bun:"add_ons,type:jsonb,notnull" json:"add_ons"`
	Travel         []TravelLeg        `bun:"travel,type:jsonb,notnull" json:"travel"`
	Version        int                `bun:"version,notnull" json:"version"`
	CreatedAt      time.Time          `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt      time.Time          `bun:"updated_at,notnull" json:"updated_at"`
}

// AppointmentAddOn is an extra service performed within an appointment. A nil
// StartTime chains it after the preceding block; a nil ProfessionalID means the
// appointment's professional performs it.
type AppointmentAddOn struct {
	ServiceID       uuid.UUID  `json:"service_id"`
	DurationMinutes int        `json:"duration_minutes"`
	StartTime       *time.Time `json:"start_time,omitempty"`
	ProfessionalID  *uuid.UUID `json:"professional_id,omitempty"`
}

func (a AppointmentAddOn) Duration() time.Duration {
	return time.Duration(a.DurationMinutes) * time.Minute
}

// TravelLeg is time a professional spends moving between locations for an
// appointment. It carries no patient or service.
type TravelLeg struct {
	ProfessionalID  uuid.UUID `json:"professional_id"`
	StartTime       time.Time `json:"start_time"`
	DurationMinutes int       `json:"duration_minutes"`
	FromLocationID  uuid.UUID `json:"from_location_id"`
	ToLocationID    uuid.UUID `json:"to_location_id"`
}

func (t TravelLeg) Duration() time.Duration {
	return time.Duration(t.DurationMinutes) * time.Minute
}

func (a *Appointment) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if a.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			a.ID = id
		}
		if a.Status == "" {
			a.Status = AppointmentStatusScheduled
		}
		if a.AddOns == nil {
			a.AddOns = []AppointmentAddOn{}
		}
		if a.Travel == nil {
			a.Travel = []TravelLeg{}
		}
		if a.Version == 0 {
			a.Version = 1
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		if a.UpdatedAt.IsZero() {
			a.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		a.UpdatedAt = now
	}
	return nil
}

// AddOnIndex returns the position of the first add-on for serviceID, or -1.
func (a Appointment) AddOnIndex(serviceID uuid.UUID) int {
	for i, ad := range a.AddOns {
		if ad.ServiceID == serviceID {
			return i
		}
	}
	return -1
}
