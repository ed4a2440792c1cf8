package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Location struct {
	bun.BaseModel `bun:"table:locations"`

	ID   uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Name string    `bun:"name,notnull" json:"name"`
}

type Professional struct {
	bun.BaseModel `bun:"table:professionals,alias:p"`

	ID             uuid.UUID          `bun:"id,pk,type:uuid" json:"id"`
	FirstName      string             `bun:"first_name,notnull" json:"first_name"`
	LastName       string             `bun:"last_name,notnull" json:"last_name"`
	HomeLocationID uuid.UUID          `bun:"home_location_id,notnull,type:uuid" json:"home_location_id"`
	IsManager      bool               `bun:"is_manager,notnull" json:"is_manager"`
	Weekly         WeeklySchedule     `bun:"weekly_schedule,type:jsonb,notnull" json:"weekly_schedule"`
	Overrides      []ScheduleOverride `bun:"rel:has-many,join:id=professional_id" json:"overrides,omitempty"`
	Contract       *Contract          `bun:"rel:has-one,join:id=professional_id" json:"contract,omitempty"`
	CreatedAt      time.Time          `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt      time.Time          `bun:"updated_at,notnull" json:"updated_at"`
}

func (p *Professional) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if p.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			p.ID = id
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		if p.UpdatedAt.IsZero() {
			p.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		p.UpdatedAt = now
	}
	return nil
}

func (p Professional) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// OverridesOn returns every override the professional holds for date.
// More than one is a data error the resolver reports.
func (p Professional) OverridesOn(date time.Time) []ScheduleOverride {
	var out []ScheduleOverride
	for _, o := range p.Overrides {
		if SameDate(o.Date, date) {
			out = append(out, o)
		}
	}
	return out
}

type Service struct {
	bun.BaseModel `bun:"table:services"`

	ID              uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Name            string    `bun:"name,notnull" json:"name"`
	DurationMinutes int       `bun:"duration_minutes,notnull" json:"duration_minutes"`
}

func (s Service) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}

// ServiceCatalog indexes services by id.
type ServiceCatalog map[uuid.UUID]Service

func NewServiceCatalog(services []Service) ServiceCatalog {
	c := make(ServiceCatalog, len(services))
	for _, s := range services {
		c[s.ID] = s
	}
	return c
}

// Lookup resolves id into a service with a positive duration.
func (c ServiceCatalog) Lookup(id uuid.UUID) (Service, error) {
	if id == uuid.Nil {
		return Service{}, &InvalidServiceError{Reason: "service is required"}
	}
	s, ok := c[id]
	if !ok {
		return Service{}, &InvalidServiceError{ServiceID: id, Reason: "unknown service"}
	}
	if s.DurationMinutes <= 0 {
		return Service{}, &InvalidServiceError{ServiceID: id, Reason: "service has no duration"}
	}
	return s, nil
}
