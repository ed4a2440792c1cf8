package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Contract is the current employment contract of a professional. Dates are
// calendar dates; a nil EndDate is open-ended.
type Contract struct {
	bun.BaseModel `bun:"table:contracts"`

	ID             uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	ProfessionalID uuid.UUID  `bun:"professional_id,notnull,unique,type:uuid" json:"professional_id"`
	StartDate      *time.Time `bun:"start_date,type:date" json:"start_date,omitempty"`
	EndDate        *time.Time `bun:"end_date,type:date" json:"end_date,omitempty"`
	Company        *string    `bun:"company" json:"company,omitempty"`
	Notes          string     `bun:"notes" json:"notes,omitempty"`
	CreatedAt      time.Time  `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt      time.Time  `bun:"updated_at,notnull" json:"updated_at"`
}

func (c *Contract) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if c.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			c.ID = id
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		if c.UpdatedAt.IsZero() {
			c.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		c.UpdatedAt = now
	}
	return nil
}

// ContractHistory is an append-only archive of replaced contracts.
type ContractHistory struct {
	bun.BaseModel `bun:"table:contract_history"`

	ID             uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	ContractID     uuid.UUID  `bun:"contract_id,notnull,type:uuid" json:"contract_id"`
	ProfessionalID uuid.UUID  `bun:"professional_id,notnull,type:uuid" json:"professional_id"`
	StartDate      *time.Time `bun:"start_date,type:date" json:"start_date,omitempty"`
	EndDate        *time.Time `bun:"end_date,type:date" json:"end_date,omitempty"`
	Company        *string    `bun:"company" json:"company,omitempty"`
	Notes          string     `bun:"notes" json:"notes,omitempty"`
	ArchivedAt     time.Time  `bun:"archived_at,notnull" json:"archived_at"`
}

func (h *ContractHistory) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); !ok {
		return nil
	}
	if h.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		h.ID = id
	}
	if h.ArchivedAt.IsZero() {
		h.ArchivedAt = time.Now().UTC()
	}
	return nil
}

// Archive copies c into a history row.
func (c Contract) Archive() ContractHistory {
	return ContractHistory{
		ContractID:     c.ID,
		ProfessionalID: c.ProfessionalID,
		StartDate:      c.StartDate,
		EndDate:        c.EndDate,
		Company:        c.Company,
		Notes:          c.Notes,
	}
}
