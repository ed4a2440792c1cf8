package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"podoagenda/backend/internal/domain"
	"podoagenda/backend/internal/store"
)

type OverrideRepo struct {
	db *bun.DB
}

func NewOverrideRepo(db *bun.DB) *OverrideRepo {
	return &OverrideRepo{db: db}
}

// ListOverrides returns the professional's overrides dated in [from, to].
func (r *OverrideRepo) ListOverrides(ctx context.Context, professionalID uuid.UUID, from, to time.Time) ([]domain.ScheduleOverride, error) {
	var rows []domain.ScheduleOverride
	err := r.db.NewSelect().
		Model(&rows).
		Where("professional_id = ?", professionalID).
		Where("date >= ?", domain.DateKey(from)).
		Where("date <= ?", domain.DateKey(to)).
		OrderExpr("date ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *OverrideRepo) PutOverrides(ctx context.Context, overrides []domain.ScheduleOverride) ([]domain.ScheduleOverride, error) {
	if len(overrides) == 0 {
		return nil, nil
	}
	if err := domain.CheckUniqueOverrides(overrides); err != nil {
		return nil, err
	}

	out := make([]domain.ScheduleOverride, 0, len(overrides))
	err := inProfessionalTransaction(ctx, r.db, overrideOwners(overrides), func(ctx context.Context, tx store.ScheduleTx) error {
		for _, o := range overrides {
			saved, err := tx.UpsertOverride(ctx, civilDate(o))
			if err != nil {
				return err
			}
			out = append(out, saved)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *OverrideRepo) DeleteOverrides(ctx context.Context, professionalID uuid.UUID, ids []uuid.UUID) error {
	return inProfessionalTransaction(ctx, r.db, []uuid.UUID{professionalID}, func(ctx context.Context, tx store.ScheduleTx) error {
		return tx.DeleteOverrides(ctx, professionalID, ids)
	})
}

func overrideOwners(overrides []domain.ScheduleOverride) []uuid.UUID {
	out := make([]uuid.UUID, 0, 1)
	seen := make(map[uuid.UUID]struct{})
	for _, o := range overrides {
		if _, ok := seen[o.ProfessionalID]; ok {
			continue
		}
		seen[o.ProfessionalID] = struct{}{}
		out = append(out, o.ProfessionalID)
	}
	return out
}

// civilDate stores the override on its calendar date at UTC midnight so the
// date column does not drift with the server time zone.
func civilDate(o domain.ScheduleOverride) domain.ScheduleOverride {
	y, m, d := o.Date.Date()
	o.Date = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return o
}

func civilDatePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	y, m, d := t.Date()
	out := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &out
}
