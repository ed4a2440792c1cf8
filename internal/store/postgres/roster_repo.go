package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"podoagenda/backend/internal/domain"
)

type RosterRepo struct {
	db *bun.DB
}

func NewRosterRepo(db *bun.DB) *RosterRepo {
	return &RosterRepo{db: db}
}

func (r *RosterRepo) ListProfessionals(ctx context.Context, homeLocationID *uuid.UUID) ([]domain.Professional, error) {
	var rows []domain.Professional
	q := r.db.NewSelect().
		Model(&rows).
		Relation("Overrides", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("date ASC")
		}).
		Relation("Contract")
	if homeLocationID != nil {
		q = q.Where("p.home_location_id = ?", *homeLocationID)
	}
	if err := q.OrderExpr("p.last_name ASC, p.first_name ASC, p.id ASC").Scan(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *RosterRepo) GetProfessional(ctx context.Context, id uuid.UUID) (domain.Professional, error) {
	var out domain.Professional
	err := r.db.NewSelect().
		Model(&out).
		Relation("Overrides", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("date ASC")
		}).
		Relation("Contract").
		Where("p.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.Professional{}, mapError(err)
	}
	return out, nil
}

func (r *RosterRepo) ListServices(ctx context.Context) ([]domain.Service, error) {
	var rows []domain.Service
	if err := r.db.NewSelect().Model(&rows).OrderExpr("name ASC").Scan(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}
