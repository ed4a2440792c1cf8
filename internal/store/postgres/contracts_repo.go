package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"podoagenda/backend/internal/domain"
	"podoagenda/backend/internal/store"
)

type ContractRepo struct {
	db *bun.DB
}

func NewContractRepo(db *bun.DB) *ContractRepo {
	return &ContractRepo{db: db}
}

func (r *ContractRepo) ReplaceContract(ctx context.Context, c domain.Contract) (domain.Contract, error) {
	var out domain.Contract
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockProfessionals(ctx, tx, c.ProfessionalID.String()); err != nil {
			return err
		}

		var current domain.Contract
		err := tx.NewSelect().
			Model(&current).
			Where("professional_id = ?", c.ProfessionalID).
			For("UPDATE").
			Limit(1).
			Scan(ctx)
		switch err := mapError(err); {
		case err == nil:
			history := current.Archive()
			if _, err := tx.NewInsert().Model(&history).Exec(ctx); err != nil {
				return mapError(err)
			}
			if _, err := tx.NewDelete().Model((*domain.Contract)(nil)).Where("id = ?", current.ID).Exec(ctx); err != nil {
				return err
			}
		case errors.Is(err, store.ErrNotFound):
		default:
			return err
		}

		m := c
		m.ID = uuid.Nil
		m.StartDate = civilDatePtr(m.StartDate)
		m.EndDate = civilDatePtr(m.EndDate)
		if _, err := tx.NewInsert().Model(&m).Exec(ctx); err != nil {
			return mapError(err)
		}
		out = m
		return nil
	})
	if err != nil {
		return domain.Contract{}, err
	}
	return out, nil
}

func (r *ContractRepo) ListContractHistory(ctx context.Context, professionalID uuid.UUID) ([]domain.ContractHistory, error) {
	var rows []domain.ContractHistory
	err := r.db.NewSelect().
		Model(&rows).
		Where("professional_id = ?", professionalID).
		OrderExpr("archived_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
