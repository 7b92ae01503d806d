package repository

import (
	"context"

	"github.com/planease/engine/internal/models"
	"github.com/planease/engine/internal/store"
)

type ConditionRepository interface {
	BaseRepository[models.Condition]
	ListByProject(ctx context.Context, projectID string) ([]models.Condition, error)
}

type conditionRepository struct {
	BaseRepository[models.Condition]
}

func NewConditionRepository(s store.ItemStore, schema store.Schema, policy store.RetryPolicy) ConditionRepository {
	return &conditionRepository{BaseRepository: NewBaseRepository[models.Condition](s, schema, policy, "condition")}
}

// ListByProject returns rows in sort-key order, which is lexical by number.
func (r *conditionRepository) ListByProject(ctx context.Context, projectID string) ([]models.Condition, error) {
	return r.ListBy(ctx, "", "project_id", projectID)
}
