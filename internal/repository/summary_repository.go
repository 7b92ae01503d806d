package repository

import (
	"context"

	"github.com/planease/engine/internal/models"
	"github.com/planease/engine/internal/store"
)

type SummaryRepository interface {
	BaseRepository[models.ProjectSummary]
	GetByProject(ctx context.Context, projectID string) (*models.ProjectSummary, error)
}

type summaryRepository struct {
	BaseRepository[models.ProjectSummary]
	schema store.Schema
}

func NewSummaryRepository(s store.ItemStore, schema store.Schema, policy store.RetryPolicy) SummaryRepository {
	return &summaryRepository{BaseRepository: NewBaseRepository[models.ProjectSummary](s, schema, policy, "project summary"), schema: schema}
}

func (r *summaryRepository) GetByProject(ctx context.Context, projectID string) (*models.ProjectSummary, error) {
	var out models.ProjectSummary
	if err := r.Get(ctx, store.Key{r.schema.PartitionKey: projectID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
