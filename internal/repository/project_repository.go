package repository

import (
	"context"

	"github.com/planease/engine/internal/models"
	"github.com/planease/engine/internal/store"
)

type ProjectRepository interface {
	BaseRepository[models.Project]
	GetByID(ctx context.Context, projectID string) (*models.Project, error)
}

type projectRepository struct {
	BaseRepository[models.Project]
	schema store.Schema
}

func NewProjectRepository(s store.ItemStore, schema store.Schema, policy store.RetryPolicy) ProjectRepository {
	return &projectRepository{BaseRepository: NewBaseRepository[models.Project](s, schema, policy, "project"), schema: schema}
}

func (r *projectRepository) GetByID(ctx context.Context, projectID string) (*models.Project, error) {
	var out models.Project
	if err := r.Get(ctx, store.Key{r.schema.PartitionKey: projectID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
