package repository

import (
	"context"

	"github.com/planease/engine/internal/models"
	"github.com/planease/engine/internal/store"
)

type DocumentRepository interface {
	BaseRepository[models.Document]
	ListByProject(ctx context.Context, projectID string) ([]models.Document, error)
}

type documentRepository struct {
	BaseRepository[models.Document]
}

func NewDocumentRepository(s store.ItemStore, schema store.Schema, policy store.RetryPolicy) DocumentRepository {
	return &documentRepository{BaseRepository: NewBaseRepository[models.Document](s, schema, policy, "document")}
}

func (r *documentRepository) ListByProject(ctx context.Context, projectID string) ([]models.Document, error) {
	return r.ListBy(ctx, "", "project_id", projectID)
}
