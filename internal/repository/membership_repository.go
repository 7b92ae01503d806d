package repository

import (
	"context"

	"github.com/planease/engine/internal/models"
	"github.com/planease/engine/internal/store"
)

type MembershipRepository interface {
	BaseRepository[models.Membership]
	ListByProject(ctx context.Context, projectID string) ([]models.Membership, error)
	ListByUser(ctx context.Context, userID string) ([]models.Membership, error)
}

type membershipRepository struct {
	BaseRepository[models.Membership]
}

func NewMembershipRepository(s store.ItemStore, schema store.Schema, policy store.RetryPolicy) MembershipRepository {
	return &membershipRepository{BaseRepository: NewBaseRepository[models.Membership](s, schema, policy, "project membership")}
}

func (r *membershipRepository) ListByProject(ctx context.Context, projectID string) ([]models.Membership, error) {
	return r.ListBy(ctx, IndexMembersByProject, "project_id", projectID)
}

func (r *membershipRepository) ListByUser(ctx context.Context, userID string) ([]models.Membership, error) {
	return r.ListBy(ctx, IndexMembersByUser, "user_id", userID)
}
