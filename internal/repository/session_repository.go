package repository

import (
	"context"

	"github.com/planease/engine/internal/models"
	"github.com/planease/engine/internal/store"
	appErr "github.com/planease/engine/pkg/errors"
)

type SessionRepository interface {
	BaseRepository[models.IntakeSession]
	GetByID(ctx context.Context, sessionID string) (*models.IntakeSession, error)
	// Update applies a conditional field-level update and returns the new
	// image. A false condition yields CodeConditionCheckFailed.
	Update(ctx context.Context, sessionID string, in store.UpdateInput) (*models.IntakeSession, error)
	ListByUser(ctx context.Context, userID string) ([]models.IntakeSession, error)
}

type sessionRepository struct {
	BaseRepository[models.IntakeSession]
	store  store.ItemStore
	schema store.Schema
}

func NewSessionRepository(s store.ItemStore, schema store.Schema, policy store.RetryPolicy) SessionRepository {
	return &sessionRepository{
		BaseRepository: NewBaseRepository[models.IntakeSession](s, schema, policy, "intake session"),
		store:          s,
		schema:         schema,
	}
}

func (r *sessionRepository) GetByID(ctx context.Context, sessionID string) (*models.IntakeSession, error) {
	var out models.IntakeSession
	if err := r.Get(ctx, store.Key{r.schema.PartitionKey: sessionID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *sessionRepository) Update(ctx context.Context, sessionID string, in store.UpdateInput) (*models.IntakeSession, error) {
	item, err := r.store.Update(ctx, r.schema.Table, store.Key{r.schema.PartitionKey: sessionID}, in)
	if err != nil {
		return nil, translate(err, "intake session", "update")
	}
	var out models.IntakeSession
	if err := fromItem(item, &out); err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "decode intake session failed")
	}
	return &out, nil
}

func (r *sessionRepository) ListByUser(ctx context.Context, userID string) ([]models.IntakeSession, error) {
	return r.ListBy(ctx, IndexSessionsByUser, "user_id", userID)
}
