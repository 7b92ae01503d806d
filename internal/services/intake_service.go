package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/planease/engine/internal/models"
	"github.com/planease/engine/internal/repository"
	"github.com/planease/engine/internal/store"
	appErr "github.com/planease/engine/pkg/errors"
	"github.com/planease/engine/pkg/logger"
)

// IntakeService is the wizard plumbing around a session before it is
// finalised.
type IntakeService interface {
	Create(ctx context.Context, userID string, input *CreateSessionInput) (*models.IntakeSession, error)
	Get(ctx context.Context, sessionID, userID string) (*models.IntakeSession, error)
	// SaveStep replaces the JSON stored for one wizard step and moves the
	// session status to that step.
	SaveStep(ctx context.Context, sessionID, userID, step string, data json.RawMessage) (*models.IntakeSession, error)
	SaveCouncilLookup(ctx context.Context, sessionID, userID string, lookup json.RawMessage) (*models.IntakeSession, error)
	ListByUser(ctx context.Context, userID string) ([]models.IntakeSession, error)
}

type CreateSessionInput struct {
	CouncilCode       string
	ApplicationNumber string
}

type intakeService struct {
	sessions repository.SessionRepository
	now      func() time.Time
	newID    func() string
}

func NewIntakeService(sessions repository.SessionRepository) IntakeService {
	return &intakeService{sessions: sessions, now: time.Now, newID: uuid.NewString}
}

var _ IntakeService = (*intakeService)(nil)

func (s *intakeService) Create(ctx context.Context, userID string, input *CreateSessionInput) (*models.IntakeSession, error) {
	stamp := models.FormatTime(s.now())
	sess := &models.IntakeSession{
		SessionID:         s.newID(),
		UserID:            userID,
		CouncilCode:       strings.TrimSpace(input.CouncilCode),
		ApplicationNumber: strings.TrimSpace(input.ApplicationNumber),
		Status:            models.SessionStatusDraft,
		StepData:          map[string]string{},
		CreatedAt:         stamp,
		UpdatedAt:         stamp,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}
	logger.L().Info("intake session created", zap.String("session_id", sess.SessionID), zap.String("user_id", userID))
	return sess, nil
}

func (s *intakeService) Get(ctx context.Context, sessionID, userID string) (*models.IntakeSession, error) {
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.UserID != "" && sess.UserID != userID {
		return nil, appErr.New(appErr.CodeForbidden, "user does not own intake session")
	}
	return sess, nil
}

func (s *intakeService) SaveStep(ctx context.Context, sessionID, userID, step string, data json.RawMessage) (*models.IntakeSession, error) {
	if !models.IsStep(step) {
		return nil, appErr.New(appErr.CodeInvalid, "unknown intake step").WithMeta("step", step)
	}
	if !json.Valid(data) {
		return nil, appErr.New(appErr.CodeInvalid, "step data must be valid JSON")
	}
	sess, err := s.Get(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if sess.Finalised {
		return nil, appErr.New(appErr.CodeConflict, "intake session is finalised")
	}

	// step_data is replaced whole; backends disagree on nested paths.
	steps := make(map[string]any, len(sess.StepData)+1)
	for k, v := range sess.StepData {
		steps[k] = v
	}
	steps[step] = string(data)

	out, err := s.sessions.Update(ctx, sessionID, store.UpdateInput{
		Set: map[string]any{
			"step_data":  steps,
			"status":     step,
			"updated_at": models.FormatTime(s.now()),
		},
		Condition: notFinalised(),
	})
	if err != nil {
		return nil, lockedErr(err)
	}
	logger.L().Info("intake step saved", zap.String("session_id", sessionID), zap.String("step", step))
	return out, nil
}

func (s *intakeService) SaveCouncilLookup(ctx context.Context, sessionID, userID string, lookup json.RawMessage) (*models.IntakeSession, error) {
	var probe models.CouncilLookup
	if err := json.Unmarshal(lookup, &probe); err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInvalid, "council lookup must be a JSON object")
	}
	sess, err := s.Get(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if sess.Finalised {
		return nil, appErr.New(appErr.CodeConflict, "intake session is finalised")
	}

	out, err := s.sessions.Update(ctx, sessionID, store.UpdateInput{
		Set: map[string]any{
			"council_lookup": string(lookup),
			"updated_at":     models.FormatTime(s.now()),
		},
		Condition: notFinalised(),
	})
	if err != nil {
		return nil, lockedErr(err)
	}
	logger.L().Info("council lookup saved", zap.String("session_id", sessionID), zap.Int("documents", len(probe.ProjectMetadata.Raw.Documents)))
	return out, nil
}

func (s *intakeService) ListByUser(ctx context.Context, userID string) ([]models.IntakeSession, error) {
	return s.sessions.ListByUser(ctx, userID)
}

func notFinalised() store.Condition {
	return store.And(
		store.AttributeExists("session_id"),
		store.Or(store.AttributeNotExists("finalised"), store.Equal("finalised", false)),
	)
}

func lockedErr(err error) error {
	if appErr.IsCode(err, appErr.CodeConditionCheckFailed) {
		return appErr.Wrap(err, appErr.CodeConflict, "intake session is finalised")
	}
	return err
}
